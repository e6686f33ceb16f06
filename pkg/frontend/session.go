// Copyright 2026 Boring Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frontend

import (
	"net/http"
	"strings"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
)

// MeGet answers the authenticated identity.
func (f *Frontend) MeGet(writer http.ResponseWriter, request *http.Request) {
	identity, ok := IdentityFromContext(request.Context())
	if !ok {
		rest.WriteError(writer, http.StatusUnauthorized, rest.CodeAuthRequired,
			"authentication is required")
		return
	}
	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, identity)
}

// AuthCallback validates an inbound identity token and issues a browser
// session. The session id is always fresh, so a fixated pre-login value
// never survives authentication.
func (f *Frontend) AuthCallback(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	token := request.URL.Query().Get("token")
	if token == "" {
		if header, ok := strings.CutPrefix(request.Header.Get("Authorization"), "Bearer "); ok {
			token = header
		}
	}
	if token == "" {
		rest.WriteError(writer, http.StatusUnauthorized, rest.CodeAuthCallbackFailed,
			"the callback carries no identity token")
		return
	}

	identity, err := f.verifier.Verify(ctx, token)
	if err != nil {
		rest.WriteError(writer, http.StatusUnauthorized, rest.CodeAuthCallbackFailed,
			"the identity token failed validation")
		return
	}

	session, err := f.sessions.Issue(identity, "")
	if err != nil {
		logInternalError(writer, request, "failed to issue session", err)
		return
	}
	f.sessions.SetCookies(writer, session)

	f.emitAudit(ctx, &api.AuditEvent{
		UserID: identity.UserID,
		Action: api.AuditSessionIssued,
	})

	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, identity)
}

// AuthLogout deletes the session and CSRF cookies. The flags match the
// ones the cookies were issued with, or browsers would keep them.
func (f *Frontend) AuthLogout(writer http.ResponseWriter, request *http.Request) {
	f.sessions.ClearCookies(writer)
	writer.WriteHeader(http.StatusNoContent)
}

type activeWorkspaceBody struct {
	WorkspaceID string `json:"workspace_id" validate:"required"`
}

// ActiveWorkspaceGet answers the session's active workspace selection.
func (f *Frontend) ActiveWorkspaceGet(writer http.ResponseWriter, request *http.Request) {
	claims := SessionClaimsFromContext(request.Context())
	if claims == nil {
		rest.WriteError(writer, http.StatusUnauthorized, rest.CodeInvalidSession,
			"active workspace selection requires a browser session")
		return
	}
	if claims.ActiveWorkspace == "" {
		rest.WriteError(writer, http.StatusNotFound, rest.CodeNotFound,
			"the session has no active workspace")
		return
	}
	_, _ = rest.WriteJSONResponse(writer, http.StatusOK,
		activeWorkspaceBody{WorkspaceID: claims.ActiveWorkspace})
}

// ActiveWorkspacePut stores a new active workspace selection by reissuing
// the session. The caller must be an active member of the workspace;
// anything else is indistinguishable from the workspace not existing.
func (f *Frontend) ActiveWorkspacePut(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	claims := SessionClaimsFromContext(ctx)
	if claims == nil {
		rest.WriteError(writer, http.StatusUnauthorized, rest.CodeInvalidSession,
			"active workspace selection requires a browser session")
		return
	}

	var body activeWorkspaceBody
	if err := f.unmarshalRequest(request, &body); err != nil {
		rest.WriteUnmarshalError(err, writer)
		return
	}

	identity := claims.Identity()
	member, err := f.activeMember(ctx, body.WorkspaceID, identity.Email)
	if err != nil {
		logInternalError(writer, request, "failed to check membership", err)
		return
	}
	if member == nil {
		writeWorkspaceNotFound(writer)
		return
	}

	session, err := f.sessions.WithActiveWorkspace(claims, body.WorkspaceID)
	if err != nil {
		logInternalError(writer, request, "failed to reissue session", err)
		return
	}
	f.sessions.SetCookies(writer, session)

	_, _ = rest.WriteJSONResponse(writer, http.StatusOK,
		activeWorkspaceBody{WorkspaceID: body.WorkspaceID})
}
