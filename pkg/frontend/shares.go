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
	"errors"
	"net/http"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/database"
	"github.com/boringdata/boring-ui/internal/sharing"
)

// ShareCreate issues a new share link. The response is the only place the
// plaintext token ever appears; the store keeps the hash.
func (f *Frontend) ShareCreate(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)
	identity, _ := IdentityFromContext(ctx)

	var body api.ShareCreateRequest
	if err := f.unmarshalRequest(request, &body); err != nil {
		rest.WriteUnmarshalError(err, writer)
		return
	}

	share, token, err := f.sharing.Create(ctx, workspace.ID, &body, identity.UserID)
	if err != nil {
		if errors.Is(err, sharing.ErrPathTraversal) {
			rest.WriteError(writer, http.StatusBadRequest, rest.CodePathTraversal,
				"the path contains a traversal sequence")
			return
		}
		if errors.Is(err, sharing.ErrInvalidPath) {
			rest.WriteError(writer, http.StatusBadRequest, rest.CodeInvalidRequestBody,
				"the path is not decodable")
			return
		}
		logInternalError(writer, request, "failed to create share link", err)
		return
	}

	f.emitAudit(ctx, &api.AuditEvent{
		WorkspaceID: workspace.ID,
		Action:      api.AuditShareCreated,
		Payload: map[string]any{
			"share_id": share.ID,
			"path":     share.Path,
			"access":   string(share.Access),
			"token":    sharing.RedactToken(token),
		},
	})

	response := api.ShareCreateResponse{ShareLink: *share, Token: token}
	response.TokenHash = ""
	_, _ = rest.WriteJSONResponse(writer, http.StatusCreated, response)
}

// ShareList answers the workspace's share links with token hashes elided.
func (f *Frontend) ShareList(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)

	shares := make([]*api.ShareLink, 0)
	iterator := f.dbClient.ListShareDocs(workspace.ID, -1, nil)
	for _, share := range iterator.Items(ctx) {
		share.TokenHash = ""
		shares = append(shares, share)
	}
	if err := iterator.GetError(); err != nil {
		logInternalError(writer, request, "failed to list share links", err)
		return
	}

	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, shares)
}

// ShareGet answers one share link with the token hash elided.
func (f *Frontend) ShareGet(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)
	shareID := request.PathValue(PathSegmentShareID)

	share, err := f.dbClient.GetShareDoc(ctx, workspace.ID, shareID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rest.WriteError(writer, http.StatusNotFound, rest.CodeShareNotFound,
				"the share link does not exist")
			return
		}
		logInternalError(writer, request, "failed to read share link", err)
		return
	}

	share.TokenHash = ""
	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, share)
}

// ShareRevoke stamps the link revoked. Revoking twice is a no-op that
// still answers 204; only an unknown id is 404.
func (f *Frontend) ShareRevoke(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)
	shareID := request.PathValue(PathSegmentShareID)

	revoked, err := f.sharing.Revoke(ctx, workspace.ID, shareID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rest.WriteError(writer, http.StatusNotFound, rest.CodeShareNotFound,
				"the share link does not exist")
			return
		}
		logInternalError(writer, request, "failed to revoke share link", err)
		return
	}

	if revoked {
		f.emitAudit(ctx, &api.AuditEvent{
			WorkspaceID: workspace.ID,
			Action:      api.AuditShareRevoked,
			Payload:     map[string]any{"share_id": shareID},
		})
	}

	writer.WriteHeader(http.StatusNoContent)
}
