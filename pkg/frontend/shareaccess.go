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
	"github.com/boringdata/boring-ui/internal/sharing"
)

// ShareAccess serves the public share endpoint. The token is the only
// credential; on success the request is forwarded to the workspace's
// runtime under the shared path. GET needs read access, PUT needs write.
// Denials never reveal whether a nearby token exists.
func (f *Frontend) ShareAccess(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	token := request.PathValue(PathSegmentToken)

	want := api.ShareAccessRead
	if request.Method == http.MethodPut {
		want = api.ShareAccessWrite
	}

	share, err := f.sharing.Resolve(ctx, token, request.URL.Query().Get("path"), want)
	if err != nil {
		f.writeShareDenied(writer, request, token, err)
		return
	}

	action := api.AuditShareAccessed
	if want == api.ShareAccessWrite {
		action = api.AuditShareWritten
	}
	f.emitAudit(ctx, &api.AuditEvent{
		WorkspaceID: share.WorkspaceID,
		Action:      action,
		Payload: map[string]any{
			"share_id": share.ID,
			"path":     share.Path,
			"token":    sharing.RedactToken(token),
		},
	})

	// The runtime sees the shared path, never the token-bearing URL.
	forwarded := request.Clone(ctx)
	forwarded.URL.Path = share.Path
	forwarded.URL.RawPath = ""
	forwarded.URL.RawQuery = ""
	f.wsproxy.ServeWorkspace(writer, forwarded, share.WorkspaceID)
}

// writeShareDenied maps a share resolution failure onto its HTTP shape and
// records the denial. Traversal is a malformed request, not a denial.
func (f *Frontend) writeShareDenied(writer http.ResponseWriter, request *http.Request, token string, err error) {
	var restErr *rest.Error
	switch {
	case errors.Is(err, sharing.ErrPathTraversal):
		rest.WriteError(writer, http.StatusBadRequest, rest.CodePathTraversal,
			"the path contains a traversal sequence")
		return
	case errors.Is(err, sharing.ErrInvalidPath):
		rest.WriteError(writer, http.StatusBadRequest, rest.CodeInvalidRequestBody,
			"the path is not decodable")
		return
	case errors.Is(err, sharing.ErrShareNotFound):
		restErr = rest.NewError(http.StatusNotFound, rest.CodeShareNotFound,
			"the share link does not exist")
	case errors.Is(err, sharing.ErrShareRevoked):
		restErr = rest.NewError(http.StatusNotFound, rest.CodeShareRevoked,
			"the share link has been revoked")
	case errors.Is(err, sharing.ErrShareExpired):
		restErr = rest.NewError(http.StatusGone, rest.CodeShareExpired,
			"the share link has expired")
	case errors.Is(err, sharing.ErrPathMismatch):
		restErr = rest.NewError(http.StatusForbidden, rest.CodePathMismatch,
			"the requested path is not covered by the share link")
	case errors.Is(err, sharing.ErrAccessExceeded):
		restErr = rest.NewError(http.StatusForbidden, rest.CodeForbidden,
			"the share link does not grant this access")
	default:
		logInternalError(writer, request, "failed to resolve share link", err)
		return
	}

	f.emitAudit(request.Context(), &api.AuditEvent{
		Action: api.AuditShareDenied,
		Payload: map[string]any{
			"token":  sharing.RedactToken(token),
			"reason": restErr.Code,
		},
	})

	rest.WriteRESTError(writer, restErr)
}
