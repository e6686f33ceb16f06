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
	"context"
	"errors"
	"net/http"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/database"
	"github.com/boringdata/boring-ui/internal/utils"
	"github.com/boringdata/boring-ui/pkg/metrics"
)

// Workspace id source names, reported verbatim in the
// workspace_context_mismatch payload.
const (
	workspaceSourcePath    = "path"
	workspaceSourceHeader  = "header"
	workspaceSourceSession = "session"
)

// resolveWorkspaceID reconciles the workspace id from up to three sources
// with precedence path > header > session. Sources that name different
// workspaces fail the dispatch; the payload lists each present source.
func resolveWorkspaceID(r *http.Request) (string, *rest.Error) {
	sources := map[string]string{}

	if id := r.PathValue(PathSegmentWorkspaceID); id != "" {
		sources[workspaceSourcePath] = id
	}
	if id := r.Header.Get(rest.HeaderNameWorkspaceID); id != "" {
		sources[workspaceSourceHeader] = id
	}
	if claims := SessionClaimsFromContext(r.Context()); claims != nil && claims.ActiveWorkspace != "" {
		sources[workspaceSourceSession] = claims.ActiveWorkspace
	}

	if len(sources) == 0 {
		return "", rest.NewError(http.StatusBadRequest, rest.CodeWorkspaceContextMismatch,
			"no source identifies the workspace")
	}

	distinct := map[string]struct{}{}
	for _, id := range sources {
		distinct[id] = struct{}{}
	}
	if len(distinct) > 1 {
		mismatch := rest.NewError(http.StatusBadRequest, rest.CodeWorkspaceContextMismatch,
			"request sources identify different workspaces")
		mismatch.Sources = sources
		return "", mismatch
	}

	for _, source := range []string{workspaceSourcePath, workspaceSourceHeader, workspaceSourceSession} {
		if id, ok := sources[source]; ok {
			return id, nil
		}
	}
	return "", nil // unreachable
}

// MiddlewareWorkspaceContext runs after multiplexing for every
// workspace-scoped route. It reconciles the workspace id sources, loads the
// workspace, hides cross-tenant existence behind 404, and enforces that the
// host-resolved app matches the workspace's app.
func (f *Frontend) MiddlewareWorkspaceContext(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	ctx := r.Context()

	workspaceID, mismatchErr := resolveWorkspaceID(r)
	if mismatchErr != nil {
		rest.WriteRESTError(w, mismatchErr)
		return
	}

	workspace, err := f.dbClient.GetWorkspaceDoc(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeWorkspaceNotFound(w)
			return
		}
		utils.LoggerFromContext(ctx).Error("failed to load workspace", "error", err.Error())
		rest.WriteInternalServerError(w)
		return
	}
	if workspace.Status == api.WorkspaceStatusRemoved {
		writeWorkspaceNotFound(w)
		return
	}

	// Existence hiding: a caller who is not an active member gets the same
	// 404 a nonexistent workspace would produce.
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		rest.WriteError(w, http.StatusUnauthorized, rest.CodeAuthRequired,
			"authentication is required")
		return
	}
	member, err := f.activeMember(ctx, workspaceID, identity.Email)
	if err != nil {
		utils.LoggerFromContext(ctx).Error("failed to check membership", "error", err.Error())
		rest.WriteInternalServerError(w)
		return
	}
	if member == nil {
		f.metrics.AddCounter(metrics.TenantBoundaryIncidentsName, 1, map[string]string{
			"route": PatternFromContext(ctx),
		})
		writeWorkspaceNotFound(w)
		return
	}

	// App-context enforcement: no-op when the host did not resolve.
	if resolution, ok := ResolutionFromContext(ctx); ok && resolution.AppID != workspace.AppID {
		rest.WriteError(w, http.StatusBadRequest, rest.CodeAppContextMismatch,
			"the workspace does not belong to the requested application")
		return
	}

	ctx = ContextWithWorkspace(ctx, workspace)
	ctx = utils.ContextWithLogger(ctx,
		utils.LoggerFromContext(ctx).With("workspace_id", workspace.ID))
	next(w, r.WithContext(ctx))
}

func writeWorkspaceNotFound(w http.ResponseWriter) {
	rest.WriteError(w, http.StatusNotFound, rest.CodeWorkspaceNotFound,
		"the workspace does not exist")
}

// activeMember returns the caller's active membership record for the
// workspace, or nil when there is none.
func (f *Frontend) activeMember(ctx context.Context, workspaceID, email string) (*api.Member, error) {
	iterator := f.dbClient.ListMemberDocs(workspaceID, -1, nil)
	for _, member := range iterator.Items(ctx) {
		if member.Status == api.MemberStatusActive && member.Email == api.NormalizeEmail(email) {
			return member, nil
		}
	}
	return nil, iterator.GetError()
}
