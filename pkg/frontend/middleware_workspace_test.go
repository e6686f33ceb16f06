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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/appconfig"
)

// A header agreeing with the path is redundant and accepted.
func TestWorkspaceContextAgreeingSources(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces/"+workspace.ID, nil)
	request.Header.Set(rest.HeaderNameWorkspaceID, workspace.ID)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())
}

// Sources naming different workspaces fail the dispatch before any load,
// and the payload names each source so the client can see which disagreed.
func TestWorkspaceContextMismatch(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces/"+workspace.ID, nil)
	request.Header.Set(rest.HeaderNameWorkspaceID, api.TestOtherWorkspaceID)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	restErr := requireErrorCode(t, writer, http.StatusBadRequest, rest.CodeWorkspaceContextMismatch)
	assert.Equal(t, map[string]string{
		"path":   workspace.ID,
		"header": api.TestOtherWorkspaceID,
	}, restErr.Sources)
}

// The session's active workspace joins the reconciliation for cookie-auth
// requests; a path that contradicts it is refused.
func TestWorkspaceContextSessionSource(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces/"+workspace.ID, nil)
	withSession(request, fx.sessionFor(t, api.TestUserID, api.TestUserEmail, api.TestOtherWorkspaceID))

	writer := fx.do(request)
	restErr := requireErrorCode(t, writer, http.StatusBadRequest, rest.CodeWorkspaceContextMismatch)
	assert.Equal(t, workspace.ID, restErr.Sources["path"])
	assert.Equal(t, api.TestOtherWorkspaceID, restErr.Sources["session"])
}

// A session whose active workspace agrees with the path is accepted.
func TestWorkspaceContextSessionAgrees(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces/"+workspace.ID, nil)
	withSession(request, fx.sessionFor(t, api.TestUserID, api.TestUserEmail, workspace.ID))

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())
}

// A removed workspace is gone: loading it answers the same 404 as a
// workspace that never existed.
func TestWorkspaceContextRemovedWorkspace(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodDelete, "/api/v1/workspaces/"+workspace.ID, nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)
	require.Equal(t, http.StatusNoContent, fx.do(request).Code)

	request = fx.newRequest(t, http.MethodGet, "/w/"+workspace.ID+"/api/v1/runtime", nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	requireErrorCode(t, writer, http.StatusNotFound, rest.CodeWorkspaceNotFound)
}

// A pending (not yet accepted) membership does not grant access.
func TestWorkspaceContextPendingMemberHidden(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)
	fx.seedMember(t, workspace.ID, "", api.TestInviteEmail, api.MemberStatusPending)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces/"+workspace.ID, nil)
	fx.authenticate(t, request, api.TestOtherUserID, api.TestInviteEmail)

	writer := fx.do(request)
	requireErrorCode(t, writer, http.StatusNotFound, rest.CodeWorkspaceNotFound)
	assert.Equal(t, float64(1), fx.counterValue(t, "tenant_boundary_incidents"))
}

// Requests against a host registered to a different app are refused even
// for members; the check runs only when the host resolved at all.
func TestWorkspaceContextAppMismatch(t *testing.T) {
	otherApp := api.TestAppConfig()
	otherApp.AppID = "other-app"

	fx := newTestFrontend(t, func(opts *FrontendOptions) {
		registry, err := appconfig.NewRegistry([]appconfig.Registration{
			{Hosts: []string{api.TestHost}, Config: *api.TestAppConfig()},
			{Hosts: []string{"other.example.com"}, Config: *otherApp},
		}, "")
		require.NoError(t, err)
		opts.Resolver = appconfig.NewResolver(registry)
	})
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces/"+workspace.ID, nil)
	request.Host = "other.example.com"
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	requireErrorCode(t, writer, http.StatusBadRequest, rest.CodeAppContextMismatch)
}
