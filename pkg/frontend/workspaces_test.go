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
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
)

func TestWorkspaceCreate(t *testing.T) {
	fx := newTestFrontend(t)

	request := fx.newRequest(t, http.MethodPost, "/api/v1/workspaces",
		api.WorkspaceCreateRequest{Name: "Alpha"})
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	require.Equal(t, http.StatusAccepted, writer.Code, writer.Body.String())

	workspace := decodeJSON[*api.Workspace](t, writer)
	assert.Equal(t, "Alpha", workspace.Name)
	assert.Equal(t, api.TestAppID, workspace.AppID)
	assert.Equal(t, api.TestUserID, workspace.OwnerID)
	assert.Equal(t, api.WorkspaceStatusActive, workspace.Status)

	// The creator is the first active member.
	members := fx.listMembers(t, workspace.ID)
	require.Len(t, members, 1)
	assert.Equal(t, api.TestUserEmail, members[0].Email)
	assert.Equal(t, api.MemberStatusActive, members[0].Status)

	assert.Contains(t, fx.auditActions(t, workspace.ID), api.AuditWorkspaceCreated)
}

func TestWorkspaceCreateValidation(t *testing.T) {
	fx := newTestFrontend(t)

	request := fx.newRequest(t, http.MethodPost, "/api/v1/workspaces",
		api.WorkspaceCreateRequest{})
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	restErr := requireErrorCode(t, writer, http.StatusBadRequest, rest.CodeInvalidRequestBody)
	require.Len(t, restErr.Fields, 1)
	assert.Equal(t, "name", restErr.Fields[0].Field)
}

func TestWorkspaceCreateDuplicateName(t *testing.T) {
	fx := newTestFrontend(t)
	fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodPost, "/api/v1/workspaces",
		api.WorkspaceCreateRequest{Name: api.TestWorkspaceName})
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	requireErrorCode(t, writer, http.StatusConflict, rest.CodeConflictInFlight)
}

func TestWorkspaceGet(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces/"+workspace.ID, nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())
	assert.Equal(t, workspace.ID, decodeJSON[*api.Workspace](t, writer).ID)
}

// Cross-tenant reads are indistinguishable from the workspace not existing.
func TestWorkspaceGetHidesCrossTenant(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces/"+workspace.ID, nil)
	fx.authenticate(t, request, api.TestOtherUserID, "other@example.com")

	writer := fx.do(request)
	requireErrorCode(t, writer, http.StatusNotFound, rest.CodeWorkspaceNotFound)
	assert.Equal(t, float64(1), fx.counterValue(t, "tenant_boundary_incidents"))
}

func TestWorkspacePatchRename(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodPatch, "/api/v1/workspaces/"+workspace.ID,
		map[string]string{"name": "Beta"})
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())
	assert.Equal(t, "Beta", decodeJSON[*api.Workspace](t, writer).Name)

	stored, err := fx.db.GetWorkspaceDoc(context.Background(), workspace.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beta", stored.Name)
	assert.Contains(t, fx.auditActions(t, workspace.ID), api.AuditWorkspaceRenamed)
}

// A merge patch that does not touch the name is a no-op answering 200.
func TestWorkspacePatchNoop(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodPatch, "/api/v1/workspaces/"+workspace.ID,
		map[string]string{})
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())
	assert.Equal(t, api.TestWorkspaceName, decodeJSON[*api.Workspace](t, writer).Name)
	assert.NotContains(t, fx.auditActions(t, workspace.ID), api.AuditWorkspaceRenamed)
}

func TestWorkspaceDelete(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodDelete, "/api/v1/workspaces/"+workspace.ID, nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	require.Equal(t, http.StatusNoContent, writer.Code, writer.Body.String())

	// The removal cascades: every read of the workspace now answers 404.
	request = fx.newRequest(t, http.MethodGet, "/api/v1/workspaces/"+workspace.ID, nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)
	writer = fx.do(request)
	requireErrorCode(t, writer, http.StatusNotFound, rest.CodeWorkspaceNotFound)

	assert.Contains(t, fx.auditActions(t, workspace.ID), api.AuditWorkspaceRemoved)
}

func TestWorkspaceList(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces", nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())

	workspaces := decodeJSON[[]*api.Workspace](t, writer)
	require.Len(t, workspaces, 1)
	assert.Equal(t, workspace.ID, workspaces[0].ID)
}

// A pending invite matching the caller's email promotes to an active
// membership on the invited user's first list, exactly once.
func TestWorkspaceListPromotesInvites(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)
	invite := fx.seedMember(t, workspace.ID, "", api.TestInviteEmail, api.MemberStatusPending)

	list := func() []*api.Workspace {
		request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces", nil)
		fx.authenticate(t, request, api.TestOtherUserID, api.TestInviteEmail)
		writer := fx.do(request)
		require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())
		return decodeJSON[[]*api.Workspace](t, writer)
	}

	workspaces := list()
	require.Len(t, workspaces, 1)
	assert.Equal(t, workspace.ID, workspaces[0].ID)

	member, err := fx.db.GetMemberDoc(context.Background(), workspace.ID, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, api.MemberStatusActive, member.Status)
	assert.Equal(t, api.TestOtherUserID, member.UserID)

	// Listing again is idempotent: still one promotion event.
	workspaces = list()
	require.Len(t, workspaces, 1)

	accepted := 0
	for _, action := range fx.auditActions(t, workspace.ID) {
		if action == api.AuditMemberAccepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

// The invite promotion is case-insensitive on email.
func TestWorkspaceListPromotesInvitesCaseInsensitive(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)
	fx.seedMember(t, workspace.ID, "", api.TestInviteEmail, api.MemberStatusPending)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces", nil)
	fx.authenticate(t, request, api.TestOtherUserID, "Invitee@Example.COM")

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())
	assert.Len(t, decodeJSON[[]*api.Workspace](t, writer), 1)
}

func (fx *testFrontend) listMembers(t *testing.T, workspaceID string) []*api.Member {
	t.Helper()

	var members []*api.Member
	iterator := fx.db.ListMemberDocs(workspaceID, -1, nil)
	for _, member := range iterator.Items(context.Background()) {
		members = append(members, member)
	}
	require.NoError(t, iterator.GetError())
	return members
}
