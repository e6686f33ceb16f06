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
)

func TestMemberInvite(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodPost, "/api/v1/workspaces/"+workspace.ID+"/members",
		api.MemberInviteRequest{Email: api.TestInviteEmail})
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	require.Equal(t, http.StatusCreated, writer.Code, writer.Body.String())

	member := decodeJSON[*api.Member](t, writer)
	assert.Equal(t, api.TestInviteEmail, member.Email)
	assert.Equal(t, api.MemberStatusPending, member.Status)
	assert.Equal(t, api.MemberRoleAdmin, member.Role)
	assert.Equal(t, api.TestUserID, member.InvitedBy)

	assert.Contains(t, fx.auditActions(t, workspace.ID), api.AuditMemberInvited)
}

// A second live record for the same email is refused, regardless of casing.
func TestMemberInviteDuplicate(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)
	fx.seedMember(t, workspace.ID, "", api.TestInviteEmail, api.MemberStatusPending)

	request := fx.newRequest(t, http.MethodPost, "/api/v1/workspaces/"+workspace.ID+"/members",
		api.MemberInviteRequest{Email: "Invitee@Example.COM"})
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	requireErrorCode(t, writer, http.StatusConflict, rest.CodeConflictInFlight)
}

func TestMemberInviteValidation(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodPost, "/api/v1/workspaces/"+workspace.ID+"/members",
		api.MemberInviteRequest{Email: "not-an-email"})
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	requireErrorCode(t, writer, http.StatusBadRequest, rest.CodeInvalidRequestBody)
}

func TestMemberList(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)
	removed := fx.seedMember(t, workspace.ID, "", api.TestInviteEmail, api.MemberStatusRemoved)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/workspaces/"+workspace.ID+"/members", nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())

	members := decodeJSON[[]*api.Member](t, writer)
	require.Len(t, members, 1)
	assert.NotEqual(t, removed.ID, members[0].ID)
}

func TestMemberRemove(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)
	member := fx.seedMember(t, workspace.ID, "", api.TestInviteEmail, api.MemberStatusPending)

	target := "/api/v1/workspaces/" + workspace.ID + "/members/" + member.ID

	request := fx.newRequest(t, http.MethodDelete, target, nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)
	writer := fx.do(request)
	require.Equal(t, http.StatusNoContent, writer.Code, writer.Body.String())
	assert.Contains(t, fx.auditActions(t, workspace.ID), api.AuditMemberRemoved)

	// Removing again is a no-op 204.
	request = fx.newRequest(t, http.MethodDelete, target, nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)
	writer = fx.do(request)
	assert.Equal(t, http.StatusNoContent, writer.Code, writer.Body.String())
}

func TestMemberRemoveUnknown(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodDelete,
		"/api/v1/workspaces/"+workspace.ID+"/members/mem_missing", nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	requireErrorCode(t, writer, http.StatusNotFound, rest.CodeNotFound)
}
