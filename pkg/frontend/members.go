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
)

// MemberList answers the workspace's live membership records. Removed
// records stay in the store for audit but are not listed.
func (f *Frontend) MemberList(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)

	members := make([]*api.Member, 0)
	iterator := f.dbClient.ListMemberDocs(workspace.ID, -1, nil)
	for _, member := range iterator.Items(ctx) {
		if member.Status != api.MemberStatusRemoved {
			members = append(members, member)
		}
	}
	if err := iterator.GetError(); err != nil {
		logInternalError(writer, request, "failed to list members", err)
		return
	}

	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, members)
}

// MemberInvite creates a pending membership for an email address. The
// store refuses a second live record for the same email, so duplicate
// invites come back 409.
func (f *Frontend) MemberInvite(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)
	identity, _ := IdentityFromContext(ctx)

	var body api.MemberInviteRequest
	if err := f.unmarshalRequest(request, &body); err != nil {
		rest.WriteUnmarshalError(err, writer)
		return
	}

	role := body.Role
	if role == "" {
		role = api.MemberRoleAdmin
	}

	member := &api.Member{
		ID:          api.NewMemberID(),
		WorkspaceID: workspace.ID,
		Email:       api.NormalizeEmail(body.Email),
		Role:        role,
		Status:      api.MemberStatusPending,
		InvitedBy:   identity.UserID,
		CreatedAt:   f.clock.Now().UTC(),
	}

	if err := f.dbClient.CreateMemberDoc(ctx, member); err != nil {
		if errors.Is(err, database.ErrMemberExists) {
			rest.WriteError(writer, http.StatusConflict, rest.CodeConflictInFlight,
				"the workspace already has a member for this email")
			return
		}
		logInternalError(writer, request, "failed to create invite", err)
		return
	}

	f.emitAudit(ctx, &api.AuditEvent{
		WorkspaceID: workspace.ID,
		Action:      api.AuditMemberInvited,
		Payload:     map[string]any{"member_id": member.ID, "email": member.Email},
	})

	_, _ = rest.WriteJSONResponse(writer, http.StatusCreated, member)
}

// MemberRemove soft-removes a membership record.
func (f *Frontend) MemberRemove(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)
	memberID := request.PathValue(PathSegmentMemberID)

	updated, err := f.dbClient.UpdateMemberDoc(ctx, workspace.ID, memberID, func(doc *api.Member) bool {
		if doc.Status == api.MemberStatusRemoved {
			return false
		}
		doc.Status = api.MemberStatusRemoved
		return true
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rest.WriteError(writer, http.StatusNotFound, rest.CodeNotFound,
				"the member does not exist")
			return
		}
		logInternalError(writer, request, "failed to remove member", err)
		return
	}

	if updated {
		f.emitAudit(ctx, &api.AuditEvent{
			WorkspaceID: workspace.ID,
			Action:      api.AuditMemberRemoved,
			Payload:     map[string]any{"member_id": memberID},
		})
	}

	writer.WriteHeader(http.StatusNoContent)
}
