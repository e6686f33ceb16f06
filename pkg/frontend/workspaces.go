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
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/database"
)

// WorkspaceList answers the workspaces the caller belongs to. Pending
// invites matching the caller's email are promoted to active memberships
// first, so a freshly invited user sees the workspace on their first list.
func (f *Frontend) WorkspaceList(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	identity, _ := IdentityFromContext(ctx)

	members, err := f.collectMemberships(ctx, identity.Email)
	if err != nil {
		logInternalError(writer, request, "failed to list memberships", err)
		return
	}

	workspaces := make([]*api.Workspace, 0, len(members))
	for _, member := range members {
		if member.Status == api.MemberStatusPending {
			promoted, err := f.promoteInvite(ctx, member, identity.UserID)
			if err != nil {
				logInternalError(writer, request, "failed to promote invite", err)
				return
			}
			if !promoted {
				continue
			}
		} else if member.Status != api.MemberStatusActive {
			continue
		}

		workspace, err := f.dbClient.GetWorkspaceDoc(ctx, member.WorkspaceID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			logInternalError(writer, request, "failed to load workspace", err)
			return
		}
		if workspace.Status == api.WorkspaceStatusRemoved {
			continue
		}
		workspaces = append(workspaces, workspace)
	}

	sort.Slice(workspaces, func(i, j int) bool {
		return workspaces[i].CreatedAt.Before(workspaces[j].CreatedAt)
	})

	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, workspaces)
}

func (f *Frontend) collectMemberships(ctx context.Context, email string) ([]*api.Member, error) {
	var members []*api.Member
	iterator := f.dbClient.ListMemberDocsByEmail(api.NormalizeEmail(email), -1, nil)
	for _, member := range iterator.Items(ctx) {
		members = append(members, member)
	}
	return members, iterator.GetError()
}

// promoteInvite atomically flips one pending invite to an active
// membership. The update callback re-checks the state, so concurrent list
// calls promote exactly once and only the winner emits the audit event.
func (f *Frontend) promoteInvite(ctx context.Context, member *api.Member, userID string) (bool, error) {
	updated, err := f.dbClient.UpdateMemberDoc(ctx, member.WorkspaceID, member.ID, func(doc *api.Member) bool {
		if doc.Status != api.MemberStatusPending {
			return false
		}
		doc.Status = api.MemberStatusActive
		doc.UserID = userID
		return true
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if updated {
		f.emitAudit(ctx, &api.AuditEvent{
			WorkspaceID: member.WorkspaceID,
			UserID:      userID,
			Action:      api.AuditMemberAccepted,
			Payload:     map[string]any{"member_id": member.ID, "email": member.Email},
		})
	}

	// A lost race still means the invite is active now.
	return true, nil
}

// WorkspaceCreate registers a new workspace under the host-resolved app
// with the caller as owner and first active member.
func (f *Frontend) WorkspaceCreate(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	identity, _ := IdentityFromContext(ctx)

	resolution, ok := ResolutionFromContext(ctx)
	if !ok {
		rest.WriteError(writer, http.StatusBadRequest, rest.CodeAppNotResolvable,
			"the request host does not resolve to an application")
		return
	}

	var body api.WorkspaceCreateRequest
	if err := f.unmarshalRequest(request, &body); err != nil {
		rest.WriteUnmarshalError(err, writer)
		return
	}

	now := f.clock.Now().UTC()
	workspace := &api.Workspace{
		ID:        api.NewWorkspaceID(),
		Name:      body.Name,
		AppID:     resolution.AppID,
		OwnerID:   identity.UserID,
		Status:    api.WorkspaceStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := f.dbClient.CreateWorkspaceDoc(ctx, workspace); err != nil {
		if errors.Is(err, database.ErrWorkspaceNameTaken) {
			rest.WriteError(writer, http.StatusConflict, rest.CodeConflictInFlight,
				"a workspace with this name already exists")
			return
		}
		logInternalError(writer, request, "failed to create workspace", err)
		return
	}

	owner := &api.Member{
		ID:          api.NewMemberID(),
		WorkspaceID: workspace.ID,
		UserID:      identity.UserID,
		Email:       identity.Email,
		Role:        api.MemberRoleAdmin,
		Status:      api.MemberStatusActive,
		InvitedBy:   identity.UserID,
		CreatedAt:   now,
	}
	if err := f.dbClient.CreateMemberDoc(ctx, owner); err != nil {
		logInternalError(writer, request, "failed to create owner membership", err)
		return
	}

	f.emitAudit(ctx, &api.AuditEvent{
		WorkspaceID: workspace.ID,
		Action:      api.AuditWorkspaceCreated,
		Payload:     map[string]any{"name": workspace.Name, "app_id": workspace.AppID},
	})

	_, _ = rest.WriteJSONResponse(writer, http.StatusAccepted, workspace)
}

// WorkspaceGet answers the workspace the context middleware loaded.
func (f *Frontend) WorkspaceGet(writer http.ResponseWriter, request *http.Request) {
	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, WorkspaceFromContext(request.Context()))
}

// WorkspacePatch applies an RFC 7386 merge patch to the mutable workspace
// fields. Only the name is mutable.
func (f *Frontend) WorkspacePatch(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)

	patchBody, err := requestBody(request)
	if err != nil {
		rest.WriteUnmarshalError(err, writer)
		return
	}

	current, err := rest.MarshalJSON(api.WorkspacePatchRequest{Name: &workspace.Name})
	if err != nil {
		logInternalError(writer, request, "failed to marshal patch base", err)
		return
	}
	merged, err := jsonpatch.MergePatch(current, patchBody)
	if err != nil {
		rest.WriteError(writer, http.StatusBadRequest, rest.CodeInvalidRequestBody,
			"the request body is not a valid merge patch")
		return
	}

	var patched api.WorkspacePatchRequest
	if err := f.unmarshalPatched(merged, &patched); err != nil {
		rest.WriteUnmarshalError(err, writer)
		return
	}
	if patched.Name == nil || *patched.Name == workspace.Name {
		_, _ = rest.WriteJSONResponse(writer, http.StatusOK, workspace)
		return
	}

	inUse, err := f.dbClient.WorkspaceNameInUse(ctx, workspace.OwnerID, *patched.Name, workspace.ID)
	if err != nil {
		logInternalError(writer, request, "failed to check name uniqueness", err)
		return
	}
	if inUse {
		rest.WriteError(writer, http.StatusConflict, rest.CodeConflictInFlight,
			"a workspace with this name already exists")
		return
	}

	previousName := workspace.Name
	now := f.clock.Now().UTC()
	_, err = f.dbClient.UpdateWorkspaceDoc(ctx, workspace.ID, func(doc *api.Workspace) bool {
		doc.Name = *patched.Name
		doc.UpdatedAt = now
		*workspace = *doc
		return true
	})
	if err != nil {
		logInternalError(writer, request, "failed to rename workspace", err)
		return
	}

	f.emitAudit(ctx, &api.AuditEvent{
		WorkspaceID: workspace.ID,
		Action:      api.AuditWorkspaceRenamed,
		Payload:     map[string]any{"from": previousName, "to": workspace.Name},
	})

	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, workspace)
}

func (f *Frontend) unmarshalPatched(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	return f.validate.Struct(v)
}

// WorkspaceDelete soft-removes the workspace. Every read path hides
// removed workspaces, which is what makes the removal cascade: members,
// jobs, shares, and sessions become unreachable with it. An active
// provisioning job is cancelled so the sweeper does not chase it.
func (f *Frontend) WorkspaceDelete(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)

	now := f.clock.Now().UTC()
	_, err := f.dbClient.UpdateWorkspaceDoc(ctx, workspace.ID, func(doc *api.Workspace) bool {
		if doc.Status == api.WorkspaceStatusRemoved {
			return false
		}
		doc.Status = api.WorkspaceStatusRemoved
		doc.UpdatedAt = now
		return true
	})
	if err != nil {
		logInternalError(writer, request, "failed to remove workspace", err)
		return
	}

	if job, err := f.dbClient.GetActiveJobDoc(ctx, workspace.ID); err == nil {
		_, _ = f.provisioning.CancelJob(ctx, workspace.ID, job.ID)
	}

	f.emitAudit(ctx, &api.AuditEvent{
		WorkspaceID: workspace.ID,
		Action:      api.AuditWorkspaceRemoved,
		Payload:     map[string]any{"name": workspace.Name},
	})

	writer.WriteHeader(http.StatusNoContent)
}
