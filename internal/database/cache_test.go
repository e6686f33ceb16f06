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

package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui/internal/api"
)

func TestCacheWorkspaceNameUniqueness(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	first := api.MinimumValidWorkspace()
	require.NoError(t, cache.CreateWorkspaceDoc(ctx, first))

	tests := []struct {
		name      string
		workspace *api.Workspace
		err       error
	}{
		{
			name: "same owner and name conflicts",
			workspace: api.WorkspaceTestCase(t, &api.Workspace{
				ID: api.NewWorkspaceID(),
			}),
			err: ErrWorkspaceNameTaken,
		},
		{
			name: "same name under another owner is allowed",
			workspace: api.WorkspaceTestCase(t, &api.Workspace{
				ID:      api.NewWorkspaceID(),
				OwnerID: api.TestOtherUserID,
			}),
		},
		{
			name: "different name under same owner is allowed",
			workspace: api.WorkspaceTestCase(t, &api.Workspace{
				ID:   api.NewWorkspaceID(),
				Name: "Beta",
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cache.CreateWorkspaceDoc(ctx, tt.workspace)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCacheWorkspaceRemovalFreesName(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	first := api.MinimumValidWorkspace()
	require.NoError(t, cache.CreateWorkspaceDoc(ctx, first))

	updated, err := cache.UpdateWorkspaceDoc(ctx, first.ID, func(doc *api.Workspace) bool {
		doc.Status = api.WorkspaceStatusRemoved
		return true
	})
	require.NoError(t, err)
	require.True(t, updated)

	second := api.WorkspaceTestCase(t, &api.Workspace{ID: api.NewWorkspaceID()})
	assert.NoError(t, cache.CreateWorkspaceDoc(ctx, second))
}

func TestCacheWorkspaceNameInUse(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	workspace := api.MinimumValidWorkspace()
	require.NoError(t, cache.CreateWorkspaceDoc(ctx, workspace))

	inUse, err := cache.WorkspaceNameInUse(ctx, workspace.OwnerID, workspace.Name, "")
	require.NoError(t, err)
	assert.True(t, inUse)

	// A workspace keeping its own name is not a conflict.
	inUse, err = cache.WorkspaceNameInUse(ctx, workspace.OwnerID, workspace.Name, workspace.ID)
	require.NoError(t, err)
	assert.False(t, inUse)

	inUse, err = cache.WorkspaceNameInUse(ctx, workspace.OwnerID, "Beta", "")
	require.NoError(t, err)
	assert.False(t, inUse)
}

func TestCacheUpdateWorkspaceDoc(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	workspace := api.MinimumValidWorkspace()
	require.NoError(t, cache.CreateWorkspaceDoc(ctx, workspace))

	t.Run("callback declines", func(t *testing.T) {
		updated, err := cache.UpdateWorkspaceDoc(ctx, workspace.ID, func(doc *api.Workspace) bool {
			doc.Name = "discarded"
			return false
		})
		require.NoError(t, err)
		assert.False(t, updated)

		stored, err := cache.GetWorkspaceDoc(ctx, workspace.ID)
		require.NoError(t, err)
		assert.Equal(t, api.TestWorkspaceName, stored.Name)
	})

	t.Run("callback applies", func(t *testing.T) {
		updated, err := cache.UpdateWorkspaceDoc(ctx, workspace.ID, func(doc *api.Workspace) bool {
			doc.Name = "Renamed"
			return true
		})
		require.NoError(t, err)
		assert.True(t, updated)

		stored, err := cache.GetWorkspaceDoc(ctx, workspace.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", stored.Name)
	})

	t.Run("missing workspace", func(t *testing.T) {
		_, err := cache.UpdateWorkspaceDoc(ctx, "ws_missing", func(doc *api.Workspace) bool {
			return true
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	workspace := api.MinimumValidWorkspace()
	require.NoError(t, cache.CreateWorkspaceDoc(ctx, workspace))

	// Mutating the caller's doc after create must not reach the store.
	workspace.Name = "mutated after create"

	stored, err := cache.GetWorkspaceDoc(ctx, api.TestWorkspaceID)
	require.NoError(t, err)
	assert.Equal(t, api.TestWorkspaceName, stored.Name)

	// Mutating a read result must not reach the store either.
	stored.Name = "mutated after get"

	again, err := cache.GetWorkspaceDoc(ctx, api.TestWorkspaceID)
	require.NoError(t, err)
	assert.Equal(t, api.TestWorkspaceName, again.Name)
}

func TestCacheMemberUniqueness(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	member := &api.Member{
		ID:          api.NewMemberID(),
		WorkspaceID: api.TestWorkspaceID,
		Email:       api.TestInviteEmail,
		Role:        api.MemberRoleAdmin,
		Status:      api.MemberStatusPending,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, cache.CreateMemberDoc(ctx, member))

	t.Run("duplicate live email conflicts", func(t *testing.T) {
		dup := *member
		dup.ID = api.NewMemberID()
		assert.ErrorIs(t, cache.CreateMemberDoc(ctx, &dup), ErrMemberExists)
	})

	t.Run("email comparison is case-insensitive", func(t *testing.T) {
		dup := *member
		dup.ID = api.NewMemberID()
		dup.Email = "Invitee@Example.COM"
		assert.ErrorIs(t, cache.CreateMemberDoc(ctx, &dup), ErrMemberExists)
	})

	t.Run("other workspace is independent", func(t *testing.T) {
		other := *member
		other.ID = api.NewMemberID()
		other.WorkspaceID = api.TestOtherWorkspaceID
		assert.NoError(t, cache.CreateMemberDoc(ctx, &other))
	})

	t.Run("removed member frees the email", func(t *testing.T) {
		updated, err := cache.UpdateMemberDoc(ctx, member.WorkspaceID, member.ID, func(doc *api.Member) bool {
			doc.Status = api.MemberStatusRemoved
			return true
		})
		require.NoError(t, err)
		require.True(t, updated)

		again := *member
		again.ID = api.NewMemberID()
		assert.NoError(t, cache.CreateMemberDoc(ctx, &again))
	})
}

func TestCacheListMemberDocsByEmail(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	for i, workspaceID := range []string{api.TestWorkspaceID, api.TestOtherWorkspaceID} {
		require.NoError(t, cache.CreateMemberDoc(ctx, &api.Member{
			ID:          fmt.Sprintf("mem_%032d", i+1),
			WorkspaceID: workspaceID,
			Email:       api.TestInviteEmail,
			Status:      api.MemberStatusPending,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, cache.CreateMemberDoc(ctx, &api.Member{
		ID:          "mem_other",
		WorkspaceID: api.TestWorkspaceID,
		Email:       "someone-else@example.com",
		Status:      api.MemberStatusActive,
		CreatedAt:   base,
	}))

	iterator := cache.ListMemberDocsByEmail("INVITEE@example.com", -1, nil)

	var workspaceIDs []string
	for _, member := range iterator.Items(ctx) {
		workspaceIDs = append(workspaceIDs, member.WorkspaceID)
	}
	require.NoError(t, iterator.GetError())
	assert.Equal(t, []string{api.TestWorkspaceID, api.TestOtherWorkspaceID}, workspaceIDs)
}

func TestCacheListMemberDocsPagination(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, cache.CreateMemberDoc(ctx, &api.Member{
			ID:          fmt.Sprintf("mem_%032d", i+1),
			WorkspaceID: api.TestWorkspaceID,
			Email:       fmt.Sprintf("user%d@example.com", i+1),
			Status:      api.MemberStatusActive,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	var seen []string
	var continuationToken *string

	for page := 0; page < 3; page++ {
		iterator := cache.ListMemberDocs(api.TestWorkspaceID, 2, continuationToken)
		for id := range iterator.Items(ctx) {
			seen = append(seen, id)
		}
		require.NoError(t, iterator.GetError())

		token := iterator.GetContinuationToken()
		if token == "" {
			continuationToken = nil
			break
		}
		continuationToken = &token
	}

	assert.Nil(t, continuationToken)
	assert.Equal(t, []string{
		"mem_00000000000000000000000000000001",
		"mem_00000000000000000000000000000002",
		"mem_00000000000000000000000000000003",
		"mem_00000000000000000000000000000004",
		"mem_00000000000000000000000000000005",
	}, seen)
}

func TestCacheCreateJobDocSingleActive(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	job := api.MinimumValidJob()
	require.NoError(t, cache.CreateJobDoc(ctx, job))

	second := api.JobTestCase(t, &api.ProvisioningJob{ID: api.NewJobID(), Attempt: 2})
	assert.ErrorIs(t, cache.CreateJobDoc(ctx, second), ErrActiveJobExists)

	// Jobs in other workspaces are unaffected.
	other := api.JobTestCase(t, &api.ProvisioningJob{ID: api.NewJobID(), WorkspaceID: api.TestOtherWorkspaceID})
	assert.NoError(t, cache.CreateJobDoc(ctx, other))

	// A terminal transition releases the invariant.
	updated, err := cache.UpdateJobDoc(ctx, job.WorkspaceID, job.ID, func(doc *api.ProvisioningJob) bool {
		doc.State = api.JobStateError
		doc.LastErrorCode = "STEP_TIMEOUT"
		return true
	})
	require.NoError(t, err)
	require.True(t, updated)

	assert.NoError(t, cache.CreateJobDoc(ctx, second))
}

func TestCacheCreateJobDocConcurrent(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	const attempts = 32

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			job := api.MinimumValidJob()
			job.ID = fmt.Sprintf("job_%032d", slot+1)
			errs[slot] = cache.CreateJobDoc(ctx, job)
		}(i)
	}
	wg.Wait()

	var created, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case assert.ErrorIs(t, err, ErrActiveJobExists):
			conflicted++
		}
	}

	assert.Equal(t, 1, created, "exactly one concurrent create may win")
	assert.Equal(t, attempts-1, conflicted)
}

func TestCacheGetActiveAndLatestJobDoc(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	_, err := cache.GetActiveJobDoc(ctx, api.TestWorkspaceID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = cache.GetLatestJobDoc(ctx, api.TestWorkspaceID)
	assert.ErrorIs(t, err, ErrNotFound)

	first := api.MinimumValidJob()
	require.NoError(t, cache.CreateJobDoc(ctx, first))

	active, err := cache.GetActiveJobDoc(ctx, api.TestWorkspaceID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	updated, err := cache.UpdateJobDoc(ctx, first.WorkspaceID, first.ID, func(doc *api.ProvisioningJob) bool {
		doc.State = api.JobStateError
		return true
	})
	require.NoError(t, err)
	require.True(t, updated)

	second := api.JobTestCase(t, &api.ProvisioningJob{
		ID:        api.NewJobID(),
		Attempt:   2,
		StartedAt: first.StartedAt.Add(time.Minute),
	})
	require.NoError(t, cache.CreateJobDoc(ctx, second))

	latest, err := cache.GetLatestJobDoc(ctx, api.TestWorkspaceID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestCacheListActiveJobDocs(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	first := api.MinimumValidJob()
	require.NoError(t, cache.CreateJobDoc(ctx, first))

	second := api.JobTestCase(t, &api.ProvisioningJob{
		ID:          api.NewJobID(),
		WorkspaceID: api.TestOtherWorkspaceID,
		State:       api.JobStateStartingRuntime,
		StartedAt:   first.StartedAt.Add(time.Second),
	})
	require.NoError(t, cache.CreateJobDoc(ctx, second))

	updated, err := cache.UpdateJobDoc(ctx, first.WorkspaceID, first.ID, func(doc *api.ProvisioningJob) bool {
		doc.State = api.JobStateReady
		return true
	})
	require.NoError(t, err)
	require.True(t, updated)

	iterator := cache.ListActiveJobDocs(-1, nil)

	var ids []string
	for id := range iterator.Items(ctx) {
		ids = append(ids, id)
	}
	require.NoError(t, iterator.GetError())
	assert.Equal(t, []string{second.ID}, ids)
}

func TestCacheShareDocsByTokenHash(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	share := &api.ShareLink{
		ID:          api.NewShareID(),
		WorkspaceID: api.TestWorkspaceID,
		Path:        "/docs/README.md",
		TokenHash:   "244f21d44cf50bad4b2a92e3f5e46bbebd393548e216e8e2dfc0b4e5cab32d92",
		Access:      api.ShareAccessRead,
		CreatedBy:   api.TestUserID,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(72 * time.Hour),
	}
	require.NoError(t, cache.CreateShareDoc(ctx, share))

	found, err := cache.GetShareDocByTokenHash(ctx, share.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, share.ID, found.ID)

	_, err = cache.GetShareDocByTokenHash(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	now := time.Now()
	updated, err := cache.UpdateShareDoc(ctx, share.WorkspaceID, share.ID, func(doc *api.ShareLink) bool {
		doc.RevokedAt = &now
		return true
	})
	require.NoError(t, err)
	require.True(t, updated)

	found, err = cache.GetShareDocByTokenHash(ctx, share.TokenHash)
	require.NoError(t, err)
	assert.NotNil(t, found.RevokedAt)
}

func TestCacheAuditOrdering(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	actions := []string{api.AuditWorkspaceCreated, api.AuditMemberInvited, api.AuditShareCreated}
	for _, action := range actions {
		require.NoError(t, cache.CreateAuditDoc(ctx, &api.AuditEvent{
			ID:          api.NewAuditEventID(),
			WorkspaceID: api.TestWorkspaceID,
			Action:      action,
			CreatedAt:   time.Now(),
		}))
	}
	require.NoError(t, cache.CreateAuditDoc(ctx, &api.AuditEvent{
		ID:          api.NewAuditEventID(),
		WorkspaceID: api.TestOtherWorkspaceID,
		Action:      api.AuditWorkspaceCreated,
		CreatedAt:   time.Now(),
	}))

	iterator := cache.ListAuditDocs(api.TestWorkspaceID, -1, nil)

	var seen []string
	for _, event := range iterator.Items(ctx) {
		seen = append(seen, event.Action)
	}
	require.NoError(t, iterator.GetError())

	assert.Equal(t, []string{api.AuditShareCreated, api.AuditMemberInvited, api.AuditWorkspaceCreated}, seen,
		"audit reads are most recent first")
}

func TestCacheAuditPayloadIsolated(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	payload := map[string]any{"name": api.TestWorkspaceName}
	require.NoError(t, cache.CreateAuditDoc(ctx, &api.AuditEvent{
		ID:          api.NewAuditEventID(),
		WorkspaceID: api.TestWorkspaceID,
		Action:      api.AuditWorkspaceCreated,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}))

	payload["name"] = "mutated"

	iterator := cache.ListAuditDocs(api.TestWorkspaceID, -1, nil)
	for _, event := range iterator.Items(ctx) {
		assert.Equal(t, api.TestWorkspaceName, event.Payload["name"])
	}
	require.NoError(t, iterator.GetError())
}

func TestCacheAgentSessions(t *testing.T) {
	ctx := context.Background()
	cache := NewCache()

	session := &api.AgentSession{
		ID:          api.NewAgentSessionID(),
		WorkspaceID: api.TestWorkspaceID,
		CreatedBy:   api.TestUserID,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, cache.CreateAgentSessionDoc(ctx, session))

	stored, err := cache.GetAgentSessionDoc(ctx, session.WorkspaceID, session.ID)
	require.NoError(t, err)
	assert.False(t, stored.Stopped())

	now := time.Now()
	updated, err := cache.UpdateAgentSessionDoc(ctx, session.WorkspaceID, session.ID, func(doc *api.AgentSession) bool {
		if doc.Stopped() {
			return false
		}
		doc.StoppedAt = &now
		return true
	})
	require.NoError(t, err)
	assert.True(t, updated)

	// Stopping twice is a no-op.
	updated, err = cache.UpdateAgentSessionDoc(ctx, session.WorkspaceID, session.ID, func(doc *api.AgentSession) bool {
		if doc.Stopped() {
			return false
		}
		doc.StoppedAt = &now
		return true
	})
	require.NoError(t, err)
	assert.False(t, updated)

	// Reads are workspace-scoped so cross-tenant probes see nothing.
	_, err = cache.GetAgentSessionDoc(ctx, api.TestOtherWorkspaceID, session.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
