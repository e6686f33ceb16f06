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

package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateShareCreateRequest(t *testing.T) {
	validate := NewValidator()

	tests := []struct {
		name    string
		request ShareCreateRequest
		wantErr bool
	}{
		{
			name: "valid read share",
			request: ShareCreateRequest{
				Path:           "/docs/README.md",
				Access:         ShareAccessRead,
				ExpiresInHours: 72,
			},
		},
		{
			name: "unknown access level",
			request: ShareCreateRequest{
				Path:           "/docs/README.md",
				Access:         ShareAccess("owner"),
				ExpiresInHours: 72,
			},
			wantErr: true,
		},
		{
			name: "missing path",
			request: ShareCreateRequest{
				Access:         ShareAccessRead,
				ExpiresInHours: 72,
			},
			wantErr: true,
		},
		{
			name: "expiry beyond a year",
			request: ShareCreateRequest{
				Path:           "/docs/README.md",
				Access:         ShareAccessRead,
				ExpiresInHours: 9000,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.request)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMemberInviteRequest(t *testing.T) {
	validate := NewValidator()

	assert.NoError(t, validate.Struct(MemberInviteRequest{Email: "a@b.co", Role: MemberRoleAdmin}))
	assert.Error(t, validate.Struct(MemberInviteRequest{Email: "not-an-email"}))
	assert.Error(t, validate.Struct(MemberInviteRequest{Email: "a@b.co", Role: MemberRole("viewer")}))
}

func TestShareAccessAllows(t *testing.T) {
	assert.True(t, ShareAccessRead.Allows(ShareAccessRead))
	assert.False(t, ShareAccessRead.Allows(ShareAccessWrite))
	assert.True(t, ShareAccessWrite.Allows(ShareAccessRead))
	assert.True(t, ShareAccessWrite.Allows(ShareAccessWrite))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "e@x.io", NormalizeEmail("  E@X.IO "))
}

func TestJobStateTerminality(t *testing.T) {
	for _, state := range ActiveJobStates() {
		assert.False(t, state.IsTerminal(), "state %s", state)
		assert.True(t, state.IsActive(), "state %s", state)
	}
	for _, state := range []JobState{JobStateReady, JobStateError, JobStateCancelled} {
		assert.True(t, state.IsTerminal(), "state %s", state)
		assert.False(t, state.IsActive(), "state %s", state)
	}
}

func TestIDPrefixes(t *testing.T) {
	assert.True(t, IsWorkspaceID(NewWorkspaceID()))
	assert.Contains(t, NewJobID(), "job_")
	assert.Contains(t, NewShareID(), "shr_")
	assert.Contains(t, NewMemberID(), "mem_")
}
