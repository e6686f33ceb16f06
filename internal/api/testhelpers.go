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
	"io"
	"log/slog"
	"testing"
	"time"

	"dario.cat/mergo"
	"github.com/stretchr/testify/require"
)

// The definitions in this file are meant for unit tests.

const (
	TestAppID            = "boring-ui"
	TestAppName          = "Boring UI"
	TestAppLogo          = "/assets/boring-ui-logo.svg"
	TestDefaultReleaseID = "2026-02-13.1"
	TestHost             = "boring-ui.example.com"

	TestUserID      = "usr_1111111111111111"
	TestOtherUserID = "usr_2222222222222222"
	TestUserEmail   = "owner@example.com"
	TestInviteEmail = "invitee@example.com"

	TestWorkspaceID      = "ws_00000000000000000000000000000001"
	TestOtherWorkspaceID = "ws_00000000000000000000000000000002"
	TestWorkspaceName    = "Alpha"
)

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestAppConfig returns the registration the end-to-end fixtures resolve.
func TestAppConfig() *AppConfig {
	return &AppConfig{
		AppID:            TestAppID,
		Name:             TestAppName,
		Logo:             TestAppLogo,
		DefaultReleaseID: TestDefaultReleaseID,
	}
}

// MinimumValidWorkspace returns a workspace that passes validation and store
// invariants as-is.
func MinimumValidWorkspace() *Workspace {
	now := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	return &Workspace{
		ID:        TestWorkspaceID,
		Name:      TestWorkspaceName,
		AppID:     TestAppID,
		OwnerID:   TestUserID,
		Status:    WorkspaceStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WorkspaceTestCase overlays tweaks onto a minimum valid workspace.
func WorkspaceTestCase(t *testing.T, tweaks *Workspace) *Workspace {
	workspace := MinimumValidWorkspace()
	require.NoError(t, mergo.Merge(workspace, tweaks, mergo.WithOverride))
	return workspace
}

// MinimumValidJob returns a freshly queued provisioning job.
func MinimumValidJob() *ProvisioningJob {
	now := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	return &ProvisioningJob{
		ID:             "job_00000000000000000000000000000001",
		WorkspaceID:    TestWorkspaceID,
		State:          JobStateQueued,
		Attempt:        1,
		ReleaseID:      TestDefaultReleaseID,
		StateEnteredAt: now,
		StartedAt:      now,
	}
}

// JobTestCase overlays tweaks onto a minimum valid job.
func JobTestCase(t *testing.T, tweaks *ProvisioningJob) *ProvisioningJob {
	job := MinimumValidJob()
	require.NoError(t, mergo.Merge(job, tweaks, mergo.WithOverride))
	return job
}

// Must panics on err; for use in test fixtures only.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
