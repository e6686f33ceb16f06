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
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobState is the provisioning state of a workspace runtime job.
type JobState string

const (
	// Active states, in canonical forward order
	JobStateQueued            JobState = "queued"
	JobStateResolvingRelease  JobState = "resolving_release"
	JobStateCreatingSandbox   JobState = "creating_sandbox"
	JobStateUploadingArtifact JobState = "uploading_artifact"
	JobStateVerifyingChecksum JobState = "verifying_checksum"
	JobStateStartingRuntime   JobState = "starting_runtime"

	// Terminal states
	JobStateReady     JobState = "ready"
	JobStateError     JobState = "error"
	JobStateCancelled JobState = "cancelled"
)

// IsTerminal returns true for states with no outgoing transition other than
// retry, which creates a new job.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateReady, JobStateError, JobStateCancelled:
		return true
	}
	return false
}

// IsActive returns true for the non-terminal states a job works through.
func (s JobState) IsActive() bool {
	return s != "" && !s.IsTerminal()
}

// ActiveJobStates lists the non-terminal states in canonical forward order.
func ActiveJobStates() []JobState {
	return []JobState{
		JobStateQueued,
		JobStateResolvingRelease,
		JobStateCreatingSandbox,
		JobStateUploadingArtifact,
		JobStateVerifyingChecksum,
		JobStateStartingRuntime,
	}
}

// ProvisioningJob is the record driving one workspace runtime from queued to
// ready. At most one job per workspace is in a non-terminal state.
type ProvisioningJob struct {
	ID              string    `json:"id"`
	WorkspaceID     string    `json:"workspace_id"`
	State           JobState  `json:"state" validate:"omitempty,enum_jobstate"`
	Attempt         int       `json:"attempt"`
	Step            string    `json:"step,omitempty"`
	IdempotencyKey  string    `json:"idempotency_key,omitempty"`
	ReleaseID       string    `json:"release_id,omitempty"`
	StateEnteredAt  time.Time `json:"state_entered_at"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	LastErrorCode   string    `json:"last_error_code,omitempty"`
	LastErrorDetail string    `json:"last_error_detail,omitempty"`
}

// RuntimeCreateRequest is the body of POST /w/{id}/api/v1/runtime.
type RuntimeCreateRequest struct {
	ReleaseID      string `json:"release_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=200"`
}

// NewJobID returns a fresh opaque provisioning job identifier.
func NewJobID() string {
	return "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
