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

package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/database"
)

var (
	// ErrActiveJobConflict indicates the workspace already has a job in
	// flight and the request carried no matching idempotency key.
	ErrActiveJobConflict = errors.New("workspace already has an active provisioning job")

	// ErrJobNotFound indicates the workspace has no provisioning job.
	ErrJobNotFound = errors.New("workspace has no provisioning job")

	// ErrJobNotRetryable indicates retry was requested while the latest
	// job is not in the terminal error state.
	ErrJobNotRetryable = errors.New("latest provisioning job is not in the error state")
)

// Service wraps the state machine with the durability and concurrency
// guarantees the HTTP surface relies on: idempotent create, at most one
// active job per workspace, and retry only from terminal error. All of it
// reduces to the job store's atomic check-then-insert, so independent
// workspaces never contend.
type Service struct {
	dbClient database.DBClient
	machine  *Machine
	clock    clockwork.Clock
}

func NewService(dbClient database.DBClient, machine *Machine, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		dbClient: dbClient,
		machine:  machine,
		clock:    clock,
	}
}

// Machine exposes the service's state machine for the sweeper and tests.
func (s *Service) Machine() *Machine {
	return s.machine
}

// CreateJob creates a queued provisioning job for the workspace. A request
// whose idempotency key matches an existing job returns that job (terminal
// or not) with created=false. Concurrent calls with the same key persist
// exactly one job; concurrent calls without a key collapse to one winner
// and ErrActiveJobConflict for everyone else.
func (s *Service) CreateJob(ctx context.Context, workspaceID string, request *api.RuntimeCreateRequest) (*api.ProvisioningJob, bool, error) {
	return s.createJob(ctx, workspaceID, request.ReleaseID, request.IdempotencyKey, 1)
}

func (s *Service) createJob(ctx context.Context, workspaceID, releaseID, idempotencyKey string, attempt int) (*api.ProvisioningJob, bool, error) {
	if idempotencyKey != "" {
		existing, err := s.dbClient.GetJobDocByIdempotencyKey(ctx, workspaceID, idempotencyKey)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, false, err
		}
	}

	now := s.clock.Now().UTC()
	job := &api.ProvisioningJob{
		ID:             api.NewJobID(),
		WorkspaceID:    workspaceID,
		State:          api.JobStateQueued,
		Attempt:        attempt,
		Step:           string(api.JobStateQueued),
		IdempotencyKey: idempotencyKey,
		ReleaseID:      releaseID,
		StateEnteredAt: now,
		StartedAt:      now,
	}

	err := s.dbClient.CreateJobDoc(ctx, job)
	if err == nil {
		return job, true, nil
	}
	if !errors.Is(err, database.ErrActiveJobExists) {
		return nil, false, fmt.Errorf("failed to persist provisioning job: %w", err)
	}

	// Lost the insert race. If a concurrent call carried the same key its
	// job satisfies this request too; anything else is a real conflict.
	if idempotencyKey != "" {
		existing, lookupErr := s.dbClient.GetJobDocByIdempotencyKey(ctx, workspaceID, idempotencyKey)
		if lookupErr == nil {
			return existing, false, nil
		}
		if !errors.Is(lookupErr, database.ErrNotFound) {
			return nil, false, lookupErr
		}
	}
	return nil, false, ErrActiveJobConflict
}

// RetryFromError creates the successor of a terminal-error job with the
// attempt counter incremented and the error fields cleared. The successor
// carries a retry-scoped idempotency key, so concurrent retries of the
// same failed job collapse to one new job.
func (s *Service) RetryFromError(ctx context.Context, workspaceID string) (*api.ProvisioningJob, error) {
	latest, err := s.dbClient.GetLatestJobDoc(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if latest.State != api.JobStateError {
		return nil, ErrJobNotRetryable
	}

	retryKey := "retry:" + latest.ID
	job, _, err := s.createJob(ctx, workspaceID, latest.ReleaseID, retryKey, latest.Attempt+1)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Status returns the workspace's most recent job, active or terminal.
func (s *Service) Status(ctx context.Context, workspaceID string) (*api.ProvisioningJob, error) {
	job, err := s.dbClient.GetLatestJobDoc(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// AdvanceJob applies the canonical forward transition to the job. The
// update goes through the store's etag-checked callback, so a concurrent
// transition loses cleanly instead of double-applying.
func (s *Service) AdvanceJob(ctx context.Context, workspaceID, jobID string) (*api.ProvisioningJob, error) {
	return s.transitionJob(ctx, workspaceID, jobID, func(job api.ProvisioningJob) (api.ProvisioningJob, error) {
		return s.machine.Advance(job)
	})
}

// FailJob moves the job to terminal error with the given code and detail.
func (s *Service) FailJob(ctx context.Context, workspaceID, jobID, code, detail string) (*api.ProvisioningJob, error) {
	return s.transitionJob(ctx, workspaceID, jobID, func(job api.ProvisioningJob) (api.ProvisioningJob, error) {
		return s.machine.Fail(job, code, detail)
	})
}

// CancelJob moves the job to terminal cancelled.
func (s *Service) CancelJob(ctx context.Context, workspaceID, jobID string) (*api.ProvisioningJob, error) {
	return s.transitionJob(ctx, workspaceID, jobID, func(job api.ProvisioningJob) (api.ProvisioningJob, error) {
		return s.machine.Cancel(job)
	})
}

func (s *Service) transitionJob(ctx context.Context, workspaceID, jobID string, apply func(api.ProvisioningJob) (api.ProvisioningJob, error)) (*api.ProvisioningJob, error) {
	var transitionErr error
	var result *api.ProvisioningJob

	updated, err := s.dbClient.UpdateJobDoc(ctx, workspaceID, jobID, func(job *api.ProvisioningJob) bool {
		next, err := apply(*job)
		if err != nil {
			transitionErr = err
			return false
		}
		*job = next
		result = &next
		return true
	})
	if transitionErr != nil {
		return nil, transitionErr
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if !updated {
		return nil, fmt.Errorf("provisioning job '%s' was not updated", jobID)
	}
	return result, nil
}
