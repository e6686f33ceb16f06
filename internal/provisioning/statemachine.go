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

// Package provisioning drives a workspace runtime from queued to ready
// through a deterministic state machine, with durable single-active-job
// semantics at the job store and a sweeper for jobs stuck past their step
// timeout.
package provisioning

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"k8s.io/utils/ptr"

	"github.com/boringdata/boring-ui/internal/api"
)

// allowedTransitions is the canonical forward sequence plus the failure
// edges. Terminal states have no outgoing edges; recovery from error goes
// through a new job, never through the old record.
var allowedTransitions = map[api.JobState][]api.JobState{
	api.JobStateQueued:            {api.JobStateResolvingRelease, api.JobStateError, api.JobStateCancelled},
	api.JobStateResolvingRelease:  {api.JobStateCreatingSandbox, api.JobStateError, api.JobStateCancelled},
	api.JobStateCreatingSandbox:   {api.JobStateUploadingArtifact, api.JobStateError, api.JobStateCancelled},
	api.JobStateUploadingArtifact: {api.JobStateVerifyingChecksum, api.JobStateError, api.JobStateCancelled},
	api.JobStateVerifyingChecksum: {api.JobStateStartingRuntime, api.JobStateError, api.JobStateCancelled},
	api.JobStateStartingRuntime:   {api.JobStateReady, api.JobStateError, api.JobStateCancelled},
	api.JobStateReady:             {},
	api.JobStateError:             {},
	api.JobStateCancelled:         {},
}

// InvalidStateTransitionError reports an attempt to move a job along an
// edge the machine does not have.
type InvalidStateTransitionError struct {
	JobID string
	From  api.JobState
	To    api.JobState
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition for job '%s': %s -> %s", e.JobID, e.From, e.To)
}

// TransitionAllowed reports whether the machine has an edge from -> to.
func TransitionAllowed(from, to api.JobState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextState returns the canonical forward successor of an active state.
// The second return is false for terminal states.
func NextState(state api.JobState) (api.JobState, bool) {
	switch state {
	case api.JobStateQueued:
		return api.JobStateResolvingRelease, true
	case api.JobStateResolvingRelease:
		return api.JobStateCreatingSandbox, true
	case api.JobStateCreatingSandbox:
		return api.JobStateUploadingArtifact, true
	case api.JobStateUploadingArtifact:
		return api.JobStateVerifyingChecksum, true
	case api.JobStateVerifyingChecksum:
		return api.JobStateStartingRuntime, true
	case api.JobStateStartingRuntime:
		return api.JobStateReady, true
	}
	return "", false
}

// StepTimeouts bounds how long a job may sit in each active state before
// the sweeper fails it with STEP_TIMEOUT.
type StepTimeouts map[api.JobState]time.Duration

// DefaultStepTimeouts covers every active state. Upload gets the longest
// budget because bundle size varies by release.
func DefaultStepTimeouts() StepTimeouts {
	return StepTimeouts{
		api.JobStateQueued:            2 * time.Minute,
		api.JobStateResolvingRelease:  30 * time.Second,
		api.JobStateCreatingSandbox:   2 * time.Minute,
		api.JobStateUploadingArtifact: 5 * time.Minute,
		api.JobStateVerifyingChecksum: 1 * time.Minute,
		api.JobStateStartingRuntime:   2 * time.Minute,
	}
}

// Machine applies legal transitions to provisioning job values. Jobs are
// value objects: every method returns a new value and leaves its input
// untouched; persistence is the caller's concern.
type Machine struct {
	timeouts StepTimeouts
	clock    clockwork.Clock
}

func NewMachine(timeouts StepTimeouts, clock clockwork.Clock) *Machine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	defaults := DefaultStepTimeouts()
	merged := make(StepTimeouts, len(defaults))
	for state, timeout := range defaults {
		merged[state] = timeout
	}
	for state, timeout := range timeouts {
		if timeout > 0 {
			merged[state] = timeout
		}
	}
	return &Machine{
		timeouts: merged,
		clock:    clock,
	}
}

// StepTimeout returns the bound for an active state.
func (m *Machine) StepTimeout(state api.JobState) time.Duration {
	return m.timeouts[state]
}

// Transition moves job to the given state, stamping state_entered_at and,
// for terminal states, finished_at.
func (m *Machine) Transition(job api.ProvisioningJob, to api.JobState) (api.ProvisioningJob, error) {
	if !TransitionAllowed(job.State, to) {
		return job, &InvalidStateTransitionError{JobID: job.ID, From: job.State, To: to}
	}

	now := m.clock.Now().UTC()
	job.State = to
	job.Step = string(to)
	job.StateEnteredAt = now
	if to.IsTerminal() {
		job.FinishedAt = ptr.To(now)
	}
	return job, nil
}

// Advance moves job one step along the canonical forward sequence.
func (m *Machine) Advance(job api.ProvisioningJob) (api.ProvisioningJob, error) {
	next, ok := NextState(job.State)
	if !ok {
		return job, &InvalidStateTransitionError{JobID: job.ID, From: job.State, To: job.State}
	}
	return m.Transition(job, next)
}

// Fail moves job to the terminal error state with a machine-stable error
// code and a detail string safe to surface to clients.
func (m *Machine) Fail(job api.ProvisioningJob, code, detail string) (api.ProvisioningJob, error) {
	failed, err := m.Transition(job, api.JobStateError)
	if err != nil {
		return job, err
	}
	failed.LastErrorCode = code
	failed.LastErrorDetail = detail
	return failed, nil
}

// Cancel moves job to the terminal cancelled state.
func (m *Machine) Cancel(job api.ProvisioningJob) (api.ProvisioningJob, error) {
	return m.Transition(job, api.JobStateCancelled)
}

// TimedOut reports whether job has sat in its current active state longer
// than the state's step timeout.
func (m *Machine) TimedOut(job *api.ProvisioningJob) bool {
	if !job.State.IsActive() {
		return false
	}
	timeout, ok := m.timeouts[job.State]
	if !ok {
		return false
	}
	return m.clock.Now().Sub(job.StateEnteredAt) > timeout
}

// ApplyStepTimeout fails a timed-out job with STEP_TIMEOUT and a detail
// naming the state and the elapsed time.
func (m *Machine) ApplyStepTimeout(job api.ProvisioningJob) (api.ProvisioningJob, error) {
	elapsed := m.clock.Now().Sub(job.StateEnteredAt).Round(time.Second)
	detail := fmt.Sprintf("step '%s' exceeded its %s timeout after %s",
		job.State, m.timeouts[job.State], elapsed)
	return m.Fail(job, ErrorCodeStepTimeout, detail)
}
