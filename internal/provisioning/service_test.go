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
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/database"
)

func newTestService(t *testing.T) (*Service, *database.Cache, *clockwork.FakeClock) {
	t.Helper()
	cache := database.NewCache()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC))
	machine := NewMachine(nil, clock)
	return NewService(cache, machine, clock), cache, clock
}

func TestCreateJobStartsQueued(t *testing.T) {
	ctx := context.Background()
	service, cache, clock := newTestService(t)

	job, created, err := service.CreateJob(ctx, api.TestWorkspaceID, &api.RuntimeCreateRequest{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, api.JobStateQueued, job.State)
	assert.Equal(t, 1, job.Attempt)
	assert.Equal(t, clock.Now().UTC(), job.StartedAt)

	stored, err := cache.GetActiveJobDoc(ctx, api.TestWorkspaceID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, stored.ID)
}

func TestCreateJobActiveConflict(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	_, _, err := service.CreateJob(ctx, api.TestWorkspaceID, &api.RuntimeCreateRequest{})
	require.NoError(t, err)

	_, _, err = service.CreateJob(ctx, api.TestWorkspaceID, &api.RuntimeCreateRequest{})
	require.ErrorIs(t, err, ErrActiveJobConflict)
}

func TestCreateJobIdempotencyKeyReplays(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	request := &api.RuntimeCreateRequest{IdempotencyKey: "deploy-1"}
	first, created, err := service.CreateJob(ctx, api.TestWorkspaceID, request)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := service.CreateJob(ctx, api.TestWorkspaceID, request)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateJobIdempotencyKeySurvivesTerminalJob(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	request := &api.RuntimeCreateRequest{IdempotencyKey: "deploy-1"}
	job, _, err := service.CreateJob(ctx, api.TestWorkspaceID, request)
	require.NoError(t, err)

	_, err = service.CancelJob(ctx, api.TestWorkspaceID, job.ID)
	require.NoError(t, err)

	replayed, created, err := service.CreateJob(ctx, api.TestWorkspaceID, request)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, job.ID, replayed.ID)
	assert.Equal(t, api.JobStateCancelled, replayed.State)
}

func TestConcurrentCreatesWithSameKeyPersistOneJob(t *testing.T) {
	ctx := context.Background()
	service, cache, _ := newTestService(t)

	const callers = 16
	request := &api.RuntimeCreateRequest{IdempotencyKey: "deploy-1"}

	jobIDs := make([]string, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, _, err := service.CreateJob(ctx, api.TestWorkspaceID, request)
			if assert.NoError(t, err) {
				jobIDs[i] = job.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range jobIDs[1:] {
		assert.Equal(t, jobIDs[0], id)
	}

	active, err := cache.GetActiveJobDoc(ctx, api.TestWorkspaceID)
	require.NoError(t, err)
	assert.Equal(t, jobIDs[0], active.ID)
}

func TestConcurrentCreatesWithoutKeyYieldOneWinner(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	const callers = 16
	var wg sync.WaitGroup
	var winners, conflicts int
	var mu sync.Mutex
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := service.CreateJob(ctx, api.TestWorkspaceID, &api.RuntimeCreateRequest{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && created:
				winners++
			case err == ErrActiveJobConflict:
				conflicts++
			default:
				t.Errorf("unexpected result: created=%v err=%v", created, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, callers-1, conflicts)
}

func TestCrossWorkspaceIsolation(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	_, _, err := service.CreateJob(ctx, api.TestWorkspaceID, &api.RuntimeCreateRequest{})
	require.NoError(t, err)

	_, created, err := service.CreateJob(ctx, api.TestOtherWorkspaceID, &api.RuntimeCreateRequest{})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRetryFromError(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	job, _, err := service.CreateJob(ctx, api.TestWorkspaceID, &api.RuntimeCreateRequest{ReleaseID: "r1"})
	require.NoError(t, err)
	_, err = service.FailJob(ctx, api.TestWorkspaceID, job.ID, ErrorCodeStepTimeout, "stuck")
	require.NoError(t, err)

	retried, err := service.RetryFromError(ctx, api.TestWorkspaceID)
	require.NoError(t, err)
	assert.NotEqual(t, job.ID, retried.ID)
	assert.Equal(t, api.JobStateQueued, retried.State)
	assert.Equal(t, 2, retried.Attempt)
	assert.Equal(t, "r1", retried.ReleaseID)
	assert.Empty(t, retried.LastErrorCode)
	assert.Empty(t, retried.LastErrorDetail)

	// Once the successor exists, it is the latest job and retry is no
	// longer legal.
	again, err := service.RetryFromError(ctx, api.TestWorkspaceID)
	require.ErrorIs(t, err, ErrJobNotRetryable)
	assert.Nil(t, again)
}

func TestRetryRequiresTerminalError(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	_, err := service.RetryFromError(ctx, api.TestWorkspaceID)
	require.ErrorIs(t, err, ErrJobNotFound)

	_, _, err = service.CreateJob(ctx, api.TestWorkspaceID, &api.RuntimeCreateRequest{})
	require.NoError(t, err)

	_, err = service.RetryFromError(ctx, api.TestWorkspaceID)
	require.ErrorIs(t, err, ErrJobNotRetryable)
}

func TestStatusReturnsLatestJob(t *testing.T) {
	ctx := context.Background()
	service, _, clock := newTestService(t)

	_, err := service.Status(ctx, api.TestWorkspaceID)
	require.ErrorIs(t, err, ErrJobNotFound)

	job, _, err := service.CreateJob(ctx, api.TestWorkspaceID, &api.RuntimeCreateRequest{})
	require.NoError(t, err)
	_, err = service.FailJob(ctx, api.TestWorkspaceID, job.ID, ErrorCodeReleaseUnavailable, "no release")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	retried, err := service.RetryFromError(ctx, api.TestWorkspaceID)
	require.NoError(t, err)

	status, err := service.Status(ctx, api.TestWorkspaceID)
	require.NoError(t, err)
	assert.Equal(t, retried.ID, status.ID)
}
