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
	"github.com/boringdata/boring-ui/internal/provisioning"
	"github.com/boringdata/boring-ui/pkg/metrics"
)

// RuntimeGet answers the workspace's most recent provisioning job.
func (f *Frontend) RuntimeGet(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)

	job, err := f.provisioning.Status(ctx, workspace.ID)
	if err != nil {
		if errors.Is(err, provisioning.ErrJobNotFound) {
			rest.WriteError(writer, http.StatusNotFound, rest.CodeNotFound,
				"the workspace has no provisioning job")
			return
		}
		logInternalError(writer, request, "failed to read provisioning status", err)
		return
	}

	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, job)
}

// RuntimeCreate queues a provisioning job for the workspace. A request
// replaying a known idempotency key gets the existing job back; a
// conflicting create without one gets 409.
func (f *Frontend) RuntimeCreate(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)

	var body api.RuntimeCreateRequest
	if err := f.unmarshalRequest(request, &body); err != nil {
		rest.WriteUnmarshalError(err, writer)
		return
	}

	job, created, err := f.provisioning.CreateJob(ctx, workspace.ID, &body)
	if err != nil {
		if errors.Is(err, provisioning.ErrActiveJobConflict) {
			rest.WriteError(writer, http.StatusConflict, rest.CodeActiveJobConflict,
				"the workspace already has an active provisioning job")
			return
		}
		logInternalError(writer, request, "failed to create provisioning job", err)
		return
	}

	if !created {
		// Idempotent replay of an earlier create.
		_, _ = rest.WriteJSONResponse(writer, http.StatusOK, job)
		return
	}

	f.metrics.AddCounter(metrics.ProvisionJobsTotalName, 1, map[string]string{
		"outcome": "created",
	})
	f.emitAudit(ctx, &api.AuditEvent{
		WorkspaceID: workspace.ID,
		Action:      api.AuditJobCreated,
		Payload:     map[string]any{"job_id": job.ID, "attempt": job.Attempt},
	})

	_, _ = rest.WriteJSONResponse(writer, http.StatusAccepted, job)
}

// RuntimeRetry creates the successor of a failed job. Only a job in the
// terminal error state is retryable.
func (f *Frontend) RuntimeRetry(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)

	job, err := f.provisioning.RetryFromError(ctx, workspace.ID)
	if err != nil {
		switch {
		case errors.Is(err, provisioning.ErrJobNotFound):
			rest.WriteError(writer, http.StatusNotFound, rest.CodeNotFound,
				"the workspace has no provisioning job")
		case errors.Is(err, provisioning.ErrJobNotRetryable):
			rest.WriteError(writer, http.StatusConflict, rest.CodeConflictInFlight,
				"the latest provisioning job is not in the error state")
		case errors.Is(err, provisioning.ErrActiveJobConflict):
			rest.WriteError(writer, http.StatusConflict, rest.CodeActiveJobConflict,
				"the workspace already has an active provisioning job")
		default:
			logInternalError(writer, request, "failed to retry provisioning job", err)
		}
		return
	}

	f.metrics.AddCounter(metrics.ProvisionJobsTotalName, 1, map[string]string{
		"outcome": "retried",
	})
	f.emitAudit(ctx, &api.AuditEvent{
		WorkspaceID: workspace.ID,
		Action:      api.AuditJobRetried,
		Payload:     map[string]any{"job_id": job.ID, "attempt": job.Attempt},
	})

	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, job)
}
