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
	"io"
	"net/http"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/utils"
	"github.com/boringdata/boring-ui/pkg/metrics"
)

// requestBody returns the raw request body, from context when MiddlewareBody
// captured it, otherwise straight from the stream (workspace-plane control
// routes skip the body middleware so proxied bodies can stream).
func requestBody(r *http.Request) ([]byte, error) {
	if body := BodyFromContext(r.Context()); body != nil {
		return body, nil
	}
	return io.ReadAll(http.MaxBytesReader(nil, r.Body, 4*megabyte))
}

// unmarshalRequest decodes and validates a JSON request body into v.
// The returned error is shaped for rest.WriteUnmarshalError.
func (f *Frontend) unmarshalRequest(r *http.Request, v any) error {
	body, err := requestBody(r)
	if err != nil {
		return err
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return err
		}
	}
	return f.validate.Struct(v)
}

// emitAudit appends an audit event stamped with the request's correlation
// id and identity, and counts the emission. Audit failures are logged, not
// surfaced; the domain action already happened.
func (f *Frontend) emitAudit(ctx context.Context, event *api.AuditEvent) {
	event.RequestID = RequestIDFromContext(ctx)
	if event.UserID == "" {
		if identity, ok := IdentityFromContext(ctx); ok {
			event.UserID = identity.UserID
		}
	}

	if err := f.auditor.Emit(ctx, event); err != nil {
		utils.LoggerFromContext(ctx).Error("failed to append audit event",
			"action", event.Action, "error", err.Error())
		return
	}
	f.metrics.AddCounter(metrics.AuditEventsEmittedName, 1, map[string]string{
		"action": event.Action,
	})
}

// logInternalError logs err against the request id and answers a generic
// 500. The cause never reaches the client.
func logInternalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	utils.LoggerFromContext(r.Context()).Error(message, "error", err.Error())
	rest.WriteInternalServerError(w)
}
