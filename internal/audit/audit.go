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

// Package audit appends immutable audit events to the document store.
// String payload values pass through token redaction before persistence,
// so a share token can never land in the trail even if a caller forwards
// raw request input.
package audit

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/database"
	"github.com/boringdata/boring-ui/internal/sharing"
)

// Recorder appends audit events. Events are append-only; there is no
// update or delete surface anywhere in the repo.
type Recorder struct {
	dbClient database.DBClient
	clock    clockwork.Clock
}

func NewRecorder(dbClient database.DBClient, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{
		dbClient: dbClient,
		clock:    clock,
	}
}

// Emit appends one event. The ID and CreatedAt are assigned here; the
// caller's event and payload are left untouched.
func (r *Recorder) Emit(ctx context.Context, event *api.AuditEvent) error {
	if event.Action == "" {
		return fmt.Errorf("audit event carries no action")
	}

	record := *event
	record.ID = api.NewAuditEventID()
	record.CreatedAt = r.clock.Now().UTC()
	record.Payload = redactPayload(event.Payload)

	if err := r.dbClient.CreateAuditDoc(ctx, &record); err != nil {
		return fmt.Errorf("failed to append audit event '%s': %w", record.Action, err)
	}
	return nil
}

func redactPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch v := value.(type) {
		case string:
			out[key] = sharing.RedactTokens(v)
		case []string:
			redacted := make([]string, len(v))
			for i, item := range v {
				redacted[i] = sharing.RedactTokens(item)
			}
			out[key] = redacted
		default:
			out[key] = v
		}
	}
	return out
}
