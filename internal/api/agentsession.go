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

// AgentSession is one interactive agent run inside a workspace runtime.
// Stopping an already-stopped session is a no-op.
type AgentSession struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty"`
}

// Stopped reports whether the session has been stopped.
func (s *AgentSession) Stopped() bool {
	return s.StoppedAt != nil
}

// NewAgentSessionID returns a fresh opaque agent session identifier.
func NewAgentSessionID() string {
	return "ses_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
