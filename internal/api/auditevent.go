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

// AuditEvent is one append-only record of a domain action. Events are never
// updated or deleted.
type AuditEvent struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspace_id,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	Action      string         `json:"action"`
	RequestID   string         `json:"request_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Audit action names used across the control plane.
const (
	AuditWorkspaceCreated = "workspace.created"
	AuditWorkspaceRenamed = "workspace.renamed"
	AuditWorkspaceRemoved = "workspace.removed"
	AuditMemberInvited    = "member.invited"
	AuditMemberAccepted   = "member.accepted"
	AuditMemberRemoved    = "member.removed"
	AuditJobCreated       = "provisioning.job_created"
	AuditJobRetried       = "provisioning.job_retried"
	AuditShareCreated     = "share.created"
	AuditShareAccessed    = "share.accessed"
	AuditShareDenied      = "share.denied"
	AuditShareRevoked     = "share.revoked"
	AuditShareWritten     = "share.written"
	AuditSessionIssued    = "session.issued"
	AuditSessionRevoked   = "session.revoked"
)

// NewAuditEventID returns a fresh opaque audit event identifier.
func NewAuditEventID() string {
	return "aud_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
