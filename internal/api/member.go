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

type MemberRole string

const (
	MemberRoleAdmin MemberRole = "admin"
)

type MemberStatus string

const (
	MemberStatusPending MemberStatus = "pending"
	MemberStatusActive  MemberStatus = "active"
	MemberStatusRemoved MemberStatus = "removed"
)

// Member is a workspace membership record. Email is stored lowercased; at
// any instant at most one record per (workspace_id, email) is non-removed.
// Removed records are retained for audit.
type Member struct {
	ID          string       `json:"id"`
	WorkspaceID string       `json:"workspace_id"`
	UserID      string       `json:"user_id,omitempty"`
	Email       string       `json:"email"`
	Role        MemberRole   `json:"role" validate:"omitempty,enum_memberrole"`
	Status      MemberStatus `json:"status" validate:"omitempty,enum_memberstatus"`
	InvitedBy   string       `json:"invited_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// MemberInviteRequest is the body of POST .../members.
type MemberInviteRequest struct {
	Email string     `json:"email" validate:"required,email"`
	Role  MemberRole `json:"role,omitempty" validate:"omitempty,enum_memberrole"`
}

// NewMemberID returns a fresh opaque member identifier.
func NewMemberID() string {
	return "mem_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NormalizeEmail lowercases and trims an email address for storage and
// comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
