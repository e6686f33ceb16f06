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

// ShareAccess is the access level a share link grants.
type ShareAccess string

const (
	ShareAccessRead  ShareAccess = "read"
	ShareAccessWrite ShareAccess = "write"
)

// Allows reports whether a link granting g satisfies a request for want.
// Write grants include read.
func (g ShareAccess) Allows(want ShareAccess) bool {
	if g == ShareAccessWrite {
		return true
	}
	return g == want
}

// ShareLink grants exact-path access to a single file in a workspace. Only
// the SHA-256 hash of the token is stored; the plaintext leaves the server
// exactly once, in the create response. Handlers clear TokenHash before
// shaping responses.
type ShareLink struct {
	ID          string      `json:"id"`
	WorkspaceID string      `json:"workspace_id"`
	Path        string      `json:"path"`
	TokenHash   string      `json:"token_hash,omitempty"`
	Access      ShareAccess `json:"access" validate:"omitempty,enum_shareaccess"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	RevokedAt   *time.Time  `json:"revoked_at,omitempty"`
}

// ShareCreateRequest is the body of POST /w/{id}/api/v1/shares.
type ShareCreateRequest struct {
	Path           string      `json:"path" validate:"required"`
	Access         ShareAccess `json:"access" validate:"required,enum_shareaccess"`
	ExpiresInHours int         `json:"expires_in_hours" validate:"required,min=1,max=8760"`
}

// ShareCreateResponse carries the one-time plaintext token.
type ShareCreateResponse struct {
	ShareLink
	Token string `json:"token"`
}

// NewShareID returns a fresh opaque share link identifier.
func NewShareID() string {
	return "shr_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
