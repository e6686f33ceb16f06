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

// WorkspaceStatus tracks soft removal. Removed workspaces stay in the store
// for audit but disappear from every read path.
type WorkspaceStatus string

const (
	WorkspaceStatusActive  WorkspaceStatus = "active"
	WorkspaceStatusRemoved WorkspaceStatus = "removed"
)

// Workspace is a tenant-owned unit scoped to exactly one application
// identity for its whole lifetime.
type Workspace struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	AppID     string          `json:"app_id"`
	OwnerID   string          `json:"owner_id"`
	Status    WorkspaceStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WorkspaceCreateRequest is the body of POST /api/v1/workspaces.
type WorkspaceCreateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// WorkspacePatchRequest is the merge-patch shape accepted by
// PATCH /api/v1/workspaces/{id}. Only the name is mutable.
type WorkspacePatchRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

const workspaceIDPrefix = "ws_"

// NewWorkspaceID returns a fresh opaque workspace identifier.
func NewWorkspaceID() string {
	return workspaceIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsWorkspaceID reports whether s carries the workspace id prefix.
func IsWorkspaceID(s string) bool {
	return strings.HasPrefix(s, workspaceIDPrefix)
}
