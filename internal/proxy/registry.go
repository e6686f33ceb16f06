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

package proxy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// StreamState is the lifecycle state of one proxied stream.
type StreamState string

const (
	StreamStateRegistered StreamState = "registered"
	StreamStateActive     StreamState = "active"
	StreamStateClosing    StreamState = "closing"
	StreamStateClosed     StreamState = "closed"
)

// ErrStreamLimitExceeded indicates the workspace is already at its
// concurrent stream cap.
var ErrStreamLimitExceeded = errors.New("workspace stream limit exceeded")

const defaultStreamLimit = 8

// StreamSession is one live SSE or WebSocket proxy instance. The request
// handler and the registry share it; Close is safe to call from either
// side and from both, exactly one close wins.
type StreamSession struct {
	ID          string
	WorkspaceID string
	CreatedAt   time.Time

	registry *StreamRegistry
	cancel   context.CancelFunc

	mu       sync.Mutex
	state    StreamState
	closedAt *time.Time
}

// State returns the session's current lifecycle state.
func (s *StreamSession) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ClosedAt returns when the session finished closing, or nil.
func (s *StreamSession) ClosedAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closedAt
}

// Activate marks the session active on the first upstream byte. Activating
// a closing or closed session is a no-op.
func (s *StreamSession) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StreamStateRegistered {
		s.state = StreamStateActive
	}
}

// Close cancels the upstream request, walks the session through closing to
// closed, and removes it from the registry. Idempotent.
func (s *StreamSession) Close() {
	s.mu.Lock()
	if s.state == StreamStateClosing || s.state == StreamStateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StreamStateClosing
	s.mu.Unlock()

	s.cancel()

	now := s.registry.clock.Now().UTC()
	s.mu.Lock()
	s.state = StreamStateClosed
	s.closedAt = &now
	s.mu.Unlock()

	s.registry.remove(s)
}

// StreamRegistry tracks live proxied streams per workspace and enforces
// the per-workspace concurrency cap. All operations are O(1) under one
// internal lock.
type StreamRegistry struct {
	limit int
	clock clockwork.Clock

	mu       sync.Mutex
	sessions map[string]map[string]*StreamSession
}

func NewStreamRegistry(limit int, clock clockwork.Clock) *StreamRegistry {
	if limit <= 0 {
		limit = defaultStreamLimit
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StreamRegistry{
		limit:    limit,
		clock:    clock,
		sessions: make(map[string]map[string]*StreamSession),
	}
}

// Register allocates a session for the workspace, or fails with
// ErrStreamLimitExceeded at the cap. cancel is invoked when the session
// closes, which propagates client disconnects upstream.
func (r *StreamRegistry) Register(workspaceID string, cancel context.CancelFunc) (*StreamSession, error) {
	key := strings.ToLower(workspaceID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions[key]) >= r.limit {
		return nil, ErrStreamLimitExceeded
	}

	session := &StreamSession{
		ID:          "stm_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		WorkspaceID: workspaceID,
		CreatedAt:   r.clock.Now().UTC(),
		registry:    r,
		cancel:      cancel,
		state:       StreamStateRegistered,
	}

	if r.sessions[key] == nil {
		r.sessions[key] = make(map[string]*StreamSession)
	}
	r.sessions[key][session.ID] = session

	return session, nil
}

func (r *StreamRegistry) remove(session *StreamSession) {
	key := strings.ToLower(session.WorkspaceID)

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions[key], session.ID)
	if len(r.sessions[key]) == 0 {
		delete(r.sessions, key)
	}
}

// Count returns the number of live sessions for the workspace.
func (r *StreamRegistry) Count(workspaceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions[strings.ToLower(workspaceID)])
}

// Total returns the number of live sessions across all workspaces.
func (r *StreamRegistry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, sessions := range r.sessions {
		total += len(sessions)
	}
	return total
}
