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

package sharing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"k8s.io/utils/ptr"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/database"
)

// Resolution failures, ordered by the gates Resolve applies. Handlers map
// them onto HTTP statuses; none of them reveal whether a nearby token
// exists.
var (
	ErrShareNotFound  = errors.New("share link not found")
	ErrShareRevoked   = errors.New("share link is revoked")
	ErrShareExpired   = errors.New("share link is expired")
	ErrPathMismatch   = errors.New("requested path does not match the shared path")
	ErrAccessExceeded = errors.New("requested access exceeds the grant")
)

// Service issues, resolves, and revokes share links over the document
// store. All paths are normalized before they are stored or compared.
type Service struct {
	dbClient database.DBClient
	clock    clockwork.Clock
}

func NewService(dbClient database.DBClient, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		dbClient: dbClient,
		clock:    clock,
	}
}

// Create persists a new share link and returns it together with the
// plaintext token. The token is not recoverable afterwards.
func (s *Service) Create(ctx context.Context, workspaceID string, request *api.ShareCreateRequest, createdBy string) (*api.ShareLink, string, error) {
	normalized, err := NormalizePath(request.Path)
	if err != nil {
		return nil, "", err
	}

	token, err := NewToken()
	if err != nil {
		return nil, "", err
	}

	now := s.clock.Now().UTC()
	share := &api.ShareLink{
		ID:          api.NewShareID(),
		WorkspaceID: workspaceID,
		Path:        normalized,
		TokenHash:   HashToken(token),
		Access:      request.Access,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(request.ExpiresInHours) * time.Hour),
	}

	if err := s.dbClient.CreateShareDoc(ctx, share); err != nil {
		return nil, "", fmt.Errorf("failed to persist share link: %w", err)
	}
	return share, token, nil
}

// Resolve checks a plaintext token and enforces the gates in order:
// existence, revocation, expiry, exact path, access level. An empty
// rawPath asks for the stored path itself.
func (s *Service) Resolve(ctx context.Context, token, rawPath string, want api.ShareAccess) (*api.ShareLink, error) {
	var requestPath string
	if rawPath != "" {
		var err error
		requestPath, err = NormalizePath(rawPath)
		if err != nil {
			return nil, err
		}
	}

	share, err := s.dbClient.GetShareDocByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}

	switch {
	case share.RevokedAt != nil:
		return nil, ErrShareRevoked
	case s.clock.Now().After(share.ExpiresAt):
		return nil, ErrShareExpired
	case requestPath != "" && requestPath != share.Path:
		return nil, ErrPathMismatch
	case !share.Access.Allows(want):
		return nil, ErrAccessExceeded
	}
	return share, nil
}

// Revoke stamps revoked_at on the link. Revoking an already revoked link
// reports false and changes nothing.
func (s *Service) Revoke(ctx context.Context, workspaceID, shareID string) (bool, error) {
	now := s.clock.Now().UTC()
	return s.dbClient.UpdateShareDoc(ctx, workspaceID, shareID, func(share *api.ShareLink) bool {
		if share.RevokedAt != nil {
			return false
		}
		share.RevokedAt = ptr.To(now)
		return true
	})
}
