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

package database

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/boringdata/boring-ui/internal/api"
)

var _ DBClient = &Cache{}

// Cache is a DBClient backed by process memory. It allows tests and local
// bootstrap to run without a real Cosmos DB; for production use NewCosmosDBClient
// instead. Each collection is guarded by its own lock, so the uniqueness
// checks in the Create methods are atomic with the insert. Call NewCache()
// to initialize a Cache correctly.
type Cache struct {
	workspaceLock sync.RWMutex
	workspaces    map[string]*api.Workspace

	memberLock sync.RWMutex
	members    map[string]*api.Member

	jobLock sync.RWMutex
	jobs    map[string]*api.ProvisioningJob

	shareLock sync.RWMutex
	shares    map[string]*api.ShareLink

	auditLock sync.RWMutex
	audit     []*api.AuditEvent

	sessionLock sync.RWMutex
	sessions    map[string]*api.AgentSession
}

// NewCache initializes a new Cache to allow for simple tests and local
// bootstrap without needing a real Cosmos DB. For production, use
// NewCosmosDBClient instead.
func NewCache() *Cache {
	return &Cache{
		workspaces: make(map[string]*api.Workspace),
		members:    make(map[string]*api.Member),
		jobs:       make(map[string]*api.ProvisioningJob),
		shares:     make(map[string]*api.ShareLink),
		sessions:   make(map[string]*api.AgentSession),
	}
}

func (c *Cache) DBConnectionTest(ctx context.Context) error {
	return nil
}

// Stored documents are copied on the way in and out so callers can never
// mutate the store through a returned pointer.
func copyDoc[T any](doc *T) *T {
	out := *doc
	return &out
}

func copyAuditEvent(doc *api.AuditEvent) *api.AuditEvent {
	out := *doc
	out.Payload = maps.Clone(doc.Payload)
	return &out
}

func (c *Cache) GetWorkspaceDoc(ctx context.Context, workspaceID string) (*api.Workspace, error) {
	// Make sure lookup keys are lowercase.
	key := strings.ToLower(workspaceID)

	c.workspaceLock.RLock()
	defer c.workspaceLock.RUnlock()

	if doc, ok := c.workspaces[key]; ok {
		return copyDoc(doc), nil
	}

	return nil, ErrNotFound
}

func (c *Cache) CreateWorkspaceDoc(ctx context.Context, doc *api.Workspace) error {
	key := strings.ToLower(doc.ID)

	c.workspaceLock.Lock()
	defer c.workspaceLock.Unlock()

	for _, existing := range c.workspaces {
		if existing.OwnerID == doc.OwnerID &&
			existing.Name == doc.Name &&
			existing.Status != api.WorkspaceStatusRemoved {
			return ErrWorkspaceNameTaken
		}
	}

	c.workspaces[key] = copyDoc(doc)
	return nil
}

func (c *Cache) UpdateWorkspaceDoc(ctx context.Context, workspaceID string, callback func(*api.Workspace) bool) (bool, error) {
	key := strings.ToLower(workspaceID)

	c.workspaceLock.Lock()
	defer c.workspaceLock.Unlock()

	doc, ok := c.workspaces[key]
	if !ok {
		return false, ErrNotFound
	}

	modified := copyDoc(doc)
	if !callback(modified) {
		return false, nil
	}

	c.workspaces[key] = modified
	return true, nil
}

func (c *Cache) WorkspaceNameInUse(ctx context.Context, ownerID string, name string, excludeID string) (bool, error) {
	c.workspaceLock.RLock()
	defer c.workspaceLock.RUnlock()

	for _, existing := range c.workspaces {
		if existing.OwnerID == ownerID &&
			existing.Name == name &&
			existing.Status != api.WorkspaceStatusRemoved &&
			!strings.EqualFold(existing.ID, excludeID) {
			return true, nil
		}
	}

	return false, nil
}

func (c *Cache) CreateMemberDoc(ctx context.Context, doc *api.Member) error {
	key := strings.ToLower(doc.ID)
	email := api.NormalizeEmail(doc.Email)

	c.memberLock.Lock()
	defer c.memberLock.Unlock()

	for _, existing := range c.members {
		if strings.EqualFold(existing.WorkspaceID, doc.WorkspaceID) &&
			existing.Email == email &&
			existing.Status != api.MemberStatusRemoved {
			return ErrMemberExists
		}
	}

	stored := copyDoc(doc)
	stored.Email = email
	c.members[key] = stored
	return nil
}

func (c *Cache) GetMemberDoc(ctx context.Context, workspaceID string, memberID string) (*api.Member, error) {
	key := strings.ToLower(memberID)

	c.memberLock.RLock()
	defer c.memberLock.RUnlock()

	if doc, ok := c.members[key]; ok && strings.EqualFold(doc.WorkspaceID, workspaceID) {
		return copyDoc(doc), nil
	}

	return nil, ErrNotFound
}

func (c *Cache) UpdateMemberDoc(ctx context.Context, workspaceID string, memberID string, callback func(*api.Member) bool) (bool, error) {
	key := strings.ToLower(memberID)

	c.memberLock.Lock()
	defer c.memberLock.Unlock()

	doc, ok := c.members[key]
	if !ok || !strings.EqualFold(doc.WorkspaceID, workspaceID) {
		return false, ErrNotFound
	}

	modified := copyDoc(doc)
	if !callback(modified) {
		return false, nil
	}

	modified.Email = api.NormalizeEmail(modified.Email)
	c.members[key] = modified
	return true, nil
}

func (c *Cache) ListMemberDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.Member] {
	c.memberLock.RLock()
	defer c.memberLock.RUnlock()

	var docs []*api.Member
	for _, doc := range c.members {
		if strings.EqualFold(doc.WorkspaceID, workspaceID) {
			docs = append(docs, copyDoc(doc))
		}
	}

	return newMemberIterator(docs, maxItems, continuationToken)
}

func (c *Cache) ListMemberDocsByEmail(email string, maxItems int32, continuationToken *string) DBClientIterator[api.Member] {
	email = api.NormalizeEmail(email)

	c.memberLock.RLock()
	defer c.memberLock.RUnlock()

	var docs []*api.Member
	for _, doc := range c.members {
		if doc.Email == email {
			docs = append(docs, copyDoc(doc))
		}
	}

	return newMemberIterator(docs, maxItems, continuationToken)
}

func newMemberIterator(docs []*api.Member, maxItems int32, continuationToken *string) DBClientIterator[api.Member] {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}

	return newSliceIterator(ids, docs, maxItems, continuationToken)
}

func (c *Cache) CreateJobDoc(ctx context.Context, doc *api.ProvisioningJob) error {
	key := strings.ToLower(doc.ID)

	c.jobLock.Lock()
	defer c.jobLock.Unlock()

	for _, existing := range c.jobs {
		if strings.EqualFold(existing.WorkspaceID, doc.WorkspaceID) && existing.State.IsActive() {
			return ErrActiveJobExists
		}
	}

	c.jobs[key] = copyDoc(doc)
	return nil
}

func (c *Cache) GetJobDoc(ctx context.Context, workspaceID string, jobID string) (*api.ProvisioningJob, error) {
	key := strings.ToLower(jobID)

	c.jobLock.RLock()
	defer c.jobLock.RUnlock()

	if doc, ok := c.jobs[key]; ok && strings.EqualFold(doc.WorkspaceID, workspaceID) {
		return copyDoc(doc), nil
	}

	return nil, ErrNotFound
}

func (c *Cache) GetActiveJobDoc(ctx context.Context, workspaceID string) (*api.ProvisioningJob, error) {
	c.jobLock.RLock()
	defer c.jobLock.RUnlock()

	var found *api.ProvisioningJob
	for _, doc := range c.jobs {
		if strings.EqualFold(doc.WorkspaceID, workspaceID) && doc.State.IsActive() {
			if found != nil {
				return nil, ErrAmbiguousResult
			}
			found = doc
		}
	}

	if found == nil {
		return nil, ErrNotFound
	}

	return copyDoc(found), nil
}

func (c *Cache) GetLatestJobDoc(ctx context.Context, workspaceID string) (*api.ProvisioningJob, error) {
	c.jobLock.RLock()
	defer c.jobLock.RUnlock()

	var found *api.ProvisioningJob
	for _, doc := range c.jobs {
		if !strings.EqualFold(doc.WorkspaceID, workspaceID) {
			continue
		}
		if found == nil || doc.StartedAt.After(found.StartedAt) ||
			(doc.StartedAt.Equal(found.StartedAt) && doc.Attempt > found.Attempt) {
			found = doc
		}
	}

	if found == nil {
		return nil, ErrNotFound
	}

	return copyDoc(found), nil
}

func (c *Cache) GetJobDocByIdempotencyKey(ctx context.Context, workspaceID string, idempotencyKey string) (*api.ProvisioningJob, error) {
	c.jobLock.RLock()
	defer c.jobLock.RUnlock()

	if idempotencyKey == "" {
		return nil, ErrNotFound
	}

	for _, doc := range c.jobs {
		if strings.EqualFold(doc.WorkspaceID, workspaceID) && doc.IdempotencyKey == idempotencyKey {
			return copyDoc(doc), nil
		}
	}

	return nil, ErrNotFound
}

func (c *Cache) UpdateJobDoc(ctx context.Context, workspaceID string, jobID string, callback func(*api.ProvisioningJob) bool) (bool, error) {
	key := strings.ToLower(jobID)

	c.jobLock.Lock()
	defer c.jobLock.Unlock()

	doc, ok := c.jobs[key]
	if !ok || !strings.EqualFold(doc.WorkspaceID, workspaceID) {
		return false, ErrNotFound
	}

	modified := copyDoc(doc)
	if !callback(modified) {
		return false, nil
	}

	c.jobs[key] = modified
	return true, nil
}

func (c *Cache) ListActiveJobDocs(maxItems int32, continuationToken *string) DBClientIterator[api.ProvisioningJob] {
	c.jobLock.RLock()
	defer c.jobLock.RUnlock()

	var docs []*api.ProvisioningJob
	for _, doc := range c.jobs {
		if doc.State.IsActive() {
			docs = append(docs, copyDoc(doc))
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].StartedAt.Equal(docs[j].StartedAt) {
			return docs[i].StartedAt.Before(docs[j].StartedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}

	return newSliceIterator(ids, docs, maxItems, continuationToken)
}

func (c *Cache) CreateShareDoc(ctx context.Context, doc *api.ShareLink) error {
	key := strings.ToLower(doc.ID)

	c.shareLock.Lock()
	defer c.shareLock.Unlock()

	c.shares[key] = copyDoc(doc)
	return nil
}

func (c *Cache) GetShareDoc(ctx context.Context, workspaceID string, shareID string) (*api.ShareLink, error) {
	key := strings.ToLower(shareID)

	c.shareLock.RLock()
	defer c.shareLock.RUnlock()

	if doc, ok := c.shares[key]; ok && strings.EqualFold(doc.WorkspaceID, workspaceID) {
		return copyDoc(doc), nil
	}

	return nil, ErrNotFound
}

func (c *Cache) GetShareDocByTokenHash(ctx context.Context, tokenHash string) (*api.ShareLink, error) {
	c.shareLock.RLock()
	defer c.shareLock.RUnlock()

	for _, doc := range c.shares {
		if doc.TokenHash == tokenHash {
			return copyDoc(doc), nil
		}
	}

	return nil, ErrNotFound
}

func (c *Cache) UpdateShareDoc(ctx context.Context, workspaceID string, shareID string, callback func(*api.ShareLink) bool) (bool, error) {
	key := strings.ToLower(shareID)

	c.shareLock.Lock()
	defer c.shareLock.Unlock()

	doc, ok := c.shares[key]
	if !ok || !strings.EqualFold(doc.WorkspaceID, workspaceID) {
		return false, ErrNotFound
	}

	modified := copyDoc(doc)
	if !callback(modified) {
		return false, nil
	}

	c.shares[key] = modified
	return true, nil
}

func (c *Cache) ListShareDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.ShareLink] {
	c.shareLock.RLock()
	defer c.shareLock.RUnlock()

	var docs []*api.ShareLink
	for _, doc := range c.shares {
		if strings.EqualFold(doc.WorkspaceID, workspaceID) {
			docs = append(docs, copyDoc(doc))
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}

	return newSliceIterator(ids, docs, maxItems, continuationToken)
}

func (c *Cache) CreateAuditDoc(ctx context.Context, doc *api.AuditEvent) error {
	c.auditLock.Lock()
	defer c.auditLock.Unlock()

	c.audit = append(c.audit, copyAuditEvent(doc))
	return nil
}

// ListAuditDocs yields most recent first, meaning the reverse of append order.
func (c *Cache) ListAuditDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.AuditEvent] {
	c.auditLock.RLock()
	defer c.auditLock.RUnlock()

	var docs []*api.AuditEvent
	for i := len(c.audit) - 1; i >= 0; i-- {
		if strings.EqualFold(c.audit[i].WorkspaceID, workspaceID) {
			docs = append(docs, copyAuditEvent(c.audit[i]))
		}
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}

	return newSliceIterator(ids, docs, maxItems, continuationToken)
}

func (c *Cache) CreateAgentSessionDoc(ctx context.Context, doc *api.AgentSession) error {
	key := strings.ToLower(doc.ID)

	c.sessionLock.Lock()
	defer c.sessionLock.Unlock()

	c.sessions[key] = copyDoc(doc)
	return nil
}

func (c *Cache) GetAgentSessionDoc(ctx context.Context, workspaceID string, sessionID string) (*api.AgentSession, error) {
	key := strings.ToLower(sessionID)

	c.sessionLock.RLock()
	defer c.sessionLock.RUnlock()

	if doc, ok := c.sessions[key]; ok && strings.EqualFold(doc.WorkspaceID, workspaceID) {
		return copyDoc(doc), nil
	}

	return nil, ErrNotFound
}

func (c *Cache) UpdateAgentSessionDoc(ctx context.Context, workspaceID string, sessionID string, callback func(*api.AgentSession) bool) (bool, error) {
	key := strings.ToLower(sessionID)

	c.sessionLock.Lock()
	defer c.sessionLock.Unlock()

	doc, ok := c.sessions[key]
	if !ok || !strings.EqualFold(doc.WorkspaceID, workspaceID) {
		return false, ErrNotFound
	}

	modified := copyDoc(doc)
	if !callback(modified) {
		return false, nil
	}

	c.sessions[key] = modified
	return true, nil
}

func (c *Cache) ListAgentSessionDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.AgentSession] {
	c.sessionLock.RLock()
	defer c.sessionLock.RUnlock()

	var docs []*api.AgentSession
	for _, doc := range c.sessions {
		if strings.EqualFold(doc.WorkspaceID, workspaceID) {
			docs = append(docs, copyDoc(doc))
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}

	return newSliceIterator(ids, docs, maxItems, continuationToken)
}
