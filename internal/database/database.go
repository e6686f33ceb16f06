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
	"errors"
	"iter"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/boringdata/boring-ui/internal/api"
)

const (
	workspacesContainer = "Workspaces"
	auditContainer      = "Audit"

	auditTimeToLive = 7776000 // 90 days
)

var (
	// ErrNotFound indicates no document matched the lookup.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousResult indicates a query that must match at most one
	// document matched several.
	ErrAmbiguousResult = errors.New("ambiguous result")

	// ErrActiveJobExists indicates a workspace already has a provisioning
	// job in a non-terminal state.
	ErrActiveJobExists = errors.New("workspace already has an active provisioning job")

	// ErrMemberExists indicates a workspace already has a pending or active
	// member record for the email.
	ErrMemberExists = errors.New("workspace already has a live member for this email")

	// ErrWorkspaceNameTaken indicates the owner already has a workspace
	// with the same name that is not removed.
	ErrWorkspaceNameTaken = errors.New("owner already has a workspace with this name")
)

func isResponseError(err error, statusCode int) bool {
	var responseError *azcore.ResponseError
	return errors.As(err, &responseError) && responseError.StatusCode == statusCode
}

// NewPartitionKey creates a partition key from a workspace ID.
func NewPartitionKey(workspaceID string) azcosmos.PartitionKey {
	return azcosmos.NewPartitionKeyString(strings.ToLower(workspaceID))
}

type DBClientIteratorItem[T any] iter.Seq2[string, *T]

type DBClientIterator[T any] interface {
	Items(ctx context.Context) DBClientIteratorItem[T]
	GetContinuationToken() string
	GetError() error
}

// DBClient provides a customized interface to the document containers used
// by the control plane. Implementations enforce the store-level invariants:
// at most one live member per (workspace, email), at most one non-terminal
// provisioning job per workspace, and workspace name uniqueness per owner.
type DBClient interface {
	// DBConnectionTest verifies the database is reachable. Intended for use in health checks.
	DBConnectionTest(ctx context.Context) error

	// GetWorkspaceDoc reads a workspace document by ID.
	GetWorkspaceDoc(ctx context.Context, workspaceID string) (*api.Workspace, error)

	// CreateWorkspaceDoc creates a new workspace document. It fails with
	// ErrWorkspaceNameTaken if the owner already has a non-removed workspace
	// with the same name. The check and the insert are atomic.
	CreateWorkspaceDoc(ctx context.Context, doc *api.Workspace) error

	// UpdateWorkspaceDoc updates a workspace document by first fetching the
	// document and passing it to the provided callback for modifications to
	// be applied. It then attempts to replace the existing document with the
	// modified document and an "etag" precondition. Upon a precondition
	// failure the function repeats for a limited number of times before
	// giving up.
	//
	// The callback function should return true if modifications were applied,
	// signaling to proceed with the document replacement. The boolean return
	// value reflects this: returning true if the document was successfully
	// replaced, or false with or without an error to indicate no change.
	UpdateWorkspaceDoc(ctx context.Context, workspaceID string, callback func(*api.Workspace) bool) (bool, error)

	// WorkspaceNameInUse reports whether the owner has a non-removed
	// workspace with the given name, excluding excludeID. Rename handlers
	// call this before applying the new name.
	WorkspaceNameInUse(ctx context.Context, ownerID string, name string, excludeID string) (bool, error)

	// CreateMemberDoc creates a new member document. It fails with
	// ErrMemberExists if the workspace already has a pending or active
	// member with the same normalized email. The check and the insert
	// are atomic.
	CreateMemberDoc(ctx context.Context, doc *api.Member) error

	// GetMemberDoc reads a member document by workspace and member ID.
	GetMemberDoc(ctx context.Context, workspaceID string, memberID string) (*api.Member, error)

	// UpdateMemberDoc updates a member document via the same callback and
	// etag-precondition scheme as UpdateWorkspaceDoc.
	UpdateMemberDoc(ctx context.Context, workspaceID string, memberID string, callback func(*api.Member) bool) (bool, error)

	// ListMemberDocs returns an iterator over a workspace's member documents.
	//
	// Note that ListMemberDocs does not perform the search, but merely
	// prepares an iterator to do so. Hence the lack of a Context argument.
	// The search is performed by calling Items() on the iterator in a
	// ranged for loop.
	//
	// maxItems can limit the number of items returned at once. A negative
	// value will cause the returned iterator to yield all matching documents.
	// A positive value will cause the returned iterator to include a
	// continuation token if additional items are available. The continuation
	// token can be supplied on a subsequent call to obtain those additional
	// items.
	ListMemberDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.Member]

	// ListMemberDocsByEmail returns an iterator over all member documents
	// across workspaces whose normalized email matches. Used to list a
	// user's workspaces and to promote pending invites.
	ListMemberDocsByEmail(email string, maxItems int32, continuationToken *string) DBClientIterator[api.Member]

	// CreateJobDoc creates a new provisioning job document. It fails with
	// ErrActiveJobExists if the workspace already has a job in a
	// non-terminal state. The check and the insert are atomic.
	CreateJobDoc(ctx context.Context, doc *api.ProvisioningJob) error

	// GetJobDoc reads a provisioning job document by workspace and job ID.
	GetJobDoc(ctx context.Context, workspaceID string, jobID string) (*api.ProvisioningJob, error)

	// GetActiveJobDoc reads the workspace's single non-terminal provisioning
	// job document, or ErrNotFound if every job is terminal.
	GetActiveJobDoc(ctx context.Context, workspaceID string) (*api.ProvisioningJob, error)

	// GetLatestJobDoc reads the workspace's most recently created
	// provisioning job document, or ErrNotFound if the workspace has none.
	GetLatestJobDoc(ctx context.Context, workspaceID string) (*api.ProvisioningJob, error)

	// GetJobDocByIdempotencyKey reads the workspace's provisioning job
	// document carrying the given idempotency key, or ErrNotFound. The
	// provisioning service uses this to make job creation replayable.
	GetJobDocByIdempotencyKey(ctx context.Context, workspaceID string, idempotencyKey string) (*api.ProvisioningJob, error)

	// UpdateJobDoc updates a provisioning job document via the same callback
	// and etag-precondition scheme as UpdateWorkspaceDoc.
	UpdateJobDoc(ctx context.Context, workspaceID string, jobID string, callback func(*api.ProvisioningJob) bool) (bool, error)

	// ListActiveJobDocs returns an iterator over every non-terminal
	// provisioning job document across workspaces. The stale-job sweeper
	// uses this on each sweep.
	ListActiveJobDocs(maxItems int32, continuationToken *string) DBClientIterator[api.ProvisioningJob]

	// CreateShareDoc creates a new share link document.
	CreateShareDoc(ctx context.Context, doc *api.ShareLink) error

	// GetShareDoc reads a share link document by workspace and share ID.
	GetShareDoc(ctx context.Context, workspaceID string, shareID string) (*api.ShareLink, error)

	// GetShareDocByTokenHash reads a share link document by its token hash.
	// Public share resolution uses this, so it spans workspaces.
	GetShareDocByTokenHash(ctx context.Context, tokenHash string) (*api.ShareLink, error)

	// UpdateShareDoc updates a share link document via the same callback and
	// etag-precondition scheme as UpdateWorkspaceDoc.
	UpdateShareDoc(ctx context.Context, workspaceID string, shareID string, callback func(*api.ShareLink) bool) (bool, error)

	// ListShareDocs returns an iterator over a workspace's share link documents.
	ListShareDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.ShareLink]

	// CreateAuditDoc appends an audit event document. Audit documents are
	// never updated or deleted by the control plane.
	CreateAuditDoc(ctx context.Context, doc *api.AuditEvent) error

	// ListAuditDocs returns an iterator over a workspace's audit event
	// documents, most recent first.
	ListAuditDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.AuditEvent]

	// CreateAgentSessionDoc creates a new agent session document.
	CreateAgentSessionDoc(ctx context.Context, doc *api.AgentSession) error

	// GetAgentSessionDoc reads an agent session document by workspace and session ID.
	GetAgentSessionDoc(ctx context.Context, workspaceID string, sessionID string) (*api.AgentSession, error)

	// UpdateAgentSessionDoc updates an agent session document via the same
	// callback and etag-precondition scheme as UpdateWorkspaceDoc.
	UpdateAgentSessionDoc(ctx context.Context, workspaceID string, sessionID string, callback func(*api.AgentSession) bool) (bool, error)

	// ListAgentSessionDocs returns an iterator over a workspace's agent
	// session documents.
	ListAgentSessionDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.AgentSession]
}
