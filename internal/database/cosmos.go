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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/boringdata/boring-ui/internal/api"
)

// Marker documents turn cross-item uniqueness checks into single-item
// inserts: Cosmos rejects a second item with the same ID and partition key
// with a 409, which makes the check-then-insert atomic.
const (
	docTypeNameMarker  = "namemarker"
	docTypeEmailMarker = "emailmarker"
	docTypeJobMarker   = "jobmarker"

	activeJobMarkerID = "activejob"
)

type markerProperties struct {
	RefID string `json:"ref_id"`
}

func nameMarkerID(ownerID string, name string) string {
	sum := sha256.Sum256([]byte(ownerID + "\x00" + name))
	return "wsname-" + hex.EncodeToString(sum[:16])
}

func emailMarkerID(email string) string {
	sum := sha256.Sum256([]byte(api.NormalizeEmail(email)))
	return "memberemail-" + hex.EncodeToString(sum[:16])
}

var _ DBClient = &cosmosDBClient{}

// cosmosDBClient defines the needed values to perform CRUD operations against
// Cosmos DB.
type cosmosDBClient struct {
	database   *azcosmos.DatabaseClient
	workspaces *azcosmos.ContainerClient
	audit      *azcosmos.ContainerClient
}

// NewCosmosDBClient instantiates a DBClient from a Cosmos DatabaseClient
// instance targeting the control plane's database.
func NewCosmosDBClient(ctx context.Context, database *azcosmos.DatabaseClient) (DBClient, error) {
	// NewContainer only fails if the container ID argument is
	// empty, so we can safely disregard the error return value.
	workspaces, _ := database.NewContainer(workspacesContainer)
	audit, _ := database.NewContainer(auditContainer)

	return &cosmosDBClient{
		database:   database,
		workspaces: workspaces,
		audit:      audit,
	}, nil
}

func (d *cosmosDBClient) DBConnectionTest(ctx context.Context) error {
	if _, err := d.database.Read(ctx, nil); err != nil {
		return fmt.Errorf("failed to read Cosmos database information during healthcheck: %v", err)
	}

	return nil
}

func (d *cosmosDBClient) createMarker(ctx context.Context, partitionKey string, id string, docType string, refID string) error {
	typedDoc := newTypedDocument(partitionKey, docType, id)

	data, err := typedDocumentMarshal(typedDoc, docType, &markerProperties{RefID: refID})
	if err != nil {
		return fmt.Errorf("failed to marshal marker item '%s': %w", id, err)
	}

	_, err = d.workspaces.CreateItem(ctx, typedDoc.getPartitionKey(), data, nil)
	return err
}

func (d *cosmosDBClient) readMarker(ctx context.Context, partitionKey string, id string, docType string) (*markerProperties, error) {
	response, err := d.workspaces.ReadItem(ctx, NewPartitionKey(partitionKey), strings.ToLower(id), nil)
	if err != nil {
		if isResponseError(err, http.StatusNotFound) {
			err = ErrNotFound
		}
		return nil, fmt.Errorf("failed to read marker item '%s': %w", id, err)
	}

	_, marker, err := typedDocumentUnmarshal[markerProperties](response.Value, docType)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal marker item '%s': %w", id, err)
	}

	return marker, nil
}

// deleteMarker removes a marker item. A missing marker is not an error.
func (d *cosmosDBClient) deleteMarker(ctx context.Context, partitionKey string, id string) error {
	_, err := d.workspaces.DeleteItem(ctx, NewPartitionKey(partitionKey), strings.ToLower(id), nil)
	if err != nil && !isResponseError(err, http.StatusNotFound) {
		return fmt.Errorf("failed to delete marker item '%s': %w", id, err)
	}
	return nil
}

func (d *cosmosDBClient) getWorkspaceDoc(ctx context.Context, workspaceID string) (*typedDocument, *api.Workspace, error) {
	// Make sure lookup keys are lowercase.
	workspaceID = strings.ToLower(workspaceID)

	response, err := d.workspaces.ReadItem(ctx, NewPartitionKey(workspaceID), workspaceID, nil)
	if err != nil {
		if isResponseError(err, http.StatusNotFound) {
			err = ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to read Workspaces container item for '%s': %w", workspaceID, err)
	}

	typedDoc, innerDoc, err := typedDocumentUnmarshal[api.Workspace](response.Value, docTypeWorkspace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal Workspaces container item for '%s': %w", workspaceID, err)
	}

	return typedDoc, innerDoc, nil
}

func (d *cosmosDBClient) GetWorkspaceDoc(ctx context.Context, workspaceID string) (*api.Workspace, error) {
	_, innerDoc, err := d.getWorkspaceDoc(ctx, workspaceID)
	return innerDoc, err
}

func (d *cosmosDBClient) CreateWorkspaceDoc(ctx context.Context, doc *api.Workspace) error {
	err := d.createMarker(ctx, doc.OwnerID, nameMarkerID(doc.OwnerID, doc.Name), docTypeNameMarker, doc.ID)
	if err != nil {
		if isResponseError(err, http.StatusConflict) {
			return ErrWorkspaceNameTaken
		}
		return fmt.Errorf("failed to create workspace name marker for '%s': %w", doc.ID, err)
	}

	typedDoc := newTypedDocument(doc.ID, docTypeWorkspace, doc.ID)

	data, err := typedDocumentMarshal(typedDoc, docTypeWorkspace, doc)
	if err != nil {
		return fmt.Errorf("failed to marshal Workspaces container item for '%s': %w", doc.ID, err)
	}

	_, err = d.workspaces.CreateItem(ctx, typedDoc.getPartitionKey(), data, nil)
	if err != nil {
		// Release the name so a later create can succeed.
		_ = d.deleteMarker(ctx, doc.OwnerID, nameMarkerID(doc.OwnerID, doc.Name))
		return fmt.Errorf("failed to create Workspaces container item for '%s': %w", doc.ID, err)
	}

	return nil
}

func (d *cosmosDBClient) UpdateWorkspaceDoc(ctx context.Context, workspaceID string, callback func(*api.Workspace) bool) (bool, error) {
	var err error

	options := &azcosmos.ItemOptions{}

	for try := 0; try < 5; try++ {
		var typedDoc *typedDocument
		var innerDoc *api.Workspace
		var data []byte

		typedDoc, innerDoc, err = d.getWorkspaceDoc(ctx, workspaceID)
		if err != nil {
			return false, err
		}

		before := *innerDoc

		if !callback(innerDoc) {
			return false, nil
		}

		data, err = typedDocumentMarshal(typedDoc, docTypeWorkspace, innerDoc)
		if err != nil {
			return false, fmt.Errorf("failed to marshal Workspaces container item for '%s': %w", workspaceID, err)
		}

		options.IfMatchEtag = &typedDoc.ETag
		_, err = d.workspaces.ReplaceItem(ctx, typedDoc.getPartitionKey(), typedDoc.ID, data, options)
		if err == nil {
			d.reconcileNameMarkers(ctx, &before, innerDoc)
			return true, nil
		}

		err = fmt.Errorf("failed to replace Workspaces container item for '%s': %w", workspaceID, err)
		if !isResponseError(err, http.StatusPreconditionFailed) {
			return false, err
		}
	}

	return false, err
}

// reconcileNameMarkers keeps the per-owner name markers in step with a
// committed workspace update. Callers pre-check names with
// WorkspaceNameInUse, so marker creation conflicts here are ignored.
func (d *cosmosDBClient) reconcileNameMarkers(ctx context.Context, before *api.Workspace, after *api.Workspace) {
	removed := after.Status == api.WorkspaceStatusRemoved

	if after.Name != before.Name && !removed {
		_ = d.createMarker(ctx, after.OwnerID, nameMarkerID(after.OwnerID, after.Name), docTypeNameMarker, after.ID)
		_ = d.deleteMarker(ctx, before.OwnerID, nameMarkerID(before.OwnerID, before.Name))
		return
	}

	if removed && before.Status != api.WorkspaceStatusRemoved {
		_ = d.deleteMarker(ctx, before.OwnerID, nameMarkerID(before.OwnerID, before.Name))
	}
}

func (d *cosmosDBClient) WorkspaceNameInUse(ctx context.Context, ownerID string, name string, excludeID string) (bool, error) {
	marker, err := d.readMarker(ctx, ownerID, nameMarkerID(ownerID, name), docTypeNameMarker)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return !strings.EqualFold(marker.RefID, excludeID), nil
}

func (d *cosmosDBClient) CreateMemberDoc(ctx context.Context, doc *api.Member) error {
	email := api.NormalizeEmail(doc.Email)

	err := d.createMarker(ctx, doc.WorkspaceID, emailMarkerID(email), docTypeEmailMarker, doc.ID)
	if err != nil {
		if isResponseError(err, http.StatusConflict) {
			return ErrMemberExists
		}
		return fmt.Errorf("failed to create member email marker for '%s': %w", doc.ID, err)
	}

	stored := *doc
	stored.Email = email

	typedDoc := newTypedDocument(doc.WorkspaceID, docTypeMember, doc.ID)

	data, err := typedDocumentMarshal(typedDoc, docTypeMember, &stored)
	if err != nil {
		return fmt.Errorf("failed to marshal Workspaces container item for '%s': %w", doc.ID, err)
	}

	_, err = d.workspaces.CreateItem(ctx, typedDoc.getPartitionKey(), data, nil)
	if err != nil {
		_ = d.deleteMarker(ctx, doc.WorkspaceID, emailMarkerID(email))
		return fmt.Errorf("failed to create Workspaces container item for '%s': %w", doc.ID, err)
	}

	return nil
}

func (d *cosmosDBClient) getMemberDoc(ctx context.Context, workspaceID string, memberID string) (*typedDocument, *api.Member, error) {
	memberID = strings.ToLower(memberID)

	response, err := d.workspaces.ReadItem(ctx, NewPartitionKey(workspaceID), memberID, nil)
	if err != nil {
		if isResponseError(err, http.StatusNotFound) {
			err = ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to read Workspaces container item for '%s': %w", memberID, err)
	}

	typedDoc, innerDoc, err := typedDocumentUnmarshal[api.Member](response.Value, docTypeMember)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal Workspaces container item for '%s': %w", memberID, err)
	}

	return typedDoc, innerDoc, nil
}

func (d *cosmosDBClient) GetMemberDoc(ctx context.Context, workspaceID string, memberID string) (*api.Member, error) {
	_, innerDoc, err := d.getMemberDoc(ctx, workspaceID, memberID)
	return innerDoc, err
}

func (d *cosmosDBClient) UpdateMemberDoc(ctx context.Context, workspaceID string, memberID string, callback func(*api.Member) bool) (bool, error) {
	var err error

	options := &azcosmos.ItemOptions{}

	for try := 0; try < 5; try++ {
		var typedDoc *typedDocument
		var innerDoc *api.Member
		var data []byte

		typedDoc, innerDoc, err = d.getMemberDoc(ctx, workspaceID, memberID)
		if err != nil {
			return false, err
		}

		before := *innerDoc

		if !callback(innerDoc) {
			return false, nil
		}

		innerDoc.Email = api.NormalizeEmail(innerDoc.Email)

		data, err = typedDocumentMarshal(typedDoc, docTypeMember, innerDoc)
		if err != nil {
			return false, fmt.Errorf("failed to marshal Workspaces container item for '%s': %w", memberID, err)
		}

		options.IfMatchEtag = &typedDoc.ETag
		_, err = d.workspaces.ReplaceItem(ctx, typedDoc.getPartitionKey(), typedDoc.ID, data, options)
		if err == nil {
			// A removed member releases its email for re-invite.
			if innerDoc.Status == api.MemberStatusRemoved && before.Status != api.MemberStatusRemoved {
				_ = d.deleteMarker(ctx, workspaceID, emailMarkerID(before.Email))
			}
			return true, nil
		}

		err = fmt.Errorf("failed to replace Workspaces container item for '%s': %w", memberID, err)
		if !isResponseError(err, http.StatusPreconditionFailed) {
			return false, err
		}
	}

	return false, err
}

func (d *cosmosDBClient) ListMemberDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.Member] {
	const query = "SELECT * FROM c WHERE c.docType = @docType"
	opt := azcosmos.QueryOptions{
		PageSizeHint:      normalizePageSize(maxItems),
		ContinuationToken: continuationToken,
		QueryParameters: []azcosmos.QueryParameter{
			{Name: "@docType", Value: docTypeMember},
		},
	}

	pager := d.workspaces.NewQueryItemsPager(query, NewPartitionKey(workspaceID), &opt)

	return newPagedIterator[api.Member](pager, docTypeMember, maxItems)
}

func (d *cosmosDBClient) ListMemberDocsByEmail(email string, maxItems int32, continuationToken *string) DBClientIterator[api.Member] {
	const query = "SELECT * FROM c WHERE c.docType = @docType AND c.properties.email = @email"
	opt := azcosmos.QueryOptions{
		PageSizeHint:      normalizePageSize(maxItems),
		ContinuationToken: continuationToken,
		QueryParameters: []azcosmos.QueryParameter{
			{Name: "@docType", Value: docTypeMember},
			{Name: "@email", Value: api.NormalizeEmail(email)},
		},
	}

	pager := d.workspaces.NewQueryItemsPager(query, azcosmos.NewPartitionKey(), &opt)

	return newPagedIterator[api.Member](pager, docTypeMember, maxItems)
}

func (d *cosmosDBClient) CreateJobDoc(ctx context.Context, doc *api.ProvisioningJob) error {
	var created bool

	// Two passes: the first may find a marker left behind by a crash
	// after the job reached a terminal state, in which case it is
	// cleared and the insert retried once.
	for try := 0; try < 2 && !created; try++ {
		err := d.createMarker(ctx, doc.WorkspaceID, activeJobMarkerID, docTypeJobMarker, doc.ID)
		switch {
		case err == nil:
			created = true
		case isResponseError(err, http.StatusConflict):
			stale, checkErr := d.activeJobMarkerStale(ctx, doc.WorkspaceID)
			if checkErr != nil {
				return checkErr
			}
			if !stale {
				return ErrActiveJobExists
			}
			if err := d.deleteMarker(ctx, doc.WorkspaceID, activeJobMarkerID); err != nil {
				return err
			}
		default:
			return fmt.Errorf("failed to create active job marker for '%s': %w", doc.WorkspaceID, err)
		}
	}

	if !created {
		return ErrActiveJobExists
	}

	typedDoc := newTypedDocument(doc.WorkspaceID, docTypeJob, doc.ID)

	data, err := typedDocumentMarshal(typedDoc, docTypeJob, doc)
	if err != nil {
		return fmt.Errorf("failed to marshal Workspaces container item for '%s': %w", doc.ID, err)
	}

	_, err = d.workspaces.CreateItem(ctx, typedDoc.getPartitionKey(), data, nil)
	if err != nil {
		_ = d.deleteMarker(ctx, doc.WorkspaceID, activeJobMarkerID)
		return fmt.Errorf("failed to create Workspaces container item for '%s': %w", doc.ID, err)
	}

	return nil
}

// activeJobMarkerStale reports whether the workspace's active job marker
// points at a job that is terminal or missing.
func (d *cosmosDBClient) activeJobMarkerStale(ctx context.Context, workspaceID string) (bool, error) {
	marker, err := d.readMarker(ctx, workspaceID, activeJobMarkerID, docTypeJobMarker)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	job, err := d.GetJobDoc(ctx, workspaceID, marker.RefID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	return !job.State.IsActive(), nil
}

func (d *cosmosDBClient) getJobDoc(ctx context.Context, workspaceID string, jobID string) (*typedDocument, *api.ProvisioningJob, error) {
	jobID = strings.ToLower(jobID)

	response, err := d.workspaces.ReadItem(ctx, NewPartitionKey(workspaceID), jobID, nil)
	if err != nil {
		if isResponseError(err, http.StatusNotFound) {
			err = ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to read Workspaces container item for '%s': %w", jobID, err)
	}

	typedDoc, innerDoc, err := typedDocumentUnmarshal[api.ProvisioningJob](response.Value, docTypeJob)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal Workspaces container item for '%s': %w", jobID, err)
	}

	return typedDoc, innerDoc, nil
}

func (d *cosmosDBClient) GetJobDoc(ctx context.Context, workspaceID string, jobID string) (*api.ProvisioningJob, error) {
	_, innerDoc, err := d.getJobDoc(ctx, workspaceID, jobID)
	return innerDoc, err
}

func (d *cosmosDBClient) GetActiveJobDoc(ctx context.Context, workspaceID string) (*api.ProvisioningJob, error) {
	marker, err := d.readMarker(ctx, workspaceID, activeJobMarkerID, docTypeJobMarker)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	job, err := d.GetJobDoc(ctx, workspaceID, marker.RefID)
	if err != nil {
		return nil, err
	}

	// The marker outlives the job's terminal transition briefly; treat
	// that window the same as no active job.
	if !job.State.IsActive() {
		return nil, ErrNotFound
	}

	return job, nil
}

func (d *cosmosDBClient) GetLatestJobDoc(ctx context.Context, workspaceID string) (*api.ProvisioningJob, error) {
	const query = "SELECT * FROM c WHERE c.docType = @docType"
	opt := azcosmos.QueryOptions{
		QueryParameters: []azcosmos.QueryParameter{
			{Name: "@docType", Value: docTypeJob},
		},
	}

	queryPager := d.workspaces.NewQueryItemsPager(query, NewPartitionKey(workspaceID), &opt)

	var latest *api.ProvisioningJob
	for queryPager.More() {
		queryResponse, err := queryPager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to advance page while querying Workspaces container for '%s': %w", workspaceID, err)
		}

		for _, item := range queryResponse.Items {
			_, innerDoc, err := typedDocumentUnmarshal[api.ProvisioningJob](item, docTypeJob)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal Workspaces container item for '%s': %w", workspaceID, err)
			}
			if latest == nil || innerDoc.StartedAt.After(latest.StartedAt) ||
				(innerDoc.StartedAt.Equal(latest.StartedAt) && innerDoc.Attempt > latest.Attempt) {
				latest = innerDoc
			}
		}
	}

	if latest == nil {
		return nil, ErrNotFound
	}

	return latest, nil
}

func (d *cosmosDBClient) GetJobDocByIdempotencyKey(ctx context.Context, workspaceID string, idempotencyKey string) (*api.ProvisioningJob, error) {
	if idempotencyKey == "" {
		return nil, ErrNotFound
	}

	const query = "SELECT * FROM c WHERE c.docType = @docType AND c.properties.idempotency_key = @key"
	opt := azcosmos.QueryOptions{
		QueryParameters: []azcosmos.QueryParameter{
			{Name: "@docType", Value: docTypeJob},
			{Name: "@key", Value: idempotencyKey},
		},
	}

	queryPager := d.workspaces.NewQueryItemsPager(query, NewPartitionKey(workspaceID), &opt)

	var found *api.ProvisioningJob
	for queryPager.More() {
		queryResponse, err := queryPager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to advance page while querying Workspaces container for '%s': %w", workspaceID, err)
		}

		for _, item := range queryResponse.Items {
			_, innerDoc, err := typedDocumentUnmarshal[api.ProvisioningJob](item, docTypeJob)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal Workspaces container item for '%s': %w", workspaceID, err)
			}
			if found != nil {
				return nil, ErrAmbiguousResult
			}
			found = innerDoc
		}
	}

	if found == nil {
		return nil, ErrNotFound
	}

	return found, nil
}

func (d *cosmosDBClient) UpdateJobDoc(ctx context.Context, workspaceID string, jobID string, callback func(*api.ProvisioningJob) bool) (bool, error) {
	var err error

	options := &azcosmos.ItemOptions{}

	for try := 0; try < 5; try++ {
		var typedDoc *typedDocument
		var innerDoc *api.ProvisioningJob
		var data []byte

		typedDoc, innerDoc, err = d.getJobDoc(ctx, workspaceID, jobID)
		if err != nil {
			return false, err
		}

		wasActive := innerDoc.State.IsActive()

		if !callback(innerDoc) {
			return false, nil
		}

		data, err = typedDocumentMarshal(typedDoc, docTypeJob, innerDoc)
		if err != nil {
			return false, fmt.Errorf("failed to marshal Workspaces container item for '%s': %w", jobID, err)
		}

		options.IfMatchEtag = &typedDoc.ETag
		_, err = d.workspaces.ReplaceItem(ctx, typedDoc.getPartitionKey(), typedDoc.ID, data, options)
		if err == nil {
			if wasActive && !innerDoc.State.IsActive() {
				d.releaseActiveJobMarker(ctx, workspaceID, jobID)
			}
			return true, nil
		}

		err = fmt.Errorf("failed to replace Workspaces container item for '%s': %w", jobID, err)
		if !isResponseError(err, http.StatusPreconditionFailed) {
			return false, err
		}
	}

	return false, err
}

// releaseActiveJobMarker deletes the workspace's active job marker if it
// still points at the given job. A marker already recycled to a newer job
// is left alone.
func (d *cosmosDBClient) releaseActiveJobMarker(ctx context.Context, workspaceID string, jobID string) {
	marker, err := d.readMarker(ctx, workspaceID, activeJobMarkerID, docTypeJobMarker)
	if err != nil || !strings.EqualFold(marker.RefID, jobID) {
		return
	}
	_ = d.deleteMarker(ctx, workspaceID, activeJobMarkerID)
}

func (d *cosmosDBClient) ListActiveJobDocs(maxItems int32, continuationToken *string) DBClientIterator[api.ProvisioningJob] {
	terminal := make([]string, 0, 3)
	for _, s := range []api.JobState{api.JobStateReady, api.JobStateError, api.JobStateCancelled} {
		terminal = append(terminal, string(s))
	}

	const query = "SELECT * FROM c WHERE c.docType = @docType AND NOT ARRAY_CONTAINS(@terminalStates, c.properties.state)"
	opt := azcosmos.QueryOptions{
		PageSizeHint:      normalizePageSize(maxItems),
		ContinuationToken: continuationToken,
		QueryParameters: []azcosmos.QueryParameter{
			{Name: "@docType", Value: docTypeJob},
			{Name: "@terminalStates", Value: terminal},
		},
	}

	pager := d.workspaces.NewQueryItemsPager(query, azcosmos.NewPartitionKey(), &opt)

	return newPagedIterator[api.ProvisioningJob](pager, docTypeJob, maxItems)
}

func (d *cosmosDBClient) CreateShareDoc(ctx context.Context, doc *api.ShareLink) error {
	typedDoc := newTypedDocument(doc.WorkspaceID, docTypeShare, doc.ID)

	data, err := typedDocumentMarshal(typedDoc, docTypeShare, doc)
	if err != nil {
		return fmt.Errorf("failed to marshal Workspaces container item for '%s': %w", doc.ID, err)
	}

	_, err = d.workspaces.CreateItem(ctx, typedDoc.getPartitionKey(), data, nil)
	if err != nil {
		return fmt.Errorf("failed to create Workspaces container item for '%s': %w", doc.ID, err)
	}

	return nil
}

func (d *cosmosDBClient) getShareDoc(ctx context.Context, workspaceID string, shareID string) (*typedDocument, *api.ShareLink, error) {
	shareID = strings.ToLower(shareID)

	response, err := d.workspaces.ReadItem(ctx, NewPartitionKey(workspaceID), shareID, nil)
	if err != nil {
		if isResponseError(err, http.StatusNotFound) {
			err = ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to read Workspaces container item for '%s': %w", shareID, err)
	}

	typedDoc, innerDoc, err := typedDocumentUnmarshal[api.ShareLink](response.Value, docTypeShare)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal Workspaces container item for '%s': %w", shareID, err)
	}

	return typedDoc, innerDoc, nil
}

func (d *cosmosDBClient) GetShareDoc(ctx context.Context, workspaceID string, shareID string) (*api.ShareLink, error) {
	_, innerDoc, err := d.getShareDoc(ctx, workspaceID, shareID)
	return innerDoc, err
}

func (d *cosmosDBClient) GetShareDocByTokenHash(ctx context.Context, tokenHash string) (*api.ShareLink, error) {
	const query = "SELECT * FROM c WHERE c.docType = @docType AND c.properties.token_hash = @tokenHash"
	opt := azcosmos.QueryOptions{
		QueryParameters: []azcosmos.QueryParameter{
			{Name: "@docType", Value: docTypeShare},
			{Name: "@tokenHash", Value: tokenHash},
		},
	}

	queryPager := d.workspaces.NewQueryItemsPager(query, azcosmos.NewPartitionKey(), &opt)

	var found *api.ShareLink
	for queryPager.More() {
		queryResponse, err := queryPager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to advance page while querying Workspaces container for share token: %w", err)
		}

		for _, item := range queryResponse.Items {
			// Let the pager finish to ensure we get a single result.
			_, innerDoc, err := typedDocumentUnmarshal[api.ShareLink](item, docTypeShare)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal Workspaces container item for share token: %w", err)
			}
			if found != nil {
				return nil, ErrAmbiguousResult
			}
			found = innerDoc
		}
	}

	if found == nil {
		return nil, ErrNotFound
	}

	return found, nil
}

func (d *cosmosDBClient) UpdateShareDoc(ctx context.Context, workspaceID string, shareID string, callback func(*api.ShareLink) bool) (bool, error) {
	var err error

	options := &azcosmos.ItemOptions{}

	for try := 0; try < 5; try++ {
		var typedDoc *typedDocument
		var innerDoc *api.ShareLink
		var data []byte

		typedDoc, innerDoc, err = d.getShareDoc(ctx, workspaceID, shareID)
		if err != nil {
			return false, err
		}

		if !callback(innerDoc) {
			return false, nil
		}

		data, err = typedDocumentMarshal(typedDoc, docTypeShare, innerDoc)
		if err != nil {
			return false, fmt.Errorf("failed to marshal Workspaces container item for '%s': %w", shareID, err)
		}

		options.IfMatchEtag = &typedDoc.ETag
		_, err = d.workspaces.ReplaceItem(ctx, typedDoc.getPartitionKey(), typedDoc.ID, data, options)
		if err == nil {
			return true, nil
		}

		err = fmt.Errorf("failed to replace Workspaces container item for '%s': %w", shareID, err)
		if !isResponseError(err, http.StatusPreconditionFailed) {
			return false, err
		}
	}

	return false, err
}

func (d *cosmosDBClient) ListShareDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.ShareLink] {
	const query = "SELECT * FROM c WHERE c.docType = @docType"
	opt := azcosmos.QueryOptions{
		PageSizeHint:      normalizePageSize(maxItems),
		ContinuationToken: continuationToken,
		QueryParameters: []azcosmos.QueryParameter{
			{Name: "@docType", Value: docTypeShare},
		},
	}

	pager := d.workspaces.NewQueryItemsPager(query, NewPartitionKey(workspaceID), &opt)

	return newPagedIterator[api.ShareLink](pager, docTypeShare, maxItems)
}

func (d *cosmosDBClient) CreateAuditDoc(ctx context.Context, doc *api.AuditEvent) error {
	typedDoc := newTypedDocument(doc.WorkspaceID, docTypeAuditEvent, doc.ID)
	typedDoc.TimeToLive = auditTimeToLive

	data, err := typedDocumentMarshal(typedDoc, docTypeAuditEvent, doc)
	if err != nil {
		return fmt.Errorf("failed to marshal Audit container item for '%s': %w", doc.ID, err)
	}

	_, err = d.audit.CreateItem(ctx, typedDoc.getPartitionKey(), data, nil)
	if err != nil {
		return fmt.Errorf("failed to create Audit container item for '%s': %w", doc.ID, err)
	}

	return nil
}

func (d *cosmosDBClient) ListAuditDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.AuditEvent] {
	const query = "SELECT * FROM c WHERE c.docType = @docType ORDER BY c._ts DESC"
	opt := azcosmos.QueryOptions{
		PageSizeHint:      normalizePageSize(maxItems),
		ContinuationToken: continuationToken,
		QueryParameters: []azcosmos.QueryParameter{
			{Name: "@docType", Value: docTypeAuditEvent},
		},
	}

	pager := d.audit.NewQueryItemsPager(query, NewPartitionKey(workspaceID), &opt)

	return newPagedIterator[api.AuditEvent](pager, docTypeAuditEvent, maxItems)
}

func (d *cosmosDBClient) CreateAgentSessionDoc(ctx context.Context, doc *api.AgentSession) error {
	typedDoc := newTypedDocument(doc.WorkspaceID, docTypeAgentSession, doc.ID)

	data, err := typedDocumentMarshal(typedDoc, docTypeAgentSession, doc)
	if err != nil {
		return fmt.Errorf("failed to marshal Workspaces container item for '%s': %w", doc.ID, err)
	}

	_, err = d.workspaces.CreateItem(ctx, typedDoc.getPartitionKey(), data, nil)
	if err != nil {
		return fmt.Errorf("failed to create Workspaces container item for '%s': %w", doc.ID, err)
	}

	return nil
}

func (d *cosmosDBClient) getAgentSessionDoc(ctx context.Context, workspaceID string, sessionID string) (*typedDocument, *api.AgentSession, error) {
	sessionID = strings.ToLower(sessionID)

	response, err := d.workspaces.ReadItem(ctx, NewPartitionKey(workspaceID), sessionID, nil)
	if err != nil {
		if isResponseError(err, http.StatusNotFound) {
			err = ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to read Workspaces container item for '%s': %w", sessionID, err)
	}

	typedDoc, innerDoc, err := typedDocumentUnmarshal[api.AgentSession](response.Value, docTypeAgentSession)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal Workspaces container item for '%s': %w", sessionID, err)
	}

	return typedDoc, innerDoc, nil
}

func (d *cosmosDBClient) GetAgentSessionDoc(ctx context.Context, workspaceID string, sessionID string) (*api.AgentSession, error) {
	_, innerDoc, err := d.getAgentSessionDoc(ctx, workspaceID, sessionID)
	return innerDoc, err
}

func (d *cosmosDBClient) UpdateAgentSessionDoc(ctx context.Context, workspaceID string, sessionID string, callback func(*api.AgentSession) bool) (bool, error) {
	var err error

	options := &azcosmos.ItemOptions{}

	for try := 0; try < 5; try++ {
		var typedDoc *typedDocument
		var innerDoc *api.AgentSession
		var data []byte

		typedDoc, innerDoc, err = d.getAgentSessionDoc(ctx, workspaceID, sessionID)
		if err != nil {
			return false, err
		}

		if !callback(innerDoc) {
			return false, nil
		}

		data, err = typedDocumentMarshal(typedDoc, docTypeAgentSession, innerDoc)
		if err != nil {
			return false, fmt.Errorf("failed to marshal Workspaces container item for '%s': %w", sessionID, err)
		}

		options.IfMatchEtag = &typedDoc.ETag
		_, err = d.workspaces.ReplaceItem(ctx, typedDoc.getPartitionKey(), typedDoc.ID, data, options)
		if err == nil {
			return true, nil
		}

		err = fmt.Errorf("failed to replace Workspaces container item for '%s': %w", sessionID, err)
		if !isResponseError(err, http.StatusPreconditionFailed) {
			return false, err
		}
	}

	return false, err
}

func (d *cosmosDBClient) ListAgentSessionDocs(workspaceID string, maxItems int32, continuationToken *string) DBClientIterator[api.AgentSession] {
	const query = "SELECT * FROM c WHERE c.docType = @docType"
	opt := azcosmos.QueryOptions{
		PageSizeHint:      normalizePageSize(maxItems),
		ContinuationToken: continuationToken,
		QueryParameters: []azcosmos.QueryParameter{
			{Name: "@docType", Value: docTypeAgentSession},
		},
	}

	pager := d.workspaces.NewQueryItemsPager(query, NewPartitionKey(workspaceID), &opt)

	return newPagedIterator[api.AgentSession](pager, docTypeAgentSession, maxItems)
}

// normalizePageSize clamps the page size hint for the Cosmos REST API.
//
// XXX The Cosmos DB REST API gives special meaning to -1 for "x-ms-max-item-count"
//
//	but it's not clear if it treats all negative values equivalently. The Go SDK
//	passes the PageSizeHint value as provided so normalize negative values to -1
//	to be safe.
func normalizePageSize(maxItems int32) int32 {
	return max(maxItems, -1)
}

// newPagedIterator picks the iterator flavor for a list call: a bounded
// single page with a continuation token when the caller set maxItems, or
// the full result set otherwise.
func newPagedIterator[T any](pager *runtime.Pager[azcosmos.QueryItemsResponse], docType string, maxItems int32) DBClientIterator[T] {
	if maxItems > 0 {
		return newQueryItemsSinglePageIterator[T](pager, docType)
	}
	return newQueryItemsIterator[T](pager, docType)
}
