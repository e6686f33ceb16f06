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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

// Document type tags distinguish heterogeneous items sharing a container.
const (
	docTypeWorkspace    = "workspace"
	docTypeMember       = "member"
	docTypeJob          = "provisioningjob"
	docTypeShare        = "sharelink"
	docTypeAuditEvent   = "auditevent"
	docTypeAgentSession = "agentsession"
)

// baseDocument includes the item fields common to all containers. Cosmos
// system fields are populated by the service after writes.
type baseDocument struct {
	ID string `json:"id"`

	// Values provided by Cosmos after doc creation
	CosmosResourceID string      `json:"_rid,omitempty"`
	Self             string      `json:"_self,omitempty"`
	ETag             azcore.ETag `json:"_etag,omitempty"`
	Attachments      string      `json:"_attachments,omitempty"`
	Timestamp        int         `json:"_ts,omitempty"`
}

// typedDocumentError signifies a mismatched DocType field and properties
// type when attempting to unmarshal JSON-encoded data.
type typedDocumentError struct {
	invalidType  string
	expectedType string
}

func (e typedDocumentError) Error() string {
	if e.invalidType == "" {
		return "missing document type"
	}

	return fmt.Sprintf("invalid document type '%s', expected '%s'", e.invalidType, e.expectedType)
}

// typedDocument is a baseDocument with a DocType field to help distinguish
// heterogeneous items in a Cosmos DB container. The Properties field can be
// unmarshalled to any of the control plane's entity types.
type typedDocument struct {
	baseDocument
	PartitionKey string          `json:"partitionKey"`
	DocType      string          `json:"docType"`
	Properties   json.RawMessage `json:"properties"`

	// TimeToLive enables Cosmos item-level expiry, in seconds. Zero
	// leaves the container default in effect.
	TimeToLive int `json:"ttl,omitempty"`
}

// newTypedDocument returns a typedDocument for the given partition and type
// tag. The item ID is the entity's own opaque identifier, so point reads
// need no extra lookup.
func newTypedDocument(partitionKey string, docType string, id string) *typedDocument {
	return &typedDocument{
		baseDocument: baseDocument{ID: strings.ToLower(id)},
		PartitionKey: strings.ToLower(partitionKey),
		DocType:      strings.ToLower(docType),
	}
}

// getPartitionKey returns an azcosmos.PartitionKey.
func (td *typedDocument) getPartitionKey() azcosmos.PartitionKey {
	return azcosmos.NewPartitionKeyString(td.PartitionKey)
}

// validateType validates the type tag against the expected document type.
// If type validation fails, validateType returns a typedDocumentError.
func (td *typedDocument) validateType(docType string) error {
	if strings.EqualFold(td.DocType, docType) {
		return nil
	}

	return &typedDocumentError{
		invalidType:  td.DocType,
		expectedType: docType,
	}
}

// typedDocumentMarshal returns the JSON encoding of typedDoc with innerDoc
// as the properties value. First, however, typedDocumentMarshal validates
// the type tag in typedDoc against docType to ensure compatibility. If
// validation fails, typedDocumentMarshal returns a typedDocumentError.
func typedDocumentMarshal[T any](typedDoc *typedDocument, docType string, innerDoc *T) ([]byte, error) {
	err := typedDoc.validateType(docType)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(innerDoc)
	if err != nil {
		return nil, err
	}

	typedDoc.Properties = data

	return json.Marshal(typedDoc)
}

// typedDocumentUnmarshal parses JSON-encoded data into a typedDocument,
// validates the type tag against docType, and then parses the JSON-encoded
// properties data into an instance of type parameter T. If validation
// fails, typedDocumentUnmarshal returns a typedDocumentError.
func typedDocumentUnmarshal[T any](data []byte, docType string) (*typedDocument, *T, error) {
	var typedDoc typedDocument
	var innerDoc T

	err := json.Unmarshal(data, &typedDoc)
	if err != nil {
		return nil, nil, err
	}

	err = typedDoc.validateType(docType)
	if err != nil {
		return nil, nil, err
	}

	err = json.Unmarshal(typedDoc.Properties, &innerDoc)
	if err != nil {
		return nil, nil, err
	}

	return &typedDoc, &innerDoc, nil
}
