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
	"fmt"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProperties struct {
	Value string `json:"value"`
}

const testPropertiesValue = "sentinel"

func TestTypedDocumentMarshal(t *testing.T) {
	tests := []struct {
		name     string
		typedDoc *typedDocument
		err      string
	}{
		{
			name:     "successful marshal",
			typedDoc: newTypedDocument("ws_1", docTypeWorkspace, "ws_1"),
			err:      "",
		},
		{
			name:     "missing document type",
			typedDoc: &typedDocument{},
			err:      "missing document type",
		},
		{
			name: "mismatched document type",
			typedDoc: &typedDocument{
				DocType: docTypeMember,
			},
			err: fmt.Sprintf("invalid document type '%s', expected '%s'", docTypeMember, docTypeWorkspace),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			innerDoc := &testProperties{testPropertiesValue}
			data, err := typedDocumentMarshal(tt.typedDoc, docTypeWorkspace, innerDoc)

			if tt.err != "" {
				assert.EqualError(t, err, tt.err)
			} else if assert.NoError(t, err) {
				assert.NotEmpty(t, data)
			}
		})
	}
}

func TestTypedDocumentUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		data string
		err  string
	}{
		{
			name: "successful unmarshal",
			data: fmt.Sprintf("{\"id\": \"ws_1\", \"docType\": \"%s\", \"properties\": {\"value\": \"%s\"}}", docTypeWorkspace, testPropertiesValue),
			err:  "",
		},
		{
			name: "missing document type",
			data: fmt.Sprintf("{\"properties\": {\"value\": \"%s\"}}", testPropertiesValue),
			err:  "missing document type",
		},
		{
			name: "mismatched document type",
			data: fmt.Sprintf("{\"docType\": \"%s\", \"properties\": {\"value\": \"%s\"}}", docTypeShare, testPropertiesValue),
			err:  fmt.Sprintf("invalid document type '%s', expected '%s'", docTypeShare, docTypeWorkspace),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typedDoc, innerDoc, err := typedDocumentUnmarshal[testProperties]([]byte(tt.data), docTypeWorkspace)

			if tt.err != "" {
				assert.EqualError(t, err, tt.err)
			} else if assert.NoError(t, err) {
				require.NotNil(t, typedDoc)
				require.NotNil(t, innerDoc)
				assert.Equal(t, "ws_1", typedDoc.ID)
				assert.Equal(t, testPropertiesValue, innerDoc.Value)
			}
		})
	}
}

// The etag Cosmos assigns must come back typed so it can guard a replace
// through ItemOptions.IfMatchEtag without conversion.
func TestTypedDocumentEtagGuard(t *testing.T) {
	data := fmt.Sprintf("{\"id\": \"ws_1\", \"_etag\": \"\\\"00000001-0000-0000-0000-000000000000\\\"\", \"docType\": \"%s\", \"properties\": {\"value\": \"%s\"}}", docTypeWorkspace, testPropertiesValue)

	typedDoc, _, err := typedDocumentUnmarshal[testProperties]([]byte(data), docTypeWorkspace)
	require.NoError(t, err)
	assert.Equal(t, azcore.ETag("\"00000001-0000-0000-0000-000000000000\""), typedDoc.ETag)

	options := azcosmos.ItemOptions{IfMatchEtag: &typedDoc.ETag}
	assert.Equal(t, typedDoc.ETag, *options.IfMatchEtag)
}

func TestNewTypedDocumentLowercases(t *testing.T) {
	typedDoc := newTypedDocument("WS_MiXeD", docTypeWorkspace, "WS_MiXeD")
	assert.Equal(t, "ws_mixed", typedDoc.PartitionKey)
	assert.Equal(t, "ws_mixed", typedDoc.ID)
}
