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

package artifacts

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui/internal/api"
)

func TestFilesystemStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	payload := []byte("release payload")
	SeedRelease(t, root, api.TestAppID, api.TestDefaultReleaseID, payload)
	store := NewFilesystemStore(root)

	bundle, err := store.GetBundle(ctx, api.TestAppID, api.TestDefaultReleaseID)
	require.NoError(t, err)
	defer bundle.Close()
	data, err := io.ReadAll(bundle)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	line, err := store.GetChecksum(ctx, api.TestAppID, api.TestDefaultReleaseID)
	require.NoError(t, err)
	digest, filename, err := ParseChecksum(line)
	require.NoError(t, err)
	assert.Equal(t, BundleObjectName, filename)
	assert.Len(t, digest, 64)

	manifest, err := store.GetManifest(ctx, api.TestAppID, api.TestDefaultReleaseID)
	require.NoError(t, err)
	assert.Equal(t, api.TestAppID, manifest.AppID)
	assert.Equal(t, api.TestDefaultReleaseID, manifest.ReleaseID)
	assert.Equal(t, BundleObjectName, manifest.Bundle)
}

func TestFilesystemStoreMissingRelease(t *testing.T) {
	ctx := context.Background()
	store := NewFilesystemStore(t.TempDir())

	_, err := store.GetBundle(ctx, api.TestAppID, api.TestDefaultReleaseID)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, err = store.GetChecksum(ctx, api.TestAppID, api.TestDefaultReleaseID)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, err = store.GetManifest(ctx, api.TestAppID, api.TestDefaultReleaseID)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestFilesystemStoreRejectsHostileKeySegments(t *testing.T) {
	ctx := context.Background()
	store := NewFilesystemStore(t.TempDir())

	tests := []struct {
		name      string
		appID     string
		releaseID string
	}{
		{name: "traversal release", appID: api.TestAppID, releaseID: "../../etc"},
		{name: "separator in release", appID: api.TestAppID, releaseID: "a/b"},
		{name: "empty release", appID: api.TestAppID, releaseID: ""},
		{name: "traversal app", appID: "..", releaseID: api.TestDefaultReleaseID},
		{name: "dotfile app", appID: ".hidden", releaseID: api.TestDefaultReleaseID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.GetBundle(ctx, tt.appID, tt.releaseID)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrArtifactNotFound)
		})
	}
}
