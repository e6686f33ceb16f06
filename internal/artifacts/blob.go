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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

var _ Store = &BlobStore{}

// BlobStore serves release artifacts from an Azure Blob container using
// the same object layout as the filesystem store.
type BlobStore struct {
	client    *azblob.Client
	container string
}

func NewBlobStore(client *azblob.Client, container string) *BlobStore {
	return &BlobStore{
		client:    client,
		container: container,
	}
}

func (s *BlobStore) objectName(appID, releaseID, object string) (string, error) {
	if err := validateKeySegment(appID); err != nil {
		return "", err
	}
	if err := validateKeySegment(releaseID); err != nil {
		return "", err
	}
	return appID + "/" + releaseID + "/" + object, nil
}

func isBlobNotFound(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound)
}

func (s *BlobStore) GetBundle(ctx context.Context, appID string, releaseID string) (io.ReadCloser, error) {
	name, err := s.objectName(appID, releaseID, BundleObjectName)
	if err != nil {
		return nil, err
	}
	response, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if isBlobNotFound(err) {
		return nil, fmt.Errorf("bundle for release '%s/%s': %w", appID, releaseID, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download bundle for release '%s/%s': %w", appID, releaseID, err)
	}
	return response.Body, nil
}

func (s *BlobStore) readObject(ctx context.Context, appID, releaseID, object string) ([]byte, error) {
	name, err := s.objectName(appID, releaseID, object)
	if err != nil {
		return nil, err
	}
	response, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if isBlobNotFound(err) {
		return nil, fmt.Errorf("%s for release '%s/%s': %w", object, appID, releaseID, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download %s for release '%s/%s': %w", object, appID, releaseID, err)
	}
	defer response.Body.Close()
	return io.ReadAll(response.Body)
}

func (s *BlobStore) GetChecksum(ctx context.Context, appID string, releaseID string) (string, error) {
	data, err := s.readObject(ctx, appID, releaseID, ChecksumObjectName)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *BlobStore) GetManifest(ctx context.Context, appID string, releaseID string) (*Manifest, error) {
	data, err := s.readObject(ctx, appID, releaseID, ManifestObjectName)
	if err != nil {
		return nil, err
	}
	manifest := &Manifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest for release '%s/%s': %w", appID, releaseID, err)
	}
	return manifest, nil
}
