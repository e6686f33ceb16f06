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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var _ Store = &FilesystemStore{}

// FilesystemStore serves release artifacts from a local directory tree,
// <root>/<app_id>/<release_id>/<object>. Used for local development and in
// tests; deployments point at a BlobStore.
type FilesystemStore struct {
	root string
}

func NewFilesystemStore(root string) *FilesystemStore {
	return &FilesystemStore{root: root}
}

func (s *FilesystemStore) objectPath(appID, releaseID, object string) (string, error) {
	if err := validateKeySegment(appID); err != nil {
		return "", err
	}
	if err := validateKeySegment(releaseID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, appID, releaseID, object), nil
}

func (s *FilesystemStore) GetBundle(ctx context.Context, appID string, releaseID string) (io.ReadCloser, error) {
	path, err := s.objectPath(appID, releaseID, BundleObjectName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("bundle for release '%s/%s': %w", appID, releaseID, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *FilesystemStore) GetChecksum(ctx context.Context, appID string, releaseID string) (string, error) {
	path, err := s.objectPath(appID, releaseID, ChecksumObjectName)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checksum for release '%s/%s': %w", appID, releaseID, ErrArtifactNotFound)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FilesystemStore) GetManifest(ctx context.Context, appID string, releaseID string) (*Manifest, error) {
	path, err := s.objectPath(appID, releaseID, ManifestObjectName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("manifest for release '%s/%s': %w", appID, releaseID, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, err
	}
	manifest := &Manifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest for release '%s/%s': %w", appID, releaseID, err)
	}
	return manifest, nil
}
