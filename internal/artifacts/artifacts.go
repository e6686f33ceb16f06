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

// Package artifacts is the release bundle store the provisioner resolves
// and verifies against. Every release holds three objects under
// <app_id>/<release_id>/: the bundle, a checksum file, and a manifest.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

const (
	BundleObjectName   = "bundle.tar.gz"
	ChecksumObjectName = "checksum.sha256"
	ManifestObjectName = "manifest.json"
)

// ErrArtifactNotFound is returned when a release object does not exist in
// the store.
var ErrArtifactNotFound = errors.New("artifact not found")

// keySegmentPattern bounds app and release identifiers used as object path
// segments. Anything else would let a release id walk the store layout.
var keySegmentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

func validateKeySegment(segment string) error {
	if !keySegmentPattern.MatchString(segment) || strings.Contains(segment, "..") {
		return fmt.Errorf("invalid artifact key segment '%s'", segment)
	}
	return nil
}

// Manifest describes one release.
type Manifest struct {
	AppID     string    `json:"app_id"`
	ReleaseID string    `json:"release_id"`
	Bundle    string    `json:"bundle"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Store reads release objects for an (app_id, release_id) pair. Missing
// objects are reported as ErrArtifactNotFound.
type Store interface {
	// GetBundle streams the release bundle. The caller closes it.
	GetBundle(ctx context.Context, appID string, releaseID string) (io.ReadCloser, error)

	// GetChecksum returns the stored checksum line, "<hex>  <filename>".
	GetChecksum(ctx context.Context, appID string, releaseID string) (string, error)

	// GetManifest returns the release manifest.
	GetManifest(ctx context.Context, appID string, releaseID string) (*Manifest, error)
}

// ChecksumMismatchError reports a bundle whose freshly computed digest does
// not match the stored checksum file.
type ChecksumMismatchError struct {
	Expected string
	Observed string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("artifact checksum mismatch: expected %s, observed %s", e.Expected, e.Observed)
}
