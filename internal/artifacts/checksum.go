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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const digestHexLength = 64

// FormatChecksum renders the stored checksum line, "<hex>  <filename>"
// with exactly two spaces.
func FormatChecksum(digest, filename string) string {
	return digest + "  " + filename
}

// ParseChecksum splits a checksum line into its digest and filename.
func ParseChecksum(line string) (string, string, error) {
	digest, filename, found := strings.Cut(strings.TrimSpace(line), "  ")
	if !found || filename == "" {
		return "", "", fmt.Errorf("checksum line is not in '<hex>  <filename>' form")
	}
	digest = strings.ToLower(digest)
	if len(digest) != digestHexLength {
		return "", "", fmt.Errorf("checksum digest has %d characters, want %d", len(digest), digestHexLength)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", "", fmt.Errorf("checksum digest is not hex: %w", err)
	}
	return digest, filename, nil
}

// ComputeDigest streams r through SHA-256 and returns the hex digest.
func ComputeDigest(r io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return "", fmt.Errorf("failed to digest bundle: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// BundleDigest returns the digest the store's checksum file records for a
// release, without reading the bundle itself.
func BundleDigest(ctx context.Context, store Store, appID, releaseID string) (string, error) {
	line, err := store.GetChecksum(ctx, appID, releaseID)
	if err != nil {
		return "", err
	}
	digest, _, err := ParseChecksum(line)
	if err != nil {
		return "", fmt.Errorf("release '%s/%s': %w", appID, releaseID, err)
	}
	return digest, nil
}

// VerifyChecksum recomputes the bundle digest and compares it against the
// checksum file. A mismatch comes back as a *ChecksumMismatchError carrying
// both digests.
func VerifyChecksum(ctx context.Context, store Store, appID, releaseID string) error {
	expected, err := BundleDigest(ctx, store, appID, releaseID)
	if err != nil {
		return err
	}

	bundle, err := store.GetBundle(ctx, appID, releaseID)
	if err != nil {
		return err
	}
	defer bundle.Close()

	observed, err := ComputeDigest(bundle)
	if err != nil {
		return err
	}
	if observed != expected {
		return &ChecksumMismatchError{Expected: expected, Observed: observed}
	}
	return nil
}
