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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// The definitions in this file are meant for unit tests.

// SeedRelease writes a complete on-disk release (bundle, checksum,
// manifest) under root.
func SeedRelease(t *testing.T, root, appID, releaseID string, bundle []byte) {
	t.Helper()

	dir := filepath.Join(root, appID, releaseID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, BundleObjectName), bundle, 0o644))

	digest := sha256.Sum256(bundle)
	line := FormatChecksum(hex.EncodeToString(digest[:]), BundleObjectName)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ChecksumObjectName), []byte(line+"\n"), 0o644))

	manifest, err := json.Marshal(Manifest{AppID: appID, ReleaseID: releaseID, Bundle: BundleObjectName})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestObjectName), manifest, 0o644))
}
