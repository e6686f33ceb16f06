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

package sharing

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var (
	// ErrPathTraversal rejects any path carrying a ".." sequence, literal
	// or percent-encoded. Traversal is refused outright, never resolved.
	ErrPathTraversal = errors.New("path contains a traversal sequence")

	// ErrInvalidPath rejects paths that cannot be percent-decoded.
	ErrInvalidPath = errors.New("path is not decodable")
)

// NormalizePath canonicalizes a share path: percent-decoding, a mandatory
// leading slash, "." segments and duplicate slashes collapsed. Both the
// stored path and every requested path pass through here, so the grant
// check is an exact string compare.
func NormalizePath(raw string) (string, error) {
	if strings.Contains(raw, "..") {
		return "", ErrPathTraversal
	}

	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, err)
	}
	if strings.Contains(unescaped, "..") {
		return "", ErrPathTraversal
	}

	if !strings.HasPrefix(unescaped, "/") {
		unescaped = "/" + unescaped
	}
	return path.Clean(unescaped), nil
}
