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

// Package sandbox names per-workspace runtime sandboxes and runs bounded
// commands against them.
package sandbox

import (
	"fmt"
	"strings"
)

const (
	namePrefix = "sbx"

	// maxTokenLength bounds each name token; it leaves room for a full
	// workspace id. maxNameLength keeps the whole name a valid DNS label.
	maxTokenLength = 40
	maxNameLength  = 63
)

// Name builds the sandbox identifier sbx-{app}-{workspace}-{env}. Each
// token is lowercased and slugified; a token that slugifies to nothing, or
// a name over the length bound, is a validation error rather than a silent
// truncation, because truncation could collide two workspaces.
func Name(appID, workspaceID, env string) (string, error) {
	tokens := make([]string, 0, 4)
	tokens = append(tokens, namePrefix)
	for _, raw := range []string{appID, workspaceID, env} {
		token := slugify(raw)
		if token == "" {
			return "", fmt.Errorf("sandbox name token '%s' has no usable characters", raw)
		}
		if len(token) > maxTokenLength {
			return "", fmt.Errorf("sandbox name token '%s' exceeds %d characters", token, maxTokenLength)
		}
		tokens = append(tokens, token)
	}

	name := strings.Join(tokens, "-")
	if len(name) > maxNameLength {
		return "", fmt.Errorf("sandbox name '%s' exceeds %d characters", name, maxNameLength)
	}
	return name, nil
}

// slugify lowercases s, replaces anything outside [a-z0-9] with '-', then
// collapses runs and trims the ends.
func slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
