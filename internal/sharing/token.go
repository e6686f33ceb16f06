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

// Package sharing implements share links: random bearer tokens stored only
// as hashes, exact-path grants, expiry and revocation, and the redaction
// helpers that keep token material out of audit trails and logs.
package sharing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
)

const (
	tokenBytes = 32

	// tokenEncodedLength is the length of an unpadded URL-safe token.
	tokenEncodedLength = 43

	redactPrefixLength = 8

	// RedactionMarker replaces token material in audit payloads and logs.
	RedactionMarker = "[REDACTED]"
)

// tokenShapedPattern matches runs long enough to be a token or another
// base64url credential segment. Entity ids (prefix plus 32 hex chars) stay
// under the threshold.
var tokenShapedPattern = regexp.MustCompile(`[A-Za-z0-9_-]{43,}`)

// NewToken returns a fresh URL-safe share token. The caller hands it to the
// requesting user once; only its hash is ever persisted.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 digest under which a token is stored
// and looked up. Deterministic, 64 hex characters.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// RedactToken keeps a short identifying prefix and replaces the rest with
// the redaction marker. Audit events record tokens in this form.
func RedactToken(token string) string {
	if len(token) <= redactPrefixLength {
		return RedactionMarker
	}
	return token[:redactPrefixLength] + RedactionMarker
}

// RedactTokens replaces every token-shaped substring in s with the
// redaction marker. Run it over anything derived from request input before
// it reaches a log line or an audit payload.
func RedactTokens(s string) string {
	return tokenShapedPattern.ReplaceAllString(s, RedactionMarker)
}
