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

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/boringdata/boring-ui/internal/api/rest"
)

const (
	// CSRFHeaderName is the request header mutating calls must echo.
	CSRFHeaderName = "X-CSRF-Token"

	csrfTokenBytes = 32
)

// NewCSRFToken returns a fresh random token for the session's sibling
// cookie.
func NewCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MutatingMethod reports whether the request method can change state and
// therefore requires a CSRF check under cookie authentication.
func MutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// CheckCSRF compares the X-CSRF-Token request header against the token
// minted for the session. The comparison is constant-time.
func CheckCSRF(r *http.Request, want string) error {
	got := r.Header.Get(CSRFHeaderName)
	if got == "" {
		return rest.NewError(http.StatusForbidden, rest.CodeCSRFInvalid,
			"missing %s header", CSRFHeaderName)
	}
	if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return rest.NewError(http.StatusForbidden, rest.CodeCSRFInvalid,
			"csrf token mismatch")
	}
	return nil
}
