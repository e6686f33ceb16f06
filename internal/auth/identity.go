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

// Package auth verifies bearer credentials, manages browser sessions, and
// guards mutating requests against cross-site forgery. Credential values
// never appear in errors or log output.
package auth

import (
	"github.com/boringdata/boring-ui/internal/api"
)

// Identity is the authenticated principal attached to a request after a
// credential verifies.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Normalize lowercases the identity's email the way member records store it.
func (i Identity) Normalize() Identity {
	i.Email = api.NormalizeEmail(i.Email)
	return i
}
