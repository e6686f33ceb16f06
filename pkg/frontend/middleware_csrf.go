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

package frontend

import (
	"errors"
	"net/http"

	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/auth"
)

// MiddlewareCSRF enforces the double-submit check on mutating requests
// authenticated by cookie. Bearer-authenticated requests carry no ambient
// credential a cross-site page could ride, so they pass through, as do
// safe methods.
func (f *Frontend) MiddlewareCSRF(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	claims := SessionClaimsFromContext(r.Context())
	if claims == nil || !auth.MutatingMethod(r.Method) {
		next(w, r)
		return
	}

	if err := auth.CheckCSRF(r, claims.CSRF); err != nil {
		var restErr *rest.Error
		if errors.As(err, &restErr) {
			rest.WriteRESTError(w, restErr)
		} else {
			rest.WriteError(w, http.StatusForbidden, rest.CodeCSRFInvalid,
				"csrf validation failed")
		}
		return
	}

	next(w, r)
}
