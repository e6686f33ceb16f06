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
	"fmt"
	"net/http"
	"time"

	"github.com/boringdata/boring-ui/internal/api/rest"
)

// legacyActiveWorkspaceSunset is when the /api/v1/active-workspace alias
// stops being served. Clients should move to /api/v1/session/active-workspace.
var legacyActiveWorkspaceSunset = time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC)

// MiddlewareDeprecation adds RFC 8594 deprecation signalling to legacy
// routes. Headers go out before the handler can start the body.
func (f *Frontend) MiddlewareDeprecation(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	w.Header().Set(rest.HeaderNameDeprecation, "true")
	w.Header().Set(rest.HeaderNameSunset, legacyActiveWorkspaceSunset.Format(http.TimeFormat))
	w.Header().Set(rest.HeaderNameLink, fmt.Sprintf("<%s>; rel=\"successor-version\"", PatternActiveWorkspace))

	next(w, r)
}
