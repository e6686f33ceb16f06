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
	"net/http"

	"github.com/boringdata/boring-ui/internal/utils"
)

// MiddlewareAppResolve maps the Host header to an app identity and attaches
// the resolution to the request context. An unresolvable host is not an
// error here; routes that need the app surface their own failure, and the
// app-context check downstream is a no-op without a resolution.
func (f *Frontend) MiddlewareAppResolve(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	ctx := r.Context()

	resolution, err := f.resolver.Resolve(r.Host)
	if err == nil {
		ctx = ContextWithResolution(ctx, resolution)
		ctx = utils.ContextWithLogger(ctx,
			utils.LoggerFromContext(ctx).With("app_id", resolution.AppID))
		r = r.WithContext(ctx)
	}

	next(w, r)
}
