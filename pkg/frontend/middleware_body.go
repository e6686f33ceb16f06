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
	"io"
	"net/http"
	"strings"

	"github.com/boringdata/boring-ui/internal/api/rest"
)

const megabyte int64 = 1 << 20

// MiddlewareBody reads and bounds the request body for mutating methods so
// handlers can unmarshal from context instead of re-reading the stream.
// Workspace-plane paths are skipped: proxied bodies stream through as-is.
func MiddlewareBody(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if strings.HasPrefix(r.URL.Path, "/w/") || strings.HasPrefix(r.URL.Path, "/share/") {
		next(w, r)
		return
	}

	switch r.Method {
	case http.MethodPatch, http.MethodPost, http.MethodPut:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4*megabyte))
		if err != nil {
			rest.WriteError(
				w, http.StatusBadRequest,
				rest.CodeInvalidRequestBody,
				"the request body could not be read")
			return
		}

		contentType := strings.SplitN(r.Header.Get("Content-Type"), ";", 2)[0]

		if !strings.EqualFold(contentType, "application/json") && (len(body) > 0 || contentType != "") {
			rest.WriteError(
				w, http.StatusUnsupportedMediaType,
				rest.CodeInvalidRequestBody,
				"the content media type '%s' is not supported, only 'application/json' is supported",
				r.Header.Get("Content-Type"))
			return
		}

		ctx := ContextWithBody(r.Context(), body)
		r = r.WithContext(ctx)
	}

	next(w, r)
}
