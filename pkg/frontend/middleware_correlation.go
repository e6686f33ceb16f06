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

	"github.com/google/uuid"

	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/utils"
)

// MiddlewareCorrelation assigns the request its correlation identifier,
// extends the contextual logger with it, and reflects it in the response
// header before any handler can start the body. An inbound X-Request-Id is
// honored only when the server is configured to trust its edge.
func (f *Frontend) MiddlewareCorrelation(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	ctx := r.Context()

	requestID := ""
	if f.trustRequestID {
		requestID = r.Header.Get(rest.HeaderNameRequestID)
	}
	if requestID == "" {
		requestID = uuid.NewString()
		r.Header.Set(rest.HeaderNameRequestID, requestID)
	}

	logger := utils.LoggerFromContext(ctx).With("request_id", requestID)
	ctx = utils.ContextWithLogger(ctx, logger)
	ctx = ContextWithRequestID(ctx, requestID)
	r = r.WithContext(ctx)

	w.Header().Set(rest.HeaderNameRequestID, requestID)

	next(w, r)
}
