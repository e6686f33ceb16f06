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

	"github.com/boringdata/boring-ui/internal/api/rest"
)

// AppConfigGet answers the branding and default release for the app the
// Host header resolved to.
func (f *Frontend) AppConfigGet(writer http.ResponseWriter, request *http.Request) {
	resolution, ok := ResolutionFromContext(request.Context())
	if !ok || resolution.Config == nil {
		rest.WriteError(writer, http.StatusNotFound, rest.CodeAppConfigNotFound,
			"no application configuration is registered for this host")
		return
	}

	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, resolution.Config)
}
