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
	"strings"
)

// WorkspaceProxy is the workspace-plane catch-all. The workspace-context
// middleware has already authenticated the caller, enforced membership, and
// loaded the workspace; what is left is forwarding the request to the
// workspace's runtime with the "/w/{id}" mount point stripped.
func (f *Frontend) WorkspaceProxy(writer http.ResponseWriter, request *http.Request) {
	workspace := WorkspaceFromContext(request.Context())

	mount := "/w/" + request.PathValue(PathSegmentWorkspaceID)
	upstreamPath := strings.TrimPrefix(request.URL.Path, mount)
	if upstreamPath == "" {
		upstreamPath = "/"
	}

	forwarded := request.Clone(request.Context())
	forwarded.URL.Path = upstreamPath
	forwarded.URL.RawPath = ""

	f.wsproxy.ServeWorkspace(writer, forwarded, workspace.ID)
}
