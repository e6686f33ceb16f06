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

package rest

const (
	// Correlation and workspace scoping
	HeaderNameRequestID         = "X-Request-Id"
	HeaderNameWorkspaceID       = "X-Workspace-Id"
	HeaderNameUpstreamRequestID = "X-Upstream-Request-Id"

	// Security
	HeaderNameCSRFToken    = "X-Csrf-Token"
	HeaderNameErrorCode    = "X-Error-Code"
	HeaderNameSpriteBearer = "X-Sprite-Bearer"

	// RFC 8594 deprecation signalling on legacy paths
	HeaderNameDeprecation = "Deprecation"
	HeaderNameSunset      = "Sunset"
	HeaderNameLink        = "Link"
)
