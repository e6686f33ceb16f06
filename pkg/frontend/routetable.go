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
	"strings"
)

// Path wildcard names used in mux patterns.
const (
	PathSegmentWorkspaceID = "workspace_id"
	PathSegmentMemberID    = "member_id"
	PathSegmentShareID     = "share_id"
	PathSegmentSessionID   = "session_id"
	PathSegmentToken       = "token"
)

// RoutePlane classifies who owns a route: the control plane answers it
// itself, the workspace plane forwards to the workspace's runtime.
type RoutePlane string

const (
	PlaneControl   RoutePlane = "control"
	PlaneWorkspace RoutePlane = "workspace"
)

// Route is one entry of the immutable route table.
type Route struct {
	// Pattern is the http.ServeMux pattern, without the method.
	Pattern string

	Plane RoutePlane

	// RequiresWorkspace marks routes that act on a specific workspace.
	// The workspace-context middleware runs only for these.
	RequiresWorkspace bool

	// Exempt marks routes the auth guard skips: health probes, metrics,
	// the auth callback, and public share access.
	Exempt bool

	// Deprecated marks legacy aliases that answer with RFC 8594
	// Deprecation/Sunset headers.
	Deprecated bool
}

// Route patterns. The table below and the mux registrations in routes.go
// reference these constants, so the two cannot drift apart silently.
const (
	PatternHealthz          = "/healthz"
	PatternReadyz           = "/readyz"
	PatternMetrics          = "/metrics"
	PatternAuthCallback     = "/auth/callback"
	PatternAuthLogout       = "/auth/logout"
	PatternAppConfig        = "/api/v1/app-config"
	PatternMe               = "/api/v1/me"
	PatternWorkspaces       = "/api/v1/workspaces"
	PatternWorkspace        = "/api/v1/workspaces/{" + PathSegmentWorkspaceID + "}"
	PatternMembers          = PatternWorkspace + "/members"
	PatternMember           = PatternMembers + "/{" + PathSegmentMemberID + "}"
	PatternActiveWorkspace  = "/api/v1/session/active-workspace"
	PatternActiveWorkspaceL = "/api/v1/active-workspace"
	PatternRuntime          = "/w/{" + PathSegmentWorkspaceID + "}/api/v1/runtime"
	PatternRuntimeRetry     = PatternRuntime + "/retry"
	PatternShares           = "/w/{" + PathSegmentWorkspaceID + "}/api/v1/shares"
	PatternShare            = PatternShares + "/{" + PathSegmentShareID + "}"
	PatternAgentSessions    = "/w/{" + PathSegmentWorkspaceID + "}/api/v1/agent/sessions"
	PatternAgentSession     = PatternAgentSessions + "/{" + PathSegmentSessionID + "}"
	PatternShareAccess      = "/share/{" + PathSegmentToken + "}"
	PatternWorkspaceProxy   = "/w/{" + PathSegmentWorkspaceID + "}/"
)

// routeTable is the authoritative classification of every route the control
// plane serves. It is populated once at package init and never mutated.
var routeTable = []Route{
	{Pattern: PatternHealthz, Plane: PlaneControl, Exempt: true},
	{Pattern: PatternReadyz, Plane: PlaneControl, Exempt: true},
	{Pattern: PatternMetrics, Plane: PlaneControl, Exempt: true},
	{Pattern: PatternAuthCallback, Plane: PlaneControl, Exempt: true},
	{Pattern: PatternAuthLogout, Plane: PlaneControl, Exempt: true},
	{Pattern: PatternAppConfig, Plane: PlaneControl, Exempt: true},
	{Pattern: PatternShareAccess, Plane: PlaneControl, Exempt: true},
	{Pattern: PatternMe, Plane: PlaneControl},
	{Pattern: PatternWorkspaces, Plane: PlaneControl},
	{Pattern: PatternWorkspace, Plane: PlaneControl, RequiresWorkspace: true},
	{Pattern: PatternMembers, Plane: PlaneControl, RequiresWorkspace: true},
	{Pattern: PatternMember, Plane: PlaneControl, RequiresWorkspace: true},
	{Pattern: PatternActiveWorkspace, Plane: PlaneControl},
	{Pattern: PatternActiveWorkspaceL, Plane: PlaneControl, Deprecated: true},
	{Pattern: PatternRuntime, Plane: PlaneControl, RequiresWorkspace: true},
	{Pattern: PatternRuntimeRetry, Plane: PlaneControl, RequiresWorkspace: true},
	{Pattern: PatternShares, Plane: PlaneControl, RequiresWorkspace: true},
	{Pattern: PatternShare, Plane: PlaneControl, RequiresWorkspace: true},
	{Pattern: PatternAgentSessions, Plane: PlaneControl, RequiresWorkspace: true},
	{Pattern: PatternAgentSession, Plane: PlaneControl, RequiresWorkspace: true},
	{Pattern: PatternWorkspaceProxy, Plane: PlaneWorkspace, RequiresWorkspace: true},
}

var routesByPattern = func() map[string]*Route {
	byPattern := make(map[string]*Route, len(routeTable))
	for i := range routeTable {
		byPattern[routeTable[i].Pattern] = &routeTable[i]
	}
	return byPattern
}()

// RouteForPattern returns the table entry for a matched mux pattern, or nil
// for patterns outside the table (the catch-all NotFound handler).
func RouteForPattern(pattern string) *Route {
	// Mux patterns registered with a method come back as "METHOD /path".
	if _, path, found := strings.Cut(pattern, " "); found {
		pattern = path
	}
	return routesByPattern[pattern]
}

// ExemptPath reports whether the auth guard skips the request path. The
// guard runs before multiplexing, so this matches on path prefixes rather
// than patterns.
func ExemptPath(path string) bool {
	for _, prefix := range []string{"/healthz", "/readyz", "/metrics", "/auth/", "/share/", "/api/v1/app-config"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// MuxPattern forms a URL pattern suitable for passing to http.ServeMux.
func MuxPattern(method string, pattern string) string {
	return fmt.Sprintf("%s %s", method, pattern)
}
