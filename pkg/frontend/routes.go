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

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (f *Frontend) routes() *MiddlewareMux {
	mux := NewMiddlewareMux(
		MiddlewarePanic,
		f.MiddlewareCorrelation,
		MiddlewareLogging,
		f.MiddlewareMetrics,
		MiddlewareBody,
		f.MiddlewareAppResolve,
		f.MiddlewareAuth,
		f.MiddlewareCSRF,
	)

	// Unauthenticated routes
	mux.HandleFunc("/", f.NotFound)
	mux.HandleFunc(MuxPattern(http.MethodGet, PatternHealthz), f.Healthz)
	mux.HandleFunc(MuxPattern(http.MethodGet, PatternReadyz), f.Readyz)
	mux.Handle(MuxPattern(http.MethodGet, PatternMetrics), promhttp.Handler())
	mux.HandleFunc(MuxPattern(http.MethodGet, PatternAuthCallback), f.AuthCallback)
	mux.HandleFunc(MuxPattern(http.MethodPost, PatternAuthLogout), f.AuthLogout)
	mux.HandleFunc(MuxPattern(http.MethodGet, PatternAppConfig), f.AppConfigGet)
	mux.HandleFunc(MuxPattern(http.MethodGet, PatternShareAccess), f.ShareAccess)
	mux.HandleFunc(MuxPattern(http.MethodPut, PatternShareAccess), f.ShareAccess)

	// Authenticated control-plane routes without a workspace scope
	mux.HandleFunc(MuxPattern(http.MethodGet, PatternMe), f.MeGet)
	mux.HandleFunc(MuxPattern(http.MethodGet, PatternWorkspaces), f.WorkspaceList)
	mux.HandleFunc(MuxPattern(http.MethodPost, PatternWorkspaces), f.WorkspaceCreate)
	mux.HandleFunc(MuxPattern(http.MethodGet, PatternActiveWorkspace), f.ActiveWorkspaceGet)
	mux.HandleFunc(MuxPattern(http.MethodPut, PatternActiveWorkspace), f.ActiveWorkspacePut)

	// Legacy alias, answered with RFC 8594 deprecation headers.
	legacyMiddleware := NewMiddleware(f.MiddlewareDeprecation)
	mux.Handle(
		MuxPattern(http.MethodGet, PatternActiveWorkspaceL),
		legacyMiddleware.HandlerFunc(f.ActiveWorkspaceGet))
	mux.Handle(
		MuxPattern(http.MethodPut, PatternActiveWorkspaceL),
		legacyMiddleware.HandlerFunc(f.ActiveWorkspacePut))

	// Workspace-scoped routes. The workspace-context middleware runs after
	// multiplexing so the path wildcard is available; it reconciles the
	// workspace id sources, loads the workspace, and enforces membership
	// and app context.
	postMuxMiddleware := NewMiddleware(f.MiddlewareWorkspaceContext)

	mux.Handle(
		MuxPattern(http.MethodGet, PatternWorkspace),
		postMuxMiddleware.HandlerFunc(f.WorkspaceGet))
	mux.Handle(
		MuxPattern(http.MethodPatch, PatternWorkspace),
		postMuxMiddleware.HandlerFunc(f.WorkspacePatch))
	mux.Handle(
		MuxPattern(http.MethodDelete, PatternWorkspace),
		postMuxMiddleware.HandlerFunc(f.WorkspaceDelete))
	mux.Handle(
		MuxPattern(http.MethodGet, PatternMembers),
		postMuxMiddleware.HandlerFunc(f.MemberList))
	mux.Handle(
		MuxPattern(http.MethodPost, PatternMembers),
		postMuxMiddleware.HandlerFunc(f.MemberInvite))
	mux.Handle(
		MuxPattern(http.MethodDelete, PatternMember),
		postMuxMiddleware.HandlerFunc(f.MemberRemove))
	mux.Handle(
		MuxPattern(http.MethodGet, PatternRuntime),
		postMuxMiddleware.HandlerFunc(f.RuntimeGet))
	mux.Handle(
		MuxPattern(http.MethodPost, PatternRuntime),
		postMuxMiddleware.HandlerFunc(f.RuntimeCreate))
	mux.Handle(
		MuxPattern(http.MethodPost, PatternRuntimeRetry),
		postMuxMiddleware.HandlerFunc(f.RuntimeRetry))
	mux.Handle(
		MuxPattern(http.MethodGet, PatternShares),
		postMuxMiddleware.HandlerFunc(f.ShareList))
	mux.Handle(
		MuxPattern(http.MethodPost, PatternShares),
		postMuxMiddleware.HandlerFunc(f.ShareCreate))
	mux.Handle(
		MuxPattern(http.MethodGet, PatternShare),
		postMuxMiddleware.HandlerFunc(f.ShareGet))
	mux.Handle(
		MuxPattern(http.MethodDelete, PatternShare),
		postMuxMiddleware.HandlerFunc(f.ShareRevoke))
	mux.Handle(
		MuxPattern(http.MethodGet, PatternAgentSessions),
		postMuxMiddleware.HandlerFunc(f.AgentSessionList))
	mux.Handle(
		MuxPattern(http.MethodPost, PatternAgentSessions),
		postMuxMiddleware.HandlerFunc(f.AgentSessionCreate))
	mux.Handle(
		MuxPattern(http.MethodDelete, PatternAgentSession),
		postMuxMiddleware.HandlerFunc(f.AgentSessionStop))

	// Everything else under /w/{workspace_id}/ belongs to the workspace
	// plane and is proxied to the workspace's runtime.
	mux.Handle(
		PatternWorkspaceProxy,
		postMuxMiddleware.HandlerFunc(f.WorkspaceProxy))

	return mux
}
