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
	"context"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/appconfig"
	"github.com/boringdata/boring-ui/internal/auth"
)

type contextKey int

const (
	// Keys for request-scoped data in http.Request contexts
	contextKeyPattern contextKey = iota
	contextKeyRequestID
	contextKeyBody
	contextKeyResolution
	contextKeyIdentity
	contextKeySessionClaims
	contextKeyWorkspace
)

func ContextWithPattern(ctx context.Context, pattern *string) context.Context {
	return context.WithValue(ctx, contextKeyPattern, pattern)
}

// PatternFromContext returns the mux pattern the request matched, or an
// empty string before multiplexing has occurred.
func PatternFromContext(ctx context.Context) string {
	pattern, ok := ctx.Value(contextKeyPattern).(*string)
	if !ok || pattern == nil {
		return ""
	}
	return *pattern
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestIDFromContext returns the request's correlation identifier. Every
// request gets one in the correlation middleware, so an empty result means
// the caller is outside the request path.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(contextKeyRequestID).(string)
	return requestID
}

func ContextWithBody(ctx context.Context, body []byte) context.Context {
	return context.WithValue(ctx, contextKeyBody, body)
}

// BodyFromContext returns the request body captured by MiddlewareBody.
func BodyFromContext(ctx context.Context) []byte {
	body, _ := ctx.Value(contextKeyBody).([]byte)
	return body
}

func ContextWithResolution(ctx context.Context, resolution appconfig.Resolution) context.Context {
	return context.WithValue(ctx, contextKeyResolution, resolution)
}

// ResolutionFromContext returns the host-resolved app identity, if the
// request's Host header resolved to one.
func ResolutionFromContext(ctx context.Context) (appconfig.Resolution, bool) {
	resolution, ok := ctx.Value(contextKeyResolution).(appconfig.Resolution)
	return resolution, ok
}

func ContextWithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

// IdentityFromContext returns the authenticated principal attached by the
// auth guard. The second result is false on exempt (unauthenticated) paths.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity).(auth.Identity)
	return identity, ok
}

func ContextWithSessionClaims(ctx context.Context, claims *auth.SessionClaims) context.Context {
	return context.WithValue(ctx, contextKeySessionClaims, claims)
}

// SessionClaimsFromContext returns the parsed session cookie claims when
// the request authenticated with a cookie rather than a bearer credential.
func SessionClaimsFromContext(ctx context.Context) *auth.SessionClaims {
	claims, _ := ctx.Value(contextKeySessionClaims).(*auth.SessionClaims)
	return claims
}

func ContextWithWorkspace(ctx context.Context, workspace *api.Workspace) context.Context {
	return context.WithValue(ctx, contextKeyWorkspace, workspace)
}

// WorkspaceFromContext returns the workspace document loaded by the
// workspace-context middleware for workspace-scoped routes.
func WorkspaceFromContext(ctx context.Context) *api.Workspace {
	workspace, _ := ctx.Value(contextKeyWorkspace).(*api.Workspace)
	return workspace
}
