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

package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/google/uuid"

	"github.com/boringdata/boring-ui/internal/api/rest"
)

// UpstreamResolver maps a workspace to its runtime's base URL.
type UpstreamResolver interface {
	UpstreamURL(ctx context.Context, workspaceID string) (*url.URL, error)
}

// UpstreamResolverFunc adapts a function to UpstreamResolver.
type UpstreamResolverFunc func(ctx context.Context, workspaceID string) (*url.URL, error)

func (f UpstreamResolverFunc) UpstreamURL(ctx context.Context, workspaceID string) (*url.URL, error) {
	return f(ctx, workspaceID)
}

// WorkspaceProxy forwards workspace-plane requests to the workspace's
// runtime through the header security boundary, with every stream tracked
// in the registry so client disconnects cancel the upstream request.
type WorkspaceProxy struct {
	config   *SanitizerConfig
	registry *StreamRegistry
	resolver UpstreamResolver
	logger   *slog.Logger

	// transport overrides the default transport; tests point it at a
	// local httptest server.
	transport http.RoundTripper
}

func NewWorkspaceProxy(config *SanitizerConfig, registry *StreamRegistry, resolver UpstreamResolver, logger *slog.Logger) *WorkspaceProxy {
	return &WorkspaceProxy{
		config:   config,
		registry: registry,
		resolver: resolver,
		logger:   logger,
	}
}

// ServeWorkspace proxies one request to the workspace's runtime. The
// caller has already authenticated the request and resolved workspaceID.
func (p *WorkspaceProxy) ServeWorkspace(w http.ResponseWriter, r *http.Request, workspaceID string) {
	upstream, err := p.resolver.UpstreamURL(r.Context(), workspaceID)
	if err != nil {
		rest.WriteError(w, http.StatusBadGateway, rest.CodeUpstreamUnavailable,
			"workspace runtime is not reachable")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session, err := p.registry.Register(workspaceID, cancel)
	if err != nil {
		if errors.Is(err, ErrStreamLimitExceeded) {
			rest.WriteError(w, http.StatusTooManyRequests, rest.CodeStreamLimitExceeded,
				"workspace has too many concurrent streams")
			return
		}
		rest.WriteInternalServerError(w)
		return
	}
	defer session.Close()

	upstreamRequestID := uuid.NewString()
	logger := p.logger.With(
		"workspace_id", workspaceID,
		"stream_id", session.ID,
		"upstream_request_id", upstreamRequestID)

	reverseProxy := &httputil.ReverseProxy{
		// Negative FlushInterval flushes immediately, which SSE needs.
		FlushInterval: -1,
		Transport:     p.transport,
		Rewrite: func(request *httputil.ProxyRequest) {
			request.SetURL(upstream)
			request.Out.Header = p.config.SanitizeProxyHeaders(request.In.Header)
			request.Out.Header.Set(rest.HeaderNameWorkspaceID, workspaceID)
			request.Out.Header.Set(rest.HeaderNameUpstreamRequestID, upstreamRequestID)
			if requestID := request.In.Header.Get(rest.HeaderNameRequestID); requestID != "" {
				request.Out.Header.Set(rest.HeaderNameRequestID, requestID)
			}
		},
		ModifyResponse: func(response *http.Response) error {
			session.Activate()
			p.config.RedactResponseHeaders(response.Header)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			// Client cancellation is normal stream teardown, not an
			// upstream failure; the response is already dead anyway.
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("upstream request failed", "error", err.Error())
			rest.WriteError(w, http.StatusBadGateway, rest.CodeUpstreamUnavailable,
				"workspace runtime is not reachable")
		},
	}

	reverseProxy.ServeHTTP(w, r.WithContext(ctx))
}
