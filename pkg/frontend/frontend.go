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

// Package frontend is the HTTP surface of the workspace control plane. It
// authenticates users, owns the control-plane routes, and forwards
// workspace-plane traffic to per-workspace runtimes.
package frontend

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"

	validator "github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/appconfig"
	"github.com/boringdata/boring-ui/internal/audit"
	"github.com/boringdata/boring-ui/internal/auth"
	"github.com/boringdata/boring-ui/internal/database"
	"github.com/boringdata/boring-ui/internal/provisioning"
	"github.com/boringdata/boring-ui/internal/proxy"
	"github.com/boringdata/boring-ui/internal/sharing"
	"github.com/boringdata/boring-ui/internal/utils"
	"github.com/boringdata/boring-ui/pkg/metrics"
)

const ProgramName = "Workspace Control Plane"

// FrontendOptions collects the collaborators a Frontend needs. Every field
// except TrustRequestID and Clock is required.
type FrontendOptions struct {
	Logger   *slog.Logger
	Listener net.Listener
	Metrics  metrics.Emitter
	DBClient database.DBClient

	Resolver     *appconfig.Resolver
	Verifier     *auth.TokenVerifier
	Sessions     *auth.SessionManager
	Provisioning *provisioning.Service
	Sharing      *sharing.Service
	Auditor      *audit.Recorder
	Proxy        *proxy.WorkspaceProxy

	// TrustRequestID honors an inbound X-Request-Id header instead of
	// generating one. Enable only behind a trusted edge proxy.
	TrustRequestID bool

	Clock clockwork.Clock
}

type Frontend struct {
	logger   *slog.Logger
	listener net.Listener
	server   http.Server
	metrics  metrics.Emitter
	dbClient database.DBClient

	resolver     *appconfig.Resolver
	verifier     *auth.TokenVerifier
	sessions     *auth.SessionManager
	provisioning *provisioning.Service
	sharing      *sharing.Service
	auditor      *audit.Recorder
	wsproxy      *proxy.WorkspaceProxy

	validate       *validator.Validate
	trustRequestID bool
	clock          clockwork.Clock

	ready atomic.Value
	done  chan struct{}
}

func NewFrontend(opts FrontendOptions) *Frontend {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	f := &Frontend{
		logger:   opts.Logger,
		listener: opts.Listener,
		metrics:  opts.Metrics,
		dbClient: opts.DBClient,
		server: http.Server{
			ErrorLog: slog.NewLogLogger(opts.Logger.Handler(), slog.LevelError),
			BaseContext: func(net.Listener) context.Context {
				return utils.ContextWithLogger(context.Background(), opts.Logger)
			},
		},
		resolver:       opts.Resolver,
		verifier:       opts.Verifier,
		sessions:       opts.Sessions,
		provisioning:   opts.Provisioning,
		sharing:        opts.Sharing,
		auditor:        opts.Auditor,
		wsproxy:        opts.Proxy,
		validate:       api.NewValidator(),
		trustRequestID: opts.TrustRequestID,
		clock:          opts.Clock,
		done:           make(chan struct{}),
	}

	f.server.Handler = f.routes()

	return f
}

func (f *Frontend) Run(ctx context.Context, stop <-chan struct{}) {
	if stop != nil {
		go func() {
			<-stop
			f.ready.Store(false)
			_ = f.server.Shutdown(ctx)
		}()
	}

	f.logger.Info(fmt.Sprintf("listening on %s", f.listener.Addr().String()))

	f.ready.Store(true)

	err := f.server.Serve(f.listener)
	if err != http.ErrServerClosed {
		f.logger.Error(err.Error())
		os.Exit(1)
	}

	close(f.done)
}

func (f *Frontend) Join() {
	<-f.done
}

func (f *Frontend) CheckReady() bool {
	ready, ok := f.ready.Load().(bool)
	return ok && ready
}

func (f *Frontend) NotFound(writer http.ResponseWriter, request *http.Request) {
	rest.WriteError(
		writer, http.StatusNotFound,
		rest.CodeNotFound,
		"the requested path could not be found")
}

func (f *Frontend) Healthz(writer http.ResponseWriter, request *http.Request) {
	writer.WriteHeader(http.StatusOK)
}

func (f *Frontend) Readyz(writer http.ResponseWriter, request *http.Request) {
	var healthStatus float64
	if f.CheckReady() && f.dbClient.DBConnectionTest(request.Context()) == nil {
		writer.WriteHeader(http.StatusOK)
		healthStatus = 1.0
	} else {
		writer.WriteHeader(http.StatusInternalServerError)
		healthStatus = 0.0
	}

	f.metrics.EmitGauge("frontend_health", healthStatus, map[string]string{
		"endpoint": PatternReadyz,
	})
}
