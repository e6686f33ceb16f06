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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/appconfig"
	"github.com/boringdata/boring-ui/internal/audit"
	"github.com/boringdata/boring-ui/internal/auth"
	"github.com/boringdata/boring-ui/internal/database"
	"github.com/boringdata/boring-ui/internal/provisioning"
	"github.com/boringdata/boring-ui/internal/proxy"
	"github.com/boringdata/boring-ui/internal/sharing"
	"github.com/boringdata/boring-ui/pkg/metrics"
)

// The definitions in this file are meant for unit tests.

const (
	testAudience     = "boring-ui"
	testIssuer       = "boring-ui-control-plane"
	testSpriteBearer = "test-sprite-bearer-0123456789"
)

var (
	testSessionKey = []byte("session-signing-key-0123456789ab")
	testBearerKey  = []byte("0123456789abcdef0123456789abcdef")
)

// testFrontend wires a Frontend over the in-memory store with a fake clock,
// a static-key verifier, and a prometheus registry tests can scrape.
type testFrontend struct {
	*Frontend

	db           *database.Cache
	clock        *clockwork.FakeClock
	promRegistry *prometheus.Registry

	// upstream is the fake workspace runtime the proxy resolves to. Tests
	// that proxy set it from an httptest.Server URL.
	upstream *url.URL
}

func newTestFrontend(t *testing.T, tweaks ...func(*FrontendOptions)) *testFrontend {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC))
	logger := api.NewTestLogger()
	promRegistry := prometheus.NewRegistry()

	fx := &testFrontend{
		db:           database.NewCache(),
		clock:        clock,
		promRegistry: promRegistry,
	}

	appRegistry, err := appconfig.NewRegistry([]appconfig.Registration{
		{Hosts: []string{api.TestHost}, Config: *api.TestAppConfig()},
	}, "")
	require.NoError(t, err)

	sessions, err := auth.NewSessionManager(auth.SessionManagerConfig{
		SigningKey: testSessionKey,
		Issuer:     testIssuer,
		Audience:   testAudience,
		Clock:      clock,
	})
	require.NoError(t, err)

	resolveUpstream := proxy.UpstreamResolverFunc(func(ctx context.Context, workspaceID string) (*url.URL, error) {
		if fx.upstream == nil {
			return nil, fmt.Errorf("workspace '%s' has no runtime", workspaceID)
		}
		return fx.upstream, nil
	})

	opts := FrontendOptions{
		Logger:   logger,
		Metrics:  metrics.NewPrometheusEmitter(promRegistry),
		DBClient: fx.db,
		Resolver: appconfig.NewResolver(appRegistry),
		Verifier: auth.NewTokenVerifier(
			auth.NewStaticKeyProvider(testBearerKey), testAudience, clock),
		Sessions: sessions,
		Provisioning: provisioning.NewService(fx.db,
			provisioning.NewMachine(provisioning.DefaultStepTimeouts(), clock), clock),
		Sharing: sharing.NewService(fx.db, clock),
		Auditor: audit.NewRecorder(fx.db, clock),
		Proxy: proxy.NewWorkspaceProxy(
			proxy.NewSanitizerConfig(testSpriteBearer, nil),
			proxy.NewStreamRegistry(8, clock),
			resolveUpstream, logger),
		Clock: clock,
	}
	for _, tweak := range tweaks {
		tweak(&opts)
	}

	fx.Frontend = NewFrontend(opts)
	return fx
}

// serveUpstream points the proxy at server and tears the binding down with
// the test.
func (fx *testFrontend) serveUpstream(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	upstream, err := url.Parse(server.URL)
	require.NoError(t, err)
	fx.upstream = upstream
	return server
}

func (fx *testFrontend) do(request *http.Request) *httptest.ResponseRecorder {
	writer := httptest.NewRecorder()
	fx.server.Handler.ServeHTTP(writer, request)
	return writer
}

// newRequest builds a request against the fixture host. A non-nil body is
// JSON-encoded.
func (fx *testFrontend) newRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, target, reader)
	request.Host = api.TestHost
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	return request
}

// bearerFor mints a bearer credential the fixture's verifier accepts.
func (fx *testFrontend) bearerFor(t *testing.T, userID, email string) string {
	t.Helper()

	now := fx.clock.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"aud":   testAudience,
		"email": email,
		"role":  "admin",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(testBearerKey)
	require.NoError(t, err)
	return token
}

func (fx *testFrontend) authenticate(t *testing.T, request *http.Request, userID, email string) {
	t.Helper()
	request.Header.Set("Authorization", "Bearer "+fx.bearerFor(t, userID, email))
}

// sessionFor issues a browser session straight from the session manager.
func (fx *testFrontend) sessionFor(t *testing.T, userID, email, activeWorkspace string) *auth.Session {
	t.Helper()
	session, err := fx.sessions.Issue(auth.Identity{UserID: userID, Email: email, Role: "admin"}, activeWorkspace)
	require.NoError(t, err)
	return session
}

// withSession attaches the session and CSRF cookies, and for mutating
// methods echoes the CSRF token in the header.
func withSession(request *http.Request, session *auth.Session) {
	request.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: session.Token})
	request.AddCookie(&http.Cookie{Name: auth.CSRFCookieName, Value: session.CSRFToken})
	if auth.MutatingMethod(request.Method) {
		request.Header.Set(auth.CSRFHeaderName, session.CSRFToken)
	}
}

// seedWorkspace stores the fixture workspace with its owner as an active
// admin member.
func (fx *testFrontend) seedWorkspace(t *testing.T) *api.Workspace {
	t.Helper()

	workspace := api.MinimumValidWorkspace()
	require.NoError(t, fx.db.CreateWorkspaceDoc(context.Background(), workspace))
	fx.seedMember(t, workspace.ID, api.TestUserID, api.TestUserEmail, api.MemberStatusActive)
	return workspace
}

func (fx *testFrontend) seedMember(t *testing.T, workspaceID, userID, email string, status api.MemberStatus) *api.Member {
	t.Helper()

	member := &api.Member{
		ID:          api.NewMemberID(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Email:       api.NormalizeEmail(email),
		Role:        api.MemberRoleAdmin,
		Status:      status,
		InvitedBy:   api.TestUserID,
		CreatedAt:   fx.clock.Now().UTC(),
	}
	if status == api.MemberStatusPending {
		member.UserID = ""
	}
	require.NoError(t, fx.db.CreateMemberDoc(context.Background(), member))
	return member
}

// auditActions returns the recorded audit actions for a workspace in
// reader order.
func (fx *testFrontend) auditActions(t *testing.T, workspaceID string) []string {
	t.Helper()

	var actions []string
	iterator := fx.db.ListAuditDocs(workspaceID, -1, nil)
	for _, event := range iterator.Items(context.Background()) {
		actions = append(actions, event.Action)
	}
	require.NoError(t, iterator.GetError())
	return actions
}

// counterValue sums a counter across label sets; zero when the metric has
// not been emitted.
func (fx *testFrontend) counterValue(t *testing.T, name string) float64 {
	t.Helper()

	families, err := fx.promRegistry.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

// decodeJSON unmarshals a recorded response body.
func decodeJSON[T any](t *testing.T, writer *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(writer.Body.Bytes(), &out))
	return out
}

// requireErrorCode asserts the response status, envelope code, and the
// mirrored X-Error-Code header.
func requireErrorCode(t *testing.T, writer *httptest.ResponseRecorder, statusCode int, code string) *rest.Error {
	t.Helper()

	require.Equal(t, statusCode, writer.Code, writer.Body.String())
	restErr := decodeJSON[*rest.Error](t, writer)
	require.Equal(t, code, restErr.Code)
	require.Equal(t, code, writer.Header().Get(rest.HeaderNameErrorCode))
	return restErr
}
