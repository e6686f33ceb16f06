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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/auth"
)

func sessionCookies(writer http.ResponseWriter) map[string]*http.Cookie {
	cookies := map[string]*http.Cookie{}
	response := http.Response{Header: writer.Header()}
	for _, cookie := range response.Cookies() {
		cookies[cookie.Name] = cookie
	}
	return cookies
}

func TestAuthCallback(t *testing.T) {
	fx := newTestFrontend(t)

	token := fx.bearerFor(t, api.TestUserID, api.TestUserEmail)
	request := fx.newRequest(t, http.MethodGet, "/auth/callback?token="+token, nil)

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())

	identity := decodeJSON[auth.Identity](t, writer)
	assert.Equal(t, api.TestUserID, identity.UserID)

	cookies := sessionCookies(writer)
	require.Contains(t, cookies, auth.SessionCookieName)
	require.Contains(t, cookies, auth.CSRFCookieName)
	assert.True(t, cookies[auth.SessionCookieName].HttpOnly)
	assert.False(t, cookies[auth.CSRFCookieName].HttpOnly)

	claims, err := fx.sessions.Parse(cookies[auth.SessionCookieName].Value)
	require.NoError(t, err)
	assert.Equal(t, api.TestUserID, claims.Subject)
	assert.Equal(t, cookies[auth.CSRFCookieName].Value, claims.CSRF)
}

// A session id fixated before login never survives authentication: the
// callback always mints a fresh session.
func TestAuthCallbackFixationProtection(t *testing.T) {
	fx := newTestFrontend(t)

	stale := fx.sessionFor(t, api.TestOtherUserID, "other@example.com", "")

	token := fx.bearerFor(t, api.TestUserID, api.TestUserEmail)
	request := fx.newRequest(t, http.MethodGet, "/auth/callback?token="+token, nil)
	withSession(request, stale)

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())

	cookies := sessionCookies(writer)
	claims, err := fx.sessions.Parse(cookies[auth.SessionCookieName].Value)
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, claims.ID)
	assert.Equal(t, api.TestUserID, claims.Subject)
}

func TestAuthCallbackFailures(t *testing.T) {
	fx := newTestFrontend(t)

	tests := []struct {
		name   string
		target string
	}{
		{name: "no token", target: "/auth/callback"},
		{name: "bad token", target: "/auth/callback?token=not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := fx.do(fx.newRequest(t, http.MethodGet, tt.target, nil))
			requireErrorCode(t, writer, http.StatusUnauthorized, rest.CodeAuthCallbackFailed)
			assert.Empty(t, sessionCookies(writer))
		})
	}
}

func TestAuthLogout(t *testing.T) {
	fx := newTestFrontend(t)

	writer := fx.do(fx.newRequest(t, http.MethodPost, "/auth/logout", nil))
	require.Equal(t, http.StatusNoContent, writer.Code)

	cookies := sessionCookies(writer)
	require.Contains(t, cookies, auth.SessionCookieName)
	require.Contains(t, cookies, auth.CSRFCookieName)
	for _, cookie := range cookies {
		assert.Less(t, cookie.MaxAge, 0, cookie.Name)
	}
}

func TestActiveWorkspaceRequiresSession(t *testing.T) {
	fx := newTestFrontend(t)

	// Bearer-authenticated requests have no session to select into.
	request := fx.newRequest(t, http.MethodGet, "/api/v1/session/active-workspace", nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)

	writer := fx.do(request)
	requireErrorCode(t, writer, http.StatusUnauthorized, rest.CodeInvalidSession)
}

func TestActiveWorkspaceGet(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	t.Run("none selected", func(t *testing.T) {
		request := fx.newRequest(t, http.MethodGet, "/api/v1/session/active-workspace", nil)
		withSession(request, fx.sessionFor(t, api.TestUserID, api.TestUserEmail, ""))

		writer := fx.do(request)
		requireErrorCode(t, writer, http.StatusNotFound, rest.CodeNotFound)
	})

	t.Run("selected", func(t *testing.T) {
		request := fx.newRequest(t, http.MethodGet, "/api/v1/session/active-workspace", nil)
		withSession(request, fx.sessionFor(t, api.TestUserID, api.TestUserEmail, workspace.ID))

		writer := fx.do(request)
		require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())
		body := decodeJSON[activeWorkspaceBody](t, writer)
		assert.Equal(t, workspace.ID, body.WorkspaceID)
	})
}

func TestActiveWorkspacePut(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	session := fx.sessionFor(t, api.TestUserID, api.TestUserEmail, "")
	request := fx.newRequest(t, http.MethodPut, "/api/v1/session/active-workspace",
		activeWorkspaceBody{WorkspaceID: workspace.ID})
	withSession(request, session)

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())

	cookies := sessionCookies(writer)
	require.Contains(t, cookies, auth.SessionCookieName)
	claims, err := fx.sessions.Parse(cookies[auth.SessionCookieName].Value)
	require.NoError(t, err)
	assert.Equal(t, workspace.ID, claims.ActiveWorkspace)
}

// Selecting a workspace the caller is not an active member of answers the
// same 404 a nonexistent workspace would.
func TestActiveWorkspacePutHidesForeignWorkspaces(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	tests := []struct {
		name        string
		workspaceID string
	}{
		{name: "nonexistent workspace", workspaceID: api.TestOtherWorkspaceID},
		{name: "not a member", workspaceID: workspace.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := fx.sessionFor(t, api.TestOtherUserID, "other@example.com", "")
			request := fx.newRequest(t, http.MethodPut, "/api/v1/session/active-workspace",
				activeWorkspaceBody{WorkspaceID: tt.workspaceID})
			withSession(request, session)

			writer := fx.do(request)
			requireErrorCode(t, writer, http.StatusNotFound, rest.CodeWorkspaceNotFound)
		})
	}
}

// The legacy alias still works but announces its sunset.
func TestActiveWorkspaceLegacyAlias(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	request := fx.newRequest(t, http.MethodGet, "/api/v1/active-workspace", nil)
	withSession(request, fx.sessionFor(t, api.TestUserID, api.TestUserEmail, workspace.ID))

	writer := fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())

	assert.Equal(t, "true", writer.Header().Get(rest.HeaderNameDeprecation))
	sunset, err := http.ParseTime(writer.Header().Get(rest.HeaderNameSunset))
	require.NoError(t, err)
	assert.Equal(t, legacyActiveWorkspaceSunset, sunset.UTC())
	assert.Contains(t, writer.Header().Get(rest.HeaderNameLink), `rel="successor-version"`)
	assert.Contains(t, writer.Header().Get(rest.HeaderNameLink), PatternActiveWorkspace)

	// The canonical path carries no deprecation signalling.
	request = fx.newRequest(t, http.MethodGet, "/api/v1/session/active-workspace", nil)
	withSession(request, fx.sessionFor(t, api.TestUserID, api.TestUserEmail, workspace.ID))
	writer = fx.do(request)
	require.Equal(t, http.StatusOK, writer.Code)
	assert.Empty(t, writer.Header().Get(rest.HeaderNameDeprecation))
}
