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
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
)

// shareFixture seeds a workspace with one share link and a fake runtime
// recording what reaches it.
type shareFixture struct {
	*testFrontend

	workspace *api.Workspace
	share     api.ShareCreateResponse

	upstreamPath   string
	upstreamHeader http.Header
}

func newShareFixture(t *testing.T, access api.ShareAccess) *shareFixture {
	t.Helper()

	fx := &shareFixture{testFrontend: newTestFrontend(t)}
	fx.workspace = fx.seedWorkspace(t)
	fx.share = fx.createShare(t, fx.workspace.ID, api.ShareCreateRequest{
		Path:           "/docs/report.pdf",
		Access:         access,
		ExpiresInHours: 24,
	})

	fx.serveUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fx.upstreamPath = r.URL.Path
		fx.upstreamHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("file-content"))
	}))

	return fx
}

func TestShareAccessRead(t *testing.T) {
	fx := newShareFixture(t, api.ShareAccessRead)

	writer := fx.do(fx.newRequest(t, http.MethodGet, "/share/"+fx.share.Token, nil))
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())
	assert.Equal(t, "file-content", writer.Body.String())

	// The runtime sees the shared path, never the token.
	assert.Equal(t, "/docs/report.pdf", fx.upstreamPath)
	assert.Equal(t, testSpriteBearer, fx.upstreamHeader.Get(rest.HeaderNameSpriteBearer))

	assert.Contains(t, fx.auditActions(t, fx.workspace.ID), api.AuditShareAccessed)
}

// An explicit ?path= naming the granted path is accepted; any other path is
// refused without revealing what the link points at.
func TestShareAccessExplicitPath(t *testing.T) {
	fx := newShareFixture(t, api.ShareAccessRead)

	target := "/share/" + fx.share.Token + "?path=" + url.QueryEscape("/docs/report.pdf")
	writer := fx.do(fx.newRequest(t, http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())

	target = "/share/" + fx.share.Token + "?path=" + url.QueryEscape("/docs/other.pdf")
	writer = fx.do(fx.newRequest(t, http.MethodGet, target, nil))
	requireErrorCode(t, writer, http.StatusForbidden, rest.CodePathMismatch)
}

func TestShareAccessTraversal(t *testing.T) {
	fx := newShareFixture(t, api.ShareAccessRead)

	target := "/share/" + fx.share.Token + "?path=" + url.QueryEscape("/docs/../secret")
	writer := fx.do(fx.newRequest(t, http.MethodGet, target, nil))
	requireErrorCode(t, writer, http.StatusBadRequest, rest.CodePathTraversal)
}

func TestShareAccessUnknownToken(t *testing.T) {
	fx := newShareFixture(t, api.ShareAccessRead)

	writer := fx.do(fx.newRequest(t, http.MethodGet, "/share/not-the-token", nil))
	requireErrorCode(t, writer, http.StatusNotFound, rest.CodeShareNotFound)
}

func TestShareAccessRevoked(t *testing.T) {
	fx := newShareFixture(t, api.ShareAccessRead)

	request := fx.newRequest(t, http.MethodDelete,
		"/w/"+fx.workspace.ID+"/api/v1/shares/"+fx.share.ID, nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)
	require.Equal(t, http.StatusNoContent, fx.do(request).Code)

	writer := fx.do(fx.newRequest(t, http.MethodGet, "/share/"+fx.share.Token, nil))
	requireErrorCode(t, writer, http.StatusNotFound, rest.CodeShareRevoked)
	assert.Contains(t, fx.auditActions(t, ""), api.AuditShareDenied)
}

func TestShareAccessExpired(t *testing.T) {
	fx := newShareFixture(t, api.ShareAccessRead)

	fx.clock.Advance(25 * time.Hour)

	writer := fx.do(fx.newRequest(t, http.MethodGet, "/share/"+fx.share.Token, nil))
	requireErrorCode(t, writer, http.StatusGone, rest.CodeShareExpired)
}

// A read grant does not satisfy a write request; a write grant satisfies
// both.
func TestShareAccessWriteGate(t *testing.T) {
	t.Run("read grant refuses write", func(t *testing.T) {
		fx := newShareFixture(t, api.ShareAccessRead)

		writer := fx.do(fx.newRequest(t, http.MethodPut, "/share/"+fx.share.Token, nil))
		requireErrorCode(t, writer, http.StatusForbidden, rest.CodeForbidden)
	})

	t.Run("write grant allows both", func(t *testing.T) {
		fx := newShareFixture(t, api.ShareAccessWrite)

		writer := fx.do(fx.newRequest(t, http.MethodGet, "/share/"+fx.share.Token, nil))
		require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())

		writer = fx.do(fx.newRequest(t, http.MethodPut, "/share/"+fx.share.Token, nil))
		require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())
		assert.Contains(t, fx.auditActions(t, fx.workspace.ID), api.AuditShareWritten)
	})
}

// Denial responses are uniform: no token material, no stored path.
func TestShareAccessDenialsRevealNothing(t *testing.T) {
	fx := newShareFixture(t, api.ShareAccessRead)
	fx.clock.Advance(25 * time.Hour)

	writer := fx.do(fx.newRequest(t, http.MethodGet, "/share/"+fx.share.Token, nil))
	assert.NotContains(t, writer.Body.String(), fx.share.Token)
	assert.NotContains(t, writer.Body.String(), "/docs/report.pdf")
}
