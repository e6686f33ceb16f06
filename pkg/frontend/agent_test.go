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
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
)

func (fx *testFrontend) agentRequest(t *testing.T, method, workspaceID, suffix string) *http.Request {
	t.Helper()
	request := fx.newRequest(t, method, "/w/"+workspaceID+"/api/v1/agent/sessions"+suffix, nil)
	fx.authenticate(t, request, api.TestUserID, api.TestUserEmail)
	return request
}

func TestAgentSessionCreate(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	writer := fx.do(fx.agentRequest(t, http.MethodPost, workspace.ID, ""))
	require.Equal(t, http.StatusCreated, writer.Code, writer.Body.String())

	session := decodeJSON[*api.AgentSession](t, writer)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, workspace.ID, session.WorkspaceID)
	assert.Equal(t, api.TestUserID, session.CreatedBy)
	assert.Nil(t, session.StoppedAt)
}

// Stopped sessions stay listed so clients can show history.
func TestAgentSessionList(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	writer := fx.do(fx.agentRequest(t, http.MethodPost, workspace.ID, ""))
	require.Equal(t, http.StatusCreated, writer.Code, writer.Body.String())
	stopped := decodeJSON[*api.AgentSession](t, writer)

	writer = fx.do(fx.agentRequest(t, http.MethodPost, workspace.ID, ""))
	require.Equal(t, http.StatusCreated, writer.Code, writer.Body.String())

	writer = fx.do(fx.agentRequest(t, http.MethodDelete, workspace.ID, "/"+stopped.ID))
	require.Equal(t, http.StatusNoContent, writer.Code, writer.Body.String())

	writer = fx.do(fx.agentRequest(t, http.MethodGet, workspace.ID, ""))
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())

	sessions := decodeJSON[[]*api.AgentSession](t, writer)
	require.Len(t, sessions, 2)
}

func TestAgentSessionStop(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	writer := fx.do(fx.agentRequest(t, http.MethodPost, workspace.ID, ""))
	require.Equal(t, http.StatusCreated, writer.Code, writer.Body.String())
	session := decodeJSON[*api.AgentSession](t, writer)

	writer = fx.do(fx.agentRequest(t, http.MethodDelete, workspace.ID, "/"+session.ID))
	require.Equal(t, http.StatusNoContent, writer.Code, writer.Body.String())

	stored, err := fx.db.GetAgentSessionDoc(context.Background(), workspace.ID, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StoppedAt)
	stoppedAt := *stored.StoppedAt

	// Stopping again is a no-op 204 that keeps the original timestamp.
	fx.clock.Advance(time.Minute)
	writer = fx.do(fx.agentRequest(t, http.MethodDelete, workspace.ID, "/"+session.ID))
	require.Equal(t, http.StatusNoContent, writer.Code, writer.Body.String())

	stored, err = fx.db.GetAgentSessionDoc(context.Background(), workspace.ID, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StoppedAt)
	assert.True(t, stored.StoppedAt.Equal(stoppedAt))
}

func TestAgentSessionStopUnknown(t *testing.T) {
	fx := newTestFrontend(t)
	workspace := fx.seedWorkspace(t)

	writer := fx.do(fx.agentRequest(t, http.MethodDelete, workspace.ID, "/ses_missing"))
	requireErrorCode(t, writer, http.StatusNotFound, rest.CodeNotFound)
}
