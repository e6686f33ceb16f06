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
	"errors"
	"net/http"

	"k8s.io/utils/ptr"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/database"
)

// AgentSessionList answers the workspace's agent sessions, stopped ones
// included so clients can show history.
func (f *Frontend) AgentSessionList(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)

	sessions := make([]*api.AgentSession, 0)
	iterator := f.dbClient.ListAgentSessionDocs(workspace.ID, -1, nil)
	for _, session := range iterator.Items(ctx) {
		sessions = append(sessions, session)
	}
	if err := iterator.GetError(); err != nil {
		logInternalError(writer, request, "failed to list agent sessions", err)
		return
	}

	_, _ = rest.WriteJSONResponse(writer, http.StatusOK, sessions)
}

// AgentSessionCreate registers a new agent session in the workspace.
func (f *Frontend) AgentSessionCreate(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)
	identity, _ := IdentityFromContext(ctx)

	session := &api.AgentSession{
		ID:          api.NewAgentSessionID(),
		WorkspaceID: workspace.ID,
		CreatedBy:   identity.UserID,
		CreatedAt:   f.clock.Now().UTC(),
	}

	if err := f.dbClient.CreateAgentSessionDoc(ctx, session); err != nil {
		logInternalError(writer, request, "failed to create agent session", err)
		return
	}

	_, _ = rest.WriteJSONResponse(writer, http.StatusCreated, session)
}

// AgentSessionStop stamps the session stopped. Stopping twice is a no-op
// that still answers 204; only an unknown id is 404.
func (f *Frontend) AgentSessionStop(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	workspace := WorkspaceFromContext(ctx)
	sessionID := request.PathValue(PathSegmentSessionID)

	stoppedAt := ptr.To(f.clock.Now().UTC())
	_, err := f.dbClient.UpdateAgentSessionDoc(ctx, workspace.ID, sessionID, func(session *api.AgentSession) bool {
		if session.Stopped() {
			return false
		}
		session.StoppedAt = stoppedAt
		return true
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rest.WriteError(writer, http.StatusNotFound, rest.CodeNotFound,
				"the agent session does not exist")
			return
		}
		logInternalError(writer, request, "failed to stop agent session", err)
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}
