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
	"strings"

	"github.com/boringdata/boring-ui/internal/api/rest"
	"github.com/boringdata/boring-ui/internal/auth"
	"github.com/boringdata/boring-ui/internal/utils"
)

// MiddlewareAuth is the authentication guard. Credential precedence is
// Authorization Bearer, then the session cookie, then nothing. Exempt paths
// pass through unauthenticated. Failures answer 401 with the exact machine
// code and never echo the submitted credential.
func (f *Frontend) MiddlewareAuth(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if ExemptPath(r.URL.Path) {
		next(w, r)
		return
	}

	ctx := r.Context()

	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			rest.WriteError(w, http.StatusUnauthorized, rest.CodeMalformedToken,
				"the Authorization header is not a bearer credential")
			return
		}

		identity, err := f.verifier.Verify(ctx, token)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		ctx = ContextWithIdentity(ctx, identity)
		ctx = utils.ContextWithLogger(ctx,
			utils.LoggerFromContext(ctx).With("user_id", identity.UserID))
		next(w, r.WithContext(ctx))
		return
	}

	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		claims, err := f.sessions.Parse(cookie.Value)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		// Rolling refresh: sessions close to expiry are reissued under a
		// fresh id before the handler writes anything.
		if f.sessions.ShouldRefresh(claims) {
			if session, err := f.sessions.Refresh(claims); err == nil {
				f.sessions.SetCookies(w, session)
			}
		}

		identity := claims.Identity()
		ctx = ContextWithIdentity(ctx, identity)
		ctx = ContextWithSessionClaims(ctx, claims)
		ctx = utils.ContextWithLogger(ctx,
			utils.LoggerFromContext(ctx).With("user_id", identity.UserID))
		next(w, r.WithContext(ctx))
		return
	}

	rest.WriteError(w, http.StatusUnauthorized, rest.CodeNoCredentials,
		"the request carries no credentials")
}

// writeAuthError maps a verification failure onto its 401 response. The
// detail string comes from the verifier and never contains the credential.
func writeAuthError(w http.ResponseWriter, err error) {
	var verifyErr *auth.VerifyError
	if errors.As(err, &verifyErr) {
		rest.WriteError(w, http.StatusUnauthorized, verifyErr.Code, "%s", verifyErr.Detail)
		return
	}
	rest.WriteError(w, http.StatusUnauthorized, rest.CodeInvalidSession,
		"the credential failed validation")
}
