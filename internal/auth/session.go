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

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/boringdata/boring-ui/internal/api/rest"
)

const (
	// SessionCookieName holds the signed session token. HttpOnly.
	SessionCookieName = "bui_session"

	// CSRFCookieName is the session's sibling cookie. Page script reads it
	// and echoes the value in the X-CSRF-Token header on mutating calls,
	// so it is deliberately not HttpOnly.
	CSRFCookieName = "bui_csrf"

	defaultSessionTTL       = 1 * time.Hour
	defaultRefreshThreshold = 15 * time.Minute

	minSigningKeyBytes = 32
)

// SessionClaims is the payload of the signed session cookie.
type SessionClaims struct {
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	ActiveWorkspace string `json:"active_workspace,omitempty"`
	CSRF            string `json:"csrf"`
	jwt.RegisteredClaims
}

// Identity returns the principal the session was issued to.
func (c *SessionClaims) Identity() Identity {
	return Identity{UserID: c.Subject, Email: c.Email, Role: c.Role}
}

// Session is an issued session token together with the attributes callers
// need to set cookies and shape responses.
type Session struct {
	ID              string
	Token           string
	CSRFToken       string
	Identity        Identity
	ActiveWorkspace string
	ExpiresAt       time.Time
}

// SessionManagerConfig configures session issuance and validation.
type SessionManagerConfig struct {
	// SigningKey is the HMAC secret session tokens are signed with.
	// Must be at least minSigningKeyBytes long.
	SigningKey []byte

	// Issuer and Audience are stamped into and required of every token.
	Issuer   string
	Audience string

	// TTL bounds a token's validity. RefreshThreshold is how close to
	// expiry a session must be before access reissues it.
	TTL              time.Duration
	RefreshThreshold time.Duration

	// SecureCookies marks cookies Secure. Disable only for local
	// development over plain HTTP.
	SecureCookies bool

	Clock clockwork.Clock
}

// SessionManager issues, validates, and refreshes browser sessions. Tokens
// are short-lived HS256 JWTs; every issuance mints a fresh session id, so
// an id observed before login never names a session after it.
type SessionManager struct {
	signingKey       []byte
	issuer           string
	audience         string
	ttl              time.Duration
	refreshThreshold time.Duration
	secureCookies    bool
	clock            clockwork.Clock
}

func NewSessionManager(config SessionManagerConfig) (*SessionManager, error) {
	if len(config.SigningKey) < minSigningKeyBytes {
		return nil, fmt.Errorf("session signing key must be at least %d bytes", minSigningKeyBytes)
	}
	if config.TTL <= 0 {
		config.TTL = defaultSessionTTL
	}
	if config.RefreshThreshold <= 0 {
		config.RefreshThreshold = defaultRefreshThreshold
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &SessionManager{
		signingKey:       config.SigningKey,
		issuer:           config.Issuer,
		audience:         config.Audience,
		ttl:              config.TTL,
		refreshThreshold: config.RefreshThreshold,
		secureCookies:    config.SecureCookies,
		clock:            config.Clock,
	}, nil
}

func newSessionID() string {
	return "sid_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Issue mints a session for identity with a fresh session id and a fresh
// CSRF token.
func (m *SessionManager) Issue(identity Identity, activeWorkspace string) (*Session, error) {
	csrfToken, err := NewCSRFToken()
	if err != nil {
		return nil, err
	}
	return m.issue(identity, activeWorkspace, csrfToken)
}

// Refresh reissues the session under a fresh session id, carrying forward
// the identity, active workspace, and CSRF token so in-flight pages keep
// working.
func (m *SessionManager) Refresh(claims *SessionClaims) (*Session, error) {
	return m.issue(claims.Identity(), claims.ActiveWorkspace, claims.CSRF)
}

// WithActiveWorkspace reissues the session with a different active
// workspace selection.
func (m *SessionManager) WithActiveWorkspace(claims *SessionClaims, workspaceID string) (*Session, error) {
	return m.issue(claims.Identity(), workspaceID, claims.CSRF)
}

func (m *SessionManager) issue(identity Identity, activeWorkspace, csrfToken string) (*Session, error) {
	now := m.clock.Now()
	expiresAt := now.Add(m.ttl)

	claims := &SessionClaims{
		Email:           identity.Email,
		Role:            identity.Role,
		ActiveWorkspace: activeWorkspace,
		CSRF:            csrfToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        newSessionID(),
			Issuer:    m.issuer,
			Subject:   identity.UserID,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Session{
		ID:              claims.ID,
		Token:           token,
		CSRFToken:       csrfToken,
		Identity:        identity,
		ActiveWorkspace: activeWorkspace,
		ExpiresAt:       expiresAt,
	}, nil
}

// Parse validates a session token and returns its claims. Expired tokens
// come back as session_expired, everything else as invalid_session.
func (m *SessionManager) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithLeeway(defaultClockSkew),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, newVerifyError(rest.CodeSessionExpired, "session is expired", err)
		}
		return nil, newVerifyError(rest.CodeInvalidSession, "session token failed validation", err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, newVerifyError(rest.CodeInvalidSession, "session token is missing required claims", nil)
	}
	return claims, nil
}

func (m *SessionManager) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return m.signingKey, nil
}

// ShouldRefresh reports whether the session is close enough to expiry that
// the caller should reissue it.
func (m *SessionManager) ShouldRefresh(claims *SessionClaims) bool {
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Sub(m.clock.Now()) < m.refreshThreshold
}

// SetCookies writes the session cookie and its CSRF sibling.
func (m *SessionManager) SetCookies(w http.ResponseWriter, session *Session) {
	maxAge := int(session.ExpiresAt.Sub(m.clock.Now()).Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    session.CSRFToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   m.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookies deletes both cookies. Flags must match the ones the cookies
// were set with or browsers keep the originals.
func (m *SessionManager) ClearCookies(w http.ResponseWriter) {
	for _, name := range []string{SessionCookieName, CSRFCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == SessionCookieName,
			Secure:   m.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
