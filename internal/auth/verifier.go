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
	"context"
	"errors"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	josejwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/jonboulle/clockwork"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/api/rest"
)

// defaultClockSkew is the leeway applied to time-based claims so modest
// clock drift between the issuer and this process does not reject valid
// credentials.
const defaultClockSkew = 10 * time.Second

// KeyProvider supplies verification key material for bearer credentials.
// The verifier calls GetSigningKey on every verification; any caching is
// the provider's responsibility.
type KeyProvider interface {
	GetSigningKey(ctx context.Context, token string) (any, error)

	// Algorithms returns the signature algorithms credentials from this
	// provider may be signed with. Anything else is rejected before key
	// lookup, which closes off algorithm-confusion tricks.
	Algorithms() []jose.SignatureAlgorithm
}

// VerifyError classifies a credential verification failure with a
// machine-stable code from the rest package. The submitted credential is
// never part of the error.
type VerifyError struct {
	Code   string
	Detail string
	err    error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("token verification failed: %s: %s", e.Code, e.Detail)
}

func (e *VerifyError) Unwrap() error {
	return e.err
}

func newVerifyError(code, detail string, err error) *VerifyError {
	return &VerifyError{Code: code, Detail: detail, err: err}
}

// TokenVerifier checks a bearer credential against a KeyProvider and an
// expected audience, yielding the Identity the credential asserts.
type TokenVerifier struct {
	provider KeyProvider
	audience string
	leeway   time.Duration
	clock    clockwork.Clock
}

func NewTokenVerifier(provider KeyProvider, audience string, clock clockwork.Clock) *TokenVerifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenVerifier{
		provider: provider,
		audience: audience,
		leeway:   defaultClockSkew,
		clock:    clock,
	}
}

// identityClaims are the non-registered claims the control plane consumes.
type identityClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Verify parses and validates token. Failures come back as a *VerifyError
// whose code distinguishes malformed credentials, bad signatures, expiry,
// audience mismatches, missing claims, and key-fetch trouble.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	parsed, err := josejwt.ParseSigned(token, v.provider.Algorithms())
	if err != nil {
		return Identity{}, newVerifyError(rest.CodeMalformedToken,
			"credential is not a well-formed signed token", err)
	}

	key, err := v.provider.GetSigningKey(ctx, token)
	if err != nil {
		var verifyErr *VerifyError
		if errors.As(err, &verifyErr) {
			return Identity{}, verifyErr
		}
		return Identity{}, newVerifyError(rest.CodeJWKSFetchError,
			"signing key unavailable", err)
	}

	var claims josejwt.Claims
	var custom identityClaims
	if err := parsed.Claims(key, &claims, &custom); err != nil {
		return Identity{}, newVerifyError(rest.CodeInvalidSignature,
			"signature verification failed", err)
	}

	err = claims.ValidateWithLeeway(josejwt.Expected{
		AnyAudience: josejwt.Audience{v.audience},
		Time:        v.clock.Now(),
	}, v.leeway)
	switch {
	case errors.Is(err, josejwt.ErrExpired):
		return Identity{}, newVerifyError(rest.CodeTokenExpired,
			"token is expired", err)
	case errors.Is(err, josejwt.ErrInvalidAudience):
		return Identity{}, newVerifyError(rest.CodeInvalidAudience,
			fmt.Sprintf("token audience does not include %q", v.audience), err)
	case err != nil:
		return Identity{}, newVerifyError(rest.CodeMalformedToken,
			"token claims failed validation", err)
	}

	if claims.Subject == "" {
		return Identity{}, newVerifyError(rest.CodeMissingClaim,
			"token carries no sub claim", nil)
	}

	return Identity{
		UserID: claims.Subject,
		Email:  api.NormalizeEmail(custom.Email),
		Role:   custom.Role,
	}, nil
}
