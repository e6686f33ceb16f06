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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/jonboulle/clockwork"

	"github.com/boringdata/boring-ui/internal/api/rest"
)

const (
	// jwksCacheTTL is how long a fetched key set is reused before the
	// provider refetches. Identity providers are expected to overlap old
	// and new keys for longer than this window during rotation.
	jwksCacheTTL = 300 * time.Second

	jwksFetchTimeout = 10 * time.Second

	// jwksMaxResponseBytes bounds how much of a key set response we are
	// willing to read.
	jwksMaxResponseBytes = 1 << 20
)

var _ KeyProvider = &StaticKeyProvider{}
var _ KeyProvider = &JWKSProvider{}

// StaticKeyProvider verifies credentials with a fixed symmetric secret.
// Intended for local development and tests; production deployments use a
// JWKSProvider so keys can rotate without a redeploy.
type StaticKeyProvider struct {
	key []byte
}

func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

func (p *StaticKeyProvider) GetSigningKey(ctx context.Context, token string) (any, error) {
	return p.key, nil
}

func (p *StaticKeyProvider) Algorithms() []jose.SignatureAlgorithm {
	return []jose.SignatureAlgorithm{jose.HS256}
}

// JWKSProvider fetches a JSON Web Key Set from an identity provider and
// caches it for jwksCacheTTL. Fetches are serialized so a cache miss under
// load produces one upstream request, not a stampede.
type JWKSProvider struct {
	endpoint string
	client   *http.Client
	clock    clockwork.Clock

	lock      sync.Mutex
	keySet    *jose.JSONWebKeySet
	fetchedAt time.Time
}

func NewJWKSProvider(endpoint string, client *http.Client, clock clockwork.Clock) *JWKSProvider {
	if client == nil {
		client = &http.Client{Timeout: jwksFetchTimeout}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &JWKSProvider{
		endpoint: endpoint,
		client:   client,
		clock:    clock,
	}
}

// GetSigningKey returns the cached key set, refetching it once the TTL has
// lapsed. Fetch failures surface as jwks_fetch_error; there is no stale
// fallback, so an unreachable issuer fails closed.
func (p *JWKSProvider) GetSigningKey(ctx context.Context, token string) (any, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	now := p.clock.Now()
	if p.keySet != nil && now.Sub(p.fetchedAt) < jwksCacheTTL {
		return p.keySet, nil
	}

	ctx, cancel := context.WithTimeout(ctx, jwksFetchTimeout)
	defer cancel()

	keySet, err := p.fetchKeySet(ctx)
	if err != nil {
		return nil, newVerifyError(rest.CodeJWKSFetchError,
			"failed to fetch signing keys", err)
	}

	p.keySet = keySet
	p.fetchedAt = now
	return p.keySet, nil
}

func (p *JWKSProvider) Algorithms() []jose.SignatureAlgorithm {
	return []jose.SignatureAlgorithm{jose.RS256, jose.PS256, jose.ES256, jose.EdDSA}
}

func (p *JWKSProvider) fetchKeySet(ctx context.Context) (*jose.JSONWebKeySet, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, err
	}

	response, err := p.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", response.StatusCode, p.endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, jwksMaxResponseBytes))
	if err != nil {
		return nil, err
	}

	var keySet jose.JSONWebKeySet
	if err := json.Unmarshal(body, &keySet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key set: %w", err)
	}
	if len(keySet.Keys) == 0 {
		return nil, fmt.Errorf("key set from %s contains no keys", p.endpoint)
	}

	return &keySet, nil
}
