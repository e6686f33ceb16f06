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

package appconfig

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/boringdata/boring-ui/internal/api"
)

const resolverCacheSize = 1024

// Resolution is the outcome of mapping one Host header. Config is nil when
// the app resolved but has no registered configuration; callers surface
// that as app_config_not_found.
type Resolution struct {
	AppID  string
	Config *api.AppConfig
}

// Resolver answers host lookups against a Registry, memoizing per raw Host
// header value. The registry is immutable, so cached entries never go stale.
type Resolver struct {
	registry *Registry

	cacheLock sync.Mutex
	cache     *lru.Cache
}

func NewResolver(registry *Registry) *Resolver {
	return &Resolver{
		registry: registry,
		cache:    lru.New(resolverCacheSize),
	}
}

// Resolve maps a raw Host header to its app identity. It returns
// ErrAppNotResolvable when no entry, wildcard, or default covers the host.
func (r *Resolver) Resolve(host string) (Resolution, error) {
	r.cacheLock.Lock()
	defer r.cacheLock.Unlock()

	if cached, ok := r.cache.Get(host); ok {
		return cached.(Resolution), nil
	}

	appID, err := r.registry.ResolveAppID(host)
	if err != nil {
		// Misses are not cached: unresolvable hosts are unbounded
		// attacker-controlled input.
		return Resolution{}, err
	}

	resolution := Resolution{AppID: appID}
	if config, err := r.registry.AppConfig(appID); err == nil {
		resolution.Config = config
	}

	r.cache.Add(host, resolution)
	return resolution, nil
}
