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

// Package appconfig resolves an inbound Host header to a branded application
// identity and its configuration. Many apps may share one control plane.
package appconfig

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/boringdata/boring-ui/internal/api"
)

var (
	// ErrAppNotResolvable indicates no host map entry, wildcard, or
	// default matched the host.
	ErrAppNotResolvable = errors.New("host does not resolve to an app")

	// ErrAppConfigNotFound indicates the app resolved but carries no
	// registered configuration.
	ErrAppConfigNotFound = errors.New("no app config registered")
)

// WildcardHost matches any host not covered by an exact entry.
const WildcardHost = "*"

// Registration binds a set of hosts to one app configuration.
type Registration struct {
	Hosts  []string      `json:"hosts"`
	Config api.AppConfig `json:"config"`
}

// Registry is an immutable host map built once at startup. Lookups never
// mutate it, so it is safe for concurrent use without locking.
type Registry struct {
	hosts        map[string]string
	apps         map[string]*api.AppConfig
	defaultAppID string
}

// NewRegistry builds a Registry from app registrations. Hosts are stored
// normalized; duplicate host entries are a configuration error.
func NewRegistry(registrations []Registration, defaultAppID string) (*Registry, error) {
	registry := &Registry{
		hosts:        make(map[string]string),
		apps:         make(map[string]*api.AppConfig),
		defaultAppID: defaultAppID,
	}

	for _, registration := range registrations {
		config := registration.Config
		if config.AppID == "" {
			return nil, errors.New("app registration is missing an app_id")
		}
		if _, ok := registry.apps[config.AppID]; ok {
			return nil, fmt.Errorf("app '%s' is registered twice", config.AppID)
		}
		registry.apps[config.AppID] = &config

		for _, host := range registration.Hosts {
			key := host
			if key != WildcardHost {
				key = NormalizeHost(key)
			}
			if existing, ok := registry.hosts[key]; ok {
				return nil, fmt.Errorf("host '%s' is mapped to both '%s' and '%s'", key, existing, config.AppID)
			}
			registry.hosts[key] = config.AppID
		}
	}

	if defaultAppID != "" {
		if _, ok := registry.apps[defaultAppID]; !ok {
			return nil, fmt.Errorf("default app '%s' has no registration", defaultAppID)
		}
	}

	return registry, nil
}

// NormalizeHost lowercases a Host header value, strips any port, and strips
// IPv6 brackets, so lookups match however the client spelled the authority.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")

	return host
}

// ResolveAppID maps a raw Host header to an app ID. Resolution order is
// exact host entry, then the wildcard entry, then the configured default.
func (r *Registry) ResolveAppID(host string) (string, error) {
	if appID, ok := r.hosts[NormalizeHost(host)]; ok {
		return appID, nil
	}
	if appID, ok := r.hosts[WildcardHost]; ok {
		return appID, nil
	}
	if r.defaultAppID != "" {
		return r.defaultAppID, nil
	}
	return "", ErrAppNotResolvable
}

// AppConfig returns a copy of the app's registered configuration.
func (r *Registry) AppConfig(appID string) (*api.AppConfig, error) {
	config, ok := r.apps[appID]
	if !ok {
		return nil, fmt.Errorf("%w for app '%s'", ErrAppConfigNotFound, appID)
	}

	out := *config
	return &out, nil
}
