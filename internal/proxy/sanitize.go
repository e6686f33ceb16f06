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

// Package proxy is the security boundary between browsers and workspace
// runtimes. Inbound credentials never reach a runtime; the runtime bearer
// never reaches a browser.
package proxy

import (
	"net/http"
	"strings"

	"github.com/boringdata/boring-ui/internal/api/rest"
)

// defaultStripHeaders are removed from every proxied request regardless of
// configuration. Matching is on the trimmed, case-folded name.
var defaultStripHeaders = []string{
	"Authorization",
	"Proxy-Authorization",
	"Cookie",
	rest.HeaderNameCSRFToken,
	rest.HeaderNameSpriteBearer,
}

// defaultStripPrefixes are removed by name prefix; X-User-* carries
// whatever identity headers an upstream hop may have minted.
var defaultStripPrefixes = []string{
	"X-User-",
}

// redactResponseHeaders are removed from every proxied response before the
// browser sees it.
var redactResponseHeaders = []string{
	"Set-Cookie",
	"Authorization",
	"Proxy-Authenticate",
	"WWW-Authenticate",
	rest.HeaderNameSpriteBearer,
}

// SanitizerConfig is the immutable header policy for one upstream class.
// All fields are private and set only by NewSanitizerConfig, so a handed-out
// config can never be loosened at runtime.
type SanitizerConfig struct {
	bearer        string
	stripNames    map[string]struct{}
	stripPrefixes []string
}

// NewSanitizerConfig builds the policy. bearerToken, when non-empty, is
// injected into every outbound request under the canonical sprite-bearer
// header. extraStrip names are stripped in addition to the default set.
func NewSanitizerConfig(bearerToken string, extraStrip []string) *SanitizerConfig {
	config := &SanitizerConfig{
		bearer:     bearerToken,
		stripNames: make(map[string]struct{}),
	}
	for _, name := range defaultStripHeaders {
		config.stripNames[foldHeaderName(name)] = struct{}{}
	}
	for _, name := range extraStrip {
		config.stripNames[foldHeaderName(name)] = struct{}{}
	}
	config.stripPrefixes = append(config.stripPrefixes, defaultStripPrefixes...)
	return config
}

// foldHeaderName normalizes a header name for deny-list matching: trimmed
// and case-folded, so neither casing nor stray whitespace can slip a
// denied name past the filter.
func foldHeaderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// validHeaderName reports whether the name is a plain HTTP token. Names
// carrying whitespace or control characters are dropped outright rather
// than forwarded for an upstream parser to reinterpret.
func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7f || c == ':' {
			return false
		}
	}
	return true
}

func (c *SanitizerConfig) stripped(folded string) bool {
	if _, ok := c.stripNames[folded]; ok {
		return true
	}
	for _, prefix := range c.stripPrefixes {
		if strings.HasPrefix(folded, foldHeaderName(prefix)) {
			return true
		}
	}
	return false
}

// SanitizeProxyHeaders returns the headers a proxied request may carry
// upstream. Every value of a denied header is dropped, including
// case-folded duplicates; the server bearer is injected last so inbound
// requests can never smuggle their own value through.
func (c *SanitizerConfig) SanitizeProxyHeaders(inbound http.Header) http.Header {
	outbound := make(http.Header, len(inbound))

	for name, values := range inbound {
		if !validHeaderName(name) {
			continue
		}
		if c.stripped(foldHeaderName(name)) {
			continue
		}
		canonical := http.CanonicalHeaderKey(name)
		outbound[canonical] = append(outbound[canonical], values...)
	}

	if c.bearer != "" {
		outbound.Set(rest.HeaderNameSpriteBearer, c.bearer)
	}

	return outbound
}

// RedactResponseHeaders strips credential and cookie-setting headers from
// an upstream response, plus any header whose value contains the
// configured bearer.
func (c *SanitizerConfig) RedactResponseHeaders(h http.Header) {
	for _, name := range redactResponseHeaders {
		h.Del(name)
	}
	if c.bearer == "" {
		return
	}
	for name, values := range h {
		for _, value := range values {
			if strings.Contains(value, c.bearer) {
				h.Del(name)
				break
			}
		}
	}
}
