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

package api

// AppConfig is the branding and release registration for one application
// identity. Registrations are immutable once loaded.
type AppConfig struct {
	AppID            string `json:"app_id" validate:"required"`
	Name             string `json:"name" validate:"required"`
	Logo             string `json:"logo,omitempty"`
	DefaultReleaseID string `json:"default_release_id,omitempty"`
}
