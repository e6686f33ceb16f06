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

package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/appconfig"
	"github.com/boringdata/boring-ui/internal/artifacts"
	"github.com/boringdata/boring-ui/internal/sandbox"
)

// Machine-stable job error codes. Alert rules group on these, so the
// vocabulary is part of the operational contract; see ErrorCodes.
const (
	ErrorCodeStepTimeout        = "STEP_TIMEOUT"
	ErrorCodeChecksumMismatch   = "ARTIFACT_CHECKSUM_MISMATCH"
	ErrorCodeReleaseUnavailable = "RELEASE_UNAVAILABLE"

	// Step-specific failures
	ErrorCodeSandboxCreateFailed  = "SANDBOX_CREATE_FAILED"
	ErrorCodeArtifactUploadFailed = "ARTIFACT_UPLOAD_FAILED"
	ErrorCodeRuntimeStartFailed   = "RUNTIME_START_FAILED"
)

// ErrorCodes lists every code a job's last_error_code can carry.
func ErrorCodes() []string {
	return []string{
		ErrorCodeStepTimeout,
		ErrorCodeChecksumMismatch,
		ErrorCodeReleaseUnavailable,
		ErrorCodeSandboxCreateFailed,
		ErrorCodeArtifactUploadFailed,
		ErrorCodeRuntimeStartFailed,
	}
}

// ProvisioningTarget is the fully resolved input to a sandbox launch.
type ProvisioningTarget struct {
	WorkspaceID  string `json:"workspace_id"`
	AppID        string `json:"app_id"`
	ReleaseID    string `json:"release_id"`
	BundleSHA256 string `json:"bundle_sha256"`
	SandboxName  string `json:"sandbox_name"`
}

// ReleaseUnavailableError reports that no release could be resolved for an
// app, or that the resolved release has no verifiable bundle.
type ReleaseUnavailableError struct {
	AppID     string
	ReleaseID string
	err       error
}

func (e *ReleaseUnavailableError) Error() string {
	if e.ReleaseID == "" {
		return fmt.Sprintf("no release resolvable for app '%s'", e.AppID)
	}
	return fmt.Sprintf("release '%s' unavailable for app '%s'", e.ReleaseID, e.AppID)
}

func (e *ReleaseUnavailableError) Unwrap() error {
	return e.err
}

// Code returns the machine-stable error code for this failure.
func (e *ReleaseUnavailableError) Code() string {
	return ErrorCodeReleaseUnavailable
}

// TargetResolver turns (workspace, explicit release id?) into a concrete
// ProvisioningTarget. Explicit release ids beat the app's default.
type TargetResolver struct {
	registry *appconfig.Registry
	store    artifacts.Store
	env      string
}

func NewTargetResolver(registry *appconfig.Registry, store artifacts.Store, env string) *TargetResolver {
	return &TargetResolver{
		registry: registry,
		store:    store,
		env:      env,
	}
}

// ResolveTarget resolves the release and bundle digest for a workspace.
// Unresolvable releases and missing bundle digests both come back as a
// *ReleaseUnavailableError.
func (r *TargetResolver) ResolveTarget(ctx context.Context, workspace *api.Workspace, explicitReleaseID string) (*ProvisioningTarget, error) {
	releaseID := explicitReleaseID
	if releaseID == "" {
		config, err := r.registry.AppConfig(workspace.AppID)
		if err != nil {
			return nil, &ReleaseUnavailableError{AppID: workspace.AppID, err: err}
		}
		releaseID = config.DefaultReleaseID
	}
	if releaseID == "" {
		return nil, &ReleaseUnavailableError{AppID: workspace.AppID}
	}

	digest, err := artifacts.BundleDigest(ctx, r.store, workspace.AppID, releaseID)
	if err != nil {
		if errors.Is(err, artifacts.ErrArtifactNotFound) {
			return nil, &ReleaseUnavailableError{AppID: workspace.AppID, ReleaseID: releaseID, err: err}
		}
		return nil, fmt.Errorf("failed to read bundle digest for release '%s': %w", releaseID, err)
	}
	if digest == "" {
		return nil, &ReleaseUnavailableError{AppID: workspace.AppID, ReleaseID: releaseID}
	}

	sandboxName, err := sandbox.Name(workspace.AppID, workspace.ID, r.env)
	if err != nil {
		return nil, err
	}

	return &ProvisioningTarget{
		WorkspaceID:  workspace.ID,
		AppID:        workspace.AppID,
		ReleaseID:    releaseID,
		BundleSHA256: digest,
		SandboxName:  sandboxName,
	}, nil
}
