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
	"io"
	"log/slog"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/artifacts"
	"github.com/boringdata/boring-ui/internal/sandbox"
)

// Launcher is the sandbox backend the driver provisions against. The
// control plane only sequences the calls; what a sandbox physically is
// stays behind this interface.
type Launcher interface {
	CreateSandbox(ctx context.Context, target *ProvisioningTarget) error
	UploadArtifact(ctx context.Context, target *ProvisioningTarget, bundle io.Reader) error
	StartRuntime(ctx context.Context, target *ProvisioningTarget) error
}

// ExecLauncher drives sandboxes through a provisioning CLI, one bounded
// command per step. Upload streams the bundle over stdin.
type ExecLauncher struct {
	runner  *sandbox.Runner
	command string
}

func NewExecLauncher(runner *sandbox.Runner, command string) *ExecLauncher {
	return &ExecLauncher{
		runner:  runner,
		command: command,
	}
}

func (l *ExecLauncher) run(ctx context.Context, target *ProvisioningTarget, args ...string) error {
	_, err := l.runner.Run(ctx, sandbox.ExecSpec{
		Sandbox: target.SandboxName,
		Command: l.command,
		Args:    args,
	})
	return err
}

func (l *ExecLauncher) CreateSandbox(ctx context.Context, target *ProvisioningTarget) error {
	return l.run(ctx, target, "create", target.SandboxName)
}

func (l *ExecLauncher) UploadArtifact(ctx context.Context, target *ProvisioningTarget, bundle io.Reader) error {
	// The runner does not stream stdin; the CLI pulls the bundle itself
	// from the artifact store by app and release.
	return l.run(ctx, target, "upload", target.SandboxName, target.AppID, target.ReleaseID)
}

func (l *ExecLauncher) StartRuntime(ctx context.Context, target *ProvisioningTarget) error {
	return l.run(ctx, target, "start", target.SandboxName)
}

// Driver walks one queued job through every state to ready, persisting
// each transition before doing the step's work. Failures land the job in
// terminal error with the step's machine-stable code; the job record is
// the only report, so RunJob itself returns an error only when the store
// does.
type Driver struct {
	service  *Service
	resolver *TargetResolver
	store    artifacts.Store
	launcher Launcher
	logger   *slog.Logger
}

func NewDriver(service *Service, resolver *TargetResolver, store artifacts.Store, launcher Launcher, logger *slog.Logger) *Driver {
	return &Driver{
		service:  service,
		resolver: resolver,
		store:    store,
		launcher: launcher,
		logger:   logger,
	}
}

// RunJob drives the job from queued to ready. The caller passes the
// workspace the job belongs to; the job must be in the queued state.
func (d *Driver) RunJob(ctx context.Context, workspace *api.Workspace, job *api.ProvisioningJob) error {
	logger := d.logger.With("workspace_id", workspace.ID, "job_id", job.ID)

	// queued -> resolving_release
	job, err := d.service.AdvanceJob(ctx, workspace.ID, job.ID)
	if err != nil {
		return err
	}

	target, err := d.resolver.ResolveTarget(ctx, workspace, job.ReleaseID)
	if err != nil {
		var unavailable *ReleaseUnavailableError
		if errors.As(err, &unavailable) {
			return d.fail(ctx, logger, job, ErrorCodeReleaseUnavailable, unavailable.Error())
		}
		return d.fail(ctx, logger, job, ErrorCodeReleaseUnavailable, "release resolution failed")
	}
	logger = logger.With("release_id", target.ReleaseID, "sandbox", target.SandboxName)

	// resolving_release -> creating_sandbox
	job, err = d.service.AdvanceJob(ctx, workspace.ID, job.ID)
	if err != nil {
		return err
	}
	if err := d.launcher.CreateSandbox(ctx, target); err != nil {
		return d.fail(ctx, logger, job, ErrorCodeSandboxCreateFailed,
			fmt.Sprintf("failed to create sandbox '%s'", target.SandboxName))
	}

	// creating_sandbox -> uploading_artifact
	job, err = d.service.AdvanceJob(ctx, workspace.ID, job.ID)
	if err != nil {
		return err
	}
	bundle, err := d.store.GetBundle(ctx, target.AppID, target.ReleaseID)
	if err != nil {
		return d.fail(ctx, logger, job, ErrorCodeArtifactUploadFailed,
			fmt.Sprintf("failed to read bundle for release '%s'", target.ReleaseID))
	}
	uploadErr := d.launcher.UploadArtifact(ctx, target, bundle)
	_ = bundle.Close()
	if uploadErr != nil {
		return d.fail(ctx, logger, job, ErrorCodeArtifactUploadFailed,
			fmt.Sprintf("failed to upload bundle for release '%s'", target.ReleaseID))
	}

	// uploading_artifact -> verifying_checksum
	job, err = d.service.AdvanceJob(ctx, workspace.ID, job.ID)
	if err != nil {
		return err
	}
	if err := artifacts.VerifyChecksum(ctx, d.store, target.AppID, target.ReleaseID); err != nil {
		var mismatch *artifacts.ChecksumMismatchError
		if errors.As(err, &mismatch) {
			return d.fail(ctx, logger, job, ErrorCodeChecksumMismatch, mismatch.Error())
		}
		return d.fail(ctx, logger, job, ErrorCodeChecksumMismatch,
			fmt.Sprintf("failed to verify checksum for release '%s'", target.ReleaseID))
	}

	// verifying_checksum -> starting_runtime
	job, err = d.service.AdvanceJob(ctx, workspace.ID, job.ID)
	if err != nil {
		return err
	}
	if err := d.launcher.StartRuntime(ctx, target); err != nil {
		return d.fail(ctx, logger, job, ErrorCodeRuntimeStartFailed,
			fmt.Sprintf("failed to start runtime in sandbox '%s'", target.SandboxName))
	}

	// starting_runtime -> ready
	if _, err := d.service.AdvanceJob(ctx, workspace.ID, job.ID); err != nil {
		return err
	}

	logger.Info("workspace runtime is ready")
	return nil
}

func (d *Driver) fail(ctx context.Context, logger *slog.Logger, job *api.ProvisioningJob, code, detail string) error {
	logger.Error("provisioning step failed", "error_code", code, "detail", detail)
	_, err := d.service.FailJob(ctx, job.WorkspaceID, job.ID, code, detail)
	return err
}
