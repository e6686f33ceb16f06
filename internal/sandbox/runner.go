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

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

const (
	// DefaultExecTimeout applies when a caller passes no timeout.
	DefaultExecTimeout = 30 * time.Second

	// MaxExecTimeout is the hard ceiling; requests above it are clamped
	// down, never honored.
	MaxExecTimeout = 300 * time.Second
)

// ClampTimeout applies the runner bounds: zero or negative becomes the
// default, anything above the ceiling becomes the ceiling.
func ClampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultExecTimeout
	}
	if timeout > MaxExecTimeout {
		return MaxExecTimeout
	}
	return timeout
}

// ExecSpec describes one command run against a sandbox.
type ExecSpec struct {
	// Sandbox is the sandbox name the command targets; it only feeds logs.
	Sandbox string

	Command string
	Args    []string
	Dir     string
	Env     []string

	// Timeout is clamped through ClampTimeout before use.
	Timeout time.Duration
}

// ExecResult captures a finished (or killed) command.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// Runner executes sandbox commands with a mandatory timeout. Every run is
// bounded; there is no way to ask for an unbounded command.
type Runner struct {
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes spec and returns the captured result. The result is also
// returned alongside errors so callers can surface stderr.
func (r *Runner) Run(ctx context.Context, spec ExecSpec) (*ExecResult, error) {
	timeout := ClampTimeout(spec.Timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()

	result := &ExecResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	r.logger.DebugContext(ctx, "ran sandbox command",
		"sandbox", spec.Sandbox,
		"command", spec.Command,
		"exit_code", result.ExitCode,
		"timed_out", result.TimedOut,
		"duration", result.Duration)

	if result.TimedOut {
		return result, fmt.Errorf("command '%s' timed out after %s", spec.Command, timeout)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return result, fmt.Errorf("command '%s' exited with status %d", spec.Command, result.ExitCode)
		}
		return result, fmt.Errorf("failed to run command '%s': %w", spec.Command, runErr)
	}
	return result, nil
}
