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
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/database"
)

const defaultSweepInterval = 30 * time.Second

// SweepReport categorizes the jobs one sweep saw. Stale jobs exceeded
// their step timeout; skipped jobs were stale but already moved by a
// concurrent writer between the scan and the update.
type SweepReport struct {
	Stale   []string `json:"stale"`
	Healthy []string `json:"healthy"`
	Skipped []string `json:"skipped"`
}

// StaleJobDetector periodically scans every non-terminal job and fails the
// ones stuck past their step timeout. The timeout transition goes through
// the store's etag-checked update, so across concurrent sweepers each
// stale job is failed exactly once.
type StaleJobDetector struct {
	dbClient database.DBClient
	machine  *Machine
	logger   *slog.Logger
	clock    clockwork.Clock
	interval time.Duration
	done     chan struct{}
}

func NewStaleJobDetector(dbClient database.DBClient, machine *Machine, logger *slog.Logger, clock clockwork.Clock, interval time.Duration) *StaleJobDetector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &StaleJobDetector{
		dbClient: dbClient,
		machine:  machine,
		logger:   logger,
		clock:    clock,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Sweep scans every active job once. With detectOnly set the scan is
// side-effect-free: stale jobs are reported but left untouched.
func (d *StaleJobDetector) Sweep(ctx context.Context, detectOnly bool) (*SweepReport, error) {
	report := &SweepReport{}

	iterator := d.dbClient.ListActiveJobDocs(-1, nil)
	for _, job := range iterator.Items(ctx) {
		if !d.machine.TimedOut(job) {
			report.Healthy = append(report.Healthy, job.ID)
			continue
		}

		if detectOnly {
			report.Stale = append(report.Stale, job.ID)
			continue
		}

		applied, err := d.applyTimeout(ctx, job.WorkspaceID, job.ID)
		if err != nil {
			d.logger.Error("failed to fail stale provisioning job",
				"job_id", job.ID,
				"workspace_id", job.WorkspaceID,
				"error", err.Error())
			report.Skipped = append(report.Skipped, job.ID)
			continue
		}
		if applied {
			report.Stale = append(report.Stale, job.ID)
		} else {
			report.Skipped = append(report.Skipped, job.ID)
		}
	}
	if err := iterator.GetError(); err != nil {
		return report, err
	}

	return report, nil
}

// applyTimeout re-checks staleness inside the update callback. The job may
// have advanced or finished since the scan read it; in that case nothing
// is written and the job counts as skipped.
func (d *StaleJobDetector) applyTimeout(ctx context.Context, workspaceID, jobID string) (bool, error) {
	return d.dbClient.UpdateJobDoc(ctx, workspaceID, jobID, func(job *api.ProvisioningJob) bool {
		if !d.machine.TimedOut(job) {
			return false
		}
		failed, err := d.machine.ApplyStepTimeout(*job)
		if err != nil {
			return false
		}
		*job = failed
		return true
	})
}

// Run sweeps on a fixed cadence until stop closes. Call Join to wait for
// the final sweep to drain.
func (d *StaleJobDetector) Run(ctx context.Context, stop <-chan struct{}) {
	defer close(d.done)

	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("stale job detector started", "interval", d.interval.String())

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			report, err := d.Sweep(ctx, false)
			if err != nil {
				d.logger.Error("sweep failed", "error", err.Error())
				continue
			}
			if len(report.Stale) > 0 || len(report.Skipped) > 0 {
				d.logger.Info("sweep completed",
					"stale", len(report.Stale),
					"healthy", len(report.Healthy),
					"skipped", len(report.Skipped))
			}
		}
	}
}

// Join blocks until Run has returned.
func (d *StaleJobDetector) Join() {
	<-d.done
}
