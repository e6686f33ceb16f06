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

const defaultPollInterval = 5 * time.Second

// Worker polls the store for queued provisioning jobs and hands each one to
// the driver. The driver's first transition goes through the store's
// etag-checked update, so a job picked up by two workers runs once; the
// loser's transition fails and the job is skipped.
type Worker struct {
	dbClient database.DBClient
	driver   *Driver
	logger   *slog.Logger
	clock    clockwork.Clock
	interval time.Duration
	done     chan struct{}
}

func NewWorker(dbClient database.DBClient, driver *Driver, logger *slog.Logger, clock clockwork.Clock, interval time.Duration) *Worker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Worker{
		dbClient: dbClient,
		driver:   driver,
		logger:   logger,
		clock:    clock,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Poll runs every queued job found in one scan to completion, sequentially.
// It returns the number of jobs it drove.
func (w *Worker) Poll(ctx context.Context) (int, error) {
	ran := 0

	iterator := w.dbClient.ListActiveJobDocs(-1, nil)
	for _, job := range iterator.Items(ctx) {
		if job.State != api.JobStateQueued {
			continue
		}

		workspace, err := w.dbClient.GetWorkspaceDoc(ctx, job.WorkspaceID)
		if err != nil {
			w.logger.Error("failed to load workspace for queued job",
				"job_id", job.ID,
				"workspace_id", job.WorkspaceID,
				"error", err.Error())
			continue
		}

		if err := w.driver.RunJob(ctx, workspace, job); err != nil {
			// A lost claim race or a failed job; the driver already
			// recorded the terminal state where one applies.
			w.logger.Error("provisioning job did not complete",
				"job_id", job.ID,
				"workspace_id", job.WorkspaceID,
				"error", err.Error())
			continue
		}
		ran++
	}
	if err := iterator.GetError(); err != nil {
		return ran, err
	}

	return ran, nil
}

// Run polls on a fixed cadence until stop closes. Call Join to wait for the
// in-flight poll to drain.
func (w *Worker) Run(ctx context.Context, stop <-chan struct{}) {
	defer close(w.done)

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("provisioning worker started", "interval", w.interval.String())

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if _, err := w.Poll(ctx); err != nil {
				w.logger.Error("poll failed", "error", err.Error())
			}
		}
	}
}

// Join blocks until Run has returned.
func (w *Worker) Join() {
	<-w.done
}
