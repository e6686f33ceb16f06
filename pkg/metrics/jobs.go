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

package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/boringdata/boring-ui/internal/api"
	"github.com/boringdata/boring-ui/internal/database"
)

const (
	jobSyncErrorsName    = "provisioning_job_collector_failed_syncs_total"
	jobSyncsName         = "provisioning_job_collector_syncs_total"
	jobLastSyncName      = "provisioning_job_collector_last_sync"
	jobCollectorInterval = 30 * time.Second
)

var jobsByStateDesc = prometheus.NewDesc(
	JobsByStateName,
	"Number of live provisioning jobs in each non-terminal state.",
	[]string{"state"},
	nil,
)

// JobStateCollector reports provisioning jobs grouped by state. It reads
// the job store on a fixed interval into an internal cache; scrapes serve
// the cache so a slow store never blocks /metrics.
type JobStateCollector struct {
	dbClient database.DBClient
	clock    clockwork.Clock

	errCounter     prometheus.Counter
	refreshCounter prometheus.Counter
	lastSyncResult prometheus.Gauge

	mtx    sync.RWMutex
	counts map[api.JobState]int
}

func NewJobStateCollector(r prometheus.Registerer, dbClient database.DBClient, clock clockwork.Clock) *JobStateCollector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	jc := &JobStateCollector{
		dbClient: dbClient,
		clock:    clock,
		counts:   make(map[api.JobState]int),

		errCounter: promauto.With(r).NewCounter(
			prometheus.CounterOpts{
				Name: jobSyncErrorsName,
				Help: "Total number of failed syncs for the job state collector.",
			},
		),
		refreshCounter: promauto.With(r).NewCounter(
			prometheus.CounterOpts{
				Name: jobSyncsName,
				Help: "Total number of syncs for the job state collector.",
			},
		),
		lastSyncResult: promauto.With(r).NewGauge(
			prometheus.GaugeOpts{
				Name: jobLastSyncName,
				Help: "Last sync operation's result (1: success, 0: failed).",
			},
		),
	}
	r.MustRegister(jc)

	return jc
}

// Run refreshes the cache on a fixed interval until stop closes.
func (jc *JobStateCollector) Run(logger *slog.Logger, stop <-chan struct{}) {
	jc.Refresh(context.Background(), logger)

	ticker := jc.clock.NewTicker(jobCollectorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			jc.Refresh(context.Background(), logger)
		}
	}
}

// Refresh reloads the per-state counts from the job store.
func (jc *JobStateCollector) Refresh(ctx context.Context, logger *slog.Logger) {
	jc.refreshCounter.Inc()

	counts := make(map[api.JobState]int)
	for _, state := range api.ActiveJobStates() {
		counts[state] = 0
	}

	iter := jc.dbClient.ListActiveJobDocs(-1, nil)
	for _, job := range iter.Items(ctx) {
		counts[job.State]++
	}
	if err := iter.GetError(); err != nil {
		logger.Warn("failed to refresh job state collector cache", "error", err.Error())
		jc.lastSyncResult.Set(0)
		jc.errCounter.Inc()
		return
	}

	jc.mtx.Lock()
	jc.counts = counts
	jc.mtx.Unlock()

	jc.lastSyncResult.Set(1)
}

// Describe implements the prometheus.Collector interface.
func (jc *JobStateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- jobsByStateDesc
}

// Collect implements the prometheus.Collector interface.
func (jc *JobStateCollector) Collect(ch chan<- prometheus.Metric) {
	jc.mtx.RLock()
	defer jc.mtx.RUnlock()

	for state, count := range jc.counts {
		ch <- prometheus.MustNewConstMetric(
			jobsByStateDesc,
			prometheus.GaugeValue,
			float64(count),
			string(state),
		)
	}
}
