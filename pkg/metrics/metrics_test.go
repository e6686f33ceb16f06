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
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterCounter(t *testing.T) {
	r := prometheus.NewPedanticRegistry()
	emitter := NewPrometheusEmitter(r)

	labels := map[string]string{"method": "GET", "route": "/api/v1/workspaces", "status_class": "2xx"}
	emitter.AddCounter(RequestsTotalName, 1, labels)
	emitter.AddCounter(RequestsTotalName, 1, labels)
	emitter.AddCounter(RequestsTotalName, 1, map[string]string{"method": "POST", "route": "/api/v1/workspaces", "status_class": "4xx"})

	expected := `# TYPE requests_total counter
requests_total{method="GET",route="/api/v1/workspaces",status_class="2xx"} 2
requests_total{method="POST",route="/api/v1/workspaces",status_class="4xx"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r, strings.NewReader(expected), RequestsTotalName))
}

func TestEmitterGauge(t *testing.T) {
	r := prometheus.NewPedanticRegistry()
	emitter := NewPrometheusEmitter(r)

	emitter.EmitGauge(RequestsInFlightName, 3, map[string]string{"plane": "control"})
	emitter.EmitGauge(RequestsInFlightName, 1, map[string]string{"plane": "control"})

	expected := `# TYPE requests_in_flight gauge
requests_in_flight{plane="control"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r, strings.NewReader(expected), RequestsInFlightName))
}

func TestEmitterHistogram(t *testing.T) {
	r := prometheus.NewPedanticRegistry()
	emitter := NewPrometheusEmitter(r)

	labels := map[string]string{"route": "/api/v1/me"}
	emitter.ObserveHistogram(RequestDurationName, 0.02, labels)
	emitter.ObserveHistogram(RequestDurationName, 0.2, labels)

	families, err := r.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, RequestDurationName, families[0].GetName())

	histogram := families[0].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), histogram.GetSampleCount())
	assert.InDelta(t, 0.22, histogram.GetSampleSum(), 1e-9)
}

func TestEmitterReusesVectors(t *testing.T) {
	// A second emission with the same name must reuse the registered
	// vector; a pedantic registry would panic on double registration.
	r := prometheus.NewPedanticRegistry()
	emitter := NewPrometheusEmitter(r)

	for range 3 {
		emitter.AddCounter(AuditEventsEmittedName, 1, map[string]string{"action": "share.create"})
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(emitter.counters[AuditEventsEmittedName]))
}
