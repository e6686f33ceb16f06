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

// Package metrics exposes the control plane's Prometheus instrumentation:
// a lazily-registering emitter for counters, gauges and histograms, the
// canonical metric names, and a collector reporting provisioning jobs by
// state straight from the job store.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/maps"
)

// Canonical metric names. Alert definitions reference these by string, so
// renaming one is a breaking operational change.
const (
	RequestsTotalName           = "requests_total"
	RequestDurationName         = "request_duration_seconds"
	RequestsInFlightName        = "requests_in_flight"
	AuditEventsEmittedName      = "audit_events_emitted"
	ProvisionJobsTotalName      = "provision_jobs_total"
	TenantBoundaryIncidentsName = "tenant_boundary_incidents"
	JobsByStateName             = "provisioning_jobs_by_state"
)

// Emitter emits different types of metrics.
type Emitter interface {
	AddCounter(metricName string, value float64, labels map[string]string)
	EmitGauge(metricName string, value float64, labels map[string]string)
	ObserveHistogram(metricName string, value float64, labels map[string]string)
}

// PrometheusEmitter registers metric vectors on first use, keyed by name.
// A metric's label set is fixed by its first emission.
type PrometheusEmitter struct {
	mutex      sync.Mutex
	gauges     map[string]*prometheus.GaugeVec
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	registry   prometheus.Registerer
}

func NewPrometheusEmitter(r prometheus.Registerer) *PrometheusEmitter {
	return &PrometheusEmitter{
		gauges:     make(map[string]*prometheus.GaugeVec),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		registry:   r,
	}
}

func (pe *PrometheusEmitter) EmitGauge(name string, value float64, labels map[string]string) {
	pe.mutex.Lock()
	defer pe.mutex.Unlock()
	vec, exists := pe.gauges[name]
	if !exists {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, maps.Keys(labels))
		pe.registry.MustRegister(vec)
		pe.gauges[name] = vec
	}
	vec.With(labels).Set(value)
}

func (pe *PrometheusEmitter) AddCounter(name string, value float64, labels map[string]string) {
	pe.mutex.Lock()
	defer pe.mutex.Unlock()
	vec, exists := pe.counters[name]
	if !exists {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, maps.Keys(labels))
		pe.registry.MustRegister(vec)
		pe.counters[name] = vec
	}
	vec.With(labels).Add(value)
}

func (pe *PrometheusEmitter) ObserveHistogram(name string, value float64, labels map[string]string) {
	pe.mutex.Lock()
	defer pe.mutex.Unlock()
	vec, exists := pe.histograms[name]
	if !exists {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Buckets: prometheus.DefBuckets,
		}, maps.Keys(labels))
		pe.registry.MustRegister(vec)
		pe.histograms[name] = vec
	}
	vec.With(labels).Observe(value)
}
