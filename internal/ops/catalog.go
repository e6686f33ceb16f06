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

// Package ops holds the in-code operational catalog: SLOs, alert
// definitions, drill scenarios, and runbooks. The catalog is data, not
// behavior; keeping it next to the code it describes lets tests hold it
// to the same vocabulary the services actually emit.
package ops

import (
	"fmt"
	"slices"
	"time"

	"github.com/boringdata/boring-ui/internal/provisioning"
)

// Severity ranks an alert. Sev1 pages; Sev2 and Sev3 are ticket-only.
type Severity string

const (
	Sev1 Severity = "sev1"
	Sev2 Severity = "sev2"
	Sev3 Severity = "sev3"
)

// The label alerts group on when slicing provisioning failures by cause.
const GroupByLastErrorCode = "last_error_code"

// SLO is a service level objective over a rolling window.
type SLO struct {
	Name        string
	Description string
	Objective   float64 // fraction of good events, e.g. 0.999
	Window      time.Duration
}

// Alert is one alerting rule. Alerts that group by last_error_code
// additionally pin the error codes they cover, which Validate checks
// against the provisioning state machine's vocabulary.
type Alert struct {
	Name        string
	Description string
	Metric      string
	Threshold   float64
	Window      time.Duration
	GroupBy     []string
	ErrorCodes  []string
	Severity    Severity
	Paging      bool
	Actions     []string
	Panels      []string
}

// Catalog bundles the SLOs and alerts shipped with the control plane.
type Catalog struct {
	SLOs   []SLO
	Alerts []Alert
}

// Validate enforces the catalog's internal contracts.
func (c *Catalog) Validate() error {
	known := provisioning.ErrorCodes()

	seen := make(map[string]struct{}, len(c.Alerts))
	for _, alert := range c.Alerts {
		if alert.Name == "" {
			return fmt.Errorf("alert with empty name")
		}
		if _, ok := seen[alert.Name]; ok {
			return fmt.Errorf("duplicate alert %q", alert.Name)
		}
		seen[alert.Name] = struct{}{}

		if alert.Severity == Sev1 && len(alert.Actions) == 0 {
			return fmt.Errorf("alert %q: sev1 alerts must list response actions", alert.Name)
		}
		if alert.Severity == Sev1 && !alert.Paging {
			return fmt.Errorf("alert %q: sev1 alerts must page", alert.Name)
		}
		if alert.Window <= 0 {
			return fmt.Errorf("alert %q: window must be positive", alert.Name)
		}

		groupsOnErrorCode := slices.Contains(alert.GroupBy, GroupByLastErrorCode)
		if groupsOnErrorCode && len(alert.ErrorCodes) == 0 {
			return fmt.Errorf("alert %q: grouping by %s requires pinning error codes", alert.Name, GroupByLastErrorCode)
		}
		if !groupsOnErrorCode && len(alert.ErrorCodes) > 0 {
			return fmt.Errorf("alert %q: error codes without %s group key", alert.Name, GroupByLastErrorCode)
		}
		for _, code := range alert.ErrorCodes {
			if !slices.Contains(known, code) {
				return fmt.Errorf("alert %q: unknown error code %q", alert.Name, code)
			}
		}
	}

	for _, slo := range c.SLOs {
		if slo.Objective <= 0 || slo.Objective >= 1 {
			return fmt.Errorf("slo %q: objective must be in (0, 1)", slo.Name)
		}
		if slo.Window <= 0 {
			return fmt.Errorf("slo %q: window must be positive", slo.Name)
		}
	}

	return nil
}

// DefaultCatalog returns a fresh copy of the shipped catalog. Callers
// own the copy; the source data never changes.
func DefaultCatalog() *Catalog {
	return &Catalog{
		SLOs: []SLO{
			{
				Name:        "control-plane-availability",
				Description: "non-5xx responses on the control plane API",
				Objective:   0.999,
				Window:      28 * 24 * time.Hour,
			},
			{
				Name:        "provisioning-success",
				Description: "provisioning jobs reaching ready without operator intervention",
				Objective:   0.99,
				Window:      7 * 24 * time.Hour,
			},
			{
				Name:        "proxy-first-byte",
				Description: "workspace proxy requests with first upstream byte under 2s",
				Objective:   0.995,
				Window:      7 * 24 * time.Hour,
			},
		},
		Alerts: []Alert{
			{
				Name:        "provision-failures-by-cause",
				Description: "provisioning jobs entering error, sliced by failing step's code",
				Metric:      "provision_jobs_total",
				Threshold:   5,
				Window:      15 * time.Minute,
				GroupBy:     []string{GroupByLastErrorCode},
				ErrorCodes:  provisioning.ErrorCodes(),
				Severity:    Sev2,
				Actions: []string{
					"check the failing step's code against the runbook index",
					"inspect recent releases if RELEASE_UNAVAILABLE or ARTIFACT_CHECKSUM_MISMATCH dominates",
				},
				Panels: []string{"provisioning-overview", "provisioning-error-breakdown"},
			},
			{
				Name:        "checksum-mismatch-burst",
				Description: "any artifact checksum mismatch; a single occurrence means a corrupt or tampered release",
				Metric:      "provision_jobs_total",
				Threshold:   1,
				Window:      5 * time.Minute,
				GroupBy:     []string{GroupByLastErrorCode},
				ErrorCodes:  []string{provisioning.ErrorCodeChecksumMismatch},
				Severity:    Sev1,
				Paging:      true,
				Actions: []string{
					"freeze the release channel",
					"run the checksum-failure runbook",
					"re-verify the stored artifact digest against the release manifest",
				},
				Panels: []string{"provisioning-error-breakdown"},
			},
			{
				Name:        "api-error-rate",
				Description: "5xx rate on the control plane API above the availability budget burn",
				Metric:      "requests_total",
				Threshold:   0.05,
				Window:      5 * time.Minute,
				GroupBy:     []string{"route", "status_class"},
				Severity:    Sev1,
				Paging:      true,
				Actions: []string{
					"check /readyz on all replicas",
					"check document store availability",
					"roll back the most recent deploy if the onset matches",
				},
				Panels: []string{"api-overview"},
			},
			{
				Name:        "tenant-boundary-incident",
				Description: "any request answered from another tenant's data; count must stay at zero",
				Metric:      "tenant_boundary_incidents",
				Threshold:   1,
				Window:      5 * time.Minute,
				Severity:    Sev1,
				Paging:      true,
				Actions: []string{
					"page the on-call and the security contact",
					"capture the offending request_id from logs before rotation",
					"disable the affected route if the leak is reproducible",
				},
				Panels: []string{"security-overview"},
			},
			{
				Name:        "stale-job-backlog",
				Description: "sweeper repeatedly finding jobs past their step timeout",
				Metric:      "provision_jobs_total",
				Threshold:   10,
				Window:      30 * time.Minute,
				GroupBy:     []string{GroupByLastErrorCode},
				ErrorCodes:  []string{provisioning.ErrorCodeStepTimeout},
				Severity:    Sev3,
				Actions: []string{
					"check sandbox runner latency",
					"compare step timeout configuration against recent artifact sizes",
				},
				Panels: []string{"provisioning-overview"},
			},
			{
				Name:        "proxy-stream-saturation",
				Description: "workspaces repeatedly rejected at the concurrent stream cap",
				Metric:      "requests_total",
				Threshold:   20,
				Window:      10 * time.Minute,
				GroupBy:     []string{"route", "status_class"},
				Severity:    Sev3,
				Actions: []string{
					"identify the saturating workspace from logs",
					"raise the per-workspace stream limit if the traffic is legitimate",
				},
				Panels: []string{"proxy-overview"},
			},
		},
	}
}
