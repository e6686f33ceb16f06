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

package ops

import (
	"fmt"

	"github.com/boringdata/boring-ui/internal/provisioning"
)

// EvidenceRecoveryConfirmed is the artifact every drill must produce: an
// explicit confirmation that the system returned to steady state, not
// just that the injected failure stopped.
const EvidenceRecoveryConfirmed = "RECOVERY_CONFIRMED"

// Drill is a rehearsed failure scenario. Running one means injecting the
// failure, watching for exactly the listed degradation, executing the
// recovery actions, and filing the evidence.
type Drill struct {
	Name                string
	Scenario            string
	FailureInjection    []string
	ExpectedDegradation []string
	RecoveryActions     []string
	Evidence            []string
}

// Runbook is a step list for a recurring operational task or a known
// failure mode.
type Runbook struct {
	Name    string
	Trigger string
	Steps   []string
}

// ValidateDrills checks that every drill is complete enough to run.
func ValidateDrills(drills []Drill) error {
	seen := make(map[string]struct{}, len(drills))
	for _, drill := range drills {
		if drill.Name == "" {
			return fmt.Errorf("drill with empty name")
		}
		if _, ok := seen[drill.Name]; ok {
			return fmt.Errorf("duplicate drill %q", drill.Name)
		}
		seen[drill.Name] = struct{}{}

		if len(drill.FailureInjection) == 0 {
			return fmt.Errorf("drill %q: no failure injection", drill.Name)
		}
		if len(drill.ExpectedDegradation) == 0 {
			return fmt.Errorf("drill %q: no expected degradation", drill.Name)
		}
		if len(drill.RecoveryActions) == 0 {
			return fmt.Errorf("drill %q: no recovery actions", drill.Name)
		}

		confirmed := false
		for _, evidence := range drill.Evidence {
			if evidence == EvidenceRecoveryConfirmed {
				confirmed = true
				break
			}
		}
		if !confirmed {
			return fmt.Errorf("drill %q: evidence must include %s", drill.Name, EvidenceRecoveryConfirmed)
		}
	}
	return nil
}

// DefaultDrills returns a fresh copy of the shipped drill registry.
func DefaultDrills() []Drill {
	return []Drill{
		{
			Name:     "supabase-auth-outage",
			Scenario: "the identity provider's JWKS endpoint and token issuance go dark",
			FailureInjection: []string{
				"block egress to the JWKS endpoint from one replica",
				"let the cached key set age past its refresh interval",
			},
			ExpectedDegradation: []string{
				"new sign-ins fail; requests with unexpired sessions keep working off the cached keys",
				"401 rate rises on /api/v1/me as sessions expire",
			},
			RecoveryActions: []string{
				"restore egress and confirm a fresh JWKS fetch in logs",
				"verify a new sign-in completes end to end",
			},
			Evidence: []string{
				"timestamped 401-rate graph covering the injection window",
				"log line showing the post-recovery JWKS refresh",
				EvidenceRecoveryConfirmed,
			},
		},
		{
			Name:     "sprite-runtime-outage",
			Scenario: "a workspace runtime stops accepting connections mid-session",
			FailureInjection: []string{
				"stop the sandbox runtime process for one test workspace",
			},
			ExpectedDegradation: []string{
				"proxy requests for that workspace return 502 upstream_unavailable",
				"open streams for that workspace close; other workspaces are unaffected",
			},
			RecoveryActions: []string{
				"retry provisioning for the workspace and watch the job reach ready",
				"confirm the proxy serves the workspace again",
			},
			Evidence: []string{
				"502 responses scoped to the injected workspace only",
				"job record for the recovery run",
				EvidenceRecoveryConfirmed,
			},
		},
		{
			Name:     "artifact-corruption",
			Scenario: "a release bundle is corrupted in artifact storage after its digest was recorded",
			FailureInjection: []string{
				"flip one byte of a staged release bundle in the artifact store",
				"create a provisioning job pinned to that release",
			},
			ExpectedDegradation: []string{
				"the job fails at verifying_checksum with " + provisioning.ErrorCodeChecksumMismatch,
				"the corrupt bundle never reaches starting_runtime",
			},
			RecoveryActions: []string{
				"run the checksum-failure runbook",
				"re-stage the bundle from source and retry the job",
			},
			Evidence: []string{
				"job record carrying " + provisioning.ErrorCodeChecksumMismatch,
				"digest comparison of the re-staged bundle",
				EvidenceRecoveryConfirmed,
			},
		},
	}
}

// DefaultRunbooks returns the shipped runbooks.
func DefaultRunbooks() []Runbook {
	return []Runbook{
		{
			Name:    "session-key-rotation",
			Trigger: "scheduled quarterly, or immediately on suspected key exposure",
			Steps: []string{
				"generate the new session signing secret and stage it alongside the old one",
				"deploy with both secrets accepted for verification, new one used for issuance",
				"wait one full session TTL so every live session is signed by the new key",
				"remove the old secret and deploy again",
				"confirm no 401 spike on cookie-authenticated routes",
			},
		},
		{
			Name:    "checksum-failure",
			Trigger: "any job failing with " + provisioning.ErrorCodeChecksumMismatch,
			Steps: []string{
				"freeze the affected release channel so no new jobs pin it",
				"fetch the stored bundle and recompute its digest out of band",
				"compare against the digest in the release manifest",
				"if storage is corrupt, re-stage from source; if the manifest is wrong, cut a new release",
				"retry the failed jobs and confirm they reach ready",
				"unfreeze the channel",
			},
		},
	}
}
