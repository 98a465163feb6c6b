// Package selfheal implements George's deterministic self-healing
// detector chain: given the current artifact tree, decide whether any
// mandatory artifact is missing (R3), the system_status link is broken
// (R2), or the capability graph is invalid (R1) — in that priority
// order, acting on exactly one regression per run — and propose a
// playbook to fix it, always escalated to a human for review rather than
// applied automatically.
package selfheal

import (
	"fmt"

	"github.com/fleetgov/george/pkg/artifacts"
	"github.com/fleetgov/george/pkg/george"
)

// DefaultCapabilityGraphPath is where DetectR1 expects the capability
// graph to live.
const DefaultCapabilityGraphPath = "governance/resilience/capability_graph.json"

// DefaultMandatoryArtifacts lists every file the system cannot run
// without. R3 fires when any of these is missing.
var DefaultMandatoryArtifacts = []string{
	"ops/decisions/latest.json",
	"ops/decisions/canonical_latest.json",
	"ops/autonomy.json",
	"ops/reports/system_status.json",
	"ops/reports/decision_trace.jsonl",
}

// RegressionID identifies which detector fired.
type RegressionID string

const (
	R3MissingArtifact        RegressionID = "R3_MISSING_ARTIFACT"
	R2StatusBroken           RegressionID = "R2_STATUS_LINK_BROKEN"
	R1CapabilityGraphInvalid RegressionID = "R1_CAPABILITY_GRAPH_INVALID"
)

// DetectorResult is one detector's finding.
type DetectorResult struct {
	Regression RegressionID
	Detected   bool
	Detail     string
	Artifact   string
}

// DetectR3 reports the first mandatory artifact that is missing, if any.
func DetectR3(store *artifacts.GovernanceStore) DetectorResult {
	for _, path := range DefaultMandatoryArtifacts {
		if !store.Exists(path) {
			return DetectorResult{
				Regression: R3MissingArtifact,
				Detected:   true,
				Detail:     fmt.Sprintf("mandatory artifact missing: %s", path),
				Artifact:   path,
			}
		}
	}
	return DetectorResult{Regression: R3MissingArtifact}
}

// DetectR2 reports whether system_status.json's links.gate_result points
// at a file that does not exist.
func DetectR2(store *artifacts.GovernanceStore, statusPath string) DetectorResult {
	var status george.SystemStatus
	ok, err := store.ReadJSON(statusPath, &status)
	if err != nil || !ok {
		return DetectorResult{
			Regression: R2StatusBroken,
			Detected:   true,
			Detail:     fmt.Sprintf("system_status unreadable: %v", err),
			Artifact:   statusPath,
		}
	}
	if status.Links.GateResult != "" && !store.Exists(status.Links.GateResult) {
		return DetectorResult{
			Regression: R2StatusBroken,
			Detected:   true,
			Detail:     fmt.Sprintf("system_status.links.gate_result points at missing file: %s", status.Links.GateResult),
			Artifact:   status.Links.GateResult,
		}
	}
	return DetectorResult{Regression: R2StatusBroken}
}

// DetectR1 reports whether the capability graph at capabilityGraphPath is
// missing, is not valid JSON, or violates the determinism rule — exactly
// one node/entry marked "primary": true. Any dict-of-entries or
// list-of-entries shape is accepted, matching the original detector's
// tolerance for either encoding.
func DetectR1(store *artifacts.GovernanceStore, capabilityGraphPath string) DetectorResult {
	if !store.Exists(capabilityGraphPath) {
		return DetectorResult{
			Regression: R1CapabilityGraphInvalid,
			Detected:   true,
			Detail:     "capability_graph.json missing",
			Artifact:   capabilityGraphPath,
		}
	}

	var data any
	ok, err := store.ReadJSON(capabilityGraphPath, &data)
	if err != nil || !ok {
		return DetectorResult{
			Regression: R1CapabilityGraphInvalid,
			Detected:   true,
			Detail:     fmt.Sprintf("capability_graph.json is not valid JSON: %v", err),
			Artifact:   capabilityGraphPath,
		}
	}

	primaries := countPrimaries(data)
	if primaries != 1 {
		return DetectorResult{
			Regression: R1CapabilityGraphInvalid,
			Detected:   true,
			Detail:     fmt.Sprintf("determinism rule violated (exactly 1 primary): found %d", primaries),
			Artifact:   capabilityGraphPath,
		}
	}
	return DetectorResult{Regression: R1CapabilityGraphInvalid}
}

func countPrimaries(data any) int {
	isPrimary := func(v any) bool {
		node, ok := v.(map[string]any)
		if !ok {
			return false
		}
		primary, ok := node["primary"].(bool)
		return ok && primary
	}

	switch v := data.(type) {
	case map[string]any:
		if nodes, ok := v["nodes"].([]any); ok {
			count := 0
			for _, n := range nodes {
				if isPrimary(n) {
					count++
				}
			}
			return count
		}
		count := 0
		for _, entry := range v {
			if isPrimary(entry) {
				count++
			}
		}
		return count
	case []any:
		count := 0
		for _, n := range v {
			if isPrimary(n) {
				count++
			}
		}
		return count
	default:
		return 0
	}
}

// PickRegression runs the detectors in strict R3 -> R2 -> R1 priority and
// returns the first one that fired, or (zero, false) if the system is
// healthy. Only ever one regression is acted on per run.
func PickRegression(store *artifacts.GovernanceStore, statusPath, capabilityGraphPath string) (DetectorResult, bool) {
	if r := DetectR3(store); r.Detected {
		return r, true
	}
	if r := DetectR2(store, statusPath); r.Detected {
		return r, true
	}
	if r := DetectR1(store, capabilityGraphPath); r.Detected {
		return r, true
	}
	return DetectorResult{}, false
}
