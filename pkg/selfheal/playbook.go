package selfheal

import (
	"fmt"
	"time"

	"github.com/fleetgov/george/pkg/george"
)

// Playbook is the proposed change set for one regression: a set of named
// artifact placeholders to write, plus the branch and PR metadata a
// human reviews before merging.
type Playbook struct {
	Regression  RegressionID
	Branch      string
	Title       string
	Description string
	Writes      map[string]any
}

// BuildPlaybook constructs the deterministic placeholder content for the
// detected regression. R3's placeholder content depends on which
// artifact was missing; R2 writes a fixed gate_result/system_status
// placeholder pair, and R1 writes the capability graph placeholder.
func BuildPlaybook(result DetectorResult, now time.Time) Playbook {
	ts := now.UTC().Format(time.RFC3339)
	branch := fmt.Sprintf("self-heal/%s-%s", now.UTC().Format("20060102T150405Z"), regressionSlug(result.Regression))

	switch result.Regression {
	case R3MissingArtifact:
		return Playbook{
			Regression:  result.Regression,
			Branch:      branch,
			Title:       fmt.Sprintf("self-heal: restore missing artifact %s", result.Artifact),
			Description: result.Detail,
			Writes:      r3Placeholder(result.Artifact, ts),
		}
	case R2StatusBroken:
		return Playbook{
			Regression:  result.Regression,
			Branch:      branch,
			Title:       "self-heal: restore system_status gate_result link",
			Description: result.Detail,
			Writes: map[string]any{
				"ops/reports/gate_result.json":   gateResultPlaceholder(ts),
				"ops/reports/system_status.json": statusPlaceholder(ts),
			},
		}
	case R1CapabilityGraphInvalid:
		return Playbook{
			Regression:  result.Regression,
			Branch:      branch,
			Title:       "self-heal: restore capability graph",
			Description: result.Detail,
			Writes: map[string]any{
				DefaultCapabilityGraphPath: capabilityGraphPlaceholder(),
			},
		}
	default:
		return Playbook{}
	}
}

func regressionSlug(r RegressionID) string {
	switch r {
	case R3MissingArtifact:
		return "r3"
	case R2StatusBroken:
		return "r2"
	case R1CapabilityGraphInvalid:
		return "r1"
	default:
		return "unknown"
	}
}

// r3Placeholder picks the right placeholder shape for the kind of
// artifact that went missing; anything not specifically recognized gets
// a generic empty-object placeholder.
func r3Placeholder(path, ts string) map[string]any {
	switch path {
	case "ops/decisions/latest.json", "ops/decisions/canonical_latest.json":
		return map[string]any{path: gateResultPlaceholder(ts)}
	case "ops/reports/system_status.json":
		return map[string]any{path: statusPlaceholder(ts)}
	case "ops/autonomy.json":
		return map[string]any{path: map[string]any{"agents": map[string]any{}}}
	default:
		return map[string]any{path: map[string]any{}}
	}
}

// gateResultPlaceholder mirrors the original's {"verdict": "UNKNOWN", ...}
// template, except the field is named gate_verdict on disk (the
// Consistency Validator's CNS-GATE-003 check accepts either name).
func gateResultPlaceholder(ts string) map[string]any {
	return map[string]any{
		"gate_verdict": "UNKNOWN",
		"reason":       "placeholder created by self-healing (R3)",
		"timestamp":    ts,
	}
}

// statusPlaceholder uses health.signal "YELLOW" for both the R3 and R2
// playbooks — this package does not special-case R2 to a different
// signal value.
func statusPlaceholder(ts string) map[string]any {
	return map[string]any{
		"generated_at": ts,
		"environment":  "unknown",
		"system": map[string]any{
			"state": "degraded",
			"mode":  "self_healing",
		},
		"health": map[string]any{
			"signal":        "YELLOW",
			"overall_score": 0.0,
		},
		"agents": map[string]any{},
		"links": map[string]any{
			"decision_trace": "ops/reports/decision_trace.jsonl",
			"gate_result":    "ops/reports/gate_result.json",
			"latest":         "ops/decisions/latest.json",
		},
	}
}

// capabilityGraphPlaceholder restores governance/resilience/capability_graph.json
// to the minimal shape that satisfies the determinism rule — exactly one
// node marked primary — rather than attempting to infer real agent
// capabilities.
func capabilityGraphPlaceholder() map[string]any {
	return map[string]any{
		"version": "placeholder",
		"nodes": []map[string]any{
			{"id": "george", "primary": true},
		},
	}
}

// TraceEntryForPlaybook builds the SELF_HEALING decision trace line
// emitted whenever a playbook is proposed, regardless of which regression
// fired.
func TraceEntryForPlaybook(result DetectorResult, now time.Time) george.TraceEntry {
	return george.TraceEntry{
		Ts:           now.UTC().Format(time.RFC3339),
		TraceVersion: "1.0",
		Actor:        george.ActorSelfHealing,
		Phase:        "SELF_HEALING",
		Result:       "ESCALATED_TO_HUMAN",
		Extra: map[string]any{
			"decision_type": "SELF_HEALING",
			"action":        "OPEN_PR",
			"authority":     "SYSTEM",
			"regression":    string(result.Regression),
			"artifact":      result.Artifact,
		},
	}
}

// PRMetadata is the branch/title/body a self-healing run hands to its
// caller (typically a CLI subcommand printing a report, or a CI job
// opening an actual PR).
type PRMetadata struct {
	Branch string `json:"branch"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// BuildPRMetadata derives the PR the human reviewer is asked to approve.
func BuildPRMetadata(p Playbook) PRMetadata {
	return PRMetadata{
		Branch: p.Branch,
		Title:  p.Title,
		Body:   p.Description,
	}
}
