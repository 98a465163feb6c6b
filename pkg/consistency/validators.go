package consistency

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetgov/george/pkg/artifacts"
	"github.com/fleetgov/george/pkg/george"
)

const staleAfter = 24 * time.Hour

// ValidateSystemStatus checks system_status.json's internal consistency:
// required fields present, health score in range, health signal in
// vocabulary, generated_at parseable and recent, and its links pointing
// at files that actually exist.
func ValidateSystemStatus(store *artifacts.GovernanceStore, path string, now time.Time) []Finding {
	var status george.SystemStatus
	ok, err := store.ReadJSON(path, &status)
	if err != nil || !ok {
		return []Finding{{Code: CodeSSOT001, Level: LevelFail, Message: fmt.Sprintf("system_status unreadable at %s: %v", path, err)}}
	}

	var findings []Finding

	if status.GeneratedAt == "" || status.System.State == "" {
		findings = append(findings, Finding{Code: CodeSSOT002, Level: LevelFail, Message: "system_status missing generated_at or system.state"})
	}

	if !validHealthSignal(status.Health.Signal) {
		findings = append(findings, Finding{Code: CodeSSOT005, Level: LevelWarn, Message: fmt.Sprintf("health.signal %q not in vocabulary", status.Health.Signal)})
	}

	if status.Health.OverallScore < 0 || status.Health.OverallScore > 1 {
		findings = append(findings, Finding{Code: CodeHealth001, Level: LevelFail, Message: fmt.Sprintf("health.overall_score %.3f out of [0,1]", status.Health.OverallScore)})
	}

	if status.GeneratedAt != "" {
		ts, perr := time.Parse(time.RFC3339, status.GeneratedAt)
		if perr != nil {
			findings = append(findings, Finding{Code: CodeTime001, Level: LevelFail, Message: fmt.Sprintf("generated_at %q not parseable: %v", status.GeneratedAt, perr)})
		} else if now.Sub(ts) > staleAfter {
			findings = append(findings, Finding{Code: CodeTime002, Level: LevelWarn, Message: fmt.Sprintf("generated_at %s is stale (>%s old)", status.GeneratedAt, staleAfter)})
		}
	}

	for _, link := range []string{status.Links.DecisionTrace, status.Links.GateResult, status.Links.Latest} {
		if link == "" {
			continue
		}
		if !store.Exists(link) {
			findings = append(findings, Finding{Code: CodeSSOT003, Level: LevelWarn, Message: fmt.Sprintf("link %s does not exist", link)})
		}
	}

	return findings
}

func validHealthSignal(signal string) bool {
	for _, s := range george.HealthSignals {
		if s == signal {
			return true
		}
	}
	return false
}

// ValidateGateResult checks gate_result.json against the latest decision:
// present and readable, decision_id matches, and the verdict field is
// present. The field is accepted under either name: "verdict" (the name
// george.GateResult serializes) or "gate_verdict" (the name the
// self-healing placeholder writes).
func ValidateGateResult(store *artifacts.GovernanceStore, gatePath string, latestDecisionID string) []Finding {
	var raw map[string]any
	ok, err := store.ReadJSON(gatePath, &raw)
	if err != nil || !ok {
		return []Finding{{Code: CodeGate001, Level: LevelFail, Message: fmt.Sprintf("gate_result unreadable at %s: %v", gatePath, err)}}
	}

	var findings []Finding

	decisionID, _ := raw["decision_id"].(string)
	if latestDecisionID != "" && decisionID != "" && decisionID != latestDecisionID {
		findings = append(findings, Finding{Code: CodeGate002, Level: LevelWarn, Message: fmt.Sprintf("gate_result.decision_id %s does not match latest decision %s", decisionID, latestDecisionID)})
	}

	_, hasVerdict := raw["verdict"]
	_, hasGateVerdict := raw["gate_verdict"]
	if !hasVerdict && !hasGateVerdict {
		findings = append(findings, Finding{Code: CodeGate003, Level: LevelFail, Message: "gate_result missing verdict field"})
	}

	return findings
}

// ValidateDecisionTraceTail reads up to tailWindow trailing lines of the
// decision trace JSONL and checks: each line parses as JSON, each entry
// carries its required fields, entries aren't duplicated, actors are
// recognized, the tail includes an entry for the latest decision, and the
// tail itself is at least minWindow lines deep.
func ValidateDecisionTraceTail(store *artifacts.GovernanceStore, tracePath string, tailWindow, minWindow int, latestDecisionID string) []Finding {
	lines, err := store.ReadTail(tracePath, tailWindow)
	if err != nil {
		return []Finding{{Code: CodeTrace001, Level: LevelFail, Message: fmt.Sprintf("trace unreadable at %s: %v", tracePath, err)}}
	}
	if lines == nil {
		return []Finding{{Code: CodeTrace001, Level: LevelFail, Message: fmt.Sprintf("trace missing at %s", tracePath)}}
	}

	var findings []Finding
	seen := map[string]bool{}
	var lastTs time.Time
	sawLatestDecision := false

	for i, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			findings = append(findings, Finding{Code: CodeTrace002, Level: LevelFail, Message: fmt.Sprintf("trace line %d not valid JSON: %v", i, err)})
			continue
		}

		ts, _ := entry["ts"].(string)
		actor, _ := entry["actor"].(string)
		phase, _ := entry["phase"].(string)
		decisionID, _ := entry["decision_id"].(string)

		if ts == "" || actor == "" || phase == "" {
			findings = append(findings, Finding{Code: CodeTrace003, Level: LevelFail, Message: fmt.Sprintf("trace line %d missing ts/actor/phase", i)})
		}

		if !validActor(actor) {
			findings = append(findings, Finding{Code: CodeTrace011, Level: LevelWarn, Message: fmt.Sprintf("trace line %d references unknown actor %q", i, actor)})
		}

		key := decisionID + "|" + phase + "|" + actor
		if seen[key] {
			findings = append(findings, Finding{Code: CodeTrace010, Level: LevelWarn, Message: fmt.Sprintf("duplicate trace entry decision=%s phase=%s actor=%s", decisionID, phase, actor)})
		}
		seen[key] = true

		if parsed, perr := time.Parse(time.RFC3339, ts); perr == nil {
			if !lastTs.IsZero() && parsed.Before(lastTs) {
				findings = append(findings, Finding{Code: CodeTrace004, Level: LevelWarn, Message: fmt.Sprintf("trace line %d out of order", i)})
			}
			lastTs = parsed
		}

		if decisionID != "" && decisionID == latestDecisionID {
			sawLatestDecision = true
		}
	}

	if latestDecisionID != "" && !sawLatestDecision {
		findings = append(findings, Finding{Code: CodeTrace020, Level: LevelWarn, Message: "trace tail has no entry for the latest decision"})
	}

	if len(lines) < minWindow {
		findings = append(findings, Finding{Code: CodeTrace030, Level: LevelWarn, Message: fmt.Sprintf("trace tail has only %d lines, below minimum %d", len(lines), minWindow)})
	}

	return findings
}

func validActor(actor string) bool {
	switch george.TraceActor(actor) {
	case george.ActorGeorge, george.ActorGuardian, george.ActorAuthority, george.ActorExecutor, george.ActorSelfHealing:
		return true
	default:
		return false
	}
}

// ValidateRegistry checks the agent registry (autonomy.json) against the
// authority matrix: every field present, autonomy in range, status in
// vocabulary, no duplicate agent ids, and every registry agent has either
// a matrix default or an explicit override.
func ValidateRegistry(autonomy *george.AutonomyConfig, matrix *george.AuthorityMatrix) []Finding {
	if autonomy == nil {
		return []Finding{{Code: CodeReg001, Level: LevelFail, Message: "registry (autonomy.json) missing or unreadable"}}
	}

	var findings []Finding
	seen := map[string]bool{}

	for id, profile := range autonomy.Agents {
		if seen[id] {
			findings = append(findings, Finding{Code: CodeReg006, Level: LevelFail, Message: fmt.Sprintf("duplicate registry agent id %q", id)})
		}
		seen[id] = true

		if profile.Status == "" {
			findings = append(findings, Finding{Code: CodeReg003, Level: LevelFail, Message: fmt.Sprintf("agent %q missing status", id)})
		}
		if profile.Autonomy < 0 || profile.Autonomy > 1 {
			findings = append(findings, Finding{Code: CodeReg004, Level: LevelFail, Message: fmt.Sprintf("agent %q autonomy %.3f out of [0,1]", id, profile.Autonomy)})
		}
		if !validAgentStatus(profile.Status) {
			findings = append(findings, Finding{Code: CodeReg005, Level: LevelWarn, Message: fmt.Sprintf("agent %q status %q not in vocabulary", id, profile.Status)})
		}

		if matrix != nil {
			if _, hasOverride := matrix.Agents[id]; !hasOverride && matrix.Default.Require == "" {
				findings = append(findings, Finding{Code: CodeReg008, Level: LevelWarn, Message: fmt.Sprintf("agent %q has no authority matrix override and no default policy", id)})
			}
			if _, hasOverride := matrix.Agents[id]; !hasOverride {
				findings = append(findings, Finding{Code: CodeReg002, Level: LevelWarn, Message: fmt.Sprintf("agent %q missing from authority matrix overrides", id)})
			}
		}
	}

	return findings
}

func validAgentStatus(status string) bool {
	switch status {
	case george.AgentStatusActive, george.AgentStatusPlanned, george.AgentStatusPaused, george.AgentStatusInactive:
		return true
	default:
		return false
	}
}
