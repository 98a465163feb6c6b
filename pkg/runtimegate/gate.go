// Package runtimegate implements the Runtime Gate: the final fail-closed
// check a deploy/release pipeline runs against the latest decision before
// treating an autonomous action as cleared. It reads only the Signals
// block and decision_class off a Decision — it does not re-derive health
// itself.
package runtimegate

import (
	"fmt"

	"github.com/fleetgov/george/pkg/george"
)

// Evaluate applies policy to decision and returns the verdict. The
// algorithm:
//
//  1. decision_class is required; an empty class is a hard BLOCK with
//     reason "missing_decision_class", and a class outside the four
//     canonical classes is a hard BLOCK with reason
//     "unknown_decision_class" — there is no default-permissive fallback
//     here, unlike Policy.PolicyFor's behavior for canonical classes
//     absent from the policy file itself.
//  2. Each policy requirement (min_health_score, require_guardian_ok,
//     require_trace, require_status_endpoint) that fails appends a
//     reason string; any failure means the base verdict is not ALLOW.
//  3. The base failing verdict is policy.OnFail for d's class ("BLOCK" or
//     "ESCALATE"); if that is "ESCALATE" but policy.AllowHumanOverride is
//     false, it is upgraded to "BLOCK" — an escalation nobody can act on
//     is not a safe outcome.
//  4. In AdvisoryMode, a BLOCK verdict is downgraded to ESCALATE so a
//     pipeline running the gate in advisory mode never hard-fails a
//     release, only flags it.
func Evaluate(decision george.Decision, policy Policy) george.GateResult {
	result := george.GateResult{
		DecisionID:    decision.ID,
		DecisionClass: decision.DecisionClass,
		AppliedPolicy: map[string]any{},
	}

	if decision.DecisionClass == "" {
		result.Verdict = george.VerdictBlock
		result.Reasons = []string{"missing_decision_class"}
		return result
	}
	switch decision.DecisionClass {
	case george.ClassSafetyCritical, george.ClassOperational, george.ClassStrategic, george.ClassDeploy:
	default:
		result.Verdict = george.VerdictBlock
		result.Reasons = []string{"unknown_decision_class"}
		return result
	}

	classPolicy := policy.PolicyFor(decision.DecisionClass)
	result.AppliedPolicy = map[string]any{
		"min_health_score":        classPolicy.MinHealthScore,
		"require_guardian_ok":     classPolicy.RequireGuardianOK,
		"require_trace":           classPolicy.RequireTrace,
		"require_status_endpoint": classPolicy.RequireStatusEndpoint,
		"on_fail":                 classPolicy.OnFail,
	}

	var reasons []string
	signals := decision.Signals
	if signals == nil {
		reasons = append(reasons, "missing_signals")
	} else {
		if signals.SystemHealthScore < classPolicy.MinHealthScore {
			reasons = append(reasons, fmt.Sprintf(
				"system_health_score %.3f below minimum %.3f", signals.SystemHealthScore, classPolicy.MinHealthScore))
		}
		if classPolicy.RequireGuardianOK && !signals.GuardianOK {
			reasons = append(reasons, "guardian_not_ok")
		}
		if classPolicy.RequireTrace && !signals.DecisionTracePresent {
			reasons = append(reasons, "decision_trace_missing")
		}
		if classPolicy.RequireStatusEndpoint && !signals.StatusEndpointOK {
			reasons = append(reasons, "status_endpoint_not_ok")
		}
	}

	if len(reasons) == 0 {
		result.Verdict = george.VerdictAllow
		return result
	}

	result.Reasons = reasons
	verdict := classPolicy.OnFail
	if verdict == "" {
		verdict = george.VerdictBlock
	}
	if verdict == george.VerdictEscalate && !policy.AllowHumanOverride {
		verdict = george.VerdictBlock
	}
	if verdict == george.VerdictBlock && policy.AdvisoryMode {
		verdict = george.VerdictEscalate
	}
	result.Verdict = verdict
	return result
}

// ExitCode maps a verdict to the process exit code the CLI contract
// promises downstream pipelines.
func ExitCode(verdict string) int {
	switch verdict {
	case george.VerdictAllow:
		return george.ExitAllow
	case george.VerdictEscalate:
		return george.ExitEscalate
	default:
		return george.ExitBlock
	}
}
