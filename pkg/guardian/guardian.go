// Package guardian implements the pre- and post-action health gate: a
// precheck that can refuse an action before it runs, and a postcheck that
// always advances HealthState regardless of outcome.
package guardian

import (
	"time"

	"github.com/fleetgov/george/pkg/george"
)

// Clock abstracts wall-clock time so tests can drive HealthState through
// deterministic sequences without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// PrecheckResult reports whether an action may proceed.
type PrecheckResult struct {
	Allowed bool
	Reason  string
}

// Precheck rejects an action before it runs when the agent is not active,
// or when its configured autonomy falls below the rule's minimum. A "planned" or
// "paused" profile is rejected exactly like "inactive" — only "active"
// passes.
func Precheck(profile george.AgentProfile, minAutonomy float64) PrecheckResult {
	if profile.Status != george.AgentStatusActive {
		return PrecheckResult{Allowed: false, Reason: "agent_inactive"}
	}
	if minAutonomy > 0 && profile.Autonomy < minAutonomy {
		return PrecheckResult{Allowed: false, Reason: "autonomy_too_low"}
	}
	return PrecheckResult{Allowed: true}
}

// Postcheck always registers the outcome against health, regardless of
// whether success is true — a failed action still advances the
// self-detection error count and therefore the stability estimate. It
// returns the guardian flag to attach to the Decision: "ok" on success,
// or a policy-driven flag when the agent's FailureThresholds opt into
// flagging failures for a follow-up Guardian policy check.
func Postcheck(health *george.HealthState, profile george.AgentProfile, success bool) (flag string) {
	health.RegisterResult(success)
	if success {
		return "ok"
	}
	if profile.FailureThresholds.TriggerGuardianPolicyCheck {
		return "guardian_policy_check"
	}
	return "error_detected"
}
