// Package orchestrator implements George's central control flow: route
// an inbound Event through the rule table, run Guardian's precheck, check
// authority, execute the matched action, run Guardian's postcheck, and
// persist the resulting Decision to every artifact the rest of the
// system reads from.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetgov/george/pkg/artifacts"
	"github.com/fleetgov/george/pkg/authz"
	"github.com/fleetgov/george/pkg/executor"
	"github.com/fleetgov/george/pkg/george"
	"github.com/fleetgov/george/pkg/guardian"
	"github.com/fleetgov/george/pkg/rules"
)

const (
	pathDecisionsLog    = "ops/reports/decisions.jsonl"
	pathDecisionTrace   = "ops/reports/decision_trace.jsonl"
	pathLatest          = "ops/decisions/latest.json"
	pathCanonicalLatest = "ops/decisions/canonical_latest.json"
	pathDecisionsLatest = "ops/decisions/decisions_latest.json"
	pathSnapshotDir     = "ops/decisions/snapshots"
)

// Orchestrator wires the rule matcher, authority matrix, Guardian health
// state, and tool driver together into one Orchestrate call per event.
type Orchestrator struct {
	Store    *artifacts.GovernanceStore
	Matcher  *rules.Matcher
	Rules    []george.Rule
	Matrix   *george.AuthorityMatrix
	Profiles map[string]george.AgentProfile
	Health   *george.HealthState
	Driver   executor.ToolDriver
	Clock    guardian.Clock

	// Archive is an optional secondary sink for the canonical snapshot a
	// finalized decision produces — content-addressed storage selected by
	// ARTIFACT_STORAGE_TYPE (see pkg/artifacts.NewStoreFromEnv), used for
	// off-host daily archival. It never replaces the mandatory local
	// JSONL/JSON artifact paths Store writes, and a nil Archive (or an
	// archival failure) never fails the decision.
	Archive artifacts.Store
}

// New builds an Orchestrator with a SimulatedDriver and system clock by
// default; callers override Driver/Clock after construction for tests or
// real tool integration.
func New(store *artifacts.GovernanceStore, matcher *rules.Matcher, ruleTable []george.Rule, matrix *george.AuthorityMatrix, profiles map[string]george.AgentProfile, health *george.HealthState) *Orchestrator {
	return &Orchestrator{
		Store:    store,
		Matcher:  matcher,
		Rules:    ruleTable,
		Matrix:   matrix,
		Profiles: profiles,
		Health:   health,
		Driver:   &executor.SimulatedDriver{},
		Clock:    guardian.SystemClock{},
	}
}

// Outcome is what Orchestrate returns: the final Decision plus the
// sequence of trace entries emitted along the way, for callers (e.g. the
// CLI) that want to print a human-readable summary without re-reading
// the trace file back.
type Outcome struct {
	Decision george.Decision
	Trace    []george.TraceEntry
}

// Orchestrate runs one event through the full pipeline:
//
//	ROUTED -> PRE_OK | BLOCKED_PRE -> AUTH_OK | BLOCKED_AUTH ->
//	EXECUTED{success|error} -> POSTCHECKED -> FINALIZED
//
// A rule miss is not an error: it synthesizes a fallback routing
// (target the event's own agent, action named after the event, confidence
// 0.5) and proceeds through the same pipeline as a matched rule. Only a
// Guardian precheck rejection or an authority rejection short-circuits to
// a blocked Decision with no execution attempt and no Guardian postcheck
// — HealthState only advances for decisions that actually reached
// execution, matching the upstream control flow this state machine is
// ported from.
func (o *Orchestrator) Orchestrate(ctx context.Context, event george.Event) (Outcome, error) {
	now := o.Clock.Now()
	event.Normalize(now)

	var trace []george.TraceEntry
	emit := func(actor george.TraceActor, phase, result string, decisionID string) {
		entry := george.TraceEntry{
			Ts:           now.UTC().Format(time.RFC3339),
			TraceVersion: "1.0",
			DecisionID:   decisionID,
			Actor:        actor,
			Phase:        phase,
			Result:       result,
		}
		trace = append(trace, entry)
		_ = o.Store.AppendTrace(pathDecisionTrace, entry)
	}

	decisionID := event.ID
	rule, matched := o.Matcher.Match(event, o.Rules, o.profileMap(event.Agent), o.Health.SystemStabilityScore)
	emit(george.ActorGeorge, "ROUTED", matchResult(matched), decisionID)

	if !matched {
		fallbackConfidence := 0.5
		rule = &george.Rule{
			Then: george.RuleThen{
				Agent:      event.Agent,
				Action:     event.Event,
				Confidence: &fallbackConfidence,
			},
		}
	}

	agent := rule.Then.Agent
	if agent == "" {
		agent = event.Agent
	}
	action := rule.Then.Action
	class := rule.Then.DecisionClass
	if class == "" {
		class = george.ClassOperational
	}

	profile := o.Profiles[agent]
	pre := guardian.Precheck(profile, rule.Then.MinAutonomy)
	emit(george.ActorGuardian, "PRECHECK", preResult(pre), decisionID)

	if !pre.Allowed {
		decision := o.blockedDecision(decisionID, now, event, agent, george.AuthorityGuardian, pre.Reason, class)
		decision.Action = action
		if err := o.finalize(ctx, decision, false); err != nil {
			return Outcome{Decision: decision, Trace: trace}, err
		}
		return Outcome{Decision: decision, Trace: trace}, nil
	}

	authResult := authz.Decide(o.Matrix, agent, class)
	emit(george.ActorAuthority, "AUTHORIZE", authResultLabel(authResult), decisionID)

	if !authResult.Allowed {
		authoritySource := george.AuthorityGuardian
		if authResult.Required == george.RequireHuman || authResult.Required == george.RequireManual {
			authoritySource = george.AuthorityHuman
		}
		decision := o.blockedDecision(decisionID, now, event, agent, authoritySource, authResult.Reason, authResult.DecisionClass)
		decision.Action = action
		if err := o.finalize(ctx, decision, false); err != nil {
			return Outcome{Decision: decision, Trace: trace}, err
		}
		return Outcome{Decision: decision, Trace: trace}, nil
	}

	params := event.Payload
	execResult, execErr := o.Driver.Execute(ctx, action, params)
	success := execErr == nil
	emit(george.ActorExecutor, "EXECUTE", execResultLabel(success), decisionID)

	flag := guardian.Postcheck(o.Health, profile, success)
	emit(george.ActorGuardian, "POSTCHECK", flag, decisionID)

	decision := george.Decision{
		ID:              decisionID,
		Timestamp:       now.UTC().Format(time.RFC3339),
		SourceEventID:   event.ID,
		Agent:           agent,
		Action:          action,
		Intent:          event.Intent,
		Confidence:      confidenceOf(rule),
		DecisionClass:   authResult.DecisionClass,
		AuthoritySource: george.AuthorityGeorge,
		GuardianFlag:    flag,
	}
	if success {
		decision.Status = george.StatusSuccess
		decision.ResultSummary = fmt.Sprintf("%v", execResult)
	} else {
		decision.Status = george.StatusError
		decision.ErrorMessage = execErr.Error()
	}
	o.Health.LastAutonomousAction = decision.Timestamp

	if err := o.finalize(ctx, decision, true); err != nil {
		return Outcome{Decision: decision, Trace: trace}, err
	}
	return Outcome{Decision: decision, Trace: trace}, nil
}

func matchResult(matched bool) string {
	if matched {
		return "matched"
	}
	return "no_match"
}

func preResult(p guardian.PrecheckResult) string {
	if p.Allowed {
		return "allowed"
	}
	return "rejected:" + p.Reason
}

func authResultLabel(r authz.Result) string {
	if r.Allowed {
		return "allowed"
	}
	return "rejected:" + r.Reason
}

func execResultLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func confidenceOf(rule *george.Rule) float64 {
	if rule.Then.Confidence != nil {
		return *rule.Then.Confidence
	}
	return 1.0
}

func (o *Orchestrator) profileMap(agent string) map[string]any {
	profile, ok := o.Profiles[agent]
	if !ok {
		return map[string]any{}
	}
	return map[string]any{
		"status":   profile.Status,
		"autonomy": profile.Autonomy,
		"role":     profile.Role,
	}
}

func (o *Orchestrator) blockedDecision(id string, now time.Time, event george.Event, agent string, authoritySource george.AuthoritySource, reason, class string) george.Decision {
	if agent == "" {
		agent = event.Agent
	}
	return george.Decision{
		ID:              id,
		Timestamp:       now.UTC().Format(time.RFC3339),
		SourceEventID:   event.ID,
		Agent:           agent,
		Intent:          event.Intent,
		Status:          george.StatusBlocked,
		GuardianFlag:    reason,
		DecisionClass:   class,
		AuthoritySource: authoritySource,
	}
}
