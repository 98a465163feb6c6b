// Package george holds the data model shared by every governance
// component: events arrive in this shape, decisions leave in this shape,
// and the trace/status/gate artifacts are all built from it.
package george

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecisionStatus is the tagged-variant discriminator on Decision.
type DecisionStatus string

const (
	StatusPending DecisionStatus = "pending"
	StatusSuccess DecisionStatus = "success"
	StatusError   DecisionStatus = "error"
	StatusBlocked DecisionStatus = "blocked"
)

// AuthoritySource names who made the call on a decision.
type AuthoritySource string

const (
	AuthorityGeorge    AuthoritySource = "george"
	AuthorityGuardian  AuthoritySource = "guardian"
	AuthorityHuman     AuthoritySource = "human"
)

// Decision class taxonomy. Exactly these four; anything else is unknown.
const (
	ClassSafetyCritical = "safety_critical"
	ClassOperational     = "operational"
	ClassStrategic       = "strategic"
	ClassDeploy          = "deploy"
)

// Event is the inbound unit of work. Immutable once it arrives; a fresh
// UUID is assigned when ID is absent.
type Event struct {
	ID            string         `json:"id"`
	Timestamp     string         `json:"timestamp"`
	Agent         string         `json:"agent"`
	Event         string         `json:"event"`
	Intent        string         `json:"intent,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	SourceEventID string         `json:"source_event_id,omitempty"`
}

// Normalize fills ID and Timestamp with fresh defaults when absent,
// matching the original's Event.from_dict behavior.
func (e *Event) Normalize(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == "" {
		e.Timestamp = now.UTC().Format(time.RFC3339)
	}
	if e.Agent == "" {
		e.Agent = "unknown"
	}
	if e.Event == "" {
		e.Event = "unknown"
	}
}

// RuleWhen is the (possibly partial) match pattern. An empty field is a
// wildcard.
type RuleWhen struct {
	Agent         string `yaml:"agent,omitempty" json:"agent,omitempty"`
	Event         string `yaml:"event,omitempty" json:"event,omitempty"`
	Intent        string `yaml:"intent,omitempty" json:"intent,omitempty"`
	SourceEventID string `yaml:"source_event_id,omitempty" json:"source_event_id,omitempty"`
}

// RuleThen is the routing/authority consequence of a match.
type RuleThen struct {
	Agent         string  `yaml:"agent,omitempty" json:"agent,omitempty"`
	Action        string  `yaml:"action,omitempty" json:"action,omitempty"`
	Confidence    *float64 `yaml:"confidence,omitempty" json:"confidence,omitempty"`
	DecisionClass string  `yaml:"decision_class,omitempty" json:"decision_class,omitempty"`
	MinAutonomy   float64 `yaml:"min_autonomy,omitempty" json:"min_autonomy,omitempty"`
}

// RulePreconditions gates a match on additional runtime facts beyond the
// structural Event fields.
type RulePreconditions struct {
	GuardianStatus  string  `yaml:"guardian_status,omitempty" json:"guardian_status,omitempty"`
	SystemHealthMin float64 `yaml:"system_health_min,omitempty" json:"system_health_min,omitempty"`
	// Expr is an optional CEL expression evaluated against {event, profile,
	// health}; a rule whose Expr errors or evaluates non-bool is treated
	// as non-matching, never as a hard error.
	Expr string `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// Rule is one entry of the rule table. Rules are matched in declaration
// order; the first match wins.
type Rule struct {
	ID             string             `yaml:"id" json:"id"`
	When           RuleWhen           `yaml:"when" json:"when"`
	Then           RuleThen           `yaml:"then" json:"then"`
	Preconditions  RulePreconditions  `yaml:"preconditions,omitempty" json:"preconditions,omitempty"`
}

// AgentProfile is static configuration, never derived at runtime.
type AgentProfile struct {
	Status            string             `yaml:"status" json:"status"`
	Autonomy          float64            `yaml:"autonomy" json:"autonomy"`
	Role              string             `yaml:"role,omitempty" json:"role,omitempty"`
	Actions           []string           `yaml:"actions,omitempty" json:"actions,omitempty"`
	FailureThresholds FailureThresholds  `yaml:"failure_thresholds,omitempty" json:"failure_thresholds,omitempty"`
}

// FailureThresholds decides how Guardian.postcheck flags a failure.
type FailureThresholds struct {
	TriggerGuardianPolicyCheck bool `yaml:"trigger_guardian_policy_check,omitempty" json:"trigger_guardian_policy_check,omitempty"`
}

const (
	AgentStatusActive   = "active"
	AgentStatusPlanned  = "planned"
	AgentStatusPaused   = "paused"
	AgentStatusInactive = "inactive"
)

// AutonomyConfig is the on-disk shape of ops/autonomy.json: a map of agent
// id to profile.
type AutonomyConfig struct {
	Agents map[string]AgentProfile `json:"agents"`
}

// ClassPolicy is one entry of AuthorityMatrix.Classes.
type ClassPolicy struct {
	Require string `yaml:"require" json:"require"`
}

// AgentOverride narrows the decision classes one agent may act under.
type AgentOverride struct {
	AllowedClasses []string `yaml:"allowed_classes,omitempty" json:"allowed_classes,omitempty"`
}

// AuthorityMatrix is the approval-requirement policy.
type AuthorityMatrix struct {
	Default ClassPolicy              `yaml:"default" json:"default"`
	Classes map[string]ClassPolicy   `yaml:"classes" json:"classes"`
	Agents  map[string]AgentOverride `yaml:"agents,omitempty" json:"agents,omitempty"`
}

// Required authority approvers.
const (
	RequireAgent    = "agent"
	RequireGuardian = "guardian"
	RequireHuman    = "human"
	RequireManual   = "manual"
)

// Signals are the Runtime Gate's sole inputs, carried on every Decision.
type Signals struct {
	SystemHealthScore     float64 `json:"system_health_score"`
	GuardianOK            bool    `json:"guardian_ok"`
	StatusEndpointOK      bool    `json:"status_endpoint_ok"`
	DecisionTracePresent  bool    `json:"decision_trace_present"`
	SystemHealthPercent   float64 `json:"system_health_percent,omitempty"`
}

// DecisionTrace is the embedded summary of the append-only trace for this
// decision (not to be confused with the TraceEntry log itself).
type DecisionTrace struct {
	Complete      bool     `json:"complete"`
	TraceID       string   `json:"trace_id"`
	ExecutionPath []string `json:"execution_path"`
}

// ExecutionContext carries bookkeeping about how the action ran.
type ExecutionContext struct {
	LatencyMs        int64            `json:"latency_ms"`
	Dependencies     []string         `json:"dependencies"`
	SecurityContext  SecurityContext  `json:"security_context"`
}

// SecurityContext is a fixed, always-present sub-block of ExecutionContext.
type SecurityContext struct {
	Authenticated      bool   `json:"authenticated"`
	AuthorizationLevel string `json:"authorization_level"`
}

// DefaultExecutionContext mirrors the original's _default_execution_context.
func DefaultExecutionContext() ExecutionContext {
	return ExecutionContext{
		LatencyMs:    0,
		Dependencies: []string{},
		SecurityContext: SecurityContext{
			Authenticated:      true,
			AuthorizationLevel: "standard",
		},
	}
}

// HealthContext is a human-facing summary of HealthState at decision time.
type HealthContext struct {
	SystemHealth         int                  `json:"system_health"`
	GuardianStatus       string               `json:"guardian_status"`
	PerformanceMetrics   PerformanceMetrics   `json:"performance_metrics"`
}

// PerformanceMetrics is the embedded subset of HealthState shown in
// HealthContext.
type PerformanceMetrics struct {
	AgentResponseSuccessRate float64 `json:"agent_response_success_rate"`
	TotalActions             int     `json:"total_actions"`
	FailedActions            int     `json:"failed_actions"`
}

// Decision is the system's central record: the tagged variant over
// {pending,success,error,blocked} with required fields per variant
// enforced by the Orchestrator, not by the Go type system.
type Decision struct {
	ID              string          `json:"id"`
	Timestamp       string          `json:"timestamp"`
	SourceEventID   string          `json:"source_event_id,omitempty"`
	Agent           string          `json:"agent"`
	Action          string          `json:"action"`
	Intent          string          `json:"intent,omitempty"`
	Confidence      float64         `json:"confidence"`
	Status          DecisionStatus  `json:"status"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	GuardianFlag    string          `json:"guardian_flag,omitempty"`
	FollowUp        string          `json:"follow_up,omitempty"`
	ResultSummary   string          `json:"result_summary,omitempty"`

	DecisionClass    string           `json:"decision_class"`
	AuthoritySource  AuthoritySource  `json:"authority_source"`

	HealthContext    *HealthContext    `json:"health_context,omitempty"`
	DecisionTrace    *DecisionTrace    `json:"decision_trace,omitempty"`
	ExecutionContext *ExecutionContext `json:"execution_context,omitempty"`
	Signals          *Signals          `json:"signals,omitempty"`
}

// HealthState is the running-counter accumulator. All derived quantities
// are normalized to [0,1].
type HealthState struct {
	TotalActions               int     `json:"total_actions"`
	FailedActions              int     `json:"failed_actions"`
	SelfDetectionErrors        int     `json:"self_detection_errors"`
	AgentResponseSuccessRate   float64 `json:"agent_response_success_rate"`
	SystemStabilityScore       float64 `json:"system_stability_score"`
	AutonomyLevelEstimate      float64 `json:"autonomy_level_estimate"`
	LastAutonomousAction       string  `json:"last_autonomous_action,omitempty"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RegisterResult advances HealthState by one outcome, exactly matching the
// formula chain: success rate -> stability (with a 0.1-per-error penalty,
// clamped) -> autonomy estimate (0.4 + 0.6*stability, clamped).
func (h *HealthState) RegisterResult(success bool) {
	h.TotalActions++
	if !success {
		h.FailedActions++
		h.SelfDetectionErrors++
	}

	if h.TotalActions > 0 {
		h.AgentResponseSuccessRate = float64(h.TotalActions-h.FailedActions) / float64(h.TotalActions)
	}

	h.SystemStabilityScore = clamp01(h.AgentResponseSuccessRate * (1.0 - 0.1*float64(h.SelfDetectionErrors)))
	h.AutonomyLevelEstimate = clamp01(0.4 + 0.6*h.SystemStabilityScore)
}

// TraceActor enumerates who may append a TraceEntry.
type TraceActor string

const (
	ActorGeorge      TraceActor = "george"
	ActorGuardian    TraceActor = "guardian"
	ActorAuthority   TraceActor = "authority"
	ActorExecutor    TraceActor = "executor"
	ActorSelfHealing TraceActor = "self_healing"
)

// TraceEntry is one append-only line of the decision trace. Extra carries
// actor/phase-specific fields (e.g. self-healing's decision_type, action,
// authority) that don't belong on every entry; MarshalJSON flattens it
// into the same object as the fixed fields rather than nesting it.
type TraceEntry struct {
	Ts           string         `json:"ts"`
	TraceVersion string         `json:"trace_version"`
	TraceID      string         `json:"trace_id,omitempty"`
	DecisionID   string         `json:"decision_id,omitempty"`
	Actor        TraceActor     `json:"actor"`
	Phase        string         `json:"phase"`
	Result       string         `json:"result"`
	Extra        map[string]any `json:"-"`
}

// MarshalJSON flattens Extra's keys alongside TraceEntry's fixed fields.
// A key in Extra that collides with a fixed field name is dropped in
// favor of the fixed field — the struct's own fields are authoritative.
func (t TraceEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Extra)+7)
	for k, v := range t.Extra {
		out[k] = v
	}
	out["ts"] = t.Ts
	out["trace_version"] = t.TraceVersion
	if t.TraceID != "" {
		out["trace_id"] = t.TraceID
	} else {
		delete(out, "trace_id")
	}
	if t.DecisionID != "" {
		out["decision_id"] = t.DecisionID
	} else {
		delete(out, "decision_id")
	}
	out["actor"] = t.Actor
	out["phase"] = t.Phase
	out["result"] = t.Result
	return jsonMarshal(out)
}

// GateResult is the Runtime Gate's verdict for one decision.
type GateResult struct {
	DecisionID     string         `json:"decision_id"`
	DecisionClass  string         `json:"decision_class"`
	Verdict        string         `json:"verdict"`
	Reasons        []string       `json:"reasons"`
	AppliedPolicy  map[string]any `json:"applied_policy"`
}

const (
	VerdictAllow    = "ALLOW"
	VerdictEscalate = "ESCALATE"
	VerdictBlock    = "BLOCK"
)

// Exit code mapping for downstream pipelines.
const (
	ExitAllow    = 0
	ExitEscalate = 10
	ExitBlock    = 20
)

// SystemStatus is the SSOT of health + artifact links.
type SystemStatus struct {
	GeneratedAt string                   `json:"generated_at"`
	Environment string                   `json:"environment"`
	System      SystemStatusSystem       `json:"system"`
	Health      SystemStatusHealth       `json:"health"`
	Agents      map[string]AgentStatus   `json:"agents"`
	Links       SystemStatusLinks        `json:"links"`
}

type SystemStatusSystem struct {
	State string `json:"state"`
	Mode  string `json:"mode"`
}

type SystemStatusHealth struct {
	Signal              string  `json:"signal"`
	OverallScore         float64 `json:"overall_score"`
	OverallScorePercent  float64 `json:"system_health_percent,omitempty"`
}

type AgentStatus struct {
	Status string `json:"status"`
}

type SystemStatusLinks struct {
	DecisionTrace string `json:"decision_trace"`
	GateResult    string `json:"gate_result"`
	Latest        string `json:"latest"`
}

// Health signal vocabulary (I5).
var HealthSignals = []string{"green", "yellow", "red"}
