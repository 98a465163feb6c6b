package george

import "math"

// CanonicalLatest is the stable, human-facing shape written to
// ops/decisions/canonical_latest.json and ops/decisions/latest.json (the
// Gate's input). It re-derives the signals block the Runtime Gate actually
// reads and aliases decision_trace under "trace" for readers that expect
// that name.
type CanonicalLatest struct {
	SchemaVersion    string            `json:"schema_version"`
	DecisionID       string            `json:"decision_id"`
	ID               string            `json:"id"`
	Timestamp        string            `json:"timestamp"`
	SourceEventID    string            `json:"source_event_id,omitempty"`
	Agent            string            `json:"agent"`
	Action           string            `json:"action"`
	Intent           string            `json:"intent,omitempty"`
	Status           DecisionStatus    `json:"status"`
	Confidence       float64           `json:"confidence"`
	DecisionClass    string            `json:"decision_class"`
	AuthoritySource  AuthoritySource   `json:"authority_source"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	GuardianFlag     string            `json:"guardian_flag,omitempty"`
	FollowUp         string            `json:"follow_up,omitempty"`
	ResultSummary    string            `json:"result_summary,omitempty"`
	HealthContext    HealthContext     `json:"health_context"`
	DecisionTrace    DecisionTrace     `json:"decision_trace"`
	Trace            TraceAlias        `json:"trace"`
	ExecutionContext ExecutionContext  `json:"execution_context"`
	Signals          Signals           `json:"signals"`
	Guardian         GuardianView      `json:"guardian"`
}

// TraceAlias is the "trace" sub-object some downstream readers expect
// instead of "decision_trace".
type TraceAlias struct {
	Complete      bool     `json:"complete"`
	ID            string   `json:"id"`
	TraceID       string   `json:"trace_id"`
	Path          []string `json:"path"`
	ExecutionPath []string `json:"execution_path"`
}

// GuardianView is a convenience sub-object mirroring the decision's
// guardian-relevant fields.
type GuardianView struct {
	OK             bool   `json:"ok"`
	Status         string `json:"status"`
	Flag           string `json:"flag,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// GuardianOK reports whether a decision's guardian_flag indicates a clean
// pass: absent, empty, or explicitly "ok".
func GuardianOK(flag string) bool {
	return flag == "" || flag == "ok"
}

// BuildCanonicalLatest derives the canonical shape for a finalized or
// blocked decision from its current fields and the HealthState in force
// at the moment it was written.
func BuildCanonicalLatest(d *Decision, health *HealthState, statusEndpointOK bool) CanonicalLatest {
	healthScore := health.SystemStabilityScore
	guardianOK := GuardianOK(d.GuardianFlag)

	healthContext := HealthContext{
		SystemHealth:   int(math.Round(healthScore * 100)),
		GuardianStatus: guardianStatusLabel(guardianOK),
		PerformanceMetrics: PerformanceMetrics{
			AgentResponseSuccessRate: health.AgentResponseSuccessRate,
			TotalActions:             health.TotalActions,
			FailedActions:            health.FailedActions,
		},
	}
	if d.HealthContext != nil {
		healthContext = *d.HealthContext
	}

	trace := DecisionTrace{
		Complete:      true,
		TraceID:       d.ID,
		ExecutionPath: []string{"george", "guardian", "authority", "executor"},
	}
	if d.DecisionTrace != nil {
		trace = *d.DecisionTrace
	}

	execCtx := DefaultExecutionContext()
	if d.ExecutionContext != nil {
		execCtx = *d.ExecutionContext
	}

	decisionTracePresent := trace.TraceID != "" || len(trace.ExecutionPath) > 0

	signals := Signals{
		SystemHealthScore:    healthScore,
		GuardianOK:           guardianOK,
		StatusEndpointOK:     statusEndpointOK,
		DecisionTracePresent: decisionTracePresent,
		SystemHealthPercent:  math.Round(healthScore * 1000) / 10,
	}
	if d.Signals != nil {
		signals = *d.Signals
	}

	return CanonicalLatest{
		SchemaVersion:   "2.0",
		DecisionID:      d.ID,
		ID:              d.ID,
		Timestamp:       d.Timestamp,
		SourceEventID:   d.SourceEventID,
		Agent:           d.Agent,
		Action:          d.Action,
		Intent:          d.Intent,
		Status:          d.Status,
		Confidence:      d.Confidence,
		DecisionClass:   d.DecisionClass,
		AuthoritySource: d.AuthoritySource,
		ErrorMessage:    d.ErrorMessage,
		GuardianFlag:    d.GuardianFlag,
		FollowUp:        d.FollowUp,
		ResultSummary:   d.ResultSummary,
		HealthContext:   healthContext,
		DecisionTrace:   trace,
		Trace: TraceAlias{
			Complete:      trace.Complete,
			ID:            trace.TraceID,
			TraceID:       trace.TraceID,
			Path:          trace.ExecutionPath,
			ExecutionPath: trace.ExecutionPath,
		},
		ExecutionContext: execCtx,
		Signals:          signals,
		Guardian: GuardianView{
			OK:             guardianOK,
			Status:         healthContext.GuardianStatus,
			Flag:           d.GuardianFlag,
			Recommendation: d.FollowUp,
		},
	}
}

func guardianStatusLabel(ok bool) string {
	if ok {
		return "OK"
	}
	return "WARNING"
}

// Snapshot is the per-day aggregate counters artifact.
type Snapshot struct {
	Date            string                      `json:"date"`
	TotalDecisions  int                         `json:"total_decisions"`
	Successful      int                         `json:"successful"`
	Error           int                         `json:"error"`
	Blocked         int                         `json:"blocked"`
	ByAgent         map[string]*SnapshotByAgent `json:"by_agent"`
	LastDecisionID  string                      `json:"last_decision_id,omitempty"`
	LastUpdated     string                      `json:"last_updated,omitempty"`
}

// SnapshotByAgent is the per-agent breakdown within a Snapshot.
type SnapshotByAgent struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Error   int `json:"error"`
	Blocked int `json:"blocked"`
}

// Apply folds one decision's outcome into the snapshot, initializing
// fields on first use the way the original's update_snapshot does.
func (s *Snapshot) Apply(d *Decision, now string) {
	if s.ByAgent == nil {
		s.ByAgent = map[string]*SnapshotByAgent{}
	}
	s.TotalDecisions++
	switch d.Status {
	case StatusSuccess:
		s.Successful++
	case StatusError:
		s.Error++
	case StatusBlocked:
		s.Blocked++
	}

	agent := d.Agent
	if agent == "" {
		agent = "unknown"
	}
	by, ok := s.ByAgent[agent]
	if !ok {
		by = &SnapshotByAgent{}
		s.ByAgent[agent] = by
	}
	by.Total++
	switch d.Status {
	case StatusSuccess:
		by.Success++
	case StatusError:
		by.Error++
	case StatusBlocked:
		by.Blocked++
	}

	s.LastDecisionID = d.ID
	s.LastUpdated = now
}
