package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetgov/george/pkg/artifacts"
	"github.com/fleetgov/george/pkg/george"
	"github.com/fleetgov/george/pkg/rules"
)

func newOrchestrator(t *testing.T, ruleTable []george.Rule, matrix *george.AuthorityMatrix, profiles map[string]george.AgentProfile) (*Orchestrator, *artifacts.GovernanceStore) {
	t.Helper()
	store := artifacts.NewGovernanceStore(t.TempDir())
	matcher, err := rules.NewMatcher()
	require.NoError(t, err)
	health := &george.HealthState{}
	o := New(store, matcher, ruleTable, matrix, profiles, health)
	return o, store
}

func baseMatrix() *george.AuthorityMatrix {
	return &george.AuthorityMatrix{
		Default: george.ClassPolicy{Require: george.RequireAgent},
		Classes: map[string]george.ClassPolicy{
			george.ClassOperational: {Require: george.RequireAgent},
		},
	}
}

func TestOrchestrateSuccessfulEventAdvancesHealthAndPersists(t *testing.T) {
	ruleTable := []george.Rule{
		{
			ID:   "r1",
			When: george.RuleWhen{Agent: "scout"},
			Then: george.RuleThen{Action: "observe", DecisionClass: george.ClassOperational},
		},
	}
	profiles := map[string]george.AgentProfile{
		"scout": {Status: george.AgentStatusActive, Autonomy: 0.9},
	}
	o, store := newOrchestrator(t, ruleTable, baseMatrix(), profiles)

	event := george.Event{Agent: "scout", Event: "scan", Intent: "observe"}
	outcome, err := o.Orchestrate(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, george.StatusSuccess, outcome.Decision.Status)
	assert.Equal(t, 1, o.Health.TotalActions)
	assert.Equal(t, 0, o.Health.FailedActions)

	phases := make([]string, len(outcome.Trace))
	for i, e := range outcome.Trace {
		phases[i] = e.Phase
	}
	assert.Equal(t, []string{"ROUTED", "PRECHECK", "AUTHORIZE", "EXECUTE", "POSTCHECK"}, phases)

	var latest map[string]any
	ok, err := store.ReadJSON("ops/decisions/latest.json", &latest)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.ReadJSON("ops/decisions/canonical_latest.json", &latest)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.ReadJSON("ops/decisions/decisions_latest.json", &latest)
	require.NoError(t, err)
	require.True(t, ok)

	lines, err := store.ReadTail("ops/reports/decisions.jsonl", 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestOrchestrateNoMatchingRuleFallsThroughToPrecheck(t *testing.T) {
	o, _ := newOrchestrator(t, nil, baseMatrix(), nil)

	event := george.Event{Agent: "scout", Event: "scan"}
	outcome, err := o.Orchestrate(context.Background(), event)
	require.NoError(t, err)

	// No profile for "scout" means Precheck sees a zero-value (non-"active")
	// status and rejects — but the event still reached PRECHECK instead of
	// being blocked outright on the rule miss itself.
	assert.Equal(t, george.StatusBlocked, outcome.Decision.Status)
	assert.Equal(t, "agent_inactive", outcome.Decision.GuardianFlag)
	assert.Equal(t, george.AuthorityGuardian, outcome.Decision.AuthoritySource)
	assert.Equal(t, 0, o.Health.TotalActions)

	phases := make([]string, len(outcome.Trace))
	for i, e := range outcome.Trace {
		phases[i] = e.Phase
	}
	assert.Equal(t, []string{"ROUTED", "PRECHECK"}, phases)
}

func TestOrchestrateNoMatchingRuleSynthesizesFallbackAndExecutes(t *testing.T) {
	profiles := map[string]george.AgentProfile{
		"scout": {Status: george.AgentStatusActive, Autonomy: 0.9},
	}
	o, _ := newOrchestrator(t, nil, baseMatrix(), profiles)

	event := george.Event{Agent: "scout", Event: "scan"}
	outcome, err := o.Orchestrate(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, george.StatusSuccess, outcome.Decision.Status)
	assert.Equal(t, "scout", outcome.Decision.Agent)
	assert.Equal(t, "scan", outcome.Decision.Action)
	assert.Equal(t, 0.5, outcome.Decision.Confidence)
	assert.Equal(t, 1, o.Health.TotalActions)

	phases := make([]string, len(outcome.Trace))
	for i, e := range outcome.Trace {
		phases[i] = e.Phase
	}
	assert.Equal(t, []string{"ROUTED", "PRECHECK", "AUTHORIZE", "EXECUTE", "POSTCHECK"}, phases)
}

func TestOrchestrateGuardianPrecheckRejectionSkipsExecution(t *testing.T) {
	ruleTable := []george.Rule{
		{
			ID:   "r1",
			When: george.RuleWhen{Agent: "scout"},
			Then: george.RuleThen{Action: "observe", DecisionClass: george.ClassOperational},
		},
	}
	profiles := map[string]george.AgentProfile{
		"scout": {Status: george.AgentStatusInactive, Autonomy: 0.9},
	}
	o, _ := newOrchestrator(t, ruleTable, baseMatrix(), profiles)

	event := george.Event{Agent: "scout", Event: "scan"}
	outcome, err := o.Orchestrate(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, george.StatusBlocked, outcome.Decision.Status)
	assert.Equal(t, "agent_inactive", outcome.Decision.GuardianFlag)
	assert.Equal(t, george.AuthorityGuardian, outcome.Decision.AuthoritySource)
	assert.Equal(t, 0, o.Health.TotalActions)

	phases := make([]string, len(outcome.Trace))
	for i, e := range outcome.Trace {
		phases[i] = e.Phase
	}
	assert.Equal(t, []string{"ROUTED", "PRECHECK"}, phases)
}

func TestOrchestrateAuthorityRejectionSkipsExecution(t *testing.T) {
	ruleTable := []george.Rule{
		{
			ID:   "r1",
			When: george.RuleWhen{Agent: "scout"},
			Then: george.RuleThen{Action: "deploy", DecisionClass: george.ClassSafetyCritical},
		},
	}
	profiles := map[string]george.AgentProfile{
		"scout": {Status: george.AgentStatusActive, Autonomy: 0.9},
	}
	matrix := &george.AuthorityMatrix{
		Default: george.ClassPolicy{Require: george.RequireAgent},
		Classes: map[string]george.ClassPolicy{
			george.ClassSafetyCritical: {Require: george.RequireHuman},
		},
	}
	o, _ := newOrchestrator(t, ruleTable, matrix, profiles)

	event := george.Event{Agent: "scout", Event: "launch"}
	outcome, err := o.Orchestrate(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, george.StatusBlocked, outcome.Decision.Status)
	assert.Equal(t, "authority_requires_human", outcome.Decision.GuardianFlag)
	assert.Equal(t, george.AuthorityHuman, outcome.Decision.AuthoritySource)
	assert.Equal(t, 0, o.Health.TotalActions)

	phases := make([]string, len(outcome.Trace))
	for i, e := range outcome.Trace {
		phases[i] = e.Phase
	}
	assert.Equal(t, []string{"ROUTED", "PRECHECK", "AUTHORIZE"}, phases)
}
