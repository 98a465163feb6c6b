package runtimegate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetgov/george/pkg/george"
)

func basePolicy() Policy {
	return Policy{
		Classes: map[string]ClassGatePolicy{
			george.ClassOperational: {
				MinHealthScore:    0.5,
				RequireGuardianOK: true,
				OnFail:            george.VerdictBlock,
			},
			george.ClassSafetyCritical: {
				MinHealthScore:        0.9,
				RequireGuardianOK:     true,
				RequireTrace:          true,
				RequireStatusEndpoint: true,
				OnFail:                george.VerdictEscalate,
			},
		},
		AllowHumanOverride: true,
	}
}

func TestEvaluateAllowsWhenAllSignalsPass(t *testing.T) {
	d := george.Decision{
		ID:            "d1",
		DecisionClass: george.ClassOperational,
		Signals:       &george.Signals{SystemHealthScore: 0.8, GuardianOK: true},
	}
	result := Evaluate(d, basePolicy())
	assert.Equal(t, george.VerdictAllow, result.Verdict)
	assert.Empty(t, result.Reasons)
}

func TestEvaluateMissingDecisionClassIsHardBlock(t *testing.T) {
	d := george.Decision{ID: "d2"}
	result := Evaluate(d, basePolicy())
	assert.Equal(t, george.VerdictBlock, result.Verdict)
	assert.Contains(t, result.Reasons, "missing_decision_class")
}

func TestEvaluateLowHealthScoreBlocks(t *testing.T) {
	d := george.Decision{
		ID:            "d3",
		DecisionClass: george.ClassOperational,
		Signals:       &george.Signals{SystemHealthScore: 0.1, GuardianOK: true},
	}
	result := Evaluate(d, basePolicy())
	assert.Equal(t, george.VerdictBlock, result.Verdict)
}

func TestEvaluateEscalateUpgradedToBlockWithoutHumanOverride(t *testing.T) {
	policy := basePolicy()
	policy.AllowHumanOverride = false
	d := george.Decision{
		ID:            "d4",
		DecisionClass: george.ClassSafetyCritical,
		Signals:       &george.Signals{SystemHealthScore: 0.1},
	}
	result := Evaluate(d, policy)
	assert.Equal(t, george.VerdictBlock, result.Verdict)
}

func TestEvaluateEscalateAllowedWithHumanOverride(t *testing.T) {
	policy := basePolicy()
	d := george.Decision{
		ID:            "d5",
		DecisionClass: george.ClassSafetyCritical,
		Signals:       &george.Signals{SystemHealthScore: 0.1},
	}
	result := Evaluate(d, policy)
	assert.Equal(t, george.VerdictEscalate, result.Verdict)
}

func TestEvaluateAdvisoryModeDowngradesBlockToEscalate(t *testing.T) {
	policy := basePolicy()
	policy.AdvisoryMode = true
	d := george.Decision{
		ID:            "d6",
		DecisionClass: george.ClassOperational,
		Signals:       &george.Signals{SystemHealthScore: 0.1, GuardianOK: true},
	}
	result := Evaluate(d, policy)
	assert.Equal(t, george.VerdictEscalate, result.Verdict)
}

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, 0, ExitCode(george.VerdictAllow))
	assert.Equal(t, 10, ExitCode(george.VerdictEscalate))
	assert.Equal(t, 20, ExitCode(george.VerdictBlock))
}

func TestLoadLatestDecisionRejectsLegacyList(t *testing.T) {
	_, err := LoadLatestDecision([]byte(`[{"id":"d1"}]`))
	assert.Error(t, err)
}

func TestLoadLatestDecisionAcceptsObject(t *testing.T) {
	d, err := LoadLatestDecision([]byte(`{"id":"d1","decision_class":"operational"}`))
	assert.NoError(t, err)
	assert.Equal(t, "d1", d.ID)
}
