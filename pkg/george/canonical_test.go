package george

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCanonicalLatestDerivesDefaults(t *testing.T) {
	d := &Decision{
		ID:              "dec-1",
		Timestamp:       "2026-01-01T00:00:00Z",
		Agent:           "scout",
		Action:          "observe",
		Status:          StatusSuccess,
		DecisionClass:   ClassOperational,
		AuthoritySource: AuthorityGeorge,
	}
	health := &HealthState{SystemStabilityScore: 0.8}

	c := BuildCanonicalLatest(d, health, true)

	assert.Equal(t, "dec-1", c.DecisionID)
	assert.Equal(t, "dec-1", c.ID)
	assert.Equal(t, 80, c.HealthContext.SystemHealth)
	assert.Equal(t, "OK", c.HealthContext.GuardianStatus)
	assert.True(t, c.Signals.GuardianOK)
	assert.True(t, c.Signals.StatusEndpointOK)
	assert.Equal(t, c.DecisionTrace.TraceID, c.Trace.TraceID)
	assert.Equal(t, c.DecisionTrace.ExecutionPath, c.Trace.ExecutionPath)
}

func TestBuildCanonicalLatestRespectsGuardianFlag(t *testing.T) {
	d := &Decision{ID: "dec-2", GuardianFlag: "guardian_policy_check_required"}
	health := &HealthState{}

	c := BuildCanonicalLatest(d, health, false)

	assert.False(t, c.Signals.GuardianOK)
	assert.Equal(t, "WARNING", c.Guardian.Status)
	assert.False(t, c.Signals.StatusEndpointOK)
}

func TestSnapshotApplyAccumulatesByAgent(t *testing.T) {
	snap := &Snapshot{Date: "2026-01-01"}

	snap.Apply(&Decision{ID: "d1", Agent: "scout", Status: StatusSuccess}, "t1")
	snap.Apply(&Decision{ID: "d2", Agent: "scout", Status: StatusError}, "t2")
	snap.Apply(&Decision{ID: "d3", Agent: "", Status: StatusBlocked}, "t3")

	require.Equal(t, 3, snap.TotalDecisions)
	assert.Equal(t, 1, snap.Successful)
	assert.Equal(t, 1, snap.Error)
	assert.Equal(t, 1, snap.Blocked)
	assert.Equal(t, 2, snap.ByAgent["scout"].Total)
	assert.Equal(t, 1, snap.ByAgent["unknown"].Total)
	assert.Equal(t, "d3", snap.LastDecisionID)
}
