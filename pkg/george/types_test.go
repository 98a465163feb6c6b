package george

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventNormalizeFillsDefaults(t *testing.T) {
	e := Event{}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e.Normalize(now)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "2026-01-02T03:04:05Z", e.Timestamp)
	assert.Equal(t, "unknown", e.Agent)
	assert.Equal(t, "unknown", e.Event)
}

func TestEventNormalizePreservesExisting(t *testing.T) {
	e := Event{ID: "fixed-id", Timestamp: "2020-01-01T00:00:00Z", Agent: "scout", Event: "observed"}
	e.Normalize(time.Now())

	assert.Equal(t, "fixed-id", e.ID)
	assert.Equal(t, "2020-01-01T00:00:00Z", e.Timestamp)
	assert.Equal(t, "scout", e.Agent)
}

func TestHealthStateRegisterResultFormulaChain(t *testing.T) {
	h := &HealthState{}

	h.RegisterResult(true)
	require.Equal(t, 1, h.TotalActions)
	require.Equal(t, 0, h.FailedActions)
	assert.Equal(t, 1.0, h.AgentResponseSuccessRate)
	assert.Equal(t, 1.0, h.SystemStabilityScore)
	assert.Equal(t, 1.0, h.AutonomyLevelEstimate)

	h.RegisterResult(false)
	require.Equal(t, 2, h.TotalActions)
	require.Equal(t, 1, h.FailedActions)
	assert.InDelta(t, 0.5, h.AgentResponseSuccessRate, 1e-9)
	// stability = success_rate * (1 - 0.1*self_detection_errors) = 0.5 * 0.9
	assert.InDelta(t, 0.45, h.SystemStabilityScore, 1e-9)
	// autonomy = clamp(0.4 + 0.6*stability)
	assert.InDelta(t, 0.4+0.6*0.45, h.AutonomyLevelEstimate, 1e-9)
}

func TestHealthStateClampsToUnitInterval(t *testing.T) {
	h := &HealthState{}
	for i := 0; i < 20; i++ {
		h.RegisterResult(false)
	}
	assert.GreaterOrEqual(t, h.SystemStabilityScore, 0.0)
	assert.LessOrEqual(t, h.SystemStabilityScore, 1.0)
	assert.GreaterOrEqual(t, h.AutonomyLevelEstimate, 0.0)
	assert.LessOrEqual(t, h.AutonomyLevelEstimate, 1.0)
}

func TestTraceEntryMarshalFlattensExtra(t *testing.T) {
	entry := TraceEntry{
		Ts:     "2026-01-01T00:00:00Z",
		Actor:  ActorSelfHealing,
		Phase:  "SELF_HEALING",
		Result: "ESCALATED_TO_HUMAN",
		Extra: map[string]any{
			"decision_type": "SELF_HEALING",
			"action":        "OPEN_PR",
		},
	}

	data, err := entry.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"decision_type":"SELF_HEALING"`)
	assert.Contains(t, string(data), `"action":"OPEN_PR"`)
	assert.Contains(t, string(data), `"phase":"SELF_HEALING"`)
}

func TestTraceEntryFixedFieldsWinOverExtraCollision(t *testing.T) {
	entry := TraceEntry{Phase: "ROUTED", Extra: map[string]any{"phase": "SHOULD_NOT_WIN"}}
	data, err := entry.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"ROUTED"`)
	assert.NotContains(t, string(data), "SHOULD_NOT_WIN")
}
