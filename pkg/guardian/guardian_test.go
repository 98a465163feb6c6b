package guardian

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetgov/george/pkg/george"
)

func TestPrecheckRejectsInactiveAgent(t *testing.T) {
	profile := george.AgentProfile{Status: george.AgentStatusInactive, Autonomy: 1.0}
	result := Precheck(profile, 0)
	assert.False(t, result.Allowed)
	assert.Equal(t, "agent_inactive", result.Reason)
}

func TestPrecheckRejectsPausedAgent(t *testing.T) {
	profile := george.AgentProfile{Status: george.AgentStatusPaused, Autonomy: 1.0}
	result := Precheck(profile, 0)
	assert.False(t, result.Allowed)
	assert.Equal(t, "agent_inactive", result.Reason)
}

func TestPrecheckRejectsPlannedAgent(t *testing.T) {
	profile := george.AgentProfile{Status: george.AgentStatusPlanned, Autonomy: 1.0}
	result := Precheck(profile, 0)
	assert.False(t, result.Allowed)
	assert.Equal(t, "agent_inactive", result.Reason)
}

func TestPrecheckRejectsLowAutonomy(t *testing.T) {
	profile := george.AgentProfile{Status: george.AgentStatusActive, Autonomy: 0.2}
	result := Precheck(profile, 0.5)
	assert.False(t, result.Allowed)
	assert.Equal(t, "autonomy_too_low", result.Reason)
}

func TestPrecheckAllowsActiveSufficientAutonomy(t *testing.T) {
	profile := george.AgentProfile{Status: george.AgentStatusActive, Autonomy: 0.8}
	result := Precheck(profile, 0.5)
	assert.True(t, result.Allowed)
}

func TestPostcheckAlwaysAdvancesHealth(t *testing.T) {
	health := &george.HealthState{}
	profile := george.AgentProfile{}

	flag := Postcheck(health, profile, true)
	assert.Equal(t, "ok", flag)
	assert.Equal(t, 1, health.TotalActions)

	flag = Postcheck(health, profile, false)
	assert.Equal(t, "error_detected", flag)
	assert.Equal(t, 2, health.TotalActions)
	assert.Equal(t, 1, health.FailedActions)
}

func TestPostcheckFlagsPolicyCheckWhenConfigured(t *testing.T) {
	health := &george.HealthState{}
	profile := george.AgentProfile{FailureThresholds: george.FailureThresholds{TriggerGuardianPolicyCheck: true}}

	flag := Postcheck(health, profile, false)
	assert.Equal(t, "guardian_policy_check", flag)
}

func TestSystemClockNowAdvances(t *testing.T) {
	c := SystemClock{}
	first := c.Now()
	second := c.Now()
	assert.False(t, second.Before(first))
}
