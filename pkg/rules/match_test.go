package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetgov/george/pkg/george"
)

func TestMatchFirstRuleWins(t *testing.T) {
	m, err := NewMatcher()
	require.NoError(t, err)

	table := []george.Rule{
		{ID: "r1", When: george.RuleWhen{Agent: "scout"}, Then: george.RuleThen{Action: "observe"}},
		{ID: "r2", When: george.RuleWhen{}, Then: george.RuleThen{Action: "catch_all"}},
	}

	event := george.Event{Agent: "scout", Event: "sighting"}
	rule, ok := m.Match(event, table, nil, 1.0)
	require.True(t, ok)
	assert.Equal(t, "r1", rule.ID)
}

func TestMatchWildcardOnAbsence(t *testing.T) {
	m, err := NewMatcher()
	require.NoError(t, err)

	table := []george.Rule{
		{ID: "catch_all", When: george.RuleWhen{}, Then: george.RuleThen{Action: "catch_all"}},
	}
	event := george.Event{Agent: "any-agent", Event: "any-event"}
	rule, ok := m.Match(event, table, nil, 1.0)
	require.True(t, ok)
	assert.Equal(t, "catch_all", rule.ID)
}

func TestMatchNoneMatches(t *testing.T) {
	m, err := NewMatcher()
	require.NoError(t, err)

	table := []george.Rule{
		{ID: "r1", When: george.RuleWhen{Agent: "scout"}, Then: george.RuleThen{}},
	}
	event := george.Event{Agent: "other"}
	_, ok := m.Match(event, table, nil, 1.0)
	assert.False(t, ok)
}

func TestMatchSystemHealthMinPrecondition(t *testing.T) {
	m, err := NewMatcher()
	require.NoError(t, err)

	table := []george.Rule{
		{ID: "needs-health", When: george.RuleWhen{}, Preconditions: george.RulePreconditions{SystemHealthMin: 0.9}},
	}
	event := george.Event{Agent: "scout"}

	_, ok := m.Match(event, table, nil, 0.5)
	assert.False(t, ok, "below threshold health should not match")

	_, ok = m.Match(event, table, nil, 0.95)
	assert.True(t, ok, "above threshold health should match")
}

func TestMatchCELPrecondition(t *testing.T) {
	m, err := NewMatcher()
	require.NoError(t, err)

	table := []george.Rule{
		{ID: "expr-gated", When: george.RuleWhen{}, Preconditions: george.RulePreconditions{Expr: `event.agent == "scout"`}},
	}

	event := george.Event{Agent: "scout"}
	_, ok := m.Match(event, table, nil, 1.0)
	assert.True(t, ok)

	event2 := george.Event{Agent: "other"}
	_, ok = m.Match(event2, table, nil, 1.0)
	assert.False(t, ok)
}

func TestMatchBadCELExpressionIsTreatedAsNoMatch(t *testing.T) {
	m, err := NewMatcher()
	require.NoError(t, err)

	table := []george.Rule{
		{ID: "broken-expr", When: george.RuleWhen{}, Preconditions: george.RulePreconditions{Expr: `not valid cel (((`}},
	}
	event := george.Event{Agent: "scout"}
	_, ok := m.Match(event, table, nil, 1.0)
	assert.False(t, ok)
}
