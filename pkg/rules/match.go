// Package rules implements George's deterministic rule-matching engine:
// first rule whose When pattern matches the event, in declaration order,
// wins. There is no scoring, no weighting, no "most specific wins" —
// ties are broken by position in the file alone.
package rules

import (
	"github.com/google/cel-go/cel"

	"github.com/fleetgov/george/pkg/george"
	"github.com/fleetgov/george/pkg/policyloader"
)

// Matcher evaluates a rule table against inbound events. It holds a CEL
// environment so repeated Match calls don't pay environment construction
// cost per call.
type Matcher struct {
	env *cel.Env
}

// NewMatcher builds a Matcher with a fresh CEL environment for
// precondition expressions.
func NewMatcher() (*Matcher, error) {
	env, err := policyloader.PreconditionEnv()
	if err != nil {
		return nil, err
	}
	return &Matcher{env: env}, nil
}

// Match returns the first rule in rules whose When pattern matches event
// and, if present, whose Preconditions are satisfied given profile and
// the current system health score. It returns (nil, false) when no rule
// matches — the orchestrator's caller treats that as "no rule" rather
// than an error.
func (m *Matcher) Match(event george.Event, rules []george.Rule, profile map[string]any, healthScore float64) (*george.Rule, bool) {
	for i := range rules {
		r := &rules[i]
		if !whenMatches(r.When, event) {
			continue
		}
		if !m.preconditionsSatisfied(r.Preconditions, event, profile, healthScore) {
			continue
		}
		return r, true
	}
	return nil, false
}

// whenMatches implements wildcard-on-absence: an empty When field matches
// any event value for that field.
func whenMatches(when george.RuleWhen, event george.Event) bool {
	if when.Agent != "" && when.Agent != event.Agent {
		return false
	}
	if when.Event != "" && when.Event != event.Event {
		return false
	}
	if when.Intent != "" && when.Intent != event.Intent {
		return false
	}
	if when.SourceEventID != "" && when.SourceEventID != event.SourceEventID {
		return false
	}
	return true
}

func (m *Matcher) preconditionsSatisfied(pre george.RulePreconditions, event george.Event, profile map[string]any, healthScore float64) bool {
	if pre.GuardianStatus != "" {
		status, _ := profile["guardian_status"].(string)
		if status != pre.GuardianStatus {
			return false
		}
	}
	if pre.SystemHealthMin > 0 && healthScore < pre.SystemHealthMin {
		return false
	}
	if pre.Expr != "" {
		eventMap := map[string]any{
			"agent":           event.Agent,
			"event":           event.Event,
			"intent":          event.Intent,
			"source_event_id": event.SourceEventID,
		}
		ok, err := policyloader.EvalPrecondition(m.env, pre.Expr, eventMap, profile, healthScore)
		if err != nil || !ok {
			return false
		}
	}
	return true
}
