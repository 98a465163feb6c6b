// Package authz implements the authority enforcement check: given a
// decision class and the authority matrix, decide whether George may act
// alone or whether a higher authority (guardian, human, manual) must sign
// off first.
package authz

import (
	"strings"

	"github.com/fleetgov/george/pkg/george"
)

// classSynonyms mirrors policyloader's normalization so a caller handing
// Decide an un-normalized class string (e.g. straight off an Event
// payload) still resolves correctly.
var classSynonyms = map[string]string{
	"critical":        george.ClassSafetyCritical,
	"safety":          george.ClassSafetyCritical,
	"safety-critical": george.ClassSafetyCritical,
	"safetycritical":  george.ClassSafetyCritical,
	"ops":             george.ClassOperational,
	"operation":       george.ClassOperational,
}

func normalizeClass(class string) string {
	lower := strings.ToLower(strings.TrimSpace(class))
	if canon, ok := classSynonyms[lower]; ok {
		return canon
	}
	return lower
}

// Result is the four-tuple authority_enforcement returns: whether the
// action may proceed under George's own authority, why not when it
// can't, what approval the matrix requires, and the resolved (normalized)
// decision class.
type Result struct {
	Allowed       bool
	Reason        string
	Required      string
	DecisionClass string
}

// Decide applies the authority matrix to one (agent, decision class)
// pair. agent is empty when there is no per-agent override to consult.
func Decide(matrix *george.AuthorityMatrix, agent, decisionClass string) Result {
	class := normalizeClass(decisionClass)
	if class == "" {
		class = george.ClassOperational
	}

	if override, ok := matrix.Agents[agent]; ok && len(override.AllowedClasses) > 0 {
		if !contains(override.AllowedClasses, class) {
			return Result{
				Allowed:       false,
				Reason:        "agent_not_allowed_for_decision_class",
				Required:      george.RequireHuman,
				DecisionClass: class,
			}
		}
	}

	policy, ok := matrix.Classes[class]
	if !ok {
		policy = matrix.Default
	}

	switch policy.Require {
	case george.RequireHuman, george.RequireManual:
		return Result{
			Allowed:       false,
			Reason:        "authority_requires_human",
			Required:      policy.Require,
			DecisionClass: class,
		}
	case george.RequireGuardian:
		return Result{
			Allowed:       true,
			Required:      george.RequireGuardian,
			DecisionClass: class,
		}
	default:
		return Result{
			Allowed:       true,
			Required:      george.RequireAgent,
			DecisionClass: class,
		}
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
