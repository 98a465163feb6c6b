package runtimegate

import (
	"encoding/json"
	"fmt"

	"github.com/fleetgov/george/pkg/george"
)

// LoadLatestDecision decodes the gate's input file (ops/decisions/latest.json)
// into a Decision. An older generation of this file stored a bare JSON
// array of decisions rather than the current single-object shape; that
// legacy format is rejected outright rather than silently read as "no
// decision", since a pipeline pointed at a stale file should fail loudly,
// not pass by accident.
func LoadLatestDecision(data []byte) (george.Decision, error) {
	trimmed := firstNonSpace(data)
	if trimmed == '[' {
		return george.Decision{}, fmt.Errorf("runtimegate: latest.json must be a JSON object, not a list (legacy shape rejected)")
	}

	var d george.Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return george.Decision{}, fmt.Errorf("runtimegate: decode latest decision: %w", err)
	}
	return d, nil
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}
