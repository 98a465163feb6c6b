package executor

import (
	"context"
	"time"
)

// SimulatedDriver is the spec-mandated default ToolDriver: it always
// succeeds, recording the call it was given rather than performing any
// side effect. George ships with no real tool integrations wired in — an
// operator who wants one registers a ToolDriver (MCPDriver, WasmDriver,
// or a custom implementation) in its place.
type SimulatedDriver struct {
	// Latency is an optional fixed delay applied to every call and reported
	// back as SimulatedResult.DurationMs, useful for exercising timing and
	// context cancellation in tests without a real backend.
	Latency time.Duration
}

// SimulatedResult is the Execute return value: enough shape for the
// Orchestrator to build a result_summary without needing to know anything
// tool-specific.
type SimulatedResult struct {
	Tool       string         `json:"tool"`
	Params     map[string]any `json:"params"`
	Simulated  bool           `json:"simulated"`
	DurationMs int64          `json:"duration_ms"`
}

// Execute always returns success after the configured latency, or returns
// ctx.Err() if the context is canceled first.
func (s *SimulatedDriver) Execute(ctx context.Context, toolName string, params map[string]any) (any, error) {
	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	return SimulatedResult{
		Tool:       toolName,
		Params:     params,
		Simulated:  true,
		DurationMs: s.Latency.Milliseconds(),
	}, nil
}
