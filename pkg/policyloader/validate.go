package policyloader

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ConformsToSchema validates a decoded JSON document against a JSON
// Schema. The Consistency Validator does not call it; its checks read
// the artifact fields directly.
func ConformsToSchema(schemaPath string, document any) error {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return fmt.Errorf("policyloader: compile schema %s: %w", schemaPath, err)
	}
	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("policyloader: schema violation: %w", err)
	}
	return nil
}

// PreconditionEnv is the CEL environment rules' optional preconditions.expr
// are evaluated against: the inbound event as a map, the agent's profile
// as a map, and the current system health score.
func PreconditionEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("event", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("profile", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("health", cel.DoubleType),
	)
}

// EvalPrecondition compiles and runs expr against the given bindings. Per
// the rule-matching contract, a compile error or a non-bool result is
// reported as an error but is never fatal to the caller — Match treats
// any error here as "does not match", not as a hard failure of the whole
// pipeline.
func EvalPrecondition(env *cel.Env, expr string, event, profile map[string]any, health float64) (bool, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("policyloader: compile precondition: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("policyloader: build precondition program: %w", err)
	}
	out, _, err := prg.Eval(map[string]any{
		"event":   event,
		"profile": profile,
		"health":  health,
	})
	if err != nil {
		return false, fmt.Errorf("policyloader: eval precondition: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policyloader: precondition %q did not evaluate to bool", expr)
	}
	return result, nil
}
