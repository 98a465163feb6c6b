package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fleetgov/george/pkg/config"
	"github.com/fleetgov/george/pkg/runtimegate"
	"gopkg.in/yaml.v3"
)

func runGate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	policyPath := fs.String("policy", "ops/runtime_gate_policy.yaml", "path to the runtime gate policy")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg := config.Load()
	latestPath := cfg.LatestPath
	if latestPath == "" {
		latestPath = "ops/decisions/latest.json"
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		fmt.Fprintf(stderr, "george gate: read %s: %v\n", latestPath, err)
		return 1
	}
	decision, err := runtimegate.LoadLatestDecision(data)
	if err != nil {
		fmt.Fprintf(stderr, "george gate: %v\n", err)
		return 1
	}

	policyData, err := os.ReadFile(*policyPath)
	if err != nil {
		fmt.Fprintf(stderr, "george gate: read policy: %v\n", err)
		return 1
	}
	var policy runtimegate.Policy
	if err := yaml.Unmarshal(policyData, &policy); err != nil {
		fmt.Fprintf(stderr, "george gate: decode policy: %v\n", err)
		return 1
	}

	result := runtimegate.Evaluate(decision, policy)
	report, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(stdout, string(report))

	switch result.Verdict {
	case "ALLOW":
		fmt.Fprintf(stderr, "✅ gate: ALLOW\n")
	case "ESCALATE":
		fmt.Fprintf(stderr, "⚠️  gate: ESCALATE (%v)\n", result.Reasons)
	default:
		fmt.Fprintf(stderr, "❌ gate: BLOCK (%v)\n", result.Reasons)
	}
	return runtimegate.ExitCode(result.Verdict)
}
