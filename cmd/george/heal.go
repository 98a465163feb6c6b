package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/fleetgov/george/pkg/artifacts"
	"github.com/fleetgov/george/pkg/config"
	"github.com/fleetgov/george/pkg/selfheal"
)

func runHeal(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("heal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apply := fs.Bool("apply", false, "write the proposed placeholders instead of only reporting them")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg := config.Load()
	store := artifacts.NewGovernanceStore(cfg.DataDir)
	now := time.Now()

	result, detected := selfheal.PickRegression(store, "ops/reports/system_status.json", selfheal.DefaultCapabilityGraphPath)
	if !detected {
		fmt.Fprintln(stdout, `{"status":"healthy"}`)
		fmt.Fprintln(stderr, "✅ heal: no regression detected")
		return 0
	}

	playbook := selfheal.BuildPlaybook(result, now)
	prMeta := selfheal.BuildPRMetadata(playbook)
	traceEntry := selfheal.TraceEntryForPlaybook(result, now)

	if err := store.AppendTrace("ops/reports/decision_trace.jsonl", traceEntry); err != nil {
		fmt.Fprintf(stderr, "george heal: append trace: %v\n", err)
		return 1
	}

	if *apply {
		for path, content := range playbook.Writes {
			if err := store.WriteCanonical(path, content); err != nil {
				fmt.Fprintf(stderr, "george heal: write %s: %v\n", path, err)
				return 1
			}
		}
	}

	out := struct {
		Regression string              `json:"regression"`
		Detail     string              `json:"detail"`
		PR         selfheal.PRMetadata `json:"pull_request"`
		Applied    bool                `json:"applied"`
	}{
		Regression: string(result.Regression),
		Detail:     result.Detail,
		PR:         prMeta,
		Applied:    *apply,
	}
	report, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(stdout, string(report))
	fmt.Fprintf(stderr, "⚠️  heal: %s detected, escalated to human review\n", result.Regression)
	return 10
}
