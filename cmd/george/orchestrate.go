package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fleetgov/george/pkg/artifacts"
	"github.com/fleetgov/george/pkg/config"
	"github.com/fleetgov/george/pkg/george"
	"github.com/fleetgov/george/pkg/orchestrator"
	"github.com/fleetgov/george/pkg/policyloader"
	"github.com/fleetgov/george/pkg/rules"
)

func runOrchestrate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("orchestrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	eventPath := fs.String("event", "", "path to a JSON-encoded event")
	rulesPath := fs.String("rules", "ops/george_rules.yaml", "path to the rule table")
	authPath := fs.String("authority-matrix", "ops/authority_matrix.yaml", "path to the authority matrix")
	autonomyPath := fs.String("autonomy", "ops/autonomy.json", "path to the agent registry")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *eventPath == "" {
		fmt.Fprintln(stderr, "george orchestrate: --event is required")
		return 1
	}

	cfg := config.Load()
	store := artifacts.NewGovernanceStore(cfg.DataDir)

	registry, err := policyloader.NewRegistry(*rulesPath, *authPath, *autonomyPath)
	if err != nil {
		fmt.Fprintf(stderr, "george orchestrate: load policy: %v\n", err)
		return 1
	}
	snapshot := registry.Snapshot()

	matcher, err := rules.NewMatcher()
	if err != nil {
		fmt.Fprintf(stderr, "george orchestrate: build matcher: %v\n", err)
		return 1
	}

	health := loadHealth(store)

	eventData, err := os.ReadFile(*eventPath)
	if err != nil {
		fmt.Fprintf(stderr, "george orchestrate: read event: %v\n", err)
		return 1
	}
	var event george.Event
	if err := json.Unmarshal(eventData, &event); err != nil {
		fmt.Fprintf(stderr, "george orchestrate: decode event: %v\n", err)
		return 1
	}

	profiles := map[string]george.AgentProfile{}
	if snapshot.Profiles != nil {
		profiles = snapshot.Profiles.Agents
	}

	orch := orchestrator.New(store, matcher, snapshot.Rules, snapshot.Matrix, profiles, health)
	if archive, archiveErr := artifacts.NewStoreFromEnv(context.Background()); archiveErr == nil {
		orch.Archive = archive
	}

	outcome, err := orch.Orchestrate(context.Background(), event)
	if err != nil {
		fmt.Fprintf(stderr, "george orchestrate: %v\n", err)
		return 1
	}

	if saveErr := saveHealth(store, health); saveErr != nil {
		fmt.Fprintf(stderr, "george orchestrate: persist health: %v\n", saveErr)
	}

	report, _ := json.MarshalIndent(outcome.Decision, "", "  ")
	fmt.Fprintln(stdout, string(report))

	switch outcome.Decision.Status {
	case george.StatusSuccess:
		fmt.Fprintf(stderr, "✅ decision %s: %s\n", outcome.Decision.ID, outcome.Decision.Status)
		return 0
	case george.StatusBlocked:
		fmt.Fprintf(stderr, "❌ decision %s: blocked (%s)\n", outcome.Decision.ID, outcome.Decision.GuardianFlag)
		return 1
	default:
		fmt.Fprintf(stderr, "❌ decision %s: %s\n", outcome.Decision.ID, outcome.Decision.Status)
		return 1
	}
}

const healthPath = "ops/reports/health_state.json"

func loadHealth(store *artifacts.GovernanceStore) *george.HealthState {
	var h george.HealthState
	if ok, err := store.ReadJSON(healthPath, &h); err == nil && ok {
		return &h
	}
	return &george.HealthState{}
}

func saveHealth(store *artifacts.GovernanceStore, h *george.HealthState) error {
	return store.WriteCanonical(healthPath, h)
}
