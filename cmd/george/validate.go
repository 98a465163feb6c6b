package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/fleetgov/george/pkg/artifacts"
	"github.com/fleetgov/george/pkg/config"
	"github.com/fleetgov/george/pkg/consistency"
	"github.com/fleetgov/george/pkg/george"
	"github.com/fleetgov/george/pkg/policyloader"
)

func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	authPath := fs.String("authority-matrix", "ops/authority_matrix.yaml", "path to the authority matrix")
	autonomyPath := fs.String("autonomy", "ops/autonomy.json", "path to the agent registry")
	tailWindow := fs.Int("tail-window", 0, "override the default trace tail window")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg := config.Load()
	window := cfg.TailWindow
	if *tailWindow > 0 {
		window = *tailWindow
	}
	store := artifacts.NewGovernanceStore(cfg.DataDir)

	var findings []consistency.Finding

	var latest george.Decision
	_, _ = store.ReadJSON("ops/decisions/canonical_latest.json", &latest)

	findings = append(findings, consistency.ValidateSystemStatus(store, "ops/reports/system_status.json", time.Now())...)
	findings = append(findings, consistency.ValidateGateResult(store, "ops/reports/gate_result.json", latest.ID)...)
	findings = append(findings, consistency.ValidateDecisionTraceTail(store, "ops/reports/decision_trace.jsonl", window, 1, latest.ID)...)

	matrix, matErr := policyloader.LoadAuthorityMatrix(*authPath)
	autonomy, autoErr := policyloader.LoadAutonomyConfig(*autonomyPath)
	if matErr != nil || autoErr != nil {
		findings = append(findings, consistency.Finding{
			Code:    consistency.CodeReg001,
			Level:   consistency.LevelFail,
			Message: fmt.Sprintf("registry/authority load failed: matrix_err=%v autonomy_err=%v", matErr, autoErr),
		})
	} else {
		findings = append(findings, consistency.ValidateRegistry(autonomy, matrix)...)
	}

	report, _ := json.MarshalIndent(findings, "", "  ")
	fmt.Fprintln(stdout, string(report))

	exitCode := consistency.WorstExitCode(findings)
	switch exitCode {
	case consistency.ExitClean:
		fmt.Fprintf(stderr, "✅ validate: clean (%d findings)\n", len(findings))
	default:
		fmt.Fprintf(stderr, "❌ validate: %d findings, at least one FAIL\n", len(findings))
	}
	return exitCode
}
