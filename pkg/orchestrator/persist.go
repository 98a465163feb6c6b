package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetgov/george/pkg/george"
)

// finalize writes decision to every destination a finalized or blocked
// decision must reach: the append-only decisions log, the per-day
// history snapshot, and the three canonical-latest views (latest.json,
// canonical_latest.json, decisions_latest.json) the Runtime Gate
// and dashboards read from. reachedExecution controls nothing about
// where it's written — it's passed through only so future callers don't
// need to re-derive it from decision.Status. When an Archive store is
// configured, the canonical snapshot is additionally written there as a
// secondary, content-addressed archival copy — a failure there is logged
// to neither output nor error, since the local artifact paths above
// remain the system of record.
func (o *Orchestrator) finalize(ctx context.Context, decision george.Decision, reachedExecution bool) error {
	if err := o.Store.AppendTrace(pathDecisionsLog, decision); err != nil {
		return fmt.Errorf("orchestrator: append decisions log: %w", err)
	}

	canonical := george.BuildCanonicalLatest(&decision, o.Health, true)

	if err := o.Store.WriteCanonical(pathLatest, canonical); err != nil {
		return fmt.Errorf("orchestrator: write latest.json: %w", err)
	}
	if err := o.Store.WriteCanonical(pathCanonicalLatest, canonical); err != nil {
		return fmt.Errorf("orchestrator: write canonical_latest.json: %w", err)
	}
	if err := o.Store.WriteCanonical(pathDecisionsLatest, canonical); err != nil {
		return fmt.Errorf("orchestrator: write decisions_latest.json: %w", err)
	}

	o.archiveSnapshot(ctx, canonical)

	if err := o.updateSnapshot(decision); err != nil {
		return fmt.Errorf("orchestrator: update snapshot: %w", err)
	}
	return nil
}

// archiveSnapshot is a best-effort secondary archival write; it is a
// no-op when no Archive store is configured and never fails finalize.
func (o *Orchestrator) archiveSnapshot(ctx context.Context, canonical george.CanonicalLatest) {
	if o.Archive == nil {
		return
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return
	}
	_, _ = o.Archive.Store(ctx, data)
}

func (o *Orchestrator) updateSnapshot(decision george.Decision) error {
	day := decision.Timestamp
	if len(day) >= 10 {
		day = day[:10]
	} else {
		day = time.Now().UTC().Format("2006-01-02")
	}
	path := fmt.Sprintf("%s/%s.json", pathSnapshotDir, day)

	return o.Store.Snapshot(path, func(existing map[string]any) (map[string]any, error) {
		var snap george.Snapshot
		if existing != nil {
			if err := remarshal(existing, &snap); err != nil {
				snap = george.Snapshot{Date: day}
			}
		}
		if snap.Date == "" {
			snap.Date = day
		}
		snap.Apply(&decision, time.Now().UTC().Format(time.RFC3339))

		var out map[string]any
		if err := remarshal(snap, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}
