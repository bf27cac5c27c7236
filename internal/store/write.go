package store

import (
	"context"
	"fmt"

	"github.com/roach88/stylefx/internal/trace"
)

// Run is one recorded scenario execution.
type Run struct {
	ID           string
	Seq          int64 // insertion order, assigned by the store
	Scenario     string
	Source       string // scenario YAML as executed
	ScenarioHash string
	TraceHash    string
	Passed       bool
	Failures     []string
	CreatedAt    string
}

// WriteRun inserts a run and its trace in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - writing a run ID twice keeps
// the first copy and its events. Run.Seq and Run.CreatedAt are ignored.
func (s *Store) WriteRun(ctx context.Context, run Run, events []trace.Event) error {
	failuresJSON, err := marshalFailures(run.Failures)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, scenario, source, scenario_hash, trace_hash, passed, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.Source,
		run.ScenarioHash,
		run.TraceHash,
		run.Passed,
		failuresJSON,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run: rows affected: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (run_id, seq, kind, target, name, value)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write run: prepare events: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, run.ID, ev.Seq, string(ev.Kind), ev.Target, ev.Name, ev.Value); err != nil {
			return fmt.Errorf("write run: event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}
