package store

import (
	"context"
	"fmt"

	"github.com/roach88/stylefx/internal/trace"
)

// IntegrityError reports a stored run whose events no longer hash to the
// trace hash recorded with it.
type IntegrityError struct {
	RunID    string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("run %s: trace hash mismatch: stored %s, events hash to %s", e.RunID, e.Expected, e.Actual)
}

// RunState is a run together with its trace, as needed to replay it.
type RunState struct {
	Run    Run
	Events []trace.Event
}

// LoadRun reads a run and its trace and verifies that the events still hash
// to the stored trace hash. Returns an *IntegrityError when they do not.
func (s *Store) LoadRun(ctx context.Context, id string) (RunState, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return RunState{}, fmt.Errorf("load run: %w", err)
	}

	events, err := s.ReadEvents(ctx, id)
	if err != nil {
		return RunState{}, fmt.Errorf("load run: %w", err)
	}

	state := RunState{Run: run, Events: events}
	actual, err := trace.Hash(events)
	if err != nil {
		return state, fmt.Errorf("load run: %w", err)
	}
	if actual != run.TraceHash {
		return state, &IntegrityError{RunID: id, Expected: run.TraceHash, Actual: actual}
	}
	return state, nil
}
