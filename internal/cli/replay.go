package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stylefx/internal/harness"
	"github.com/roach88/stylefx/internal/store"
	"github.com/roach88/stylefx/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
	Scenario string // optional - runs of one scenario only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Scenario      string `json:"scenario"`
	Events        int    `json:"events"`
	StoredHash    string `json:"stored_hash"`
	ReplayHash    string `json:"replay_hash,omitempty"`
	Intact        bool   `json:"intact"`
	Deterministic bool   `json:"deterministic"`
	FirstDiff     int64  `json:"first_diff,omitempty"` // seq of the first differing event
	Error         string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded scenarios and verify determinism",
		Long: `Re-run the scenario source stored with each recorded run and verify
that it reproduces the recorded trace exactly.

For every run the stored events are first checked against the stored trace
hash, then the scenario is executed again and the new trace hash compared.

Exit codes:
  0 - All runs reproduced
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  stylefx replay --db ./stylefx.db
  stylefx replay --db ./stylefx.db --run 0192f0c4-...
  stylefx replay --db ./stylefx.db --scenario basic-width --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "replay runs of one scenario only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var ids []string
	if opts.RunID != "" {
		ids = []string{opts.RunID}
	} else {
		runs, err := st.ListRuns(ctx, opts.Scenario)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(ids)),
		TotalRuns:        len(ids),
		AllDeterministic: true,
	}

	if len(ids) == 0 {
		if formatter.IsJSON() {
			return outputReplayJSON(formatter, result)
		}
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}

	for _, id := range ids {
		rr, err := replayRun(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}
		formatter.VerboseLog("replayed %s: deterministic=%v", id, rr.Deterministic)

		result.Runs = append(result.Runs, rr)
		if !rr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if formatter.IsJSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayRun verifies one stored run. Problems with the run itself (tampered
// events, unparseable source, aborted execution) are reported in the result;
// only a missing run or a store failure is returned as an error.
func replayRun(ctx context.Context, st *store.Store, id string) (ReplayRunResult, error) {
	state, err := st.LoadRun(ctx, id)

	var integrity *store.IntegrityError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ReplayRunResult{}, fmt.Errorf("run not found: %s", id)
	case errors.As(err, &integrity):
	case err != nil:
		return ReplayRunResult{}, err
	}

	rr := ReplayRunResult{
		RunID:      id,
		Scenario:   state.Run.Scenario,
		Events:     len(state.Events),
		StoredHash: state.Run.TraceHash,
		Intact:     integrity == nil,
	}
	if integrity != nil {
		rr.Error = integrity.Error()
		return rr, nil
	}

	s, err := harness.ParseScenario([]byte(state.Run.Source))
	if err != nil {
		rr.Error = fmt.Sprintf("stored scenario no longer parses: %v", err)
		return rr, nil
	}
	replayed, err := harness.Run(s)
	if err != nil {
		rr.Error = fmt.Sprintf("replay aborted: %v", err)
		return rr, nil
	}

	rr.ReplayHash = replayed.TraceHash
	rr.Deterministic = replayed.TraceHash == state.Run.TraceHash
	if !rr.Deterministic {
		rr.FirstDiff = firstDiff(state.Events, replayed.Trace)
	}
	return rr, nil
}

// firstDiff returns the seq of the first event that differs between two
// traces, counting a missing event as a difference.
func firstDiff(a, b []trace.Event) int64 {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i].Seq
		}
	}
	return int64(n + 1)
}

func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if !result.AllDeterministic {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Respond(resp); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, rr := range result.Runs {
		status := "✓"
		if !rr.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, rr.RunID, rr.Scenario)
		fmt.Fprintf(w, "  Events: %d\n", rr.Events)

		if formatter.Verbose {
			fmt.Fprintf(w, "  Stored hash: %s\n", rr.StoredHash)
			fmt.Fprintf(w, "  Replay hash: %s\n", rr.ReplayHash)
		}
		switch {
		case rr.Error != "":
			fmt.Fprintf(w, "  Error: %s\n", rr.Error)
		case !rr.Deterministic:
			fmt.Fprintf(w, "  Warning: trace diverges at seq %d\n", rr.FirstDiff)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
