package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stylefx/internal/store"
	"github.com/roach88/stylefx/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string   // optional - defaults to the latest run
	Kinds    []string // optional - filter to these event kinds
	Target   string   // optional - filter to one target
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID     string        `json:"run_id"`
	Scenario  string        `json:"scenario"`
	Passed    bool          `json:"passed"`
	TraceHash string        `json:"trace_hash"`
	CreatedAt string        `json:"created_at"`
	Events    []trace.Event `json:"events"`
	Stats     TraceStats    `json:"stats"`
}

// TraceStats counts the events shown per kind.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ByKind      map[string]int `json:"by_kind"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a recorded trace",
		Long: `Print the trace of a run recorded with "stylefx run --db".

Events are shown in sequence order: every render-port operation, scenario
step, player status change and batch completion.

Examples:
  stylefx trace --db ./stylefx.db
  stylefx trace --db ./stylefx.db --run 0192f0c4-...
  stylefx trace --db ./stylefx.db --kind transition --kind style
  stylefx trace --db ./stylefx.db --target box --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (default: latest run)")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "filter to event kind (repeatable)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "filter to one target")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := findRun(cmd, st, opts.RunID)
	if err != nil {
		return err
	}

	kinds := make([]trace.Kind, len(opts.Kinds))
	for i, k := range opts.Kinds {
		kinds[i] = trace.Kind(k)
	}
	events, err := st.ReadEvents(ctx, run.ID, kinds...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	if opts.Target != "" {
		events = filterTarget(events, opts.Target)
	}

	result := TraceResult{
		RunID:     run.ID,
		Scenario:  run.Scenario,
		Passed:    run.Passed,
		TraceHash: run.TraceHash,
		CreatedAt: run.CreatedAt,
		Events:    events,
		Stats: TraceStats{
			TotalEvents: len(events),
			ByKind:      make(map[string]int),
		},
	}
	for _, e := range events {
		result.Stats.ByKind[string(e.Kind)]++
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	if formatter.IsJSON() {
		return formatter.Respond(CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}
	outputTraceText(formatter.Writer, result)
	return nil
}

// openExisting opens a run log that must already exist; store.Open would
// create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// findRun reads the run with the given ID, or the latest run when id is empty.
func findRun(cmd *cobra.Command, st *store.Store, id string) (store.Run, error) {
	var (
		run store.Run
		err error
	)
	if id == "" {
		run, err = st.LatestRun(cmd.Context())
	} else {
		run, err = st.ReadRun(cmd.Context(), id)
	}

	switch {
	case errors.Is(err, sql.ErrNoRows) && id == "":
		return store.Run{}, NewExitError(ExitCommandError, "no runs recorded")
	case errors.Is(err, sql.ErrNoRows):
		return store.Run{}, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
	case err != nil:
		return store.Run{}, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	return run, nil
}

func filterTarget(events []trace.Event, target string) []trace.Event {
	out := make([]trace.Event, 0, len(events))
	for _, e := range events {
		if e.Target == target {
			out = append(out, e)
		}
	}
	return out
}

func outputTraceText(w io.Writer, result TraceResult) {
	status := "passed"
	if !result.Passed {
		status = "failed"
	}
	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Scenario: %s (%s)\n", result.Scenario, status)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Events ===")
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, e := range result.Events {
		fmt.Fprintf(w, "  %s\n", formatEvent(e))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Trace Hash:   %s\n", result.TraceHash)
}

// formatEvent renders "[seq] kind target name=value", leaving out empty
// parts.
func formatEvent(e trace.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", e.Seq, e.Kind)
	if e.Target != "" {
		b.WriteString(" " + e.Target)
	}
	switch {
	case e.Name != "" && e.Value != "":
		fmt.Fprintf(&b, " %s=%q", e.Name, e.Value)
	case e.Name != "":
		b.WriteString(" " + e.Name)
	case e.Value != "":
		fmt.Fprintf(&b, " %q", e.Value)
	}
	return b.String()
}
