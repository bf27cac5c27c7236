package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/stylefx/internal/engine"
	"github.com/roach88/stylefx/internal/harness"
	"github.com/roach88/stylefx/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.IDGenerator
}

// RunResult is the outcome of one scenario run.
type RunResult struct {
	RunID        string   `json:"run_id,omitempty"`
	Scenario     string   `json:"scenario"`
	Pass         bool     `json:"pass"`
	Failures     []string `json:"failures,omitempty"`
	Events       int      `json:"events"`
	TraceHash    string   `json:"trace_hash"`
	ScenarioHash string   `json:"scenario_hash"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario",
		Long: `Run a scenario against the recording render port and report its
expectations and assertions.

With --db the run and its full trace are appended to a SQLite run log
(created if it doesn't exist) for later trace and replay.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (scenario not found, database error, etc.)

Example:
  stylefx run ./scenarios/basic-width.yaml
  stylefx run --db ./stylefx.db ./scenarios/basic-width.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, errs := LoadScenarios(path, "", LoadModeFailFast)
	if len(errs) > 0 {
		le := loadErrors(errs)[0]
		_ = formatter.Error(le.Code, le.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", errs[0])
	}
	if len(loaded) != 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("expected one scenario file, found %d", len(loaded)))
	}
	s := loaded[0].Scenario

	slog.Debug("running scenario", "name", s.Name, "steps", len(s.Steps))
	result, err := harness.Run(s)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, fmt.Sprintf("scenario %s aborted", s.Name), err)
	}

	out := RunResult{
		Scenario:     result.Scenario,
		Pass:         result.Pass,
		Failures:     result.Failures,
		Events:       len(result.Trace),
		TraceHash:    result.TraceHash,
		ScenarioHash: result.ScenarioHash,
	}

	if opts.Database != "" {
		ids := opts.RunIDs
		if ids == nil {
			ids = engine.UUIDv7Generator{}
		}
		out.RunID = ids.Generate()
		if err := persistRun(cmd.Context(), opts.Database, out.RunID, s, result); err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		slog.Info("run recorded", "run_id", out.RunID, "db", opts.Database)
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: out, RunID: out.RunID}
		if !out.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_SCENARIO_FAILED", Message: fmt.Sprintf("%d failure(s)", len(out.Failures))}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		outputRunText(formatter, out)
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", out.Scenario))
	}
	return nil
}

func persistRun(ctx context.Context, dbPath, runID string, s *harness.Scenario, result *harness.Result) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	return st.WriteRun(ctx, store.Run{
		ID:           runID,
		Scenario:     s.Name,
		Source:       string(s.Source()),
		ScenarioHash: result.ScenarioHash,
		TraceHash:    result.TraceHash,
		Passed:       result.Pass,
		Failures:     result.Failures,
	}, result.Trace)
}

func outputRunText(formatter *OutputFormatter, out RunResult) {
	w := formatter.Writer
	if out.Pass {
		fmt.Fprintf(w, "✓ %s (%d events)\n", out.Scenario, out.Events)
	} else {
		fmt.Fprintf(w, "✗ %s\n", out.Scenario)
		for _, f := range out.Failures {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	fmt.Fprintf(w, "  trace hash: %s\n", out.TraceHash)
	if out.RunID != "" {
		fmt.Fprintf(w, "  run id: %s\n", out.RunID)
	}
}
