package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stylefx/internal/engine"
	"github.com/roach88/stylefx/internal/harness"
	"github.com/roach88/stylefx/internal/player"
	"github.com/roach88/stylefx/internal/registry"
	"github.com/roach88/stylefx/internal/render"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Timeout       time.Duration
	FrameInterval time.Duration
}

// PlayUpdate is one player status change observed during live playback.
type PlayUpdate struct {
	AtMs   float64 `json:"at_ms"`
	Target string  `json:"target"`
	Player string  `json:"player"`
	State  string  `json:"state"`
}

// PlayResult summarizes a live playback.
type PlayResult struct {
	Scenario  string       `json:"scenario"`
	Players   int          `json:"players"`
	Completed bool         `json:"completed"`
	Updates   []PlayUpdate `json:"updates"`
	Errors    []string     `json:"errors,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <scenario.yaml>",
		Short: "Play a scenario live with real frames and timers",
		Long: `Play a scenario on the event loop with wall-clock frames and timers
and print every player status change as it happens.

Only player and animator operations are performed (play, pause, finish,
destroy_player, cancel, finish_all, destroy, unregister); advance waits in
real time. Yields, flushes and transition-end signals come from the loop and
the surface instead of the scenario. Expectations are not checked.

Exit codes:
  0 - Every player finished
  1 - Timed out or a loop task failed
  2 - Command error (scenario not found, etc.)

Example:
  stylefx play ./scenarios/basic-width.yaml
  stylefx play ./scenarios/basic-width.yaml --timeout 5s --frame 8ms`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "give up waiting for players after this long")
	cmd.Flags().DurationVar(&opts.FrameInterval, "frame", engine.DefaultFrameInterval, "frame tick interval")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, errs := LoadScenarios(path, "", LoadModeFailFast)
	if len(errs) > 0 {
		return WrapExitError(ExitCommandError, "failed to load scenario", errs[0])
	}
	if len(loaded) != 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("expected one scenario file, found %d", len(loaded)))
	}
	s := loaded[0].Scenario

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.Timeout)
	defer cancel()

	var live io.Writer
	if !formatter.IsJSON() {
		live = formatter.Writer
		fmt.Fprintf(live, "Playing %s\n", s.Name)
	}
	sess := newLiveSession(s, opts.FrameInterval, live)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = sess.loop.Run(loopCtx)
	}()

	completed, err := sess.play(ctx, s.Steps)
	stopLoop()
	<-loopDone
	if err != nil && ctx.Err() == nil {
		return WrapExitError(ExitFailure, "live playback failed", err)
	}

	result := sess.result(s.Name, completed)
	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !completed || len(result.Errors) > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_PLAYBACK", Message: playbackProblem(result)}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		outputPlayText(formatter.Writer, result)
	}

	if !completed || len(result.Errors) > 0 {
		return NewExitError(ExitFailure, playbackProblem(result))
	}
	return nil
}

// liveSession drives a scenario on a running loop. Fields marked "loop" are
// only touched on the loop goroutine.
type liveSession struct {
	loop *engine.Loop
	reg  *registry.Registry

	players  map[string]*player.Player // loop
	cancels  map[string]player.CancelFunc
	open     int  // loop: players not yet finished or destroyed
	stepsRun bool // loop
	settled  chan struct{}

	mu      sync.Mutex
	live    io.Writer
	updates []PlayUpdate
	errs    []string
}

func newLiveSession(s *harness.Scenario, frame time.Duration, live io.Writer) *liveSession {
	sess := &liveSession{
		players: make(map[string]*player.Player),
		cancels: make(map[string]player.CancelFunc),
		settled: make(chan struct{}),
		live:    live,
	}

	logger := slog.Default()
	sess.loop = engine.NewLoop(
		engine.WithFrameInterval(frame),
		engine.WithLoopLogger(logger),
		engine.WithErrorHandler(sess.recordError),
	)
	surface := render.NewSurface(sess.loop, render.WithSurfaceLogger(logger))
	for t, props := range s.Computed {
		for prop, v := range props {
			surface.SetNatural(render.Target(t), prop, v)
		}
	}
	for t, props := range s.Inline {
		for prop, v := range props {
			surface.Document().SetStyle(render.Target(t), prop, v)
		}
	}

	sess.reg = registry.New(surface,
		registry.WithLogger(logger),
		registry.WithAnimatorOptions(s.AnimatorOptions(logger)...),
	)
	return sess
}

// play performs the steps and waits until every player has finished.
// It reports false when ctx expired first.
func (s *liveSession) play(ctx context.Context, steps []harness.Step) (bool, error) {
	for i, st := range steps {
		if st.Op == harness.OpAdvance {
			select {
			case <-time.After(time.Duration(st.Ms * float64(time.Millisecond))):
			case <-ctx.Done():
				return false, ctx.Err()
			}
			continue
		}

		if err := s.loop.Call(ctx, func() error { return s.apply(st) }); err != nil {
			return false, fmt.Errorf("steps[%d] %s: %w", i, st.Op, err)
		}
	}

	if err := s.loop.Call(ctx, func() error {
		s.stepsRun = true
		s.checkSettled()
		return nil
	}); err != nil {
		return false, err
	}

	select {
	case <-s.settled:
		return true, nil
	case <-ctx.Done():
		return false, nil
	}
}

// apply runs on the loop goroutine.
func (s *liveSession) apply(st harness.Step) error {
	t := render.Target(st.Target)

	switch st.Op {
	case harness.OpPlay:
		timing, err := st.ParsedTiming()
		if err != nil {
			return err
		}
		p, err := s.reg.Animate(t, st.Classes, st.Styles, timing)
		if err != nil {
			return err
		}
		label := st.Effect
		s.players[label] = p
		s.open++

		settled := false
		p.Subscribe(func(state player.State) {
			s.report(t, label, state)
			if state >= player.Finished && !settled {
				settled = true
				s.open--
				s.checkSettled()
			}
		})
		cancel, err := p.Play()
		s.cancels[label] = func() bool {
			if !cancel() {
				return false
			}
			settled = true
			s.open--
			return true
		}
		return err

	case harness.OpPause, harness.OpFinish, harness.OpDestroyPlayer:
		p, ok := s.players[st.Effect]
		if !ok {
			return fmt.Errorf("unknown player %q", st.Effect)
		}
		switch st.Op {
		case harness.OpPause:
			p.Pause()
		case harness.OpFinish:
			p.Finish()
		default:
			var replacement player.Handle
			if r, ok := s.players[st.Replacement]; ok {
				replacement = r
			}
			p.Destroy(replacement)
		}

	case harness.OpCancel:
		if cancel, ok := s.cancels[st.Effect]; ok {
			cancel()
		}

	case harness.OpFinishAll, harness.OpDestroy:
		a, ok := s.reg.Lookup(t)
		if !ok {
			return fmt.Errorf("no animator for target %q", t)
		}
		if st.Op == harness.OpFinishAll {
			return a.FinishAll()
		}
		return a.Destroy()

	case harness.OpUnregister:
		_, err := s.reg.Unregister(t)
		return err

	default:
		slog.Debug("step not performed live", "op", st.Op, "target", st.Target)
	}
	return nil
}

func (s *liveSession) checkSettled() {
	if s.stepsRun && s.open == 0 {
		select {
		case <-s.settled:
		default:
			close(s.settled)
		}
	}
}

func (s *liveSession) report(t render.Target, label string, state player.State) {
	u := PlayUpdate{AtMs: s.loop.Now(), Target: string(t), Player: label, State: state.String()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	if s.live != nil {
		fmt.Fprintf(s.live, "  %8.1fms  %-12s %-12s %s\n", u.AtMs, u.Target, u.Player, u.State)
	}
}

func (s *liveSession) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err.Error())
}

func (s *liveSession) result(name string, completed bool) PlayResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return PlayResult{
		Scenario:  name,
		Players:   len(s.players),
		Completed: completed,
		Updates:   append([]PlayUpdate{}, s.updates...),
		Errors:    append([]string(nil), s.errs...),
	}
}

func playbackProblem(r PlayResult) string {
	if !r.Completed {
		return "timed out waiting for players to finish"
	}
	return fmt.Sprintf("%d loop task(s) failed", len(r.Errors))
}

func outputPlayText(w io.Writer, r PlayResult) {
	fmt.Fprintln(w)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	if r.Completed {
		fmt.Fprintf(w, "✓ %d player(s) finished\n", r.Players)
		return
	}
	fmt.Fprintln(w, "✗ Timed out waiting for players to finish")
}
