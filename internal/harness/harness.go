package harness

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/stylefx/internal/animator"
	"github.com/roach88/stylefx/internal/effect"
	"github.com/roach88/stylefx/internal/engine"
	"github.com/roach88/stylefx/internal/player"
	"github.com/roach88/stylefx/internal/registry"
	"github.com/roach88/stylefx/internal/render"
	"github.com/roach88/stylefx/internal/testutil"
	"github.com/roach88/stylefx/internal/trace"
)

// Harness executes one scenario against a fresh Recorder and Registry.
type Harness struct {
	scenario *Scenario
	rec      *render.Recorder
	reg      *registry.Registry
	result   *Result

	// watched is the latest animator seen per target. Done counts survive
	// an animator being replaced.
	watched map[render.Target]*animator.Animator
	done    map[render.Target]int

	effects map[string]*effect.Effect
	players map[string]*player.Player
	cancels map[string]player.CancelFunc

	lastCancelled bool
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh recorder with a logical clock and sequential
// player IDs, so the same scenario always produces the same trace. Logs are
// discarded.
//
// A failed expectation or assertion marks the result as failed. A step that
// returns an error it did not expect aborts the run with that error.
func Run(scenario *Scenario) (*Result, error) {
	h := newHarness(scenario)

	for i, step := range scenario.Steps {
		if err := h.execute(i, step); err != nil {
			return nil, err
		}
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluate(a); err != nil {
			h.result.AddFailure(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	h.result.Trace = h.rec.Events()
	hash, err := trace.Hash(h.result.Trace)
	if err != nil {
		return nil, fmt.Errorf("hash trace: %w", err)
	}
	h.result.TraceHash = hash
	if src := scenario.Source(); src != nil {
		h.result.ScenarioHash = trace.ScenarioHash(src)
	}
	return h.result, nil
}

func newHarness(s *Scenario) *Harness {
	logger := testutil.DiscardLogger()

	rec := render.NewRecorder()
	for t, props := range s.Computed {
		for prop, v := range props {
			rec.SetComputed(render.Target(t), prop, v)
		}
	}
	for t, props := range s.Inline {
		for prop, v := range props {
			rec.Document().SetStyle(render.Target(t), prop, v)
		}
	}

	return &Harness{
		scenario: s,
		rec:      rec,
		reg: registry.New(rec,
			registry.WithLogger(logger),
			registry.WithIDGenerator(engine.NewSequenceGenerator("player")),
			registry.WithAnimatorOptions(s.AnimatorOptions(logger)...),
		),
		result:  NewResult(s.Name),
		watched: make(map[render.Target]*animator.Animator),
		done:    make(map[render.Target]int),
		effects: make(map[string]*effect.Effect),
		players: make(map[string]*player.Player),
		cancels: make(map[string]player.CancelFunc),
	}
}

// execute records the step in the trace, applies it and checks its expect
// clause.
func (h *Harness) execute(i int, st Step) error {
	label := fmt.Sprintf("steps[%d] %s", i, st.Op)
	h.rec.Record(trace.KindStep, render.Target(st.Target), st.Op, st.Effect)

	err := h.apply(st)
	if st.Expect != nil && st.Expect.Error != "" {
		switch {
		case err == nil:
			h.result.AddFailure(fmt.Sprintf("%s: expected error containing %q, got none", label, st.Expect.Error))
		case !strings.Contains(err.Error(), st.Expect.Error):
			h.result.AddFailure(fmt.Sprintf("%s: expected error containing %q, got %q", label, st.Expect.Error, err.Error()))
		}
		err = nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}

	if st.Expect != nil {
		for _, msg := range h.checkExpect(st) {
			h.result.AddFailure(label + ": " + msg)
		}
	}
	return nil
}

func (h *Harness) apply(st Step) error {
	t := render.Target(st.Target)

	switch st.Op {
	case OpAddEffect:
		timing, err := st.ParsedTiming()
		if err != nil {
			return err
		}
		e, err := effect.New(st.Classes, st.Styles, timing)
		if err != nil {
			return err
		}
		h.effects[st.Effect] = e
		return h.animator(t).AddEffect(e)

	case OpPlay:
		return h.play(t, st)

	case OpFlush:
		a, err := h.existing(t)
		if err != nil {
			return err
		}
		_, err = a.FlushEffects()
		return err

	case OpScheduleFlush:
		a, err := h.existing(t)
		if err != nil {
			return err
		}
		a.ScheduleFlush()
		return nil

	case OpYield:
		return h.rec.FlushYields(st.Count)

	case OpAdvance:
		return h.rec.Advance(st.Ms)

	case OpTransitionEnd:
		return h.rec.EndTransition(t, st.Elapsed)

	case OpFinishEffect, OpDestroyEffect:
		a, err := h.existing(t)
		if err != nil {
			return err
		}
		e, ok := h.effects[st.Effect]
		if !ok {
			return fmt.Errorf("unknown effect %q", st.Effect)
		}
		if st.Op == OpFinishEffect {
			a.FinishEffect(e)
		} else {
			a.DestroyEffect(e)
		}
		return nil

	case OpFinishAll:
		a, err := h.existing(t)
		if err != nil {
			return err
		}
		return a.FinishAll()

	case OpDestroy:
		a, err := h.existing(t)
		if err != nil {
			return err
		}
		return a.Destroy()

	case OpPause, OpFinish, OpDestroyPlayer:
		p, err := h.player(st.Effect)
		if err != nil {
			return err
		}
		switch st.Op {
		case OpPause:
			p.Pause()
		case OpFinish:
			p.Finish()
		default:
			var replacement player.Handle
			if st.Replacement != "" {
				r, err := h.player(st.Replacement)
				if err != nil {
					return err
				}
				replacement = r
			}
			p.Destroy(replacement)
		}
		return nil

	case OpCancel:
		cancel, ok := h.cancels[st.Effect]
		if !ok {
			return fmt.Errorf("unknown player %q", st.Effect)
		}
		h.lastCancelled = cancel()
		return nil

	case OpUnregister:
		_, err := h.reg.Unregister(t)
		return err

	case OpFailPort:
		var err error
		if st.PortError != "" {
			err = errors.New(st.PortError)
		}
		h.rec.FailOn(st.PortOp, err)
		return nil
	}

	return fmt.Errorf("unknown op %q", st.Op)
}

// play builds a player for the step's effect, reports its status changes in
// the trace and plays it.
func (h *Harness) play(t render.Target, st Step) error {
	timing, err := st.ParsedTiming()
	if err != nil {
		return err
	}

	h.animator(t)
	p, err := h.reg.Animate(t, st.Classes, st.Styles, timing)
	if err != nil {
		return err
	}

	label := st.Effect
	p.Subscribe(func(s player.State) {
		h.rec.Record(trace.KindStatus, t, label, s.String())
	})
	h.players[label] = p
	h.effects[label] = p.Effect()

	cancel, err := p.Play()
	h.cancels[label] = cancel
	return err
}

// animator returns the target's animator, creating it if needed, and
// subscribes a done counter to every animator the first time it is seen.
func (h *Harness) animator(t render.Target) *animator.Animator {
	a := h.reg.GetOrCreate(t)
	if h.watched[t] != a {
		h.watched[t] = a
		h.watch(t, a)
	}
	return a
}

// watch counts every batch the animator completes. Done listeners run once,
// so the counter re-subscribes itself.
func (h *Harness) watch(t render.Target, a *animator.Animator) {
	var onDone func()
	onDone = func() {
		h.done[t]++
		h.rec.Record(trace.KindDone, t, "", strconv.Itoa(h.done[t]))
		a.OnAllEffectsDone(onDone)
	}
	a.OnAllEffectsDone(onDone)
}

// existing returns the latest animator seen for t, even if it has been
// destroyed.
func (h *Harness) existing(t render.Target) (*animator.Animator, error) {
	a, ok := h.watched[t]
	if !ok {
		return nil, fmt.Errorf("no animator for target %q", t)
	}
	return a, nil
}

func (h *Harness) player(label string) (*player.Player, error) {
	p, ok := h.players[label]
	if !ok {
		return nil, fmt.Errorf("unknown player %q", label)
	}
	return p, nil
}
