package animator

import (
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/stylefx/internal/effect"
	"github.com/roach88/stylefx/internal/render"
)

type doneListener struct {
	id uint64
	fn func()
}

// Animator sequences and times the effects applied to one target.
type Animator struct {
	target render.Target
	port   render.Port
	logger *slog.Logger

	fallbackBuffer float64
	track          bool

	state      State
	destroying bool

	queued []*queuedEffect
	active []*queuedEffect

	// activeComputed holds measured natural values of Auto properties for
	// the current batch. nil when nothing was measured.
	activeComputed map[string]string

	collectedClasses map[string]bool
	collectedStyles  map[string]string

	startTime         float64
	maxTime           float64
	currentTransition string
	lastToken         string

	timer      render.TimerID
	timerArmed bool

	frames         []func() error
	yieldRequested bool
	flushScheduled bool

	listeners    []doneListener
	nextListener uint64

	unlisten func()
}

// New creates an animator for target and subscribes it to the target's
// transition-end signals.
func New(target render.Target, port render.Port, opts ...Option) *Animator {
	a := &Animator{
		target:         target,
		port:           port,
		logger:         slog.Default(),
		fallbackBuffer: DefaultFallbackBuffer,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.track {
		a.collectedClasses = make(map[string]bool)
		a.collectedStyles = make(map[string]string)
	}
	a.unlisten = port.OnTransitionEnd(target, a.onTransitionEnd)
	return a
}

// Target returns the animator's target.
func (a *Animator) Target() render.Target { return a.target }

// State returns the current lifecycle state.
func (a *Animator) State() State { return a.state }

// MaxTime returns the batch's expected completion time in milliseconds,
// relative to the start of the last flush.
func (a *Animator) MaxTime() float64 { return a.maxTime }

// QueuedEffects returns the number of effects waiting to be applied.
func (a *Animator) QueuedEffects() int { return len(a.queued) }

// ActiveEffects returns the number of applied effects in the current batch.
func (a *Animator) ActiveEffects() int { return len(a.active) }

// OnAllEffectsDone registers fn to run once, when the current batch
// finalizes. The returned func removes fn if it has not run yet.
func (a *Animator) OnAllEffectsDone(fn func()) (unsubscribe func()) {
	a.nextListener++
	id := a.nextListener
	a.listeners = append(a.listeners, doneListener{id: id, fn: fn})

	return func() {
		i := slices.IndexFunc(a.listeners, func(l doneListener) bool { return l.id == id })
		if i >= 0 {
			a.listeners = slices.Delete(a.listeners, i, i+1)
		}
	}
}

// AddEffect queues e and extends the batch's maximum time to cover it. It
// never flushes; call FlushEffects or ScheduleFlush afterwards.
func (a *Animator) AddEffect(e *effect.Effect) error {
	if a.destroying || a.state == Destroyed {
		return &Error{Code: ErrCodeDestroyed, Target: a.target, Op: "AddEffect"}
	}

	qe := normalize(e)
	qe.settle = a.transitionTime(e.Timing())
	a.maxTime = max(a.maxTime, qe.settle)
	a.queued = append(a.queued, qe)
	return nil
}

// RemoveQueued withdraws e if it has not been applied yet. The batch's
// maximum time no longer covers it. It reports whether e was found in the
// queue.
func (a *Animator) RemoveQueued(e *effect.Effect) bool {
	i := indexOf(a.queued, e)
	if i < 0 {
		return false
	}
	a.queued = slices.Delete(a.queued, i, i+1)
	a.maxTime = a.settleTime()
	return true
}

// settleTime is the latest settle time of the effects still in the batch.
func (a *Animator) settleTime() float64 {
	latest := 0.0
	for _, qe := range a.active {
		latest = max(latest, qe.settle)
	}
	for _, qe := range a.queued {
		latest = max(latest, qe.settle)
	}
	return latest
}

// transitionTime is when an effect with timing t settles, measured from the
// start of the current batch. Effects merged into a running batch start
// late by however long the batch has run.
func (a *Animator) transitionTime(t effect.Timing) float64 {
	elapsed := 0.0
	if a.state == Running {
		elapsed = a.port.Now() - a.startTime
	}
	return elapsed + t.Duration + t.Delay
}

// FlushEffects starts applying queued effects. The first effect is applied
// immediately; each following one after a yield. It reports false when the
// queue is empty or a flush is already in progress.
//
// A port error leaves the animator where it stopped, usually in
// ProcessingEffects. Nothing is rolled back and the fallback timer cannot
// complete such a batch; FinishAll or Destroy recover it.
func (a *Animator) FlushEffects() (bool, error) {
	if a.state == ProcessingEffects || len(a.queued) == 0 || a.destroying || a.state == Destroyed {
		return false, nil
	}

	a.startTime = a.port.Now()
	err := a.flushNext()
	a.armTimer()
	return true, err
}

// ScheduleFlush flushes at the next yield. Repeated calls before that yield
// schedule a single flush.
func (a *Animator) ScheduleFlush() {
	if a.flushScheduled || a.destroying || a.state == Destroyed {
		return
	}
	a.flushScheduled = true
	a.waitForFrame(func() error {
		a.flushScheduled = false
		_, err := a.FlushEffects()
		return err
	})
}

// flushNext applies the next queued effect and yields before the one after
// it, so every effect gets its own transition arc.
func (a *Animator) flushNext() error {
	if a.destroying || a.state == Destroyed {
		return nil
	}
	a.setState(ProcessingEffects)

	if len(a.queued) > 0 {
		qe := a.queued[0]
		a.queued[0] = nil
		a.queued = a.queued[1:]

		var computed map[string]string
		if len(qe.precompute) > 0 {
			var err error
			if computed, err = a.computeStyles(qe); err != nil {
				return err
			}
		}

		token := buildToken(qe.timing, "all")
		if computed != nil || token != a.lastToken {
			if err := a.applyTransition(token); err != nil {
				return err
			}
			if computed != nil {
				if a.activeComputed == nil {
					a.activeComputed = make(map[string]string, len(computed))
				}
				maps.Copy(a.activeComputed, computed)
			}
		}

		if err := a.applyStyling(qe, false, computed); err != nil {
			return err
		}
		a.active = append(a.active, qe)
	}

	if len(a.queued) > 0 {
		a.waitForFrame(a.flushNext)
	} else {
		a.setState(Running)
	}
	return nil
}

// computeStyles measures the natural values of qe's precompute properties.
// Each property is cleared and a transition with a negative delay equal to
// its duration seeks it straight to the end of the arc, where it is read.
// The pre-clear values are restored afterwards so nothing visibly jumps.
func (a *Animator) computeStyles(qe *queuedEffect) (map[string]string, error) {
	before := make(map[string]string, len(qe.precompute))
	for _, prop := range qe.precompute {
		v, err := a.port.ComputedStyle(a.target, prop)
		if err != nil {
			return nil, a.portErr("ComputedStyle", err)
		}
		before[prop] = v
		if err := a.port.ApplyStyle(a.target, prop, ""); err != nil {
			return nil, a.portErr("ApplyStyle", err)
		}
	}

	block := "all"
	if len(qe.precompute) == 1 {
		block = qe.precompute[0]
	}
	seek := effect.Timing{Duration: qe.timing.Duration, Delay: -qe.timing.Duration}
	if err := a.port.SetTransition(a.target, joinTransition(a.currentTransition, buildToken(seek, block))); err != nil {
		return nil, a.portErr("SetTransition", err)
	}

	computed := make(map[string]string, len(qe.precompute))
	for _, prop := range qe.precompute {
		v, err := a.port.ComputedStyle(a.target, prop)
		if err != nil {
			return nil, a.portErr("ComputedStyle", err)
		}
		computed[prop] = v
		if err := a.port.ApplyStyle(a.target, prop, before[prop]); err != nil {
			return nil, a.portErr("ApplyStyle", err)
		}
	}

	if err := a.port.Reflow(a.target); err != nil {
		return nil, a.portErr("Reflow", err)
	}
	return computed, nil
}

func (a *Animator) applyTransition(token string) error {
	a.lastToken = token
	a.currentTransition = joinTransition(a.currentTransition, token)
	if err := a.port.SetTransition(a.target, a.currentTransition); err != nil {
		return a.portErr("SetTransition", err)
	}
	return nil
}

// applyStyling writes qe's classes and styles. revert flips classes and
// clears styles. Auto styles resolve through precomputed.
func (a *Animator) applyStyling(qe *queuedEffect, revert bool, precomputed map[string]string) error {
	for _, name := range qe.classNames {
		on := qe.classes[name]
		if revert {
			on = !on
		}
		if err := a.port.ToggleClass(a.target, name, on); err != nil {
			return a.portErr("ToggleClass", err)
		}
		if a.track {
			a.collectedClasses[name] = on
		}
	}

	for _, prop := range qe.styleProps {
		value := ""
		if !revert {
			value = qe.styles[prop]
		}
		if value == effect.Auto {
			value = precomputed[prop]
		}
		if err := a.port.ApplyStyle(a.target, prop, value); err != nil {
			return a.portErr("ApplyStyle", err)
		}
		if a.track {
			a.collectedStyles[prop] = value
		}
	}
	return nil
}

// FinishEffect jumps e to its end state: after a yield its arcs are cut and
// its styling reverted, after another yield the final styling is applied
// again without animation, and a last yield removes it from the batch.
func (a *Animator) FinishEffect(e *effect.Effect) {
	a.finishOrDestroyEffect(e, false)
}

// DestroyEffect cuts e's arcs and reverts its styling after a yield, then
// removes it from the batch after another.
func (a *Animator) DestroyEffect(e *effect.Effect) {
	a.finishOrDestroyEffect(e, true)
}

func (a *Animator) finishOrDestroyEffect(e *effect.Effect, destroy bool) {
	if a.destroying || a.state == Destroyed {
		return
	}

	a.waitForFrame(func() error {
		if a.destroying {
			return nil
		}
		qe := a.lookup(e)
		if err := a.applyTransition(CancelNext); err != nil {
			return err
		}
		if err := a.applyStyling(qe, true, nil); err != nil {
			return err
		}

		cleanup := func() error { return a.cleanupEffect(e) }
		if destroy {
			a.waitForFrame(cleanup)
			return nil
		}

		a.waitForFrame(func() error {
			if a.destroying {
				return nil
			}
			if err := a.applyStyling(qe, false, a.activeComputed); err != nil {
				return err
			}
			a.waitForFrame(cleanup)
			return nil
		})
		return nil
	})
}

// lookup finds e in the batch or the queue. An effect the animator never
// saw is normalized on the spot so finishing it still applies its styling.
func (a *Animator) lookup(e *effect.Effect) *queuedEffect {
	if i := indexOf(a.active, e); i >= 0 {
		return a.active[i]
	}
	if i := indexOf(a.queued, e); i >= 0 {
		return a.queued[i]
	}
	return normalize(e)
}

// cleanupEffect removes e from the batch, drops its measured Auto values
// that are still in place, continues any pending flush and finalizes the
// batch if e was its longest arc.
func (a *Animator) cleanupEffect(e *effect.Effect) error {
	if a.destroying || a.state == Destroyed {
		return nil
	}

	if i := indexOf(a.active, e); i >= 0 {
		qe := a.active[i]
		a.active = slices.Delete(a.active, i, i+1)
		if len(qe.precompute) > 0 {
			if err := a.cleanupComputedStyles(qe.precompute); err != nil {
				return err
			}
		}
	}

	if err := a.flushNext(); err != nil {
		return err
	}
	if a.transitionTime(e.Timing()) >= a.maxTime {
		return a.onAllEffectsFinished()
	}
	return nil
}

// cleanupComputedStyles removes measured Auto values that were the final
// styling of a property. A property that a later effect set to something
// else keeps that value.
func (a *Animator) cleanupComputedStyles(props []string) error {
	for _, prop := range props {
		computed := a.activeComputed[prop]
		if computed == "" {
			continue
		}
		inline, err := a.port.InlineStyle(a.target, prop)
		if err != nil {
			return a.portErr("InlineStyle", err)
		}
		if computed != inline {
			continue
		}
		delete(a.activeComputed, prop)
		if err := a.port.ApplyStyle(a.target, prop, ""); err != nil {
			return a.portErr("ApplyStyle", err)
		}
	}
	return nil
}

func (a *Animator) onTransitionEnd(at float64) error {
	if len(a.queued) > 0 {
		return nil
	}
	if at-a.startTime >= a.maxTime {
		return a.onAllEffectsFinished()
	}
	return nil
}

// onAllEffectsFinished finalizes the batch: measured Auto values are cleaned
// up, the transition value is cleared and every done listener runs once.
// Only a Running or Exiting animator finalizes, which makes the race between
// the transition-end signal and the fallback timer harmless.
func (a *Animator) onAllEffectsFinished() error {
	if a.state < Running || a.state > Exiting {
		return nil
	}

	if a.activeComputed != nil {
		props := slices.Sorted(maps.Keys(a.activeComputed))
		if err := a.cleanupComputedStyles(props); err != nil {
			return err
		}
		a.activeComputed = nil
	}
	if err := a.port.SetTransition(a.target, ""); err != nil {
		return a.portErr("SetTransition", err)
	}

	a.maxTime = 0
	a.currentTransition = ""
	a.lastToken = ""
	a.active = nil
	a.clearTimer()
	a.setState(Idle)

	listeners := a.listeners
	a.listeners = nil
	for _, l := range listeners {
		l.fn()
	}
	return nil
}

// FinishAll cuts every arc now and finalizes the batch after a yield.
func (a *Animator) FinishAll() error {
	if a.state >= Exiting {
		return nil
	}
	if err := a.port.SetTransition(a.target, CancelAll); err != nil {
		return a.portErr("SetTransition", err)
	}
	a.setState(Exiting)
	a.waitForFrame(a.onAllEffectsFinished)
	return nil
}

// Destroy cuts every arc, stops listening for transition-end signals and,
// after a yield, finalizes the batch and becomes Destroyed. With styling
// tracking enabled every class and style the animator applied is reverted.
// Destroy always reaches Destroyed; port errors are reported, not retried.
func (a *Animator) Destroy() error {
	if a.destroying || a.state == Destroyed {
		return nil
	}
	a.destroying = true
	a.setState(Exiting)

	var errs []error
	if err := a.port.SetTransition(a.target, CancelAll); err != nil {
		errs = append(errs, a.portErr("SetTransition", err))
	}
	if a.unlisten != nil {
		a.unlisten()
		a.unlisten = nil
	}

	a.waitForFrame(func() error {
		err := a.onAllEffectsFinished()
		a.clearTimer()
		a.queued = nil
		a.setState(Destroyed)
		return errors.Join(err, a.revertCollected())
	})
	return errors.Join(errs...)
}

func (a *Animator) revertCollected() error {
	if !a.track {
		return nil
	}
	for _, name := range slices.Sorted(maps.Keys(a.collectedClasses)) {
		if err := a.port.ToggleClass(a.target, name, !a.collectedClasses[name]); err != nil {
			return a.portErr("ToggleClass", err)
		}
	}
	for _, prop := range slices.Sorted(maps.Keys(a.collectedStyles)) {
		if err := a.port.ApplyStyle(a.target, prop, ""); err != nil {
			return a.portErr("ApplyStyle", err)
		}
	}
	clear(a.collectedClasses)
	clear(a.collectedStyles)
	return nil
}

// armTimer replaces the fallback timer with one covering the batch's
// maximum time plus the buffer.
func (a *Animator) armTimer() {
	a.clearTimer()
	a.timer = a.port.SetTimer(func() error {
		a.timerArmed = false
		// Effects merged into the batch but not applied yet re-arm the
		// timer when they are flushed.
		if len(a.queued) > 0 {
			return nil
		}
		return a.onAllEffectsFinished()
	}, a.maxTime+a.fallbackBuffer)
	a.timerArmed = true
}

func (a *Animator) clearTimer() {
	if a.timerArmed {
		a.port.ClearTimer(a.timer)
		a.timerArmed = false
	}
}

func (a *Animator) setState(s State) {
	if a.state == s {
		return
	}
	a.logger.Debug("animator state change", "target", a.target, "from", a.state, "to", s)
	a.state = s
}

func (a *Animator) portErr(op string, err error) error {
	a.logger.Error("render port failed", "target", a.target, "op", op, "state", a.state, "error", err)
	return &Error{Code: ErrCodePortFailure, Target: a.target, Op: op, Err: err}
}
