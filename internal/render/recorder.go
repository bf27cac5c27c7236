package render

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/stylefx/internal/effect"
	"github.com/roach88/stylefx/internal/engine"
	"github.com/roach88/stylefx/internal/trace"
)

// Operations that can be made to fail with FailOn.
const (
	OpSetTransition = "SetTransition"
	OpApplyStyle    = "ApplyStyle"
	OpToggleClass   = "ToggleClass"
	OpInlineStyle   = "InlineStyle"
	OpComputedStyle = "ComputedStyle"
	OpReflow        = "Reflow"
)

type yieldRequest struct {
	target Target
	fn     func() error
}

type fakeTimer struct {
	id  TimerID
	due float64
	fn  func() error
}

type endListener struct {
	id uint64
	fn func(at float64) error
}

// Recorder is a Port that does nothing on its own. Yields wait in a queue
// until FlushYields, timers fire only inside Advance, and transition-end
// signals are delivered by EndTransition. Every port call is recorded as a
// trace event.
//
// Reflow accounting follows the surface model: each computed-style read,
// each explicit Reflow and each flushed yield counts as one flushed reflow.
//
// Recorder is not safe for concurrent use.
type Recorder struct {
	doc   *Document
	clock *engine.Clock

	events      []trace.Event
	now         float64
	yields      []yieldRequest
	flushed     int
	computedLog []string
	computed    map[Target]map[string]string

	timers    []fakeTimer
	nextTimer TimerID

	listeners    map[Target][]endListener
	nextListener uint64

	failures map[string]error
}

var _ Port = (*Recorder)(nil)

// NewRecorder creates a recorder over an empty document.
func NewRecorder() *Recorder {
	return &Recorder{
		doc:       NewDocument(),
		clock:     engine.NewClock(),
		computed:  make(map[Target]map[string]string),
		listeners: make(map[Target][]endListener),
		failures:  make(map[string]error),
	}
}

// Document returns the recorder's document.
func (r *Recorder) Document() *Document {
	return r.doc
}

// Record appends an event with the next sequence number. Callers outside
// the port (the harness) use it to interleave their own observations.
func (r *Recorder) Record(kind trace.Kind, target Target, name, value string) {
	r.events = append(r.events, trace.Event{
		Seq:    r.clock.Next(),
		Kind:   kind,
		Target: string(target),
		Name:   name,
		Value:  value,
	})
}

// Events returns a copy of the recorded trace.
func (r *Recorder) Events() []trace.Event {
	return slices.Clone(r.events)
}

// TransitionLog returns every transition value written, in order.
func (r *Recorder) TransitionLog() []string {
	var log []string
	for _, e := range trace.Filter(r.events, trace.KindTransition) {
		log = append(log, e.Value)
	}
	return log
}

// SetComputed makes ComputedStyle return value for prop on t.
func (r *Recorder) SetComputed(t Target, prop, value string) {
	props, ok := r.computed[t]
	if !ok {
		props = make(map[string]string)
		r.computed[t] = props
	}
	props[prop] = value
}

// FailOn makes every later call of op return err. A nil err clears it.
func (r *Recorder) FailOn(op string, err error) {
	if err == nil {
		delete(r.failures, op)
		return
	}
	r.failures[op] = err
}

func (r *Recorder) fail(op string) error {
	if err, ok := r.failures[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetTransition implements Port.
func (r *Recorder) SetTransition(t Target, value string) error {
	if err := r.fail(OpSetTransition); err != nil {
		return err
	}
	r.doc.setTransition(t, value)
	r.Record(trace.KindTransition, t, "", value)
	return nil
}

// ApplyStyle implements Port.
func (r *Recorder) ApplyStyle(t Target, prop, value string) error {
	if err := r.fail(OpApplyStyle); err != nil {
		return err
	}
	r.doc.applyStyle(t, prop, value)
	r.Record(trace.KindStyle, t, prop, value)
	return nil
}

// ToggleClass implements Port.
func (r *Recorder) ToggleClass(t Target, name string, on bool) error {
	if err := r.fail(OpToggleClass); err != nil {
		return err
	}
	r.doc.toggleClass(t, name, on)
	r.Record(trace.KindClass, t, name, strconv.FormatBool(on))
	return nil
}

// InlineStyle implements Port.
func (r *Recorder) InlineStyle(t Target, prop string) (string, error) {
	if err := r.fail(OpInlineStyle); err != nil {
		return "", err
	}
	return r.doc.Style(t, prop), nil
}

// ComputedStyle implements Port. The value comes from SetComputed, not from
// the document, so tests control exactly what a layout pass "measures".
func (r *Recorder) ComputedStyle(t Target, prop string) (string, error) {
	if err := r.fail(OpComputedStyle); err != nil {
		return "", err
	}
	r.flushed++
	r.computedLog = append(r.computedLog, prop)
	value := r.computed[t][prop]
	r.Record(trace.KindComputed, t, prop, value)
	return value, nil
}

// Reflow implements Port.
func (r *Recorder) Reflow(t Target) error {
	if err := r.fail(OpReflow); err != nil {
		return err
	}
	r.flushed++
	r.Record(trace.KindReflow, t, "", "")
	return nil
}

// RequestYield implements Port.
func (r *Recorder) RequestYield(t Target, fn func() error) {
	r.yields = append(r.yields, yieldRequest{target: t, fn: fn})
	r.Record(trace.KindYield, t, "", "")
}

// SetTimer implements Port.
func (r *Recorder) SetTimer(fn func() error, ms float64) TimerID {
	r.nextTimer++
	id := r.nextTimer
	r.timers = append(r.timers, fakeTimer{id: id, due: r.now + ms, fn: fn})
	r.Record(trace.KindTimerSet, "", timerName(id), effect.FormatMillis(ms))
	return id
}

// ClearTimer implements Port.
func (r *Recorder) ClearTimer(id TimerID) {
	i := slices.IndexFunc(r.timers, func(tm fakeTimer) bool { return tm.id == id })
	if i < 0 {
		return
	}
	r.timers = slices.Delete(r.timers, i, i+1)
	r.Record(trace.KindTimerClear, "", timerName(id), "")
}

// Now implements Port.
func (r *Recorder) Now() float64 {
	return r.now
}

// OnTransitionEnd implements Port.
func (r *Recorder) OnTransitionEnd(t Target, fn func(at float64) error) func() {
	r.nextListener++
	id := r.nextListener
	r.listeners[t] = append(r.listeners[t], endListener{id: id, fn: fn})
	r.Record(trace.KindListen, t, "", "")

	return func() {
		ls := r.listeners[t]
		i := slices.IndexFunc(ls, func(l endListener) bool { return l.id == id })
		if i < 0 {
			return
		}
		r.listeners[t] = slices.Delete(ls, i, i+1)
		r.Record(trace.KindUnlisten, t, "", "")
	}
}

// QueuedYields returns the number of yields waiting to be flushed.
func (r *Recorder) QueuedYields() int {
	return len(r.yields)
}

// FlushedReflows returns the number of reflows performed so far.
func (r *Recorder) FlushedReflows() int {
	return r.flushed
}

// ComputedLog returns the properties read with ComputedStyle, in order.
func (r *Recorder) ComputedLog() []string {
	return slices.Clone(r.computedLog)
}

// PendingTimers returns the number of armed timers.
func (r *Recorder) PendingTimers() int {
	return len(r.timers)
}

// FlushYields runs queued yields. limit caps how many run; 0 runs every
// yield queued at the time of the call. Yields requested while flushing wait
// for the next call. The first callback error stops the flush.
func (r *Recorder) FlushYields(limit int) error {
	n := len(r.yields)
	if limit > 0 && limit < n {
		n = limit
	}

	for i := 0; i < n; i++ {
		y := r.yields[0]
		r.yields[0] = yieldRequest{}
		r.yields = r.yields[1:]

		r.flushed++
		r.Record(trace.KindFrame, y.target, "", "")
		if err := y.fn(); err != nil {
			return err
		}
	}
	return nil
}

// Advance moves the clock forward by ms, firing due timers in (due, id)
// order. Timers armed by a firing timer run too if they fall inside the
// window. The first callback error stops the advance with the clock at the
// failing timer's due time.
func (r *Recorder) Advance(ms float64) error {
	until := r.now + ms

	for {
		i := r.nextDue(until)
		if i < 0 {
			break
		}
		tm := r.timers[i]
		r.timers = slices.Delete(r.timers, i, i+1)
		r.now = tm.due

		r.Record(trace.KindTimerFire, "", timerName(tm.id), "")
		if err := tm.fn(); err != nil {
			return err
		}
	}

	r.now = until
	return nil
}

func (r *Recorder) nextDue(until float64) int {
	best := -1
	for i, tm := range r.timers {
		if tm.due > until {
			continue
		}
		if best < 0 || tm.due < r.timers[best].due ||
			(tm.due == r.timers[best].due && tm.id < r.timers[best].id) {
			best = i
		}
	}
	return best
}

// EndTransition delivers a transition-end signal for t, stamped elapsed
// milliseconds after the current clock. Listeners subscribed at the time of
// the call receive it.
func (r *Recorder) EndTransition(t Target, elapsed float64) error {
	r.Record(trace.KindTransitionEnd, t, "", effect.FormatMillis(elapsed))

	at := r.now + elapsed
	for _, l := range slices.Clone(r.listeners[t]) {
		if err := l.fn(at); err != nil {
			return err
		}
	}
	return nil
}

func timerName(id TimerID) string {
	return strconv.FormatUint(uint64(id), 10)
}
