package harness

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/roach88/stylefx/internal/render"
	"github.com/roach88/stylefx/internal/trace"
)

// AssertionError is returned when an assertion or expectation fails.
type AssertionError struct {
	Type     string // what was checked, e.g. "style box.width"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func mismatch(what, expected, actual string) error {
	if expected == actual {
		return nil
	}
	return &AssertionError{Type: what, Expected: strconv.Quote(expected), Actual: strconv.Quote(actual)}
}

// checkExpect evaluates a step's expect clause and returns one message per
// failed check, in a stable order.
func (h *Harness) checkExpect(st Step) []string {
	ex := st.Expect
	t := render.Target(st.Target)

	var errs []error
	if ex.Transition != nil {
		errs = append(errs, h.checkTransition(t, *ex.Transition))
	}
	for _, prop := range slices.Sorted(maps.Keys(ex.Styles)) {
		errs = append(errs, h.checkStyle(t, prop, ex.Styles[prop]))
	}
	for _, name := range slices.Sorted(maps.Keys(ex.Classes)) {
		errs = append(errs, h.checkClass(t, name, ex.Classes[name]))
	}
	if ex.State != "" {
		errs = append(errs, h.checkAnimatorState(t, ex.State))
	}
	if ex.Player != "" {
		errs = append(errs, h.checkPlayerState(st.Effect, ex.Player))
	}
	if ex.Done != nil {
		errs = append(errs, h.checkDone(t, *ex.Done))
	}
	if ex.Cancelled != nil {
		errs = append(errs, mismatch("cancelled", strconv.FormatBool(*ex.Cancelled), strconv.FormatBool(h.lastCancelled)))
	}

	var msgs []string
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

// evaluate checks one end-of-run assertion.
func (h *Harness) evaluate(a Assertion) error {
	t := render.Target(a.Target)

	switch a.Type {
	case AssertTransition:
		return h.checkTransition(t, a.Value)
	case AssertStyle:
		return h.checkStyle(t, a.Prop, a.Value)
	case AssertClass:
		return h.checkClass(t, a.Class, *a.Present)
	case AssertAnimatorState:
		return h.checkAnimatorState(t, a.State)
	case AssertPlayerState:
		return h.checkPlayerState(a.Effect, a.State)
	case AssertDoneCount:
		return h.checkDone(t, *a.Count)
	case AssertTraceCount:
		return h.checkTraceCount(trace.Kind(a.Kind), t, *a.Count)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func (h *Harness) checkTransition(t render.Target, want string) error {
	return mismatch("transition "+string(t), want, h.rec.Document().Transition(t))
}

func (h *Harness) checkStyle(t render.Target, prop, want string) error {
	return mismatch(fmt.Sprintf("style %s.%s", t, prop), want, h.rec.Document().Style(t, prop))
}

func (h *Harness) checkClass(t render.Target, name string, want bool) error {
	got := h.rec.Document().HasClass(t, name)
	return mismatch(fmt.Sprintf("class %s.%s", t, name), strconv.FormatBool(want), strconv.FormatBool(got))
}

func (h *Harness) checkAnimatorState(t render.Target, want string) error {
	got := "none"
	if a, ok := h.watched[t]; ok {
		got = a.State().String()
	}
	return mismatch("animator_state "+string(t), want, got)
}

func (h *Harness) checkPlayerState(label, want string) error {
	got := "none"
	if p, ok := h.players[label]; ok {
		got = p.State().String()
	}
	return mismatch("player_state "+label, want, got)
}

func (h *Harness) checkDone(t render.Target, want int) error {
	return mismatch("done_count "+string(t), strconv.Itoa(want), strconv.Itoa(h.done[t]))
}

// checkTraceCount counts events of kind, restricted to t when t is set.
func (h *Harness) checkTraceCount(kind trace.Kind, t render.Target, want int) error {
	got := 0
	for _, e := range trace.Filter(h.rec.Events(), kind) {
		if t == "" || e.Target == string(t) {
			got++
		}
	}
	what := "trace_count " + string(kind)
	if t != "" {
		what += " " + string(t)
	}
	return mismatch(what, strconv.Itoa(want), strconv.Itoa(got))
}
