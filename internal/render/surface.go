package render

import (
	"log/slog"
	"strings"

	"github.com/roach88/stylefx/internal/effect"
	"github.com/roach88/stylefx/internal/engine"
)

// Surface is a Port backed by a running engine.Loop.
//
// Yields wait for the next frame tick, timers are wall-clock timers posted
// back onto the loop, and the clock is the loop's clock. A computed style is
// the inline value when one is set, otherwise the natural value configured
// with SetNatural.
//
// When a style or class changes while a transition value is in effect, the
// surface schedules a transition-end signal for the longest transition arc,
// the way a rendering engine would after the property settles.
//
// All methods except SetNatural must run on the loop goroutine.
type Surface struct {
	loop   *engine.Loop
	doc    *Document
	logger *slog.Logger

	natural   map[Target]map[string]string
	listeners map[Target][]endListener
	nextID    uint64
	autoEnd   bool
}

var _ Port = (*Surface)(nil)

// SurfaceOption configures a Surface.
type SurfaceOption func(*Surface)

// WithSurfaceLogger sets the logger (default slog.Default()).
func WithSurfaceLogger(logger *slog.Logger) SurfaceOption {
	return func(s *Surface) {
		s.logger = logger
	}
}

// WithoutTransitionEvents disables synthesized transition-end signals, so
// only fallback timers complete animations.
func WithoutTransitionEvents() SurfaceOption {
	return func(s *Surface) {
		s.autoEnd = false
	}
}

// NewSurface creates a surface driven by loop.
func NewSurface(loop *engine.Loop, opts ...SurfaceOption) *Surface {
	s := &Surface{
		loop:      loop,
		doc:       NewDocument(),
		logger:    slog.Default(),
		natural:   make(map[Target]map[string]string),
		listeners: make(map[Target][]endListener),
		autoEnd:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document returns the surface's document. Read it on the loop goroutine.
func (s *Surface) Document() *Document {
	return s.doc
}

// SetNatural sets the value a property resolves to when no inline value is
// present. Call before the loop starts.
func (s *Surface) SetNatural(t Target, prop, value string) {
	props, ok := s.natural[t]
	if !ok {
		props = make(map[string]string)
		s.natural[t] = props
	}
	props[prop] = value
}

// SetTransition implements Port.
func (s *Surface) SetTransition(t Target, value string) error {
	s.doc.setTransition(t, value)
	s.logger.Debug("set transition", "target", t, "value", value)
	return nil
}

// ApplyStyle implements Port.
func (s *Surface) ApplyStyle(t Target, prop, value string) error {
	s.doc.applyStyle(t, prop, value)
	s.logger.Debug("apply style", "target", t, "prop", prop, "value", value)
	s.settle(t)
	return nil
}

// ToggleClass implements Port.
func (s *Surface) ToggleClass(t Target, name string, on bool) error {
	s.doc.toggleClass(t, name, on)
	s.logger.Debug("toggle class", "target", t, "class", name, "on", on)
	s.settle(t)
	return nil
}

// InlineStyle implements Port.
func (s *Surface) InlineStyle(t Target, prop string) (string, error) {
	return s.doc.Style(t, prop), nil
}

// ComputedStyle implements Port.
func (s *Surface) ComputedStyle(t Target, prop string) (string, error) {
	if v := s.doc.Style(t, prop); v != "" {
		return v, nil
	}
	return s.natural[t][prop], nil
}

// Reflow implements Port. Layout is implicit in the document model.
func (s *Surface) Reflow(Target) error {
	return nil
}

// RequestYield implements Port.
func (s *Surface) RequestYield(_ Target, fn func() error) {
	s.loop.RequestFrame(fn)
}

// SetTimer implements Port.
func (s *Surface) SetTimer(fn func() error, ms float64) TimerID {
	return s.loop.AfterFunc(ms, fn)
}

// ClearTimer implements Port.
func (s *Surface) ClearTimer(id TimerID) {
	s.loop.CancelTimer(id)
}

// Now implements Port.
func (s *Surface) Now() float64 {
	return s.loop.Now()
}

// OnTransitionEnd implements Port.
func (s *Surface) OnTransitionEnd(t Target, fn func(at float64) error) func() {
	s.nextID++
	id := s.nextID
	s.listeners[t] = append(s.listeners[t], endListener{id: id, fn: fn})

	return func() {
		ls := s.listeners[t]
		for i, l := range ls {
			if l.id == id {
				s.listeners[t] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// EndTransition dispatches a transition-end signal for t at the current
// clock. Must run on the loop goroutine.
func (s *Surface) EndTransition(t Target) error {
	at := s.loop.Now()
	ls := append([]endListener(nil), s.listeners[t]...)
	for _, l := range ls {
		if err := l.fn(at); err != nil {
			return err
		}
	}
	return nil
}

// settle schedules a transition-end signal for the longest arc of the
// target's current transition value.
func (s *Surface) settle(t Target) {
	if !s.autoEnd {
		return
	}
	longest, ok := LongestArc(s.doc.Transition(t))
	if !ok {
		return
	}
	s.loop.AfterFunc(longest, func() error {
		return s.EndTransition(t)
	})
}

// LongestArc returns the largest duration+delay across the comma-separated
// tokens of a transition value ("1000ms all 0ms, 500ms width 200ms ease").
// Cancelling values ("0s none", "0s all") and empty values report false.
func LongestArc(value string) (float64, bool) {
	longest := 0.0
	found := false
	for _, token := range strings.Split(value, ",") {
		fields := strings.Fields(token)
		if len(fields) < 3 || fields[1] == "none" {
			continue
		}
		timing, err := effect.ParseTiming(fields[0] + " " + fields[2])
		if err != nil {
			continue
		}
		if total := timing.Total(); total > 0 && (!found || total > longest) {
			longest = total
			found = true
		}
	}
	return longest, found
}
