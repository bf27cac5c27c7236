package render

import "github.com/roach88/stylefx/internal/engine"

// Target identifies one styled element. It is the stable handle the
// registry keys animators by.
type Target string

// TimerID identifies a fallback timer.
type TimerID = engine.TimerID

// Port is the render surface as seen by an Animator.
//
// All methods are called from a single goroutine (the one driving the
// animator). Callbacks handed to RequestYield, SetTimer and OnTransitionEnd
// are invoked on that same goroutine.
type Port interface {
	// SetTransition sets the target's transition value. "" clears it.
	SetTransition(t Target, value string) error

	// ApplyStyle sets an inline style property. "" removes it.
	ApplyStyle(t Target, prop, value string) error

	// ToggleClass adds (on) or removes a class.
	ToggleClass(t Target, name string, on bool) error

	// InlineStyle reads the inline value of a property ("" when unset).
	InlineStyle(t Target, prop string) (string, error)

	// ComputedStyle reads the resolved value of a property. Reading forces
	// the surface to lay out, so it counts as a reflow.
	ComputedStyle(t Target, prop string) (string, error)

	// Reflow forces a synchronous layout pass.
	Reflow(t Target) error

	// RequestYield runs fn after the surface has had a chance to render the
	// current state.
	RequestYield(t Target, fn func() error)

	// SetTimer runs fn after ms milliseconds.
	SetTimer(fn func() error, ms float64) TimerID

	// ClearTimer cancels a timer. Unknown or fired timers are ignored.
	ClearTimer(id TimerID)

	// Now returns the surface clock in milliseconds.
	Now() float64

	// OnTransitionEnd subscribes to transition-end signals for exactly this
	// target. at is the surface clock time of the signal. The returned func
	// unsubscribes.
	OnTransitionEnd(t Target, fn func(at float64) error) (cancel func())
}
