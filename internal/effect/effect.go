package effect

import (
	"maps"
	"slices"
)

// Auto marks a style whose natural (computed) value should be animated
// towards instead of being set literally or cleared.
const Auto = "*"

// Effect is one requested bundle of class/style changes with its timing.
//
// An Effect is immutable once built. Style values of "" mean "clear the
// property"; Auto means "compute the natural value". Class values say whether
// the class should be present.
type Effect struct {
	classes    map[string]bool
	styles     map[string]string
	classNames []string
	styleProps []string
	timing     Timing
}

// New validates timing and builds an Effect. The maps are copied. Either map
// may be nil.
func New(classes map[string]bool, styles map[string]string, timing Timing) (*Effect, error) {
	if err := timing.Validate(); err != nil {
		return nil, err
	}

	e := &Effect{timing: timing}
	if classes != nil {
		e.classes = maps.Clone(classes)
		e.classNames = slices.Sorted(maps.Keys(classes))
	}
	if styles != nil {
		e.styles = maps.Clone(styles)
		e.styleProps = slices.Sorted(maps.Keys(styles))
	}
	return e, nil
}

// MustNew is like New but panics on an invalid timing. Intended for tests
// and package-level fixtures.
func MustNew(classes map[string]bool, styles map[string]string, timing Timing) *Effect {
	e, err := New(classes, styles, timing)
	if err != nil {
		panic(err)
	}
	return e
}

// Timing returns the effect's timing.
func (e *Effect) Timing() Timing { return e.timing }

// HasClasses reports whether the effect carries class changes.
func (e *Effect) HasClasses() bool { return e.classes != nil }

// HasStyles reports whether the effect carries style changes.
func (e *Effect) HasStyles() bool { return e.styles != nil }

// ClassNames returns the class names in a stable (sorted) order.
func (e *Effect) ClassNames() []string { return slices.Clone(e.classNames) }

// StyleProps returns the style properties in a stable (sorted) order.
func (e *Effect) StyleProps() []string { return slices.Clone(e.styleProps) }

// Class returns whether the named class should be present.
func (e *Effect) Class(name string) (on bool, ok bool) {
	on, ok = e.classes[name]
	return on, ok
}

// Style returns the requested value for prop.
func (e *Effect) Style(prop string) (value string, ok bool) {
	value, ok = e.styles[prop]
	return value, ok
}
