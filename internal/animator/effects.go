package animator

import (
	"github.com/roach88/stylefx/internal/effect"
)

// Transition values that interrupt running arcs.
const (
	// CancelAll interrupts every running transition.
	CancelAll = "0s none"

	// CancelNext makes the next styling change apply immediately, provided
	// the surface renders before the transition value changes again.
	CancelNext = "0s all"
)

// queuedEffect is an Effect as the animator applies it: cleared and Auto
// styles are normalized, and properties that need their natural value
// measured are listed in precompute.
type queuedEffect struct {
	id         *effect.Effect
	timing     effect.Timing
	classNames []string
	classes    map[string]bool
	styleProps []string
	styles     map[string]string
	precompute []string

	// settle is when the effect's arc ends, relative to the batch start
	// at the time it was queued.
	settle float64
}

// normalize prepares e for application. A cleared or Auto style whose value
// must be measured becomes Auto and is listed for precompute; any other
// cleared style stays "".
func normalize(e *effect.Effect) *queuedEffect {
	qe := &queuedEffect{
		id:         e,
		timing:     e.Timing(),
		classNames: e.ClassNames(),
		styleProps: e.StyleProps(),
	}

	if e.HasClasses() {
		qe.classes = make(map[string]bool, len(qe.classNames))
		for _, name := range qe.classNames {
			qe.classes[name], _ = e.Class(name)
		}
	}

	if e.HasStyles() {
		qe.styles = make(map[string]string, len(qe.styleProps))
		for _, prop := range qe.styleProps {
			value, _ := e.Style(prop)
			if value == "" || value == effect.Auto {
				if needsPrecompute(prop, value) {
					qe.precompute = append(qe.precompute, prop)
					value = effect.Auto
				} else {
					value = ""
				}
			}
			qe.styles[prop] = value
		}
	}
	return qe
}

// needsPrecompute reports whether a cleared or Auto style must be measured.
// Dimensions cannot transition to "" so clearing them animates towards the
// measured natural size instead.
func needsPrecompute(prop, value string) bool {
	if value == effect.Auto {
		return true
	}
	switch prop {
	case "width", "height":
		return true
	}
	return false
}

// buildToken renders one transition token: "{d}ms {props} {delay}ms[ easing]".
func buildToken(t effect.Timing, props string) string {
	s := effect.FormatMillis(t.Duration) + "ms " + props + " " + effect.FormatMillis(t.Delay) + "ms"
	if t.Easing != "" {
		s += " " + t.Easing
	}
	return s
}

// joinTransition appends token to a comma-separated transition value.
func joinTransition(current, token string) string {
	if current == "" {
		return token
	}
	return current + ", " + token
}

func indexOf(effects []*queuedEffect, e *effect.Effect) int {
	for i, qe := range effects {
		if qe.id == e {
			return i
		}
	}
	return -1
}
