package effect

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Timing is the already-parsed {duration, delay, easing} tuple of an effect.
// All values are milliseconds.
type Timing struct {
	Duration float64
	Delay    float64
	Easing   string
}

// Millis returns a Timing with the given duration, no delay and no easing.
func Millis(duration float64) Timing {
	return Timing{Duration: duration}
}

// Total returns duration + delay, the time at which the transition settles.
func (t Timing) Total() float64 {
	return t.Duration + t.Delay
}

// Validate checks the Timing contract: a finite, non-negative duration and
// a finite delay. A zero duration is a valid instantaneous transition.
func (t Timing) Validate() error {
	if math.IsNaN(t.Duration) || math.IsInf(t.Duration, 0) {
		return &Error{Code: ErrCodeInvalidTiming, Message: "duration must be finite", Field: "duration"}
	}
	if t.Duration < 0 {
		return &Error{
			Code:    ErrCodeInvalidTiming,
			Message: fmt.Sprintf("duration must be >= 0, got %s", FormatMillis(t.Duration)),
			Field:   "duration",
		}
	}
	if math.IsNaN(t.Delay) || math.IsInf(t.Delay, 0) {
		return &Error{Code: ErrCodeInvalidTiming, Message: "delay must be finite", Field: "delay"}
	}
	return nil
}

// String renders the timing the way ParseTiming reads it back.
func (t Timing) String() string {
	s := FormatMillis(t.Duration) + "ms " + FormatMillis(t.Delay) + "ms"
	if t.Easing != "" {
		s += " " + t.Easing
	}
	return s
}

// FormatMillis formats a millisecond value with the shortest exact decimal
// representation ("1000", "1.5", "-250"). Negative zero prints as "0".
func FormatMillis(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// timingExp matches "<duration>[ <delay>][ <easing>]" where duration and delay
// carry an "ms" or "s" unit and easing is an identifier optionally followed
// by a parenthesised argument list, e.g. "1s 250ms cubic-bezier(0,0,.2,1)".
var timingExp = regexp.MustCompile(`(?i)^(-?[.\d]+)(m?s)(?:\s+(-?[.\d]+)(m?s))?(?:\s+([-a-z]+(?:\(.+?\))?))?$`)

const oneSecond = 1000

// ParseTiming parses a timing expression such as "1s", "2000ms 500ms" or
// "1s 0.5s ease-out". The returned Timing is not validated; callers build an
// Effect with it, which enforces the contract.
func ParseTiming(expr string) (Timing, error) {
	m := timingExp.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return Timing{}, &Error{
			Code:    ErrCodeInvalidExpression,
			Message: fmt.Sprintf("cannot parse timing expression %q", expr),
			Field:   "expression",
		}
	}

	duration, err := parseTimeValue(m[1], m[2])
	if err != nil {
		return Timing{}, err
	}

	var t Timing
	t.Duration = duration
	if m[3] != "" {
		delay, err := parseTimeValue(m[3], m[4])
		if err != nil {
			return Timing{}, err
		}
		t.Delay = delay
	}
	t.Easing = m[5]
	return t, nil
}

// parseTimeValue converts a number and unit to milliseconds. Only seconds are
// scaled; everything else is already milliseconds.
func parseTimeValue(num, unit string) (float64, error) {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, &Error{
			Code:    ErrCodeInvalidExpression,
			Message: fmt.Sprintf("invalid time value %q", num),
			Field:   "expression",
		}
	}
	if strings.EqualFold(unit, "s") {
		return v * oneSecond, nil
	}
	return v, nil
}
