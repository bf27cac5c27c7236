package animator

import "log/slog"

// DefaultFallbackBuffer is added to the batch's maximum time when arming the
// fallback timer, to tolerate late transition-end signals.
const DefaultFallbackBuffer = 500.0

// Option configures an Animator.
type Option func(*Animator)

// WithFallbackBuffer sets the fallback timer buffer in milliseconds.
func WithFallbackBuffer(ms float64) Option {
	return func(a *Animator) {
		if ms >= 0 {
			a.fallbackBuffer = ms
		}
	}
}

// WithStylingTracking makes the animator remember every class and style it
// applies and revert them when it is destroyed.
func WithStylingTracking() Option {
	return func(a *Animator) {
		a.track = true
	}
}

// WithLogger sets the animator's logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(a *Animator) {
		a.logger = logger
	}
}
