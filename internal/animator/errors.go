package animator

import (
	"errors"
	"fmt"

	"github.com/roach88/stylefx/internal/render"
)

// ErrorCode categorizes animator errors.
type ErrorCode string

const (
	// ErrCodeDestroyed is returned when work is submitted to an animator
	// that is being or has been destroyed.
	ErrCodeDestroyed ErrorCode = "ANIMATOR_DESTROYED"

	// ErrCodePortFailure wraps an error returned by the render port. The
	// animator is left in whatever state it reached; nothing is rolled back.
	ErrCodePortFailure ErrorCode = "PORT_FAILURE"
)

// Error is an animator error with its target and failing operation.
type Error struct {
	Code   ErrorCode
	Target render.Target
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s on %q: %v", e.Code, e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %s on %q", e.Code, e.Op, e.Target)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsDestroyed returns true if err is an ANIMATOR_DESTROYED error.
func IsDestroyed(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeDestroyed
	}
	return false
}

// IsPortFailure returns true if err wraps a render port failure.
func IsPortFailure(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodePortFailure
	}
	return false
}
