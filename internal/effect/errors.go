package effect

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes effect construction errors.
type ErrorCode string

const (
	// ErrCodeInvalidTiming indicates a Timing violates its contract
	// (negative or non-finite duration, non-finite delay).
	ErrCodeInvalidTiming ErrorCode = "INVALID_TIMING"

	// ErrCodeInvalidExpression indicates a timing expression could not be parsed.
	ErrCodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"
)

// Error is returned when an Effect or Timing cannot be constructed.
type Error struct {
	Code    ErrorCode
	Message string

	// Field names the offending input ("duration", "delay", "expression").
	Field string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidTiming reports whether err is an invalid timing contract violation.
func IsInvalidTiming(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeInvalidTiming
	}
	return false
}

// IsInvalidExpression reports whether err came from an unparseable timing expression.
func IsInvalidExpression(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeInvalidExpression
	}
	return false
}
