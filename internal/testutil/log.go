package testutil

import (
	"io"
	"log/slog"
	"slices"
	"sync"
)

// Log collects values in arrival order, typically from a subscription
// callback.
//
// Thread-safety: safe for concurrent use via internal mutex.
type Log[T any] struct {
	mu     sync.Mutex
	values []T
}

// Record appends v. Its signature fits func(T) callbacks directly.
func (l *Log[T]) Record(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values = append(l.values, v)
}

// Values returns a copy of everything recorded.
func (l *Log[T]) Values() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.values)
}

// Len returns the number of recorded values.
func (l *Log[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.values)
}

// Reset discards everything recorded.
func (l *Log[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values = nil
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
