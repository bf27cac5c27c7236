package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultFrameInterval is the frame tick used when none is configured
// (roughly 60 frames per second).
const DefaultFrameInterval = 16 * time.Millisecond

// ErrLoopClosed is returned when work is submitted to a stopped loop.
var ErrLoopClosed = errors.New("engine: loop closed")

// TimerID identifies a timer scheduled with AfterFunc.
type TimerID uint64

// Loop is the single-writer event loop.
//
// Thread-safety model:
//   - Post, Call, AfterFunc, CancelTimer, RequestFrame: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//
// Tasks that fail are logged and processing continues. A failed task has
// already left whatever partial state it reached; retrying it would apply
// styling twice.
type Loop struct {
	queue         *taskQueue
	frameInterval time.Duration
	now           func() time.Time
	start         time.Time
	logger        *slog.Logger
	onError       func(error)

	mu     sync.Mutex
	frames []Task
	timers map[TimerID]*time.Timer
	nextID TimerID
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithFrameInterval sets the frame tick interval.
func WithFrameInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.frameInterval = d
		}
	}
}

// WithTimeSource replaces time.Now for Loop.Now.
func WithTimeSource(now func() time.Time) LoopOption {
	return func(l *Loop) {
		l.now = now
	}
}

// WithErrorHandler receives every error returned by a task, after it is logged.
func WithErrorHandler(fn func(error)) LoopOption {
	return func(l *Loop) {
		l.onError = fn
	}
}

// WithLoopLogger sets the loop's logger (default slog.Default()).
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates a loop. It does nothing until Run is called.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		queue:         newTaskQueue(),
		frameInterval: DefaultFrameInterval,
		now:           time.Now,
		logger:        slog.Default(),
		timers:        make(map[TimerID]*time.Timer),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.start = l.now()
	return l
}

// Now returns milliseconds elapsed since the loop was created.
func (l *Loop) Now() float64 {
	return float64(l.now().Sub(l.start)) / float64(time.Millisecond)
}

// Post submits a task for the Run loop. Returns false if the loop is stopped.
func (l *Loop) Post(t Task) bool {
	return l.queue.Enqueue(t)
}

// Call posts fn and waits for it to run, returning its error.
// Must not be called from the loop goroutine.
func (l *Loop) Call(ctx context.Context, fn Task) error {
	done := make(chan error, 1)
	if !l.Post(func() error {
		done <- fn()
		return nil
	}) {
		return ErrLoopClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// RequestFrame queues t for the next frame tick.
func (l *Loop) RequestFrame(t Task) {
	l.mu.Lock()
	l.frames = append(l.frames, t)
	l.mu.Unlock()
}

// PendingFrames returns the number of tasks waiting for the next frame.
func (l *Loop) PendingFrames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}

// AfterFunc runs t on the loop after ms milliseconds.
func (l *Loop) AfterFunc(ms float64, t Task) TimerID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	d := time.Duration(ms * float64(time.Millisecond))
	l.timers[id] = time.AfterFunc(d, func() {
		l.Post(func() error {
			l.mu.Lock()
			_, live := l.timers[id]
			delete(l.timers, id)
			l.mu.Unlock()

			if !live {
				return nil
			}
			return t()
		})
	})
	return id
}

// CancelTimer stops a timer. Cancelling an unknown or fired timer is a no-op.
func (l *Loop) CancelTimer(id TimerID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tm, ok := l.timers[id]; ok {
		tm.Stop()
		delete(l.timers, id)
	}
}

// Run processes tasks and frame ticks until ctx is cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("loop starting", "frame_interval", l.frameInterval)

	ticker := time.NewTicker(l.frameInterval)
	defer ticker.Stop()

	for {
		if t, ok := l.queue.TryDequeue(); ok {
			l.exec(t)
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopping: context cancelled")
			l.shutdown()
			return ctx.Err()

		case _, open := <-l.queue.Wait():
			if !open && l.queue.Len() == 0 {
				l.logger.Debug("loop stopping: queue closed")
				l.shutdown()
				return nil
			}

		case <-ticker.C:
			l.runFrame()
		}
	}
}

// Stop closes the task queue. Run drains queued tasks and returns.
func (l *Loop) Stop() {
	l.queue.Close()
}

// runFrame runs the tasks queued before this tick. Tasks requested while the
// frame runs wait for the next tick.
func (l *Loop) runFrame() {
	l.mu.Lock()
	frame := l.frames
	l.frames = nil
	l.mu.Unlock()

	for _, t := range frame {
		l.exec(t)
	}
}

func (l *Loop) exec(t Task) {
	if err := t(); err != nil {
		l.logger.Error("loop task failed", "error", err)
		if l.onError != nil {
			l.onError(err)
		}
	}
}

func (l *Loop) shutdown() {
	l.queue.Close()

	l.mu.Lock()
	defer l.mu.Unlock()
	for id, tm := range l.timers {
		tm.Stop()
		delete(l.timers, id)
	}
}
