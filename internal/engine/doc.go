// Package engine implements the single-writer event loop that hosts
// animators outside of tests.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Every animator mutation happens on one goroutine, the one running
// Loop.Run. Other goroutines (timers, transition-ended dispatchers, CLI
// drivers) never touch animator state directly; they Post a Task and the
// loop runs it in FIFO order.
//
// Frames:
// RequestFrame queues a Task for the next frame tick. Frame tasks requested
// while a frame is running go to the following tick, which is what lets the
// render surface observe intermediate styling between animator steps.
//
// Timers:
// AfterFunc schedules a Task on the loop after a delay in milliseconds.
// A cancelled timer whose Task is already queued is skipped when dequeued.
//
// Logical Clock:
// Clock hands out strictly increasing sequence numbers used to order trace
// events. Wall-clock time is never used for ordering.
package engine
