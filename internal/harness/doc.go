// Package harness runs scripted animation scenarios against a recording
// render port.
//
// A scenario is a YAML file listing operations (queue an effect, play a
// player, flush, yield a frame, advance the clock, signal a transition end,
// finish or destroy) with optional expectations after each step and
// assertions at the end. Every render-port call, step, player status change
// and batch completion is recorded as a trace event.
//
// # Determinism
//
// Each run uses a fresh render.Recorder whose sequence numbers come from a
// logical clock, so a scenario always yields the same trace:
//   - Sequence numbers, not wall time, order events
//   - Player IDs come from a sequence generator
//   - Timers fire only when a step advances the fake clock
//
// Traces are compared against golden files (one canonical JSON event per
// line) and hashed with trace.Hash for replay verification.
//
// # Validation
//
// ParseScenario rejects unknown fields and missing step inputs.
// ValidateSchema additionally checks the file against the embedded CUE
// #Scenario definition and reports every violation with its position.
package harness
