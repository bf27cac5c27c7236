// Package render is the boundary between the animation core and whatever
// actually draws the target.
//
// The core never mutates styling directly; it calls through Port. Two
// implementations live here:
//
//   - Recorder: a deterministic, manually driven double. Yields, timers and
//     transition-end signals fire only when the caller says so, and every
//     call is traced.
//   - Surface: a live adapter over engine.Loop. Yields become frame ticks,
//     timers are real, and transition-end signals are synthesized from the
//     transition value in effect when styling changes.
//
// Both keep target state in a Document.
package render
