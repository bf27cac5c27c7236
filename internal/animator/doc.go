// Package animator drives styling effects on one target through native
// transitions.
//
// An Animator owns a single render target. Effects are queued with
// AddEffect and applied by FlushEffects one at a time, with a yield between
// each so the surface renders every intermediate state and starts a separate
// transition arc per effect. The transition value grows into a comma-joined
// list of tokens ("1000ms all 0ms, 2000ms all 500ms ease-in"), one per
// distinct timing.
//
// Completion is detected two ways that race: a transition-end signal whose
// elapsed time reaches the batch's maximum, or a fallback timer armed for
// that maximum plus a buffer. Whichever arrives first finalizes the batch;
// the other finds the animator Idle and does nothing.
//
// Thread-safety: an Animator is not safe for concurrent use. Every method,
// and every callback it hands to its render.Port, must run on the goroutine
// that drives the port (the engine loop, or a test).
package animator
