// Package effect defines the value types consumed by the animator: a Timing
// tuple and an immutable Effect describing one bundle of class and style
// changes.
//
// Effects are matched by identity. Two Effects built from the same maps are
// still distinct: the *Effect pointer is the key the animator uses when a
// Player later finishes or destroys its effect.
//
// Timing values are milliseconds. Duration must be non-negative; Delay may be
// negative (the animator uses a negative delay internally to seek a
// transition to its end).
package effect
