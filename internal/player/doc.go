// Package player wraps one styling effect in a lifecycle handle.
//
// A Player registers its effect with the target's animator when played and
// reports Running, Paused, Finished and Destroyed through a broadcast status
// stream. Pausing only changes the reported state; transitions already
// running on the target keep running.
package player
