// Package registry owns the animators of a render surface.
//
// Each target gets at most one live animator. Animators live in an arena of
// slots indexed by target; a destroyed animator is replaced on the next
// GetOrCreate and Unregister frees the slot for reuse. Animate is the entry
// point for styling animations: it validates an effect, finds the target's
// animator and wraps both in a Player.
//
// A Registry shares the threading rules of its port: call it from the
// goroutine that drives the port.
package registry
