package player

import (
	"slices"

	"github.com/roach88/stylefx/internal/effect"
	"github.com/roach88/stylefx/internal/render"
)

// Animator is the part of an animator a Player drives.
// Implemented by *animator.Animator.
type Animator interface {
	AddEffect(e *effect.Effect) error
	RemoveQueued(e *effect.Effect) bool
	OnAllEffectsDone(fn func()) (unsubscribe func())
	ScheduleFlush()
	FinishEffect(e *effect.Effect)
	DestroyEffect(e *effect.Effect)
}

// Handle is the lifecycle contract shared by every kind of player. A
// replacement handed to Destroy only suppresses effect removal when it is a
// *Player, since only then does it take over the same styling.
type Handle interface {
	Play() (CancelFunc, error)
	Pause()
	Finish()
	Destroy(replacement Handle)
}

// CancelFunc withdraws a play whose effect has not been applied yet and
// reports whether it did. A withdrawn play leaves no trace on the target and
// the player returns to Pending without emitting.
type CancelFunc func() bool

type subscriber struct {
	id uint64
	fn func(State)
}

// Player is a per-effect handle over a shared Animator.
//
// Thread-safety: not safe for concurrent use; call it from the goroutine
// that drives the animator.
type Player struct {
	id       string
	target   render.Target
	animator Animator
	effect   *effect.Effect
	state    State

	subscribers []subscriber
	nextSub     uint64

	unsubscribeDone func()
}

var _ Handle = (*Player)(nil)

// New creates a Pending player for e on anim.
func New(id string, target render.Target, anim Animator, e *effect.Effect) *Player {
	return &Player{
		id:       id,
		target:   target,
		animator: anim,
		effect:   e,
	}
}

// ID returns the player's identifier.
func (p *Player) ID() string { return p.id }

// Target returns the target the player animates.
func (p *Player) Target() render.Target { return p.target }

// Effect returns the player's effect.
func (p *Player) Effect() *effect.Effect { return p.effect }

// State returns the current state.
func (p *Player) State() State { return p.state }

// Subscribe registers fn for every later state change. Past states are not
// replayed. The returned func unsubscribes.
func (p *Player) Subscribe(fn func(State)) (unsubscribe func()) {
	p.nextSub++
	id := p.nextSub
	p.subscribers = append(p.subscribers, subscriber{id: id, fn: fn})

	return func() {
		i := slices.IndexFunc(p.subscribers, func(s subscriber) bool { return s.id == id })
		if i >= 0 {
			p.subscribers = slices.Delete(p.subscribers, i, i+1)
		}
	}
}

func (p *Player) emit(s State) {
	p.state = s
	for _, sub := range slices.Clone(p.subscribers) {
		sub.fn(s)
	}
}

// Play starts the player. From Pending it queues the effect on the animator,
// waits for the batch to complete and schedules a flush. From Paused it only
// reports Running again. In any other state it does nothing.
func (p *Player) Play() (CancelFunc, error) {
	switch p.state {
	case Pending:
		if err := p.animator.AddEffect(p.effect); err != nil {
			return noCancel, err
		}
		p.unsubscribeDone = p.animator.OnAllEffectsDone(p.onFinish)
		p.animator.ScheduleFlush()
		p.emit(Running)
		return p.cancelPlay, nil

	case Paused:
		p.emit(Running)
	}
	return noCancel, nil
}

func (p *Player) cancelPlay() bool {
	if p.state != Running || !p.animator.RemoveQueued(p.effect) {
		return false
	}
	p.releaseDone()
	p.state = Pending
	return true
}

func noCancel() bool { return false }

// Pause reports Paused while Running.
func (p *Player) Pause() {
	if p.state == Running {
		p.emit(Paused)
	}
}

// Finish jumps the effect to its end state and reports Finished.
func (p *Player) Finish() {
	if p.state < Finished {
		p.animator.FinishEffect(p.effect)
		p.onFinish()
	}
}

// Destroy removes the effect from the target and reports Destroyed, after
// Finished if that was not reported yet. When replacement is another
// *Player the effect is left for the animator's normal cleanup, so the
// styling does not flash off before the replacement applies its own.
func (p *Player) Destroy(replacement Handle) {
	if p.state >= Destroyed {
		return
	}
	if r, ok := replacement.(*Player); !ok || r == nil {
		p.animator.DestroyEffect(p.effect)
	}
	p.onFinish()
	p.releaseDone()
	p.emit(Destroyed)
}

func (p *Player) onFinish() {
	if p.state < Finished {
		p.emit(Finished)
	}
}

func (p *Player) releaseDone() {
	if p.unsubscribeDone != nil {
		p.unsubscribeDone()
		p.unsubscribeDone = nil
	}
}
