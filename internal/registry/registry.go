package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/stylefx/internal/animator"
	"github.com/roach88/stylefx/internal/effect"
	"github.com/roach88/stylefx/internal/engine"
	"github.com/roach88/stylefx/internal/player"
	"github.com/roach88/stylefx/internal/render"
)

// Registry maps targets to their animators.
type Registry struct {
	port   render.Port
	logger *slog.Logger
	ids    engine.IDGenerator

	animatorOpts []animator.Option

	slots []*animator.Animator
	free  []int
	index map[render.Target]int
}

// Option configures a Registry.
type Option func(*Registry)

// WithAnimatorOptions sets the options every new animator is built with.
func WithAnimatorOptions(opts ...animator.Option) Option {
	return func(r *Registry) {
		r.animatorOpts = append(r.animatorOpts, opts...)
	}
}

// WithIDGenerator sets the player ID generator (default UUIDv7Generator).
func WithIDGenerator(gen engine.IDGenerator) Option {
	return func(r *Registry) {
		r.ids = gen
	}
}

// WithLogger sets the registry's logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty registry whose animators render through port.
func New(port render.Port, opts ...Option) *Registry {
	r := &Registry{
		port:   port,
		logger: slog.Default(),
		ids:    engine.UUIDv7Generator{},
		index:  make(map[render.Target]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the target's animator, creating one when the target
// has none or its animator was destroyed.
func (r *Registry) GetOrCreate(t render.Target) *animator.Animator {
	if i, ok := r.index[t]; ok {
		if a := r.slots[i]; a.State() != animator.Destroyed {
			return a
		}
		r.slots[i] = r.newAnimator(t)
		r.logger.Debug("animator replaced", "target", t, "slot", i)
		return r.slots[i]
	}

	a := r.newAnimator(t)
	var i int
	if n := len(r.free); n > 0 {
		i = r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[i] = a
	} else {
		i = len(r.slots)
		r.slots = append(r.slots, a)
	}
	r.index[t] = i
	r.logger.Debug("animator created", "target", t, "slot", i)
	return a
}

func (r *Registry) newAnimator(t render.Target) *animator.Animator {
	opts := append([]animator.Option{animator.WithLogger(r.logger)}, r.animatorOpts...)
	return animator.New(t, r.port, opts...)
}

// Lookup returns the target's animator without creating one. A destroyed
// animator is reported as missing.
func (r *Registry) Lookup(t render.Target) (*animator.Animator, bool) {
	i, ok := r.index[t]
	if !ok || r.slots[i].State() == animator.Destroyed {
		return nil, false
	}
	return r.slots[i], true
}

// Unregister destroys the target's animator and frees its slot. It reports
// whether the target was registered.
func (r *Registry) Unregister(t render.Target) (bool, error) {
	i, ok := r.index[t]
	if !ok {
		return false, nil
	}
	err := r.slots[i].Destroy()

	r.slots[i] = nil
	r.free = append(r.free, i)
	delete(r.index, t)
	r.logger.Debug("animator unregistered", "target", t, "slot", i)

	if err != nil {
		return true, fmt.Errorf("unregister %s: %w", t, err)
	}
	return true, nil
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	return len(r.index)
}

// Targets returns the registered targets in sorted order.
func (r *Registry) Targets() []render.Target {
	targets := make([]render.Target, 0, len(r.index))
	for t := range r.index {
		targets = append(targets, t)
	}
	slices.Sort(targets)
	return targets
}

// DestroyAll unregisters every target. Errors from individual animators are
// joined.
func (r *Registry) DestroyAll() error {
	var errs []error
	for _, t := range r.Targets() {
		if _, err := r.Unregister(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Animate builds an effect from classes, styles and timing and returns a
// Pending player for it on the target's animator. Nothing is applied until
// the player is played.
func (r *Registry) Animate(t render.Target, classes map[string]bool, styles map[string]string, timing effect.Timing) (*player.Player, error) {
	e, err := effect.New(classes, styles, timing)
	if err != nil {
		return nil, fmt.Errorf("animate %s: %w", t, err)
	}
	return player.New(r.ids.Generate(), t, r.GetOrCreate(t), e), nil
}
