// Package debounce collapses bursts of calls into at most one invocation per
// cool-down window, with an optional trailing invocation once the burst
// settles.
package debounce

import (
	"sync"
	"time"

	"github.com/comalice/childtracker/clock"
)

type options struct {
	leading  bool
	trailing bool
}

// Option configures a Throttle.
type Option func(*options)

// WithLeading controls whether the first call of a burst fires immediately.
// Enabled by default.
func WithLeading(enabled bool) Option {
	return func(o *options) {
		o.leading = enabled
	}
}

// WithTrailing controls whether calls suppressed during a window produce one
// more invocation, with the latest argument, when the window ends. Enabled by
// default.
func WithTrailing(enabled bool) Option {
	return func(o *options) {
		o.trailing = enabled
	}
}

// Throttle wraps an action taking one argument. Safe for concurrent use; the
// action runs without the throttle's lock held and may call back into it.
type Throttle[T any] struct {
	mu       sync.Mutex
	clock    clock.Clock
	action   func(T)
	coolDown time.Duration
	opts     options

	lastFire time.Time
	fired    bool // lastFire is set
	pending  clock.Timer
	gen      uint64
	lastArg  T
}

// New returns a Throttle invoking action at most once per coolDown.
func New[T any](c clock.Clock, coolDown time.Duration, action func(T), opts ...Option) *Throttle[T] {
	o := options{leading: true, trailing: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &Throttle[T]{
		clock:    c,
		action:   action,
		coolDown: coolDown,
		opts:     o,
	}
}

// Call invokes the action now if the cool-down has elapsed, otherwise it
// records arg for the trailing invocation.
func (t *Throttle[T]) Call(arg T) {
	t.mu.Lock()

	now := t.clock.Now()
	if !t.fired && !t.opts.leading {
		t.lastFire, t.fired = now, true
	}
	remaining := t.coolDown - now.Sub(t.lastFire)
	t.lastArg = arg

	// remaining > coolDown means the clock moved backwards.
	if !t.fired || remaining <= 0 || remaining > t.coolDown {
		t.stopPending()
		t.lastFire, t.fired = now, true
		t.mu.Unlock()

		t.action(arg)
		return
	}

	if t.pending == nil && t.opts.trailing {
		t.gen++
		gen := t.gen
		t.pending = t.clock.AfterFunc(remaining, func() { t.fireTrailing(gen) })
	}
	t.mu.Unlock()
}

// Cancel drops a pending trailing invocation, if any.
func (t *Throttle[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopPending()
}

// Pending reports whether a trailing invocation is scheduled.
func (t *Throttle[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

func (t *Throttle[T]) fireTrailing(gen uint64) {
	t.mu.Lock()
	if t.pending == nil || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	if t.opts.leading {
		t.lastFire = t.clock.Now()
	} else {
		t.fired = false
	}
	arg := t.lastArg
	t.mu.Unlock()

	t.action(arg)
}

// stopPending cancels the trailing timer. Caller holds mu.
func (t *Throttle[T]) stopPending() {
	if t.pending == nil {
		return
	}
	t.pending.Stop()
	t.pending = nil
	t.gen++
}
