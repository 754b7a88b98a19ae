package childtracker

import (
	"go.uber.org/zap"

	"github.com/comalice/childtracker/clock"
)

// Option configures a Tracker via functional options pattern.
type Option func(*Tracker)

// WithEventTarget subscribes the tracker's rectangle requests to window
// events. Without one, only the initial and re-check requests are sent.
func WithEventTarget(target EventTarget) Option {
	return func(t *Tracker) {
		t.events = target
	}
}

// WithClock replaces the time source used for every deferred callback.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithLogger configures the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		t.log = l
	}
}

// WithPublisher reports every visibility transition to p.
func WithPublisher(p Publisher) Option {
	return func(t *Tracker) {
		t.publisher = p
	}
}
