// Package dwell provides the cancellable one-shot delay that turns sustained
// visibility into a "read" notification.
package dwell

import (
	"sync"
	"time"

	"github.com/comalice/childtracker/clock"
)

// Timer fires a callback once after a fixed duration unless stopped first.
type Timer struct {
	mu       sync.Mutex
	clock    clock.Clock
	duration time.Duration
	callback func()

	alarm clock.Timer
	gen   uint64
}

// New returns a disarmed Timer.
func New(c clock.Clock, duration time.Duration, callback func()) *Timer {
	return &Timer{
		clock:    c,
		duration: duration,
		callback: callback,
	}
}

// Start arms the timer, replacing an alarm that is already armed. Without a
// callback or with a non-positive duration it does nothing.
func (t *Timer) Start() {
	if t.callback == nil || t.duration <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.disarm()
	t.gen++
	gen := t.gen
	t.alarm = t.clock.AfterFunc(t.duration, func() { t.fire(gen) })
}

// Stop cancels a pending alarm. It is a no-op when nothing is armed.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disarm()
}

// Pending reports whether an alarm is armed.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alarm != nil
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if t.alarm == nil || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.alarm = nil
	t.mu.Unlock()

	t.callback()
}

// disarm stops the current alarm. Caller holds mu.
func (t *Timer) disarm() {
	if t.alarm == nil {
		return
	}
	t.alarm.Stop()
	t.alarm = nil
	t.gen++
}
