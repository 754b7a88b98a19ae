package childtracker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/comalice/childtracker/clock"
	"github.com/comalice/childtracker/geometry"
	"github.com/comalice/childtracker/internal/debounce"
	"github.com/comalice/childtracker/internal/dwell"
)

// Tracker watches one element inside a child frame and reports when it has
// stayed visible for the dwell duration.
type Tracker struct {
	id     string
	host   Host
	events EventTarget
	cfg    Config

	clock     clock.Clock
	log       *zap.Logger
	publisher Publisher

	mu       sync.Mutex
	chart    *Machine
	dwell    *dwell.Timer
	burst    *debounce.Throttle[string]
	listener *burstListener
	recheck  clock.Timer
	stopped  bool
}

// burstListener feeds window events into the tracker's throttle. It is a
// pointer so EventTarget implementations can compare it on Unsubscribe.
type burstListener struct {
	burst *debounce.Throttle[string]
}

func (l *burstListener) HandleEvent(eventType string) {
	l.burst.Call(eventType)
}

// New starts tracking elementID. It registers the rectangle reply handler,
// subscribes to burst triggers when an EventTarget is configured, and sends
// the first rectangle request before returning.
//
// onDwellComplete runs on a timer goroutine once the element has stayed
// visible for cfg.DwellDuration. It may be nil.
func New(host Host, elementID string, onDwellComplete func(), cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		id:    elementID,
		host:  host,
		cfg:   cfg.withDefaults(),
		clock: clock.Real(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With(zap.String("element", elementID))

	var onRead func()
	if onDwellComplete != nil {
		onRead = func() {
			t.log.Info("element read", zap.Duration("dwell", t.cfg.DwellDuration))
			onDwellComplete()
		}
	}
	t.dwell = dwell.New(t.clock, t.cfg.DwellDuration, onRead)
	t.chart = newVisibilityChart(t.enterVisible, t.exitVisible)
	t.burst = debounce.New(t.clock, t.cfg.BurstWindow, func(trigger string) {
		t.log.Debug("burst settled", zap.String("event", trigger))
		t.RequestRect()
	})
	t.listener = &burstListener{burst: t.burst}

	if t.events != nil {
		for _, eventType := range BurstTriggers {
			t.events.Subscribe(eventType, t.listener)
		}
	} else {
		t.log.Debug("no event target, burst re-requests disabled")
	}

	host.OnMessage(RectReturnMessage(elementID), t.OnRectReply)
	t.RequestRect()
	return t
}

// ID returns the tracked element id.
func (t *Tracker) ID() string {
	return t.id
}

// RequestRect asks the child frame for the element's rectangle.
func (t *Tracker) RequestRect() {
	t.host.SendMessage(MessageRequestRect, t.id)
}

// OnRectReply classifies a serialized rectangle against the current frame
// geometry and updates visibility. Malformed payloads count as not visible.
// Replies received after StopTracking are ignored.
func (t *Tracker) OnRectReply(serialized string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		t.log.Debug("reply after stop ignored")
		return
	}

	rect := geometry.ParseRect(serialized)
	if !rect.Valid() {
		t.log.Debug("malformed rect", zap.String("payload", serialized))
	}

	evt := Event{ID: EventRectHidden, Payload: rect}
	if geometry.InViewport(rect, t.host.FrameBox(), t.host.Viewport()) {
		evt.ID = EventRectVisible
	}

	from := t.chart.Current()
	changed, err := t.chart.Send(context.Background(), evt)
	if err != nil {
		t.log.Error("visibility transition failed", zap.Stringer("event", evt.ID), zap.Error(err))
		return
	}
	if !changed {
		return
	}

	to := t.chart.Current()
	t.log.Debug("visibility changed", zap.Stringer("from", from), zap.Stringer("to", to))
	if t.publisher != nil {
		tr := StateChange{ElementID: t.id, From: from, To: to, At: t.clock.Now()}
		if err := t.publisher.Publish(context.Background(), tr); err != nil {
			t.log.Warn("publish transition", zap.Error(err))
		}
	}
}

// enterVisible arms the dwell timer, announces visibility, and schedules one
// extra request once a reveal animation would have finished.
func (t *Tracker) enterVisible(ctx context.Context, evt *Event, from StateID, to StateID) error {
	t.dwell.Start()
	t.host.SendMessage(MessageVisible, t.id)

	if t.recheck != nil {
		t.recheck.Stop()
	}
	t.recheck = t.clock.AfterFunc(t.cfg.RecheckDelay, t.RequestRect)
	return nil
}

func (t *Tracker) exitVisible(ctx context.Context, evt *Event, from StateID, to StateID) error {
	t.dwell.Stop()
	return nil
}

// IsVisible reports the current visibility.
func (t *Tracker) IsVisible() bool {
	return t.State() == StateVisible
}

// State returns the current visibility state.
func (t *Tracker) State() StateID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chart.Current()
}

// DOT renders the tracker's chart with the current state highlighted.
func (t *Tracker) DOT() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chart.DOT(t.id)
}

// StopTracking unsubscribes from window events and cancels the pending dwell,
// trailing and re-check timers. The reply handler stays registered with the
// channel but further replies are ignored. Calling it again does nothing.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true

	if t.events != nil {
		for _, eventType := range BurstTriggers {
			t.events.Unsubscribe(eventType, t.listener)
		}
	}
	t.burst.Cancel()
	t.dwell.Stop()
	if t.recheck != nil {
		t.recheck.Stop()
		t.recheck = nil
	}
	t.log.Debug("tracking stopped")
}
