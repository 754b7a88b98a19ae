package bridge

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/comalice/childtracker"
	"github.com/comalice/childtracker/geometry"
)

// Envelope is the JSON frame exchanged with the page shim in both directions.
type Envelope struct {
	Event   string `json:"event"`
	Payload string `json:"payload"`
}

// Control messages sent by the shim.
const (
	EventWindow   = "window-event"
	EventGeometry = "geometry"
	EventTrack    = "track"
	EventUntrack  = "untrack"
)

// MessageRead is sent to the shim once an element completed its dwell.
const MessageRead = "fact-check-read"

// Session is one connected page. It is the Host and EventTarget for every
// tracker started on the connection.
type Session struct {
	remote string
	srv    *Server
	log    *zap.Logger

	out     chan Envelope
	closed  atomic.Bool
	dropped atomic.Int64

	mu        sync.Mutex
	handlers  map[string][]func(string)
	listeners map[string][]childtracker.Listener
	frame     geometry.Box
	viewport  geometry.Viewport
	trackers  map[string]*childtracker.Tracker
}

func newSession(srv *Server, remote string) *Session {
	return &Session{
		remote:    remote,
		srv:       srv,
		log:       srv.log.With(zap.String("remote", remote)),
		out:       make(chan Envelope, srv.cfg.QueueSize),
		handlers:  make(map[string][]func(string)),
		listeners: make(map[string][]childtracker.Listener),
		trackers:  make(map[string]*childtracker.Tracker),
	}
}

// SendMessage queues a message for the shim. Messages are dropped when the
// queue is full or the connection is gone.
func (s *Session) SendMessage(event, payload string) {
	if s.closed.Load() {
		return
	}
	select {
	case s.out <- Envelope{Event: event, Payload: payload}:
	default:
		s.dropped.Add(1)
		s.log.Warn("outbound queue full, message dropped", zap.String("event", event))
	}
}

func (s *Session) OnMessage(event string, handler func(payload string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], handler)
}

func (s *Session) FrameBox() geometry.Box {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func (s *Session) Viewport() geometry.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

func (s *Session) Subscribe(eventType string, l childtracker.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[eventType] = append(s.listeners[eventType], l)
}

func (s *Session) Unsubscribe(eventType string, l childtracker.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := s.listeners[eventType]
	for i, existing := range ls {
		if existing == l {
			s.listeners[eventType] = append(ls[:i], ls[i+1:]...)
			return
		}
	}
}

// Dropped returns how many outbound messages were discarded.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

// Tracked returns the ids of the elements currently tracked.
func (s *Session) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.trackers))
	for id := range s.trackers {
		ids = append(ids, id)
	}
	return ids
}

// track starts a tracker for id unless one is already running.
func (s *Session) track(id string) {
	if id == "" {
		s.log.Warn("track without element id")
		return
	}

	s.mu.Lock()
	_, exists := s.trackers[id]
	s.mu.Unlock()
	if exists {
		return
	}

	// Tracker construction calls back into OnMessage and SendMessage, so the
	// session lock must not be held here.
	t := childtracker.New(s, id, func() { s.SendMessage(MessageRead, id) }, s.srv.cfg.Tracker,
		childtracker.WithClock(s.srv.clock),
		childtracker.WithLogger(s.log),
		childtracker.WithEventTarget(s),
		childtracker.WithPublisher(s.srv.publisher),
	)

	s.mu.Lock()
	s.trackers[id] = t
	s.mu.Unlock()
	s.log.Info("tracking element", zap.String("element", id))
}

func (s *Session) untrack(id string) {
	s.mu.Lock()
	t, ok := s.trackers[id]
	delete(s.trackers, id)
	delete(s.handlers, childtracker.RectReturnMessage(id))
	s.mu.Unlock()

	if !ok {
		return
	}
	t.StopTracking()
	s.log.Info("untracked element", zap.String("element", id))
}

// stop tears down every tracker and rejects further outbound messages.
func (s *Session) stop() {
	s.closed.Store(true)

	s.mu.Lock()
	trackers := s.trackers
	s.trackers = make(map[string]*childtracker.Tracker)
	s.mu.Unlock()

	for _, t := range trackers {
		t.StopTracking()
	}
}

// dispatch routes one inbound envelope. Handlers run without the session
// lock so trackers may query geometry from inside them.
func (s *Session) dispatch(env Envelope) {
	switch env.Event {
	case EventTrack:
		s.track(env.Payload)
	case EventUntrack:
		s.untrack(env.Payload)
	case EventGeometry:
		frame, vp, err := parseGeometry(env.Payload)
		if err != nil {
			s.log.Warn("bad geometry", zap.String("payload", env.Payload), zap.Error(err))
			return
		}
		s.mu.Lock()
		s.frame, s.viewport = frame, vp
		s.mu.Unlock()
	case EventWindow:
		s.mu.Lock()
		ls := append([]childtracker.Listener(nil), s.listeners[env.Payload]...)
		s.mu.Unlock()
		for _, l := range ls {
			l.HandleEvent(env.Payload)
		}
	default:
		s.mu.Lock()
		hs := append([]func(string){}, s.handlers[env.Event]...)
		s.mu.Unlock()
		if len(hs) == 0 {
			s.log.Debug("unhandled message", zap.String("event", env.Event))
		}
		for _, h := range hs {
			h(env.Payload)
		}
	}
}

// parseGeometry reads "<frameTop> <frameHeight> <viewportWidth> <viewportHeight>".
func parseGeometry(payload string) (geometry.Box, geometry.Viewport, error) {
	fields := strings.Fields(payload)
	if len(fields) != 4 {
		return geometry.Box{}, geometry.Viewport{}, errors.Errorf("want 4 fields, got %d", len(fields))
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geometry.Box{}, geometry.Viewport{}, errors.Wrapf(err, "field %d", i)
		}
		v[i] = n
	}
	return geometry.Box{Top: v[0], Height: v[1]}, geometry.Viewport{Width: v[2], Height: v[3]}, nil
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if isClosed(err) || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "read")
		}
		if typ != websocket.MessageText {
			s.log.Debug("ignoring binary frame")
			continue
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.log.Warn("bad envelope", zap.Error(err))
			continue
		}
		s.dispatch(env)
	}
}

func (s *Session) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-s.out:
			data, err := json.Marshal(env)
			if err != nil {
				return errors.Wrap(err, "marshal")
			}
			wctx, cancel := context.WithTimeout(ctx, s.srv.writeTimeout)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if isClosed(err) || ctx.Err() != nil {
					return nil
				}
				return errors.Wrapf(err, "write %s", env.Event)
			}
		}
	}
}

func isClosed(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}

var (
	_ childtracker.Host        = (*Session)(nil)
	_ childtracker.EventTarget = (*Session)(nil)
)
