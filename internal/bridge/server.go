// Package bridge serves element visibility tracking to pages over a
// websocket. A small shim on the page relays child-frame messages, window
// events and frame geometry; the bridge runs the trackers.
package bridge

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/childtracker"
	"github.com/comalice/childtracker/clock"
	"github.com/comalice/childtracker/internal/config"
)

const defaultWriteTimeout = 5 * time.Second

// Server accepts websocket connections and starts one Session per page.
type Server struct {
	cfg          config.Config
	log          *zap.Logger
	clock        clock.Clock
	publisher    childtracker.Publisher
	writeTimeout time.Duration
	origins      []string

	mu       sync.Mutex
	sessions map[*Session]*websocket.Conn
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithClock(c clock.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithPublisher receives the transitions of every tracker on every session.
func WithPublisher(p childtracker.Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithOriginPatterns allows pages from other origins whose host matches one
// of patterns to connect. Without it only same-host pages are accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.origins = patterns }
}

func NewServer(cfg config.Config, opts ...Option) *Server {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = config.Default().QueueSize
	}
	s := &Server{
		cfg:          cfg,
		log:          zap.NewNop(),
		clock:        clock.Real(),
		writeTimeout: defaultWriteTimeout,
		sessions:     make(map[*Session]*websocket.Conn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP upgrades the request and runs the session until either side
// closes the connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.log.Error("websocket accept failed", zap.Error(err))
		return
	}

	sess := newSession(s, r.RemoteAddr)
	s.mu.Lock()
	s.sessions[sess] = conn
	s.mu.Unlock()
	sess.log.Info("page connected")

	defer func() {
		sess.stop()
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
		sess.log.Info("page disconnected", zap.Int64("dropped", sess.Dropped()))
	}()

	// The request context is detached from a hijacked connection, so the
	// session owns its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.writeLoop(ctx, conn)
	})

	// Configured elements are started before the read loop so that track
	// only ever runs on one goroutine.
	for _, id := range s.cfg.Elements {
		sess.track(id)
	}
	g.Go(func() error {
		defer cancel()
		return sess.readLoop(ctx, conn)
	})

	if err := g.Wait(); err != nil {
		sess.log.Warn("session ended", zap.Error(err))
	}
}

// Sessions returns the number of connected pages.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close disconnects every page. Connections are closed in parallel, so a
// page that never answers the close handshake delays Close by at most one
// handshake timeout.
func (s *Server) Close() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.sessions))
	for _, conn := range s.sessions {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			if err := conn.Close(websocket.StatusGoingAway, "server shutting down"); err != nil {
				s.log.Debug("close page", zap.Error(err))
			}
		}(conn)
	}
	wg.Wait()
}
