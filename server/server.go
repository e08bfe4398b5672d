// File: server/server.go
// Package server implements the WebSocket server: listener lifecycle,
// connection registry and graceful shutdown.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// All connection work runs on one event loop goroutine. Public methods may
// be called from any goroutine; they hand their work to the loop.

package server

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/momentics/loopws/api"
	"github.com/momentics/loopws/control"
	"github.com/momentics/loopws/internal/concurrency"
	"github.com/momentics/loopws/internal/session"
	"github.com/momentics/loopws/internal/transport"
	"github.com/momentics/loopws/protocol"
)

// Callbacks are the server-level hooks. Every callback runs on the event
// loop goroutine.
type Callbacks struct {
	// Startup runs once the listener is bound.
	Startup func(s *Server)
	// Shutdown runs once, after close frames went out to every connection.
	Shutdown func(s *Server)
	// Open runs for each connection that completed the handshake. Install
	// the message handler here.
	Open func(c *protocol.Conn)
	// Close runs for each opened connection once it is torn down.
	Close func(c *protocol.Conn, code int)
}

const (
	stateIdle int32 = iota
	stateRunning
	stateStopping
	stateStopped
)

// Server accepts WebSocket connections over an api.Provider.
type Server struct {
	cfg         *Config
	cb          Callbacks
	log         *log.Logger
	loop        *concurrency.EventLoop
	newProvider ProviderFactory
	provider    api.Provider
	metrics     *control.MetricsRegistry
	debug       *control.DebugProbes
	limiter     *rate.Limiter

	conns   *session.Store[*protocol.Conn] // open
	pending *session.Store[*protocol.Conn] // handshaking

	mu        sync.Mutex
	state     int32
	listener  api.Listener
	err       error
	startedAt time.Time
	done      chan struct{}

	// loop-owned
	stopping       bool
	listenerClosed bool
	shutdownOnce   sync.Once

	accepted atomic.Int64
	messages atomic.Int64
}

// New builds a Server. It does not bind until Startup.
func New(cfg *Config, cb Callbacks, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		cb:      cb,
		log:     cfg.Logger,
		conns:   session.NewStore[*protocol.Conn](16),
		pending: session.NewStore[*protocol.Conn](16),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = log.Default()
	}
	if s.metrics == nil {
		s.metrics = control.NewMetricsRegistry()
	}
	if s.debug == nil {
		s.debug = control.NewDebugProbes()
	}

	s.loop = concurrency.NewEventLoop(cfg.EventBatchSize, s.log)
	if s.newProvider != nil {
		s.provider = s.newProvider(s.loop)
	} else {
		s.provider = transport.NewProvider(s.loop, transport.Options{
			ReusePort:      cfg.ReusePort,
			NoDelay:        cfg.NoDelay,
			ReadBufferSize: cfg.ReadBufferSize,
			Logger:         s.log,
		})
	}

	limit := rate.Inf
	if cfg.AcceptErrorRate > 0 {
		limit = rate.Limit(cfg.AcceptErrorRate)
	}
	burst := cfg.AcceptErrorBurst
	if burst <= 0 {
		burst = 1
	}
	s.limiter = rate.NewLimiter(limit, burst)

	s.registerProbes()
	return s, nil
}

// Startup binds the listener and starts accepting. The startup callback
// runs once the listener is ready; a bind failure is logged and ends the
// server, see Err and Done.
func (s *Server) Startup() error {
	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return api.ErrServerAlreadyStarted
	}
	s.state = stateRunning
	s.mu.Unlock()

	go func() {
		s.loop.Run()
		close(s.done)
	}()
	return s.loop.Submit(func() {
		s.provider.Listen(s.cfg.Host, s.cfg.Port, s.onListen)
	})
}

func (s *Server) onListen(l api.Listener, err error) {
	if err != nil {
		s.log.Printf("listen error: %v", err)
		s.mu.Lock()
		s.err = err
		s.state = stateStopped
		s.mu.Unlock()
		s.loop.Stop()
		return
	}

	s.mu.Lock()
	s.listener = l
	s.startedAt = time.Now()
	s.mu.Unlock()
	s.metrics.Set("server.addr", l.Addr())

	if s.stopping {
		// Shutdown won the race against the bind
		s.closeListener()
		s.maybeFinish()
		return
	}
	s.log.Printf("listening on %s", l.Addr())
	if s.cb.Startup != nil {
		s.cb.Startup(s)
	}
	s.acceptNext()
}

// Shutdown closes every open connection with 1001, stops accepting and runs
// the shutdown callback. Done is closed once the last connection is gone.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return api.ErrServerNotStarted
	}
	s.state = stateStopping
	s.mu.Unlock()
	return s.loop.Submit(s.shutdown)
}

func (s *Server) shutdown() {
	s.stopping = true
	for _, c := range s.conns.Snapshot() {
		// a connection already closing reports ErrConnectionClosed
		_ = c.Close(protocol.CloseGoingAway)
	}
	for _, c := range s.pending.Snapshot() {
		c.Abort()
	}
	s.closeListener()
	s.shutdownOnce.Do(func() {
		if s.cb.Shutdown != nil {
			s.cb.Shutdown(s)
		}
	})
	s.maybeFinish()
}

func (s *Server) closeListener() {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil || s.listenerClosed {
		return
	}
	s.listenerClosed = true
	if err := l.Close(); err != nil {
		s.log.Printf("listener close error: %v", err)
	}
}

// maybeFinish stops the loop once shutdown has drained every connection.
func (s *Server) maybeFinish() {
	if !s.stopping || s.conns.Len() > 0 || s.pending.Len() > 0 {
		return
	}
	s.mu.Lock()
	if s.listener != nil && !s.listenerClosed {
		s.mu.Unlock()
		return
	}
	if s.listener == nil && s.err == nil {
		// still binding; onListen finishes the job
		s.mu.Unlock()
		return
	}
	s.state = stateStopped
	s.mu.Unlock()
	s.loop.Stop()
}

// Done is closed when the server has fully stopped.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the listen error that ended the server, if any.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Addr returns the bound address, or "" before the listener is ready.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr()
}

// Dispatch runs fn on the event loop. Conn methods called from other
// goroutines must go through here.
func (s *Server) Dispatch(fn func()) error {
	return s.loop.Submit(fn)
}

// Executor exposes the event loop to transport providers.
func (s *Server) Executor() api.Executor {
	return s.loop
}

// Stats returns server health counters.
func (s *Server) Stats() api.ServerStats {
	s.mu.Lock()
	started := s.startedAt
	s.mu.Unlock()
	return api.ServerStats{
		OpenConnections: s.conns.Len(),
		Accepted:        s.accepted.Load(),
		Messages:        s.messages.Load(),
		StartedAt:       started,
	}
}

// Metrics returns the server's metrics registry.
func (s *Server) Metrics() *control.MetricsRegistry {
	return s.metrics
}

// Debug returns the server's debug probes.
func (s *Server) Debug() api.Debug {
	return s.debug
}

// Connections returns the open connections. Use the result from the event
// loop only.
func (s *Server) Connections() []*protocol.Conn {
	return s.conns.Snapshot()
}

type connInfo struct {
	ID     uint64        `json:"id"`
	Remote string        `json:"remote"`
	State  string        `json:"state"`
	Stats  api.ConnStats `json:"stats"`
}

func (s *Server) registerProbes() {
	s.debug.RegisterProbe("server.stats", func() any { return s.Stats() })
	s.debug.RegisterProbe("server.addr", func() any { return s.Addr() })
	s.debug.RegisterProbe("server.metrics", func() any { return s.metrics.GetSnapshot() })
	s.debug.RegisterProbe("server.connections", func() any {
		conns := s.conns.Snapshot()
		out := make([]connInfo, 0, len(conns))
		for _, c := range conns {
			out = append(out, connInfo{
				ID:     c.ID(),
				Remote: c.RemoteAddr(),
				State:  c.State().String(),
				Stats:  c.Stats(),
			})
		}
		return out
	})
	if tp, ok := s.provider.(*transport.Provider); ok {
		s.debug.RegisterProbe("transport.buffers", func() any { return tp.BufferStats() })
	}
	control.RegisterPlatformProbes(s.debug)
}
