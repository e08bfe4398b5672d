// File: internal/transport/tcp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCP implementation of api.Provider, api.Listener and api.Transport.

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/loopws/api"
	"github.com/momentics/loopws/pool"
)

// Options tune the sockets created by a Provider.
type Options struct {
	// ReusePort sets SO_REUSEPORT on listening sockets where supported.
	ReusePort bool
	// NoDelay disables Nagle's algorithm on accepted connections.
	NoDelay bool
	// ReadBufferSize is the pooled read buffer class; larger reads allocate.
	ReadBufferSize int
	Logger         *log.Logger
}

// Provider creates TCP listeners whose completions run on exec.
type Provider struct {
	exec   api.Executor
	opts   Options
	log    *log.Logger
	bufs   *pool.BytePool
	nextID atomic.Uint64
}

// NewProvider returns a TCP provider posting completions to exec.
func NewProvider(exec api.Executor, opts Options) *Provider {
	lg := opts.Logger
	if lg == nil {
		lg = log.Default()
	}
	size := opts.ReadBufferSize
	if size <= 0 {
		size = 8192
	}
	return &Provider{exec: exec, opts: opts, log: lg, bufs: pool.NewBytePool(size, 0)}
}

// BufferStats reports read buffer reuse.
func (p *Provider) BufferStats() pool.Stats {
	return p.bufs.Stats()
}

// Listen implements api.Provider.
func (p *Provider) Listen(host string, port int, cb api.ListenCallback) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	go func() {
		lc := net.ListenConfig{Control: listenControl(p.opts.ReusePort)}
		ln, err := lc.Listen(context.Background(), "tcp", addr)
		if err != nil {
			err = fmt.Errorf("listen on %s: %w", addr, err)
			p.post(func() { cb(nil, err) })
			return
		}
		l := &listener{p: p, ln: ln}
		p.post(func() { cb(l, nil) })
	}()
}

// post hands fn to the executor. A stopped executor drops it.
func (p *Provider) post(fn func()) {
	if err := p.exec.Submit(fn); err != nil {
		p.log.Printf("transport completion dropped: %v", err)
	}
}

type listener struct {
	p      *Provider
	ln     net.Listener
	closed atomic.Bool
}

// Accept implements api.Listener.
func (l *listener) Accept(cb api.AcceptCallback) {
	go func() {
		nc, err := l.ln.Accept()
		if err != nil {
			if l.closed.Load() || errors.Is(err, net.ErrClosed) {
				err = api.ErrListenerClosed
			} else {
				err = fmt.Errorf("accept connection: %w", err)
			}
			l.p.post(func() { cb(nil, err) })
			return
		}
		if l.p.opts.NoDelay {
			if err := setNoDelay(nc); err != nil {
				l.p.log.Printf("TCP_NODELAY on %s: %v", nc.RemoteAddr(), err)
			}
		}
		c := newConn(l.p, l.p.nextID.Add(1), nc)
		l.p.post(func() { cb(c, nil) })
	}()
}

// Close implements api.Listener. After Close, a pending Accept completes
// with api.ErrListenerClosed.
func (l *listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return api.ErrListenerClosed
	}
	return l.ln.Close()
}

// Addr implements api.Listener.
func (l *listener) Addr() string {
	return l.ln.Addr().String()
}

type outbound struct {
	p  []byte
	cb api.WriteCallback
}

// conn is an api.Transport over net.Conn. Reads run one goroutine per call;
// writes are drained in order by a single goroutine at a time.
type conn struct {
	p      *Provider
	id     uint64
	nc     net.Conn
	remote string
	closed atomic.Bool

	mu      sync.Mutex
	wq      *queue.Queue // of outbound
	writing bool
}

func newConn(p *Provider, id uint64, nc net.Conn) *conn {
	return &conn{
		p:      p,
		id:     id,
		nc:     nc,
		remote: nc.RemoteAddr().String(),
		wq:     queue.New(),
	}
}

// ID implements api.Transport.
func (c *conn) ID() uint64 { return c.id }

// RemoteAddr implements api.Transport.
func (c *conn) RemoteAddr() string { return c.remote }

// Read implements api.Transport.
func (c *conn) Read(max int, cb api.ReadCallback) {
	if c.closed.Load() {
		return
	}
	if max <= 0 {
		max = 4096
	}
	go func() {
		buf := c.p.bufs.Get(max)
		n, err := c.nc.Read(buf)
		if n > 0 {
			// data first; a trailing error resurfaces on the next read
			c.complete(func() {
				cb(buf[:n], nil)
				c.p.bufs.Put(buf)
			})
			return
		}
		c.p.bufs.Put(buf)
		if err != nil {
			err = c.mapErr("read from connection", err)
		}
		c.complete(func() { cb(nil, err) })
	}()
}

// Write implements api.Transport.
func (c *conn) Write(p []byte, cb api.WriteCallback) {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return
	}
	c.wq.Add(outbound{p: p, cb: cb})
	if c.writing {
		c.mu.Unlock()
		return
	}
	c.writing = true
	c.mu.Unlock()
	go c.writeLoop()
}

func (c *conn) writeLoop() {
	for {
		c.mu.Lock()
		if c.wq.Length() == 0 || c.closed.Load() {
			c.writing = false
			c.mu.Unlock()
			return
		}
		w := c.wq.Remove().(outbound)
		c.mu.Unlock()

		n, err := c.nc.Write(w.p)
		if err != nil {
			err = c.mapErr("write to connection", err)
		}
		c.complete(func() { w.cb(n, err) })
	}
}

// Close implements api.Transport. Completions still in flight are dropped.
func (c *conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return api.ErrTransportClosed
	}
	c.mu.Lock()
	for c.wq.Length() > 0 {
		c.wq.Remove()
	}
	c.mu.Unlock()
	return c.nc.Close()
}

func (c *conn) complete(fn func()) {
	c.p.post(func() {
		if c.closed.Load() {
			return
		}
		fn()
	})
}

func (c *conn) mapErr(op string, err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return io.EOF
	case errors.Is(err, net.ErrClosed):
		return api.ErrTransportClosed
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
