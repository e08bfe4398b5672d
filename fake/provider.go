// Package fake
// Author: momentics <momentics@gmail.com>
//
// Scripted listener and provider.

package fake

import (
	"fmt"
	"sync"

	"github.com/momentics/loopws/api"
)

// Provider is a scripted api.Provider.
type Provider struct {
	mu        sync.Mutex
	exec      api.Executor
	listenErr error
	listeners []*Listener
}

// NewProvider creates a provider whose completions go through exec, or run
// inline when exec is nil.
func NewProvider(exec api.Executor) *Provider {
	return &Provider{exec: exec}
}

// FailListen makes later Listen calls fail with err.
func (p *Provider) FailListen(err error) {
	p.mu.Lock()
	p.listenErr = err
	p.mu.Unlock()
}

// Listen implements api.Provider.
func (p *Provider) Listen(host string, port int, cb api.ListenCallback) {
	p.mu.Lock()
	err := p.listenErr
	var l *Listener
	if err == nil {
		l = &Listener{addr: fmt.Sprintf("%s:%d", host, port), exec: p.exec}
		p.listeners = append(p.listeners, l)
	}
	p.mu.Unlock()
	deliver(p.exec, func() {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(l, nil)
	})
}

// Listener returns the most recently created listener, or nil.
func (p *Provider) Listener() *Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.listeners) == 0 {
		return nil
	}
	return p.listeners[len(p.listeners)-1]
}

type acceptResult struct {
	t   api.Transport
	err error
}

// Listener is a scripted api.Listener fed with Connect.
type Listener struct {
	mu      sync.Mutex
	addr    string
	exec    api.Executor
	backlog []acceptResult
	parked  api.AcceptCallback
	closed  bool
	accepts int
}

// Connect queues t for the next Accept.
func (l *Listener) Connect(t api.Transport) {
	l.push(acceptResult{t: t})
}

// FailAccept makes the next Accept complete with err.
func (l *Listener) FailAccept(err error) {
	l.push(acceptResult{err: err})
}

func (l *Listener) push(r acceptResult) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	cb := l.parked
	l.parked = nil
	if cb == nil {
		l.backlog = append(l.backlog, r)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	deliver(l.exec, func() { cb(r.t, r.err) })
}

// Accept implements api.Listener.
func (l *Listener) Accept(cb api.AcceptCallback) {
	l.mu.Lock()
	l.accepts++
	if l.closed {
		l.mu.Unlock()
		deliver(l.exec, func() { cb(nil, api.ErrListenerClosed) })
		return
	}
	if len(l.backlog) == 0 {
		l.parked = cb
		l.mu.Unlock()
		return
	}
	r := l.backlog[0]
	l.backlog = l.backlog[1:]
	l.mu.Unlock()
	deliver(l.exec, func() { cb(r.t, r.err) })
}

// Close implements api.Listener. A parked Accept fails with
// api.ErrListenerClosed.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return api.ErrListenerClosed
	}
	l.closed = true
	cb := l.parked
	l.parked = nil
	l.mu.Unlock()
	if cb != nil {
		deliver(l.exec, func() { cb(nil, api.ErrListenerClosed) })
	}
	return nil
}

// Addr implements api.Listener.
func (l *Listener) Addr() string { return l.addr }

// Closed reports whether Close was called.
func (l *Listener) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Accepts returns how many Accept calls were made.
func (l *Listener) Accepts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accepts
}

func deliver(exec api.Executor, fn func()) {
	if exec == nil {
		fn()
		return
	}
	_ = exec.Submit(fn)
}
