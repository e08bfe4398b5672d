// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for all core interfaces.

package fake

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/momentics/loopws/api"
)

type pendingRead struct {
	max int
	cb  api.ReadCallback
}

// Transport is a scripted api.Transport. Inbound chunks are supplied with
// Feed; writes are recorded. With a nil Executor completions run inline on
// the calling goroutine, otherwise they are submitted to it.
type Transport struct {
	mu       sync.Mutex
	id       uint64
	remote   string
	exec     api.Executor
	inbound  [][]byte
	parked   *pendingRead
	readErr  error
	written  [][]byte
	writeErr error
	closed   bool
	closes   int
	reads    int
}

// NewTransport creates a fake transport with the given handle.
func NewTransport(id uint64, exec api.Executor) *Transport {
	return &Transport{
		id:     id,
		exec:   exec,
		remote: fmt.Sprintf("fake-%d", id),
	}
}

// ID implements api.Transport.
func (t *Transport) ID() uint64 { return t.id }

// RemoteAddr implements api.Transport.
func (t *Transport) RemoteAddr() string { return t.remote }

// Feed makes p available to the next read. A parked read receives it at once.
func (t *Transport) Feed(p []byte) {
	chunk := append([]byte(nil), p...)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.inbound = append(t.inbound, chunk)
	r := t.parked
	t.parked = nil
	t.mu.Unlock()
	if r != nil {
		t.Read(r.max, r.cb)
	}
}

// FailReads makes the parked read and every later one fail with err once
// the fed chunks are consumed.
func (t *Transport) FailReads(err error) {
	t.mu.Lock()
	t.readErr = err
	r := t.parked
	t.parked = nil
	t.mu.Unlock()
	if r != nil {
		t.Read(r.max, r.cb)
	}
}

// FailWrites makes every later write fail with err.
func (t *Transport) FailWrites(err error) {
	t.mu.Lock()
	t.writeErr = err
	t.mu.Unlock()
}

// Read implements api.Transport. A chunk longer than max is split.
func (t *Transport) Read(max int, cb api.ReadCallback) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.reads++
	if len(t.inbound) == 0 {
		if err := t.readErr; err != nil {
			t.mu.Unlock()
			t.deliver(func() { cb(nil, err) })
			return
		}
		t.parked = &pendingRead{max: max, cb: cb}
		t.mu.Unlock()
		return
	}
	chunk := t.inbound[0]
	if max > 0 && len(chunk) > max {
		t.inbound[0] = chunk[max:]
		chunk = chunk[:max]
	} else {
		t.inbound = t.inbound[1:]
	}
	t.mu.Unlock()
	t.deliver(func() { cb(chunk, nil) })
}

// Write implements api.Transport.
func (t *Transport) Write(p []byte, cb api.WriteCallback) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	err := t.writeErr
	if err == nil {
		t.written = append(t.written, append([]byte(nil), p...))
	}
	t.mu.Unlock()
	if err != nil {
		t.deliver(func() { cb(0, err) })
		return
	}
	n := len(p)
	t.deliver(func() { cb(n, nil) })
}

// Close implements api.Transport. Parked completions are dropped.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closes++
	if t.closed {
		return api.ErrTransportClosed
	}
	t.closed = true
	t.parked = nil
	return nil
}

// Written returns a copy of every successful write, in order.
func (t *Transport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.written))
	copy(out, t.written)
	return out
}

// Output returns all written bytes concatenated.
func (t *Transport) Output() []byte {
	return bytes.Join(t.Written(), nil)
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// CloseCount returns how many times Close was called.
func (t *Transport) CloseCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

// Reads returns how many reads were issued.
func (t *Transport) Reads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}

// ReadPending reports whether a read is parked waiting for input.
func (t *Transport) ReadPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.parked != nil
}

func (t *Transport) deliver(fn func()) {
	deliver(t.exec, fn)
}
