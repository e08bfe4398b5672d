// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Asynchronous, completion-based byte-stream transport contract. The
// WebSocket core never blocks: every operation returns at once and reports
// its outcome through a callback delivered on the owning Executor.

package api

// ReadCallback receives the bytes of one completed read, or the error that
// ended it. A zero-length read with a nil error is valid and carries no
// special meaning. p may be reused once the callback returns.
type ReadCallback func(p []byte, err error)

// WriteCallback receives the number of bytes written, or the write error.
type WriteCallback func(n int, err error)

// AcceptCallback receives a newly accepted transport, or the accept error.
type AcceptCallback func(t Transport, err error)

// ListenCallback receives the listening endpoint, or the listen error.
type ListenCallback func(l Listener, err error)

// Transport is one accepted duplex byte stream.
type Transport interface {
	// ID returns an opaque handle, unique per provider.
	ID() uint64

	// Read issues one read for up to max bytes.
	Read(max int, cb ReadCallback)

	// Write issues one write of p. Writes complete in issue order.
	Write(p []byte, cb WriteCallback)

	// Close disconnects and destroys the handle. It must be called exactly
	// once; completions still pending after Close are never delivered.
	Close() error

	// RemoteAddr describes the peer for logging.
	RemoteAddr() string
}

// Listener accepts transports on a bound address.
type Listener interface {
	// Accept waits for one pending connection.
	Accept(cb AcceptCallback)

	// Close stops accepting; a pending Accept completes with
	// ErrListenerClosed.
	Close() error

	// Addr returns the bound address in host:port form.
	Addr() string
}

// Provider creates listening endpoints.
type Provider interface {
	Listen(host string, port int, cb ListenCallback)
}
