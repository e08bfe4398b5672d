// File: protocol/connection.go
// Package protocol implements the core WebSocket connection handling.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn drives one client connection through Handshaking, Open, Closing and
// Closed. It is not safe for concurrent use: every method except State,
// Stats and ID must run on the goroutine that delivers transport
// completions.

package protocol

import (
	"encoding/binary"
	"io"
	"log"
	"sync/atomic"

	"github.com/momentics/loopws/api"
)

// MessageHandler receives every complete inbound message.
type MessageHandler func(c *Conn, mt MessageType, p []byte)

// ConnConfig carries per-connection settings and lifecycle callbacks.
type ConnConfig struct {
	ReadBufferSize   int
	MaxMessageSize   int
	MaxHandshakeSize int
	Logger           *log.Logger

	// OnOpen runs once the 101 response has been written.
	OnOpen func(c *Conn)
	// OnClose runs once after an open connection was torn down.
	OnClose func(c *Conn, code int)
	// OnReject runs when a connection is released without ever opening.
	OnReject func(c *Conn, err error)
	// OnProtocolError observes violations that close the connection.
	OnProtocolError func(c *Conn, err error)
	// OnMessage observes every complete message before the handler runs.
	OnMessage func(c *Conn, mt MessageType, n int)
}

const defaultReadBufferSize = 8192

// Conn is a server-side WebSocket connection over an api.Transport.
type Conn struct {
	t   api.Transport
	cfg ConnConfig
	log *log.Logger

	state    atomic.Int32
	reading  bool
	rejected error

	in      Accumulator
	msg     reassembly
	w       *frameWriter
	handler MessageHandler
	request *HandshakeRequest

	framesIn  atomic.Int64
	framesOut atomic.Int64
	bytesIn   atomic.Int64
	bytesOut  atomic.Int64
}

// NewConn wraps an accepted transport. Call Start to begin the handshake.
func NewConn(t api.Transport, cfg ConnConfig) *Conn {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = defaultReadBufferSize
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.MaxHandshakeSize <= 0 {
		cfg.MaxHandshakeSize = MaxHandshakeSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	c := &Conn{t: t, cfg: cfg, log: cfg.Logger}
	c.state.Store(int32(api.StateHandshaking))
	c.w = newFrameWriter(t, c.onSent, c.onWriteError)
	return c
}

// ID returns the transport handle.
func (c *Conn) ID() uint64 { return c.t.ID() }

// RemoteAddr describes the peer.
func (c *Conn) RemoteAddr() string { return c.t.RemoteAddr() }

// State returns the current lifecycle state.
func (c *Conn) State() api.ConnState { return api.ConnState(c.state.Load()) }

// Request returns the accepted upgrade request, nil before the handshake
// succeeded.
func (c *Conn) Request() *HandshakeRequest { return c.request }

// SetMessageHandler installs h for subsequent messages. A nil handler
// discards messages.
func (c *Conn) SetMessageHandler(h MessageHandler) { c.handler = h }

// Stats returns a snapshot of the traffic counters.
func (c *Conn) Stats() api.ConnStats {
	return api.ConnStats{
		FramesReceived: c.framesIn.Load(),
		FramesSent:     c.framesOut.Load(),
		BytesReceived:  c.bytesIn.Load(),
		BytesSent:      c.bytesOut.Load(),
	}
}

// Start issues the first read of the upgrade request.
func (c *Conn) Start() {
	if c.State() != api.StateHandshaking {
		return
	}
	c.t.Read(c.cfg.ReadBufferSize, c.onHandshakeRead)
}

func (c *Conn) onHandshakeRead(p []byte, err error) {
	if c.State() != api.StateHandshaking {
		return
	}
	if c.rejected != nil {
		// the peer spoke or hung up after the 400; either way we are done
		c.release(c.rejected)
		return
	}
	if err != nil {
		c.release(err)
		return
	}
	c.bytesIn.Add(int64(len(p)))
	c.in.Append(p)

	end := RequestEnd(c.in.Bytes())
	if end < 0 || end > c.cfg.MaxHandshakeSize {
		if c.in.Len() > c.cfg.MaxHandshakeSize {
			c.reject(ErrHandshakeTooLarge.WithContext("limit", c.cfg.MaxHandshakeSize), RejectResponse(ErrHandshakeTooLarge))
			return
		}
		c.t.Read(c.cfg.ReadBufferSize, c.onHandshakeRead)
		return
	}

	resp, req, err := ProcessHandshake(c.in.Bytes()[:end])
	if err != nil {
		c.reject(err, resp)
		return
	}
	c.request = req
	c.in.Consume(end)

	c.t.Write(resp, func(n int, err error) {
		if c.State() != api.StateHandshaking {
			return
		}
		if err == nil && n < len(resp) {
			err = io.ErrShortWrite
		}
		if err != nil {
			c.release(err)
			return
		}
		c.bytesOut.Add(int64(n))
		c.state.Store(int32(api.StateOpen))
		if c.cfg.OnOpen != nil {
			c.cfg.OnOpen(c)
		}
		// bytes that followed the request head are the first frames
		if c.in.Len() > 0 {
			c.drain()
		} else {
			c.readNext()
		}
	})
}

// reject answers a failed handshake, then waits for one more read before
// releasing the transport.
func (c *Conn) reject(err error, resp []byte) {
	c.log.Printf("handshake rejected for %s: %v", c.t.RemoteAddr(), err)
	c.rejected = err
	c.in.Reset()
	c.t.Write(resp, func(n int, werr error) {
		if c.State() != api.StateHandshaking {
			return
		}
		if werr != nil {
			c.release(err)
			return
		}
		c.bytesOut.Add(int64(n))
		c.t.Read(c.cfg.ReadBufferSize, c.onHandshakeRead)
	})
}

// release drops a connection that never opened.
func (c *Conn) release(err error) {
	if c.State() == api.StateClosed {
		return
	}
	c.state.Store(int32(api.StateClosed))
	c.w.stop()
	if cerr := c.t.Close(); cerr != nil {
		c.log.Printf("transport close error: %v", cerr)
	}
	if c.cfg.OnReject != nil {
		c.cfg.OnReject(c, err)
	}
}

func (c *Conn) readNext() {
	if c.reading || c.State() != api.StateOpen {
		return
	}
	c.reading = true
	c.t.Read(c.cfg.ReadBufferSize, c.onRead)
}

func (c *Conn) onRead(p []byte, err error) {
	c.reading = false
	if c.State() != api.StateOpen {
		return
	}
	if err != nil {
		c.abort(err)
		return
	}
	c.bytesIn.Add(int64(len(p)))
	c.in.Append(p)
	if c.in.Short() {
		c.readNext()
		return
	}
	c.drain()
}

// drain decodes and dispatches every complete frame in the inbound buffer,
// then asks for more bytes.
func (c *Conn) drain() {
	for c.State() == api.StateOpen {
		f, err := ParseFrame(c.in.Bytes(), uint64(c.cfg.MaxMessageSize))
		if err != nil {
			c.protocolError(err)
			return
		}
		if f == nil {
			c.in.SetTarget(0)
			c.readNext()
			return
		}
		if err := f.Validate(); err != nil {
			c.protocolError(err)
			return
		}
		if !f.Complete() {
			c.in.SetTarget(f.Size())
			c.readNext()
			return
		}
		c.in.Consume(f.Size())
		c.framesIn.Add(1)
		c.dispatch(f)
	}
}

func (c *Conn) dispatch(f *Frame) {
	switch f.Opcode {
	case OpcodeContinuation, OpcodeText, OpcodeBinary:
		mt, p, done, err := c.msg.push(f, c.cfg.MaxMessageSize)
		if err != nil {
			c.protocolError(err)
			return
		}
		if !done {
			return
		}
		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(c, mt, len(p))
		}
		if c.handler != nil {
			c.handler(c, mt, p)
		}
	case OpcodeClose:
		switch len(f.Payload) {
		case 0:
			c.closeWith(0, CloseNoStatusRcvd)
		case 1:
			c.protocolError(ErrBadClosePayload)
		default:
			code := int(binary.BigEndian.Uint16(f.Payload))
			c.closeWith(code, code)
		}
	case OpcodePing:
		c.w.enqueue([][]byte{NewOutboundFrame(FinalPong).AppendBytes(f.Payload).Bytes()}, nil)
	case OpcodePong:
	default:
		c.protocolError(ErrUnknownOpcode.WithContext("opcode", f.Opcode))
	}
}

func (c *Conn) protocolError(err error) {
	c.log.Printf("protocol error on %s: %v", c.t.RemoteAddr(), err)
	if c.cfg.OnProtocolError != nil {
		c.cfg.OnProtocolError(c, err)
	}
	if c.State() == api.StateOpen {
		c.closeWith(CloseProtocolError, CloseProtocolError)
	}
}

// Send writes one message, fragmenting it above FragmentThreshold.
func (c *Conn) Send(mt MessageType, p []byte) error {
	var b0 byte
	switch mt {
	case TextMessage:
		b0 = FinalText
	case BinaryMessage:
		b0 = FinalBinary
	default:
		return api.ErrInvalidArgument
	}
	return c.WriteFrame(NewOutboundFrame(b0).AppendBytes(p), nil)
}

// SendText writes a text message.
func (c *Conn) SendText(s string) error {
	return c.WriteFrame(NewOutboundFrame(FinalText).AppendText(s), nil)
}

// SendBinary writes a binary message.
func (c *Conn) SendBinary(p []byte) error {
	return c.Send(BinaryMessage, p)
}

// Ping writes a ping carrying p.
func (c *Conn) Ping(p []byte) error {
	if len(p) > MaxControlPayloadLen {
		return api.ErrInvalidArgument
	}
	return c.WriteFrame(NewOutboundFrame(FinalPing).AppendBytes(p), nil)
}

// WriteFrame queues f for sending. done, if set, runs after the last wire
// frame was written or with the error that stopped the writer. Control
// frames above MaxControlPayloadLen are refused with api.ErrInvalidArgument.
func (c *Conn) WriteFrame(f *OutboundFrame, done func(error)) error {
	if c.State() != api.StateOpen {
		return api.ErrConnectionClosed
	}
	if IsControl(f.Opcode() & OpcodeMask) {
		if f.Len() > MaxControlPayloadLen {
			return api.ErrInvalidArgument
		}
		c.w.enqueue([][]byte{f.Bytes()}, done)
		return nil
	}
	c.w.enqueue(f.Fragments(), done)
	return nil
}

// Close sends a close frame carrying code (none when code is 0) and tears
// the connection down once it was written.
func (c *Conn) Close(code int) error {
	if c.State() != api.StateOpen {
		return api.ErrConnectionClosed
	}
	report := code
	if code == 0 {
		report = CloseNoStatusRcvd
	}
	c.closeWith(code, report)
	return nil
}

// Abort tears the transport down without a close handshake. An open
// connection reports CloseAbnormalClosure; one still handshaking is
// released.
func (c *Conn) Abort() {
	switch c.State() {
	case api.StateHandshaking:
		c.release(api.ErrConnectionClosed)
	case api.StateOpen, api.StateClosing:
		c.teardown(CloseAbnormalClosure)
	}
}

func (c *Conn) closeWith(wire, report int) {
	c.state.Store(int32(api.StateClosing))
	c.w.enqueue(closeFrame(wire).Fragments(), func(err error) {
		if err != nil {
			c.teardown(CloseAbnormalClosure)
			return
		}
		c.teardown(report)
	})
}

func (c *Conn) abort(err error) {
	if err != io.EOF {
		c.log.Printf("transport error on %s: %v", c.t.RemoteAddr(), err)
	}
	c.teardown(CloseAbnormalClosure)
}

func (c *Conn) teardown(code int) {
	if c.State() == api.StateClosed {
		return
	}
	c.state.Store(int32(api.StateClosed))
	c.w.stop()
	if err := c.t.Close(); err != nil {
		c.log.Printf("transport close error: %v", err)
	}
	c.in.Reset()
	c.msg.reset()
	if c.cfg.OnClose != nil {
		c.cfg.OnClose(c, code)
	}
}

func (c *Conn) onSent(n int) {
	c.framesOut.Add(1)
	c.bytesOut.Add(int64(n))
}

func (c *Conn) onWriteError(err error) {
	c.abort(err)
}
