// File: protocol/frame_codec.go
// Package protocol implements outbound frame encoding and fragmentation.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server frames are never masked. Payloads above FragmentThreshold are split
// so that no wire frame carries more than FragmentThreshold payload bytes.

package protocol

import (
	"encoding/binary"
)

// OutboundFrame is a server-to-client frame built incrementally.
type OutboundFrame struct {
	// opcode is header byte 0 as supplied by the caller, FIN bit included.
	opcode  byte
	payload []byte
}

// NewOutboundFrame starts a frame whose first header byte is opcode,
// e.g. FinalText (0x81).
func NewOutboundFrame(opcode byte) *OutboundFrame {
	return &OutboundFrame{opcode: opcode}
}

// AppendText appends the bytes of s.
func (f *OutboundFrame) AppendText(s string) *OutboundFrame {
	f.payload = append(f.payload, s...)
	return f
}

// AppendBytes appends p.
func (f *OutboundFrame) AppendBytes(p []byte) *OutboundFrame {
	f.payload = append(f.payload, p...)
	return f
}

// Opcode returns header byte 0.
func (f *OutboundFrame) Opcode() byte { return f.opcode }

// Payload returns the accumulated payload.
func (f *OutboundFrame) Payload() []byte { return f.payload }

// Len returns the payload length.
func (f *OutboundFrame) Len() int { return len(f.payload) }

// Fragments serializes the frame into wire frames in send order.
//
// A payload of at most FragmentThreshold bytes yields a single frame. A larger
// one yields a head frame carrying the first FragmentThreshold bytes with the
// FIN bit cleared, then continuation frames, the last of which has FIN set.
// Exactly one wire frame carries FIN whatever FIN bit the caller supplied.
func (f *OutboundFrame) Fragments() [][]byte {
	if len(f.payload) <= FragmentThreshold {
		return [][]byte{encodeFrame(f.opcode, f.payload)}
	}

	n := (len(f.payload) + FragmentThreshold - 1) / FragmentThreshold
	out := make([][]byte, 0, n)
	opcode := f.opcode
	rest := f.payload
	for len(rest) > FragmentThreshold {
		out = append(out, encodeFrame(opcode&^FinBit, rest[:FragmentThreshold]))
		rest = rest[FragmentThreshold:]
		// every fragment after the head is a continuation; FIN only on the last
		opcode = FinalContinuation
	}
	out = append(out, encodeFrame(opcode, rest))
	return out
}

// Bytes serializes the frame without fragmentation. Intended for control
// frames and tests.
func (f *OutboundFrame) Bytes() []byte {
	return encodeFrame(f.opcode, f.payload)
}

// AppendHeader appends an unmasked frame header for a payload of n bytes.
func AppendHeader(dst []byte, b0 byte, n int) []byte {
	switch {
	case n <= MaxControlPayloadLen:
		return append(dst, b0, byte(n))
	case n <= 0xFFFF:
		dst = append(dst, b0, lengthCode16, 0, 0)
		binary.BigEndian.PutUint16(dst[len(dst)-2:], uint16(n))
		return dst
	default:
		dst = append(dst, b0, lengthCode64, 0, 0, 0, 0, 0, 0, 0, 0)
		binary.BigEndian.PutUint64(dst[len(dst)-8:], uint64(n))
		return dst
	}
}

func encodeFrame(b0 byte, payload []byte) []byte {
	buf := make([]byte, 0, len(payload)+4)
	buf = AppendHeader(buf, b0, len(payload))
	return append(buf, payload...)
}

// closeFrame builds a close frame carrying code, or no payload when code is 0.
func closeFrame(code int) *OutboundFrame {
	f := NewOutboundFrame(FinalClose)
	if code != 0 {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(code))
		f.AppendBytes(b[:])
	}
	return f
}
