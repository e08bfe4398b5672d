// File: protocol/accumulator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Accumulator assembles a frame, or the HTTP upgrade request, across
// several partial transport reads.

package protocol

// Accumulator is an append-only growable byte buffer with a caller-managed
// target length. The target is set once the full size of the unit being
// assembled is known and tells the reader whether to keep reading.
type Accumulator struct {
	data   []byte
	target int
}

// Append grows the buffer by p, preserving all previously appended bytes.
func (a *Accumulator) Append(p []byte) {
	a.data = append(a.data, p...)
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return len(a.data)
}

// Bytes returns the buffered bytes. The slice aliases the accumulator and is
// valid until the next mutating call.
func (a *Accumulator) Bytes() []byte {
	return a.data
}

// SetTarget records the total length the caller is waiting for.
func (a *Accumulator) SetTarget(n int) {
	a.target = n
}

// Target returns the recorded target length, 0 when none is set.
func (a *Accumulator) Target() int {
	return a.target
}

// Short reports whether a target is set and not yet reached.
func (a *Accumulator) Short() bool {
	return a.target > 0 && len(a.data) < a.target
}

// Consume drops the first n bytes and clears the target. Remaining bytes are
// moved to the front of the buffer.
func (a *Accumulator) Consume(n int) {
	if n >= len(a.data) {
		a.data = a.data[:0]
	} else {
		a.data = append(a.data[:0], a.data[n:]...)
	}
	a.target = 0
}

// Reset empties the buffer and clears the target, keeping capacity.
func (a *Accumulator) Reset() {
	a.data = a.data[:0]
	a.target = 0
}

// Detach hands the buffered bytes to the caller and empties the
// accumulator without sharing memory with it.
func (a *Accumulator) Detach() []byte {
	out := a.data
	a.data = nil
	a.target = 0
	return out
}
