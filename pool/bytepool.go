// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "sync/atomic"

// DefaultFreeList is the number of idle buffers a BytePool retains.
const DefaultFreeList = 1024

// BytePool hands out buffers of one size class. It is safe for concurrent
// use.
type BytePool struct {
	size int
	free chan []byte

	allocs atomic.Int64
	reuses atomic.Int64
}

// Stats reports pool activity.
type Stats struct {
	Size   int   `json:"size"`
	Idle   int   `json:"idle"`
	Allocs int64 `json:"allocs"`
	Reuses int64 `json:"reuses"`
}

// NewBytePool returns a pool of size-byte buffers keeping at most keep idle.
func NewBytePool(size, keep int) *BytePool {
	if keep <= 0 {
		keep = DefaultFreeList
	}
	return &BytePool{size: size, free: make(chan []byte, keep)}
}

// Size returns the buffer size of the class.
func (b *BytePool) Size() int { return b.size }

// Get returns a buffer of length n. Requests above the class size are
// allocated and never pooled.
func (b *BytePool) Get(n int) []byte {
	if n > b.size {
		b.allocs.Add(1)
		return make([]byte, n)
	}
	select {
	case buf := <-b.free:
		b.reuses.Add(1)
		return buf[:n]
	default:
		b.allocs.Add(1)
		return make([]byte, n, b.size)
	}
}

// Put returns buf to the pool. Buffers of another class are dropped.
func (b *BytePool) Put(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	select {
	case b.free <- buf[:b.size]:
	default:
	}
}

// Stats returns a snapshot of the pool counters.
func (b *BytePool) Stats() Stats {
	return Stats{
		Size:   b.size,
		Idle:   len(b.free),
		Allocs: b.allocs.Load(),
		Reuses: b.reuses.Load(),
	}
}
