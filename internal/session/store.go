// File: internal/session/store.go
// Package session
// Author: momentics <momentics@gmail.com>
//
// Sharded, thread-safe registry of live connections.

package session

import (
	"sync"
	"sync/atomic"
)

// Store maps connection handles to values.
type Store[V any] struct {
	shards []*shard[V]
	mask   uint64
	count  atomic.Int64
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[uint64]V
}

// NewStore constructs a sharded store with shardCount shards, rounded up
// to a power of two.
func NewStore[V any](shardCount int) *Store[V] {
	if shardCount <= 0 {
		shardCount = 16
	}
	// find power-of-two shards for bitmasking
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*shard[V], m)
	for i := range shards {
		shards[i] = &shard[V]{items: make(map[uint64]V)}
	}
	return &Store[V]{shards: shards, mask: uint64(m - 1)}
}

// shard picks the correct shard for a given id.
func (s *Store[V]) shard(id uint64) *shard[V] {
	// handles are sequential; fold the high bits in anyway
	return s.shards[(id^id>>32)&s.mask]
}

// Add registers v under id. It reports false if id is already present.
func (s *Store[V]) Add(id uint64, v V) bool {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.items[id]; ok {
		return false
	}
	sh.items[id] = v
	s.count.Add(1)
	return true
}

// Get fetches the value for id.
func (s *Store[V]) Get(id uint64) (V, bool) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.items[id]
	return v, ok
}

// Remove deletes id and returns the value it held.
func (s *Store[V]) Remove(id uint64) (V, bool) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.items[id]
	if ok {
		delete(sh.items, id)
		s.count.Add(-1)
	}
	return v, ok
}

// Len returns the number of registered values.
func (s *Store[V]) Len() int {
	return int(s.count.Load())
}

// Snapshot copies every value out. Callers iterate the copy, so a value
// may be removed while the caller acts on it.
func (s *Store[V]) Snapshot() []V {
	out := make([]V, 0, s.Len())
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, v := range sh.items {
			out = append(out, v)
		}
		sh.mu.RUnlock()
	}
	return out
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
