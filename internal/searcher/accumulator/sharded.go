// Package accumulator provides a map that many goroutines can update at once
// without a single global lock. Keys are spread over a fixed number of
// shards by key modulo shard count, and each shard has its own mutex held
// only for one update.
package accumulator

import "sync"

const DefaultShards = 100

// Key is any integer type usable as a document id.
type Key interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// Number is any value that can be accumulated with +=.
type Number interface {
	~int | ~int64 | ~float32 | ~float64
}

type shard[K Key, V Number] struct {
	mu sync.Mutex
	m  map[K]V
}

// Sharded is a concurrent K -> V accumulator.
type Sharded[K Key, V Number] struct {
	shards []shard[K, V]
}

// New returns an accumulator with count shards (DefaultShards when
// count <= 0).
func New[K Key, V Number](count int) *Sharded[K, V] {
	if count <= 0 {
		count = DefaultShards
	}
	s := &Sharded[K, V]{shards: make([]shard[K, V], count)}
	for i := range s.shards {
		s.shards[i].m = make(map[K]V)
	}
	return s
}

func (s *Sharded[K, V]) shardFor(key K) *shard[K, V] {
	return &s.shards[uint64(key)%uint64(len(s.shards))]
}

// Add increments the value of key by delta, inserting it when absent.
func (s *Sharded[K, V]) Add(key K, delta V) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.m[key] += delta
	sh.mu.Unlock()
}

// Delete removes key.
func (s *Sharded[K, V]) Delete(key K) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.m, key)
	sh.mu.Unlock()
}

// Snapshot merges all shards into an ordinary map, locking each shard in
// turn.
func (s *Sharded[K, V]) Snapshot() map[K]V {
	result := make(map[K]V)
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, v := range sh.m {
			result[k] = v
		}
		sh.mu.Unlock()
	}
	return result
}
