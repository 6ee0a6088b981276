package cache

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Default configuration constants.
const (
	// ShardCount is the number of independently locked shards.
	// Must be a power of 2 so shard selection is a mask.
	ShardCount = 16

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 64

	shardMask = ShardCount - 1
)

// Hasher computes the shard hash of a key.
type Hasher[K any] func(K) uint64

// Uint64Hasher mixes the key with a finalizer so keys differing only in
// their high bits still spread across shards.
func Uint64Hasher(u uint64) uint64 {
	u ^= u >> 33
	u *= 0xff51afd7ed558ccd
	u ^= u >> 33
	return u
}

// Key hashes a sequence of byte strings into a 64-bit cache key.
// Each part is length-prefixed so ("ab", "c") and ("a", "bc") differ.
func Key(parts ...[]byte) uint64 {
	h := fnv.New64a()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(p)
	}
	return h.Sum64()
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Len           int
	Capacity      int // per shard
	TotalCapacity int
	Hits          uint64
	Misses        uint64
	HitRate       float64
	Evictions     uint64
}

// Sharded is a thread-safe LRU cache split into ShardCount shards, each
// with its own lock and capacity.
//
// An optional eviction callback observes entries pushed out by capacity.
// It runs after the shard lock is released and is not called for Drain.
type Sharded[K comparable, V any] struct {
	shards   [ShardCount]shard[K, V]
	hasher   Hasher[K]
	capacity int
	onEvict  func(K, V)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	order   recency[K, V]
}

// Option configures a Sharded cache.
type Option[K comparable, V any] func(*Sharded[K, V])

// WithEvict sets the eviction callback.
func WithEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Sharded[K, V]) { c.onEvict = fn }
}

// New creates a cache holding up to capacity entries per shard.
// If capacity <= 0, DefaultCapacity is used.
func New[K comparable, V any](capacity int, hasher Hasher[K], opts ...Option[K, V]) *Sharded[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Sharded[K, V]{hasher: hasher, capacity: capacity}
	for i := range c.shards {
		c.shards[i].entries = make(map[K]*entry[K, V])
		c.shards[i].order.init()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Sharded[K, V]) shardFor(key K) *shard[K, V] {
	return &c.shards[c.hasher(key)&shardMask]
}

// GetOrCreateWith returns the cached value for key, or calls create and
// caches its result. create runs under the shard lock, so concurrent
// callers for the same key create once. A failed create caches nothing.
// use, if non-nil, is called on the result while the lock is still held,
// so the entry cannot be evicted between the lookup and use. The bool
// reports a hit.
func (c *Sharded[K, V]) GetOrCreateWith(key K, create func() (V, error), use func(V)) (V, bool, error) {
	s := c.shardFor(key)
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		s.order.touch(e)
		v := e.value
		if use != nil {
			use(v)
		}
		s.mu.Unlock()
		c.hits.Add(1)
		return v, true, nil
	}
	c.misses.Add(1)

	v, err := create()
	if err != nil {
		s.mu.Unlock()
		var zero V
		return zero, false, err
	}
	if use != nil {
		use(v)
	}
	evicted := c.insertLocked(s, key, v)
	s.mu.Unlock()
	c.notify(evicted)
	return v, false, nil
}

func (c *Sharded[K, V]) insertLocked(s *shard[K, V], key K, value V) []*entry[K, V] {
	var evicted []*entry[K, V]
	for s.order.len() >= c.capacity {
		old := s.order.oldest()
		if old == nil {
			break
		}
		s.order.unlink(old)
		delete(s.entries, old.key)
		c.evictions.Add(1)
		evicted = append(evicted, old)
	}
	e := &entry[K, V]{key: key, value: value}
	s.order.insertFront(e)
	s.entries[key] = e
	return evicted
}

func (c *Sharded[K, V]) notify(evicted []*entry[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range evicted {
		c.onEvict(e.key, e.value)
	}
}

// Drain removes every entry and returns them, most recently used first
// within each shard.
func (c *Sharded[K, V]) Drain() []V {
	var out []V
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.order.each(func(e *entry[K, V]) bool {
			out = append(out, e.value)
			return true
		})
		s.entries = make(map[K]*entry[K, V])
		s.order.init()
		s.mu.Unlock()
	}
	return out
}

// Len returns the number of entries across all shards.
func (c *Sharded[K, V]) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Stats returns current statistics.
func (c *Sharded[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Len:           c.Len(),
		Capacity:      c.capacity,
		TotalCapacity: c.capacity * ShardCount,
		Hits:          hits,
		Misses:        misses,
		HitRate:       rate,
		Evictions:     c.evictions.Load(),
	}
}
