// Package regcache tracks the last value written to each logical register
// so redundant writes can be skipped.
package regcache

import "math/bits"

// Cache remembers register values written into the current stream.
//
// A known register holding V means the executor's register also holds V at
// this point of the stream. Unknown registers are always written. Use
// InvalidateAll whenever the hardware state cannot be inferred, such as at
// the start of a recording or after inlining foreign words.
type Cache struct {
	values []uint32
	known  []uint64

	hits   uint64
	misses uint64
}

// Stats counts skipped (Hits) and emitted (Misses) register writes.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// New creates a cache for register ids in [0, n).
func New(n int) *Cache {
	return &Cache{
		values: make([]uint32, n),
		known:  make([]uint64, (n+63)/64),
	}
}

// Len returns the number of tracked registers.
func (c *Cache) Len() int { return len(c.values) }

func (c *Cache) isKnown(id uint32) bool {
	return c.known[id/64]&(1<<(id%64)) != 0
}

func (c *Cache) setKnown(id uint32, v uint32) {
	c.values[id] = v
	c.known[id/64] |= 1 << (id % 64)
}

// Lookup returns the cached value of id and whether it is known.
func (c *Cache) Lookup(id uint32) (uint32, bool) {
	if int(id) >= len(c.values) || !c.isKnown(id) {
		return 0, false
	}
	return c.values[id], true
}

// EmitIfChanged calls emit(id, v) unless id is known to hold v, then records v.
// Ids outside the cache are always emitted.
func (c *Cache) EmitIfChanged(id, v uint32, emit func(id, v uint32)) bool {
	if int(id) >= len(c.values) {
		c.misses++
		emit(id, v)
		return true
	}
	if c.isKnown(id) && c.values[id] == v {
		c.hits++
		return false
	}
	c.misses++
	c.setKnown(id, v)
	emit(id, v)
	return true
}

// EmitSeqIfChanged handles a run of consecutive registers starting at base.
// The whole run is emitted once if any register differs from its cached value.
func (c *Cache) EmitSeqIfChanged(base uint32, vs []uint32, emit func(base uint32, vs []uint32)) bool {
	changed := false
	for i, v := range vs {
		id := base + uint32(i)
		if int(id) >= len(c.values) || !c.isKnown(id) || c.values[id] != v {
			changed = true
			break
		}
	}
	if !changed {
		c.hits += uint64(len(vs))
		return false
	}
	c.misses += uint64(len(vs))
	for i, v := range vs {
		if id := base + uint32(i); int(id) < len(c.values) {
			c.setKnown(id, v)
		}
	}
	emit(base, vs)
	return true
}

// Invalidate forgets a single register.
func (c *Cache) Invalidate(id uint32) {
	if int(id) < len(c.values) {
		c.known[id/64] &^= 1 << (id % 64)
	}
}

// InvalidateAll forgets every register.
func (c *Cache) InvalidateAll() {
	clear(c.known)
}

// KnownCount returns how many registers have a known value.
func (c *Cache) KnownCount() int {
	n := 0
	for _, w := range c.known {
		n += bits.OnesCount64(w)
	}
	return n
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() Stats { return Stats{Hits: c.hits, Misses: c.misses} }

// ResetStats clears hit and miss counters.
func (c *Cache) ResetStats() { c.hits, c.misses = 0, 0 }
