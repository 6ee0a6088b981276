package cmdstream

import (
	"sync"
	"weak"
)

// PoolFlags configures a Pool.
type PoolFlags uint32

const (
	// PoolResetIndividual lets Begin reset an encoder that is not in the
	// initial state instead of failing with ErrNotInitial.
	PoolResetIndividual PoolFlags = 1 << iota
)

// Pool owns a set of encoders in an index-addressed slot table.
//
// Encoders refer back to their pool through a weak pointer, so dropping
// every reference to a pool lets it be collected even while encoders are
// still referenced; such encoders fail Begin with ErrPoolDestroyed.
type Pool struct {
	dev   *Device
	flags PoolFlags

	mu        sync.Mutex
	slots     []*Encoder
	free      []int
	destroyed bool
}

// Flags returns the pool flags.
func (p *Pool) Flags() PoolFlags { return p.flags }

// Device returns the owning device.
func (p *Pool) Device() *Device { return p.dev }

// Allocate creates an encoder of the given level in the initial state.
func (p *Pool) Allocate(level Level) (*Encoder, error) {
	if level != LevelPrimary && level != LevelSecondary {
		return nil, ErrInvalidLevel
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return nil, ErrPoolDestroyed
	}

	var slot int
	if n := len(p.free); n > 0 {
		slot = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		slot = len(p.slots)
		p.slots = append(p.slots, nil)
	}
	e := newEncoder(p.dev, weak.Make(p), slot, level)
	p.slots[slot] = e
	return e, nil
}

// Free destroys e and returns its slot to the pool. Encoders from other
// pools are ignored.
func (p *Pool) Free(e *Encoder) {
	if e == nil {
		return
	}
	p.mu.Lock()
	if e.slot < 0 || e.slot >= len(p.slots) || p.slots[e.slot] != e {
		p.mu.Unlock()
		return
	}
	p.slots[e.slot] = nil
	p.free = append(p.free, e.slot)
	p.mu.Unlock()

	e.destroy()
}

// Reset returns every encoder of the pool to the initial state.
func (p *Pool) Reset() {
	for _, e := range p.live() {
		e.Reset()
	}
}

// Destroy frees every encoder. The pool cannot allocate afterwards.
func (p *Pool) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	slots := p.slots
	p.slots, p.free = nil, nil
	p.mu.Unlock()

	for _, e := range slots {
		if e != nil {
			e.destroy()
		}
	}
	p.dev.poolDestroyed()
}

// Len returns the number of live encoders.
func (p *Pool) Len() int {
	return len(p.live())
}

func (p *Pool) live() []*Encoder {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Encoder, 0, len(p.slots))
	for _, e := range p.slots {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (p *Pool) isDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}
