// Package upload implements the per-recording linear allocator for
// transient data (descriptor tables, push constants, vertex descriptors and
// gang semaphores).
package upload

import (
	"errors"
	"fmt"

	"github.com/gogpu/cmdstream/backend"
)

// MinBlockSize is the smallest block the ring creates.
const MinBlockSize = 16 * 1024

// DefaultCacheLineSize is used when the allocator has no line size configured.
const DefaultCacheLineSize = 64

// Allocator is the block source used by a Ring.
type Allocator interface {
	AllocateTransientBlock(minSize uint64) (*backend.Block, error)
	ReleaseBlock(b *backend.Block)
}

// Allocation is a reserved range inside a ring block.
type Allocation struct {
	// Data is the CPU view of the range.
	Data []byte

	// Address is the device address of Data[0].
	Address uint64

	// Offset is the byte offset inside the owning block.
	Offset uint64
}

// Stats describes ring usage since the last Reset.
type Stats struct {
	Blocks      int
	Capacity    uint64
	Allocated   uint64
	Padding     uint64
	Growths     int
	LargestUsed uint64
}

// Ring is a growable linear allocator.
//
// Allocations are carved from the tail block. When the tail cannot hold a
// request, a new block of max(size, 2×previous, MinBlockSize) is appended
// and becomes the tail. Earlier blocks stay mapped until Reset or Destroy,
// so every allocation stays valid for the whole recording.
//
// A Ring is not safe for concurrent use.
type Ring struct {
	alloc    Allocator
	minBlock uint64
	line     uint64

	blocks []*backend.Block
	offset uint64 // watermark in the tail block
	stats  Stats
}

// Option configures a Ring.
type Option func(*Ring)

// WithMinBlockSize overrides MinBlockSize.
func WithMinBlockSize(n uint64) Option {
	return func(r *Ring) {
		if n > 0 {
			r.minBlock = n
		}
	}
}

// WithCacheLineSize sets the line size used by the padding heuristic.
// It must be a power of two; other values disable padding.
func WithCacheLineSize(n uint64) Option {
	return func(r *Ring) { r.line = n }
}

// New creates an empty ring. No block is created until the first allocation.
func New(alloc Allocator, opts ...Option) *Ring {
	r := &Ring{
		alloc:    alloc,
		minBlock: MinBlockSize,
		line:     DefaultCacheLineSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func alignUp(v, a uint64) uint64 {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}

func isPow2(v uint64) bool { return v != 0 && v&(v-1) == 0 }

// Allocate reserves size bytes aligned to alignment (0 and 1 mean unaligned).
//
// It fails only if a new block is needed and the allocator fails; the error
// wraps backend.ErrOutOfDeviceMemory or backend.ErrOutOfHostMemory and
// earlier allocations are unaffected.
func (r *Ring) Allocate(size, alignment uint64) (Allocation, error) {
	if alignment == 0 {
		alignment = 1
	}

	off, ok := r.fit(size, alignment)
	if !ok {
		if err := r.grow(size, alignment); err != nil {
			return Allocation{}, err
		}
		off = 0
	}

	tail := r.blocks[len(r.blocks)-1]
	r.stats.Padding += off - r.offset
	r.stats.Allocated += size
	r.offset = off + size
	if r.offset > r.stats.LargestUsed {
		r.stats.LargestUsed = r.offset
	}

	return Allocation{
		Data:    tail.Data[off : off+size : off+size],
		Address: tail.Address + off,
		Offset:  off,
	}, nil
}

// fit returns the offset of a size-byte allocation in the tail block.
func (r *Ring) fit(size, alignment uint64) (uint64, bool) {
	if len(r.blocks) == 0 {
		return 0, false
	}
	capacity := r.blocks[len(r.blocks)-1].Size()

	off := alignUp(r.offset, alignment)
	if isPow2(r.line) {
		// Start on the next line when the allocation would otherwise
		// straddle one more line than necessary.
		lineOff := alignUp(off, r.line)
		if gap := lineOff - off; size&(r.line-1) > gap {
			off = lineOff
		}
	}
	if off+size > capacity {
		// Retry without padding before giving up on the tail.
		off = alignUp(r.offset, alignment)
		if off+size > capacity {
			return 0, false
		}
	}
	return off, true
}

func (r *Ring) grow(size, alignment uint64) error {
	want := max(size, r.minBlock)
	if n := len(r.blocks); n > 0 {
		want = max(want, 2*r.blocks[n-1].Size())
	}
	blk, err := r.alloc.AllocateTransientBlock(want)
	if err != nil {
		return fmt.Errorf("upload: grow to %d bytes: %w", want, err)
	}
	if blk.Size() < size || blk.Address%alignment != 0 {
		r.alloc.ReleaseBlock(blk)
		return fmt.Errorf("upload: allocator returned %d bytes at %#x for %d/%d: %w",
			blk.Size(), blk.Address, size, alignment, errShortBlock)
	}
	r.blocks = append(r.blocks, blk)
	r.offset = 0
	r.stats.Blocks = len(r.blocks)
	r.stats.Capacity += blk.Size()
	if len(r.blocks) > 1 {
		r.stats.Growths++
	}
	return nil
}

var errShortBlock = fmt.Errorf("short block: %w", backend.ErrOutOfDeviceMemory)

// Upload allocates len(data) bytes and copies data into them.
func (r *Ring) Upload(data []byte, alignment uint64) (Allocation, error) {
	a, err := r.Allocate(uint64(len(data)), alignment)
	if err != nil {
		return Allocation{}, err
	}
	copy(a.Data, data)
	return a, nil
}

// Zeroed allocates size bytes and clears them.
func (r *Ring) Zeroed(size, alignment uint64) (Allocation, error) {
	a, err := r.Allocate(size, alignment)
	if err != nil {
		return Allocation{}, err
	}
	clear(a.Data)
	return a, nil
}

// Reset releases every block except the largest, which becomes the empty
// tail. The ring can be reused for a new recording.
func (r *Ring) Reset() {
	if len(r.blocks) == 0 {
		r.stats = Stats{}
		return
	}
	keep := 0
	for i, b := range r.blocks {
		if b.Size() > r.blocks[keep].Size() {
			keep = i
		}
	}
	kept := r.blocks[keep]
	for i, b := range r.blocks {
		if i != keep {
			r.alloc.ReleaseBlock(b)
		}
	}
	clear(r.blocks)
	r.blocks = append(r.blocks[:0], kept)
	r.offset = 0
	r.stats = Stats{Blocks: 1, Capacity: kept.Size()}
}

// Destroy releases every block.
func (r *Ring) Destroy() {
	for _, b := range r.blocks {
		r.alloc.ReleaseBlock(b)
	}
	clear(r.blocks)
	r.blocks = r.blocks[:0]
	r.offset = 0
	r.stats = Stats{}
}

// Stats returns usage counters since the last Reset.
func (r *Ring) Stats() Stats { return r.stats }

// Blocks returns the number of live blocks.
func (r *Ring) Blocks() int { return len(r.blocks) }

// Offset returns the watermark in the tail block.
func (r *Ring) Offset() uint64 { return r.offset }

// TailSize returns the size of the tail block, or 0 before the first allocation.
func (r *Ring) TailSize() uint64 {
	if len(r.blocks) == 0 {
		return 0
	}
	return r.blocks[len(r.blocks)-1].Size()
}

// IsShortBlock reports whether err came from an allocator that returned a
// block smaller or less aligned than requested.
func IsShortBlock(err error) bool { return errors.Is(err, errShortBlock) }
