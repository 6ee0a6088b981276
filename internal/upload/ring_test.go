package upload

import (
	"errors"
	"testing"

	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/cmdstream/backend"
	"github.com/gogpu/cmdstream/backend/wgpuhal"
)

// countingAllocator hands out heap blocks and can be told to fail.
type countingAllocator struct {
	next     uint64
	live     int
	sizes    []uint64
	failNext error
}

func (a *countingAllocator) AllocateTransientBlock(minSize uint64) (*backend.Block, error) {
	if a.failNext != nil {
		err := a.failNext
		a.failNext = nil
		return nil, err
	}
	if a.next == 0 {
		a.next = 0x10000
	}
	b := &backend.Block{Data: make([]byte, minSize), Address: a.next}
	a.next += (minSize + 0xFFFF) &^ 0xFFFF
	a.live++
	a.sizes = append(a.sizes, minSize)
	return b, nil
}

func (a *countingAllocator) ReleaseBlock(*backend.Block) { a.live-- }

func TestLazyFirstBlock(t *testing.T) {
	a := &countingAllocator{}
	r := New(a)
	if r.Blocks() != 0 || a.live != 0 {
		t.Fatalf("New created %d blocks", a.live)
	}
	if _, err := r.Allocate(16, 4); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(a.sizes) != 1 || a.sizes[0] != MinBlockSize {
		t.Errorf("first block sizes = %v, want [%d]", a.sizes, MinBlockSize)
	}
}

func TestGrowth(t *testing.T) {
	a := &countingAllocator{}
	r := New(a)

	first, err := r.Allocate(16000, 1)
	if err != nil {
		t.Fatalf("Allocate(16000): %v", err)
	}
	second, err := r.Allocate(8000, 1)
	if err != nil {
		t.Fatalf("Allocate(8000): %v", err)
	}

	if r.Blocks() != 2 {
		t.Fatalf("Blocks() = %d, want 2", r.Blocks())
	}
	if got := r.TailSize(); got < 32000 {
		t.Errorf("new block size = %d, want >= 32000", got)
	}
	if second.Offset != 0 {
		t.Errorf("second allocation offset = %d, want 0 in new block", second.Offset)
	}

	// The first allocation is still valid and distinct.
	first.Data[0] = 1
	second.Data[0] = 2
	if first.Data[0] != 1 {
		t.Error("first allocation clobbered after growth")
	}
	if first.Address+16000 > second.Address && second.Address+8000 > first.Address {
		t.Errorf("allocations overlap: %#x+16000 and %#x+8000", first.Address, second.Address)
	}
}

func TestGrowthOversized(t *testing.T) {
	a := &countingAllocator{}
	r := New(a)
	if _, err := r.Allocate(100, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Allocate(100000, 1); err != nil {
		t.Fatal(err)
	}
	if got := r.TailSize(); got != 100000 {
		t.Errorf("TailSize() = %d, want 100000", got)
	}
}

func TestAllocationsDisjoint(t *testing.T) {
	a := &countingAllocator{}
	r := New(a, WithMinBlockSize(1024))

	type span struct{ lo, hi uint64 }
	var spans []span
	sizes := []uint64{3, 64, 100, 7, 500, 1, 900, 33, 2048, 12}
	aligns := []uint64{1, 4, 16, 256, 8}
	for i, size := range sizes {
		al := aligns[i%len(aligns)]
		got, err := r.Allocate(size, al)
		if err != nil {
			t.Fatalf("Allocate(%d, %d): %v", size, al, err)
		}
		if got.Address%al != 0 {
			t.Errorf("Allocate(%d, %d) address %#x misaligned", size, al, got.Address)
		}
		if uint64(len(got.Data)) != size {
			t.Errorf("Allocate(%d) len = %d", size, len(got.Data))
		}
		if r.Offset() > r.TailSize() {
			t.Fatalf("offset %d beyond tail %d", r.Offset(), r.TailSize())
		}
		for _, s := range spans {
			if got.Address < s.hi && s.lo < got.Address+size {
				t.Fatalf("allocation [%#x,+%d) overlaps [%#x,%#x)", got.Address, size, s.lo, s.hi)
			}
		}
		spans = append(spans, span{got.Address, got.Address + size})
	}
}

func TestCacheLinePadding(t *testing.T) {
	tests := []struct {
		name     string
		before   uint64
		size     uint64
		wantOff  uint64
		lineSize uint64
	}{
		// gap to next line is 60, remainder 8 fits: no padding
		{"small fits", 4, 8, 4, 64},
		// gap 60, remainder 62 does not fit: start at next line
		{"straddles", 4, 62, 64, 64},
		// size is a multiple of the line: remainder 0, never padded
		{"multiple of line", 4, 128, 4, 64},
		// padding disabled
		{"disabled", 4, 62, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&countingAllocator{}, WithCacheLineSize(tt.lineSize))
			if _, err := r.Allocate(tt.before, 1); err != nil {
				t.Fatal(err)
			}
			got, err := r.Allocate(tt.size, 1)
			if err != nil {
				t.Fatal(err)
			}
			if got.Offset != tt.wantOff {
				t.Errorf("offset = %d, want %d", got.Offset, tt.wantOff)
			}
		})
	}
}

func TestAllocateFailureKeepsPrior(t *testing.T) {
	a := &countingAllocator{}
	r := New(a, WithMinBlockSize(64))
	prior, err := r.Upload([]byte{1, 2, 3, 4}, 4)
	if err != nil {
		t.Fatal(err)
	}

	a.failNext = backend.ErrOutOfDeviceMemory
	_, err = r.Allocate(1000, 1)
	if !errors.Is(err, backend.ErrOutOfDeviceMemory) {
		t.Fatalf("error = %v, want ErrOutOfDeviceMemory", err)
	}
	if r.Blocks() != 1 {
		t.Errorf("Blocks() = %d after failure, want 1", r.Blocks())
	}
	if prior.Data[3] != 4 {
		t.Error("prior allocation changed after failure")
	}

	// The ring still works afterwards.
	if _, err := r.Allocate(1000, 1); err != nil {
		t.Errorf("Allocate after failure: %v", err)
	}
}

func TestResetKeepsLargest(t *testing.T) {
	a := &countingAllocator{}
	r := New(a)
	for _, n := range []uint64{16000, 16000, 40000} {
		if _, err := r.Allocate(n, 1); err != nil {
			t.Fatal(err)
		}
	}
	largest := r.TailSize()
	if r.Blocks() < 2 {
		t.Fatalf("Blocks() = %d, want growth", r.Blocks())
	}

	r.Reset()
	if r.Blocks() != 1 || a.live != 1 {
		t.Fatalf("after Reset blocks=%d live=%d, want 1/1", r.Blocks(), a.live)
	}
	if r.TailSize() != largest || r.Offset() != 0 {
		t.Errorf("kept block size=%d offset=%d, want %d/0", r.TailSize(), r.Offset(), largest)
	}

	// Reuse does not allocate a new block.
	before := len(a.sizes)
	if _, err := r.Allocate(100, 1); err != nil {
		t.Fatal(err)
	}
	if len(a.sizes) != before {
		t.Error("allocation after Reset created a block")
	}

	r.Destroy()
	if a.live != 0 || r.Blocks() != 0 {
		t.Errorf("after Destroy live=%d blocks=%d", a.live, r.Blocks())
	}
}

func TestZeroed(t *testing.T) {
	r := New(&countingAllocator{})
	dirty, _ := r.Allocate(8, 8)
	for i := range dirty.Data {
		dirty.Data[i] = 0xFF
	}
	r.Reset()
	z, err := r.Zeroed(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range z.Data {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, b)
		}
	}
}

func TestRingOverHAL(t *testing.T) {
	b := wgpuhal.New(&noop.Device{})
	r := New(b, WithCacheLineSize(uint64(b.Caps().CacheLineSize)))

	got, err := r.Upload([]byte("descriptor"), 16)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if string(got.Data) != "descriptor" {
		t.Errorf("uploaded %q", got.Data)
	}
	if b.Stats().LiveBlocks != 1 {
		t.Errorf("LiveBlocks = %d, want 1", b.Stats().LiveBlocks)
	}
	r.Destroy()
	if b.Stats().LiveBlocks != 0 {
		t.Errorf("LiveBlocks after Destroy = %d, want 0", b.Stats().LiveBlocks)
	}
}
