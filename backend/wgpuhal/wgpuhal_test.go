//go:build !(js && wasm)

package wgpuhal

import (
	"encoding/binary"
	"errors"
	"testing"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/cmdstream/backend"
	"github.com/gogpu/cmdstream/stream"
)

// faultyDevice wraps the noop device and fails selected calls.
type faultyDevice struct {
	*noop.Device
	failCreate bool
	failMap    bool
}

func (d *faultyDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if d.failCreate {
		return nil, hal.ErrDeviceOutOfMemory
	}
	return d.Device.CreateBuffer(desc)
}

func (d *faultyDevice) MapBuffer(buf hal.Buffer, offset, size uint64) (hal.BufferMapping, error) {
	if d.failMap {
		return hal.BufferMapping{}, hal.ErrInvalidMapRange
	}
	return d.Device.MapBuffer(buf, offset, size)
}

func TestAllocateTransientBlock(t *testing.T) {
	b := New(&noop.Device{})

	blk, err := b.AllocateTransientBlock(1000)
	if err != nil {
		t.Fatalf("AllocateTransientBlock: %v", err)
	}
	if blk.Size() != 1000 {
		t.Errorf("Size() = %d, want 1000", blk.Size())
	}
	if blk.Address == 0 || blk.Address%addressAlign != 0 {
		t.Errorf("Address = %#x, want non-zero and %d-aligned", blk.Address, addressAlign)
	}

	// The mapping is writable.
	blk.Data[999] = 0xAB
	if blk.Data[999] != 0xAB {
		t.Error("block data not writable")
	}

	blk2, err := b.AllocateTransientBlock(16)
	if err != nil {
		t.Fatalf("second AllocateTransientBlock: %v", err)
	}
	if blk2.Address < blk.Address+1000 {
		t.Errorf("addresses overlap: %#x after %#x+1000", blk2.Address, blk.Address)
	}

	if st := b.Stats(); st.LiveBlocks != 2 || st.BlockBytes != 1016 {
		t.Errorf("Stats = %+v, want 2 blocks / 1016 bytes", st)
	}
	b.ReleaseBlock(blk)
	b.ReleaseBlock(blk2)
	if st := b.Stats(); st.LiveBlocks != 0 || st.BlockBytes != 0 {
		t.Errorf("Stats after release = %+v, want zero", st)
	}
}

func TestAllocateErrors(t *testing.T) {
	tests := []struct {
		name string
		dev  *faultyDevice
		want error
	}{
		{"create fails", &faultyDevice{Device: &noop.Device{}, failCreate: true}, backend.ErrOutOfDeviceMemory},
		{"map fails", &faultyDevice{Device: &noop.Device{}, failMap: true}, backend.ErrOutOfHostMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.dev)
			_, err := b.AllocateTransientBlock(64)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if b.Stats().LiveBlocks != 0 {
				t.Error("failed allocation counted as live")
			}
		})
	}
}

func TestFinalizeStream(t *testing.T) {
	b := New(&noop.Device{})
	s, err := b.CreateStream(stream.Primary)
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	s.Append(stream.SetReg, 7, 9)

	if err := b.FinalizeStream(s); err != nil {
		t.Fatalf("FinalizeStream: %v", err)
	}
	if !s.Finalized() || s.Address() == 0 {
		t.Fatalf("stream not finalized: %v %#x", s.Finalized(), s.Address())
	}

	// The uploaded copy holds the little-endian words.
	buf := s.Handle().(hal.Buffer)
	m, err := (&noop.Device{}).MapBuffer(buf, 0, s.SizeBytes())
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	data := unsafeBytes(m, s.SizeBytes())
	if got := binary.LittleEndian.Uint32(data[4:]); got != 7 {
		t.Errorf("uploaded operand = %d, want 7", got)
	}

	if err := b.FinalizeStream(s); !errors.Is(err, backend.ErrStreamFinalizeFailed) {
		t.Errorf("double finalize error = %v, want ErrStreamFinalizeFailed", err)
	}

	b.ReleaseStream(s)
	if s.Finalized() || s.Len() != 0 {
		t.Error("ReleaseStream did not reset the stream")
	}
	if b.Stats().LiveStreams != 0 {
		t.Errorf("LiveStreams = %d, want 0", b.Stats().LiveStreams)
	}
}

func TestFinalizeStreamFailure(t *testing.T) {
	b := New(&faultyDevice{Device: &noop.Device{}, failCreate: true})
	s, _ := b.CreateStream(stream.Primary)
	s.Append(stream.Nop)

	err := b.FinalizeStream(s)
	if !errors.Is(err, backend.ErrStreamFinalizeFailed) {
		t.Errorf("error = %v, want ErrStreamFinalizeFailed", err)
	}
	if !errors.Is(err, hal.ErrDeviceOutOfMemory) {
		t.Errorf("error = %v, want wrapped hal.ErrDeviceOutOfMemory", err)
	}
	if s.Finalized() {
		t.Error("failed stream marked finalized")
	}
}

func TestAuxiliaryEngine(t *testing.T) {
	soft := New(&noop.Device{}, WithAdapter(gpucontext.AdapterInfo{Name: "cpu", Type: gpucontext.AdapterTypeSoftware}))
	if _, err := soft.CreateStream(stream.Auxiliary); !errors.Is(err, backend.ErrEngineUnavailable) {
		t.Errorf("software adapter auxiliary stream error = %v, want ErrEngineUnavailable", err)
	}

	hw := New(&noop.Device{})
	if _, err := hw.CreateStream(stream.Auxiliary); err != nil {
		t.Errorf("auxiliary stream on default caps: %v", err)
	}
}

func TestUploadShader(t *testing.T) {
	b := New(&noop.Device{})
	sh, err := b.UploadShader("epilog", []uint32{0x07230203, 0, 0})
	if err != nil {
		t.Fatalf("UploadShader: %v", err)
	}
	if sh.Words != 3 || sh.Address == 0 {
		t.Errorf("shader = %+v", sh)
	}
	if b.Stats().LiveShaders != 1 {
		t.Errorf("LiveShaders = %d, want 1", b.Stats().LiveShaders)
	}
	b.ReleaseShader(sh)
	if b.Stats().LiveShaders != 0 {
		t.Errorf("LiveShaders after release = %d, want 0", b.Stats().LiveShaders)
	}

	if _, err := b.UploadShader("empty", nil); err == nil {
		t.Error("UploadShader(nil) succeeded")
	}
}

func TestRegistered(t *testing.T) {
	b, err := backend.Open(backend.NameWGPUNoop)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b.Name() != backend.NameWGPUNoop {
		t.Errorf("Name() = %q", b.Name())
	}
	if b.Caps().Adapter.Type != gpucontext.AdapterTypeSoftware {
		t.Errorf("adapter type = %v, want software", b.Caps().Adapter.Type)
	}
}

func unsafeBytes(m hal.BufferMapping, size uint64) []byte {
	return unsafe.Slice((*byte)(m.Ptr), size)
}
