package backend

import (
	"errors"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/cmdstream/flush"
	"github.com/gogpu/cmdstream/stream"
)

// Common backend errors.
var (
	// ErrOutOfHostMemory is returned when host-side memory for a block,
	// mapping or bookkeeping could not be obtained.
	ErrOutOfHostMemory = errors.New("backend: out of host memory")

	// ErrOutOfDeviceMemory is returned when a device block could not be created.
	ErrOutOfDeviceMemory = errors.New("backend: out of device memory")

	// ErrStreamFinalizeFailed is returned when a stream could not be closed
	// and handed to the device.
	ErrStreamFinalizeFailed = errors.New("backend: stream finalize failed")

	// ErrEngineUnavailable is returned when a stream is requested for an
	// engine the device does not expose.
	ErrEngineUnavailable = errors.New("backend: engine unavailable")

	// ErrNotAvailable is returned when a requested backend is not registered.
	ErrNotAvailable = errors.New("backend: not available")
)

// Block is a CPU-visible, device-addressable chunk of transient memory.
type Block struct {
	// Data is the CPU mapping of the whole block.
	Data []byte

	// Address is the device address of Data[0].
	Address uint64

	// Handle is the backend's own object for the block.
	Handle any
}

// Size returns the block size in bytes.
func (b *Block) Size() uint64 { return uint64(len(b.Data)) }

// Shader is device-resident shader code.
type Shader struct {
	Label   string
	Address uint64
	Words   int
	Handle  any
}

// Caps describes what the device needs from the encoder.
type Caps struct {
	// L2Coherent is set when every client shares a coherent L2.
	L2Coherent bool

	// FlushAfterState forces the state-then-flush order for every draw.
	FlushAfterState bool

	// CacheLineSize is the line size used by the upload padding heuristic.
	CacheLineSize uint32

	// HasAuxiliaryEngine is set when task work can run on a second engine.
	HasAuxiliaryEngine bool

	// Adapter identifies the physical device.
	Adapter gpucontext.AdapterInfo
}

// Backend is the downstream device surface used by the encoder.
//
// Implementations must be safe for concurrent use by multiple encoders.
// Streams and blocks returned to one encoder are never shared.
type Backend interface {
	// Name returns the backend identifier (e.g., "wgpu-noop").
	Name() string

	// Caps returns the device capabilities.
	Caps() Caps

	// Translator returns the barrier translator for this device.
	Translator() flush.Translator

	// AllocateTransientBlock returns a mapped block of at least minSize bytes.
	AllocateTransientBlock(minSize uint64) (*Block, error)

	// ReleaseBlock returns a block obtained from AllocateTransientBlock.
	ReleaseBlock(b *Block)

	// CreateStream returns an empty stream for the engine.
	CreateStream(engine stream.Engine) (*stream.Stream, error)

	// FinalizeStream uploads the stream and marks it finalized.
	FinalizeStream(s *stream.Stream) error

	// ReleaseStream frees the device copy of a stream.
	ReleaseStream(s *stream.Stream)

	// UploadShader makes SPIR-V code device resident.
	UploadShader(label string, code []uint32) (*Shader, error)

	// ReleaseShader frees a shader returned by UploadShader.
	ReleaseShader(s *Shader)

	// Close releases all backend resources.
	Close()
}
