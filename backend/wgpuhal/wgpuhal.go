//go:build !(js && wasm)

package wgpuhal

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/cmdstream/backend"
	"github.com/gogpu/cmdstream/flush"
	"github.com/gogpu/cmdstream/stream"
)

// Device is the subset of hal.Device the backend uses.
type Device interface {
	CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error)
	DestroyBuffer(buffer hal.Buffer)
	MapBuffer(buffer hal.Buffer, offset, size uint64) (hal.BufferMapping, error)
	UnmapBuffer(buffer hal.Buffer) error
	CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error)
	DestroyShaderModule(module hal.ShaderModule)
}

var _ Device = hal.Device(nil)

const (
	// addressBase is the first device address handed out. Zero is
	// reserved to mean "no address".
	addressBase = uint64(1) << 32

	// addressAlign is the alignment of every block, stream and shader address.
	addressAlign = 256

	transientUsage = gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc |
		gputypes.BufferUsageUniform | gputypes.BufferUsageStorage |
		gputypes.BufferUsageIndex | gputypes.BufferUsageVertex | gputypes.BufferUsageIndirect

	streamUsage = gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc |
		gputypes.BufferUsageIndirect
)

func init() {
	backend.Register(backend.NameWGPUNoop, func() (backend.Backend, error) {
		return New(&noop.Device{},
			WithName(backend.NameWGPUNoop),
			WithAdapter(gpucontext.AdapterInfo{Name: "noop", Type: gpucontext.AdapterTypeSoftware}),
		), nil
	})
}

// Backend implements backend.Backend on top of a wgpu HAL device.
//
// Device addresses are synthetic: a monotonically increasing counter, unique
// for the lifetime of the Backend.
type Backend struct {
	dev  Device
	name string
	caps backend.Caps

	mu     sync.Mutex
	nextVA uint64
	closed bool
	stats  Stats
}

// Stats counts live device objects created by the backend.
type Stats struct {
	LiveBlocks  int
	LiveStreams int
	LiveShaders int
	BlockBytes  uint64
}

// Option configures a Backend.
type Option func(*Backend)

// WithName sets the backend name.
func WithName(name string) Option {
	return func(b *Backend) { b.name = name }
}

// WithCaps replaces the default capabilities.
func WithCaps(c backend.Caps) Option {
	return func(b *Backend) { b.caps = c }
}

// WithAdapter sets the adapter information reported in Caps.
// Software adapters have no auxiliary engine.
func WithAdapter(info gpucontext.AdapterInfo) Option {
	return func(b *Backend) {
		b.caps.Adapter = info
		if info.Type == gpucontext.AdapterTypeSoftware {
			b.caps.HasAuxiliaryEngine = false
		}
	}
}

// DefaultCaps returns the capabilities used when no WithCaps option is given.
func DefaultCaps() backend.Caps {
	return backend.Caps{
		L2Coherent:         false,
		CacheLineSize:      64,
		HasAuxiliaryEngine: true,
		Adapter: gpucontext.AdapterInfo{
			Name: "wgpu-hal",
			Type: gpucontext.AdapterTypeUnknown,
		},
	}
}

// New creates a backend over dev.
func New(dev Device, opts ...Option) *Backend {
	b := &Backend{
		dev:    dev,
		name:   "wgpu-hal",
		caps:   DefaultCaps(),
		nextVA: addressBase,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.caps.CacheLineSize == 0 {
		b.caps.CacheLineSize = 64
	}
	return b
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return b.name }

// Caps implements backend.Backend.
func (b *Backend) Caps() backend.Caps { return b.caps }

// Translator implements backend.Backend.
func (b *Backend) Translator() flush.Translator {
	return flush.DefaultTranslator{L2Coherent: b.caps.L2Coherent}
}

// Stats returns a snapshot of live object counts.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// reserve returns a fresh aligned device address range.
func (b *Backend) reserve(size uint64) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	addr := b.nextVA
	b.nextVA += (size + addressAlign - 1) &^ (addressAlign - 1)
	return addr
}

// mapped creates a buffer of size bytes and maps it whole.
func (b *Backend) mapped(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, []byte, error) {
	buf, err := b.dev.CreateBuffer(&hal.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create %s buffer (%d bytes): %w",
			backend.ErrOutOfDeviceMemory, label, size, err)
	}
	m, err := b.dev.MapBuffer(buf, 0, size)
	if err != nil || m.Ptr == nil {
		b.dev.DestroyBuffer(buf)
		if err == nil {
			err = hal.ErrInvalidMapRange
		}
		return nil, nil, fmt.Errorf("%w: map %s buffer (%d bytes): %w",
			backend.ErrOutOfHostMemory, label, size, err)
	}
	return buf, unsafe.Slice((*byte)(m.Ptr), size), nil
}

// AllocateTransientBlock implements backend.Backend.
func (b *Backend) AllocateTransientBlock(minSize uint64) (*backend.Block, error) {
	if minSize == 0 {
		minSize = addressAlign
	}
	buf, data, err := b.mapped("cmdstream transient", minSize, transientUsage)
	if err != nil {
		return nil, err
	}

	blk := &backend.Block{
		Data:    data,
		Address: b.reserve(minSize),
		Handle:  buf,
	}

	b.mu.Lock()
	b.stats.LiveBlocks++
	b.stats.BlockBytes += minSize
	b.mu.Unlock()
	return blk, nil
}

// ReleaseBlock implements backend.Backend.
func (b *Backend) ReleaseBlock(blk *backend.Block) {
	if blk == nil {
		return
	}
	buf, ok := blk.Handle.(hal.Buffer)
	if !ok {
		return
	}
	_ = b.dev.UnmapBuffer(buf)
	b.dev.DestroyBuffer(buf)

	b.mu.Lock()
	b.stats.LiveBlocks--
	b.stats.BlockBytes -= blk.Size()
	b.mu.Unlock()

	blk.Data = nil
	blk.Handle = nil
}

// CreateStream implements backend.Backend.
func (b *Backend) CreateStream(engine stream.Engine) (*stream.Stream, error) {
	if engine >= stream.EngineCount || (engine == stream.Auxiliary && !b.caps.HasAuxiliaryEngine) {
		return nil, fmt.Errorf("wgpuhal: create stream: %w: %s", backend.ErrEngineUnavailable, engine)
	}
	return stream.New(engine, 1024), nil
}

// FinalizeStream implements backend.Backend. The words are copied into a
// mapped device buffer whose address becomes the stream address.
func (b *Backend) FinalizeStream(s *stream.Stream) error {
	if s.Finalized() {
		return fmt.Errorf("%w: %s stream already finalized", backend.ErrStreamFinalizeFailed, s.Engine())
	}
	size := s.SizeBytes()
	if size == 0 {
		size = 4
	}
	buf, data, err := b.mapped("cmdstream "+s.Engine().String(), size, streamUsage)
	if err != nil {
		return fmt.Errorf("%w: %w", backend.ErrStreamFinalizeFailed, err)
	}
	s.PutBytes(data)
	if err := b.dev.UnmapBuffer(buf); err != nil {
		b.dev.DestroyBuffer(buf)
		return fmt.Errorf("%w: unmap: %w", backend.ErrStreamFinalizeFailed, err)
	}
	s.Finalize(b.reserve(size), buf)

	b.mu.Lock()
	b.stats.LiveStreams++
	b.mu.Unlock()
	return nil
}

// ReleaseStream implements backend.Backend.
func (b *Backend) ReleaseStream(s *stream.Stream) {
	if s == nil {
		return
	}
	if buf, ok := s.Handle().(hal.Buffer); ok {
		b.dev.DestroyBuffer(buf)
		b.mu.Lock()
		b.stats.LiveStreams--
		b.mu.Unlock()
	}
	s.Reset()
}

// UploadShader implements backend.Backend.
func (b *Backend) UploadShader(label string, code []uint32) (*backend.Shader, error) {
	if len(code) == 0 {
		return nil, errors.New("wgpuhal: upload shader: empty code")
	}
	mod, err := b.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create shader module %q: %w", backend.ErrOutOfDeviceMemory, label, err)
	}

	b.mu.Lock()
	b.stats.LiveShaders++
	b.mu.Unlock()

	return &backend.Shader{
		Label:   label,
		Address: b.reserve(uint64(len(code)) * 4),
		Words:   len(code),
		Handle:  mod,
	}, nil
}

// ReleaseShader implements backend.Backend.
func (b *Backend) ReleaseShader(s *backend.Shader) {
	if s == nil {
		return
	}
	if mod, ok := s.Handle.(hal.ShaderModule); ok {
		b.dev.DestroyShaderModule(mod)
		b.mu.Lock()
		b.stats.LiveShaders--
		b.mu.Unlock()
	}
	s.Handle = nil
}

// Close implements backend.Backend. The device itself is owned by the caller.
func (b *Backend) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
