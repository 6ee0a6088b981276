package cmdstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/spirv"

	"github.com/gogpu/cmdstream/backend"
	"github.com/gogpu/cmdstream/cache"
)

// ErrShaderCacheReleased is returned by a ShaderCache whose last
// reference was released.
var ErrShaderCacheReleased = errors.New("cmdstream: shader cache released")

// ShaderDescriptor describes a shader to compile.
type ShaderDescriptor struct {
	Label  string
	Stage  ShaderStage
	Source string // WGSL

	// ScratchBytesPerWave is the private memory one wave of the shader uses.
	ScratchBytesPerWave uint32

	// WorkgroupSize is the local size of compute and task shaders.
	WorkgroupSize [3]uint32
}

// Shader is a compiled, device-resident shader owned by a ShaderCache.
//
// A Shader returned by ShaderCache.Compile holds one reference for the
// caller, who must Release it. The cache keeps its own reference while the
// entry is cached, so evicting a shader an encoder still uses is safe.
type Shader struct {
	label         string
	stage         ShaderStage
	scratch       uint32
	workgroupSize [3]uint32

	dev   *backend.Shader
	owner backend.Backend
	refs  atomic.Int32
}

// Label returns the shader label.
func (s *Shader) Label() string { return s.label }

// Stage returns the stage the shader was compiled for.
func (s *Shader) Stage() ShaderStage { return s.stage }

// Address returns the device address of the shader code.
func (s *Shader) Address() uint64 { return s.dev.Address }

// ScratchBytesPerWave returns the per-wave scratch size.
func (s *Shader) ScratchBytesPerWave() uint32 { return s.scratch }

// WorkgroupSize returns the local workgroup size.
func (s *Shader) WorkgroupSize() [3]uint32 { return s.workgroupSize }

// Retain adds a reference and returns s.
func (s *Shader) Retain() *Shader {
	s.refs.Add(1)
	return s
}

// Release drops a reference. The device code is freed with the last one.
func (s *Shader) Release() {
	switch n := s.refs.Add(-1); {
	case n == 0:
		s.owner.ReleaseShader(s.dev)
	case n < 0:
		panic("cmdstream: Shader released too many times")
	}
}

// ShaderCache is a reference counted, concurrency-safe cache of compiled
// shaders and fragment output epilogs shared by every encoder of the
// devices holding it.
type ShaderCache struct {
	backend  backend.Backend
	validate bool
	entries  *cache.Sharded[uint64, *Shader]
	refs     atomic.Int32

	// compile is naga's WGSL to SPIR-V entry point, replaced in tests.
	compile func(source string, opts naga.CompileOptions) ([]byte, error)

	mu       sync.Mutex
	released bool
}

// NewShaderCache creates a cache that uploads through b. The returned
// cache holds one reference.
func NewShaderCache(b backend.Backend, capacity int, validate bool) *ShaderCache {
	c := &ShaderCache{
		backend:  b,
		validate: validate,
		compile:  naga.CompileWithOptions,
	}
	c.entries = cache.New(capacity, cache.Uint64Hasher,
		cache.WithEvict(func(_ uint64, s *Shader) { s.Release() }))
	c.refs.Store(1)
	return c
}

// Retain adds a reference and returns c.
func (c *ShaderCache) Retain() *ShaderCache {
	c.refs.Add(1)
	return c
}

// Release drops a reference. With the last one every cached shader is
// dropped; shaders still retained elsewhere stay valid until released.
func (c *ShaderCache) Release() {
	if c.refs.Add(-1) != 0 {
		return
	}
	c.mu.Lock()
	c.released = true
	c.mu.Unlock()

	drained := c.entries.Drain()
	for _, s := range drained {
		s.Release()
	}
	Logger().Info("cmdstream: shader cache released", "shaders", len(drained))
}

// Refs returns the current reference count.
func (c *ShaderCache) Refs() int { return int(c.refs.Load()) }

// Len returns the number of cached shaders.
func (c *ShaderCache) Len() int { return c.entries.Len() }

// Stats returns the cache counters.
func (c *ShaderCache) Stats() cache.Stats { return c.entries.Stats() }

func (c *ShaderCache) isReleased() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

func shaderKey(d *ShaderDescriptor) uint64 {
	var meta [20]byte
	binary.LittleEndian.PutUint32(meta[0:], uint32(d.Stage))
	binary.LittleEndian.PutUint32(meta[4:], d.ScratchBytesPerWave)
	binary.LittleEndian.PutUint32(meta[8:], d.WorkgroupSize[0])
	binary.LittleEndian.PutUint32(meta[12:], d.WorkgroupSize[1])
	binary.LittleEndian.PutUint32(meta[16:], d.WorkgroupSize[2])
	return cache.Key([]byte("shader"), meta[:], []byte(d.Source))
}

// Compile returns the shader for desc, compiling and uploading it on a
// miss. Identical descriptors share one device copy. The caller owns one
// reference to the result.
func (c *ShaderCache) Compile(desc ShaderDescriptor) (*Shader, error) {
	if c.isReleased() {
		return nil, ErrShaderCacheReleased
	}
	if desc.Stage >= StageCount {
		return nil, fmt.Errorf("%w: shader stage %d", ErrInvalidArgument, desc.Stage)
	}
	s, _, err := c.entries.GetOrCreateWith(shaderKey(&desc),
		func() (*Shader, error) { return c.build(&desc) },
		func(s *Shader) { s.Retain() })
	if err != nil {
		return nil, err
	}
	return s, nil
}

// build compiles and uploads one shader. The new shader carries the
// cache's reference.
func (c *ShaderCache) build(d *ShaderDescriptor) (*Shader, error) {
	spv, err := c.compile(d.Source, naga.CompileOptions{
		SPIRVVersion: spirv.Version1_3,
		Validate:     c.validate,
	})
	if err != nil {
		return nil, fmt.Errorf("cmdstream: compile shader %q: %w", d.Label, err)
	}
	if len(spv) == 0 || len(spv)%4 != 0 {
		return nil, fmt.Errorf("cmdstream: compile shader %q: SPIR-V size %d is not a word multiple", d.Label, len(spv))
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spv)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spv[i*4:])
	}

	dev, err := c.backend.UploadShader(d.Label, code)
	if err != nil {
		return nil, fmt.Errorf("cmdstream: upload shader %q: %w", d.Label, err)
	}
	s := &Shader{
		label:         d.Label,
		stage:         d.Stage,
		scratch:       d.ScratchBytesPerWave,
		workgroupSize: d.WorkgroupSize,
		dev:           dev,
		owner:         c.backend,
	}
	s.refs.Store(1)
	Logger().Debug("cmdstream: shader compiled", "label", d.Label, "stage", d.Stage, "words", len(code))
	return s, nil
}

// Epilog returns the fragment output epilog for the given color targets.
// It applies each target's write mask to the fragment outputs before
// export. An epilog is only needed when at least one target is bound; for
// no targets Epilog returns nil. The caller owns one reference.
func (c *ShaderCache) Epilog(formats []gputypes.TextureFormat, masks []gputypes.ColorWriteMask) (*Shader, error) {
	n := boundTargets(formats)
	if n == 0 {
		return nil, nil
	}
	key := make([]byte, 0, 2*n*4)
	for i := range n {
		key = binary.LittleEndian.AppendUint32(key, uint32(formats[i]))
		key = binary.LittleEndian.AppendUint32(key, uint32(maskAt(masks, i)))
	}
	return c.Compile(ShaderDescriptor{
		Label:  fmt.Sprintf("epilog-%08x", cache.Key(key)),
		Stage:  StageFragment,
		Source: epilogSource(formats[:n], masks),
	})
}

// boundTargets returns the number of targets up to and including the last
// one with a format.
func boundTargets(formats []gputypes.TextureFormat) int {
	n := len(formats)
	for n > 0 && formats[n-1] == gputypes.TextureFormatUndefined {
		n--
	}
	return n
}

func maskAt(masks []gputypes.ColorWriteMask, i int) gputypes.ColorWriteMask {
	if i < len(masks) {
		return masks[i]
	}
	return gputypes.ColorWriteMaskAll
}

func maskVector(m gputypes.ColorWriteMask) string {
	ch := func(bit gputypes.ColorWriteMask) string {
		if m&bit != 0 {
			return "1.0"
		}
		return "0.0"
	}
	return fmt.Sprintf("vec4<f32>(%s, %s, %s, %s)",
		ch(gputypes.ColorWriteMaskRed), ch(gputypes.ColorWriteMaskGreen),
		ch(gputypes.ColorWriteMaskBlue), ch(gputypes.ColorWriteMaskAlpha))
}

// epilogSource generates the epilog WGSL. A single unmasked target is the
// plain pass-through; other layouts return an output struct.
func epilogSource(formats []gputypes.TextureFormat, masks []gputypes.ColorWriteMask) string {
	if len(formats) == 1 {
		m := maskAt(masks, 0)
		if m == gputypes.ColorWriteMaskAll {
			return "@fragment\nfn main(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> { return color; }\n"
		}
		return fmt.Sprintf("@fragment\nfn main(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> { return color * %s; }\n",
			maskVector(m))
	}

	var b strings.Builder
	b.WriteString("struct Out {\n")
	for i, f := range formats {
		if f == gputypes.TextureFormatUndefined {
			continue
		}
		fmt.Fprintf(&b, "    @location(%d) c%d: vec4<f32>,\n", i, i)
	}
	b.WriteString("}\n\n@fragment\nfn main(")
	first := true
	for i, f := range formats {
		if f == gputypes.TextureFormatUndefined {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "@location(%d) i%d: vec4<f32>", i, i)
	}
	b.WriteString(") -> Out {\n    var o: Out;\n")
	for i, f := range formats {
		if f == gputypes.TextureFormatUndefined {
			continue
		}
		fmt.Fprintf(&b, "    o.c%d = i%d * %s;\n", i, i, maskVector(maskAt(masks, i)))
	}
	b.WriteString("    return o;\n}\n")
	return b.String()
}
