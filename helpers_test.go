//go:build !(js && wasm)

package cmdstream

import (
	"encoding/binary"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/cmdstream/backend"
	"github.com/gogpu/cmdstream/backend/wgpuhal"
	"github.com/gogpu/cmdstream/stream"
)

// fakeCompile stands in for naga. It returns a two-word module: the SPIR-V
// magic and the source length. Sources containing "syntax error" fail.
func fakeCompile(source string, _ naga.CompileOptions) ([]byte, error) {
	if strings.Contains(source, "syntax error") {
		return nil, errors.New("fake compiler: syntax error")
	}
	buf := binary.LittleEndian.AppendUint32(nil, 0x07230203)
	return binary.LittleEndian.AppendUint32(buf, uint32(len(source))), nil
}

// softwareCaps are the caps of a device without an auxiliary engine.
func softwareCaps() backend.Caps {
	c := wgpuhal.DefaultCaps()
	c.HasAuxiliaryEngine = false
	c.Adapter = gpucontext.AdapterInfo{Name: "test", Type: gpucontext.AdapterTypeSoftware}
	return c
}

// fixture is a device over the noop HAL device with a handful of shaders.
type fixture struct {
	hal  *wgpuhal.Backend
	dev  *Device
	pool *Pool

	vs, fs, ms, ts, cs *Shader
}

func newFixture(t *testing.T, caps backend.Caps, cfg Config) *fixture {
	t.Helper()
	return newFixtureOn(t, wgpuhal.New(&noop.Device{}, wgpuhal.WithCaps(caps)), cfg)
}

func newFixtureOn(t *testing.T, b *wgpuhal.Backend, cfg Config) *fixture {
	t.Helper()
	dev, err := NewDevice(WithBackend(b), WithConfig(cfg))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	dev.shaders.compile = fakeCompile
	t.Cleanup(dev.Close)

	pool, err := dev.NewPool(PoolResetIndividual)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Destroy)

	f := &fixture{hal: b, dev: dev, pool: pool}
	f.vs = f.shader(t, ShaderDescriptor{Label: "vs", Stage: StageVertex, Source: "@vertex fn main() {}"})
	f.fs = f.shader(t, ShaderDescriptor{Label: "fs", Stage: StageFragment, Source: "@fragment fn main() {}"})
	f.ms = f.shader(t, ShaderDescriptor{Label: "ms", Stage: StageMesh, Source: "mesh",
		WorkgroupSize: [3]uint32{128, 1, 1}})
	f.ts = f.shader(t, ShaderDescriptor{Label: "ts", Stage: StageTask, Source: "task",
		ScratchBytesPerWave: 512, WorkgroupSize: [3]uint32{32, 1, 1}})
	f.cs = f.shader(t, ShaderDescriptor{Label: "cs", Stage: StageCompute, Source: "@compute fn main() {}",
		ScratchBytesPerWave: 256, WorkgroupSize: [3]uint32{64, 1, 1}})
	return f
}

func (f *fixture) shader(t *testing.T, d ShaderDescriptor) *Shader {
	t.Helper()
	s, err := f.dev.ShaderCache().Compile(d)
	if err != nil {
		t.Fatalf("Compile(%s): %v", d.Label, err)
	}
	t.Cleanup(s.Release)
	return s
}

// triangle is a vertex + fragment pipeline with all state dynamic.
func (f *fixture) triangle() *GraphicsPipeline {
	return &GraphicsPipeline{
		Label:              "triangle",
		Shaders:            [StageCount]*Shader{StageVertex: f.vs, StageFragment: f.fs},
		PushConstantStages: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
	}
}

// meshlets is a mesh + fragment pipeline.
func (f *fixture) meshlets() *GraphicsPipeline {
	return &GraphicsPipeline{
		Label:   "meshlets",
		Shaders: [StageCount]*Shader{StageMesh: f.ms, StageFragment: f.fs},
	}
}

var (
	testViewport = Viewport{Width: 640, Height: 480, MaxDepth: 1}
	testScissor  = Rect{Width: 640, Height: 480}
	testTarget   = RenderingInfo{
		Area:         Rect{Width: 640, Height: 480},
		ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
	}
)

// allocate returns a recording encoder with nothing bound.
func (f *fixture) allocate(t *testing.T, level Level) *Encoder {
	t.Helper()
	e, err := f.pool.Allocate(level)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := e.Begin(BeginInfo{OneTimeSubmit: true}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return e
}

// begin returns a recording primary encoder inside a rendering scope with
// p bound and one viewport and scissor set.
func (f *fixture) begin(t *testing.T, p *GraphicsPipeline) *Encoder {
	t.Helper()
	e := f.allocate(t, LevelPrimary)
	e.BeginRendering(testTarget)
	e.BindGraphicsPipeline(p)
	e.SetViewportsWithCount(testViewport)
	e.SetScissorsWithCount(testScissor)
	return e
}

// mark returns the current length of the engine's stream.
func mark(e *Encoder, eng stream.Engine) int {
	return len(e.Words(eng))
}

// since returns the words recorded on the engine after m.
func since(e *Encoder, eng stream.Engine, m int) []uint32 {
	return e.Words(eng)[m:]
}

// regWrites replays the register writes in words and returns the final
// value of every register written.
func regWrites(t *testing.T, words []uint32) map[uint32]uint32 {
	t.Helper()
	m := make(map[uint32]uint32)
	err := stream.Walk(words, func(in stream.Instruction) bool {
		switch in.Op {
		case stream.SetReg:
			m[in.Operands[0]] = in.Operands[1]
		case stream.SetRegSeq:
			for i, v := range in.Operands[1:] {
				m[in.Operands[0]+uint32(i)] = v
			}
		}
		return true
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

// opcodes returns the opcode of every instruction in words.
func opcodes(t *testing.T, words []uint32) []stream.Opcode {
	t.Helper()
	insts, err := stream.Decode(words)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ops := make([]stream.Opcode, len(insts))
	for i, in := range insts {
		ops[i] = in.Op
	}
	return ops
}

// find returns the instructions with opcode op.
func find(t *testing.T, words []uint32, op stream.Opcode) []stream.Instruction {
	t.Helper()
	insts, err := stream.Decode(words)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var out []stream.Instruction
	for _, in := range insts {
		if in.Op == op {
			out = append(out, in)
		}
	}
	return out
}

// containsRun reports whether sub occurs contiguously in words.
func containsRun(words, sub []uint32) bool {
	if len(sub) == 0 {
		return true
	}
	for i := 0; i+len(sub) <= len(words); i++ {
		if slices.Equal(words[i:i+len(sub)], sub) {
			return true
		}
	}
	return false
}
