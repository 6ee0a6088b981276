package flush

import (
	"testing"

	"github.com/gogpu/cmdstream/stream"
)

func TestSrcFlush(t *testing.T) {
	tests := []struct {
		name   string
		tr     DefaultTranslator
		stages Stage
		access Access
		hint   *ResourceHint
		want   Bits
		none   Bits
	}{
		{
			name:   "color write unknown resource",
			stages: StageColorAttachmentOutput,
			access: AccessColorAttachmentWrite,
			want:   FlushAndInvalidateCB | FlushAndInvalidateCBMeta | PSPartialFlush,
			none:   InvalidateVMem | InvalidateSMem,
		},
		{
			name:   "color write without metadata",
			stages: StageColorAttachmentOutput,
			access: AccessColorAttachmentWrite,
			hint:   &ResourceHint{Image: true},
			want:   FlushAndInvalidateCB | PSPartialFlush,
			none:   FlushAndInvalidateCBMeta,
		},
		{
			name:   "depth write with metadata",
			stages: StageLateFragmentTests,
			access: AccessDepthStencilWrite,
			hint:   &ResourceHint{Image: true, HasDepthMetadata: true},
			want:   FlushAndInvalidateDB | FlushAndInvalidateDBMeta,
			none:   FlushAndInvalidateCB,
		},
		{
			name:   "compute storage write non-coherent",
			stages: StageComputeShader,
			access: AccessShaderWrite,
			hint:   &ResourceHint{},
			want:   CSPartialFlush | WritebackL2,
			none:   PSPartialFlush | FlushAndInvalidateCB,
		},
		{
			name:   "compute storage write coherent",
			tr:     DefaultTranslator{L2Coherent: true},
			stages: StageComputeShader,
			access: AccessShaderWrite,
			want:   CSPartialFlush,
			none:   WritebackL2,
		},
		{
			name:   "vertex stage only",
			stages: StageVertexShader,
			access: AccessShaderWrite,
			want:   VSPartialFlush,
			none:   PSPartialFlush | CSPartialFlush,
		},
		{
			name:   "top of pipe no access",
			stages: StageTopOfPipe,
			want:   0,
			none:   ^Bits(0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tr.SrcFlush(tt.stages, tt.access, tt.hint)
			if !got.Has(tt.want) {
				t.Errorf("SrcFlush = %s, want at least %s", got, tt.want)
			}
			if got&tt.none != 0 {
				t.Errorf("SrcFlush = %s, must not contain %s", got, got&tt.none)
			}
		})
	}
}

func TestDstFlush(t *testing.T) {
	tests := []struct {
		name   string
		tr     DefaultTranslator
		stages Stage
		access Access
		hint   *ResourceHint
		want   Bits
		none   Bits
	}{
		{
			name:   "uniform read",
			stages: StageFragmentShader,
			access: AccessUniformRead,
			want:   InvalidateSMem | InvalidateVMem | InvalidateL2,
			none:   WritebackL2 | FlushAndInvalidateCB,
		},
		{
			name:   "sampled compressed image",
			tr:     DefaultTranslator{L2Coherent: true},
			stages: StageFragmentShader,
			access: AccessShaderRead,
			hint:   &ResourceHint{Image: true, HasColorMetadata: true},
			want:   InvalidateVMem | InvalidateL2Metadata,
			none:   InvalidateL2 | WritebackL2,
		},
		{
			name:   "indirect read coherent",
			tr:     DefaultTranslator{L2Coherent: true},
			stages: StageDrawIndirect,
			access: AccessIndirectCommandRead,
			want:   0,
			none:   ^Bits(0),
		},
		{
			name:   "depth read",
			stages: StageEarlyFragmentTests,
			access: AccessDepthStencilRead,
			hint:   &ResourceHint{Image: true},
			want:   FlushAndInvalidateDB,
			none:   FlushAndInvalidateDBMeta | WritebackL2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tr.DstFlush(tt.stages, tt.access, tt.hint)
			if !got.Has(tt.want) {
				t.Errorf("DstFlush = %s, want at least %s", got, tt.want)
			}
			if got&tt.none != 0 {
				t.Errorf("DstFlush = %s, must not contain %s", got, got&tt.none)
			}
		})
	}
}

func TestDstNeverWritesBack(t *testing.T) {
	tr := DefaultTranslator{}
	for a := Access(1); a <= AccessConditionalRenderingRead; a <<= 1 {
		if got := tr.DstFlush(StageAllCommands, a, nil); got&WritebackL2 != 0 {
			t.Errorf("DstFlush(%#x) = %s, consumers must not write back", a, got)
		}
	}
}

func TestAccumulator(t *testing.T) {
	var a Accumulator
	s := stream.New(stream.Primary, 8)

	if got := a.Flush(stream.Primary, s); got != 0 || s.Len() != 0 {
		t.Fatalf("empty Flush emitted %s, %d words", got, s.Len())
	}

	a.Add(stream.Primary, CSPartialFlush)
	a.Add(stream.Primary, InvalidateVMem)
	a.Add(stream.Auxiliary, InvalidateL2)

	want := CSPartialFlush | InvalidateVMem
	if got := a.Pending(stream.Primary); got != want {
		t.Fatalf("Pending(primary) = %s, want %s", got, want)
	}

	// Taking then re-adding reproduces the same set.
	taken := a.Take(stream.Primary)
	a.Add(stream.Primary, taken)
	if got := a.Pending(stream.Primary); got != want {
		t.Errorf("re-accumulated = %s, want %s", got, want)
	}

	if got := a.Flush(stream.Primary, s); got != want {
		t.Errorf("Flush = %s, want %s", got, want)
	}
	ins, err := stream.Decode(s.Words())
	if err != nil || len(ins) != 1 || ins[0].Op != stream.CacheFlush || Bits(ins[0].Operands[0]) != want {
		t.Fatalf("emitted %v (err %v), want one CacheFlush(%s)", ins, err, want)
	}

	if a.Pending(stream.Primary) != 0 {
		t.Error("primary bits not cleared after Flush")
	}
	if a.Pending(stream.Auxiliary) != InvalidateL2 {
		t.Error("auxiliary bits touched by primary Flush")
	}

	// Second flush is a no-op.
	if got := a.Flush(stream.Primary, s); got != 0 || s.Len() != 2 {
		t.Errorf("second Flush emitted %s, len %d", got, s.Len())
	}

	a.Reset()
	if a.Pending(stream.Auxiliary) != 0 {
		t.Error("Reset left auxiliary bits")
	}
}

func TestBitsString(t *testing.T) {
	tests := []struct {
		b    Bits
		want string
	}{
		{0, "None"},
		{InvalidateL2, "InvalidateL2"},
		{PSPartialFlush | CSPartialFlush, "PSPartialFlush|CSPartialFlush"},
	}
	for _, tt := range tests {
		if got := tt.b.String(); got != tt.want {
			t.Errorf("Bits(%#x).String() = %q, want %q", uint32(tt.b), got, tt.want)
		}
	}
}

func TestRequiresIdleWait(t *testing.T) {
	if InvalidateVMem.RequiresIdleWait() {
		t.Error("InvalidateVMem should not require idle")
	}
	for _, b := range []Bits{FlushAndInvalidateCB, FlushAndInvalidateDB, PSPartialFlush, CSPartialFlush} {
		if !b.RequiresIdleWait() {
			t.Errorf("%s should require idle", b)
		}
	}
}
