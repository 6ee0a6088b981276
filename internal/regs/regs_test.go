package regs

import (
	"math"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdstream/stream"
)

func TestStageTableDisjoint(t *testing.T) {
	seen := make(map[uint32]string)
	claim := func(r uint32, what string) {
		if r >= Count {
			t.Errorf("%s register %d beyond Count %d", what, r, Count)
		}
		if prev, ok := seen[r]; ok {
			t.Errorf("register %d used by %s and %s", r, prev, what)
		}
		seen[r] = what
	}
	for _, s := range Stages {
		claim(s.PgmLo, s.Stage.String()+".pgm_lo")
		claim(s.PgmHi, s.Stage.String()+".pgm_hi")
		claim(s.Rsrc1, s.Stage.String()+".rsrc1")
		claim(s.Rsrc2, s.Stage.String()+".rsrc2")
		for i := 0; i < s.Slots; i++ {
			claim(s.UserDataReg(i), s.Stage.String()+".user_data")
		}
		if s.PgmLo < stageBase {
			t.Errorf("%s block overlaps fixed registers", s.Stage)
		}
	}
	if Stages[StageTask].Engine != stream.Auxiliary {
		t.Error("task stage must program the auxiliary engine")
	}
	if !Stages[StageCompute].Compute || Stages[StageFragment].Compute {
		t.Error("Compute flag wrong")
	}
}

func TestViewport(t *testing.T) {
	xf, zmin, zmax := Viewport(10, 20, 100, 50, 0.25, 0.75, false)
	want := [ViewportRegs]float32{50, 60, 25, 45, 0.5, 0.25}
	for i, w := range want {
		if got := math.Float32frombits(xf[i]); got != w {
			t.Errorf("xform[%d] = %v, want %v", i, got, w)
		}
	}
	if math.Float32frombits(zmin) != 0.25 || math.Float32frombits(zmax) != 0.75 {
		t.Errorf("z range = %v..%v", math.Float32frombits(zmin), math.Float32frombits(zmax))
	}

	xf, _, _ = Viewport(0, 0, 2, 2, 0, 1, true)
	if math.Float32frombits(xf[ViewportZScale]) != 0.5 || math.Float32frombits(xf[ViewportZOffset]) != 0.5 {
		t.Errorf("[-1,1] depth: scale %v offset %v",
			math.Float32frombits(xf[ViewportZScale]), math.Float32frombits(xf[ViewportZOffset]))
	}
}

func TestScissorClamps(t *testing.T) {
	tl, br := Scissor(-5, 10, 20000, 5)
	if tl != 0|10<<16 {
		t.Errorf("tl = %#x", tl)
	}
	if br != MaxScreenCoord|15<<16 {
		t.Errorf("br = %#x", br)
	}
}

func TestDiscardRule(t *testing.T) {
	tests := []struct {
		name      string
		enable    bool
		exclusive bool
		count     int
		want      uint32
	}{
		{"disabled", false, false, 4, 0xFFFF},
		{"inclusive one", true, false, 1, 0xAAAA},
		{"exclusive one", true, true, 1, 0x5555},
		{"exclusive none", true, true, 0, 0xFFFF},
		{"inclusive none", true, false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiscardRule(tt.enable, tt.exclusive, tt.count); got != tt.want {
				t.Errorf("DiscardRule = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestBlendControl(t *testing.T) {
	if BlendControl(false, gputypes.BlendStateAlpha()) != 0 {
		t.Error("disabled blend must pack to zero")
	}
	a := BlendControl(true, gputypes.BlendStateAlpha())
	r := BlendControl(true, gputypes.BlendStateReplace())
	if a == r {
		t.Error("different equations packed identically")
	}
	if a&(1<<30) == 0 {
		t.Error("enable bit missing")
	}
}

func TestTargetMask(t *testing.T) {
	masks := []gputypes.ColorWriteMask{gputypes.ColorWriteMaskAll, gputypes.ColorWriteMaskRed, gputypes.ColorWriteMaskAll}
	got := TargetMask(masks, 0xFF, 0b011)
	if want := uint32(0xF | 0x1<<4); got != want {
		t.Errorf("TargetMask = %#x, want %#x", got, want)
	}
	if TargetMask(masks, 0b10, 0xFF) != 0x1<<4 {
		t.Error("write enable not honored")
	}
}

func TestAAConfig(t *testing.T) {
	for samples, log := range map[uint32]uint32{0: 0, 1: 0, 2: 1, 4: 2, 8: 3} {
		if got := AAConfigWord(samples) & 0xF; got != log {
			t.Errorf("AAConfigWord(%d) = %d, want %d", samples, got, log)
		}
	}
}

func TestSampleLoc(t *testing.T) {
	if got := SampleLoc(0.5, 0.5); got != 0 {
		t.Errorf("center = %#x, want 0", got)
	}
	if got := SampleLoc(0, 0.9375); got != 0x8|0x7<<4 {
		t.Errorf("corner = %#x", got)
	}
}

func TestPrimitiveType(t *testing.T) {
	if PrimitiveTypeWord(gputypes.PrimitiveTopologyLineStrip, 0) != PrimLineStrip {
		t.Error("line strip")
	}
	if PrimitiveTypeWord(gputypes.PrimitiveTopologyTriangleList, 3) != PrimPatch {
		t.Error("patch list")
	}
	if !IsLineTopology(gputypes.PrimitiveTopologyLineList) || IsLineTopology(gputypes.PrimitiveTopologyPointList) {
		t.Error("IsLineTopology")
	}
}

func TestLineCntl(t *testing.T) {
	if got := LineCntlWord(1); got != 8 {
		t.Errorf("LineCntlWord(1) = %d, want 8", got)
	}
	if got := LineCntlWord(float32(math.NaN())); got != 0 {
		t.Errorf("LineCntlWord(NaN) = %d, want 0", got)
	}
	if got := LineCntlWord(1e9); got != 0xFFFF {
		t.Errorf("LineCntlWord(huge) = %#x", got)
	}
}
