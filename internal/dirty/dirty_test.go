package dirty

import (
	"math"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestMaskOps(t *testing.T) {
	m := MaskOf(Viewport, Predication, AlphaToOneEnable)
	if !m.Has(Viewport) || !m.Has(Predication) || m.Has(Scissor) {
		t.Fatalf("MaskOf membership wrong: %s", m)
	}
	if m.Count() != 3 {
		t.Errorf("Count() = %d, want 3", m.Count())
	}
	if Predication < 64 {
		t.Fatalf("Predication = %d, want bit beyond the first word", Predication)
	}

	var seen []Bit
	m.Each(func(b Bit) { seen = append(seen, b) })
	want := []Bit{Viewport, AlphaToOneEnable, Predication}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Each order = %v, want %v", seen, want)
			break
		}
	}

	if got := m.Without(Predication); got.Has(Predication) || got.Count() != 2 {
		t.Errorf("Without = %s", got)
	}
	if !All().Contains(m) || m.Contains(All()) {
		t.Error("Contains wrong")
	}
	if All().Count() != Count {
		t.Errorf("All().Count() = %d, want %d", All().Count(), Count)
	}
	if AllDynamic().Count() != DynamicCount || DynamicCount != 51 {
		t.Errorf("AllDynamic().Count() = %d, DynamicCount = %d, want 51", AllDynamic().Count(), DynamicCount)
	}
	if (Mask{}).String() != "{}" || MaskOf(Scissor).String() != "{Scissor}" {
		t.Errorf("String() = %q / %q", (Mask{}).String(), MaskOf(Scissor).String())
	}
}

func TestClosureContainsAdjacency(t *testing.T) {
	for b := Bit(0); b < bitCount; b++ {
		c := Closure(b)
		if !c.Has(b) {
			t.Errorf("Closure(%s) missing itself", b)
		}
		for _, adj := range Adjacent(b) {
			if !c.Has(adj) {
				t.Errorf("Closure(%s) missing adjacent %s", b, adj)
			}
			// Transitivity: everything adj reaches, b reaches.
			if !c.Contains(Closure(adj)) {
				t.Errorf("Closure(%s) does not contain Closure(%s)", b, adj)
			}
		}
	}
}

func TestClosureTransitive(t *testing.T) {
	// DepthClampEnable -> Viewport -> {Scissor, Guardband}
	c := Closure(DepthClampEnable)
	for _, b := range []Bit{DepthClampEnable, Viewport, Scissor, Guardband} {
		if !c.Has(b) {
			t.Errorf("Closure(DepthClampEnable) missing %s: %s", b, c)
		}
	}
	if c.Has(LineWidth) {
		t.Errorf("Closure(DepthClampEnable) has unrelated LineWidth")
	}
}

// derivedInputs lists, for each derived category, the state it is computed
// from. A change to any input must leave the category dirty.
var derivedInputs = map[Bit][]Bit{
	Scissor:          {Viewport},
	Guardband:        {Viewport, LineWidth, PrimitiveTopology, PolygonMode, Pipeline, DepthClampEnable},
	LineStipple:      {PrimitiveTopology, RasterizationSamples, LineRasterizationMode, LineStippleEnable},
	SampleLocations:  {RasterizationSamples, SampleLocationsEnable},
	DiscardRectangle: {DiscardRectangleEnable, DiscardRectangleMode},
	RBPlus: {ColorWriteMask, ColorWriteEnable, ColorBlendEnable, ColorBlendEquation,
		Pipeline, Framebuffer},
	DBShaderControl: {ColorWriteMask, ColorWriteEnable, AlphaToCoverageEnable, AlphaToOneEnable,
		RasterizationSamples, ConservativeRastMode, AttachmentFeedbackLoopEnable, Pipeline,
		Framebuffer, OcclusionQuery},
	VertexBuffer:    {VertexInput, VertexInputBindingStride, Pipeline},
	GraphicsShaders: {Pipeline},
	ShaderQuery:     {Pipeline},
	StreamoutBuffer: {Pipeline},
	StreamoutEnable: {StreamoutBuffer, Pipeline},
}

func TestDerivedStateFollowsInputs(t *testing.T) {
	for derived, inputs := range derivedInputs {
		for _, in := range inputs {
			if !Closure(in).Has(derived) {
				t.Errorf("changing %s leaves %s clean", in, derived)
			}
		}
	}
}

func TestConsume(t *testing.T) {
	var tr Tracker
	tr.Mark(LineWidth)
	tr.Mark(CullMode)

	got := tr.Consume(MaskOf(Guardband, CullMode, DepthBias))
	if !got.Has(Guardband) || !got.Has(CullMode) || got.Has(DepthBias) {
		t.Errorf("Consume = %s", got)
	}
	if !tr.IsDirty(LineWidth) {
		t.Error("Consume cleared a bit outside the category")
	}
	if tr.IsDirty(Guardband) || tr.IsDirty(CullMode) {
		t.Error("Consume left consumed bits set")
	}
	if again := tr.Consume(MaskOf(Guardband)); !again.IsZero() {
		t.Errorf("second Consume = %s, want empty", again)
	}
}

func TestFieldSetDiffs(t *testing.T) {
	var tr Tracker
	f := NewField(CullMode, gputypes.CullModeNone)

	if f.Set(&tr, gputypes.CullModeNone) || !tr.Dirty().IsZero() {
		t.Fatal("setting the default value marked dirty")
	}
	if !f.Set(&tr, gputypes.CullModeBack) || !tr.IsDirty(CullMode) {
		t.Fatal("change not marked")
	}
	tr.Reset()
	if f.Set(&tr, gputypes.CullModeBack) || tr.IsDirty(CullMode) {
		t.Error("identical re-set marked dirty")
	}
	if f.Get() != gputypes.CullModeBack {
		t.Errorf("Get() = %v", f.Get())
	}
	f.Reset()
	if f.Get() != gputypes.CullModeNone {
		t.Errorf("Reset left %v", f.Get())
	}
}

func TestFloatFieldBitwise(t *testing.T) {
	var tr Tracker
	f := NewFieldFunc(LineWidth, float32(0), Float32Equal)

	negZero := float32(math.Copysign(0, -1))
	if !f.Set(&tr, negZero) {
		t.Error("-0 treated as equal to +0")
	}

	nan := float32(math.NaN())
	tr.Reset()
	f.Set(&tr, nan)
	tr.Reset()
	if f.Set(&tr, nan) {
		t.Error("identical NaN treated as a change")
	}
}

func TestListSet(t *testing.T) {
	var tr Tracker
	l := NewList(ColorWriteMask, 4, gputypes.ColorWriteMaskAll)

	all := gputypes.ColorWriteMaskAll
	if !l.Set(&tr, []gputypes.ColorWriteMask{all, all}) {
		t.Fatal("count change from 0 to 2 not detected")
	}
	tr.Reset()
	if l.Set(&tr, []gputypes.ColorWriteMask{all, all}) {
		t.Error("identical list marked dirty")
	}
	if !l.Set(&tr, []gputypes.ColorWriteMask{all}) {
		t.Error("count-only change not detected")
	}
	if l.Len() != 1 || l.At(1) != all {
		t.Errorf("after shrink Len=%d At(1)=%v", l.Len(), l.At(1))
	}

	tr.Reset()
	if !l.Set(&tr, []gputypes.ColorWriteMask{gputypes.ColorWriteMaskRed}) {
		t.Error("element change not detected")
	}
	if !tr.IsDirty(RBPlus) || !tr.IsDirty(DBShaderControl) {
		t.Errorf("propagation missing: %s", tr.Dirty())
	}

	// Truncated to capacity.
	l.Set(&tr, make([]gputypes.ColorWriteMask, 10))
	if l.Len() != 4 {
		t.Errorf("Len() = %d, want capacity 4", l.Len())
	}
}

func TestListSetRange(t *testing.T) {
	var tr Tracker
	l := NewListEq(Viewport, MaxViewports, ViewportRect{MaxDepth: 1})

	vp := ViewportRect{Width: 100, Height: 100, MaxDepth: 1}
	if !l.SetRange(&tr, 2, []ViewportRect{vp}) {
		t.Fatal("SetRange change not detected")
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
	if !tr.IsDirty(Guardband) || !tr.IsDirty(Scissor) {
		t.Errorf("viewport propagation missing: %s", tr.Dirty())
	}

	tr.Reset()
	if l.SetRange(&tr, 2, []ViewportRect{vp}) {
		t.Error("identical SetRange marked dirty")
	}
	if l.SetRange(&tr, 0, []ViewportRect{{MaxDepth: 1}}) {
		t.Error("SetRange of default value inside count marked dirty")
	}
	if l.Len() != 3 {
		t.Errorf("SetRange shrank count to %d", l.Len())
	}
	if l.SetRange(&tr, MaxViewports, []ViewportRect{vp}) {
		t.Error("out-of-range SetRange reported a change")
	}
}

func TestBlendScenario(t *testing.T) {
	var tr Tracker
	s := NewDynamicState()

	blend := gputypes.BlendStateAlpha()
	eq := []gputypes.BlendState{blend}

	if !s.ColorBlendEquations.Set(&tr, eq) {
		t.Fatal("first blend set not detected")
	}
	if !tr.IsDirty(ColorBlendEquation) || !tr.IsDirty(RBPlus) {
		t.Fatalf("dirty = %s", tr.Dirty())
	}
	tr.Consume(All())

	if s.ColorBlendEquations.Set(&tr, eq) {
		t.Error("second identical blend set reported a change")
	}
	if !tr.Dirty().IsZero() {
		t.Errorf("dirty after identical set = %s", tr.Dirty())
	}
}

func TestDynamicStateDefaults(t *testing.T) {
	s := NewDynamicState()
	if s.LineWidth.Get() != 1 {
		t.Errorf("LineWidth = %v, want 1", s.LineWidth.Get())
	}
	if s.SampleMask.Get() != 0xFFFFFFFF {
		t.Errorf("SampleMask = %#x", s.SampleMask.Get())
	}
	if s.RasterizationSamples.Get() != 1 {
		t.Errorf("RasterizationSamples = %d", s.RasterizationSamples.Get())
	}
	if s.DepthBounds.Get() != (DepthRange{0, 1}) {
		t.Errorf("DepthBounds = %+v", s.DepthBounds.Get())
	}

	var tr Tracker
	s.LineWidth.Set(&tr, 2)
	s.Viewports.Set(&tr, []ViewportRect{{Width: 1}})
	s.Reset()
	if s.LineWidth.Get() != 1 || s.Viewports.Len() != 0 {
		t.Error("Reset did not restore defaults")
	}
}
