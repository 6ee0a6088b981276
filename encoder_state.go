package cmdstream

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdstream/internal/dirty"
)

func rangeError(what string, first, n, limit int) error {
	return fmt.Errorf("%w: %s [%d, %d) exceeds %d", ErrInvalidArgument, what, first, first+n, limit)
}

func inRange(first, n, limit int) bool {
	return first >= 0 && n >= 0 && first+n <= limit
}

// SetViewports updates viewports starting at first. The viewport count
// grows to cover the range.
func (e *Encoder) SetViewports(first int, viewports ...Viewport) {
	if !e.ok() {
		return
	}
	if !inRange(first, len(viewports), dirty.MaxViewports) {
		e.fail(rangeError("viewports", first, len(viewports), dirty.MaxViewports))
		return
	}
	e.dyn.Viewports.SetRange(&e.tracker, first, viewports)
}

// SetViewportsWithCount replaces every viewport and the viewport count.
func (e *Encoder) SetViewportsWithCount(viewports ...Viewport) {
	if !e.ok() {
		return
	}
	if len(viewports) > dirty.MaxViewports {
		e.fail(rangeError("viewports", 0, len(viewports), dirty.MaxViewports))
		return
	}
	e.dyn.Viewports.Set(&e.tracker, viewports)
}

// SetScissors updates scissor rectangles starting at first.
func (e *Encoder) SetScissors(first int, rects ...Rect) {
	if !e.ok() {
		return
	}
	if !inRange(first, len(rects), dirty.MaxViewports) {
		e.fail(rangeError("scissors", first, len(rects), dirty.MaxViewports))
		return
	}
	e.dyn.Scissors.SetRange(&e.tracker, first, rects)
}

// SetScissorsWithCount replaces every scissor rectangle and the count.
func (e *Encoder) SetScissorsWithCount(rects ...Rect) {
	if !e.ok() {
		return
	}
	if len(rects) > dirty.MaxViewports {
		e.fail(rangeError("scissors", 0, len(rects), dirty.MaxViewports))
		return
	}
	e.dyn.Scissors.Set(&e.tracker, rects)
}

// SetLineWidth sets the rasterized line width.
func (e *Encoder) SetLineWidth(width float32) {
	if e.ok() {
		e.dyn.LineWidth.Set(&e.tracker, width)
	}
}

// SetDepthBias sets the depth bias factors.
func (e *Encoder) SetDepthBias(b DepthBias) {
	if e.ok() {
		e.dyn.DepthBias.Set(&e.tracker, b)
	}
}

// SetBlendConstants sets the constant blend color.
func (e *Encoder) SetBlendConstants(c gputypes.Color) {
	if e.ok() {
		e.dyn.BlendConstants.Set(&e.tracker, dirty.Color(c))
	}
}

// SetDepthBounds sets the depth bounds test range.
func (e *Encoder) SetDepthBounds(minDepth, maxDepth float32) {
	if e.ok() {
		e.dyn.DepthBounds.Set(&e.tracker, dirty.DepthRange{Min: minDepth, Max: maxDepth})
	}
}

func setStencilPair(e *Encoder, f *dirty.Field[dirty.StencilPair], face StencilFace, v uint32) {
	p := f.Get()
	if face&StencilFaceFront != 0 {
		p.Front = v
	}
	if face&StencilFaceBack != 0 {
		p.Back = v
	}
	f.Set(&e.tracker, p)
}

// SetStencilCompareMask sets the stencil compare mask of the given faces.
func (e *Encoder) SetStencilCompareMask(face StencilFace, mask uint32) {
	if e.ok() {
		setStencilPair(e, &e.dyn.StencilCompareMask, face, mask)
	}
}

// SetStencilWriteMask sets the stencil write mask of the given faces.
func (e *Encoder) SetStencilWriteMask(face StencilFace, mask uint32) {
	if e.ok() {
		setStencilPair(e, &e.dyn.StencilWriteMask, face, mask)
	}
}

// SetStencilReference sets the stencil reference of the given faces.
func (e *Encoder) SetStencilReference(face StencilFace, ref uint32) {
	if e.ok() {
		setStencilPair(e, &e.dyn.StencilReference, face, ref)
	}
}

// SetStencilOp sets the stencil operations and compare function of the
// given faces.
func (e *Encoder) SetStencilOp(face StencilFace, state gputypes.StencilFaceState) {
	if !e.ok() {
		return
	}
	ops := e.dyn.StencilOp.Get()
	if face&StencilFaceFront != 0 {
		ops.Front = state
	}
	if face&StencilFaceBack != 0 {
		ops.Back = state
	}
	e.dyn.StencilOp.Set(&e.tracker, ops)
}

// SetDiscardRectangles updates discard rectangles starting at first.
func (e *Encoder) SetDiscardRectangles(first int, rects ...Rect) {
	if !e.ok() {
		return
	}
	if !inRange(first, len(rects), dirty.MaxDiscardRectangles) {
		e.fail(rangeError("discard rectangles", first, len(rects), dirty.MaxDiscardRectangles))
		return
	}
	e.dyn.DiscardRectangles.SetRange(&e.tracker, first, rects)
}

// SetSampleLocations sets a custom sample pattern.
func (e *Encoder) SetSampleLocations(l SampleLocations) {
	if !e.ok() {
		return
	}
	if l.Count > dirty.MaxSampleLocations {
		e.fail(rangeError("sample locations", 0, int(l.Count), dirty.MaxSampleLocations))
		return
	}
	e.dyn.SampleLocations.Set(&e.tracker, l)
}

// SetLineStipple sets the line stipple factor and pattern.
func (e *Encoder) SetLineStipple(s LineStipple) {
	if e.ok() {
		e.dyn.LineStipple.Set(&e.tracker, s)
	}
}

// SetCullMode sets the face culling mode.
func (e *Encoder) SetCullMode(m gputypes.CullMode) {
	if e.ok() {
		e.dyn.CullMode.Set(&e.tracker, m)
	}
}

// SetFrontFace sets the front-facing winding.
func (e *Encoder) SetFrontFace(f gputypes.FrontFace) {
	if e.ok() {
		e.dyn.FrontFace.Set(&e.tracker, f)
	}
}

// SetPrimitiveTopology sets the input primitive topology.
func (e *Encoder) SetPrimitiveTopology(t gputypes.PrimitiveTopology) {
	if e.ok() {
		e.dyn.PrimitiveTopology.Set(&e.tracker, t)
	}
}

// SetDepthTestEnable enables the depth test.
func (e *Encoder) SetDepthTestEnable(enable bool) {
	if e.ok() {
		e.dyn.DepthTestEnable.Set(&e.tracker, enable)
	}
}

// SetDepthWriteEnable enables depth writes.
func (e *Encoder) SetDepthWriteEnable(enable bool) {
	if e.ok() {
		e.dyn.DepthWriteEnable.Set(&e.tracker, enable)
	}
}

// SetDepthCompareOp sets the depth compare function.
func (e *Encoder) SetDepthCompareOp(f gputypes.CompareFunction) {
	if e.ok() {
		e.dyn.DepthCompareOp.Set(&e.tracker, f)
	}
}

// SetDepthBoundsTestEnable enables the depth bounds test.
func (e *Encoder) SetDepthBoundsTestEnable(enable bool) {
	if e.ok() {
		e.dyn.DepthBoundsTestEnable.Set(&e.tracker, enable)
	}
}

// SetStencilTestEnable enables the stencil test.
func (e *Encoder) SetStencilTestEnable(enable bool) {
	if e.ok() {
		e.dyn.StencilTestEnable.Set(&e.tracker, enable)
	}
}

// SetFragmentShadingRate sets the fragment size and combiner ops.
func (e *Encoder) SetFragmentShadingRate(r ShadingRate) {
	if e.ok() {
		e.dyn.FragmentShadingRate.Set(&e.tracker, r)
	}
}

// SetPatchControlPoints sets the tessellation patch size. Zero disables
// patch lists.
func (e *Encoder) SetPatchControlPoints(n uint32) {
	if e.ok() {
		e.dyn.PatchControlPoints.Set(&e.tracker, n)
	}
}

// SetRasterizerDiscardEnable discards primitives before rasterization.
func (e *Encoder) SetRasterizerDiscardEnable(enable bool) {
	if e.ok() {
		e.dyn.RasterizerDiscardEnable.Set(&e.tracker, enable)
	}
}

// SetDepthBiasEnable enables depth bias.
func (e *Encoder) SetDepthBiasEnable(enable bool) {
	if e.ok() {
		e.dyn.DepthBiasEnable.Set(&e.tracker, enable)
	}
}

// SetLogicOp sets the framebuffer logic operation.
func (e *Encoder) SetLogicOp(op LogicOp) {
	if e.ok() {
		e.dyn.LogicOp.Set(&e.tracker, op)
	}
}

// SetLogicOpEnable enables the logic operation.
func (e *Encoder) SetLogicOpEnable(enable bool) {
	if e.ok() {
		e.dyn.LogicOpEnable.Set(&e.tracker, enable)
	}
}

// SetPrimitiveRestartEnable enables primitive restart for strip topologies.
func (e *Encoder) SetPrimitiveRestartEnable(enable bool) {
	if e.ok() {
		e.dyn.PrimitiveRestartEnable.Set(&e.tracker, enable)
	}
}

// SetColorWriteEnable sets the per-target write enable, one bit per target.
func (e *Encoder) SetColorWriteEnable(mask uint32) {
	if e.ok() {
		e.dyn.ColorWriteEnable.Set(&e.tracker, mask)
	}
}

// SetVertexInput replaces the vertex binding strides and attributes.
func (e *Encoder) SetVertexInput(strides []uint32, attributes []VertexAttribute) {
	if !e.ok() {
		return
	}
	if len(strides) > dirty.MaxVertexBindings {
		e.fail(rangeError("vertex bindings", 0, len(strides), dirty.MaxVertexBindings))
		return
	}
	if len(attributes) > dirty.MaxVertexAttributes {
		e.fail(rangeError("vertex attributes", 0, len(attributes), dirty.MaxVertexAttributes))
		return
	}
	e.dyn.VertexBindingStrides.Set(&e.tracker, strides)
	e.dyn.VertexAttributes.Set(&e.tracker, attributes)
}

// SetPolygonMode sets how polygons are rasterized.
func (e *Encoder) SetPolygonMode(m PolygonMode) {
	if e.ok() {
		e.dyn.PolygonMode.Set(&e.tracker, m)
	}
}

// SetTessellationDomainOrigin selects a lower-left domain origin.
func (e *Encoder) SetTessellationDomainOrigin(lowerLeft bool) {
	if e.ok() {
		e.dyn.TessDomainOriginLowerLeft.Set(&e.tracker, lowerLeft)
	}
}

// SetLineStippleEnable enables line stippling.
func (e *Encoder) SetLineStippleEnable(enable bool) {
	if e.ok() {
		e.dyn.LineStippleEnable.Set(&e.tracker, enable)
	}
}

// SetAlphaToCoverageEnable enables alpha to coverage.
func (e *Encoder) SetAlphaToCoverageEnable(enable bool) {
	if e.ok() {
		e.dyn.AlphaToCoverageEnable.Set(&e.tracker, enable)
	}
}

// SetAlphaToOneEnable enables alpha to one.
func (e *Encoder) SetAlphaToOneEnable(enable bool) {
	if e.ok() {
		e.dyn.AlphaToOneEnable.Set(&e.tracker, enable)
	}
}

// SetSampleMask sets the coverage sample mask.
func (e *Encoder) SetSampleMask(mask uint32) {
	if e.ok() {
		e.dyn.SampleMask.Set(&e.tracker, mask)
	}
}

// SetDepthClipEnable enables depth clipping.
func (e *Encoder) SetDepthClipEnable(enable bool) {
	if e.ok() {
		e.dyn.DepthClipEnable.Set(&e.tracker, enable)
	}
}

// SetDepthClampEnable enables depth clamping.
func (e *Encoder) SetDepthClampEnable(enable bool) {
	if e.ok() {
		e.dyn.DepthClampEnable.Set(&e.tracker, enable)
	}
}

// SetDepthClipNegativeOneToOne selects a [-1, 1] clip space depth range.
func (e *Encoder) SetDepthClipNegativeOneToOne(enable bool) {
	if e.ok() {
		e.dyn.DepthClipNegativeOneToOne.Set(&e.tracker, enable)
	}
}

// SetConservativeRasterizationMode sets the conservative rasterization mode.
func (e *Encoder) SetConservativeRasterizationMode(m ConservativeMode) {
	if e.ok() {
		e.dyn.ConservativeRastMode.Set(&e.tracker, m)
	}
}

// SetProvokingVertexLast selects the last vertex as provoking vertex.
func (e *Encoder) SetProvokingVertexLast(last bool) {
	if e.ok() {
		e.dyn.ProvokingVertexLast.Set(&e.tracker, last)
	}
}

// SetColorWriteMasks updates per-target write masks starting at first.
func (e *Encoder) SetColorWriteMasks(first int, masks ...gputypes.ColorWriteMask) {
	if !e.ok() {
		return
	}
	if !inRange(first, len(masks), dirty.MaxColorAttachments) {
		e.fail(rangeError("color write masks", first, len(masks), dirty.MaxColorAttachments))
		return
	}
	e.dyn.ColorWriteMasks.SetRange(&e.tracker, first, masks)
}

// SetColorBlendEnable updates per-target blend enables starting at first.
func (e *Encoder) SetColorBlendEnable(first int, enables ...bool) {
	if !e.ok() {
		return
	}
	if !inRange(first, len(enables), dirty.MaxColorAttachments) {
		e.fail(rangeError("blend enables", first, len(enables), dirty.MaxColorAttachments))
		return
	}
	mask := e.dyn.ColorBlendEnable.Get()
	for i, en := range enables {
		bit := uint32(1) << (first + i)
		if en {
			mask |= bit
		} else {
			mask &^= bit
		}
	}
	e.dyn.ColorBlendEnable.Set(&e.tracker, mask)
}

// SetColorBlendEquations updates per-target blend equations starting at first.
func (e *Encoder) SetColorBlendEquations(first int, eqs ...gputypes.BlendState) {
	if !e.ok() {
		return
	}
	if !inRange(first, len(eqs), dirty.MaxColorAttachments) {
		e.fail(rangeError("blend equations", first, len(eqs), dirty.MaxColorAttachments))
		return
	}
	e.dyn.ColorBlendEquations.SetRange(&e.tracker, first, eqs)
}

// SetRasterizationSamples sets the rasterization sample count.
func (e *Encoder) SetRasterizationSamples(samples uint32) {
	if !e.ok() {
		return
	}
	if samples == 0 || samples&(samples-1) != 0 || samples > dirty.MaxSampleLocations {
		e.fail(fmt.Errorf("%w: %d samples", ErrInvalidArgument, samples))
		return
	}
	e.dyn.RasterizationSamples.Set(&e.tracker, samples)
}

// SetLineRasterizationMode sets the line rasterization mode.
func (e *Encoder) SetLineRasterizationMode(m LineMode) {
	if e.ok() {
		e.dyn.LineRasterizationMode.Set(&e.tracker, m)
	}
}

// SetDiscardRectangleEnable enables the discard rectangles.
func (e *Encoder) SetDiscardRectangleEnable(enable bool) {
	if e.ok() {
		e.dyn.DiscardRectangleEnable.Set(&e.tracker, enable)
	}
}

// SetDiscardRectangleMode selects exclusive (discard inside) or inclusive
// (discard outside) rectangles.
func (e *Encoder) SetDiscardRectangleMode(exclusive bool) {
	if e.ok() {
		e.dyn.DiscardRectangleExclusive.Set(&e.tracker, exclusive)
	}
}

// SetAttachmentFeedbackLoopEnable marks attachments that are also sampled.
func (e *Encoder) SetAttachmentFeedbackLoopEnable(enable bool) {
	if e.ok() {
		e.dyn.AttachmentFeedbackLoopEnable.Set(&e.tracker, enable)
	}
}

// SetSampleLocationsEnable enables the custom sample pattern.
func (e *Encoder) SetSampleLocationsEnable(enable bool) {
	if e.ok() {
		e.dyn.SampleLocationsEnable.Set(&e.tracker, enable)
	}
}
