package cmdstream

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdstream/internal/dirty"
	"github.com/gogpu/cmdstream/internal/regs"
	"github.com/gogpu/cmdstream/stream"
)

// maxScratchWaves is the number of waves scratch is sized for when the
// launch size is not known while recording.
const maxScratchWaves = 1024

// waveSize is the number of invocations per wave.
const waveSize = 64

var (
	computeBits = dirty.MaskOf(dirty.ComputePipeline, dirty.ComputeDescriptors,
		dirty.ComputePushConstants, dirty.Predication)

	vertexInputBits = dirty.MaskOf(dirty.VertexBuffer, dirty.VertexInput,
		dirty.VertexInputBindingStride, dirty.IndexBuffer)

	graphicsBits = dirty.All().AndNot(computeBits).With(dirty.Predication)

	depthControlBits = dirty.MaskOf(dirty.DepthTestEnable, dirty.DepthWriteEnable,
		dirty.DepthCompareOp, dirty.DepthBoundsTestEnable, dirty.StencilTestEnable, dirty.StencilOp)

	suModeBits = dirty.MaskOf(dirty.CullMode, dirty.FrontFace, dirty.PolygonMode,
		dirty.ProvokingVertexMode, dirty.DepthBiasEnable)

	clipBits = dirty.MaskOf(dirty.DepthClipEnable, dirty.DepthClipNegativeOneToOne,
		dirty.RasterizerDiscardEnable, dirty.DepthClampEnable)

	epilogBits = dirty.MaskOf(dirty.Pipeline, dirty.Framebuffer,
		dirty.ColorWriteMask, dirty.ColorWriteEnable)
)

// drawKind selects the state a draw consumes.
type drawKind uint8

const (
	drawVertex drawKind = iota
	drawIndexed
	drawMesh
)

// stateFirst reports whether state goes out ahead of the pending flush.
func (e *Encoder) stateFirst() bool {
	switch e.order {
	case FlushOrderStateFirst:
		return true
	case FlushOrderFlushFirst:
		return false
	}
	return e.flushes.Pending(stream.Primary).RequiresIdleWait() || e.dev.caps.FlushAfterState
}

// beforeDraw validates the draw and writes pending flushes and every
// dirty graphics category to the primary stream.
func (e *Encoder) beforeDraw(kind drawKind) bool {
	if !e.ok() {
		return false
	}
	if e.gfx == nil {
		e.fail(ErrNoPipeline)
		return false
	}
	if !e.renderingActive {
		e.fail(ErrRenderingInactive)
		return false
	}
	if kind == drawMesh && e.gfx.Shaders[StageMesh] == nil {
		e.fail(fmt.Errorf("%w: mesh draw with pipeline %q that has no mesh shader", ErrInvalidArgument, e.gfx.Label))
		return false
	}
	if kind != drawMesh && e.gfx.Shaders[StageVertex] == nil {
		e.fail(fmt.Errorf("%w: vertex draw with pipeline %q that has no vertex shader", ErrInvalidArgument, e.gfx.Label))
		return false
	}
	if kind == drawIndexed && e.index.addr == 0 {
		e.fail(fmt.Errorf("%w: indexed draw without an index buffer", ErrInvalidArgument))
		return false
	}

	mask := graphicsBits
	switch kind {
	case drawVertex:
		mask = mask.Without(dirty.IndexBuffer)
	case drawMesh:
		mask = mask.AndNot(vertexInputBits)
	}

	primary := e.streams[stream.Primary]
	if e.stateFirst() {
		e.emitGraphics(e.tracker.Consume(mask))
		e.flushes.Flush(stream.Primary, primary)
	} else {
		e.flushes.Flush(stream.Primary, primary)
		e.emitGraphics(e.tracker.Consume(mask))
	}
	if e.err != nil {
		return false
	}
	e.draws++
	return true
}

// beforeDispatch is beforeDraw for the compute bind point.
func (e *Encoder) beforeDispatch() bool {
	if !e.ok() {
		return false
	}
	if e.compute == nil {
		e.fail(ErrNoPipeline)
		return false
	}
	if e.renderingActive {
		e.fail(fmt.Errorf("%w: dispatch inside BeginRendering", ErrRenderingActive))
		return false
	}

	primary := e.streams[stream.Primary]
	if e.stateFirst() {
		e.emitCompute(e.tracker.Consume(computeBits))
		e.flushes.Flush(stream.Primary, primary)
	} else {
		e.flushes.Flush(stream.Primary, primary)
		e.emitCompute(e.tracker.Consume(computeBits))
	}
	return e.err == nil
}

func (e *Encoder) emitGraphics(bits dirty.Mask) {
	if bits.IsZero() {
		return
	}
	e.emitShaders(bits)
	e.emitFramebuffer(bits)
	e.emitViewports(bits)
	e.emitRaster(bits)
	e.emitColor(bits)
	e.emitSampling(bits)
	e.emitGraphicsTables(bits)
	e.emitVertexInput(bits)
	e.emitStreamout(bits)
	if bits.Has(dirty.Predication) {
		e.emitPredication(stream.Primary)
	}
}

func (e *Encoder) emitShaders(bits dirty.Mask) {
	if !bits.Has(dirty.GraphicsShaders) {
		return
	}
	for _, s := range regs.GraphicsStages {
		sh := e.gfx.Shaders[s]
		r := regs.Stages[s]
		var addr uint64
		var rsrc1, rsrc2 uint32
		if sh != nil {
			addr = sh.Address()
			rsrc1 = regs.ComputeResourcesWord(sh.ScratchBytesPerWave(), 0)
			rsrc2 = 1
		}
		e.setRegSeq(stream.Primary, r.PgmLo, stream.Lo(addr), stream.Hi(addr), rsrc1, rsrc2)
	}

	if scratch := e.gfx.scratch(); scratch > 0 {
		e.req.ScratchBytesPerWave = max(e.req.ScratchBytesPerWave, scratch)
		e.req.ScratchWaves = maxScratchWaves
	}
	if e.gfx.Shaders[StageTessControl] != nil || e.gfx.Shaders[StageTessEvaluation] != nil {
		e.req.TessRings = true
	}
	if e.gfx.Shaders[StageMesh] != nil {
		e.req.MeshScratchRing = true
	}
}

// colorMasks returns the write mask of every target slot.
func (e *Encoder) colorMasks() []gputypes.ColorWriteMask {
	masks := make([]gputypes.ColorWriteMask, regs.MaxColorTargets)
	for i := range masks {
		masks[i] = e.dyn.ColorWriteMasks.At(i)
	}
	return masks
}

// boundMask has bit i set for every color target with a format.
func (e *Encoder) boundMask() uint32 {
	var m uint32
	for i, f := range e.rendering.ColorFormats {
		if i < regs.MaxColorTargets && f != gputypes.TextureFormatUndefined {
			m |= 1 << i
		}
	}
	return m
}

func (e *Encoder) emitFramebuffer(bits dirty.Mask) {
	formats := e.rendering.ColorFormats
	if bits.Has(dirty.Framebuffer) {
		var info [regs.MaxColorTargets]uint32
		for i, f := range formats {
			if i < regs.MaxColorTargets {
				info[i] = regs.ColorInfo(f)
			}
		}
		e.setRegSeq(stream.Primary, regs.CBColorInfo, info[:]...)

		z, s := regs.DepthInfo(e.rendering.DepthStencilFormat)
		e.setRegSeq(stream.Primary, regs.DBZInfo, z, s)

		a := e.rendering.Area
		tl, br := regs.Scissor(a.X, a.Y, a.Width, a.Height)
		e.setRegSeq(stream.Primary, regs.ScreenScissorTL, tl, br)
		e.setReg(stream.Primary, regs.SPIColFormat, regs.ColFormat(formats))
	}

	if bits.Intersects(epilogBits) {
		e.emitEpilog()
	}
}

// emitEpilog binds the fragment output epilog for the current targets and
// write masks.
func (e *Encoder) emitEpilog() {
	var ep *Shader
	if e.gfx.Shaders[StageFragment] != nil {
		masks := e.colorMasks()
		enable := e.dyn.ColorWriteEnable.Get()
		for i := range masks {
			if enable&(1<<i) == 0 {
				masks[i] = gputypes.ColorWriteMaskNone
			}
		}
		var err error
		ep, err = e.dev.shaders.Epilog(e.rendering.ColorFormats, masks)
		if err != nil {
			e.fail(fmt.Errorf("fragment epilog: %w", err))
			return
		}
		if ep != nil {
			e.retain(ep)
			ep.Release()
		}
	}
	e.epilog = ep

	var addr uint64
	if ep != nil {
		addr = ep.Address()
	}
	e.setRegSeq(stream.Primary, regs.PSEpilogAddr, stream.Lo(addr), stream.Hi(addr))
}

func (e *Encoder) emitViewports(bits dirty.Mask) {
	d := e.dyn
	vps := d.Viewports.Slice()

	if bits.Has(dirty.Viewport) {
		neg := d.DepthClipNegativeOneToOne.Get()
		clamp := d.DepthClampEnable.Get()
		for i, vp := range vps {
			xform, zmin, zmax := regs.Viewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth, neg)
			if !clamp {
				zmin, zmax = regs.Float(0), regs.Float(1)
			}
			e.setRegSeq(stream.Primary, regs.ViewportXform+uint32(i)*regs.ViewportRegs, xform[:]...)
			e.setRegSeq(stream.Primary, regs.ViewportZRange+uint32(2*i), zmin, zmax)
		}
	}

	if bits.Has(dirty.Scissor) {
		n := max(len(vps), d.Scissors.Len())
		for i := range n {
			r := Rect{Width: regs.MaxScreenCoord, Height: regs.MaxScreenCoord}
			if i < d.Scissors.Len() {
				r = d.Scissors.At(i)
			}
			if i < len(vps) {
				r = clipScissor(r, vps[i])
			}
			tl, br := regs.Scissor(r.X, r.Y, r.Width, r.Height)
			e.setRegSeq(stream.Primary, regs.ScissorRect+uint32(2*i), tl, br)
		}
	}

	if bits.Has(dirty.Guardband) {
		points, lines := rasterPrimitive(d.PrimitiveTopology.Get(), d.PolygonMode.Get())
		gb := guardband(vps, points, lines, d.LineWidth.Get())
		e.setRegSeq(stream.Primary, regs.GuardbandVertClip, gb[:]...)
	}
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// tessellating reports whether the bound pipeline has tessellation stages.
func (e *Encoder) tessellating() bool {
	return e.gfx.Shaders[StageTessControl] != nil
}

func (e *Encoder) emitRaster(bits dirty.Mask) {
	d := e.dyn
	p := stream.Primary

	if bits.Has(dirty.LineWidth) {
		e.setReg(p, regs.LineCntl, regs.LineCntlWord(d.LineWidth.Get()))
	}
	if bits.Has(dirty.LineStipple) {
		st := d.LineStipple.Get()
		autoReset := d.PrimitiveTopology.Get() == gputypes.PrimitiveTopologyLineList
		e.setReg(p, regs.LineStipple, regs.LineStippleWord(st.Factor, st.Pattern, d.LineStippleEnable.Get(), autoReset))
	}
	if bits.Has(dirty.DepthBias) || bits.Has(dirty.DepthBiasEnable) {
		b := d.DepthBias.Get()
		po := regs.PolyOffset(d.DepthBiasEnable.Get(), b.Constant, b.Clamp, b.Slope)
		e.setRegSeq(p, regs.PolyOffsetClamp, po[:]...)
	}
	if bits.Has(dirty.DepthBounds) {
		r := d.DepthBounds.Get()
		e.setRegSeq(p, regs.DepthBoundsMin, regs.Float(r.Min), regs.Float(r.Max))
	}
	if bits.Intersects(dirty.MaskOf(dirty.StencilReference, dirty.StencilCompareMask, dirty.StencilWriteMask)) {
		ref, cmp, wr := d.StencilReference.Get(), d.StencilCompareMask.Get(), d.StencilWriteMask.Get()
		e.setRegSeq(p, regs.StencilRefMaskFront,
			regs.StencilRefMask(ref.Front, cmp.Front, wr.Front),
			regs.StencilRefMask(ref.Back, cmp.Back, wr.Back))
	}
	if bits.Intersects(depthControlBits) {
		ops := d.StencilOp.Get()
		e.setReg(p, regs.DepthControl, regs.DepthControlWord(d.DepthTestEnable.Get(), d.DepthWriteEnable.Get(),
			d.DepthCompareOp.Get(), d.DepthBoundsTestEnable.Get(), d.StencilTestEnable.Get(), ops.Front, ops.Back))
		e.setReg(p, regs.StencilControl, regs.StencilControlWord(ops.Front, ops.Back))
	}
	if bits.Intersects(suModeBits) {
		e.setReg(p, regs.SUModeCntl, regs.SUModeCntlWord(d.CullMode.Get(), d.FrontFace.Get(),
			uint8(d.PolygonMode.Get()), d.ProvokingVertexLast.Get(), d.DepthBiasEnable.Get()))
	}
	if bits.Intersects(dirty.MaskOf(dirty.PrimitiveTopology, dirty.PatchControlPoints, dirty.Pipeline)) {
		var patch uint32
		if e.tessellating() {
			patch = d.PatchControlPoints.Get()
		}
		e.setReg(p, regs.PrimitiveType, regs.PrimitiveTypeWord(d.PrimitiveTopology.Get(), patch))
		e.setReg(p, regs.TessConfig, regs.TessConfigWord(patch))
	}
	if bits.Has(dirty.PrimitiveRestartEnable) {
		e.setReg(p, regs.PrimitiveRestart, b2u(d.PrimitiveRestartEnable.Get()))
	}
	if bits.Intersects(clipBits) {
		e.setReg(p, regs.ClipCntl, regs.ClipCntlWord(d.DepthClipEnable.Get(), d.DepthClipNegativeOneToOne.Get(),
			d.RasterizerDiscardEnable.Get(), d.DepthClampEnable.Get()))
	}
	if bits.Has(dirty.TessDomainOrigin) {
		e.setReg(p, regs.TessDomain, regs.TessDomainWord(d.TessDomainOriginLowerLeft.Get()))
	}
	if bits.Has(dirty.ConservativeRastMode) {
		e.setReg(p, regs.ConservativeRast, regs.ConservativeRastWord(uint8(d.ConservativeRastMode.Get())))
	}
	if bits.Has(dirty.FragmentShadingRate) {
		r := d.FragmentShadingRate.Get()
		e.setReg(p, regs.VRSRateCntl, regs.VRSRate(r.Width, r.Height, r.Combiners))
	}
	if bits.Has(dirty.DiscardRectangle) {
		rects := d.DiscardRectangles.Slice()
		e.setReg(p, regs.DiscardRectRule, regs.DiscardRule(d.DiscardRectangleEnable.Get(),
			d.DiscardRectangleExclusive.Get(), len(rects)))
		for i, r := range rects {
			tl, br := regs.Scissor(r.X, r.Y, r.Width, r.Height)
			e.setRegSeq(p, regs.DiscardRect+uint32(2*i), tl, br)
		}
	}
	if bits.Has(dirty.ShaderQuery) {
		for _, s := range regs.GraphicsStages {
			if e.gfx.Shaders[s] != nil {
				e.setReg(p, regs.Stages[s].UserDataReg(regs.UserDataShaderQuery), b2u(e.statsActive))
			}
		}
	}
}

func (e *Encoder) emitColor(bits dirty.Mask) {
	d := e.dyn
	p := stream.Primary
	bound := e.boundMask()
	masks := e.colorMasks()
	writeEnable := d.ColorWriteEnable.Get()
	blendEnable := d.ColorBlendEnable.Get() & bound

	if bits.Has(dirty.BlendConstants) {
		c := d.BlendConstants.Get()
		e.setRegSeq(p, regs.BlendConstants,
			regs.Float(float32(c.R)), regs.Float(float32(c.G)), regs.Float(float32(c.B)), regs.Float(float32(c.A)))
	}
	if bits.Intersects(dirty.MaskOf(dirty.Framebuffer, dirty.LogicOp, dirty.LogicOpEnable)) {
		e.setReg(p, regs.CBColorControl, regs.ColorControl(d.LogicOpEnable.Get(), uint8(d.LogicOp.Get()), bound != 0))
	}
	if bits.Intersects(dirty.MaskOf(dirty.Framebuffer, dirty.ColorWriteMask, dirty.ColorWriteEnable)) {
		var shaderMask uint32
		for i := range regs.MaxColorTargets {
			if bound&(1<<i) != 0 {
				shaderMask |= 0xF << (4 * i)
			}
		}
		e.setReg(p, regs.CBTargetMask, regs.TargetMask(masks, writeEnable, bound))
		e.setReg(p, regs.CBShaderMask, shaderMask)
	}
	if bits.Intersects(dirty.MaskOf(dirty.Framebuffer, dirty.ColorBlendEnable, dirty.ColorBlendEquation)) {
		var ctl [regs.MaxColorTargets]uint32
		for i := range ctl {
			ctl[i] = regs.BlendControl(blendEnable&(1<<i) != 0, d.ColorBlendEquations.At(i))
		}
		e.setRegSeq(p, regs.CBBlendControl, ctl[:]...)
	}
	if bits.Has(dirty.RBPlus) {
		dc, eps, ctl := regs.RBPlus(e.rendering.ColorFormats, masks, blendEnable)
		e.setRegSeq(p, regs.SXPSDownconvert, dc, eps, ctl)
	}
	if bits.Has(dirty.DBShaderControl) {
		anyWrite := regs.TargetMask(masks, writeEnable, bound) != 0
		e.setReg(p, regs.DBShaderControl, regs.DBShaderControlWord(d.AlphaToCoverageEnable.Get(), d.AlphaToOneEnable.Get(),
			d.ConservativeRastMode.Get() != dirty.ConservativeDisabled, d.AttachmentFeedbackLoopEnable.Get(),
			e.occlusion.active, anyWrite))
	}
}

// standardSampleLocations are the fixed sample patterns per sample count.
var standardSampleLocations = map[uint32][]SamplePosition{
	1: {{X: 0.5, Y: 0.5}},
	2: {{X: 0.75, Y: 0.75}, {X: 0.25, Y: 0.25}},
	4: {{X: 0.375, Y: 0.125}, {X: 0.875, Y: 0.375}, {X: 0.125, Y: 0.625}, {X: 0.625, Y: 0.875}},
	8: {
		{X: 0.5625, Y: 0.3125}, {X: 0.4375, Y: 0.6875}, {X: 0.8125, Y: 0.5625}, {X: 0.3125, Y: 0.1875},
		{X: 0.1875, Y: 0.8125}, {X: 0.0625, Y: 0.4375}, {X: 0.6875, Y: 0.9375}, {X: 0.9375, Y: 0.0625},
	},
}

func (e *Encoder) emitSampling(bits dirty.Mask) {
	d := e.dyn
	p := stream.Primary
	samples := d.RasterizationSamples.Get()

	if bits.Has(dirty.RasterizationSamples) {
		e.setReg(p, regs.AAConfig, regs.AAConfigWord(samples))
	}
	if bits.Has(dirty.SampleMask) {
		m := d.SampleMask.Get()
		e.setRegSeq(p, regs.AASampleMask, m, m)
	}
	if bits.Has(dirty.SampleLocations) {
		var locs [regs.MaxSampleLocs]uint32
		for i := range locs {
			locs[i] = regs.SampleLoc(0.5, 0.5)
		}
		if d.SampleLocationsEnable.Get() {
			info := d.SampleLocations.Get()
			for i := range min(int(info.Count), regs.MaxSampleLocs) {
				locs[i] = regs.SampleLoc(info.Positions[i].X, info.Positions[i].Y)
			}
			e.req.SamplePositions = true
		} else {
			for i, pos := range standardSampleLocations[samples] {
				locs[i] = regs.SampleLoc(pos.X, pos.Y)
			}
		}
		e.setRegSeq(p, regs.SampleLocs, locs[:]...)
	}
	if bits.Intersects(dirty.MaskOf(dirty.LineRasterizationMode, dirty.RasterizationSamples)) {
		e.setReg(p, regs.ModeCntl, regs.ModeCntlWord(uint8(d.LineRasterizationMode.Get()), samples > 1))
	}
	if bits.Intersects(dirty.MaskOf(dirty.OcclusionQuery, dirty.RasterizationSamples)) {
		e.setReg(p, regs.DBCountControl, regs.DBCountControlWord(e.occlusion.active, e.occlusion.precise, samples))
	}
}

// uploadTables writes the descriptor table pointers of a bind point to
// the ring.
func (e *Encoder) uploadTables(bp BindPoint) {
	tables := e.tables[bp]
	if len(tables) == 0 {
		e.tableAddr[bp] = 0
		return
	}
	buf := make([]byte, 8*len(tables))
	for i, a := range tables {
		binary.LittleEndian.PutUint64(buf[8*i:], a)
	}
	if addr, ok := e.upload(buf, 16); ok {
		e.tableAddr[bp] = addr
	}
}

// uploadPush writes the push constant block of a bind point to the ring.
func (e *Encoder) uploadPush(bp BindPoint) {
	if len(e.push[bp]) == 0 {
		e.pushAddr[bp] = 0
		return
	}
	if addr, ok := e.upload(e.push[bp], 16); ok {
		e.pushAddr[bp] = addr
	}
}

// writeUserData points a stage at the bind point's tables and, when the
// stage receives them, its push constants.
func (e *Encoder) writeUserData(r regs.StageRegs, bp BindPoint, push bool) {
	t := e.tableAddr[bp]
	e.setRegSeq(r.Engine, r.UserDataReg(regs.UserDataDescriptors), stream.Lo(t), stream.Hi(t))
	if push {
		pc := e.pushAddr[bp]
		e.setRegSeq(r.Engine, r.UserDataReg(regs.UserDataPushConstants), stream.Lo(pc), stream.Hi(pc))
	}
}

func (e *Encoder) emitGraphicsTables(bits dirty.Mask) {
	if bits.Has(dirty.Descriptors) {
		e.uploadTables(BindPointGraphics)
	}
	if bits.Has(dirty.PushConstants) {
		e.uploadPush(BindPointGraphics)
	}
	if !bits.Intersects(dirty.MaskOf(dirty.Descriptors, dirty.PushConstants, dirty.GraphicsShaders)) {
		return
	}
	for _, s := range regs.GraphicsStages {
		if e.gfx.Shaders[s] == nil {
			continue
		}
		r := regs.Stages[s]
		e.writeUserData(r, BindPointGraphics, e.gfx.PushConstantStages&r.Mask != 0)
	}
}

// vertexDescriptorSize is the size of one binding or attribute record in
// the vertex descriptor table.
const vertexDescriptorSize = 16

func (e *Encoder) emitVertexInput(bits dirty.Mask) {
	p := stream.Primary
	if bits.Has(dirty.VertexBuffer) {
		attrs := e.dyn.VertexAttributes.Slice()
		buf := make([]byte, vertexDescriptorSize*(e.vertexCount+len(attrs)))
		for i := range e.vertexCount {
			vb := e.vertexBuffers[i]
			rec := buf[vertexDescriptorSize*i:]
			binary.LittleEndian.PutUint64(rec[0:], vb.Address)
			binary.LittleEndian.PutUint32(rec[8:], uint32(min(vb.Size, 0xFFFFFFFF)))
			binary.LittleEndian.PutUint32(rec[12:], e.dyn.VertexBindingStrides.At(i))
		}
		for i, a := range attrs {
			rec := buf[vertexDescriptorSize*(e.vertexCount+i):]
			binary.LittleEndian.PutUint32(rec[0:], a.Location)
			binary.LittleEndian.PutUint32(rec[4:], a.Binding)
			binary.LittleEndian.PutUint32(rec[8:], uint32(a.Format))
			binary.LittleEndian.PutUint32(rec[12:], a.Offset)
		}
		var addr uint64
		if len(buf) > 0 {
			var ok bool
			if addr, ok = e.upload(buf, vertexDescriptorSize); !ok {
				return
			}
		}
		e.setRegSeq(p, regs.VertexDescAddr, stream.Lo(addr), stream.Hi(addr))
	}
	if bits.Has(dirty.IndexBuffer) {
		ib := e.index
		size := indexSize(ib.format)
		e.setReg(p, regs.IndexType, regs.IndexTypeWord(ib.format))
		e.streams[p].Append(stream.IndexBuffer, stream.Lo(ib.addr), stream.Hi(ib.addr),
			uint32(min(ib.size/size, 0xFFFFFFFF)), uint32(size))
	}
}

// streamoutRecordSize is the size of one buffer record in the streamout table.
const streamoutRecordSize = 16

func (e *Encoder) emitStreamout(bits dirty.Mask) {
	p := stream.Primary
	if bits.Has(dirty.StreamoutBuffer) {
		var bases [2 * regs.MaxStreamoutBuffers]uint32
		var sizes [regs.MaxStreamoutBuffers]uint32
		for i, b := range e.streamout {
			bases[2*i], bases[2*i+1] = stream.Lo(b.Address), stream.Hi(b.Address)
			sizes[i] = uint32(min(b.Size, 0xFFFFFFFF))
		}
		e.setRegSeq(p, regs.StreamoutBufferBase, bases[:]...)
		e.setRegSeq(p, regs.StreamoutBufferSize, sizes[:]...)
		e.setReg(p, regs.StreamoutBufferConfig, e.streamoutMask)

		// A pipeline change reaches here too: the table is uploaded once
		// per buffer binding and pointed at from every stage of the
		// current pipeline.
		if e.streamoutMask != 0 {
			if e.streamoutTbl == 0 {
				table := make([]byte, streamoutRecordSize*regs.MaxStreamoutBuffers)
				for i, b := range e.streamout {
					binary.LittleEndian.PutUint64(table[streamoutRecordSize*i:], b.Address)
					binary.LittleEndian.PutUint64(table[streamoutRecordSize*i+8:], b.Size)
				}
				a, ok := e.upload(table, streamoutRecordSize)
				if !ok {
					return
				}
				e.streamoutTbl = a
			}
			addr := e.streamoutTbl
			for _, s := range regs.GraphicsStages {
				if s == regs.StageFragment || e.gfx.Shaders[s] == nil {
					continue
				}
				r := regs.Stages[s]
				e.setRegSeq(p, r.UserDataReg(regs.UserDataStreamout), stream.Lo(addr), stream.Hi(addr))
			}
		}
	}
	if bits.Intersects(dirty.MaskOf(dirty.StreamoutEnable, dirty.RasterizerDiscardEnable)) {
		e.setReg(p, regs.StreamoutConfig, regs.StreamoutConfigWord(e.xfbActive, e.streamoutMask,
			e.dyn.RasterizerDiscardEnable.Get()))
	}
}

// emitPredication writes the conditional rendering state to an engine.
func (e *Encoder) emitPredication(eng stream.Engine) {
	pr := e.predication
	var flags uint32
	if pr.active {
		flags = stream.PredicationEnabled
		if pr.inverted {
			flags |= stream.PredicationInverted
		}
	}
	e.streams[eng].Append(stream.SetPredication, stream.Lo(pr.addr), stream.Hi(pr.addr), flags)
	if eng == stream.Auxiliary {
		e.auxPredication = pr
	}
}

// wavesPerGroup returns the waves one workgroup of size wg occupies.
func wavesPerGroup(wg [3]uint32) uint32 {
	n := uint64(max(wg[0], 1)) * uint64(max(wg[1], 1)) * uint64(max(wg[2], 1))
	return uint32((n + waveSize - 1) / waveSize)
}

func (e *Encoder) emitCompute(bits dirty.Mask) {
	p := stream.Primary
	sh := e.compute.Shader
	r := regs.Stages[regs.StageCompute]

	if bits.Has(dirty.ComputePipeline) {
		wg := sh.WorkgroupSize()
		res := regs.ComputeResourcesWord(sh.ScratchBytesPerWave(), wavesPerGroup(wg))
		addr := sh.Address()
		e.setRegSeq(p, r.PgmLo, stream.Lo(addr), stream.Hi(addr), res, 1)
		e.setRegSeq(p, regs.ComputeNumThread, max(wg[0], 1), max(wg[1], 1), max(wg[2], 1))
		e.setReg(p, regs.ComputeResources, res)
	}
	if bits.Has(dirty.ComputeDescriptors) {
		e.uploadTables(BindPointCompute)
	}
	if bits.Has(dirty.ComputePushConstants) {
		e.uploadPush(BindPointCompute)
	}
	if bits.Intersects(dirty.MaskOf(dirty.ComputePipeline, dirty.ComputeDescriptors, dirty.ComputePushConstants)) {
		e.writeUserData(r, BindPointCompute, true)
	}
	if bits.Has(dirty.Predication) {
		e.emitPredication(p)
	}
}

// noteComputeScratch records the scratch a dispatch of groups workgroups
// needs. Zero groups means the count is only known on the device.
func (e *Encoder) noteComputeScratch(sh *Shader, groups uint64) {
	scratch := sh.ScratchBytesPerWave()
	if scratch == 0 {
		return
	}
	waves := uint64(maxScratchWaves)
	if groups > 0 {
		waves = min(groups*uint64(wavesPerGroup(sh.WorkgroupSize())), maxScratchWaves)
	}
	e.req.ComputeScratchBytesPerWave = max(e.req.ComputeScratchBytesPerWave, scratch)
	e.req.ComputeScratchWaves = max(e.req.ComputeScratchWaves, uint32(waves))
}
