package cmdstream

import (
	"bytes"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdstream/internal/dirty"
)

const (
	// maxDescriptorSets bounds Config.MaxDescriptorSets.
	maxDescriptorSets = 32

	// MaxPushConstantBytes is the size of the push constant block per bind point.
	MaxPushConstantBytes = 256
)

// BindGraphicsPipeline binds p for subsequent draws.
//
// Every non-nil static block of p is written into the dynamic state with
// the same diffing the Set* methods use; nil blocks keep whatever the
// dynamic state holds.
func (e *Encoder) BindGraphicsPipeline(p *GraphicsPipeline) {
	if !e.ok() {
		return
	}
	if p == nil {
		e.fail(fmt.Errorf("%w: nil graphics pipeline", ErrInvalidArgument))
		return
	}
	if p.Shaders[StageTask] != nil || p.Shaders[StageCompute] != nil {
		e.fail(fmt.Errorf("%w: graphics pipeline %q binds a task or compute shader", ErrInvalidArgument, p.Label))
		return
	}
	if p != e.gfx {
		e.gfx = p
		e.tracker.Mark(dirty.Pipeline)
	}
	for _, sh := range p.Shaders {
		e.retain(sh)
	}
	e.applyPipelineState(p)
}

func (e *Encoder) applyPipelineState(p *GraphicsPipeline) {
	t, d := &e.tracker, e.dyn

	if ps := p.Primitive; ps != nil {
		d.PrimitiveTopology.Set(t, ps.Topology)
		d.CullMode.Set(t, ps.CullMode)
		d.FrontFace.Set(t, ps.FrontFace)
		d.DepthClipEnable.Set(t, !ps.UnclippedDepth)
		d.PrimitiveRestartEnable.Set(t, ps.StripIndexFormat != nil)
	}

	if ds := p.DepthStencil; ds != nil {
		cmp := ds.DepthCompare
		if cmp == gputypes.CompareFunctionUndefined {
			cmp = gputypes.CompareFunctionAlways
		}
		d.DepthTestEnable.Set(t, ds.Format.HasDepth() && (cmp != gputypes.CompareFunctionAlways || ds.DepthWriteEnabled))
		d.DepthWriteEnable.Set(t, ds.Format.HasDepth() && ds.DepthWriteEnabled)
		d.DepthCompareOp.Set(t, cmp)

		front, back := stencilFace(ds.StencilFront), stencilFace(ds.StencilBack)
		d.StencilTestEnable.Set(t, ds.Format.HasStencil() && (!stencilPassThrough(front) || !stencilPassThrough(back)))
		d.StencilOp.Set(t, dirty.StencilOps{Front: front, Back: back})
		d.StencilCompareMask.Set(t, dirty.StencilPair{Front: ds.StencilReadMask, Back: ds.StencilReadMask})
		d.StencilWriteMask.Set(t, dirty.StencilPair{Front: ds.StencilWriteMask, Back: ds.StencilWriteMask})

		bias := DepthBias{Constant: float32(ds.DepthBias), Clamp: ds.DepthBiasClamp, Slope: ds.DepthBiasSlopeScale}
		d.DepthBiasEnable.Set(t, bias.Constant != 0 || bias.Slope != 0)
		d.DepthBias.Set(t, bias)
	}

	if ms := p.Multisample; ms != nil {
		d.RasterizationSamples.Set(t, max(ms.Count, 1))
		mask := uint32(ms.Mask)
		if ms.Mask == 0 {
			mask = 0xFFFFFFFF
		}
		d.SampleMask.Set(t, mask)
		d.AlphaToCoverageEnable.Set(t, ms.AlphaToCoverageEnabled)
	}

	if p.Targets != nil {
		n := min(len(p.Targets), dirty.MaxColorAttachments)
		masks := make([]gputypes.ColorWriteMask, n)
		eqs := make([]gputypes.BlendState, n)
		var enable uint32
		for i, ct := range p.Targets[:n] {
			masks[i] = ct.WriteMask
			eqs[i] = dirty.DefaultBlendEquation
			if ct.Blend != nil {
				eqs[i] = *ct.Blend
				enable |= 1 << i
			}
		}
		d.ColorWriteMasks.Set(t, masks)
		d.ColorBlendEquations.Set(t, eqs)
		d.ColorBlendEnable.Set(t, enable)
	}

	if p.PatchControlPoints != 0 {
		d.PatchControlPoints.Set(t, p.PatchControlPoints)
	}
	if p.VertexStrides != nil {
		d.VertexBindingStrides.Set(t, p.VertexStrides)
	}
	if p.VertexAttributes != nil {
		d.VertexAttributes.Set(t, p.VertexAttributes)
	}
}

// stencilFace fills undefined members with their pass-through defaults.
func stencilFace(f gputypes.StencilFaceState) gputypes.StencilFaceState {
	if f.Compare == gputypes.CompareFunctionUndefined {
		f.Compare = gputypes.CompareFunctionAlways
	}
	if f.FailOp == gputypes.StencilOperationUndefined {
		f.FailOp = gputypes.StencilOperationKeep
	}
	if f.DepthFailOp == gputypes.StencilOperationUndefined {
		f.DepthFailOp = gputypes.StencilOperationKeep
	}
	if f.PassOp == gputypes.StencilOperationUndefined {
		f.PassOp = gputypes.StencilOperationKeep
	}
	return f
}

func stencilPassThrough(f gputypes.StencilFaceState) bool {
	return f == gputypes.DefaultStencilFaceState()
}

// BindComputePipeline binds p for subsequent dispatches.
func (e *Encoder) BindComputePipeline(p *ComputePipeline) {
	if !e.ok() {
		return
	}
	if p == nil || p.Shader == nil {
		e.fail(fmt.Errorf("%w: compute pipeline without shader", ErrInvalidArgument))
		return
	}
	if p.Shader.Stage() != StageCompute {
		e.fail(fmt.Errorf("%w: %s shader bound as compute", ErrInvalidArgument, p.Shader.Stage()))
		return
	}
	if p != e.compute {
		e.compute = p
		e.tracker.Mark(dirty.ComputePipeline)
	}
	e.retain(p.Shader)
}

func descriptorBit(bp BindPoint) dirty.Bit {
	if bp == BindPointCompute {
		return dirty.ComputeDescriptors
	}
	return dirty.Descriptors
}

func pushConstantBit(bp BindPoint) dirty.Bit {
	if bp == BindPointCompute {
		return dirty.ComputePushConstants
	}
	return dirty.PushConstants
}

// BindDescriptorTable binds the descriptor table at addr to a set slot.
// The table pointers of a bind point are uploaded together before the
// next draw or dispatch that follows a change.
func (e *Encoder) BindDescriptorTable(bp BindPoint, set int, addr uint64) {
	if !e.ok() {
		return
	}
	if bp >= bindPointCount || set < 0 || set >= e.dev.cfg.MaxDescriptorSets {
		e.fail(fmt.Errorf("%w: descriptor set %d on %s", ErrInvalidArgument, set, bp))
		return
	}
	tables := e.tables[bp]
	if set >= len(tables) {
		tables = append(tables, make([]uint64, set+1-len(tables))...)
	} else if tables[set] == addr {
		return
	}
	tables[set] = addr
	e.tables[bp] = tables
	e.tracker.Mark(descriptorBit(bp))
}

// PushConstants writes data into the push constant block at offset.
func (e *Encoder) PushConstants(bp BindPoint, offset uint32, data []byte) {
	if !e.ok() {
		return
	}
	end := uint64(offset) + uint64(len(data))
	if bp >= bindPointCount || offset%4 != 0 || end > MaxPushConstantBytes {
		e.fail(fmt.Errorf("%w: push constants [%d, %d) on %s", ErrInvalidArgument, offset, end, bp))
		return
	}
	block := e.push[bp]
	if int(end) <= len(block) && bytes.Equal(block[offset:end], data) {
		return
	}
	if int(end) > len(block) {
		block = append(block, make([]byte, int(end)-len(block))...)
	}
	copy(block[offset:], data)
	e.push[bp] = block
	e.tracker.Mark(pushConstantBit(bp))
}

// BindVertexBuffers binds vertex buffers starting at binding first.
func (e *Encoder) BindVertexBuffers(first int, buffers ...VertexBuffer) {
	if !e.ok() {
		return
	}
	if !inRange(first, len(buffers), dirty.MaxVertexBindings) {
		e.fail(rangeError("vertex buffers", first, len(buffers), dirty.MaxVertexBindings))
		return
	}
	changed := false
	for i, vb := range buffers {
		slot := first + i
		if vb.Stride != 0 {
			e.dyn.VertexBindingStrides.SetRange(&e.tracker, slot, []uint32{vb.Stride})
		}
		vb.Stride = 0
		if e.vertexBuffers[slot] != vb {
			e.vertexBuffers[slot] = vb
			changed = true
		}
	}
	if end := first + len(buffers); end > e.vertexCount {
		e.vertexCount = end
		changed = true
	}
	if changed {
		e.tracker.Mark(dirty.VertexBuffer)
	}
}

// BindIndexBuffer binds the index buffer used by indexed draws.
func (e *Encoder) BindIndexBuffer(addr, size uint64, format gputypes.IndexFormat) {
	if !e.ok() {
		return
	}
	if format != gputypes.IndexFormatUint16 && format != gputypes.IndexFormatUint32 {
		e.fail(fmt.Errorf("%w: index format %d", ErrInvalidArgument, format))
		return
	}
	ib := indexBinding{addr: addr, size: size, format: format}
	if ib != e.index {
		e.index = ib
		e.tracker.Mark(dirty.IndexBuffer)
	}
}

func indexSize(f gputypes.IndexFormat) uint64 {
	if f == gputypes.IndexFormatUint32 {
		return 4
	}
	return 2
}
