package flush

// Stage is a set of pipeline stages.
type Stage uint32

const (
	StageTopOfPipe Stage = 1 << iota
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageTessellationShader
	StageGeometryShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageBottomOfPipe
	StageHost
	StageTaskShader
	StageMeshShader
	StageTransformFeedback
	StageConditionalRendering
	StageAllGraphics
	StageAllCommands
)

const (
	preRasterStages = StageVertexInput | StageVertexShader | StageTessellationShader |
		StageGeometryShader | StageMeshShader | StageTransformFeedback | StageTaskShader
	pixelStages = StageFragmentShader | StageEarlyFragmentTests |
		StageLateFragmentTests | StageColorAttachmentOutput
)

// Access is a set of memory access types.
type Access uint32

const (
	AccessIndirectCommandRead Access = 1 << iota
	AccessIndexRead
	AccessVertexAttributeRead
	AccessUniformRead
	AccessInputAttachmentRead
	AccessShaderRead
	AccessShaderWrite
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthStencilRead
	AccessDepthStencilWrite
	AccessTransferRead
	AccessTransferWrite
	AccessHostRead
	AccessHostWrite
	AccessMemoryRead
	AccessMemoryWrite
	AccessTransformFeedbackWrite
	AccessTransformFeedbackCounterRead
	AccessTransformFeedbackCounterWrite
	AccessConditionalRenderingRead
)

// ResourceHint narrows the flush set when the barrier concerns a single
// resource. A nil hint means the resource is unknown and every metadata
// cache is treated as possibly involved.
type ResourceHint struct {
	// Image is set for images, unset for buffers.
	Image bool

	// HasColorMetadata is set when the image carries color compression metadata.
	HasColorMetadata bool

	// HasDepthMetadata is set when the image carries depth compression metadata.
	HasDepthMetadata bool
}

func (h *ResourceHint) colorMeta() bool { return h == nil || (h.Image && h.HasColorMetadata) }
func (h *ResourceHint) depthMeta() bool { return h == nil || (h.Image && h.HasDepthMetadata) }
func (h *ResourceHint) image() bool     { return h == nil || h.Image }

// Translator converts the source and destination halves of a barrier into
// flush bits. Source accesses map to write-back/flush of the caches that may
// hold the produced data; destination accesses map to invalidation of the
// caches the consumer reads through.
type Translator interface {
	SrcFlush(stages Stage, access Access, hint *ResourceHint) Bits
	DstFlush(stages Stage, access Access, hint *ResourceHint) Bits
}

// DefaultTranslator is the reference Translator.
type DefaultTranslator struct {
	// L2Coherent is set when every client reads and writes through a
	// coherent L2, so no write-back or invalidation of L2 is needed.
	L2Coherent bool
}

var _ Translator = DefaultTranslator{}

// SrcFlush returns the actions that make writes by (stages, access) visible.
func (t DefaultTranslator) SrcFlush(stages Stage, access Access, hint *ResourceHint) Bits {
	b := stageFlush(stages)

	if access&(AccessMemoryWrite|AccessShaderWrite|AccessTransformFeedbackWrite|
		AccessTransformFeedbackCounterWrite) != 0 {
		if !t.L2Coherent {
			b |= WritebackL2
		}
		// Storage writes to a compressed color image go through the CB
		// metadata path.
		if hint != nil && hint.Image && hint.HasColorMetadata {
			b |= FlushAndInvalidateCB | FlushAndInvalidateCBMeta
		}
	}
	if access&(AccessMemoryWrite|AccessColorAttachmentWrite) != 0 {
		b |= FlushAndInvalidateCB
		if hint.colorMeta() {
			b |= FlushAndInvalidateCBMeta
		}
	}
	if access&(AccessMemoryWrite|AccessDepthStencilWrite) != 0 {
		b |= FlushAndInvalidateDB
		if hint.depthMeta() {
			b |= FlushAndInvalidateDBMeta
		}
	}
	if access&(AccessMemoryWrite|AccessTransferWrite) != 0 {
		// Transfers may be implemented with draws into the target.
		if hint.image() {
			b |= FlushAndInvalidateCB | FlushAndInvalidateDB
			if hint.colorMeta() {
				b |= FlushAndInvalidateCBMeta
			}
			if hint.depthMeta() {
				b |= FlushAndInvalidateDBMeta
			}
		}
		if !t.L2Coherent {
			b |= WritebackL2
		}
	}
	return b
}

// DstFlush returns the actions that make prior writes visible to (stages, access).
func (t DefaultTranslator) DstFlush(stages Stage, access Access, hint *ResourceHint) Bits {
	var b Bits

	if access&(AccessIndirectCommandRead|AccessIndexRead|AccessConditionalRenderingRead|
		AccessTransformFeedbackCounterRead) != 0 && !t.L2Coherent {
		b |= InvalidateL2
	}
	if access&(AccessMemoryRead|AccessUniformRead) != 0 {
		b |= InvalidateSMem | InvalidateVMem
		if !t.L2Coherent {
			b |= InvalidateL2
		}
	}
	if access&(AccessMemoryRead|AccessVertexAttributeRead|AccessShaderRead|
		AccessInputAttachmentRead|AccessTransferRead|AccessShaderWrite) != 0 {
		b |= InvalidateVMem
		if !t.L2Coherent {
			b |= InvalidateL2
		}
		if access&(AccessShaderRead|AccessInputAttachmentRead|AccessMemoryRead) != 0 &&
			hint != nil && hint.Image && hint.HasColorMetadata {
			b |= InvalidateL2Metadata
		}
	}
	if access&(AccessMemoryRead|AccessColorAttachmentRead|AccessColorAttachmentWrite) != 0 {
		b |= FlushAndInvalidateCB
		if hint.colorMeta() {
			b |= FlushAndInvalidateCBMeta
		}
	}
	if access&(AccessMemoryRead|AccessDepthStencilRead|AccessDepthStencilWrite) != 0 {
		b |= FlushAndInvalidateDB
		if hint.depthMeta() {
			b |= FlushAndInvalidateDBMeta
		}
	}
	if stages&(StageAllCommands|StageAllGraphics|StageTaskShader|StageMeshShader) != 0 &&
		access&(AccessShaderRead|AccessMemoryRead) != 0 {
		b |= InvalidateICache
	}
	return b
}

// stageFlush returns the partial flushes that wait for the given producer stages.
func stageFlush(stages Stage) Bits {
	var b Bits
	if stages&(StageComputeShader|StageTransfer|StageAllCommands) != 0 {
		b |= CSPartialFlush
	}
	if stages&(pixelStages|StageAllGraphics|StageAllCommands|StageBottomOfPipe) != 0 {
		b |= PSPartialFlush
	} else if stages&preRasterStages != 0 {
		b |= VSPartialFlush
	}
	return b
}

// Barrier combines the source and destination halves of a barrier.
func Barrier(t Translator, srcStages Stage, srcAccess Access, dstStages Stage, dstAccess Access, hint *ResourceHint) Bits {
	return t.SrcFlush(srcStages, srcAccess, hint) | t.DstFlush(dstStages, dstAccess, hint)
}
