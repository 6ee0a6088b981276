// Package regs defines the logical register file the encoder programs.
//
// Register ids are dense indices, not hardware offsets; the downstream
// executor maps them. Runs of related registers are contiguous so they can
// be written with one SetRegSeq.
package regs

// Array sizes of the register file.
const (
	MaxViewports        = 16
	MaxColorTargets     = 8
	MaxDiscardRects     = 4
	MaxSampleLocs       = 16
	MaxStreamoutBuffers = 4
	UserDataSlots       = 16
)

// Per-viewport register layout.
const (
	ViewportXScale = iota
	ViewportXOffset
	ViewportYScale
	ViewportYOffset
	ViewportZScale
	ViewportZOffset

	ViewportRegs
)

// Register ids.
const (
	ViewportXform  uint32 = 0
	ViewportZRange        = ViewportXform + ViewportRegs*MaxViewports // zmin, zmax per viewport
	ScissorRect           = ViewportZRange + 2*MaxViewports           // tl, br per viewport

	GuardbandVertClip = ScissorRect + 2*MaxViewports
	GuardbandVertDisc = GuardbandVertClip + 1
	GuardbandHorzClip = GuardbandVertClip + 2
	GuardbandHorzDisc = GuardbandVertClip + 3

	LineCntl    = GuardbandVertClip + 4
	LineStipple = LineCntl + 1

	PolyOffsetClamp       = LineStipple + 1
	PolyOffsetFrontScale  = PolyOffsetClamp + 1
	PolyOffsetFrontOffset = PolyOffsetClamp + 2
	PolyOffsetBackScale   = PolyOffsetClamp + 3
	PolyOffsetBackOffset  = PolyOffsetClamp + 4

	BlendConstants = PolyOffsetClamp + 5 // r, g, b, a
	DepthBoundsMin = BlendConstants + 4
	DepthBoundsMax = DepthBoundsMin + 1

	StencilRefMaskFront = DepthBoundsMax + 1
	StencilRefMaskBack  = StencilRefMaskFront + 1
	DepthControl        = StencilRefMaskBack + 1
	StencilControl      = DepthControl + 1

	SUModeCntl       = StencilControl + 1
	PrimitiveType    = SUModeCntl + 1
	PrimitiveRestart = PrimitiveType + 1
	ClipCntl         = PrimitiveRestart + 1
	VertexReuse      = ClipCntl + 1

	CBColorControl = VertexReuse + 1
	CBTargetMask   = CBColorControl + 1
	CBShaderMask   = CBTargetMask + 1
	CBBlendControl = CBShaderMask + 1                 // one per target
	CBColorInfo    = CBBlendControl + MaxColorTargets // one per target

	DBZInfo         = CBColorInfo + MaxColorTargets
	DBStencilInfo   = DBZInfo + 1
	ScreenScissorTL = DBStencilInfo + 1
	ScreenScissorBR = ScreenScissorTL + 1
	DBShaderControl = ScreenScissorBR + 1

	SXPSDownconvert   = DBShaderControl + 1
	SXBlendOptEpsilon = SXPSDownconvert + 1
	SXBlendOptControl = SXPSDownconvert + 2

	AAConfig          = SXBlendOptControl + 1
	AASampleMask      = AAConfig + 1       // two words
	SampleLocs        = AASampleMask + 2   // one per sample
	SampleLocCentroid = SampleLocs + MaxSampleLocs
	ModeCntl          = SampleLocCentroid + 1
	ConservativeRast  = ModeCntl + 1

	DiscardRectRule = ConservativeRast + 1
	DiscardRect     = DiscardRectRule + 1 // tl, br per rectangle

	TessConfig     = DiscardRect + 2*MaxDiscardRects
	TessDomain     = TessConfig + 1
	DBCountControl = TessDomain + 1

	StreamoutConfig       = DBCountControl + 1
	StreamoutBufferConfig = StreamoutConfig + 1
	StreamoutBufferBase   = StreamoutBufferConfig + 1                 // lo, hi per buffer
	StreamoutBufferSize   = StreamoutBufferBase + 2*MaxStreamoutBuffers // one per buffer

	VRSRateCntl    = StreamoutBufferSize + MaxStreamoutBuffers
	SPIColFormat   = VRSRateCntl + 1
	SPIZFormat     = SPIColFormat + 1
	SPIPSInputEna  = SPIZFormat + 1
	IndexType      = SPIPSInputEna + 1
	VertexDescAddr = IndexType + 1 // lo, hi
	InstanceStep   = VertexDescAddr + 2
	PSEpilogAddr   = InstanceStep + 1 // lo, hi

	ComputeNumThread = PSEpilogAddr + 2     // x, y, z
	ComputeStart     = ComputeNumThread + 3 // x, y, z
	ComputeResources = ComputeStart + 3

	// Per-stage program blocks follow; see Stages.
	stageBase = ComputeResources + 1
)

// Per-stage block layout: program address lo/hi, two resource words, user data.
const (
	stagePgmLo = iota
	stagePgmHi
	stageRsrc1
	stageRsrc2
	stageUserData

	stageRegs = stageUserData + UserDataSlots
)

// Count is the number of logical registers.
const Count = stageBase + uint32(StageCount)*stageRegs
