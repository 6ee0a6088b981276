package dirty

import "github.com/gogpu/gputypes"

// Limits of the array-valued state.
const (
	MaxViewports         = 16
	MaxColorAttachments  = 8
	MaxDiscardRectangles = 4
	MaxVertexBindings    = 32
	MaxVertexAttributes  = 32
	MaxSampleLocations   = 16
)

// ViewportRect is one viewport transform.
type ViewportRect struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Equal compares bit for bit.
func (v ViewportRect) Equal(o ViewportRect) bool {
	return Float32Equal(v.X, o.X) && Float32Equal(v.Y, o.Y) &&
		Float32Equal(v.Width, o.Width) && Float32Equal(v.Height, o.Height) &&
		Float32Equal(v.MinDepth, o.MinDepth) && Float32Equal(v.MaxDepth, o.MaxDepth)
}

// Rect is an integer rectangle.
type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// DepthBiasValues are the three depth bias factors.
type DepthBiasValues struct {
	Constant float32
	Clamp    float32
	Slope    float32
}

// Equal compares bit for bit.
func (d DepthBiasValues) Equal(o DepthBiasValues) bool {
	return Float32Equal(d.Constant, o.Constant) && Float32Equal(d.Clamp, o.Clamp) &&
		Float32Equal(d.Slope, o.Slope)
}

// DepthRange is a [Min, Max] depth interval.
type DepthRange struct {
	Min, Max float32
}

// Equal compares bit for bit.
func (d DepthRange) Equal(o DepthRange) bool {
	return Float32Equal(d.Min, o.Min) && Float32Equal(d.Max, o.Max)
}

// Color is the blend constant color.
type Color gputypes.Color

// Equal compares bit for bit.
func (c Color) Equal(o Color) bool {
	return Float64Equal(c.R, o.R) && Float64Equal(c.G, o.G) &&
		Float64Equal(c.B, o.B) && Float64Equal(c.A, o.A)
}

// StencilPair holds a per-face stencil value.
type StencilPair struct {
	Front, Back uint32
}

// StencilOps holds per-face stencil operations.
type StencilOps struct {
	Front, Back gputypes.StencilFaceState
}

// SamplePosition is a sample location inside a pixel, in [0, 1).
type SamplePosition struct {
	X, Y float32
}

// SampleLocationsInfo is a custom sample pattern.
type SampleLocationsInfo struct {
	PerPixel   uint32
	GridWidth  uint32
	GridHeight uint32
	Count      uint32
	Positions  [MaxSampleLocations]SamplePosition
}

// Equal compares bit for bit.
func (s SampleLocationsInfo) Equal(o SampleLocationsInfo) bool {
	if s.PerPixel != o.PerPixel || s.GridWidth != o.GridWidth ||
		s.GridHeight != o.GridHeight || s.Count != o.Count {
		return false
	}
	for i := range s.Positions {
		if !Float32Equal(s.Positions[i].X, o.Positions[i].X) ||
			!Float32Equal(s.Positions[i].Y, o.Positions[i].Y) {
			return false
		}
	}
	return true
}

// Stipple is a line stipple pattern.
type Stipple struct {
	Factor  uint32
	Pattern uint16
}

// ShadingRate is the fragment shading rate and its combiners.
type ShadingRate struct {
	Width, Height uint32
	Combiners     [2]uint8
}

// VertexAttribute is one dynamically specified vertex attribute.
type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   gputypes.VertexFormat
	Offset   uint32
}

// LogicOperation is a framebuffer logic operation.
type LogicOperation uint8

// Logic operations.
const (
	LogicOpClear LogicOperation = iota
	LogicOpAnd
	LogicOpAndReverse
	LogicOpCopy
	LogicOpAndInverted
	LogicOpNoop
	LogicOpXor
	LogicOpOr
	LogicOpNor
	LogicOpEquivalent
	LogicOpInvert
	LogicOpOrReverse
	LogicOpCopyInverted
	LogicOpOrInverted
	LogicOpNand
	LogicOpSet
)

// FillMode is the polygon rasterization mode.
type FillMode uint8

// Fill modes.
const (
	FillModeFill FillMode = iota
	FillModeLine
	FillModePoint
)

// ConservativeMode is the conservative rasterization mode.
type ConservativeMode uint8

// Conservative rasterization modes.
const (
	ConservativeDisabled ConservativeMode = iota
	ConservativeOverestimate
	ConservativeUnderestimate
)

// LineMode is the line rasterization mode.
type LineMode uint8

// Line rasterization modes.
const (
	LineModeDefault LineMode = iota
	LineModeRectangular
	LineModeBresenham
	LineModeSmooth
)

// DynamicState is the full settable draw state of one encoder.
type DynamicState struct {
	Viewports                    List[ViewportRect]
	Scissors                     List[Rect]
	LineWidth                    Field[float32]
	DepthBias                    Field[DepthBiasValues]
	BlendConstants               Field[Color]
	DepthBounds                  Field[DepthRange]
	StencilCompareMask           Field[StencilPair]
	StencilWriteMask             Field[StencilPair]
	StencilReference             Field[StencilPair]
	DiscardRectangles            List[Rect]
	SampleLocations              Field[SampleLocationsInfo]
	LineStipple                  Field[Stipple]
	CullMode                     Field[gputypes.CullMode]
	FrontFace                    Field[gputypes.FrontFace]
	PrimitiveTopology            Field[gputypes.PrimitiveTopology]
	DepthTestEnable              Field[bool]
	DepthWriteEnable             Field[bool]
	DepthCompareOp               Field[gputypes.CompareFunction]
	DepthBoundsTestEnable        Field[bool]
	StencilTestEnable            Field[bool]
	StencilOp                    Field[StencilOps]
	VertexBindingStrides         List[uint32]
	FragmentShadingRate          Field[ShadingRate]
	PatchControlPoints           Field[uint32]
	RasterizerDiscardEnable      Field[bool]
	DepthBiasEnable              Field[bool]
	LogicOp                      Field[LogicOperation]
	PrimitiveRestartEnable       Field[bool]
	ColorWriteEnable             Field[uint32]
	VertexAttributes             List[VertexAttribute]
	PolygonMode                  Field[FillMode]
	TessDomainOriginLowerLeft    Field[bool]
	LogicOpEnable                Field[bool]
	LineStippleEnable            Field[bool]
	AlphaToCoverageEnable        Field[bool]
	SampleMask                   Field[uint32]
	DepthClipEnable              Field[bool]
	ConservativeRastMode         Field[ConservativeMode]
	DepthClipNegativeOneToOne    Field[bool]
	ProvokingVertexLast          Field[bool]
	DepthClampEnable             Field[bool]
	ColorWriteMasks              List[gputypes.ColorWriteMask]
	ColorBlendEnable             Field[uint32]
	RasterizationSamples         Field[uint32]
	LineRasterizationMode        Field[LineMode]
	ColorBlendEquations          List[gputypes.BlendState]
	DiscardRectangleEnable       Field[bool]
	DiscardRectangleExclusive    Field[bool]
	AttachmentFeedbackLoopEnable Field[bool]
	SampleLocationsEnable        Field[bool]
	AlphaToOneEnable             Field[bool]
}

var defaultStencilFace = gputypes.StencilFaceState{
	Compare:     gputypes.CompareFunctionAlways,
	FailOp:      gputypes.StencilOperationKeep,
	DepthFailOp: gputypes.StencilOperationKeep,
	PassOp:      gputypes.StencilOperationKeep,
}

// DefaultBlendEquation is the pass-through blend equation.
var DefaultBlendEquation = gputypes.BlendStateReplace()

// NewDynamicState returns the state at the start of a recording.
func NewDynamicState() *DynamicState {
	return &DynamicState{
		Viewports:                    NewListEq(Viewport, MaxViewports, ViewportRect{MaxDepth: 1}),
		Scissors:                     NewList(Scissor, MaxViewports, Rect{}),
		LineWidth:                    NewFieldFunc(LineWidth, float32(1), Float32Equal),
		DepthBias:                    NewFieldEq(DepthBias, DepthBiasValues{}),
		BlendConstants:               NewFieldEq(BlendConstants, Color{}),
		DepthBounds:                  NewFieldEq(DepthBounds, DepthRange{Min: 0, Max: 1}),
		StencilCompareMask:           NewField(StencilCompareMask, StencilPair{Front: 0xFF, Back: 0xFF}),
		StencilWriteMask:             NewField(StencilWriteMask, StencilPair{Front: 0xFF, Back: 0xFF}),
		StencilReference:             NewField(StencilReference, StencilPair{}),
		DiscardRectangles:            NewList(DiscardRectangle, MaxDiscardRectangles, Rect{}),
		SampleLocations:              NewFieldEq(SampleLocations, SampleLocationsInfo{}),
		LineStipple:                  NewField(LineStipple, Stipple{Factor: 1, Pattern: 0xFFFF}),
		CullMode:                     NewField(CullMode, gputypes.CullModeNone),
		FrontFace:                    NewField(FrontFace, gputypes.FrontFaceCCW),
		PrimitiveTopology:            NewField(PrimitiveTopology, gputypes.PrimitiveTopologyTriangleList),
		DepthTestEnable:              NewField(DepthTestEnable, false),
		DepthWriteEnable:             NewField(DepthWriteEnable, false),
		DepthCompareOp:               NewField(DepthCompareOp, gputypes.CompareFunctionAlways),
		DepthBoundsTestEnable:        NewField(DepthBoundsTestEnable, false),
		StencilTestEnable:            NewField(StencilTestEnable, false),
		StencilOp:                    NewField(StencilOp, StencilOps{Front: defaultStencilFace, Back: defaultStencilFace}),
		VertexBindingStrides:         NewList(VertexInputBindingStride, MaxVertexBindings, uint32(0)),
		FragmentShadingRate:          NewField(FragmentShadingRate, ShadingRate{Width: 1, Height: 1}),
		PatchControlPoints:           NewField(PatchControlPoints, uint32(0)),
		RasterizerDiscardEnable:      NewField(RasterizerDiscardEnable, false),
		DepthBiasEnable:              NewField(DepthBiasEnable, false),
		LogicOp:                      NewField(LogicOp, LogicOpCopy),
		PrimitiveRestartEnable:       NewField(PrimitiveRestartEnable, false),
		ColorWriteEnable:             NewField(ColorWriteEnable, uint32(0xFF)),
		VertexAttributes:             NewList(VertexInput, MaxVertexAttributes, VertexAttribute{}),
		PolygonMode:                  NewField(PolygonMode, FillModeFill),
		TessDomainOriginLowerLeft:    NewField(TessDomainOrigin, false),
		LogicOpEnable:                NewField(LogicOpEnable, false),
		LineStippleEnable:            NewField(LineStippleEnable, false),
		AlphaToCoverageEnable:        NewField(AlphaToCoverageEnable, false),
		SampleMask:                   NewField(SampleMask, uint32(0xFFFFFFFF)),
		DepthClipEnable:              NewField(DepthClipEnable, true),
		ConservativeRastMode:         NewField(ConservativeRastMode, ConservativeDisabled),
		DepthClipNegativeOneToOne:    NewField(DepthClipNegativeOneToOne, false),
		ProvokingVertexLast:          NewField(ProvokingVertexMode, false),
		DepthClampEnable:             NewField(DepthClampEnable, false),
		ColorWriteMasks:              NewList(ColorWriteMask, MaxColorAttachments, gputypes.ColorWriteMaskAll),
		ColorBlendEnable:             NewField(ColorBlendEnable, uint32(0)),
		RasterizationSamples:         NewField(RasterizationSamples, uint32(1)),
		LineRasterizationMode:        NewField(LineRasterizationMode, LineModeDefault),
		ColorBlendEquations:          NewList(ColorBlendEquation, MaxColorAttachments, DefaultBlendEquation),
		DiscardRectangleEnable:       NewField(DiscardRectangleEnable, false),
		DiscardRectangleExclusive:    NewField(DiscardRectangleMode, false),
		AttachmentFeedbackLoopEnable: NewField(AttachmentFeedbackLoopEnable, false),
		SampleLocationsEnable:        NewField(SampleLocationsEnable, false),
		AlphaToOneEnable:             NewField(AlphaToOneEnable, false),
	}
}

// Reset restores every field to its default without marking anything.
func (s *DynamicState) Reset() {
	s.Viewports.Reset()
	s.Scissors.Reset()
	s.LineWidth.Reset()
	s.DepthBias.Reset()
	s.BlendConstants.Reset()
	s.DepthBounds.Reset()
	s.StencilCompareMask.Reset()
	s.StencilWriteMask.Reset()
	s.StencilReference.Reset()
	s.DiscardRectangles.Reset()
	s.SampleLocations.Reset()
	s.LineStipple.Reset()
	s.CullMode.Reset()
	s.FrontFace.Reset()
	s.PrimitiveTopology.Reset()
	s.DepthTestEnable.Reset()
	s.DepthWriteEnable.Reset()
	s.DepthCompareOp.Reset()
	s.DepthBoundsTestEnable.Reset()
	s.StencilTestEnable.Reset()
	s.StencilOp.Reset()
	s.VertexBindingStrides.Reset()
	s.FragmentShadingRate.Reset()
	s.PatchControlPoints.Reset()
	s.RasterizerDiscardEnable.Reset()
	s.DepthBiasEnable.Reset()
	s.LogicOp.Reset()
	s.PrimitiveRestartEnable.Reset()
	s.ColorWriteEnable.Reset()
	s.VertexAttributes.Reset()
	s.PolygonMode.Reset()
	s.TessDomainOriginLowerLeft.Reset()
	s.LogicOpEnable.Reset()
	s.LineStippleEnable.Reset()
	s.AlphaToCoverageEnable.Reset()
	s.SampleMask.Reset()
	s.DepthClipEnable.Reset()
	s.ConservativeRastMode.Reset()
	s.DepthClipNegativeOneToOne.Reset()
	s.ProvokingVertexLast.Reset()
	s.DepthClampEnable.Reset()
	s.ColorWriteMasks.Reset()
	s.ColorBlendEnable.Reset()
	s.RasterizationSamples.Reset()
	s.LineRasterizationMode.Reset()
	s.ColorBlendEquations.Reset()
	s.DiscardRectangleEnable.Reset()
	s.DiscardRectangleExclusive.Reset()
	s.AttachmentFeedbackLoopEnable.Reset()
	s.SampleLocationsEnable.Reset()
	s.AlphaToOneEnable.Reset()
}
