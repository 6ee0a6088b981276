package dirty

import "fmt"

// Bit identifies one dirty-trackable piece of state.
type Bit uint8

// Dynamic state bits. Each corresponds to one settable field.
const (
	Viewport Bit = iota
	Scissor
	LineWidth
	DepthBias
	BlendConstants
	DepthBounds
	StencilCompareMask
	StencilWriteMask
	StencilReference
	DiscardRectangle
	SampleLocations
	LineStipple
	CullMode
	FrontFace
	PrimitiveTopology
	DepthTestEnable
	DepthWriteEnable
	DepthCompareOp
	DepthBoundsTestEnable
	StencilTestEnable
	StencilOp
	VertexInputBindingStride
	FragmentShadingRate
	PatchControlPoints
	RasterizerDiscardEnable
	DepthBiasEnable
	LogicOp
	PrimitiveRestartEnable
	ColorWriteEnable
	VertexInput
	PolygonMode
	TessDomainOrigin
	LogicOpEnable
	LineStippleEnable
	AlphaToCoverageEnable
	SampleMask
	DepthClipEnable
	ConservativeRastMode
	DepthClipNegativeOneToOne
	ProvokingVertexMode
	DepthClampEnable
	ColorWriteMask
	ColorBlendEnable
	RasterizationSamples
	LineRasterizationMode
	ColorBlendEquation
	DiscardRectangleEnable
	DiscardRectangleMode
	AttachmentFeedbackLoopEnable
	SampleLocationsEnable
	AlphaToOneEnable

	dynamicCount
)

// Derived and binding bits. These are not set directly by a field; they
// are marked by bind operations or by propagation from dynamic bits.
const (
	Pipeline Bit = dynamicCount + iota
	IndexBuffer
	Framebuffer
	VertexBuffer
	StreamoutBuffer
	Guardband
	RBPlus
	ShaderQuery
	OcclusionQuery
	DBShaderControl
	StreamoutEnable
	GraphicsShaders
	Descriptors
	PushConstants
	ComputePipeline
	ComputeDescriptors
	ComputePushConstants
	Predication

	bitCount
)

// DynamicCount is the number of dynamic state bits.
const DynamicCount = int(dynamicCount)

// Count is the total number of bits.
const Count = int(bitCount)

var bitNames = [bitCount]string{
	Viewport:                     "Viewport",
	Scissor:                      "Scissor",
	LineWidth:                    "LineWidth",
	DepthBias:                    "DepthBias",
	BlendConstants:               "BlendConstants",
	DepthBounds:                  "DepthBounds",
	StencilCompareMask:           "StencilCompareMask",
	StencilWriteMask:             "StencilWriteMask",
	StencilReference:             "StencilReference",
	DiscardRectangle:             "DiscardRectangle",
	SampleLocations:              "SampleLocations",
	LineStipple:                  "LineStipple",
	CullMode:                     "CullMode",
	FrontFace:                    "FrontFace",
	PrimitiveTopology:            "PrimitiveTopology",
	DepthTestEnable:              "DepthTestEnable",
	DepthWriteEnable:             "DepthWriteEnable",
	DepthCompareOp:               "DepthCompareOp",
	DepthBoundsTestEnable:        "DepthBoundsTestEnable",
	StencilTestEnable:            "StencilTestEnable",
	StencilOp:                    "StencilOp",
	VertexInputBindingStride:     "VertexInputBindingStride",
	FragmentShadingRate:          "FragmentShadingRate",
	PatchControlPoints:           "PatchControlPoints",
	RasterizerDiscardEnable:      "RasterizerDiscardEnable",
	DepthBiasEnable:              "DepthBiasEnable",
	LogicOp:                      "LogicOp",
	PrimitiveRestartEnable:       "PrimitiveRestartEnable",
	ColorWriteEnable:             "ColorWriteEnable",
	VertexInput:                  "VertexInput",
	PolygonMode:                  "PolygonMode",
	TessDomainOrigin:             "TessDomainOrigin",
	LogicOpEnable:                "LogicOpEnable",
	LineStippleEnable:            "LineStippleEnable",
	AlphaToCoverageEnable:        "AlphaToCoverageEnable",
	SampleMask:                   "SampleMask",
	DepthClipEnable:              "DepthClipEnable",
	ConservativeRastMode:         "ConservativeRastMode",
	DepthClipNegativeOneToOne:    "DepthClipNegativeOneToOne",
	ProvokingVertexMode:          "ProvokingVertexMode",
	DepthClampEnable:             "DepthClampEnable",
	ColorWriteMask:               "ColorWriteMask",
	ColorBlendEnable:             "ColorBlendEnable",
	RasterizationSamples:         "RasterizationSamples",
	LineRasterizationMode:        "LineRasterizationMode",
	ColorBlendEquation:           "ColorBlendEquation",
	DiscardRectangleEnable:       "DiscardRectangleEnable",
	DiscardRectangleMode:         "DiscardRectangleMode",
	AttachmentFeedbackLoopEnable: "AttachmentFeedbackLoopEnable",
	SampleLocationsEnable:        "SampleLocationsEnable",
	AlphaToOneEnable:             "AlphaToOneEnable",
	Pipeline:                     "Pipeline",
	IndexBuffer:                  "IndexBuffer",
	Framebuffer:                  "Framebuffer",
	VertexBuffer:                 "VertexBuffer",
	StreamoutBuffer:              "StreamoutBuffer",
	Guardband:                    "Guardband",
	RBPlus:                       "RBPlus",
	ShaderQuery:                  "ShaderQuery",
	OcclusionQuery:               "OcclusionQuery",
	DBShaderControl:              "DBShaderControl",
	StreamoutEnable:              "StreamoutEnable",
	GraphicsShaders:              "GraphicsShaders",
	Descriptors:                  "Descriptors",
	PushConstants:                "PushConstants",
	ComputePipeline:              "ComputePipeline",
	ComputeDescriptors:           "ComputeDescriptors",
	ComputePushConstants:         "ComputePushConstants",
	Predication:                  "Predication",
}

// String returns the bit name.
func (b Bit) String() string {
	if b < bitCount {
		return bitNames[b]
	}
	return fmt.Sprintf("Bit(%d)", uint8(b))
}

// Dynamic reports whether b is a dynamic state bit.
func (b Bit) Dynamic() bool { return b < dynamicCount }

// adjacency lists the bits a change to the key bit also invalidates.
// Closure is taken transitively at init.
var adjacency = map[Bit][]Bit{
	Viewport:                     {Scissor, Guardband},
	LineWidth:                    {Guardband},
	PrimitiveTopology:            {Guardband, LineStipple},
	PolygonMode:                  {Guardband},
	DepthClampEnable:             {Viewport},
	DepthClipNegativeOneToOne:    {Viewport},
	ColorWriteMask:               {RBPlus, DBShaderControl},
	ColorWriteEnable:             {RBPlus, DBShaderControl},
	ColorBlendEnable:             {RBPlus},
	ColorBlendEquation:           {RBPlus},
	AlphaToCoverageEnable:        {DBShaderControl},
	RasterizationSamples:         {SampleLocations, DBShaderControl, LineStipple},
	LineRasterizationMode:        {LineStipple},
	LineStippleEnable:            {LineStipple},
	SampleLocationsEnable:        {SampleLocations},
	DiscardRectangleEnable:       {DiscardRectangle},
	DiscardRectangleMode:         {DiscardRectangle},
	ConservativeRastMode:         {DBShaderControl},
	AttachmentFeedbackLoopEnable: {DBShaderControl},
	AlphaToOneEnable:             {DBShaderControl},
	VertexInput:                  {VertexBuffer},
	VertexInputBindingStride:     {VertexBuffer},
	Pipeline:                     {GraphicsShaders, Guardband, DBShaderControl, RBPlus, VertexBuffer, ShaderQuery, StreamoutBuffer},
	Framebuffer:                  {RBPlus, DBShaderControl},
	OcclusionQuery:               {DBShaderControl},
	StreamoutBuffer:              {StreamoutEnable},
}

// closure[b] is b plus everything reachable from b through adjacency.
var closure [bitCount]Mask

func init() {
	for b := Bit(0); b < bitCount; b++ {
		var m Mask
		stack := []Bit{b}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if m.Has(cur) {
				continue
			}
			m = m.With(cur)
			stack = append(stack, adjacency[cur]...)
		}
		closure[b] = m
	}
}

// Closure returns b together with every bit it propagates to.
func Closure(b Bit) Mask { return closure[b] }

// Adjacent returns the bits directly invalidated by b.
func Adjacent(b Bit) []Bit { return adjacency[b] }
