package cmdstream

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdstream/internal/dirty"
	"github.com/gogpu/cmdstream/internal/regs"
)

// ShaderStage is a programmable pipeline stage.
type ShaderStage uint8

// Shader stages.
const (
	StageVertex         = ShaderStage(regs.StageVertex)
	StageTessControl    = ShaderStage(regs.StageTessCtrl)
	StageTessEvaluation = ShaderStage(regs.StageTessEval)
	StageGeometry       = ShaderStage(regs.StageGeometry)
	StageFragment       = ShaderStage(regs.StageFragment)
	StageTask           = ShaderStage(regs.StageTask)
	StageMesh           = ShaderStage(regs.StageMesh)
	StageCompute        = ShaderStage(regs.StageCompute)

	StageCount = ShaderStage(regs.StageCount)
)

func (s ShaderStage) regs() regs.StageRegs { return regs.Stages[regs.Stage(s)] }

// String returns the stage name.
func (s ShaderStage) String() string {
	if s < StageCount {
		return regs.Stage(s).String()
	}
	return fmt.Sprintf("ShaderStage(%d)", uint8(s))
}

// State value types shared with the dynamic state tracker.
type (
	Viewport         = dirty.ViewportRect
	Rect             = dirty.Rect
	DepthBias        = dirty.DepthBiasValues
	SampleLocations  = dirty.SampleLocationsInfo
	SamplePosition   = dirty.SamplePosition
	LineStipple      = dirty.Stipple
	ShadingRate      = dirty.ShadingRate
	VertexAttribute  = dirty.VertexAttribute
	LogicOp          = dirty.LogicOperation
	PolygonMode      = dirty.FillMode
	ConservativeMode = dirty.ConservativeMode
	LineMode         = dirty.LineMode
)

// StencilFace selects the stencil faces a setter applies to.
type StencilFace uint8

// Stencil faces.
const (
	StencilFaceFront StencilFace = 1 << iota
	StencilFaceBack

	StencilFaceBoth = StencilFaceFront | StencilFaceBack
)

// GraphicsPipeline is the static part of a graphics pipeline.
//
// Every optional state block that is nil is left dynamic: binding the
// pipeline does not touch the corresponding dynamic state, which the
// caller sets with the Set* methods. Non-nil blocks are applied to the
// dynamic state on bind through the same diffing as the setters, so
// rebinding an identical pipeline dirties nothing.
type GraphicsPipeline struct {
	Label string

	// Shaders holds the graphics stages, indexed by ShaderStage. The task
	// stage is bound separately with BindAuxiliaryWork and the compute
	// slot is ignored.
	Shaders [StageCount]*Shader

	Primitive    *gputypes.PrimitiveState
	DepthStencil *gputypes.DepthStencilState
	Multisample  *gputypes.MultisampleState

	// Targets are the blend equations and write masks per color target.
	// Nil leaves blending dynamic. A target with a nil Blend has blending
	// disabled.
	Targets []gputypes.ColorTargetState

	// PatchControlPoints, when non-zero, fixes the tessellation patch size.
	PatchControlPoints uint32

	// VertexStrides and VertexAttributes, when non-nil, fix the vertex input.
	VertexStrides    []uint32
	VertexAttributes []VertexAttribute

	// PushConstantStages selects the stages that receive push constants.
	PushConstantStages gputypes.ShaderStage
}

// stage returns the shader bound at s, or nil.
func (p *GraphicsPipeline) stage(s ShaderStage) *Shader {
	if p == nil || s >= StageCount {
		return nil
	}
	return p.Shaders[s]
}

// scratch returns the largest per-wave scratch size among the shaders.
func (p *GraphicsPipeline) scratch() uint32 {
	var n uint32
	for _, sh := range p.Shaders {
		if sh != nil {
			n = max(n, sh.ScratchBytesPerWave())
		}
	}
	return n
}

// ComputePipeline is a compute shader with its launch parameters.
type ComputePipeline struct {
	Label  string
	Shader *Shader
}

// AuxiliaryWork is the work bound to the auxiliary engine for mesh draws.
type AuxiliaryWork struct {
	// Task is the task shader dispatched on the auxiliary engine ahead of
	// each mesh draw. Nil unbinds it.
	Task *Shader
}

// VertexBuffer is one vertex buffer binding.
type VertexBuffer struct {
	Address uint64
	Size    uint64

	// Stride, when non-zero, replaces the binding stride.
	Stride uint32
}

// StreamoutBuffer is one transform feedback buffer binding.
type StreamoutBuffer struct {
	Address uint64
	Size    uint64
}

// RenderingInfo describes the attachments of a rendering scope.
type RenderingInfo struct {
	Area               Rect
	ColorFormats       []gputypes.TextureFormat
	DepthStencilFormat gputypes.TextureFormat
}

// BindPoint selects the graphics or compute binding slots.
type BindPoint uint8

// Bind points.
const (
	BindPointGraphics BindPoint = iota
	BindPointCompute

	bindPointCount
)

func (b BindPoint) String() string {
	if b == BindPointCompute {
		return "compute"
	}
	return "graphics"
}
