package regs

import (
	"math"

	"github.com/gogpu/gputypes"
)

// Float returns the register encoding of a float.
func Float(v float32) uint32 { return math.Float32bits(v) }

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func clampU(v float32, hi uint32) uint32 {
	if v <= 0 || math.IsNaN(float64(v)) {
		return 0
	}
	if v >= float32(hi) {
		return hi
	}
	return uint32(v)
}

// Viewport computes the six transform registers and the z range of one viewport.
func Viewport(x, y, w, h, minDepth, maxDepth float32, negOneToOne bool) (xform [ViewportRegs]uint32, zmin, zmax uint32) {
	xs, xo := w*0.5, x+w*0.5
	ys, yo := h*0.5, y+h*0.5
	var zs, zo float32
	if negOneToOne {
		zs, zo = (maxDepth-minDepth)*0.5, (maxDepth+minDepth)*0.5
	} else {
		zs, zo = maxDepth-minDepth, minDepth
	}
	xform[ViewportXScale] = Float(xs)
	xform[ViewportXOffset] = Float(xo)
	xform[ViewportYScale] = Float(ys)
	xform[ViewportYOffset] = Float(yo)
	xform[ViewportZScale] = Float(zs)
	xform[ViewportZOffset] = Float(zo)
	return xform, Float(min(minDepth, maxDepth)), Float(max(minDepth, maxDepth))
}

// MaxScreenCoord is the largest scissor coordinate.
const MaxScreenCoord = 16384

func clampCoord(v int64) uint32 {
	return uint32(min(max(v, 0), MaxScreenCoord))
}

// Scissor packs a rectangle into top-left and bottom-right registers.
func Scissor(x, y int32, w, h uint32) (tl, br uint32) {
	x0, y0 := int64(x), int64(y)
	x1, y1 := x0+int64(w), y0+int64(h)
	tl = clampCoord(x0) | clampCoord(y0)<<16
	br = clampCoord(x1) | clampCoord(y1)<<16
	return tl, br
}

// LineCntlWord encodes the line width in 12.4 fixed point of the half width.
func LineCntlWord(width float32) uint32 {
	return clampU(width*8, 0xFFFF)
}

// LineStippleWord packs the stipple pattern, repeat factor and enable.
func LineStippleWord(factor uint32, pattern uint16, enable bool, autoReset bool) uint32 {
	if factor == 0 {
		factor = 1
	}
	return uint32(pattern) | (min(factor, 256)-1)<<16 | b2u(enable)<<24 | b2u(autoReset)<<25
}

// PolyOffset returns the clamp, scale and offset registers.
// Front and back faces share the values.
func PolyOffset(enable bool, constant, clamp, slope float32) [5]uint32 {
	if !enable {
		return [5]uint32{}
	}
	scale := Float(slope * 16)
	offset := Float(constant)
	return [5]uint32{Float(clamp), scale, offset, scale, offset}
}

func compareCode(c gputypes.CompareFunction) uint32 {
	switch c {
	case gputypes.CompareFunctionNever:
		return 0
	case gputypes.CompareFunctionLess:
		return 1
	case gputypes.CompareFunctionEqual:
		return 2
	case gputypes.CompareFunctionLessEqual:
		return 3
	case gputypes.CompareFunctionGreater:
		return 4
	case gputypes.CompareFunctionNotEqual:
		return 5
	case gputypes.CompareFunctionGreaterEqual:
		return 6
	default:
		return 7 // always
	}
}

func stencilOpCode(op gputypes.StencilOperation) uint32 {
	switch op {
	case gputypes.StencilOperationZero:
		return 1
	case gputypes.StencilOperationReplace:
		return 2
	case gputypes.StencilOperationInvert:
		return 3
	case gputypes.StencilOperationIncrementClamp:
		return 4
	case gputypes.StencilOperationDecrementClamp:
		return 5
	case gputypes.StencilOperationIncrementWrap:
		return 6
	case gputypes.StencilOperationDecrementWrap:
		return 7
	default:
		return 0 // keep
	}
}

// DepthControlWord packs depth/stencil enables and compare functions.
func DepthControlWord(depthTest, depthWrite bool, depthCmp gputypes.CompareFunction,
	boundsTest, stencilTest bool, front, back gputypes.StencilFaceState) uint32 {
	v := b2u(stencilTest) | b2u(depthTest)<<1 | b2u(depthWrite)<<2 | b2u(boundsTest)<<3
	if depthTest {
		v |= compareCode(depthCmp) << 4
	}
	if stencilTest {
		v |= compareCode(front.Compare)<<8 | compareCode(back.Compare)<<12 | 1<<16 // backface enable
	}
	return v
}

// StencilControlWord packs the per-face stencil operations.
func StencilControlWord(front, back gputypes.StencilFaceState) uint32 {
	return stencilOpCode(front.FailOp) | stencilOpCode(front.PassOp)<<4 | stencilOpCode(front.DepthFailOp)<<8 |
		stencilOpCode(back.FailOp)<<12 | stencilOpCode(back.PassOp)<<16 | stencilOpCode(back.DepthFailOp)<<20
}

// StencilRefMask packs reference, compare mask and write mask of one face.
func StencilRefMask(ref, compareMask, writeMask uint32) uint32 {
	return ref&0xFF | (compareMask&0xFF)<<8 | (writeMask&0xFF)<<16
}

// SUModeCntlWord packs culling, winding, polygon mode, provoking vertex and bias enable.
func SUModeCntlWord(cull gputypes.CullMode, front gputypes.FrontFace, polyMode uint8,
	provokingLast, biasEnable bool) uint32 {
	v := b2u(cull == gputypes.CullModeFront) | b2u(cull == gputypes.CullModeBack)<<1 |
		b2u(front == gputypes.FrontFaceCW)<<2
	if polyMode != 0 {
		v |= 1<<3 | uint32(polyMode)<<5 | uint32(polyMode)<<8
	}
	v |= b2u(biasEnable)<<11 | b2u(biasEnable)<<12 | b2u(provokingLast)<<19
	return v
}

// Primitive type codes.
const (
	PrimPointList     = 1
	PrimLineList      = 2
	PrimLineStrip     = 3
	PrimTriangleList  = 4
	PrimTriangleStrip = 6
	PrimPatch         = 0xC
)

// PrimitiveTypeWord returns the primitive type register. A non-zero patch
// size turns any topology into a patch list.
func PrimitiveTypeWord(t gputypes.PrimitiveTopology, patchSize uint32) uint32 {
	if patchSize > 0 {
		return PrimPatch
	}
	switch t {
	case gputypes.PrimitiveTopologyPointList:
		return PrimPointList
	case gputypes.PrimitiveTopologyLineList:
		return PrimLineList
	case gputypes.PrimitiveTopologyLineStrip:
		return PrimLineStrip
	case gputypes.PrimitiveTopologyTriangleStrip:
		return PrimTriangleStrip
	default:
		return PrimTriangleList
	}
}

// IsLineTopology reports whether t rasterizes lines.
func IsLineTopology(t gputypes.PrimitiveTopology) bool {
	return t == gputypes.PrimitiveTopologyLineList || t == gputypes.PrimitiveTopologyLineStrip
}

// ClipCntlWord packs clipping and rasterizer discard controls.
func ClipCntlWord(depthClip, negOneToOne, rasterDiscard, depthClamp bool) uint32 {
	return b2u(!depthClip)<<16 | b2u(!depthClip)<<17 | b2u(!negOneToOne)<<19 |
		b2u(rasterDiscard)<<22 | b2u(depthClamp)<<23
}

func blendFactorCode(f gputypes.BlendFactor) uint32 {
	switch f {
	case gputypes.BlendFactorZero:
		return 0
	case gputypes.BlendFactorOne, gputypes.BlendFactorUndefined:
		return 1
	case gputypes.BlendFactorSrc:
		return 2
	case gputypes.BlendFactorOneMinusSrc:
		return 3
	case gputypes.BlendFactorSrcAlpha:
		return 4
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return 5
	case gputypes.BlendFactorDstAlpha:
		return 6
	case gputypes.BlendFactorOneMinusDstAlpha:
		return 7
	case gputypes.BlendFactorDst:
		return 8
	case gputypes.BlendFactorOneMinusDst:
		return 9
	case gputypes.BlendFactorSrcAlphaSaturated:
		return 10
	case gputypes.BlendFactorConstant:
		return 13
	case gputypes.BlendFactorOneMinusConstant:
		return 14
	default:
		return 1
	}
}

func blendOpCode(op gputypes.BlendOperation) uint32 {
	switch op {
	case gputypes.BlendOperationSubtract:
		return 1
	case gputypes.BlendOperationMin:
		return 2
	case gputypes.BlendOperationMax:
		return 3
	case gputypes.BlendOperationReverseSubtract:
		return 4
	default:
		return 0 // add
	}
}

// BlendControl packs one target's blend equation and enable.
func BlendControl(enable bool, b gputypes.BlendState) uint32 {
	if !enable {
		return 0
	}
	v := blendFactorCode(b.Color.SrcFactor) | blendOpCode(b.Color.Operation)<<5 |
		blendFactorCode(b.Color.DstFactor)<<8 |
		blendFactorCode(b.Alpha.SrcFactor)<<16 | blendOpCode(b.Alpha.Operation)<<21 |
		blendFactorCode(b.Alpha.DstFactor)<<24
	if b.Alpha != b.Color {
		v |= 1 << 29
	}
	return v | 1<<30
}

// ColorControl packs the logic op and the color output mode.
func ColorControl(logicOpEnable bool, op uint8, anyTarget bool) uint32 {
	rop := uint32(0xCC) // copy
	if logicOpEnable {
		rop = rop3[op&0xF]
	}
	mode := uint32(0) // disabled
	if anyTarget {
		mode = 1 // normal
	}
	return mode<<4 | rop<<16
}

// rop3 maps the sixteen logic operations to ternary raster op codes.
var rop3 = [16]uint32{
	0x00, 0x88, 0x44, 0xCC, 0x22, 0xAA, 0x66, 0xEE,
	0x11, 0x99, 0x55, 0xDD, 0x33, 0xBB, 0x77, 0xFF,
}

// TargetMask packs four write-mask bits per target. Targets whose bit in
// writeEnable is clear or that are not bound get no channels.
func TargetMask(masks []gputypes.ColorWriteMask, writeEnable uint32, bound uint32) uint32 {
	var v uint32
	for i, m := range masks {
		if i >= MaxColorTargets {
			break
		}
		if writeEnable&(1<<i) == 0 || bound&(1<<i) == 0 {
			continue
		}
		v |= uint32(m&gputypes.ColorWriteMaskAll) << (4 * i)
	}
	return v
}

// Export format codes.
const (
	ExportZero     = 0
	ExportFP16ABGR = 4
	ExportUnorm16  = 5
	ExportFP32ABGR = 9
	ExportFP32R    = 1
)

// ExportFormat returns the color export format for a target format.
func ExportFormat(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatUndefined:
		return ExportZero
	case gputypes.TextureFormatR32Float:
		return ExportFP32R
	case gputypes.TextureFormatRGBA32Float:
		return ExportFP32ABGR
	case gputypes.TextureFormatRGBA16Unorm:
		return ExportUnorm16
	default:
		return ExportFP16ABGR
	}
}

// ColFormat packs the export formats of every bound target, four bits each.
func ColFormat(formats []gputypes.TextureFormat) uint32 {
	var v uint32
	for i, f := range formats {
		if i >= MaxColorTargets {
			break
		}
		v |= ExportFormat(f) << (4 * i)
	}
	return v
}

// ColorInfo packs the format word of one color target.
func ColorInfo(f gputypes.TextureFormat) uint32 {
	return uint32(f)&0xFF | b2u(f.IsSrgb())<<8
}

// DepthInfo returns the depth and stencil format words.
func DepthInfo(f gputypes.TextureFormat) (z, s uint32) {
	if f.HasDepth() {
		z = uint32(f)&0xFF | 1<<8
	}
	if f.HasStencil() {
		s = 1
	}
	return z, s
}

// RBPlus computes the three blend optimizer registers from the bound
// targets, their write masks and blend enables.
func RBPlus(formats []gputypes.TextureFormat, masks []gputypes.ColorWriteMask, blendEnable uint32) (downconvert, epsilon, control uint32) {
	for i, f := range formats {
		if i >= MaxColorTargets || f == gputypes.TextureFormatUndefined {
			continue
		}
		var dc, eps uint32
		switch ExportFormat(f) {
		case ExportFP16ABGR:
			dc, eps = 1, 4
		case ExportUnorm16:
			dc, eps = 2, 5
		case ExportFP32ABGR, ExportFP32R:
			dc, eps = 3, 0
		}
		downconvert |= dc << (4 * i)
		epsilon |= eps << (4 * i)

		var m gputypes.ColorWriteMask
		if i < len(masks) {
			m = masks[i]
		}
		// Disable the optimizer for targets that are not written or blended.
		if m == gputypes.ColorWriteMaskNone || blendEnable&(1<<i) == 0 {
			control |= 0x3 << (4 * i)
		}
	}
	return downconvert, epsilon, control
}

// AAConfigWord packs the sample count as log2.
func AAConfigWord(samples uint32) uint32 {
	var l uint32
	for s := max(samples, 1); s > 1; s >>= 1 {
		l++
	}
	return l | l<<4
}

// SampleLoc packs a sample position in [0,1) as two signed 4-bit offsets
// from the pixel center, in sixteenths of a pixel.
func SampleLoc(x, y float32) uint32 {
	q := func(v float32) uint32 {
		n := int32(math.Round(float64((v - 0.5) * 16)))
		n = min(max(n, -8), 7)
		return uint32(n) & 0xF
	}
	return q(x) | q(y)<<4
}

// DBShaderControlWord packs the pixel-shader depth/coverage controls.
func DBShaderControlWord(alphaToCoverage, alphaToOne, conservative, feedbackLoop, occlusion, anyColorWrite bool) uint32 {
	v := b2u(alphaToCoverage) | b2u(alphaToOne)<<1 | b2u(conservative)<<2 |
		b2u(feedbackLoop)<<3 | b2u(occlusion)<<4
	if !anyColorWrite {
		v |= 1 << 5 // depth-only: skip color exports
	}
	return v
}

// ModeCntlWord packs the line rasterization mode.
func ModeCntlWord(lineMode uint8, msaa bool) uint32 {
	return uint32(lineMode) | b2u(msaa)<<4
}

// ConservativeRastWord packs the conservative rasterization mode.
func ConservativeRastWord(mode uint8) uint32 {
	if mode == 0 {
		return 0
	}
	return 1 | uint32(mode)<<1
}

// DiscardRule returns the 16-entry pass table for the discard rectangles:
// entry i covers the pixels inside exactly the rectangle subset i.
func DiscardRule(enable, exclusive bool, count int) uint32 {
	if !enable {
		return 0xFFFF
	}
	used := uint32(1)<<min(count, MaxDiscardRects) - 1
	var rule uint32
	for i := uint32(0); i < 16; i++ {
		inside := i&used != 0
		if inside != exclusive {
			rule |= 1 << i
		}
	}
	return rule
}

// TessConfigWord packs the patch size.
func TessConfigWord(patchControlPoints uint32) uint32 { return min(patchControlPoints, 32) }

// TessDomainWord packs the domain origin.
func TessDomainWord(lowerLeft bool) uint32 { return b2u(lowerLeft) }

// DBCountControlWord packs the occlusion counter controls.
func DBCountControlWord(enabled, precise bool, samples uint32) uint32 {
	if !enabled {
		return 1 // z pass increment disable
	}
	return b2u(precise)<<1 | AAConfigWord(samples)&0xF<<4
}

// StreamoutConfigWord packs the streamout enables.
func StreamoutConfigWord(enabled bool, bufferMask uint32, rasterDiscard bool) uint32 {
	if !enabled {
		return 0
	}
	return 1 | (bufferMask&0xF)<<4 | b2u(rasterDiscard)<<8
}

// VRSRate packs the fragment shading rate.
func VRSRate(w, h uint32, combiners [2]uint8) uint32 {
	return log2u(w) | log2u(h)<<2 | uint32(combiners[0])<<4 | uint32(combiners[1])<<7
}

func log2u(v uint32) uint32 {
	var l uint32
	for ; v > 1; v >>= 1 {
		l++
	}
	return l
}

// IndexTypeWord returns the index type register.
func IndexTypeWord(f gputypes.IndexFormat) uint32 {
	if f == gputypes.IndexFormatUint32 {
		return 1
	}
	return 0
}

// ComputeResourcesWord packs the compute wave and scratch controls.
func ComputeResourcesWord(scratchPerWave uint32, waves uint32) uint32 {
	return (scratchPerWave/1024)&0x1FFF | min(waves, 0x3FF)<<16
}
