package cmdstream

import (
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdstream/internal/dirty"
	"github.com/gogpu/cmdstream/internal/regs"
)

const (
	// guardbandRange is the largest clip-space coordinate, in pixels from
	// the viewport center, the rasterizer accepts without clipping.
	guardbandRange = 32767.0

	// maxPointSize is the largest point the rasterizer draws.
	maxPointSize = 8191.875
)

// rasterPrimitive classifies what the rasterizer receives after the
// polygon mode is applied.
func rasterPrimitive(topology gputypes.PrimitiveTopology, mode dirty.FillMode) (points, lines bool) {
	switch {
	case topology == gputypes.PrimitiveTopologyPointList:
		return true, false
	case regs.IsLineTopology(topology):
		return false, true
	}
	return mode == dirty.FillModePoint, mode == dirty.FillModeLine
}

// guardband returns the vertical clip, vertical discard, horizontal clip and
// horizontal discard adjustments for the viewports, in register order.
//
// The clip adjustment is the smallest guard band every viewport allows.
// The discard adjustment starts at the viewport edge; wide points and lines
// widen it by half their size so primitives partly inside are kept, but
// never beyond the clip adjustment.
func guardband(vps []Viewport, points, lines bool, lineWidth float32) [4]uint32 {
	clipX, clipY := float32(math.Inf(1)), float32(math.Inf(1))
	discX, discY := float32(1), float32(1)

	for _, vp := range vps {
		scaleX := max(float32(math.Abs(float64(vp.Width)*0.5)), 0.5)
		scaleY := max(float32(math.Abs(float64(vp.Height)*0.5)), 0.5)
		transX := vp.X + vp.Width*0.5
		transY := vp.Y + vp.Height*0.5

		clipX = min(clipX, (guardbandRange-float32(math.Abs(float64(transX))))/scaleX)
		clipY = min(clipY, (guardbandRange-float32(math.Abs(float64(transY))))/scaleY)

		if points || lines {
			pixels := lineWidth
			if points {
				pixels = maxPointSize
			}
			discX += pixels / (2 * scaleX)
			discY += pixels / (2 * scaleY)
			discX = min(discX, clipX)
			discY = min(discY, clipY)
		}
	}

	return [4]uint32{regs.Float(clipY), regs.Float(discY), regs.Float(clipX), regs.Float(discX)}
}

// viewportBounds returns the pixel rectangle a viewport covers.
func viewportBounds(vp Viewport) (x0, y0, x1, y1 int64) {
	fx0, fx1 := min(vp.X, vp.X+vp.Width), max(vp.X, vp.X+vp.Width)
	fy0, fy1 := min(vp.Y, vp.Y+vp.Height), max(vp.Y, vp.Y+vp.Height)
	return int64(math.Floor(float64(fx0))), int64(math.Floor(float64(fy0))),
		int64(math.Ceil(float64(fx1))), int64(math.Ceil(float64(fy1)))
}

// clipScissor intersects a scissor with the bounds of its viewport.
func clipScissor(r Rect, vp Viewport) Rect {
	vx0, vy0, vx1, vy1 := viewportBounds(vp)
	x0 := max(int64(r.X), vx0)
	y0 := max(int64(r.Y), vy0)
	x1 := min(int64(r.X)+int64(r.Width), vx1)
	y1 := min(int64(r.Y)+int64(r.Height), vy1)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return Rect{X: int32(x0), Y: int32(y0), Width: uint32(x1 - x0), Height: uint32(y1 - y0)}
}
