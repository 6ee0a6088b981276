package cmdstream

import (
	"fmt"

	"github.com/gogpu/cmdstream/flush"
	"github.com/gogpu/cmdstream/internal/dirty"
	"github.com/gogpu/cmdstream/internal/regs"
	"github.com/gogpu/cmdstream/stream"
)

// BeginRendering opens a rendering scope with the given attachments.
// Draws are only valid inside a scope.
func (e *Encoder) BeginRendering(info RenderingInfo) {
	if !e.ok() {
		return
	}
	if e.renderingActive {
		e.fail(ErrRenderingActive)
		return
	}
	if len(info.ColorFormats) > regs.MaxColorTargets {
		e.fail(fmt.Errorf("%w: %d color attachments, at most %d", ErrInvalidArgument,
			len(info.ColorFormats), regs.MaxColorTargets))
		return
	}
	e.rendering = cloneRendering(info)
	e.renderingActive = true
	e.tracker.Mark(dirty.Framebuffer)
}

// EndRendering closes the scope opened by BeginRendering.
func (e *Encoder) EndRendering() {
	if !e.ok() {
		return
	}
	if !e.renderingActive || e.inherited {
		e.fail(fmt.Errorf("%w: EndRendering without BeginRendering", ErrRenderingInactive))
		return
	}
	e.renderingActive = false
	e.rendering = RenderingInfo{}
	e.tracker.Mark(dirty.Framebuffer)
}

// BeginOcclusionQuery enables sample counting for the following draws.
// Precise queries count every passing sample instead of reporting any.
func (e *Encoder) BeginOcclusionQuery(precise bool) {
	if !e.ok() {
		return
	}
	if e.occlusion.active {
		e.fail(fmt.Errorf("%w: occlusion query already active", ErrInvalidArgument))
		return
	}
	e.occlusion = occlusionState{active: true, precise: precise}
	e.tracker.Mark(dirty.OcclusionQuery)
}

// EndOcclusionQuery disables sample counting.
func (e *Encoder) EndOcclusionQuery() {
	if !e.ok() {
		return
	}
	if !e.occlusion.active {
		e.fail(fmt.Errorf("%w: no occlusion query active", ErrInvalidArgument))
		return
	}
	e.occlusion = occlusionState{}
	e.tracker.Mark(dirty.OcclusionQuery)
}

// BeginPipelineStatistics starts the pipeline statistics counters.
func (e *Encoder) BeginPipelineStatistics() {
	if !e.ok() {
		return
	}
	if e.statsActive {
		e.fail(fmt.Errorf("%w: pipeline statistics already active", ErrInvalidArgument))
		return
	}
	e.statsActive = true
	e.flushes.Add(stream.Primary, flush.StartPipelineStats)
	e.tracker.Mark(dirty.ShaderQuery)
}

// EndPipelineStatistics stops the pipeline statistics counters.
func (e *Encoder) EndPipelineStatistics() {
	if !e.ok() {
		return
	}
	if !e.statsActive {
		e.fail(fmt.Errorf("%w: no pipeline statistics active", ErrInvalidArgument))
		return
	}
	e.statsActive = false
	e.flushes.Add(stream.Primary, flush.StopPipelineStats)
	e.tracker.Mark(dirty.ShaderQuery)
}

// BindTransformFeedbackBuffers binds streamout buffers starting at slot first.
// A zero address unbinds the slot.
func (e *Encoder) BindTransformFeedbackBuffers(first int, buffers ...StreamoutBuffer) {
	if !e.ok() {
		return
	}
	if !inRange(first, len(buffers), regs.MaxStreamoutBuffers) {
		e.fail(rangeError("transform feedback buffers", first, len(buffers), regs.MaxStreamoutBuffers))
		return
	}
	changed := false
	for i, b := range buffers {
		slot := first + i
		if e.streamout[slot] != b {
			e.streamout[slot] = b
			changed = true
		}
		if b.Address != 0 {
			e.streamoutMask |= 1 << slot
		} else {
			e.streamoutMask &^= 1 << slot
		}
	}
	if changed {
		e.streamoutTbl = 0
		e.tracker.Mark(dirty.StreamoutBuffer)
	}
}

// BeginTransformFeedback enables streamout to the bound buffers.
func (e *Encoder) BeginTransformFeedback() {
	if !e.ok() {
		return
	}
	if e.xfbActive {
		e.fail(fmt.Errorf("%w: transform feedback already active", ErrInvalidArgument))
		return
	}
	e.xfbActive = true
	e.tracker.Mark(dirty.StreamoutEnable)
}

// EndTransformFeedback disables streamout. The buffer offsets are synced
// before the next command that could read them.
func (e *Encoder) EndTransformFeedback() {
	if !e.ok() {
		return
	}
	if !e.xfbActive {
		e.fail(fmt.Errorf("%w: transform feedback not active", ErrInvalidArgument))
		return
	}
	e.xfbActive = false
	e.flushes.Add(stream.Primary, flush.VGTStreamoutSync)
	e.tracker.Mark(dirty.StreamoutEnable)
}

// BeginConditionalRendering predicates the following draws and dispatches
// on the 32-bit value at addr: they are skipped when it is zero, or when it
// is non-zero if inverted is set.
func (e *Encoder) BeginConditionalRendering(addr uint64, inverted bool) {
	if !e.ok() {
		return
	}
	if e.predication.active {
		e.fail(fmt.Errorf("%w: conditional rendering already active", ErrInvalidArgument))
		return
	}
	if addr == 0 || addr%4 != 0 {
		e.fail(fmt.Errorf("%w: predicate address %#x", ErrInvalidArgument, addr))
		return
	}
	e.predication = predicationState{active: true, addr: addr, inverted: inverted}
	e.tracker.Mark(dirty.Predication)
}

// EndConditionalRendering ends predication.
func (e *Encoder) EndConditionalRendering() {
	if !e.ok() {
		return
	}
	if !e.predication.active {
		e.fail(fmt.Errorf("%w: conditional rendering not active", ErrInvalidArgument))
		return
	}
	e.predication = predicationState{}
	e.tracker.Mark(dirty.Predication)
}
