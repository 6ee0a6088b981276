package cmdstream

import (
	"github.com/gogpu/cmdstream/flush"
	"github.com/gogpu/cmdstream/stream"
)

// MemoryBarrier orders the accesses of one set of stages before the
// accesses of another.
type MemoryBarrier struct {
	SrcStages flush.Stage
	SrcAccess flush.Access
	DstStages flush.Stage
	DstAccess flush.Access

	// Resource narrows the flush when the barrier concerns a single
	// resource. Nil means any resource.
	Resource *flush.ResourceHint
}

// taskStages are the stages that run on the auxiliary engine.
const taskStages = flush.StageTaskShader | flush.StageAllCommands

// Barrier records a memory barrier. The cache actions are accumulated and
// written before the next draw, dispatch, secondary execution or End.
func (e *Encoder) Barrier(srcStages flush.Stage, srcAccess flush.Access,
	dstStages flush.Stage, dstAccess flush.Access, resource *flush.ResourceHint) {
	e.PipelineBarrier(MemoryBarrier{
		SrcStages: srcStages,
		SrcAccess: srcAccess,
		DstStages: dstStages,
		DstAccess: dstAccess,
		Resource:  resource,
	})
}

// PipelineBarrier records several barriers at once.
//
// A barrier whose destination includes the task stage makes the
// auxiliary engine wait for the primary's progress, and one whose source
// includes it makes the primary wait for the auxiliary engine. The waits
// are written at the next mesh draw. A destination recorded before task
// work is engaged is kept and applied when the engine is engaged.
func (e *Encoder) PipelineBarrier(barriers ...MemoryBarrier) {
	if !e.ok() {
		return
	}
	t := e.dev.translator
	for _, b := range barriers {
		src := t.SrcFlush(b.SrcStages, b.SrcAccess, b.Resource)
		dst := t.DstFlush(b.DstStages, b.DstAccess, b.Resource)
		e.flushes.Add(stream.Primary, src|dst)

		if b.DstStages&taskStages != 0 {
			e.flushes.Add(stream.Auxiliary, dst)
			if e.gang.Engaged() {
				e.gang.NotifyLeaderProgress()
			} else {
				e.leaderPending = true
			}
		}
		// Before engagement the auxiliary engine has run nothing to wait for.
		if b.SrcStages&taskStages != 0 && e.gang.Engaged() {
			e.flushes.Add(stream.Auxiliary, src)
			e.gang.NotifyFollowerProgress()
		}
	}
}
