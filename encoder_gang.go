package cmdstream

import (
	"fmt"

	"github.com/gogpu/cmdstream/stream"
)

// BindAuxiliaryWork binds the task shader that feeds mesh draws. The first
// bind engages the auxiliary engine: its stream is created and the gang
// semaphores are allocated from the upload ring.
func (e *Encoder) BindAuxiliaryWork(work AuxiliaryWork) {
	if !e.ok() {
		return
	}
	if work.Task == nil {
		e.task = nil
		return
	}
	if work.Task.Stage() != StageTask {
		e.fail(fmt.Errorf("%w: %s shader bound as task work", ErrInvalidArgument, work.Task.Stage()))
		return
	}
	if !e.engageGang() {
		return
	}
	e.task = work.Task
	e.retain(work.Task)
}

// engageGang makes the auxiliary stream and semaphores available.
func (e *Encoder) engageGang() bool {
	if e.gang.Engaged() {
		return true
	}
	if !e.dev.caps.HasAuxiliaryEngine {
		e.fail(ErrNoAuxiliaryEngine)
		return false
	}
	if e.streams[stream.Auxiliary] == nil {
		s, err := e.dev.backend.CreateStream(stream.Auxiliary)
		if err != nil {
			e.fail(fmt.Errorf("create auxiliary stream: %w", err))
			return false
		}
		e.streams[stream.Auxiliary] = s
	}
	if err := e.gang.Init(e.ring); err != nil {
		e.fail(fmt.Errorf("allocate gang semaphores: %w", err))
		return false
	}
	e.regs[stream.Auxiliary].InvalidateAll()
	e.auxPredication = predicationState{}
	if e.leaderPending {
		e.gang.NotifyLeaderProgress()
		e.leaderPending = false
	}
	Logger().Debug("cmdstream: auxiliary engine engaged", "slot", e.slot, "semaphores", e.gang.Address())
	return true
}
