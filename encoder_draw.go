package cmdstream

import (
	"fmt"

	"github.com/gogpu/cmdstream/internal/regs"
	"github.com/gogpu/cmdstream/stream"
)

// drawIDReg is the vertex stage register holding the base vertex of a
// direct draw.
var drawIDReg = regs.Stages[regs.StageVertex].UserDataReg(regs.UserDataDrawID)

// Draw records a non-indexed draw.
func (e *Encoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !e.beforeDraw(drawVertex) {
		return
	}
	e.setReg(stream.Primary, drawIDReg, firstVertex)
	e.streams[stream.Primary].Append(stream.Draw, vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed records an indexed draw from the bound index buffer.
func (e *Encoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if !e.beforeDraw(drawIndexed) {
		return
	}
	e.setReg(stream.Primary, drawIDReg, uint32(vertexOffset))
	e.streams[stream.Primary].Append(stream.DrawIndexed, indexCount, instanceCount, firstIndex,
		uint32(vertexOffset), firstInstance)
}

// indirectDone forgets the base vertex register, which the device writes
// for indirect draws.
func (e *Encoder) indirectDone() {
	e.regs[stream.Primary].Invalidate(drawIDReg)
}

// DrawIndirect records drawCount draws whose arguments are read from addr.
func (e *Encoder) DrawIndirect(addr uint64, drawCount, stride uint32) {
	if !e.checkIndirect(addr) || !e.beforeDraw(drawVertex) {
		return
	}
	e.streams[stream.Primary].Append(stream.DrawIndirect, stream.Lo(addr), stream.Hi(addr), drawCount, stride)
	e.indirectDone()
}

// DrawIndexedIndirect is DrawIndirect for indexed draws.
func (e *Encoder) DrawIndexedIndirect(addr uint64, drawCount, stride uint32) {
	if !e.checkIndirect(addr) || !e.beforeDraw(drawIndexed) {
		return
	}
	e.streams[stream.Primary].Append(stream.DrawIndexedIndirect, stream.Lo(addr), stream.Hi(addr), drawCount, stride)
	e.indirectDone()
}

// DrawIndirectCount records up to maxDraws draws; the actual count is read
// from countAddr.
func (e *Encoder) DrawIndirectCount(addr, countAddr uint64, maxDraws, stride uint32) {
	if !e.checkIndirect(addr) || !e.checkIndirect(countAddr) || !e.beforeDraw(drawVertex) {
		return
	}
	e.streams[stream.Primary].Append(stream.DrawIndirectCount, stream.Lo(addr), stream.Hi(addr),
		stream.Lo(countAddr), stream.Hi(countAddr), maxDraws, stride)
	e.indirectDone()
}

// DrawIndexedIndirectCount is DrawIndirectCount for indexed draws.
func (e *Encoder) DrawIndexedIndirectCount(addr, countAddr uint64, maxDraws, stride uint32) {
	if !e.checkIndirect(addr) || !e.checkIndirect(countAddr) || !e.beforeDraw(drawIndexed) {
		return
	}
	e.streams[stream.Primary].Append(stream.DrawIndexedIndirectCount, stream.Lo(addr), stream.Hi(addr),
		stream.Lo(countAddr), stream.Hi(countAddr), maxDraws, stride)
	e.indirectDone()
}

func (e *Encoder) checkIndirect(addr uint64) bool {
	if !e.ok() {
		return false
	}
	if addr == 0 || addr%4 != 0 {
		e.fail(fmt.Errorf("%w: indirect argument address %#x", ErrInvalidArgument, addr))
		return false
	}
	return true
}

// DrawMeshTasks records a mesh draw of x*y*z workgroups. With task work
// bound the groups are launched by the task shader on the auxiliary
// engine, which runs ahead of the mesh stage under the gang semaphores.
func (e *Encoder) DrawMeshTasks(x, y, z uint32) {
	if !e.beforeDraw(drawMesh) {
		return
	}
	if e.task != nil {
		aux := e.beforeTask()
		if aux == nil {
			return
		}
		aux.Append(stream.DispatchTaskMesh, x, y, z)
	}
	e.streams[stream.Primary].Append(stream.DrawMeshTasks, x, y, z)
}

// DrawMeshTasksIndirect records drawCount mesh draws read from addr.
func (e *Encoder) DrawMeshTasksIndirect(addr uint64, drawCount, stride uint32) {
	e.drawMeshIndirect(addr, 0, drawCount, stride)
}

// DrawMeshTasksIndirectCount records up to maxDraws mesh draws; the count
// is read from countAddr.
func (e *Encoder) DrawMeshTasksIndirectCount(addr, countAddr uint64, maxDraws, stride uint32) {
	if !e.checkIndirect(countAddr) {
		return
	}
	e.drawMeshIndirect(addr, countAddr, maxDraws, stride)
}

func (e *Encoder) drawMeshIndirect(addr, countAddr uint64, maxDraws, stride uint32) {
	if !e.checkIndirect(addr) || !e.beforeDraw(drawMesh) {
		return
	}
	ops := []uint32{stream.Lo(addr), stream.Hi(addr), stream.Lo(countAddr), stream.Hi(countAddr), maxDraws, stride}
	if e.task != nil {
		aux := e.beforeTask()
		if aux == nil {
			return
		}
		aux.Append(stream.DispatchTaskMeshIndirect, ops...)
	}
	e.streams[stream.Primary].Append(stream.DrawMeshTasksIndirect, ops...)
}

// beforeTask synchronizes the two engines ahead of a task/mesh draw and
// writes the task state to the auxiliary stream, which it returns.
//
// The leader publishes its progress and the follower waits for it before
// its caches are invalidated; the follower then publishes its own progress
// and the leader waits for it before the mesh half of the draw.
func (e *Encoder) beforeTask() *stream.Stream {
	primary, aux := e.streams[stream.Primary], e.streams[stream.Auxiliary]
	if aux == nil {
		e.fail(ErrNoAuxiliaryEngine)
		return nil
	}
	e.gang.FlushLeaderSemaphore(primary)
	e.gang.WaitForLeader(aux)
	e.flushes.Flush(stream.Auxiliary, aux)
	e.emitTask()
	e.gang.FlushFollowerSemaphore(aux)
	e.gang.WaitForFollower(primary)
	if e.err != nil {
		return nil
	}
	return aux
}

func (e *Encoder) emitTask() {
	a := stream.Auxiliary
	sh := e.task
	r := regs.Stages[regs.StageTask]
	wg := sh.WorkgroupSize()
	res := regs.ComputeResourcesWord(sh.ScratchBytesPerWave(), wavesPerGroup(wg))
	addr := sh.Address()

	e.setRegSeq(a, r.PgmLo, stream.Lo(addr), stream.Hi(addr), res, 1)
	e.setRegSeq(a, regs.ComputeNumThread, max(wg[0], 1), max(wg[1], 1), max(wg[2], 1))
	e.setReg(a, regs.ComputeResources, res)
	e.writeUserData(r, BindPointGraphics, e.gfx.PushConstantStages&r.Mask != 0)
	sem := e.gang.Address()
	e.setRegSeq(a, r.UserDataReg(regs.UserDataGangSem), stream.Lo(sem), stream.Hi(sem))
	if e.auxPredication != e.predication {
		e.emitPredication(a)
	}

	e.req.TaskRings = true
	e.noteComputeScratch(sh, 0)
}

// Dispatch records a compute dispatch of x*y*z workgroups.
func (e *Encoder) Dispatch(x, y, z uint32) {
	e.DispatchBase(0, 0, 0, x, y, z)
}

// DispatchBase records a dispatch whose workgroup ids start at the base.
func (e *Encoder) DispatchBase(baseX, baseY, baseZ, x, y, z uint32) {
	if !e.beforeDispatch() {
		return
	}
	e.setRegSeq(stream.Primary, regs.ComputeStart, baseX, baseY, baseZ)
	e.noteComputeScratch(e.compute.Shader, uint64(x)*uint64(y)*uint64(z))
	e.streams[stream.Primary].Append(stream.Dispatch, x, y, z)
}

// DispatchIndirect records a dispatch whose size is read from addr.
func (e *Encoder) DispatchIndirect(addr uint64) {
	if !e.checkIndirect(addr) || !e.beforeDispatch() {
		return
	}
	e.setRegSeq(stream.Primary, regs.ComputeStart, 0, 0, 0)
	e.noteComputeScratch(e.compute.Shader, 0)
	e.streams[stream.Primary].Append(stream.DispatchIndirect, stream.Lo(addr), stream.Hi(addr))
}
