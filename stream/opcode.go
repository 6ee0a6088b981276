package stream

import "fmt"

// Opcode identifies an instruction. Operand layouts are listed per opcode;
// addresses are split into lo/hi words.
type Opcode uint16

const (
	// Nop has no operands. Its operands, if any, are ignored.
	Nop Opcode = iota

	// SetReg: reg, value.
	SetReg

	// SetRegSeq: base reg, values... (consecutive registers).
	SetRegSeq

	// CacheFlush: flush bits.
	CacheFlush

	// Draw: vertexCount, instanceCount, firstVertex, firstInstance.
	Draw

	// DrawIndexed: indexCount, instanceCount, firstIndex, vertexOffset, firstInstance.
	DrawIndexed

	// DrawIndirect: addrLo, addrHi, drawCount, stride.
	DrawIndirect

	// DrawIndexedIndirect: addrLo, addrHi, drawCount, stride.
	DrawIndexedIndirect

	// DrawIndirectCount: addrLo, addrHi, countLo, countHi, maxDraws, stride.
	DrawIndirectCount

	// DrawIndexedIndirectCount: addrLo, addrHi, countLo, countHi, maxDraws, stride.
	DrawIndexedIndirectCount

	// Dispatch: x, y, z.
	Dispatch

	// DispatchIndirect: addrLo, addrHi.
	DispatchIndirect

	// IndexBuffer: addrLo, addrHi, maxIndices, indexSize.
	IndexBuffer

	// WriteData: addrLo, addrHi, value, flags.
	WriteData

	// WaitMemGE: addrLo, addrHi, reference. Stalls until *addr >= reference.
	WaitMemGE

	// SetPredication: addrLo, addrHi, flags. A zero address disables predication.
	SetPredication

	// DrawMeshTasks: x, y, z.
	DrawMeshTasks

	// DrawMeshTasksIndirect: addrLo, addrHi, countLo, countHi, maxDraws, stride.
	DrawMeshTasksIndirect

	// DispatchTaskMesh: x, y, z. Auxiliary half of a mesh draw.
	DispatchTaskMesh

	// DispatchTaskMeshIndirect: addrLo, addrHi, countLo, countHi, maxDraws, stride.
	DispatchTaskMeshIndirect

	opcodeCount
)

// WriteData flags.
const (
	// WriteAfterPrevious delays the write until all prior work on the
	// engine has completed (bottom of pipe).
	WriteAfterPrevious uint32 = 1 << 0
)

// SetPredication flags.
const (
	PredicationEnabled  uint32 = 1 << 0
	PredicationInverted uint32 = 1 << 1
)

var opcodeNames = [...]string{
	Nop:                      "Nop",
	SetReg:                   "SetReg",
	SetRegSeq:                "SetRegSeq",
	CacheFlush:               "CacheFlush",
	Draw:                     "Draw",
	DrawIndexed:              "DrawIndexed",
	DrawIndirect:             "DrawIndirect",
	DrawIndexedIndirect:      "DrawIndexedIndirect",
	DrawIndirectCount:        "DrawIndirectCount",
	DrawIndexedIndirectCount: "DrawIndexedIndirectCount",
	Dispatch:                 "Dispatch",
	DispatchIndirect:         "DispatchIndirect",
	IndexBuffer:              "IndexBuffer",
	WriteData:                "WriteData",
	WaitMemGE:                "WaitMemGE",
	SetPredication:           "SetPredication",
	DrawMeshTasks:            "DrawMeshTasks",
	DrawMeshTasksIndirect:    "DrawMeshTasksIndirect",
	DispatchTaskMesh:         "DispatchTaskMesh",
	DispatchTaskMeshIndirect: "DispatchTaskMeshIndirect",
}

// String returns the opcode name.
func (o Opcode) String() string {
	if o < opcodeCount {
		return opcodeNames[o]
	}
	return fmt.Sprintf("Opcode(%d)", uint16(o))
}

// Valid reports whether o is a known opcode.
func (o Opcode) Valid() bool { return o < opcodeCount }

// IsDraw reports whether the opcode launches primitives or work groups.
func (o Opcode) IsDraw() bool {
	switch o {
	case Draw, DrawIndexed, DrawIndirect, DrawIndexedIndirect,
		DrawIndirectCount, DrawIndexedIndirectCount,
		Dispatch, DispatchIndirect,
		DrawMeshTasks, DrawMeshTasksIndirect,
		DispatchTaskMesh, DispatchTaskMeshIndirect:
		return true
	}
	return false
}
