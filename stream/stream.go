package stream

import (
	"encoding/binary"
	"fmt"
)

// Engine identifies the hardware queue a stream is submitted to.
type Engine uint8

const (
	// Primary is the graphics/compute engine that owns the recording.
	Primary Engine = iota

	// Auxiliary is the secondary engine used for gang (task shader) work.
	Auxiliary

	// EngineCount is the number of engines.
	EngineCount
)

// String returns the engine name.
func (e Engine) String() string {
	switch e {
	case Primary:
		return "primary"
	case Auxiliary:
		return "auxiliary"
	default:
		return fmt.Sprintf("Engine(%d)", e)
	}
}

// MaxOperands is the largest operand count a single instruction can carry.
const MaxOperands = 0xFFFF

// Stream is an append-only buffer of instruction words for one engine.
//
// Each instruction is a header word (opcode<<16 | operand count) followed by
// its operands. A finalized stream carries the address and handle the backend
// assigned to its uploaded copy.
type Stream struct {
	engine Engine
	words  []uint32

	finalized bool
	address   uint64
	handle    any
}

// New creates an empty stream for the engine with room for capacity words.
func New(engine Engine, capacity int) *Stream {
	if capacity < 0 {
		capacity = 0
	}
	return &Stream{
		engine: engine,
		words:  make([]uint32, 0, capacity),
	}
}

// Engine returns the engine the stream targets.
func (s *Stream) Engine() Engine { return s.engine }

// Append adds one instruction.
// It panics if the stream is finalized or if there are more than MaxOperands operands.
func (s *Stream) Append(op Opcode, operands ...uint32) {
	if s.finalized {
		panic("stream: append to finalized stream")
	}
	if len(operands) > MaxOperands {
		panic(fmt.Sprintf("stream: %s has %d operands, max %d", op, len(operands), MaxOperands))
	}
	s.words = append(s.words, uint32(op)<<16|uint32(len(operands)))
	s.words = append(s.words, operands...)
}

// AppendWords copies already encoded instructions into the stream.
func (s *Stream) AppendWords(words []uint32) {
	if s.finalized {
		panic("stream: append to finalized stream")
	}
	s.words = append(s.words, words...)
}

// Words returns the encoded words. The slice aliases the stream.
func (s *Stream) Words() []uint32 { return s.words }

// Len returns the number of encoded words.
func (s *Stream) Len() int { return len(s.words) }

// SizeBytes returns the encoded size in bytes.
func (s *Stream) SizeBytes() uint64 { return uint64(len(s.words)) * 4 }

// PutBytes writes the little-endian encoding of the stream into dst.
// dst must hold at least SizeBytes bytes.
func (s *Stream) PutBytes(dst []byte) {
	for i, w := range s.words {
		binary.LittleEndian.PutUint32(dst[i*4:], w)
	}
}

// Finalize marks the stream as uploaded at address. No further appends are allowed.
func (s *Stream) Finalize(address uint64, handle any) {
	s.finalized = true
	s.address = address
	s.handle = handle
}

// Finalized reports whether Finalize was called since the last Reset.
func (s *Stream) Finalized() bool { return s.finalized }

// Address returns the backend address of the finalized stream.
func (s *Stream) Address() uint64 { return s.address }

// Handle returns the backend handle of the finalized stream.
func (s *Stream) Handle() any { return s.handle }

// Reset empties the stream, keeping its capacity.
func (s *Stream) Reset() {
	s.words = s.words[:0]
	s.finalized = false
	s.address = 0
	s.handle = nil
}

// Lo returns the low 32 bits of a 64-bit address.
func Lo(addr uint64) uint32 { return uint32(addr) }

// Hi returns the high 32 bits of a 64-bit address.
func Hi(addr uint64) uint32 { return uint32(addr >> 32) }

// Addr joins two address halves.
func Addr(lo, hi uint32) uint64 { return uint64(hi)<<32 | uint64(lo) }
