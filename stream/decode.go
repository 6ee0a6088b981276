package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when an instruction header claims more
	// operands than remain in the stream.
	ErrTruncated = errors.New("stream: truncated instruction")

	// ErrUnknownOpcode is returned for a header with an unknown opcode.
	ErrUnknownOpcode = errors.New("stream: unknown opcode")
)

// Instruction is one decoded instruction.
// Operands alias the decoded word slice.
type Instruction struct {
	Op       Opcode
	Operands []uint32
}

// Walk decodes words and calls fn for every instruction until fn returns false.
func Walk(words []uint32, fn func(Instruction) bool) error {
	for pc := 0; pc < len(words); {
		hdr := words[pc]
		op := Opcode(hdr >> 16)
		n := int(hdr & 0xFFFF)
		if !op.Valid() {
			return fmt.Errorf("%w: %d at word %d", ErrUnknownOpcode, uint16(op), pc)
		}
		if pc+1+n > len(words) {
			return fmt.Errorf("%w: %s at word %d wants %d operands, %d left",
				ErrTruncated, op, pc, n, len(words)-pc-1)
		}
		if !fn(Instruction{Op: op, Operands: words[pc+1 : pc+1+n]}) {
			return nil
		}
		pc += 1 + n
	}
	return nil
}

// Decode returns every instruction in words.
func Decode(words []uint32) ([]Instruction, error) {
	var out []Instruction
	err := Walk(words, func(in Instruction) bool {
		out = append(out, in)
		return true
	})
	return out, err
}

// Count returns how many instructions with opcode op the words contain.
func Count(words []uint32, op Opcode) int {
	n := 0
	_ = Walk(words, func(in Instruction) bool {
		if in.Op == op {
			n++
		}
		return true
	})
	return n
}
