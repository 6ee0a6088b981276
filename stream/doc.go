// Package stream defines the instruction word stream produced by the
// command encoder.
//
// The layout is deliberately simple: a header word holding the opcode in the
// upper 16 bits and the operand count in the lower 16 bits, followed by the
// operands. A downstream executor interprets the words; the encoder never
// reads them back except through Decode in tests and inline replay of
// secondary encoders.
//
//	s := stream.New(stream.Primary, 256)
//	s.Append(stream.SetReg, reg, value)
//	s.Append(stream.Draw, 3, 1, 0, 0)
//
//	stream.Walk(s.Words(), func(in stream.Instruction) bool {
//		fmt.Println(in.Op, in.Operands)
//		return true
//	})
package stream
