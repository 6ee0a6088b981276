package flush

import "github.com/gogpu/cmdstream/stream"

// Accumulator collects pending flush bits per engine until they are emitted.
// The zero value is ready to use.
type Accumulator struct {
	pending [stream.EngineCount]Bits
}

// Add ORs bits into the engine's pending set.
func (a *Accumulator) Add(e stream.Engine, bits Bits) {
	a.pending[e] |= bits
}

// Pending returns the engine's pending bits without clearing them.
func (a *Accumulator) Pending(e stream.Engine) Bits {
	return a.pending[e]
}

// Take returns and clears the engine's pending bits.
func (a *Accumulator) Take(e stream.Engine) Bits {
	b := a.pending[e]
	a.pending[e] = 0
	return b
}

// Flush emits the engine's pending bits into s as one CacheFlush instruction.
// Nothing is emitted when no bits are pending. It reports the bits emitted.
func (a *Accumulator) Flush(e stream.Engine, s *stream.Stream) Bits {
	b := a.Take(e)
	if b != 0 {
		s.Append(stream.CacheFlush, uint32(b))
	}
	return b
}

// Reset clears every engine.
func (a *Accumulator) Reset() {
	a.pending = [stream.EngineCount]Bits{}
}
