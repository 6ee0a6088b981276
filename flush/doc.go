// Package flush turns memory barriers into cache flush and invalidation
// actions and accumulates them until the next draw, dispatch or end of
// recording.
//
// Producers flush, consumers invalidate. A Translator maps the two halves of
// a barrier onto Bits; the Accumulator keeps the pending Bits of each engine
// separately and emits them as a single stream.CacheFlush instruction.
package flush
