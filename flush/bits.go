package flush

import "strings"

// Bits is a set of cache flush/invalidate and synchronization actions.
type Bits uint32

const (
	InvalidateICache Bits = 1 << iota
	InvalidateSMem
	InvalidateVMem
	InvalidateL2
	WritebackL2
	InvalidateL2Metadata
	FlushAndInvalidateCB
	FlushAndInvalidateCBMeta
	FlushAndInvalidateDB
	FlushAndInvalidateDBMeta
	PSPartialFlush
	VSPartialFlush
	CSPartialFlush
	VGTFlush
	StartPipelineStats
	StopPipelineStats
	VGTStreamoutSync

	bitCount = iota
)

// Composite masks.
const (
	FlushAndInvalidateFramebuffer = FlushAndInvalidateCB | FlushAndInvalidateCBMeta |
		FlushAndInvalidateDB | FlushAndInvalidateDBMeta

	FlushAllCompute = InvalidateICache | InvalidateSMem | InvalidateVMem |
		InvalidateL2 | WritebackL2 | CSPartialFlush

	// idleWait are the actions that drain the pipeline before completing.
	idleWait = FlushAndInvalidateCB | FlushAndInvalidateDB | PSPartialFlush | CSPartialFlush
)

var bitNames = [bitCount]string{
	"InvalidateICache",
	"InvalidateSMem",
	"InvalidateVMem",
	"InvalidateL2",
	"WritebackL2",
	"InvalidateL2Metadata",
	"FlushAndInvalidateCB",
	"FlushAndInvalidateCBMeta",
	"FlushAndInvalidateDB",
	"FlushAndInvalidateDBMeta",
	"PSPartialFlush",
	"VSPartialFlush",
	"CSPartialFlush",
	"VGTFlush",
	"StartPipelineStats",
	"StopPipelineStats",
	"VGTStreamoutSync",
}

// RequiresIdleWait reports whether emitting b stalls until in-flight work
// drains. State emitted before such a flush overlaps with the drain.
func (b Bits) RequiresIdleWait() bool { return b&idleWait != 0 }

// Has reports whether all bits in mask are set.
func (b Bits) Has(mask Bits) bool { return b&mask == mask }

// String returns the set bits joined by "|".
func (b Bits) String() string {
	if b == 0 {
		return "None"
	}
	var sb strings.Builder
	for i := 0; i < bitCount; i++ {
		if b&(1<<i) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(bitNames[i])
	}
	if rest := b &^ (1<<bitCount - 1); rest != 0 {
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString("Unknown")
	}
	return sb.String()
}
