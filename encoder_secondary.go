package cmdstream

import (
	"fmt"

	"github.com/gogpu/cmdstream/stream"
)

// ExecuteSecondary inlines the recorded words of executable secondary
// encoders into this primary encoder.
//
// Pending flushes are written first. A secondary that used the auxiliary
// engine engages it here and has its auxiliary words appended to the
// primary's auxiliary stream, after the two engines have exchanged any
// progress the primary's barriers asked for. Afterwards nothing is assumed about register
// contents: the register caches are invalidated and every state category
// is marked dirty. The secondaries must stay executable until the primary
// is reset.
func (e *Encoder) ExecuteSecondary(secondaries ...*Encoder) {
	if !e.ok() {
		return
	}
	if e.level != LevelPrimary {
		e.fail(fmt.Errorf("%w: ExecuteSecondary on a secondary encoder", ErrInvalidLevel))
		return
	}
	for _, s := range secondaries {
		switch {
		case s == nil || s.level != LevelSecondary:
			e.fail(fmt.Errorf("%w: ExecuteSecondary given a primary encoder", ErrInvalidLevel))
			return
		case s.state != StateExecutable:
			e.fail(fmt.Errorf("%w: secondary is %s", ErrNotExecutable, s.state))
			return
		}
	}

	primary := e.streams[stream.Primary]
	e.flushes.Flush(stream.Primary, primary)
	for _, s := range secondaries {
		if s.gang.Engaged() {
			if !e.engageGang() {
				return
			}
			aux := e.streams[stream.Auxiliary]
			e.gang.FlushLeaderSemaphore(primary)
			e.gang.WaitForLeader(aux)
			e.flushes.Flush(stream.Auxiliary, aux)
			e.gang.FlushFollowerSemaphore(aux)
			e.gang.WaitForFollower(primary)
			aux.AppendWords(s.Words(stream.Auxiliary))
		}
		primary.AppendWords(s.Words(stream.Primary))
		e.req.merge(s.req)
		e.draws += s.draws
	}

	for _, c := range e.regs {
		c.InvalidateAll()
	}
	e.auxPredication = predicationState{}
	e.tracker.MarkAll()
	Logger().Debug("cmdstream: executed secondaries", "slot", e.slot, "count", len(secondaries))
}
