// Package gang synchronizes the primary stream (leader) with the
// auxiliary stream (follower) through two 32-bit semaphores in transient
// memory.
//
// Each side keeps a progress counter. Flushing a counter writes its value
// into the shared dword with a bottom-of-pipe write; waiting emits a
// poll-until-greater-or-equal against the last flushed value of the other
// side. Writes happen only when a counter moved since its last flush and
// waits only when the flushed value moved since the last wait, so
// redundant synchronization is never emitted.
package gang

import (
	"github.com/gogpu/cmdstream/internal/upload"
	"github.com/gogpu/cmdstream/stream"
)

// SemaphoreSize is the size of the shared semaphore block: leader dword
// followed by follower dword.
const SemaphoreSize = 8

// Channel is the leader/follower protocol state of one recording.
// The zero value is unengaged.
//
// The counters match the 32-bit semaphore dwords they are written to.
// Each increment comes from one recorded barrier, so a counter wraps only
// after 2^32 cross-engine barriers in a single recording.
type Channel struct {
	addr uint64

	leaderValue        uint32
	emittedLeaderValue uint32
	waitedLeaderValue  uint32

	followerValue        uint32
	emittedFollowerValue uint32
	waitedFollowerValue  uint32
}

// Engaged reports whether the semaphores have been allocated.
func (c *Channel) Engaged() bool { return c.addr != 0 }

// Address returns the device address of the leader semaphore.
// The follower semaphore is at Address()+4.
func (c *Channel) Address() uint64 { return c.addr }

func (c *Channel) leaderAddr() uint64   { return c.addr }
func (c *Channel) followerAddr() uint64 { return c.addr + 4 }

// Init allocates the zeroed semaphore block from ring on first use.
// Later calls are no-ops.
func (c *Channel) Init(ring *upload.Ring) error {
	if c.addr != 0 {
		return nil
	}
	a, err := ring.Zeroed(SemaphoreSize, 8)
	if err != nil {
		return err
	}
	c.addr = a.Address
	return nil
}

// NotifyLeaderProgress records that the leader produced work the follower
// must not overtake.
func (c *Channel) NotifyLeaderProgress() { c.leaderValue++ }

// NotifyFollowerProgress records that the follower produced work the
// leader must not overtake.
func (c *Channel) NotifyFollowerProgress() { c.followerValue++ }

// LeaderValue returns the leader counter.
func (c *Channel) LeaderValue() uint32 { return c.leaderValue }

// FollowerValue returns the follower counter.
func (c *Channel) FollowerValue() uint32 { return c.followerValue }

// EmittedLeaderValue returns the last leader value written to the semaphore.
func (c *Channel) EmittedLeaderValue() uint32 { return c.emittedLeaderValue }

// EmittedFollowerValue returns the last follower value written to the semaphore.
func (c *Channel) EmittedFollowerValue() uint32 { return c.emittedFollowerValue }

func writeSem(s *stream.Stream, addr uint64, v uint32) {
	s.Append(stream.WriteData, stream.Lo(addr), stream.Hi(addr), v, stream.WriteAfterPrevious)
}

func waitSem(s *stream.Stream, addr uint64, v uint32) {
	s.Append(stream.WaitMemGE, stream.Lo(addr), stream.Hi(addr), v)
}

// FlushLeaderSemaphore writes the leader counter into the leader dword
// from the leader stream if it moved since the last flush.
func (c *Channel) FlushLeaderSemaphore(leader *stream.Stream) bool {
	if !c.Engaged() || c.leaderValue == c.emittedLeaderValue {
		return false
	}
	writeSem(leader, c.leaderAddr(), c.leaderValue)
	c.emittedLeaderValue = c.leaderValue
	return true
}

// FlushFollowerSemaphore writes the follower counter into the follower
// dword from the follower stream if it moved since the last flush.
func (c *Channel) FlushFollowerSemaphore(follower *stream.Stream) bool {
	if !c.Engaged() || c.followerValue == c.emittedFollowerValue {
		return false
	}
	writeSem(follower, c.followerAddr(), c.followerValue)
	c.emittedFollowerValue = c.followerValue
	return true
}

// WaitForLeader makes the follower stream wait for the last flushed leader value.
func (c *Channel) WaitForLeader(follower *stream.Stream) bool {
	if !c.Engaged() || c.emittedLeaderValue == c.waitedLeaderValue {
		return false
	}
	waitSem(follower, c.leaderAddr(), c.emittedLeaderValue)
	c.waitedLeaderValue = c.emittedLeaderValue
	return true
}

// WaitForFollower makes the leader stream wait for the last flushed follower value.
func (c *Channel) WaitForFollower(leader *stream.Stream) bool {
	if !c.Engaged() || c.emittedFollowerValue == c.waitedFollowerValue {
		return false
	}
	waitSem(leader, c.followerAddr(), c.emittedFollowerValue)
	c.waitedFollowerValue = c.emittedFollowerValue
	return true
}

// Finalize writes zero into both semaphores so a later submission of the
// same streams starts from zero. Each side clears the dword only it polls:
// the follower clears the leader semaphore and the leader clears the
// follower semaphore, so no clear can overtake a pending wait.
func (c *Channel) Finalize(leader, follower *stream.Stream) {
	if !c.Engaged() {
		return
	}
	writeSem(follower, c.leaderAddr(), 0)
	writeSem(leader, c.followerAddr(), 0)
}

// Reset returns the channel to the unengaged state.
func (c *Channel) Reset() { *c = Channel{} }
