package cmdstream

import (
	"context"
	"fmt"
	"log/slog"
	"weak"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdstream/flush"
	"github.com/gogpu/cmdstream/internal/dirty"
	"github.com/gogpu/cmdstream/internal/gang"
	"github.com/gogpu/cmdstream/internal/regcache"
	"github.com/gogpu/cmdstream/internal/regs"
	"github.com/gogpu/cmdstream/internal/upload"
	"github.com/gogpu/cmdstream/stream"
)

// Level distinguishes primary encoders, which are submitted, from
// secondary encoders, which are executed from a primary.
type Level uint8

// Encoder levels.
const (
	LevelPrimary Level = iota
	LevelSecondary
)

func (l Level) String() string {
	switch l {
	case LevelPrimary:
		return "primary"
	case LevelSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// State is the lifecycle state of an encoder.
type State uint8

// Encoder states.
const (
	StateInitial State = iota
	StateRecording
	StateExecutable
	StateInvalid
)

var stateNames = [...]string{"initial", "recording", "executable", "invalid"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// BeginInfo configures a recording.
type BeginInfo struct {
	// OneTimeSubmit marks a recording that is submitted once.
	OneTimeSubmit bool

	// Inheritance describes the state a secondary encoder continues from.
	// It is ignored for primary encoders.
	Inheritance *InheritanceInfo
}

// InheritanceInfo is the state a secondary encoder inherits from the
// primary that executes it.
type InheritanceInfo struct {
	// Rendering, when set, makes the secondary record inside the given
	// rendering scope.
	Rendering *RenderingInfo

	// OcclusionQuery and PreciseOcclusion describe an occlusion query
	// active in the primary.
	OcclusionQuery   bool
	PreciseOcclusion bool
}

type indexBinding struct {
	addr   uint64
	size   uint64
	format gputypes.IndexFormat
}

type occlusionState struct {
	active  bool
	precise bool
}

type predicationState struct {
	active   bool
	addr     uint64
	inverted bool
}

// Encoder records commands into a primary stream and, when task work is
// bound, an auxiliary stream synchronized with it.
//
// State changes are diffed against the previous value; only categories
// that changed are written before the next draw or dispatch, and register
// writes whose value is already known are dropped.
//
// An Encoder is not safe for concurrent use. Errors during recording are
// sticky: the first one is kept, later commands are ignored, and End
// returns it.
type Encoder struct {
	dev   *Device
	pool  weak.Pointer[Pool]
	slot  int
	level Level
	freed bool

	state State
	err   error
	info  BeginInfo
	order FlushOrder

	ring    *upload.Ring
	streams [stream.EngineCount]*stream.Stream
	regs    [stream.EngineCount]*regcache.Cache
	emitReg [stream.EngineCount]func(id, v uint32)
	emitSeq [stream.EngineCount]func(base uint32, vs []uint32)
	flushes flush.Accumulator
	gang    gang.Channel
	tracker dirty.Tracker
	dyn     *dirty.DynamicState

	// leaderPending records a task-stage barrier seen before engagement.
	leaderPending bool

	gfx           *GraphicsPipeline
	compute       *ComputePipeline
	task          *Shader
	tables        [bindPointCount][]uint64
	push          [bindPointCount][]byte
	tableAddr     [bindPointCount]uint64
	pushAddr      [bindPointCount]uint64
	vertexBuffers [dirty.MaxVertexBindings]VertexBuffer
	vertexCount   int
	index         indexBinding
	streamout     [regs.MaxStreamoutBuffers]StreamoutBuffer
	streamoutMask uint32
	streamoutTbl  uint64
	xfbActive     bool

	rendering       RenderingInfo
	renderingActive bool
	inherited       bool
	occlusion       occlusionState
	statsActive     bool
	predication     predicationState
	auxPredication  predicationState

	epilog   *Shader
	retained map[*Shader]struct{}

	req   Requirements
	draws int
}

func newEncoder(dev *Device, pool weak.Pointer[Pool], slot int, level Level) *Encoder {
	e := &Encoder{
		dev:   dev,
		pool:  pool,
		slot:  slot,
		level: level,
		order: dev.cfg.FlushOrder,
		ring: upload.New(dev.backend,
			upload.WithMinBlockSize(dev.cfg.UploadMinBlockSize),
			upload.WithCacheLineSize(uint64(dev.caps.CacheLineSize))),
		dyn:      dirty.NewDynamicState(),
		retained: make(map[*Shader]struct{}),
	}
	for eng := range stream.EngineCount {
		e.regs[eng] = regcache.New(int(regs.Count))
		e.emitReg[eng] = func(id, v uint32) {
			e.streams[eng].Append(stream.SetReg, id, v)
		}
		e.emitSeq[eng] = func(base uint32, vs []uint32) {
			ops := make([]uint32, 0, len(vs)+1)
			ops = append(ops, base)
			e.streams[eng].Append(stream.SetRegSeq, append(ops, vs...)...)
		}
	}
	return e
}

// Level returns the encoder level.
func (e *Encoder) Level() Level { return e.level }

// State returns the lifecycle state.
func (e *Encoder) State() State { return e.state }

// Err returns the sticky recording error, if any.
func (e *Encoder) Err() error { return e.err }

// Device returns the device the encoder records for.
func (e *Encoder) Device() *Device { return e.dev }

// Stream returns the stream of the engine, or nil if the engine was not
// used by the current recording.
func (e *Encoder) Stream(engine stream.Engine) *stream.Stream {
	if engine >= stream.EngineCount {
		return nil
	}
	return e.streams[engine]
}

// Words returns the words recorded for the engine so far.
func (e *Encoder) Words(engine stream.Engine) []uint32 {
	if s := e.Stream(engine); s != nil {
		return s.Words()
	}
	return nil
}

// GangEngaged reports whether the auxiliary stream is in use.
func (e *Encoder) GangEngaged() bool { return e.gang.Engaged() }

// fail records err unless an error is already recorded.
func (e *Encoder) fail(err error) {
	if e.err != nil {
		return
	}
	e.err = err
	Logger().Warn("cmdstream: recording error", "slot", e.slot, "level", e.level, "err", err)
}

// ok reports whether a command may be recorded, recording ErrNotRecording
// on misuse.
func (e *Encoder) ok() bool {
	if e.state != StateRecording {
		e.fail(ErrNotRecording)
		return false
	}
	return e.err == nil
}

// Begin starts a recording.
//
// An encoder that is not in the initial state is reset first when its
// pool was created with PoolResetIndividual; otherwise Begin fails with
// ErrNotInitial.
func (e *Encoder) Begin(info BeginInfo) error {
	if e.freed {
		return ErrPoolDestroyed
	}
	p := e.pool.Value()
	if p == nil || p.isDestroyed() {
		return ErrPoolDestroyed
	}
	if e.state != StateInitial {
		if p.flags&PoolResetIndividual == 0 {
			return ErrNotInitial
		}
		e.Reset()
	}

	if e.streams[stream.Primary] == nil {
		s, err := e.dev.backend.CreateStream(stream.Primary)
		if err != nil {
			return fmt.Errorf("cmdstream: begin: %w", err)
		}
		e.streams[stream.Primary] = s
	}

	e.info = BeginInfo{OneTimeSubmit: info.OneTimeSubmit}
	e.err = nil
	e.req = Requirements{}
	e.draws = 0
	for _, c := range e.regs {
		c.InvalidateAll()
		c.ResetStats()
	}
	e.tracker.MarkAll()

	if e.level == LevelSecondary && info.Inheritance != nil {
		inh := *info.Inheritance
		if inh.Rendering != nil {
			e.rendering = cloneRendering(*inh.Rendering)
			e.renderingActive = true
			e.inherited = true
			inh.Rendering = &e.rendering
		}
		e.occlusion = occlusionState{active: inh.OcclusionQuery, precise: inh.PreciseOcclusion}
		e.info.Inheritance = &inh
	}

	e.state = StateRecording
	Logger().Debug("cmdstream: begin", "slot", e.slot, "level", e.level, "oneTime", info.OneTimeSubmit)
	return nil
}

// End finishes the recording: pending flushes are written on both
// engines, the gang semaphores are cleared for resubmission, and the
// streams are finalized through the backend.
//
// If a command failed during recording, or finalizing fails, the encoder
// becomes invalid and End returns the error.
func (e *Encoder) End() error {
	if e.state != StateRecording {
		e.fail(ErrNotRecording)
		return ErrNotRecording
	}
	if e.err == nil {
		e.finish()
	}
	if e.err != nil {
		e.state = StateInvalid
		return fmt.Errorf("cmdstream: end recording: %w", e.err)
	}
	e.state = StateExecutable

	if log := Logger(); log.Enabled(context.Background(), slog.LevelDebug) {
		st := e.regs[stream.Primary].Stats()
		rs := e.ring.Stats()
		log.Debug("cmdstream: end",
			"slot", e.slot,
			"draws", e.draws,
			"words", e.streams[stream.Primary].Len(),
			"regHits", st.Hits,
			"regMisses", st.Misses,
			"ringBlocks", rs.Blocks,
			"ringBytes", rs.Allocated,
			"gang", e.gang.Engaged())
	}
	return nil
}

func (e *Encoder) finish() {
	if e.renderingActive && !e.inherited {
		e.fail(fmt.Errorf("%w: End inside BeginRendering", ErrRenderingActive))
		return
	}

	primary := e.streams[stream.Primary]
	e.flushes.Flush(stream.Primary, primary)
	if aux := e.streams[stream.Auxiliary]; aux != nil {
		e.flushes.Flush(stream.Auxiliary, aux)
		e.gang.Finalize(primary, aux)
	} else {
		e.flushes.Take(stream.Auxiliary)
	}

	e.req.UploadBytes += e.ring.Stats().Allocated

	for eng := range stream.EngineCount {
		s := e.streams[eng]
		if s == nil {
			continue
		}
		if err := e.dev.backend.FinalizeStream(s); err != nil {
			e.fail(fmt.Errorf("finalize %s stream: %w", eng, err))
			return
		}
	}
}

// Reset returns the encoder to the initial state from any state. The
// upload ring keeps its largest block; streams, bindings, dirty state and
// pending flushes are dropped.
func (e *Encoder) Reset() {
	if e.freed {
		return
	}
	e.release()
	e.state = StateInitial
	e.err = nil
}

// release drops everything a recording holds.
func (e *Encoder) release() {
	e.ring.Reset()
	for eng, s := range e.streams {
		if s == nil {
			continue
		}
		e.dev.backend.ReleaseStream(s)
		if stream.Engine(eng) == stream.Auxiliary {
			e.streams[eng] = nil
		}
	}
	for _, c := range e.regs {
		c.InvalidateAll()
	}
	for s := range e.retained {
		s.Release()
	}
	clear(e.retained)

	e.flushes.Reset()
	e.gang.Reset()
	e.leaderPending = false
	e.tracker.Reset()
	e.dyn.Reset()

	e.info = BeginInfo{}
	e.gfx, e.compute, e.task, e.epilog = nil, nil, nil, nil
	for i := range e.tables {
		e.tables[i] = e.tables[i][:0]
		e.push[i] = e.push[i][:0]
	}
	e.tableAddr = [bindPointCount]uint64{}
	e.pushAddr = [bindPointCount]uint64{}
	e.vertexBuffers = [dirty.MaxVertexBindings]VertexBuffer{}
	e.vertexCount = 0
	e.index = indexBinding{}
	e.streamout = [regs.MaxStreamoutBuffers]StreamoutBuffer{}
	e.streamoutMask = 0
	e.streamoutTbl = 0
	e.xfbActive = false
	e.rendering = RenderingInfo{}
	e.renderingActive, e.inherited = false, false
	e.occlusion = occlusionState{}
	e.statsActive = false
	e.predication, e.auxPredication = predicationState{}, predicationState{}
	e.req = Requirements{}
	e.draws = 0
}

// destroy releases every resource. The encoder cannot be used afterwards.
func (e *Encoder) destroy() {
	if e.freed {
		return
	}
	e.release()
	e.ring.Destroy()
	e.streams = [stream.EngineCount]*stream.Stream{}
	e.state = StateInvalid
	e.freed = true
}

// retain keeps s alive until the encoder is reset.
func (e *Encoder) retain(s *Shader) {
	if s == nil {
		return
	}
	if _, ok := e.retained[s]; ok {
		return
	}
	e.retained[s] = struct{}{}
	s.Retain()
}

// upload copies data into the ring and returns its address, recording
// the error on failure.
func (e *Encoder) upload(data []byte, alignment uint64) (uint64, bool) {
	a, err := e.ring.Upload(data, alignment)
	if err != nil {
		e.fail(fmt.Errorf("upload %d bytes: %w", len(data), err))
		return 0, false
	}
	return a.Address, true
}

func (e *Encoder) setReg(eng stream.Engine, id, v uint32) {
	e.regs[eng].EmitIfChanged(id, v, e.emitReg[eng])
}

func (e *Encoder) setRegSeq(eng stream.Engine, base uint32, vs ...uint32) {
	e.regs[eng].EmitSeqIfChanged(base, vs, e.emitSeq[eng])
}

func cloneRendering(r RenderingInfo) RenderingInfo {
	r.ColorFormats = append([]gputypes.TextureFormat(nil), r.ColorFormats...)
	return r
}
