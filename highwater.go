package cmdstream

// Requirements are the high-water marks of the device resources a
// recording needs at submission: scratch sizes, ring buffers and the
// transient upload volume. The submitter sizes the shared rings from them.
type Requirements struct {
	// ScratchBytesPerWave and ScratchWaves size graphics scratch.
	ScratchBytesPerWave uint32
	ScratchWaves        uint32

	// ComputeScratchBytesPerWave and ComputeScratchWaves size compute
	// scratch, including task shaders on the auxiliary engine.
	ComputeScratchBytesPerWave uint32
	ComputeScratchWaves        uint32

	TessRings       bool
	TaskRings       bool
	MeshScratchRing bool

	// SamplePositions is set when custom sample locations were used.
	SamplePositions bool

	// UploadBytes is the transient data uploaded by the recording.
	UploadBytes uint64
}

// merge raises r to cover o.
func (r *Requirements) merge(o Requirements) {
	r.ScratchBytesPerWave = max(r.ScratchBytesPerWave, o.ScratchBytesPerWave)
	r.ScratchWaves = max(r.ScratchWaves, o.ScratchWaves)
	r.ComputeScratchBytesPerWave = max(r.ComputeScratchBytesPerWave, o.ComputeScratchBytesPerWave)
	r.ComputeScratchWaves = max(r.ComputeScratchWaves, o.ComputeScratchWaves)
	r.TessRings = r.TessRings || o.TessRings
	r.TaskRings = r.TaskRings || o.TaskRings
	r.MeshScratchRing = r.MeshScratchRing || o.MeshScratchRing
	r.SamplePositions = r.SamplePositions || o.SamplePositions
	r.UploadBytes += o.UploadBytes
}

// Requirements returns the resource high-water marks recorded so far.
// After End they cover every executed secondary as well.
func (e *Encoder) Requirements() Requirements {
	r := e.req
	if e.state == StateRecording {
		r.UploadBytes += e.ring.Stats().Allocated
	}
	return r
}
