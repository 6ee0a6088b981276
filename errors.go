package cmdstream

import (
	"errors"

	"github.com/gogpu/cmdstream/backend"
)

// Resource errors. These are the backend sentinels; a recording error
// wraps one of them when a transient allocation or finalize failed.
var (
	ErrOutOfHostMemory      = backend.ErrOutOfHostMemory
	ErrOutOfDeviceMemory    = backend.ErrOutOfDeviceMemory
	ErrStreamFinalizeFailed = backend.ErrStreamFinalizeFailed
)

// Usage errors.
var (
	// ErrNotRecording is recorded when a command is issued on an encoder
	// that is not between Begin and End.
	ErrNotRecording = errors.New("cmdstream: encoder is not recording")

	// ErrNotInitial is returned by Begin on an encoder that must be reset
	// first because its pool does not allow implicit resets.
	ErrNotInitial = errors.New("cmdstream: encoder is not in the initial state")

	// ErrInvalidLevel is recorded when a primary-only command is issued
	// on a secondary encoder or a primary is passed to ExecuteSecondary.
	ErrInvalidLevel = errors.New("cmdstream: wrong encoder level")

	// ErrNotExecutable is recorded when ExecuteSecondary is given a
	// secondary encoder that did not End successfully.
	ErrNotExecutable = errors.New("cmdstream: secondary encoder is not executable")

	// ErrNoPipeline is recorded when a draw or dispatch has no pipeline bound.
	ErrNoPipeline = errors.New("cmdstream: no pipeline bound")

	// ErrNoAuxiliaryEngine is recorded when task work is bound on a device
	// without an auxiliary engine.
	ErrNoAuxiliaryEngine = errors.New("cmdstream: device has no auxiliary engine")

	// ErrRenderingActive is recorded by commands not allowed inside
	// BeginRendering/EndRendering, and by a nested BeginRendering.
	ErrRenderingActive = errors.New("cmdstream: rendering already active")

	// ErrRenderingInactive is recorded by draws outside BeginRendering/EndRendering.
	ErrRenderingInactive = errors.New("cmdstream: no rendering active")

	// ErrInvalidArgument is recorded for out-of-range indices and counts.
	ErrInvalidArgument = errors.New("cmdstream: invalid argument")

	// ErrPoolDestroyed is returned when the encoder's pool is gone.
	ErrPoolDestroyed = errors.New("cmdstream: pool destroyed")

	// ErrDeviceClosed is returned when creating objects on a closed device.
	ErrDeviceClosed = errors.New("cmdstream: device closed")
)
