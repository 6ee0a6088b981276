package cmdstream

import (
	"fmt"
	"sync"

	"github.com/gogpu/cmdstream/backend"
	"github.com/gogpu/cmdstream/flush"
)

// Device binds a backend to a configuration and a shared shader cache.
// Encoders are created from pools of a device. A Device is safe for
// concurrent use.
type Device struct {
	cfg         Config
	backend     backend.Backend
	ownsBackend bool
	caps        backend.Caps
	translator  flush.Translator
	shaders     *ShaderCache

	mu     sync.Mutex
	closed bool
	pools  int
}

// NewDevice creates a device.
//
// Without WithBackend the backend is opened from the registry: the one
// named by WithBackendName, else backend.Default. Without WithShaderCache
// a private cache is created.
func NewDevice(opts ...DeviceOption) (*Device, error) {
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	b := o.backend
	owns := false
	if b == nil {
		var err error
		if o.backendName != "" {
			b, err = backend.Open(o.backendName)
		} else {
			b, err = backend.Default()
		}
		if err != nil {
			return nil, fmt.Errorf("cmdstream: open backend: %w", err)
		}
		owns = true
	}

	shaders := o.shaders
	if shaders != nil {
		shaders.Retain()
	} else {
		shaders = NewShaderCache(b, o.config.ShaderCacheCapacity, o.config.ValidateShaders)
	}

	caps := b.Caps()
	if o.config.CacheLineSize != 0 {
		caps.CacheLineSize = o.config.CacheLineSize
	}

	d := &Device{
		cfg:         o.config,
		backend:     b,
		ownsBackend: owns,
		caps:        caps,
		translator:  b.Translator(),
		shaders:     shaders,
	}
	Logger().Info("cmdstream: device created",
		"backend", b.Name(),
		"adapter", caps.Adapter.Name,
		"auxiliary", caps.HasAuxiliaryEngine,
		"flushOrder", o.config.FlushOrder)
	return d, nil
}

// Backend returns the device backend.
func (d *Device) Backend() backend.Backend { return d.backend }

// Caps returns the device capabilities, with configuration overrides applied.
func (d *Device) Caps() backend.Caps { return d.caps }

// Config returns the device configuration.
func (d *Device) Config() Config { return d.cfg }

// ShaderCache returns the device's shader cache.
func (d *Device) ShaderCache() *ShaderCache { return d.shaders }

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Close releases the device's shader cache reference and closes the
// backend if the device opened it. Pools must be destroyed first; Close
// logs a warning otherwise. Calling Close twice is a no-op.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	pools := d.pools
	d.mu.Unlock()

	if pools > 0 {
		Logger().Warn("cmdstream: device closed with live pools", "pools", pools)
	}
	d.shaders.Release()
	if d.ownsBackend {
		d.backend.Close()
	}
	Logger().Info("cmdstream: device closed", "backend", d.backend.Name())
}

// NewPool creates an encoder pool.
func (d *Device) NewPool(flags PoolFlags) (*Pool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}
	d.pools++
	return &Pool{dev: d, flags: flags}, nil
}

func (d *Device) poolDestroyed() {
	d.mu.Lock()
	d.pools--
	d.mu.Unlock()
}
