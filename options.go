package cmdstream

import "github.com/gogpu/cmdstream/backend"

// DeviceOption configures a Device during creation.
//
// Example:
//
//	// Default backend and configuration
//	dev, err := cmdstream.NewDevice()
//
//	// Explicit backend, shared shader cache
//	dev, err := cmdstream.NewDevice(
//	    cmdstream.WithBackend(b),
//	    cmdstream.WithShaderCache(shared),
//	)
type DeviceOption func(*deviceOptions)

type deviceOptions struct {
	config      Config
	backend     backend.Backend
	backendName string
	shaders     *ShaderCache
}

func defaultDeviceOptions() deviceOptions {
	return deviceOptions{config: DefaultConfig()}
}

// WithConfig replaces DefaultConfig.
func WithConfig(c Config) DeviceOption {
	return func(o *deviceOptions) {
		o.config = c
	}
}

// WithBackend uses b instead of opening one from the registry.
// The device does not close a backend passed this way.
func WithBackend(b backend.Backend) DeviceOption {
	return func(o *deviceOptions) {
		o.backend = b
	}
}

// WithBackendName opens the named registered backend.
func WithBackendName(name string) DeviceOption {
	return func(o *deviceOptions) {
		o.backendName = name
	}
}

// WithShaderCache shares an existing shader cache between devices on the
// same backend. The device retains the cache and releases it on Close.
func WithShaderCache(sc *ShaderCache) DeviceOption {
	return func(o *deviceOptions) {
		o.shaders = sc
	}
}
