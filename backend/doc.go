// Package backend defines the device surface the command encoder records
// against.
//
// A Backend hands out transient memory blocks, creates and finalizes
// instruction streams, uploads shader code and supplies the barrier
// translator for its cache hierarchy.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime:
//
//	import _ "github.com/gogpu/cmdstream/backend/wgpuhal"
//
// # Backend Selection
//
// Use Default to open the best available backend, or Open to request a
// specific one by name:
//
//	b, err := backend.Default()
//
//	b, err := backend.Open(backend.NameWGPUNoop)
//
// # Available Backends
//
//   - "wgpu-noop": gogpu/wgpu HAL over the in-memory noop device
package backend
