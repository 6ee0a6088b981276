//go:build !(js && wasm)

package cmdstream

import (
	"errors"
	"testing"

	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/cmdstream/backend"
	"github.com/gogpu/cmdstream/backend/wgpuhal"
)

// TestNewDeviceDefault tests that NewDevice opens the default backend.
func TestNewDeviceDefault(t *testing.T) {
	dev, err := NewDevice()
	if err != nil {
		t.Fatalf("NewDevice() = %v", err)
	}
	defer dev.Close()

	if dev.Backend() == nil {
		t.Fatal("Backend() is nil")
	}
	if got := dev.Config(); got != DefaultConfig() {
		t.Errorf("Config() = %+v, want defaults", got)
	}
	if dev.ShaderCache() == nil || dev.ShaderCache().Refs() != 1 {
		t.Error("device does not own a private shader cache")
	}
}

// TestWithBackendName tests opening a registered backend by name.
func TestWithBackendName(t *testing.T) {
	dev, err := NewDevice(WithBackendName(backend.NameWGPUNoop))
	if err != nil {
		t.Fatalf("NewDevice() = %v", err)
	}
	b, ok := dev.Backend().(*wgpuhal.Backend)
	if !ok {
		t.Fatalf("Backend() is %T, want *wgpuhal.Backend", dev.Backend())
	}
	if b.Name() != backend.NameWGPUNoop {
		t.Errorf("Name() = %q, want %q", b.Name(), backend.NameWGPUNoop)
	}
	if dev.Caps().HasAuxiliaryEngine {
		t.Error("software noop adapter reports an auxiliary engine")
	}

	dev.Close()
	if !b.Closed() {
		t.Error("device did not close the backend it opened")
	}
}

// TestWithBackendNameUnknown tests that an unregistered name fails.
func TestWithBackendNameUnknown(t *testing.T) {
	_, err := NewDevice(WithBackendName("vulkan-imaginary"))
	if !errors.Is(err, backend.ErrNotAvailable) {
		t.Errorf("NewDevice() = %v, want ErrNotAvailable", err)
	}
}

// TestWithBackend tests that an injected backend is used but not closed.
func TestWithBackend(t *testing.T) {
	b := wgpuhal.New(&noop.Device{})
	dev, err := NewDevice(WithBackend(b))
	if err != nil {
		t.Fatalf("NewDevice() = %v", err)
	}
	if dev.Backend() != backend.Backend(b) {
		t.Error("Backend() is not the injected backend")
	}
	dev.Close()
	if b.Closed() {
		t.Error("device closed a backend it does not own")
	}
}

// TestWithConfig tests that the configuration reaches the device.
func TestWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlushOrder = FlushOrderFlushFirst
	cfg.CacheLineSize = 128

	dev, err := NewDevice(WithBackend(wgpuhal.New(&noop.Device{})), WithConfig(cfg))
	if err != nil {
		t.Fatalf("NewDevice() = %v", err)
	}
	defer dev.Close()

	if dev.Config().FlushOrder != FlushOrderFlushFirst {
		t.Errorf("FlushOrder = %s, want flush-first", dev.Config().FlushOrder)
	}
	if got := dev.Caps().CacheLineSize; got != 128 {
		t.Errorf("CacheLineSize = %d, want the 128 override", got)
	}
	if got := dev.Backend().Caps().CacheLineSize; got != 64 {
		t.Errorf("backend CacheLineSize = %d, want 64 untouched", got)
	}
}

// TestWithConfigInvalid tests that NewDevice validates the configuration.
func TestWithConfigInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheLineSize = 100

	b := wgpuhal.New(&noop.Device{})
	if _, err := NewDevice(WithBackend(b), WithConfig(cfg)); err == nil {
		t.Error("NewDevice() accepted a non power of two cache line size")
	}
}

// TestWithShaderCache tests sharing one shader cache between devices.
func TestWithShaderCache(t *testing.T) {
	b := wgpuhal.New(&noop.Device{})
	shared := NewShaderCache(b, 0, false)
	shared.compile = fakeCompile

	d1, err := NewDevice(WithBackend(b), WithShaderCache(shared))
	if err != nil {
		t.Fatalf("NewDevice() = %v", err)
	}
	d2, err := NewDevice(WithBackend(b), WithShaderCache(shared))
	if err != nil {
		t.Fatalf("NewDevice() = %v", err)
	}
	if d1.ShaderCache() != shared || d2.ShaderCache() != shared {
		t.Fatal("devices do not use the shared cache")
	}
	if got := shared.Refs(); got != 3 {
		t.Fatalf("Refs() = %d, want 3", got)
	}

	s, err := d1.ShaderCache().Compile(ShaderDescriptor{Label: "vs", Stage: StageVertex, Source: "@vertex fn main() {}"})
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}
	defer s.Release()

	shared.Release()
	d1.Close()
	if shared.Len() != 1 {
		t.Errorf("Len() = %d after one device closed, want 1", shared.Len())
	}
	d2.Close()
	if got := shared.Refs(); got != 0 {
		t.Errorf("Refs() = %d after both devices closed, want 0", got)
	}
	if _, err := shared.Compile(ShaderDescriptor{Stage: StageVertex, Source: "x"}); !errors.Is(err, ErrShaderCacheReleased) {
		t.Errorf("Compile() after release = %v, want ErrShaderCacheReleased", err)
	}
	if got := b.Stats().LiveShaders; got != 1 {
		t.Errorf("LiveShaders = %d, want 1 held by the caller", got)
	}
}
