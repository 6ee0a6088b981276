//go:build !(js && wasm)

package cmdstream

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/cmdstream/backend/wgpuhal"
)

// captureLogs routes the package logger into a buffer for the test.
func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	return &buf
}

func TestDeviceClose(t *testing.T) {
	b := wgpuhal.New(&noop.Device{})
	dev, err := NewDevice(WithBackend(b))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	if dev.Closed() {
		t.Fatal("new device reports closed")
	}

	dev.Close()
	dev.Close()
	if !dev.Closed() {
		t.Error("Closed() = false after Close")
	}
	if _, err := dev.NewPool(0); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("NewPool after Close = %v, want ErrDeviceClosed", err)
	}
	if got := dev.ShaderCache().Refs(); got != 0 {
		t.Errorf("shader cache Refs() = %d after Close, want 0", got)
	}
}

func TestDeviceCloseReleasesShaders(t *testing.T) {
	f := newFixture(t, softwareCaps(), DefaultConfig())
	s, err := f.dev.ShaderCache().Compile(ShaderDescriptor{Label: "extra", Stage: StageFragment, Source: "extra"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := f.hal.Stats().LiveShaders; got != 6 {
		t.Fatalf("LiveShaders = %d, want 6", got)
	}
	s.Release()
	if got := f.hal.Stats().LiveShaders; got != 6 {
		t.Errorf("LiveShaders = %d while cached, want 6", got)
	}

	// The fixture still holds its five shaders.
	f.pool.Destroy()
	f.dev.Close()
	if got := f.hal.Stats().LiveShaders; got != 5 {
		t.Errorf("LiveShaders = %d after Close, want 5", got)
	}
}

func TestDeviceLogging(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	dev, err := NewDevice(WithBackend(wgpuhal.New(&noop.Device{}, wgpuhal.WithName("logged"))))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "device created") || !strings.Contains(out, "backend=logged") {
		t.Errorf("creation log = %q", out)
	}

	buf.Reset()
	if _, err := dev.NewPool(0); err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	dev.Close()
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "live pools") {
		t.Errorf("no warning for a live pool: %q", out)
	}
	if !strings.Contains(out, "device closed") {
		t.Errorf("no close log: %q", out)
	}
}

func TestRecordingErrorIsLogged(t *testing.T) {
	f := newFixture(t, softwareCaps(), DefaultConfig())
	buf := captureLogs(t, slog.LevelWarn)

	e := f.allocate(t, LevelPrimary)
	e.Draw(3, 1, 0, 0)
	e.Draw(3, 1, 0, 0)

	out := buf.String()
	if n := strings.Count(out, "recording error"); n != 1 {
		t.Errorf("logged %d recording errors, want 1 (sticky): %q", n, out)
	}
	if !strings.Contains(out, ErrNoPipeline.Error()) {
		t.Errorf("log %q does not name the error", out)
	}
}
