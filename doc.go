// Package cmdstream records GPU command streams with redundant state
// elimination.
//
// # Overview
//
// An Encoder turns graphics and compute commands into a linear stream of
// 32-bit words for a primary engine and, when task shaders feed mesh
// draws, a second stream for an auxiliary compute engine. State setters
// only record values; the encoder writes registers lazily before the next
// draw or dispatch, and only for the state categories that actually
// changed. A per-engine register cache drops writes of values the engine
// already holds.
//
// # Quick Start
//
//	import "github.com/gogpu/cmdstream"
//
//	dev, err := cmdstream.NewDevice()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	pool, _ := dev.NewPool(cmdstream.PoolResetIndividual)
//	defer pool.Destroy()
//
//	enc, _ := pool.Allocate(cmdstream.LevelPrimary)
//	enc.Begin(cmdstream.BeginInfo{OneTimeSubmit: true})
//	enc.BeginRendering(cmdstream.RenderingInfo{
//	    Area:         cmdstream.Rect{Width: 640, Height: 480},
//	    ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
//	})
//	enc.BindGraphicsPipeline(pipeline)
//	enc.SetViewportsWithCount(cmdstream.Viewport{Width: 640, Height: 480, MaxDepth: 1})
//	enc.SetScissorsWithCount(cmdstream.Rect{Width: 640, Height: 480})
//	enc.Draw(3, 1, 0, 0)
//	enc.EndRendering()
//	if err := enc.End(); err != nil {
//	    log.Fatal(err)
//	}
//	words := enc.Words(stream.Primary)
//
// # Errors
//
// Recording methods do not return errors. The first failure is kept on
// the encoder, every later command is ignored, and End returns it wrapped.
// Test for the sentinels with errors.Is.
//
// # Architecture
//
// The library is organized into:
//   - Public API: Device, Pool, Encoder, ShaderCache, Config
//   - stream: the word format and its decoder
//   - flush: cache flush bits, barrier translation and accumulation
//   - backend: the device abstraction; backend/wgpuhal adapts a wgpu HAL device
//   - cache: the sharded LRU behind the shader cache
//   - Internal: dirty (state tracking), regcache, regs (register layout),
//     upload (transient ring), gang (cross-engine semaphores)
//
// # Concurrency
//
// Devices, pools and shader caches are safe for concurrent use. An Encoder
// is not; record different encoders on different goroutines instead.
package cmdstream
