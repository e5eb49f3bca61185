// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements render.Device on the gogpu/wgpu hardware
// abstraction layer.
//
// It runs on every HAL backend compiled into the binary (Vulkan, Metal,
// DX12, GLES and the no-op backend), selected with WithBackend or picked
// by hal.SelectBestBackend.
//
// # Architecture Overview
//
//	quads.Renderer -> render.Device -> Device -> hal.Device / hal.Queue
//
// Key components:
//
//   - Device: binding state, resources and submission tracking
//   - shaders/quad.wgsl: the quad shader, with the sampler and texture
//     bindings and the pixel extension composed in at compile time
//   - pipelineCache: render pipelines per shader and target format, kept
//     in an LRU cache
//
// # Binding Layout
//
// Every draw uses one bind group:
//
//	binding 0        uniform constants read by pixel extensions
//	binding 1..4     samplers in quads.SamplerIndex order
//	binding 5..36    32 per-draw batch textures
//	binding 37..44   8 frame-wide bound images
//
// Unset slots are filled with a 1x1 white texture and a nearest sampler.
//
// # Submission
//
// DrawIndexed and ClearRenderTarget each record one render pass and submit
// it. Submissions are tracked by their queue submission index; command
// buffers and bind groups are released once the queue reports them
// complete. Writing a buffer or texture that an unfinished draw still reads
// waits for the GPU first.
//
// # Window
//
// Open and NewWithHAL draw into an offscreen BGRA8 window texture that can
// be read back with ReadWindow. NewFromProvider shares a host application's
// device; the host passes the current surface view with SetSurfaceView and
// presents it itself.
//
// # Example
//
//	dev, err := wgpu.Open(wgpu.WithSize(640, 480))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	r, err := quads.NewRenderer(dev)
//	...
//	img, err := dev.ReadWindow()
package wgpu
