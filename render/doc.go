// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the device interface the quad renderer talks to.
//
// The renderer owns the batching logic; a Device only creates resources,
// records binding state and issues indexed draws. Keeping the surface this
// small lets the same renderer run on the wgpu HAL (backend/wgpu), on a
// host application's shared device, or on the in-memory recorder used by
// tests (render/recorder).
//
// # Binding Layout
//
// Every draw binds:
//
//   - 4 samplers in a fixed order (nearest/nearest, linear/linear,
//     linear min + nearest mag, nearest min + linear mag)
//   - 32 batch texture slots (BatchTextureSlots)
//   - 8 bound image slots starting at BoundImageBase
//   - an optional fragment constant buffer
//
// # Usage
//
//	dev, err := wgpu.Open(wgpu.WithSize(800, 600))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r, err := quads.NewRenderer(dev)
package render
