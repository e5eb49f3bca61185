// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend is the registry of render.Device implementations.
//
// # Backend Registration
//
// Backends register a Factory from an init() function and are selected at
// runtime by name:
//
//	import (
//		_ "github.com/gogpu/quads/backend/wgpu"
//		_ "github.com/gogpu/quads/render/recorder"
//	)
//
// # Backend Selection
//
// Open returns a specific backend, Default the best one that opens:
//
//	dev, name, err := backend.Default(backend.Config{Width: 800, Height: 600})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer backend.Close(dev)
//
// # Available Backends
//
//   - "wgpu": GPU rendering through gogpu/wgpu
//   - "recorder": records device calls, draws nothing (dry runs, tests)
package backend
