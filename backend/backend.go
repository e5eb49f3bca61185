// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/quads/render"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNoBackends is returned by Default when every registered backend
	// failed to open.
	ErrNoBackends = errors.New("backend: no backend could be opened")
)

// Backend names.
const (
	// BackendWGPU draws on the GPU through gogpu/wgpu.
	BackendWGPU = "wgpu"

	// BackendRecorder records device calls without drawing.
	BackendRecorder = "recorder"

	// BackendWGPUNoop runs the wgpu backend on the hal no-op device. It
	// exercises the full submission path without a GPU; read back pixels
	// are blank.
	BackendWGPUNoop = "wgpu-noop"
)

// Config carries the settings every backend understands.
type Config struct {
	// Width and Height size the window. Zero selects the backend default.
	Width, Height int

	// ClearColor is the window color after each presented frame.
	ClearColor gputypes.Color

	// Provider, when set, asks the backend to draw with a host
	// application's device instead of opening its own. Backends that
	// cannot share a device ignore it.
	Provider render.DeviceHandle
}

// Factory opens a device for a backend.
type Factory func(cfg Config) (render.Device, error)

// Close releases d when its backend supports it.
func Close(d render.Device) {
	if c, ok := d.(interface{ Close() }); ok {
		c.Close()
	}
}
