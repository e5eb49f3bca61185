// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/quads/backend"
	"github.com/gogpu/quads/render"
)

func init() {
	backend.Register(backend.BackendWGPU, func(cfg backend.Config) (render.Device, error) {
		return openFromConfig(cfg)
	})
	backend.Register(backend.BackendWGPUNoop, func(cfg backend.Config) (render.Device, error) {
		cfg.Provider = nil
		return openFromConfig(cfg, WithBackend(gputypes.BackendEmpty))
	})
}

// openFromConfig opens a device for the backend registry.
func openFromConfig(cfg backend.Config, extra ...Option) (render.Device, error) {
	opts := append([]Option{WithClearColor(cfg.ClearColor)}, extra...)
	if cfg.Width > 0 && cfg.Height > 0 {
		opts = append(opts, WithSize(cfg.Width, cfg.Height))
	}
	if cfg.Provider != nil {
		return NewFromProvider(cfg.Provider, opts...)
	}
	return Open(opts...)
}
