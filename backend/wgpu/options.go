// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"github.com/gogpu/gputypes"
)

// Defaults used when no option overrides them.
const (
	DefaultWidth             = 800
	DefaultHeight            = 600
	DefaultPipelineCacheSize = 16
)

// config holds the settings collected from Options.
type config struct {
	width, height int
	clear         gputypes.Color
	backend       gputypes.Backend
	backendSet    bool
	pipelineCache int
}

func defaultConfig() config {
	return config{
		width:         DefaultWidth,
		height:        DefaultHeight,
		clear:         gputypes.Color{A: 1},
		pipelineCache: DefaultPipelineCacheSize,
	}
}

// Option configures a Device.
type Option func(*config)

// WithSize sets the size of the offscreen window texture. Devices created
// from a host provider take their size from SetSurfaceView instead.
func WithSize(width, height int) Option {
	return func(c *config) {
		if width > 0 && height > 0 {
			c.width, c.height = width, height
		}
	}
}

// WithClearColor sets the color the window is cleared to after each
// presented frame. The default is opaque black.
func WithClearColor(col gputypes.Color) Option {
	return func(c *config) {
		c.clear = col
	}
}

// WithBackend selects a HAL backend instead of the best available one.
func WithBackend(b gputypes.Backend) Option {
	return func(c *config) {
		c.backend = b
		c.backendSet = true
	}
}

// WithPipelineCacheSize bounds how many render pipelines are kept. A
// pipeline exists per fragment shader and target format pair.
func WithPipelineCacheSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.pipelineCache = n
		}
	}
}

func applyOptions(opts []Option) config {
	c := defaultConfig()
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}
	return c
}
