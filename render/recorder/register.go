// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recorder

import (
	"github.com/gogpu/quads/backend"
	"github.com/gogpu/quads/render"
)

// Window size used when the config leaves it unset.
const (
	defaultWidth  = 800
	defaultHeight = 600
)

func init() {
	backend.Register(backend.BackendRecorder, func(cfg backend.Config) (render.Device, error) {
		w, h := cfg.Width, cfg.Height
		if w <= 0 || h <= 0 {
			w, h = defaultWidth, defaultHeight
		}
		d := New(w, h)
		d.Win.Clear = cfg.ClearColor
		return d, nil
	})
}
