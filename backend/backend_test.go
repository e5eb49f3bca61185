// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/quads/backend"
	"github.com/gogpu/quads/render"
	"github.com/gogpu/quads/render/recorder"
)

func TestRecorderRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendRecorder) {
		t.Fatalf("recorder backend not registered, have %v", backend.Available())
	}
}

func TestOpenRecorder(t *testing.T) {
	dev, err := backend.Open(backend.BackendRecorder, backend.Config{Width: 64, Height: 32})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer backend.Close(dev)

	w, h := dev.Window().PixelSize()
	if w != 64 || h != 32 {
		t.Errorf("window = %dx%d, want 64x32", w, h)
	}
	if _, ok := dev.(*recorder.Device); !ok {
		t.Errorf("Open() returned %T, want *recorder.Device", dev)
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := backend.Open("no-such-backend", backend.Config{})
	if !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("Open(unknown) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegisterUnregister(t *testing.T) {
	const name = "test-fake"
	calls := 0
	backend.Register(name, func(cfg backend.Config) (render.Device, error) {
		calls++
		return recorder.New(cfg.Width, cfg.Height), nil
	})
	if !backend.IsRegistered(name) {
		t.Fatal("IsRegistered() = false after Register")
	}
	if !slices.Contains(backend.Available(), name) {
		t.Errorf("Available() = %v, missing %q", backend.Available(), name)
	}
	if !slices.IsSorted(backend.Available()) {
		t.Errorf("Available() = %v, want sorted", backend.Available())
	}
	if _, err := backend.Open(name, backend.Config{Width: 1, Height: 1}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("factory calls = %d, want 1", calls)
	}

	backend.Unregister(name)
	if backend.IsRegistered(name) {
		t.Error("IsRegistered() = true after Unregister")
	}
}

func TestOpenFactoryError(t *testing.T) {
	const name = "test-broken"
	boom := errors.New("boom")
	backend.Register(name, func(backend.Config) (render.Device, error) { return nil, boom })
	defer backend.Unregister(name)

	_, err := backend.Open(name, backend.Config{})
	if !errors.Is(err, boom) {
		t.Errorf("Open() error = %v, want wrapped boom", err)
	}
}

func TestDefaultFallsBack(t *testing.T) {
	// wgpu is not linked into this test binary, so a broken entry under
	// its name must be skipped in favor of the recorder.
	boom := errors.New("no gpu")
	backend.Register(backend.BackendWGPU, func(backend.Config) (render.Device, error) { return nil, boom })
	defer backend.Unregister(backend.BackendWGPU)

	dev, name, err := backend.Default(backend.Config{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	defer backend.Close(dev)
	if name != backend.BackendRecorder {
		t.Errorf("Default() name = %q, want %q", name, backend.BackendRecorder)
	}
}

func TestDefaultAllFail(t *testing.T) {
	saved := backend.Available()
	for _, name := range saved {
		backend.Unregister(name)
	}
	defer backend.Register(backend.BackendRecorder, func(cfg backend.Config) (render.Device, error) {
		return recorder.New(cfg.Width, cfg.Height), nil
	})

	_, _, err := backend.Default(backend.Config{})
	if !errors.Is(err, backend.ErrNoBackends) {
		t.Errorf("Default() error = %v, want ErrNoBackends", err)
	}
}
