// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/quads/render"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for Default (first that opens wins).
	backendPriority = []string{BackendWGPU, BackendRecorder}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens the named backend.
func Open(name string, cfg Config) (render.Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	d, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return d, nil
}

// Default opens the best backend that works on this machine. Backends in
// the priority list are tried first, then the rest in name order. The
// returned name says which one opened.
func Default(cfg Config) (render.Device, string, error) {
	registryMu.RLock()
	order := make([]string, 0, len(backends))
	for _, name := range backendPriority {
		if _, ok := backends[name]; ok {
			order = append(order, name)
		}
	}
	rest := make([]string, 0, len(backends))
	for name := range backends {
		if !slices.Contains(backendPriority, name) {
			rest = append(rest, name)
		}
	}
	registryMu.RUnlock()
	slices.Sort(rest)
	order = append(order, rest...)

	var errs []error
	for _, name := range order {
		d, err := Open(name, cfg)
		if err == nil {
			return d, name, nil
		}
		errs = append(errs, err)
	}
	return nil, "", errors.Join(append([]error{ErrNoBackends}, errs...)...)
}
