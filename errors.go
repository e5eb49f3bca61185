package quads

import "errors"

// Sentinel errors returned by the renderer.
var (
	// ErrDevice wraps failures reported by the render.Device.
	ErrDevice = errors.New("quads: device failure")

	// ErrRendererFailed is returned by every call after a device failure.
	// A failed renderer cannot be recovered; create a new device and
	// renderer.
	ErrRendererFailed = errors.New("quads: renderer failed")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("quads: renderer closed")

	// ErrInvalidImage is returned for images with non-positive dimensions
	// or pixel data of the wrong length.
	ErrInvalidImage = errors.New("quads: invalid image")

	// ErrNilDevice is returned by NewRenderer when no device is given.
	ErrNilDevice = errors.New("quads: nil device")
)
