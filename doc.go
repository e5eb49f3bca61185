// Package quads is a batching renderer for textured, colored quads.
//
// # Overview
//
// A frame is a list of quads. Each quad has four clip-space corners, a
// color, an optional image with a UV sub-rectangle, min and mag filters, a
// depth, a shading type, user data forwarded to the fragment stage and an
// optional scissor rectangle. The renderer expands quads into vertices and
// draws them with as few indexed draw calls as the texture bindings allow:
// up to 32 distinct images share one draw.
//
// # Quick Start
//
//	runtime.LockOSThread()
//
//	dev, err := wgpu.Open(wgpu.WithSize(800, 600))
//	if err != nil { ... }
//	r, err := quads.NewRenderer(dev)
//	if err != nil { ... }
//	defer r.Close()
//
//	img, _ := r.NewImageFromGo(src, false)
//	px := quads.Ortho(800, 600)
//
//	f := quads.NewFrame(1024)
//	f.Submit(quads.RectQuad(px, quads.Rect{10, 10, 110, 60}, quads.White, 0))
//	f.Submit(quads.ImageQuad(px, quads.Rect{200, 200, 328, 328}, img, quads.FullUV, quads.White, 1))
//	err = r.EndFrame(f)
//
// # Ordering
//
// Quads are drawn in submission order. A frame that enables Z sorting is
// drawn by ascending Z instead; quads with equal Z keep their submission
// order. Sorting is a linear time radix sort over the depth key.
//
// # Threading
//
// Frames can be built on any goroutine. The Renderer, its images and its
// shader extensions belong to the OS thread that created the renderer.
// Using them from another thread panics with a *ContractViolation.
//
// # Errors
//
// Misuse (depth out of range, wrong thread, unsupported channel counts,
// rendering into an image that is not a render target) panics with a
// *ContractViolation. Device failures are returned as errors wrapping
// ErrDevice, after which the renderer only returns ErrRendererFailed.
//
// # Backends
//
// The renderer draws through the render.Device interface. backend/wgpu
// implements it on gogpu/wgpu; render/recorder records calls for tests.
// The backend package picks one by name.
//
// Text is drawn from a glyph atlas by package text. Package capture saves
// a frame to a file and replays it.
package quads
