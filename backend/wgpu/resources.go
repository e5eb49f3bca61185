// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quads/render"
)

// ErrForeignHandle is returned when a handle created by another device is
// passed in.
var ErrForeignHandle = errors.New("wgpu: handle not created by this device")

type buffer struct {
	raw     hal.Buffer
	size    uint64
	usage   render.BufferUsage
	lastUse uint64 // submission index of the last draw reading the buffer
}

type texture struct {
	raw          hal.Texture
	view         hal.TextureView
	width        uint32
	height       uint32
	format       gputypes.TextureFormat
	renderTarget bool
	lastUse      uint64
}

type sampler struct {
	raw hal.Sampler
}

// align4 rounds n up to a multiple of 4, the HAL copy alignment.
func align4(n uint64) uint64 { return (n + 3) &^ 3 }

func halBufferUsage(u render.BufferUsage) gputypes.BufferUsage {
	switch u {
	case render.BufferUsageIndex:
		return gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	case render.BufferUsageConstant:
		return gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	}
}

// CreateBuffer creates a buffer and uploads desc.Data when present.
func (d *Device) CreateBuffer(desc *render.BufferDescriptor) (render.Buffer, error) {
	if d.closed {
		return nil, ErrClosed
	}
	b, err := d.newBuffer(desc)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Device) newBuffer(desc *render.BufferDescriptor) (*buffer, error) {
	size := align4(max(desc.Size, uint64(len(desc.Data)), 4))
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: halBufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", desc.Usage, err)
	}
	b := &buffer{raw: raw, size: size, usage: desc.Usage}
	if len(desc.Data) > 0 {
		if err := d.queue.WriteBuffer(raw, 0, padded(desc.Data)); err != nil {
			d.device.DestroyBuffer(raw)
			return nil, fmt.Errorf("write %s buffer: %w", desc.Usage, err)
		}
	}
	return b, nil
}

// padded returns data extended with zeros to a multiple of 4 bytes.
func padded(data []byte) []byte {
	n := align4(uint64(len(data)))
	if n == uint64(len(data)) {
		return data
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}

// WriteBuffer replaces the head of b. A buffer still read by an in-flight
// draw is waited on first.
func (d *Device) WriteBuffer(rb render.Buffer, data []byte) error {
	if d.closed {
		return ErrClosed
	}
	b, ok := rb.(*buffer)
	if !ok || b == nil {
		return ErrForeignHandle
	}
	if uint64(len(data)) > b.size {
		return fmt.Errorf("wgpu: write of %d bytes into %d byte buffer", len(data), b.size)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.waitFor(b.lastUse); err != nil {
		return err
	}
	if err := d.queue.WriteBuffer(b.raw, 0, padded(data)); err != nil {
		return fmt.Errorf("write %s buffer: %w", b.usage, err)
	}
	return nil
}

// DestroyBuffer releases b after the GPU is done with it.
func (d *Device) DestroyBuffer(rb render.Buffer) {
	b, ok := rb.(*buffer)
	if !ok || b == nil || b.raw == nil || d.closed {
		return
	}
	if err := d.waitFor(b.lastUse); err != nil {
		d.logger().Warn("wgpu: wait before buffer release", "err", err)
	}
	d.device.DestroyBuffer(b.raw)
	b.raw = nil
}

// CreateTexture creates a sampled 2D texture, also usable as a render
// target when desc.RenderTarget is set.
func (d *Device) CreateTexture(desc *render.TextureDescriptor) (render.Texture, error) {
	if d.closed {
		return nil, ErrClosed
	}
	t, err := d.newTexture(desc)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (d *Device) newTexture(desc *render.TextureDescriptor) (*texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("wgpu: texture %q has zero size", desc.Label)
	}
	usage := gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst
	if desc.RenderTarget {
		usage |= gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc
	}
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture: %w", err)
	}
	view, err := d.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:         desc.Label + "_view",
		Format:        desc.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(raw)
		return nil, fmt.Errorf("create texture view: %w", err)
	}
	t := &texture{
		raw:          raw,
		view:         view,
		width:        desc.Width,
		height:       desc.Height,
		format:       desc.Format,
		renderTarget: desc.RenderTarget,
	}
	if len(desc.Data) > 0 {
		region := image.Rect(0, 0, int(desc.Width), int(desc.Height))
		if err := d.uploadTexture(t, region, desc.Data); err != nil {
			d.destroyTexture(t)
			return nil, err
		}
	}
	return t, nil
}

// WriteTexture uploads tightly packed pixels into region of t.
func (d *Device) WriteTexture(rt render.Texture, region image.Rectangle, data []byte) error {
	if d.closed {
		return ErrClosed
	}
	t, ok := rt.(*texture)
	if !ok || t == nil {
		return ErrForeignHandle
	}
	if err := d.waitFor(t.lastUse); err != nil {
		return err
	}
	return d.uploadTexture(t, region, data)
}

func (d *Device) uploadTexture(t *texture, region image.Rectangle, data []byte) error {
	bounds := image.Rect(0, 0, int(t.width), int(t.height))
	if region.Empty() || !region.In(bounds) {
		return fmt.Errorf("wgpu: region %v outside texture %v", region, bounds)
	}
	bpp := render.BytesPerPixel(t.format)
	rowBytes := region.Dx() * bpp
	if len(data) != rowBytes*region.Dy() {
		return fmt.Errorf("wgpu: texture data is %d bytes, want %d", len(data), rowBytes*region.Dy())
	}
	//nolint:gosec // region is inside the texture bounds checked above
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture: t.raw,
			Origin:  hal.Origin3D{X: uint32(region.Min.X), Y: uint32(region.Min.Y)},
			Aspect:  gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{BytesPerRow: uint32(rowBytes), RowsPerImage: uint32(region.Dy())},
		&hal.Extent3D{Width: uint32(region.Dx()), Height: uint32(region.Dy()), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("write texture: %w", err)
	}
	return nil
}

// DestroyTexture releases t after the GPU is done with it.
func (d *Device) DestroyTexture(rt render.Texture) {
	t, ok := rt.(*texture)
	if !ok || t == nil || d.closed {
		return
	}
	if err := d.waitFor(t.lastUse); err != nil {
		d.logger().Warn("wgpu: wait before texture release", "err", err)
	}
	d.destroyTexture(t)
}

func (d *Device) destroyTexture(t *texture) {
	if t.view != nil {
		d.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.raw != nil {
		d.device.DestroyTexture(t.raw)
		t.raw = nil
	}
}

// CreateSampler creates a clamp-to-edge sampler without mipmaps.
func (d *Device) CreateSampler(desc *render.SamplerDescriptor) (render.Sampler, error) {
	if d.closed {
		return nil, ErrClosed
	}
	s, err := d.newSampler(desc)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Device) newSampler(desc *render.SamplerDescriptor) (*sampler, error) {
	raw, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	return &sampler{raw: raw}, nil
}

// DestroySampler releases s.
func (d *Device) DestroySampler(rs render.Sampler) {
	s, ok := rs.(*sampler)
	if !ok || s == nil || s.raw == nil || d.closed {
		return
	}
	if err := d.waitFor(d.lastSubmit()); err != nil {
		d.logger().Warn("wgpu: wait before sampler release", "err", err)
	}
	d.device.DestroySampler(s.raw)
	s.raw = nil
}

// window is the default render target. It is an offscreen texture unless
// a host supplies the current surface view.
type window struct {
	format        gputypes.TextureFormat
	width, height int
	clear         gputypes.Color

	tex      *texture        // offscreen back buffer
	external hal.TextureView // host surface view for the current frame
}

var _ render.Window = (*window)(nil)

func (w *window) PixelSize() (int, int)      { return w.width, w.height }
func (w *window) ClearColor() gputypes.Color { return w.clear }

func (w *window) createTexture(d *Device) error {
	t, err := d.newTexture(&render.TextureDescriptor{
		Label:        "quad_window",
		Width:        uint32(w.width),  //nolint:gosec // options reject non-positive sizes
		Height:       uint32(w.height), //nolint:gosec // options reject non-positive sizes
		Format:       w.format,
		RenderTarget: true,
	})
	if err != nil {
		return fmt.Errorf("create window texture: %w", err)
	}
	w.tex = t
	return nil
}

func (w *window) destroyTexture(d *Device) {
	if w.tex != nil {
		d.destroyTexture(w.tex)
		w.tex = nil
	}
}

// view returns the view drawn into when no render target is set.
func (w *window) view() hal.TextureView {
	if w.external != nil {
		return w.external
	}
	return w.tex.view
}

// SetSurfaceView makes the next draws and clears target a host surface
// view of the given size. The host acquires and presents the surface
// texture itself. Passing nil returns to the offscreen window texture.
func (d *Device) SetSurfaceView(view hal.TextureView, width, height int) {
	w := d.window
	w.external = view
	if view == nil {
		if w.tex != nil {
			w.width, w.height = int(w.tex.width), int(w.tex.height)
		}
		return
	}
	if width > 0 && height > 0 {
		w.width, w.height = width, height
	}
}

// Resize recreates the offscreen window texture.
func (d *Device) Resize(width, height int) error {
	if d.closed {
		return ErrClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("wgpu: invalid window size %dx%d", width, height)
	}
	w := d.window
	if w.tex != nil && int(w.tex.width) == width && int(w.tex.height) == height {
		return nil
	}
	if err := d.waitFor(d.lastSubmit()); err != nil {
		return err
	}
	w.destroyTexture(d)
	w.width, w.height = width, height
	return w.createTexture(d)
}
