// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quads/render"
)

// ErrNoReadback is returned when reading a surface owned by the host.
var ErrNoReadback = errors.New("wgpu: surface cannot be read back")

// rowAlignment is the buffer row pitch alignment required for texture
// to buffer copies.
const rowAlignment = 256

// ReadWindow copies the offscreen window into an image.
func (d *Device) ReadWindow() (*image.RGBA, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if d.window.external != nil || d.window.tex == nil {
		return nil, ErrNoReadback
	}
	return d.read(d.window.tex)
}

// ReadTexture copies a render target texture into an image. One and two
// channel textures expand the way the shader samples them: missing color
// channels read as zero and alpha as one.
func (d *Device) ReadTexture(rt render.Texture) (*image.RGBA, error) {
	if d.closed {
		return nil, ErrClosed
	}
	t, ok := rt.(*texture)
	if !ok || t == nil || t.raw == nil {
		return nil, ErrForeignHandle
	}
	if !t.renderTarget {
		return nil, fmt.Errorf("%w: texture is not a render target", ErrNoReadback)
	}
	return d.read(t)
}

func (d *Device) read(t *texture) (*image.RGBA, error) {
	bpp := render.BytesPerPixel(t.format)
	if bpp == 0 {
		return nil, fmt.Errorf("%w: format %s", ErrNoReadback, t.format)
	}
	rowBytes := t.width * uint32(bpp) //nolint:gosec // bpp is at most 4
	pitch := (rowBytes + rowAlignment - 1) &^ (rowAlignment - 1)
	size := uint64(pitch) * uint64(t.height)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "quad_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create readback buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "quad_readback"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("quad_readback"); err != nil {
		enc.Destroy()
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	whole := hal.TextureRange{Aspect: gputypes.TextureAspectAll, MipLevelCount: 1, ArrayLayerCount: 1}
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.raw,
		Range:   whole,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	enc.CopyTextureToBuffer(t.raw, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: pitch, RowsPerImage: t.height},
		TextureBase:  hal.ImageCopyTexture{Texture: t.raw, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	}})
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.raw,
		Range:   whole,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	index, err := d.submit(enc, nil)
	if err != nil {
		return nil, err
	}
	if err := d.waitFor(index); err != nil {
		return nil, err
	}

	mapping, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map readback buffer: %w", err)
	}
	defer func() {
		if err := d.device.UnmapBuffer(staging); err != nil {
			d.logger().Warn("wgpu: unmap readback buffer", "err", err)
		}
	}()
	raw := unsafe.Slice((*byte)(mapping.Ptr), size)

	img := image.NewRGBA(image.Rect(0, 0, int(t.width), int(t.height)))
	for y := 0; y < int(t.height); y++ {
		src := raw[y*int(pitch):]
		dst := img.Pix[y*img.Stride:]
		convertRow(dst, src, int(t.width), t.format)
	}
	return img, nil
}

// convertRow writes one row of RGBA pixels from a row in format f.
func convertRow(dst, src []byte, width int, f gputypes.TextureFormat) {
	for x := 0; x < width; x++ {
		o := dst[x*4 : x*4+4 : x*4+4]
		switch f {
		case gputypes.TextureFormatBGRA8Unorm:
			o[0], o[1], o[2], o[3] = src[x*4+2], src[x*4+1], src[x*4], src[x*4+3]
		case gputypes.TextureFormatR8Unorm:
			o[0], o[1], o[2], o[3] = src[x], 0, 0, 0xFF
		case gputypes.TextureFormatRG8Unorm:
			o[0], o[1], o[2], o[3] = src[x*2], src[x*2+1], 0, 0xFF
		default:
			copy(o, src[x*4:x*4+4])
		}
	}
}
