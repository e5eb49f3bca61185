package quads

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/quads/render"
)

// Image is a GPU texture that quads can sample and, when created as a
// render target, that frames can be rendered into.
//
// An Image is owned by the renderer that created it and must only be used
// on the renderer's thread.
type Image struct {
	r            *Renderer
	tex          render.Texture
	width        int
	height       int
	channels     int
	renderTarget bool
}

// NewImage creates an image of width x height pixels with 1, 2 or 4
// channels (R8, RG8 or RGBA8). data holds tightly packed rows and may be nil
// to leave the texture zeroed. Any other channel count is a contract
// violation.
func (r *Renderer) NewImage(width, height, channels int, data []byte, renderTarget bool) (*Image, error) {
	r.checkThread()
	if err := r.usable(); err != nil {
		return nil, err
	}
	format, ok := render.FormatForChannels(channels)
	if !ok {
		violate(CheckChannels, "channels = %d, want 1, 2 or 4", channels)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidImage, width, height)
	}
	if data != nil && len(data) != width*height*channels {
		return nil, fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrInvalidImage, len(data), width, height, channels)
	}

	tex, err := r.dev.CreateTexture(&render.TextureDescriptor{
		Label:        "quad_image",
		Width:        uint32(width),  //nolint:gosec // checked positive above
		Height:       uint32(height), //nolint:gosec // checked positive above
		Format:       format,
		RenderTarget: renderTarget,
		Data:         data,
	})
	if err != nil {
		return nil, r.fail("create image", err)
	}
	return &Image{
		r:            r,
		tex:          tex,
		width:        width,
		height:       height,
		channels:     channels,
		renderTarget: renderTarget,
	}, nil
}

// NewImageFromGo uploads src. Alpha and gray images become 1-channel
// images; everything else is converted to non-premultiplied RGBA.
func (r *Renderer) NewImageFromGo(src image.Image, renderTarget bool) (*Image, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	switch s := src.(type) {
	case *image.Alpha:
		return r.NewImage(w, h, 1, tightPixels(s.Pix, s.Stride, w, h), renderTarget)
	case *image.Gray:
		return r.NewImage(w, h, 1, tightPixels(s.Pix, s.Stride, w, h), renderTarget)
	case *image.NRGBA:
		return r.NewImage(w, h, 4, tightPixels(s.Pix, s.Stride, w*4, h), renderTarget)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Copy(dst, image.Point{}, src, b, draw.Src, nil)
	return r.NewImage(w, h, 4, dst.Pix, renderTarget)
}

// tightPixels drops row padding. rowBytes is the unpadded row length.
func tightPixels(pix []byte, stride, rowBytes, rows int) []byte {
	if stride == rowBytes && len(pix) == rowBytes*rows {
		return pix
	}
	out := make([]byte, rowBytes*rows)
	for y := 0; y < rows; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], pix[y*stride:])
	}
	return out
}

// Width returns the image width in pixels.
func (img *Image) Width() int { return img.width }

// Height returns the image height in pixels.
func (img *Image) Height() int { return img.height }

// Channels returns 1, 2 or 4.
func (img *Image) Channels() int { return img.channels }

// IsRenderTarget reports whether frames can be rendered into the image.
func (img *Image) IsRenderTarget() bool { return img.renderTarget }

// Texture returns the backend texture handle.
func (img *Image) Texture() render.Texture { return img.tex }

// SetData replaces the w x h region at (x, y) with tightly packed pixels.
// A region outside the image is a contract violation.
func (img *Image) SetData(x, y, w, h int, data []byte) error {
	img.r.checkThread()
	img.checkAlive()
	if err := img.r.usable(); err != nil {
		return err
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > img.width || y+h > img.height {
		violate(CheckBounds, "region (%d,%d %dx%d) outside %dx%d image", x, y, w, h, img.width, img.height)
	}
	if len(data) != w*h*img.channels {
		return fmt.Errorf("%w: %d bytes for a %dx%dx%d region", ErrInvalidImage, len(data), w, h, img.channels)
	}
	if err := img.r.dev.WriteTexture(img.tex, image.Rect(x, y, x+w, y+h), data); err != nil {
		return img.r.fail("upload image region", err)
	}
	return nil
}

// Destroy releases the texture. Safe to call multiple times.
func (img *Image) Destroy() {
	if img.tex == nil {
		return
	}
	img.r.checkThread()
	img.r.dev.DestroyTexture(img.tex)
	img.tex = nil
}

func (img *Image) checkAlive() {
	if img.tex == nil {
		violate(CheckDestroyed, "image %dx%d used after Destroy", img.width, img.height)
	}
}
