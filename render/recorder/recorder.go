// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package recorder provides an in-memory render.Device that records every
// resource and draw. It performs no rasterization; tests use it to inspect
// what the renderer asked the GPU to do.
package recorder

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/quads/render"
)

// ErrInjected is returned by operations listed in Device.Fail.
var ErrInjected = errors.New("recorder: injected failure")

// Op names an operation that can be made to fail.
type Op string

// Operations that can be made to fail.
const (
	OpCreateBuffer  Op = "CreateBuffer"
	OpWriteBuffer   Op = "WriteBuffer"
	OpCreateTexture Op = "CreateTexture"
	OpCreateSampler Op = "CreateSampler"
	OpCreateShader  Op = "CreateFragmentShader"
	OpDrawIndexed   Op = "DrawIndexed"
	OpClear         Op = "ClearRenderTarget"
	OpPresent       Op = "Present"
)

// Buffer is a recorded buffer.
type Buffer struct {
	Label     string
	Usage     render.BufferUsage
	Data      []byte
	Destroyed bool
}

// Texture is a recorded texture with its pixel contents.
type Texture struct {
	Label        string
	Width        int
	Height       int
	Format       gputypes.TextureFormat
	RenderTarget bool
	Pixels       []byte
	Destroyed    bool
}

// Sampler is a recorded sampler.
type Sampler struct {
	Desc      render.SamplerDescriptor
	Destroyed bool
}

// Shader is a recorded fragment shader.
type Shader struct {
	Desc      render.ShaderDescriptor
	Destroyed bool
}

// Draw is one DrawIndexed call and the state bound when it was issued.
type Draw struct {
	Target       *Texture // nil for the window
	Viewport     image.Point
	VertexBuffer *Buffer
	Stride       int
	IndexBuffer  *Buffer
	Shader       *Shader // nil for the default shader
	Constants    []byte  // copy of the bound constant buffer
	Samplers     []*Sampler
	Textures     [render.TextureSlots]*Texture
	IndexCount   int

	// Vertices is a copy of the vertex bytes the draw reads.
	Vertices []byte
}

// Quads returns the number of quads the draw covers.
func (d *Draw) Quads() int { return d.IndexCount / 6 }

// BatchTextures returns the distinct non-nil textures in the batch slots.
func (d *Draw) BatchTextures() []*Texture {
	var out []*Texture
	for _, t := range d.Textures[:render.BatchTextureSlots] {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Clear is one ClearRenderTarget call.
type Clear struct {
	Target *Texture // nil for the window
	Color  gputypes.Color
}

// Window is a fixed size window.
type Window struct {
	Width, Height int
	Clear         gputypes.Color
}

// PixelSize implements render.Window.
func (w *Window) PixelSize() (int, int) { return w.Width, w.Height }

// ClearColor implements render.Window.
func (w *Window) ClearColor() gputypes.Color { return w.Clear }

// Device records calls made through render.Device.
type Device struct {
	Win Window

	// Fail makes the listed operations return ErrInjected.
	Fail map[Op]bool

	Buffers  []*Buffer
	Textures []*Texture
	Samplers []*Sampler
	Shaders  []*Shader
	Draws    []Draw
	Clears   []Clear
	Presents int

	// Unbinds counts SetTextures calls that only cleared slots.
	Unbinds int

	state Draw
}

// New returns a recorder with a window of the given size.
func New(width, height int) *Device {
	return &Device{Win: Window{Width: width, Height: height}}
}

var _ render.Device = (*Device)(nil)

func (d *Device) fail(op Op) error {
	if d.Fail[op] {
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	return nil
}

// CreateBuffer implements render.Device.
func (d *Device) CreateBuffer(desc *render.BufferDescriptor) (render.Buffer, error) {
	if err := d.fail(OpCreateBuffer); err != nil {
		return nil, err
	}
	b := &Buffer{Label: desc.Label, Usage: desc.Usage, Data: make([]byte, desc.Size)}
	copy(b.Data, desc.Data)
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

// WriteBuffer implements render.Device.
func (d *Device) WriteBuffer(b render.Buffer, data []byte) error {
	if err := d.fail(OpWriteBuffer); err != nil {
		return err
	}
	buf := b.(*Buffer)
	if len(data) > len(buf.Data) {
		return fmt.Errorf("recorder: write of %d bytes into %d byte buffer %q", len(data), len(buf.Data), buf.Label)
	}
	copy(buf.Data, data)
	return nil
}

// DestroyBuffer implements render.Device.
func (d *Device) DestroyBuffer(b render.Buffer) {
	if buf, ok := b.(*Buffer); ok && buf != nil {
		buf.Destroyed = true
	}
}

// CreateTexture implements render.Device.
func (d *Device) CreateTexture(desc *render.TextureDescriptor) (render.Texture, error) {
	if err := d.fail(OpCreateTexture); err != nil {
		return nil, err
	}
	bpp := render.BytesPerPixel(desc.Format)
	t := &Texture{
		Label:        desc.Label,
		Width:        int(desc.Width),
		Height:       int(desc.Height),
		Format:       desc.Format,
		RenderTarget: desc.RenderTarget,
		Pixels:       make([]byte, int(desc.Width)*int(desc.Height)*bpp),
	}
	copy(t.Pixels, desc.Data)
	d.Textures = append(d.Textures, t)
	return t, nil
}

// WriteTexture implements render.Device.
func (d *Device) WriteTexture(tex render.Texture, region image.Rectangle, data []byte) error {
	t := tex.(*Texture)
	bpp := render.BytesPerPixel(t.Format)
	rowBytes := region.Dx() * bpp
	if len(data) < rowBytes*region.Dy() {
		return fmt.Errorf("recorder: %d bytes for a %v region", len(data), region)
	}
	for y := 0; y < region.Dy(); y++ {
		dst := ((region.Min.Y+y)*t.Width + region.Min.X) * bpp
		copy(t.Pixels[dst:dst+rowBytes], data[y*rowBytes:])
	}
	return nil
}

// DestroyTexture implements render.Device.
func (d *Device) DestroyTexture(tex render.Texture) {
	if t, ok := tex.(*Texture); ok && t != nil {
		t.Destroyed = true
	}
}

// CreateSampler implements render.Device.
func (d *Device) CreateSampler(desc *render.SamplerDescriptor) (render.Sampler, error) {
	if err := d.fail(OpCreateSampler); err != nil {
		return nil, err
	}
	s := &Sampler{Desc: *desc}
	d.Samplers = append(d.Samplers, s)
	return s, nil
}

// DestroySampler implements render.Device.
func (d *Device) DestroySampler(s render.Sampler) {
	if smp, ok := s.(*Sampler); ok && smp != nil {
		smp.Destroyed = true
	}
}

// CreateFragmentShader implements render.Device.
func (d *Device) CreateFragmentShader(desc *render.ShaderDescriptor) (render.Shader, error) {
	if err := d.fail(OpCreateShader); err != nil {
		return nil, err
	}
	s := &Shader{Desc: *desc}
	d.Shaders = append(d.Shaders, s)
	return s, nil
}

// DestroyShader implements render.Device.
func (d *Device) DestroyShader(s render.Shader) {
	if sh, ok := s.(*Shader); ok && sh != nil {
		sh.Destroyed = true
	}
}

// SetRenderTarget implements render.Device.
func (d *Device) SetRenderTarget(t render.Texture) {
	d.state.Target, _ = t.(*Texture)
}

// SetViewport implements render.Device.
func (d *Device) SetViewport(width, height int) {
	d.state.Viewport = image.Pt(width, height)
}

// SetVertexBuffer implements render.Device.
func (d *Device) SetVertexBuffer(b render.Buffer, stride int) {
	d.state.VertexBuffer, _ = b.(*Buffer)
	d.state.Stride = stride
}

// SetIndexBuffer implements render.Device.
func (d *Device) SetIndexBuffer(b render.Buffer) {
	d.state.IndexBuffer, _ = b.(*Buffer)
}

// SetFragmentShader implements render.Device.
func (d *Device) SetFragmentShader(s render.Shader) {
	d.state.Shader, _ = s.(*Shader)
}

// SetConstantBuffer implements render.Device.
func (d *Device) SetConstantBuffer(b render.Buffer) {
	buf, _ := b.(*Buffer)
	if buf == nil {
		d.state.Constants = nil
		return
	}
	d.state.Constants = buf.Data
}

// SetSamplers implements render.Device.
func (d *Device) SetSamplers(s []render.Sampler) {
	d.state.Samplers = d.state.Samplers[:0]
	for _, smp := range s {
		x, _ := smp.(*Sampler)
		d.state.Samplers = append(d.state.Samplers, x)
	}
}

// SetTextures implements render.Device.
func (d *Device) SetTextures(first int, t []render.Texture) {
	allNil := true
	for i, tex := range t {
		x, _ := tex.(*Texture)
		if x != nil {
			allNil = false
		}
		d.state.Textures[first+i] = x
	}
	if allNil {
		d.Unbinds++
	}
}

// DrawIndexed implements render.Device.
func (d *Device) DrawIndexed(indexCount int) error {
	if err := d.fail(OpDrawIndexed); err != nil {
		return err
	}
	draw := d.state
	draw.IndexCount = indexCount
	draw.Samplers = append([]*Sampler(nil), d.state.Samplers...)
	draw.Constants = append([]byte(nil), d.state.Constants...)
	if vb := d.state.VertexBuffer; vb != nil {
		n := indexCount / 6 * 4 * d.state.Stride
		if n > len(vb.Data) {
			return fmt.Errorf("recorder: draw reads %d vertex bytes from %d byte buffer", n, len(vb.Data))
		}
		draw.Vertices = append([]byte(nil), vb.Data[:n]...)
	}
	d.Draws = append(d.Draws, draw)
	return nil
}

// ClearRenderTarget implements render.Device.
func (d *Device) ClearRenderTarget(t render.Texture, c gputypes.Color) error {
	if err := d.fail(OpClear); err != nil {
		return err
	}
	tex, _ := t.(*Texture)
	d.Clears = append(d.Clears, Clear{Target: tex, Color: c})
	return nil
}

// Present implements render.Device.
func (d *Device) Present() error {
	if err := d.fail(OpPresent); err != nil {
		return err
	}
	d.Presents++
	return nil
}

// Window implements render.Device.
func (d *Device) Window() render.Window { return &d.Win }

// Reset forgets recorded draws, clears and presents.
func (d *Device) Reset() {
	d.Draws = nil
	d.Clears = nil
	d.Presents = 0
	d.Unbinds = 0
}

// Bound returns the binding state the next DrawIndexed would use.
func (d *Device) Bound() Draw { return d.state }
