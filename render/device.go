// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// Backends that can share a host device (see backend/wgpu.NewFromProvider)
// accept a DeviceHandle instead of opening an adapter of their own, so the
// quad renderer and the host draw with the same device and queue.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider.
type DeviceHandle = gpucontext.DeviceProvider

// Texture binding layout shared by the renderer and every backend.
const (
	// BatchTextureSlots is the number of per-draw texture slots.
	BatchTextureSlots = 32

	// BoundImageSlots is the number of frame-wide bound image slots.
	BoundImageSlots = 8

	// BoundImageBase is the first texture binding used by bound images.
	BoundImageBase = BatchTextureSlots

	// TextureSlots is the total number of texture bindings per draw.
	TextureSlots = BatchTextureSlots + BoundImageSlots

	// SamplerCount is the number of fixed samplers bound per draw.
	SamplerCount = 4
)

// Opaque backend handles. The renderer never looks inside them.
type (
	// Buffer is a GPU buffer created by a Device.
	Buffer any

	// Texture is a GPU texture created by a Device. Render target textures
	// can also be passed to SetRenderTarget.
	Texture any

	// Sampler is a GPU sampler created by a Device.
	Sampler any

	// Shader is a compiled fragment shader created by a Device.
	Shader any
)

// BufferUsage says what a buffer is bound as.
type BufferUsage uint8

const (
	// BufferUsageVertex is a vertex buffer.
	BufferUsageVertex BufferUsage = iota

	// BufferUsageIndex is a uint32 index buffer.
	BufferUsageIndex

	// BufferUsageConstant is a fragment stage constant (uniform) buffer.
	BufferUsageConstant
)

// String returns the usage name.
func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "vertex"
	case BufferUsageIndex:
		return "index"
	case BufferUsageConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Usage selects the binding point.
	Usage BufferUsage

	// Size is the buffer size in bytes.
	Size uint64

	// Data optionally initializes the first len(Data) bytes.
	Data []byte
}

// TextureDescriptor describes a 2D texture to create.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Width is the texture width in pixels.
	Width uint32

	// Height is the texture height in pixels.
	Height uint32

	// Format is the pixel format: R8Unorm, RG8Unorm or RGBA8Unorm.
	Format gputypes.TextureFormat

	// RenderTarget allows the texture to be used with SetRenderTarget and
	// ClearRenderTarget.
	RenderTarget bool

	// Data optionally holds the initial tightly packed pixels.
	Data []byte
}

// SamplerDescriptor describes one of the fixed samplers.
type SamplerDescriptor struct {
	// Label is an optional debug label.
	Label string

	// MinFilter is the minification filter.
	MinFilter gputypes.FilterMode

	// MagFilter is the magnification filter.
	MagFilter gputypes.FilterMode
}

// ShaderDescriptor describes a fragment shader.
type ShaderDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Extension is the source of the per-pixel extension function inserted
	// into the quad shader. Empty means the default shader.
	Extension string

	// ConstantSize is the byte size of the constant buffer the extension
	// reads, or 0 when it reads none.
	ConstantSize int
}

// Window is the presentation surface the renderer draws to when no render
// target is given.
type Window interface {
	// PixelSize returns the current size of the back buffer in pixels.
	PixelSize() (width, height int)

	// ClearColor returns the color used to clear the back buffer after
	// each presented frame.
	ClearColor() gputypes.Color
}

// Device is the narrow GPU interface the quad renderer draws through.
//
// State setters record binding state that the next DrawIndexed uses; they
// never fail. Resource creation and DrawIndexed report device failures as
// errors. A Device is used from one goroutine at a time.
type Device interface {
	// CreateBuffer creates a buffer.
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// WriteBuffer replaces the first len(data) bytes of b.
	WriteBuffer(b Buffer, data []byte) error

	// DestroyBuffer releases b. Nil is ignored.
	DestroyBuffer(b Buffer)

	// CreateTexture creates a 2D texture.
	CreateTexture(desc *TextureDescriptor) (Texture, error)

	// WriteTexture uploads tightly packed pixels into region of t.
	WriteTexture(t Texture, region image.Rectangle, data []byte) error

	// DestroyTexture releases t. Nil is ignored.
	DestroyTexture(t Texture)

	// CreateSampler creates a clamp-to-edge sampler.
	CreateSampler(desc *SamplerDescriptor) (Sampler, error)

	// DestroySampler releases s. Nil is ignored.
	DestroySampler(s Sampler)

	// CreateFragmentShader compiles a fragment shader.
	CreateFragmentShader(desc *ShaderDescriptor) (Shader, error)

	// DestroyShader releases s. Nil is ignored.
	DestroyShader(s Shader)

	// SetRenderTarget selects the texture drawn into. Nil selects the window.
	SetRenderTarget(t Texture)

	// SetViewport sets the viewport to (0, 0, width, height).
	SetViewport(width, height int)

	// SetVertexBuffer binds the vertex buffer with the given stride.
	SetVertexBuffer(b Buffer, stride int)

	// SetIndexBuffer binds a uint32 index buffer.
	SetIndexBuffer(b Buffer)

	// SetFragmentShader binds s. Nil selects the default shader.
	SetFragmentShader(s Shader)

	// SetConstantBuffer binds the fragment constant buffer. Nil unbinds.
	SetConstantBuffer(b Buffer)

	// SetSamplers binds samplers starting at sampler slot 0.
	SetSamplers(s []Sampler)

	// SetTextures binds textures starting at texture slot first. Nil
	// entries unbind their slot.
	SetTextures(first int, t []Texture)

	// DrawIndexed draws indexCount indices starting at index 0 with the
	// current state.
	DrawIndexed(indexCount int) error

	// ClearRenderTarget fills t with c. Nil clears the window.
	ClearRenderTarget(t Texture, c gputypes.Color) error

	// Present shows the window's back buffer.
	Present() error

	// Window returns the presentation surface.
	Window() Window
}

// FormatForChannels returns the texture format used for images with the
// given channel count, and false for counts other than 1, 2 and 4.
func FormatForChannels(channels int) (gputypes.TextureFormat, bool) {
	switch channels {
	case 1:
		return gputypes.TextureFormatR8Unorm, true
	case 2:
		return gputypes.TextureFormatRG8Unorm, true
	case 4:
		return gputypes.TextureFormatRGBA8Unorm, true
	default:
		return gputypes.TextureFormatUndefined, false
	}
}

// BytesPerPixel returns the size of one pixel of the formats returned by
// FormatForChannels, or 0 for other formats.
func BytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRG8Unorm:
		return 2
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4
	default:
		return 0
	}
}
