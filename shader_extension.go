package quads

import (
	"fmt"

	"github.com/gogpu/quads/render"
)

// ShaderExtension replaces the per-pixel stage of the quad shader for the
// frames that select it.
//
// The extension source defines a function that receives the shaded color
// and the interpolated quad inputs and returns the final color. It may read
// a constant buffer of up to ConstantSize bytes that the frame fills with
// Frame.SetShaderExtension.
type ShaderExtension struct {
	r      *Renderer
	shader render.Shader
	cbuf   render.Buffer
	size   int
}

// alignConstantSize returns the allocated constant buffer size for a
// declared size. The result is a multiple of 16 with at least 16 bytes of
// headroom.
func alignConstantSize(size int) int {
	size = max(size, 16)
	return (size + 16) &^ 15
}

// CompileShaderExtension compiles src into a fragment shader. cbufferSize is
// the number of constant bytes the extension reads, or 0.
func (r *Renderer) CompileShaderExtension(src string, cbufferSize int) (*ShaderExtension, error) {
	r.checkThread()
	if err := r.usable(); err != nil {
		return nil, err
	}
	if cbufferSize < 0 {
		return nil, fmt.Errorf("quads: negative constant buffer size %d", cbufferSize)
	}
	size := alignConstantSize(cbufferSize)

	sh, err := r.dev.CreateFragmentShader(&render.ShaderDescriptor{
		Label:        "quad_extension",
		Extension:    src,
		ConstantSize: size,
	})
	if err != nil {
		return nil, r.fail("compile shader extension", err)
	}
	cbuf, err := r.dev.CreateBuffer(&render.BufferDescriptor{
		Label: "quad_extension_constants",
		Usage: render.BufferUsageConstant,
		Size:  uint64(size), //nolint:gosec // size is positive
	})
	if err != nil {
		r.dev.DestroyShader(sh)
		return nil, r.fail("create constant buffer", err)
	}

	Logger().Debug("compiled shader extension", "constant_bytes", size)
	return &ShaderExtension{r: r, shader: sh, cbuf: cbuf, size: size}, nil
}

// ConstantSize returns the allocated constant buffer size in bytes.
func (e *ShaderExtension) ConstantSize() int { return e.size }

// upload writes data, truncated to the buffer size, into the constant
// buffer.
func (e *ShaderExtension) upload(data []byte) error {
	if len(data) > e.size {
		data = data[:e.size]
	}
	if len(data) == 0 {
		return nil
	}
	return e.r.dev.WriteBuffer(e.cbuf, data)
}

func (e *ShaderExtension) checkAlive() {
	if e.shader == nil {
		violate(CheckDestroyed, "shader extension used after Destroy")
	}
}

// Destroy releases the shader and its constant buffer. Safe to call
// multiple times.
func (e *ShaderExtension) Destroy() {
	if e.shader == nil {
		return
	}
	e.r.checkThread()
	e.r.dev.DestroyBuffer(e.cbuf)
	e.r.dev.DestroyShader(e.shader)
	e.shader, e.cbuf = nil, nil
}
