// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"

	"github.com/gogpu/quads/render"
)

// Embedded quad shader source.
//
//go:embed shaders/quad.wgsl
var quadShaderSource string

// ErrShaderCompile is returned when an extension does not compose into a
// valid shader module.
var ErrShaderCompile = errors.New("wgpu: shader compilation failed")

// Binding numbers, mirrored in shaders/quad.wgsl.
const (
	bindingConstants = 0
	bindingSamplers  = 1
	bindingTextures  = bindingSamplers + render.SamplerCount
	bindingCount     = bindingTextures + render.TextureSlots
)

// minConstantSize is the size of the constant buffer bound when the frame
// uses the default shader.
const minConstantSize = 32

// defaultExtension leaves the shaded color unchanged.
const defaultExtension = `fn pixel_shader_extension(color: vec4<f32>, input: QuadInput) -> vec4<f32> {
    return color;
}`

// composeShader inserts the extension into the quad shader. constantSize is
// the bound constant buffer size in bytes.
func composeShader(extension string, constantSize int) string {
	if strings.TrimSpace(extension) == "" {
		extension = defaultExtension
	}
	vec4s := max(constantSize, minConstantSize) / 16

	var out strings.Builder
	out.Grow(len(quadShaderSource) + 16<<10)
	for _, line := range strings.SplitAfter(quadShaderSource, "\n") {
		switch strings.TrimSpace(line) {
		case "//! constants":
			fmt.Fprintf(&out, "@group(0) @binding(%d) var<uniform> constants: array<vec4<f32>, %d>;\n",
				bindingConstants, vec4s)
		case "//! bindings":
			writeBindings(&out)
		case "//! sample_batch":
			writeSampleFunc(&out, "sample_batch", "t", render.BatchTextureSlots)
		case "//! sample_bound":
			writeSampleFunc(&out, "sample_bound", "bound", render.BoundImageSlots)
		case "//! extension":
			out.WriteString(extension)
			out.WriteString("\n")
		default:
			if strings.HasPrefix(strings.TrimSpace(line), "//!") {
				continue
			}
			out.WriteString(line)
		}
	}
	return out.String()
}

func writeBindings(out *strings.Builder) {
	for i := 0; i < render.SamplerCount; i++ {
		fmt.Fprintf(out, "@group(0) @binding(%d) var s%d: sampler;\n", bindingSamplers+i, i)
	}
	for i := 0; i < render.BatchTextureSlots; i++ {
		fmt.Fprintf(out, "@group(0) @binding(%d) var t%d: texture_2d<f32>;\n", bindingTextures+i, i)
	}
	for i := 0; i < render.BoundImageSlots; i++ {
		fmt.Fprintf(out, "@group(0) @binding(%d) var bound%d: texture_2d<f32>;\n",
			bindingTextures+render.BoundImageBase+i, i)
	}
}

// writeSampleFunc emits a function selecting a texture and sampler by
// index. WGSL has no texture arrays without extensions, so selection is a
// nested switch. textureSampleLevel is used because quads differ in texture
// within one draw, which makes the control flow non-uniform.
func writeSampleFunc(out *strings.Builder, name, prefix string, n int) {
	fmt.Fprintf(out, "fn %s(slot: i32, smp: i32, uv: vec2<f32>) -> vec4<f32> {\n", name)
	out.WriteString("    var c = vec4<f32>(1.0, 1.0, 1.0, 1.0);\n")
	out.WriteString("    switch slot {\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(out, "        case %d: {\n", i)
		out.WriteString("            switch smp {\n")
		for s := 1; s < render.SamplerCount; s++ {
			fmt.Fprintf(out, "                case %d: { c = textureSampleLevel(%s%d, s%d, uv, 0.0); }\n", s, prefix, i, s)
		}
		fmt.Fprintf(out, "                default: { c = textureSampleLevel(%s%d, s0, uv, 0.0); }\n", prefix, i)
		out.WriteString("            }\n")
		out.WriteString("        }\n")
	}
	out.WriteString("        default: {}\n")
	out.WriteString("    }\n")
	out.WriteString("    return c;\n")
	out.WriteString("}\n")
}

// validateShader runs the WGSL front end and validator over src.
func validateShader(src string) error {
	ast, err := naga.Parse(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShaderCompile, err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShaderCompile, err)
	}
	problems, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShaderCompile, err)
	}
	if len(problems) > 0 {
		msgs := make([]string, 0, len(problems))
		for _, p := range problems {
			if p.Function != "" {
				msgs = append(msgs, p.Function+": "+p.Message)
			} else {
				msgs = append(msgs, p.Message)
			}
		}
		return fmt.Errorf("%w: %s", ErrShaderCompile, strings.Join(msgs, "; "))
	}
	return nil
}
