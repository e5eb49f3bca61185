// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/quads/internal/vertex"
	"github.com/gogpu/quads/render"
)

// shader is a composed quad shader module.
type shader struct {
	id           uint64
	label        string
	module       hal.ShaderModule
	constantSize int
}

// quadBlend is straight alpha blending for color with additive alpha.
var quadBlend = gputypes.BlendState{
	Color: gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactorSrcAlpha,
		DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
		Operation: gputypes.BlendOperationAdd,
	},
	Alpha: gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactorOne,
		DstFactor: gputypes.BlendFactorOne,
		Operation: gputypes.BlendOperationAdd,
	},
}

// CreateFragmentShader composes the extension into the quad shader,
// validates it and creates the shader module. Pipelines are created on
// first use per target format.
func (d *Device) CreateFragmentShader(desc *render.ShaderDescriptor) (render.Shader, error) {
	if d.closed {
		return nil, ErrClosed
	}
	s, err := d.compile(desc)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Device) compile(desc *render.ShaderDescriptor) (*shader, error) {
	if desc.ConstantSize < 0 || desc.ConstantSize%16 != 0 {
		return nil, fmt.Errorf("%w: constant size %d is not a multiple of 16", ErrShaderCompile, desc.ConstantSize)
	}
	src := composeShader(desc.Extension, desc.ConstantSize)
	if err := validateShader(src); err != nil {
		d.logger().Warn("wgpu: shader rejected", "label", desc.Label, "err", err)
		return nil, err
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{WGSL: src},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	d.shaderSeq++
	d.logger().Debug("wgpu: shader compiled", "label", desc.Label, "constants", desc.ConstantSize)
	return &shader{
		id:           d.shaderSeq,
		label:        desc.Label,
		module:       module,
		constantSize: max(desc.ConstantSize, minConstantSize),
	}, nil
}

// DestroyShader drops the pipelines built from s and releases its module.
// The default shader cannot be destroyed.
func (d *Device) DestroyShader(rs render.Shader) {
	s, ok := rs.(*shader)
	if !ok || s == nil || s.module == nil || s == d.defaultShader || d.closed {
		return
	}
	if d.state.shader == s {
		d.state.shader = nil
	}
	d.pipelines.dropShader(s.id)
	d.device.DestroyShaderModule(s.module)
	s.module = nil
}

type pipelineKey struct {
	shader uint64
	format gputypes.TextureFormat
}

// pipelineCache keeps the most recently used render pipelines. Evicted
// pipelines are destroyed once no submitted draw uses them.
type pipelineCache struct {
	d     *Device
	cache *lru.Cache[pipelineKey, hal.RenderPipeline]
}

func newPipelineCache(d *Device, size int) *pipelineCache {
	c := &pipelineCache{d: d}
	cache, err := lru.NewWithEvict(max(size, 1), c.evicted)
	if err != nil {
		// only reachable with a non-positive size
		panic(err)
	}
	c.cache = cache
	return c
}

func (c *pipelineCache) evicted(k pipelineKey, p hal.RenderPipeline) {
	if err := c.d.waitFor(c.d.lastSubmit()); err != nil {
		c.d.logger().Warn("wgpu: wait before pipeline release", "err", err)
	}
	c.d.device.DestroyRenderPipeline(p)
	c.d.logger().Debug("wgpu: pipeline released", "shader", k.shader, "format", k.format.String())
}

// get returns the pipeline drawing s into targets of the given format.
func (c *pipelineCache) get(s *shader, format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	key := pipelineKey{shader: s.id, format: format}
	if p, ok := c.cache.Get(key); ok {
		return p, nil
	}
	p, err := c.d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  s.label + "_pipeline",
		Layout: c.d.pipeLayout,
		Vertex: hal.VertexState{
			Module:     s.module,
			EntryPoint: "vs_main",
			Buffers:    vertex.Layout(),
		},
		Fragment: &hal.FragmentState{
			Module:     s.module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    format,
				Blend:     &quadBlend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	c.cache.Add(key, p)
	c.d.logger().Debug("wgpu: pipeline created", "shader", s.label, "format", format.String())
	return p, nil
}

func (c *pipelineCache) dropShader(id uint64) {
	for _, k := range c.cache.Keys() {
		if k.shader == id {
			c.cache.Remove(k)
		}
	}
}

func (c *pipelineCache) len() int { return c.cache.Len() }

func (c *pipelineCache) purge() { c.cache.Purge() }
