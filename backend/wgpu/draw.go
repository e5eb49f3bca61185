// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quads/render"
)

// ErrIncompleteState is returned by DrawIndexed when a required binding is
// missing.
var ErrIncompleteState = errors.New("wgpu: incomplete draw state")

// bindState is the binding state the next DrawIndexed uses.
type bindState struct {
	target   *texture // nil draws into the window
	width    int
	height   int
	vertices *buffer
	stride   int
	indices  *buffer
	shader   *shader // nil selects the default shader
	consts   *buffer
	samplers [render.SamplerCount]*sampler
	textures [render.TextureSlots]*texture
}

// submission is a command buffer the GPU may still be executing, with the
// objects that must outlive it.
type submission struct {
	index   uint64
	cmd     hal.CommandBuffer
	encoder hal.CommandEncoder
	group   hal.BindGroup
}

// SetRenderTarget selects the texture drawn into. Nil selects the window.
func (d *Device) SetRenderTarget(rt render.Texture) {
	t, _ := rt.(*texture)
	d.state.target = t
}

// SetViewport sets the viewport to (0, 0, width, height).
func (d *Device) SetViewport(width, height int) {
	d.state.width, d.state.height = width, height
}

// SetVertexBuffer binds the vertex buffer.
func (d *Device) SetVertexBuffer(rb render.Buffer, stride int) {
	b, _ := rb.(*buffer)
	d.state.vertices, d.state.stride = b, stride
}

// SetIndexBuffer binds a uint32 index buffer.
func (d *Device) SetIndexBuffer(rb render.Buffer) {
	b, _ := rb.(*buffer)
	d.state.indices = b
}

// SetFragmentShader binds s. Nil selects the default shader.
func (d *Device) SetFragmentShader(rs render.Shader) {
	s, _ := rs.(*shader)
	d.state.shader = s
}

// SetConstantBuffer binds the fragment constant buffer.
func (d *Device) SetConstantBuffer(rb render.Buffer) {
	b, _ := rb.(*buffer)
	d.state.consts = b
}

// SetSamplers binds samplers starting at slot 0.
func (d *Device) SetSamplers(ss []render.Sampler) {
	for i := range d.state.samplers {
		d.state.samplers[i] = nil
		if i < len(ss) {
			d.state.samplers[i], _ = ss[i].(*sampler)
		}
	}
}

// SetTextures binds textures starting at slot first. Slots past the end of
// the table are ignored.
func (d *Device) SetTextures(first int, ts []render.Texture) {
	for i, rt := range ts {
		slot := first + i
		if slot < 0 || slot >= len(d.state.textures) {
			continue
		}
		d.state.textures[slot], _ = rt.(*texture)
	}
}

// targetView returns the view and format drawn into by the current state.
func (d *Device) targetView(t *texture) (hal.TextureView, gputypes.TextureFormat, error) {
	if t == nil {
		return d.window.view(), d.window.format, nil
	}
	if !t.renderTarget || t.view == nil {
		return nil, 0, fmt.Errorf("%w: texture is not a live render target", ErrIncompleteState)
	}
	return t.view, t.format, nil
}

// DrawIndexed records one render pass drawing indexCount indices with the
// current state and submits it.
func (d *Device) DrawIndexed(indexCount int) error {
	if d.closed {
		return ErrClosed
	}
	if indexCount <= 0 {
		return nil
	}
	st := &d.state
	if st.vertices == nil || st.indices == nil {
		return fmt.Errorf("%w: vertex and index buffers are required", ErrIncompleteState)
	}
	if uint64(indexCount)*4 > st.indices.size {
		return fmt.Errorf("%w: %d indices exceed the index buffer", ErrIncompleteState, indexCount)
	}
	view, format, err := d.targetView(st.target)
	if err != nil {
		return err
	}

	sh := st.shader
	if sh == nil || sh.module == nil {
		sh = d.defaultShader
	}
	consts := st.consts
	if consts == nil {
		consts = d.dummyConst
	}
	if consts.size < uint64(sh.constantSize) {
		return fmt.Errorf("%w: constant buffer has %d bytes, shader reads %d",
			ErrIncompleteState, consts.size, sh.constantSize)
	}

	d.retire(false)

	pipeline, err := d.pipelines.get(sh, format)
	if err != nil {
		return err
	}
	group, used, err := d.bindGroup(consts, uint64(sh.constantSize))
	if err != nil {
		return err
	}

	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "quad_draw"})
	if err != nil {
		d.device.DestroyBindGroup(group)
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("quad_draw"); err != nil {
		enc.Destroy()
		d.device.DestroyBindGroup(group)
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "quad_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.SetVertexBuffer(0, st.vertices.raw, 0)
	pass.SetIndexBuffer(st.indices.raw, gputypes.IndexFormatUint32, 0)
	pass.SetViewport(0, 0, float32(st.width), float32(st.height), 0, 1)
	pass.DrawIndexed(uint32(indexCount), 1, 0, 0, 0) //nolint:gosec // checked against the index buffer size
	pass.End()

	index, err := d.submit(enc, group)
	if err != nil {
		return err
	}
	st.vertices.lastUse = index
	st.indices.lastUse = index
	consts.lastUse = index
	if st.target != nil {
		st.target.lastUse = index
	}
	for _, t := range used {
		t.lastUse = index
	}
	return nil
}

// bindGroup builds the per-draw bind group. Empty sampler and texture
// slots get the fallback sampler and the white texture. A texture that is
// also the current target is replaced by the white texture.
func (d *Device) bindGroup(consts *buffer, constSize uint64) (hal.BindGroup, []*texture, error) {
	st := &d.state
	entries := make([]gputypes.BindGroupEntry, 0, bindingCount)
	entries = append(entries, gputypes.BindGroupEntry{
		Binding: bindingConstants,
		Resource: gputypes.BufferBinding{
			Buffer: consts.raw.NativeHandle(),
			Size:   constSize,
		},
	})
	for i, s := range st.samplers {
		if s == nil || s.raw == nil {
			s = d.fallback
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(bindingSamplers + i), //nolint:gosec // bounded by SamplerCount
			Resource: gputypes.SamplerBinding{Sampler: s.raw.NativeHandle()},
		})
	}
	used := make([]*texture, 0, len(st.textures))
	for i, t := range st.textures {
		switch {
		case t == nil || t.view == nil:
			t = d.white
		case t == st.target:
			d.logger().Warn("wgpu: render target bound as texture", "slot", i)
			t = d.white
		default:
			used = append(used, t)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(bindingTextures + i), //nolint:gosec // bounded by TextureSlots
			Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()},
		})
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "quad_bind_group",
		Layout:  d.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create bind group: %w", err)
	}
	return group, used, nil
}

// ClearRenderTarget fills t, or the window when t is nil, with c.
func (d *Device) ClearRenderTarget(rt render.Texture, c gputypes.Color) error {
	if d.closed {
		return ErrClosed
	}
	t, _ := rt.(*texture)
	if rt != nil && t == nil {
		return ErrForeignHandle
	}
	view, _, err := d.targetView(t)
	if err != nil {
		return err
	}
	d.retire(false)

	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "quad_clear"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("quad_clear"); err != nil {
		enc.Destroy()
		return fmt.Errorf("begin encoding: %w", err)
	}
	pass := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "quad_clear_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: c,
		}},
	})
	pass.End()

	index, err := d.submit(enc, nil)
	if err != nil {
		return err
	}
	if t != nil {
		t.lastUse = index
	}
	return nil
}

// Present finishes the frame. The offscreen window has nothing to flip, and
// a host surface is presented by the host, so Present only counts frames
// and releases finished submissions.
func (d *Device) Present() error {
	if d.closed {
		return ErrClosed
	}
	d.frames++
	d.retire(false)
	d.logger().Debug("wgpu: frame presented", "frame", d.frames, "inflight", len(d.inflight))
	return nil
}

// submit ends encoding, submits the command buffer and tracks it until
// the GPU completes it.
func (d *Device) submit(enc hal.CommandEncoder, group hal.BindGroup) (uint64, error) {
	cmd, err := enc.EndEncoding()
	if err != nil {
		enc.DiscardEncoding()
		enc.Destroy()
		if group != nil {
			d.device.DestroyBindGroup(group)
		}
		return 0, fmt.Errorf("end encoding: %w", err)
	}
	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		enc.Destroy()
		if group != nil {
			d.device.DestroyBindGroup(group)
		}
		return 0, fmt.Errorf("submit: %w", err)
	}
	d.inflight = append(d.inflight, submission{index: index, cmd: cmd, encoder: enc, group: group})
	return index, nil
}

// retire releases submissions the GPU has completed, or all of them when
// all is set.
func (d *Device) retire(all bool) {
	if len(d.inflight) == 0 {
		return
	}
	done := d.queue.PollCompleted()
	keep := d.inflight[:0]
	for _, s := range d.inflight {
		if !all && s.index > done {
			keep = append(keep, s)
			continue
		}
		d.device.FreeCommandBuffer(s.cmd)
		s.encoder.Destroy()
		if s.group != nil {
			d.device.DestroyBindGroup(s.group)
		}
	}
	clear(d.inflight[len(keep):])
	d.inflight = keep
}

// lastSubmit returns the index of the newest tracked submission.
func (d *Device) lastSubmit() uint64 {
	if len(d.inflight) == 0 {
		return 0
	}
	return d.inflight[len(d.inflight)-1].index
}

// waitFor blocks until submission index has completed.
func (d *Device) waitFor(index uint64) error {
	if index == 0 || d.queue.PollCompleted() >= index {
		return nil
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	d.retire(true)
	return nil
}
