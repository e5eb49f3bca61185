// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"image"
	"runtime"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/quads"
	"github.com/gogpu/quads/backend"
	"github.com/gogpu/quads/internal/vertex"
	"github.com/gogpu/quads/render"
)

// countingDevice wraps a noop HAL device and counts the objects the quad
// device creates and destroys.
type countingDevice struct {
	hal.Device

	pipelines           int
	pipelinesDestroyed  int
	bindGroups          int
	bindGroupsDestroyed int
	modules             int
	lastEntries         int
	failPipeline        bool
}

func (c *countingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if c.failPipeline {
		return nil, errors.New("pipeline creation failed")
	}
	c.pipelines++
	return c.Device.CreateRenderPipeline(desc)
}

func (c *countingDevice) DestroyRenderPipeline(p hal.RenderPipeline) {
	c.pipelinesDestroyed++
	c.Device.DestroyRenderPipeline(p)
}

func (c *countingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	c.bindGroups++
	c.lastEntries = len(desc.Entries)
	return c.Device.CreateBindGroup(desc)
}

func (c *countingDevice) DestroyBindGroup(g hal.BindGroup) {
	c.bindGroupsDestroyed++
	c.Device.DestroyBindGroup(g)
}

func (c *countingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	c.modules++
	return c.Device.CreateShaderModule(desc)
}

type countingQueue struct {
	hal.Queue
	submits int
}

func (q *countingQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	q.submits++
	return q.Queue.Submit(cmds)
}

func newTestDevice(t *testing.T, opts ...Option) (*Device, *countingDevice, *countingQueue) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		t.Fatal("noop backend exposes no adapter")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	cd := &countingDevice{Device: open.Device}
	cq := &countingQueue{Queue: open.Queue}
	d, err := NewWithHAL(cd, cq, opts...)
	if err != nil {
		t.Fatalf("NewWithHAL() error = %v", err)
	}
	t.Cleanup(d.Close)
	return d, cd, cq
}

// bindQuad binds buffers holding one quad, ready for DrawIndexed(6).
func bindQuad(t *testing.T, d *Device) (render.Buffer, render.Buffer) {
	t.Helper()
	vb, err := d.CreateBuffer(&render.BufferDescriptor{
		Label: "vb", Usage: render.BufferUsageVertex, Size: vertex.PerQuad * vertex.Size,
	})
	if err != nil {
		t.Fatalf("CreateBuffer(vertex) error = %v", err)
	}
	ib, err := d.CreateBuffer(&render.BufferDescriptor{
		Label: "ib", Usage: render.BufferUsageIndex, Data: vertex.QuadIndexBytes(1),
	})
	if err != nil {
		t.Fatalf("CreateBuffer(index) error = %v", err)
	}
	w, h := d.Window().PixelSize()
	d.SetViewport(w, h)
	d.SetVertexBuffer(vb, vertex.Size)
	d.SetIndexBuffer(ib)
	return vb, ib
}

func TestNewWithHALNil(t *testing.T) {
	if _, err := NewWithHAL(nil, nil); err == nil {
		t.Error("NewWithHAL(nil, nil) succeeded")
	}
}

func TestNewFromProviderWithoutHAL(t *testing.T) {
	if _, err := NewFromProvider(nil); !errors.Is(err, ErrNoHAL) {
		t.Errorf("NewFromProvider(nil) error = %v, want ErrNoHAL", err)
	}
}

func TestOpenNoopBackend(t *testing.T) {
	d, err := Open(WithBackend(gputypes.BackendEmpty), WithSize(32, 16))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if w, h := d.Window().PixelSize(); w != 32 || h != 16 {
		t.Errorf("window = %dx%d, want 32x16", w, h)
	}
	if d.Info().Name == "" {
		t.Error("Info().Name is empty for an opened device")
	}
}

func TestRegisteredWithBackend(t *testing.T) {
	if !backend.IsRegistered(backend.BackendWGPU) {
		t.Fatalf("wgpu not registered, have %v", backend.Available())
	}
}

func TestDrawIndexedSubmits(t *testing.T) {
	d, cd, cq := newTestDevice(t)
	bindQuad(t, d)

	for i := 0; i < 2; i++ {
		if err := d.DrawIndexed(6); err != nil {
			t.Fatalf("DrawIndexed() #%d error = %v", i, err)
		}
	}
	if cq.submits != 2 {
		t.Errorf("submits = %d, want 2", cq.submits)
	}
	if cd.pipelines != 1 {
		t.Errorf("pipelines = %d, want 1 (cached)", cd.pipelines)
	}
	if cd.lastEntries != bindingCount {
		t.Errorf("bind group entries = %d, want %d", cd.lastEntries, bindingCount)
	}
}

func TestDrawIndexedZero(t *testing.T) {
	d, _, cq := newTestDevice(t)
	if err := d.DrawIndexed(0); err != nil {
		t.Fatalf("DrawIndexed(0) error = %v", err)
	}
	if cq.submits != 0 {
		t.Errorf("submits = %d, want 0", cq.submits)
	}
}

func TestDrawIndexedIncompleteState(t *testing.T) {
	d, _, _ := newTestDevice(t)
	if err := d.DrawIndexed(6); !errors.Is(err, ErrIncompleteState) {
		t.Errorf("DrawIndexed() without buffers error = %v, want ErrIncompleteState", err)
	}

	bindQuad(t, d)
	if err := d.DrawIndexed(12); !errors.Is(err, ErrIncompleteState) {
		t.Errorf("DrawIndexed(12) on a one quad index buffer error = %v, want ErrIncompleteState", err)
	}
}

func TestDrawIndexedPipelineFailure(t *testing.T) {
	d, cd, cq := newTestDevice(t)
	bindQuad(t, d)
	cd.failPipeline = true

	if err := d.DrawIndexed(6); err == nil {
		t.Fatal("DrawIndexed() succeeded with a failing pipeline")
	}
	if cq.submits != 0 {
		t.Errorf("submits = %d, want 0", cq.submits)
	}
}

func TestSubmissionsRetire(t *testing.T) {
	d, cd, _ := newTestDevice(t)
	bindQuad(t, d)

	for i := 0; i < 3; i++ {
		if err := d.DrawIndexed(6); err != nil {
			t.Fatalf("DrawIndexed() error = %v", err)
		}
	}
	if err := d.Present(); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	// The noop queue completes every submission immediately.
	if len(d.inflight) != 0 {
		t.Errorf("inflight = %d after Present, want 0", len(d.inflight))
	}
	if cd.bindGroupsDestroyed != cd.bindGroups {
		t.Errorf("bind groups destroyed = %d, created = %d", cd.bindGroupsDestroyed, cd.bindGroups)
	}
	if d.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", d.Frames())
	}
}

func TestPipelineCacheEviction(t *testing.T) {
	d, cd, _ := newTestDevice(t, WithPipelineCacheSize(1))
	bindQuad(t, d)

	target, err := d.CreateTexture(&render.TextureDescriptor{
		Label: "target", Width: 8, Height: 8,
		Format: gputypes.TextureFormatRGBA8Unorm, RenderTarget: true,
	})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}

	// Window (BGRA8) then target (RGBA8): two formats, one cache slot.
	if err := d.DrawIndexed(6); err != nil {
		t.Fatalf("DrawIndexed(window) error = %v", err)
	}
	d.SetRenderTarget(target)
	if err := d.DrawIndexed(6); err != nil {
		t.Fatalf("DrawIndexed(target) error = %v", err)
	}
	if cd.pipelines != 2 || cd.pipelinesDestroyed != 1 {
		t.Errorf("pipelines created/destroyed = %d/%d, want 2/1", cd.pipelines, cd.pipelinesDestroyed)
	}
	if d.pipelines.len() != 1 {
		t.Errorf("cached pipelines = %d, want 1", d.pipelines.len())
	}
}

func TestDrawIntoNonTarget(t *testing.T) {
	d, _, _ := newTestDevice(t)
	bindQuad(t, d)
	tex, err := d.CreateTexture(&render.TextureDescriptor{
		Label: "plain", Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	d.SetRenderTarget(tex)
	if err := d.DrawIndexed(6); !errors.Is(err, ErrIncompleteState) {
		t.Errorf("DrawIndexed() into a sampled texture error = %v, want ErrIncompleteState", err)
	}
}

func TestExtensionShader(t *testing.T) {
	d, cd, _ := newTestDevice(t)
	bindQuad(t, d)
	modules := cd.modules

	ext := `fn pixel_shader_extension(color: vec4<f32>, input: QuadInput) -> vec4<f32> {
    return color * constants[2];
}`
	sh, err := d.CreateFragmentShader(&render.ShaderDescriptor{Label: "tint", Extension: ext, ConstantSize: 48})
	if err != nil {
		t.Fatalf("CreateFragmentShader() error = %v", err)
	}
	if cd.modules != modules+1 {
		t.Errorf("shader modules = %d, want %d", cd.modules, modules+1)
	}

	small, err := d.CreateBuffer(&render.BufferDescriptor{Usage: render.BufferUsageConstant, Size: 32})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	d.SetFragmentShader(sh)
	d.SetConstantBuffer(small)
	if err := d.DrawIndexed(6); !errors.Is(err, ErrIncompleteState) {
		t.Errorf("DrawIndexed() with a short constant buffer error = %v, want ErrIncompleteState", err)
	}

	consts, err := d.CreateBuffer(&render.BufferDescriptor{Usage: render.BufferUsageConstant, Size: 48})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	d.SetConstantBuffer(consts)
	if err := d.DrawIndexed(6); err != nil {
		t.Fatalf("DrawIndexed() error = %v", err)
	}
	before := cd.pipelinesDestroyed
	d.DestroyShader(sh)
	if cd.pipelinesDestroyed != before+1 {
		t.Errorf("DestroyShader() released %d pipelines, want 1", cd.pipelinesDestroyed-before)
	}
	if d.state.shader != nil {
		t.Error("destroyed shader still bound")
	}
}

func TestExtensionShaderRejected(t *testing.T) {
	d, _, _ := newTestDevice(t)
	_, err := d.CreateFragmentShader(&render.ShaderDescriptor{Extension: "fn nope() {", ConstantSize: 32})
	if !errors.Is(err, ErrShaderCompile) {
		t.Errorf("CreateFragmentShader() error = %v, want ErrShaderCompile", err)
	}
	_, err = d.CreateFragmentShader(&render.ShaderDescriptor{ConstantSize: 20})
	if !errors.Is(err, ErrShaderCompile) {
		t.Errorf("CreateFragmentShader(size 20) error = %v, want ErrShaderCompile", err)
	}
}

func TestWriteBuffer(t *testing.T) {
	d, _, _ := newTestDevice(t)
	b, err := d.CreateBuffer(&render.BufferDescriptor{Usage: render.BufferUsageVertex, Size: 6})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	if got := b.(*buffer).size; got != 8 {
		t.Errorf("buffer size = %d, want 8 (4 byte aligned)", got)
	}
	if err := d.WriteBuffer(b, []byte{1, 2, 3}); err != nil {
		t.Errorf("WriteBuffer() error = %v", err)
	}
	if err := d.WriteBuffer(b, make([]byte, 9)); err == nil {
		t.Error("WriteBuffer() past the end succeeded")
	}
	if err := d.WriteBuffer("not a buffer", nil); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("WriteBuffer(foreign) error = %v, want ErrForeignHandle", err)
	}
}

func TestWriteTextureRegion(t *testing.T) {
	d, _, _ := newTestDevice(t)
	tex, err := d.CreateTexture(&render.TextureDescriptor{
		Width: 4, Height: 4, Format: gputypes.TextureFormatR8Unorm,
	})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if err := d.WriteTexture(tex, image.Rect(1, 1, 3, 3), make([]byte, 4)); err != nil {
		t.Errorf("WriteTexture() error = %v", err)
	}
	if err := d.WriteTexture(tex, image.Rect(2, 2, 6, 6), make([]byte, 16)); err == nil {
		t.Error("WriteTexture() outside the texture succeeded")
	}
	if err := d.WriteTexture(tex, image.Rect(0, 0, 2, 2), make([]byte, 3)); err == nil {
		t.Error("WriteTexture() with short data succeeded")
	}
}

func TestReadWindow(t *testing.T) {
	d, _, _ := newTestDevice(t, WithSize(16, 8))
	img, err := d.ReadWindow()
	if err != nil {
		t.Fatalf("ReadWindow() error = %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 16, 8) {
		t.Errorf("ReadWindow() bounds = %v, want 16x8", img.Bounds())
	}
}

func TestReadTexture(t *testing.T) {
	d, _, _ := newTestDevice(t)
	tex, err := d.CreateTexture(&render.TextureDescriptor{
		Width: 3, Height: 2, Format: gputypes.TextureFormatR8Unorm, RenderTarget: true,
	})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	img, err := d.ReadTexture(tex)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("ReadTexture() bounds = %v, want 3x2", img.Bounds())
	}
	if a := img.RGBAAt(2, 1).A; a != 0xFF {
		t.Errorf("single channel readback alpha = %d, want 255", a)
	}

	plain, err := d.CreateTexture(&render.TextureDescriptor{Width: 1, Height: 1, Format: gputypes.TextureFormatR8Unorm})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if _, err := d.ReadTexture(plain); !errors.Is(err, ErrNoReadback) {
		t.Errorf("ReadTexture(non target) error = %v, want ErrNoReadback", err)
	}
}

func TestConvertRow(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		src    []byte
		want   []byte
	}{
		{gputypes.TextureFormatBGRA8Unorm, []byte{1, 2, 3, 4}, []byte{3, 2, 1, 4}},
		{gputypes.TextureFormatRGBA8Unorm, []byte{1, 2, 3, 4}, []byte{1, 2, 3, 4}},
		{gputypes.TextureFormatRG8Unorm, []byte{7, 9}, []byte{7, 9, 0, 255}},
		{gputypes.TextureFormatR8Unorm, []byte{5}, []byte{5, 0, 0, 255}},
	}
	for _, tt := range tests {
		dst := make([]byte, 4)
		convertRow(dst, tt.src, 1, tt.format)
		if string(dst) != string(tt.want) {
			t.Errorf("convertRow(%s) = %v, want %v", tt.format, dst, tt.want)
		}
	}
}

func TestResize(t *testing.T) {
	d, _, _ := newTestDevice(t, WithSize(10, 10))
	if err := d.Resize(20, 5); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if w, h := d.Window().PixelSize(); w != 20 || h != 5 {
		t.Errorf("window = %dx%d, want 20x5", w, h)
	}
	if err := d.Resize(0, 5); err == nil {
		t.Error("Resize(0, 5) succeeded")
	}
}

func TestSurfaceView(t *testing.T) {
	d, _, _ := newTestDevice(t, WithSize(10, 10))
	view, err := d.device.CreateTextureView(d.window.tex.raw, &hal.TextureViewDescriptor{})
	if err != nil {
		t.Fatalf("CreateTextureView() error = %v", err)
	}
	d.SetSurfaceView(view, 64, 48)
	if w, h := d.Window().PixelSize(); w != 64 || h != 48 {
		t.Errorf("window = %dx%d, want 64x48", w, h)
	}
	if _, err := d.ReadWindow(); !errors.Is(err, ErrNoReadback) {
		t.Errorf("ReadWindow() on a host surface error = %v, want ErrNoReadback", err)
	}
	d.SetSurfaceView(nil, 0, 0)
	if w, h := d.Window().PixelSize(); w != 10 || h != 10 {
		t.Errorf("window after release = %dx%d, want 10x10", w, h)
	}
}

func TestClosedDevice(t *testing.T) {
	d, _, _ := newTestDevice(t)
	d.Close()
	d.Close()
	if _, err := d.CreateBuffer(&render.BufferDescriptor{Size: 4}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateBuffer() after Close error = %v, want ErrClosed", err)
	}
	if err := d.DrawIndexed(6); !errors.Is(err, ErrClosed) {
		t.Errorf("DrawIndexed() after Close error = %v, want ErrClosed", err)
	}
}

func TestRendererOnNoop(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d, cd, cq := newTestDevice(t, WithSize(64, 64))
	r, err := quads.NewRenderer(d)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	defer r.Close()

	px := quads.Ortho(64, 64)
	f := quads.NewFrame(64)
	for i := 0; i < 40; i++ {
		img, err := r.NewImage(2, 2, 4, make([]byte, 16), false)
		if err != nil {
			t.Fatalf("NewImage() error = %v", err)
		}
		f.Submit(quads.ImageQuad(px, quads.Rect{X1: 0, Y1: 0, X2: 8, Y2: 8}, img, quads.FullUV, quads.White, 0))
	}
	before := cq.submits
	if err := r.EndFrame(f); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
	// Two batched draws plus the post-present clear.
	if got := cq.submits - before; got != 3 {
		t.Errorf("submits = %d, want 3", got)
	}
	if r.Stats().DrawCalls != 2 {
		t.Errorf("DrawCalls = %d, want 2", r.Stats().DrawCalls)
	}
	if cd.pipelines != 1 {
		t.Errorf("pipelines = %d, want 1", cd.pipelines)
	}
}
