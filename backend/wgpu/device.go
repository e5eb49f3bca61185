// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends" // register platform backends

	"github.com/gogpu/quads/render"
)

// Errors returned while opening a device.
var (
	// ErrNoAdapter is returned when the selected backend exposes no adapter.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter available")

	// ErrBackendUnavailable is returned when WithBackend names a backend
	// that is not compiled in.
	ErrBackendUnavailable = errors.New("wgpu: backend not available")

	// ErrNoHAL is returned by NewFromProvider when the provider does not
	// expose its HAL device and queue.
	ErrNoHAL = errors.New("wgpu: provider does not expose HAL device")

	// ErrClosed is returned by operations on a closed device.
	ErrClosed = errors.New("wgpu: device closed")
)

// textureBindingsPerStage is the sampled texture limit requested when the
// device is opened here: 32 batch slots plus 8 bound images.
const textureBindingsPerStage = render.TextureSlots

// Device implements render.Device on a gogpu/wgpu HAL device.
//
// A Device is created by Open (own instance and adapter), NewWithHAL (an
// existing HAL device) or NewFromProvider (a host's shared device). It is
// used from one goroutine at a time; SetLogger may be called from any.
type Device struct {
	cfg config

	instance hal.Instance // nil when the device is borrowed
	device   hal.Device
	queue    hal.Queue
	owned    bool
	info     gputypes.AdapterInfo

	log atomic.Pointer[slog.Logger]

	window *window

	white      *texture
	fallback   *sampler
	dummyConst *buffer
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout

	defaultShader *shader
	pipelines     *pipelineCache
	shaderSeq     uint64

	state    bindState
	inflight []submission
	frames   uint64
	closed   bool
}

// Compile-time check.
var _ render.Device = (*Device)(nil)

// Open selects a backend and adapter, opens a device and creates an
// offscreen window texture of the configured size.
func Open(opts ...Option) (*Device, error) {
	cfg := applyOptions(opts)

	var backend hal.Backend
	if cfg.backendSet {
		b, ok := hal.GetBackend(cfg.backend)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, cfg.backend)
		}
		backend = b
	} else {
		b, err := hal.SelectBestBackend()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		backend = b
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			selected = &adapters[i]
			break
		}
	}

	limits := gputypes.DefaultLimits()
	limits.MaxSampledTexturesPerShaderStage = max(limits.MaxSampledTexturesPerShaderStage, textureBindingsPerStage)
	open, err := selected.Adapter.Open(0, limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	d, err := newDevice(open.Device, open.Queue, cfg, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.owned = true
	d.info = selected.Info
	d.logger().Info("wgpu: device opened",
		"adapter", d.info.Name, "type", d.info.DeviceType.String(), "backend", d.info.Backend.String())
	return d, nil
}

// NewWithHAL wraps an existing HAL device and queue. The caller keeps
// ownership of both; Close does not destroy them.
func NewWithHAL(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil HAL device or queue")
	}
	return newDevice(device, queue, applyOptions(opts), gputypes.TextureFormatBGRA8Unorm)
}

// NewFromProvider draws with the device and queue of a host application.
// Until SetSurfaceView is called the window is an offscreen texture in the
// provider's surface format.
func NewFromProvider(p render.DeviceHandle, opts ...Option) (*Device, error) {
	if p == nil {
		return nil, ErrNoHAL
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}

	format := p.SurfaceFormat()
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	d, err := newDevice(device, queue, applyOptions(opts), format)
	if err != nil {
		return nil, err
	}
	info := p.AdapterInfo()
	d.info.Name = info.Name
	d.logger().Info("wgpu: using host device", "adapter", info.Name, "format", format.String())
	return d, nil
}

func newDevice(device hal.Device, queue hal.Queue, cfg config, format gputypes.TextureFormat) (*Device, error) {
	d := &Device{cfg: cfg, device: device, queue: queue}
	d.log.Store(slog.New(nopHandler{}))
	d.window = &window{format: format, width: cfg.width, height: cfg.height, clear: cfg.clear}

	if err := d.init(); err != nil {
		d.release()
		return nil, err
	}
	return d, nil
}

// init creates the shared layouts, fallbacks and the default shader.
func (d *Device) init() error {
	var err error

	d.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "quad_bind_layout",
		Entries: bindLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	d.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "quad_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	white, err := d.newTexture(&render.TextureDescriptor{
		Label:  "quad_white",
		Width:  1,
		Height: 1,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Data:   []byte{0xFF, 0xFF, 0xFF, 0xFF},
	})
	if err != nil {
		return err
	}
	d.white = white

	d.fallback, err = d.newSampler(&render.SamplerDescriptor{
		Label:     "quad_fallback_sampler",
		MinFilter: gputypes.FilterModeNearest,
		MagFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return err
	}

	d.dummyConst, err = d.newBuffer(&render.BufferDescriptor{
		Label: "quad_default_constants",
		Usage: render.BufferUsageConstant,
		Size:  minConstantSize,
	})
	if err != nil {
		return err
	}

	if err := d.window.createTexture(d); err != nil {
		return err
	}

	d.pipelines = newPipelineCache(d, d.cfg.pipelineCache)
	d.defaultShader, err = d.compile(&render.ShaderDescriptor{Label: "quad_default"})
	if err != nil {
		return err
	}
	return nil
}

// Info returns the adapter description, empty for borrowed devices.
func (d *Device) Info() gputypes.AdapterInfo { return d.info }

// Frames returns how many frames have been presented.
func (d *Device) Frames() uint64 { return d.frames }

// SetLogger sets the logger used by the device. Nil restores silence.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	d.log.Store(l)
}

func (d *Device) logger() *slog.Logger { return d.log.Load() }

// Window returns the presentation surface.
func (d *Device) Window() render.Window { return d.window }

// Close waits for the GPU, then releases every resource the device
// created. HAL devices that were passed in are left alive. Close is
// idempotent.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if err := d.device.WaitIdle(); err != nil {
		d.logger().Warn("wgpu: wait idle on close", "err", err)
	}
	d.retire(true)
	d.release()
	d.logger().Info("wgpu: device closed", "frames", d.frames)
}

// release destroys device objects in reverse creation order.
func (d *Device) release() {
	if d.pipelines != nil {
		d.pipelines.purge()
	}
	if d.defaultShader != nil {
		d.device.DestroyShaderModule(d.defaultShader.module)
		d.defaultShader = nil
	}
	d.window.destroyTexture(d)
	if d.dummyConst != nil {
		d.device.DestroyBuffer(d.dummyConst.raw)
		d.dummyConst = nil
	}
	if d.fallback != nil {
		d.device.DestroySampler(d.fallback.raw)
		d.fallback = nil
	}
	if d.white != nil {
		d.destroyTexture(d.white)
		d.white = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
	if d.owned {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
}

// bindLayoutEntries describes binding 0 (constants), the samplers and the
// texture slots, all visible to the fragment stage.
func bindLayoutEntries() []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, bindingCount)
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding:    bindingConstants,
		Visibility: gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	})
	for i := 0; i < render.SamplerCount; i++ {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(bindingSamplers + i), //nolint:gosec // bounded by SamplerCount
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		})
	}
	for i := 0; i < render.TextureSlots; i++ {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(bindingTextures + i), //nolint:gosec // bounded by TextureSlots
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	return entries
}

// nopHandler discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
