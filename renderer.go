package quads

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/quads/internal/slots"
	"github.com/gogpu/quads/internal/vertex"
	"github.com/gogpu/quads/internal/zsort"
	"github.com/gogpu/quads/render"
)

// BatchSlots is the number of distinct images one draw call can sample.
const BatchSlots = slots.Capacity

// Stats describes the most recent Render call.
type Stats struct {
	// DrawCalls is the number of indexed draws issued.
	DrawCalls int

	// Quads is the number of quads drawn.
	Quads int

	// Flushes counts draws forced by running out of batch texture slots.
	Flushes int

	// TextureBinds is the number of batch texture slots filled across all
	// draws.
	TextureBinds int

	// SlotFastHits counts quads that reused the previous quad's slot.
	SlotFastHits int

	// Capacity is the vertex buffer size in bytes.
	Capacity uint64
}

// Renderer turns frames of quads into batched indexed draws on a
// render.Device.
//
// A Renderer belongs to the OS thread that created it. Every method other
// than Stats and Capacity asserts that it runs on that thread; callers
// should runtime.LockOSThread before NewRenderer.
type Renderer struct {
	dev   render.Device
	opts  options
	owner uint64

	samplers [render.SamplerCount]render.Sampler
	buffers  bufferManager
	sorter   zsort.Sorter
	slots    slots.Table[*Image]

	// Reused binding arrays.
	batchTex [render.BatchTextureSlots]render.Texture
	boundTex [render.BoundImageSlots]render.Texture
	nilTex   [render.TextureSlots]render.Texture

	corners [vertex.PerQuad]vertex.Vertex
	stats   Stats

	err    error
	closed bool
}

// samplerFilters lists the min/mag filters of each sampler slot.
var samplerFilters = [render.SamplerCount][2]gputypes.FilterMode{
	samplerNearestNearest: {gputypes.FilterModeNearest, gputypes.FilterModeNearest},
	samplerLinearLinear:   {gputypes.FilterModeLinear, gputypes.FilterModeLinear},
	samplerLinearNearest:  {gputypes.FilterModeLinear, gputypes.FilterModeNearest},
	samplerNearestLinear:  {gputypes.FilterModeNearest, gputypes.FilterModeLinear},
}

// NewRenderer creates a renderer drawing through dev. The calling OS thread
// becomes the renderer's owner.
func NewRenderer(dev render.Device, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Renderer{
		dev:     dev,
		opts:    o,
		owner:   currentThreadID(),
		buffers: bufferManager{dev: dev},
	}

	for i, f := range samplerFilters {
		s, err := dev.CreateSampler(&render.SamplerDescriptor{
			Label:     fmt.Sprintf("quad_sampler_%d", i),
			MinFilter: f[0],
			MagFilter: f[1],
		})
		if err != nil {
			r.releaseSamplers()
			return nil, fmt.Errorf("%w: create sampler %d: %w", ErrDevice, i, err)
		}
		r.samplers[i] = s
	}

	reserve := o.reserve
	if hint := uint64(max(o.frameHint, 0)) * quadBytes; hint > reserve { //nolint:gosec // clamped at zero
		reserve = hint
	}
	if reserve > 0 {
		if err := r.buffers.ensure(reserve); err != nil {
			r.releaseSamplers()
			return nil, fmt.Errorf("%w: %w", ErrDevice, err)
		}
	}

	trackDevice(dev)
	Logger().Info("quad renderer created",
		"thread", r.owner, "capacity", r.buffers.capacity, "uv_nudge", o.uvNudge)
	return r, nil
}

// checkThread asserts that the caller runs on the owner thread. Platforms
// without a thread id report 0 and skip the check.
func (r *Renderer) checkThread() {
	if !r.opts.threadCheck || r.owner == 0 {
		return
	}
	if id := currentThreadID(); id != r.owner {
		violate(CheckThread, "called from thread %d, renderer owned by thread %d", id, r.owner)
	}
}

func (r *Renderer) usable() error {
	if r.closed {
		return ErrClosed
	}
	if r.err != nil {
		return fmt.Errorf("%w: %w", ErrRendererFailed, r.err)
	}
	return nil
}

// fail records a device failure. The renderer refuses further work.
func (r *Renderer) fail(op string, err error) error {
	wrapped := fmt.Errorf("%w: %s: %w", ErrDevice, op, err)
	if r.err == nil {
		r.err = wrapped
	}
	Logger().Error("device failure", "op", op, "err", err)
	return wrapped
}

// Reserve grows the vertex buffer so that at least bytes fit, without
// rendering. Capacity never shrinks and is always a power of two.
func (r *Renderer) Reserve(bytes uint64) error {
	r.checkThread()
	if err := r.usable(); err != nil {
		return err
	}
	if err := r.buffers.ensure(bytes); err != nil {
		return r.fail("reserve", err)
	}
	r.stats.Capacity = r.buffers.capacity
	return nil
}

// Capacity returns the vertex buffer size in bytes.
func (r *Renderer) Capacity() uint64 { return r.buffers.capacity }

// IndexCount returns the number of indices in the index buffer.
func (r *Renderer) IndexCount() int { return r.buffers.indexCount() }

// Stats returns statistics of the most recent Render.
func (r *Renderer) Stats() Stats { return r.stats }

// Render draws the quads of f into target, or into the window when target
// is nil. Quads are drawn in submission order, or by ascending Z when f
// enables sorting. The frame is not reset.
//
// Depth outside [MinZ, MaxZ], a target that is not a render target, a
// destroyed shader extension and calls from a thread other than the owner
// are contract violations and panic before anything is drawn.
func (r *Renderer) Render(f *Frame, target *Image) error {
	r.checkThread()
	if target != nil {
		r.checkTarget(target)
	}
	// Frames built by appending to Quads() bypass Submit.
	for i := range f.quads {
		checkZ(f.quads[i].Z)
	}
	if f.ext != nil {
		f.ext.checkAlive()
	}
	if err := r.usable(); err != nil {
		return err
	}

	r.stats = Stats{Capacity: r.buffers.capacity}
	n := len(f.quads)
	if n == 0 {
		return nil
	}
	if err := r.buffers.ensure(uint64(n) * quadBytes); err != nil { //nolint:gosec // n is a length
		return r.fail("grow buffers", err)
	}
	r.stats.Capacity = r.buffers.capacity

	var order []uint32
	if f.zSort {
		quads := f.quads
		order = r.sorter.Sort(n, ZBits, func(i int) uint32 {
			return uint32(quads[i].Z + MaxZ - 1) //nolint:gosec // checkZ bounds the key to [0, 2^ZBits)
		})
	}

	b := batch{r: r, frame: f, target: target}
	b.width, b.height = r.targetSize(target)
	exp := newExpander(b.width, b.height, r.opts.uvNudge)

	r.buffers.staging.reset()
	r.slots.Reset()
	fastStart := r.slots.FastHits()

	for i := 0; i < n; i++ {
		idx := i
		if order != nil {
			idx = int(order[i])
		}
		q := &f.quads[idx]

		tex := int8(-1)
		if q.Image != nil {
			q.Image.checkAlive()
			slot, ok := r.slots.Acquire(q.Image)
			if !ok {
				r.stats.Flushes++
				if err := b.flush(); err != nil {
					return err
				}
				slot, _ = r.slots.Acquire(q.Image)
			}
			tex = int8(slot) //nolint:gosec // slot < BatchSlots
		}
		exp.expand(q, tex, &r.corners)
		r.buffers.staging.writeQuad(&r.corners)
	}
	err := b.flush()
	r.stats.SlotFastHits = int(r.slots.FastHits() - fastStart) //nolint:gosec // per-frame count
	return err
}

// checkTarget asserts that target can be drawn into.
func (r *Renderer) checkTarget(target *Image) {
	target.checkAlive()
	if !target.renderTarget {
		violate(CheckRenderTarget, "image %dx%d is not a render target", target.width, target.height)
	}
}

func (r *Renderer) targetSize(target *Image) (int, int) {
	if target != nil {
		return target.width, target.height
	}
	return r.dev.Window().PixelSize()
}

// ClearTarget fills target with c, or the window when target is nil.
func (r *Renderer) ClearTarget(target *Image, c Color) error {
	r.checkThread()
	var tex render.Texture
	if target != nil {
		r.checkTarget(target)
		tex = target.tex
	}
	if err := r.usable(); err != nil {
		return err
	}
	if err := r.dev.ClearRenderTarget(tex, c.gpu()); err != nil {
		return r.fail("clear", err)
	}
	return nil
}

// EndFrame renders f to the window, resets f, presents and clears the
// window with its clear color for the next frame.
func (r *Renderer) EndFrame(f *Frame) error {
	if err := r.Render(f, nil); err != nil {
		return err
	}
	f.Reset()
	if err := r.dev.Present(); err != nil {
		return r.fail("present", err)
	}
	if err := r.dev.ClearRenderTarget(nil, r.dev.Window().ClearColor()); err != nil {
		return r.fail("clear window", err)
	}
	return nil
}

// Close releases the renderer's samplers and buffers. Images and shader
// extensions are owned by the caller. Close is idempotent.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.checkThread()
	r.closed = true
	r.buffers.release()
	r.buffers.capacity = 0
	r.releaseSamplers()
	untrackDevice(r.dev)
	Logger().Info("quad renderer closed")
}

func (r *Renderer) releaseSamplers() {
	for i := len(r.samplers) - 1; i >= 0; i-- {
		if r.samplers[i] != nil {
			r.dev.DestroySampler(r.samplers[i])
			r.samplers[i] = nil
		}
	}
}

// batch emits the draws of one Render call.
type batch struct {
	r             *Renderer
	frame         *Frame
	target        *Image
	width, height int
}

// flush uploads the staged quads and draws them with the current slot
// table, then starts a new batch.
func (b *batch) flush() error {
	r := b.r
	quads := r.buffers.staging.quads()
	if quads == 0 {
		return nil
	}
	if err := r.dev.WriteBuffer(r.buffers.vbo, r.buffers.staging.bytes()); err != nil {
		return r.fail("upload vertices", err)
	}
	if err := b.emit(quads); err != nil {
		return err
	}
	Logger().Debug("flushed quad batch", "quads", quads, "textures", r.slots.Len())
	r.buffers.staging.reset()
	r.slots.Reset()
	return nil
}

// emit binds the full pipeline state and issues one indexed draw.
func (b *batch) emit(quads int) error {
	r, dev, f := b.r, b.r.dev, b.frame

	var target render.Texture
	if b.target != nil {
		target = b.target.tex
	}
	dev.SetRenderTarget(target)
	dev.SetViewport(b.width, b.height)
	dev.SetVertexBuffer(r.buffers.vbo, vertex.Size)
	dev.SetIndexBuffer(r.buffers.ibo)

	if ext := f.ext; ext != nil {
		if err := ext.upload(f.cbuffer); err != nil {
			return r.fail("upload constants", err)
		}
		dev.SetConstantBuffer(ext.cbuf)
		dev.SetFragmentShader(ext.shader)
	} else {
		dev.SetConstantBuffer(nil)
		dev.SetFragmentShader(nil)
	}

	dev.SetSamplers(r.samplers[:])
	clear(r.batchTex[:])
	keys := r.slots.Keys()
	for i, img := range keys {
		r.batchTex[i] = img.tex
	}
	dev.SetTextures(0, r.batchTex[:])
	for i, img := range f.bound {
		r.boundTex[i] = nil
		if img != nil {
			img.checkAlive()
			r.boundTex[i] = img.tex
		}
	}
	dev.SetTextures(render.BoundImageBase, r.boundTex[:])

	err := dev.DrawIndexed(quads * vertex.IndicesPerQuad)

	// Leave no texture bound, and never keep a render target bound as
	// both input and output of a later call.
	dev.SetTextures(0, r.nilTex[:])
	if target != nil {
		dev.SetRenderTarget(nil)
	}
	if err != nil {
		return r.fail("draw", err)
	}

	r.stats.DrawCalls++
	r.stats.Quads += quads
	r.stats.TextureBinds += len(keys)
	return nil
}
