package quads

import "github.com/gogpu/quads/render"

// MaxBoundImages is the number of frame-wide image slots. Bound images are
// available to every quad of the frame, typically to shader extensions,
// without taking batch texture slots.
const MaxBoundImages = render.BoundImageSlots

// Frame collects the quads of one frame.
//
// Building a frame does not touch the GPU, so frames can be filled on any
// goroutine and handed to the renderer's thread. A Frame is not safe for
// concurrent use.
type Frame struct {
	quads []Quad

	zSort bool
	bound [MaxBoundImages]*Image

	ext     *ShaderExtension
	cbuffer []byte
}

// NewFrame returns an empty frame with room for capacity quads.
func NewFrame(capacity int) *Frame {
	return &Frame{quads: make([]Quad, 0, capacity)}
}

// Submit appends q to the frame. It panics with a ContractViolation when
// q.Z is outside [MinZ, MaxZ].
func (f *Frame) Submit(q Quad) {
	checkZ(q.Z)
	f.quads = append(f.quads, q)
}

// Len returns the number of submitted quads.
func (f *Frame) Len() int { return len(f.quads) }

// Quads returns the submitted quads in submission order. The slice aliases
// the frame and must not be modified.
func (f *Frame) Quads() []Quad { return f.quads }

// Reset drops all quads and keeps the allocated storage. Sorting, bound
// images and the shader extension persist across frames.
func (f *Frame) Reset() {
	// Drop image references so destroyed images can be collected.
	clear(f.quads)
	f.quads = f.quads[:0]
}

// EnableZSorting controls whether Render orders quads by Z. Without sorting
// quads are drawn in submission order.
func (f *Frame) EnableZSorting(enabled bool) { f.zSort = enabled }

// ZSorting reports whether Z sorting is enabled.
func (f *Frame) ZSorting() bool { return f.zSort }

// BindImage makes img available to the fragment stage at bound slot. Nil
// unbinds the slot. It panics when slot is outside [0, MaxBoundImages).
func (f *Frame) BindImage(slot int, img *Image) {
	if slot < 0 || slot >= MaxBoundImages {
		violate(CheckBoundSlot, "bound image slot %d outside [0, %d)", slot, MaxBoundImages)
	}
	f.bound[slot] = img
}

// BoundImage returns the image bound at slot.
func (f *Frame) BoundImage(slot int) *Image {
	if slot < 0 || slot >= MaxBoundImages {
		return nil
	}
	return f.bound[slot]
}

// SetShaderExtension draws the whole frame with ext. cbuffer is copied and
// uploaded to ext's constant buffer before each draw; it may be shorter
// than the declared size. Nil ext restores the default shader.
func (f *Frame) SetShaderExtension(ext *ShaderExtension, cbuffer []byte) {
	f.ext = ext
	f.cbuffer = append(f.cbuffer[:0], cbuffer...)
}

// ShaderExtension returns the frame's shader extension, if any.
func (f *Frame) ShaderExtension() *ShaderExtension { return f.ext }

// ShaderConstants returns the frame's copy of the extension constant
// buffer.
func (f *Frame) ShaderConstants() []byte { return f.cbuffer }
