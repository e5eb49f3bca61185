package quads

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/quads/internal/vertex"
)

// Depth limits. Quads are ordered by Z when a frame enables sorting; Z must
// lie in [MinZ, MaxZ].
const (
	// ZBits is the width of the unsigned sort key derived from Z.
	ZBits = 21

	// MaxZ is the largest allowed depth.
	MaxZ = 1 << (ZBits - 1)

	// MinZ is the smallest allowed depth.
	MinZ = -MaxZ + 1
)

// UserDataCount is the number of opaque vec4 values each quad forwards to
// the fragment stage.
const UserDataCount = vertex.UserDataCount

// QuadType selects how the fragment stage shades a quad.
type QuadType uint8

const (
	// QuadRegular multiplies the texture sample (if any) by the color.
	QuadRegular QuadType = iota

	// QuadText uses the first texture channel as coverage.
	QuadText

	// QuadCircle masks the quad to the circle inscribed in its self UV
	// square.
	QuadCircle
)

// String returns the type name.
func (t QuadType) String() string {
	switch t {
	case QuadRegular:
		return "regular"
	case QuadText:
		return "text"
	case QuadCircle:
		return "circle"
	default:
		return "unknown"
	}
}

// FilterMode is a texture filter.
type FilterMode uint8

const (
	// FilterNearest picks the nearest texel.
	FilterNearest FilterMode = iota

	// FilterLinear interpolates between texels.
	FilterLinear
)

// String returns the filter name.
func (f FilterMode) String() string {
	if f == FilterLinear {
		return "linear"
	}
	return "nearest"
}

// Vec2 is a 2D point or vector.
type Vec2 struct {
	X, Y float32
}

// Rect is an axis aligned rectangle given by two corners.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Color is a straight (non-premultiplied) RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Common colors.
var (
	White       = Color{1, 1, 1, 1}
	Black       = Color{0, 0, 0, 1}
	Transparent = Color{}
)

// RGBA returns a color from 8-bit components.
func RGBA(r, g, b, a uint8) Color {
	return Color{float32(r) / 255, float32(g) / 255, float32(b) / 255, float32(a) / 255}
}

func (c Color) gpu() gputypes.Color {
	return gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
}

// Corner indices into Quad.Corners.
const (
	BottomLeft = iota
	TopLeft
	TopRight
	BottomRight
)

// Quad is one drawable unit. Quads are plain values; a Frame copies them on
// Submit.
type Quad struct {
	// Corners are the positions of the bottom-left, top-left, top-right and
	// bottom-right corners in clip space.
	Corners [4]Vec2

	// Color multiplies the texture sample, or is the fill for untextured
	// quads.
	Color Color

	// Image is the sampled texture. Nil draws a solid quad.
	Image *Image

	// UV is the sub-rectangle of Image mapped onto the quad: (X1, Y1) at
	// the bottom-left corner and (X2, Y2) at the top-right corner.
	UV Rect

	MinFilter FilterMode
	MagFilter FilterMode

	// Z orders quads when the frame sorts by depth. It must be in
	// [MinZ, MaxZ].
	Z int32

	Type QuadType

	// UserData is passed through to the fragment stage unchanged.
	UserData [UserDataCount][4]float32

	// Scissor clips fragments to a window-space rectangle with a
	// bottom-left origin when HasScissor is set.
	Scissor    Rect
	HasScissor bool
}

// FullUV maps the whole image onto a quad.
var FullUV = Rect{0, 0, 1, 1}
