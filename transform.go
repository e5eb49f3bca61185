package quads

import "math"

// Transform is a 2D affine transformation in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// mapping (x, y) to (a*x + b*y + c, d*x + e*y + f).
type Transform struct {
	A, B, C float32
	D, E, F float32
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{A: 1, E: 1}
}

// Translate returns a translation.
func Translate(x, y float32) Transform {
	return Transform{A: 1, C: x, E: 1, F: y}
}

// Scale returns a scaling transform.
func Scale(x, y float32) Transform {
	return Transform{A: x, E: y}
}

// Rotate returns a counter-clockwise rotation by angle radians.
func Rotate(angle float64) Transform {
	sin, cos := math.Sincos(angle)
	return Transform{
		A: float32(cos), B: float32(-sin),
		D: float32(sin), E: float32(cos),
	}
}

// Ortho maps pixel coordinates of a width x height target, origin at the
// bottom-left corner and y up, to clip space.
func Ortho(width, height int) Transform {
	return Transform{
		A: 2 / float32(width), C: -1,
		E: 2 / float32(height), F: -1,
	}
}

// Multiply returns t * other, which applies other first.
func (t Transform) Multiply(other Transform) Transform {
	return Transform{
		A: t.A*other.A + t.B*other.D,
		B: t.A*other.B + t.B*other.E,
		C: t.A*other.C + t.B*other.F + t.C,
		D: t.D*other.A + t.E*other.D,
		E: t.D*other.B + t.E*other.E,
		F: t.D*other.C + t.E*other.F + t.F,
	}
}

// Apply transforms p.
func (t Transform) Apply(p Vec2) Vec2 {
	return Vec2{
		X: t.A*p.X + t.B*p.Y + t.C,
		Y: t.D*p.X + t.E*p.Y + t.F,
	}
}

// IsIdentity reports whether t is the identity.
func (t Transform) IsIdentity() bool {
	return t == Identity()
}
