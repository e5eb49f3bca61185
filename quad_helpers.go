package quads

// corners transforms the pixel rectangle r into quad corners.
func corners(m Transform, r Rect) [4]Vec2 {
	var c [4]Vec2
	c[BottomLeft] = m.Apply(Vec2{r.X1, r.Y1})
	c[TopLeft] = m.Apply(Vec2{r.X1, r.Y2})
	c[TopRight] = m.Apply(Vec2{r.X2, r.Y2})
	c[BottomRight] = m.Apply(Vec2{r.X2, r.Y1})
	return c
}

// RectQuad returns a solid quad covering the pixel rectangle r.
func RectQuad(m Transform, r Rect, c Color, z int32) Quad {
	return Quad{Corners: corners(m, r), Color: c, Z: z}
}

// ImageQuad returns a quad showing the uv sub-rectangle of img over the
// pixel rectangle r, tinted by c.
func ImageQuad(m Transform, r Rect, img *Image, uv Rect, c Color, z int32) Quad {
	return Quad{
		Corners:   corners(m, r),
		Color:     c,
		Image:     img,
		UV:        uv,
		MinFilter: FilterLinear,
		MagFilter: FilterLinear,
		Z:         z,
	}
}

// CircleQuad returns a quad shaded as the circle of the given radius
// around center.
func CircleQuad(m Transform, center Vec2, radius float32, c Color, z int32) Quad {
	r := Rect{center.X - radius, center.Y - radius, center.X + radius, center.Y + radius}
	return Quad{Corners: corners(m, r), Color: c, Z: z, Type: QuadCircle}
}
