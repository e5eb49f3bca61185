package text

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/quads"
)

// DrawOptions configures Atlas.Draw.
type DrawOptions struct {
	// Color tints the glyphs. The zero value draws white.
	Color quads.Color

	// Z is the depth of every glyph quad.
	Z int32

	// Scale multiplies glyph sizes and advances. Zero means 1.
	Scale float32

	// Shaper positions each line. Nil uses the atlas face's advances
	// and kerning.
	Shaper Shaper
}

// Draw appends one text quad per visible glyph of s to f. (x, y) is the
// pen position on the first baseline in the pixel space of tr, y up.
// Lines are separated by '\n'; each following line starts one line
// height lower. s is NFC normalized first so composed and decomposed
// input find the same glyphs. Runes without a glyph draw FallbackRune.
// Draw returns the width of the widest line.
func (a *Atlas) Draw(f *quads.Frame, tr quads.Transform, s string, x, y float32, opts DrawOptions) float32 {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	color := opts.Color
	if color == (quads.Color{}) {
		color = quads.White
	}
	shaper := opts.Shaper
	if shaper == nil {
		shaper = a.shaper
	}
	w, h := float32(a.img.Width()), float32(a.img.Height())

	var widest float32
	penY := y
	for _, line := range strings.Split(norm.NFC.String(s), "\n") {
		runes := []rune(line)
		var lineWidth float32
		for _, p := range shaper.Shape(runes) {
			if p.Index < 0 || p.Index >= len(runes) {
				continue
			}
			lineWidth = max(lineWidth, (p.X+p.Advance)*scale)
			g := a.Glyph(runes[p.Index])
			if g == nil || g.Bounds.Empty() {
				continue
			}
			x1 := x + (p.X+float32(g.Offset.X))*scale
			top := penY - float32(g.Offset.Y)*scale
			rect := quads.Rect{
				X1: x1,
				Y1: top - float32(g.Bounds.Dy())*scale,
				X2: x1 + float32(g.Bounds.Dx())*scale,
				Y2: top,
			}
			// Atlas rows run top down, so the bottom edge of the quad
			// samples the bottom row of the glyph.
			uv := quads.Rect{
				X1: float32(g.Bounds.Min.X) / w,
				Y1: float32(g.Bounds.Max.Y) / h,
				X2: float32(g.Bounds.Max.X) / w,
				Y2: float32(g.Bounds.Min.Y) / h,
			}
			q := quads.ImageQuad(tr, rect, a.img, uv, color, opts.Z)
			q.Type = quads.QuadText
			f.Submit(q)
		}
		widest = max(widest, lineWidth)
		penY -= a.lineHeight * scale
	}
	return widest
}

// Measure returns the width of the widest line of s and the number of
// lines, at scale 1 with the atlas face's shaping.
func (a *Atlas) Measure(s string) (width float32, lines int) {
	for _, line := range strings.Split(norm.NFC.String(s), "\n") {
		lines++
		var lw float32
		for _, p := range a.shaper.Shape([]rune(line)) {
			lw = max(lw, p.X+p.Advance)
		}
		width = max(width, lw)
	}
	return width, lines
}
