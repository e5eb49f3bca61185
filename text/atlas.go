package text

import (
	"fmt"
	"image"
	"slices"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/quads"
)

// Atlas layout limits.
const (
	atlasMinWidth = 256
	atlasMaxSize  = 4096
	glyphPadding  = 1
)

// FallbackRune replaces runes missing from an atlas.
const FallbackRune = '?'

// Glyph is one rasterized rune in an atlas.
type Glyph struct {
	Rune rune

	// Bounds is the glyph's pixel rectangle inside the atlas image.
	Bounds image.Rectangle

	// Offset is the top-left corner of the glyph relative to the pen on
	// the baseline, y pointing down.
	Offset image.Point

	// Advance is the pen advance in pixels.
	Advance float32
}

// Atlas holds the glyphs of one face in a single channel image. The image
// belongs to the renderer the atlas was built with.
type Atlas struct {
	img        *quads.Image
	glyphs     map[rune]*Glyph
	fallback   *Glyph
	shaper     Shaper
	ascent     float32
	descent    float32
	lineHeight float32
}

// ASCII returns the printable ASCII runes.
func ASCII() []rune {
	runes := make([]rune, 0, 95)
	for r := rune(32); r < 127; r++ {
		runes = append(runes, r)
	}
	return runes
}

// rasterGlyph is a glyph copied out of the face before packing.
type rasterGlyph struct {
	Glyph
	mask *image.Alpha
}

// NewAtlas rasterizes runes from face into a new atlas image. A nil or
// empty rune set means ASCII. FallbackRune is always included. Must be
// called on the renderer's thread.
func NewAtlas(r *quads.Renderer, face font.Face, runes []rune) (*Atlas, error) {
	if len(runes) == 0 {
		runes = ASCII()
	}
	runes = slices.Clone(runes)
	runes = append(runes, FallbackRune)
	slices.Sort(runes)
	runes = slices.Compact(runes)

	raster := make([]rasterGlyph, 0, len(runes))
	for _, rn := range runes {
		g, ok := rasterize(face, rn)
		if ok {
			raster = append(raster, g)
		}
	}
	if len(raster) == 0 {
		return nil, ErrNoGlyphs
	}

	width, height, err := pack(raster)
	if err != nil {
		return nil, err
	}

	pix := image.NewAlpha(image.Rect(0, 0, width, height))
	for i := range raster {
		g := &raster[i]
		if g.mask != nil {
			draw.Copy(pix, g.Bounds.Min, g.mask, g.mask.Bounds(), draw.Src, nil)
		}
	}

	img, err := r.NewImage(width, height, 1, pix.Pix, false)
	if err != nil {
		return nil, fmt.Errorf("create atlas image: %w", err)
	}

	m := face.Metrics()
	a := &Atlas{
		img:        img,
		glyphs:     make(map[rune]*Glyph, len(raster)),
		shaper:     NewFaceShaper(face),
		ascent:     fixedToFloat(m.Ascent),
		descent:    fixedToFloat(m.Descent),
		lineHeight: fixedToFloat(m.Height),
	}
	if a.lineHeight == 0 {
		a.lineHeight = a.ascent + a.descent
	}
	for i := range raster {
		g := raster[i].Glyph
		a.glyphs[g.Rune] = &g
	}
	a.fallback = a.glyphs[FallbackRune]

	quads.Logger().Debug("text: atlas built",
		"glyphs", len(a.glyphs), "width", width, "height", height)
	return a, nil
}

// rasterize copies the coverage mask of rn out of face. Faces may reuse
// their mask between calls, so the mask is copied.
func rasterize(face font.Face, rn rune) (rasterGlyph, bool) {
	dr, mask, mp, advance, ok := face.Glyph(fixed.Point26_6{}, rn)
	if !ok {
		return rasterGlyph{}, false
	}
	g := rasterGlyph{Glyph: Glyph{
		Rune:    rn,
		Offset:  dr.Min,
		Advance: fixedToFloat(advance),
		Bounds:  image.Rect(0, 0, dr.Dx(), dr.Dy()),
	}}
	if dr.Empty() || mask == nil {
		g.Bounds = image.Rectangle{}
		return g, true
	}
	g.mask = image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	draw.Copy(g.mask, image.Point{}, mask, image.Rectangle{Min: mp, Max: mp.Add(dr.Size())}, draw.Src, nil)
	return g, true
}

// pack places glyphs on shelves of a fixed width atlas, tallest first, and
// sets their Bounds. It returns the atlas size.
func pack(glyphs []rasterGlyph) (int, int, error) {
	width := atlasMinWidth
	for _, g := range glyphs {
		width = max(width, g.Bounds.Dx()+2*glyphPadding)
	}
	if width > atlasMaxSize {
		return 0, 0, ErrAtlasTooLarge
	}

	order := make([]int, len(glyphs))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return glyphs[b].Bounds.Dy() - glyphs[a].Bounds.Dy()
	})

	x, y, shelf := glyphPadding, glyphPadding, 0
	for _, i := range order {
		g := &glyphs[i]
		w, h := g.Bounds.Dx(), g.Bounds.Dy()
		if w == 0 || h == 0 {
			continue
		}
		if x+w+glyphPadding > width {
			x = glyphPadding
			y += shelf + glyphPadding
			shelf = 0
		}
		g.Bounds = image.Rect(x, y, x+w, y+h)
		x += w + glyphPadding
		shelf = max(shelf, h)
	}
	height := max(y+shelf+glyphPadding, 1)
	if height > atlasMaxSize {
		return 0, 0, ErrAtlasTooLarge
	}
	return width, height, nil
}

// Image returns the atlas image.
func (a *Atlas) Image() *quads.Image { return a.img }

// Glyph returns the glyph drawn for rn, which is the fallback glyph when
// rn is missing, or nil when neither exists.
func (a *Atlas) Glyph(rn rune) *Glyph {
	if g, ok := a.glyphs[rn]; ok {
		return g
	}
	return a.fallback
}

// Has reports whether rn has its own glyph.
func (a *Atlas) Has(rn rune) bool {
	_, ok := a.glyphs[rn]
	return ok
}

// Len returns the number of glyphs.
func (a *Atlas) Len() int { return len(a.glyphs) }

// LineHeight returns the baseline to baseline distance in pixels.
func (a *Atlas) LineHeight() float32 { return a.lineHeight }

// Ascent returns the distance from the baseline to the top of a line.
func (a *Atlas) Ascent() float32 { return a.ascent }

// Destroy releases the atlas image.
func (a *Atlas) Destroy() {
	if a.img != nil {
		a.img.Destroy()
	}
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
