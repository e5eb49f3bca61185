package text

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/di"
	gotext "github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Position places one rune of a shaped line.
type Position struct {
	// Index is the rune index in the shaped line.
	Index int

	// X is the pen position in pixels from the line start.
	X float32

	// Advance is the pen advance after the rune.
	Advance float32
}

// Shaper positions the runes of a single line. Implementations must be
// safe for concurrent use.
type Shaper interface {
	Shape(line []rune) []Position
}

// FaceShaper positions runes with the advances and kerning of an x/image
// font face.
type FaceShaper struct {
	mu   sync.Mutex // font.Face is not safe for concurrent use
	face font.Face
}

// NewFaceShaper returns a shaper for face.
func NewFaceShaper(face font.Face) *FaceShaper {
	return &FaceShaper{face: face}
}

// Shape implements Shaper.
func (s *FaceShaper) Shape(line []rune) []Position {
	if len(line) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Position, len(line))
	var pen fixed.Int26_6
	prev := rune(-1)
	for i, r := range line {
		if prev >= 0 {
			pen += s.face.Kern(prev, r)
		}
		adv, ok := s.face.GlyphAdvance(r)
		if !ok {
			adv, _ = s.face.GlyphAdvance(FallbackRune)
		}
		out[i] = Position{Index: i, X: fixedToFloat(pen), Advance: fixedToFloat(adv)}
		pen += adv
		prev = r
	}
	return out
}

// HarfbuzzShaper positions runes with go-text/typesetting's HarfBuzz port.
// Ligatures are disabled so every rune keeps its own glyph, which is what
// a per-rune atlas can draw. The size must match the atlas face.
type HarfbuzzShaper struct {
	font *gotext.Font
	size fixed.Int26_6

	// shaping.HarfbuzzShaper keeps internal buffers and is not safe for
	// concurrent use.
	pool sync.Pool
}

// noLigatures turns off the features that merge runes into one glyph.
var noLigatures = []shaping.FontFeature{
	{Tag: ot.MustNewTag("liga"), Value: 0},
	{Tag: ot.MustNewTag("clig"), Value: 0},
	{Tag: ot.MustNewTag("dlig"), Value: 0},
}

// NewHarfbuzzShaper parses a TrueType or OpenType font for shaping at
// size pixels.
func NewHarfbuzzShaper(data []byte, size float64) (*HarfbuzzShaper, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}
	face, err := gotext.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("text: parse font: %w", err)
	}
	s := &HarfbuzzShaper{font: face.Font, size: fixed.Int26_6(size * 64)}
	s.pool.New = func() any { return &shaping.HarfbuzzShaper{} }
	return s, nil
}

// Shape implements Shaper.
func (s *HarfbuzzShaper) Shape(line []rune) []Position {
	if len(line) == 0 {
		return nil
	}
	input := shaping.Input{
		Text:         line,
		RunStart:     0,
		RunEnd:       len(line),
		Direction:    di.DirectionLTR,
		Face:         gotext.NewFace(s.font),
		FontFeatures: noLigatures,
		Size:         s.size,
		Script:       detectScript(line),
		Language:     language.NewLanguage("en"),
	}
	hb := s.pool.Get().(*shaping.HarfbuzzShaper)
	output := hb.Shape(input)
	s.pool.Put(hb)

	out := make([]Position, 0, len(output.Glyphs))
	var pen fixed.Int26_6
	for _, g := range output.Glyphs {
		out = append(out, Position{
			Index:   g.TextIndex(),
			X:       fixedToFloat(pen + g.XOffset),
			Advance: fixedToFloat(g.Advance),
		})
		pen += g.Advance
	}
	return out
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}
