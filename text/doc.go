// Package text draws strings as quads.
//
// An Atlas rasterizes the glyphs of a golang.org/x/image font.Face into one
// single channel image. Draw appends one QuadText quad per glyph to a
// frame; the quad shader uses the image's first channel as coverage and
// the quad color as the text color.
//
// # Example usage
//
//	atlas, err := text.NewAtlas(r, basicfont.Face7x13, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer atlas.Destroy()
//
//	px := quads.Ortho(800, 600)
//	atlas.Draw(frame, px, "Hello, quads!", 20, 580, text.DrawOptions{
//	    Color: quads.RGBA(255, 220, 120, 255),
//	    Z:     10,
//	})
//
// # Shaping
//
// Lines are positioned by a Shaper. The default FaceShaper uses the face's
// advances and kerning. HarfbuzzShaper runs go-text/typesetting's HarfBuzz
// port over the same font file for OpenType positioning; ligatures are
// disabled because the atlas holds one glyph per rune.
package text
