package text

import "errors"

// Sentinel errors for text package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("text: empty font data")

	// ErrNoGlyphs is returned when none of the requested runes exist in
	// the face.
	ErrNoGlyphs = errors.New("text: face has none of the requested glyphs")

	// ErrAtlasTooLarge is returned when the glyphs do not fit the maximum
	// atlas size.
	ErrAtlasTooLarge = errors.New("text: glyphs exceed the maximum atlas size")
)
