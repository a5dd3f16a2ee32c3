package content

import (
	"github.com/tmaxted/oriel/graphics"
)

// Glyph describes one character cell in a sprite font's glyph atlas.
// Coordinates are in pixels within the atlas image.
type Glyph struct {
	X, Y          int
	Width, Height int
	Advance       float32
	BearingX      float32
	BearingY      float32
}

// FontData is the imported sprite-font payload: the glyph atlas image
// plus the glyph map. It is intermediate data; the atlas is disposed once
// the font's texture buffer has been generated.
type FontData struct {
	Atlas      *Image
	Glyphs     map[rune]Glyph
	LineHeight float32
	Baseline   float32
}

// SpriteFont is the final, renderable font: a unit-quad mesh buffer, the
// glyph atlas texture buffer, and the glyph map.
type SpriteFont struct {
	Quad       graphics.MeshBuffer
	Atlas      graphics.TextureBuffer
	Glyphs     map[rune]Glyph
	LineHeight float32
	Baseline   float32
}

// Glyph returns the glyph for r, falling back to the replacement
// character and reporting whether the lookup hit.
func (f *SpriteFont) Glyph(r rune) (Glyph, bool) {
	g, ok := f.Glyphs[r]
	if !ok {
		g, ok = f.Glyphs['�']
	}
	return g, ok
}
