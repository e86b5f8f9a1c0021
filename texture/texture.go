// Package texture holds the decoded, load-lifetime wall texture
// representation (§6): a flat RGBA pixel buffer per named texture, an LRU
// cache of them, and the patch-composition logic that builds one from its
// constituent patch graphics. Parsing the raw lumps is the wad package's
// job; this package only knows how to turn already-decoded patches and
// palettes into a Texture.
package texture

import (
	"fmt"
	"image/color"
)

// ErrTextureMissing is returned by Compose when a texture definition
// references a patch name absent from the patch table (§6, §7).
type ErrTextureMissing struct {
	Name string
}

func (e *ErrTextureMissing) Error() string {
	return fmt.Sprintf("texture missing: %s", e.Name)
}

// Palette is a 256-entry RGBA color table, decoded from a PLAYPAL lump.
type Palette [256]color.RGBA

// Texture is a fully composed, opaque-or-transparent RGBA pixel grid ready
// for column extraction by the rasterizer.
type Texture struct {
	Width, Height int
	Pixels        []color.RGBA // row-major, len == Width*Height
}

// New returns a Width x Height texture, every pixel fully transparent,
// the same starting state as the reference's per-texture surface before
// any patch is blitted onto it.
func New(width, height int) *Texture {
	return &Texture{Width: width, Height: height, Pixels: make([]color.RGBA, width*height)}
}

// At returns the pixel at (x, y), wrapping x into [0, Width) the way the
// rasterizer's tex_x recovery does (§4.5 step 3); y is expected already
// in range.
func (t *Texture) At(x, y int) color.RGBA {
	x = ((x % t.Width) + t.Width) % t.Width
	if y < 0 || y >= t.Height {
		return color.RGBA{}
	}
	return t.Pixels[y*t.Width+x]
}

func (t *Texture) set(x, y int, c color.RGBA) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}
