// Package raster turns a clipped colspan.Span plus a Texture into the
// list of 1-pixel-wide vertical strips the window collaborator blits,
// per §4.5. It also owns the per-column occlusion bound update rules
// that distinguish solid walls from the upper/lower step textures of a
// portal.
package raster

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/waddoom/gorender/colspan"
	"github.com/waddoom/gorender/texture"
)

// WallKind selects which occlusion-bound update rule a span's strips
// apply (§4.5 step 7).
type WallKind int

const (
	// Solid closes the column entirely: nothing nearer will ever be drawn
	// there again this frame.
	Solid WallKind = iota
	// Upper is a portal's ceiling-step texture: it only lowers the top
	// bound.
	Upper
	// Lower is a portal's floor-step texture: it only raises the bottom
	// bound.
	Lower
	// Middle is a portal's optional translucent/solid fill between steps:
	// it draws but never changes the occlusion bounds.
	Middle
)

// Strip is one output column: a 1-pixel-wide vertical run of already
// nearest-neighbor-rescaled pixels, ready to blit at (Column, Top).
type Strip struct {
	Column int
	Top    int
	Pixels []color.RGBA
}

// Bounds is the per-column occlusion state the BSP walker resets once per
// frame (top_bound/bottom_bound, §4.6 step 1) and Rasterize both reads and
// updates in place.
type Bounds struct {
	Top    []float32
	Bottom []float32
}

// Rasterize walks span's columns, clips each against bounds, extracts and
// rescales the corresponding texture column, and updates bounds per kind.
// xOff/yOff are the owning SideDef's texture offsets; resH is the screen
// height, used only for the off-screen-row rejection test (bounds is
// indexed by column, not row, so its length cannot stand in for resH).
// tex may be nil, for the "-" no-texture sentinel or a name absent from
// the composed texture set, in which case no strips are emitted but
// occlusion bounds still update, per §6/§7's TextureMissing contract.
func Rasterize(span colspan.Span, tex *texture.Texture, xOff, yOff float32, kind WallKind, bounds Bounds, resH int) []Strip {
	var out []Strip

	nCols := span.LastCol - span.FirstCol
	if nCols <= 0 {
		return out
	}

	yTop := span.TopStart
	yBottom := span.BottomStart
	u := span.ULeft
	invz := span.InvZLeft

	wallHeight := span.WallWorldHeight
	var texHeight float32
	if tex != nil {
		texHeight = float32(tex.Height) - yOff
	}

	for i := span.FirstCol; i < span.LastCol; i++ {
		if yTop < float32(resH) && yBottom >= 0 && int(yBottom) != int(yTop) {
			top := maxF(yTop, bounds.Top[i])
			bottom := minF(yBottom, bounds.Bottom[i])
			if bottom > top && tex != nil {
				texX := int(xOff + floorDiv(u, invz))
				colHeight := yBottom - yTop
				yOffset := int(((top - yTop) / colHeight) * wallHeight)
				offScreen := int(((yBottom - bottom) / colHeight) * wallHeight)

				column := extractColumn(tex, texX, yOff, texHeight, wallHeight, yOffset, offScreen)
				scaled := rescale(column, int(bottom-top))
				out = append(out, Strip{Column: i, Top: int(top), Pixels: scaled})
			}
			// The occlusion update uses the Y-clipped top/bottom, not the
			// raw projected yTop/yBottom: a column already closed by a
			// nearer wall must stay closed even though this span still
			// projects past it.
			applyBound(kind, bounds, i, top, bottom)
		}

		yTop += span.TopStep
		yBottom += span.BotStep
		u += span.UStep
		invz += span.InvZStep
	}
	return out
}

func floorDiv(u, invz float32) float32 {
	return float32(math.Floor(float64(u / invz)))
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

// applyBound implements §4.5 step 7: SOLID closes the column, UPPER only
// lowers the top bound, LOWER only raises the bottom bound, MIDDLE leaves
// both untouched.
func applyBound(kind WallKind, bounds Bounds, i int, top, bottom float32) {
	switch kind {
	case Solid:
		bounds.Top[i] = top
		bounds.Bottom[i] = bottom
	case Upper:
		bounds.Top[i] = maxF(top, bottom)
	case Lower:
		bounds.Bottom[i] = minF(top, bottom)
	case Middle:
	}
}

// extractColumn recovers the vertical pixel run for one texture column
// per §4.5 steps 4-5: a single slice when the texture is tall enough to
// cover the wall without repeating, otherwise the tail of the first
// repeat, zero or more full repeats, and a partial final repeat.
func extractColumn(tex *texture.Texture, texX int, yOff, texHeight, wallHeight float32, yOffset, offScreen int) []color.RGBA {
	visible := int(wallHeight) - (yOffset + offScreen)
	if visible <= 0 {
		return nil
	}

	if texHeight >= wallHeight {
		return readRun(tex, texX, int(yOff)+yOffset, visible)
	}

	out := make([]color.RGBA, 0, visible)
	firstRun := tex.Height - (int(yOff) + yOffset)
	y := int(yOff) + yOffset
	pixLeft := int(wallHeight) - firstRun
	out = append(out, readRun(tex, texX, y, min(firstRun, visible))...)
	y = tex.Height
	for pixLeft > tex.Height && len(out) < visible {
		out = append(out, readRun(tex, texX, 0, min(tex.Height, visible-len(out)))...)
		y += tex.Height
		pixLeft -= tex.Height
	}
	if len(out) < visible {
		out = append(out, readRun(tex, texX, 0, min(pixLeft-offScreen, visible-len(out)))...)
	}
	return out
}

func readRun(tex *texture.Texture, x, yStart, n int) []color.RGBA {
	if n <= 0 {
		return nil
	}
	run := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		run[i] = tex.At(x, yStart+i)
	}
	return run
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// rescale nearest-neighbor-resizes a 1-pixel-wide column to height
// pixels, using x/image/draw the way the reference's transform.scale
// does for its extracted column surface.
func rescale(column []color.RGBA, height int) []color.RGBA {
	if height <= 0 || len(column) == 0 {
		return nil
	}
	src := image.NewNRGBA(image.Rect(0, 0, 1, len(column)))
	for y, c := range column {
		src.SetNRGBA(0, y, color.NRGBAModel.Convert(c).(color.NRGBA))
	}
	dst := image.NewNRGBA(image.Rect(0, 0, 1, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := make([]color.RGBA, height)
	for y := 0; y < height; y++ {
		out[y] = color.RGBAModel.Convert(dst.NRGBAAt(0, y)).(color.RGBA)
	}
	return out
}
