package colspan

import (
	"github.com/waddoom/gorender/frustum"
	"github.com/waddoom/gorender/geom"
	"github.com/waddoom/gorender/mapdata"
)

// Params are the frame-constant values Build needs: screen resolution, the
// configurable wall-height scale (§9 Open Question, resolved in
// config.RendererConfig), and the horizontal field of view.
type Params struct {
	ResW, ResH      int
	WallHeightScale float32
	FOVRadians      float32
}

const halfPi = 1.5707963267948966

func (p Params) tanHalfFOV() float32 {
	return frustum.NewClassifier(geom.Vec2{0, 0}, geom.Vec2{1, 0}, p.FOVRadians).TanHalfFOV
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func vertexOf(m *mapdata.Map, idx int) geom.Vec2 {
	v := m.Vertexes[idx]
	return geom.Vec2{v.X, v.Y}
}

// Build projects a Seg against the given ceiling/floor heights from the
// viewer pose, following §4.4 steps 1-8. ok is false when the segment is
// back-facing, fully outside the frustum, degenerate in the clip, or
// projects to zero screen-space width, in every such case the caller
// drops the segment silently per §4.7/§7 (the internal Degenerate
// classification never escapes this package as an error value).
func Build(m *mapdata.Map, seg mapdata.Seg, ceilingH, floorH float32, viewerPos geom.Vec2, viewerYaw, eyeHeight float32, p Params) (Span, bool) {
	v0w := vertexOf(m, seg.StartVert)
	v1w := vertexOf(m, seg.EndVert)

	// Step 1: back-face cull.
	segNormal := geom.Rotate(geom.Vec2{1, 0}, seg.Angle+halfPi)
	distVec := v0w.Sub(viewerPos)
	if distVec.Dot(distVec) < 0.01 {
		return Span{}, false
	}
	if distVec.Normalize().Dot(segNormal) < 0 {
		return Span{}, false
	}

	// Step 2: transform both endpoints into view space.
	v0 := geom.Rotate(v0w.Sub(viewerPos), -viewerYaw)
	v1 := geom.Rotate(v1w.Sub(viewerPos), -viewerYaw)

	// Step 3: classify and test visibility against the local frustum
	// (viewer at origin, looking down +X, per §4.2).
	c := frustum.NewClassifier(geom.Vec2{0, 0}, geom.Vec2{1, 0}, p.FOVRadians)
	c0, c1 := c.ClassifyEdge(v0, v1)
	if !c.EdgeVisible(v0, v1, c0, c1) {
		return Span{}, false
	}

	linedef := m.LineDefs[seg.LineDef]
	ldStart := vertexOf(m, linedef.StartVert)
	ldEnd := vertexOf(m, linedef.EndVert)
	linedefLen := ldEnd.Sub(ldStart).Len()

	// Step 4: clip and recompute the U-range.
	uLeft, uRight := float32(0), linedefLen
	if !(c0 == frustum.Inside && c1 == frustum.Inside) {
		tmp0, tmp1 := v0, v1
		nv0, nv1, err := c.ClipEdge(v0, v1, c0, c1)
		if err != nil {
			return Span{}, false
		}
		v0, v1 = nv0, nv1
		uLeft = tmp0.Sub(v0).Len()
		uRight = linedefLen - tmp1.Sub(v1).Len()
	}
	uLeft += ldStart.Sub(v0w).Len()
	uRight -= ldEnd.Sub(v1w).Len()

	// Step 5: project endpoints to normalized device x, then screen columns.
	xs0 := v0.Y() / (p.tanHalfFOV() * -v0.X())
	xs1 := v1.Y() / (p.tanHalfFOV() * -v1.X())

	// Step 6: ensure the smaller-NDC-x endpoint is endpoint "0".
	if xs0 > xs1 {
		v0, v1 = v1, v0
		xs0, xs1 = xs1, xs0
		uLeft, uRight = uRight, uLeft
	}
	firstCol := int((clamp(xs0, -1, 1) + 1) * float32(p.ResW) / 2)
	lastCol := int((clamp(xs1, -1, 1) + 1) * float32(p.ResW) / 2)
	if firstCol == lastCol {
		return Span{}, false
	}
	nCols := float32(lastCol - firstCol)

	// Step 7: per-column step values.
	vfov := p.WallHeightScale * float32(p.ResH)
	yScale0 := vfov / v0.X()
	yScale1 := vfov / v1.X()
	halfH := float32(p.ResH) / 2

	topStart := halfH - yScale0*(ceilingH-eyeHeight)
	bottomStart := halfH - yScale0*(floorH-eyeHeight)
	topEnd := halfH - yScale1*(ceilingH-eyeHeight)
	bottomEnd := halfH - yScale1*(floorH-eyeHeight)

	invz0 := 1 / v0.X()
	invz1 := 1 / v1.X()
	uLeftZ := uLeft * invz0
	uRightZ := uRight * invz1

	return Span{
		FirstCol: firstCol, LastCol: lastCol,
		TopStart: topStart, TopEnd: topEnd, TopStep: (topEnd - topStart) / nCols,
		BottomStart: bottomStart, BottomEnd: bottomEnd, BotStep: (bottomEnd - bottomStart) / nCols,
		ULeft: uLeftZ, URight: uRightZ, UStep: (uRightZ - uLeftZ) / nCols,
		InvZLeft: invz0, InvZRight: invz1, InvZStep: (invz1 - invz0) / nCols,
		WallWorldHeight: ceilingH - floorH,
	}, true
}
