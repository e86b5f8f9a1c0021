// Package gorender ties the geometry kernel, view classifier, clip-range
// buffer, column-span computer, and rasterizer together into the BSP walker
// described in §4.6: a front-to-back traversal that turns a Viewer pose and
// a Map into the frame's ordered list of textured strips.
package gorender

import (
	"math"

	"github.com/waddoom/gorender/clipbuf"
	"github.com/waddoom/gorender/colspan"
	"github.com/waddoom/gorender/config"
	"github.com/waddoom/gorender/frustum"
	"github.com/waddoom/gorender/geom"
	"github.com/waddoom/gorender/logging"
	"github.com/waddoom/gorender/mapdata"
	"github.com/waddoom/gorender/raster"
	"github.com/waddoom/gorender/texture"
)

// Viewer is the pose the BSP walker renders from: a map-plane position, a
// yaw in radians (0 = looking down +X), and an eye height in map units
// added above the current sector's floor.
type Viewer struct {
	Pos       geom.Vec2
	Yaw       float32
	EyeHeight float32
}

// FrameState is the frame-lifetime mutable state §3 calls out as owned
// exclusively by the renderer: the per-column occlusion bounds and the
// solid-wall clip-range buffer. Renderer resets it at the start of every
// call to Render.
type FrameState struct {
	Bounds raster.Bounds
	Clip   *clipbuf.Buffer
}

// NewFrameState allocates a FrameState sized for resW screen columns and
// resH screen rows, already reset.
func NewFrameState(resW, resH int) *FrameState {
	f := &FrameState{
		Bounds: raster.Bounds{Top: make([]float32, resW), Bottom: make([]float32, resW)},
		Clip:   clipbuf.New(resW),
	}
	f.Reset(resH)
	return f
}

// Reset restores the per-frame state to §4.6 step 1: top_bound[*] = 0,
// bottom_bound[*] = resH, clip ranges back to their two sentinels.
func (f *FrameState) Reset(resH int) {
	for i := range f.Bounds.Top {
		f.Bounds.Top[i] = 0
		f.Bounds.Bottom[i] = float32(resH)
	}
	f.Clip.Reset()
}

// Renderer owns the load-lifetime Map and composed Textures, the frame
// projection Params derived from a RendererConfig, and the FrameState
// mutated once per Render call.
type Renderer struct {
	Map      *mapdata.Map
	Textures *texture.Cache
	Config   config.RendererConfig
	Logger   logging.Logger

	frame  *FrameState
	params colspan.Params
}

// New builds a Renderer over m and textures, sized and projected per cfg.
// A nil logger is replaced with a no-op one. During Render the renderer
// logs only a warning for each texture name missing from the cache.
func New(m *mapdata.Map, textures *texture.Cache, cfg config.RendererConfig, logger logging.Logger) *Renderer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	fovRadians := float32(cfg.FOVDegrees * math.Pi / 180)
	return &Renderer{
		Map:      m,
		Textures: textures,
		Config:   cfg,
		Logger:   logger,
		frame:    NewFrameState(cfg.ResWidth, cfg.ResHeight),
		params: colspan.Params{
			ResW:            cfg.ResWidth,
			ResH:            cfg.ResHeight,
			WallHeightScale: float32(cfg.WallHeightScale),
			FOVRadians:      fovRadians,
		},
	}
}

// texture resolves a SideDef texture name to a composed Texture, per §6:
// "-" (mapdata.NoTexture) is the valid "no texture" sentinel and returns
// nil without logging; any other name absent from the cache is
// TextureMissing (§7), logged and returned as nil so the rasterizer still
// updates occlusion bounds without emitting pixels.
func (r *Renderer) texture(name string) *texture.Texture {
	if name == mapdata.NoTexture || name == "" {
		return nil
	}
	tex, ok := r.Textures.Get(name)
	if !ok {
		r.Logger.Warnf("texture missing: %s", name)
		return nil
	}
	return tex
}

// Render resets frame state and walks the BSP tree front-to-back from the
// root, returning the frame's ordered strip list (§4.6, §6).
func (r *Renderer) Render(view Viewer) []raster.Strip {
	r.frame.Reset(r.Config.ResHeight)
	var out []raster.Strip

	if len(r.Map.Nodes) == 0 {
		// A degenerate single-subsector map has no partition to recurse
		// through; render its one leaf directly.
		if len(r.Map.SubSectors) > 0 {
			r.renderLeaf(r.Map.SubSectors[0], view, &out)
		}
		return out
	}

	r.recurseNode(r.Map.RootNode(), view, &out)
	return out
}

// recurseNode implements §4.6 step 3: visit the near child (the side of
// the partition line the viewer is on) unconditionally, then the far child
// only if its bounding box is frustum-visible.
func (r *Renderer) recurseNode(nodeIdx int, view Viewer, out *[]raster.Strip) {
	node := r.Map.Nodes[nodeIdx]
	partStart := geom.Vec2{node.PartStart[0], node.PartStart[1]}
	partDir := geom.Vec2{node.PartDir[0], node.PartDir[1]}
	side := view.Pos.Sub(partStart).Dot(geom.Normal2(partDir))

	nearRaw, nearBBox, farRaw, farBBox := node.RightChild, node.RightBBox, node.LeftChild, node.LeftBBox
	if side > 0 {
		nearRaw, nearBBox, farRaw, farBBox = node.LeftChild, node.LeftBBox, node.RightChild, node.RightBBox
	}

	r.recurseChild(nearRaw, view, out)
	if r.bboxVisible(farBBox, view) {
		r.recurseChild(farRaw, view, out)
	}
}

// recurseChild decodes a raw BSP child index (§4.6 step 4) and dispatches
// to either another node or a leaf sub-sector.
func (r *Renderer) recurseChild(raw uint16, view Viewer, out *[]raster.Strip) {
	child := mapdata.DecodeChild(raw)
	if child.IsLeaf {
		r.renderLeaf(r.Map.SubSectors[child.Index], view, out)
		return
	}
	r.recurseNode(child.Index, view, out)
}

// bboxVisible implements the §4.6 bounding-box frustum test: a bbox is
// visible if the viewer stands inside it, or if any of its four edges
// passes edge_visible against the view frustum.
func (r *Renderer) bboxVisible(bbox mapdata.BBox, view Viewer) bool {
	if bbox.Contains(view.Pos.X(), view.Pos.Y()) {
		return true
	}

	dir := geom.Rotate(geom.Vec2{1, 0}, view.Yaw)
	c := frustum.NewClassifier(view.Pos, dir, r.params.FOVRadians)

	tl, tr, bl, br := bbox.Corners()
	edges := [4][2]geom.Vec2{
		{toVec2(tl), toVec2(tr)},
		{toVec2(tr), toVec2(br)},
		{toVec2(br), toVec2(bl)},
		{toVec2(bl), toVec2(tl)},
	}
	for _, e := range edges {
		c0, c1 := c.ClassifyEdge(e[0], e[1])
		if c.EdgeVisible(e[0], e[1], c0, c1) {
			return true
		}
	}
	return false
}

func toVec2(p [2]float32) geom.Vec2 { return geom.Vec2{p[0], p[1]} }

// renderLeaf dispatches every seg of a sub-sector to the solid or portal
// path, per §4.6 step 5.
func (r *Renderer) renderLeaf(sub mapdata.SubSector, view Viewer, out *[]raster.Strip) {
	for i := 0; i < sub.NSegs; i++ {
		seg := r.Map.Segs[sub.StartSeg+i]
		linedef := r.Map.LineDefs[seg.LineDef]
		if linedef.Solid() {
			r.renderSolid(seg, linedef, view, out)
		} else {
			r.renderPortal(seg, linedef, view, out)
		}
	}
}

// renderSolid handles a one-sided LineDef: project against its single
// side's sector, clip against the solid buffer, and rasterize each
// resulting sub-span as SOLID using the side's middle texture.
func (r *Renderer) renderSolid(seg mapdata.Seg, linedef mapdata.LineDef, view Viewer, out *[]raster.Strip) {
	side := r.Map.SideDefs[linedef.FrontSide]
	sector := r.Map.Sectors[side.Sector]

	span, ok := colspan.Build(r.Map, seg, sector.CeilingHeight, sector.FloorHeight, view.Pos, view.Yaw, view.EyeHeight, r.params)
	if !ok {
		return
	}

	tex := r.texture(side.Middle)
	for _, sub := range r.frame.Clip.ClipSolid(span) {
		strips := raster.Rasterize(sub, tex, side.XOffset, side.YOffset, raster.Solid, r.frame.Bounds, r.Config.ResHeight)
		*out = append(*out, strips...)
	}
}

// renderPortal handles a two-sided LineDef: resolve front/back sides per
// seg.Direction (§4.6 step 5), then rasterize the UPPER and LOWER step
// textures. Neither contributes to the solid buffer (clipbuf.ClipWindow).
// colspan.Build is called unconditionally for both steps rather than
// gated on a ceiling/floor height-difference check: a portal with no
// step naturally projects to a span whose rasterized strips have zero
// height, so the existing Build/Rasterize contract already produces a
// no-op without a separate guard here.
func (r *Renderer) renderPortal(seg mapdata.Seg, linedef mapdata.LineDef, view Viewer, out *[]raster.Strip) {
	frontIdx, backIdx := linedef.FrontSide, linedef.BackSide
	if seg.Direction == 1 {
		frontIdx, backIdx = backIdx, frontIdx
	}
	frontSide := r.Map.SideDefs[frontIdx]
	backSide := r.Map.SideDefs[backIdx]
	frontSector := r.Map.Sectors[frontSide.Sector]
	backSector := r.Map.Sectors[backSide.Sector]

	if upper, ok := colspan.Build(r.Map, seg, frontSector.CeilingHeight, backSector.CeilingHeight, view.Pos, view.Yaw, view.EyeHeight, r.params); ok {
		tex := r.texture(frontSide.Upper)
		for _, sub := range clipbuf.ClipWindow(upper) {
			strips := raster.Rasterize(sub, tex, frontSide.XOffset, frontSide.YOffset, raster.Upper, r.frame.Bounds, r.Config.ResHeight)
			*out = append(*out, strips...)
		}
	}

	if lower, ok := colspan.Build(r.Map, seg, backSector.FloorHeight, frontSector.FloorHeight, view.Pos, view.Yaw, view.EyeHeight, r.params); ok {
		tex := r.texture(frontSide.Lower)
		for _, sub := range clipbuf.ClipWindow(lower) {
			strips := raster.Rasterize(sub, tex, frontSide.XOffset, frontSide.YOffset, raster.Lower, r.frame.Bounds, r.Config.ResHeight)
			*out = append(*out, strips...)
		}
	}
}
