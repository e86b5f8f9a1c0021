package gorender

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waddoom/gorender/colspan"
	"github.com/waddoom/gorender/config"
	"github.com/waddoom/gorender/geom"
	"github.com/waddoom/gorender/mapdata"
	"github.com/waddoom/gorender/texture"
)

func testConfig() config.RendererConfig {
	return config.RendererConfig{ResWidth: 320, ResHeight: 200, FOVDegrees: 90, WallHeightScale: 1.0, EyeHeight: 32}
}

func solidTexture(w, h int, c color.RGBA) *texture.Texture {
	tex := texture.New(w, h)
	for i := range tex.Pixels {
		tex.Pixels[i] = c
	}
	return tex
}

func cacheWith(names map[string]*texture.Texture) *texture.Cache {
	c, err := texture.NewCache()
	if err != nil {
		panic(err)
	}
	for name, tex := range names {
		c.Put(name, tex)
	}
	return c
}

// singleSolidWallMap mirrors colspan's TestBuildCenteredWall fixture: a
// one-sided wall at x=10 spanning y in [-5, 5], sector floor=0 ceiling=64.
func singleSolidWallMap() *mapdata.Map {
	return &mapdata.Map{
		Vertexes: []mapdata.Vertex{{X: 10, Y: -5}, {X: 10, Y: 5}},
		LineDefs: []mapdata.LineDef{{StartVert: 0, EndVert: 1, FrontSide: 0, BackSide: mapdata.NoSide}},
		SideDefs: []mapdata.SideDef{{Sector: 0, Middle: "WALL", Upper: mapdata.NoTexture, Lower: mapdata.NoTexture}},
		Segs:     []mapdata.Seg{{StartVert: 0, EndVert: 1, Angle: float32(-math.Pi / 2), LineDef: 0, Direction: 0}},
		SubSectors: []mapdata.SubSector{{StartSeg: 0, NSegs: 1}},
		Sectors:  []mapdata.Sector{{FloorHeight: 0, CeilingHeight: 64}},
	}
}

func TestRenderSingleSolidWallClosesExpectedColumns(t *testing.T) {
	m := singleSolidWallMap()
	textures := cacheWith(map[string]*texture.Texture{"WALL": solidTexture(4, 64, color.RGBA{R: 255, A: 255})})
	r := New(m, textures, testConfig(), nil)

	strips := r.Render(Viewer{Pos: geom.Vec2{0, 0}, Yaw: 0, EyeHeight: 32})
	require.NotEmpty(t, strips)

	cols := make(map[int]int)
	for _, s := range strips {
		cols[s.Column]++
	}
	// Matches colspan.TestBuildCenteredWall: columns 80..239 of 320.
	assert.Len(t, cols, 160)
	for col := 80; col < 240; col++ {
		assert.Equalf(t, 1, cols[col], "column %d should be drawn exactly once", col)
	}
}

func TestRenderBackFaceWallProducesNoStrips(t *testing.T) {
	m := singleSolidWallMap()
	textures := cacheWith(map[string]*texture.Texture{"WALL": solidTexture(4, 64, color.RGBA{R: 255, A: 255})})
	r := New(m, textures, testConfig(), nil)

	strips := r.Render(Viewer{Pos: geom.Vec2{20, 0}, Yaw: 0, EyeHeight: 32})
	assert.Empty(t, strips)
}

func TestRenderMissingTextureStillClosesColumnsWithoutStrips(t *testing.T) {
	m := singleSolidWallMap()
	textures := cacheWith(nil) // "WALL" never composed: TextureMissing, non-fatal.
	r := New(m, textures, testConfig(), nil)

	strips := r.Render(Viewer{Pos: geom.Vec2{0, 0}, Yaw: 0, EyeHeight: 32})
	assert.Empty(t, strips)
	// The wall still entered the solid clip buffer: its columns are occluded.
	assert.Empty(t, r.frame.Clip.ClipSolid(colspan.Span{FirstCol: 80, LastCol: 239}))
}

// portalMap is the same wall geometry as singleSolidWallMap but two-sided,
// front sector ceiling=64 and back sector ceiling=48, per §8 scenario 5.
func portalMap() *mapdata.Map {
	return &mapdata.Map{
		Vertexes: []mapdata.Vertex{{X: 10, Y: -5}, {X: 10, Y: 5}},
		LineDefs: []mapdata.LineDef{{StartVert: 0, EndVert: 1, FrontSide: 0, BackSide: 1}},
		SideDefs: []mapdata.SideDef{
			{Sector: 0, Upper: "STEP", Middle: mapdata.NoTexture, Lower: mapdata.NoTexture},
			{Sector: 1, Upper: mapdata.NoTexture, Middle: mapdata.NoTexture, Lower: mapdata.NoTexture},
		},
		Segs:       []mapdata.Seg{{StartVert: 0, EndVert: 1, Angle: float32(-math.Pi / 2), LineDef: 0, Direction: 0}},
		SubSectors: []mapdata.SubSector{{StartSeg: 0, NSegs: 1}},
		Sectors: []mapdata.Sector{
			{FloorHeight: 0, CeilingHeight: 64},
			{FloorHeight: 0, CeilingHeight: 48},
		},
	}
}

func TestRenderPortalUpperStepDoesNotOccludeColumns(t *testing.T) {
	m := portalMap()
	textures := cacheWith(map[string]*texture.Texture{"STEP": solidTexture(4, 16, color.RGBA{G: 255, A: 255})})
	r := New(m, textures, testConfig(), nil)

	// Eye height 56 sits between the two ceilings (48 and 64), so the
	// 16-unit upper step projects onto the screen at depth 10.
	strips := r.Render(Viewer{Pos: geom.Vec2{0, 0}, Yaw: 0, EyeHeight: 56})
	require.NotEmpty(t, strips)
	for _, s := range strips {
		assert.NotEmpty(t, s.Pixels)
	}
	// A second identical render (Render resets frame state first) produces
	// the same strip count.
	again := r.Render(Viewer{Pos: geom.Vec2{0, 0}, Yaw: 0, EyeHeight: 56})
	assert.Len(t, again, len(strips))
	// Portals never contribute to the solid clip buffer: after rendering
	// one, a solid span over the same columns is still fully visible.
	assert.Len(t, r.frame.Clip.ClipSolid(colspan.Span{FirstCol: 80, LastCol: 240}), 1)
}

// twoLeafMap splits the map plane at x=10 into two subsectors, each a
// single one-sided wall referencing a distinct sector, for SectorSearch.
func twoLeafMap() *mapdata.Map {
	const leafBit = 1 << 15
	return &mapdata.Map{
		Vertexes: []mapdata.Vertex{{X: 0, Y: -5}, {X: 0, Y: 5}, {X: 20, Y: -5}, {X: 20, Y: 5}},
		LineDefs: []mapdata.LineDef{
			{StartVert: 0, EndVert: 1, FrontSide: 0, BackSide: mapdata.NoSide},
			{StartVert: 2, EndVert: 3, FrontSide: 1, BackSide: mapdata.NoSide},
		},
		SideDefs: []mapdata.SideDef{{Sector: 0}, {Sector: 1}},
		Segs: []mapdata.Seg{
			{StartVert: 0, EndVert: 1, LineDef: 0, Direction: 0},
			{StartVert: 2, EndVert: 3, LineDef: 1, Direction: 0},
		},
		SubSectors: []mapdata.SubSector{{StartSeg: 0, NSegs: 1}, {StartSeg: 1, NSegs: 1}},
		Nodes: []mapdata.Node{{
			PartStart:  [2]float32{10, 0},
			PartDir:    [2]float32{0, 1},
			RightBBox:  mapdata.BBox{Left: 10, Right: 100, Bottom: -100, Top: 100},
			LeftBBox:   mapdata.BBox{Left: -100, Right: 10, Bottom: -100, Top: 100},
			RightChild: leafBit | 1,
			LeftChild:  leafBit | 0,
		}},
		Sectors: []mapdata.Sector{
			{FloorHeight: 0, CeilingHeight: 64},
			{FloorHeight: 0, CeilingHeight: 64},
		},
	}
}

func TestSectorSearchPicksNearSideSector(t *testing.T) {
	m := twoLeafMap()
	r := New(m, cacheWith(nil), testConfig(), nil)

	assert.Equal(t, 0, r.SectorSearch(geom.Vec2{0, 0}))
	assert.Equal(t, 1, r.SectorSearch(geom.Vec2{20, 0}))
}

func TestBboxVisibleViewerInsideBBoxIsAlwaysVisible(t *testing.T) {
	m := singleSolidWallMap()
	r := New(m, cacheWith(nil), testConfig(), nil)

	bbox := mapdata.BBox{Left: -10, Right: 10, Bottom: -10, Top: 10}
	assert.True(t, r.bboxVisible(bbox, Viewer{Pos: geom.Vec2{0, 0}, Yaw: 0}))
}

func TestBboxVisibleBoxBehindViewerIsNotVisible(t *testing.T) {
	m := singleSolidWallMap()
	r := New(m, cacheWith(nil), testConfig(), nil)

	bbox := mapdata.BBox{Left: -50, Right: -40, Bottom: -5, Top: 5}
	assert.False(t, r.bboxVisible(bbox, Viewer{Pos: geom.Vec2{0, 0}, Yaw: 0}))
}
