// Package mapdata holds the load-lifetime, read-only level representation:
// vertices, line/side definitions, sectors, and the pre-built BSP tree
// (nodes, sub-sectors, segs). All of it is produced once by a loader (the
// wad package, or a synthetic test builder) and shared read-only with the
// renderer for as many frames as the level is active, per §3.
package mapdata

import "fmt"

// ErrMapMalformed is returned by Map.Validate when the decoded level is
// structurally invalid: a dangling side or sector index, or a sub-sector
// whose seg range runs past the seg table. Lump-size errors are reported
// by the wad package as wad.ErrWadMalformed. It is fatal, surfaced to the
// caller before rendering starts (§7).
type ErrMapMalformed struct {
	Reason string
}

func (e *ErrMapMalformed) Error() string {
	return fmt.Sprintf("map malformed: %s", e.Reason)
}

// Vertex is an immutable (x, y) map-unit coordinate.
type Vertex struct {
	X, Y float32
}

// NoSide marks a LineDef.BackSide (or FrontSide, in malformed data) as
// absent.
const NoSide = -1

// LineDef is a 2D wall edge between two vertices, carrying references to one
// or two SideDefs. BackSide == NoSide means a solid, one-sided wall.
type LineDef struct {
	StartVert, EndVert int
	FrontSide          int
	BackSide           int
}

// Solid reports whether the LineDef is a one-sided, fully opaque wall.
func (l LineDef) Solid() bool { return l.BackSide == NoSide }

// SideDef is the visible face of a LineDef on one side. Texture names are
// either a real name or "-" for "no texture" (§6).
type SideDef struct {
	XOffset, YOffset     float32
	Upper, Middle, Lower string
	Sector               int
}

// NoTexture is the sentinel texture name meaning "no texture, occlusion
// update only" (§6, §4.5).
const NoTexture = "-"

// Seg is a straight, possibly partial subdivision of a LineDef produced by
// the BSP builder, the unit the renderer actually draws.
type Seg struct {
	StartVert, EndVert int
	Angle              float32 // radians
	LineDef            int
	Direction          int // 0 or 1; 1 swaps front/back sides of the parent LineDef
	Offset             float32
}

// SubSector is a convex BSP leaf: a contiguous run of segs.
type SubSector struct {
	StartSeg, NSegs int
}

// leafBit marks a BSP child index as a sub-sector leaf rather than another
// Node (§4.6, §9: kept exactly, decoding wrapped in DecodeChild below).
const leafBit = 1 << 15

// Child is the result of decoding a Node's left/right child index: either
// another Node (by index into Map.Nodes) or a SubSector leaf (by index into
// Map.SubSectors).
type Child struct {
	Index  int
	IsLeaf bool
}

// DecodeChild decodes a raw BSP child index per §4.6: bit 15 set marks a
// sub-sector leaf; masking it off yields the sub-sector index.
func DecodeChild(raw uint16) Child {
	if raw&leafBit != 0 {
		return Child{Index: int(raw &^ leafBit), IsLeaf: true}
	}
	return Child{Index: int(raw), IsLeaf: false}
}

// BBox is an axis-aligned bounding box on the 2D map plane.
type BBox struct {
	Left, Bottom, Right, Top float32
}

// Contains reports whether p lies within the (inclusive) bounding box.
func (b BBox) Contains(x, y float32) bool {
	return x >= b.Left && x <= b.Right && y >= b.Bottom && y <= b.Top
}

// Corners returns the four corners of the box in the order the reference
// implementation walks them for its edge-visibility test: top-left,
// top-right, bottom-left, bottom-right.
func (b BBox) Corners() (tl, tr, bl, br [2]float32) {
	return [2]float32{b.Left, b.Top}, [2]float32{b.Right, b.Top},
		[2]float32{b.Left, b.Bottom}, [2]float32{b.Right, b.Bottom}
}

// Node is one level of the pre-built BSP tree.
type Node struct {
	PartStart [2]float32 // partition line start point
	PartDir   [2]float32 // partition line direction
	RightBBox BBox
	LeftBBox  BBox
	RightChild uint16
	LeftChild  uint16
}

// Sector is a logical region with a common floor/ceiling height and
// textures, referenced by SideDefs.
type Sector struct {
	FloorHeight, CeilingHeight float32
	FloorTex, CeilingTex       string
	Light                      int
	SpecialType, Tag           int
	Lines                      []int // indices into Map.LineDefs that border this sector
}

// Map is the complete, immutable, load-lifetime level representation handed
// to the renderer. All slices are owned by whichever loader built the Map
// (the wad package, or a test fixture) and are shared read-only with the
// renderer for the duration of the level.
type Map struct {
	Vertexes   []Vertex
	LineDefs   []LineDef
	SideDefs   []SideDef
	Segs       []Seg
	SubSectors []SubSector
	Nodes      []Node
	Sectors    []Sector
}

// RootNode returns the index of the BSP root, which by convention is the
// last entry in Nodes.
func (m *Map) RootNode() int {
	return len(m.Nodes) - 1
}

// Validate checks the structural invariants the loader is responsible for
// maintaining (§7): every side/sector index must resolve, and every sector
// referenced by a side must exist.
func (m *Map) Validate() error {
	for i, ld := range m.LineDefs {
		if ld.FrontSide < 0 || ld.FrontSide >= len(m.SideDefs) {
			return &ErrMapMalformed{Reason: fmt.Sprintf("linedef %d: front side %d out of range", i, ld.FrontSide)}
		}
		if ld.BackSide != NoSide && (ld.BackSide < 0 || ld.BackSide >= len(m.SideDefs)) {
			return &ErrMapMalformed{Reason: fmt.Sprintf("linedef %d: back side %d out of range", i, ld.BackSide)}
		}
	}
	for i, sd := range m.SideDefs {
		if sd.Sector < 0 || sd.Sector >= len(m.Sectors) {
			return &ErrMapMalformed{Reason: fmt.Sprintf("sidedef %d: sector %d out of range", i, sd.Sector)}
		}
	}
	for i, sub := range m.SubSectors {
		if sub.StartSeg < 0 || sub.StartSeg+sub.NSegs > len(m.Segs) {
			return &ErrMapMalformed{Reason: fmt.Sprintf("subsector %d: seg range out of bounds", i)}
		}
	}
	return nil
}

// AddLineDefsToSectors populates each Sector's Lines field from the
// LineDef/SideDef tables, a port of the original loader's
// add_linedefs_to_sector, run once after the raw lumps are decoded.
func (m *Map) AddLineDefsToSectors() {
	for i := range m.Sectors {
		m.Sectors[i].Lines = m.Sectors[i].Lines[:0]
	}
	for i, ld := range m.LineDefs {
		if ld.FrontSide != NoSide {
			s := m.SideDefs[ld.FrontSide].Sector
			m.Sectors[s].Lines = append(m.Sectors[s].Lines, i)
		}
		if ld.BackSide != NoSide {
			s := m.SideDefs[ld.BackSide].Sector
			m.Sectors[s].Lines = append(m.Sectors[s].Lines, i)
		}
	}
}
