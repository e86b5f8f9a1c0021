package gorender

import (
	"github.com/waddoom/gorender/geom"
	"github.com/waddoom/gorender/mapdata"
)

// SectorSearch implements §4.6's sector_search: the same BSP traversal as
// Render but without rendering or frustum culling, just the near-side
// walk needed for a point-in-sector lookup, since visibility culling has
// nothing to contribute to finding which leaf contains pos.
func (r *Renderer) SectorSearch(pos geom.Vec2) int {
	if len(r.Map.Nodes) == 0 {
		if len(r.Map.SubSectors) == 0 {
			return -1
		}
		return r.sectorOfSubSector(r.Map.SubSectors[0])
	}
	return r.sectorSearchNode(r.Map.RootNode(), pos)
}

func (r *Renderer) sectorSearchNode(nodeIdx int, pos geom.Vec2) int {
	node := r.Map.Nodes[nodeIdx]
	partStart := geom.Vec2{node.PartStart[0], node.PartStart[1]}
	partDir := geom.Vec2{node.PartDir[0], node.PartDir[1]}
	side := pos.Sub(partStart).Dot(geom.Normal2(partDir))

	childRaw := node.RightChild
	if side > 0 {
		childRaw = node.LeftChild
	}

	child := mapdata.DecodeChild(childRaw)
	if child.IsLeaf {
		return r.sectorOfSubSector(r.Map.SubSectors[child.Index])
	}
	return r.sectorSearchNode(child.Index, pos)
}

// sectorOfSubSector returns the sector of a leaf's first seg's front side,
// or its back side if the seg's direction swaps front/back (§4.6).
func (r *Renderer) sectorOfSubSector(sub mapdata.SubSector) int {
	seg := r.Map.Segs[sub.StartSeg]
	linedef := r.Map.LineDefs[seg.LineDef]
	sideIdx := linedef.FrontSide
	if seg.Direction == 1 && linedef.BackSide != mapdata.NoSide {
		sideIdx = linedef.BackSide
	}
	return r.Map.SideDefs[sideIdx].Sector
}
