// Package frustum classifies points and edges against the view frustum and
// clips edges that straddle it. It is deliberately agnostic to whether it is
// called in the local view frame (viewer at origin, looking down +X, used
// once a segment has been transformed into view space) or in world space
// (used by the BSP walker's bounding-box culling test, §4.6), both are just
// a Classifier built from a position, a forward direction, and a
// half-field-of-view.
package frustum

import (
	"math"

	"github.com/waddoom/gorender/geom"
)

func mathSincos(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a))
	return float32(s), float32(c)
}

// Outcode is the 3-bit classification of a point against the view frustum.
//
// Bit 0 (0b001, OutRight) and bit 1 (0b010, OutLeft) are the two frustum
// side half-plane tests; bit 2 (0b100, Behind) is the forward half-plane
// test.
//
// The sign convention deliberately matches the reference implementation and
// is the opposite of the usual Cohen-Sutherland convention: a bit is set
// when the point lies on the inner side of its half-plane, so all three set
// (0b111) denotes inside, and a point behind the viewer has Behind clear.
// Do not "fix" this, EdgeVisible and ClipEdge are a contract with this
// exact encoding.
type Outcode uint8

const (
	OutRight Outcode = 1 << 0
	OutLeft  Outcode = 1 << 1
	Behind   Outcode = 1 << 2
	Inside   Outcode = OutRight | OutLeft | Behind
)

// Classifier bundles the viewer pose needed to classify points/edges: a
// position, a forward direction, and the inward normals of the two frustum
// edges (left and right), derived from the half field of view.
type Classifier struct {
	Pos                geom.Vec2
	Dir                geom.Vec2
	Left, Right        geom.Vec2 // frustum edge directions
	LeftNorm, RightNorm geom.Vec2
	TanHalfFOV         float32
}

// NewClassifier builds a Classifier for a viewer at pos looking along dir
// (must be a unit vector) with the given horizontal field of view in
// radians.
func NewClassifier(pos, dir geom.Vec2, fovRadians float32) *Classifier {
	half := fovRadians / 2
	left := geom.Rotate(dir, -half)
	right := geom.Rotate(dir, half)
	return &Classifier{
		Pos:        pos,
		Dir:        dir,
		Left:       left,
		Right:      right,
		LeftNorm:   geom.Normal2(left),
		RightNorm:  geom.Vec2{right.Y(), -right.X()},
		TanHalfFOV: tan(half),
	}
}

func tan(a float32) float32 {
	s, c := mathSincos(a)
	return s / c
}

// ClassifyPoint returns the 3-bit outcode of p against c's frustum.
func (c *Classifier) ClassifyPoint(p geom.Vec2) Outcode {
	d := c.Pos.Sub(p)
	var o Outcode
	if d.Dot(c.LeftNorm) < 0 {
		o |= OutRight
	}
	if d.Dot(c.RightNorm) < 0 {
		o |= OutLeft
	}
	if d.Dot(c.Dir) < 0 {
		o |= Behind
	}
	return o
}

// ClassifyEdge returns the outcodes of both endpoints.
func (c *Classifier) ClassifyEdge(p0, p1 geom.Vec2) (Outcode, Outcode) {
	return c.ClassifyPoint(p0), c.ClassifyPoint(p1)
}

// EdgeVisible applies the §4.2 visibility rules, in order, to a pair of
// already-classified endpoints.
func (c *Classifier) EdgeVisible(p0, p1 geom.Vec2, c0, c1 Outcode) bool {
	if c0 == Inside || c1 == Inside {
		return true
	}
	x := c0 ^ c1
	if x == 0 {
		return false
	}
	if x == (OutRight|OutLeft) && c0&Behind != 0 {
		return true
	}
	if x == Inside { // 0b111: crosses both the rear half-plane and a side
		p, err := geom.LineIntersection(p0, p1, c.Pos, c.Pos.Add(c.Dir))
		if err != nil {
			return false
		}
		dist := p.Sub(c.Pos).Dot(c.Dir)
		return dist > 0
	}
	return false
}

// ClipEdge replaces any endpoint that is not fully inside with the
// intersection of the edge against whichever frustum ray that endpoint
// violates. It assumes EdgeVisible has already returned true for (p0,p1,
// c0,c1), in particular it never re-checks the same-outside-side case that
// EdgeVisible rejects (§9 Open Question: that guarantee is the caller's
// responsibility, not re-verified here to avoid redundant work on the
// per-segment hot path).
func (c *Classifier) ClipEdge(p0, p1 geom.Vec2, c0, c1 Outcode) (geom.Vec2, geom.Vec2, error) {
	if c0 == Inside && c1 == Inside {
		return p0, p1, nil
	}

	if c0 == Inside || c1 == Inside {
		// p0 inside => p1 is the outside point to clip, and vice versa.
		p0IsInside := c0 == Inside
		outCode := c1
		if !p0IsInside {
			outCode = c0
		}

		var clipped geom.Vec2
		var err error
		switch {
		case outCode&OutLeft != 0:
			clipped, err = geom.LineIntersection(c.Pos, c.Pos.Add(c.Left), p0, p1)
		case outCode&OutRight != 0:
			clipped, err = geom.LineIntersection(c.Pos, c.Pos.Add(c.Right), p0, p1)
		default:
			// Neither bit set: tie-break on the forward dot of the
			// left-ray intersection.
			pl, lerr := geom.LineIntersection(c.Pos, c.Pos.Add(c.Left), p0, p1)
			if lerr != nil {
				return p0, p1, lerr
			}
			if c.Pos.Sub(pl).Dot(c.Dir) < 0 {
				clipped, err = pl, nil
			} else {
				clipped, err = geom.LineIntersection(c.Pos, c.Pos.Add(c.Right), p0, p1)
			}
		}
		if err != nil {
			return p0, p1, err
		}
		if p0IsInside {
			return p0, clipped, nil
		}
		return clipped, p1, nil
	}

	// Both endpoints outside: p0 clipped against the right ray, p1 against
	// the left ray.
	np0, err := geom.LineIntersection(c.Pos, c.Pos.Add(c.Right), p0, p1)
	if err != nil {
		return p0, p1, err
	}
	np1, err := geom.LineIntersection(c.Pos, c.Pos.Add(c.Left), p0, p1)
	if err != nil {
		return p0, p1, err
	}
	return np0, np1, nil
}
