// Package geom holds the 2D vector and line primitives the renderer builds
// on: rotation, dot products, and line/line intersection in map-unit space.
package geom

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec2 is an alias for the map-unit / view-space 2D vector type used
// throughout the renderer. mathgl's Vec2 gives us Add/Sub/Dot/Len for free;
// rotation and line intersection are not part of mgl32's 2D surface and are
// added below, hand-rolling trig around an mgl32 vector the same way a
// camera's view basis gets built elsewhere in this codebase.
type Vec2 = mgl32.Vec2

// ErrDegenerate is returned by LineIntersection when the two lines are parallel
// (or anti-parallel), i.e. have no unique intersection point.
var ErrDegenerate = errors.New("geom: degenerate (parallel) line pair")

// Rotate returns v rotated by angle radians (counter-clockwise).
func Rotate(v Vec2, angle float32) Vec2 {
	s, c := math.Sincos(float64(angle))
	fs, fc := float32(s), float32(c)
	return Vec2{v.X()*fc - v.Y()*fs, v.X()*fs + v.Y()*fc}
}

// Normal2 returns the 2D normal of v obtained by a +90 degree rotation:
// (x, y) -> (-y, x).
func Normal2(v Vec2) Vec2 {
	return Vec2{-v.Y(), v.X()}
}

// LineIntersection computes the intersection point of the infinite lines
// through (p0,p1) and (p2,p3) using the standard A·x+B·y=C form. It returns
// ErrDegenerate when the two lines are parallel; the renderer never calls
// this in a parallel-line configuration by construction (the view
// classifier filters those cases before clipping).
func LineIntersection(p0, p1, p2, p3 Vec2) (Vec2, error) {
	a1 := p1.Y() - p0.Y()
	b1 := p0.X() - p1.X()
	c1 := a1*p0.X() + b1*p0.Y()

	a2 := p3.Y() - p2.Y()
	b2 := p2.X() - p3.X()
	c2 := a2*p2.X() + b2*p2.Y()

	det := a1*b2 - a2*b1
	if det == 0 {
		return Vec2{}, ErrDegenerate
	}

	x := (b2*c1 - b1*c2) / det
	y := (a1*c2 - a2*c1) / det
	return Vec2{x, y}, nil
}
