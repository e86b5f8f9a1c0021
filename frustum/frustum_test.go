package frustum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waddoom/gorender/geom"
)

func newTestClassifier() *Classifier {
	return NewClassifier(geom.Vec2{0, 0}, geom.Vec2{1, 0}, float32(math.Pi/2))
}

func TestClassifyPointInside(t *testing.T) {
	c := newTestClassifier()
	oc := c.ClassifyPoint(geom.Vec2{10, 0})
	assert.Equal(t, Inside, oc)
}

func TestClassifyPointBehind(t *testing.T) {
	c := newTestClassifier()
	// A point behind the viewer fails the forward half-plane test, so the
	// Behind bit (set only when (pos-p).dot(dir) < 0, i.e. p is in front)
	// is clear here, not set, see the Outcode doc comment.
	oc := c.ClassifyPoint(geom.Vec2{-10, 0})
	assert.Equal(t, Outcode(0), oc&Behind)
}

func TestEdgeVisibleBothInside(t *testing.T) {
	c := newTestClassifier()
	p0, p1 := geom.Vec2{10, -1}, geom.Vec2{10, 1}
	c0, c1 := c.ClassifyEdge(p0, p1)
	assert.True(t, c.EdgeVisible(p0, p1, c0, c1))
}

func TestEdgeVisibleSameOutsideSide(t *testing.T) {
	c := newTestClassifier()
	// Both points far to the right of the frustum, same side.
	p0, p1 := geom.Vec2{10, -50}, geom.Vec2{20, -60}
	c0, c1 := c.ClassifyEdge(p0, p1)
	assert.False(t, c.EdgeVisible(p0, p1, c0, c1))
}

func TestClipEdgeUnchangedWhenBothInside(t *testing.T) {
	c := newTestClassifier()
	p0, p1 := geom.Vec2{10, -1}, geom.Vec2{10, 1}
	c0, c1 := c.ClassifyEdge(p0, p1)
	require.Equal(t, Inside, c0)
	require.Equal(t, Inside, c1)
	np0, np1, err := c.ClipEdge(p0, p1, c0, c1)
	require.NoError(t, err)
	assert.Equal(t, p0, np0)
	assert.Equal(t, p1, np1)
}

func TestClipEdgeStraddlingLeft(t *testing.T) {
	c := newTestClassifier()
	// Wide wall straddling the frustum: one end far outside, one well inside.
	p0, p1 := geom.Vec2{10, -20}, geom.Vec2{10, 1}
	c0, c1 := c.ClassifyEdge(p0, p1)
	np0, np1, err := c.ClipEdge(p0, p1, c0, c1)
	require.NoError(t, err)
	// The clipped p0 should now sit on the left frustum ray (y == -x at 45deg).
	assert.InDelta(t, -np0.X(), np0.Y(), 1e-3)
	assert.Equal(t, p1, np1)
}
