package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}

	assert.True(t, a.Intersects(Rect{X: 5, Y: 5, W: 10, H: 10}))
	assert.True(t, a.Intersects(Rect{X: -5, Y: -5, W: 10, H: 10}))
	assert.False(t, a.Intersects(Rect{X: 20, Y: 0, W: 10, H: 10}))

	// Touching edges do not overlap.
	assert.False(t, a.Intersects(Rect{X: 10, Y: 0, W: 10, H: 10}))
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 5, H: 5}

	assert.True(t, r.Contains(10, 10))
	assert.True(t, r.Contains(14.9, 14.9))
	assert.False(t, r.Contains(15, 10))
	assert.False(t, r.Contains(10, 15))
	assert.False(t, r.Contains(9.9, 10))
}

func TestRectExpand(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 30, H: 40}.Expand(5)
	assert.Equal(t, Rect{X: 5, Y: 15, W: 40, H: 50}, r)
}

func TestSpriteBoundsUnrotated(t *testing.T) {
	b := SpriteBounds(100, 100, 20, 10, 2, 3, 0)
	assert.InDelta(t, 80, b.X, 1e-4)
	assert.InDelta(t, 85, b.Y, 1e-4)
	assert.InDelta(t, 40, b.W, 1e-4)
	assert.InDelta(t, 30, b.H, 1e-4)
}

func TestSpriteBoundsRotated(t *testing.T) {
	// A quarter turn swaps the extents.
	b := SpriteBounds(0, 0, 20, 10, 1, 1, math32.Pi/2)
	assert.InDelta(t, 10, b.W, 1e-3)
	assert.InDelta(t, 20, b.H, 1e-3)

	// A 45 degree turn of a square grows the bounds by sqrt(2).
	b = SpriteBounds(0, 0, 10, 10, 1, 1, math32.Pi/4)
	assert.InDelta(t, 10*math32.Sqrt2, b.W, 1e-3)
	assert.InDelta(t, 10*math32.Sqrt2, b.H, 1e-3)
}
