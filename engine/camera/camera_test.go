package camera

import (
	"testing"

	"github.com/emberforge/ember/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldToScreenCentersView(t *testing.T) {
	c := NewCamera(WithPosition(100, 200))

	// The camera center lands in the middle of the viewport.
	sx, sy := c.WorldToScreen(100, 200, 800, 600)
	assert.Equal(t, float32(400), sx)
	assert.Equal(t, float32(300), sy)

	// One world unit right of center is one pixel right at zoom 1.
	sx, _ = c.WorldToScreen(101, 200, 800, 600)
	assert.Equal(t, float32(401), sx)
}

func TestZoomMagnifiesAroundCenter(t *testing.T) {
	c := NewCamera(WithZoom(2))

	sx, sy := c.WorldToScreen(10, -5, 800, 600)
	assert.Equal(t, float32(420), sx)
	assert.Equal(t, float32(290), sy)
}

func TestScreenToWorldRoundTrip(t *testing.T) {
	c := NewCamera(WithPosition(33, -7), WithZoom(1.5))

	cases := [][2]float32{{0, 0}, {400, 300}, {799, 599}, {-20, 1000}}
	for _, p := range cases {
		wx, wy := c.ScreenToWorld(p[0], p[1], 800, 600)
		sx, sy := c.WorldToScreen(wx, wy, 800, 600)
		assert.InDelta(t, p[0], sx, 1e-3)
		assert.InDelta(t, p[1], sy, 1e-3)
	}
}

func TestViewRectShrinksWithZoom(t *testing.T) {
	c := NewCamera(WithPosition(50, 50))

	view := c.ViewRect(800, 600)
	assert.Equal(t, common.Rect{X: -350, Y: -250, W: 800, H: 600}, view)

	c.SetZoom(2)
	view = c.ViewRect(800, 600)
	assert.Equal(t, common.Rect{X: -150, Y: -100, W: 400, H: 300}, view)
}

func TestZoomClampsToLimits(t *testing.T) {
	c := NewCamera()

	c.SetZoom(100)
	assert.Equal(t, float32(10), c.Zoom())
	c.SetZoom(0.0001)
	assert.Equal(t, float32(0.1), c.Zoom())

	// The initial zoom is clamped too.
	clamped := NewCamera(WithZoom(50))
	assert.Equal(t, float32(10), clamped.Zoom())
}

func TestZoomByMultiplies(t *testing.T) {
	c := NewCamera(WithZoom(2))

	c.ZoomBy(2)
	assert.Equal(t, float32(4), c.Zoom())
	c.ZoomBy(0.5)
	assert.Equal(t, float32(2), c.Zoom())
	c.ZoomBy(1000)
	assert.Equal(t, float32(10), c.Zoom())
}

func TestCustomZoomLimits(t *testing.T) {
	c := NewCamera(WithZoomLimits(0.5, 4))

	c.SetZoom(8)
	assert.Equal(t, float32(4), c.Zoom())
	c.SetZoom(0.1)
	assert.Equal(t, float32(0.5), c.Zoom())
}

func TestMoveShiftsCenter(t *testing.T) {
	c := NewCamera(WithPosition(10, 20))

	c.Move(5, -5)
	x, y := c.Position()
	require.Equal(t, float32(15), x)
	require.Equal(t, float32(15), y)
}
