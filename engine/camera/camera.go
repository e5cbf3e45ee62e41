// package camera provides the 2D view transform: a world-space center point
// and a zoom factor mapping world coordinates to screen pixels. Scenes apply
// the camera to every sprite before batching, so the shader ABI stays in
// plain pixel space.
package camera

import (
	"sync"

	"github.com/emberforge/ember/common"
)

// Camera is a 2D view over world space. All entry points are safe for
// concurrent use so input callbacks may move the camera while the render
// loop reads it.
type Camera interface {
	// Position returns the world-space point at the center of the view.
	Position() (float32, float32)

	// SetPosition centers the view on a world-space point.
	//
	// Parameters:
	//   - x, y: the world-space center
	SetPosition(x, y float32)

	// Move shifts the view center by a world-space delta.
	//
	// Parameters:
	//   - dx, dy: the world-space offset to add
	Move(dx, dy float32)

	// Zoom returns the current zoom factor. 1 maps one world unit to one
	// pixel; larger values magnify.
	Zoom() float32

	// SetZoom sets the zoom factor, clamped to the configured limits.
	//
	// Parameters:
	//   - zoom: the new zoom factor
	SetZoom(zoom float32)

	// ZoomBy multiplies the zoom factor, clamped to the configured limits.
	//
	// Parameters:
	//   - factor: the multiplier, > 1 zooms in
	ZoomBy(factor float32)

	// WorldToScreen maps a world-space point to screen pixels for a given
	// viewport size.
	//
	// Parameters:
	//   - wx, wy: the world-space point
	//   - screenW, screenH: the viewport size in pixels
	//
	// Returns:
	//   - float32, float32: the screen position in pixels
	WorldToScreen(wx, wy, screenW, screenH float32) (float32, float32)

	// ScreenToWorld maps a screen pixel back to world space, the inverse of
	// WorldToScreen.
	//
	// Parameters:
	//   - sx, sy: the screen position in pixels
	//   - screenW, screenH: the viewport size in pixels
	//
	// Returns:
	//   - float32, float32: the world-space point
	ScreenToWorld(sx, sy, screenW, screenH float32) (float32, float32)

	// ViewRect returns the world-space rectangle visible through a viewport,
	// used for sprite culling before batching.
	//
	// Parameters:
	//   - screenW, screenH: the viewport size in pixels
	//
	// Returns:
	//   - common.Rect: the visible world-space rectangle
	ViewRect(screenW, screenH float32) common.Rect
}

type camera struct {
	mu *sync.RWMutex

	x, y float32
	zoom float32

	minZoom float32
	maxZoom float32
}

var _ Camera = &camera{}

// NewCamera creates a camera centered on the origin at zoom 1 with zoom
// limits [0.1, 10], then applies the given options.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the configured camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &camera{
		mu:      &sync.RWMutex{},
		zoom:    1,
		minZoom: 0.1,
		maxZoom: 10,
	}
	for _, opt := range options {
		opt(c)
	}
	c.zoom = common.Clamp(c.zoom, c.minZoom, c.maxZoom)
	return c
}

func (c *camera) Position() (float32, float32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.x, c.y
}

func (c *camera) SetPosition(x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.x = x
	c.y = y
}

func (c *camera) Move(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.x += dx
	c.y += dy
}

func (c *camera) Zoom() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.zoom
}

func (c *camera) SetZoom(zoom float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = common.Clamp(zoom, c.minZoom, c.maxZoom)
}

func (c *camera) ZoomBy(factor float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = common.Clamp(c.zoom*factor, c.minZoom, c.maxZoom)
}

func (c *camera) WorldToScreen(wx, wy, screenW, screenH float32) (float32, float32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return (wx-c.x)*c.zoom + screenW/2, (wy-c.y)*c.zoom + screenH/2
}

func (c *camera) ScreenToWorld(sx, sy, screenW, screenH float32) (float32, float32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return (sx-screenW/2)/c.zoom + c.x, (sy-screenH/2)/c.zoom + c.y
}

func (c *camera) ViewRect(screenW, screenH float32) common.Rect {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w := screenW / c.zoom
	h := screenH / c.zoom
	return common.Rect{X: c.x - w/2, Y: c.y - h/2, W: w, H: h}
}
