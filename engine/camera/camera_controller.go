package camera

import (
	"sync"

	"github.com/emberforge/ember/engine/window"
)

// Controller drives a Camera from window input: left-drag pans the view and
// the scroll wheel zooms around the cursor. Attach wires the controller into
// the window's input callbacks.
type Controller interface {
	// Attach registers the controller's input handlers on a window. Existing
	// mouse and scroll callbacks on the window are replaced.
	//
	// Parameters:
	//   - w: the window whose input drives the camera
	Attach(w window.Window)

	// Camera returns the controlled camera.
	Camera() Camera
}

type controller struct {
	mu *sync.Mutex

	cam Camera
	win window.Window

	// zoomStep is the zoom multiplier applied per scroll notch.
	zoomStep float32

	dragging bool
	lastX    int32
	lastY    int32
}

var _ Controller = &controller{}

// NewController creates a controller for a camera with a default scroll zoom
// step of 1.1 per notch.
//
// Parameters:
//   - cam: the camera to control, must not be nil
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the configured controller
func NewController(cam Camera, options ...ControllerBuilderOption) Controller {
	c := &controller{
		mu:       &sync.Mutex{},
		cam:      cam,
		zoomStep: 1.1,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *controller) Camera() Camera {
	return c.cam
}

func (c *controller) Attach(w window.Window) {
	c.mu.Lock()
	c.win = w
	c.mu.Unlock()

	w.SetMouseDownCallback(func(button window.MouseButton, x, y int32) {
		if button != window.MouseButtonLeft {
			return
		}
		c.mu.Lock()
		c.dragging = true
		c.lastX = x
		c.lastY = y
		c.mu.Unlock()
	})

	w.SetMouseUpCallback(func(button window.MouseButton, x, y int32) {
		if button != window.MouseButtonLeft {
			return
		}
		c.mu.Lock()
		c.dragging = false
		c.mu.Unlock()
	})

	w.SetMouseMoveCallback(func(x, y int32) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.dragging {
			return
		}
		zoom := c.cam.Zoom()
		// Dragging moves the world with the cursor, so the camera moves the
		// opposite way, scaled into world units.
		c.cam.Move(-float32(x-c.lastX)/zoom, -float32(y-c.lastY)/zoom)
		c.lastX = x
		c.lastY = y
	})

	w.SetScrollCallback(func(delta float32) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if delta > 0 {
			c.cam.ZoomBy(c.zoomStep)
		} else if delta < 0 {
			c.cam.ZoomBy(1 / c.zoomStep)
		}
	})
}
