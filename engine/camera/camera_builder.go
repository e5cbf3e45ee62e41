package camera

// CameraBuilderOption is a functional option for configuring a camera.
// Use the With* functions to create options.
type CameraBuilderOption func(*camera)

// WithPosition sets the initial world-space center of the view.
//
// Parameters:
//   - x, y: the world-space center
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithPosition(x, y float32) CameraBuilderOption {
	return func(c *camera) {
		c.x = x
		c.y = y
	}
}

// WithZoom sets the initial zoom factor.
//
// Parameters:
//   - zoom: the zoom factor, 1 maps one world unit to one pixel
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithZoom(zoom float32) CameraBuilderOption {
	return func(c *camera) {
		c.zoom = zoom
	}
}

// WithZoomLimits sets the minimum and maximum zoom factors enforced by
// SetZoom and ZoomBy.
//
// Parameters:
//   - minZoom, maxZoom: the zoom bounds, both must be positive
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithZoomLimits(minZoom, maxZoom float32) CameraBuilderOption {
	return func(c *camera) {
		if minZoom > 0 {
			c.minZoom = minZoom
		}
		if maxZoom >= c.minZoom {
			c.maxZoom = maxZoom
		}
	}
}
