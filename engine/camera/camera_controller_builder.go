package camera

// ControllerBuilderOption is a functional option for configuring a camera
// controller. Use the With* functions to create options.
type ControllerBuilderOption func(*controller)

// WithZoomStep sets the zoom multiplier applied per scroll wheel notch.
//
// Parameters:
//   - step: the multiplier, must be > 1
//
// Returns:
//   - ControllerBuilderOption: option function to apply
func WithZoomStep(step float32) ControllerBuilderOption {
	return func(c *controller) {
		if step > 1 {
			c.zoomStep = step
		}
	}
}
