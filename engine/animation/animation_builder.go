package animation

// AnimatorBuilderOption is a functional option for configuring a flipbook
// animator. Use the With* functions to create options.
type AnimatorBuilderOption func(*flipbook)

// WithFPS sets the playback rate in frames per second.
//
// Parameters:
//   - fps: frames per second, must be positive
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithFPS(fps float32) AnimatorBuilderOption {
	return func(a *flipbook) {
		a.fps = fps
	}
}

// WithMode sets the end-of-sequence behavior.
//
// Parameters:
//   - mode: loop, once, or ping-pong
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithMode(mode Mode) AnimatorBuilderOption {
	return func(a *flipbook) {
		a.mode = mode
	}
}
