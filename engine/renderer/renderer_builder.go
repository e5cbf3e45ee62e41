package renderer

// RendererBuilderOption configures a Renderer during construction.
type RendererBuilderOption func(*renderer)

// WithSurface provides the platform surface descriptor and initial size for
// the WebGPU backend. The descriptor is typically obtained from
// window.SurfaceDescriptor(). Without this option the renderer runs
// headless over offscreen targets.
//
// Parameters:
//   - descriptor: the platform-specific *wgpu.SurfaceDescriptor
//   - width, height: the initial surface size in pixels
//
// Returns:
//   - RendererBuilderOption: the option to apply
func WithSurface(descriptor any, width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.surfaceDescriptor = descriptor
		r.surfaceWidth = width
		r.surfaceHeight = height
	}
}

// WithForceFallbackAdapter forces the WebGPU backend to request a software
// fallback adapter, useful on machines without a usable GPU.
//
// Returns:
//   - RendererBuilderOption: the option to apply
func WithForceFallbackAdapter() RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = true
	}
}
