package engine

import (
	"time"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer"
	"github.com/emberforge/ember/engine/scene"
	"github.com/emberforge/ember/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets a custom configured window for the engine to use. The
// engine presents the screen target to the window's surface each frame and
// sizes the screen target to the window. Without a window the engine runs
// headless over offscreen targets.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are rendered in ascending key order during the render loop.
//
// Parameters:
//   - key: the z-index determining render order (lower renders first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}

// WithBackendType selects the renderer backend. The default is the WebGPU
// backend; the reference backend renders on the CPU for headless use and
// tests.
//
// Parameters:
//   - t: the backend type
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackendType(t renderer.BackendType) EngineBuilderOption {
	return func(e *engine) {
		e.backendType = t
	}
}

// WithScreenSize sets the screen target dimensions for headless engines.
// Ignored when a window is configured, since the window dictates the size.
//
// Parameters:
//   - width, height: the screen target size in pixels
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScreenSize(width, height int) EngineBuilderOption {
	return func(e *engine) {
		if width > 0 && height > 0 {
			e.screenWidth = width
			e.screenHeight = height
		}
	}
}

// WithClearColor sets the color the screen target clears to each frame.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClearColor(c common.Color) EngineBuilderOption {
	return func(e *engine) {
		e.clearColor = c
	}
}

// WithForceFallbackAdapter forces the WebGPU backend onto a software
// fallback adapter, useful on machines without a usable GPU.
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithForceFallbackAdapter() EngineBuilderOption {
	return func(e *engine) {
		e.forceFallbackAdapter = true
	}
}
