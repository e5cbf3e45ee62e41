package scene

import "github.com/emberforge/ember/engine/camera"

// SceneBuilderOption is a functional option for configuring a scene.
// Use the With* functions to create options.
type SceneBuilderOption func(*sceneImpl)

// WithCamera attaches a camera to the scene during construction.
//
// Parameters:
//   - cam: the camera providing the view transform
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.cam = cam
	}
}

// WithActive marks the scene active during construction.
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive() SceneBuilderOption {
	return func(s *sceneImpl) {
		s.active = true
	}
}

// WithCullingDisabled disables view culling so every sprite is drawn.
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCullingDisabled() SceneBuilderOption {
	return func(s *sceneImpl) {
		s.cullingDisabled = true
	}
}
