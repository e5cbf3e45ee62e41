package renderer

import (
	"image"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
)

// BackendType identifies the rendering backend implementation.
type BackendType int

const (
	// BackendTypeWGPU renders through WebGPU. This is the default.
	BackendTypeWGPU BackendType = iota

	// BackendTypeReference renders on the CPU in linear float space. It has
	// no surface and exists for headless rendering and tests; its output is
	// the definition of correct for every generated effect.
	BackendTypeReference
)

// String returns the name of the backend type.
func (t BackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeReference:
		return "reference"
	default:
		return "unknown"
	}
}

// RendererBackend is the backend abstraction the Renderer drives. The
// renderer validates all submissions before calling into the backend, so
// implementations may assume handles are live and inputs are not stale.
type RendererBackend interface {
	// CompileProgram compiles and stores the backend object for a program
	// on its handle. A failed compile leaves the handle nil.
	CompileProgram(p shader.Program) error

	// ReleaseProgram frees the backend object of a compiled program.
	ReleaseProgram(p shader.Program)

	// InitTarget allocates backing storage for a target.
	InitTarget(t *target.RenderTarget) error

	// ResizeTarget reallocates a target's storage with new dimensions and
	// updates the target's recorded size and generation.
	ResizeTarget(t *target.RenderTarget, width, height uint32) error

	// ReleaseTarget frees a target's backing storage.
	ReleaseTarget(t *target.RenderTarget)

	// CreateTexture allocates an asset texture from staged RGBA pixels.
	CreateTexture(staging *common.TextureStagingData, sampler common.SamplerStagingData) (*target.Texture, error)

	// ReleaseTexture frees an asset texture.
	ReleaseTexture(tex *target.Texture)

	// Clear fills a target with a color.
	Clear(t *target.RenderTarget, c common.Color) error

	// DrawInstanced draws packed sprite instances of the unit quad in one call.
	DrawInstanced(p shader.Program, tex *target.Texture, dst *target.RenderTarget, instances []float32, count int) error

	// DrawQuads draws a pre-transformed clip-space triangle list.
	DrawQuads(p shader.Program, textures []*target.Texture, dst *target.RenderTarget, vertices []float32) error

	// DrawScreenPass draws one full-screen pass onto output.
	DrawScreenPass(p shader.Program, inputs []*target.Texture, output *target.RenderTarget) error

	// ReadPixels reads a target back as an 8-bit image.
	ReadPixels(t *target.RenderTarget) (*image.RGBA, error)

	// ReadPixelsFloat reads a target back as linear float RGBA.
	ReadPixelsFloat(t *target.RenderTarget) ([]float32, error)

	// ConfigureSurface (re)configures the window surface, when one exists.
	ConfigureSurface(width, height int)

	// Present blits a target to the surface and presents it.
	Present(t *target.RenderTarget) error

	// Release frees all backend-held resources.
	Release()
}
