// package target holds the passive GPU resource holders of the engine:
// Texture and RenderTarget. They carry dimensions, formats, and backend
// handles; allocation and release happen through the renderer, which
// populates the handles.
package target

import (
	"fmt"

	"github.com/emberforge/ember/common"
)

// Texture describes a sampled image resource. A Texture is either an asset
// texture created from staged pixels, or a read view of a RenderTarget
// obtained from AsReadTexture. Read views carry a generation stamp; resizing
// the owning target invalidates them.
type Texture struct {
	width   uint32
	height  uint32
	format  common.TextureFormat
	sampler common.SamplerStagingData

	owner *RenderTarget
	stamp uint64

	handle any
}

// NewTexture creates a texture descriptor with the given dimensions and
// options applied. The backend allocates the GPU resource when the texture
// is created through the renderer.
//
// Parameters:
//   - width: texture width in pixels, must be > 0
//   - height: texture height in pixels, must be > 0
//   - opts: builder options for format and sampling
//
// Returns:
//   - *Texture: the texture descriptor
//   - error: an error when dimensions are zero
func NewTexture(width, height uint32, opts ...TextureOption) (*Texture, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: texture dimensions must be positive, got %dx%d",
			common.ErrContractViolation, width, height)
	}
	t := &Texture{width: width, height: height}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Width returns the texture width in pixels.
func (t *Texture) Width() uint32 { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() uint32 { return t.height }

// Format returns the pixel format fixed at creation.
func (t *Texture) Format() common.TextureFormat { return t.format }

// Sampler returns the sampling configuration for this texture.
func (t *Texture) Sampler() common.SamplerStagingData { return t.sampler }

// Owner returns the render target this texture is a read view of, or nil
// for asset textures.
func (t *Texture) Owner() *RenderTarget { return t.owner }

// Stale reports whether this read view was invalidated by a resize of its
// owning target. Asset textures are never stale.
//
// Returns:
//   - bool: true when the owner's generation has moved past this view's stamp
func (t *Texture) Stale() bool {
	return t.owner != nil && t.stamp != t.owner.generation
}

// Handle returns the backend-specific resource for this texture.
func (t *Texture) Handle() any { return t.handle }

// SetHandle stores the backend-specific resource. Called by the renderer
// backend, not by application code.
func (t *Texture) SetHandle(h any) { t.handle = h }

// RenderTarget is an offscreen drawing surface with a backing texture of a
// fixed format. Resize reallocates the backing storage and bumps the
// generation, invalidating previously obtained read views.
type RenderTarget struct {
	width      uint32
	height     uint32
	format     common.TextureFormat
	sampler    common.SamplerStagingData
	clearColor common.Color
	generation uint64

	handle any
}

// NewRenderTarget creates a render target descriptor with the given
// dimensions and options applied. The backend allocates storage when the
// target is initialized through the renderer.
//
// Parameters:
//   - width: target width in pixels, must be > 0
//   - height: target height in pixels, must be > 0
//   - opts: builder options for format, sampling, and clear color
//
// Returns:
//   - *RenderTarget: the target descriptor
//   - error: an error when dimensions are zero
func NewRenderTarget(width, height uint32, opts ...TargetOption) (*RenderTarget, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: target dimensions must be positive, got %dx%d",
			common.ErrContractViolation, width, height)
	}
	rt := &RenderTarget{width: width, height: height}
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

// Width returns the target width in pixels.
func (rt *RenderTarget) Width() uint32 { return rt.width }

// Height returns the target height in pixels.
func (rt *RenderTarget) Height() uint32 { return rt.height }

// Format returns the pixel format fixed at creation.
func (rt *RenderTarget) Format() common.TextureFormat { return rt.format }

// Sampler returns the sampling configuration used when the target is read
// as a texture.
func (rt *RenderTarget) Sampler() common.SamplerStagingData { return rt.sampler }

// ClearColor returns the color used when the target is cleared without an
// explicit color.
func (rt *RenderTarget) ClearColor() common.Color { return rt.clearColor }

// SetClearColor sets the default clear color.
func (rt *RenderTarget) SetClearColor(c common.Color) { rt.clearColor = c }

// Generation returns the current resize generation of the target.
func (rt *RenderTarget) Generation() uint64 { return rt.generation }

// AsReadTexture returns the backing texture as a sampled view without a
// copy, stamped with the current generation. The view becomes stale when
// the target is resized.
//
// Returns:
//   - *Texture: a read view of the backing texture
func (rt *RenderTarget) AsReadTexture() *Texture {
	return &Texture{
		width:   rt.width,
		height:  rt.height,
		format:  rt.format,
		sampler: rt.sampler,
		owner:   rt,
		stamp:   rt.generation,
	}
}

// SetSize updates the recorded dimensions and bumps the generation,
// invalidating outstanding read views. Called by the renderer during
// Resize after storage reallocation, not by application code.
//
// Parameters:
//   - width, height: the new dimensions in pixels
func (rt *RenderTarget) SetSize(width, height uint32) {
	rt.width = width
	rt.height = height
	rt.generation++
}

// Handle returns the backend-specific resource for this target.
func (rt *RenderTarget) Handle() any { return rt.handle }

// SetHandle stores the backend-specific resource. Called by the renderer
// backend, not by application code.
func (rt *RenderTarget) SetHandle(h any) { rt.handle = h }
