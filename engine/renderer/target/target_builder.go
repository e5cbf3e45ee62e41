package target

import "github.com/emberforge/ember/common"

// TextureOption configures a Texture during construction.
type TextureOption func(*Texture)

// WithTextureFormat sets the pixel format of the texture.
//
// Parameters:
//   - f: the pixel format
//
// Returns:
//   - TextureOption: the option to apply
func WithTextureFormat(f common.TextureFormat) TextureOption {
	return func(t *Texture) {
		t.format = f
	}
}

// WithTextureSampler sets the sampling configuration of the texture.
//
// Parameters:
//   - s: the sampler configuration
//
// Returns:
//   - TextureOption: the option to apply
func WithTextureSampler(s common.SamplerStagingData) TextureOption {
	return func(t *Texture) {
		t.sampler = s
	}
}

// TargetOption configures a RenderTarget during construction.
type TargetOption func(*RenderTarget)

// WithFormat sets the pixel format of the target's backing texture.
// RGBA16Float selects an HDR target whose stores are not clamped.
//
// Parameters:
//   - f: the pixel format
//
// Returns:
//   - TargetOption: the option to apply
func WithFormat(f common.TextureFormat) TargetOption {
	return func(rt *RenderTarget) {
		rt.format = f
	}
}

// WithSampler sets the sampling configuration used when the target is read
// as a texture.
//
// Parameters:
//   - s: the sampler configuration
//
// Returns:
//   - TargetOption: the option to apply
func WithSampler(s common.SamplerStagingData) TargetOption {
	return func(rt *RenderTarget) {
		rt.sampler = s
	}
}

// WithClearColor sets the default clear color of the target.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - TargetOption: the option to apply
func WithClearColor(c common.Color) TargetOption {
	return func(rt *RenderTarget) {
		rt.clearColor = c
	}
}
