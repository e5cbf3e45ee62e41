package loader

import (
	"io/fs"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer"
)

// LoaderBuilderOption is a functional option for configuring a Loader.
// Use the With* functions to create options.
type LoaderBuilderOption func(*loader)

// WithRenderer attaches the renderer used to upload decoded textures.
// Required before any texture load.
//
// Parameters:
//   - r: the renderer to upload through
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) LoaderBuilderOption {
	return func(l *loader) {
		l.renderer = r
	}
}

// WithSampler sets the sampling configuration applied to every loaded
// texture. Without this option textures use the nearest/clamp default.
//
// Parameters:
//   - s: the sampler configuration
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithSampler(s common.SamplerStagingData) LoaderBuilderOption {
	return func(l *loader) {
		l.sampler = &s
	}
}

// WithFS reads assets from an fs.FS (typically an embed.FS) instead of the
// operating system filesystem.
//
// Parameters:
//   - fsys: the filesystem to read from
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.backend = newFSLoaderBackend(fsys)
	}
}
