// package loader loads and caches the engine's assets: textures, sprite
// sheets, and font atlases. File access goes through a backend so assets can
// come from the filesystem or an embedded fs.FS.
package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/animation"
	"github.com/emberforge/ember/engine/renderer"
	"github.com/emberforge/ember/engine/renderer/target"
	"github.com/emberforge/ember/engine/text"
)

// SpriteSheet pairs an uploaded texture with the frame rectangles cut from
// it.
type SpriteSheet struct {
	Texture *target.Texture
	Frames  []common.Rect
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	renderer renderer.Renderer
	sampler  *common.SamplerStagingData

	textureCache map[string]*target.Texture
	fontCache    map[string]*text.FontAtlas

	backend loaderBackend
}

// Loader loads image and font assets, uploads them through the renderer,
// and caches the results by path.
type Loader interface {
	// LoadTexture decodes an image file (PNG or JPEG) and uploads it as a
	// texture. Cached by path, so repeated loads return the same texture.
	//
	// Parameters:
	//   - path: the image file path
	//
	// Returns:
	//   - *target.Texture: the uploaded texture
	//   - error: error if reading, decoding, or upload fails
	LoadTexture(path string) (*target.Texture, error)

	// LoadTextureReader decodes an image from a reader and uploads it as a
	// texture cached under the given name.
	//
	// Parameters:
	//   - name: the cache key
	//   - r: the reader providing image data
	//
	// Returns:
	//   - *target.Texture: the uploaded texture
	//   - error: error if decoding or upload fails
	LoadTextureReader(name string, r io.Reader) (*target.Texture, error)

	// LoadSpriteSheet loads an image as a texture and cuts it into a
	// row-major grid of equally sized frames for flipbook animation.
	//
	// Parameters:
	//   - path: the image file path
	//   - frameW, frameH: the frame dimensions in pixels
	//
	// Returns:
	//   - *SpriteSheet: the texture and its frame rectangles
	//   - error: error if loading fails or no frame fits the sheet
	LoadSpriteSheet(path string, frameW, frameH int) (*SpriteSheet, error)

	// LoadFont parses a TTF/OTF file and rasterizes a coverage atlas at the
	// given pixel size. Cached by path and size.
	//
	// Parameters:
	//   - path: the font file path
	//   - size: the face size in pixels
	//
	// Returns:
	//   - *text.FontAtlas: the rasterized atlas
	//   - error: error if reading or rasterizing fails
	LoadFont(path string, size float64) (*text.FontAtlas, error)

	// Texture retrieves a cached texture by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *target.Texture: the cached texture or nil
	Texture(name string) *target.Texture

	// Textures returns a copy of the texture cache.
	//
	// Returns:
	//   - map[string]*target.Texture: all cached textures keyed by name
	Textures() map[string]*target.Texture
}

var _ Loader = &loader{}

// NewLoader creates a Loader backed by the operating system filesystem
// unless WithFS overrides it. A renderer must be attached with WithRenderer
// before any texture can be loaded.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		textureCache: make(map[string]*target.Texture),
		fontCache:    make(map[string]*text.FontAtlas),
		backend:      newFileLoaderBackend(),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) LoadTexture(path string) (*target.Texture, error) {
	l.mu.RLock()
	if cached, ok := l.textureCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	if err := l.checkFormat(path); err != nil {
		return nil, err
	}
	r, err := l.backend.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer r.Close()

	return l.LoadTextureReader(path, r)
}

func (l *loader) LoadTextureReader(name string, r io.Reader) (*target.Texture, error) {
	if l.renderer == nil {
		return nil, fmt.Errorf("loader: cannot load textures without a Renderer")
	}

	l.mu.RLock()
	if cached, ok := l.textureCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", name, err)
	}
	imported := &common.ImportedTexture{Name: name, Data: data}
	staging, err := imported.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", name, err)
	}

	tex, err := l.renderer.CreateTexture(staging, l.sampler)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %q: %w", name, err)
	}

	l.mu.Lock()
	l.textureCache[name] = tex
	l.mu.Unlock()
	return tex, nil
}

func (l *loader) LoadSpriteSheet(path string, frameW, frameH int) (*SpriteSheet, error) {
	tex, err := l.LoadTexture(path)
	if err != nil {
		return nil, err
	}
	frames := animation.GridFrames(int(tex.Width()), int(tex.Height()), frameW, frameH, 0)
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: sheet %s (%dx%d) fits no %dx%d frames",
			common.ErrContractViolation, path, tex.Width(), tex.Height(), frameW, frameH)
	}
	return &SpriteSheet{Texture: tex, Frames: frames}, nil
}

func (l *loader) LoadFont(path string, size float64) (*text.FontAtlas, error) {
	key := fmt.Sprintf("%s@%g", path, size)
	l.mu.RLock()
	if cached, ok := l.fontCache[key]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	r, err := l.backend.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	atlas, err := text.NewFontAtlas(data, size)
	if err != nil {
		return nil, fmt.Errorf("failed to build atlas for %s: %w", path, err)
	}

	l.mu.Lock()
	l.fontCache[key] = atlas
	l.mu.Unlock()
	return atlas, nil
}

func (l *loader) Texture(name string) *target.Texture {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.textureCache[name]
}

func (l *loader) Textures() map[string]*target.Texture {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*target.Texture, len(l.textureCache))
	for k, v := range l.textureCache {
		result[k] = v
	}
	return result
}

// checkFormat rejects image formats the decoder does not register.
func (l *loader) checkFormat(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg":
		return nil
	default:
		return fmt.Errorf("unsupported image format: %s", ext)
	}
}
