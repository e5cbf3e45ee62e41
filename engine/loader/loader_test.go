package loader

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/emberforge/ember/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

// pngBytes encodes a solid-colored image for in-memory loading.
func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestRenderer(t *testing.T) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeReference)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func TestLoadTextureFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"sprites/hero.png": &fstest.MapFile{Data: pngBytes(t, 16, 8, color.RGBA{R: 255, A: 255})},
	}
	l := NewLoader(WithRenderer(newTestRenderer(t)), WithFS(fsys))

	tex, err := l.LoadTexture("sprites/hero.png")
	require.NoError(t, err)
	assert.Equal(t, uint32(16), tex.Width())
	assert.Equal(t, uint32(8), tex.Height())

	// The texture is retrievable from the cache by its path.
	assert.Same(t, tex, l.Texture("sprites/hero.png"))
}

func TestLoadTextureCacheHit(t *testing.T) {
	fsys := fstest.MapFS{
		"a.png": &fstest.MapFile{Data: pngBytes(t, 4, 4, color.RGBA{A: 255})},
	}
	l := NewLoader(WithRenderer(newTestRenderer(t)), WithFS(fsys))

	first, err := l.LoadTexture("a.png")
	require.NoError(t, err)
	second, err := l.LoadTexture("a.png")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoadTextureMissingFile(t *testing.T) {
	l := NewLoader(WithRenderer(newTestRenderer(t)), WithFS(fstest.MapFS{}))

	_, err := l.LoadTexture("nope.png")
	require.Error(t, err)
}

func TestLoadTextureUnsupportedFormat(t *testing.T) {
	fsys := fstest.MapFS{
		"a.bmp": &fstest.MapFile{Data: []byte("BM")},
	}
	l := NewLoader(WithRenderer(newTestRenderer(t)), WithFS(fsys))

	_, err := l.LoadTexture("a.bmp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format")
}

func TestLoadTextureRequiresRenderer(t *testing.T) {
	l := NewLoader(WithFS(fstest.MapFS{
		"a.png": &fstest.MapFile{Data: pngBytes(t, 2, 2, color.RGBA{A: 255})},
	}))

	_, err := l.LoadTexture("a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Renderer")
}

func TestLoadTextureReaderCachesByName(t *testing.T) {
	l := NewLoader(WithRenderer(newTestRenderer(t)))

	data := pngBytes(t, 2, 2, color.RGBA{G: 255, A: 255})
	tex, err := l.LoadTextureReader("generated", bytes.NewReader(data))
	require.NoError(t, err)

	// A second load under the same name ignores the reader entirely.
	again, err := l.LoadTextureReader("generated", bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Same(t, tex, again)

	textures := l.Textures()
	assert.Len(t, textures, 1)
	assert.Same(t, tex, textures["generated"])
}

func TestLoadTextureBadImageData(t *testing.T) {
	l := NewLoader(WithRenderer(newTestRenderer(t)))

	_, err := l.LoadTextureReader("broken", bytes.NewReader([]byte("not an image")))
	require.Error(t, err)
}

func TestLoadSpriteSheet(t *testing.T) {
	fsys := fstest.MapFS{
		"sheet.png": &fstest.MapFile{Data: pngBytes(t, 64, 32, color.RGBA{B: 255, A: 255})},
	}
	l := NewLoader(WithRenderer(newTestRenderer(t)), WithFS(fsys))

	sheet, err := l.LoadSpriteSheet("sheet.png", 16, 16)
	require.NoError(t, err)
	assert.Len(t, sheet.Frames, 8)
	assert.Equal(t, float32(16), sheet.Frames[0].W)

	// Frames larger than the sheet cannot be cut.
	_, err = l.LoadSpriteSheet("sheet.png", 128, 128)
	require.Error(t, err)
}

func TestLoadFontCachesByPathAndSize(t *testing.T) {
	fsys := fstest.MapFS{
		"fonts/go.ttf": &fstest.MapFile{Data: goregular.TTF},
	}
	l := NewLoader(WithFS(fsys))

	atlas, err := l.LoadFont("fonts/go.ttf", 24)
	require.NoError(t, err)
	require.NotNil(t, atlas)

	again, err := l.LoadFont("fonts/go.ttf", 24)
	require.NoError(t, err)
	assert.Same(t, atlas, again)

	// A different size is a separate atlas.
	other, err := l.LoadFont("fonts/go.ttf", 12)
	require.NoError(t, err)
	assert.NotSame(t, atlas, other)
}

func TestLoadFontBadData(t *testing.T) {
	fsys := fstest.MapFS{
		"fonts/bad.ttf": &fstest.MapFile{Data: []byte("junk")},
	}
	l := NewLoader(WithFS(fsys))

	_, err := l.LoadFont("fonts/bad.ttf", 16)
	require.Error(t, err)
}

func TestTextureMissReturnsNil(t *testing.T) {
	l := NewLoader()
	assert.Nil(t, l.Texture("absent"))
}
