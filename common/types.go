// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// TextureFormat identifies the pixel storage format of a texture or render target.
type TextureFormat int

const (
	// TextureFormatRGBA8 is 8 bits per channel, clamped to [0, 1] on store.
	TextureFormatRGBA8 TextureFormat = iota
	// TextureFormatRGBA16Float is half-float per channel, used for HDR intermediates.
	TextureFormatRGBA16Float
)

// String returns the name of the texture format.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8:
		return "rgba8"
	case TextureFormatRGBA16Float:
		return "rgba16float"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// FilterMode selects the sampling filter applied when a texture is read.
type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// WrapMode selects how texture coordinates outside [0, 1] resolve.
type WrapMode int

const (
	WrapClamp WrapMode = iota
	WrapRepeat
)

// Color is a linear-space RGBA color with float32 components.
// Components are unclamped; quantization to 8-bit happens only at
// present or readback.
type Color struct {
	R, G, B, A float32
}

// RGB constructs an opaque color from linear components.
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// RGBA8 constructs a color from 8-bit components, mapping [0, 255] to [0, 1].
func RGBA8(r, g, b, a uint8) Color {
	return Color{
		R: float32(r) / 255,
		G: float32(g) / 255,
		B: float32(b) / 255,
		A: float32(a) / 255,
	}
}

var (
	ColorBlack       = Color{0, 0, 0, 1}
	ColorWhite       = Color{1, 1, 1, 1}
	ColorTransparent = Color{0, 0, 0, 0}
)

// Rect is a sub-rectangle of a texture in pixel coordinates, used for
// sprite-sheet section draws. A zero Rect means the whole texture.
type Rect struct {
	X, Y, W, H float32
}

// IsZero reports whether the rect is the zero value.
func (r Rect) IsZero() bool {
	return r == Rect{}
}

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Width uint32
	// Height is the height of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Height uint32
}

// SamplerStagingData holds the sampling configuration for a texture pending
// GPU creation. The zero value is nearest filtering with clamped coordinates,
// which is the engine default for pixel-art sprites.
type SamplerStagingData struct {
	// Filter is the mag/min filtering mode.
	Filter FilterMode
	// WrapU and WrapV specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension.
	WrapU, WrapV WrapMode
}

// ImportedTexture represents image data loaded for texture creation.
// For in-memory images the Data field contains raw encoded bytes; for
// on-disk assets the Path field contains the file path.
type ImportedTexture struct {
	// Name is an identifier for this texture.
	Name string

	// Path is the file path for external textures (empty for embedded).
	Path string

	// Data contains raw encoded image bytes (PNG/JPEG).
	Data []byte

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int

	// SamplerData holds sampler parameters for this texture. When nil the
	// engine default (nearest, clamp) is used.
	SamplerData *SamplerStagingData
}

// Decode decodes the texture to raw RGBA pixel data.
// Uses either embedded Data bytes or loads from Path on disk.
// Supports PNG and JPEG formats.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - *TextureStagingData: raw RGBA pixel data (4 bytes per pixel, row-major order) with dimensions
//   - error: error if decoding fails
func (t *ImportedTexture) Decode() (*TextureStagingData, error) {
	if t == nil {
		return nil, fmt.Errorf("texture is nil")
	}

	var img image.Image
	var err error

	if len(t.Data) > 0 {
		img, _, err = image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedded image: %w", err)
		}
	} else if t.Path != "" {
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return nil, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	} else {
		return nil, fmt.Errorf("texture has neither data nor path")
	}

	staged := ImageToStagingData(img)
	t.Width = int(staged.Width)
	t.Height = int(staged.Height)
	return staged, nil
}

// ImageToStagingData converts any image.Image into RGBA staging data for
// texture upload.
//
// Parameters:
//   - img: the source image
//
// Returns:
//   - *TextureStagingData: raw RGBA pixel data with dimensions
func ImageToStagingData(img image.Image) *TextureStagingData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return &TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}
