// package text rasterizes fonts into coverage atlases and lays out glyph
// quads for the text shader. The atlas stores glyph coverage in all four
// channels of an RGBA8 texture; the text program multiplies its red channel
// into the text color.
package text

import (
	"fmt"
	"image"
	"sync"

	"github.com/emberforge/ember/common"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// atlasColumns is the glyph grid width of the atlas.
	atlasColumns = 16

	// glyphPadding is the empty border around each glyph cell in pixels,
	// keeping linear sampling from bleeding between neighbors.
	glyphPadding = 2

	firstRune = ' '
	lastRune  = '~'
)

// Glyph describes one rasterized glyph in the atlas.
type Glyph struct {
	// U0, V0, U1, V1 are the atlas texture coordinates of the glyph,
	// inset half a texel to avoid sampling the padding.
	U0, V0, U1, V1 float32

	// Width and Height are the glyph bitmap dimensions in pixels.
	Width, Height float32

	// BearingX and BearingY offset the bitmap from the pen position; the
	// pen sits on the baseline.
	BearingX, BearingY float32

	// Advance is the pen movement after this glyph in pixels.
	Advance float32
}

// FontAtlas holds the rasterized glyph grid of one face at one size plus the
// metrics needed to lay out text.
type FontAtlas struct {
	mu sync.Mutex

	face   font.Face
	glyphs map[rune]Glyph

	pixels []byte
	width  uint32
	height uint32

	ascent     float32
	lineHeight float32
}

// NewFontAtlas parses a TTF/OTF font and rasterizes the printable ASCII
// range at the given pixel size into a coverage atlas.
//
// Parameters:
//   - ttf: the raw font file bytes
//   - size: the face size in pixels
//
// Returns:
//   - *FontAtlas: the built atlas
//   - error: an error when the font cannot be parsed or sized
func NewFontAtlas(ttf []byte, size float64) (*FontAtlas, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: font size must be positive, got %v", common.ErrContractViolation, size)
	}
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}

	a := &FontAtlas{
		face:   face,
		glyphs: make(map[rune]Glyph, lastRune-firstRune+1),
	}
	metrics := face.Metrics()
	a.ascent = fixedToFloat(metrics.Ascent)
	a.lineHeight = fixedToFloat(metrics.Height)
	if err := a.rasterize(); err != nil {
		return nil, err
	}
	return a, nil
}

// NewDefaultFontAtlas builds an atlas from the bundled Go Regular face.
//
// Parameters:
//   - size: the face size in pixels
//
// Returns:
//   - *FontAtlas: the built atlas
//   - error: an error when the face cannot be sized
func NewDefaultFontAtlas(size float64) (*FontAtlas, error) {
	return NewFontAtlas(goregular.TTF, size)
}

// rasterize draws every glyph of the printable ASCII range into a fixed-grid
// RGBA coverage image.
func (a *FontAtlas) rasterize() error {
	cellW, cellH := 0, 0
	type measured struct {
		r        rune
		bounds   fixed.Rectangle26_6
		advance  fixed.Int26_6
		w, h     int
		bx, by   int
		hasShape bool
	}
	runs := make([]measured, 0, lastRune-firstRune+1)

	for r := rune(firstRune); r <= lastRune; r++ {
		bounds, advance, ok := a.face.GlyphBounds(r)
		if !ok {
			continue
		}
		m := measured{r: r, bounds: bounds, advance: advance}
		m.bx = bounds.Min.X.Floor()
		m.by = bounds.Min.Y.Floor()
		m.w = bounds.Max.X.Ceil() - m.bx
		m.h = bounds.Max.Y.Ceil() - m.by
		m.hasShape = m.w > 0 && m.h > 0
		if m.w > cellW {
			cellW = m.w
		}
		if m.h > cellH {
			cellH = m.h
		}
		runs = append(runs, m)
	}
	if len(runs) == 0 {
		return fmt.Errorf("font has no printable ASCII glyphs")
	}

	cellW += glyphPadding * 2
	cellH += glyphPadding * 2
	rows := (len(runs) + atlasColumns - 1) / atlasColumns
	a.width = uint32(atlasColumns * cellW)
	a.height = uint32(rows * cellH)

	mask := image.NewAlpha(image.Rect(0, 0, int(a.width), int(a.height)))
	drawer := &font.Drawer{
		Dst:  mask,
		Src:  image.White,
		Face: a.face,
	}

	for i, m := range runs {
		col := i % atlasColumns
		row := i / atlasColumns
		cellX := col * cellW
		cellY := row * cellH

		if m.hasShape {
			// Place the pen so the glyph bitmap lands at the padded cell origin.
			drawer.Dot = fixed.Point26_6{
				X: fixed.I(cellX+glyphPadding) - m.bounds.Min.X,
				Y: fixed.I(cellY+glyphPadding) - m.bounds.Min.Y,
			}
			drawer.DrawString(string(m.r))
		}

		half := 0.5
		a.glyphs[m.r] = Glyph{
			U0:       float32((float64(cellX+glyphPadding) + half) / float64(a.width)),
			V0:       float32((float64(cellY+glyphPadding) + half) / float64(a.height)),
			U1:       float32((float64(cellX+glyphPadding+m.w) - half) / float64(a.width)),
			V1:       float32((float64(cellY+glyphPadding+m.h) - half) / float64(a.height)),
			Width:    float32(m.w),
			Height:   float32(m.h),
			BearingX: float32(m.bx),
			BearingY: float32(m.by),
			Advance:  fixedToFloat(m.advance),
		}
	}

	// Expand the alpha mask to RGBA coverage so the fragment shader can read
	// the red channel.
	a.pixels = make([]byte, len(mask.Pix)*4)
	for i := range mask.Pix {
		v := mask.Pix[i]
		a.pixels[i*4+0] = v
		a.pixels[i*4+1] = v
		a.pixels[i*4+2] = v
		a.pixels[i*4+3] = v
	}
	return nil
}

// StagingData returns the atlas pixels ready for texture upload.
//
// Returns:
//   - *common.TextureStagingData: the RGBA coverage image
func (a *FontAtlas) StagingData() *common.TextureStagingData {
	return &common.TextureStagingData{
		Pixels: a.pixels,
		Width:  a.width,
		Height: a.height,
	}
}

// Glyph returns the atlas entry for a rune. Runes outside the atlas fall
// back to the space glyph.
func (a *FontAtlas) Glyph(r rune) (Glyph, bool) {
	g, ok := a.glyphs[r]
	if !ok {
		g, ok = a.glyphs[' ']
	}
	return g, ok
}

// LineHeight returns the baseline-to-baseline distance in pixels.
func (a *FontAtlas) LineHeight() float32 { return a.lineHeight }

// Ascent returns the distance from the baseline to the top of the tallest
// glyph in pixels.
func (a *FontAtlas) Ascent() float32 { return a.ascent }

// Width returns the atlas texture width in pixels.
func (a *FontAtlas) Width() uint32 { return a.width }

// Height returns the atlas texture height in pixels.
func (a *FontAtlas) Height() uint32 { return a.height }

// Kern returns the kerning adjustment between two runes in pixels.
func (a *FontAtlas) Kern(r0, r1 rune) float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fixedToFloat(a.face.Kern(r0, r1))
}

// Close releases the underlying face. The atlas pixels and glyph table stay
// valid.
func (a *FontAtlas) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if closer, ok := a.face.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
