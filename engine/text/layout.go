package text

import "strings"

// Alignment selects the horizontal placement of each laid-out line.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// GlyphQuad is one positioned glyph: a pixel-space rectangle plus the atlas
// texture coordinates to sample.
type GlyphQuad struct {
	X, Y, W, H     float32
	U0, V0, U1, V1 float32
}

// LayoutOptions control wrapping, alignment, and reveal of Layout.
type LayoutOptions struct {
	// MaxWidth wraps lines at this pixel width when positive.
	MaxWidth float32

	// Align places each line within the widest line (or MaxWidth when
	// wrapping).
	Align Alignment

	// Visible caps the number of glyphs emitted, for letter-by-letter
	// reveal. Negative means all.
	Visible int

	// LineSpacing scales the baseline distance. Zero means 1.
	LineSpacing float32
}

// Layout positions a string's glyphs starting at the pen position (x, y),
// where y is the top of the first line. Words wrap at MaxWidth when set;
// words longer than the limit break mid-word. Spaces at wrap points are
// swallowed.
//
// Parameters:
//   - s: the text to lay out, '\n' forces a line break
//   - x, y: the top-left pen position in pixels
//   - opts: wrapping, alignment, and reveal options
//
// Returns:
//   - []GlyphQuad: one quad per visible glyph with a bitmap
func (a *FontAtlas) Layout(s string, x, y float32, opts LayoutOptions) []GlyphQuad {
	if opts.LineSpacing == 0 {
		opts.LineSpacing = 1
	}
	visible := opts.Visible
	if visible < 0 {
		visible = len([]rune(s))
	}

	lines := a.breakLines(s, opts.MaxWidth)

	blockWidth := opts.MaxWidth
	if blockWidth <= 0 {
		for _, line := range lines {
			if w := a.lineWidth(line); w > blockWidth {
				blockWidth = w
			}
		}
	}

	quads := make([]GlyphQuad, 0, len(s))
	emitted := 0
	baseline := y + a.ascent
	for _, line := range lines {
		penX := x
		switch opts.Align {
		case AlignCenter:
			penX = x + (blockWidth-a.lineWidth(line))/2
		case AlignRight:
			penX = x + blockWidth - a.lineWidth(line)
		}

		var prev rune
		for i, r := range line {
			if emitted >= visible {
				return quads
			}
			g, ok := a.Glyph(r)
			if !ok {
				continue
			}
			if i > 0 {
				penX += a.Kern(prev, r)
			}
			if g.Width > 0 && g.Height > 0 {
				quads = append(quads, GlyphQuad{
					X:  penX + g.BearingX,
					Y:  baseline + g.BearingY,
					W:  g.Width,
					H:  g.Height,
					U0: g.U0, V0: g.V0, U1: g.U1, V1: g.V1,
				})
			}
			penX += g.Advance
			prev = r
			emitted++
		}
		baseline += a.lineHeight * opts.LineSpacing
	}
	return quads
}

// Measure returns the pixel width and height the string occupies when laid
// out with the given wrap width.
//
// Parameters:
//   - s: the text to measure
//   - maxWidth: the wrap width, or 0 for no wrapping
//
// Returns:
//   - width, height: the occupied pixel extent
func (a *FontAtlas) Measure(s string, maxWidth float32) (float32, float32) {
	lines := a.breakLines(s, maxWidth)
	var width float32
	for _, line := range lines {
		if w := a.lineWidth(line); w > width {
			width = w
		}
	}
	return width, float32(len(lines)) * a.lineHeight
}

// lineWidth sums advances and kerning over one line.
func (a *FontAtlas) lineWidth(line string) float32 {
	var w float32
	var prev rune
	for i, r := range line {
		g, ok := a.Glyph(r)
		if !ok {
			continue
		}
		if i > 0 {
			w += a.Kern(prev, r)
		}
		w += g.Advance
		prev = r
	}
	return w
}

// breakLines splits on '\n' and wraps each paragraph at maxWidth when
// positive.
func (a *FontAtlas) breakLines(s string, maxWidth float32) []string {
	paragraphs := strings.Split(s, "\n")
	if maxWidth <= 0 {
		return paragraphs
	}

	var lines []string
	for _, paragraph := range paragraphs {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if a.lineWidth(candidate) <= maxWidth || current == "" {
				current = candidate
				continue
			}
			lines = append(lines, current)
			current = word
		}
		// Break words that alone exceed the limit.
		for a.lineWidth(current) > maxWidth && len([]rune(current)) > 1 {
			runes := []rune(current)
			cut := len(runes) - 1
			for cut > 1 && a.lineWidth(string(runes[:cut])) > maxWidth {
				cut--
			}
			lines = append(lines, string(runes[:cut]))
			current = string(runes[cut:])
		}
		lines = append(lines, current)
	}
	return lines
}
