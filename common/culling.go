package common

// Intersects reports whether two rectangles overlap. Touching edges do not
// count as overlap.
//
// Parameters:
//   - other: the rectangle to test against
//
// Returns:
//   - bool: true when the rectangles share area
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.W && other.X < r.X+r.W &&
		r.Y < other.Y+other.H && other.Y < r.Y+r.H
}

// Contains reports whether a point lies inside the rectangle. The top and
// left edges are inclusive, the bottom and right exclusive.
//
// Parameters:
//   - x, y: the point to test
//
// Returns:
//   - bool: true when the point is inside
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Expand returns the rectangle grown by the given margin on every side.
//
// Parameters:
//   - margin: the number of pixels to grow by
//
// Returns:
//   - Rect: the expanded rectangle
func (r Rect) Expand(margin float32) Rect {
	return Rect{
		X: r.X - margin,
		Y: r.Y - margin,
		W: r.W + margin*2,
		H: r.H + margin*2,
	}
}

// SpriteBounds returns the axis-aligned bounding rectangle of a transformed
// unit quad: a sprite of size (w, h) scaled by (sx, sy), rotated by angle,
// and centered at (px, py). Used for visibility culling before batching.
//
// Parameters:
//   - px, py: the sprite center in pixels
//   - w, h: the untransformed sprite size in pixels
//   - sx, sy: the scale factors
//   - angle: the rotation in radians
//
// Returns:
//   - Rect: the bounding rectangle in pixel space
func SpriteBounds(px, py, w, h, sx, sy, angle float32) Rect {
	halfW := w * sx * 0.5
	halfH := h * sy * 0.5

	corners := [4][2]float32{
		{-halfW, -halfH},
		{halfW, -halfH},
		{halfW, halfH},
		{-halfW, halfH},
	}

	minX, minY := float32(0), float32(0)
	maxX, maxY := float32(0), float32(0)
	for i, c := range corners {
		x, y := TransformPoint(c[0], c[1], 0, 0, 1, 1, angle)
		if i == 0 || x < minX {
			minX = x
		}
		if i == 0 || x > maxX {
			maxX = x
		}
		if i == 0 || y < minY {
			minY = y
		}
		if i == 0 || y > maxY {
			maxY = y
		}
	}
	return Rect{X: px + minX, Y: py + minY, W: maxX - minX, H: maxY - minY}
}
