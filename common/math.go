package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// TransformPoint maps a local quad vertex to world (pixel) space.
// The order is fixed: scale, then rotate, then translate.
//
// Parameters:
//   - vx, vy: local vertex coordinates (unit quad corners are at +/-0.5)
//   - px, py: sprite position in pixel space
//   - sx, sy: sprite scale in pixels per local unit
//   - angle: rotation in radians, counter-clockwise in pixel space
//
// Returns:
//   - float32, float32: the transformed point in pixel space
func TransformPoint(vx, vy, px, py, sx, sy, angle float32) (float32, float32) {
	lx := vx * sx
	ly := vy * sy
	c := math32.Cos(angle)
	s := math32.Sin(angle)
	rx := lx*c - ly*s
	ry := lx*s + ly*c
	return rx + px, ry + py
}

// InverseTransformPoint maps a world (pixel) space point back to local quad
// coordinates, inverting TransformPoint. Scale components must be non-zero.
//
// Parameters:
//   - wx, wy: point in pixel space
//   - px, py: sprite position in pixel space
//   - sx, sy: sprite scale in pixels per local unit
//   - angle: rotation in radians
//
// Returns:
//   - float32, float32: the local coordinates (inside the quad when within +/-0.5)
func InverseTransformPoint(wx, wy, px, py, sx, sy, angle float32) (float32, float32) {
	dx := wx - px
	dy := wy - py
	c := math32.Cos(-angle)
	s := math32.Sin(-angle)
	rx := dx*c - dy*s
	ry := dx*s + dy*c
	return rx / sx, ry / sy
}

// ToClipSpace converts a pixel-space point to normalized device coordinates.
// Pixel space has its origin at the top-left with y growing down; clip space
// has y growing up, so the y axis flips here and only here.
//
// Parameters:
//   - x, y: point in pixel space
//   - width, height: target dimensions in pixels
//
// Returns:
//   - float32, float32: the point in clip space, [-1, 1] on both axes
func ToClipSpace(x, y, width, height float32) (float32, float32) {
	cx := x/width*2 - 1
	cy := y/height*2 - 1
	return cx, -cy
}

// FromClipSpace converts a clip-space point back to pixel space.
//
// Parameters:
//   - cx, cy: point in clip space
//   - width, height: target dimensions in pixels
//
// Returns:
//   - float32, float32: the point in pixel space
func FromClipSpace(cx, cy, width, height float32) (float32, float32) {
	x := (cx + 1) / 2 * width
	y := (1 - cy) / 2 * height
	return x, y
}

// RotatedQuad computes the four pixel-space corners of a sprite quad of the
// given size, scaled, rotated about its center, and positioned. Corners are
// returned in order top-left, top-right, bottom-right, bottom-left of the
// un-rotated quad; flips swap the texture mapping by reordering corners.
//
// Parameters:
//   - px, py: quad center in pixel space
//   - w, h: quad size in pixels before scaling
//   - sx, sy: scale factors
//   - angle: rotation in radians
//   - flipX, flipY: mirror the quad on each axis
//
// Returns:
//   - [4][2]float32: the corner positions in pixel space
func RotatedQuad(px, py, w, h, sx, sy, angle float32, flipX, flipY bool) [4][2]float32 {
	hw := w * sx / 2
	hh := h * sy / 2
	if flipX {
		hw = -hw
	}
	if flipY {
		hh = -hh
	}

	corners := [4][2]float32{
		{-hw, -hh},
		{hw, -hh},
		{hw, hh},
		{-hw, hh},
	}

	c := math32.Cos(angle)
	s := math32.Sin(angle)
	for i, corner := range corners {
		x, y := corner[0], corner[1]
		corners[i][0] = x*c - y*s + px
		corners[i][1] = x*s + y*c + py
	}
	return corners
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}
