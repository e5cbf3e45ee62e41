package sprite

import (
	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/animation"
)

// SpriteBuilderOption is a functional option for configuring a sprite.
// Use the With* functions to create options.
type SpriteBuilderOption func(*spriteImpl)

// WithPosition sets the initial world-space center.
//
// Parameters:
//   - x, y: the center in world units
//
// Returns:
//   - SpriteBuilderOption: option function to apply
func WithPosition(x, y float32) SpriteBuilderOption {
	return func(s *spriteImpl) {
		s.x = x
		s.y = y
	}
}

// WithScale sets the initial per-axis scale factors.
//
// Parameters:
//   - sx, sy: the scale factors
//
// Returns:
//   - SpriteBuilderOption: option function to apply
func WithScale(sx, sy float32) SpriteBuilderOption {
	return func(s *spriteImpl) {
		s.sx = sx
		s.sy = sy
	}
}

// WithRotation sets the initial rotation in radians.
//
// Parameters:
//   - angle: the rotation
//
// Returns:
//   - SpriteBuilderOption: option function to apply
func WithRotation(angle float32) SpriteBuilderOption {
	return func(s *spriteImpl) {
		s.rotation = angle
	}
}

// WithTint sets the color multiplied into sampled texels.
//
// Parameters:
//   - c: the tint
//
// Returns:
//   - SpriteBuilderOption: option function to apply
func WithTint(c common.Color) SpriteBuilderOption {
	return func(s *spriteImpl) {
		s.tint = c
	}
}

// WithGlow sets the per-sprite glow weight.
//
// Parameters:
//   - glow: the glow weight, 0 disables glow
//
// Returns:
//   - SpriteBuilderOption: option function to apply
func WithGlow(glow float32) SpriteBuilderOption {
	return func(s *spriteImpl) {
		s.glow = glow
	}
}

// WithSection sets the texture sub-rectangle sampled by the sprite.
//
// Parameters:
//   - section: the section in texel coordinates
//
// Returns:
//   - SpriteBuilderOption: option function to apply
func WithSection(section common.Rect) SpriteBuilderOption {
	return func(s *spriteImpl) {
		s.section = section
	}
}

// WithAnimator attaches a flipbook animator whose current frame overrides
// the static section.
//
// Parameters:
//   - a: the animator
//
// Returns:
//   - SpriteBuilderOption: option function to apply
func WithAnimator(a animation.Animator) SpriteBuilderOption {
	return func(s *spriteImpl) {
		s.anim = a
	}
}
