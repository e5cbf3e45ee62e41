package sprite

import (
	"testing"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/animation"
	"github.com/emberforge/ember/engine/renderer/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTexture(t *testing.T, w, h uint32) *target.Texture {
	t.Helper()
	tex, err := target.NewTexture(w, h)
	require.NoError(t, err)
	return tex
}

func TestNewSpriteDefaults(t *testing.T) {
	tex := newTexture(t, 32, 16)
	s := NewSprite(tex)

	assert.True(t, s.Visible())
	assert.Same(t, tex, s.Texture())

	x, y := s.Position()
	assert.Zero(t, x)
	assert.Zero(t, y)
	sx, sy := s.Scale()
	assert.Equal(t, float32(1), sx)
	assert.Equal(t, float32(1), sy)
	assert.Equal(t, common.ColorWhite, s.Tint())
	assert.Zero(t, s.Glow())
	assert.True(t, s.Section().IsZero())
	assert.Nil(t, s.Animator())
}

func TestBuilderOptions(t *testing.T) {
	section := common.Rect{X: 16, Y: 0, W: 16, H: 16}
	s := NewSprite(newTexture(t, 32, 16),
		WithPosition(10, 20),
		WithScale(2, 3),
		WithRotation(1.5),
		WithTint(common.Color{R: 1, A: 1}),
		WithGlow(0.5),
		WithSection(section),
	)

	x, y := s.Position()
	assert.Equal(t, float32(10), x)
	assert.Equal(t, float32(20), y)
	sx, sy := s.Scale()
	assert.Equal(t, float32(2), sx)
	assert.Equal(t, float32(3), sy)
	assert.Equal(t, float32(1.5), s.Rotation())
	assert.Equal(t, float32(0.5), s.Glow())
	assert.Equal(t, section, s.Section())
}

func TestMoveAccumulates(t *testing.T) {
	s := NewSprite(newTexture(t, 8, 8), WithPosition(1, 1))

	s.Move(2, 3)
	s.Move(-1, 0)
	x, y := s.Position()
	assert.Equal(t, float32(2), x)
	assert.Equal(t, float32(4), y)
}

func TestAnimatorFrameOverridesSection(t *testing.T) {
	frames := animation.GridFrames(64, 16, 16, 16, 0)
	anim, err := animation.NewAnimator(frames, animation.WithFPS(10))
	require.NoError(t, err)

	s := NewSprite(newTexture(t, 64, 16),
		WithSection(common.Rect{X: 48, W: 16, H: 16}),
		WithAnimator(anim),
	)

	assert.Equal(t, frames[0], s.Section())
	anim.Advance(0.1)
	assert.Equal(t, frames[1], s.Section())

	// Detaching falls back to the static section.
	s.SetAnimator(nil)
	assert.Equal(t, common.Rect{X: 48, W: 16, H: 16}, s.Section())
}

func TestBoundsUseTextureSize(t *testing.T) {
	s := NewSprite(newTexture(t, 32, 16), WithPosition(100, 50))

	b := s.Bounds()
	assert.Equal(t, common.Rect{X: 84, Y: 42, W: 32, H: 16}, b)
}

func TestBoundsUseSectionSize(t *testing.T) {
	s := NewSprite(newTexture(t, 64, 64),
		WithPosition(0, 0),
		WithSection(common.Rect{X: 0, Y: 0, W: 16, H: 8}),
		WithScale(2, 2),
	)

	b := s.Bounds()
	assert.Equal(t, common.Rect{X: -16, Y: -8, W: 32, H: 16}, b)
}

func TestBoundsUseAnimationFrame(t *testing.T) {
	anim, err := animation.NewAnimator([]common.Rect{{W: 10, H: 20}}, animation.WithFPS(1))
	require.NoError(t, err)
	s := NewSprite(newTexture(t, 64, 64), WithAnimator(anim))

	b := s.Bounds()
	assert.Equal(t, float32(10), b.W)
	assert.Equal(t, float32(20), b.H)
}
