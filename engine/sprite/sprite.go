// package sprite defines the scene entity of the engine: a textured quad
// with a world-space transform, tint, and glow weight, optionally driven by
// a flipbook animation.
package sprite

import (
	"sync"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/animation"
	"github.com/emberforge/ember/engine/renderer/target"
)

// Sprite is a drawable scene entity. All entry points are safe for
// concurrent use so game logic may move sprites while the render loop reads
// them.
type Sprite interface {
	// ID returns the sprite's unique identifier, assigned by the scene.
	//
	// Returns:
	//   - uint64: the sprite ID, 0 before the sprite is added to a scene
	ID() uint64

	// SetID sets the sprite's unique identifier. Called by the scene.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// Visible returns whether this sprite is drawn.
	//
	// Returns:
	//   - bool: true if visible
	Visible() bool

	// SetVisible sets whether the sprite is drawn.
	//
	// Parameters:
	//   - visible: true to draw
	SetVisible(visible bool)

	// Texture returns the texture the sprite samples.
	//
	// Returns:
	//   - *target.Texture: the sprite's texture
	Texture() *target.Texture

	// Position returns the world-space center of the sprite.
	//
	// Returns:
	//   - x, y: the center in world units
	Position() (float32, float32)

	// SetPosition moves the sprite's center.
	//
	// Parameters:
	//   - x, y: the new center in world units
	SetPosition(x, y float32)

	// Move shifts the sprite by a world-space delta.
	//
	// Parameters:
	//   - dx, dy: the offset to add
	Move(dx, dy float32)

	// Scale returns the per-axis scale factors.
	//
	// Returns:
	//   - sx, sy: the scale factors
	Scale() (float32, float32)

	// SetScale sets the per-axis scale factors.
	//
	// Parameters:
	//   - sx, sy: the scale factors
	SetScale(sx, sy float32)

	// Rotation returns the rotation in radians.
	//
	// Returns:
	//   - float32: the rotation
	Rotation() float32

	// SetRotation sets the rotation in radians.
	//
	// Parameters:
	//   - angle: the rotation
	SetRotation(angle float32)

	// Tint returns the color multiplied into sampled texels.
	//
	// Returns:
	//   - common.Color: the tint
	Tint() common.Color

	// SetTint sets the color multiplied into sampled texels.
	//
	// Parameters:
	//   - c: the tint
	SetTint(c common.Color)

	// Glow returns the per-sprite glow weight scaling the time-varying glow
	// contribution.
	//
	// Returns:
	//   - float32: the glow weight, 0 disables glow for this sprite
	Glow() float32

	// SetGlow sets the per-sprite glow weight.
	//
	// Parameters:
	//   - glow: the glow weight
	SetGlow(glow float32)

	// Section returns the texture sub-rectangle sampled by the sprite. The
	// animator's current frame takes precedence when one is set; a zero Rect
	// means the full texture.
	//
	// Returns:
	//   - common.Rect: the section in texel coordinates
	Section() common.Rect

	// SetSection sets the texture sub-rectangle sampled by the sprite.
	//
	// Parameters:
	//   - section: the section in texel coordinates, zero for the full texture
	SetSection(section common.Rect)

	// Animator returns the attached flipbook animator, or nil.
	//
	// Returns:
	//   - animation.Animator: the animator or nil
	Animator() animation.Animator

	// SetAnimator attaches a flipbook animator whose current frame overrides
	// the static section.
	//
	// Parameters:
	//   - a: the animator, or nil to detach
	SetAnimator(a animation.Animator)

	// Bounds returns the world-space bounding rectangle of the transformed
	// sprite, used for visibility culling.
	//
	// Returns:
	//   - common.Rect: the bounding rectangle
	Bounds() common.Rect
}

type spriteImpl struct {
	mu *sync.RWMutex

	id      uint64
	visible bool

	tex     *target.Texture
	section common.Rect
	anim    animation.Animator

	x, y     float32
	sx, sy   float32
	rotation float32

	tint common.Color
	glow float32
}

var _ Sprite = &spriteImpl{}

// NewSprite creates a visible sprite over a texture at the origin with unit
// scale, no rotation, white tint, and no glow.
//
// Parameters:
//   - tex: the texture the sprite samples, must not be nil
//   - options: functional options to configure the sprite
//
// Returns:
//   - Sprite: the configured sprite
func NewSprite(tex *target.Texture, options ...SpriteBuilderOption) Sprite {
	s := &spriteImpl{
		mu:      &sync.RWMutex{},
		visible: true,
		tex:     tex,
		sx:      1,
		sy:      1,
		tint:    common.ColorWhite,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *spriteImpl) ID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *spriteImpl) SetID(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

func (s *spriteImpl) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

func (s *spriteImpl) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
}

func (s *spriteImpl) Texture() *target.Texture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tex
}

func (s *spriteImpl) Position() (float32, float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.x, s.y
}

func (s *spriteImpl) SetPosition(x, y float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x = x
	s.y = y
}

func (s *spriteImpl) Move(dx, dy float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x += dx
	s.y += dy
}

func (s *spriteImpl) Scale() (float32, float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sx, s.sy
}

func (s *spriteImpl) SetScale(sx, sy float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sx = sx
	s.sy = sy
}

func (s *spriteImpl) Rotation() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rotation
}

func (s *spriteImpl) SetRotation(angle float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation = angle
}

func (s *spriteImpl) Tint() common.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tint
}

func (s *spriteImpl) SetTint(c common.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tint = c
}

func (s *spriteImpl) Glow() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.glow
}

func (s *spriteImpl) SetGlow(glow float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.glow = glow
}

func (s *spriteImpl) Section() common.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.anim != nil {
		return s.anim.Frame()
	}
	return s.section
}

func (s *spriteImpl) SetSection(section common.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.section = section
}

func (s *spriteImpl) Animator() animation.Animator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anim
}

func (s *spriteImpl) SetAnimator(a animation.Animator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anim = a
}

func (s *spriteImpl) Bounds() common.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w := float32(0)
	h := float32(0)
	if s.anim != nil {
		frame := s.anim.Frame()
		w, h = frame.W, frame.H
	} else if !s.section.IsZero() {
		w, h = s.section.W, s.section.H
	} else if s.tex != nil {
		w, h = float32(s.tex.Width()), float32(s.tex.Height())
	}
	return common.SpriteBounds(s.x, s.y, w, h, s.sx, s.sy, s.rotation)
}
