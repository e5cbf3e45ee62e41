// package scene manages ordered collections of sprites with an optional 2D
// camera. A scene culls sprites against the camera's view, converts world
// transforms to screen space, and hands the results to a Drawer (the engine
// facade) which owns batching and submission.
package scene

import (
	"sort"
	"sync"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/camera"
	"github.com/emberforge/ember/engine/renderer/batch"
	"github.com/emberforge/ember/engine/renderer/target"
	"github.com/emberforge/ember/engine/sprite"
)

// Drawer receives the scene's visible sprites in draw order. Full-texture
// sprites arrive batched per texture; sprites with a section or animation
// frame arrive individually since the instanced path samples whole textures.
type Drawer interface {
	// DrawBatch draws packed sprite instances sampling one texture.
	//
	// Parameters:
	//   - tex: the texture sampled by every instance
	//   - dst: the render target drawn onto
	//   - instances: the instances in draw order
	//
	// Returns:
	//   - error: a submission error
	DrawBatch(tex *target.Texture, dst *target.RenderTarget, instances []batch.SpriteInstance) error

	// DrawSection draws one sprite sampling a texture sub-rectangle.
	//
	// Parameters:
	//   - tex: the texture to sample
	//   - section: the sampled sub-rectangle in texel coordinates
	//   - dst: the render target drawn onto
	//   - x, y: the sprite center in pixels
	//   - sx, sy: the scale factors applied to the section size
	//   - angle: the rotation in radians
	//   - tint: the color multiplied into sampled texels
	//
	// Returns:
	//   - error: a submission error
	DrawSection(tex *target.Texture, section common.Rect, dst *target.RenderTarget, x, y, sx, sy, angle float32, tint common.Color) error
}

// Scene holds sprites in z-order with an optional camera. Scenes can be
// hot-swapped via the Active flag to switch between views or levels.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera, or nil for a fixed view.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera, or nil for a fixed view
	SetCamera(cam camera.Camera)

	// Add registers a sprite at the given z layer and assigns it an ID.
	// Sprites draw in ascending z order; equal layers draw in insertion
	// order.
	//
	// Parameters:
	//   - z: the layer, lower draws first
	//   - sp: the sprite to add
	//
	// Returns:
	//   - uint64: the assigned sprite ID
	Add(z int, sp sprite.Sprite) uint64

	// Get retrieves a sprite by its ID.
	//
	// Parameters:
	//   - id: the sprite's unique ID
	//
	// Returns:
	//   - sprite.Sprite: the sprite or nil
	Get(id uint64) sprite.Sprite

	// Remove removes a sprite by ID.
	//
	// Parameters:
	//   - id: the sprite's unique ID
	Remove(id uint64)

	// Clear removes all sprites from the scene.
	Clear()

	// Count returns the number of sprites in the scene.
	//
	// Returns:
	//   - int: the sprite count
	Count() int

	// CullingDisabled returns whether view culling is disabled.
	//
	// Returns:
	//   - bool: true if every sprite is drawn regardless of visibility
	CullingDisabled() bool

	// SetCullingDisabled enables or disables view culling.
	//
	// Parameters:
	//   - disabled: true to draw every sprite
	SetCullingDisabled(disabled bool)

	// Advance steps every attached sprite animation forward.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	Advance(deltaTime float32)

	// Draw culls, transforms, and submits the scene's sprites through the
	// drawer in z order.
	//
	// Parameters:
	//   - d: the drawer receiving the visible sprites
	//   - dst: the render target drawn onto
	//   - screenW, screenH: the viewport size in pixels
	//
	// Returns:
	//   - error: the first submission error
	Draw(d Drawer, dst *target.RenderTarget, screenW, screenH float32) error
}

// entry pairs a sprite with its layer and insertion sequence for stable
// z ordering.
type entry struct {
	z   int
	seq uint64
	sp  sprite.Sprite
}

type sceneImpl struct {
	mu *sync.RWMutex

	name   string
	active bool

	cam camera.Camera

	entries []entry
	byID    map[uint64]int // sprite ID -> index into entries
	nextID  uint64

	cullingDisabled bool
}

var _ Scene = &sceneImpl{}

// NewScene creates an inactive scene with the given name.
//
// Parameters:
//   - name: the scene's identifier
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &sceneImpl{
		mu:     &sync.RWMutex{},
		name:   name,
		byID:   make(map[uint64]int),
		nextID: 1,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *sceneImpl) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *sceneImpl) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *sceneImpl) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *sceneImpl) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *sceneImpl) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *sceneImpl) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *sceneImpl) Add(z int, sp sprite.Sprite) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	sp.SetID(id)

	s.entries = append(s.entries, entry{z: z, seq: id, sp: sp})
	sort.SliceStable(s.entries, func(i, j int) bool {
		if s.entries[i].z != s.entries[j].z {
			return s.entries[i].z < s.entries[j].z
		}
		return s.entries[i].seq < s.entries[j].seq
	})
	s.reindex()
	return id
}

func (s *sceneImpl) Get(id uint64) sprite.Sprite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil
	}
	return s.entries[idx].sp
}

func (s *sceneImpl) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	s.reindex()
}

func (s *sceneImpl) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.byID = make(map[uint64]int)
}

// reindex rebuilds the ID lookup after entries move. Caller holds the write
// lock.
func (s *sceneImpl) reindex() {
	s.byID = make(map[uint64]int, len(s.entries))
	for i, e := range s.entries {
		s.byID[e.sp.ID()] = i
	}
}

func (s *sceneImpl) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *sceneImpl) CullingDisabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cullingDisabled
}

func (s *sceneImpl) SetCullingDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cullingDisabled = disabled
}

func (s *sceneImpl) Advance(deltaTime float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if a := e.sp.Animator(); a != nil {
			a.Advance(deltaTime)
		}
	}
}

func (s *sceneImpl) Draw(d Drawer, dst *target.RenderTarget, screenW, screenH float32) error {
	s.mu.RLock()
	entries := make([]entry, len(s.entries))
	copy(entries, s.entries)
	cam := s.cam
	culling := !s.cullingDisabled
	s.mu.RUnlock()

	var view common.Rect
	if cam != nil {
		view = cam.ViewRect(screenW, screenH)
	} else {
		view = common.Rect{W: screenW, H: screenH}
	}
	zoom := float32(1)
	if cam != nil {
		zoom = cam.Zoom()
	}

	// Run the batch per (z-contiguous, same texture) stretch of full-texture
	// sprites so draw order is preserved across the two submission paths.
	var pending []batch.SpriteInstance
	var pendingTex *target.Texture
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		err := d.DrawBatch(pendingTex, dst, pending)
		pending = pending[:0]
		return err
	}

	for _, e := range entries {
		sp := e.sp
		if !sp.Visible() {
			continue
		}
		if culling && !sp.Bounds().Intersects(view) {
			continue
		}

		wx, wy := sp.Position()
		sx, sy := sp.Scale()
		x, y := wx, wy
		if cam != nil {
			x, y = cam.WorldToScreen(wx, wy, screenW, screenH)
		}

		section := sp.Section()
		if !section.IsZero() {
			// Sectioned sprites bypass the batch: the instanced path samples
			// whole textures only.
			if err := flush(); err != nil {
				return err
			}
			if err := d.DrawSection(sp.Texture(), section, dst, x, y, sx*zoom, sy*zoom, sp.Rotation(), sp.Tint()); err != nil {
				return err
			}
			continue
		}

		tex := sp.Texture()
		if pendingTex != tex {
			if err := flush(); err != nil {
				return err
			}
			pendingTex = tex
		}
		pending = append(pending, batch.SpriteInstance{
			X:      x,
			Y:      y,
			ScaleX: float32(tex.Width()) * sx * zoom,
			ScaleY: float32(tex.Height()) * sy * zoom,
			Angle:  sp.Rotation(),
			Tint:   sp.Tint(),
			Glow:   sp.Glow(),
		})
	}
	return flush()
}
