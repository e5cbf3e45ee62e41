package scene

import (
	"testing"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/camera"
	"github.com/emberforge/ember/engine/renderer/batch"
	"github.com/emberforge/ember/engine/renderer/target"
	"github.com/emberforge/ember/engine/sprite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchCall struct {
	tex       *target.Texture
	instances []batch.SpriteInstance
}

type sectionCall struct {
	tex     *target.Texture
	section common.Rect
	x, y    float32
	sx, sy  float32
}

// recordingDrawer captures draw calls in submission order.
type recordingDrawer struct {
	batches  []batchCall
	sections []sectionCall
	order    []string // "batch" or "section" per call
}

func (r *recordingDrawer) DrawBatch(tex *target.Texture, dst *target.RenderTarget, instances []batch.SpriteInstance) error {
	copied := make([]batch.SpriteInstance, len(instances))
	copy(copied, instances)
	r.batches = append(r.batches, batchCall{tex: tex, instances: copied})
	r.order = append(r.order, "batch")
	return nil
}

func (r *recordingDrawer) DrawSection(tex *target.Texture, section common.Rect, dst *target.RenderTarget, x, y, sx, sy, angle float32, tint common.Color) error {
	r.sections = append(r.sections, sectionCall{tex: tex, section: section, x: x, y: y, sx: sx, sy: sy})
	r.order = append(r.order, "section")
	return nil
}

func newTexture(t *testing.T, w, h uint32) *target.Texture {
	t.Helper()
	tex, err := target.NewTexture(w, h)
	require.NoError(t, err)
	return tex
}

func newDst(t *testing.T) *target.RenderTarget {
	t.Helper()
	dst, err := target.NewRenderTarget(800, 600)
	require.NoError(t, err)
	return dst
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := NewScene("test")
	tex := newTexture(t, 8, 8)

	a := s.Add(0, sprite.NewSprite(tex))
	b := s.Add(0, sprite.NewSprite(tex))
	assert.Equal(t, uint64(1), a)
	assert.Equal(t, uint64(2), b)
	assert.Equal(t, 2, s.Count())

	assert.NotNil(t, s.Get(a))
	assert.Equal(t, a, s.Get(a).ID())
	assert.Nil(t, s.Get(999))
}

func TestRemoveAndClear(t *testing.T) {
	s := NewScene("test")
	tex := newTexture(t, 8, 8)

	id := s.Add(0, sprite.NewSprite(tex))
	s.Add(0, sprite.NewSprite(tex))

	s.Remove(id)
	assert.Equal(t, 1, s.Count())
	assert.Nil(t, s.Get(id))

	s.Remove(id) // removing twice is harmless
	s.Clear()
	assert.Equal(t, 0, s.Count())
}

func TestDrawOrdersByLayer(t *testing.T) {
	s := NewScene("test")
	texA := newTexture(t, 8, 8)
	texB := newTexture(t, 8, 8)

	// Added out of layer order on purpose.
	s.Add(5, sprite.NewSprite(texB, sprite.WithPosition(10, 10)))
	s.Add(-1, sprite.NewSprite(texA, sprite.WithPosition(20, 20)))

	d := &recordingDrawer{}
	require.NoError(t, s.Draw(d, newDst(t), 800, 600))

	require.Len(t, d.batches, 2)
	assert.Same(t, texA, d.batches[0].tex)
	assert.Same(t, texB, d.batches[1].tex)
}

func TestDrawStableWithinLayer(t *testing.T) {
	s := NewScene("test")
	tex := newTexture(t, 8, 8)

	for i := 0; i < 4; i++ {
		s.Add(0, sprite.NewSprite(tex, sprite.WithPosition(float32(i*10), 0)))
	}

	d := &recordingDrawer{}
	require.NoError(t, s.Draw(d, newDst(t), 800, 600))

	require.Len(t, d.batches, 1)
	require.Len(t, d.batches[0].instances, 4)
	for i, inst := range d.batches[0].instances {
		assert.Equal(t, float32(i*10), inst.X)
	}
}

func TestDrawBatchesPerTexture(t *testing.T) {
	s := NewScene("test")
	texA := newTexture(t, 8, 8)
	texB := newTexture(t, 8, 8)

	s.Add(0, sprite.NewSprite(texA, sprite.WithPosition(0, 0)))
	s.Add(0, sprite.NewSprite(texA, sprite.WithPosition(10, 0)))
	s.Add(0, sprite.NewSprite(texB, sprite.WithPosition(20, 0)))
	s.Add(0, sprite.NewSprite(texA, sprite.WithPosition(30, 0)))

	d := &recordingDrawer{}
	require.NoError(t, s.Draw(d, newDst(t), 800, 600))

	// Texture switches break the batch but draw order is preserved.
	require.Len(t, d.batches, 3)
	assert.Len(t, d.batches[0].instances, 2)
	assert.Len(t, d.batches[1].instances, 1)
	assert.Len(t, d.batches[2].instances, 1)
	assert.Same(t, texA, d.batches[0].tex)
	assert.Same(t, texB, d.batches[1].tex)
	assert.Same(t, texA, d.batches[2].tex)
}

func TestSectionedSpriteFlushesBatch(t *testing.T) {
	s := NewScene("test")
	tex := newTexture(t, 32, 32)

	s.Add(0, sprite.NewSprite(tex, sprite.WithPosition(0, 0)))
	s.Add(0, sprite.NewSprite(tex,
		sprite.WithPosition(10, 0),
		sprite.WithSection(common.Rect{X: 16, Y: 0, W: 16, H: 16}),
	))
	s.Add(0, sprite.NewSprite(tex, sprite.WithPosition(20, 0)))

	d := &recordingDrawer{}
	require.NoError(t, s.Draw(d, newDst(t), 800, 600))

	// The section draw interleaves between two batch submissions.
	assert.Equal(t, []string{"batch", "section", "batch"}, d.order)
	require.Len(t, d.sections, 1)
	assert.Equal(t, common.Rect{X: 16, Y: 0, W: 16, H: 16}, d.sections[0].section)
}

func TestDrawSkipsInvisibleSprites(t *testing.T) {
	s := NewScene("test")
	tex := newTexture(t, 8, 8)

	s.Add(0, sprite.NewSprite(tex, sprite.WithPosition(0, 0)))
	hidden := sprite.NewSprite(tex, sprite.WithPosition(10, 0))
	hidden.SetVisible(false)
	s.Add(0, hidden)

	d := &recordingDrawer{}
	require.NoError(t, s.Draw(d, newDst(t), 800, 600))

	require.Len(t, d.batches, 1)
	assert.Len(t, d.batches[0].instances, 1)
}

func TestDrawCullsOffscreenSprites(t *testing.T) {
	s := NewScene("test")
	tex := newTexture(t, 8, 8)

	s.Add(0, sprite.NewSprite(tex, sprite.WithPosition(100, 100)))
	s.Add(0, sprite.NewSprite(tex, sprite.WithPosition(5000, 5000)))

	d := &recordingDrawer{}
	require.NoError(t, s.Draw(d, newDst(t), 800, 600))
	require.Len(t, d.batches, 1)
	assert.Len(t, d.batches[0].instances, 1)

	// Disabling culling draws everything.
	s.SetCullingDisabled(true)
	d = &recordingDrawer{}
	require.NoError(t, s.Draw(d, newDst(t), 800, 600))
	require.Len(t, d.batches, 1)
	assert.Len(t, d.batches[0].instances, 2)
}

func TestDrawAppliesCameraTransform(t *testing.T) {
	cam := camera.NewCamera(camera.WithPosition(100, 100), camera.WithZoom(2))
	s := NewScene("test", WithCamera(cam))
	tex := newTexture(t, 8, 8)

	s.Add(0, sprite.NewSprite(tex, sprite.WithPosition(110, 90)))

	d := &recordingDrawer{}
	require.NoError(t, s.Draw(d, newDst(t), 800, 600))

	require.Len(t, d.batches, 1)
	require.Len(t, d.batches[0].instances, 1)
	inst := d.batches[0].instances[0]
	assert.Equal(t, float32(420), inst.X)
	assert.Equal(t, float32(280), inst.Y)
	// Zoom scales the on-screen sprite size.
	assert.Equal(t, float32(16), inst.ScaleX)
	assert.Equal(t, float32(16), inst.ScaleY)
}

func TestDrawCullsAgainstCameraView(t *testing.T) {
	cam := camera.NewCamera(camera.WithPosition(1000, 1000))
	s := NewScene("test", WithCamera(cam))
	tex := newTexture(t, 8, 8)

	// Near the camera but far from the origin.
	s.Add(0, sprite.NewSprite(tex, sprite.WithPosition(1050, 1050)))
	// Near the origin but far from the camera.
	s.Add(0, sprite.NewSprite(tex, sprite.WithPosition(10, 10)))

	d := &recordingDrawer{}
	require.NoError(t, s.Draw(d, newDst(t), 800, 600))

	require.Len(t, d.batches, 1)
	assert.Len(t, d.batches[0].instances, 1)
	assert.Equal(t, float32(450), d.batches[0].instances[0].X)
}

func TestSceneOptions(t *testing.T) {
	cam := camera.NewCamera()
	s := NewScene("opts", WithCamera(cam), WithActive(), WithCullingDisabled())

	assert.Equal(t, "opts", s.Name())
	assert.True(t, s.Active())
	assert.True(t, s.CullingDisabled())
	assert.Same(t, cam, s.Camera())

	s.SetActive(false)
	assert.False(t, s.Active())
	s.SetName("renamed")
	assert.Equal(t, "renamed", s.Name())
}
