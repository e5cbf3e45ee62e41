package batch

import (
	"testing"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedDraw captures one submitted instanced draw.
type recordedDraw struct {
	program   shader.Program
	texture   *target.Texture
	dst       *target.RenderTarget
	instances []float32
	count     int
}

// recordingSubmitter captures submitted batches for inspection.
type recordingSubmitter struct {
	draws []recordedDraw
	err   error
}

func (r *recordingSubmitter) SubmitBatch(p shader.Program, tex *target.Texture, dst *target.RenderTarget, instances []float32, count int) error {
	if r.err != nil {
		return r.err
	}
	copied := make([]float32, len(instances))
	copy(copied, instances)
	r.draws = append(r.draws, recordedDraw{program: p, texture: tex, dst: dst, instances: copied, count: count})
	return nil
}

type fixture struct {
	sub     *recordingSubmitter
	batch   InstanceBatch
	program shader.Program
	texture *target.Texture
	dst     *target.RenderTarget
}

func newFixture(t *testing.T, opts ...BuilderOption) *fixture {
	t.Helper()
	sub := &recordingSubmitter{}
	b, err := NewInstanceBatch(sub, opts...)
	require.NoError(t, err)

	p, err := shader.NewProgram("sprite", shader.WithEffect(shader.Effect{Kind: shader.KindSprite}))
	require.NoError(t, err)
	tex, err := target.NewTexture(8, 8)
	require.NoError(t, err)
	dst, err := target.NewRenderTarget(64, 64)
	require.NoError(t, err)

	return &fixture{sub: sub, batch: b, program: p, texture: tex, dst: dst}
}

func TestNewInstanceBatchValidation(t *testing.T) {
	_, err := NewInstanceBatch(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)

	_, err = NewInstanceBatch(&recordingSubmitter{}, WithCapacity(0))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)
}

func TestFlushEmptyBatchIsNoOp(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.batch.Flush())
	require.NoError(t, f.batch.Begin(f.program, f.texture, f.dst))
	require.NoError(t, f.batch.Flush())

	assert.Empty(t, f.sub.draws)
}

func TestPushBeforeBeginIsContractViolation(t *testing.T) {
	f := newFixture(t)

	err := f.batch.Push(SpriteInstance{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)
}

func TestManyPushesOneDraw(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.batch.Begin(f.program, f.texture, f.dst))

	const n = 100
	for i := 0; i < n; i++ {
		require.NoError(t, f.batch.Push(SpriteInstance{X: float32(i), ScaleX: 1, ScaleY: 1, Tint: common.ColorWhite}))
	}
	assert.Equal(t, n, f.batch.Len())
	require.NoError(t, f.batch.Flush())

	require.Len(t, f.sub.draws, 1)
	assert.Equal(t, n, f.sub.draws[0].count)
	assert.Len(t, f.sub.draws[0].instances, n*InstanceFloats)
	assert.Equal(t, 0, f.batch.Len())
}

func TestCapacityOverflowSplitsDraws(t *testing.T) {
	f := newFixture(t, WithCapacity(8))
	require.NoError(t, f.batch.Begin(f.program, f.texture, f.dst))

	for i := 0; i < 9; i++ {
		require.NoError(t, f.batch.Push(SpriteInstance{}))
	}
	require.NoError(t, f.batch.Flush())

	require.Len(t, f.sub.draws, 2)
	assert.Equal(t, 8, f.sub.draws[0].count)
	assert.Equal(t, 1, f.sub.draws[1].count)
}

func TestBindingSwitchFlushesPending(t *testing.T) {
	f := newFixture(t)
	other, err := target.NewTexture(16, 16)
	require.NoError(t, err)

	require.NoError(t, f.batch.Begin(f.program, f.texture, f.dst))
	require.NoError(t, f.batch.Push(SpriteInstance{}))
	require.NoError(t, f.batch.Push(SpriteInstance{}))

	// Re-beginning with a different texture flushes the two pending sprites.
	require.NoError(t, f.batch.Begin(f.program, other, f.dst))
	require.Len(t, f.sub.draws, 1)
	assert.Equal(t, 2, f.sub.draws[0].count)
	assert.Same(t, f.texture, f.sub.draws[0].texture)

	require.NoError(t, f.batch.Push(SpriteInstance{}))
	require.NoError(t, f.batch.Flush())
	require.Len(t, f.sub.draws, 2)
	assert.Same(t, other, f.sub.draws[1].texture)
}

func TestBeginSameBindingDoesNotFlush(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.batch.Begin(f.program, f.texture, f.dst))
	require.NoError(t, f.batch.Push(SpriteInstance{}))
	require.NoError(t, f.batch.Begin(f.program, f.texture, f.dst))

	assert.Empty(t, f.sub.draws)
	assert.Equal(t, 1, f.batch.Len())
}

func TestInstancePacking(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.batch.Begin(f.program, f.texture, f.dst))

	inst := SpriteInstance{
		X: 1, Y: 2,
		ScaleX: 3, ScaleY: 4,
		Angle: 5,
		Tint:  common.Color{R: 0.1, G: 0.2, B: 0.3, A: 0.4},
		Glow:  0.9,
	}
	require.NoError(t, f.batch.Push(inst))
	require.NoError(t, f.batch.Flush())

	require.Len(t, f.sub.draws, 1)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 0.1, 0.2, 0.3, 0.4, 0.9}, f.sub.draws[0].instances)
}
