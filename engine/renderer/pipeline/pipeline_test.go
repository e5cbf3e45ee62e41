package pipeline

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSubmitter captures submitted passes for inspection.
type recordingSubmitter struct {
	programs []shader.Program
	outputs  []*target.RenderTarget
	times    []float32
	err      error
}

func (r *recordingSubmitter) SubmitScreenPass(p shader.Program, inputs []*target.Texture, output *target.RenderTarget) error {
	if r.err != nil {
		return r.err
	}
	r.programs = append(r.programs, p)
	r.outputs = append(r.outputs, output)
	if tv, ok := p.Uniform("time"); ok {
		r.times = append(r.times, tv[0])
	}
	return nil
}

func newEffectProgram(t *testing.T, e shader.Effect) shader.Program {
	t.Helper()
	p, err := shader.NewProgram(e.Key(), shader.WithEffect(e))
	require.NoError(t, err)
	return p
}

func newTarget(t *testing.T, w, h uint32) *target.RenderTarget {
	t.Helper()
	rt, err := target.NewRenderTarget(w, h)
	require.NoError(t, err)
	return rt
}

func TestGlowIntensityBounds(t *testing.T) {
	for _, scaleGlow := range []float32{0.5, 1, 2} {
		for ti := 0; ti < 200; ti++ {
			v := GlowIntensity(float32(ti)*0.17, 1, scaleGlow)
			assert.GreaterOrEqual(t, v, float32(0))
			assert.LessOrEqual(t, v, 2*scaleGlow)
		}
	}
}

func TestGlowIntensityPeriodicity(t *testing.T) {
	period := 2 * math32.Pi
	for ti := 0; ti < 20; ti++ {
		x := float32(ti) * 0.3
		assert.InDelta(t, GlowIntensity(x, 1, 0.5), GlowIntensity(x+period, 1, 0.5), 1e-3)
	}
}

func TestGlowIntensityExtremes(t *testing.T) {
	// Peak at sin = 1, trough at sin = -1.
	assert.InDelta(t, 1, GlowIntensity(math32.Pi/2, 1, 0.5), 1e-5)
	assert.InDelta(t, 0, GlowIntensity(3*math32.Pi/2, 1, 0.5), 1e-5)
}

func TestChannelAdjustmentsPackOrder(t *testing.T) {
	adj := ChannelAdjustments{
		{Enabled: true, Delta: 0.1},
		{Enabled: false, Delta: 0.2},
		{Enabled: true, Delta: -0.3},
		{Enabled: false, Delta: 0.4},
	}
	packed := adj.Pack()
	assert.Equal(t, [8]float32{0.1, 0.2, -0.3, 0.4, 1, 0, 1, 0}, packed)
}

func TestChannelAdjustmentsApplyTo(t *testing.T) {
	adj := ChannelAdjustments{
		{Enabled: true, Delta: 0.5},
		{},
		{Enabled: true, Delta: -0.25},
		{},
	}
	got := adj.ApplyTo([4]float32{0.1, 0.2, 0.5, 1})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.2, got[1], 1e-6)
	assert.InDelta(t, 0.25, got[2], 1e-6)
	assert.InDelta(t, 1, got[3], 1e-6)
}

func TestNewPostChainRequiresSubmitter(t *testing.T) {
	_, err := NewPostChain(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)
}

func TestPostChainAddPassValidation(t *testing.T) {
	sub := &recordingSubmitter{}
	chain, err := NewPostChain(sub)
	require.NoError(t, err)

	blit := newEffectProgram(t, shader.Effect{Kind: shader.KindBlit})
	out := newTarget(t, 4, 4)
	in := newTarget(t, 4, 4)

	// Input count must match the program's texture declarations.
	err = chain.AddPass(blit, nil, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)

	// A pass never reads its own output.
	err = chain.AddPass(blit, []*target.Texture{out.AsReadTexture()}, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)

	require.NoError(t, chain.AddPass(blit, []*target.Texture{in.AsReadTexture()}, out))
	assert.Equal(t, 1, chain.Len())
}

func TestPostChainRunOrderAndTime(t *testing.T) {
	sub := &recordingSubmitter{}
	chain, err := NewPostChain(sub)
	require.NoError(t, err)

	a := newTarget(t, 4, 4)
	b := newTarget(t, 4, 4)
	c := newTarget(t, 4, 4)

	blit := newEffectProgram(t, shader.Effect{Kind: shader.KindBlit})
	sprite := newEffectProgram(t, shader.Effect{Kind: shader.KindSprite})

	require.NoError(t, chain.AddPass(blit, []*target.Texture{a.AsReadTexture()}, b))
	require.NoError(t, chain.AddPass(sprite, []*target.Texture{b.AsReadTexture()}, c))

	require.NoError(t, chain.Run(2.5))
	require.Len(t, sub.outputs, 2)
	assert.Same(t, b, sub.outputs[0])
	assert.Same(t, c, sub.outputs[1])

	// The sprite program declares "time" and received the frame time; the
	// blit program declares none and the set was a no-op.
	require.Len(t, sub.times, 1)
	assert.Equal(t, float32(2.5), sub.times[0])
}

func TestPostChainReset(t *testing.T) {
	sub := &recordingSubmitter{}
	chain, err := NewPostChain(sub)
	require.NoError(t, err)

	blit := newEffectProgram(t, shader.Effect{Kind: shader.KindBlit})
	in := newTarget(t, 4, 4)
	out := newTarget(t, 4, 4)
	require.NoError(t, chain.AddPass(blit, []*target.Texture{in.AsReadTexture()}, out))

	chain.Reset()
	assert.Equal(t, 0, chain.Len())
	require.NoError(t, chain.Run(0))
	assert.Empty(t, sub.outputs)
}

func TestPingPongSwap(t *testing.T) {
	a := newTarget(t, 4, 4)
	b := newTarget(t, 4, 4)

	pp, err := NewPingPong(a, b)
	require.NoError(t, err)
	assert.Same(t, a, pp.Source())
	assert.Same(t, b, pp.Dest())

	pp.Swap()
	assert.Same(t, b, pp.Source())
	assert.Same(t, a, pp.Dest())

	_, err = NewPingPong(nil, b)
	require.Error(t, err)
}
