package renderer

import (
	"testing"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReferenceRenderer(t *testing.T) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeReference)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func registerEffect(t *testing.T, r Renderer, e shader.Effect) shader.Program {
	t.Helper()
	p, err := shader.NewProgram(e.Key(), shader.WithEffect(e))
	require.NoError(t, err)
	require.NoError(t, r.RegisterPrograms(p))
	return p
}

func newInitializedTarget(t *testing.T, r Renderer, w, h uint32, opts ...target.TargetOption) *target.RenderTarget {
	t.Helper()
	rt, err := target.NewRenderTarget(w, h, opts...)
	require.NoError(t, err)
	require.NoError(t, r.InitTarget(rt))
	return rt
}

// solidTexture uploads a w x h texture filled with one 8-bit color.
func solidTexture(t *testing.T, r Renderer, w, h uint32, rgba [4]uint8) *target.Texture {
	t.Helper()
	pixels := make([]byte, w*h*4)
	for i := uint32(0); i < w*h; i++ {
		pixels[i*4] = rgba[0]
		pixels[i*4+1] = rgba[1]
		pixels[i*4+2] = rgba[2]
		pixels[i*4+3] = rgba[3]
	}
	tex, err := r.CreateTexture(&common.TextureStagingData{Pixels: pixels, Width: w, Height: h}, nil)
	require.NoError(t, err)
	return tex
}

func pixelAt(pix []float32, w, x, y int) common.Color {
	i := (y*w + x) * 4
	return common.Color{R: pix[i], G: pix[i+1], B: pix[i+2], A: pix[i+3]}
}

func TestProgramCacheSkipsDuplicates(t *testing.T) {
	r := newReferenceRenderer(t)

	p := registerEffect(t, r, shader.Effect{Kind: shader.KindBlit})
	assert.Same(t, p, r.Program("blit"))

	// Re-registering the same key is a no-op, not an error.
	dup, err := shader.NewProgram("blit", shader.WithEffect(shader.Effect{Kind: shader.KindBlit}))
	require.NoError(t, err)
	require.NoError(t, r.RegisterPrograms(dup))
	assert.Same(t, p, r.Program("blit"))

	assert.Nil(t, r.Program("missing"))
}

func TestClearAndReadPixels(t *testing.T) {
	r := newReferenceRenderer(t)
	rt := newInitializedTarget(t, r, 4, 4)

	require.NoError(t, r.Clear(rt, common.Color{R: 1, G: 0.5, B: 0, A: 1}))

	img, err := r.ReadPixels(rt)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), img.Pix[0])
	assert.Equal(t, uint8(128), img.Pix[1])
	assert.Equal(t, uint8(0), img.Pix[2])
	assert.Equal(t, uint8(255), img.Pix[3])
}

func TestRedSpriteEndToEnd(t *testing.T) {
	r := newReferenceRenderer(t)
	rt := newInitializedTarget(t, r, 2, 2)
	red := solidTexture(t, r, 2, 2, [4]uint8{255, 0, 0, 255})

	// The per-instance glow variant with glow 0 contributes nothing, so the
	// output is the plain tinted texel.
	p := registerEffect(t, r, shader.Effect{Kind: shader.KindSprite, InstanceGlow: true})

	instances := []float32{
		1, 1, // center of the 2x2 target
		2, 2, // scaled to cover it fully
		0, // no rotation
		1, 1, 1, 1, // white tint
		0, // no glow
	}
	require.NoError(t, r.SubmitBatch(p, red, rt, instances, 1))

	pix, err := r.ReadPixelsFloat(rt)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			c := pixelAt(pix, 2, x, y)
			assert.InDelta(t, 1, c.R, 1e-5)
			assert.InDelta(t, 0, c.G, 1e-5)
			assert.InDelta(t, 0, c.B, 1e-5)
			assert.InDelta(t, 1, c.A, 1e-5)
		}
	}
}

func TestSubmitBatchValidation(t *testing.T) {
	r := newReferenceRenderer(t)
	rt := newInitializedTarget(t, r, 4, 4)
	tex := solidTexture(t, r, 2, 2, [4]uint8{255, 255, 255, 255})
	p := registerEffect(t, r, shader.Effect{Kind: shader.KindSprite})

	// Count and float length must agree.
	err := r.SubmitBatch(p, tex, rt, make([]float32, 10), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)

	// Unregistered programs are rejected.
	unregistered, err := shader.NewProgram("other_sprite", shader.WithEffect(shader.Effect{Kind: shader.KindSprite}))
	require.NoError(t, err)
	err = r.SubmitBatch(unregistered, tex, rt, make([]float32, 10), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)
}

func TestSubmitQuadsEmptyVerticesIsNoOp(t *testing.T) {
	r := newReferenceRenderer(t)
	rt := newInitializedTarget(t, r, 4, 4)
	p := registerEffect(t, r, shader.Effect{Kind: shader.KindSolid})

	require.NoError(t, r.SubmitQuads(p, nil, rt, nil))
	assert.Equal(t, uint64(0), r.Stats().DrawCalls)

	err := r.SubmitQuads(p, nil, rt, make([]float32, 8))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)
}

func TestScreenPassInputCountMismatch(t *testing.T) {
	r := newReferenceRenderer(t)
	out := newInitializedTarget(t, r, 4, 4)
	p := registerEffect(t, r, shader.Effect{Kind: shader.KindBlit})

	err := r.SubmitScreenPass(p, nil, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)
}

func TestReadWriteHazardRejected(t *testing.T) {
	r := newReferenceRenderer(t)
	out := newInitializedTarget(t, r, 4, 4)
	p := registerEffect(t, r, shader.Effect{Kind: shader.KindBlit})

	err := r.SubmitScreenPass(p, []*target.Texture{out.AsReadTexture()}, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)
}

func TestStaleViewRejectedAfterResize(t *testing.T) {
	r := newReferenceRenderer(t)
	src := newInitializedTarget(t, r, 4, 4)
	out := newInitializedTarget(t, r, 4, 4)
	p := registerEffect(t, r, shader.Effect{Kind: shader.KindBlit})

	view := src.AsReadTexture()
	require.NoError(t, r.SubmitScreenPass(p, []*target.Texture{view}, out))

	require.NoError(t, r.ResizeTarget(src, 8, 8))

	err := r.SubmitScreenPass(p, []*target.Texture{view}, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)

	// A view taken after the resize works.
	require.NoError(t, r.SubmitScreenPass(p, []*target.Texture{src.AsReadTexture()}, out))
}

func TestResizeTargetValidation(t *testing.T) {
	r := newReferenceRenderer(t)
	rt := newInitializedTarget(t, r, 4, 4)

	err := r.ResizeTarget(rt, 0, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)

	uninit, err := target.NewRenderTarget(4, 4)
	require.NoError(t, err)
	err = r.ResizeTarget(uninit, 8, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)
}

func TestToneMapMonotonicAndBounded(t *testing.T) {
	r := newReferenceRenderer(t)
	p := registerEffect(t, r, shader.Effect{Kind: shader.KindToneMap})
	require.NoError(t, p.SetUniform("exposure", 1.5))

	out := newInitializedTarget(t, r, 1, 1)
	hdr := newInitializedTarget(t, r, 1, 1, target.WithFormat(common.TextureFormatRGBA16Float))

	var prev float32 = -1
	for _, level := range []float32{0, 0.5, 1, 2, 4, 8} {
		require.NoError(t, r.Clear(hdr, common.Color{R: level, G: level, B: level, A: 1}))
		require.NoError(t, r.Clear(out, common.ColorTransparent))
		require.NoError(t, r.SubmitScreenPass(p, []*target.Texture{hdr.AsReadTexture()}, out))

		pix, err := r.ReadPixelsFloat(out)
		require.NoError(t, err)
		got := pix[0]
		assert.Greater(t, got, prev, "tone mapping must be strictly increasing at level %g", level)
		assert.Less(t, got, float32(1), "tone mapped output stays below 1 at level %g", level)
		prev = got
	}
}

func TestMaskEndpointsExact(t *testing.T) {
	r := newReferenceRenderer(t)
	p := registerEffect(t, r, shader.Effect{Kind: shader.KindMask})

	a := solidTexture(t, r, 2, 2, [4]uint8{51, 102, 153, 255})
	b := solidTexture(t, r, 2, 2, [4]uint8{204, 153, 102, 255})
	out := newInitializedTarget(t, r, 2, 2)

	// Mask red channel 1 selects input a exactly.
	white := solidTexture(t, r, 2, 2, [4]uint8{255, 255, 255, 255})
	require.NoError(t, r.SubmitScreenPass(p, []*target.Texture{a, white, b}, out))
	pix, err := r.ReadPixelsFloat(out)
	require.NoError(t, err)
	c := pixelAt(pix, 2, 0, 0)
	assert.Equal(t, float32(51)/255, c.R)
	assert.Equal(t, float32(102)/255, c.G)
	assert.Equal(t, float32(153)/255, c.B)

	// Mask red channel 0 selects input b exactly.
	black := solidTexture(t, r, 2, 2, [4]uint8{0, 0, 0, 255})
	require.NoError(t, r.Clear(out, common.ColorTransparent))
	require.NoError(t, r.SubmitScreenPass(p, []*target.Texture{a, black, b}, out))
	pix, err = r.ReadPixelsFloat(out)
	require.NoError(t, err)
	c = pixelAt(pix, 2, 1, 1)
	assert.Equal(t, float32(204)/255, c.R)
	assert.Equal(t, float32(153)/255, c.G)
	assert.Equal(t, float32(102)/255, c.B)
}

func TestChannelAdjustPass(t *testing.T) {
	r := newReferenceRenderer(t)
	p := registerEffect(t, r, shader.Effect{Kind: shader.KindChannelAdjust})

	// Delta +0.25 on R enabled, +0.5 on G disabled.
	require.NoError(t, p.SetUniformBlock("values", []float32{0.25, 0.5, 0, 0, 1, 0, 0, 0}))

	in := solidTexture(t, r, 1, 1, [4]uint8{102, 102, 102, 255})
	out := newInitializedTarget(t, r, 1, 1)
	require.NoError(t, r.SubmitScreenPass(p, []*target.Texture{in}, out))

	pix, err := r.ReadPixelsFloat(out)
	require.NoError(t, err)
	base := float32(102) / 255
	assert.InDelta(t, base+0.25, pix[0], 1e-5)
	assert.InDelta(t, base, pix[1], 1e-5)
	assert.InDelta(t, base, pix[2], 1e-5)
}

func TestHDRKeepsUnclampedValues(t *testing.T) {
	r := newReferenceRenderer(t)
	hdr := newInitializedTarget(t, r, 2, 2, target.WithFormat(common.TextureFormatRGBA16Float))

	require.NoError(t, r.Clear(hdr, common.Color{R: 3, G: 0.5, B: -0.25, A: 1}))

	// Float readback preserves out-of-range values.
	pix, err := r.ReadPixelsFloat(hdr)
	require.NoError(t, err)
	assert.Equal(t, float32(3), pix[0])
	assert.Equal(t, float32(-0.25), pix[2])

	// 8-bit readback is the quantization point and clamps.
	img, err := r.ReadPixels(hdr)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), img.Pix[0])
	assert.Equal(t, uint8(0), img.Pix[2])
}

func TestRGBA8TargetClampsOnStore(t *testing.T) {
	r := newReferenceRenderer(t)
	rt := newInitializedTarget(t, r, 1, 1)

	require.NoError(t, r.Clear(rt, common.Color{R: 5, G: -1, B: 0.5, A: 1}))
	pix, err := r.ReadPixelsFloat(rt)
	require.NoError(t, err)
	assert.Equal(t, float32(1), pix[0])
	assert.Equal(t, float32(0), pix[1])
	assert.Equal(t, float32(0.5), pix[2])
}

func TestStatsCounting(t *testing.T) {
	r := newReferenceRenderer(t)
	rt := newInitializedTarget(t, r, 4, 4)
	src := newInitializedTarget(t, r, 4, 4)
	tex := solidTexture(t, r, 2, 2, [4]uint8{255, 255, 255, 255})

	sprite := registerEffect(t, r, shader.Effect{Kind: shader.KindSprite})
	blit := registerEffect(t, r, shader.Effect{Kind: shader.KindBlit})

	require.NoError(t, r.Clear(rt, common.ColorBlack))
	require.NoError(t, r.SubmitBatch(sprite, tex, rt, make([]float32, 30), 3))
	require.NoError(t, r.SubmitScreenPass(blit, []*target.Texture{src.AsReadTexture()}, rt))

	stats := r.Stats()
	assert.Equal(t, uint64(2), stats.DrawCalls)
	assert.Equal(t, uint64(3), stats.Instances)
	assert.Equal(t, uint64(1), stats.ScreenPasses)
	assert.Equal(t, uint64(1), stats.Clears)

	r.ResetStats()
	assert.Equal(t, RenderStats{}, r.Stats())
}

func TestTintQuadDraw(t *testing.T) {
	r := newReferenceRenderer(t)
	rt := newInitializedTarget(t, r, 2, 2)
	white := solidTexture(t, r, 2, 2, [4]uint8{255, 255, 255, 255})
	p := registerEffect(t, r, shader.Effect{Kind: shader.KindTint})
	require.NoError(t, p.SetUniform("tintColor", 0.5, 0.25, 1, 1))

	// Two triangles covering the whole target.
	vertices := []float32{
		-1, -1, 0, 1,
		1, -1, 1, 1,
		1, 1, 1, 0,
		-1, -1, 0, 1,
		1, 1, 1, 0,
		-1, 1, 0, 0,
	}
	require.NoError(t, r.SubmitQuads(p, []*target.Texture{white}, rt, vertices))

	pix, err := r.ReadPixelsFloat(rt)
	require.NoError(t, err)
	c := pixelAt(pix, 2, 0, 0)
	assert.InDelta(t, 0.5, c.R, 1e-5)
	assert.InDelta(t, 0.25, c.G, 1e-5)
	assert.InDelta(t, 1, c.B, 1e-5)
}

func TestCreateTextureValidation(t *testing.T) {
	r := newReferenceRenderer(t)

	_, err := r.CreateTexture(nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)

	_, err = r.CreateTexture(&common.TextureStagingData{Pixels: make([]byte, 4), Width: 2, Height: 2}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)
}

func TestPresentWithoutSurfaceFails(t *testing.T) {
	r := newReferenceRenderer(t)
	rt := newInitializedTarget(t, r, 2, 2)
	require.Error(t, r.Present(rt))
}
