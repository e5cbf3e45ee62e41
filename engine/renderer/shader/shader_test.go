package shader

import (
	"testing"

	"github.com/emberforge/ember/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProgram(t *testing.T, e Effect) Program {
	t.Helper()
	p, err := NewProgram(e.Key(), WithEffect(e))
	require.NoError(t, err)
	return p
}

func TestEffectKeys(t *testing.T) {
	tests := []struct {
		effect Effect
		want   string
	}{
		{Effect{Kind: KindSprite}, "sprite"},
		{Effect{Kind: KindSprite, InstanceGlow: true}, "sprite_glow"},
		{Effect{Kind: KindBlit}, "blit"},
		{Effect{Kind: KindMask}, "mask"},
		{Effect{Kind: KindMask, MaskColor: true}, "mask_color"},
		{Effect{Kind: KindToneMap}, "tonemap"},
		{Effect{Kind: KindChannelAdjust}, "channels"},
		{Effect{Kind: KindText}, "text"},
		{Effect{Kind: KindSolid}, "solid"},
		{Effect{Kind: KindTint}, "tint"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.effect.Key())
	}
}

func TestEffectSourcesGenerateValidLayouts(t *testing.T) {
	kinds := []Effect{
		{Kind: KindSprite},
		{Kind: KindSprite, InstanceGlow: true},
		{Kind: KindBlit},
		{Kind: KindMask},
		{Kind: KindMask, MaskColor: true},
		{Kind: KindToneMap},
		{Kind: KindChannelAdjust},
		{Kind: KindText},
		{Kind: KindSolid},
		{Kind: KindTint},
	}
	for _, e := range kinds {
		vs, fs := e.Sources()
		require.NotEmpty(t, vs, e.Key())
		require.NotEmpty(t, fs, e.Key())

		p, err := NewProgram(e.Key(), WithEffect(e))
		require.NoError(t, err, e.Key())
		assert.Equal(t, "vs_main", p.Layout().VertexEntry)
		assert.Equal(t, "fs_main", p.Layout().FragmentEntry)
	}
}

func TestEffectGlowScaleDefaults(t *testing.T) {
	st, sg := Effect{Kind: KindSprite}.GlowScales()
	assert.Equal(t, float32(1), st)
	assert.Equal(t, float32(0.5), sg)

	st, sg = Effect{Kind: KindSprite, GlowScaleTime: 3, GlowScaleGlow: 0.25}.GlowScales()
	assert.Equal(t, float32(3), st)
	assert.Equal(t, float32(0.25), sg)
}

func TestSpriteLayoutUniforms(t *testing.T) {
	p := newTestProgram(t, Effect{Kind: KindSprite})
	layout := p.Layout()

	require.True(t, layout.HasUniform("screenSize"))
	require.True(t, layout.HasUniform("time"))
	assert.Equal(t, 0, layout.Uniforms["screenSize"].Offset)
	assert.Equal(t, 2, layout.Uniforms["screenSize"].Floats)
	assert.Equal(t, 8, layout.Uniforms["time"].Offset)
	assert.Equal(t, 1, layout.Uniforms["time"].Floats)
	assert.Equal(t, 16, layout.UniformSize)

	require.Len(t, layout.Textures, 1)
	assert.Equal(t, "imageTexture", layout.Textures[0].Name)
	assert.Equal(t, 1, layout.Textures[0].SamplerBinding)
}

func TestChannelAdjustBlockLayout(t *testing.T) {
	p := newTestProgram(t, Effect{Kind: KindChannelAdjust})
	layout := p.Layout()

	block, ok := layout.Blocks["values"]
	require.True(t, ok)
	assert.Equal(t, 0, block.Group)
	assert.Equal(t, 1, block.Binding)
	assert.Equal(t, 32, block.Size)
	assert.Equal(t, 0, layout.UniformSize)
}

func TestMaskLayoutTextureOrder(t *testing.T) {
	p := newTestProgram(t, Effect{Kind: KindMask})
	// Positional order is group then binding: image, mask, blend.
	assert.Equal(t, []string{"imageTexture", "maskTexture", "blendTexture"}, p.Layout().TextureNames())

	p = newTestProgram(t, Effect{Kind: KindMask, MaskColor: true})
	assert.Equal(t, []string{"imageTexture", "maskTexture"}, p.Layout().TextureNames())
	assert.True(t, p.Layout().HasUniform("fontColor"))
}

func TestSetUniformUnknownNameIsNoOp(t *testing.T) {
	p := newTestProgram(t, Effect{Kind: KindToneMap})

	assert.NoError(t, p.SetUniform("doesNotExist", 1))

	_, ok := p.Uniform("doesNotExist")
	assert.False(t, ok)
}

func TestSetUniformComponentMismatch(t *testing.T) {
	p := newTestProgram(t, Effect{Kind: KindToneMap})

	err := p.SetUniform("exposure", 1, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)
}

func TestSetUniformRoundTrip(t *testing.T) {
	p := newTestProgram(t, Effect{Kind: KindText})

	require.NoError(t, p.SetUniform("textColor", 0.1, 0.2, 0.3, 1))
	got, ok := p.Uniform("textColor")
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 1}, got)
}

func TestSetUniformBlock(t *testing.T) {
	p := newTestProgram(t, Effect{Kind: KindChannelAdjust})

	payload := []float32{0.1, 0, -0.2, 0, 1, 0, 1, 0}
	require.NoError(t, p.SetUniformBlock("values", payload))
	got, ok := p.UniformBlock("values")
	require.True(t, ok)
	assert.Equal(t, payload, got)

	err := p.SetUniformBlock("values", []float32{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrContractViolation)

	// Undeclared block names are ignored.
	assert.NoError(t, p.SetUniformBlock("unknown", payload))
}

func TestNewProgramRequiresSource(t *testing.T) {
	_, err := NewProgram("empty")
	require.Error(t, err)
}

func TestNewProgramRejectsMissingEntryPoints(t *testing.T) {
	_, err := NewProgram("broken", WithSource("fn nothing() {}", "fn nothing() {}"))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "broken", ce.Key)
	assert.Equal(t, "vertex", ce.Stage)
}

func TestNewProgramRejectsUnresolvableUniformType(t *testing.T) {
	vs := `@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }`
	fs := `@group(0) @binding(0) var<uniform> globals: Missing;
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(0.0); }`
	_, err := NewProgram("bad_uniform", WithSource(vs, fs))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "fragment", ce.Stage)
	assert.Contains(t, ce.Diagnostics, "Missing")
}

func TestParseCustomSourceLayout(t *testing.T) {
	vs := `struct Globals {
	offset: vec2<f32>,
	strength: f32,
	pad: f32,
}
@group(0) @binding(0) var<uniform> globals: Globals;
@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }`
	fs := `@group(1) @binding(0) var imageTexture: texture_2d<f32>;
@group(1) @binding(1) var imageSampler: sampler;
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(0.0); }`

	layout, err := ParseProgramLayout("custom", vs, fs)
	require.NoError(t, err)
	assert.Equal(t, 8, layout.Uniforms["strength"].Offset)
	assert.Equal(t, 16, layout.UniformSize)
	require.Len(t, layout.Textures, 1)
	assert.Equal(t, 1, layout.Textures[0].SamplerBinding)
}

func TestParseArrayFieldWithCommaInType(t *testing.T) {
	// Struct bodies split at field commas only; the comma inside
	// array<vec4<f32>, 2> is part of the type.
	vs := `@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }`
	fs := `struct Params {
	data: array<vec4<f32>, 2>,
	scale: f32,
}
@group(0) @binding(1) var<uniform> params: Params;
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(0.0); }`

	layout, err := ParseProgramLayout("array_field", vs, fs)
	require.NoError(t, err)
	block, ok := layout.Blocks["params"]
	require.True(t, ok)
	// Two 16-byte array elements plus a padded trailing float.
	assert.Equal(t, 48, block.Size)
}

func TestNumberSource(t *testing.T) {
	numbered := NumberSource("a\nb")
	assert.Contains(t, numbered, "1 | a")
	assert.Contains(t, numbered, "2 | b")
}
