package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the fragment behavior of a generated effect program.
type Kind int

const (
	// KindSprite samples a texture, multiplies by the per-instance tint, and
	// adds a time-varying glow contribution. Used with the instanced vertex path.
	KindSprite Kind = iota

	// KindBlit copies a texture to the output unchanged.
	KindBlit

	// KindMask composites two inputs using the red channel of a mask texture.
	KindMask

	// KindToneMap applies exponential tone mapping with a configurable exposure.
	KindToneMap

	// KindChannelAdjust adds per-channel deltas gated by per-channel flags,
	// both supplied through the 8-float "values" uniform block.
	KindChannelAdjust

	// KindText multiplies the red channel of a font atlas by a text color.
	KindText

	// KindSolid fills geometry with a single color.
	KindSolid

	// KindTint samples a texture and multiplies by the tintColor uniform.
	// Used for single-quad sprite draws outside the instanced path.
	KindTint
)

// String returns the name of the effect kind.
func (k Kind) String() string {
	switch k {
	case KindSprite:
		return "sprite"
	case KindBlit:
		return "blit"
	case KindMask:
		return "mask"
	case KindToneMap:
		return "tonemap"
	case KindChannelAdjust:
		return "channels"
	case KindText:
		return "text"
	case KindSolid:
		return "solid"
	case KindTint:
		return "tint"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Effect is a tagged description of a shader variant. The WGSL pair for a
// variant is generated from this value at program construction, and the
// reference backend evaluates the same value directly, so GPU and reference
// rendering share one definition of each effect.
type Effect struct {
	// Kind selects the fragment behavior.
	Kind Kind

	// InstanceGlow, for KindSprite, multiplies the glow contribution by the
	// per-instance glow attribute. When false the contribution is the global
	// intensity alone.
	InstanceGlow bool

	// MaskColor, for KindMask, blends toward the fontColor uniform instead
	// of a second input texture.
	MaskColor bool

	// GlowScaleTime and GlowScaleGlow parameterize the glow intensity
	// function (sin(t*scaleTime)+1)*scaleGlow. Zero values take the engine
	// defaults of 1 and 0.5.
	GlowScaleTime float32
	GlowScaleGlow float32
}

const (
	defaultGlowScaleTime = float32(1)
	defaultGlowScaleGlow = float32(0.5)
)

// Key returns a stable registration key for this effect variant.
//
// Returns:
//   - string: the variant key, e.g. "sprite_glow" or "mask_color"
func (e Effect) Key() string {
	switch e.Kind {
	case KindSprite:
		if e.InstanceGlow {
			return "sprite_glow"
		}
		return "sprite"
	case KindMask:
		if e.MaskColor {
			return "mask_color"
		}
		return "mask"
	default:
		return e.Kind.String()
	}
}

// Instanced reports whether this effect uses the instanced sprite vertex
// path instead of the pre-transformed quad path.
//
// Returns:
//   - bool: true for KindSprite
func (e Effect) Instanced() bool {
	return e.Kind == KindSprite
}

// GlowScales returns the effective glow parameters with defaults applied.
//
// Returns:
//   - float32: the time scale
//   - float32: the intensity scale
func (e Effect) GlowScales() (float32, float32) {
	st := e.GlowScaleTime
	if st == 0 {
		st = defaultGlowScaleTime
	}
	sg := e.GlowScaleGlow
	if sg == 0 {
		sg = defaultGlowScaleGlow
	}
	return st, sg
}

// Sources generates the WGSL vertex and fragment sources for this effect.
//
// Returns:
//   - string: the vertex stage WGSL
//   - string: the fragment stage WGSL
func (e Effect) Sources() (string, string) {
	if e.Kind == KindSprite {
		return spriteVertexWGSL, e.spriteFragment()
	}
	return quadVertexWGSL, e.quadFragment()
}

func (e Effect) spriteFragment() string {
	st, sg := e.GlowScales()
	glowLine := "color = vec4<f32>(color.rgb + glowIntensity(globals.time), color.a);"
	if e.InstanceGlow {
		glowLine = "color = vec4<f32>(color.rgb + glowIntensity(globals.time) * glow, color.a);"
	}
	return fmt.Sprintf(spriteFragmentWGSL, wgslFloat(st), wgslFloat(sg), glowLine)
}

func (e Effect) quadFragment() string {
	switch e.Kind {
	case KindBlit:
		return blitFragmentWGSL
	case KindMask:
		if e.MaskColor {
			return maskColorFragmentWGSL
		}
		return maskBlendFragmentWGSL
	case KindToneMap:
		return toneMapFragmentWGSL
	case KindChannelAdjust:
		return channelAdjustFragmentWGSL
	case KindText:
		return textFragmentWGSL
	case KindSolid:
		return solidFragmentWGSL
	case KindTint:
		return tintFragmentWGSL
	default:
		return ""
	}
}

// wgslFloat formats a float32 as a WGSL f32 literal, always including a
// decimal point so the literal is not mistaken for an abstract int.
func wgslFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// spriteVertexWGSL transforms unit-quad corners by per-instance attributes.
// The order is fixed: scale, rotate, translate, then the projection to clip
// space with the y flip applied last.
const spriteVertexWGSL = `struct Globals {
	screenSize: vec2<f32>,
	time: f32,
	pad0: f32,
}

@group(0) @binding(0) var<uniform> globals: Globals;

struct VertexInput {
	@location(0) vertexPos: vec2<f32>,
	@location(1) vertexTexCoord: vec2<f32>,
	@location(2) position: vec2<f32>,
	@location(3) scale: vec2<f32>,
	@location(4) angle: f32,
	@location(5) tint: vec4<f32>,
	@location(6) glow: f32,
}

struct VertexOutput {
	@builtin(position) clipPos: vec4<f32>,
	@location(0) texCoord: vec2<f32>,
	@location(1) tint: vec4<f32>,
	@location(2) glow: f32,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
	let scaled = in.vertexPos * in.scale;
	let c = cos(in.angle);
	let s = sin(in.angle);
	let rotated = vec2<f32>(scaled.x * c - scaled.y * s, scaled.x * s + scaled.y * c);
	let world = rotated + in.position;
	var ndc = world / globals.screenSize * 2.0 - vec2<f32>(1.0, 1.0);
	ndc.y = -ndc.y;
	var out: VertexOutput;
	out.clipPos = vec4<f32>(ndc, 0.0, 1.0);
	out.texCoord = in.vertexTexCoord;
	out.tint = in.tint;
	out.glow = in.glow;
	return out;
}
`

const spriteFragmentWGSL = `struct Globals {
	screenSize: vec2<f32>,
	time: f32,
	pad0: f32,
}

@group(0) @binding(0) var<uniform> globals: Globals;
@group(1) @binding(0) var imageTexture: texture_2d<f32>;
@group(1) @binding(1) var imageSampler: sampler;

const glowScaleTime: f32 = %s;
const glowScaleGlow: f32 = %s;

fn glowIntensity(t: f32) -> f32 {
	return (sin(t * glowScaleTime) + 1.0) * glowScaleGlow;
}

@fragment
fn fs_main(@location(0) texCoord: vec2<f32>, @location(1) tint: vec4<f32>, @location(2) glow: f32) -> @location(0) vec4<f32> {
	var color = textureSample(imageTexture, imageSampler, texCoord) * tint;
	%s
	return color;
}
`

// quadVertexWGSL passes pre-transformed clip-space vertices through. Used by
// full-screen passes, single-sprite quads, text, and shape geometry.
const quadVertexWGSL = `struct VertexOutput {
	@builtin(position) clipPos: vec4<f32>,
	@location(0) texCoord: vec2<f32>,
}

@vertex
fn vs_main(@location(0) vertexPos: vec2<f32>, @location(1) vertexTexCoord: vec2<f32>) -> VertexOutput {
	var out: VertexOutput;
	out.clipPos = vec4<f32>(vertexPos, 0.0, 1.0);
	out.texCoord = vertexTexCoord;
	return out;
}
`

const blitFragmentWGSL = `@group(1) @binding(0) var imageTexture: texture_2d<f32>;
@group(1) @binding(1) var imageSampler: sampler;

@fragment
fn fs_main(@location(0) texCoord: vec2<f32>) -> @location(0) vec4<f32> {
	return textureSample(imageTexture, imageSampler, texCoord);
}
`

const maskBlendFragmentWGSL = `@group(1) @binding(0) var imageTexture: texture_2d<f32>;
@group(1) @binding(1) var imageSampler: sampler;
@group(1) @binding(2) var maskTexture: texture_2d<f32>;
@group(1) @binding(3) var maskSampler: sampler;
@group(1) @binding(4) var blendTexture: texture_2d<f32>;
@group(1) @binding(5) var blendSampler: sampler;

@fragment
fn fs_main(@location(0) texCoord: vec2<f32>) -> @location(0) vec4<f32> {
	let a = textureSample(imageTexture, imageSampler, texCoord);
	let b = textureSample(blendTexture, blendSampler, texCoord);
	let m = textureSample(maskTexture, maskSampler, texCoord).r;
	return m * a + (1.0 - m) * b;
}
`

const maskColorFragmentWGSL = `struct Globals {
	fontColor: vec4<f32>,
}

@group(0) @binding(0) var<uniform> globals: Globals;
@group(1) @binding(0) var imageTexture: texture_2d<f32>;
@group(1) @binding(1) var imageSampler: sampler;
@group(1) @binding(2) var maskTexture: texture_2d<f32>;
@group(1) @binding(3) var maskSampler: sampler;

@fragment
fn fs_main(@location(0) texCoord: vec2<f32>) -> @location(0) vec4<f32> {
	let a = textureSample(imageTexture, imageSampler, texCoord);
	let m = textureSample(maskTexture, maskSampler, texCoord).r;
	return m * a + (1.0 - m) * globals.fontColor;
}
`

const toneMapFragmentWGSL = `struct Globals {
	exposure: f32,
	pad0: f32,
	pad1: f32,
	pad2: f32,
}

@group(0) @binding(0) var<uniform> globals: Globals;
@group(1) @binding(0) var imageTexture: texture_2d<f32>;
@group(1) @binding(1) var imageSampler: sampler;

@fragment
fn fs_main(@location(0) texCoord: vec2<f32>) -> @location(0) vec4<f32> {
	let color = textureSample(imageTexture, imageSampler, texCoord);
	let mapped = vec3<f32>(1.0, 1.0, 1.0) - exp(-color.rgb * globals.exposure);
	return vec4<f32>(mapped, color.a);
}
`

// channelAdjustFragmentWGSL reads the 8-float "values" block as two vec4s:
// data[0] holds the per-channel deltas, data[1] the enable flags.
const channelAdjustFragmentWGSL = `struct Values {
	data: array<vec4<f32>, 2>,
}

@group(0) @binding(1) var<uniform> values: Values;
@group(1) @binding(0) var imageTexture: texture_2d<f32>;
@group(1) @binding(1) var imageSampler: sampler;

@fragment
fn fs_main(@location(0) texCoord: vec2<f32>) -> @location(0) vec4<f32> {
	let color = textureSample(imageTexture, imageSampler, texCoord);
	return color + values.data[0] * values.data[1];
}
`

const textFragmentWGSL = `struct Globals {
	textColor: vec4<f32>,
}

@group(0) @binding(0) var<uniform> globals: Globals;
@group(1) @binding(0) var fontTexture: texture_2d<f32>;
@group(1) @binding(1) var fontSampler: sampler;

@fragment
fn fs_main(@location(0) texCoord: vec2<f32>) -> @location(0) vec4<f32> {
	let coverage = textureSample(fontTexture, fontSampler, texCoord).r;
	return globals.textColor * coverage;
}
`

const tintFragmentWGSL = `struct Globals {
	tintColor: vec4<f32>,
}

@group(0) @binding(0) var<uniform> globals: Globals;
@group(1) @binding(0) var imageTexture: texture_2d<f32>;
@group(1) @binding(1) var imageSampler: sampler;

@fragment
fn fs_main(@location(0) texCoord: vec2<f32>) -> @location(0) vec4<f32> {
	let color = textureSample(imageTexture, imageSampler, texCoord);
	return color * globals.tintColor;
}
`

const solidFragmentWGSL = `struct Globals {
	shapeColor: vec4<f32>,
}

@group(0) @binding(0) var<uniform> globals: Globals;

@fragment
fn fs_main(@location(0) texCoord: vec2<f32>) -> @location(0) vec4<f32> {
	return globals.shapeColor;
}
`
