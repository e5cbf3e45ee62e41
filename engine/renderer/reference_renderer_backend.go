package renderer

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer/pipeline"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
)

// referenceRendererBackend rasterizes on the CPU in linear float space. It
// evaluates generated Effect values directly, so its output defines the
// expected result of the WGSL the same effects generate. Programs built from
// caller-provided source cannot run here.
type referenceRendererBackend struct{}

// refProgram is the backend handle of a compiled program.
type refProgram struct{}

// refTargetData is the backend handle of an initialized target: its pixels
// in row-major linear float RGBA.
type refTargetData struct {
	pix []float32
}

// refTextureData is the backend handle of an asset texture.
type refTextureData struct {
	pix    []float32
	width  uint32
	height uint32
}

var _ RendererBackend = &referenceRendererBackend{}

// newReferenceRendererBackend creates the CPU reference backend.
func newReferenceRendererBackend() RendererBackend {
	return &referenceRendererBackend{}
}

func (b *referenceRendererBackend) CompileProgram(p shader.Program) error {
	if p.Effect() == nil {
		return fmt.Errorf("program %q: the reference backend only runs generated effects", p.Key())
	}
	p.SetHandle(&refProgram{})
	return nil
}

func (b *referenceRendererBackend) ReleaseProgram(p shader.Program) {
	p.SetHandle(nil)
}

func (b *referenceRendererBackend) InitTarget(t *target.RenderTarget) error {
	t.SetHandle(&refTargetData{pix: make([]float32, t.Width()*t.Height()*4)})
	return nil
}

func (b *referenceRendererBackend) ResizeTarget(t *target.RenderTarget, width, height uint32) error {
	data := t.Handle().(*refTargetData)
	data.pix = make([]float32, width*height*4)
	t.SetSize(width, height)
	return b.Clear(t, t.ClearColor())
}

func (b *referenceRendererBackend) ReleaseTarget(t *target.RenderTarget) {
	t.SetHandle(nil)
}

func (b *referenceRendererBackend) CreateTexture(staging *common.TextureStagingData, sampler common.SamplerStagingData) (*target.Texture, error) {
	tex, err := target.NewTexture(staging.Width, staging.Height, target.WithTextureSampler(sampler))
	if err != nil {
		return nil, err
	}
	pix := make([]float32, staging.Width*staging.Height*4)
	for i := range pix {
		pix[i] = float32(staging.Pixels[i]) / 255
	}
	tex.SetHandle(&refTextureData{pix: pix, width: staging.Width, height: staging.Height})
	return tex, nil
}

func (b *referenceRendererBackend) ReleaseTexture(tex *target.Texture) {
	tex.SetHandle(nil)
}

func (b *referenceRendererBackend) Clear(t *target.RenderTarget, c common.Color) error {
	data := t.Handle().(*refTargetData)
	if t.Format() == common.TextureFormatRGBA8 {
		c = clampColor(c)
	}
	for i := 0; i < len(data.pix); i += 4 {
		data.pix[i] = c.R
		data.pix[i+1] = c.G
		data.pix[i+2] = c.B
		data.pix[i+3] = c.A
	}
	return nil
}

func (b *referenceRendererBackend) DrawInstanced(p shader.Program, tex *target.Texture, dst *target.RenderTarget, instances []float32, count int) error {
	effect := p.Effect()
	if effect == nil || effect.Kind != shader.KindSprite {
		return fmt.Errorf("instanced draws require a sprite effect program, got %q", p.Key())
	}

	src, err := resolveTexture(tex)
	if err != nil {
		return err
	}
	data := dst.Handle().(*refTargetData)
	w, h := int(dst.Width()), int(dst.Height())
	clamp := dst.Format() == common.TextureFormatRGBA8

	var time float32
	if tv, ok := p.Uniform("time"); ok {
		time = tv[0]
	}
	st, sg := effect.GlowScales()
	intensity := pipeline.GlowIntensity(time, st, sg)

	for i := 0; i < count; i++ {
		inst := instances[i*10 : i*10+10]
		px, py := inst[0], inst[1]
		sx, sy := inst[2], inst[3]
		angle := inst[4]
		tint := common.Color{R: inst[5], G: inst[6], B: inst[7], A: inst[8]}
		glow := inst[9]
		if sx == 0 || sy == 0 {
			continue
		}

		minX, minY, maxX, maxY := instanceBounds(px, py, sx, sy, angle, w, h)
		for y := minY; y < maxY; y++ {
			for x := minX; x < maxX; x++ {
				lx, ly := common.InverseTransformPoint(float32(x)+0.5, float32(y)+0.5, px, py, sx, sy, angle)
				if lx < -0.5 || lx >= 0.5 || ly < -0.5 || ly >= 0.5 {
					continue
				}
				c := src.sample(lx+0.5, ly+0.5)
				c.R *= tint.R
				c.G *= tint.G
				c.B *= tint.B
				c.A *= tint.A
				contribution := intensity
				if effect.InstanceGlow {
					contribution = intensity * glow
				}
				c.R += contribution
				c.G += contribution
				c.B += contribution
				blendPixel(data.pix, (y*w+x)*4, c, clamp)
			}
		}
	}
	return nil
}

func (b *referenceRendererBackend) DrawQuads(p shader.Program, textures []*target.Texture, dst *target.RenderTarget, vertices []float32) error {
	effect := p.Effect()
	if effect == nil {
		return fmt.Errorf("program %q: the reference backend only runs generated effects", p.Key())
	}
	if effect.Kind == shader.KindSprite {
		return fmt.Errorf("sprite effects draw through the instanced path, got quads for %q", p.Key())
	}

	sources, err := resolveTextures(textures)
	if err != nil {
		return err
	}
	data := dst.Handle().(*refTargetData)
	w, h := int(dst.Width()), int(dst.Height())
	fw, fh := float32(w), float32(h)
	clamp := dst.Format() == common.TextureFormatRGBA8

	for tri := 0; tri+12 <= len(vertices); tri += 12 {
		var xs, ys, us, vs [3]float32
		for v := 0; v < 3; v++ {
			cx, cy := vertices[tri+v*4], vertices[tri+v*4+1]
			xs[v], ys[v] = common.FromClipSpace(cx, cy, fw, fh)
			us[v], vs[v] = vertices[tri+v*4+2], vertices[tri+v*4+3]
		}
		area := (xs[1]-xs[0])*(ys[2]-ys[0]) - (ys[1]-ys[0])*(xs[2]-xs[0])
		if area == 0 {
			continue
		}

		minX := clampInt(int(math32.Floor(min3(xs[0], xs[1], xs[2]))), 0, w)
		maxX := clampInt(int(math32.Ceil(max3(xs[0], xs[1], xs[2]))), 0, w)
		minY := clampInt(int(math32.Floor(min3(ys[0], ys[1], ys[2]))), 0, h)
		maxY := clampInt(int(math32.Ceil(max3(ys[0], ys[1], ys[2]))), 0, h)

		for y := minY; y < maxY; y++ {
			for x := minX; x < maxX; x++ {
				cx, cy := float32(x)+0.5, float32(y)+0.5
				w0 := ((xs[1]-cx)*(ys[2]-cy) - (ys[1]-cy)*(xs[2]-cx)) / area
				w1 := ((xs[2]-cx)*(ys[0]-cy) - (ys[2]-cy)*(xs[0]-cx)) / area
				w2 := 1 - w0 - w1
				if w0 < 0 || w1 < 0 || w2 < 0 {
					continue
				}
				u := w0*us[0] + w1*us[1] + w2*us[2]
				v := w0*vs[0] + w1*vs[1] + w2*vs[2]
				c, err := evalFragment(p, effect, sources, u, v)
				if err != nil {
					return err
				}
				blendPixel(data.pix, (y*w+x)*4, c, clamp)
			}
		}
	}
	return nil
}

func (b *referenceRendererBackend) DrawScreenPass(p shader.Program, inputs []*target.Texture, output *target.RenderTarget) error {
	effect := p.Effect()
	if effect == nil {
		return fmt.Errorf("program %q: the reference backend only runs generated effects", p.Key())
	}
	if effect.Kind == shader.KindSprite {
		return fmt.Errorf("sprite effects draw through the instanced path, got a screen pass for %q", p.Key())
	}

	sources, err := resolveTextures(inputs)
	if err != nil {
		return err
	}
	data := output.Handle().(*refTargetData)
	w, h := int(output.Width()), int(output.Height())
	clamp := output.Format() == common.TextureFormatRGBA8

	for y := 0; y < h; y++ {
		v := (float32(y) + 0.5) / float32(h)
		for x := 0; x < w; x++ {
			u := (float32(x) + 0.5) / float32(w)
			c, err := evalFragment(p, effect, sources, u, v)
			if err != nil {
				return err
			}
			blendPixel(data.pix, (y*w+x)*4, c, clamp)
		}
	}
	return nil
}

func (b *referenceRendererBackend) ReadPixels(t *target.RenderTarget) (*image.RGBA, error) {
	data := t.Handle().(*refTargetData)
	img := image.NewRGBA(image.Rect(0, 0, int(t.Width()), int(t.Height())))
	for i, v := range data.pix {
		img.Pix[i] = uint8(common.Clamp(v, 0, 1)*255 + 0.5)
	}
	return img, nil
}

func (b *referenceRendererBackend) ReadPixelsFloat(t *target.RenderTarget) ([]float32, error) {
	data := t.Handle().(*refTargetData)
	out := make([]float32, len(data.pix))
	copy(out, data.pix)
	return out, nil
}

func (b *referenceRendererBackend) ConfigureSurface(width, height int) {
	common.Logger().Debug("reference backend has no surface", "width", width, "height", height)
}

func (b *referenceRendererBackend) Present(*target.RenderTarget) error {
	return fmt.Errorf("reference backend has no surface to present to")
}

func (b *referenceRendererBackend) Release() {}

// sampledTexture is a resolved pixel source with its sampling configuration.
type sampledTexture struct {
	pix     []float32
	width   int
	height  int
	sampler common.SamplerStagingData
}

// resolveTexture resolves a texture or target read view to its pixels.
func resolveTexture(tex *target.Texture) (*sampledTexture, error) {
	if owner := tex.Owner(); owner != nil {
		data, ok := owner.Handle().(*refTargetData)
		if !ok {
			return nil, fmt.Errorf("read view of a target initialized by another backend")
		}
		return &sampledTexture{
			pix:     data.pix,
			width:   int(owner.Width()),
			height:  int(owner.Height()),
			sampler: tex.Sampler(),
		}, nil
	}
	data, ok := tex.Handle().(*refTextureData)
	if !ok {
		return nil, fmt.Errorf("texture created by another backend")
	}
	return &sampledTexture{
		pix:     data.pix,
		width:   int(data.width),
		height:  int(data.height),
		sampler: tex.Sampler(),
	}, nil
}

func resolveTextures(textures []*target.Texture) ([]*sampledTexture, error) {
	out := make([]*sampledTexture, len(textures))
	for i, tex := range textures {
		st, err := resolveTexture(tex)
		if err != nil {
			return nil, err
		}
		out[i] = st
	}
	return out, nil
}

// sample reads the texture at normalized coordinates with the texture's
// filter and wrap modes. The coordinate origin is the top-left texel edge.
func (s *sampledTexture) sample(u, v float32) common.Color {
	if s.sampler.Filter == common.FilterLinear {
		return s.sampleLinear(u, v)
	}
	x := s.wrapX(int(math32.Floor(u * float32(s.width))))
	y := s.wrapY(int(math32.Floor(v * float32(s.height))))
	return s.texel(x, y)
}

func (s *sampledTexture) sampleLinear(u, v float32) common.Color {
	fx := u*float32(s.width) - 0.5
	fy := v*float32(s.height) - 0.5
	x0 := int(math32.Floor(fx))
	y0 := int(math32.Floor(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	c00 := s.texel(s.wrapX(x0), s.wrapY(y0))
	c10 := s.texel(s.wrapX(x0+1), s.wrapY(y0))
	c01 := s.texel(s.wrapX(x0), s.wrapY(y0+1))
	c11 := s.texel(s.wrapX(x0+1), s.wrapY(y0+1))

	return common.Color{
		R: common.Lerp(common.Lerp(c00.R, c10.R, tx), common.Lerp(c01.R, c11.R, tx), ty),
		G: common.Lerp(common.Lerp(c00.G, c10.G, tx), common.Lerp(c01.G, c11.G, tx), ty),
		B: common.Lerp(common.Lerp(c00.B, c10.B, tx), common.Lerp(c01.B, c11.B, tx), ty),
		A: common.Lerp(common.Lerp(c00.A, c10.A, tx), common.Lerp(c01.A, c11.A, tx), ty),
	}
}

func (s *sampledTexture) texel(x, y int) common.Color {
	i := (y*s.width + x) * 4
	return common.Color{R: s.pix[i], G: s.pix[i+1], B: s.pix[i+2], A: s.pix[i+3]}
}

func (s *sampledTexture) wrapX(x int) int { return wrapCoord(x, s.width, s.sampler.WrapU) }
func (s *sampledTexture) wrapY(y int) int { return wrapCoord(y, s.height, s.sampler.WrapV) }

func wrapCoord(c, size int, mode common.WrapMode) int {
	if mode == common.WrapRepeat {
		c %= size
		if c < 0 {
			c += size
		}
		return c
	}
	return clampInt(c, 0, size-1)
}

// evalFragment evaluates a non-sprite effect at normalized coordinates,
// matching the generated fragment WGSL.
func evalFragment(p shader.Program, effect *shader.Effect, sources []*sampledTexture, u, v float32) (common.Color, error) {
	switch effect.Kind {
	case shader.KindBlit:
		return sources[0].sample(u, v), nil

	case shader.KindMask:
		a := sources[0].sample(u, v)
		m := sources[1].sample(u, v).R
		var bc common.Color
		if effect.MaskColor {
			if fc, ok := p.Uniform("fontColor"); ok {
				bc = common.Color{R: fc[0], G: fc[1], B: fc[2], A: fc[3]}
			}
		} else {
			bc = sources[2].sample(u, v)
		}
		return common.Color{
			R: m*a.R + (1-m)*bc.R,
			G: m*a.G + (1-m)*bc.G,
			B: m*a.B + (1-m)*bc.B,
			A: m*a.A + (1-m)*bc.A,
		}, nil

	case shader.KindToneMap:
		var exposure float32
		if ev, ok := p.Uniform("exposure"); ok {
			exposure = ev[0]
		}
		c := sources[0].sample(u, v)
		return common.Color{
			R: 1 - math32.Exp(-c.R*exposure),
			G: 1 - math32.Exp(-c.G*exposure),
			B: 1 - math32.Exp(-c.B*exposure),
			A: c.A,
		}, nil

	case shader.KindChannelAdjust:
		c := sources[0].sample(u, v)
		if vals, ok := p.UniformBlock("values"); ok {
			c.R += vals[0] * vals[4]
			c.G += vals[1] * vals[5]
			c.B += vals[2] * vals[6]
			c.A += vals[3] * vals[7]
		}
		return c, nil

	case shader.KindText:
		coverage := sources[0].sample(u, v).R
		var tc common.Color
		if cv, ok := p.Uniform("textColor"); ok {
			tc = common.Color{R: cv[0], G: cv[1], B: cv[2], A: cv[3]}
		}
		return common.Color{R: tc.R * coverage, G: tc.G * coverage, B: tc.B * coverage, A: tc.A * coverage}, nil

	case shader.KindSolid:
		if sc, ok := p.Uniform("shapeColor"); ok {
			return common.Color{R: sc[0], G: sc[1], B: sc[2], A: sc[3]}, nil
		}
		return common.Color{}, nil

	case shader.KindTint:
		c := sources[0].sample(u, v)
		if tc, ok := p.Uniform("tintColor"); ok {
			c.R *= tc[0]
			c.G *= tc[1]
			c.B *= tc[2]
			c.A *= tc[3]
		}
		return c, nil

	default:
		return common.Color{}, fmt.Errorf("effect kind %v has no reference evaluation", effect.Kind)
	}
}

// blendPixel composites src over the destination pixel with standard alpha
// blending, clamping the stored result for 8-bit targets.
func blendPixel(pix []float32, i int, src common.Color, clamp bool) {
	ia := 1 - src.A
	r := src.R*src.A + pix[i]*ia
	g := src.G*src.A + pix[i+1]*ia
	bl := src.B*src.A + pix[i+2]*ia
	a := src.A + pix[i+3]*ia
	if clamp {
		r = common.Clamp(r, 0, 1)
		g = common.Clamp(g, 0, 1)
		bl = common.Clamp(bl, 0, 1)
		a = common.Clamp(a, 0, 1)
	}
	pix[i] = r
	pix[i+1] = g
	pix[i+2] = bl
	pix[i+3] = a
}

// instanceBounds computes the clipped pixel bounding box of a transformed
// unit quad.
func instanceBounds(px, py, sx, sy, angle float32, w, h int) (int, int, int, int) {
	corners := [4][2]float32{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}}
	minX, minY := math32.Inf(1), math32.Inf(1)
	maxX, maxY := math32.Inf(-1), math32.Inf(-1)
	for _, c := range corners {
		x, y := common.TransformPoint(c[0], c[1], px, py, sx, sy, angle)
		minX = math32.Min(minX, x)
		minY = math32.Min(minY, y)
		maxX = math32.Max(maxX, x)
		maxY = math32.Max(maxY, y)
	}
	return clampInt(int(math32.Floor(minX)), 0, w),
		clampInt(int(math32.Floor(minY)), 0, h),
		clampInt(int(math32.Ceil(maxX)), 0, w),
		clampInt(int(math32.Ceil(maxY)), 0, h)
}

func clampColor(c common.Color) common.Color {
	return common.Color{
		R: common.Clamp(c.R, 0, 1),
		G: common.Clamp(c.G, 0, 1),
		B: common.Clamp(c.B, 0, 1),
		A: common.Clamp(c.A, 0, 1),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min3(a, b, c float32) float32 { return math32.Min(a, math32.Min(b, c)) }
func max3(a, b, c float32) float32 { return math32.Max(a, math32.Max(b, c)) }
