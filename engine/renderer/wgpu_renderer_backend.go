package renderer

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
	"github.com/gogpu/naga"
)

// wgpuRendererBackendImpl renders through WebGPU. Draws are encoded and
// submitted immediately in call order, one render pass per submission, which
// keeps the backend stateless between calls and matches the engine's
// synchronous single-goroutine contract.
type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode

	// quadVertexBuffer holds the unit quad (corners at +/-0.5) as a triangle
	// list, shared by every instanced sprite draw.
	quadVertexBuffer *wgpu.Buffer

	// screenQuadBuffer holds a full-screen clip-space quad for screen passes
	// and presentation blits.
	screenQuadBuffer *wgpu.Buffer

	// presentProgram is the internal blit used by Present. Compiled lazily on
	// first use.
	presentProgram shader.Program
}

// wgpuProgram is the backend handle of a compiled program. Render pipelines
// are created lazily per color target format, since a program may draw to
// both RGBA8 and RGBA16Float targets.
type wgpuProgram struct {
	vertexModule   *wgpu.ShaderModule
	fragmentModule *wgpu.ShaderModule

	bindGroupLayouts []*wgpu.BindGroupLayout
	pipelineLayout   *wgpu.PipelineLayout
	pipelines        map[wgpu.TextureFormat]*wgpu.RenderPipeline

	uniformBuffer *wgpu.Buffer
	blockBuffers  map[string]*wgpu.Buffer

	instanced bool
}

// wgpuTarget is the backend handle of an initialized render target.
type wgpuTarget struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

// wgpuTexture is the backend handle of an asset texture.
type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the WebGPU backend. The surface descriptor
// may be nil for headless rendering over offscreen targets.
func newWGPURendererBackend(surfaceDescriptor any, forceFallbackAdapter bool) (RendererBackend, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}

	if surfaceDescriptor != nil {
		desc, ok := surfaceDescriptor.(*wgpu.SurfaceDescriptor)
		if !ok {
			return nil, fmt.Errorf("surface descriptor must be a *wgpu.SurfaceDescriptor, got %T", surfaceDescriptor)
		}
		b.surface = b.instance.CreateSurface(desc)
	}

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: no compatible adapter: %v", common.ErrResourceExhausted, err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Ember Device",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: device request failed: %v", common.ErrResourceExhausted, err)
	}
	b.device = device
	b.queue = device.GetQueue()
	common.Logger().Info("wgpu device ready", "fallback", forceFallbackAdapter, "surface", b.surface != nil)

	if err := b.createSharedBuffers(); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// createSharedBuffers uploads the unit quad and full-screen quad vertex
// buffers shared by all draws. Vertices are packed [x, y, u, v].
func (b *wgpuRendererBackendImpl) createSharedBuffers() error {
	unitQuad := []float32{
		-0.5, -0.5, 0, 0,
		0.5, -0.5, 1, 0,
		0.5, 0.5, 1, 1,
		-0.5, -0.5, 0, 0,
		0.5, 0.5, 1, 1,
		-0.5, 0.5, 0, 1,
	}
	screenQuad := []float32{
		-1, -1, 0, 1,
		1, -1, 1, 1,
		1, 1, 1, 0,
		-1, -1, 0, 1,
		1, 1, 1, 0,
		-1, 1, 0, 0,
	}

	var err error
	b.quadVertexBuffer, err = b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Unit Quad",
		Contents: common.SliceToBytes(unitQuad),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return fmt.Errorf("%w: unit quad buffer: %v", common.ErrResourceExhausted, err)
	}
	b.screenQuadBuffer, err = b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Screen Quad",
		Contents: common.SliceToBytes(screenQuad),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return fmt.Errorf("%w: screen quad buffer: %v", common.ErrResourceExhausted, err)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) CompileProgram(p shader.Program) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compileProgramLocked(p)
}

// compileProgramLocked validates, compiles, and binds a program. Caller holds
// b.mu.
func (b *wgpuRendererBackendImpl) compileProgramLocked(p shader.Program) error {
	if _, err := naga.Compile(p.VertexSource()); err != nil {
		return &shader.CompileError{
			Key:         p.Key(),
			Stage:       "vertex",
			Diagnostics: fmt.Sprintf("%v\n%s", err, shader.NumberSource(p.VertexSource())),
		}
	}
	if _, err := naga.Compile(p.FragmentSource()); err != nil {
		return &shader.CompileError{
			Key:         p.Key(),
			Stage:       "fragment",
			Diagnostics: fmt.Sprintf("%v\n%s", err, shader.NumberSource(p.FragmentSource())),
		}
	}

	prog := &wgpuProgram{
		pipelines:    make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
		blockBuffers: make(map[string]*wgpu.Buffer),
		instanced:    p.Effect() != nil && p.Effect().Instanced(),
	}

	var err error
	prog.vertexModule, err = b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          p.Key() + " Vertex",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: p.VertexSource()},
	})
	if err != nil {
		return &shader.CompileError{Key: p.Key(), Stage: "vertex", Diagnostics: err.Error()}
	}
	prog.fragmentModule, err = b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          p.Key() + " Fragment",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: p.FragmentSource()},
	})
	if err != nil {
		prog.release()
		return &shader.CompileError{Key: p.Key(), Stage: "fragment", Diagnostics: err.Error()}
	}

	if err := b.createProgramLayouts(p, prog); err != nil {
		prog.release()
		return err
	}

	p.SetHandle(prog)
	return nil
}

// createProgramLayouts builds bind group layouts, the pipeline layout, and
// the staged uniform buffers from the program's parsed layout. Group 0 holds
// the globals struct and named blocks, group 1 the textures and samplers.
func (b *wgpuRendererBackendImpl) createProgramLayouts(p shader.Program, prog *wgpuProgram) error {
	layout := p.Layout()
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)

	if layout.UniformSize > 0 {
		groups[0] = append(groups[0], wgpu.BindGroupLayoutEntry{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uint64(layout.UniformSize),
			},
		})
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: p.Key() + " Globals",
			Size:  uint64(layout.UniformSize),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("%w: globals buffer for %q: %v", common.ErrResourceExhausted, p.Key(), err)
		}
		prog.uniformBuffer = buf
	}

	for name, block := range layout.Blocks {
		groups[block.Group] = append(groups[block.Group], wgpu.BindGroupLayoutEntry{
			Binding:    uint32(block.Binding),
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uint64(block.Size),
			},
		})
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: p.Key() + " " + name,
			Size:  uint64(block.Size),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("%w: block buffer %q for %q: %v", common.ErrResourceExhausted, name, p.Key(), err)
		}
		prog.blockBuffers[name] = buf
	}

	for _, tex := range layout.Textures {
		groups[tex.Group] = append(groups[tex.Group], wgpu.BindGroupLayoutEntry{
			Binding:    uint32(tex.Binding),
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
		if tex.SamplerBinding >= 0 {
			groups[tex.Group] = append(groups[tex.Group], wgpu.BindGroupLayoutEntry{
				Binding:    uint32(tex.SamplerBinding),
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			})
		}
	}

	maxGroup := -1
	for g := range groups {
		if g > maxGroup {
			maxGroup = g
		}
	}
	prog.bindGroupLayouts = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		bgl, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s Group %d", p.Key(), g),
			Entries: groups[g],
		})
		if err != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		prog.bindGroupLayouts[g] = bgl
	}

	pl, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Key(),
		BindGroupLayouts: prog.bindGroupLayouts,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout for %q: %w", p.Key(), err)
	}
	prog.pipelineLayout = pl
	return nil
}

// pipelineFor returns the render pipeline of a program for a color format,
// creating it on first use.
func (b *wgpuRendererBackendImpl) pipelineFor(p shader.Program, prog *wgpuProgram, format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if created, ok := prog.pipelines[format]; ok {
		return created, nil
	}

	quadLayout := wgpu.VertexBufferLayout{
		ArrayStride: 16,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
		},
	}
	buffers := []wgpu.VertexBufferLayout{quadLayout}
	if prog.instanced {
		buffers = append(buffers, wgpu.VertexBufferLayout{
			ArrayStride: 40,
			StepMode:    wgpu.VertexStepModeInstance,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 2},
				{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 3},
				{Format: wgpu.VertexFormatFloat32, Offset: 16, ShaderLocation: 4},
				{Format: wgpu.VertexFormatFloat32x4, Offset: 20, ShaderLocation: 5},
				{Format: wgpu.VertexFormatFloat32, Offset: 36, ShaderLocation: 6},
			},
		})
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.Key() + " Render Pipeline",
		Layout: prog.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     prog.vertexModule,
			EntryPoint: p.Layout().VertexEntry,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     prog.fragmentModule,
			EntryPoint: p.Layout().FragmentEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format: format,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
						Alpha: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
					},
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline for %q targeting %v: %w", p.Key(), format, err)
	}
	prog.pipelines[format] = created
	return created, nil
}

func (b *wgpuRendererBackendImpl) ReleaseProgram(p shader.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prog, ok := p.Handle().(*wgpuProgram); ok {
		prog.release()
	}
	p.SetHandle(nil)
}

func (prog *wgpuProgram) release() {
	for _, pl := range prog.pipelines {
		pl.Release()
	}
	if prog.pipelineLayout != nil {
		prog.pipelineLayout.Release()
	}
	for _, bgl := range prog.bindGroupLayouts {
		if bgl != nil {
			bgl.Release()
		}
	}
	if prog.uniformBuffer != nil {
		prog.uniformBuffer.Release()
	}
	for _, buf := range prog.blockBuffers {
		buf.Release()
	}
	if prog.fragmentModule != nil {
		prog.fragmentModule.Release()
	}
	if prog.vertexModule != nil {
		prog.vertexModule.Release()
	}
}

// textureFormatFor maps the engine format to the wgpu format.
func textureFormatFor(f common.TextureFormat) wgpu.TextureFormat {
	if f == common.TextureFormatRGBA16Float {
		return wgpu.TextureFormatRGBA16Float
	}
	return wgpu.TextureFormatRGBA8Unorm
}

// createSampler builds a wgpu sampler from the engine sampler configuration.
func (b *wgpuRendererBackendImpl) createSampler(label string, s common.SamplerStagingData) (*wgpu.Sampler, error) {
	filter := wgpu.FilterModeNearest
	if s.Filter == common.FilterLinear {
		filter = wgpu.FilterModeLinear
	}
	addrU := wgpu.AddressModeClampToEdge
	if s.WrapU == common.WrapRepeat {
		addrU = wgpu.AddressModeRepeat
	}
	addrV := wgpu.AddressModeClampToEdge
	if s.WrapV == common.WrapRepeat {
		addrV = wgpu.AddressModeRepeat
	}
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  addrU,
		AddressModeV:  addrV,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: sampler: %v", common.ErrResourceExhausted, err)
	}
	return samp, nil
}

// allocTarget creates the texture, view, and sampler for a target's
// dimensions and format.
func (b *wgpuRendererBackendImpl) allocTarget(t *target.RenderTarget, width, height uint32) (*wgpuTarget, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Render Target",
		Usage: wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Dimension:     wgpu.TextureDimension2D,
		Format:        textureFormatFor(t.Format()),
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: target texture %dx%d: %v", common.ErrResourceExhausted, width, height, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: target view: %v", common.ErrResourceExhausted, err)
	}
	samp, err := b.createSampler("Render Target Sampler", t.Sampler())
	if err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}
	return &wgpuTarget{texture: tex, view: view, sampler: samp}, nil
}

func (b *wgpuRendererBackendImpl) InitTarget(t *target.RenderTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	handle, err := b.allocTarget(t, t.Width(), t.Height())
	if err != nil {
		return err
	}
	t.SetHandle(handle)
	return nil
}

func (b *wgpuRendererBackendImpl) ResizeTarget(t *target.RenderTarget, width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Allocate the replacement first so a failed resize preserves the old storage.
	handle, err := b.allocTarget(t, width, height)
	if err != nil {
		return err
	}
	old := t.Handle().(*wgpuTarget)
	old.releaseResources()
	t.SetHandle(handle)
	t.SetSize(width, height)
	return b.clearLocked(t, t.ClearColor())
}

func (b *wgpuRendererBackendImpl) ReleaseTarget(t *target.RenderTarget) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handle, ok := t.Handle().(*wgpuTarget); ok {
		handle.releaseResources()
	}
	t.SetHandle(nil)
}

func (h *wgpuTarget) releaseResources() {
	if h.sampler != nil {
		h.sampler.Release()
	}
	if h.view != nil {
		h.view.Release()
	}
	if h.texture != nil {
		h.texture.Release()
	}
}

func (b *wgpuRendererBackendImpl) CreateTexture(staging *common.TextureStagingData, sampler common.SamplerStagingData) (*target.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Asset Texture",
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Size: wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: texture %dx%d: %v", common.ErrResourceExhausted, staging.Width, staging.Height, err)
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  staging.Width * 4,
			RowsPerImage: staging.Height,
		},
		&wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: texture view: %v", common.ErrResourceExhausted, err)
	}
	samp, err := b.createSampler("Asset Texture Sampler", sampler)
	if err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}

	created, err := target.NewTexture(staging.Width, staging.Height, target.WithTextureSampler(sampler))
	if err != nil {
		samp.Release()
		view.Release()
		tex.Release()
		return nil, err
	}
	created.SetHandle(&wgpuTexture{texture: tex, view: view, sampler: samp})
	return created, nil
}

func (b *wgpuRendererBackendImpl) ReleaseTexture(tex *target.Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handle, ok := tex.Handle().(*wgpuTexture); ok {
		handle.sampler.Release()
		handle.view.Release()
		handle.texture.Release()
	}
	tex.SetHandle(nil)
}

func (b *wgpuRendererBackendImpl) Clear(t *target.RenderTarget, c common.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clearLocked(t, c)
}

func (b *wgpuRendererBackendImpl) clearLocked(t *target.RenderTarget, c common.Color) error {
	handle := t.Handle().(*wgpuTarget)
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("%w: command encoder: %v", common.ErrResourceExhausted, err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    handle.view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(c.R),
					G: float64(c.G),
					B: float64(c.B),
					A: float64(c.A),
				},
			},
		},
	})
	pass.End()
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish clear encoder: %w", err)
	}
	defer commandBuffer.Release()
	b.queue.Submit(commandBuffer)
	return nil
}

// resolveView returns the texture view and sampler for a texture or a
// target read view.
func resolveView(tex *target.Texture) (*wgpu.TextureView, *wgpu.Sampler, error) {
	if owner := tex.Owner(); owner != nil {
		handle, ok := owner.Handle().(*wgpuTarget)
		if !ok {
			return nil, nil, fmt.Errorf("read view of a target initialized by another backend")
		}
		return handle.view, handle.sampler, nil
	}
	handle, ok := tex.Handle().(*wgpuTexture)
	if !ok {
		return nil, nil, fmt.Errorf("texture created by another backend")
	}
	return handle.view, handle.sampler, nil
}

// buildBindGroups creates the per-draw bind groups: group 0 with the staged
// uniform and block buffers, group 1 with texture views and samplers in the
// program's positional order. The caller releases the returned groups after
// submission.
func (b *wgpuRendererBackendImpl) buildBindGroups(p shader.Program, prog *wgpuProgram, textures []*target.Texture) ([]*wgpu.BindGroup, error) {
	layout := p.Layout()
	entries := make(map[int][]wgpu.BindGroupEntry)

	if prog.uniformBuffer != nil {
		b.queue.WriteBuffer(prog.uniformBuffer, 0, p.UniformBytes())
		entries[0] = append(entries[0], wgpu.BindGroupEntry{
			Binding: 0,
			Buffer:  prog.uniformBuffer,
			Offset:  0,
			Size:    wgpu.WholeSize,
		})
	}
	for name, block := range layout.Blocks {
		buf := prog.blockBuffers[name]
		b.queue.WriteBuffer(buf, 0, p.BlockBytes(name))
		entries[block.Group] = append(entries[block.Group], wgpu.BindGroupEntry{
			Binding: uint32(block.Binding),
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		})
	}
	for i, binding := range layout.Textures {
		view, samp, err := resolveView(textures[i])
		if err != nil {
			return nil, err
		}
		entries[binding.Group] = append(entries[binding.Group], wgpu.BindGroupEntry{
			Binding:     uint32(binding.Binding),
			TextureView: view,
		})
		if binding.SamplerBinding >= 0 {
			entries[binding.Group] = append(entries[binding.Group], wgpu.BindGroupEntry{
				Binding: uint32(binding.SamplerBinding),
				Sampler: samp,
			})
		}
	}

	groups := make([]*wgpu.BindGroup, len(prog.bindGroupLayouts))
	for g := range prog.bindGroupLayouts {
		bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s Group %d", p.Key(), g),
			Layout:  prog.bindGroupLayouts[g],
			Entries: entries[g],
		})
		if err != nil {
			for _, created := range groups {
				if created != nil {
					created.Release()
				}
			}
			return nil, fmt.Errorf("failed to create bind group %d for %q: %w", g, p.Key(), err)
		}
		groups[g] = bg
	}
	return groups, nil
}

// encodeDraw runs one render pass over dstView with the program, vertex
// buffers, and draw counts supplied, then submits it.
func (b *wgpuRendererBackendImpl) encodeDraw(p shader.Program, dstView *wgpu.TextureView, format wgpu.TextureFormat, textures []*target.Texture, vertexBuffer *wgpu.Buffer, vertexCount int, instanceBuffer *wgpu.Buffer, instanceCount int) error {
	prog := p.Handle().(*wgpuProgram)
	created, err := b.pipelineFor(p, prog, format)
	if err != nil {
		return err
	}
	bindGroups, err := b.buildBindGroups(p, prog, textures)
	if err != nil {
		return err
	}
	defer func() {
		for _, bg := range bindGroups {
			bg.Release()
		}
	}()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("%w: command encoder: %v", common.ErrResourceExhausted, err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    dstView,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(created)
	for g, bg := range bindGroups {
		pass.SetBindGroup(uint32(g), bg, nil)
	}
	pass.SetVertexBuffer(0, vertexBuffer, 0, wgpu.WholeSize)
	if instanceBuffer != nil {
		pass.SetVertexBuffer(1, instanceBuffer, 0, wgpu.WholeSize)
	}
	pass.Draw(uint32(vertexCount), uint32(instanceCount), 0, 0)
	pass.End()
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish draw encoder: %w", err)
	}
	defer commandBuffer.Release()
	b.queue.Submit(commandBuffer)
	return nil
}

func (b *wgpuRendererBackendImpl) DrawInstanced(p shader.Program, tex *target.Texture, dst *target.RenderTarget, instances []float32, count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	instanceBuffer, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Instance Buffer",
		Contents: common.SliceToBytes(instances),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return fmt.Errorf("%w: instance buffer: %v", common.ErrResourceExhausted, err)
	}
	defer instanceBuffer.Release()

	handle := dst.Handle().(*wgpuTarget)
	return b.encodeDraw(p, handle.view, textureFormatFor(dst.Format()),
		[]*target.Texture{tex}, b.quadVertexBuffer, 6, instanceBuffer, count)
}

func (b *wgpuRendererBackendImpl) DrawQuads(p shader.Program, textures []*target.Texture, dst *target.RenderTarget, vertices []float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexBuffer, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Quad Vertices",
		Contents: common.SliceToBytes(vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return fmt.Errorf("%w: vertex buffer: %v", common.ErrResourceExhausted, err)
	}
	defer vertexBuffer.Release()

	handle := dst.Handle().(*wgpuTarget)
	return b.encodeDraw(p, handle.view, textureFormatFor(dst.Format()),
		textures, vertexBuffer, len(vertices)/4, nil, 1)
}

func (b *wgpuRendererBackendImpl) DrawScreenPass(p shader.Program, inputs []*target.Texture, output *target.RenderTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	handle := output.Handle().(*wgpuTarget)
	return b.encodeDraw(p, handle.view, textureFormatFor(output.Format()),
		inputs, b.screenQuadBuffer, 6, nil, 1)
}

func (b *wgpuRendererBackendImpl) ReadPixels(t *target.RenderTarget) (*image.RGBA, error) {
	floats, err := b.ReadPixelsFloat(t)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, int(t.Width()), int(t.Height())))
	for i, v := range floats {
		img.Pix[i] = uint8(common.Clamp(v, 0, 1)*255 + 0.5)
	}
	return img, nil
}

func (b *wgpuRendererBackendImpl) ReadPixelsFloat(t *target.RenderTarget) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handle := t.Handle().(*wgpuTarget)
	width, height := t.Width(), t.Height()
	bytesPerPixel := uint32(4)
	if t.Format() == common.TextureFormatRGBA16Float {
		bytesPerPixel = 8
	}
	// CopyTextureToBuffer requires 256-byte row alignment.
	paddedRow := (width*bytesPerPixel + 255) &^ 255
	size := uint64(paddedRow) * uint64(height)

	readback, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: readback buffer: %v", common.ErrResourceExhausted, err)
	}
	defer readback.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: command encoder: %v", common.ErrResourceExhausted, err)
	}
	defer encoder.Release()

	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  handle.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: readback,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  paddedRow,
				RowsPerImage: height,
			},
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to finish readback encoder: %w", err)
	}
	defer commandBuffer.Release()
	b.queue.Submit(commandBuffer)

	done := false
	err = readback.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done = status == wgpu.BufferMapAsyncStatusSuccess
	})
	if err != nil {
		return nil, fmt.Errorf("failed to map readback buffer: %w", err)
	}
	b.device.Poll(true, nil)
	if !done {
		return nil, fmt.Errorf("readback buffer mapping did not complete")
	}
	defer readback.Unmap()
	data := readback.GetMappedRange(0, uint(size))

	out := make([]float32, width*height*4)
	for y := uint32(0); y < height; y++ {
		row := data[y*paddedRow:]
		for x := uint32(0); x < width*4; x++ {
			if t.Format() == common.TextureFormatRGBA16Float {
				bits := uint16(row[x*2]) | uint16(row[x*2+1])<<8
				out[y*width*4+x] = halfToFloat(bits)
			} else {
				out[y*width*4+x] = float32(row[x]) / 255
			}
		}
	}
	return out, nil
}

// halfToFloat converts an IEEE 754 half-precision value to float32.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) & 1
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h) & 0x3FF

	var bits uint32
	switch {
	case exp == 0 && mant == 0:
		bits = sign << 31
	case exp == 0:
		// Subnormal: normalize the mantissa.
		e := uint32(127 - 15 + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3FF
		bits = sign<<31 | e<<23 | mant<<13
	case exp == 0x1F:
		bits = sign<<31 | 0xFF<<23 | mant<<13
	default:
		bits = sign<<31 | (exp+127-15)<<23 | mant<<13
	}
	return math.Float32frombits(bits)
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface == nil {
		common.Logger().Debug("no surface to configure", "width", width, "height", height)
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) Present(t *target.RenderTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface == nil || b.surfaceFormat == nil {
		return fmt.Errorf("no surface configured to present to")
	}

	if b.presentProgram == nil {
		p, err := shader.NewProgram("__present_blit", shader.WithEffect(shader.Effect{Kind: shader.KindBlit}))
		if err != nil {
			return err
		}
		if err := b.compileProgramLocked(p); err != nil {
			return err
		}
		b.presentProgram = p
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("failed to acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("failed to create surface view: %w", err)
	}

	err = b.encodeDraw(b.presentProgram, view, *b.surfaceFormat,
		[]*target.Texture{t.AsReadTexture()}, b.screenQuadBuffer, 6, nil, 1)
	view.Release()
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	b.surface.Present()
	surfaceTexture.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.presentProgram != nil {
		if prog, ok := b.presentProgram.Handle().(*wgpuProgram); ok {
			prog.release()
		}
		b.presentProgram = nil
	}
	if b.screenQuadBuffer != nil {
		b.screenQuadBuffer.Release()
		b.screenQuadBuffer = nil
	}
	if b.quadVertexBuffer != nil {
		b.quadVertexBuffer.Release()
		b.quadVertexBuffer = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
