// package renderer exposes the Renderer, the single entry point for GPU
// resource management and draw submission. A Renderer owns a backend (WebGPU
// or the pure-CPU reference implementation) and validates every submission
// against the engine's contracts before dispatching it.
package renderer

import (
	"fmt"
	"image"
	"sync"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
)

// RenderStats counts submitted work since the last reset. One batch flush is
// exactly one draw call.
type RenderStats struct {
	DrawCalls    uint64
	Instances    uint64
	ScreenPasses uint64
	Clears       uint64
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	programCache map[string]shader.Program

	backendType BackendType
	backend     RendererBackend

	stats RenderStats

	// Pre-creation config collected from builder options
	surfaceDescriptor any
	surfaceWidth      int
	surfaceHeight     int
	forceFallbackAdapter bool
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer manages a cache of compiled programs, owns target and texture GPU resources, and
// validates submissions. The Renderer also implements a backend which allows for multiple backend
// API implementations to exist; the reference backend renders on the CPU for headless use and tests.
//
// All entry points are mutex-guarded, but rendering is single-goroutine by contract: submission
// order equals call order, and there is no internal parallelism.
type Renderer interface {
	// BackendType returns the backend this renderer was created with.
	//
	// Returns:
	//   - BackendType: the active backend type
	BackendType() BackendType

	// RegisterPrograms compiles one or more programs via the backend and caches them by key.
	// Programs whose keys are already registered are skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - programs: the Programs to register
	//
	// Returns:
	//   - error: a *shader.CompileError if compilation fails
	RegisterPrograms(programs ...shader.Program) error

	// Program retrieves the cached Program associated with the given key.
	// If the Program does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Program to retrieve
	//
	// Returns:
	//   - shader.Program: the Program associated with the key, or nil if not found
	Program(key string) shader.Program

	// InitTarget allocates backing storage for a render target and clears it
	// to the target's clear color.
	//
	// Parameters:
	//   - t: the target to initialize
	//
	// Returns:
	//   - error: an error if allocation fails
	InitTarget(t *target.RenderTarget) error

	// ResizeTarget destroys and recreates the target's backing storage with
	// new dimensions, bumping its generation so previously obtained read
	// textures are rejected at draw time.
	//
	// Parameters:
	//   - t: the target to resize
	//   - width, height: the new dimensions in pixels, must be > 0
	//
	// Returns:
	//   - error: an error if reallocation fails; the old storage survives a failed resize
	ResizeTarget(t *target.RenderTarget, width, height uint32) error

	// ReleaseTarget frees the target's backing storage.
	//
	// Parameters:
	//   - t: the target to release
	ReleaseTarget(t *target.RenderTarget)

	// CreateTexture allocates an immutable asset texture from staged pixels.
	//
	// Parameters:
	//   - staging: the RGBA pixel data and dimensions
	//   - sampler: the sampling configuration, nil for the nearest/clamp default
	//
	// Returns:
	//   - *target.Texture: the created texture
	//   - error: an error if allocation fails
	CreateTexture(staging *common.TextureStagingData, sampler *common.SamplerStagingData) (*target.Texture, error)

	// ReleaseTexture frees an asset texture.
	//
	// Parameters:
	//   - tex: the texture to release
	ReleaseTexture(tex *target.Texture)

	// Clear fills the whole target with a color.
	//
	// Parameters:
	//   - t: the target to clear
	//   - c: the clear color
	//
	// Returns:
	//   - error: an error if the target is uninitialized
	Clear(t *target.RenderTarget, c common.Color) error

	// SubmitBatch issues exactly one instanced draw of the unit quad for a
	// flushed sprite batch.
	//
	// Parameters:
	//   - p: the sprite program to draw with
	//   - tex: the texture sampled by every instance
	//   - dst: the render target drawn onto
	//   - instances: the packed instance floats
	//   - count: the number of instances
	//
	// Returns:
	//   - error: a contract violation or backend error
	SubmitBatch(p shader.Program, tex *target.Texture, dst *target.RenderTarget, instances []float32, count int) error

	// SubmitQuads draws a pre-transformed triangle list. Vertices are packed
	// as [x, y, u, v] in clip space, three vertices per triangle. Used for
	// single-sprite draws, text glyphs, and shape geometry.
	//
	// Parameters:
	//   - p: the program to draw with
	//   - textures: read textures in the program's positional binding order
	//   - dst: the render target drawn onto
	//   - vertices: the packed vertex floats, a multiple of 12
	//
	// Returns:
	//   - error: a contract violation or backend error
	SubmitQuads(p shader.Program, textures []*target.Texture, dst *target.RenderTarget, vertices []float32) error

	// SubmitScreenPass draws one full-screen pass onto output.
	//
	// Parameters:
	//   - p: the effect program to run
	//   - inputs: read textures in the program's positional binding order
	//   - output: the render target written to
	//
	// Returns:
	//   - error: a contract violation or backend error
	SubmitScreenPass(p shader.Program, inputs []*target.Texture, output *target.RenderTarget) error

	// ReadPixels reads a target back into an 8-bit image, clamping HDR
	// values. This is the engine's only quantization point besides present.
	//
	// Parameters:
	//   - t: the target to read
	//
	// Returns:
	//   - *image.RGBA: the pixel contents
	//   - error: an error if readback fails
	ReadPixels(t *target.RenderTarget) (*image.RGBA, error)

	// ReadPixelsFloat reads a target back as linear float RGBA without
	// quantization.
	//
	// Parameters:
	//   - t: the target to read
	//
	// Returns:
	//   - []float32: width*height*4 components in row-major order
	//   - error: an error if readback fails
	ReadPixelsFloat(t *target.RenderTarget) ([]float32, error)

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// Present blits a target to the window surface and presents it. Returns
	// an error on headless renderers with no surface configured.
	//
	// Parameters:
	//   - t: the target to present
	//
	// Returns:
	//   - error: an error if no surface is configured or presentation fails
	Present(t *target.RenderTarget) error

	// Stats returns the submission counters since the last reset.
	//
	// Returns:
	//   - RenderStats: the counters
	Stats() RenderStats

	// ResetStats zeroes the submission counters.
	ResetStats()

	// Release frees all cached programs and backend resources. The renderer
	// is unusable afterwards.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type.
// The WebGPU backend requires a surface descriptor option when presentation
// is wanted; without one it runs headless over offscreen targets. The
// reference backend always runs headless.
//
// Parameters:
//   - backendType: the type of rendering backend to use (BackendTypeWGPU or BackendTypeReference)
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if backend creation fails
func NewRenderer(backendType BackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:           &sync.Mutex{},
		programCache: make(map[string]shader.Program),
		backendType:  backendType,
	}

	for _, opt := range options {
		opt(r)
	}

	var err error
	switch backendType {
	case BackendTypeReference:
		r.backend = newReferenceRendererBackend()
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(r.surfaceDescriptor, r.forceFallbackAdapter)
		if err != nil {
			return nil, err
		}
	}

	if r.surfaceWidth > 0 && r.surfaceHeight > 0 {
		r.backend.ConfigureSurface(r.surfaceWidth, r.surfaceHeight)
	}
	return r, nil
}

func (r *renderer) BackendType() BackendType {
	return r.backendType
}

func (r *renderer) RegisterPrograms(programs ...shader.Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range programs {
		if _, exists := r.programCache[p.Key()]; exists {
			continue
		}
		if err := r.backend.CompileProgram(p); err != nil {
			return err
		}
		r.programCache[p.Key()] = p
		common.Logger().Debug("registered program", "key", p.Key())
	}
	return nil
}

func (r *renderer) Program(key string) shader.Program {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.programCache[key]
}

func (r *renderer) InitTarget(t *target.RenderTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == nil {
		return fmt.Errorf("%w: nil target", common.ErrContractViolation)
	}
	if t.Handle() != nil {
		return nil
	}
	if err := r.backend.InitTarget(t); err != nil {
		return err
	}
	return r.backend.Clear(t, t.ClearColor())
}

func (r *renderer) ResizeTarget(t *target.RenderTarget, width, height uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: resize to %dx%d", common.ErrContractViolation, width, height)
	}
	if t == nil || t.Handle() == nil {
		return fmt.Errorf("%w: resize of uninitialized target", common.ErrContractViolation)
	}
	return r.backend.ResizeTarget(t, width, height)
}

func (r *renderer) ReleaseTarget(t *target.RenderTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == nil || t.Handle() == nil {
		return
	}
	r.backend.ReleaseTarget(t)
}

func (r *renderer) CreateTexture(staging *common.TextureStagingData, sampler *common.SamplerStagingData) (*target.Texture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if staging == nil || staging.Width == 0 || staging.Height == 0 {
		return nil, fmt.Errorf("%w: texture staging data requires pixels and dimensions", common.ErrContractViolation)
	}
	if len(staging.Pixels) < int(staging.Width*staging.Height*4) {
		return nil, fmt.Errorf("%w: staging data holds %d bytes, need %d",
			common.ErrContractViolation, len(staging.Pixels), staging.Width*staging.Height*4)
	}
	s := common.SamplerStagingData{}
	if sampler != nil {
		s = *sampler
	}
	return r.backend.CreateTexture(staging, s)
}

func (r *renderer) ReleaseTexture(tex *target.Texture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tex == nil || tex.Handle() == nil {
		return
	}
	r.backend.ReleaseTexture(tex)
}

func (r *renderer) Clear(t *target.RenderTarget, c common.Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.validateTarget(t); err != nil {
		return err
	}
	if err := r.backend.Clear(t, c); err != nil {
		return err
	}
	r.stats.Clears++
	return nil
}

func (r *renderer) SubmitBatch(p shader.Program, tex *target.Texture, dst *target.RenderTarget, instances []float32, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateProgram(p); err != nil {
		return err
	}
	if err := r.validateTarget(dst); err != nil {
		return err
	}
	if err := r.validateRead(tex, dst); err != nil {
		return err
	}
	if count <= 0 || len(instances) != count*10 {
		return fmt.Errorf("%w: batch of %d instances with %d floats", common.ErrContractViolation, count, len(instances))
	}

	if err := r.backend.DrawInstanced(p, tex, dst, instances, count); err != nil {
		return err
	}
	r.stats.DrawCalls++
	r.stats.Instances += uint64(count)
	return nil
}

func (r *renderer) SubmitQuads(p shader.Program, textures []*target.Texture, dst *target.RenderTarget, vertices []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateProgram(p); err != nil {
		return err
	}
	if err := r.validateTarget(dst); err != nil {
		return err
	}
	if len(textures) != len(p.Layout().Textures) {
		return fmt.Errorf("%w: program %q declares %d textures, got %d",
			common.ErrContractViolation, p.Key(), len(p.Layout().Textures), len(textures))
	}
	for _, tex := range textures {
		if err := r.validateRead(tex, dst); err != nil {
			return err
		}
	}
	if len(vertices) == 0 {
		return nil
	}
	if len(vertices)%12 != 0 {
		return fmt.Errorf("%w: vertex data is not a whole number of triangles", common.ErrContractViolation)
	}

	if err := r.backend.DrawQuads(p, textures, dst, vertices); err != nil {
		return err
	}
	r.stats.DrawCalls++
	return nil
}

func (r *renderer) SubmitScreenPass(p shader.Program, inputs []*target.Texture, output *target.RenderTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateProgram(p); err != nil {
		return err
	}
	if err := r.validateTarget(output); err != nil {
		return err
	}
	if len(inputs) != len(p.Layout().Textures) {
		return fmt.Errorf("%w: program %q declares %d textures, got %d inputs",
			common.ErrContractViolation, p.Key(), len(p.Layout().Textures), len(inputs))
	}
	for _, in := range inputs {
		if err := r.validateRead(in, output); err != nil {
			return err
		}
	}

	if err := r.backend.DrawScreenPass(p, inputs, output); err != nil {
		return err
	}
	r.stats.DrawCalls++
	r.stats.ScreenPasses++
	return nil
}

func (r *renderer) ReadPixels(t *target.RenderTarget) (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.validateTarget(t); err != nil {
		return nil, err
	}
	return r.backend.ReadPixels(t)
}

func (r *renderer) ReadPixelsFloat(t *target.RenderTarget) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.validateTarget(t); err != nil {
		return nil, err
	}
	return r.backend.ReadPixelsFloat(t)
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) Present(t *target.RenderTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.validateTarget(t); err != nil {
		return err
	}
	return r.backend.Present(t)
}

func (r *renderer) Stats() RenderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) ResetStats() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = RenderStats{}
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.programCache {
		r.backend.ReleaseProgram(p)
		delete(r.programCache, key)
	}
	r.backend.Release()
}

// validateProgram checks that a program was registered with this renderer.
func (r *renderer) validateProgram(p shader.Program) error {
	if p == nil {
		return fmt.Errorf("%w: nil program", common.ErrContractViolation)
	}
	if p.Handle() == nil {
		return fmt.Errorf("%w: program %q was not registered", common.ErrContractViolation, p.Key())
	}
	return nil
}

// validateTarget checks that a target has initialized backing storage.
func (r *renderer) validateTarget(t *target.RenderTarget) error {
	if t == nil {
		return fmt.Errorf("%w: nil target", common.ErrContractViolation)
	}
	if t.Handle() == nil {
		return fmt.Errorf("%w: target %dx%d was not initialized", common.ErrContractViolation, t.Width(), t.Height())
	}
	return nil
}

// validateRead checks a read texture against staleness and the read-write
// hazard with the destination target.
func (r *renderer) validateRead(tex *target.Texture, dst *target.RenderTarget) error {
	if tex == nil {
		return fmt.Errorf("%w: nil texture", common.ErrContractViolation)
	}
	if tex.Stale() {
		return fmt.Errorf("%w: read texture is stale, its target was resized (generation %d)",
			common.ErrContractViolation, tex.Owner().Generation())
	}
	if tex.Owner() == dst {
		return fmt.Errorf("%w: texture reads the target it is drawn onto", common.ErrContractViolation)
	}
	if tex.Owner() == nil && tex.Handle() == nil {
		return fmt.Errorf("%w: texture was not created through the renderer", common.ErrContractViolation)
	}
	if tex.Owner() != nil && tex.Owner().Handle() == nil {
		return fmt.Errorf("%w: read view of an uninitialized target", common.ErrContractViolation)
	}
	return nil
}
