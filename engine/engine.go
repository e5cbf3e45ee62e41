package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/loader"
	"github.com/emberforge/ember/engine/profiler"
	"github.com/emberforge/ember/engine/renderer"
	"github.com/emberforge/ember/engine/renderer/batch"
	"github.com/emberforge/ember/engine/renderer/pipeline"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
	"github.com/emberforge/ember/engine/scene"
	"github.com/emberforge/ember/engine/sprite"
	"github.com/emberforge/ember/engine/text"
	"github.com/emberforge/ember/engine/window"
)

// Registration keys of the built-in programs compiled at engine creation.
const (
	ProgramSprite     = "sprite"
	ProgramSpriteGlow = "sprite_glow"
	ProgramBlit       = "blit"
	ProgramMask       = "mask"
	ProgramMaskColor  = "mask_color"
	ProgramToneMap    = "tonemap"
	ProgramChannels   = "channels"
	ProgramText       = "text"
	ProgramSolid      = "solid"
	ProgramTint       = "tint"
)

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	mu     sync.RWMutex
	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	backendType          renderer.BackendType
	forceFallbackAdapter bool
	screenWidth          int
	screenHeight         int
	clearColor           common.Color

	renderer renderer.Renderer
	screen   *target.RenderTarget
	batcher  batch.InstanceBatch
	post     pipeline.PostChain
	assets   loader.Loader

	fontTextures map[*text.FontAtlas]*target.Texture

	frameTime float32 // accumulated render time in seconds, drives the glow phase
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, render loop, and window management, and
// owns the renderer, the screen target, and the built-in programs. The engine
// is the Drawer scenes submit through: full-texture sprites ride the
// instanced batch, sectioned sprites and text go through the quad path.
type Engine interface {
	scene.Drawer

	// Window returns the underlying window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer the engine draws through.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Screen returns the target every scene draws onto. It is presented to
	// the window surface at the end of each frame.
	//
	// Returns:
	//   - *target.RenderTarget: the screen target
	Screen() *target.RenderTarget

	// Loader returns the asset loader bound to the engine's renderer.
	//
	// Returns:
	//   - loader.Loader: the loader instance
	Loader() loader.Loader

	// PostChain returns the post-processing chain run after scene drawing
	// each frame. Add passes to it to enable effects.
	//
	// Returns:
	//   - pipeline.PostChain: the chain
	PostChain() pipeline.PostChain

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, input processing, and movement updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame after
	// the scenes and post chain have drawn but before presentation. Use this
	// for overlays such as text and shapes.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetClearColor sets the color the screen target clears to each frame.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c common.Color)

	// AddScene registers a scene at the given z-index key.
	// Scenes are rendered in ascending key order during the render loop.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// DrawSprite draws one sprite immediately through the quad path,
	// bypassing scene management. Respects the sprite's section and animation
	// frame.
	//
	// Parameters:
	//   - sp: the sprite to draw
	//   - dst: the render target drawn onto
	//
	// Returns:
	//   - error: a submission error
	DrawSprite(sp sprite.Sprite, dst *target.RenderTarget) error

	// DrawText lays out a string with the atlas and draws its glyphs onto
	// dst. The atlas texture uploads lazily on first use.
	//
	// Parameters:
	//   - atlas: the font atlas providing glyph metrics and coverage
	//   - s: the string to draw
	//   - x, y: the top-left origin of the text block in pixels
	//   - color: the text color
	//   - opts: wrapping, alignment, and reveal options
	//   - dst: the render target drawn onto
	//
	// Returns:
	//   - error: a submission error
	DrawText(atlas *text.FontAtlas, s string, x, y float32, color common.Color, opts text.LayoutOptions, dst *target.RenderTarget) error

	// FillRect fills an axis-aligned rectangle with a solid color.
	//
	// Parameters:
	//   - dst: the render target drawn onto
	//   - rect: the rectangle in pixel coordinates
	//   - color: the fill color
	//
	// Returns:
	//   - error: a submission error
	FillRect(dst *target.RenderTarget, rect common.Rect, color common.Color) error

	// FillCircle fills a circle approximated by triangle segments.
	//
	// Parameters:
	//   - dst: the render target drawn onto
	//   - cx, cy: the center in pixels
	//   - radius: the radius in pixels
	//   - color: the fill color
	//
	// Returns:
	//   - error: a submission error
	FillCircle(dst *target.RenderTarget, cx, cy, radius float32, color common.Color) error

	// Line draws a line with the given thickness.
	//
	// Parameters:
	//   - dst: the render target drawn onto
	//   - x0, y0: the start point in pixels
	//   - x1, y1: the end point in pixels
	//   - thickness: the line width in pixels
	//   - color: the line color
	//
	// Returns:
	//   - error: a submission error
	Line(dst *target.RenderTarget, x0, y0, x1, y1, thickness float32, color common.Color) error

	// FillTriangle fills a triangle with a solid color.
	//
	// Parameters:
	//   - dst: the render target drawn onto
	//   - x0, y0, x1, y1, x2, y2: the corner points in pixels
	//   - color: the fill color
	//
	// Returns:
	//   - error: a submission error
	FillTriangle(dst *target.RenderTarget, x0, y0, x1, y1, x2, y2 float32, color common.Color) error

	// FrameTime returns the accumulated render time in seconds. This is the
	// value staged on "time" uniforms each frame.
	//
	// Returns:
	//   - float32: the accumulated time
	FrameTime() float32

	// Run starts the main engine loop (blocks until window closes or Quit).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Release quits the engine and frees all renderer resources. The engine
	// is unusable afterwards.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options, creates
// the renderer (presenting to the window's surface when one is configured,
// headless otherwise), compiles the built-in programs, and initializes the
// screen target.
//
// Parameters:
//   - options: functional options for engine configuration (window, backend, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if renderer creation or program compilation fails
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		scenes:           make(map[int]scene.Scene),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
		backendType:      renderer.BackendTypeWGPU,
		screenWidth:      1280,
		screenHeight:     720,
		clearColor:       common.ColorBlack,
		fontTextures:     make(map[*text.FontAtlas]*target.Texture),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.screenWidth = e.window.Width()
		e.screenHeight = e.window.Height()
	}

	var rendererOpts []renderer.RendererBuilderOption
	if e.window != nil {
		rendererOpts = append(rendererOpts, renderer.WithSurface(e.window.SurfaceDescriptor(), e.screenWidth, e.screenHeight))
	}
	if e.forceFallbackAdapter {
		rendererOpts = append(rendererOpts, renderer.WithForceFallbackAdapter())
	}
	r, err := renderer.NewRenderer(e.backendType, rendererOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	e.renderer = r

	if err := e.registerBuiltinPrograms(); err != nil {
		r.Release()
		return nil, err
	}

	screen, err := target.NewRenderTarget(uint32(e.screenWidth), uint32(e.screenHeight), target.WithClearColor(e.clearColor))
	if err != nil {
		r.Release()
		return nil, err
	}
	if err := r.InitTarget(screen); err != nil {
		r.Release()
		return nil, err
	}
	e.screen = screen

	b, err := batch.NewInstanceBatch(r)
	if err != nil {
		r.Release()
		return nil, err
	}
	e.batcher = b

	post, err := pipeline.NewPostChain(r)
	if err != nil {
		r.Release()
		return nil, err
	}
	e.post = post

	e.assets = loader.NewLoader(loader.WithRenderer(r))

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if width <= 0 || height <= 0 {
				return
			}
			e.renderer.Resize(width, height)
			if err := e.renderer.ResizeTarget(e.screen, uint32(width), uint32(height)); err != nil {
				common.Logger().Error("failed to resize screen target", "error", err)
			}
			e.screenWidth = width
			e.screenHeight = height
		})
	}

	return e, nil
}

// registerBuiltinPrograms compiles one program per built-in effect variant.
func (e *engine) registerBuiltinPrograms() error {
	effects := []shader.Effect{
		{Kind: shader.KindSprite},
		{Kind: shader.KindSprite, InstanceGlow: true},
		{Kind: shader.KindBlit},
		{Kind: shader.KindMask},
		{Kind: shader.KindMask, MaskColor: true},
		{Kind: shader.KindToneMap},
		{Kind: shader.KindChannelAdjust},
		{Kind: shader.KindText},
		{Kind: shader.KindSolid},
		{Kind: shader.KindTint},
	}
	programs := make([]shader.Program, 0, len(effects))
	for _, effect := range effects {
		p, err := shader.NewProgram(effect.Key(), shader.WithEffect(effect))
		if err != nil {
			return err
		}
		programs = append(programs, p)
	}
	return e.renderer.RegisterPrograms(programs...)
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Screen() *target.RenderTarget {
	return e.screen
}

func (e *engine) Loader() loader.Loader {
	return e.assets
}

func (e *engine) PostChain() pipeline.PostChain {
	return e.post
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) Release() {
	e.signalQuit()
	e.wg.Wait()
	e.renderer.ReleaseTarget(e.screen)
	e.renderer.Release()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
		if e.window != nil {
			_ = e.window.Close()
		}
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate, advances scene
// animations, and listens for dynamic rate changes via tickRateChannel.
// Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
			for _, s := range e.activeScenes() {
				s.Advance(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own
// goroutine. Each frame clears the screen target, draws active scenes in
// ascending z-index order, runs the post chain, fires the render callback,
// and presents when a window is attached.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.mu.Lock()
			e.frameTime += dt
			t := e.frameTime
			e.mu.Unlock()

			if err := e.renderFrame(t); err != nil {
				common.Logger().Error("frame rendering failed", "error", err)
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.window != nil {
				if err := e.renderer.Present(e.screen); err != nil {
					common.Logger().Error("presentation failed", "error", err)
				}
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame clears the screen, draws active scenes in ascending z order
// through the engine's Drawer implementation, and runs the post chain.
func (e *engine) renderFrame(t float32) error {
	if err := e.renderer.Clear(e.screen, e.screen.ClearColor()); err != nil {
		return err
	}

	w := float32(e.screen.Width())
	h := float32(e.screen.Height())
	for _, s := range e.activeScenes() {
		if err := s.Draw(e, e.screen, w, h); err != nil {
			return err
		}
	}

	if e.post.Len() > 0 {
		return e.post.Run(t)
	}
	return nil
}

// activeScenes returns the active scenes in ascending z-index order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.RLock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	e.mu.RUnlock()
	return active
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) DrawBatch(tex *target.Texture, dst *target.RenderTarget, instances []batch.SpriteInstance) error {
	if len(instances) == 0 {
		return nil
	}
	p := e.renderer.Program(ProgramSpriteGlow)
	if err := p.SetUniform("screenSize", float32(dst.Width()), float32(dst.Height())); err != nil {
		return err
	}
	if err := p.SetUniform("time", e.FrameTime()); err != nil {
		return err
	}
	if err := e.batcher.Begin(p, tex, dst); err != nil {
		return err
	}
	for _, inst := range instances {
		if err := e.batcher.Push(inst); err != nil {
			return err
		}
	}
	return e.batcher.Flush()
}

func (e *engine) DrawSection(tex *target.Texture, section common.Rect, dst *target.RenderTarget, x, y, sx, sy, angle float32, tint common.Color) error {
	p := e.renderer.Program(ProgramTint)
	if err := p.SetUniform("tintColor", tint.R, tint.G, tint.B, tint.A); err != nil {
		return err
	}

	texW := float32(tex.Width())
	texH := float32(tex.Height())
	u0 := section.X / texW
	v0 := section.Y / texH
	u1 := (section.X + section.W) / texW
	v1 := (section.Y + section.H) / texH

	corners := common.RotatedQuad(x, y, section.W, section.H, sx, sy, angle, false, false)
	vertices := quadVertices(corners, float32(dst.Width()), float32(dst.Height()), u0, v0, u1, v1)
	return e.renderer.SubmitQuads(p, []*target.Texture{tex}, dst, vertices)
}

func (e *engine) DrawSprite(sp sprite.Sprite, dst *target.RenderTarget) error {
	if !sp.Visible() {
		return nil
	}
	tex := sp.Texture()
	section := sp.Section()
	if section.IsZero() {
		section = common.Rect{W: float32(tex.Width()), H: float32(tex.Height())}
	}
	x, y := sp.Position()
	sx, sy := sp.Scale()
	return e.DrawSection(tex, section, dst, x, y, sx, sy, sp.Rotation(), sp.Tint())
}

func (e *engine) DrawText(atlas *text.FontAtlas, s string, x, y float32, color common.Color, opts text.LayoutOptions, dst *target.RenderTarget) error {
	fontTex, err := e.fontTexture(atlas)
	if err != nil {
		return err
	}
	quads := atlas.Layout(s, x, y, opts)
	if len(quads) == 0 {
		return nil
	}

	p := e.renderer.Program(ProgramText)
	if err := p.SetUniform("textColor", color.R, color.G, color.B, color.A); err != nil {
		return err
	}

	w := float32(dst.Width())
	h := float32(dst.Height())
	vertices := make([]float32, 0, len(quads)*24)
	for _, q := range quads {
		corners := [4][2]float32{
			{q.X, q.Y},
			{q.X + q.W, q.Y},
			{q.X + q.W, q.Y + q.H},
			{q.X, q.Y + q.H},
		}
		vertices = append(vertices, quadVertices(corners, w, h, q.U0, q.V0, q.U1, q.V1)...)
	}
	return e.renderer.SubmitQuads(p, []*target.Texture{fontTex}, dst, vertices)
}

func (e *engine) FrameTime() float32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frameTime
}

// fontTexture returns the uploaded atlas texture, uploading it on first use.
func (e *engine) fontTexture(atlas *text.FontAtlas) (*target.Texture, error) {
	e.mu.RLock()
	tex, ok := e.fontTextures[atlas]
	e.mu.RUnlock()
	if ok {
		return tex, nil
	}

	tex, err := e.renderer.CreateTexture(atlas.StagingData(), &common.SamplerStagingData{Filter: common.FilterLinear})
	if err != nil {
		return nil, fmt.Errorf("failed to upload font atlas: %w", err)
	}
	e.mu.Lock()
	e.fontTextures[atlas] = tex
	e.mu.Unlock()
	return tex, nil
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Send to channel for immediate update in running engine loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) SetClearColor(c common.Color) {
	e.screen.SetClearColor(c)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

// quadVertices packs a quad's pixel-space corners into a clip-space triangle
// list with the given UV extents. Corner order is top-left, top-right,
// bottom-right, bottom-left.
func quadVertices(corners [4][2]float32, w, h, u0, v0, u1, v1 float32) []float32 {
	var clip [4][2]float32
	for i, c := range corners {
		cx, cy := common.ToClipSpace(c[0], c[1], w, h)
		clip[i] = [2]float32{cx, cy}
	}
	uvs := [4][2]float32{{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1}}

	vertices := make([]float32, 0, 24)
	for _, i := range [6]int{0, 1, 2, 0, 2, 3} {
		vertices = append(vertices, clip[i][0], clip[i][1], uvs[i][0], uvs[i][1])
	}
	return vertices
}
