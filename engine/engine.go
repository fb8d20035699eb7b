package engine

import (
	"log"
	"time"

	"github.com/cairn3d/cairn/engine/camera"
	"github.com/cairn3d/cairn/engine/profiler"
	"github.com/cairn3d/cairn/engine/renderer"
	"github.com/cairn3d/cairn/engine/window"
)

// engine is the implementation of the Engine interface.
// Owns the window, renderer, and per-frame scheduling.
type engine struct {
	window   window.Window
	renderer renderer.Renderer
	camera   camera.Camera
	profiler profiler.Profiler

	tickCallback    func(deltaTime float32)
	renderCallback  func(deltaTime float32)
	overlayCallback func(deltaTime float32)

	shutdownCallbacks []func()

	lastFrame  time.Time
	frameLimit time.Duration // minimum frame duration; 0 = uncapped
	quitting   bool
}

// Engine is the main entry point: it owns the window and renderer lifetimes
// and drives the frame loop. Everything runs on the thread that calls Run;
// callbacks must not retain frame resources across invocations.
//
// Each frame runs in a fixed order: poll window events, tick callback,
// BeginFrame, render callback, EndFrame (scene end plus post-processing),
// overlay callback inside the overlay pass, Present, then a shader
// hot-reload poll.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer driving the window's surface.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Camera returns the camera whose view-projection is fed to the renderer
	// each frame, or nil if none is attached.
	//
	// Returns:
	//   - camera.Camera: the attached camera or nil
	Camera() camera.Camera

	// SetCamera attaches a camera. Each frame its view-projection matrix is
	// pushed to the renderer before the render callback runs, and its aspect
	// ratio tracks window resizes.
	//
	// Parameters:
	//   - cam: the camera to attach (nil detaches)
	SetCamera(cam camera.Camera)

	// SetTickCallback registers the function called at the start of each
	// frame, before rendering begins. Use this for game logic, input
	// processing, and animation updates.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called between BeginFrame and
	// EndFrame. All Draw/DrawModel/DrawBounds calls belong here.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetOverlayCallback registers the function called inside the UI overlay
	// pass, after the scene and post-processing have resolved to the
	// swapchain.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetOverlayCallback(callback func(deltaTime float32))

	// AddShutdownCallback registers a function run during shutdown, after the
	// frame loop exits and before the renderer is released. Callbacks run in
	// registration order and a panic in one does not prevent the rest.
	//
	// Parameters:
	//   - callback: the function to run at shutdown
	AddShutdownCallback(callback func())

	// SetFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetFrameLimit(fps float64)

	// Run starts the frame loop and blocks until the window closes or Quit
	// is called. On exit it runs the shutdown callbacks, releases the
	// renderer, and destroys the window.
	Run()

	// Quit asks the frame loop to stop after the current frame.
	// Safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// A default window and renderer are created unless supplied via options.
// The window resize event is wired to the renderer's surface configuration
// and the attached camera's aspect ratio.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		profiler: profiler.Null{},
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		e.window = window.NewWindow()
	}
	if e.renderer == nil {
		e.renderer = renderer.NewRenderer(renderer.BackendTypeWGPU, e.window)
	}
	if e.camera != nil {
		e.camera.SetAspect(float32(e.window.Width()) / float32(e.window.Height()))
	}

	e.window.SetResizeCallback(func(width, height int) {
		if width == 0 || height == 0 {
			// Minimized; keep the previous surface until restored.
			return
		}
		e.renderer.Resize(width, height)
		if e.camera != nil {
			e.camera.SetAspect(float32(width) / float32(height))
		}
	})

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) SetCamera(cam camera.Camera) {
	e.camera = cam
	if cam != nil && e.window != nil {
		cam.SetAspect(float32(e.window.Width()) / float32(e.window.Height()))
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetOverlayCallback(callback func(deltaTime float32)) {
	e.overlayCallback = callback
}

func (e *engine) AddShutdownCallback(callback func()) {
	if callback != nil {
		e.shutdownCallbacks = append(e.shutdownCallbacks, callback)
	}
}

// SetFrameLimit sets an optional frame rate cap. Pass 0 to uncap the loop.
func (e *engine) SetFrameLimit(fps float64) {
	if fps <= 0 {
		e.frameLimit = 0
		return
	}
	e.frameLimit = time.Second / time.Duration(fps)
}

func (e *engine) Run() {
	e.lastFrame = time.Now()
	e.window.SetUpdateCallback(e.frame)
	e.window.ProcessMessages()
	e.shutdown()
}

func (e *engine) Quit() {
	if e.quitting {
		return
	}
	e.quitting = true
	e.window.RequestClose()
}

// frame runs one full frame. Called by the window's message loop after
// events have been polled for this iteration.
func (e *engine) frame() {
	if e.quitting {
		return
	}

	frameStart := time.Now()
	dt := float32(frameStart.Sub(e.lastFrame).Seconds())
	e.lastFrame = frameStart

	e.profiler.BeginZone("tick")
	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
	e.profiler.EndZone()

	if e.camera != nil {
		vp := e.camera.ViewProjectionMatrix()
		e.renderer.SetViewProjection(vp[:])
	}

	e.profiler.BeginZone("render")
	if err := e.renderer.BeginFrame(); err != nil {
		// Surface acquisition can fail transiently (e.g. mid-resize);
		// skip the frame and try again on the next iteration.
		log.Printf("[Engine] skipping frame: %v", err)
		e.profiler.EndZone()
		return
	}
	if e.renderCallback != nil {
		e.renderCallback(dt)
	}
	e.renderer.EndFrame()
	e.profiler.EndZone()

	if e.overlayCallback != nil {
		e.profiler.BeginZone("overlay")
		e.renderer.BeginOverlay()
		e.overlayCallback(dt)
		e.renderer.EndOverlay()
		e.profiler.EndZone()
	}

	e.renderer.Present()
	e.renderer.ShaderRegistry().CheckForUpdates()
	e.profiler.FrameMark()

	if e.frameLimit > 0 {
		if remaining := e.frameLimit - time.Since(frameStart); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// shutdown runs the registered shutdown callbacks, releases the renderer,
// and destroys the window. Callback panics are absorbed so a failing
// callback cannot leave GPU resources unreleased.
func (e *engine) shutdown() {
	for _, cb := range e.shutdownCallbacks {
		e.runShutdownCallback(cb)
	}

	if e.renderer != nil {
		e.renderer.Release()
	}
	if err := e.window.Close(); err != nil {
		log.Printf("[Engine] window close failed: %v", err)
	}
}

func (e *engine) runShutdownCallback(cb func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] shutdown callback recovered from panic: %v", r)
		}
	}()
	cb()
}
