package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/loader"
	"github.com/Carmen-Shannon/oxy-shade/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/engine/window"
)

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	scene    scene.Scene
	renderer renderer.Renderer
	loader   loader.Loader

	// projectPath is where the S key saves the preview, empty to disable saving.
	projectPath string

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	// Durations in nanoseconds, written by setters on any goroutine and read by the loops.
	engineTickRate   atomic.Int64
	renderFrameLimit atomic.Int64 // minimum frame duration; 0 = uncapped

	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	// viewport maps the frame size onto the preview bounds.
	viewport func(width, height int) common.Rect

	// clockPaused stops the time uniform from advancing; clockReset asks the tick loop to restart it at zero.
	clockPaused atomic.Bool
	clockReset  atomic.Bool

	// pendingSize holds the latest framebuffer size reported by the window, applied on the render goroutine.
	pendingSize atomic.Pointer[[2]int]

	title     string
	lastError error
}

// Engine drives a live shader preview: it ticks the scene's time uniform, and each frame pulls a scene
// snapshot, prepares the pipeline cache, and draws the preview into the window.
type Engine interface {
	// Window returns the underlying window.
	Window() window.Window

	// Scene returns the scene being previewed.
	Scene() scene.Scene

	// Renderer returns the renderer drawing the preview.
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the rate at which the time uniform advances, in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers a function called each engine tick on the tick goroutine.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers a function called after each presented frame on the render goroutine.
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

	// ToggleClock pauses or resumes the time uniform.
	ToggleClock()

	// ResetClock restarts the time uniform at zero.
	ResetClock()

	// Run starts the tick and render goroutines and runs the window loop on the calling goroutine.
	// Blocks until the window closes or Quit is called, then waits for both goroutines to stop.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine previewing s through r inside w.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - w: the window to present into
//   - s: the scene to preview
//   - r: the renderer drawing into w's surface
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if a required component is missing
func NewEngine(w window.Window, s scene.Scene, r renderer.Renderer, options ...EngineBuilderOption) (Engine, error) {
	if w == nil || s == nil || r == nil {
		return nil, errors.New("engine requires a window, a scene and a renderer")
	}
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		window:          w,
		scene:           s,
		renderer:        r,
		title:           "oxy-shade",
		viewport: func(width, height int) common.Rect {
			return common.Rect{Width: float32(width), Height: float32(height)}
		},
	}
	e.engineTickRate.Store(int64(time.Second / 60))
	for _, opt := range options {
		opt(e)
	}
	e.profiler = profiler.NewProfiler(profiler.WithCacheStats(r.Cache().Stats))

	w.SetResizeCallback(func(width, height int) {
		e.pendingSize.Store(&[2]int{width, height})
	})
	w.SetKeyDownCallback(e.handleKey)
	w.SetDropCallback(e.handleDrop)
	w.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			_ = w.Close()
		default:
		}
	})

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	e.running.Store(true)
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate tick loop in its own goroutine. Each tick advances the preview clock
// and posts it to the scene, which ignores it when the time uniform is disabled.
// Listens for dynamic rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickRate())
	defer ticker.Stop()

	lastTick := time.Now()
	var elapsed float32

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.clockReset.Swap(false) {
				elapsed = 0
				e.scene.Post(scene.TimeReset{})
			} else if !e.clockPaused.Load() {
				elapsed += dt
				e.scene.Post(scene.TimeTick{Elapsed: elapsed})
			}

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
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
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		e.renderFrame()

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}

		if e.profilingEnabled.Load() {
			e.profiler.Tick()
		}

		if limit := time.Duration(e.renderFrameLimit.Load()); limit > 0 {
			if remaining := limit - time.Since(lastRender); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame runs one frame: drain scene messages, snapshot, prepare, then draw and present.
func (e *engine) renderFrame() {
	if size := e.pendingSize.Swap(nil); size != nil {
		e.renderer.Resize(size[0], size[1])
	}

	e.scene.ProcessMessages()
	if !e.scene.Active() {
		return
	}

	frame, err := e.renderer.BeginFrame()
	if err != nil {
		common.Logger().Debug("skipping frame", "error", err)
		return
	}

	bounds := e.viewport(frame.Width, frame.Height)
	e.renderer.Prepare(e.scene.Snapshot(), bounds)
	e.updateTitle()

	if err := e.renderer.Render(frame.Encoder, frame.View, bounds); err != nil {
		common.Logger().Warn("render failed", "error", err)
	}
	e.renderer.EndFrame()
	e.renderer.Present()
}

// updateTitle reflects the cache's build state in the window title whenever it changes.
func (e *engine) updateTitle() {
	err := e.renderer.Cache().LastError()
	if err == e.lastError {
		return
	}
	e.lastError = err

	if err == nil {
		e.window.SetTitle(e.title)
		return
	}
	var be *renderer.BuildError
	if errors.As(err, &be) {
		e.window.SetTitle(fmt.Sprintf("%s [%s failed]", e.title, be.Stage))
		return
	}
	e.window.SetTitle(e.title + " [build failed]")
}

// handleKey runs on the window thread. Scene edits go through Post.
func (e *engine) handleKey(key window.Key) {
	switch key {
	case window.KeySpace:
		e.ToggleClock()
	case window.KeyR:
		e.ResetClock()
	case window.KeyT:
		if e.scene.HasTime() {
			e.scene.Post(scene.TimeRemoved{})
		} else {
			e.scene.Post(scene.TimeAdded{})
		}
	case window.KeyF5:
		if e.loader != nil && e.loader.ShaderPath() != "" {
			if err := e.loader.Open(e.loader.ShaderPath()); err != nil {
				common.Logger().Warn("reload failed", "error", err)
			}
		}
	case window.KeyS:
		if e.loader != nil && e.projectPath != "" {
			if err := e.loader.Save(e.projectPath); err != nil {
				common.Logger().Warn("save failed", "path", e.projectPath, "error", err)
				return
			}
			common.Logger().Info("project saved", "path", e.projectPath)
		}
	}
}

// handleDrop opens the first dropped file as a shader or project.
func (e *engine) handleDrop(paths []string) {
	if e.loader == nil {
		return
	}
	if err := e.loader.Open(paths[0]); err != nil {
		common.Logger().Warn("open dropped file failed", "path", paths[0], "error", err)
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.engineTickRate.Store(int64(newRate))
	if !e.running.Load() {
		return
	}
	// Non-blocking send; a pending update is replaced by the newer one.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit.Store(0)
		return
	}
	e.renderFrameLimit.Store(int64(time.Duration(float64(time.Second) / fps)))
}

// tickRate returns the current tick interval.
func (e *engine) tickRate() time.Duration {
	return time.Duration(e.engineTickRate.Load())
}

func (e *engine) ToggleClock() {
	paused := !e.clockPaused.Load()
	e.clockPaused.Store(paused)
	common.Logger().Debug("preview clock", "paused", paused)
}

func (e *engine) ResetClock() {
	e.clockReset.Store(true)
}
