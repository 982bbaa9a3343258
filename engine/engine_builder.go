package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/loader"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithTickRate sets how many times per second the time uniform advances.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate.Store(int64(time.Duration(float64(time.Second) / fps)))
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetRenderFrameLimit(fps)
	}
}

// WithLoader lets dropped files, F5 and S open, reload and save through l.
//
// Parameters:
//   - l: the loader feeding the engine's scene
//   - projectPath: where S saves the project, empty to disable saving
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLoader(l loader.Loader, projectPath string) EngineBuilderOption {
	return func(e *engine) {
		e.loader = l
		e.projectPath = projectPath
	}
}

// WithTitle sets the base window title shown while the preview builds cleanly. Empty keeps the default.
func WithTitle(title string) EngineBuilderOption {
	return func(e *engine) {
		e.title = common.Coalesce(title, e.title)
	}
}

// WithViewport maps each frame's size onto the rectangle the preview is drawn into.
// Defaults to the full frame.
//
// Parameters:
//   - viewport: function receiving the frame size in pixels
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithViewport(viewport func(width, height int) common.Rect) EngineBuilderOption {
	return func(e *engine) {
		if viewport != nil {
			e.viewport = viewport
		}
	}
}

// WithClockPaused starts the preview with the time uniform frozen.
func WithClockPaused(paused bool) EngineBuilderOption {
	return func(e *engine) {
		e.clockPaused.Store(paused)
	}
}
