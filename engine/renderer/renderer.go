package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// SurfaceSource is anything that can hand out a WebGPU surface descriptor and its pixel size,
// typically a window.Window.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	cache PipelineCache

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	clearColor           wgpu.Color
	cacheOptions         []PipelineCacheOption

	// extent is the current surface size, zero until the first Resize or sized frame.
	extent common.Rect
}

// Renderer draws the shader preview.
//
// Each frame the owner calls Prepare with the scene snapshot, then BeginFrame, Render, EndFrame and Present.
// Prepare hands the snapshot to the PipelineCache, which keeps the last good pipeline alive across failed
// edits, so Render always has something valid to draw or nothing at all.
type Renderer interface {
	// Cache returns the pipeline cache backing this renderer.
	Cache() PipelineCache

	// Prepare brings the pipeline and uniform buffers up to date with the snapshot.
	//
	// Parameters:
	//   - snap: the scene state for this frame
	//   - bounds: the preview viewport in physical pixels
	Prepare(snap scene.Snapshot, bounds common.Rect)

	// Render draws the preview into view inside clip. The pass loads the existing contents, so whatever the
	// frame already holds outside clip is kept. With no committed pipeline the pass is opened and ended with
	// no commands in it. clip is intersected with the current surface size first, so a viewport computed
	// before a resize never exceeds the target.
	//
	// Parameters:
	//   - encoder: the frame's command encoder
	//   - view: the target texture view
	//   - clip: the viewport rectangle in physical pixels
	//
	// Returns:
	//   - error: an error if the pass could not be started
	Render(encoder, view any, clip common.Rect) error

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// BeginFrame acquires the swapchain texture and clears it.
	// Must be paired with EndFrame after all Render calls within a single frame.
	//
	// Returns:
	//   - Frame: the encoder and view to pass to Render
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() (Frame, error)

	// EndFrame submits the frame's command buffer to the GPU.
	// Does not present the surface, call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()

	// Release releases the pipeline cache and then the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type, drawing to the window's surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - source: the window providing the surface descriptor and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, source SurfaceSource, options ...RendererBuilderOption) Renderer {
	r := newRenderer(options...)
	r.backendType = backendType

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(source.SurfaceDescriptor(), r.forceFallbackAdapter, r.clearColor)
	}

	r.init()
	r.Resize(source.Width(), source.Height())
	return r
}

// newRendererWithBackend wires a renderer to an existing backend instead of creating one.
func newRendererWithBackend(backend RendererBackend, options ...RendererBuilderOption) *renderer {
	r := newRenderer(options...)
	r.backend = backend
	r.init()
	return r
}

func newRenderer(options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:         &sync.Mutex{},
		clearColor: wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}
	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *renderer) init() {
	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.cache = NewPipelineCache(r.backend, r.cacheOptions...)
}

func (r *renderer) Cache() PipelineCache {
	return r.cache
}

func (r *renderer) Prepare(snap scene.Snapshot, bounds common.Rect) {
	r.cache.Prepare(snap, bounds)
}

func (r *renderer) Render(encoder, view any, clip common.Rect) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pass, err := r.backend.BeginLoadPass(encoder, view)
	if err != nil {
		return err
	}
	defer pass.End()

	if !r.extent.Empty() {
		clip = clip.Intersect(r.extent)
	}
	p := r.cache.Pipeline()
	if p == nil || !p.Built() || clip.Empty() {
		return nil
	}

	pass.SetPipeline(p)
	pass.SetViewport(clip.X, clip.Y, clip.Width, clip.Height, 0, 1)
	pass.SetBindGroup(BuiltinGroup, r.cache.Builtins().BindGroup())
	if customs := r.cache.Customs(); customs != nil {
		pass.SetBindGroup(CustomGroup, customs.BindGroup())
	}
	pass.Draw(3, 1, 0, 0)
	return nil
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
	r.setExtent(width, height)
}

func (r *renderer) setExtent(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extent = common.Rect{Width: float32(width), Height: float32(height)}
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) BeginFrame() (Frame, error) {
	frame, err := r.backend.BeginFrame()
	if err == nil && frame.Width > 0 && frame.Height > 0 {
		r.setExtent(frame.Width, frame.Height)
	}
	return frame, err
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Release()
	r.backend.Release()
}
