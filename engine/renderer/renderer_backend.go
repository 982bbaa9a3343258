package renderer

import (
	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// Frame is the per-frame render target handed out by BeginFrame.
// Encoder and View are backend objects (*wgpu.CommandEncoder and *wgpu.TextureView for wgpu).
type Frame struct {
	Encoder any
	View    any
	Width   int
	Height  int
}

// RenderPass is the subset of a render pass encoder the preview draw needs.
type RenderPass interface {
	SetPipeline(p pipeline.Pipeline)
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetBindGroup(index uint32, group common.Releasable)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End()
}

// RendererBackend is the GPU API seam used by the PipelineCache and Renderer.
// Every method is called from the render goroutine.
type RendererBackend interface {
	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. Takes effect on the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// TargetFormat returns the color format pipelines must target. Changes after a surface reconfigure.
	TargetFormat() wgpu.TextureFormat

	// PushErrorScope opens a validation error scope. Every GPU object creation error raised until the
	// matching PopErrorScope is collected into it.
	PushErrorScope()

	// PopErrorScope closes the innermost error scope.
	//
	// Returns:
	//   - <-chan error: receives the scope's result once it resolves, nil when no error was raised
	PopErrorScope() <-chan error

	// InitUniformBindGroup creates a uniform buffer of provider.Size() bytes, a bind group layout with a
	// single uniform entry at binding 0 and the bind group tying them together, and stores all three on
	// the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider describing the group
	//
	// Returns:
	//   - error: an error if any object could not be created; the provider holds no objects in that case
	InitUniformBindGroup(provider bind_group_provider.BindGroupProvider) error

	// WriteBuffers queues every write into the providers' uniform buffers.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// CreateShaderModule compiles WGSL source into a shader module.
	//
	// Parameters:
	//   - s: the shader to compile
	//
	// Returns:
	//   - common.Releasable: the created module
	//   - error: a compilation error
	CreateShaderModule(s shader.Shader) (common.Releasable, error)

	// RegisterRenderPipeline creates the pipeline layout and render pipeline for p from the provided modules
	// and bind group providers (in group order) and stores them on p.
	//
	// Parameters:
	//   - p: the pipeline describing primitive and blend state
	//   - vertexModule: the compiled vertex module
	//   - fragmentModule: the compiled fragment module, owned by p from now on
	//   - groups: the bind group providers, index i bound at group i
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline, vertexModule, fragmentModule common.Releasable, groups []bind_group_provider.BindGroupProvider) error

	// BeginFrame acquires the next surface texture, creates a command encoder and records a clear pass
	// with the configured clear color.
	//
	// Returns:
	//   - Frame: the encoder and target view for this frame
	//   - error: an error if the surface texture could not be acquired
	BeginFrame() (Frame, error)

	// BeginLoadPass begins a render pass on view that keeps the existing contents.
	//
	// Parameters:
	//   - encoder: the frame's command encoder
	//   - view: the target texture view
	//
	// Returns:
	//   - RenderPass: the open pass, which must be ended
	//   - error: an error if the encoder or view are not backend objects
	BeginLoadPass(encoder, view any) (RenderPass, error)

	// EndFrame finishes the frame's encoder and submits it to the queue.
	// Does not present the surface, call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// Release releases the device and surface. The backend is unusable afterwards.
	Release()
}
