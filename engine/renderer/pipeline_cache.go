package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/engine/uniform"
	"github.com/cogentcore/webgpu/wgpu"
)

// Group indices of the two uniform bind groups every preview pipeline is laid out with.
const (
	BuiltinGroup uint32 = 0
	CustomGroup         = uint32(uniform.Group)
)

// builtinUniforms mirrors the prelude's `Uniforms` struct at @group(0) @binding(0).
type builtinUniforms struct {
	Resolution [2]float32
	Origin     [2]float32
}

// CacheStats counts the GPU work a PipelineCache has issued.
type CacheStats struct {
	// Compiles is the number of pipeline builds handed to the backend.
	Compiles uint64
	// Failures is the number of rebuilds that ended in a BuildError.
	Failures uint64
	// Allocations is the number of custom uniform buffers created.
	Allocations uint64
	// BufferWrites is the number of custom uniform buffer uploads.
	BufferWrites uint64
	// BuiltinWrites is the number of resolution/origin uploads.
	BuiltinWrites uint64
}

// pipelineCache is the implementation of the PipelineCache interface.
type pipelineCache struct {
	mu      *sync.Mutex
	backend RendererBackend

	// Created once on the first Prepare and kept for the cache's lifetime.
	vertex       shader.Shader
	vertexModule common.Releasable
	builtins     bind_group_provider.BindGroupProvider
	baseErr      error

	// Committed resources: whatever the last successful build produced.
	current        pipeline.Pipeline
	customs        bind_group_provider.BindGroupProvider
	// committedShape is the snapshot shape the committed customs were staged for, 0 before any commit.
	committedShape uint64

	// Last observed inputs, compared against each snapshot. Nothing is observed until seen is set,
	// so the first Prepare builds regardless of the snapshot's versions.
	seen        bool
	lastShader  uint64
	lastUniform uint64
	lastShape   uint64
	format      wgpu.TextureFormat
	bounds      common.Rect
	boundsSet   bool

	compileTimeout time.Duration
	retryFailed    bool
	coarse         bool
	preValidate    bool
	onError        func(err error)
	pipelineOpts   []pipeline.PipelineBuilderOption

	lastErr error
	stats   CacheStats
}

// PipelineCache owns the preview pipeline and its uniform buffers, and decides once per frame what
// has to be rebuilt from a scene.Snapshot:
//   - a value-only uniform edit is a buffer write
//   - a uniform layout edit stages a new buffer and rebuilds the pipeline
//   - a shader edit or target format change rebuilds the pipeline
//
// A failed rebuild releases only what it staged. The last good pipeline, buffers and bind groups
// stay committed and keep rendering.
type PipelineCache interface {
	// Prepare brings the GPU resources up to date with snap. Never panics on bad user input;
	// failures are reported through the error handler, the logger and LastError.
	//
	// Parameters:
	//   - snap: the scene state for this frame
	//   - bounds: the preview viewport in physical pixels
	Prepare(snap scene.Snapshot, bounds common.Rect)

	// Pipeline returns the committed pipeline, or nil if no build has succeeded yet.
	Pipeline() pipeline.Pipeline

	// Builtins returns the group 0 provider holding resolution and origin, or nil before the first Prepare.
	Builtins() bind_group_provider.BindGroupProvider

	// Customs returns the committed group 1 provider, or nil when the committed uniform set is empty.
	Customs() bind_group_provider.BindGroupProvider

	// LastError returns the most recent BuildError, cleared by the next successful build.
	LastError() error

	// Stats returns a copy of the work counters.
	Stats() CacheStats

	// Release releases every GPU object the cache holds. The next Prepare starts from scratch.
	Release()
}

var _ PipelineCache = &pipelineCache{}

// NewPipelineCache creates a PipelineCache building on backend.
//
// Parameters:
//   - backend: the GPU backend used for every allocation and compile
//   - options: variadic list of PipelineCacheOption functions
//
// Returns:
//   - PipelineCache: the configured cache, holding no GPU objects yet
func NewPipelineCache(backend RendererBackend, options ...PipelineCacheOption) PipelineCache {
	c := &pipelineCache{
		mu:             &sync.Mutex{},
		backend:        backend,
		vertex:         shader.AssembleVertex(),
		compileTimeout: 2 * time.Second,
		preValidate:    true,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *pipelineCache) Prepare(snap scene.Snapshot, bounds common.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ensureBase() {
		return
	}
	c.writeBuiltins(bounds)

	target := c.backend.TargetFormat()
	first := !c.seen
	uniformsDirty := first || snap.Uniforms.NewerThan(c.lastUniform)
	shapeDirty := uniformsDirty && (first || c.coarse || snap.Shape != c.lastShape)
	shaderDirty := first || snap.Shader.NewerThan(c.lastShader) || target != c.format

	// A value-only edit goes straight into the committed buffer. When the committed buffer has an
	// older layout (its rebuild failed) the values are written by the next successful commit instead.
	if uniformsDirty && !shapeDirty && snap.Shape == c.committedShape {
		c.writeCustoms(snap.Uniforms.Data.Bytes)
	}
	if !shapeDirty && !shaderDirty {
		c.markSeen(snap, target, true)
		return
	}

	restage := shapeDirty || snap.Shape != c.committedShape
	common.Logger().Debug("rebuilding preview pipeline",
		"shader_version", snap.Shader.Version,
		"uniform_version", snap.Uniforms.Version,
		"shape", snap.Shape,
		"restage", restage,
	)

	custom := c.customs
	if restage {
		staged, err := c.stageCustoms(snap.Uniforms.Data)
		if err != nil {
			c.fail(newBuildError(StageBindGroup, err))
			c.markSeen(snap, target, false)
			return
		}
		custom = staged
	}

	p, buildErr := c.build(snap, custom)
	if buildErr != nil {
		if restage && custom != nil {
			custom.Release()
		}
		c.fail(buildErr)
		c.markSeen(snap, target, false)
		return
	}

	if c.current != nil {
		c.current.Release()
	}
	c.current = p
	if restage {
		if c.customs != nil {
			c.customs.Release()
		}
		c.customs = custom
		c.committedShape = snap.Shape
		c.writeCustoms(snap.Uniforms.Data.Bytes)
	}
	c.lastErr = nil
	c.markSeen(snap, target, true)

	common.Logger().Info("preview pipeline rebuilt",
		"shader_version", snap.Shader.Version,
		"uniforms", snap.Uniforms.Data.Count,
		"uniform_bytes", snap.Uniforms.Data.Size(),
	)
}

// ensureBase creates the vertex module and the built-in uniform group on first use.
// A failure here is a device problem, reported once and never retried.
func (c *pipelineCache) ensureBase() bool {
	if c.baseErr != nil {
		return false
	}
	if c.vertexModule != nil && c.builtins != nil {
		return true
	}

	module, err := c.backend.CreateShaderModule(c.vertex)
	if err != nil {
		c.baseErr = err
		c.fail(newBuildError(StageShaderModule, fmt.Errorf("vertex module: %w", err)))
		return false
	}

	builtins := bind_group_provider.NewBindGroupProvider("builtin uniforms",
		bind_group_provider.WithGroup(BuiltinGroup),
		bind_group_provider.WithSize(16),
		bind_group_provider.WithVisibility(wgpu.ShaderStageVertex|wgpu.ShaderStageFragment),
	)
	if err := c.backend.InitUniformBindGroup(builtins); err != nil {
		module.Release()
		c.baseErr = err
		c.fail(newBuildError(StageBindGroup, fmt.Errorf("builtin uniforms: %w", err)))
		return false
	}

	c.vertexModule = module
	c.builtins = builtins
	return true
}

// writeBuiltins uploads resolution and origin when the viewport moved or resized.
func (c *pipelineCache) writeBuiltins(bounds common.Rect) {
	if c.boundsSet && bounds == c.bounds {
		return
	}
	c.bounds, c.boundsSet = bounds, true

	u := builtinUniforms{
		Resolution: [2]float32{bounds.Width, bounds.Height},
		Origin:     [2]float32{bounds.X, bounds.Y},
	}
	c.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: c.builtins, Offset: 0, Data: common.StructToBytes(&u)},
	})
	c.stats.BuiltinWrites++
}

func (c *pipelineCache) writeCustoms(data []byte) {
	if c.customs == nil || len(data) == 0 {
		return
	}
	c.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: c.customs, Offset: 0, Data: data},
	})
	c.stats.BufferWrites++
}

// stageCustoms allocates a group 1 provider sized for data. An empty uniform set stages nothing.
func (c *pipelineCache) stageCustoms(data uniform.RenderData) (bind_group_provider.BindGroupProvider, error) {
	if data.Empty() {
		return nil, nil
	}
	p := bind_group_provider.NewBindGroupProvider("custom uniforms",
		bind_group_provider.WithGroup(CustomGroup),
		bind_group_provider.WithSize(data.Size()),
		bind_group_provider.WithVisibility(wgpu.ShaderStageFragment),
	)
	if err := c.backend.InitUniformBindGroup(p); err != nil {
		p.Release()
		return nil, err
	}
	c.stats.Allocations++
	return p, nil
}

// build assembles, validates and compiles the fragment stage, then creates the pipeline inside an
// error scope whose result is awaited for at most compileTimeout.
func (c *pipelineCache) build(snap scene.Snapshot, custom bind_group_provider.BindGroupProvider) (pipeline.Pipeline, *BuildError) {
	fs, err := shader.AssembleFragment(snap.Uniforms.Data.StructText, snap.Shader.Data)
	if err != nil {
		return nil, newBuildError(StageValidate, err)
	}
	if c.preValidate {
		if err := shader.Validate(fs.Source()); err != nil {
			return nil, newBuildError(StageValidate, err)
		}
	}

	groups := []bind_group_provider.BindGroupProvider{c.builtins}
	if custom != nil {
		groups = append(groups, custom)
	}

	c.stats.Compiles++
	c.backend.PushErrorScope()

	var (
		p           pipeline.Pipeline
		pipelineErr error
	)
	module, moduleErr := c.backend.CreateShaderModule(fs)
	if moduleErr == nil {
		opts := append([]pipeline.PipelineBuilderOption{pipeline.WithShaders(c.vertex, fs)}, c.pipelineOpts...)
		p = pipeline.NewPipeline("preview", opts...)
		pipelineErr = c.backend.RegisterRenderPipeline(p, c.vertexModule, module, groups)
	}
	scopeErr := c.await(c.backend.PopErrorScope())

	switch {
	case moduleErr != nil:
		return nil, newBuildError(StageShaderModule, moduleErr)
	case pipelineErr != nil:
		module.Release()
		return nil, newBuildError(StagePipeline, pipelineErr)
	case errors.Is(scopeErr, ErrCompileTimeout):
		p.Release()
		return nil, &BuildError{
			Stage:   StageTimeout,
			Message: fmt.Sprintf("no validation result after %s", c.compileTimeout),
			Err:     ErrCompileTimeout,
		}
	case scopeErr != nil:
		p.Release()
		return nil, newBuildError(StagePipeline, scopeErr)
	}
	return p, nil
}

// await waits for an error scope result. A scope that never resolves counts as a failed build.
func (c *pipelineCache) await(result <-chan error) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.compileTimeout)
	defer cancel()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ErrCompileTimeout
	}
}

// markSeen records the inputs of this frame so they are not acted on again. A failed frame is left
// unrecorded in retry mode so the next frame attempts the same rebuild.
func (c *pipelineCache) markSeen(snap scene.Snapshot, target wgpu.TextureFormat, ok bool) {
	if !ok && c.retryFailed {
		return
	}
	c.seen = true
	c.lastShader = snap.Shader.Version
	c.lastUniform = snap.Uniforms.Version
	c.lastShape = snap.Shape
	c.format = target
}

func (c *pipelineCache) fail(err *BuildError) {
	c.lastErr = err
	c.stats.Failures++
	common.Logger().Warn("preview pipeline rebuild failed", "stage", string(err.Stage), "error", err.Message)
	if c.onError != nil {
		c.onError(err)
	}
}

func (c *pipelineCache) Pipeline() pipeline.Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *pipelineCache) Builtins() bind_group_provider.BindGroupProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builtins
}

func (c *pipelineCache) Customs() bind_group_provider.BindGroupProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customs
}

func (c *pipelineCache) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *pipelineCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *pipelineCache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Release()
		c.current = nil
	}
	if c.customs != nil {
		c.customs.Release()
		c.customs = nil
	}
	if c.builtins != nil {
		c.builtins.Release()
		c.builtins = nil
	}
	if c.vertexModule != nil {
		c.vertexModule.Release()
		c.vertexModule = nil
	}
	c.committedShape = 0
	c.seen = false
	c.lastShader, c.lastUniform, c.lastShape = 0, 0, 0
	c.format = wgpu.TextureFormatUndefined
	c.boundsSet = false
}
