package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
)

// PipelineCacheOption is a functional option applied to a PipelineCache during construction.
type PipelineCacheOption func(*pipelineCache)

// WithCompileTimeout bounds how long Prepare waits for a pipeline's error scope to resolve.
// Defaults to 2 seconds. Non-positive values are ignored.
//
// Parameters:
//   - timeout: the maximum wait per rebuild
//
// Returns:
//   - PipelineCacheOption: a function that applies the timeout to a cache
func WithCompileTimeout(timeout time.Duration) PipelineCacheOption {
	return func(c *pipelineCache) {
		if timeout > 0 {
			c.compileTimeout = timeout
		}
	}
}

// WithRetryFailedBuilds makes a failed rebuild retry on every following frame until it succeeds,
// instead of waiting for the next edit.
func WithRetryFailedBuilds(retry bool) PipelineCacheOption {
	return func(c *pipelineCache) {
		c.retryFailed = retry
	}
}

// WithCoarseVersioning treats every uniform edit as a layout change: each one reallocates the custom
// uniform buffer and recompiles the pipeline.
func WithCoarseVersioning(coarse bool) PipelineCacheOption {
	return func(c *pipelineCache) {
		c.coarse = coarse
	}
}

// WithPreValidation toggles naga validation of the assembled fragment source before it reaches the driver.
// Enabled by default.
func WithPreValidation(enabled bool) PipelineCacheOption {
	return func(c *pipelineCache) {
		c.preValidate = enabled
	}
}

// WithErrorHandler registers fn to receive every failed rebuild as a *BuildError.
//
// Parameters:
//   - fn: called on the render goroutine; must not block
//
// Returns:
//   - PipelineCacheOption: a function that applies the handler to a cache
func WithErrorHandler(fn func(err error)) PipelineCacheOption {
	return func(c *pipelineCache) {
		c.onError = fn
	}
}

// WithPipelineOptions forwards primitive and blend options to every pipeline the cache builds.
func WithPipelineOptions(opts ...pipeline.PipelineBuilderOption) PipelineCacheOption {
	return func(c *pipelineCache) {
		c.pipelineOpts = append(c.pipelineOpts, opts...)
	}
}
