package renderer

import (
	"errors"
	"fmt"
)

// BuildStage names the step of a pipeline rebuild that failed.
type BuildStage string

const (
	StageValidate     BuildStage = "validate"
	StageShaderModule BuildStage = "shader_module"
	StagePipeline     BuildStage = "pipeline"
	StageBindGroup    BuildStage = "bind_group"
	StageTimeout      BuildStage = "timeout"
)

// ErrCompileTimeout is returned when a pipeline's error scope does not resolve within the compile timeout.
var ErrCompileTimeout = errors.New("pipeline compile timed out")

// BuildError reports a failed pipeline rebuild. The previously committed pipeline keeps rendering.
type BuildError struct {
	Stage   BuildStage
	Message string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func newBuildError(stage BuildStage, err error) *BuildError {
	return &BuildError{Stage: stage, Message: err.Error(), Err: err}
}
