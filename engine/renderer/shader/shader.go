package shader

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
)

// ShaderType identifies which pipeline stage a shader module feeds.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex stage, always the built-in full-screen triangle.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment stage assembled from user source.
	ShaderTypeFragment
)

// VertexEntryPoint is the entry point of the built-in vertex shader.
const VertexEntryPoint = "vs_main"

var (
	// PreludeSource declares the built-in uniforms and the vertex output struct. It is prepended to every module.
	//go:embed wgsl/prelude.wgsl
	PreludeSource string

	// VertexSource is the body of the built-in vertex shader.
	//go:embed wgsl/vertex.wgsl
	VertexSource string

	// DefaultFragmentSource is the fragment shader a new scene starts with.
	//go:embed wgsl/default_fragment.wgsl
	DefaultFragmentSource string
)

var (
	// ErrNoEntryPoint is returned when a source has no entry point for the requested stage.
	ErrNoEntryPoint = errors.New("no entry point found")
	// ErrReservedBinding is returned when user source declares a resource in a group the engine owns.
	ErrReservedBinding = errors.New("binding group is reserved")
)

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint string
}

// Shader is a complete WGSL module ready to be handed to the GPU backend.
type Shader interface {
	// Key retrieves the identifier of this shader, used as the GPU object label.
	//
	// Returns:
	//   - string: the shader's key
	Key() string

	// Source retrieves the full WGSL module source.
	//
	// Returns:
	//   - string: the WGSL source code of the module
	Source() string

	// EntryPoint retrieves the entry point function name for the shader's stage.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// ShaderType retrieves the stage this module feeds.
	//
	// Returns:
	//   - ShaderType: vertex or fragment
	ShaderType() ShaderType
}

var _ Shader = &shader{}

// NewShader wraps a full WGSL module and locates its entry point for the given stage.
//
// Parameters:
//   - key: the label of the shader
//   - shaderType: the stage the module feeds
//   - source: the complete WGSL module source
//
// Returns:
//   - Shader: the parsed shader
//   - error: ErrNoEntryPoint when the stage has no annotated function
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	entry := parseEntryPoint(source, shaderType)
	if entry == "" {
		return nil, fmt.Errorf("shader %s: %w", key, ErrNoEntryPoint)
	}
	return &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
		entryPoint: entry,
	}, nil
}

// ReadSource loads WGSL source text from disk.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - string: the file contents
//   - error: the read error wrapped with the path
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read shader %s: %w", path, err)
	}
	return string(data), nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}
