package scene

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/uniform"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier, used in log output.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithShader sets the initial fragment shader source in place of the built-in default.
//
// Parameters:
//   - source: the WGSL fragment source
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShader(source string) SceneBuilderOption {
	return func(s *scene) {
		s.shader.Data = source
	}
}

// WithUniforms sets the initial uniform list. Entries with invalid names are skipped and
// duplicate names collapse to the last value, matching uniform.Encode.
//
// Parameters:
//   - list: the uniforms in declaration order
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithUniforms(list ...uniform.Uniform) SceneBuilderOption {
	return func(s *scene) {
		for _, u := range list {
			if validate(u) != nil {
				continue
			}
			if i := s.indexOf(u.Name); i >= 0 {
				s.uniforms[i] = u
				continue
			}
			s.uniforms = append(s.uniforms, u)
		}
		s.uniformData.Data = uniform.Encode(s.uniforms)
	}
}

// WithTime starts the scene with the "time" uniform present.
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTime() SceneBuilderOption {
	return func(s *scene) {
		if s.indexOf(TimeUniformName) < 0 {
			s.uniforms = append(s.uniforms, uniform.New(TimeUniformName, uniform.Float(0)))
			s.uniformData.Data = uniform.Encode(s.uniforms)
		}
	}
}

// WithMessageBuffer sets the capacity of the cross-goroutine message queue. Defaults to 256.
//
// Parameters:
//   - n: queue capacity (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMessageBuffer(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.messageBuffer = n
	}
}
