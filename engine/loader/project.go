package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/engine/uniform"
	"github.com/pelletier/go-toml/v2"
)

// ErrNoShader is returned by Apply when a project names neither a shader file nor inline source.
var ErrNoShader = errors.New("project has no shader")

// Project is the on-disk form of a preview: the fragment shader and the ordered uniform set.
//
//	shader = "shader.wgsl"
//	time = true
//
//	[[uniforms]]
//	name = "speed"
//	type = "float"
//	value = [2.0]
type Project struct {
	// Shader is the fragment source path, relative to the project file unless absolute.
	Shader string `toml:"shader,omitempty"`
	// Source is inline fragment source, used when Shader is empty.
	Source string `toml:"source,multiline,omitempty"`
	// Time adds the "time" uniform on load if the list does not already hold it.
	Time bool `toml:"time"`
	// Uniforms is the uniform list in declaration order.
	Uniforms []UniformRecord `toml:"uniforms"`
}

// UniformRecord is one persisted uniform. Value holds the components in order; vector integer
// types are stored as whole floats.
type UniformRecord struct {
	Name  string    `toml:"name"`
	Type  string    `toml:"type"`
	Value []float64 `toml:"value"`
}

// LoadProject reads and decodes a project file. Unknown keys are rejected.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - *Project: the decoded project
//   - error: a read or decode error wrapped with the path
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project %s: %w", path, err)
	}
	p, err := DecodeProject(data)
	if err != nil {
		return nil, fmt.Errorf("decode project %s: %w", path, err)
	}
	return p, nil
}

// DecodeProject decodes TOML project text.
func DecodeProject(data []byte) (*Project, error) {
	p := &Project{}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveProject encodes p as TOML and writes it to path.
//
// Parameters:
//   - path: the destination file
//   - p: the project to write
//
// Returns:
//   - error: an encode or write error wrapped with the path
func SaveProject(path string, p *Project) error {
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write project %s: %w", path, err)
	}
	return nil
}

// CaptureProject builds a Project from the scene's current uniforms. The shader is stored as a path
// when shaderPath is set, inline otherwise.
//
// Parameters:
//   - s: the scene to capture
//   - shaderPath: the shader file the scene was loaded from, may be empty
//
// Returns:
//   - *Project: the captured project
func CaptureProject(s scene.Scene, shaderPath string) *Project {
	p := &Project{Time: s.HasTime()}
	if shaderPath != "" {
		p.Shader = shaderPath
	} else {
		p.Source = s.Shader()
	}
	for _, u := range s.Uniforms() {
		p.Uniforms = append(p.Uniforms, UniformRecord{
			Name:  u.Name,
			Type:  u.Value.Tag(),
			Value: u.Value.Components(),
		})
	}
	return p
}

// UniformList converts the records to uniforms, rejecting unknown types and bad component counts.
//
// Returns:
//   - []uniform.Uniform: the uniforms in declaration order
//   - error: the first conversion error, naming the offending record
func (p *Project) UniformList() ([]uniform.Uniform, error) {
	list := make([]uniform.Uniform, 0, len(p.Uniforms))
	for i, rec := range p.Uniforms {
		v, err := uniform.ParseValue(rec.Type, rec.Value)
		if err != nil {
			return nil, fmt.Errorf("uniform %d (%q): %w", i, rec.Name, err)
		}
		list = append(list, uniform.New(rec.Name, v))
	}
	return list, nil
}

// ShaderPath resolves the project's shader path against the directory of the project file.
// Returns an empty string for inline projects.
func (p *Project) ShaderPath(projectPath string) string {
	if p.Shader == "" {
		return ""
	}
	if filepath.IsAbs(p.Shader) {
		return p.Shader
	}
	return filepath.Join(filepath.Dir(projectPath), p.Shader)
}

// ResolveSource returns the fragment source: the inline text, or the contents of the shader file.
func (p *Project) ResolveSource(projectPath string) (string, error) {
	if path := p.ShaderPath(projectPath); path != "" {
		return shader.ReadSource(path)
	}
	if p.Source != "" {
		return p.Source, nil
	}
	return "", ErrNoShader
}

// Apply loads the project into the scene as a single ProjectLoaded message, so the shader and the
// uniform list change together. Nothing is applied when the project is invalid.
//
// Parameters:
//   - s: the scene to update
//   - projectPath: the project file path, used to resolve a relative shader path
//
// Returns:
//   - error: a conversion, validation or read error
func (p *Project) Apply(s scene.Scene, projectPath string) error {
	list, err := p.UniformList()
	if err != nil {
		return err
	}
	src, err := p.ResolveSource(projectPath)
	if err != nil {
		return err
	}

	return s.Update(scene.ProjectLoaded{Source: src, Uniforms: list, Time: p.Time})
}
