package loader

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/engine/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redFragment = "@fragment\nfn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {\n    return vec4<f32>(1.0, 0.0, 0.0, 1.0);\n}\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOpenShaderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frag.wgsl")
	writeFile(t, path, redFragment)

	s := scene.NewScene()
	l, err := NewLoader(s)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Open(path))
	assert.Equal(t, redFragment, s.Shader())

	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, l.ShaderPath())
}

func TestOpenMissingFileLeavesScene(t *testing.T) {
	s := scene.NewScene()
	l, err := NewLoader(s)
	require.NoError(t, err)

	assert.Error(t, l.Open(filepath.Join(t.TempDir(), "missing.wgsl")))
	assert.Equal(t, shader.DefaultFragmentSource, s.Shader())
	assert.Empty(t, l.ShaderPath())
}

func TestSaveThenOpenProject(t *testing.T) {
	dir := t.TempDir()
	shaderPath := filepath.Join(dir, "frag.wgsl")
	writeFile(t, shaderPath, redFragment)

	s := scene.NewScene()
	l, err := NewLoader(s)
	require.NoError(t, err)
	require.NoError(t, l.Open(shaderPath))
	require.NoError(t, s.AddUniform(uniform.New("speed", uniform.Float(2))))

	projectPath := filepath.Join(dir, "preview.toml")
	require.NoError(t, l.Save(projectPath))

	p, err := LoadProject(projectPath)
	require.NoError(t, err)
	assert.Equal(t, "frag.wgsl", p.Shader)
	assert.Empty(t, p.Source)

	other := scene.NewScene()
	l2, err := NewLoader(other)
	require.NoError(t, err)
	require.NoError(t, l2.Open(projectPath))
	assert.Equal(t, redFragment, other.Shader())
	assert.Equal(t, s.Snapshot().Uniforms.Data.Bytes, other.Snapshot().Uniforms.Data.Bytes)
}

func TestHotReloadPostsShaderChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frag.wgsl")
	writeFile(t, path, shader.DefaultFragmentSource)

	s := scene.NewScene()
	l, err := NewLoader(s,
		WithHotReload(true),
		WithDebounce(10*time.Millisecond),
		WithRejectInvalid(false),
	)
	require.NoError(t, err)
	defer l.Close()
	require.NoError(t, l.Open(path))

	before := s.Snapshot().Shader.Version
	writeFile(t, path, redFragment)

	assert.Eventually(t, func() bool {
		s.ProcessMessages()
		return s.Shader() == redFragment
	}, 5*time.Second, 10*time.Millisecond)
	assert.Greater(t, s.Snapshot().Shader.Version, before)
}

func TestHotReloadRejectsInvalidShader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frag.wgsl")
	writeFile(t, path, shader.DefaultFragmentSource)

	var (
		mu     sync.Mutex
		failed []string
	)
	s := scene.NewScene()
	l, err := NewLoader(s,
		WithHotReload(true),
		WithDebounce(10*time.Millisecond),
		WithErrorHandler(func(p string, err error) {
			mu.Lock()
			failed = append(failed, p)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)
	defer l.Close()
	require.NoError(t, l.Open(path))
	opened := s.Shader()

	writeFile(t, path, "@fragment fn fs_main( -> {")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) > 0
	}, 5*time.Second, 10*time.Millisecond)
	s.ProcessMessages()
	assert.Equal(t, opened, s.Shader())
}

func TestCloseWithoutHotReload(t *testing.T) {
	l, err := NewLoader(scene.NewScene())
	require.NoError(t, err)
	assert.NoError(t, l.Close())
}
