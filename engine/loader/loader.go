package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.Mutex

	scene   scene.Scene
	watcher *shaderWatcher

	// shaderPath is the file the current shader came from, empty for inline source.
	shaderPath string

	hotReload     bool
	workers       int
	debounce      time.Duration
	rejectInvalid bool
	onError       func(path string, err error)
}

// Loader moves preview state between disk and a Scene. It opens standalone .wgsl files and .toml
// projects, saves the scene back as a project, and optionally hot-reloads the shader file.
type Loader interface {
	// Open loads path into the scene. A .toml file is read as a Project; anything else is read as
	// WGSL fragment source. With hot reload enabled the shader file is watched afterwards.
	//
	// Parameters:
	//   - path: the project or shader file
	//
	// Returns:
	//   - error: a read, decode or validation error; the scene is unchanged in that case
	Open(path string) error

	// Save writes the scene's shader reference and uniforms to a project file.
	//
	// Parameters:
	//   - path: the destination .toml file
	//
	// Returns:
	//   - error: an encode or write error
	Save(path string) error

	// ShaderPath returns the file the current shader was opened from, or "" for inline source.
	ShaderPath() string

	// Close stops hot reloading. Safe to call when hot reload is disabled.
	Close() error
}

var _ Loader = &loader{}

// NewLoader creates a Loader feeding s.
//
// Parameters:
//   - s: the scene to load into
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the configured loader
//   - error: an error if the file watcher could not be created
func NewLoader(s scene.Scene, options ...LoaderBuilderOption) (Loader, error) {
	l := &loader{
		mu:            &sync.Mutex{},
		scene:         s,
		workers:       2,
		debounce:      50 * time.Millisecond,
		rejectInvalid: true,
	}
	for _, option := range options {
		option(l)
	}

	if l.hotReload {
		w, err := newShaderWatcher(s, l.workers, l.debounce, l.rejectInvalid, l.onError)
		if err != nil {
			return nil, err
		}
		l.watcher = w
	}
	return l, nil
}

func (l *loader) Open(path string) error {
	var (
		shaderPath string
		err        error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		shaderPath, err = l.openProject(path)
	} else {
		shaderPath, err = path, l.openShader(path)
	}
	if err != nil {
		return err
	}
	if shaderPath != "" {
		if abs, absErr := filepath.Abs(shaderPath); absErr == nil {
			shaderPath = abs
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil && l.shaderPath != "" && l.shaderPath != shaderPath {
		if err := l.watcher.Unwatch(l.shaderPath); err != nil {
			return err
		}
	}
	l.shaderPath = shaderPath
	if l.watcher != nil && shaderPath != "" {
		return l.watcher.Watch(shaderPath)
	}
	return nil
}

func (l *loader) openProject(path string) (string, error) {
	p, err := LoadProject(path)
	if err != nil {
		return "", err
	}
	if err := p.Apply(l.scene, path); err != nil {
		return "", fmt.Errorf("apply project %s: %w", path, err)
	}
	return p.ShaderPath(path), nil
}

func (l *loader) openShader(path string) error {
	src, err := shader.ReadSource(path)
	if err != nil {
		return err
	}
	return l.scene.Update(scene.ShaderChanged{Source: src})
}

func (l *loader) Save(path string) error {
	l.mu.Lock()
	shaderPath := l.shaderPath
	l.mu.Unlock()

	if shaderPath != "" {
		if dir, err := filepath.Abs(filepath.Dir(path)); err == nil {
			if rel, err := filepath.Rel(dir, shaderPath); err == nil {
				shaderPath = rel
			}
		}
	}
	return SaveProject(path, CaptureProject(l.scene, shaderPath))
}

func (l *loader) ShaderPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shaderPath
}

func (l *loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	return l.watcher.Close()
}
