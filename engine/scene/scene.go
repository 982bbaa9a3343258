package scene

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shade/engine/uniform"
)

// TimeUniformName is the name of the uniform maintained by AddTime, Tick and ResetTime.
const TimeUniformName = "time"

// Snapshot is an immutable view of the scene taken once per frame by the render loop.
// None of its slices are ever written after the snapshot is taken.
type Snapshot struct {
	// Shader is the user fragment source and its version.
	Shader common.Versioned[string]
	// Uniforms is the encoded uniform set. Its version bumps on every uniform edit.
	Uniforms common.Versioned[uniform.RenderData]
	// Shape bumps only when the uniform struct declaration changes (names, types, count or order).
	// A Uniforms version bump without a Shape bump is a value-only change.
	Shape uint64
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	shader      common.Versioned[string]
	uniforms    []uniform.Uniform
	uniformData common.Versioned[uniform.RenderData]
	shape       uint64

	messages      chan Message
	messageBuffer int
}

// Scene owns the authoritative editor state for one preview: the fragment shader source and the
// ordered list of custom uniforms, each independently versioned. Every mutation re-encodes the
// uniform set eagerly so Snapshot is a constant-time copy. Each method call and each message applies
// under a single write lock, so a Snapshot never observes half of an edit. Edits that span the shader
// and the uniforms together go through one message such as ProjectLoaded. Producers off the render
// goroutine usually hand work over with Post so it lands between frames.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is currently rendered.
	Active() bool

	// SetActive sets whether this scene is rendered.
	SetActive(active bool)

	// Snapshot returns the current versioned shader and uniform data. Never blocks on the GPU.
	//
	// Returns:
	//   - Snapshot: the immutable per-frame view
	Snapshot() Snapshot

	// Shader returns the current fragment shader source.
	Shader() string

	// Uniforms returns a copy of the current uniform list in declaration order.
	Uniforms() []uniform.Uniform

	// Uniform looks up a uniform by name.
	//
	// Returns:
	//   - uniform.Uniform: the uniform, zero if absent
	//   - bool: true if present
	Uniform(name string) (uniform.Uniform, bool)

	// SetShader replaces the fragment source. Identical text is ignored and does not bump the version.
	SetShader(source string)

	// AddUniform appends a uniform, or replaces the value of an existing uniform with the same name.
	//
	// Returns:
	//   - error: wraps uniform.ErrInvalidName when the name cannot be used in WGSL
	AddUniform(u uniform.Uniform) error

	// UpdateUniform replaces the uniform called name with u. Missing names are ignored.
	// Keeping the name and type makes this a value-only change.
	//
	// Returns:
	//   - error: on an invalid new name or a rename onto another existing uniform
	UpdateUniform(name string, u uniform.Uniform) error

	// UpdateUniformAt replaces the uniform at index. Out of range indices are ignored.
	UpdateUniformAt(index int, u uniform.Uniform) error

	// RemoveUniform deletes the uniform called name if present.
	RemoveUniform(name string)

	// RemoveUniformAt deletes the uniform at index if in range.
	RemoveUniformAt(index int)

	// ClearUniforms removes every uniform. Always bumps both the uniform and shape versions.
	ClearUniforms()

	// ResetUniforms replaces the whole uniform list. Project loads use ProjectLoaded so the shader changes with it.
	//
	// Returns:
	//   - error: on an invalid name or duplicate names; the scene is unchanged in that case
	ResetUniforms(list []uniform.Uniform) error

	// AddTime adds the "time" float uniform at zero if it is not present.
	AddTime()

	// RemoveTime removes the "time" uniform.
	RemoveTime()

	// HasTime reports whether the "time" uniform is present.
	HasTime() bool

	// Tick sets the "time" uniform to the elapsed seconds. A no-op when time is not enabled.
	Tick(elapsed float32)

	// ResetTime sets the "time" uniform back to zero.
	ResetTime()

	// Update applies one message synchronously.
	Update(msg Message) error

	// Post enqueues a message from any goroutine for the next ProcessMessages call.
	//
	// Returns:
	//   - bool: false when the queue is full and the message was dropped
	Post(msg Message) bool

	// ProcessMessages applies every queued message in arrival order without blocking.
	//
	// Returns:
	//   - int: the number of messages applied
	ProcessMessages() int
}

var _ Scene = &scene{}

// NewScene creates a Scene with the default fragment shader and no uniforms.
// Both versions start at 0 and the first edit of each makes it 1.
//
// Parameters:
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the configured scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:            &sync.RWMutex{},
		name:          "preview",
		active:        true,
		shader:        common.NewVersioned(shader.DefaultFragmentSource),
		uniformData:   common.NewVersioned(uniform.RenderData{}),
		shape:         1,
		messageBuffer: 256,
	}
	for _, opt := range options {
		opt(s)
	}
	s.messages = make(chan Message, s.messageBuffer)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Shader:   s.shader,
		Uniforms: s.uniformData,
		Shape:    s.shape,
	}
}

func (s *scene) Shader() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shader.Data
}

func (s *scene) Uniforms() []uniform.Uniform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.uniforms)
}

func (s *scene) Uniform(name string) (uniform.Uniform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(name); i >= 0 {
		return s.uniforms[i], true
	}
	return uniform.Uniform{}, false
}

func (s *scene) SetShader(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if source == s.shader.Data {
		return
	}
	s.shader.Bump(source)
}

func (s *scene) AddUniform(u uniform.Uniform) error {
	if err := validate(u); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.uniforms)
	if i := s.indexOf(u.Name); i >= 0 {
		next[i] = u
	} else {
		next = append(next, u)
	}
	s.commit(next)
	return nil
}

func (s *scene) UpdateUniform(name string, u uniform.Uniform) error {
	if err := validate(u); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(name); i >= 0 {
		return s.replaceAt(i, u)
	}
	return nil
}

func (s *scene) UpdateUniformAt(index int, u uniform.Uniform) error {
	if err := validate(u); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.uniforms) {
		return nil
	}
	return s.replaceAt(index, u)
}

// replaceAt swaps the uniform at index for u, refusing a rename onto another uniform. Caller holds
// the write lock and has range-checked index.
func (s *scene) replaceAt(index int, u uniform.Uniform) error {
	if other := s.indexOf(u.Name); other >= 0 && other != index {
		return fmt.Errorf("rename %q: %w: %q", s.uniforms[index].Name, uniform.ErrDuplicateUniform, u.Name)
	}

	next := slices.Clone(s.uniforms)
	next[index] = u
	s.commit(next)
	return nil
}

func (s *scene) RemoveUniform(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(name); i >= 0 {
		s.removeAt(i)
	}
}

func (s *scene) RemoveUniformAt(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= 0 && index < len(s.uniforms) {
		s.removeAt(index)
	}
}

func (s *scene) ClearUniforms() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uniforms = nil
	s.uniformData.Bump(uniform.RenderData{})
	s.shape++
}

func (s *scene) ResetUniforms(list []uniform.Uniform) error {
	for _, u := range list {
		if err := validate(u); err != nil {
			return err
		}
	}
	if _, err := uniform.EncodeStrict(list); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(slices.Clone(list))
	return nil
}

// load installs a shader and uniform list together. Nothing changes when the list is invalid.
func (s *scene) load(source string, list []uniform.Uniform, withTime bool) error {
	next := slices.Clone(list)
	if withTime && !slices.ContainsFunc(next, func(u uniform.Uniform) bool { return u.Name == TimeUniformName }) {
		next = append(next, uniform.New(TimeUniformName, uniform.Float(0)))
	}
	for _, u := range next {
		if err := validate(u); err != nil {
			return err
		}
	}
	if _, err := uniform.EncodeStrict(next); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(next)
	if source != s.shader.Data {
		s.shader.Bump(source)
	}
	return nil
}

func (s *scene) AddTime() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(TimeUniformName) >= 0 {
		return
	}
	s.commit(append(slices.Clone(s.uniforms), uniform.New(TimeUniformName, uniform.Float(0))))
}

func (s *scene) RemoveTime() {
	s.RemoveUniform(TimeUniformName)
}

func (s *scene) HasTime() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(TimeUniformName) >= 0
}

func (s *scene) Tick(elapsed float32) {
	s.setTime(elapsed)
}

func (s *scene) ResetTime() {
	s.setTime(0)
}

// setTime writes the time uniform as a value-only change when it exists as a float.
func (s *scene) setTime(seconds float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(TimeUniformName)
	if i < 0 {
		return
	}
	if _, ok := s.uniforms[i].Value.(uniform.Float); !ok {
		return
	}
	next := slices.Clone(s.uniforms)
	next[i] = uniform.New(TimeUniformName, uniform.Float(seconds))
	s.commit(next)
}

// removeAt drops the uniform at i. Caller holds the write lock.
func (s *scene) removeAt(i int) {
	s.commit(slices.Delete(slices.Clone(s.uniforms), i, i+1))
}

// commit installs a new uniform list, re-encodes it and bumps the versions.
// The shape version moves only when the struct declaration differs from the current one.
// Caller holds the write lock and owns next.
func (s *scene) commit(next []uniform.Uniform) {
	shapeChanged := !sameShape(s.uniforms, next)
	s.uniforms = next
	s.uniformData.Bump(uniform.Encode(next))
	if shapeChanged {
		s.shape++
	}
}

// indexOf returns the position of name, or -1. Caller holds a lock.
func (s *scene) indexOf(name string) int {
	return slices.IndexFunc(s.uniforms, func(u uniform.Uniform) bool {
		return u.Name == name
	})
}

func sameShape(a, b []uniform.Uniform) bool {
	return slices.EqualFunc(a, b, uniform.Uniform.SameShape)
}

func validate(u uniform.Uniform) error {
	if err := uniform.ValidateName(u.Name); err != nil {
		return err
	}
	if u.Value == nil {
		return fmt.Errorf("uniform %q has no value", u.Name)
	}
	return nil
}
