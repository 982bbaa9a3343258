package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/uniform"
)

// Message is an inbound edit to the scene. Producers on other goroutines (file watchers, the tick
// loop, an editor front end) send messages through Scene.Post; the render goroutine applies them.
type Message interface {
	apply(s *scene) error
}

// ShaderChanged replaces the fragment shader source.
type ShaderChanged struct {
	Source string
}

// UniformAdded appends a uniform or replaces the existing one with the same name.
type UniformAdded struct {
	Uniform uniform.Uniform
}

// UniformValueChanged replaces the uniform called Name. Renames and type changes are allowed.
type UniformValueChanged struct {
	Name    string
	Uniform uniform.Uniform
}

// UniformRemoved deletes the uniform called Name.
type UniformRemoved struct {
	Name string
}

// UniformsCleared removes every uniform.
type UniformsCleared struct{}

// UniformsReset replaces the whole uniform list.
type UniformsReset struct {
	Uniforms []uniform.Uniform
}

// ProjectLoaded replaces the shader and the whole uniform list in one step, adding the "time"
// uniform when Time is set. A snapshot sees either the previous state or all of the new one.
type ProjectLoaded struct {
	Source   string
	Uniforms []uniform.Uniform
	Time     bool
}

// TimeAdded enables the "time" uniform.
type TimeAdded struct{}

// TimeRemoved disables the "time" uniform.
type TimeRemoved struct{}

// TimeTick sets the "time" uniform to Elapsed seconds.
type TimeTick struct {
	Elapsed float32
}

// TimeReset sets the "time" uniform back to zero.
type TimeReset struct{}

func (m ShaderChanged) apply(s *scene) error       { s.SetShader(m.Source); return nil }
func (m UniformAdded) apply(s *scene) error        { return s.AddUniform(m.Uniform) }
func (m UniformValueChanged) apply(s *scene) error { return s.UpdateUniform(m.Name, m.Uniform) }
func (m UniformRemoved) apply(s *scene) error      { s.RemoveUniform(m.Name); return nil }
func (UniformsCleared) apply(s *scene) error       { s.ClearUniforms(); return nil }
func (m UniformsReset) apply(s *scene) error       { return s.ResetUniforms(m.Uniforms) }
func (m ProjectLoaded) apply(s *scene) error       { return s.load(m.Source, m.Uniforms, m.Time) }
func (TimeAdded) apply(s *scene) error             { s.AddTime(); return nil }
func (TimeRemoved) apply(s *scene) error           { s.RemoveTime(); return nil }
func (m TimeTick) apply(s *scene) error            { s.Tick(m.Elapsed); return nil }
func (TimeReset) apply(s *scene) error             { s.ResetTime(); return nil }

func (s *scene) Update(msg Message) error {
	if msg == nil {
		return nil
	}
	if err := msg.apply(s); err != nil {
		return fmt.Errorf("apply %T: %w", msg, err)
	}
	return nil
}

func (s *scene) Post(msg Message) bool {
	select {
	case s.messages <- msg:
		return true
	default:
		common.Logger().Warn("scene message queue full, dropping message", "scene", s.name, "message", fmt.Sprintf("%T", msg))
		return false
	}
}

func (s *scene) ProcessMessages() int {
	applied := 0
	for {
		select {
		case msg := <-s.messages:
			if err := s.Update(msg); err != nil {
				common.Logger().Warn("scene message rejected", "scene", s.name, "error", err)
			}
			applied++
		default:
			return applied
		}
	}
}
