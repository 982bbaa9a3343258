package scene

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shade/engine/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSceneDefaults(t *testing.T) {
	s := NewScene()
	snap := s.Snapshot()

	assert.Equal(t, shader.DefaultFragmentSource, snap.Shader.Data)
	assert.Equal(t, uint64(0), snap.Shader.Version)
	assert.Equal(t, uint64(0), snap.Uniforms.Version)
	assert.Equal(t, uint64(1), snap.Shape)
	assert.True(t, snap.Uniforms.Data.Empty())
	assert.True(t, s.Active())
}

func TestSetShaderBumpsOnlyOnChange(t *testing.T) {
	s := NewScene()

	s.SetShader("a")
	v := s.Snapshot().Shader.Version
	assert.Equal(t, uint64(1), v)

	s.SetShader("a")
	assert.Equal(t, v, s.Snapshot().Shader.Version)

	s.SetShader("b")
	assert.Equal(t, v+1, s.Snapshot().Shader.Version)
	assert.Equal(t, "b", s.Shader())
}

func TestShaderEditLeavesUniformVersion(t *testing.T) {
	s := NewScene()
	before := s.Snapshot()

	s.SetShader("fn x() {}")
	after := s.Snapshot()

	assert.Equal(t, before.Uniforms.Version, after.Uniforms.Version)
	assert.Equal(t, before.Shape, after.Shape)
}

func TestAddUniformBumpsUniformAndShape(t *testing.T) {
	s := NewScene()
	before := s.Snapshot()

	require.NoError(t, s.AddUniform(uniform.New("speed", uniform.Float(1))))
	after := s.Snapshot()

	assert.Equal(t, before.Uniforms.Version+1, after.Uniforms.Version)
	assert.Equal(t, before.Shape+1, after.Shape)
	assert.Equal(t, before.Shader.Version, after.Shader.Version)
	assert.Equal(t, 1, after.Uniforms.Data.Count)
}

func TestAddUniformRejectsInvalidName(t *testing.T) {
	s := NewScene()
	before := s.Snapshot()

	err := s.AddUniform(uniform.New("bad name", uniform.Float(1)))
	assert.ErrorIs(t, err, uniform.ErrInvalidName)
	assert.Equal(t, before, s.Snapshot())

	assert.Error(t, s.AddUniform(uniform.Uniform{Name: "novalue"}))
}

func TestAddExistingNameIsValueOnly(t *testing.T) {
	s := NewScene()
	require.NoError(t, s.AddUniform(uniform.New("speed", uniform.Float(1))))
	before := s.Snapshot()

	require.NoError(t, s.AddUniform(uniform.New("speed", uniform.Float(2))))
	after := s.Snapshot()

	assert.Equal(t, before.Uniforms.Version+1, after.Uniforms.Version)
	assert.Equal(t, before.Shape, after.Shape)
	assert.Len(t, s.Uniforms(), 1)
}

func TestUpdateUniform(t *testing.T) {
	s := NewScene(WithUniforms(
		uniform.New("a", uniform.Float(1)),
		uniform.New("b", uniform.Vec3{1, 2, 3}),
	))

	t.Run("value only", func(t *testing.T) {
		before := s.Snapshot()
		require.NoError(t, s.UpdateUniform("a", uniform.New("a", uniform.Float(5))))
		after := s.Snapshot()
		assert.Greater(t, after.Uniforms.Version, before.Uniforms.Version)
		assert.Equal(t, before.Shape, after.Shape)
		u, ok := s.Uniform("a")
		require.True(t, ok)
		assert.Equal(t, uniform.Float(5), u.Value)
	})

	t.Run("type change", func(t *testing.T) {
		before := s.Snapshot()
		require.NoError(t, s.UpdateUniform("a", uniform.New("a", uniform.Int(5))))
		assert.Greater(t, s.Snapshot().Shape, before.Shape)
	})

	t.Run("rename", func(t *testing.T) {
		before := s.Snapshot()
		require.NoError(t, s.UpdateUniformAt(0, uniform.New("c", uniform.Int(5))))
		assert.Greater(t, s.Snapshot().Shape, before.Shape)
		_, ok := s.Uniform("a")
		assert.False(t, ok)
	})

	t.Run("rename collision", func(t *testing.T) {
		before := s.Snapshot()
		err := s.UpdateUniform("c", uniform.New("b", uniform.Int(1)))
		assert.ErrorIs(t, err, uniform.ErrDuplicateUniform)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("missing is a no-op", func(t *testing.T) {
		before := s.Snapshot()
		assert.NoError(t, s.UpdateUniform("nope", uniform.New("nope", uniform.Float(1))))
		assert.NoError(t, s.UpdateUniformAt(42, uniform.New("x", uniform.Float(1))))
		assert.Equal(t, before, s.Snapshot())
	})
}

func TestRemoveUniform(t *testing.T) {
	s := NewScene(WithUniforms(
		uniform.New("a", uniform.Float(1)),
		uniform.New("b", uniform.Float(2)),
	))
	before := s.Snapshot()

	s.RemoveUniform("missing")
	s.RemoveUniformAt(-1)
	assert.Equal(t, before, s.Snapshot())

	s.RemoveUniform("a")
	assert.Greater(t, s.Snapshot().Shape, before.Shape)
	assert.Equal(t, []uniform.Uniform{uniform.New("b", uniform.Float(2))}, s.Uniforms())

	s.RemoveUniformAt(0)
	assert.Empty(t, s.Uniforms())
	assert.True(t, s.Snapshot().Uniforms.Data.Empty())
}

func TestClearAlwaysBumps(t *testing.T) {
	s := NewScene()
	before := s.Snapshot()

	s.ClearUniforms()
	after := s.Snapshot()

	assert.Equal(t, before.Uniforms.Version+1, after.Uniforms.Version)
	assert.Equal(t, before.Shape+1, after.Shape)
}

func TestResetUniforms(t *testing.T) {
	s := NewScene()
	list := []uniform.Uniform{
		uniform.New("a", uniform.Float(1)),
		uniform.New("tint", uniform.Color3{1, 0, 0}),
	}

	require.NoError(t, s.ResetUniforms(list))
	assert.Equal(t, list, s.Uniforms())
	assert.Equal(t, uniform.Encode(list), s.Snapshot().Uniforms.Data)

	before := s.Snapshot()
	err := s.ResetUniforms([]uniform.Uniform{uniform.New("a", uniform.Float(1)), uniform.New("a", uniform.Float(2))})
	assert.ErrorIs(t, err, uniform.ErrDuplicateUniform)
	assert.Equal(t, before, s.Snapshot())
}

func TestTimeUniform(t *testing.T) {
	s := NewScene()

	s.Tick(1)
	assert.False(t, s.HasTime())

	s.AddTime()
	require.True(t, s.HasTime())
	shape := s.Snapshot().Shape

	s.AddTime()
	assert.Len(t, s.Uniforms(), 1)

	s.Tick(2.5)
	u, _ := s.Uniform(TimeUniformName)
	assert.Equal(t, uniform.Float(2.5), u.Value)
	assert.Equal(t, shape, s.Snapshot().Shape)

	s.ResetTime()
	u, _ = s.Uniform(TimeUniformName)
	assert.Equal(t, uniform.Float(0), u.Value)

	s.RemoveTime()
	assert.False(t, s.HasTime())
	assert.Greater(t, s.Snapshot().Shape, shape)
}

func TestSnapshotIsImmutable(t *testing.T) {
	s := NewScene(WithUniforms(uniform.New("speed", uniform.Float(1))))
	snap := s.Snapshot()
	bytes := append([]byte(nil), snap.Uniforms.Data.Bytes...)

	require.NoError(t, s.UpdateUniform("speed", uniform.New("speed", uniform.Float(9))))

	assert.Equal(t, bytes, snap.Uniforms.Data.Bytes)
	assert.NotEqual(t, bytes, s.Snapshot().Uniforms.Data.Bytes)
}

func TestVersionsAreMonotonic(t *testing.T) {
	s := NewScene()
	last := s.Snapshot()

	edits := []func(){
		func() { s.SetShader("x") },
		func() { _ = s.AddUniform(uniform.New("a", uniform.Float(1))) },
		func() { _ = s.UpdateUniform("a", uniform.New("a", uniform.Float(2))) },
		func() { s.AddTime() },
		func() { s.Tick(3) },
		func() { s.RemoveUniform("a") },
		func() { s.ClearUniforms() },
		func() { s.SetShader("y") },
	}
	for _, edit := range edits {
		edit()
		next := s.Snapshot()
		assert.GreaterOrEqual(t, next.Shader.Version, last.Shader.Version)
		assert.GreaterOrEqual(t, next.Uniforms.Version, last.Uniforms.Version)
		assert.GreaterOrEqual(t, next.Shape, last.Shape)
		last = next
	}
}

func TestWorkedScenarioVersions(t *testing.T) {
	s := NewScene()

	require.NoError(t, s.AddUniform(uniform.New("speed", uniform.Float(2))))
	assert.Equal(t, uint64(1), s.Snapshot().Uniforms.Version)
	assert.Equal(t, uint64(0), s.Snapshot().Shader.Version)

	s.SetShader("uses speed")
	assert.Equal(t, uint64(1), s.Snapshot().Shader.Version)

	require.NoError(t, s.UpdateUniform("speed", uniform.New("speed", uniform.Float(3))))
	assert.Equal(t, uint64(2), s.Snapshot().Uniforms.Version)
	assert.Equal(t, uint64(1), s.Snapshot().Shader.Version)
}

func TestProjectLoadedAppliesTogether(t *testing.T) {
	s := NewScene(WithUniforms(uniform.New("old", uniform.Float(1))))
	shape := s.Snapshot().Shape

	require.NoError(t, s.Update(ProjectLoaded{
		Source:   "loaded",
		Uniforms: []uniform.Uniform{uniform.New("speed", uniform.Float(2))},
		Time:     true,
	}))

	snap := s.Snapshot()
	assert.Equal(t, "loaded", snap.Shader.Data)
	assert.Equal(t, uint64(1), snap.Shader.Version)
	assert.Equal(t, uint64(1), snap.Uniforms.Version)
	assert.Greater(t, snap.Shape, shape)
	assert.Equal(t, []string{"speed", TimeUniformName}, names(s.Uniforms()))

	// Same source and a list that already carries time: no duplicate, shader version unchanged.
	require.NoError(t, s.Update(ProjectLoaded{
		Source:   "loaded",
		Uniforms: []uniform.Uniform{uniform.New(TimeUniformName, uniform.Float(0))},
		Time:     true,
	}))
	assert.Equal(t, uint64(1), s.Snapshot().Shader.Version)
	assert.Equal(t, []string{TimeUniformName}, names(s.Uniforms()))
}

func TestProjectLoadedRejectsDuplicates(t *testing.T) {
	s := NewScene()
	before := s.Snapshot()

	err := s.Update(ProjectLoaded{
		Source: "loaded",
		Uniforms: []uniform.Uniform{
			uniform.New("a", uniform.Float(1)),
			uniform.New("a", uniform.Float(2)),
		},
	})
	assert.ErrorIs(t, err, uniform.ErrDuplicateUniform)
	assert.Equal(t, before, s.Snapshot())
}

func TestUpdateUniformRacingRemove(t *testing.T) {
	for range 500 {
		s := NewScene(WithUniforms(
			uniform.New("a", uniform.Float(1)),
			uniform.New("b", uniform.Float(1)),
		))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.RemoveUniform("a")
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.UpdateUniform("b", uniform.New("b", uniform.Float(5))))
		}()
		wg.Wait()

		list := s.Uniforms()
		require.Len(t, list, 1)
		assert.Equal(t, "b", list[0].Name)
		assert.Equal(t, uniform.Float(5), list[0].Value)
	}
}

func names(list []uniform.Uniform) []string {
	out := make([]string, 0, len(list))
	for _, u := range list {
		out = append(out, u.Name)
	}
	return out
}

func TestPostAndProcessMessages(t *testing.T) {
	s := NewScene()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Post(ShaderChanged{Source: "posted"})
		s.Post(UniformAdded{Uniform: uniform.New("speed", uniform.Float(1))})
		s.Post(UniformValueChanged{Name: "speed", Uniform: uniform.New("speed", uniform.Float(2))})
		s.Post(TimeAdded{})
		s.Post(TimeTick{Elapsed: 4})
	}()
	wg.Wait()

	assert.Equal(t, 5, s.ProcessMessages())
	assert.Equal(t, 0, s.ProcessMessages())

	assert.Equal(t, "posted", s.Shader())
	speed, ok := s.Uniform("speed")
	require.True(t, ok)
	assert.Equal(t, uniform.Float(2), speed.Value)
	tm, ok := s.Uniform(TimeUniformName)
	require.True(t, ok)
	assert.Equal(t, uniform.Float(4), tm.Value)
}

func TestPostDropsWhenFull(t *testing.T) {
	s := NewScene(WithMessageBuffer(1))

	assert.True(t, s.Post(TimeAdded{}))
	assert.False(t, s.Post(TimeReset{}))
	assert.Equal(t, 1, s.ProcessMessages())
}

func TestUpdateMessages(t *testing.T) {
	s := NewScene()

	require.NoError(t, s.Update(UniformsReset{Uniforms: []uniform.Uniform{uniform.New("a", uniform.Int(1))}}))
	require.NoError(t, s.Update(UniformRemoved{Name: "a"}))
	require.NoError(t, s.Update(TimeAdded{}))
	require.NoError(t, s.Update(TimeRemoved{}))
	require.NoError(t, s.Update(UniformsCleared{}))
	require.NoError(t, s.Update(TimeReset{}))
	require.NoError(t, s.Update(nil))
	assert.Empty(t, s.Uniforms())

	err := s.Update(UniformAdded{Uniform: uniform.New("9lives", uniform.Float(1))})
	assert.ErrorIs(t, err, uniform.ErrInvalidName)
}
