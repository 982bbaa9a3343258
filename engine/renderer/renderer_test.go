package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/engine/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWithoutPipelineIssuesNoCommands(t *testing.T) {
	b := newFakeBackend()
	r := newRendererWithBackend(b)

	frame, err := r.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, r.Render(frame.Encoder, frame.View, previewBounds))

	require.Len(t, b.passes, 1)
	assert.Empty(t, b.passes[0].calls)
	assert.True(t, b.passes[0].ended)
}

func TestRenderDrawsFullScreenTriangle(t *testing.T) {
	b := newFakeBackend()
	r := newRendererWithBackend(b)
	s := scene.NewScene()

	r.Prepare(s.Snapshot(), previewBounds)
	require.NoError(t, r.Render("encoder", "view", previewBounds))

	pass := b.passes[0]
	assert.Equal(t, []string{"SetPipeline", "SetViewport", "SetBindGroup(0)", "Draw(3,1,0,0)"}, pass.calls)
	assert.Equal(t, [6]float32{10, 20, 800, 600, 0, 1}, pass.viewport)
	assert.Same(t, r.Cache().Pipeline(), pass.pipeline)
	assert.True(t, pass.ended)
}

func TestRenderBindsCustomGroup(t *testing.T) {
	b := newFakeBackend()
	r := newRendererWithBackend(b)
	s := scene.NewScene(scene.WithUniforms(uniform.New("speed", uniform.Float(2))))

	r.Prepare(s.Snapshot(), previewBounds)
	require.NoError(t, r.Render("encoder", "view", previewBounds))

	pass := b.passes[0]
	assert.Equal(t, []string{"SetPipeline", "SetViewport", "SetBindGroup(0)", "SetBindGroup(1)", "Draw(3,1,0,0)"}, pass.calls)
	assert.Same(t, r.Cache().Customs().BindGroup(), pass.groups[1])
	assert.Same(t, r.Cache().Builtins().BindGroup(), pass.groups[0])
}

func TestRenderEmptyClipSkipsDraw(t *testing.T) {
	b := newFakeBackend()
	r := newRendererWithBackend(b)
	r.Prepare(scene.NewScene().Snapshot(), previewBounds)

	require.NoError(t, r.Render("encoder", "view", common.Rect{Width: 0, Height: 100}))
	assert.Empty(t, b.passes[0].calls)
	assert.True(t, b.passes[0].ended)
}

func TestRenderClampsClipToSurface(t *testing.T) {
	b := newFakeBackend()
	r := newRendererWithBackend(b)
	r.Resize(640, 480)
	r.Prepare(scene.NewScene().Snapshot(), previewBounds)

	frame, err := r.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, r.Render(frame.Encoder, frame.View, common.Rect{X: 600, Y: -10, Width: 200, Height: 800}))
	assert.Equal(t, [6]float32{600, 0, 40, 480, 0, 1}, b.passes[0].viewport)

	// A stale clip entirely outside the shrunken surface draws nothing.
	r.Resize(320, 240)
	require.NoError(t, r.Render("encoder", "view", common.Rect{X: 400, Y: 0, Width: 200, Height: 200}))
	assert.Empty(t, b.passes[1].calls)
	assert.True(t, b.passes[1].ended)
}

func TestRenderPassError(t *testing.T) {
	b := newFakeBackend()
	r := newRendererWithBackend(b)
	assert.Error(t, r.Render(nil, nil, previewBounds))
	assert.Empty(t, b.passes)
}

func TestRendererOptionsReachBackend(t *testing.T) {
	b := newFakeBackend()
	r := newRendererWithBackend(b, WithPresentMode(PresentModeUncapped))
	assert.Equal(t, PresentModeUncapped, b.present)

	r.Resize(640, 480)
	assert.Equal(t, [2]int{640, 480}, b.configured)

	r.EndFrame()
	r.Present()
	r.Release()
	assert.Equal(t, 1, b.ended)
	assert.Equal(t, 1, b.presented)
	assert.Equal(t, 1, b.releases)
}
