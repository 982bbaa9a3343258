package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// fakeObject stands in for any GPU handle and counts releases.
type fakeObject struct {
	kind     string
	released int
}

func (o *fakeObject) Release() { o.released++ }

// fakeBackend records every call the cache and renderer make and can be told to fail.
type fakeBackend struct {
	format wgpu.TextureFormat

	failModule    error
	failPipeline  error
	failBindGroup error
	scopeErr      error
	hangScope     bool

	scopes    [][]error
	modules   []*fakeObject
	providers []bind_group_provider.BindGroupProvider
	pipelines []*fakeObject
	groups    [][]bind_group_provider.BindGroupProvider
	writes    []bind_group_provider.BufferWrite
	fragments []string
	passes    []*fakePass

	configured [2]int
	present    PresentMode
	frames     int
	ended      int
	presented  int
	releases   int
}

var _ RendererBackend = &fakeBackend{}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{format: wgpu.TextureFormatBGRA8Unorm}
}

func (b *fakeBackend) capture(err error) error {
	if err != nil && len(b.scopes) > 0 {
		b.scopes[len(b.scopes)-1] = append(b.scopes[len(b.scopes)-1], err)
	}
	return err
}

func (b *fakeBackend) ConfigureSurface(width, height int) { b.configured = [2]int{width, height} }
func (b *fakeBackend) SetPresentMode(mode PresentMode)    { b.present = mode }
func (b *fakeBackend) TargetFormat() wgpu.TextureFormat   { return b.format }

func (b *fakeBackend) PushErrorScope() { b.scopes = append(b.scopes, nil) }

func (b *fakeBackend) PopErrorScope() <-chan error {
	n := len(b.scopes)
	errs := b.scopes[n-1]
	b.scopes = b.scopes[:n-1]
	if b.hangScope {
		return make(chan error)
	}
	result := make(chan error, 1)
	result <- errors.Join(errs...)
	return result
}

func (b *fakeBackend) InitUniformBindGroup(provider bind_group_provider.BindGroupProvider) error {
	b.providers = append(b.providers, provider)
	if b.failBindGroup != nil {
		return b.capture(b.failBindGroup)
	}
	provider.SetBuffer(&fakeObject{kind: "buffer"})
	provider.SetBindGroupLayout(&fakeObject{kind: "layout"})
	provider.SetBindGroup(&fakeObject{kind: "bind group"})
	return nil
}

func (b *fakeBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		w.Data = append([]byte(nil), w.Data...)
		b.writes = append(b.writes, w)
	}
}

func (b *fakeBackend) CreateShaderModule(s shader.Shader) (common.Releasable, error) {
	if s.ShaderType() == shader.ShaderTypeFragment {
		b.fragments = append(b.fragments, s.Source())
		if b.failModule != nil {
			return nil, b.capture(b.failModule)
		}
	}
	m := &fakeObject{kind: "module " + s.Key()}
	b.modules = append(b.modules, m)
	return m, nil
}

func (b *fakeBackend) RegisterRenderPipeline(p pipeline.Pipeline, vertexModule, fragmentModule common.Releasable, groups []bind_group_provider.BindGroupProvider) error {
	if b.failPipeline != nil {
		return b.capture(fmt.Errorf("create render pipeline: %w", b.failPipeline))
	}
	rp := &fakeObject{kind: "pipeline"}
	b.pipelines = append(b.pipelines, rp)
	b.groups = append(b.groups, groups)
	p.SetGPUObjects(rp, &fakeObject{kind: "pipeline layout"}, fragmentModule)
	b.capture(b.scopeErr)
	return nil
}

func (b *fakeBackend) BeginFrame() (Frame, error) {
	b.frames++
	return Frame{Encoder: "encoder", View: "view", Width: b.configured[0], Height: b.configured[1]}, nil
}

func (b *fakeBackend) BeginLoadPass(encoder, view any) (RenderPass, error) {
	if encoder == nil || view == nil {
		return nil, errors.New("no frame")
	}
	pass := &fakePass{}
	b.passes = append(b.passes, pass)
	return pass, nil
}

func (b *fakeBackend) EndFrame() { b.ended++ }
func (b *fakeBackend) Present()  { b.presented++ }
func (b *fakeBackend) Release()  { b.releases++ }

// lastWrite returns the most recent write to provider.
func (b *fakeBackend) lastWrite(provider bind_group_provider.BindGroupProvider) (bind_group_provider.BufferWrite, bool) {
	for i := len(b.writes) - 1; i >= 0; i-- {
		if b.writes[i].Provider == provider {
			return b.writes[i], true
		}
	}
	return bind_group_provider.BufferWrite{}, false
}

// fakePass records the commands encoded into it.
type fakePass struct {
	calls    []string
	pipeline pipeline.Pipeline
	viewport [6]float32
	groups   map[uint32]common.Releasable
	ended    bool
}

func (p *fakePass) SetPipeline(pl pipeline.Pipeline) {
	p.calls = append(p.calls, "SetPipeline")
	p.pipeline = pl
}

func (p *fakePass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.calls = append(p.calls, "SetViewport")
	p.viewport = [6]float32{x, y, width, height, minDepth, maxDepth}
}

func (p *fakePass) SetBindGroup(index uint32, group common.Releasable) {
	p.calls = append(p.calls, fmt.Sprintf("SetBindGroup(%d)", index))
	if p.groups == nil {
		p.groups = make(map[uint32]common.Releasable)
	}
	p.groups[index] = group
}

func (p *fakePass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.calls = append(p.calls, fmt.Sprintf("Draw(%d,%d,%d,%d)", vertexCount, instanceCount, firstVertex, firstInstance))
}

func (p *fakePass) End() {
	p.ended = true
}
