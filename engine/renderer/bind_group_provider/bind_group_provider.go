package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	// group is the bind group index this provider is bound at.
	group uint32
	// size is the byte size of the uniform buffer backing binding 0.
	size uint64
	// visibility is the set of shader stages that can read the buffer.
	visibility wgpu.ShaderStage

	// The following fields are GPU allocated resources and must be released when no longer needed. They are populated by the backend, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized.
	bindGroup common.Releasable
	// bindGroupLayout is the GPU bind group layout, needed again whenever a pipeline layout is rebuilt.
	bindGroupLayout common.Releasable
	// buffer is the uniform buffer at binding 0.
	buffer common.Releasable
}

// BindGroupProvider describes one uniform bind group: a single uniform buffer at binding 0 of a
// given group, plus the GPU layout and bind group created for it.
//
// Usage pattern:
//  1. The pipeline cache creates a provider with a group, size and visibility
//  2. The backend's InitUniformBindGroup creates the buffer, layout and bind group and stores them here
//  3. The backend's WriteBuffers uploads bytes into Buffer()
//  4. The renderer binds BindGroup() at Group() for each draw
//  5. Release() frees all three objects when the provider is replaced
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider. Safe to call more than once.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Group returns the bind group index.
	Group() uint32

	// Size returns the byte size of the uniform buffer.
	Size() uint64

	// Visibility returns the shader stages the buffer is visible to.
	Visibility() wgpu.ShaderStage

	// Ready reports whether the backend has created all GPU resources for this provider.
	Ready() bool

	// BindGroup returns the created bind group for shader binding, or nil.
	BindGroup() common.Releasable

	// BindGroupLayout returns the created bind group layout, or nil.
	BindGroupLayout() common.Releasable

	// Buffer returns the created uniform buffer, or nil.
	Buffer() common.Releasable

	// SetBindGroup sets the bind group after GPU initialization.
	SetBindGroup(bg common.Releasable)

	// SetBindGroupLayout sets the bind group layout after GPU initialization.
	SetBindGroupLayout(bgl common.Releasable)

	// SetBuffer sets the uniform buffer after GPU initialization.
	SetBuffer(buf common.Releasable)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
// Defaults to group 0, fragment visibility and a 16 byte buffer.
//
// Parameters:
//   - label: the debug label used for every GPU object created for the provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:      label,
		size:       16,
		visibility: wgpu.ShaderStageFragment,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() uint32 {
	return p.group
}

func (p *bindGroupProvider) Size() uint64 {
	return p.size
}

func (p *bindGroupProvider) Visibility() wgpu.ShaderStage {
	return p.visibility
}

func (p *bindGroupProvider) Ready() bool {
	return p.bindGroup != nil && p.bindGroupLayout != nil && p.buffer != nil
}

func (p *bindGroupProvider) BindGroup() common.Releasable {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() common.Releasable {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer() common.Releasable {
	return p.buffer
}

func (p *bindGroupProvider) SetBindGroup(bg common.Releasable) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl common.Releasable) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(buf common.Releasable) {
	p.buffer = buf
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	if p.buffer != nil {
		p.buffer.Release()
		p.buffer = nil
	}
}
