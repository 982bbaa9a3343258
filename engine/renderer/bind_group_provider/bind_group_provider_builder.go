package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithGroup sets the bind group index for this provider.
//
// Parameters:
//   - group: the @group(N) index the provider is bound at
//
// Returns:
//   - BindGroupProviderOption: a function that sets the group for this provider
func WithGroup(group uint32) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.group = group
	}
}

// WithSize sets the uniform buffer size. The size is rounded up to 16 bytes so any WGSL
// struct that fits in size bytes can be bound.
//
// Parameters:
//   - size: the byte size of the data the buffer holds
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer size for this provider
func WithSize(size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.size = common.RoundUpAlign(16, max(size, 16))
	}
}

// WithVisibility sets the shader stages that can read the uniform buffer.
//
// Parameters:
//   - visibility: a combination of wgpu.ShaderStage flags
//
// Returns:
//   - BindGroupProviderOption: a function that sets the visibility for this provider
func WithVisibility(visibility wgpu.ShaderStage) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.visibility = visibility
	}
}
