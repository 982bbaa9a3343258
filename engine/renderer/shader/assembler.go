package shader

import (
	"fmt"
	"strings"
)

// reservedGroups are the bind groups the engine binds itself: 0 for the built-in uniforms and 1 for
// the generated custom uniform struct.
var reservedGroups = map[int]string{
	0: "built-in uniforms",
	1: "custom uniforms",
}

// AssembleVertex builds the vertex module: the prelude followed by the built-in vertex shader.
//
// Returns:
//   - Shader: the vertex module with entry point vs_main
func AssembleVertex() Shader {
	return &shader{
		key:        "preview.vertex",
		source:     PreludeSource + "\n" + VertexSource,
		shaderType: ShaderTypeVertex,
		entryPoint: VertexEntryPoint,
	}
}

// AssembleFragment builds the fragment module: prelude, then the generated uniform struct text,
// then the user's source. The user's @fragment function becomes the entry point.
//
// Parameters:
//   - structText: the custom uniform declaration, may be empty
//   - userSource: the user's fragment shader source
//
// Returns:
//   - Shader: the assembled fragment module
//   - error: ErrNoEntryPoint or ErrReservedBinding wrapped with detail
func AssembleFragment(structText, userSource string) (Shader, error) {
	if err := checkReservedBindings(userSource); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.Grow(len(PreludeSource) + len(structText) + len(userSource) + 2)
	sb.WriteString(PreludeSource)
	sb.WriteByte('\n')
	sb.WriteString(structText)
	sb.WriteByte('\n')
	sb.WriteString(userSource)

	return NewShader("preview.fragment", ShaderTypeFragment, sb.String())
}

// checkReservedBindings rejects user declarations in the engine-owned bind groups, which would
// otherwise surface as an opaque redefinition error from the driver.
func checkReservedBindings(userSource string) error {
	for _, decl := range parseBindingDecls(userSource) {
		if what, ok := reservedGroups[decl.group]; ok {
			return fmt.Errorf("%w: %s at @group(%d) @binding(%d) collides with the %s",
				ErrReservedBinding, decl.name, decl.group, decl.binding, what)
		}
	}
	return nil
}
