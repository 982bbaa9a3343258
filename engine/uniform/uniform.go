// Package uniform defines the typed, user-editable shader parameters and the codec that turns an
// ordered list of them into the two artifacts a fragment shader needs: a WGSL struct declaration
// and a byte buffer laid out to match it.
package uniform

import (
	"errors"
	"fmt"
	"regexp"
)

// Type tags are the stable persisted names for each Value variant.
const (
	TagInt    = "int"
	TagFloat  = "float"
	TagVec2   = "vec2f"
	TagVec3   = "vec3f"
	TagColor3 = "color3"
	TagVec4   = "vec4f"
	TagColor4 = "color4"
	TagVec2i  = "vec2i"
	TagVec3i  = "vec3i"
	TagVec4i  = "vec4i"
)

var (
	// ErrInvalidName is returned when a uniform name is not a legal WGSL identifier.
	ErrInvalidName = errors.New("invalid uniform name")
	// ErrUnknownType is returned when a persisted type tag does not name a Value variant.
	ErrUnknownType = errors.New("unknown uniform type")
	// ErrComponentCount is returned when a persisted value has the wrong number of components for its type.
	ErrComponentCount = errors.New("wrong component count for uniform type")
)

// identRegex matches WGSL identifiers restricted to ASCII.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedNames are WGSL keywords and reserved words a user is likely to type as a parameter name.
var reservedNames = map[string]struct{}{
	"alias": {}, "break": {}, "case": {}, "const": {}, "const_assert": {}, "continue": {}, "continuing": {},
	"default": {}, "diagnostic": {}, "discard": {}, "else": {}, "enable": {}, "false": {}, "fn": {},
	"for": {}, "if": {}, "let": {}, "loop": {}, "override": {}, "requires": {}, "return": {},
	"struct": {}, "switch": {}, "true": {}, "var": {}, "while": {},
	"f32": {}, "f16": {}, "i32": {}, "u32": {}, "bool": {}, "vec2": {}, "vec3": {}, "vec4": {},
	"mat2x2": {}, "mat3x3": {}, "mat4x4": {}, "array": {}, "sampler": {}, "texture": {},
}

// Value is one of the closed set of uniform value variants. The set is sealed: only the types in
// this package implement it.
type Value interface {
	// WGSLType returns the WGSL type spelled in the generated struct declaration.
	WGSLType() string
	// Tag returns the stable persisted type name.
	Tag() string
	// Components returns the value's components widened to float64 for persistence and display.
	Components() []float64

	appendLE(dst []byte) []byte
}

// Uniform is a single named, typed, user-editable shader parameter.
type Uniform struct {
	Name  string
	Value Value
}

// New is a convenience constructor for a Uniform.
func New(name string, value Value) Uniform {
	return Uniform{Name: name, Value: value}
}

// SameShape reports whether two uniforms would produce the same struct field.
func (u Uniform) SameShape(other Uniform) bool {
	if u.Value == nil || other.Value == nil {
		return u.Name == other.Name && u.Value == nil && other.Value == nil
	}
	return u.Name == other.Name && u.Value.Tag() == other.Value.Tag()
}

// ValidateName checks that name can be used as a field of the generated WGSL struct.
//
// Parameters:
//   - name: the candidate uniform name
//
// Returns:
//   - error: an error wrapping ErrInvalidName, or nil if the name is usable
func ValidateName(name string) error {
	if !identRegex.MatchString(name) {
		return fmt.Errorf("%w: %q is not a WGSL identifier", ErrInvalidName, name)
	}
	if name == "_" || len(name) >= 2 && name[:2] == "__" {
		return fmt.Errorf("%w: %q uses a reserved underscore prefix", ErrInvalidName, name)
	}
	if _, ok := reservedNames[name]; ok {
		return fmt.Errorf("%w: %q is a reserved word", ErrInvalidName, name)
	}
	return nil
}

// ParseValue rebuilds a Value from its persisted tag and components.
//
// Parameters:
//   - tag: the persisted type tag (e.g. "float", "color3")
//   - components: the persisted components, exactly as many as the type has
//
// Returns:
//   - Value: the decoded value
//   - error: ErrUnknownType or ErrComponentCount, wrapped with context
func ParseValue(tag string, components []float64) (Value, error) {
	want, ok := componentCounts[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
	if len(components) != want {
		return nil, fmt.Errorf("%w: %s needs %d, got %d", ErrComponentCount, tag, want, len(components))
	}

	f := func(i int) float32 { return float32(components[i]) }
	n := func(i int) int32 { return int32(components[i]) }

	switch tag {
	case TagInt:
		return Int(n(0)), nil
	case TagFloat:
		return Float(f(0)), nil
	case TagVec2:
		return Vec2{f(0), f(1)}, nil
	case TagVec3:
		return Vec3{f(0), f(1), f(2)}, nil
	case TagColor3:
		return Color3{f(0), f(1), f(2)}, nil
	case TagVec4:
		return Vec4{f(0), f(1), f(2), f(3)}, nil
	case TagColor4:
		return Color4{f(0), f(1), f(2), f(3)}, nil
	case TagVec2i:
		return Vec2i{n(0), n(1)}, nil
	case TagVec3i:
		return Vec3i{n(0), n(1), n(2)}, nil
	default:
		return Vec4i{n(0), n(1), n(2), n(3)}, nil
	}
}

// componentCounts maps each type tag to its number of scalar components.
var componentCounts = map[string]int{
	TagInt: 1, TagFloat: 1,
	TagVec2: 2, TagVec2i: 2,
	TagVec3: 3, TagColor3: 3, TagVec3i: 3,
	TagVec4: 4, TagColor4: 4, TagVec4i: 4,
}
