package uniform

// wgslTypeLayout holds the byte size and alignment for a WGSL type in the uniform address space.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// wgslLayoutMap maps the WGSL types a Value can produce to their host-shareable size and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslLayoutMap = map[string]wgslTypeLayout{
	"f32":       {4, 4},
	"i32":       {4, 4},
	"vec2<f32>": {8, 8},
	"vec3<f32>": {12, 16},
	"vec4<f32>": {16, 16},
	"vec2<i32>": {8, 8},
	"vec3<i32>": {12, 16},
	"vec4<i32>": {16, 16},
}

// layoutOf returns the WGSL layout of a value. Every sealed variant has an entry in wgslLayoutMap.
func layoutOf(v Value) wgslTypeLayout {
	return wgslLayoutMap[v.WGSLType()]
}
