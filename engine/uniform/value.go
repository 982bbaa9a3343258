package uniform

import (
	"encoding/binary"
	"math"
)

// Int is a signed 32-bit integer uniform.
type Int int32

// Float is a 32-bit float uniform.
type Float float32

// Vec2 is a two component float vector.
type Vec2 [2]float32

// Vec3 is a three component float vector.
type Vec3 [3]float32

// Color3 is an RGB color. It encodes exactly like Vec3; the distinct type only changes how editors present it.
type Color3 [3]float32

// Vec4 is a four component float vector.
type Vec4 [4]float32

// Color4 is an RGBA color. It encodes exactly like Vec4.
type Color4 [4]float32

// Vec2i is a two component signed integer vector.
type Vec2i [2]int32

// Vec3i is a three component signed integer vector.
type Vec3i [3]int32

// Vec4i is a four component signed integer vector.
type Vec4i [4]int32

var (
	_ Value = Int(0)
	_ Value = Float(0)
	_ Value = Vec2{}
	_ Value = Vec3{}
	_ Value = Color3{}
	_ Value = Vec4{}
	_ Value = Color4{}
	_ Value = Vec2i{}
	_ Value = Vec3i{}
	_ Value = Vec4i{}
)

func (Int) WGSLType() string    { return "i32" }
func (Float) WGSLType() string  { return "f32" }
func (Vec2) WGSLType() string   { return "vec2<f32>" }
func (Vec3) WGSLType() string   { return "vec3<f32>" }
func (Color3) WGSLType() string { return "vec3<f32>" }
func (Vec4) WGSLType() string   { return "vec4<f32>" }
func (Color4) WGSLType() string { return "vec4<f32>" }
func (Vec2i) WGSLType() string  { return "vec2<i32>" }
func (Vec3i) WGSLType() string  { return "vec3<i32>" }
func (Vec4i) WGSLType() string  { return "vec4<i32>" }

func (Int) Tag() string    { return TagInt }
func (Float) Tag() string  { return TagFloat }
func (Vec2) Tag() string   { return TagVec2 }
func (Vec3) Tag() string   { return TagVec3 }
func (Color3) Tag() string { return TagColor3 }
func (Vec4) Tag() string   { return TagVec4 }
func (Color4) Tag() string { return TagColor4 }
func (Vec2i) Tag() string  { return TagVec2i }
func (Vec3i) Tag() string  { return TagVec3i }
func (Vec4i) Tag() string  { return TagVec4i }

func (v Int) Components() []float64    { return []float64{float64(v)} }
func (v Float) Components() []float64  { return []float64{float64(v)} }
func (v Vec2) Components() []float64   { return floats(v[:]) }
func (v Vec3) Components() []float64   { return floats(v[:]) }
func (v Color3) Components() []float64 { return floats(v[:]) }
func (v Vec4) Components() []float64   { return floats(v[:]) }
func (v Color4) Components() []float64 { return floats(v[:]) }
func (v Vec2i) Components() []float64  { return ints(v[:]) }
func (v Vec3i) Components() []float64  { return ints(v[:]) }
func (v Vec4i) Components() []float64  { return ints(v[:]) }

func (v Int) appendLE(dst []byte) []byte    { return appendInt32s(dst, int32(v)) }
func (v Float) appendLE(dst []byte) []byte  { return appendFloat32s(dst, float32(v)) }
func (v Vec2) appendLE(dst []byte) []byte   { return appendFloat32s(dst, v[:]...) }
func (v Vec3) appendLE(dst []byte) []byte   { return appendFloat32s(dst, v[:]...) }
func (v Color3) appendLE(dst []byte) []byte { return appendFloat32s(dst, v[:]...) }
func (v Vec4) appendLE(dst []byte) []byte   { return appendFloat32s(dst, v[:]...) }
func (v Color4) appendLE(dst []byte) []byte { return appendFloat32s(dst, v[:]...) }
func (v Vec2i) appendLE(dst []byte) []byte  { return appendInt32s(dst, v[:]...) }
func (v Vec3i) appendLE(dst []byte) []byte  { return appendInt32s(dst, v[:]...) }
func (v Vec4i) appendLE(dst []byte) []byte  { return appendInt32s(dst, v[:]...) }

func appendFloat32s(dst []byte, values ...float32) []byte {
	for _, f := range values {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

func appendInt32s(dst []byte, values ...int32) []byte {
	for _, n := range values {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(n))
	}
	return dst
}

func floats(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, f := range values {
		out[i] = float64(f)
	}
	return out
}

func ints(values []int32) []float64 {
	out := make([]float64, len(values))
	for i, n := range values {
		out[i] = float64(n)
	}
	return out
}
