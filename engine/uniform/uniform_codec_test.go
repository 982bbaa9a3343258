package uniform

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32At(t *testing.T, b []byte, offset uint64) float32 {
	t.Helper()
	require.GreaterOrEqual(t, uint64(len(b)), offset+4)
	return math.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}

func TestEncodeEmpty(t *testing.T) {
	data := Encode(nil)
	assert.Equal(t, "", data.StructText)
	assert.Empty(t, data.Bytes)
	assert.Equal(t, 0, data.Count)
	assert.True(t, data.Empty())

	strict, err := EncodeStrict([]Uniform{})
	require.NoError(t, err)
	assert.True(t, strict.Empty())
}

func TestEncodeStructText(t *testing.T) {
	data := Encode([]Uniform{
		New("a", Float(1)),
		New("b", Vec3{1, 2, 3}),
	})

	want := "struct Customs {\n" +
		"    a: f32,\n" +
		"    b: vec3<f32>,\n" +
		"}\n\n" +
		"@group(1) @binding(0) var<uniform> customs: Customs;\n"
	assert.Equal(t, want, data.StructText)
	assert.Equal(t, 2, data.Count)
}

func TestEncodeAlignedLayout(t *testing.T) {
	tests := []struct {
		name    string
		list    []Uniform
		offsets []uint64
		size    int
	}{
		{
			name:    "single float",
			list:    []Uniform{New("speed", Float(1))},
			offsets: []uint64{0},
			size:    4,
		},
		{
			name:    "float then vec3 pads to 16",
			list:    []Uniform{New("a", Float(1)), New("b", Vec3{1, 2, 3})},
			offsets: []uint64{0, 16},
			size:    32,
		},
		{
			name:    "vec3 then float packs into the tail",
			list:    []Uniform{New("b", Vec3{1, 2, 3}), New("a", Float(1))},
			offsets: []uint64{0, 12},
			size:    16,
		},
		{
			name:    "int then vec2i aligns to 8",
			list:    []Uniform{New("n", Int(3)), New("p", Vec2i{1, 2})},
			offsets: []uint64{0, 8},
			size:    16,
		},
		{
			name:    "color4 after color3",
			list:    []Uniform{New("c", Color3{1, 0, 0}), New("d", Color4{0, 1, 0, 1})},
			offsets: []uint64{0, 16},
			size:    32,
		},
		{
			name:    "mixed scalars stay tight",
			list:    []Uniform{New("a", Float(1)), New("b", Int(2)), New("c", Float(3))},
			offsets: []uint64{0, 4, 8},
			size:    12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := Encode(tt.list)
			require.Len(t, data.Fields, len(tt.offsets))
			for i, off := range tt.offsets {
				assert.Equal(t, off, data.Fields[i].Offset, "field %s", data.Fields[i].Name)
			}
			assert.Len(t, data.Bytes, tt.size)
		})
	}
}

func TestEncodeValues(t *testing.T) {
	data := Encode([]Uniform{
		New("a", Float(1.5)),
		New("b", Vec3{1, 2, 3}),
		New("n", Int(-7)),
	})

	assert.Equal(t, float32(1.5), f32At(t, data.Bytes, 0))
	assert.Equal(t, float32(1), f32At(t, data.Bytes, 16))
	assert.Equal(t, float32(2), f32At(t, data.Bytes, 20))
	assert.Equal(t, float32(3), f32At(t, data.Bytes, 24))
	assert.Equal(t, int32(-7), int32(binary.LittleEndian.Uint32(data.Bytes[28:])))
	// padding between a and b stays zero
	assert.Equal(t, make([]byte, 12), data.Bytes[4:16])
}

func TestEncodeDeterministic(t *testing.T) {
	list := []Uniform{New("x", Vec2{0.25, 0.5}), New("y", Color4{1, 1, 1, 1})}
	assert.Equal(t, Encode(list), Encode(list))
}

func TestEncodeOrderSensitive(t *testing.T) {
	ab := Encode([]Uniform{New("a", Float(1)), New("b", Float(2))})
	ba := Encode([]Uniform{New("b", Float(2)), New("a", Float(1))})

	assert.NotEqual(t, ab.StructText, ba.StructText)
	assert.NotEqual(t, ab.Bytes, ba.Bytes)
	assert.False(t, ab.SameShape(ba))
}

func TestEncodeDuplicateLastWins(t *testing.T) {
	data := Encode([]Uniform{
		New("a", Float(1)),
		New("b", Float(2)),
		New("a", Float(3)),
	})

	require.Equal(t, 2, data.Count)
	assert.Equal(t, "a", data.Fields[0].Name)
	assert.Equal(t, "b", data.Fields[1].Name)
	assert.Equal(t, float32(3), f32At(t, data.Bytes, 0))
	assert.Equal(t, float32(2), f32At(t, data.Bytes, 4))
}

func TestEncodeStrictRejectsDuplicates(t *testing.T) {
	_, err := EncodeStrict([]Uniform{New("a", Float(1)), New("a", Int(2))})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateUniform)
	assert.Contains(t, err.Error(), `"a"`)
}

func TestPackHasNoPadding(t *testing.T) {
	list := []Uniform{New("a", Float(1)), New("b", Vec3{1, 2, 3})}

	packed := Pack(list)
	assert.Len(t, packed, 16)
	assert.Equal(t, float32(1), f32At(t, packed, 4))

	assert.Len(t, Encode(list).Bytes, 32)
	assert.Empty(t, Pack(nil))
}

func TestSameShapeIgnoresValues(t *testing.T) {
	one := Encode([]Uniform{New("speed", Float(1))})
	two := Encode([]Uniform{New("speed", Float(2))})

	assert.True(t, one.SameShape(two))
	assert.NotEqual(t, one.Bytes, two.Bytes)
	assert.Equal(t, one.StructText, two.StructText)
}

func TestColorAndVectorShareWGSLType(t *testing.T) {
	color := Encode([]Uniform{New("c", Color3{0.1, 0.2, 0.3})})
	vec := Encode([]Uniform{New("c", Vec3{0.1, 0.2, 0.3})})

	assert.Equal(t, color.StructText, vec.StructText)
	assert.Equal(t, color.Bytes, vec.Bytes)
}
