package uniform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-shade/common"
)

const (
	// StructName is the WGSL struct type generated for the custom uniforms.
	StructName = "Customs"
	// VarName is the WGSL variable user shaders read custom uniforms from.
	VarName = "customs"
	// Group is the bind group index the custom uniforms are bound at.
	Group = 1
	// Binding is the binding index within Group.
	Binding = 0
)

// ErrDuplicateUniform is returned by EncodeStrict when two uniforms share a name.
var ErrDuplicateUniform = errors.New("duplicate uniform name")

// FieldLayout describes where a single uniform lands inside the encoded buffer.
type FieldLayout struct {
	Name     string
	WGSLType string
	Offset   uint64
	Size     uint64
}

// RenderData is the derived GPU form of an ordered uniform list. StructText and Bytes are produced
// from the same pass over the same list so they can never disagree on field order or offsets.
type RenderData struct {
	// StructText is the WGSL struct + binding declaration, or "" when there are no uniforms.
	StructText string
	// Bytes is the buffer content matching StructText under WGSL layout rules.
	Bytes []byte
	// Count is the number of fields encoded.
	Count int
	// Fields holds per-field offsets into Bytes, in declaration order.
	Fields []FieldLayout
}

// Empty reports whether the data describes no uniforms at all.
func (d RenderData) Empty() bool {
	return d.Count == 0
}

// Size returns the length of the encoded buffer in bytes.
func (d RenderData) Size() uint64 {
	return uint64(len(d.Bytes))
}

// SameShape reports whether two render data values declare identical structs.
// When true the buffer of one can be reused to hold the bytes of the other.
func (d RenderData) SameShape(other RenderData) bool {
	if len(d.Fields) != len(other.Fields) {
		return false
	}
	for i := range d.Fields {
		if d.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}

// Encode derives the WGSL struct declaration and the matching buffer bytes from an ordered list.
// Duplicate names are collapsed: the later declaration's value replaces the earlier one, which keeps
// its position. A warning is logged for every duplicate.
//
// Parameters:
//   - list: the uniforms in declaration order
//
// Returns:
//   - RenderData: the struct text, bytes and per-field layout
func Encode(list []Uniform) RenderData {
	deduped, dups := dedupe(list)
	for _, name := range dups {
		common.Logger().Warn("duplicate uniform name, keeping last value", "name", name)
	}
	return encode(deduped)
}

// EncodeStrict behaves like Encode but refuses duplicate names.
//
// Parameters:
//   - list: the uniforms in declaration order
//
// Returns:
//   - RenderData: the struct text, bytes and per-field layout
//   - error: ErrDuplicateUniform wrapped with the first offending name
func EncodeStrict(list []Uniform) (RenderData, error) {
	if _, dups := dedupe(list); len(dups) > 0 {
		return RenderData{}, fmt.Errorf("%w: %q", ErrDuplicateUniform, dups[0])
	}
	return encode(list), nil
}

// Pack concatenates the raw little-endian values with no padding between fields.
// This is the compact reference form; it does not match WGSL layout once a vec3 or vec4
// follows a smaller field and must never be uploaded as uniform data.
//
// Parameters:
//   - list: the uniforms in declaration order
//
// Returns:
//   - []byte: the packed values, 4 bytes per scalar component
func Pack(list []Uniform) []byte {
	var out []byte
	for _, u := range list {
		if u.Value == nil {
			continue
		}
		out = u.Value.appendLE(out)
	}
	return out
}

// StructText renders only the WGSL declaration for the list. Equivalent to Encode(list).StructText.
func StructText(list []Uniform) string {
	return Encode(list).StructText
}

// encode lays out each field at the next multiple of its alignment and rounds the total up to
// the largest alignment seen, per the WGSL struct layout rules.
func encode(list []Uniform) RenderData {
	data := RenderData{}
	if len(list) == 0 {
		return data
	}

	var sb strings.Builder
	sb.WriteString("struct ")
	sb.WriteString(StructName)
	sb.WriteString(" {\n")

	buf := make([]byte, 0, 16*len(list))
	maxAlign := uint64(1)
	data.Fields = make([]FieldLayout, 0, len(list))

	for _, u := range list {
		if u.Value == nil {
			continue
		}
		l := layoutOf(u.Value)
		offset := common.RoundUpAlign(l.align, uint64(len(buf)))
		buf = append(buf, make([]byte, offset-uint64(len(buf)))...)
		buf = u.Value.appendLE(buf)
		if l.align > maxAlign {
			maxAlign = l.align
		}

		data.Fields = append(data.Fields, FieldLayout{
			Name:     u.Name,
			WGSLType: u.Value.WGSLType(),
			Offset:   offset,
			Size:     l.size,
		})
		fmt.Fprintf(&sb, "    %s: %s,\n", u.Name, u.Value.WGSLType())
	}

	if len(data.Fields) == 0 {
		return RenderData{}
	}

	total := common.RoundUpAlign(maxAlign, uint64(len(buf)))
	buf = append(buf, make([]byte, total-uint64(len(buf)))...)

	sb.WriteString("}\n\n")
	fmt.Fprintf(&sb, "@group(%d) @binding(%d) var<uniform> %s: %s;\n", Group, Binding, VarName, StructName)

	data.StructText = sb.String()
	data.Bytes = buf
	data.Count = len(data.Fields)
	return data
}

// dedupe collapses repeated names in place order, last value wins.
// The returned names are the duplicates encountered, in order of first repetition.
func dedupe(list []Uniform) ([]Uniform, []string) {
	index := make(map[string]int, len(list))
	out := make([]Uniform, 0, len(list))
	var dups []string
	for _, u := range list {
		if i, ok := index[u.Name]; ok {
			out[i] = u
			dups = append(dups, u.Name)
			continue
		}
		index[u.Name] = len(out)
		out = append(out, u)
	}
	return out, dups
}
