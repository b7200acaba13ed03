package umesh

import (
	"fmt"
	"strings"
)

// VertexFormat is the per-file bitmask of vertex attributes.
type VertexFormat uint16

const (
	Position VertexFormat = 1 << iota
	Normal
	Tangent
	UV1
	UV2
	UV3
	UV4
	UV5
	UV6
	UV7
	UV8
	Color

	vertexFormatMask VertexFormat = 1<<12 - 1
)

// DefaultVertexFormat is Position|Normal|UV1.
const DefaultVertexFormat = Position | Normal | UV1

var vertexFormatNames = []string{
	"position", "normal", "tangent",
	"uv1", "uv2", "uv3", "uv4", "uv5", "uv6", "uv7", "uv8",
	"color",
}

// DecodeVertexFormat ignores reserved bits above Color.
func DecodeVertexFormat(v uint16) VertexFormat {
	return VertexFormat(v) & vertexFormatMask
}

func (f VertexFormat) Has(flag VertexFormat) bool {
	return f&flag == flag
}

// HasUV reports whether UV channel ch (0..7) is present.
func (f VertexFormat) HasUV(ch int) bool {
	return f.Has(UV1 << uint(ch))
}

func (f VertexFormat) Layout() VertexLayout {
	var l VertexLayout
	l.Position = f.Has(Position)
	l.Normal = f.Has(Normal)
	l.Tangent = f.Has(Tangent)
	for i := range l.UV {
		l.UV[i] = f.HasUV(i)
	}
	l.Color = f.Has(Color)
	return l
}

// FloatsPerVertex is the number of float values one vertex record holds.
func (f VertexFormat) FloatsPerVertex() int {
	n := 0
	if f.Has(Position) {
		n += 3
	}
	if f.Has(Normal) {
		n += 3
	}
	if f.Has(Tangent) {
		n += 3
	}
	for i := 0; i < 8; i++ {
		if f.HasUV(i) {
			n += 2
		}
	}
	if f.Has(Color) {
		n += 4
	}
	return n
}

func (f VertexFormat) String() string {
	var names []string
	for i, name := range vertexFormatNames {
		if f.Has(1 << uint(i)) {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

// ParseVertexFormat parses a comma separated attribute list such as "position,normal,uv1".
func ParseVertexFormat(s string) (VertexFormat, error) {
	var f VertexFormat
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		found := false
		for i, n := range vertexFormatNames {
			if n == name {
				f |= 1 << uint(i)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("umesh: unknown vertex attribute %q", name)
		}
	}
	return f, nil
}

// VertexLayout is the option-panel view of a VertexFormat.
type VertexLayout struct {
	Position bool    `json:"position" yaml:"position"`
	Normal   bool    `json:"normal" yaml:"normal"`
	Tangent  bool    `json:"tangent" yaml:"tangent"`
	UV       [8]bool `json:"uv" yaml:"uv"`
	Color    bool    `json:"color" yaml:"color"`
}

func (l VertexLayout) Encode() VertexFormat {
	var f VertexFormat
	if l.Position {
		f |= Position
	}
	if l.Normal {
		f |= Normal
	}
	if l.Tangent {
		f |= Tangent
	}
	for i, uv := range l.UV {
		if uv {
			f |= UV1 << uint(i)
		}
	}
	if l.Color {
		f |= Color
	}
	return f
}
