package umesh

import "github.com/binzume/umeshconv/geom"

type BoneWeight struct {
	Indices [4]uint32
	Weights [4]float32
}

// SourceMesh is mesh data as the host holds it. Attribute arrays may be
// shorter than Positions or missing.
type SourceMesh struct {
	Positions []geom.Vector3
	Normals   []geom.Vector3
	Tangents  []geom.Vector4
	UVs       [8][]geom.Vector2
	Colors    []geom.Vector4
	Weights   []BoneWeight
	Indices   []uint32
}

// Geometry is the flattened vertex data written to a mesh record.
// Every channel has VertexCount entries, UVs are stored V-flipped.
type Geometry struct {
	VertexCount int
	Positions   []geom.Vector3
	Normals     []geom.Vector3
	Tangents    []geom.Vector3
	UVs         [8][]geom.Vector2
	Colors      []geom.Vector4

	// skinned only
	Weights []BoneWeight

	Indices []uint32
}

var white = geom.Vector4{X: 1, Y: 1, Z: 1, W: 1}

// BuildStaticGeometry bakes world into positions, normals and tangents.
// world may be nil.
func BuildStaticGeometry(src *SourceMesh, world *geom.Matrix4) *Geometry {
	g := buildGeometry(src)
	if world == nil || world.IsIdentity() {
		return g
	}
	for i := range g.Positions {
		g.Positions[i] = *world.ApplyTo(&g.Positions[i])
		g.Normals[i] = *world.ApplyToVector(&g.Normals[i])
		g.Tangents[i] = *world.ApplyToVector(&g.Tangents[i])
	}
	return g
}

// BuildSkinnedGeometry keeps local space and attaches bone weights.
// Vertices without weights are bound to bone 0 with weight 1.
func BuildSkinnedGeometry(src *SourceMesh) *Geometry {
	g := buildGeometry(src)
	g.Weights = make([]BoneWeight, g.VertexCount)
	for i := range g.Weights {
		if i < len(src.Weights) {
			g.Weights[i] = src.Weights[i]
		} else {
			g.Weights[i] = BoneWeight{Weights: [4]float32{1, 0, 0, 0}}
		}
	}
	return g
}

func buildGeometry(src *SourceMesh) *Geometry {
	n := len(src.Positions)
	g := &Geometry{
		VertexCount: n,
		Positions:   make([]geom.Vector3, n),
		Normals:     make([]geom.Vector3, n),
		Tangents:    make([]geom.Vector3, n),
		Colors:      make([]geom.Vector4, n),
		Indices:     append([]uint32(nil), src.Indices...),
	}
	copy(g.Positions, src.Positions)
	copy(g.Normals, src.Normals)
	for i := 0; i < n && i < len(src.Tangents); i++ {
		g.Tangents[i] = *src.Tangents[i].Vector3()
	}
	for ch := range g.UVs {
		uvs := make([]geom.Vector2, n)
		for i := range uvs {
			if i < len(src.UVs[ch]) {
				uvs[i] = src.UVs[ch][i].FlipV()
			}
		}
		g.UVs[ch] = uvs
	}
	for i := range g.Colors {
		if i < len(src.Colors) {
			g.Colors[i] = src.Colors[i]
		} else {
			g.Colors[i] = white
		}
	}
	return g
}

// SourceMesh converts back to host convention: UVs un-flipped, tangent w = 1.
// Channels absent from format are left empty.
func (g *Geometry) SourceMesh(format VertexFormat) *SourceMesh {
	m := &SourceMesh{
		Positions: make([]geom.Vector3, g.VertexCount),
		Indices:   append([]uint32(nil), g.Indices...),
	}
	copy(m.Positions, g.Positions)
	if format.Has(Normal) {
		m.Normals = append([]geom.Vector3(nil), g.Normals...)
	}
	if format.Has(Tangent) {
		for _, t := range g.Tangents {
			m.Tangents = append(m.Tangents, geom.Vector4{X: t.X, Y: t.Y, Z: t.Z, W: 1})
		}
	}
	for ch := range g.UVs {
		if !format.HasUV(ch) {
			continue
		}
		for _, uv := range g.UVs[ch] {
			m.UVs[ch] = append(m.UVs[ch], uv.FlipV())
		}
	}
	if format.Has(Color) {
		m.Colors = append([]geom.Vector4(nil), g.Colors...)
	}
	if g.Weights != nil {
		m.Weights = append([]BoneWeight(nil), g.Weights...)
	}
	return m
}

// allocate prepares the channels selected by format for n vertices.
func (g *Geometry) allocate(format VertexFormat, n int) {
	g.VertexCount = n
	g.Positions = make([]geom.Vector3, n)
	if format.Has(Normal) {
		g.Normals = make([]geom.Vector3, n)
	}
	if format.Has(Tangent) {
		g.Tangents = make([]geom.Vector3, n)
	}
	for ch := range g.UVs {
		if format.HasUV(ch) {
			g.UVs[ch] = make([]geom.Vector2, n)
		}
	}
	if format.Has(Color) {
		g.Colors = make([]geom.Vector4, n)
	}
}

// vertexFloats returns the attribute values of vertex i in record order.
func (g *Geometry) vertexFloats(format VertexFormat, i int, buf []float32) []float32 {
	buf = buf[:0]
	if format.Has(Position) {
		p := g.Positions[i]
		buf = append(buf, p.X, p.Y, p.Z)
	}
	if format.Has(Normal) {
		n := g.Normals[i]
		buf = append(buf, n.X, n.Y, n.Z)
	}
	if format.Has(Tangent) {
		t := g.Tangents[i]
		buf = append(buf, t.X, t.Y, t.Z)
	}
	for ch := 0; ch < 8; ch++ {
		if format.HasUV(ch) {
			uv := g.UVs[ch][i]
			buf = append(buf, uv.X, uv.Y)
		}
	}
	if format.Has(Color) {
		c := g.Colors[i]
		buf = append(buf, c.X, c.Y, c.Z, c.W)
	}
	return buf
}

// setVertexFloats is the inverse of vertexFloats. v must hold FloatsPerVertex values.
func (g *Geometry) setVertexFloats(format VertexFormat, i int, v []float32) {
	if format.Has(Position) {
		g.Positions[i] = geom.Vector3{X: v[0], Y: v[1], Z: v[2]}
		v = v[3:]
	}
	if format.Has(Normal) {
		g.Normals[i] = geom.Vector3{X: v[0], Y: v[1], Z: v[2]}
		v = v[3:]
	}
	if format.Has(Tangent) {
		g.Tangents[i] = geom.Vector3{X: v[0], Y: v[1], Z: v[2]}
		v = v[3:]
	}
	for ch := 0; ch < 8; ch++ {
		if format.HasUV(ch) {
			g.UVs[ch][i] = geom.Vector2{X: v[0], Y: v[1]}
			v = v[2:]
		}
	}
	if format.Has(Color) {
		g.Colors[i] = geom.Vector4{X: v[0], Y: v[1], Z: v[2], W: v[3]}
	}
}

// attributeWidths lists the float count of each attribute line of a vertex in record order.
func (f VertexFormat) attributeWidths() []int {
	var w []int
	for i := 0; i < 12; i++ {
		if !f.Has(1 << uint(i)) {
			continue
		}
		switch VertexFormat(1 << uint(i)) {
		case Position, Normal, Tangent:
			w = append(w, 3)
		case Color:
			w = append(w, 4)
		default:
			w = append(w, 2)
		}
	}
	return w
}
