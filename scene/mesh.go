package scene

import "github.com/binzume/umeshconv/geom"

type BoneWeight struct {
	Indices [4]int
	Weights [4]float32
}

// Mesh uses the host convention: left-handed, clockwise front faces, V up.
// Attribute arrays other than Positions may be shorter or empty.
type Mesh struct {
	Name      string
	Positions []geom.Vector3
	Normals   []geom.Vector3
	Tangents  []geom.Vector4
	UVs       [8][]geom.Vector2
	Colors    []geom.Vector4
	Weights   []BoneWeight
	BindPoses []*geom.Matrix4
	Indices   []uint32
}

func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

type MeshRenderer struct {
	Mesh     *Mesh
	Material *Material
}

type SkinnedMeshRenderer struct {
	Mesh     *Mesh
	Material *Material
	Bones    []*Node
}

// CalcNormals sets smooth vertex normals from the triangle faces.
func (m *Mesh) CalcNormals() {
	normals := make([]geom.Vector3, len(m.Positions))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := &m.Positions[m.Indices[i]], &m.Positions[m.Indices[i+1]], &m.Positions[m.Indices[i+2]]
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range m.Indices[i : i+3] {
			normals[idx] = *normals[idx].Add(n)
		}
	}
	for i := range normals {
		normals[i].Normalize()
	}
	m.Normals = normals
}
