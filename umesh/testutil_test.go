package umesh

import "github.com/binzume/umeshconv/geom"

// cubeSource is a unit cube with 8 shared vertices and 12 triangles.
func cubeSource() *SourceMesh {
	m := &SourceMesh{}
	for i := 0; i < 8; i++ {
		p := geom.Vector3{X: float32(i & 1), Y: float32(i >> 1 & 1), Z: float32(i >> 2 & 1)}
		m.Positions = append(m.Positions, p)
		n := p.Sub(&geom.Vector3{X: 0.5, Y: 0.5, Z: 0.5}).Normalize()
		m.Normals = append(m.Normals, *n)
		m.UVs[0] = append(m.UVs[0], geom.Vector2{X: p.X, Y: p.Y * 0.25})
	}
	m.Indices = []uint32{
		0, 2, 1, 1, 2, 3,
		4, 5, 6, 5, 7, 6,
		0, 1, 4, 1, 5, 4,
		2, 6, 3, 3, 6, 7,
		0, 4, 2, 2, 4, 6,
		1, 3, 5, 3, 7, 5,
	}
	return m
}

// fullSource has every attribute with distinct values.
func fullSource(n int) *SourceMesh {
	m := &SourceMesh{}
	for i := 0; i < n; i++ {
		f := float32(i)
		m.Positions = append(m.Positions, geom.Vector3{X: f, Y: f + 0.5, Z: -f})
		m.Normals = append(m.Normals, geom.Vector3{X: 0, Y: 1, Z: 0})
		m.Tangents = append(m.Tangents, geom.Vector4{X: 1, Y: 0, Z: 0, W: -1})
		for ch := range m.UVs {
			m.UVs[ch] = append(m.UVs[ch], geom.Vector2{X: f / 10, Y: float32(ch) / 10})
		}
		m.Colors = append(m.Colors, geom.Vector4{X: 0.1, Y: 0.2, Z: 0.3, W: f / 10})
		m.Weights = append(m.Weights, BoneWeight{Indices: [4]uint32{uint32(i % 2), 1, 0, 0}, Weights: [4]float32{0.7, 0.2, 0, 0}})
	}
	for i := 0; i+2 < n; i++ {
		m.Indices = append(m.Indices, uint32(i), uint32(i+1), uint32(i+2))
	}
	return m
}

func testMaterial(name string) *Material {
	return &Material{
		Name:     name,
		Colors:   []ColorProperty{{Name: "_Color", Value: geom.Vector4{X: 1, Y: 0.5, Z: 0.25, W: 1}}},
		Textures: []TextureProperty{{Name: "_MainTex", File: TextureFileName("bricks", "_MainTex")}, {Name: "_BumpMap"}},
	}
}

func testHierarchy() *Hierarchy {
	h := NewHierarchy(HierarchyNode{Name: "Root", Rotation: geom.IdentityQuaternion, Scale: geom.Vector3{X: 1, Y: 1, Z: 1}})
	hips := h.AddNode(0, HierarchyNode{Name: "Hips", Position: geom.Vector3{Y: 1}, Rotation: geom.IdentityQuaternion, Scale: geom.Vector3{X: 1, Y: 1, Z: 1}})
	spine := h.AddNode(hips, HierarchyNode{Name: "Spine", Position: geom.Vector3{Y: 0.2}, Rotation: *geom.NewEulerDegrees(0, 0, 30, geom.RotationOrderUnity).ToQuaternion(), Scale: geom.Vector3{X: 1, Y: 1, Z: 1}})
	h.AddNode(spine, HierarchyNode{Name: "Head", Position: geom.Vector3{Y: 0.5}, Rotation: geom.IdentityQuaternion, Scale: geom.Vector3{X: 1, Y: 1, Z: 1}})
	h.AddNode(hips, HierarchyNode{Name: "Leg.L", Position: geom.Vector3{X: -0.1}, Rotation: geom.IdentityQuaternion, Scale: geom.Vector3{X: 1, Y: 2, Z: 1}})
	h.AddNode(0, HierarchyNode{Name: "Body", Rotation: geom.IdentityQuaternion, Scale: geom.Vector3{X: 1, Y: 1, Z: 1}})
	return h
}

func testSkinnedModel() *SkinnedModel {
	h := testHierarchy()
	poses, _ := NewBindPoses([]string{"Hips", "Spine"}, []*geom.Matrix4{geom.NewTranslateMatrix4(0, -1, 0), geom.NewTranslateMatrix4(0, -1.2, 0)}, "Body")
	return &SkinnedModel{
		Hierarchy: h,
		Format:    DefaultVertexFormat | Tangent | Color,
		Meshes: []*Mesh{
			{Geometry: BuildSkinnedGeometry(fullSource(5)), BindPoses: poses, Material: testMaterial("skin")},
		},
	}
}
