package converter

import (
	"bytes"
	"context"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/binzume/umeshconv/geom"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func writeMatrices(doc *gltf.Document, mat [][16]float32) uint32 {
	a := make([][4]float32, len(mat)*4)
	for i, m := range mat {
		for c := 0; c < 4; c++ {
			copy(a[i*4+c][:], m[c*4:c*4+4])
		}
	}
	acc := modeler.WriteTangent(doc, a)
	doc.Accessors[acc].Type = gltf.AccessorMat4
	doc.Accessors[acc].Count /= 4
	doc.BufferViews[*doc.Accessors[acc].BufferView].ByteStride *= 4
	return acc
}

func saveGLB(t *testing.T, doc *gltf.Document, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatal(err)
	}
	return path
}

// Root(1,2,3 rotated 90deg around Y) -> Tri (one textured triangle)
func testTriangleGLB(t *testing.T) string {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint32{0, 1, 2})

	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(2, 2)); err != nil {
		t.Fatal(err)
	}
	img, err := modeler.WriteImage(doc, "skin", "image/png", &buf)
	if err != nil {
		t.Fatal(err)
	}
	doc.Buffers[0].ByteLength = uint32(len(doc.Buffers[0].Data))
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(img)}}
	doc.Materials = []*gltf.Material{{
		Name: "Skin",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor:  &[4]float32{1, 0.5, 0.25, 1},
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "Tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]uint32{"POSITION": pos, "TEXCOORD_0": uv},
			Material:   gltf.Index(0),
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{
			Name:        "Root",
			Translation: [3]float32{1, 2, 3},
			Rotation:    [4]float32{0, 0.7071068, 0, 0.7071068},
			Scale:       [3]float32{1, 1, 1},
			Children:    []uint32{1},
		},
		{Name: "Tri", Mesh: gltf.Index(0), Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
	}
	doc.Scenes[0].Nodes = []uint32{0}
	return saveGLB(t, doc, "tri.glb")
}

// Hips -> Spine(0,1,0), Body (skinned to Hips and Spine) and one animation
func testSkinnedGLB(t *testing.T, vrm bool) string {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 2, 0}})
	normal := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	joints := modeler.WriteJoints(doc, [][4]uint16{{0, 0, 0, 0}, {0, 1, 0, 0}, {1, 0, 0, 0}})
	weights := modeler.WriteWeights(doc, [][4]float32{{1, 0, 0, 0}, {0.5, 0.5, 0, 0}, {1, 0, 0, 0}})
	identity := [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	spine := identity
	spine[13] = -1
	ibm := writeMatrices(doc, [][16]float32{identity, spine})

	times := modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, []float32{0, 1})
	translations := modeler.WritePosition(doc, [][3]float32{{1, 1, 0}, {2, 1, 0}})
	rotations := modeler.WriteTangent(doc, [][4]float32{{0, 0, 0, 1}, {0, 0.7071068, 0, 0.7071068}})

	doc.Meshes = []*gltf.Mesh{{
		Name: "Body",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{"POSITION": pos, "NORMAL": normal, "JOINTS_0": joints, "WEIGHTS_0": weights},
		}},
	}}
	doc.Skins = []*gltf.Skin{{Joints: []uint32{0, 1}, InverseBindMatrices: gltf.Index(ibm)}}
	doc.Nodes = []*gltf.Node{
		{Name: "Hips", Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}, Children: []uint32{1, 2}},
		{Name: "Spine", Translation: [3]float32{0, 1, 0}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
		{Name: "Body", Mesh: gltf.Index(0), Skin: gltf.Index(0), Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
	}
	doc.Scenes[0].Nodes = []uint32{0}
	doc.Animations = []*gltf.Animation{{
		Name: "Walk",
		Samplers: []*gltf.AnimationSampler{
			{Input: gltf.Index(times), Output: gltf.Index(translations), Interpolation: gltf.InterpolationLinear},
			{Input: gltf.Index(times), Output: gltf.Index(rotations), Interpolation: gltf.InterpolationLinear},
		},
		Channels: []*gltf.Channel{
			{Sampler: gltf.Index(0), Target: gltf.ChannelTarget{Node: gltf.Index(1), Path: gltf.TRSTranslation}},
			{Sampler: gltf.Index(1), Target: gltf.ChannelTarget{Node: gltf.Index(1), Path: gltf.TRSRotation}},
		},
	}}
	if vrm {
		doc.ExtensionsUsed = []string{"VRM"}
	}
	return saveGLB(t, doc, "rig.glb")
}

func TestLoadGLTF(t *testing.T) {
	s, err := LoadGLTF(testTriangleGLB(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Roots) != 1 || s.Roots[0].Name != "tri" || s.Roots[0].Animator != nil {
		t.Fatal("roots:", s.Roots)
	}
	root := s.Roots[0].Find("Root")
	if root == nil {
		t.Fatal("Root not found")
	}
	if !nearVec3(root.Position, geom.Vector3{X: -1, Y: 2, Z: 3}) {
		t.Error("position:", root.Position)
	}
	if !near(root.Rotation.Y, -0.7071068) || !near(root.Rotation.W, 0.7071068) {
		t.Error("rotation:", root.Rotation)
	}

	tri := root.Find("Tri")
	if tri == nil || tri.MeshRenderer == nil {
		t.Fatal("no mesh renderer")
	}
	mesh := tri.MeshRenderer.Mesh
	if !nearVec3(mesh.Positions[1], geom.Vector3{X: -1}) {
		t.Error("mirrored position:", mesh.Positions[1])
	}
	if len(mesh.Indices) != 3 || mesh.Indices[1] != 2 || mesh.Indices[2] != 1 {
		t.Error("winding:", mesh.Indices)
	}
	if !nearVec3(mesh.Normals[0], geom.Vector3{Z: 1}) {
		t.Error("normal:", mesh.Normals[0])
	}
	if uv := mesh.UVs[0][2]; !near(uv.Y, 0) {
		t.Error("uv:", uv)
	}

	mat := tri.MeshRenderer.Material
	if mat == nil || mat.Name != "Skin" {
		t.Fatal("material:", mat)
	}
	if c := mat.Colors["_Color"]; !near(c.Z, 0.25) {
		t.Error("color:", c)
	}
	tex := mat.Textures["_MainTex"]
	if tex == nil || tex.Name != "skin" || !tex.Readable {
		t.Fatal("texture:", tex)
	}
	if img, err := tex.Decode(); err != nil || img.Bounds().Dx() != 2 {
		t.Error("texture image:", err)
	}
}

func TestLoadGLTFSkinned(t *testing.T) {
	s, err := LoadGLTF(testSkinnedGLB(t, false))
	if err != nil {
		t.Fatal(err)
	}
	root := s.Roots[0]
	if root.Animator == nil || root.Animator.Humanoid {
		t.Fatal("animator:", root.Animator)
	}
	hips, spine := root.Find("Hips"), root.Find("Hips/Spine")
	body := root.Find("Hips/Body")
	if hips == nil || spine == nil || body == nil || body.SkinnedMeshRenderer == nil {
		t.Fatal("tree:", root.Children)
	}
	r := body.SkinnedMeshRenderer
	if len(r.Bones) != 2 || r.Bones[0] != hips || r.Bones[1] != spine {
		t.Error("bones:", r.Bones)
	}
	if len(r.Mesh.BindPoses) != 2 || !near(r.Mesh.BindPoses[1][13], -1) || !r.Mesh.BindPoses[0].IsIdentity() {
		t.Error("bind poses:", r.Mesh.BindPoses)
	}
	if w := r.Mesh.Weights[1]; w.Indices[1] != 1 || !near(w.Weights[1], 0.5) {
		t.Error("weights:", w)
	}
	if !nearVec3(r.Mesh.Normals[0], geom.Vector3{Z: 1}) {
		t.Error("normal:", r.Mesh.Normals[0])
	}
	if len(r.Mesh.Indices) != 3 {
		t.Error("sequential indices:", r.Mesh.Indices)
	}

	if len(root.Animator.Clips) != 1 || root.Animator.Clips[0].Name != "Walk" {
		t.Fatal("clips:", root.Animator.Clips)
	}
	values := map[string][]float32{}
	for _, b := range root.Animator.Clips[0].Bindings {
		if b.Path != "Hips/Spine" {
			t.Error("binding path:", b.Path)
		}
		for _, k := range b.Keys {
			values[b.Property] = append(values[b.Property], k.Value)
		}
	}
	if v := values["m_LocalPosition.x"]; len(v) != 2 || !near(v[1], -2) {
		t.Error("translation x:", v)
	}
	if v := values["m_LocalRotation.y"]; len(v) != 2 || !near(v[1], -0.7071068) {
		t.Error("rotation y:", v)
	}
	if v := values["m_LocalRotation.w"]; len(v) != 2 || !near(v[1], 0.7071068) {
		t.Error("rotation w:", v)
	}

	// the converted scene exports as a skinned model with one clip
	written, err := NewExporter(DefaultExportOptions(), DirDestination(t.TempDir())).ExportSkinned(context.Background(), root, Binary)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 2 {
		t.Error("written:", written)
	}
}

func TestLoadGLTFVRM(t *testing.T) {
	s, err := LoadGLTF(testSkinnedGLB(t, true))
	if err != nil {
		t.Fatal(err)
	}
	if a := s.Roots[0].Animator; a == nil || !a.Humanoid {
		t.Error("VRM should be humanoid:", a)
	}
	_, err = NewExporter(DefaultExportOptions(), DirDestination(t.TempDir())).ExportSkinned(context.Background(), s.Roots[0], Binary)
	if err == nil {
		t.Error("humanoid export should fail")
	}
}
