package unity

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/binzume/umeshconv/geom"
)

const eps = 1e-5

func TestParseYamlDocuments(t *testing.T) {
	docs := ParseYamlDocuments([]byte(testScene))
	if len(docs) != 10 {
		t.Fatal("unexpected document count", len(docs))
	}
	if docs[0].ClassID() != 29 || docs[1].ClassID() != ClassGameObject {
		t.Error("unexpected class", docs[0].ClassID(), docs[1].ClassID())
	}
	if docs[1].Tag != "tag:unity3d.com,2011:1" {
		t.Error("tag not resolved", docs[1].Tag)
	}
	if docs[2].FileID() != 101 {
		t.Error("unexpected file id", docs[2].FileID())
	}

	docs = ParseYamlDocuments([]byte("--- !u!4 &7 stripped\nTransform:\n  m_Father: {fileID: 0}\n"))
	if len(docs) != 1 || !docs[0].Stripped || docs[0].FileID() != 7 {
		t.Error("stripped document", docs)
	}
	// without a %TAG directive the shorthand is kept
	if docs[0].Tag != "!u!4" || docs[0].ClassID() != 4 {
		t.Error("unexpected class", docs[0].Tag, docs[0].ClassID())
	}
	docs = ParseYamlDocuments([]byte("--- !u!1001 &9\nPrefabInstance:\n  m_ObjectHideFlags: 0\n"))
	if len(docs) != 1 || docs[0].ClassID() != 1001 {
		t.Error("unexpected class", docs)
	}
}

func TestOpenAssets(t *testing.T) {
	assets, err := OpenAssets(writeProject(t))
	if err != nil {
		t.Fatal(err)
	}
	defer assets.Close()

	if n := len(assets.GetAllAssets()); n != 6 {
		t.Error("unexpected asset count", n)
	}
	a := assets.GetAsset(sceneGUID)
	if a == nil || a.Path != "Assets/Scenes/main.unity" {
		t.Fatal("scene asset", a)
	}
	if assets.GetAssetByPath("Assets/Materials/Skin.mat").GUID != materialGUID {
		t.Error("material by path")
	}
	f, err := assets.Open(a.Path)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	if _, err := assets.Open("Assets/missing.unity"); err == nil {
		t.Error("open missing asset should fail")
	}
}

func TestOpenPackage(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "test.unitypackage")
	w, err := os.Create(pkgPath)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)
	add := func(name, content string) {
		tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg})
		tw.Write([]byte(content))
	}
	add(materialGUID+"/pathname", "Assets/Materials/Skin.mat\n00")
	add(materialGUID+"/asset", testMaterial)
	add(materialGUID+"/asset.meta", meta(materialGUID, ""))
	add(textureGUID+"/pathname", "Assets/Textures/skin.png")
	add(textureGUID+"/asset.meta", meta(textureGUID, textureMeta))
	tw.Close()
	gw.Close()
	w.Close()

	assets, err := OpenPackage(pkgPath)
	if err != nil {
		t.Fatal(err)
	}
	tmp := assets.(*packageFs).dir
	if n := len(assets.GetAllAssets()); n != 2 {
		t.Error("unexpected asset count", n)
	}
	if a := assets.GetAsset(materialGUID); a == nil || a.Path != "Assets/Materials/Skin.mat" {
		t.Error("material asset", a)
	}
	mat, err := LoadMaterial(assets, materialGUID)
	if err != nil || mat.Name != "RobotSkin" {
		t.Error("material from package", mat, err)
	}
	m, err := LoadMeta(assets, "Assets/Textures/skin.png")
	if err != nil || m.TextureImporter == nil || !m.TextureImporter.Readable() {
		t.Error("texture meta from package", m, err)
	}
	if err := assets.Close(); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("temporary directory not removed", tmp)
	}
}

func TestOpenPackageTraversal(t *testing.T) {
	pkgPath := filepath.Join(t.TempDir(), "evil.unitypackage")
	w, _ := os.Create(pkgPath)
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)
	tw.WriteHeader(&tar.Header{Name: "../evil", Mode: 0644, Size: 1, Typeflag: tar.TypeReg})
	tw.Write([]byte("x"))
	tw.Close()
	gw.Close()
	w.Close()

	if _, err := OpenPackage(pkgPath); err == nil {
		t.Error("path outside of the package should be rejected")
	}
}

func TestLoadScene(t *testing.T) {
	assets, err := OpenAssets(writeProject(t))
	if err != nil {
		t.Fatal(err)
	}
	scene, err := LoadScene(assets, "Assets/Scenes/main.unity")
	if err != nil {
		t.Fatal(err)
	}
	if scene.GUID != sceneGUID {
		t.Error("scene guid", scene.GUID)
	}
	if len(scene.Objects) != 2 || scene.Objects[0].Name != "Ground" || scene.Objects[1].Name != "Robot" {
		t.Fatal("unexpected roots", scene.Objects)
	}
	if scene.Objects[0].IsActive != 0 {
		t.Error("Ground should be inactive")
	}

	robot := scene.Objects[1]
	tr := robot.GetTransform()
	if tr == nil || tr.LocalPosition != (geom.Vector3{X: 1, Y: 2, Z: 3}) {
		t.Error("robot transform", tr)
	}
	var animator *Animator
	if !robot.GetComponent(&animator) || animator.Controller.GUID != controllerGUID {
		t.Error("animator", animator)
	}
	var renderer *MeshRenderer
	if robot.GetComponent(&renderer) {
		t.Error("robot has no renderer")
	}

	children := robot.Children()
	if len(children) != 1 || children[0].Name != "Body" {
		t.Fatal("unexpected children", children)
	}
	body := children[0]
	if body.GetTransform().GetParent() != tr {
		t.Error("parent transform")
	}
	if geom.Abs(body.GetTransform().LocalRotation.Y-0.7071068) > eps {
		t.Error("rotation", body.GetTransform().LocalRotation)
	}
	if !body.GetComponent(&renderer) || len(renderer.Materials) != 1 || renderer.Materials[0].GUID != materialGUID {
		t.Fatal("renderer", renderer)
	}
	filter := renderer.GetMeshFilter()
	if filter == nil {
		t.Fatal("no mesh filter")
	}
	if m := GetBuiltinMesh(filter.Mesh); m == nil || m.Name != "Cube" {
		t.Error("builtin mesh", m)
	}
}

func TestLoadSceneMissing(t *testing.T) {
	assets, _ := OpenAssets(writeProject(t))
	if _, err := LoadScene(assets, "Assets/Scenes/none.unity"); err == nil {
		t.Error("missing scene should fail")
	}
}

func TestLoadMaterial(t *testing.T) {
	assets, _ := OpenAssets(writeProject(t))
	mat, err := LoadMaterial(assets, materialGUID)
	if err != nil {
		t.Fatal(err)
	}
	if mat.Name != "RobotSkin" {
		t.Error("name", mat.Name)
	}
	if c := mat.GetColorProperty("_Color"); c == nil || c.Vector4() != (geom.Vector4{X: 1, Y: 0.5, Z: 0.25, W: 1}) {
		t.Error("_Color", c)
	}
	if tex := mat.GetTextureProperty("_MainTex"); tex == nil || tex.Texture.GUID != textureGUID {
		t.Error("_MainTex", tex)
	}
	if tex := mat.GetTextureProperty("_BumpMap"); tex == nil || tex.Texture.IsValid() {
		t.Error("_BumpMap should be empty", tex)
	}
	if v, ok := mat.GetFloatProperty("_Glossiness"); !ok || v != 0.5 {
		t.Error("_Glossiness", v)
	}
	if _, err := LoadMaterial(assets, "00000000000000000000000000000099"); err == nil {
		t.Error("unknown guid should fail")
	}
}

func TestTextureImporter(t *testing.T) {
	assets, _ := OpenAssets(writeProject(t))
	m, err := LoadMeta(assets, "Assets/Textures/skin.png")
	if err != nil {
		t.Fatal(err)
	}
	ti := m.TextureImporter
	if ti == nil || !ti.Readable() || ti.Compressed() {
		t.Fatal("unexpected importer settings", ti)
	}
	ti.PlatformSettings[1].Overridden = 1
	if !ti.Compressed() {
		t.Error("overridden ASTC format should be compressed")
	}
	ti.PlatformSettings[1].Overridden = 0
	ti.TextureFormat = 12
	if !ti.Compressed() {
		t.Error("DXT5 should be compressed")
	}
}

func TestIsHumanoidAvatar(t *testing.T) {
	assets, _ := OpenAssets(writeProject(t))
	if !IsHumanoidAvatar(assets, &Ref{FileID: 9000000, GUID: modelGUID}) {
		t.Error("model should be humanoid")
	}
	if IsHumanoidAvatar(assets, &Ref{FileID: 9000000, GUID: textureGUID}) {
		t.Error("texture is not a model")
	}
	if IsHumanoidAvatar(assets, nil) || IsHumanoidAvatar(assets, &Ref{}) {
		t.Error("empty reference")
	}
}

func TestLoadAnimationClip(t *testing.T) {
	assets, _ := OpenAssets(writeProject(t))
	clip, err := LoadAnimationClip(assets, "Assets/Anim/Wave.anim")
	if err != nil {
		t.Fatal(err)
	}
	if clip.Name != "Wave" {
		t.Error("name", clip.Name)
	}
	curves := clip.CurveBindings()
	if len(curves) != 1+3+4 {
		t.Fatal("unexpected curve count", len(curves))
	}
	if curves[0].Attribute != "m_IsActive" {
		t.Error("float curve first", curves[0].Attribute)
	}
	var rotY *FloatCurve
	for i := range curves {
		if curves[i].Attribute == "m_LocalRotation.y" {
			rotY = &curves[i]
		}
	}
	if rotY == nil || rotY.Path != "Body" || len(rotY.Curve.Keys) != 2 {
		t.Fatal("rotation curve", rotY)
	}
	if rotY.Curve.Keys[1].Time != 1 || geom.Abs(rotY.Curve.Keys[1].Value-0.7071068) > eps {
		t.Error("rotation key", rotY.Curve.Keys[1])
	}

	clip.EditorCurves = []FloatCurve{{Attribute: "m_LocalPosition.x", Path: "Body"}}
	if len(clip.CurveBindings()) != 1 {
		t.Error("editor curves should be used as is")
	}
}

func TestLoadControllerClips(t *testing.T) {
	assets, _ := OpenAssets(writeProject(t))
	clips, err := LoadControllerClips(assets, &Ref{FileID: 9100000, GUID: controllerGUID})
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 1 || clips[0].Name != "Wave" {
		t.Error("unexpected clips", clips)
	}
	if clips, err := LoadControllerClips(assets, nil); clips != nil || err != nil {
		t.Error("no controller", clips, err)
	}
	if _, err := LoadControllerClips(assets, &Ref{FileID: 1, GUID: "missing"}); err == nil {
		t.Error("missing controller should fail")
	}
}

func TestBuiltinMeshes(t *testing.T) {
	cube := GetBuiltinMesh(&Ref{FileID: 10202, GUID: builtinExtraGUID, Type: 0})
	if cube == nil || len(cube.Vertices) != 8 || len(cube.Indices) != 36 {
		t.Fatal("unexpected cube", cube)
	}
	if GetBuiltinMesh(&Ref{FileID: 10202, GUID: materialGUID}) != nil || GetBuiltinMesh(nil) != nil {
		t.Error("not a builtin mesh")
	}

	for ref, name := range UnityMeshes {
		ref := ref
		m := GetBuiltinMesh(&ref)
		if m == nil || m.Name != name {
			t.Fatal("builtin mesh", name)
		}
		if len(m.UVs) != len(m.Vertices) || len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
			t.Error(name, "unexpected sizes", len(m.Vertices), len(m.UVs), len(m.Indices))
		}
		var center geom.Vector3
		for _, v := range m.Vertices {
			v := v
			center = *center.Add(&v)
		}
		center = *center.Scale(1 / float32(len(m.Vertices)))
		for i := 0; i+2 < len(m.Indices); i += 3 {
			if int(m.Indices[i+2]) >= len(m.Vertices) {
				t.Fatal(name, "index out of range")
			}
			a, b, c := m.Vertices[m.Indices[i]], m.Vertices[m.Indices[i+1]], m.Vertices[m.Indices[i+2]]
			n := b.Sub(&a).Cross(c.Sub(&a))
			dir := a.Add(&b).Add(&c).Scale(1.0 / 3).Sub(&center)
			if name != "Quad" && name != "Plane" && n.Dot(dir) < -eps {
				t.Error(name, "triangle faces inwards", i/3)
				break
			}
		}
	}

	quad := GetBuiltinMesh(&Ref{FileID: 10210, GUID: builtinExtraGUID})
	a, b, c := quad.Vertices[quad.Indices[0]], quad.Vertices[quad.Indices[1]], quad.Vertices[quad.Indices[2]]
	if n := b.Sub(&a).Cross(c.Sub(&a)); n.Z >= 0 {
		t.Error("quad should face -z", n)
	}
}
