package scene

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/binzume/umeshconv/geom"
	"github.com/ftrvxmtrx/tga"
)

const eps = 1e-5

func testTree() *Scene {
	root := NewNode("Root")
	body := root.AddChild(NewNode("Body"))
	body.Position = geom.Vector3{X: 1}
	arm := body.AddChild(NewNode("Arm"))
	arm.Position = geom.Vector3{Y: 2}
	arm.Rotation = *geom.NewEulerDegrees(0, 90, 0, geom.RotationOrderUnity).ToQuaternion()
	hand := arm.AddChild(NewNode("Hand"))
	hand.Position = geom.Vector3{X: 1}
	hidden := root.AddChild(NewNode("Hidden"))
	hidden.Active = false
	hidden.AddChild(NewNode("Child"))
	return &Scene{Name: "test", Roots: []*Node{root, NewNode("Light")}}
}

func TestNodeFind(t *testing.T) {
	s := testTree()
	root := s.Roots[0]
	hand := root.Find("Body/Arm/Hand")
	if hand == nil || hand.Name != "Hand" {
		t.Fatal("Find failed", hand)
	}
	if root.Find("") != root || root.Find("Body/Leg") != nil {
		t.Error("Find edge cases")
	}
	if s.FindByName("Child") == nil || s.FindByName("Light") != s.Roots[1] || s.FindByName("None") != nil {
		t.Error("FindByName")
	}
	if hand.Path() != "Root/Body/Arm/Hand" {
		t.Error("Path", hand.Path())
	}
	if p, ok := hand.RelativePath(root.Find("Body")); !ok || p != "Arm/Hand" {
		t.Error("RelativePath", p)
	}
	if p, ok := hand.RelativePath(hand); !ok || p != "" {
		t.Error("RelativePath to itself", p)
	}
	if _, ok := hand.RelativePath(s.Roots[1]); ok {
		t.Error("Light is not an ancestor")
	}
}

func TestWorldMatrix(t *testing.T) {
	hand := testTree().FindByName("Hand")
	p := hand.WorldMatrix().ApplyTo(&geom.Vector3{})
	// Arm is rotated 90 degrees around y, so the hand's +x offset becomes -z.
	if geom.Abs(p.X-1) > eps || geom.Abs(p.Y-2) > eps || geom.Abs(p.Z+1) > eps {
		t.Error("unexpected world position", p)
	}
}

func TestMeshNodes(t *testing.T) {
	s := testTree()
	mesh := &Mesh{Positions: []geom.Vector3{{}, {X: 1}, {Y: 1}}, Indices: []uint32{0, 1, 2}}
	s.FindByName("Arm").MeshRenderer = &MeshRenderer{Mesh: mesh}
	s.FindByName("Child").MeshRenderer = &MeshRenderer{Mesh: mesh}
	s.FindByName("Body").MeshRenderer = &MeshRenderer{}

	nodes := s.MeshNodes()
	if len(nodes) != 1 || nodes[0].Name != "Arm" {
		t.Error("unexpected mesh nodes", nodes)
	}
	if s.FindByName("Child").ActiveInHierarchy() {
		t.Error("Child should be inactive")
	}
}

func TestCalcNormals(t *testing.T) {
	// clockwise seen from -z
	m := &Mesh{
		Positions: []geom.Vector3{{}, {Y: 1}, {X: 1, Y: 1}, {X: 1}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
	m.CalcNormals()
	if len(m.Normals) != 4 {
		t.Fatal("normal count", len(m.Normals))
	}
	for _, n := range m.Normals {
		if geom.Abs(n.Z+1) > eps {
			t.Error("unexpected normal", n)
		}
	}
}

func TestTextureDecode(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	opened := 0
	tex := &Texture{Name: "red", Source: "red.png", Open: func() (io.ReadCloser, error) {
		opened++
		return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
	}}
	decoded, err := tex.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if r, _, _, _ := decoded.At(1, 1).RGBA(); r != 0xffff {
		t.Error("unexpected pixel", decoded.At(1, 1))
	}
	tex.Decode()
	if opened != 1 {
		t.Error("decoded image should be cached", opened)
	}

	if _, err := (&Texture{Name: "none"}).Decode(); err == nil {
		t.Error("texture without source should fail")
	}
	broken := &Texture{Name: "broken", Source: "broken.tga", Open: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte("not an image"))), nil
	}}
	if _, err := broken.Decode(); err == nil {
		t.Error("broken image should fail")
	}
}

func TestDecodeImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.NRGBA{G: 255, A: 255})
	var pngData, tgaData bytes.Buffer
	if err := png.Encode(&pngData, img); err != nil {
		t.Fatal(err)
	}
	if err := tga.Encode(&tgaData, img); err != nil {
		t.Fatal(err)
	}

	// png must not be taken by the tga decoder
	for _, name := range []string{"a.png", "a.PNG", "noext", "image.bin"} {
		decoded, err := DecodeImage(pngData.Bytes(), name)
		if err != nil {
			t.Fatal(name, err)
		}
		if _, g, _, _ := decoded.At(2, 1).RGBA(); g != 0xffff {
			t.Error(name, "unexpected pixel", decoded.At(2, 1))
		}
	}

	tex := &Texture{Name: "green", Source: "green.tga", Open: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(tgaData.Bytes())), nil
	}}
	decoded, err := tex.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds().Dx() != 3 || decoded.Bounds().Dy() != 2 {
		t.Error("unexpected size", decoded.Bounds())
	}
	if _, g, _, _ := decoded.At(2, 1).RGBA(); g != 0xffff {
		t.Error("unexpected pixel", decoded.At(2, 1))
	}

	if _, err := DecodeImage([]byte("not an image"), "unknown"); err != image.ErrFormat {
		t.Error("unknown data:", err)
	}
}
