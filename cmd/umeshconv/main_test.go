package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/binzume/umeshconv/umesh"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// writeTriangle saves a glb with one triangle, optionally animated.
func writeTriangle(t *testing.T, dir string, animated bool) string {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	doc.Meshes = []*gltf.Mesh{{
		Name:       "Tri",
		Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{"POSITION": pos, "TEXCOORD_0": uv}}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "Tri", Mesh: gltf.Index(0), Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}}}
	doc.Scenes[0].Nodes = []uint32{0}
	if animated {
		times := modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, []float32{0, 1})
		values := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {0, 1, 0}})
		doc.Animations = []*gltf.Animation{{
			Name:     "Jump",
			Samplers: []*gltf.AnimationSampler{{Input: gltf.Index(times), Output: gltf.Index(values)}},
			Channels: []*gltf.Channel{{Sampler: gltf.Index(0), Target: gltf.ChannelTarget{Node: gltf.Index(0), Path: gltf.TRSTranslation}}},
		}}
	}
	path := filepath.Join(dir, "tri.glb")
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func runArgs(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunUsage(t *testing.T) {
	if code, _, _ := runArgs(); code != exitUsage {
		t.Error("no args:", code)
	}
	if code, _, _ := runArgs("-unknown", "a.glb"); code != exitUsage {
		t.Error("unknown flag:", code)
	}
	if code, _, _ := runArgs("model.obj"); code != exitUsage {
		t.Error("unsupported input:", code)
	}
	if code, _, _ := runArgs("model.glb", "model.usab"); code != exitUsage {
		t.Error("clip output:", code)
	}
	if code, _, _ := runArgs("-vertex", "position,bogus", "model.glb"); code != exitUsage {
		t.Error("bad vertex format:", code)
	}
}

func TestRunDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeTriangle(t, dir, false)
	code, stdout, stderr := runArgs(input)
	if code != exitOK {
		t.Fatal("exit code:", code, stderr)
	}
	output := filepath.Join(dir, "tri.umb")
	if strings.TrimSpace(stdout) != output {
		t.Error("stdout:", stdout)
	}
	doc, err := umesh.Load(output)
	if err != nil {
		t.Fatal(err)
	}
	if m, ok := doc.(*umesh.StaticModel); !ok || len(m.Meshes) != 1 || m.Format != umesh.DefaultVertexFormat {
		t.Error("model:", doc)
	}
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	input := writeTriangle(t, dir, false)
	config := filepath.Join(dir, "export.json")
	if err := os.WriteFile(config, []byte(`{"colorProperties": ["_Tint"], "vertex": {"position": true, "color": true}}`), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "out.uma")
	if code, _, stderr := runArgs("-config", config, "-vertex", "position,uv1", input, output); code != exitOK {
		t.Fatal("exit code:", code, stderr)
	}
	doc, err := umesh.Load(output)
	if err != nil {
		t.Fatal(err)
	}
	m := doc.(*umesh.StaticModel)
	if m.Format != umesh.Position|umesh.UV1 {
		t.Error("format:", m.Format)
	}
	if c := m.Meshes[0].Material.Colors; len(c) != 1 || c[0].Name != "_Tint" {
		t.Error("colors:", c)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("vertex: [\n"), 0644)
	if code, _, _ := runArgs("-config", bad, input); code != exitError {
		t.Error("bad config:", code)
	}
}

func TestRunSkinnedAndInfo(t *testing.T) {
	dir := t.TempDir()
	input := writeTriangle(t, dir, true)
	output := filepath.Join(dir, "out.usa")
	code, stdout, stderr := runArgs(input, output)
	if code != exitOK {
		t.Fatal("exit code:", code, stderr)
	}
	clip := filepath.Join(dir, "outJumpanim.usaa")
	if lines := strings.Fields(stdout); len(lines) != 2 || lines[1] != clip {
		t.Error("stdout:", stdout)
	}

	code, stdout, _ = runArgs("-info", output)
	if code != exitOK || !strings.Contains(stdout, "skinned model") || !strings.Contains(stdout, "  Tri pos=") {
		t.Error("info:", code, stdout)
	}
	code, stdout, _ = runArgs(clip)
	if code != exitOK || !strings.Contains(stdout, "track Tri") {
		t.Error("clip info:", code, stdout)
	}

	binary := filepath.Join(dir, "out.usb")
	if code, _, stderr := runArgs(output, binary); code != exitOK {
		t.Fatal("re-encode:", code, stderr)
	}
	if doc, err := umesh.Load(binary); err != nil {
		t.Error(err)
	} else if _, ok := doc.(*umesh.SkinnedModel); !ok {
		t.Errorf("unexpected type %T", doc)
	}
	if code, _, _ := runArgs(output, filepath.Join(dir, "out.umb")); code != exitUsage {
		t.Error("skinned to static re-encode:", code)
	}
}

func TestRunSkinnedWithoutAnimator(t *testing.T) {
	dir := t.TempDir()
	input := writeTriangle(t, dir, false)
	if code, _, _ := runArgs(input, filepath.Join(dir, "out.usb")); code != exitError {
		t.Error("exit code:", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.usb")); err == nil {
		t.Error("output should not be written")
	}
}
