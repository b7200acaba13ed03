package converter

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/umeshconv/geom"
	"github.com/binzume/umeshconv/scene"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const vrmExtension = "VRM"

// LoadGLTF reads a .gltf/.glb file. The result has a single root named after
// the file that holds the document's scene and an animator with every animation.
// Coordinates are converted to the left-handed convention by mirroring X.
func LoadGLTF(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return newGLTFToScene(doc, filepath.Dir(path)).Convert(name)
}

type gltfToScene struct {
	doc       *gltf.Document
	dir       string
	nodes     []*scene.Node
	materials map[uint32]*scene.Material
	textures  map[uint32]*scene.Texture
}

func newGLTFToScene(doc *gltf.Document, dir string) *gltfToScene {
	return &gltfToScene{
		doc:       doc,
		dir:       dir,
		materials: map[uint32]*scene.Material{},
		textures:  map[uint32]*scene.Texture{},
	}
}

func (c *gltfToScene) Convert(name string) (*scene.Scene, error) {
	doc := c.doc
	root := scene.NewNode(name)
	c.nodes = make([]*scene.Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		c.nodes[i] = c.convertNode(n, i)
	}
	isChild := make([]bool, len(doc.Nodes))
	for i, n := range doc.Nodes {
		for _, ch := range n.Children {
			if int(ch) >= len(c.nodes) || isChild[ch] {
				return nil, fmt.Errorf("converter: gltf: node %d has an invalid child %d", i, ch)
			}
			isChild[ch] = true
			c.nodes[i].AddChild(c.nodes[ch])
		}
	}

	var roots []uint32
	if len(doc.Scenes) > 0 {
		s := uint32(0)
		if doc.Scene != nil {
			s = *doc.Scene
		}
		if int(s) >= len(doc.Scenes) {
			return nil, fmt.Errorf("converter: gltf: scene %d not found", s)
		}
		roots = doc.Scenes[s].Nodes
	} else {
		for i := range doc.Nodes {
			if !isChild[i] {
				roots = append(roots, uint32(i))
			}
		}
	}
	for _, r := range roots {
		if int(r) >= len(c.nodes) || c.nodes[r].Parent != nil {
			return nil, fmt.Errorf("converter: gltf: invalid root node %d", r)
		}
		root.AddChild(c.nodes[r])
	}

	for i, n := range doc.Nodes {
		if n.Mesh == nil {
			continue
		}
		if err := c.convertMesh(c.nodes[i], n); err != nil {
			return nil, err
		}
	}

	if len(doc.Skins) > 0 || len(doc.Animations) > 0 {
		root.Animator = &scene.Animator{Humanoid: c.isVRM()}
		for i, a := range doc.Animations {
			clip, err := c.convertAnimation(root, a, i)
			if err != nil {
				return nil, err
			}
			root.Animator.Clips = append(root.Animator.Clips, clip)
		}
	}
	return &scene.Scene{Name: name, Roots: []*scene.Node{root}}, nil
}

func (c *gltfToScene) isVRM() bool {
	for _, e := range c.doc.ExtensionsUsed {
		if e == vrmExtension {
			return true
		}
	}
	_, ok := c.doc.Extensions[vrmExtension]
	return ok
}

// mirror converts a right-handed matrix: S*m*S with S = diag(-1, 1, 1, 1).
func mirror(m *geom.Matrix4) *geom.Matrix4 {
	s := geom.NewScaleMatrix4(-1, 1, 1)
	return s.Mul(m).Mul(s)
}

func (c *gltfToScene) convertNode(n *gltf.Node, i int) *scene.Node {
	name := n.Name
	if name == "" {
		name = fmt.Sprintf("node%d", i)
	}
	node := scene.NewNode(name)
	if n.MatrixOrDefault() != gltf.DefaultMatrix {
		m := geom.Matrix4(n.MatrixOrDefault())
		t, r, s := mirror(&m).Decompose()
		node.Position, node.Rotation, node.Scale = *t, *r, *s
		return node
	}
	tr := n.Translation
	rot := n.RotationOrDefault()
	sc := n.ScaleOrDefault()
	node.Position = geom.Vector3{X: -tr[0], Y: tr[1], Z: tr[2]}
	node.Rotation = geom.Quaternion{X: rot[0], Y: -rot[1], Z: -rot[2], W: rot[3]}
	node.Scale = geom.Vector3{X: sc[0], Y: sc[1], Z: sc[2]}
	return node
}

// convertMesh attaches the primitives of n's mesh. A mesh with more than one
// primitive gets one child node per primitive.
func (c *gltfToScene) convertMesh(node *scene.Node, n *gltf.Node) error {
	doc := c.doc
	if int(*n.Mesh) >= len(doc.Meshes) {
		return fmt.Errorf("converter: gltf: mesh %d not found", *n.Mesh)
	}
	src := doc.Meshes[*n.Mesh]

	var bones []*scene.Node
	var bindPoses []*geom.Matrix4
	if n.Skin != nil {
		var err error
		if bones, bindPoses, err = c.convertSkin(*n.Skin); err != nil {
			return err
		}
	}

	for pi, p := range src.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			log.Printf("WARNING: %s: primitive %d is not a triangle list", src.Name, pi)
			continue
		}
		mesh, err := c.convertPrimitive(p)
		if err != nil {
			return fmt.Errorf("converter: gltf: mesh %s: %w", src.Name, err)
		}
		mesh.Name = src.Name
		target := node
		if len(src.Primitives) > 1 {
			target = node.AddChild(scene.NewNode(fmt.Sprintf("%s_%d", node.Name, pi)))
			mesh.Name = fmt.Sprintf("%s_%d", src.Name, pi)
		}
		var mat *scene.Material
		if p.Material != nil {
			if mat, err = c.convertMaterial(*p.Material); err != nil {
				return err
			}
		}
		if bones != nil {
			mesh.BindPoses = bindPoses
			target.SkinnedMeshRenderer = &scene.SkinnedMeshRenderer{Mesh: mesh, Material: mat, Bones: bones}
		} else {
			target.MeshRenderer = &scene.MeshRenderer{Mesh: mesh, Material: mat}
		}
	}
	return nil
}

func (c *gltfToScene) accessor(i uint32) (*gltf.Accessor, error) {
	if int(i) >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d not found", i)
	}
	return c.doc.Accessors[i], nil
}

func (c *gltfToScene) convertPrimitive(p *gltf.Primitive) (*scene.Mesh, error) {
	doc := c.doc
	mesh := &scene.Mesh{}
	a, ok := p.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("no POSITION")
	}
	acr, err := c.accessor(a)
	if err != nil {
		return nil, err
	}
	pos, err := modeler.ReadPosition(doc, acr, [][3]float32{})
	if err != nil {
		return nil, err
	}
	for _, v := range pos {
		mesh.Positions = append(mesh.Positions, geom.Vector3{X: -v[0], Y: v[1], Z: v[2]})
	}

	if a, ok := p.Attributes["NORMAL"]; ok {
		acr, err := c.accessor(a)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(doc, acr, [][3]float32{})
		if err != nil {
			return nil, err
		}
		for _, v := range normals {
			mesh.Normals = append(mesh.Normals, geom.Vector3{X: -v[0], Y: v[1], Z: v[2]})
		}
	}
	if a, ok := p.Attributes["TANGENT"]; ok {
		acr, err := c.accessor(a)
		if err != nil {
			return nil, err
		}
		tangents, err := modeler.ReadTangent(doc, acr, [][4]float32{})
		if err != nil {
			return nil, err
		}
		for _, v := range tangents {
			mesh.Tangents = append(mesh.Tangents, geom.Vector4{X: -v[0], Y: v[1], Z: v[2], W: -v[3]})
		}
	}
	for ch := range mesh.UVs {
		a, ok := p.Attributes[fmt.Sprintf("TEXCOORD_%d", ch)]
		if !ok {
			continue
		}
		acr, err := c.accessor(a)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(doc, acr, [][2]float32{})
		if err != nil {
			return nil, err
		}
		for _, v := range uvs {
			mesh.UVs[ch] = append(mesh.UVs[ch], geom.Vector2{X: v[0], Y: 1 - v[1]})
		}
	}
	if a, ok := p.Attributes["COLOR_0"]; ok {
		acr, err := c.accessor(a)
		if err != nil {
			return nil, err
		}
		colors, err := modeler.ReadColor(doc, acr, [][4]uint8{})
		if err != nil {
			return nil, err
		}
		for _, v := range colors {
			mesh.Colors = append(mesh.Colors, geom.Vector4{
				X: float32(v[0]) / 255, Y: float32(v[1]) / 255, Z: float32(v[2]) / 255, W: float32(v[3]) / 255,
			})
		}
	}
	ja, hasJoints := p.Attributes["JOINTS_0"]
	wa, hasWeights := p.Attributes["WEIGHTS_0"]
	if hasJoints && hasWeights {
		jacr, err := c.accessor(ja)
		if err != nil {
			return nil, err
		}
		wacr, err := c.accessor(wa)
		if err != nil {
			return nil, err
		}
		joints, err := modeler.ReadJoints(doc, jacr, [][4]uint16{})
		if err != nil {
			return nil, err
		}
		weights, err := modeler.ReadWeights(doc, wacr, [][4]float32{})
		if err != nil {
			return nil, err
		}
		for i := 0; i < len(joints) && i < len(weights); i++ {
			var bw scene.BoneWeight
			for k := 0; k < 4; k++ {
				bw.Indices[k] = int(joints[i][k])
				bw.Weights[k] = weights[i][k]
			}
			mesh.Weights = append(mesh.Weights, bw)
		}
	}

	var indices []uint32
	if p.Indices != nil {
		acr, err := c.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		if indices, err = modeler.ReadIndices(doc, acr, []uint32{}); err != nil {
			return nil, err
		}
	} else {
		for i := range mesh.Positions {
			indices = append(indices, uint32(i))
		}
	}
	// mirroring flips the winding
	for i := 0; i+2 < len(indices); i += 3 {
		if int(indices[i]) >= len(pos) || int(indices[i+1]) >= len(pos) || int(indices[i+2]) >= len(pos) {
			return nil, fmt.Errorf("index out of range")
		}
		mesh.Indices = append(mesh.Indices, indices[i], indices[i+2], indices[i+1])
	}
	if len(mesh.Normals) == 0 {
		mesh.CalcNormals()
	}
	return mesh, nil
}

func (c *gltfToScene) convertSkin(i uint32) ([]*scene.Node, []*geom.Matrix4, error) {
	if int(i) >= len(c.doc.Skins) {
		return nil, nil, fmt.Errorf("converter: gltf: skin %d not found", i)
	}
	skin := c.doc.Skins[i]
	var bones []*scene.Node
	for _, j := range skin.Joints {
		if int(j) >= len(c.nodes) {
			return nil, nil, fmt.Errorf("converter: gltf: joint %d not found", j)
		}
		bones = append(bones, c.nodes[j])
	}
	var bindPoses []*geom.Matrix4
	if skin.InverseBindMatrices != nil {
		acr, err := c.accessor(*skin.InverseBindMatrices)
		if err != nil {
			return nil, nil, err
		}
		data, err := c.readFloats(acr, 16)
		if err != nil {
			return nil, nil, fmt.Errorf("converter: gltf: inverse bind matrices: %w", err)
		}
		for k := 0; k+16 <= len(data); k += 16 {
			var m geom.Matrix4
			copy(m[:], data[k:k+16])
			bindPoses = append(bindPoses, mirror(&m))
		}
	} else {
		for range bones {
			bindPoses = append(bindPoses, geom.NewMatrix4())
		}
	}
	return bones, bindPoses, nil
}

// readFloats reads a float accessor with n components per element.
func (c *gltfToScene) readFloats(acr *gltf.Accessor, n int) ([]float32, error) {
	if acr.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("unsupported component type %v", acr.ComponentType)
	}
	if acr.BufferView == nil {
		return make([]float32, int(acr.Count)*n), nil
	}
	data, err := c.bufferView(*acr.BufferView)
	if err != nil {
		return nil, err
	}
	stride := int(c.doc.BufferViews[*acr.BufferView].ByteStride)
	if stride == 0 {
		stride = n * 4
	}
	out := make([]float32, 0, int(acr.Count)*n)
	for e := 0; e < int(acr.Count); e++ {
		off := int(acr.ByteOffset) + e*stride
		if off+n*4 > len(data) {
			return nil, fmt.Errorf("accessor out of range")
		}
		for k := 0; k < n; k++ {
			out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(data[off+k*4:])))
		}
	}
	return out, nil
}

func (c *gltfToScene) bufferView(i uint32) ([]byte, error) {
	if int(i) >= len(c.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d not found", i)
	}
	bv := c.doc.BufferViews[i]
	if int(bv.Buffer) >= len(c.doc.Buffers) {
		return nil, fmt.Errorf("buffer %d not found", bv.Buffer)
	}
	data := c.doc.Buffers[bv.Buffer].Data
	end := int(bv.ByteOffset) + int(bv.ByteLength)
	if end > len(data) {
		return nil, fmt.Errorf("buffer view %d out of range", i)
	}
	return data[bv.ByteOffset:end], nil
}

func (c *gltfToScene) convertMaterial(i uint32) (*scene.Material, error) {
	if m, ok := c.materials[i]; ok {
		return m, nil
	}
	if int(i) >= len(c.doc.Materials) {
		return nil, fmt.Errorf("converter: gltf: material %d not found", i)
	}
	src := c.doc.Materials[i]
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("material%d", i)
	}
	mat := scene.NewMaterial(name)
	mat.Colors["_Color"] = geom.Vector4{X: 1, Y: 1, Z: 1, W: 1}
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		col := pbr.BaseColorFactorOrDefault()
		mat.Colors["_Color"] = geom.Vector4{X: col[0], Y: col[1], Z: col[2], W: col[3]}
		if pbr.BaseColorTexture != nil {
			tex, err := c.convertTexture(pbr.BaseColorTexture.Index)
			if err != nil {
				return nil, err
			}
			mat.Textures["_MainTex"] = tex
		}
	}
	if src.NormalTexture != nil && src.NormalTexture.Index != nil {
		tex, err := c.convertTexture(*src.NormalTexture.Index)
		if err != nil {
			return nil, err
		}
		mat.Textures["_BumpMap"] = tex
	}
	e := src.EmissiveFactor
	mat.Colors["_EmissionColor"] = geom.Vector4{X: e[0], Y: e[1], Z: e[2], W: 1}
	c.materials[i] = mat
	return mat, nil
}

var mimeExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

func (c *gltfToScene) convertTexture(i uint32) (*scene.Texture, error) {
	if t, ok := c.textures[i]; ok {
		return t, nil
	}
	if int(i) >= len(c.doc.Textures) || c.doc.Textures[i].Source == nil || int(*c.doc.Textures[i].Source) >= len(c.doc.Images) {
		return nil, fmt.Errorf("converter: gltf: texture %d has no image", i)
	}
	img := c.doc.Images[*c.doc.Textures[i].Source]
	tex := &scene.Texture{Readable: true}
	switch {
	case img.BufferView != nil:
		data, err := c.bufferView(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("converter: gltf: image: %w", err)
		}
		tex.Name = img.Name
		tex.Source = img.Name + mimeExtensions[img.MimeType]
		tex.Open = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	case strings.HasPrefix(img.URI, "data:"):
		comma := strings.IndexByte(img.URI, ',')
		if comma < 0 || !strings.HasSuffix(img.URI[:comma], ";base64") {
			return nil, fmt.Errorf("converter: gltf: unsupported data uri")
		}
		data, err := base64.StdEncoding.DecodeString(img.URI[comma+1:])
		if err != nil {
			return nil, fmt.Errorf("converter: gltf: image: %w", err)
		}
		tex.Name = img.Name
		tex.Source = img.Name + mimeExtensions[strings.TrimPrefix(img.URI[:comma-len(";base64")], "data:")]
		tex.Open = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	default:
		path := filepath.Join(c.dir, filepath.FromSlash(img.URI))
		tex.Source = img.URI
		tex.Name = img.Name
		if tex.Name == "" {
			tex.Name = strings.TrimSuffix(filepath.Base(img.URI), filepath.Ext(img.URI))
		}
		tex.Open = func() (io.ReadCloser, error) {
			return os.Open(path)
		}
	}
	if tex.Name == "" {
		tex.Name = fmt.Sprintf("texture%d", i)
	}
	c.textures[i] = tex
	return tex, nil
}

var gltfPathProperties = map[gltf.TRSProperty]struct {
	attr string
	n    int
}{
	gltf.TRSTranslation: {"m_LocalPosition", 3},
	gltf.TRSRotation:    {"m_LocalRotation", 4},
	gltf.TRSScale:       {"m_LocalScale", 3},
}

// mirrorSigns converts translation (-x) and rotation (-y, -z) keys.
var mirrorSigns = map[gltf.TRSProperty][4]float32{
	gltf.TRSTranslation: {-1, 1, 1, 1},
	gltf.TRSRotation:    {1, -1, -1, 1},
	gltf.TRSScale:       {1, 1, 1, 1},
}

// convertAnimation merges the channels of a into curve bindings relative to root.
func (c *gltfToScene) convertAnimation(root *scene.Node, a *gltf.Animation, index int) (*scene.Clip, error) {
	name := a.Name
	if name == "" {
		name = fmt.Sprintf("animation%d", index)
	}
	clip := &scene.Clip{Name: name}
	for _, ch := range a.Channels {
		prop, ok := gltfPathProperties[ch.Target.Path]
		if !ok || ch.Target.Node == nil || ch.Sampler == nil {
			log.Printf("WARNING: %s: unsupported channel %v", name, ch.Target.Path)
			continue
		}
		if int(*ch.Target.Node) >= len(c.nodes) || int(*ch.Sampler) >= len(a.Samplers) {
			return nil, fmt.Errorf("converter: gltf: animation %s: invalid channel", name)
		}
		path, ok := c.nodes[*ch.Target.Node].RelativePath(root)
		if !ok {
			log.Printf("WARNING: %s: node %s is not in the scene", name, c.nodes[*ch.Target.Node].Name)
			continue
		}
		sampler := a.Samplers[*ch.Sampler]
		if sampler.Input == nil || sampler.Output == nil {
			return nil, fmt.Errorf("converter: gltf: animation %s: sampler without data", name)
		}
		inAcr, err := c.accessor(*sampler.Input)
		if err != nil {
			return nil, err
		}
		outAcr, err := c.accessor(*sampler.Output)
		if err != nil {
			return nil, err
		}
		times, err := c.readFloats(inAcr, 1)
		if err != nil {
			return nil, fmt.Errorf("converter: gltf: animation %s: %w", name, err)
		}
		values, err := c.readFloats(outAcr, prop.n)
		if err != nil {
			return nil, fmt.Errorf("converter: gltf: animation %s: %w", name, err)
		}
		// cubic spline outputs are (in-tangent, value, out-tangent) triples
		stride, offset := 1, 0
		if sampler.Interpolation == gltf.InterpolationCubicSpline {
			stride, offset = 3, 1
		}
		signs := mirrorSigns[ch.Target.Path]
		for k := 0; k < prop.n; k++ {
			b := &scene.CurveBinding{Path: path, Property: prop.attr + "." + string("xyzw"[k])}
			for i, t := range times {
				vi := (i*stride + offset) * prop.n
				if vi+k >= len(values) {
					break
				}
				b.Keys = append(b.Keys, scene.Keyframe{Time: t, Value: values[vi+k] * signs[k]})
			}
			clip.Bindings = append(clip.Bindings, b)
		}
	}
	return clip, nil
}
