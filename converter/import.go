package converter

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/umeshconv/scene"
	"github.com/binzume/umeshconv/umesh"
)

// ImportRootName is the name of the node holding the meshes of a static model.
const ImportRootName = "UmbParent"

// ImportStatic reads a .uma/.umb file. Each mesh record becomes a child of a
// "UmbParent" node named by its index. Textures are looked up next to the file.
func ImportStatic(path string) (*scene.Node, error) {
	doc, err := umesh.Load(path)
	if err != nil {
		return nil, err
	}
	model, ok := doc.(*umesh.StaticModel)
	if !ok {
		return nil, fmt.Errorf("converter: %s is not a static model", path)
	}

	materials := newMaterialImporter(filepath.Dir(path), model.Meshes)
	root := scene.NewNode(ImportRootName)
	for i, m := range model.Meshes {
		n := root.AddChild(scene.NewNode(fmt.Sprint(i)))
		n.MeshRenderer = &scene.MeshRenderer{
			Mesh:     importMesh(fmt.Sprintf("%d_mesh", i), m, model.Format),
			Material: materials.get(i),
		}
	}
	return root, nil
}

// ImportSkinned reads a .usa/.usb file. The hierarchy becomes a node tree and
// each mesh record a child "<i>_mesh" of the root whose bones are resolved by name.
func ImportSkinned(path string) (*scene.Node, error) {
	doc, err := umesh.Load(path)
	if err != nil {
		return nil, err
	}
	model, ok := doc.(*umesh.SkinnedModel)
	if !ok {
		return nil, fmt.Errorf("converter: %s is not a skinned model", path)
	}

	nodes := make([]*scene.Node, model.Hierarchy.Len())
	for id := range model.Hierarchy.Nodes {
		hn := &model.Hierarchy.Nodes[id]
		n := scene.NewNode(hn.Name)
		n.Position, n.Rotation, n.Scale = hn.Position, hn.Rotation, hn.Scale
		nodes[id] = n
	}
	for id := range model.Hierarchy.Nodes {
		for _, c := range model.Hierarchy.Nodes[id].Children {
			nodes[id].AddChild(nodes[c])
		}
	}
	root := nodes[0]

	materials := newMaterialImporter(filepath.Dir(path), model.Meshes)
	for i, m := range model.Meshes {
		name := fmt.Sprintf("%d_mesh", i)
		mesh := importMesh(name, m, model.Format)
		r := &scene.SkinnedMeshRenderer{Mesh: mesh, Material: materials.get(i)}
		for _, bp := range m.BindPoses {
			bone := root.FindByName(bp.Name)
			if bone == nil {
				log.Printf("WARNING: %s: bone %s not found", path, bp.Name)
			}
			r.Bones = append(r.Bones, bone)
			mat := bp.Matrix
			mesh.BindPoses = append(mesh.BindPoses, &mat)
		}
		n := root.AddChild(scene.NewNode(name))
		n.SkinnedMeshRenderer = r
	}
	root.Animator = &scene.Animator{}
	return root, nil
}

// ImportClip reads a .usaa/.usab file. Track names are resolved below root
// to binding paths; unknown names are used as paths as is. root may be nil.
func ImportClip(path string, root *scene.Node) (*scene.Clip, error) {
	doc, err := umesh.Load(path)
	if err != nil {
		return nil, err
	}
	clip, ok := doc.(*umesh.Clip)
	if !ok {
		return nil, fmt.Errorf("converter: %s is not an animation clip", path)
	}

	name := clip.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		name = strings.TrimSuffix(name, "anim")
	}
	c := &scene.Clip{Name: name}
	for _, tr := range clip.Tracks {
		bindingPath := tr.Name
		if root != nil {
			if n := root.FindByName(tr.Name); n != nil {
				bindingPath, _ = n.RelativePath(root)
			} else {
				log.Printf("WARNING: %s: node %s not found", path, tr.Name)
			}
		}
		for ci, cv := range tr.Curves {
			b := &scene.CurveBinding{Path: bindingPath, Property: umesh.CurveProperty(ci)}
			for k := range cv.Times {
				b.Keys = append(b.Keys, scene.Keyframe{Time: cv.Times[k], Value: cv.Values[k]})
			}
			c.Bindings = append(c.Bindings, b)
		}
	}
	return c, nil
}

func importMesh(name string, m *umesh.Mesh, format umesh.VertexFormat) *scene.Mesh {
	src := m.Geometry.SourceMesh(format)
	mesh := &scene.Mesh{
		Name:      name,
		Positions: src.Positions,
		Normals:   src.Normals,
		Tangents:  src.Tangents,
		UVs:       src.UVs,
		Colors:    src.Colors,
		Indices:   src.Indices,
	}
	for _, w := range src.Weights {
		var bw scene.BoneWeight
		for i := range w.Indices {
			bw.Indices[i] = int(w.Indices[i])
		}
		bw.Weights = w.Weights
		mesh.Weights = append(mesh.Weights, bw)
	}
	return mesh
}

// materialImporter shares one scene material per material name.
type materialImporter struct {
	dir       string
	materials []*umesh.Material
	index     []int
	imported  []*scene.Material
}

func newMaterialImporter(dir string, meshes []*umesh.Mesh) *materialImporter {
	materials, index := umesh.DedupMaterials(meshes)
	return &materialImporter{
		dir:       dir,
		materials: materials,
		index:     index,
		imported:  make([]*scene.Material, len(materials)),
	}
}

// get returns the material of mesh i.
func (im *materialImporter) get(i int) *scene.Material {
	id := im.index[i]
	if im.imported[id] != nil {
		return im.imported[id]
	}
	src := im.materials[id]
	mat := scene.NewMaterial(src.Name)
	for _, c := range src.Colors {
		mat.Colors[c.Name] = c.Value
	}
	for _, t := range src.Textures {
		if t.File == "" {
			continue
		}
		if tex := im.texture(t.File, t.Name); tex != nil {
			mat.Textures[t.Name] = tex
		}
	}
	im.imported[id] = mat
	return mat
}

// texture opens <dir>/<file>. The texture name drops the property suffix of the file name.
func (im *materialImporter) texture(file, property string) *scene.Texture {
	path := filepath.Join(im.dir, file)
	if _, err := os.Stat(path); err != nil {
		log.Printf("WARNING: texture %s not found", path)
		return nil
	}
	return &scene.Texture{
		Name:     strings.TrimSuffix(strings.TrimSuffix(file, filepath.Ext(file)), property),
		Source:   file,
		Readable: true,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}
