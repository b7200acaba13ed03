package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/binzume/umeshconv/scene"
	"github.com/binzume/umeshconv/umesh"
)

var ErrUnsupportedInput = errors.New("converter: unsupported input")

type Encoding int

const (
	Text Encoding = iota
	Binary
)

func (enc Encoding) kind(text umesh.Kind) umesh.Kind {
	if enc == Binary {
		return text.Binary()
	}
	return text
}

// EncodingOf returns the encoding of a file kind.
func EncodingOf(kind umesh.Kind) Encoding {
	if kind.IsBinary() {
		return Binary
	}
	return Text
}

const defaultMaterialName = "Default-Material"

// Exporter writes host scenes as umesh files.
type Exporter struct {
	Options     ExportOptions
	Progress    ProgressSink
	Destination FileDestinationProvider
}

func NewExporter(opts ExportOptions, dest FileDestinationProvider) *Exporter {
	return &Exporter{Options: opts, Progress: NopProgress, Destination: dest}
}

func (e *Exporter) progress(label string, done, total int) {
	if e.Progress != nil {
		e.Progress.Progress(label, done, total)
	}
}

// ExportStatic writes every node with a mesh renderer into one static model
// in world space. It returns the written path, or nothing when the
// destination was cancelled.
func (e *Exporter) ExportStatic(ctx context.Context, nodes []*scene.Node, enc Encoding) ([]string, error) {
	suggested := ""
	if len(nodes) > 0 {
		suggested = nodes[0].Name
	}
	return e.exportStatic(ctx, nodes, enc, suggested)
}

// ExportScene exports every active mesh node of s.
func (e *Exporter) ExportScene(ctx context.Context, s *scene.Scene, enc Encoding) ([]string, error) {
	return e.exportStatic(ctx, s.MeshNodes(), enc, s.Name)
}

func (e *Exporter) exportStatic(ctx context.Context, nodes []*scene.Node, enc Encoding, suggested string) ([]string, error) {
	var meshNodes []*scene.Node
	for _, n := range nodes {
		if n.MeshRenderer != nil && n.MeshRenderer.Mesh != nil {
			meshNodes = append(meshNodes, n)
		}
	}
	if len(meshNodes) == 0 {
		return nil, fmt.Errorf("%w: no mesh renderer to export", ErrUnsupportedInput)
	}

	kind := enc.kind(umesh.KindStaticText)
	path, ok, err := e.Destination.Destination(kind, suggested)
	if err != nil || !ok {
		return nil, err
	}

	textures := newTextureSet()
	doc := &umesh.StaticModel{Format: e.Options.Format()}
	for i, n := range meshNodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.progress("mesh "+n.Name, i+1, len(meshNodes))
		mat, err := e.material(n.MeshRenderer.Material, textures)
		if err != nil {
			return nil, err
		}
		doc.Meshes = append(doc.Meshes, &umesh.Mesh{
			Name:     n.Name,
			Geometry: umesh.BuildStaticGeometry(sourceMesh(n.MeshRenderer.Mesh), n.WorldMatrix()),
			Material: mat,
		})
	}

	if err := textures.write(ctx, filepath.Dir(path), e.Options.MaxTextureSize, e.progressSink()); err != nil {
		return nil, err
	}
	if err := e.writeFile(ctx, path, kind, doc); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// ExportSkinned writes the transform tree under root, its skinned and plain
// mesh renderers and one clip file per animator clip. Clip files are named
// <base><clip>anim.<ext> next to the model.
func (e *Exporter) ExportSkinned(ctx context.Context, root *scene.Node, enc Encoding) ([]string, error) {
	if root.Animator == nil {
		return nil, fmt.Errorf("%w: %s has no animator", ErrUnsupportedInput, root.Name)
	}
	if root.Animator.Humanoid {
		return nil, fmt.Errorf("%w: %s is a humanoid", ErrUnsupportedInput, root.Name)
	}
	// skinned renderers are written before plain ones
	var skinned, plain []*scene.Node
	root.Walk(func(n *scene.Node) bool {
		if !n.ActiveInHierarchy() {
			return true
		}
		if n.SkinnedMeshRenderer != nil && n.SkinnedMeshRenderer.Mesh != nil {
			skinned = append(skinned, n)
		} else if n.MeshRenderer != nil && n.MeshRenderer.Mesh != nil {
			plain = append(plain, n)
		}
		return true
	})
	meshNodes := append(skinned, plain...)
	if len(meshNodes) == 0 {
		return nil, fmt.Errorf("%w: no mesh renderer under %s", ErrUnsupportedInput, root.Name)
	}
	hierarchy, names, err := e.hierarchy(root)
	if err != nil {
		return nil, err
	}

	kind := enc.kind(umesh.KindSkinnedText)
	path, ok, err := e.Destination.Destination(kind, root.Name)
	if err != nil || !ok {
		return nil, err
	}

	textures := newTextureSet()
	doc := &umesh.SkinnedModel{Hierarchy: hierarchy, Format: e.Options.Format()}
	for i, n := range meshNodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.progress("mesh "+n.Name, i+1, len(meshNodes))
		m, err := e.skinnedMesh(n, names, textures)
		if err != nil {
			return nil, err
		}
		doc.Meshes = append(doc.Meshes, m)
	}

	var clips []*umesh.Clip
	for _, c := range root.Animator.Clips {
		clips = append(clips, e.clip(root, c, names))
	}

	if err := textures.write(ctx, filepath.Dir(path), e.Options.MaxTextureSize, e.progressSink()); err != nil {
		return nil, err
	}
	if err := e.writeFile(ctx, path, kind, doc); err != nil {
		return nil, err
	}
	written := []string{path}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	clipKind := enc.kind(umesh.KindClipText)
	for i, clip := range clips {
		clipPath := base + clipFileName(clip.Name) + "anim" + clipKind.Extension()
		e.progress("clip "+clip.Name, i+1, len(clips))
		if err := e.writeFile(ctx, clipPath, clipKind, clip); err != nil {
			return written, err
		}
		written = append(written, clipPath)
	}
	return written, nil
}

func (e *Exporter) progressSink() ProgressSink {
	if e.Progress == nil {
		return NopProgress
	}
	return e.Progress
}

func (e *Exporter) writeFile(ctx context.Context, path string, kind umesh.Kind, doc interface{}) error {
	e.progress("write "+filepath.Base(path), 1, 1)
	return WriteDocument(ctx, path, kind, doc)
}

// WriteDocument encodes doc as kind and replaces path atomically. An existing
// file is left untouched when encoding fails.
func WriteDocument(ctx context.Context, path string, kind umesh.Kind, doc interface{}) error {
	return writeFileAtomic(ctx, path, func(w io.Writer) error {
		return umesh.Write(w, kind, doc)
	})
}

// hierarchy converts the tree under root. names holds the written name of each node.
func (e *Exporter) hierarchy(root *scene.Node) (*umesh.Hierarchy, map[*scene.Node]string, error) {
	names := map[*scene.Node]string{}
	var h *umesh.Hierarchy
	var add func(n *scene.Node, parent int) error
	add = func(n *scene.Node, parent int) error {
		name, err := e.Options.asciiName("node", n.Name)
		if err != nil {
			return err
		}
		names[n] = name
		node := umesh.HierarchyNode{Name: name, Position: n.Position, Rotation: n.Rotation, Scale: n.Scale}
		id := 0
		if h == nil {
			h = umesh.NewHierarchy(node)
		} else {
			id = h.AddNode(parent, node)
		}
		for _, c := range n.Children {
			if err := add(c, id); err != nil {
				return err
			}
		}
		return nil
	}
	if err := add(root, 0); err != nil {
		return nil, nil, err
	}
	return h, names, nil
}

func (e *Exporter) nodeName(n *scene.Node, names map[*scene.Node]string) (string, error) {
	if name, ok := names[n]; ok {
		return name, nil
	}
	return e.Options.asciiName("node", n.Name)
}

// skinnedMesh converts the renderer of n. A plain mesh renderer is bound to
// its own node with the identity bind pose.
func (e *Exporter) skinnedMesh(n *scene.Node, names map[*scene.Node]string, textures *textureSet) (*umesh.Mesh, error) {
	self, err := e.nodeName(n, names)
	if err != nil {
		return nil, err
	}
	var ms *umesh.SourceMesh
	var material *scene.Material
	var poses []umesh.BindPose
	if r := n.SkinnedMeshRenderer; r != nil && r.Mesh != nil {
		var boneNames []string
		for i, b := range r.Bones {
			if b == nil {
				return nil, fmt.Errorf("%w: %s: bone %d is missing", ErrUnsupportedInput, n.Name, i)
			}
			name, err := e.nodeName(b, names)
			if err != nil {
				return nil, err
			}
			boneNames = append(boneNames, name)
		}
		if poses, err = umesh.NewBindPoses(boneNames, r.Mesh.BindPoses, self); err != nil {
			return nil, err
		}
		ms, material = sourceMesh(r.Mesh), r.Material
	} else {
		if poses, err = umesh.NewBindPoses(nil, nil, self); err != nil {
			return nil, err
		}
		ms, material = sourceMesh(n.MeshRenderer.Mesh), n.MeshRenderer.Material
		ms.Weights = nil
	}
	mat, err := e.material(material, textures)
	if err != nil {
		return nil, err
	}
	return &umesh.Mesh{
		Name:      n.Name,
		Geometry:  umesh.BuildSkinnedGeometry(ms),
		BindPoses: poses,
		Material:  mat,
	}, nil
}

func (e *Exporter) material(m *scene.Material, textures *textureSet) (*umesh.Material, error) {
	opts := &e.Options
	if m == nil {
		m = scene.NewMaterial(defaultMaterialName)
	}
	name, err := opts.asciiName("material", m.Name)
	if err != nil {
		return nil, err
	}
	mat := &umesh.Material{Name: name}
	for _, p := range opts.ColorProperties {
		c, ok := m.Colors[p]
		if !ok {
			log.Printf("WARNING: material %s has no color %s", m.Name, p)
		}
		mat.Colors = append(mat.Colors, umesh.ColorProperty{Name: p, Value: c})
	}
	for _, p := range opts.TextureProperties {
		tp := umesh.TextureProperty{Name: p}
		if tex := m.Textures[p]; tex != nil {
			if tp.File, err = textures.add(opts, tex, p); err != nil {
				return nil, fmt.Errorf("material %s: %w", m.Name, err)
			}
		}
		mat.Textures = append(mat.Textures, tp)
	}
	return mat, nil
}

// clip converts curve bindings relative to root into tracks.
func (e *Exporter) clip(root *scene.Node, c *scene.Clip, names map[*scene.Node]string) *umesh.Clip {
	b := umesh.NewClipBuilder(c.Name, func(path string) (interface{}, string, umesh.Transform, bool) {
		n := root.Find(path)
		if n == nil {
			return nil, "", umesh.Transform{}, false
		}
		return n, names[n], umesh.Transform{Position: n.Position, Rotation: n.Rotation, Scale: n.Scale}, true
	})
	for _, binding := range c.Bindings {
		times := make([]float32, len(binding.Keys))
		values := make([]float32, len(binding.Keys))
		for i, k := range binding.Keys {
			times[i], values[i] = k.Time, k.Value
		}
		b.AddBinding(binding.Path, binding.Property, times, values)
	}
	return b.Build()
}

func sourceMesh(m *scene.Mesh) *umesh.SourceMesh {
	src := &umesh.SourceMesh{
		Positions: m.Positions,
		Normals:   m.Normals,
		Tangents:  m.Tangents,
		UVs:       m.UVs,
		Colors:    m.Colors,
		Indices:   m.Indices,
	}
	for _, w := range m.Weights {
		var bw umesh.BoneWeight
		for i := range w.Indices {
			bw.Indices[i] = uint32(w.Indices[i])
		}
		bw.Weights = w.Weights
		src.Weights = append(src.Weights, bw)
	}
	return src
}
