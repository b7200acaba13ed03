package converter

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"path"
	"path/filepath"
	"strings"

	"github.com/binzume/umeshconv/scene"
	"github.com/binzume/umeshconv/unity"
)

// LoadUnityScene reads a scene from an Assets directory or a .unitypackage.
// sceneAsset and clips are asset paths ("Assets/...") or, for a directory,
// file paths inside it. An empty sceneAsset selects the only .unity asset.
// The clips are added to the first animator of the scene.
func LoadUnityScene(assetsPath, sceneAsset string, clips []string) (*scene.Scene, error) {
	var assets unity.Assets
	var err error
	if strings.EqualFold(filepath.Ext(assetsPath), ".unitypackage") {
		assets, err = unity.OpenPackage(assetsPath)
	} else {
		assets, err = unity.OpenAssets(assetsPath)
	}
	if err != nil {
		return nil, err
	}
	defer assets.Close()

	if sceneAsset == "" {
		for _, a := range assets.GetAllAssets() {
			if strings.HasSuffix(a.Path, ".unity") {
				if sceneAsset != "" {
					return nil, fmt.Errorf("converter: %s has more than one scene", assetsPath)
				}
				sceneAsset = a.Path
			}
		}
		if sceneAsset == "" {
			return nil, fmt.Errorf("converter: %s has no scene", assetsPath)
		}
	}
	sceneAsset = assetPath(assetsPath, sceneAsset)

	src, err := unity.LoadScene(assets, sceneAsset)
	if err != nil {
		return nil, err
	}
	c := &unityToScene{
		assets:     assets,
		transforms: map[*unity.Transform]*scene.Node{},
		materials:  map[string]*scene.Material{},
		textures:   map[string]*scene.Texture{},
	}
	s := &scene.Scene{Name: strings.TrimSuffix(path.Base(sceneAsset), path.Ext(sceneAsset))}
	for _, obj := range src.Objects {
		s.Roots = append(s.Roots, c.convertObject(obj))
	}
	if err := c.resolveBones(); err != nil {
		return nil, err
	}

	if len(clips) > 0 {
		if c.firstAnimator == nil {
			log.Printf("WARNING: %s has no animator for the clips", sceneAsset)
		}
		for _, p := range clips {
			clip, err := unity.LoadAnimationClip(assets, assetPath(assetsPath, p))
			if err != nil {
				return nil, err
			}
			if c.firstAnimator != nil {
				c.firstAnimator.Clips = append(c.firstAnimator.Clips, convertUnityClip(clip))
			}
		}
	}
	return s, nil
}

// assetPath converts a file path below an Assets directory to an asset path.
func assetPath(assetsPath, p string) string {
	if strings.HasPrefix(filepath.ToSlash(p), "Assets/") {
		return filepath.ToSlash(p)
	}
	root := filepath.Dir(filepath.Clean(assetsPath))
	if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(p)
}

type pendingBones struct {
	renderer *scene.SkinnedMeshRenderer
	scene    *unity.Scene
	bones    []*unity.Ref
}

type unityToScene struct {
	assets        unity.Assets
	transforms    map[*unity.Transform]*scene.Node
	materials     map[string]*scene.Material
	textures      map[string]*scene.Texture
	skinned       []pendingBones
	firstAnimator *scene.Animator
}

func (c *unityToScene) convertObject(obj *unity.GameObject) *scene.Node {
	node := scene.NewNode(obj.Name)
	node.Active = obj.IsActive != 0
	tr := obj.GetTransform()
	if tr != nil {
		node.Position = tr.LocalPosition
		node.Rotation = tr.LocalRotation
		node.Scale = tr.LocalScale
		c.transforms[tr] = node
	}

	var mr *unity.MeshRenderer
	if obj.GetComponent(&mr) && mr.Enabled != 0 {
		if mf := mr.GetMeshFilter(); mf != nil {
			if mesh := c.convertMesh(obj.Name, mf.Mesh); mesh != nil {
				node.MeshRenderer = &scene.MeshRenderer{Mesh: mesh, Material: c.firstMaterial(mr.Materials)}
			}
		}
	}
	var smr *unity.SkinnedMeshRenderer
	if obj.GetComponent(&smr) && smr.Enabled != 0 {
		if mesh := c.convertMesh(obj.Name, smr.Mesh); mesh != nil {
			r := &scene.SkinnedMeshRenderer{Mesh: mesh, Material: c.firstMaterial(smr.Materials)}
			node.SkinnedMeshRenderer = r
			c.skinned = append(c.skinned, pendingBones{renderer: r, scene: obj.Scene, bones: smr.Bones})
		}
	}
	var an *unity.Animator
	if obj.GetComponent(&an) {
		node.Animator = c.convertAnimator(an)
		if c.firstAnimator == nil {
			c.firstAnimator = node.Animator
		}
	}

	for _, ch := range obj.Children() {
		node.AddChild(c.convertObject(ch))
	}
	if tr != nil {
		for _, ch := range obj.Scene.PrefabChildren(tr) {
			node.AddChild(c.convertObject(ch))
		}
	}
	return node
}

func (c *unityToScene) resolveBones() error {
	for _, p := range c.skinned {
		for _, ref := range p.bones {
			tr := p.scene.GetTransform(ref)
			if tr == nil || c.transforms[tr] == nil {
				return fmt.Errorf("converter: bone %v not found", ref)
			}
			p.renderer.Bones = append(p.renderer.Bones, c.transforms[tr])
		}
	}
	return nil
}

// convertMesh returns the builtin primitive ref points to. Imported model
// meshes are not read.
func (c *unityToScene) convertMesh(owner string, ref *unity.Ref) *scene.Mesh {
	b := unity.GetBuiltinMesh(ref)
	if b == nil {
		if ref.IsValid() {
			log.Printf("WARNING: %s: mesh %d:%s is not a builtin mesh", owner, ref.FileID, ref.GUID)
		}
		return nil
	}
	mesh := &scene.Mesh{
		Name:      b.Name,
		Positions: b.Vertices,
		Indices:   b.Indices,
	}
	mesh.UVs[0] = b.UVs
	mesh.CalcNormals()
	return mesh
}

func (c *unityToScene) firstMaterial(refs []*unity.Ref) *scene.Material {
	if len(refs) == 0 || !refs[0].IsValid() {
		return nil
	}
	if len(refs) > 1 {
		log.Printf("WARNING: only the first of %d materials is used", len(refs))
	}
	return c.convertMaterial(refs[0].GUID)
}

func (c *unityToScene) convertMaterial(guid string) *scene.Material {
	if m, ok := c.materials[guid]; ok {
		return m
	}
	src, err := unity.LoadMaterial(c.assets, guid)
	if err != nil {
		log.Printf("WARNING: %v", err)
		c.materials[guid] = nil
		return nil
	}
	mat := scene.NewMaterial(src.Name)
	for _, colors := range src.SavedProperties.Colors {
		for name, col := range colors {
			if col != nil {
				mat.Colors[name] = col.Vector4()
			}
		}
	}
	for _, envs := range src.SavedProperties.TexEnvs {
		for name, env := range envs {
			if env == nil || !env.Texture.IsValid() || env.Texture.GUID == "" {
				continue
			}
			if tex := c.convertTexture(env.Texture.GUID); tex != nil {
				mat.Textures[name] = tex
			}
		}
	}
	c.materials[guid] = mat
	return mat
}

// convertTexture reads the image into memory, as the assets are closed
// before the scene is exported.
func (c *unityToScene) convertTexture(guid string) *scene.Texture {
	if t, ok := c.textures[guid]; ok {
		return t
	}
	c.textures[guid] = nil
	asset := c.assets.GetAsset(guid)
	if asset == nil {
		log.Printf("WARNING: texture %s not found", guid)
		return nil
	}
	data, err := c.readAsset(asset.Path)
	if err != nil {
		log.Printf("WARNING: texture %s: %v", asset.Path, err)
		return nil
	}
	tex := &scene.Texture{
		Name:     strings.TrimSuffix(path.Base(asset.Path), path.Ext(asset.Path)),
		Source:   path.Base(asset.Path),
		Readable: true,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
	if meta, err := unity.LoadMeta(c.assets, asset.Path); err == nil && meta.TextureImporter != nil {
		tex.Readable = meta.TextureImporter.Readable()
		tex.Compressed = meta.TextureImporter.Compressed()
	}
	c.textures[guid] = tex
	return tex
}

func (c *unityToScene) readAsset(p string) ([]byte, error) {
	f, err := c.assets.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (c *unityToScene) convertAnimator(an *unity.Animator) *scene.Animator {
	a := &scene.Animator{Humanoid: unity.IsHumanoidAvatar(c.assets, an.Avatar)}
	clips, err := unity.LoadControllerClips(c.assets, an.Controller)
	if err != nil {
		log.Printf("WARNING: %v", err)
	}
	for _, clip := range clips {
		a.Clips = append(a.Clips, convertUnityClip(clip))
	}
	return a
}

func convertUnityClip(clip *unity.AnimationClip) *scene.Clip {
	c := &scene.Clip{Name: clip.Name}
	for _, fc := range clip.CurveBindings() {
		b := &scene.CurveBinding{Path: fc.Path, Property: fc.Attribute}
		for _, k := range fc.Curve.Keys {
			b.Keys = append(b.Keys, scene.Keyframe{Time: k.Time, Value: k.Value})
		}
		c.Bindings = append(c.Bindings, b)
	}
	return c
}
