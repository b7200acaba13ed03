package unity

import (
	"fmt"
	"io"
	"log"
	"reflect"
	"strings"
)

// LoadScene reads a .unity or .prefab asset. Prefab instances are loaded
// from their source prefab.
func LoadScene(assets Assets, scenePath string) (*Scene, error) {
	return loadScene(assets, scenePath, map[string]bool{})
}

func loadScene(assets Assets, scenePath string, loading map[string]bool) (*Scene, error) {
	if loading[scenePath] {
		return nil, fmt.Errorf("unity: recursive prefab %s", scenePath)
	}
	loading[scenePath] = true
	defer delete(loading, scenePath)

	r, err := assets.Open(scenePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	scene := &Scene{Path: scenePath, Elements: map[int64]interface{}{}}
	if a := assets.GetAssetByPath(scenePath); a != nil {
		scene.GUID = a.GUID
	}

	var objects []*GameObject
	var prefabs []*PrefabInstance
	for _, doc := range ParseYamlDocuments(b) {
		t, ok := sceneElementTypes[doc.ClassID()]
		if !ok {
			continue
		}
		e, err := doc.decodeElement(t)
		if err != nil {
			return nil, fmt.Errorf("unity: %s: &%d: %w", scenePath, doc.FileID(), err)
		}
		switch v := e.(type) {
		case *GameObject:
			v.Scene = scene
			objects = append(objects, v)
		case Component:
			v.init(scene)
		case *PrefabInstance:
			prefabs = append(prefabs, v)
		}
		scene.Elements[doc.FileID()] = e
	}

	for _, obj := range objects {
		if tr := obj.GetTransform(); tr == nil || !tr.Father.IsValid() {
			scene.Objects = append(scene.Objects, obj)
		}
	}
	sortByRootOrder(scene.Objects)

	for _, p := range prefabs {
		if !p.SourcePrefab.IsValid() {
			continue
		}
		asset := assets.GetAsset(p.SourcePrefab.GUID)
		if asset == nil {
			log.Printf("WARNING: prefab %s not found", p.SourcePrefab.GUID)
			continue
		}
		if p.Prefab, err = loadScene(assets, asset.Path, loading); err != nil {
			log.Printf("WARNING: %v", err)
			continue
		}
		if parent := scene.GetTransform(p.Modification.TransformParent); parent == nil {
			scene.Objects = append(scene.Objects, p.Prefab.Objects...)
		}
	}
	return scene, nil
}

// PrefabChildren returns the roots of prefab instances placed under tr.
func (s *Scene) PrefabChildren(tr *Transform) []*GameObject {
	var objects []*GameObject
	for _, e := range s.Elements {
		p, ok := e.(*PrefabInstance)
		if !ok || p.Prefab == nil || s.GetTransform(p.Modification.TransformParent) != tr {
			continue
		}
		objects = append(objects, p.Prefab.Objects...)
	}
	return objects
}

func (d *YAMLDoc) decodeElement(t reflect.Type) (interface{}, error) {
	m := reflect.New(reflect.MapOf(reflect.TypeOf(""), reflect.PtrTo(t)))
	if err := d.Decode(m.Interface()); err != nil {
		return nil, err
	}
	for _, k := range m.Elem().MapKeys() {
		if v := m.Elem().MapIndex(k); !v.IsNil() {
			return v.Interface(), nil
		}
	}
	return reflect.New(t).Interface(), nil
}

// Dump prints the object tree through the log package.
func (s *Scene) Dump() {
	log.Println("Scene", s.Path)
	for _, obj := range s.Objects {
		obj.Dump(1)
	}
}

func (o *GameObject) Dump(indent int) {
	log.Println(strings.Repeat("  ", indent), o.Name)
	for _, c := range o.Components {
		if e := o.Scene.GetElement(&c.Ref); e != nil {
			log.Println(strings.Repeat("  ", indent), " -", reflect.TypeOf(e).Elem().Name())
		}
	}
	for _, c := range o.Children() {
		c.Dump(indent + 1)
	}
}
