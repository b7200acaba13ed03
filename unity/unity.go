// Package unity reads scenes, materials, animation clips and importer
// settings from a Unity Assets directory or a .unitypackage.
package unity

import (
	"reflect"
	"sort"
)

// Ref points to an element of the same file (GUID empty) or of another asset.
type Ref struct {
	FileID int64  `yaml:"fileID"`
	GUID   string `yaml:"guid"`
	Type   int    `yaml:"type"`
}

func (r *Ref) IsValid() bool {
	return r != nil && r.FileID != 0
}

type Scene struct {
	Path     string
	GUID     string
	Elements map[int64]interface{}

	// Objects are the root game objects in hierarchy order.
	Objects []*GameObject
}

func (s *Scene) GetElement(ref *Ref) interface{} {
	if !ref.IsValid() || (ref.GUID != "" && ref.GUID != s.GUID) {
		return nil
	}
	return s.Elements[ref.FileID]
}

func (s *Scene) GetTransform(ref *Ref) *Transform {
	t, _ := s.GetElement(ref).(*Transform)
	return t
}

func (s *Scene) GetGameObject(ref *Ref) *GameObject {
	o, _ := s.GetElement(ref).(*GameObject)
	return o
}

type GameObject struct {
	Name     string `yaml:"m_Name"`
	IsActive int    `yaml:"m_IsActive"`
	Layer    int    `yaml:"m_Layer"`

	Components []*struct {
		Ref Ref `yaml:"component"`
	} `yaml:"m_Component"`

	Scene *Scene `yaml:"-"`
}

// GetComponent stores the first component assignable to *target and reports
// whether one was found. target is a pointer to a component pointer.
func (o *GameObject) GetComponent(target interface{}) bool {
	v := reflect.ValueOf(target).Elem()
	for _, c := range o.Components {
		e := o.Scene.GetElement(&c.Ref)
		if e != nil && reflect.TypeOf(e).AssignableTo(v.Type()) {
			v.Set(reflect.ValueOf(e))
			return true
		}
	}
	return false
}

func (o *GameObject) GetTransform() *Transform {
	var t *Transform
	o.GetComponent(&t)
	return t
}

// Children returns the child game objects in hierarchy order.
func (o *GameObject) Children() []*GameObject {
	tr := o.GetTransform()
	if tr == nil {
		return nil
	}
	var children []*GameObject
	for _, c := range tr.GetChildren() {
		if obj := c.GetGameObject(); obj != nil {
			children = append(children, obj)
		}
	}
	return children
}

func sortByRootOrder(objects []*GameObject) {
	order := func(o *GameObject) int {
		if tr := o.GetTransform(); tr != nil {
			return tr.RootOrder
		}
		return 0
	}
	sort.SliceStable(objects, func(i, j int) bool {
		return order(objects[i]) < order(objects[j])
	})
}
