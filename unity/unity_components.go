package unity

import (
	"reflect"

	"github.com/binzume/umeshconv/geom"
)

// Class IDs of the YAML documents this package decodes.
const (
	ClassGameObject          = 1
	ClassTransform           = 4
	ClassMeshRenderer        = 23
	ClassMeshFilter          = 33
	ClassAnimationClip       = 74
	ClassAnimatorController  = 91
	ClassAnimator            = 95
	ClassSkinnedMeshRenderer = 137
	ClassRectTransform       = 224
	ClassPrefabInstance      = 1001
	ClassAnimatorState       = 1102
)

var sceneElementTypes = map[int]reflect.Type{
	ClassGameObject:          reflect.TypeOf(GameObject{}),
	ClassTransform:           reflect.TypeOf(Transform{}),
	ClassRectTransform:       reflect.TypeOf(Transform{}),
	ClassMeshRenderer:        reflect.TypeOf(MeshRenderer{}),
	ClassMeshFilter:          reflect.TypeOf(MeshFilter{}),
	ClassSkinnedMeshRenderer: reflect.TypeOf(SkinnedMeshRenderer{}),
	ClassAnimator:            reflect.TypeOf(Animator{}),
	ClassPrefabInstance:      reflect.TypeOf(PrefabInstance{}),
}

type Component interface {
	GetGameObject() *GameObject
	init(*Scene)
}

type BaseComponent struct {
	Scene *Scene `yaml:"-"`

	GameObject Ref `yaml:"m_GameObject"`
}

func (c *BaseComponent) init(scene *Scene) {
	c.Scene = scene
}

func (c *BaseComponent) GetGameObject() *GameObject {
	return c.Scene.GetGameObject(&c.GameObject)
}

type Transform struct {
	BaseComponent `yaml:",inline"`
	Father        Ref    `yaml:"m_Father"`
	Children      []*Ref `yaml:"m_Children"`

	LocalRotation geom.Vector4 `yaml:"m_LocalRotation"`
	LocalPosition geom.Vector3 `yaml:"m_LocalPosition"`
	LocalScale    geom.Vector3 `yaml:"m_LocalScale"`

	RootOrder int `yaml:"m_RootOrder"`
}

func (tr *Transform) GetChildren() []*Transform {
	var children []*Transform
	for _, c := range tr.Children {
		if t := tr.Scene.GetTransform(c); t != nil {
			children = append(children, t)
		}
	}
	return children
}

func (tr *Transform) GetParent() *Transform {
	return tr.Scene.GetTransform(&tr.Father)
}

type MeshFilter struct {
	BaseComponent `yaml:",inline"`
	Mesh          *Ref `yaml:"m_Mesh"`
}

type MeshRenderer struct {
	BaseComponent `yaml:",inline"`
	Enabled       int    `yaml:"m_Enabled"`
	Materials     []*Ref `yaml:"m_Materials"`
}

func (r *MeshRenderer) GetMeshFilter() *MeshFilter {
	o := r.GetGameObject()
	if o == nil {
		return nil
	}
	var f *MeshFilter
	o.GetComponent(&f)
	return f
}

type SkinnedMeshRenderer struct {
	BaseComponent `yaml:",inline"`
	Enabled       int    `yaml:"m_Enabled"`
	Materials     []*Ref `yaml:"m_Materials"`
	Mesh          *Ref   `yaml:"m_Mesh"`
	Bones         []*Ref `yaml:"m_Bones"`
	RootBone      *Ref   `yaml:"m_RootBone"`
}

type Animator struct {
	BaseComponent `yaml:",inline"`
	Enabled       int  `yaml:"m_Enabled"`
	Avatar        *Ref `yaml:"m_Avatar"`
	Controller    *Ref `yaml:"m_Controller"`
}

type PrefabInstance struct {
	Modification struct {
		TransformParent *Ref `yaml:"m_TransformParent"`
	} `yaml:"m_Modification"`
	SourcePrefab *Ref `yaml:"m_SourcePrefab"`

	// Prefab is the loaded source prefab.
	Prefab *Scene `yaml:"-"`
}
