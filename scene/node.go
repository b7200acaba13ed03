// Package scene is the in-memory host scene handed to the exporters: a node
// tree with local transforms, renderers, materials and animators.
package scene

import (
	"strings"

	"github.com/binzume/umeshconv/geom"
)

type Node struct {
	Name     string
	Position geom.Vector3
	Rotation geom.Quaternion
	Scale    geom.Vector3
	Active   bool

	Parent   *Node
	Children []*Node

	MeshRenderer        *MeshRenderer
	SkinnedMeshRenderer *SkinnedMeshRenderer
	Animator            *Animator
}

// NewNode returns an active node with the identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: geom.IdentityQuaternion,
		Scale:    geom.Vector3{X: 1, Y: 1, Z: 1},
		Active:   true,
	}
}

func (n *Node) AddChild(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

func (n *Node) LocalMatrix() *geom.Matrix4 {
	return geom.NewTRSMatrix4(&n.Position, &n.Rotation, &n.Scale)
}

func (n *Node) WorldMatrix() *geom.Matrix4 {
	if n.Parent == nil {
		return n.LocalMatrix()
	}
	return n.Parent.WorldMatrix().Mul(n.LocalMatrix())
}

// ActiveInHierarchy reports whether n and all of its ancestors are active.
func (n *Node) ActiveInHierarchy() bool {
	for p := n; p != nil; p = p.Parent {
		if !p.Active {
			return false
		}
	}
	return true
}

// Find resolves a slash separated path of child names. An empty path is n itself.
func (n *Node) Find(path string) *Node {
	if path == "" {
		return n
	}
	cur := n
	for _, name := range strings.Split(path, "/") {
		var next *Node
		for _, c := range cur.Children {
			if c.Name == name {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// FindByName searches n and its descendants in pre-order.
func (n *Node) FindByName(name string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if c.Name == name {
			found = c
		}
		return found == nil
	})
	return found
}

// Walk visits n and its descendants in pre-order until f returns false.
func (n *Node) Walk(f func(*Node) bool) bool {
	if !f(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(f) {
			return false
		}
	}
	return true
}

// Path returns the names from the top-most ancestor joined with '/'.
func (n *Node) Path() string {
	if n.Parent == nil {
		return n.Name
	}
	return n.Parent.Path() + "/" + n.Name
}

// RelativePath returns the path of n below ancestor, usable with ancestor.Find.
func (n *Node) RelativePath(ancestor *Node) (string, bool) {
	var names []string
	for p := n; p != ancestor; p = p.Parent {
		if p == nil {
			return "", false
		}
		names = append([]string{p.Name}, names...)
	}
	return strings.Join(names, "/"), true
}

type Scene struct {
	Name  string
	Roots []*Node
}

func (s *Scene) Walk(f func(*Node) bool) {
	for _, r := range s.Roots {
		if !r.Walk(f) {
			return
		}
	}
}

func (s *Scene) FindByName(name string) *Node {
	for _, r := range s.Roots {
		if n := r.FindByName(name); n != nil {
			return n
		}
	}
	return nil
}

// MeshNodes returns every active node with a mesh renderer.
func (s *Scene) MeshNodes() []*Node {
	var nodes []*Node
	s.Walk(func(n *Node) bool {
		if n.MeshRenderer != nil && n.MeshRenderer.Mesh != nil && n.ActiveInHierarchy() {
			nodes = append(nodes, n)
		}
		return true
	})
	return nodes
}
