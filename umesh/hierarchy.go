package umesh

import (
	"fmt"

	"github.com/binzume/umeshconv/geom"
)

// HierarchyNode is one transform of a skeleton. Rotation is a quaternion (x, y, z, w).
type HierarchyNode struct {
	Name     string
	Position geom.Vector3
	Rotation geom.Quaternion
	Scale    geom.Vector3
	Children []int
}

// EulerDegrees returns the rotation as inspector-style Euler angles.
func (n *HierarchyNode) EulerDegrees() *geom.Vector3 {
	return geom.NewEulerFromQuaternion(&n.Rotation, geom.RotationOrderUnity).Degrees()
}

// Hierarchy is a transform tree stored as an arena. Node 0 is the root.
type Hierarchy struct {
	Nodes []HierarchyNode
}

func NewHierarchy(root HierarchyNode) *Hierarchy {
	root.Children = nil
	return &Hierarchy{Nodes: []HierarchyNode{root}}
}

// AddNode appends node as the last child of parent and returns its index.
func (h *Hierarchy) AddNode(parent int, node HierarchyNode) int {
	node.Children = nil
	h.Nodes = append(h.Nodes, node)
	id := len(h.Nodes) - 1
	h.Nodes[parent].Children = append(h.Nodes[parent].Children, id)
	return id
}

func (h *Hierarchy) Len() int {
	return len(h.Nodes)
}

// Find returns the index of the first node named name in pre-order, or -1.
func (h *Hierarchy) Find(name string) int {
	found := -1
	h.Walk(func(id, depth int) {
		if found < 0 && h.Nodes[id].Name == name {
			found = id
		}
	}, nil)
	return found
}

// Walk visits nodes depth-first in pre-order. leave, if not nil, is called
// after all children of a node were visited.
func (h *Hierarchy) Walk(enter func(id, depth int), leave func(id, depth int)) {
	if len(h.Nodes) == 0 {
		return
	}
	var walk func(id, depth int)
	walk = func(id, depth int) {
		enter(id, depth)
		for _, c := range h.Nodes[id].Children {
			walk(c, depth+1)
		}
		if leave != nil {
			leave(id, depth)
		}
	}
	walk(0, 0)
}

// BindPose is the inverse bind matrix of one bone.
type BindPose struct {
	Name   string
	Matrix geom.Matrix4
}

// NewBindPoses pairs bone names with inverse bind matrices. When there are no
// matrices the renderer is bound to itself with the identity matrix.
func NewBindPoses(boneNames []string, matrices []*geom.Matrix4, rendererName string) ([]BindPose, error) {
	if len(matrices) == 0 {
		return []BindPose{{Name: rendererName, Matrix: *geom.NewMatrix4()}}, nil
	}
	if len(boneNames) != len(matrices) {
		return nil, fmt.Errorf("%w: %s has %d bones and %d bind poses", ErrBindPoseMismatch, rendererName, len(boneNames), len(matrices))
	}
	poses := make([]BindPose, len(matrices))
	for i, m := range matrices {
		poses[i] = BindPose{Name: boneNames[i], Matrix: *m}
	}
	return poses, nil
}
