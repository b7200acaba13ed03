package scene

type Keyframe struct {
	Time  float32
	Value float32
}

// CurveBinding animates Property of the node at Path, relative to the animator node.
type CurveBinding struct {
	Path     string
	Property string
	Keys     []Keyframe
}

type Clip struct {
	Name     string
	Bindings []*CurveBinding
}

type Animator struct {
	Humanoid bool
	Clips    []*Clip
}
