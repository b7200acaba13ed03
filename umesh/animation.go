package umesh

import (
	"log"

	"github.com/binzume/umeshconv/geom"
)

// CurveCount is the number of curves per track: position xyz, rotation xyzw, scale xyz.
const CurveCount = 10

var curveProperties = [CurveCount]string{
	"m_LocalPosition.x", "m_LocalPosition.y", "m_LocalPosition.z",
	"m_LocalRotation.x", "m_LocalRotation.y", "m_LocalRotation.z", "m_LocalRotation.w",
	"m_LocalScale.x", "m_LocalScale.y", "m_LocalScale.z",
}

// CurveIndex maps an animated property name to its curve index.
func CurveIndex(property string) (int, bool) {
	for i, p := range curveProperties {
		if p == property {
			return i, true
		}
	}
	return -1, false
}

// CurveProperty is the inverse of CurveIndex.
func CurveProperty(i int) string {
	return curveProperties[i]
}

// Curve holds keys as parallel slices in source order.
type Curve struct {
	Times  []float32
	Values []float32
}

func (c *Curve) Len() int {
	return len(c.Times)
}

func (c *Curve) Add(t, v float32) {
	c.Times = append(c.Times, t)
	c.Values = append(c.Values, v)
}

// Evaluate interpolates linearly and clamps outside of the key range.
func (c *Curve) Evaluate(t float32) float32 {
	n := len(c.Times)
	if n == 0 {
		return 0
	}
	if n == 1 || t <= c.Times[0] {
		return c.Values[0]
	}
	if t >= c.Times[n-1] {
		return c.Values[n-1]
	}
	for i := 1; i < n; i++ {
		if t > c.Times[i] {
			continue
		}
		t0, t1 := c.Times[i-1], c.Times[i]
		if t1 <= t0 {
			return c.Values[i]
		}
		return geom.Lerp(c.Values[i-1], c.Values[i], (t-t0)/(t1-t0))
	}
	return c.Values[n-1]
}

// Transform is a local TRS.
type Transform struct {
	Position geom.Vector3
	Rotation geom.Quaternion
	Scale    geom.Vector3
}

func (tr *Transform) component(i int) float32 {
	switch {
	case i < 3:
		return [3]float32{tr.Position.X, tr.Position.Y, tr.Position.Z}[i]
	case i < 7:
		return tr.Rotation.ToArray()[i-3]
	default:
		return [3]float32{tr.Scale.X, tr.Scale.Y, tr.Scale.Z}[i-7]
	}
}

// Track animates one node.
type Track struct {
	Name   string
	Curves [CurveCount]Curve
}

// Sample evaluates every curve at t. The rotation is normalized.
func (tr *Track) Sample(t float32) Transform {
	var v [CurveCount]float32
	for i := range tr.Curves {
		v[i] = tr.Curves[i].Evaluate(t)
	}
	rot := geom.NewQuaternion(v[3], v[4], v[5], v[6]).NormalizeQuaternion()
	return Transform{
		Position: geom.Vector3{X: v[0], Y: v[1], Z: v[2]},
		Rotation: *rot,
		Scale:    geom.Vector3{X: v[7], Y: v[8], Z: v[9]},
	}
}

type Clip struct {
	Name   string
	Tracks []*Track
}

// Duration is the largest key time of all curves.
func (c *Clip) Duration() float32 {
	var d float32
	for _, tr := range c.Tracks {
		for _, cv := range tr.Curves {
			for _, t := range cv.Times {
				if t > d {
					d = t
				}
			}
		}
	}
	return d
}

// NodeResolver finds the node a binding path refers to. id identifies the
// node for merging, name becomes the track name and rest fills empty curves.
type NodeResolver func(path string) (id interface{}, name string, rest Transform, ok bool)

// ClipBuilder collects curve bindings into tracks, one per resolved node.
type ClipBuilder struct {
	name    string
	resolve NodeResolver
	ids     map[interface{}]int
	tracks  []*Track
	rests   []Transform
}

func NewClipBuilder(name string, resolve NodeResolver) *ClipBuilder {
	return &ClipBuilder{name: name, resolve: resolve, ids: map[interface{}]int{}}
}

// AddBinding appends the keys of one curve binding. Unresolved paths and
// properties other than local TRS components are skipped with a warning.
func (b *ClipBuilder) AddBinding(path, property string, times, values []float32) {
	id, name, rest, ok := b.resolve(path)
	if !ok {
		log.Printf("WARNING: %s: binding path %q not found", b.name, path)
		return
	}
	ti, exists := b.ids[id]
	if !exists {
		ti = len(b.tracks)
		b.ids[id] = ti
		b.tracks = append(b.tracks, &Track{Name: name})
		b.rests = append(b.rests, rest)
	}
	ci, ok := CurveIndex(property)
	if !ok {
		log.Printf("WARNING: %s: property %q of %q is not supported", b.name, property, path)
		return
	}
	curve := &b.tracks[ti].Curves[ci]
	for i := 0; i < len(times) && i < len(values); i++ {
		curve.Add(times[i], values[i])
	}
}

// Build returns the clip. Curves without keys get a single key at time 0
// holding the node's rest value.
func (b *ClipBuilder) Build() *Clip {
	clip := &Clip{Name: b.name}
	for i, tr := range b.tracks {
		t := &Track{Name: tr.Name}
		for ci := range tr.Curves {
			t.Curves[ci] = Curve{
				Times:  append([]float32(nil), tr.Curves[ci].Times...),
				Values: append([]float32(nil), tr.Curves[ci].Values...),
			}
			if t.Curves[ci].Len() == 0 {
				t.Curves[ci].Add(0, b.rests[i].component(ci))
			}
		}
		clip.Tracks = append(clip.Tracks, t)
	}
	return clip
}
