package unity

import (
	"math"

	"github.com/binzume/umeshconv/geom"
)

const builtinExtraGUID = "0000000000000000e000000000000000"

var UnityMeshes = map[Ref]string{
	{FileID: 10202, GUID: builtinExtraGUID}: "Cube",
	{FileID: 10206, GUID: builtinExtraGUID}: "Cylinder",
	{FileID: 10207, GUID: builtinExtraGUID}: "Sphere",
	{FileID: 10208, GUID: builtinExtraGUID}: "Capsule",
	{FileID: 10209, GUID: builtinExtraGUID}: "Plane",
	{FileID: 10210, GUID: builtinExtraGUID}: "Quad",
}

// BuiltinMesh is a triangulated primitive with one UV per vertex.
// Triangles are clockwise seen from the front.
type BuiltinMesh struct {
	Name     string
	Vertices []geom.Vector3
	UVs      []geom.Vector2
	Indices  []uint32
}

// GetBuiltinMesh returns the primitive a MeshFilter refers to, or nil.
func GetBuiltinMesh(ref *Ref) *BuiltinMesh {
	if ref == nil {
		return nil
	}
	name, ok := UnityMeshes[Ref{FileID: ref.FileID, GUID: ref.GUID}]
	if !ok {
		return nil
	}
	b := &meshBuilder{}
	switch name {
	case "Cube":
		b.cube()
	case "Sphere":
		b.sphere(32, 16, 0, 16, 0)
	case "Cylinder":
		b.cylinder(32)
	case "Capsule":
		b.capsule(32)
	case "Plane":
		b.quad(10)
	case "Quad":
		b.quad(0)
	}
	return b.build(name)
}

// meshBuilder collects polygons wound clockwise seen from the front, so
// that (b-a)x(c-a) points outwards.
type meshBuilder struct {
	verts []geom.Vector3
	uvs   []geom.Vector2
	uvSet []bool
	faces [][]int
}

func (b *meshBuilder) vertex(x, y, z float32) int {
	b.verts = append(b.verts, geom.Vector3{X: x, Y: y, Z: z})
	b.uvs = append(b.uvs, geom.Vector2{})
	b.uvSet = append(b.uvSet, false)
	return len(b.verts) - 1
}

// face adds a polygon. A vertex keeps the UV of the first face using it.
func (b *meshBuilder) face(idx []int, uv []geom.Vector2) {
	for i, v := range idx {
		if !b.uvSet[v] {
			b.uvs[v] = uv[i]
			b.uvSet[v] = true
		}
	}
	b.faces = append(b.faces, idx)
}

func (b *meshBuilder) build(name string) *BuiltinMesh {
	m := &BuiltinMesh{Name: name, Vertices: b.verts, UVs: b.uvs}
	for _, f := range b.faces {
		poly := make([]*geom.Vector3, len(f))
		for i, v := range f {
			poly[i] = &b.verts[v]
		}
		for _, t := range geom.Triangulate(poly) {
			m.Indices = append(m.Indices, uint32(f[t[0]]), uint32(f[t[1]]), uint32(f[t[2]]))
		}
	}
	return m
}

var quadUV = []geom.Vector2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

func (b *meshBuilder) cube() {
	for i := 0; i < 8; i++ {
		b.vertex(float32(i&1)-0.5, float32(i>>1&1)-0.5, float32(i>>2&1)-0.5)
	}
	// -z, +z, -y, +y, +x, -x
	for _, f := range [][]int{
		{0, 2, 3, 1}, {5, 7, 6, 4},
		{0, 1, 5, 4}, {2, 6, 7, 3},
		{1, 3, 7, 5}, {4, 6, 2, 0},
	} {
		b.face(f, quadUV)
	}
}

// quad is a unit quad facing -z, or a size x size plane facing +y when size > 0.
func (b *meshBuilder) quad(size float32) {
	var idx []int
	var uv []geom.Vector2
	if size == 0 {
		for _, p := range [][2]float32{{0.5, -0.5}, {-0.5, -0.5}, {-0.5, 0.5}, {0.5, 0.5}} {
			idx = append(idx, b.vertex(p[0], p[1], 0))
			uv = append(uv, geom.Vector2{X: p[0] + 0.5, Y: p[1] + 0.5})
		}
	} else {
		h := size / 2
		for _, p := range [][2]float32{{h, -h}, {-h, -h}, {-h, h}, {h, h}} {
			idx = append(idx, b.vertex(p[0], 0, p[1]))
			uv = append(uv, geom.Vector2{X: 1 - (p[0]+h)/size, Y: 1 - (p[1]+h)/size})
		}
	}
	b.face(idx, uv)
}

// ring adds sh vertices at latitude i of sv around center y cy. Poles are single vertices.
func (b *meshBuilder) ring(sh, sv, i int, cy float32) []int {
	const r = 0.5
	theta := float64(i) / float64(sv) * math.Pi
	y := cy + float32(math.Cos(theta)*r)
	if i == 0 || i == sv {
		return []int{b.vertex(0, y, 0)}
	}
	rr := math.Sin(theta) * r
	idx := make([]int, sh)
	for j := range idx {
		phi := float64(j) / float64(sh) * 2 * math.Pi
		idx[j] = b.vertex(float32(math.Cos(phi)*rr), y, float32(math.Sin(phi)*rr))
	}
	return idx
}

// connect stitches two rings with quads, or triangles at a pole.
func (b *meshBuilder) connect(r1, r2 []int, v1, v2 float32) {
	n := len(r1)
	if n == 1 {
		n = len(r2)
	}
	for j := 0; j < n; j++ {
		j2 := (j + 1) % n
		u1, u2 := 1-float32(j)/float32(n), 1-float32(j+1)/float32(n)
		switch {
		case len(r1) == 1:
			b.face([]int{r1[0], r2[j2], r2[j]}, []geom.Vector2{{X: u1, Y: v1}, {X: u2, Y: v2}, {X: u1, Y: v2}})
		case len(r2) == 1:
			b.face([]int{r1[j], r1[j2], r2[0]}, []geom.Vector2{{X: u1, Y: v1}, {X: u2, Y: v1}, {X: u1, Y: v2}})
		default:
			b.face([]int{r1[j], r1[j2], r2[j2], r2[j]}, []geom.Vector2{{X: u1, Y: v1}, {X: u2, Y: v1}, {X: u2, Y: v2}, {X: u1, Y: v2}})
		}
	}
}

// sphere adds latitudes from..to of a radius 0.5 sphere and returns the last ring.
func (b *meshBuilder) sphere(sh, sv, from, to int, cy float32) []int {
	prev := b.ring(sh, sv, from, cy)
	for i := from + 1; i <= to; i++ {
		cur := b.ring(sh, sv, i, cy)
		b.connect(prev, cur, 1-float32(i-1)/float32(sv), 1-float32(i)/float32(sv))
		prev = cur
	}
	return prev
}

func (b *meshBuilder) cylinder(s int) {
	top := make([]int, s)
	bottom := make([]int, s)
	for i := 0; i < s; i++ {
		t := float64(i) / float64(s) * 2 * math.Pi
		x, z := float32(math.Cos(t)*0.5), float32(math.Sin(t)*0.5)
		top[i] = b.vertex(x, 1, z)
		bottom[i] = b.vertex(x, -1, z)
	}
	b.connect(top, bottom, 1, 0)

	capUV := func(ring []int) []geom.Vector2 {
		uv := make([]geom.Vector2, len(ring))
		for i, v := range ring {
			uv[i] = geom.Vector2{X: b.verts[v].X + 0.5, Y: b.verts[v].Z + 0.5}
		}
		return uv
	}
	rev := make([]int, s)
	for i := range top {
		rev[s-1-i] = top[i]
	}
	b.face(rev, capUV(rev))
	b.face(bottom, capUV(bottom))
}

func (b *meshBuilder) capsule(s int) {
	const sv = 8
	upper := b.sphere(s, sv, 0, sv/2, 0.5)
	lower := b.ring(s, sv, sv/2, -0.5)
	b.connect(upper, lower, 0.5, 0.5)
	prev := lower
	for i := sv/2 + 1; i <= sv; i++ {
		cur := b.ring(s, sv, i, -0.5)
		b.connect(prev, cur, 1-float32(i-1)/float32(sv), 1-float32(i)/float32(sv))
		prev = cur
	}
}
