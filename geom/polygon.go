package geom

import "math"

func Abs(v Element) Element {
	if v < 0 {
		return -v
	}
	return v
}

func Lerp(a, b, t Element) Element {
	return a + (b-a)*t
}

func IsFinite(v Element) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Triangulate splits a planar polygon into triangles by ear clipping.
// Returned values are indexes into verts.
func Triangulate(verts []*Vector3) [][3]int {
	n := len(verts)
	if n < 3 {
		return nil
	}
	if n == 3 {
		return [][3]int{{0, 1, 2}}
	}

	normal := &Vector3{}
	for i := range verts {
		normal = normal.Add(verts[i].Cross(verts[(i+1)%n]))
	}

	remain := make([]int, n)
	for i := range remain {
		remain[i] = i
	}
	var tris [][3]int
	for len(remain) > 3 {
		found := false
		for i := range remain {
			a, b, c := remain[(i+len(remain)-1)%len(remain)], remain[i], remain[(i+1)%len(remain)]
			if !isEar(verts, remain, a, b, c, normal) {
				continue
			}
			tris = append(tris, [3]int{a, b, c})
			remain = append(remain[:i], remain[i+1:]...)
			found = true
			break
		}
		if !found {
			// degenerate polygon: fan the rest.
			for i := 1; i+1 < len(remain); i++ {
				tris = append(tris, [3]int{remain[0], remain[i], remain[i+1]})
			}
			return tris
		}
	}
	return append(tris, [3]int{remain[0], remain[1], remain[2]})
}

func isEar(verts []*Vector3, remain []int, a, b, c int, normal *Vector3) bool {
	va, vb, vc := verts[a], verts[b], verts[c]
	if vb.Sub(va).Cross(vc.Sub(vb)).Dot(normal) <= 0 {
		return false
	}
	for _, i := range remain {
		if i == a || i == b || i == c {
			continue
		}
		if insideTriangle(verts[i], va, vb, vc, normal) {
			return false
		}
	}
	return true
}

func insideTriangle(p, a, b, c, normal *Vector3) bool {
	return b.Sub(a).Cross(p.Sub(a)).Dot(normal) >= 0 &&
		c.Sub(b).Cross(p.Sub(b)).Dot(normal) >= 0 &&
		a.Sub(c).Cross(p.Sub(c)).Dot(normal) >= 0
}
