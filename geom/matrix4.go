package geom

import "math"

// Matrix4 is a column-major 4x4 matrix: element (row r, column c) is m[c*4+r].
type Matrix4 [16]Element

var identityMatrix4 = Matrix4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func NewMatrix4() *Matrix4 {
	m := identityMatrix4
	return &m
}

// NewMatrix4FromRowMajor builds a matrix from m00,m01,m02,m03,m10,...,m33.
func NewMatrix4FromRowMajor(a [16]Element) *Matrix4 {
	return (*Matrix4)(&a).Transposed()
}

func NewScaleMatrix4(x, y, z Element) *Matrix4 {
	return &Matrix4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

func NewTranslateMatrix4(x, y, z Element) *Matrix4 {
	return &Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

func NewRotationMatrix4FromQuaternion(q *Quaternion) *Matrix4 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return &Matrix4{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w), 0,
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w), 0,
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

// NewTRSMatrix4 returns T * R * S.
func NewTRSMatrix4(t *Vector3, r *Quaternion, s *Vector3) *Matrix4 {
	m := NewRotationMatrix4FromQuaternion(r)
	for i := 0; i < 3; i++ {
		m[i] *= s.X
		m[4+i] *= s.Y
		m[8+i] *= s.Z
	}
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

func (m *Matrix4) IsIdentity() bool {
	return *m == identityMatrix4
}

// Mul returns m * a.
func (m *Matrix4) Mul(a *Matrix4) *Matrix4 {
	r := &Matrix4{}
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			var v Element
			for k := 0; k < 4; k++ {
				v += m[k*4+row] * a[c*4+k]
			}
			r[c*4+row] = v
		}
	}
	return r
}

func (m *Matrix4) Transposed() *Matrix4 {
	return &Matrix4{
		m[0], m[4], m[8], m[12],
		m[1], m[5], m[9], m[13],
		m[2], m[6], m[10], m[14],
		m[3], m[7], m[11], m[15],
	}
}

// RowMajor returns the elements in m00,m01,m02,m03,m10,...,m33 order.
func (m *Matrix4) RowMajor() [16]Element {
	return [16]Element(*m.Transposed())
}

func (m *Matrix4) Det() Element {
	a := m.cofactors()
	return m[0]*a[0] + m[1]*a[4] + m[2]*a[8] + m[3]*a[12]
}

// Inverse returns the zero matrix when m is singular.
func (m *Matrix4) Inverse() *Matrix4 {
	a := m.cofactors()
	det := m[0]*a[0] + m[1]*a[4] + m[2]*a[8] + m[3]*a[12]
	r := &Matrix4{}
	if det == 0 {
		return r
	}
	for i := range a {
		r[i] = a[i] / det
	}
	return r
}

// cofactors returns the adjugate of m.
func (m *Matrix4) cofactors() Matrix4 {
	var r Matrix4
	r[0] = m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] + m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	r[4] = -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] - m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	r[8] = m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] + m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	r[12] = -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] - m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	r[1] = -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] - m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	r[5] = m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] + m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	r[9] = -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] - m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	r[13] = m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] + m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	r[2] = m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] + m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	r[6] = -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] - m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	r[10] = m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] + m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	r[14] = -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] - m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	r[3] = -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] - m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]
	r[7] = m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] + m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]
	r[11] = -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] - m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]
	r[15] = m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] + m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]
	return r
}

// ApplyTo transforms a point (w=1).
func (m *Matrix4) ApplyTo(v *Vector3) *Vector3 {
	return &Vector3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12],
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13],
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14],
	}
}

// ApplyToVector transforms a direction (w=0), ignoring translation.
func (m *Matrix4) ApplyToVector(v *Vector3) *Vector3 {
	return &Vector3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z,
	}
}

// Decompose splits an affine matrix into translation, rotation and scale.
func (m *Matrix4) Decompose() (*Vector3, *Quaternion, *Vector3) {
	t := &Vector3{X: m[12], Y: m[13], Z: m[14]}
	s := &Vector3{
		X: (&Vector3{m[0], m[1], m[2]}).Len(),
		Y: (&Vector3{m[4], m[5], m[6]}).Len(),
		Z: (&Vector3{m[8], m[9], m[10]}).Len(),
	}
	if m.Det() < 0 {
		s.X = -s.X
	}
	if s.X == 0 || s.Y == 0 || s.Z == 0 {
		q := IdentityQuaternion
		return t, &q, s
	}

	m00, m10, m20 := float64(m[0]/s.X), float64(m[1]/s.X), float64(m[2]/s.X)
	m01, m11, m21 := float64(m[4]/s.Y), float64(m[5]/s.Y), float64(m[6]/s.Y)
	m02, m12, m22 := float64(m[8]/s.Z), float64(m[9]/s.Z), float64(m[10]/s.Z)

	var x, y, z, w float64
	if tr := m00 + m11 + m22; tr > 0 {
		k := 0.5 / math.Sqrt(tr+1)
		w = 0.25 / k
		x = (m21 - m12) * k
		y = (m02 - m20) * k
		z = (m10 - m01) * k
	} else if m00 > m11 && m00 > m22 {
		k := 2 * math.Sqrt(1+m00-m11-m22)
		w = (m21 - m12) / k
		x = 0.25 * k
		y = (m01 + m10) / k
		z = (m02 + m20) / k
	} else if m11 > m22 {
		k := 2 * math.Sqrt(1+m11-m00-m22)
		w = (m02 - m20) / k
		x = (m01 + m10) / k
		y = 0.25 * k
		z = (m12 + m21) / k
	} else {
		k := 2 * math.Sqrt(1+m22-m00-m11)
		w = (m10 - m01) / k
		x = (m02 + m20) / k
		y = (m12 + m21) / k
		z = 0.25 * k
	}
	return t, &Quaternion{X: Element(x), Y: Element(y), Z: Element(z), W: Element(w)}, s
}
