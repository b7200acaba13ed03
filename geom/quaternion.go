package geom

type Quaternion = Vector4

var IdentityQuaternion = Quaternion{X: 0, Y: 0, Z: 0, W: 1}

func NewQuaternion(x, y, z, w Element) *Quaternion {
	return &Quaternion{X: x, Y: y, Z: z, W: w}
}

// Mul returns q * q2 (q2 is applied first).
func (q *Quaternion) Mul(q2 *Quaternion) *Quaternion {
	return &Quaternion{
		X: q.W*q2.X + q.X*q2.W + q.Y*q2.Z - q.Z*q2.Y,
		Y: q.W*q2.Y - q.X*q2.Z + q.Y*q2.W + q.Z*q2.X,
		Z: q.W*q2.Z + q.X*q2.Y - q.Y*q2.X + q.Z*q2.W,
		W: q.W*q2.W - q.X*q2.X - q.Y*q2.Y - q.Z*q2.Z,
	}
}

// Conjugate is the inverse of a unit quaternion.
func (q *Quaternion) Conjugate() *Quaternion {
	return &Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// NormalizeQuaternion returns q scaled to unit length, or identity for a zero quaternion.
func (q *Quaternion) NormalizeQuaternion() *Quaternion {
	l := q.Len()
	if l == 0 {
		r := IdentityQuaternion
		return &r
	}
	return &Quaternion{X: q.X / l, Y: q.Y / l, Z: q.Z / l, W: q.W / l}
}

func (q *Quaternion) ApplyTo(v *Vector3) *Vector3 {
	u := q.Vector3()
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}
