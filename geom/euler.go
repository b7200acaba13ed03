package geom

import "math"

// RotationOrder names the matrix product: XYZ means Rx * Ry * Rz.
type RotationOrder int

const (
	RotationOrderXYZ RotationOrder = iota
	RotationOrderYXZ
	RotationOrderZXY
	RotationOrderZYX
)

// RotationOrderUnity matches the inspector's Euler angles (Z, then X, then Y).
const RotationOrderUnity = RotationOrderYXZ

// EulerAngles in radians.
type EulerAngles struct {
	Vector3
	Order RotationOrder
}

func NewEuler(x, y, z Element, order RotationOrder) *EulerAngles {
	return &EulerAngles{Vector3: Vector3{x, y, z}, Order: order}
}

func NewEulerDegrees(x, y, z Element, order RotationOrder) *EulerAngles {
	return NewEuler(x*math.Pi/180, y*math.Pi/180, z*math.Pi/180, order)
}

func NewEulerFromQuaternion(q *Quaternion, order RotationOrder) *EulerAngles {
	return NewEulerFromMatrix4(NewRotationMatrix4FromQuaternion(q), order)
}

func clamp1(v float64) float64 {
	return math.Max(-1, math.Min(v, 1))
}

func NewEulerFromMatrix4(mat *Matrix4, order RotationOrder) *EulerAngles {
	const eps = 1e-7
	// m[r][c], rotation part only.
	var m [3][3]float64
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			m[r][c] = float64(mat[c*4+r])
		}
	}
	var x, y, z float64
	switch order {
	case RotationOrderXYZ:
		y = math.Asin(clamp1(m[0][2]))
		if math.Abs(m[0][2]) < 1-eps {
			x = math.Atan2(-m[1][2], m[2][2])
			z = math.Atan2(-m[0][1], m[0][0])
		} else {
			x = math.Atan2(m[2][1], m[1][1])
		}
	case RotationOrderYXZ:
		x = math.Asin(-clamp1(m[1][2]))
		if math.Abs(m[1][2]) < 1-eps {
			y = math.Atan2(m[0][2], m[2][2])
			z = math.Atan2(m[1][0], m[1][1])
		} else {
			y = math.Atan2(-m[2][0], m[0][0])
		}
	case RotationOrderZXY:
		x = math.Asin(clamp1(m[2][1]))
		if math.Abs(m[2][1]) < 1-eps {
			y = math.Atan2(-m[2][0], m[2][2])
			z = math.Atan2(-m[0][1], m[1][1])
		} else {
			z = math.Atan2(m[1][0], m[0][0])
		}
	case RotationOrderZYX:
		y = math.Asin(-clamp1(m[2][0]))
		if math.Abs(m[2][0]) < 1-eps {
			x = math.Atan2(m[2][1], m[2][2])
			z = math.Atan2(m[1][0], m[0][0])
		} else {
			z = math.Atan2(-m[0][1], m[1][1])
		}
	}
	return NewEuler(Element(x), Element(y), Element(z), order)
}

func axisQuaternion(x, y, z Element, rad Element) *Quaternion {
	s, c := math.Sincos(float64(rad) / 2)
	return &Quaternion{X: x * Element(s), Y: y * Element(s), Z: z * Element(s), W: Element(c)}
}

func (v *EulerAngles) ToQuaternion() *Quaternion {
	qx := axisQuaternion(1, 0, 0, v.X)
	qy := axisQuaternion(0, 1, 0, v.Y)
	qz := axisQuaternion(0, 0, 1, v.Z)
	switch v.Order {
	case RotationOrderXYZ:
		return qx.Mul(qy).Mul(qz)
	case RotationOrderYXZ:
		return qy.Mul(qx).Mul(qz)
	case RotationOrderZXY:
		return qz.Mul(qx).Mul(qy)
	case RotationOrderZYX:
		return qz.Mul(qy).Mul(qx)
	}
	q := IdentityQuaternion
	return &q
}

// Degrees returns the angles in degrees.
func (v *EulerAngles) Degrees() *Vector3 {
	return v.Vector3.Scale(180 / math.Pi)
}
