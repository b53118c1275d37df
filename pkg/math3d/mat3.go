package math3d

// Mat3 is a 3x3 matrix stored in column-major order.
type Mat3 [9]float64

// MulVec3 transforms a Vec3.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[3]*v.Y + m[6]*v.Z,
		m[1]*v.X + m[4]*v.Y + m[7]*v.Z,
		m[2]*v.X + m[5]*v.Y + m[8]*v.Z,
	}
}

// NormalMatrix returns the inverse-transpose of the upper-left 3x3 block of m.
// Normals transformed by it stay perpendicular to surfaces under non-uniform
// scale. A singular block yields the identity.
func NormalMatrix(m Mat4) Mat3 {
	c0, c1, c2 := m.Column(0), m.Column(1), m.Column(2)

	// The cofactor matrix has columns c1×c2, c2×c0, c0×c1; the
	// inverse-transpose is that divided by the determinant.
	x, y, z := c1.Cross(c2), c2.Cross(c0), c0.Cross(c1)
	det := c0.Dot(x)
	if det == 0 {
		return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
	}
	inv := 1 / det
	x, y, z = x.Scale(inv), y.Scale(inv), z.Scale(inv)

	return Mat3{
		x.X, x.Y, x.Z,
		y.X, y.Y, y.Z,
		z.X, z.Y, z.Z,
	}
}
