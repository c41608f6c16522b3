package mathutil

// Mat3 is a row-major 3×3 matrix: rotations of bones, chord frames and view
// orientations.
type Mat3 [9]float64

func Mat3Identity() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Mat3FromCols returns the matrix whose columns are x, y and z, so that
// MulVec3 maps the unit axes onto them.
func Mat3FromCols(x, y, z Vec3) Mat3 {
	return Mat3{
		x[0], y[0], z[0],
		x[1], y[1], z[1],
		x[2], y[2], z[2],
	}
}

// ChordFrame is the right-handed frame of a cross-section: X along the chord
// direction dir, Z along up and Y = up × dir. dir is expected to be a unit
// vector perpendicular to up.
func ChordFrame(dir, up Vec3) Mat3 {
	return Mat3FromCols(dir, up.Cross(dir), up)
}

// Col returns column i.
func (m Mat3) Col(i int) Vec3 {
	return Vec3{m[i], m[3+i], m[6+i]}
}

// Mat3Mul returns a × b.
func Mat3Mul(a, b Mat3) Mat3 {
	var m Mat3
	for r := 0; r < 3; r++ {
		row := Vec3{a[r*3], a[r*3+1], a[r*3+2]}
		for c := 0; c < 3; c++ {
			m[r*3+c] = row.Dot(b.Col(c))
		}
	}
	return m
}

// MulVec3 returns M × v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return m.Col(0).Scale(v[0]).Add(m.Col(1).Scale(v[1])).Add(m.Col(2).Scale(v[2]))
}

// Det is the triple product of the columns.
func (m Mat3) Det() float64 {
	return m.Col(0).Dot(m.Col(1).Cross(m.Col(2)))
}

// Inverse returns the inverse of m, or the identity when m is singular.
func (m Mat3) Inverse() Mat3 {
	d := m.Det()
	if d == 0 {
		return Mat3Identity()
	}
	// Rows of the inverse are the pairwise column cross products over det.
	x, y, z := m.Col(0), m.Col(1), m.Col(2)
	r0, r1, r2 := y.Cross(z).Scale(1/d), z.Cross(x).Scale(1/d), x.Cross(y).Scale(1/d)
	return Mat3{
		r0[0], r0[1], r0[2],
		r1[0], r1[1], r1[2],
		r2[0], r2[1], r2[2],
	}
}

func (m Mat3) Transpose() Mat3 {
	return Mat3FromCols(
		Vec3{m[0], m[1], m[2]},
		Vec3{m[3], m[4], m[5]},
		Vec3{m[6], m[7], m[8]},
	)
}
