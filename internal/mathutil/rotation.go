package mathutil

import "math"

// RotZ spins the outline plane by a radians.
func RotZ(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}
}

// Tilt tips the outline plane about the X axis by a radians.
func Tilt(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}
}

// AlignToX spins the outline plane so that axis points along +X. A zero axis
// leaves the plane as is.
func AlignToX(axis Vec2) Mat3 {
	d := axis.Normalize()
	if d == (Vec2{}) {
		return Mat3Identity()
	}
	return Mat3{
		d[0], d[1], 0,
		-d[1], d[0], 0,
		0, 0, 1,
	}
}

func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}
