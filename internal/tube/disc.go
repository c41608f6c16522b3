// Package tube turns a smoothed chord graph into a closed triangle mesh of
// pipes, end caps and three-way junction patches.
package tube

import (
	"math"

	"tubegen/internal/mathutil"
)

// Up is the outline plane normal.
var Up = mathutil.Vec3{0, 0, 1}

// DiscCount returns the number of points on a ring of the given radius:
// 2·ceil(π·r/iso), never fewer than 4. The count is always even so that the
// point opposite index 0 is index count/2.
func DiscCount(radius, iso float64) int {
	if iso <= 0 {
		return 4
	}
	n := 2 * int(math.Ceil(math.Pi*radius/iso))
	if n < 4 {
		n = 4
	}
	return n
}

// Disc returns the ring of a cross-section in the plane spanned by dir and
// Up. Point 0 is center + dir·radius and point count/2 is center − dir·radius;
// the first half has z ≥ 0.
func Disc(center, dir mathutil.Vec3, radius, iso float64) []mathutil.Vec3 {
	n := DiscCount(radius, iso)
	frame := mathutil.ChordFrame(dir, Up)
	pts := make([]mathutil.Vec3, n)
	for k := range pts {
		a := 2 * math.Pi * float64(k) / float64(n)
		pts[k] = center.Add(frame.MulVec3(mathutil.Vec3{radius * math.Cos(a), 0, radius * math.Sin(a)}))
	}
	// Snap the axis points so shared junction corners match exactly.
	pts[0] = center.Add(dir.Scale(radius))
	pts[n/2] = center.Sub(dir.Scale(radius))
	return pts
}
