package tube

import (
	"tubegen/internal/mathutil"
)

// Slice bridges rings a and b (vertex indices into verts) with triangles.
// The rings may differ in size. b is rotated so that its point closest to
// a[0] comes first, and reversed when its first tangent disagrees with a's.
// Every ring edge is used by exactly one emitted triangle.
func Slice(verts []mathutil.Vec3, a, b []int) [][3]int {
	na, nb := len(a), len(b)
	if na == 0 || nb == 0 {
		return nil
	}

	start, best := 0, verts[b[0]].Dist(verts[a[0]])
	for j := 1; j < nb; j++ {
		if d := verts[b[j]].Dist(verts[a[0]]); d < best {
			start, best = j, d
		}
	}

	ta := verts[a[1%na]].Sub(verts[a[0]])
	tb := verts[b[(start+1)%nb]].Sub(verts[b[start]])
	step := 1
	if ta.Dot(tb) < 0 {
		step = nb - 1
	}
	bb := make([]int, nb)
	for k := range bb {
		bb[k] = b[(start+k*step)%nb]
	}

	tris := make([][3]int, 0, na+nb)
	i, j := 0, 0
	for i < na || j < nb {
		advanceA := j == nb ||
			(i < na && float64(i+1)*float64(nb) <= float64(j+1)*float64(na))
		if advanceA {
			tris = append(tris, [3]int{a[i%na], a[(i+1)%na], bb[j%nb]})
			i++
		} else {
			tris = append(tris, [3]int{a[i%na], bb[(j+1)%nb], bb[j%nb]})
			j++
		}
	}
	return tris
}

// Fan closes ring with triangles around apex.
func Fan(ring []int, apex int) [][3]int {
	tris := make([][3]int, 0, len(ring))
	for k := range ring {
		tris = append(tris, [3]int{ring[k], ring[(k+1)%len(ring)], apex})
	}
	return tris
}
