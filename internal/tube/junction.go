package tube

import (
	"fmt"
	"math"

	"tubegen/internal/chord"
	"tubegen/internal/mathutil"
	"tubegen/internal/planar"
)

// leg is one side of a junction triangle walked from outline vertex from
// to outline vertex to.
type leg struct {
	chord    int
	from, to int
}

// cornerIndex returns the ring index that sits on outline vertex v.
func (b *builder) cornerIndex(c, v int) int {
	if b.g.Nodes[c].Key[1] == v {
		return 0
	}
	return b.rings[c].Size / 2
}

// arc returns the ring vertices strictly between the two corners of leg l,
// ordered from l.from to l.to, on the upper (z ≥ 0) or lower half.
func (b *builder) arc(l leg, upper bool) []int {
	r := b.rings[l.chord]
	n, half := r.Size, r.Size/2
	fromKey1 := b.g.Nodes[l.chord].Key[1] == l.from

	var idx []int
	switch {
	case upper && fromKey1:
		for k := 1; k < half; k++ {
			idx = append(idx, k)
		}
	case upper:
		for k := half - 1; k >= 1; k-- {
			idx = append(idx, k)
		}
	case fromKey1:
		for k := n - 1; k > half; k-- {
			idx = append(idx, k)
		}
	default:
		for k := half + 1; k < n; k++ {
			idx = append(idx, k)
		}
	}
	out := make([]int, len(idx))
	for i, k := range idx {
		out[i] = r.Verts[k]
	}
	return out
}

// legs orders the three chords of j into a closed walk around its triangle.
func (b *builder) legs(j chord.Junction) ([3]leg, error) {
	key := func(c int) planar.EdgeKey { return b.g.Nodes[c].Key }
	has := func(c, v int) bool { return key(c)[0] == v || key(c)[1] == v }
	other := func(c, v int) int {
		if key(c)[0] == v {
			return key(c)[1]
		}
		return key(c)[0]
	}

	a := j.Chords[0]
	p, q := key(a)[0], key(a)[1]
	bc, cc := j.Chords[1], j.Chords[2]
	if !has(bc, q) {
		bc, cc = cc, bc
	}
	if !has(bc, q) {
		return [3]leg{}, fmt.Errorf("chords do not share a corner")
	}
	s := other(bc, q)
	if key(cc) != planar.Key(s, p) {
		return [3]leg{}, fmt.Errorf("chords do not close a triangle")
	}
	return [3]leg{{a, p, q}, {bc, q, s}, {cc, s, p}}, nil
}

// junction closes the junction triangle j with a top and a bottom patch that
// reuse the upper and lower arcs of its three rings. Corners shared by two
// rings are merged. Problems skip the junction and record why.
func (b *builder) junction(j chord.Junction) {
	skip := func(reason string) {
		b.skips = append(b.skips, Skip{Kind: "junction", Face: j.Face, Reason: reason})
	}

	legs, err := b.legs(j)
	if err != nil {
		skip(err.Error())
		return
	}

	// Corner of leg i is where leg i starts and leg i-1 ends.
	var corners [3]int
	matched := 0
	type pair struct{ keep, drop int }
	var merges []pair
	for i, l := range legs {
		prev := legs[(i+2)%3]
		here := b.rings[l.chord].Verts[b.cornerIndex(l.chord, l.from)]
		there := b.rings[prev.chord].Verts[b.cornerIndex(prev.chord, l.from)]
		corners[i] = here
		if b.verts[here].Dist(b.verts[there]) <= mathutil.PointEps {
			matched++
			merges = append(merges, pair{keep: here, drop: there})
		}
		if math.Abs(b.verts[here][2]) > mathutil.PointEps {
			skip(fmt.Sprintf("corner %d is off the outline plane", l.from))
			return
		}
	}
	if matched < 3 {
		skip(fmt.Sprintf("matched %d of 3 corners", matched))
		return
	}

	var top, bottom []int
	for i, l := range legs {
		top = append(top, corners[i])
		bottom = append(bottom, corners[i])
		top = append(top, b.arc(l, true)...)
		bottom = append(bottom, b.arc(l, false)...)
	}
	if len(top) != len(bottom) {
		skip("upper and lower arcs differ in length")
		return
	}

	poly := make([]mathutil.Vec2, len(top))
	for i, v := range top {
		poly[i] = b.verts[v].XY()
	}
	if math.Abs(planar.SignedArea(poly)) < mathutil.LengthEps {
		skip("degenerate triangle")
		return
	}
	interior := planar.GenerateTriangleGrid(poly, b.iso, 0.5*b.iso)
	tris, err := planar.TriangulatePolygon(poly, interior)
	if err != nil {
		skip(err.Error())
		return
	}

	for _, m := range merges {
		b.merge(m.drop, m.keep)
	}

	nb := len(top)
	topIn := make([]int, len(interior))
	botIn := make([]int, len(interior))
	for i, p := range interior {
		z := b.liftHeight(p, top)
		topIn[i] = b.addVert(p.Vec3(z))
		botIn[i] = b.addVert(p.Vec3(-z))
	}
	pick := func(idx int, ring, in []int) int {
		if idx < nb {
			return ring[idx]
		}
		return in[idx-nb]
	}
	for _, t := range tris {
		b.faces = append(b.faces,
			[3]int{pick(t[0], top, topIn), pick(t[1], top, topIn), pick(t[2], top, topIn)},
			[3]int{pick(t[0], bottom, botIn), pick(t[2], bottom, botIn), pick(t[1], bottom, botIn)},
		)
	}
}

// liftHeight interpolates the boundary heights at p by inverse squared
// distance.
func (b *builder) liftHeight(p mathutil.Vec2, boundary []int) float64 {
	var num, den float64
	for _, v := range boundary {
		q := b.verts[v]
		d2 := p.Sub(q.XY()).Dot(p.Sub(q.XY()))
		if d2 < 1e-12 {
			return q[2]
		}
		w := 1 / d2
		num += w * q[2]
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}
