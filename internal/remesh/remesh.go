package remesh

import (
	"context"
	"fmt"
	"math"
	"sort"

	"tubegen/internal/mathutil"
	"tubegen/internal/mesh"
)

// Options controls Run.
type Options struct {
	Iterations   int     // passes; 0 means 6
	TargetLength float64 // 0 means the mean edge length of the input
	Relax        float64 // tangential step; 0 means 0.5
}

// Stats counts the operations applied over all passes.
type Stats struct {
	Passes    int
	Splits    int
	Collapses int
	Flips     int
	Target    float64
}

// Run remeshes m toward edges of length L in [4L/5, 4L/3] and valence 6.
// The input is left untouched. ctx is checked between passes and between
// the stages of a pass.
func Run(ctx context.Context, m *mesh.Mesh, opt Options) (*mesh.Mesh, Stats, error) {
	var st Stats
	if len(m.Faces) == 0 {
		return nil, st, fmt.Errorf("remesh: empty mesh")
	}
	if opt.Iterations <= 0 {
		opt.Iterations = 6
	}
	if opt.Relax <= 0 {
		opt.Relax = 0.5
	}
	L := opt.TargetLength
	if L <= 0 {
		L = m.MeanEdgeLength()
	}
	if L <= mathutil.LengthEps {
		return nil, st, fmt.Errorf("remesh: target length %g is degenerate", L)
	}
	st.Target = L

	a := newArena(m)
	hi, lo := 4*L/3, 4*L/5
	for pass := 0; pass < opt.Iterations; pass++ {
		stages := []func(){
			func() { st.Splits += a.splitLong(hi) },
			func() { st.Collapses += a.collapseShort(lo, hi) },
			func() { st.Flips += a.flipValence() },
			func() { a.relax(opt.Relax) },
		}
		for _, stage := range stages {
			if err := ctx.Err(); err != nil {
				return nil, st, err
			}
			stage()
		}
		// Each pass ends on compact arrays.
		a = newArena(a.toMesh())
		st.Passes++
	}
	return a.toMesh(), st, nil
}

func (a *arena) sortedEdges(desc bool) []mesh.Edge {
	es := a.edges()
	lens := make(map[mesh.Edge]float64, len(es))
	for _, e := range es {
		lens[e] = a.length(e)
	}
	sort.Slice(es, func(i, j int) bool {
		if desc {
			return lens[es[i]] > lens[es[j]]
		}
		return lens[es[i]] < lens[es[j]]
	})
	return es
}

// splitLong inserts the midpoint of every edge longer than hi.
func (a *arena) splitLong(hi float64) int {
	n := 0
	for _, e := range a.sortedEdges(true) {
		if a.length(e) <= hi {
			break
		}
		fs := a.edgeFaces(e[0], e[1])
		if len(fs) == 0 {
			continue
		}
		mid := a.addVert(a.pos[e[0]].Lerp(a.pos[e[1]], 0.5))
		for _, f := range fs {
			t := a.faces[f]
			for k := 0; k < 3; k++ {
				u, v, w := t[k], t[(k+1)%3], t[(k+2)%3]
				if mesh.EdgeOf(u, v) == e {
					a.setFace(f, [3]int{u, mid, w})
					a.addFace([3]int{mid, v, w})
					break
				}
			}
		}
		n++
	}
	return n
}

func common(x, y []int) int {
	n := 0
	for _, u := range x {
		for _, v := range y {
			if u == v {
				n++
			}
		}
	}
	return n
}

// canCollapse checks that merging e into point p keeps the mesh manifold,
// keeps valences above 3, creates no edge above hi and flips no face.
func (a *arena) canCollapse(e mesh.Edge, p mathutil.Vec3, hi float64) bool {
	u, v := e[0], e[1]
	fs := a.edgeFaces(u, v)
	if len(fs) != 2 || a.onBoundary(u) || a.onBoundary(v) {
		return false
	}
	nu, nv := a.neighbors(u), a.neighbors(v)
	if common(nu, nv) > 2 {
		return false
	}
	if len(nu)+len(nv)-4 < 4 {
		return false
	}
	for _, f := range fs {
		if a.valence(opposite(a.faces[f], u, v)) <= 3 {
			return false
		}
	}

	for _, w := range []int{u, v} {
		for _, f := range a.vf[w] {
			t := a.faces[f]
			if contains(t, u) && contains(t, v) {
				continue
			}
			before := a.normal(f)
			moved := t
			for k := range moved {
				if moved[k] == u || moved[k] == v {
					moved[k] = -1
				}
			}
			var pts [3]mathutil.Vec3
			for k, x := range moved {
				if x < 0 {
					pts[k] = p
				} else {
					pts[k] = a.pos[x]
					if a.pos[x].Dist(p) > hi {
						return false
					}
				}
			}
			after := mathutil.TriangleNormal(pts[0], pts[1], pts[2])
			if after.Dot(before) <= 0 || after.Len() < 1e-12 {
				return false
			}
		}
	}
	return true
}

func contains(t [3]int, v int) bool { return t[0] == v || t[1] == v || t[2] == v }

func opposite(t [3]int, u, v int) int {
	for _, w := range t {
		if w != u && w != v {
			return w
		}
	}
	return -1
}

// collapseShort merges the endpoints of edges shorter than lo.
func (a *arena) collapseShort(lo, hi float64) int {
	n := 0
	for _, e := range a.sortedEdges(false) {
		if !a.vAlive[e[0]] || !a.vAlive[e[1]] {
			continue
		}
		if a.length(e) >= lo {
			break
		}
		if len(a.edgeFaces(e[0], e[1])) == 0 {
			continue
		}
		p := a.pos[e[0]].Lerp(a.pos[e[1]], 0.5)
		if !a.canCollapse(e, p, hi) {
			continue
		}
		u, v := e[0], e[1]
		for _, f := range a.edgeFaces(u, v) {
			a.removeFace(f)
		}
		for _, f := range append([]int(nil), a.vf[v]...) {
			t := a.faces[f]
			for k := range t {
				if t[k] == v {
					t[k] = u
				}
			}
			a.setFace(f, t)
		}
		a.pos[u] = p
		a.removeVert(v)
		n++
	}
	return n
}

func deviation(vals ...int) int {
	d := 0
	for _, v := range vals {
		if v > 6 {
			d += v - 6
		} else {
			d += 6 - v
		}
	}
	return d
}

// flipValence flips interior edges whose flip strictly lowers the summed
// deviation from valence 6 over the four quad vertices.
func (a *arena) flipValence() int {
	n := 0
	for _, e := range a.edges() {
		u, v := e[0], e[1]
		fs := a.edgeFaces(u, v)
		if len(fs) != 2 {
			continue
		}
		f1, f2 := fs[0], fs[1]
		// Orient so that f1 walks u→v.
		if !walks(a.faces[f1], u, v) {
			f1, f2 = f2, f1
		}
		if !walks(a.faces[f1], u, v) || !walks(a.faces[f2], v, u) {
			continue
		}
		c := opposite(a.faces[f1], u, v)
		d := opposite(a.faces[f2], u, v)
		if c == d || len(a.edgeFaces(c, d)) > 0 {
			continue
		}
		vu, vv, vc, vd := a.valence(u), a.valence(v), a.valence(c), a.valence(d)
		if vu <= 3 || vv <= 3 {
			continue
		}
		if deviation(vu-1, vv-1, vc+1, vd+1) >= deviation(vu, vv, vc, vd) {
			continue
		}
		ref := a.normal(f1).Add(a.normal(f2))
		n1 := mathutil.TriangleNormal(a.pos[u], a.pos[d], a.pos[c])
		n2 := mathutil.TriangleNormal(a.pos[d], a.pos[v], a.pos[c])
		if n1.Dot(ref) <= 0 || n2.Dot(ref) <= 0 {
			continue
		}
		a.setFace(f1, [3]int{u, d, c})
		a.setFace(f2, [3]int{d, v, c})
		n++
	}
	return n
}

func walks(t [3]int, u, v int) bool {
	for k := 0; k < 3; k++ {
		if t[k] == u && t[(k+1)%3] == v {
			return true
		}
	}
	return false
}

// relax moves interior vertices toward their one-ring centroid within the
// tangent plane.
func (a *arena) relax(lambda float64) {
	next := make([]mathutil.Vec3, len(a.pos))
	copy(next, a.pos)
	for v := range a.pos {
		if !a.vAlive[v] || len(a.vf[v]) == 0 || a.onBoundary(v) {
			continue
		}
		nb := a.neighbors(v)
		var q, nrm mathutil.Vec3
		for _, u := range nb {
			q = q.Add(a.pos[u])
		}
		q = q.Scale(1 / float64(len(nb)))
		for _, f := range a.vf[v] {
			nrm = nrm.Add(a.normal(f))
		}
		nrm = nrm.Normalize()
		d := q.Sub(a.pos[v])
		d = d.Sub(nrm.Scale(d.Dot(nrm)))
		if math.IsNaN(d[0]) {
			continue
		}
		next[v] = a.pos[v].Add(d.Scale(lambda))
	}
	a.pos = next
}
