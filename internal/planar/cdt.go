package planar

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fogleman/delaunay"

	"tubegen/internal/mathutil"
)

// ErrConstraint is returned when a constraint edge cannot be recovered, e.g.
// because it references a duplicate point or leaves the convex hull.
var ErrConstraint = errors.New("constraint edge not recoverable")

// flatTolerance bounds |orient| relative to the squared longest edge below
// which a triangle counts as zero-area.
const flatTolerance = 1e-9

// duplicateDist2 is the squared distance under which an input point is
// treated as a copy of one already in the triangulation.
const duplicateDist2 = 1e-12

// Triangulate returns a constrained Delaunay triangulation of points in which
// every constraint edge appears. Triangles are index triples in
// counter-clockwise order, cover the convex hull of points and have non-zero
// area.
func Triangulate(points []mathutil.Vec2, constraints [][2]int) ([][3]int, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("planar: triangulate %d points: %w", len(points), ErrMalformedOutline)
	}

	dpts := make([]delaunay.Point, len(points))
	for i, p := range points {
		dpts[i] = delaunay.Point{X: p[0], Y: p[1]}
	}
	dt, err := delaunay.Triangulate(dpts)
	if err != nil {
		return nil, fmt.Errorf("planar: delaunay: %w", err)
	}
	if len(dt.Triangles) == 0 {
		return nil, fmt.Errorf("planar: delaunay produced no triangles: %w", ErrMalformedOutline)
	}

	c := newCDT(points, len(dt.Triangles)/3)
	for i := 0; i+2 < len(dt.Triangles); i += 3 {
		c.add([3]int{dt.Triangles[i], dt.Triangles[i+1], dt.Triangles[i+2]})
	}

	// Delaunay skips points lying on a hull edge; put them back so collinear
	// runs end up as real vertices instead of slivers.
	c.insertMissing()
	c.clearFlat()

	// Work list: constraints can be split when a vertex lies on them.
	work := make([][2]int, len(constraints))
	copy(work, constraints)
	for len(work) > 0 {
		e := work[0]
		work = work[1:]
		if e[0] == e[1] {
			continue
		}
		if w := c.vertexOnSegment(e[0], e[1]); w >= 0 {
			work = append(work, [2]int{e[0], w}, [2]int{w, e[1]})
			continue
		}
		if err := c.recover(e[0], e[1]); err != nil {
			return nil, err
		}
		c.fixed[Key(e[0], e[1])] = true
	}

	c.restoreDelaunay()
	c.clearFlat()
	return c.triangles(), nil
}

// TriangulatePolygon triangulates the closed loop boundary together with the
// interior points. Output indices refer to boundary followed by interior.
// Zero-area triangles and triangles whose centroid falls outside the loop are
// discarded.
func TriangulatePolygon(boundary, interior []mathutil.Vec2) ([][3]int, error) {
	boundary = Close(boundary)
	if len(boundary) < 3 {
		return nil, fmt.Errorf("planar: polygon with %d points: %w", len(boundary), ErrMalformedOutline)
	}

	pts := make([]mathutil.Vec2, 0, len(boundary)+len(interior))
	pts = append(pts, boundary...)
	pts = append(pts, interior...)

	n := len(boundary)
	cons := make([][2]int, n)
	for i := range boundary {
		cons[i] = [2]int{i, (i + 1) % n}
	}

	tris, err := Triangulate(pts, cons)
	if err != nil {
		return nil, err
	}

	out := tris[:0]
	for _, t := range tris {
		if flat, _ := isFlat(pts, t); flat {
			continue
		}
		cen := pts[t[0]].Add(pts[t[1]]).Add(pts[t[2]]).Scale(1.0 / 3)
		if PointInPolygon(cen, boundary) {
			out = append(out, t)
		}
	}
	return out, nil
}

type cdt struct {
	pts   []mathutil.Vec2
	tris  [][3]int
	alive []bool
	edges map[EdgeKey][]int
	fixed map[EdgeKey]bool
}

func newCDT(pts []mathutil.Vec2, capHint int) *cdt {
	return &cdt{
		pts:   pts,
		tris:  make([][3]int, 0, capHint),
		alive: make([]bool, 0, capHint),
		edges: make(map[EdgeKey][]int, capHint*2),
		fixed: make(map[EdgeKey]bool),
	}
}

func (c *cdt) add(t [3]int) int {
	if mathutil.Orient(c.pts[t[0]], c.pts[t[1]], c.pts[t[2]]) < 0 {
		t[1], t[2] = t[2], t[1]
	}
	id := len(c.tris)
	c.tris = append(c.tris, t)
	c.alive = append(c.alive, true)
	for k := 0; k < 3; k++ {
		key := Key(t[k], t[(k+1)%3])
		c.edges[key] = append(c.edges[key], id)
	}
	return id
}

func (c *cdt) remove(id int) {
	c.alive[id] = false
	t := c.tris[id]
	for k := 0; k < 3; k++ {
		key := Key(t[k], t[(k+1)%3])
		list := c.edges[key]
		for i, f := range list {
			if f == id {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(c.edges, key)
		} else {
			c.edges[key] = list
		}
	}
}

func opposite(t [3]int, a, b int) int {
	for _, v := range t {
		if v != a && v != b {
			return v
		}
	}
	return -1
}

// quad returns the vertices opposite edge key in its two triangles.
func (c *cdt) quad(key EdgeKey) (p, q int, ok bool) {
	list := c.edges[key]
	if len(list) != 2 {
		return -1, -1, false
	}
	p = opposite(c.tris[list[0]], key[0], key[1])
	q = opposite(c.tris[list[1]], key[0], key[1])
	return p, q, p >= 0 && q >= 0
}

// flippable reports whether replacing diagonal u-v of quad (u,v,p,q) by
// p-q yields two proper triangles covering the same area. This holds for
// strictly convex quads and for a degenerate triangle whose apex lies on u-v.
func (c *cdt) flippable(u, v, p, q int) bool {
	P := c.pts
	old := math.Abs(mathutil.Orient(P[u], P[v], P[p])) + math.Abs(mathutil.Orient(P[u], P[v], P[q]))
	n1 := math.Abs(mathutil.Orient(P[p], P[q], P[u]))
	n2 := math.Abs(mathutil.Orient(P[p], P[q], P[v]))
	eps := 1e-12 * old
	return n1 > eps && n2 > eps && math.Abs(n1+n2-old) <= 1e-9*old
}

func (c *cdt) flip(key EdgeKey) (EdgeKey, bool) {
	p, q, ok := c.quad(key)
	if !ok || !c.flippable(key[0], key[1], p, q) {
		return EdgeKey{}, false
	}
	list := c.edges[key]
	t1, t2 := list[0], list[1]
	c.remove(t1)
	c.remove(t2)
	c.add([3]int{key[0], q, p})
	c.add([3]int{key[1], p, q})
	return Key(p, q), true
}

func (c *cdt) vertexOnSegment(a, b int) int {
	A, B := c.pts[a], c.pts[b]
	ab := B.Sub(A)
	l2 := ab.Dot(ab)
	if l2 < 1e-24 {
		return -1
	}
	tol := 1e-9 * l2
	for i, p := range c.pts {
		if i == a || i == b {
			continue
		}
		if o := mathutil.Orient(A, B, p); o > tol || o < -tol {
			continue
		}
		t := p.Sub(A).Dot(ab) / l2
		if t > 1e-9 && t < 1-1e-9 {
			if _, used := c.vertexUsed(i); used {
				return i
			}
		}
	}
	return -1
}

// vertexUsed reports whether i is referenced by a live triangle (duplicate
// points are left out by the Delaunay step).
func (c *cdt) vertexUsed(i int) (int, bool) {
	for id, t := range c.tris {
		if c.alive[id] && (t[0] == i || t[1] == i || t[2] == i) {
			return id, true
		}
	}
	return -1, false
}

// recover inserts edge a-b by flipping every edge that crosses it.
func (c *cdt) recover(a, b int) error {
	target := Key(a, b)
	if _, ok := c.edges[target]; ok {
		return nil
	}
	A, B := c.pts[a], c.pts[b]

	var queue []EdgeKey
	for _, key := range c.sortedEdges() {
		if key[0] == a || key[0] == b || key[1] == a || key[1] == b {
			continue
		}
		if SegmentsCross(A, B, c.pts[key[0]], c.pts[key[1]]) {
			queue = append(queue, key)
		}
	}
	if len(queue) == 0 {
		return fmt.Errorf("planar: constraint %d-%d crosses nothing yet is missing: %w", a, b, ErrConstraint)
	}

	budget := 64*len(queue) + 1024
	for len(queue) > 0 {
		if budget--; budget < 0 {
			return fmt.Errorf("planar: constraint %d-%d: flip budget exhausted: %w", a, b, ErrConstraint)
		}
		key := queue[0]
		queue = queue[1:]
		if _, ok := c.edges[key]; !ok {
			continue
		}
		if c.fixed[key] {
			return fmt.Errorf("planar: constraint %d-%d crosses constraint %d-%d: %w", a, b, key[0], key[1], ErrConstraint)
		}
		nk, ok := c.flip(key)
		if !ok {
			if _, _, has := c.quad(key); !has {
				return fmt.Errorf("planar: constraint %d-%d leaves the hull: %w", a, b, ErrConstraint)
			}
			queue = append(queue, key)
			continue
		}
		if nk == target {
			continue
		}
		if nk[0] != a && nk[0] != b && nk[1] != a && nk[1] != b &&
			SegmentsCross(A, B, c.pts[nk[0]], c.pts[nk[1]]) {
			queue = append(queue, nk)
		}
	}
	if _, ok := c.edges[target]; !ok {
		return fmt.Errorf("planar: constraint %d-%d: %w", a, b, ErrConstraint)
	}
	return nil
}

// isFlat reports whether t has (near) zero area, together with its longest
// edge.
func isFlat(pts []mathutil.Vec2, t [3]int) (bool, EdgeKey) {
	long, key := 0.0, EdgeKey{}
	for k := 0; k < 3; k++ {
		u, v := t[k], t[(k+1)%3]
		if l := pts[u].Dist(pts[v]); l > long {
			long, key = l, Key(u, v)
		}
	}
	area := math.Abs(mathutil.Orient(pts[t[0]], pts[t[1]], pts[t[2]]))
	return area <= flatTolerance*long*long, key
}

// clearFlat removes zero-area triangles. A flat triangle on the hull is
// dropped; one inside is flipped across its longest edge, which pairs the
// apex lying on that edge with the neighbour.
func (c *cdt) clearFlat() {
	for pass := 0; pass < 4*len(c.tris)+8; pass++ {
		changed := false
		for id := range c.tris {
			if !c.alive[id] {
				continue
			}
			flat, key := isFlat(c.pts, c.tris[id])
			if !flat {
				continue
			}
			if len(c.edges[key]) == 1 {
				c.remove(id)
				changed = true
			} else if !c.fixed[key] {
				if _, ok := c.flip(key); ok {
					changed = true
				}
			}
		}
		if !changed {
			return
		}
	}
}

// insertMissing adds every point the Delaunay step left out, except copies
// of points already present.
func (c *cdt) insertMissing() {
	used := make([]bool, len(c.pts))
	for id, t := range c.tris {
		if c.alive[id] {
			used[t[0]], used[t[1]], used[t[2]] = true, true, true
		}
	}
	for i, p := range c.pts {
		if used[i] {
			continue
		}
		dup := false
		for j, q := range c.pts {
			if used[j] && p.Sub(q).Dot(p.Sub(q)) < duplicateDist2 {
				dup = true
				break
			}
		}
		if !dup && c.insert(i) {
			used[i] = true
		}
	}
}

// insert splits the triangle containing point i, or both triangles of the
// edge it lies on. It reports false when i is outside every triangle.
func (c *cdt) insert(i int) bool {
	p := c.pts[i]
	for id, t := range c.tris {
		if !c.alive[id] {
			continue
		}
		a, b, d := c.pts[t[0]], c.pts[t[1]], c.pts[t[2]]
		long := math.Max(a.Dist(b), math.Max(b.Dist(d), d.Dist(a)))
		tol := flatTolerance * long * long
		o := [3]float64{mathutil.Orient(a, b, p), mathutil.Orient(b, d, p), mathutil.Orient(d, a, p)}
		if o[0] < -tol || o[1] < -tol || o[2] < -tol {
			continue
		}
		for k := 0; k < 3; k++ {
			if math.Abs(o[k]) > tol {
				continue
			}
			u, v := t[k], t[(k+1)%3]
			key := Key(u, v)
			faces := append([]int(nil), c.edges[key]...)
			for _, f := range faces {
				w := opposite(c.tris[f], u, v)
				c.remove(f)
				c.add([3]int{u, i, w})
				c.add([3]int{i, v, w})
			}
			return true
		}
		c.remove(id)
		c.add([3]int{t[0], t[1], i})
		c.add([3]int{t[1], t[2], i})
		c.add([3]int{t[2], t[0], i})
		return true
	}
	return false
}

// sortedEdges lists the current edges in index order so flip sequences do
// not depend on map iteration.
func (c *cdt) sortedEdges() []EdgeKey {
	keys := make([]EdgeKey, 0, len(c.edges))
	for key := range c.edges {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}

// inCircle reports whether d lies strictly inside the circumcircle of CCW abc.
func inCircle(a, b, c, d mathutil.Vec2) bool {
	adx, ady := a[0]-d[0], a[1]-d[1]
	bdx, bdy := b[0]-d[0], b[1]-d[1]
	cdx, cdy := c[0]-d[0], c[1]-d[1]
	det := (adx*adx+ady*ady)*(bdx*cdy-cdx*bdy) -
		(bdx*bdx+bdy*bdy)*(adx*cdy-cdx*ady) +
		(cdx*cdx+cdy*cdy)*(adx*bdy-bdx*ady)
	return det > 1e-12
}

// restoreDelaunay runs Lawson flips over unconstrained edges.
func (c *cdt) restoreDelaunay() {
	for pass := 0; pass < 32; pass++ {
		flipped := false
		for _, key := range c.sortedEdges() {
			if c.fixed[key] {
				continue
			}
			list, ok := c.edges[key]
			if !ok || len(list) != 2 {
				continue
			}
			t := c.tris[list[0]]
			q := opposite(c.tris[list[1]], key[0], key[1])
			if inCircle(c.pts[t[0]], c.pts[t[1]], c.pts[t[2]], c.pts[q]) {
				if _, ok := c.flip(key); ok {
					flipped = true
				}
			}
		}
		if !flipped {
			return
		}
	}
}

func (c *cdt) triangles() [][3]int {
	out := make([][3]int, 0, len(c.tris))
	for id, t := range c.tris {
		if c.alive[id] {
			out = append(out, t)
		}
	}
	return out
}
