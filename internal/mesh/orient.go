package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Orient makes face winding consistent and outward facing, per connected
// component. Winding is propagated breadth-first across shared edges from a
// reference face; the reference is then flipped if a ray cast along its
// normal crosses the component an odd number of times.
func Orient(m *Mesh) error {
	ef := m.EdgeFaces()
	for e, fs := range ef {
		if len(fs) > 2 {
			return fmt.Errorf("mesh: orient: edge %v shared by %d faces: %w", e, len(fs), ErrNonManifold)
		}
	}

	comp := make([]int, len(m.Faces))
	for i := range comp {
		comp[i] = -1
	}
	for seed := range m.Faces {
		if comp[seed] >= 0 {
			continue
		}
		faces, err := m.propagate(seed, ef, comp)
		if err != nil {
			return err
		}
		ref := largestFace(m, faces)
		if m.insideHits(ref, faces)%2 == 1 {
			for _, f := range faces {
				m.Faces[f][1], m.Faces[f][2] = m.Faces[f][2], m.Faces[f][1]
			}
		}
	}
	return nil
}

// directed reports whether face t walks edge a→b.
func directed(t [3]int, a, b int) bool {
	for k := 0; k < 3; k++ {
		if t[k] == a && t[(k+1)%3] == b {
			return true
		}
	}
	return false
}

// propagate flips the faces reachable from seed to agree with it and labels
// them with seed's component id.
func (m *Mesh) propagate(seed int, ef map[Edge][]int, comp []int) ([]int, error) {
	comp[seed] = seed
	queue := []int{seed}
	var faces []int
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		faces = append(faces, f)
		t := m.Faces[f]
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			for _, g := range ef[EdgeOf(a, b)] {
				if g == f {
					continue
				}
				// A consistent neighbour walks the shared edge b→a.
				agrees := directed(m.Faces[g], b, a)
				if comp[g] >= 0 {
					if !agrees {
						return nil, fmt.Errorf("mesh: orient: faces %d and %d cannot agree: %w", f, g, ErrNonManifold)
					}
					continue
				}
				if !agrees {
					m.Faces[g][1], m.Faces[g][2] = m.Faces[g][2], m.Faces[g][1]
				}
				comp[g] = seed
				queue = append(queue, g)
			}
		}
	}
	return faces, nil
}

func largestFace(m *Mesh, faces []int) int {
	best, area := faces[0], -1.0
	for _, f := range faces {
		t := m.Faces[f]
		a := m.Verts[t[1]].Sub(m.Verts[t[0]]).Cross(m.Verts[t[2]].Sub(m.Verts[t[0]])).Len()
		if a > area {
			best, area = f, a
		}
	}
	return best
}

func vec(m *Mesh, i int) r3.Vec {
	v := m.Verts[i]
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// insideHits counts the faces hit by a ray from the centroid of ref along
// its normal.
func (m *Mesh) insideHits(ref int, faces []int) int {
	t := m.Faces[ref]
	a, b, c := vec(m, t[0]), vec(m, t[1]), vec(m, t[2])
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	if r3.Norm(n) == 0 {
		return 0
	}
	dir := r3.Unit(n)
	origin := r3.Scale(1.0/3, r3.Add(r3.Add(a, b), c))

	hits := 0
	for _, f := range faces {
		if f == ref {
			continue
		}
		ft := m.Faces[f]
		if d, ok := rayTriangle(origin, dir, vec(m, ft[0]), vec(m, ft[1]), vec(m, ft[2])); ok && d > 1e-9 {
			hits++
		}
	}
	return hits
}

// rayTriangle is the Möller–Trumbore intersection test. It returns the ray
// parameter of the hit.
func rayTriangle(o, d, a, b, c r3.Vec) (float64, bool) {
	const eps = 1e-12
	e1 := r3.Sub(b, a)
	e2 := r3.Sub(c, a)
	p := r3.Cross(d, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det
	s := r3.Sub(o, a)
	u := r3.Dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := r3.Cross(s, e1)
	v := r3.Dot(d, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	return r3.Dot(e2, q) * inv, true
}
