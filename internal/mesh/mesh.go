// Package mesh holds the indexed triangle mesh shared by the 3D stages, with
// manifold checks, consistent orientation and Laplacian fitting.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"tubegen/internal/mathutil"
)

// ErrNonManifold is returned when an edge is shared by more than two faces.
var ErrNonManifold = errors.New("non-manifold mesh")

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Verts []mathutil.Vec3
	Faces [][3]int
}

// Edge is an undirected edge keyed by (min, max) vertex index.
type Edge [2]int

// EdgeOf returns the canonical key of a-b.
func EdgeOf(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Verts: make([]mathutil.Vec3, len(m.Verts)),
		Faces: make([][3]int, len(m.Faces)),
	}
	copy(out.Verts, m.Verts)
	copy(out.Faces, m.Faces)
	return out
}

// EdgeFaces maps every edge to the faces that use it.
func (m *Mesh) EdgeFaces() map[Edge][]int {
	ef := make(map[Edge][]int, len(m.Faces)*3/2)
	for f, t := range m.Faces {
		for k := 0; k < 3; k++ {
			e := EdgeOf(t[k], t[(k+1)%3])
			ef[e] = append(ef[e], f)
		}
	}
	return ef
}

// EdgeStats counts edges by the number of faces sharing them.
type EdgeStats struct {
	Edges    int
	Boundary int // used by one face
	Over     int // used by three or more faces
}

// Closed reports whether every edge is shared by exactly two faces.
func (s EdgeStats) Closed() bool { return s.Boundary == 0 && s.Over == 0 }

// Stats returns the edge usage counts of m.
func (m *Mesh) Stats() EdgeStats {
	var s EdgeStats
	for _, fs := range m.EdgeFaces() {
		s.Edges++
		switch {
		case len(fs) == 1:
			s.Boundary++
		case len(fs) > 2:
			s.Over++
		}
	}
	return s
}

// CheckManifold returns ErrNonManifold if an edge has more than two faces or
// a face repeats a vertex.
func (m *Mesh) CheckManifold() error {
	for f, t := range m.Faces {
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			return fmt.Errorf("mesh: face %d repeats a vertex %v: %w", f, t, ErrNonManifold)
		}
	}
	for e, fs := range m.EdgeFaces() {
		if len(fs) > 2 {
			return fmt.Errorf("mesh: edge %v shared by %d faces: %w", e, len(fs), ErrNonManifold)
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box.
func (m *Mesh) Bounds() (lo, hi mathutil.Vec3) {
	lo = mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi = mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, v := range m.Verts {
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], v[k])
			hi[k] = math.Max(hi[k], v[k])
		}
	}
	return lo, hi
}

// MeanEdgeLength returns the average length over unique edges.
func (m *Mesh) MeanEdgeLength() float64 {
	var sum float64
	n := 0
	seen := make(map[Edge]bool, len(m.Faces)*3/2)
	for _, t := range m.Faces {
		for k := 0; k < 3; k++ {
			e := EdgeOf(t[k], t[(k+1)%3])
			if seen[e] {
				continue
			}
			seen[e] = true
			sum += m.Verts[e[0]].Dist(m.Verts[e[1]])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Valences returns the number of distinct neighbours per vertex.
func (m *Mesh) Valences() []int {
	val := make([]int, len(m.Verts))
	for e := range m.EdgeFaces() {
		val[e[0]]++
		val[e[1]]++
	}
	return val
}

// Compact drops vertices no face references and re-indexes the faces. It
// returns the old→new index map (-1 for dropped vertices).
func (m *Mesh) Compact() []int {
	remap := make([]int, len(m.Verts))
	for i := range remap {
		remap[i] = -1
	}
	var verts []mathutil.Vec3
	for f, t := range m.Faces {
		for k, v := range t {
			if remap[v] < 0 {
				remap[v] = len(verts)
				verts = append(verts, m.Verts[v])
			}
			m.Faces[f][k] = remap[v]
		}
	}
	m.Verts = verts
	return remap
}

// FaceNormal returns the unit normal of face f.
func (m *Mesh) FaceNormal(f int) mathutil.Vec3 {
	t := m.Faces[f]
	return mathutil.TriangleNormal(m.Verts[t[0]], m.Verts[t[1]], m.Verts[t[2]]).Normalize()
}

// SignedVolume is positive for a closed mesh whose faces point outward.
func (m *Mesh) SignedVolume() float64 {
	var v float64
	for _, t := range m.Faces {
		a, b, c := m.Verts[t[0]], m.Verts[t[1]], m.Verts[t[2]]
		v += a.Dot(b.Cross(c))
	}
	return v / 6
}
