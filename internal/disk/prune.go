package disk

import (
	"math"

	"tubegen/internal/mathutil"
)

// branch is a run of sleeve faces ending in an end face, hanging off the
// branch face At. Marks[i] is the axis length from the tip to where the walk
// enters Faces[i].
type branch struct {
	At     int
	Faces  []int
	Marks  []float64
	Length float64
}

// DistanceToLeaf returns, per face, the axis length to the nearest end face
// reachable through sleeve faces. The axis runs from the end face's free
// vertex through the midpoints of the crossed interior edges. Faces not on
// such a path (branch faces and sleeves between two branch faces) get +Inf.
// A sleeve reached from two ends keeps the larger value.
func DistanceToLeaf(m *Mesh) []float64 {
	dist := make([]float64, len(m.Tris))
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	seen := make([]bool, len(m.Tris))
	for _, b := range m.leafBranches() {
		for i, f := range b.Faces {
			if !seen[f] || b.Marks[i] > dist[f] {
				dist[f] = b.Marks[i]
				seen[f] = true
			}
		}
	}
	return dist
}

// sharedEdge returns the edge f and g have in common.
func (m *Mesh) sharedEdge(f, g int) (int, int, bool) {
	t := m.Tris[f]
	for k := 0; k < 3; k++ {
		a, b := t[k], t[(k+1)%3]
		for _, h := range m.EdgeFaces(a, b) {
			if h == g {
				return a, b, true
			}
		}
	}
	return -1, -1, false
}

// freeVertex returns the vertex of end face f opposite its interior edge.
func (m *Mesh) freeVertex(f int) mathutil.Vec2 {
	t := m.Tris[f]
	for k := 0; k < 3; k++ {
		if !m.IsBoundaryEdge(t[k], t[(k+1)%3]) {
			return m.Points[t[(k+2)%3]]
		}
	}
	return m.Centroid(f)
}

// leafBranches walks from every end face through sleeves. Walks that reach
// a branch face record it in At and add the step to its centroid; walks that
// reach another end set At = -1.
func (m *Mesh) leafBranches() []branch {
	var out []branch
	for f := range m.Tris {
		if m.Degree(f) != 1 {
			continue
		}
		b := branch{At: -1, Faces: []int{f}, Marks: []float64{0}}
		pos := m.freeVertex(f)
		prev, cur := -1, f
		for {
			next := -1
			for _, g := range m.FaceNeighbors(cur) {
				if g != prev {
					next = g
					break
				}
			}
			if next < 0 {
				break
			}
			if u, v, ok := m.sharedEdge(cur, next); ok {
				mid := m.Points[u].Lerp(m.Points[v], 0.5)
				b.Length += pos.Dist(mid)
				pos = mid
			}
			if m.Degree(next) != 2 {
				if m.Degree(next) == 3 {
					b.At = next
					b.Length += pos.Dist(m.Centroid(next))
				} else {
					b.Faces = append(b.Faces, next)
					b.Marks = append(b.Marks, b.Length)
				}
				break
			}
			b.Faces = append(b.Faces, next)
			b.Marks = append(b.Marks, b.Length)
			prev, cur = cur, next
		}
		out = append(out, b)
	}
	return out
}

// Prune removes side branches whose axis is shorter than minLength. At every
// branch face the shortest branch under the threshold is dropped and the mesh
// is rebuilt from the survivors; this repeats until nothing changes, so
// pruning an already pruned mesh is a no-op. Branch faces without a short
// branch are left alone.
func Prune(m *Mesh, minLength float64) *Mesh {
	for {
		next, removed := pruneOnce(m, minLength)
		if removed == 0 {
			return m
		}
		m = next
	}
}

func pruneOnce(m *Mesh, minLength float64) (*Mesh, int) {
	best := map[int]branch{}
	for _, b := range m.leafBranches() {
		if b.At < 0 || b.Length >= minLength {
			continue
		}
		if cur, ok := best[b.At]; !ok || b.Length < cur.Length {
			best[b.At] = b
		}
	}
	if len(best) == 0 {
		return m, 0
	}

	keep := make([]bool, len(m.Tris))
	for i := range keep {
		keep[i] = true
	}
	removed := 0
	for _, b := range best {
		for _, f := range b.Faces {
			if keep[f] {
				keep[f] = false
				removed++
			}
		}
	}
	return m.Subset(keep), removed
}
