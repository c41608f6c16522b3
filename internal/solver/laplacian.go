// Package solver builds graph Laplacians and solves the constrained
// least-squares and diffusion systems used by smoothing, mesh fitting and
// skinning.
package solver

import (
	"math"
	"sort"

	"tubegen/internal/mathutil"
)

// Entry is one non-zero of a sparse matrix.
type Entry struct {
	Weight float64
	Row    int
	Col    int
}

// Laplacian is a sparse N×N operator stored as a list of entries. Duplicate
// (row, col) pairs add up.
type Laplacian struct {
	N       int
	Entries []Entry
}

// cotEps is the floor for cotangent weights; obtuse triangles would
// otherwise produce negative weights.
const cotEps = 1e-6

// TopologicalGraph builds the uniform Laplacian of an adjacency list:
// +1 on the diagonal and −1/deg(u) for each distinct neighbour. On a closed
// triangle mesh this is the same as −2/deg per incident half-edge. Nodes
// without neighbours get an empty row.
func TopologicalGraph(adj [][]int) Laplacian {
	L := Laplacian{N: len(adj)}
	for u, list := range adj {
		nb := unique(u, list)
		if len(nb) == 0 {
			continue
		}
		w := -1 / float64(len(nb))
		L.Entries = append(L.Entries, Entry{1, u, u})
		for _, v := range nb {
			L.Entries = append(L.Entries, Entry{w, u, v})
		}
	}
	return L
}

// Topological builds the uniform Laplacian of a triangle mesh with n vertices.
func Topological(n int, faces [][3]int) Laplacian {
	return TopologicalGraph(Adjacency(n, faces))
}

// Adjacency returns the vertex one-rings of a triangle mesh.
func Adjacency(n int, faces [][3]int) [][]int {
	adj := make([][]int, n)
	for _, f := range faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			adj[a] = append(adj[a], b)
			adj[b] = append(adj[b], a)
		}
	}
	for i := range adj {
		adj[i] = unique(i, adj[i])
	}
	return adj
}

func unique(self int, list []int) []int {
	if len(list) == 0 {
		return nil
	}
	out := append([]int(nil), list...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if v == self || (i > 0 && v == out[i-1]) {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}

// Geometric builds the symmetric cotangent Laplacian: for edge ij the weight
// is (cot α + cot β)/2 over the angles opposite the edge, floored at a small
// positive value. Off-diagonals are −w, the diagonal is the row sum.
func Geometric(verts []mathutil.Vec3, faces [][3]int) Laplacian {
	type edge struct{ a, b int }
	key := func(a, b int) edge {
		if a > b {
			a, b = b, a
		}
		return edge{a, b}
	}
	weights := make(map[edge]float64, len(faces)*3/2)
	var order []edge

	for _, f := range faces {
		for k := 0; k < 3; k++ {
			i, j, o := f[k], f[(k+1)%3], f[(k+2)%3]
			e1 := verts[i].Sub(verts[o])
			e2 := verts[j].Sub(verts[o])
			cross := e1.Cross(e2).Len()
			cot := 0.0
			if cross > 1e-12 {
				cot = e1.Dot(e2) / cross
			}
			e := key(i, j)
			if _, ok := weights[e]; !ok {
				order = append(order, e)
			}
			weights[e] += cot / 2
		}
	}

	L := Laplacian{N: len(verts)}
	diag := make([]float64, len(verts))
	for _, e := range order {
		w := math.Max(weights[e], cotEps)
		L.Entries = append(L.Entries, Entry{-w, e.a, e.b}, Entry{-w, e.b, e.a})
		diag[e.a] += w
		diag[e.b] += w
	}
	for i, d := range diag {
		if d > 0 {
			L.Entries = append(L.Entries, Entry{d, i, i})
		}
	}
	return L
}

// rows groups the entries of L by row, summing duplicates.
func (L Laplacian) rows() []map[int]float64 {
	r := make([]map[int]float64, L.N)
	for _, e := range L.Entries {
		if r[e.Row] == nil {
			r[e.Row] = make(map[int]float64)
		}
		r[e.Row][e.Col] += e.Weight
	}
	return r
}

// Apply computes y = L·x.
func (L Laplacian) Apply(x []float64) []float64 {
	y := make([]float64, L.N)
	for _, e := range L.Entries {
		y[e.Row] += e.Weight * x[e.Col]
	}
	return y
}
