// Package skin computes per-vertex bone weights by diffusion over the mesh
// surface and applies linear blend skinning.
package skin

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"tubegen/internal/mathutil"
	"tubegen/internal/mesh"
	"tubegen/internal/skeleton"
	"tubegen/internal/solver"
)

// MaxInfluences is the number of bones kept per vertex.
const MaxInfluences = 4

// ErrNoBones is returned when the skeleton has nothing to bind to.
var ErrNoBones = errors.New("skeleton has no bones")

// Ring is a tube cross-section used as a binding anchor: its points sit on
// the surface and its center sits on the medial axis.
type Ring struct {
	Center mathutil.Vec3
	Points []mathutil.Vec3
}

// Influence is one bone's share of a vertex.
type Influence struct {
	Bone   int
	Weight float64
}

// Dense holds the untruncated weights, indexed [bone][vertex].
type Dense [][]float64

// Table holds at most MaxInfluences influences per vertex, heaviest first,
// summing to 1.
type Table [][]Influence

// binding maps anchored vertices to the bone owning them.
type binding struct {
	owner map[int]int
	dist  map[int]float64
}

// bind assigns each ring to the bone nearest its center and snaps ring
// points to their nearest mesh vertex. A vertex claimed by two rings keeps
// the ring whose center is closer.
func bind(m *mesh.Mesh, s *skeleton.Skeleton, rings []Ring) binding {
	b := binding{owner: make(map[int]int), dist: make(map[int]float64)}
	loc := mesh.NewLocator(m.Verts)
	for _, r := range rings {
		bone := s.Nearest(r.Center)
		if bone < 0 {
			continue
		}
		for _, p := range r.Points {
			v := loc.Nearest(p)
			if v < 0 {
				continue
			}
			d := m.Verts[v].Dist(r.Center)
			if old, ok := b.dist[v]; ok && old <= d {
				continue
			}
			b.owner[v] = bone
			b.dist[v] = d
		}
	}
	return b
}

// Solve diffuses one indicator field per bone from the ring anchors over the
// cotangent Laplacian of m. Anchored vertices are hard constraints: 1 for
// the owning bone and 0 for every other. Fields share one factorisation and
// are solved concurrently.
func Solve(ctx context.Context, m *mesh.Mesh, s *skeleton.Skeleton, rings []Ring, smoothness float64) (Dense, error) {
	nb := len(s.Bones)
	if nb == 0 {
		return nil, fmt.Errorf("skin: %w", ErrNoBones)
	}
	nv := len(m.Verts)
	if nb == 1 {
		d := Dense{make([]float64, nv)}
		for i := range d[0] {
			d[0][i] = 1
		}
		return d, nil
	}

	b := bind(m, s, rings)
	if len(b.owner) == 0 {
		return nil, fmt.Errorf("skin: no ring anchors landed on the mesh: %w", solver.ErrSingular)
	}
	hard := make([]int, 0, len(b.owner))
	for v := range b.owner {
		hard = append(hard, v)
	}
	sort.Ints(hard)

	if smoothness <= 0 {
		smoothness = 1
	}
	sys, err := solver.Prepare(solver.Problem{
		Laplacian:  solver.Geometric(m.Verts, m.Faces),
		Hard:       hard,
		Smoothness: smoothness,
		Mode:       solver.Harmonic,
	})
	if err != nil {
		return nil, fmt.Errorf("skin: prepare: %w", err)
	}

	fields := make([]solver.Field, nb)
	for bone := range fields {
		vals := make([]float64, len(hard))
		for i, v := range hard {
			if b.owner[v] == bone {
				vals[i] = 1
			}
		}
		fields[bone] = solver.Field{Hard: vals}
	}
	sol, err := sys.SolveAll(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("skin: diffuse: %w", err)
	}
	for _, w := range sol {
		for i, x := range w {
			w[i] = clamp01(x)
		}
	}
	return Dense(sol), nil
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// Vertices returns the number of vertices covered.
func (d Dense) Vertices() int {
	if len(d) == 0 {
		return 0
	}
	return len(d[0])
}

// Table normalises each vertex's weights, keeps the MaxInfluences heaviest
// and renormalises. A vertex with no weight at all binds fully to bone 0.
func (d Dense) Table() Table {
	n := d.Vertices()
	t := make(Table, n)
	for v := 0; v < n; v++ {
		var inf []Influence
		var sum float64
		for bone := range d {
			if w := d[bone][v]; w > 0 {
				inf = append(inf, Influence{Bone: bone, Weight: w})
				sum += w
			}
		}
		if sum <= mathutil.LengthEps {
			t[v] = []Influence{{Bone: 0, Weight: 1}}
			continue
		}
		sort.SliceStable(inf, func(i, j int) bool { return inf[i].Weight > inf[j].Weight })
		if len(inf) > MaxInfluences {
			inf = inf[:MaxInfluences]
		}
		sum = 0
		for _, x := range inf {
			sum += x.Weight
		}
		for i := range inf {
			inf[i].Weight /= sum
		}
		t[v] = inf
	}
	return t
}

// Dominant returns the heaviest bone per vertex.
func (t Table) Dominant() []int {
	out := make([]int, len(t))
	for v, inf := range t {
		if len(inf) > 0 {
			out[v] = inf[0].Bone
		}
	}
	return out
}

// Deform applies linear blend skinning: each vertex moves to the weighted
// sum of its bones' transforms. Vertices are copied unchanged when every
// matrix is the identity.
func Deform(verts []mathutil.Vec3, t Table, bones []mathutil.Mat4) ([]mathutil.Vec3, error) {
	if len(t) != len(verts) {
		return nil, fmt.Errorf("skin: deform: table covers %d vertices, mesh has %d", len(t), len(verts))
	}
	out := append([]mathutil.Vec3(nil), verts...)
	if skeleton.AtRest(bones) {
		return out, nil
	}
	for v, p := range verts {
		var q mathutil.Vec3
		for _, inf := range t[v] {
			if inf.Bone < 0 || inf.Bone >= len(bones) {
				return nil, fmt.Errorf("skin: deform: vertex %d references bone %d of %d", v, inf.Bone, len(bones))
			}
			q.AddInPlace(bones[inf.Bone].MulPoint(p).Scale(inf.Weight))
		}
		out[v] = q
	}
	return out, nil
}
