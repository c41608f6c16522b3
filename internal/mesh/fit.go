package mesh

import (
	"context"
	"fmt"

	"tubegen/internal/mathutil"
	"tubegen/internal/solver"
)

// Fit relaxes m toward a smooth surface. Anchor vertices are weak
// constraints pulling toward their current positions; all others follow the
// uniform Laplacian. The three axes are solved concurrently on one
// factorisation. Faces are copied unchanged.
func Fit(ctx context.Context, m *Mesh, anchors []int, smoothness float64) (*Mesh, error) {
	if len(m.Verts) == 0 {
		return nil, fmt.Errorf("mesh: fit: empty mesh")
	}
	seen := make(map[int]bool, len(anchors))
	var weak []int
	for _, v := range anchors {
		if v >= 0 && v < len(m.Verts) && !seen[v] {
			seen[v] = true
			weak = append(weak, v)
		}
	}

	sys, err := solver.Prepare(solver.Problem{
		Laplacian:  solver.Topological(len(m.Verts), m.Faces),
		Weak:       weak,
		Smoothness: smoothness,
		Mode:       solver.LeastSquares,
	})
	if err != nil {
		return nil, fmt.Errorf("mesh: fit: %w", err)
	}

	fields := make([]solver.Field, 3)
	for axis := range fields {
		vals := make([]float64, len(weak))
		for i, v := range weak {
			vals[i] = m.Verts[v][axis]
		}
		fields[axis] = solver.Field{Weak: vals}
	}
	xyz, err := sys.SolveAll(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("mesh: fit: %w", err)
	}

	out := &Mesh{Verts: make([]mathutil.Vec3, len(m.Verts)), Faces: append([][3]int(nil), m.Faces...)}
	for i := range out.Verts {
		out.Verts[i] = mathutil.Vec3{xyz[0][i], xyz[1][i], xyz[2][i]}
	}
	return out, nil
}
