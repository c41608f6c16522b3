package solver

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// csr is a compressed sparse row matrix.
type csr struct {
	n      int
	rowPtr []int
	cols   []int
	vals   []float64
	diag   []float64
}

func newCSR(rows []map[int]float64) *csr {
	m := &csr{n: len(rows), rowPtr: make([]int, len(rows)+1), diag: make([]float64, len(rows))}
	for i, r := range rows {
		cols := make([]int, 0, len(r))
		for c := range r {
			cols = append(cols, c)
		}
		sort.Ints(cols)
		for _, c := range cols {
			m.cols = append(m.cols, c)
			m.vals = append(m.vals, r[c])
			if c == i {
				m.diag[i] = r[c]
			}
		}
		m.rowPtr[i+1] = len(m.cols)
	}
	return m
}

func (m *csr) mulVec(dst, x []float64) {
	for i := 0; i < m.n; i++ {
		var s float64
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			s += m.vals[k] * x[m.cols[k]]
		}
		dst[i] = s
	}
}

// cg solves m·x = b with Jacobi-preconditioned conjugate gradients. m must
// be symmetric positive definite.
func (m *csr) cg(ctx context.Context, b []float64) ([]float64, error) {
	n := m.n
	x := make([]float64, n)
	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		return x, nil
	}

	inv := make([]float64, n)
	for i, d := range m.diag {
		if d <= 0 {
			return nil, fmt.Errorf("solver: non-positive diagonal at %d: %w", i, ErrSingular)
		}
		inv[i] = 1 / d
	}

	r := append([]float64(nil), b...)
	z := make([]float64, n)
	floats.MulTo(z, inv, r)
	p := append([]float64(nil), z...)
	ap := make([]float64, n)
	rz := floats.Dot(r, z)

	tol := 1e-10 * bnorm
	maxIter := 10*n + 100
	for it := 0; it < maxIter; it++ {
		if it%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		m.mulVec(ap, p)
		pap := floats.Dot(p, ap)
		if pap <= 0 || math.IsNaN(pap) {
			return nil, fmt.Errorf("solver: conjugate gradient breakdown at iteration %d: %w", it, ErrSingular)
		}
		alpha := rz / pap
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)
		if floats.Norm(r, 2) <= tol {
			return x, nil
		}
		floats.MulTo(z, inv, r)
		rzNext := floats.Dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		// p = z + beta·p
		floats.AddScaledTo(p, z, beta, p)
	}
	return nil, fmt.Errorf("solver: conjugate gradient did not converge in %d iterations: %w", maxIter, ErrSingular)
}
