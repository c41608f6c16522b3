package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingular is returned when the normal equations have no unique
	// solution: a free region with no weak or hard anchor, or a failed
	// factorisation.
	ErrSingular = errors.New("singular system")
	// ErrNotSymmetric is returned by diffusion over a non-symmetric operator.
	ErrNotSymmetric = errors.New("laplacian is not symmetric")
)

// denseLimit is the largest free-node count solved by dense Cholesky.
const denseLimit = 600

// Mode selects the system built from the Laplacian.
type Mode int

const (
	// LeastSquares solves (s·LᵀL + W)x = W·t.
	LeastSquares Mode = iota
	// Harmonic solves (s·L + W)x = W·t; L must be symmetric.
	Harmonic
)

// Constraint pins node Node to Value.
type Constraint struct {
	Node  int
	Value float64
}

// Problem describes the shape of a system: which nodes are weakly or hard
// constrained. Values are supplied per solve.
type Problem struct {
	Laplacian  Laplacian
	Weak       []int
	Hard       []int
	Smoothness float64
	Mode       Mode
}

// Field holds the constraint values of one solve, aligned with Problem.Weak
// and Problem.Hard.
type Field struct {
	Weak []float64
	Hard []float64
}

type coupling struct {
	hard int // index into Problem.Hard
	w    float64
}

// System is a factorised problem. It is safe for concurrent Solve calls.
type System struct {
	n       int
	weak    []int
	hard    []int
	isHard  []bool
	free    []int // free position → node
	freePos []int // node → free position or -1
	couple  [][]coupling

	chol   *mat.Cholesky
	sparse *csr
}

// Prepare assembles and factorises the system for p. Hard nodes are
// eliminated, so the factorised matrix covers the free nodes only.
func Prepare(p Problem) (*System, error) {
	n := p.Laplacian.N
	if n == 0 {
		return nil, fmt.Errorf("solver: empty laplacian: %w", ErrSingular)
	}
	if p.Smoothness <= 0 {
		return nil, fmt.Errorf("solver: smoothness %g must be positive", p.Smoothness)
	}
	for _, v := range append(append([]int(nil), p.Weak...), p.Hard...) {
		if v < 0 || v >= n {
			return nil, fmt.Errorf("solver: constraint node %d out of range [0,%d)", v, n)
		}
	}

	full, err := assemble(p)
	if err != nil {
		return nil, err
	}

	s := &System{
		n:       n,
		weak:    p.Weak,
		hard:    p.Hard,
		isHard:  make([]bool, n),
		freePos: make([]int, n),
	}
	hardPos := make(map[int]int, len(p.Hard))
	for i, h := range p.Hard {
		s.isHard[h] = true
		hardPos[h] = i
	}
	for v := 0; v < n; v++ {
		s.freePos[v] = -1
		if !s.isHard[v] {
			s.freePos[v] = len(s.free)
			s.free = append(s.free, v)
		}
	}

	nf := len(s.free)
	freeRows := make([]map[int]float64, nf)
	s.couple = make([][]coupling, nf)
	for i, v := range s.free {
		freeRows[i] = make(map[int]float64, len(full[v]))
		for c, w := range full[v] {
			if w == 0 {
				continue
			}
			if s.isHard[c] {
				s.couple[i] = append(s.couple[i], coupling{hard: hardPos[c], w: w})
			} else {
				freeRows[i][s.freePos[c]] += w
			}
		}
	}
	if nf == 0 {
		return s, nil
	}

	anchored := make([]bool, nf)
	for _, w := range p.Weak {
		if pos := s.freePos[w]; pos >= 0 {
			anchored[pos] = true
		}
	}
	for i := range s.couple {
		if len(s.couple[i]) > 0 {
			anchored[i] = true
		}
	}
	if err := checkAnchored(freeRows, anchored); err != nil {
		return nil, err
	}

	if nf <= denseLimit {
		a := mat.NewSymDense(nf, nil)
		for i, r := range freeRows {
			for j, w := range r {
				if j >= i {
					a.SetSym(i, j, w)
				}
			}
		}
		var chol mat.Cholesky
		if ok := chol.Factorize(a); !ok {
			return nil, fmt.Errorf("solver: cholesky of %d×%d system failed: %w", nf, nf, ErrSingular)
		}
		s.chol = &chol
	} else {
		s.sparse = newCSR(freeRows)
	}
	return s, nil
}

// assemble builds the full n×n system matrix before elimination.
func assemble(p Problem) ([]map[int]float64, error) {
	n := p.Laplacian.N
	lrows := p.Laplacian.rows()
	full := make([]map[int]float64, n)
	for i := range full {
		full[i] = make(map[int]float64)
	}

	switch p.Mode {
	case LeastSquares:
		// (LᵀL)_ij = Σ_k L_ki·L_kj
		for _, r := range lrows {
			for i, wi := range r {
				for j, wj := range r {
					full[i][j] += p.Smoothness * wi * wj
				}
			}
		}
	case Harmonic:
		for i, r := range lrows {
			for j, w := range r {
				if back := lrows[j][i]; math.Abs(back-w) > 1e-9*math.Max(1, math.Abs(w)) {
					return nil, fmt.Errorf("solver: entry (%d,%d)=%g vs (%d,%d)=%g: %w", i, j, w, j, i, back, ErrNotSymmetric)
				}
				full[i][j] += p.Smoothness * w
			}
		}
	default:
		return nil, fmt.Errorf("solver: unknown mode %d", p.Mode)
	}

	for _, w := range p.Weak {
		full[w][w]++
	}
	return full, nil
}

// checkAnchored fails when a connected block of free nodes has neither a
// weak constraint nor a coupling to a hard node.
func checkAnchored(rows []map[int]float64, anchored []bool) error {
	n := len(rows)
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}
	for start := 0; start < n; start++ {
		if comp[start] >= 0 {
			continue
		}
		comp[start] = start
		stack := []int{start}
		ok := false
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			ok = ok || anchored[v]
			for u := range rows[v] {
				if comp[u] < 0 {
					comp[u] = start
					stack = append(stack, u)
				}
			}
		}
		if !ok {
			return fmt.Errorf("solver: free region at node %d has no constraint: %w", start, ErrSingular)
		}
	}
	return nil
}

// Size returns the number of nodes in the system.
func (s *System) Size() int { return s.n }

// Free returns the number of unknowns after eliminating hard nodes.
func (s *System) Free() int { return len(s.free) }

// Solve returns one value per node. Hard nodes echo their constraint value.
func (s *System) Solve(ctx context.Context, f Field) ([]float64, error) {
	if len(f.Weak) != len(s.weak) || len(f.Hard) != len(s.hard) {
		return nil, fmt.Errorf("solver: field has %d weak / %d hard values, want %d / %d",
			len(f.Weak), len(f.Hard), len(s.weak), len(s.hard))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x := make([]float64, s.n)
	for i, h := range s.hard {
		x[h] = f.Hard[i]
	}
	nf := len(s.free)
	if nf == 0 {
		return x, nil
	}

	b := make([]float64, nf)
	for i, w := range s.weak {
		if pos := s.freePos[w]; pos >= 0 {
			b[pos] += f.Weak[i]
		}
	}
	for i, cs := range s.couple {
		for _, c := range cs {
			b[i] -= c.w * f.Hard[c.hard]
		}
	}

	var sol []float64
	if s.chol != nil {
		var dst mat.VecDense
		if err := s.chol.SolveVecTo(&dst, mat.NewVecDense(nf, b)); err != nil {
			return nil, fmt.Errorf("solver: cholesky solve: %w", ErrSingular)
		}
		sol = make([]float64, nf)
		for i := range sol {
			sol[i] = dst.AtVec(i)
		}
	} else {
		var err error
		if sol, err = s.sparse.cg(ctx, b); err != nil {
			return nil, err
		}
	}

	for i, v := range s.free {
		if math.IsNaN(sol[i]) || math.IsInf(sol[i], 0) {
			return nil, fmt.Errorf("solver: non-finite value at node %d: %w", v, ErrSingular)
		}
		x[v] = sol[i]
	}
	return x, nil
}

// SolveAll solves independent fields concurrently. Results are in field
// order; the first error wins.
func (s *System) SolveAll(ctx context.Context, fields []Field) ([][]float64, error) {
	out := make([][]float64, len(fields))
	errs := make([]error, len(fields))
	sem := make(chan struct{}, runtime.NumCPU())

	var wg sync.WaitGroup
	for i := range fields {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out[i], errs[i] = s.Solve(ctx, fields[i])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func split(cs []Constraint) ([]int, []float64) {
	nodes := make([]int, len(cs))
	vals := make([]float64, len(cs))
	for i, c := range cs {
		nodes[i], vals[i] = c.Node, c.Value
	}
	return nodes, vals
}

func solveOnce(ctx context.Context, mode Mode, L Laplacian, weak, hard []Constraint, smoothness float64) ([]float64, error) {
	wn, wv := split(weak)
	hn, hv := split(hard)
	sys, err := Prepare(Problem{Laplacian: L, Weak: wn, Hard: hn, Smoothness: smoothness, Mode: mode})
	if err != nil {
		return nil, err
	}
	return sys.Solve(ctx, Field{Weak: wv, Hard: hv})
}

// Smooth minimises smoothness·‖L·x‖² + Σ(x_i − t_i)² over the weak nodes with
// the hard nodes held fixed.
func Smooth(ctx context.Context, L Laplacian, weak, hard []Constraint, smoothness float64) ([]float64, error) {
	return solveOnce(ctx, LeastSquares, L, weak, hard, smoothness)
}

// Diffuse solves (smoothness·L + W)x = W·t with the hard nodes held fixed.
// It spreads a scalar field from its constrained nodes along a symmetric L.
func Diffuse(ctx context.Context, L Laplacian, weak, hard []Constraint, smoothness float64) ([]float64, error) {
	return solveOnce(ctx, Harmonic, L, weak, hard, smoothness)
}
