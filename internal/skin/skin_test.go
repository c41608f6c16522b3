package skin

import (
	"context"
	"errors"
	"math"
	"testing"

	"tubegen/internal/mathutil"
	"tubegen/internal/mesh"
	"tubegen/internal/skeleton"
)

// cylinder is a closed tube along x from 0 to length with an apex at each
// end. It returns the mesh and one ring per stack.
func cylinder(length, radius float64, stacks, slices int) (*mesh.Mesh, []Ring) {
	m := &mesh.Mesh{}
	var rings []Ring
	for i := 0; i <= stacks; i++ {
		x := length * float64(i) / float64(stacks)
		r := Ring{Center: mathutil.Vec3{x, 0, 0}}
		for j := 0; j < slices; j++ {
			a := 2 * math.Pi * float64(j) / float64(slices)
			p := mathutil.Vec3{x, radius * math.Cos(a), radius * math.Sin(a)}
			m.Verts = append(m.Verts, p)
			r.Points = append(r.Points, p)
		}
		rings = append(rings, r)
	}
	at := func(i, j int) int { return i*slices + (j+slices)%slices }
	for i := 0; i < stacks; i++ {
		for j := 0; j < slices; j++ {
			a, b, c, d := at(i, j), at(i, j+1), at(i+1, j), at(i+1, j+1)
			m.Faces = append(m.Faces, [3]int{a, c, d}, [3]int{a, d, b})
		}
	}
	m.Verts = append(m.Verts, mathutil.Vec3{-radius, 0, 0}, mathutil.Vec3{length + radius, 0, 0})
	west, east := len(m.Verts)-2, len(m.Verts)-1
	for j := 0; j < slices; j++ {
		m.Faces = append(m.Faces, [3]int{west, at(0, j+1), at(0, j)})
		m.Faces = append(m.Faces, [3]int{east, at(stacks, j), at(stacks, j+1)})
	}
	return m, rings
}

func twoBones() *skeleton.Skeleton {
	return &skeleton.Skeleton{
		Joints: []mathutil.Vec3{{0, 0, 0}, {20, 0, 0}, {40, 0, 0}},
		Bones:  [][2]int{{0, 1}, {1, 2}},
	}
}

func TestSolvePartitionOfUnity(t *testing.T) {
	m, rings := cylinder(40, 3, 10, 12)
	// Only the end rings and one in the middle anchor the fields.
	anchors := []Ring{rings[0], rings[10]}
	d, err := Solve(context.Background(), m, twoBones(), anchors, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(d) != 2 || d.Vertices() != len(m.Verts) {
		t.Fatalf("dense shape %d×%d", len(d), d.Vertices())
	}
	for v := range m.Verts {
		if s := d[0][v] + d[1][v]; math.Abs(s-1) > 1e-6 {
			t.Fatalf("vertex %d weights sum to %g", v, s)
		}
	}
	// Weights fall off monotonically along the tube.
	prev := 2.0
	for i := 0; i <= 10; i++ {
		w := d[0][i*12]
		if w > prev+1e-9 {
			t.Fatalf("bone 0 weight rises at stack %d: %g > %g", i, w, prev)
		}
		prev = w
	}
	if d[0][0] != 1 || d[1][10*12] != 1 {
		t.Fatal("anchored rings lost their hard weights")
	}
}

func TestTable(t *testing.T) {
	d := Dense{
		{0.5, 0, 0.1},
		{0.2, 0, 0.1},
		{0.1, 0, 0.1},
		{0.1, 0, 0.1},
		{0.1, 0, 0.6},
	}
	tab := d.Table()
	if len(tab) != 3 {
		t.Fatalf("table covers %d vertices", len(tab))
	}
	for v, inf := range tab {
		if len(inf) > MaxInfluences {
			t.Fatalf("vertex %d has %d influences", v, len(inf))
		}
		var sum float64
		for i, x := range inf {
			sum += x.Weight
			if i > 0 && x.Weight > inf[i-1].Weight {
				t.Fatalf("vertex %d influences out of order: %v", v, inf)
			}
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("vertex %d sums to %g", v, sum)
		}
	}
	if tab[0][0].Bone != 0 || math.Abs(tab[0][0].Weight-0.5/0.9) > 1e-12 {
		t.Fatalf("vertex 0 = %v", tab[0])
	}
	if len(tab[1]) != 1 || tab[1][0] != (Influence{Bone: 0, Weight: 1}) {
		t.Fatalf("zero vertex = %v, want bone 0 only", tab[1])
	}
	if got := tab.Dominant(); got[2] != 4 {
		t.Fatalf("dominant = %v", got)
	}
}

func TestSolveSingleBone(t *testing.T) {
	m, rings := cylinder(10, 2, 3, 6)
	s := &skeleton.Skeleton{Joints: []mathutil.Vec3{{0, 0, 0}, {10, 0, 0}}, Bones: [][2]int{{0, 1}}}
	d, err := Solve(context.Background(), m, s, rings, 1)
	if err != nil {
		t.Fatal(err)
	}
	for v, w := range d[0] {
		if w != 1 {
			t.Fatalf("vertex %d weight %g", v, w)
		}
	}
}

func TestSolveErrors(t *testing.T) {
	m, rings := cylinder(40, 3, 10, 12)
	if _, err := Solve(context.Background(), m, &skeleton.Skeleton{}, rings, 1); !errors.Is(err, ErrNoBones) {
		t.Fatalf("err = %v, want ErrNoBones", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Solve(ctx, m, twoBones(), rings, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDeform(t *testing.T) {
	m, rings := cylinder(40, 3, 10, 12)
	s := twoBones()
	d, err := Solve(context.Background(), m, s, rings, 1)
	if err != nil {
		t.Fatal(err)
	}
	tab := d.Table()

	rest, err := s.BoneMatrices(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Deform(m.Verts, tab, rest)
	if err != nil {
		t.Fatal(err)
	}
	for i := range out {
		if out[i] != m.Verts[i] {
			t.Fatal("rest pose moved a vertex")
		}
	}

	bent, err := s.BoneMatrices(0, skeleton.Bend(1, mathutil.Vec3{0, 0, 1}, 90))
	if err != nil {
		t.Fatal(err)
	}
	out, err = Deform(m.Verts, tab, bent)
	if err != nil {
		t.Fatal(err)
	}
	// The far ring belongs to bone 1 only and swings about joint 1.
	for j := 0; j < 12; j++ {
		v := 10*12 + j
		p := m.Verts[v]
		want := mathutil.Vec3{20 - p[1], 20, p[2]}
		if out[v].Dist(want) > 1e-6 {
			t.Fatalf("vertex %d at %v, want %v", v, out[v], want)
		}
	}
	// The near ring belongs to bone 0 and stays put.
	if out[0] != m.Verts[0] {
		t.Fatalf("root ring moved to %v", out[0])
	}

	if _, err := Deform(m.Verts[:3], tab, bent); err == nil {
		t.Fatal("expected size mismatch error")
	}
}
