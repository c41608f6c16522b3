package disk

import (
	"fmt"
	"math"
	"testing"

	"tubegen/internal/mathutil"
)

func star(arms int, inner, outer float64) []mathutil.Vec2 {
	var pts []mathutil.Vec2
	for i := 0; i < 2*arms; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := math.Pi * float64(i) / float64(arms)
		pts = append(pts, mathutil.Vec2{r * math.Cos(a), r * math.Sin(a)})
	}
	return pts
}

// yMesh is a branch face with two long ends and one short one.
func yMesh() *Mesh {
	pts := []mathutil.Vec2{
		{0, 0}, {10, 0}, {5, 8}, // branch face
		{5, -30},   // long end below
		{8.5, 5.5}, // short end on the right
		{-20, 10},  // long end on the left
	}
	tris := [][3]int{{0, 1, 2}, {1, 0, 3}, {1, 4, 2}, {2, 5, 0}}
	return New(pts, tris)
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		outline []mathutil.Vec2
		spacing float64
	}{
		{"rectangle", []mathutil.Vec2{{0, 0}, {100, 0}, {100, 20}, {0, 20}}, 10},
		{"clockwise rectangle", []mathutil.Vec2{{0, 20}, {100, 20}, {100, 0}, {0, 0}}, 10},
		{"star", star(5, 15, 60), 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Build(tt.outline, tt.spacing)
			if err != nil {
				t.Fatal(err)
			}
			if got, want := len(m.Tris), len(m.Points)-2; got != want {
				t.Fatalf("%d triangles for %d boundary points, want %d", got, len(m.Points), want)
			}
			for f, tri := range m.Tris {
				if mathutil.Orient(m.Points[tri[0]], m.Points[tri[1]], m.Points[tri[2]]) <= 0 {
					t.Fatalf("face %d is not counter-clockwise", f)
				}
				if d := m.Degree(f); d < 1 || d > 3 {
					t.Fatalf("face %d has degree %d", f, d)
				}
			}
			n := len(m.Points)
			for i := 0; i < n; i++ {
				if !m.IsBoundaryEdge(i, (i+1)%n) {
					t.Fatalf("outline edge %d-%d is not a boundary edge", i, (i+1)%n)
				}
			}
		})
	}
}

func TestBuildRejectsMalformed(t *testing.T) {
	if _, err := Build([]mathutil.Vec2{{0, 0}, {1, 0}}, 1); err == nil {
		t.Fatal("expected an error for a two point outline")
	}
}

func TestDistanceToLeaf(t *testing.T) {
	m := yMesh()
	dist := DistanceToLeaf(m)
	if !math.IsInf(dist[0], 1) {
		t.Errorf("branch face distance = %g, want +Inf", dist[0])
	}
	for _, f := range []int{1, 2, 3} {
		if dist[f] != 0 {
			t.Errorf("end face %d distance = %g, want 0", f, dist[f])
		}
	}
}

// strip is a 30x10 band of six faces with an end face at each short side.
func strip() *Mesh {
	pts := []mathutil.Vec2{
		{0, 0}, {10, 0}, {20, 0}, {30, 0},
		{30, 10}, {20, 10}, {10, 10}, {0, 10},
	}
	tris := [][3]int{{0, 1, 7}, {1, 6, 7}, {1, 2, 6}, {2, 5, 6}, {2, 3, 5}, {3, 4, 5}}
	return New(pts, tris)
}

func TestDistanceToLeafFollowsAxis(t *testing.T) {
	diag := 5 * math.Sqrt2
	dist := DistanceToLeaf(strip())
	tests := []struct {
		face int
		want float64
	}{
		{0, diag + 20},
		{1, diag + 15},
		{2, diag + 10},
		{3, diag + 10},
		{4, diag + 15},
		{5, diag + 20},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("face %d", tt.face), func(t *testing.T) {
			if math.Abs(dist[tt.face]-tt.want) > 1e-9 {
				t.Fatalf("distance = %g, want %g", dist[tt.face], tt.want)
			}
		})
	}
}

func TestLeafBranchLength(t *testing.T) {
	m := yMesh()
	short := mathutil.Vec2{8.5, 5.5}.Dist(mathutil.Vec2{7.5, 4}) +
		mathutil.Vec2{7.5, 4}.Dist(m.Centroid(0))
	for _, b := range m.leafBranches() {
		if b.Faces[0] != 2 {
			continue
		}
		if b.At != 0 {
			t.Fatalf("short branch hangs off face %d, want 0", b.At)
		}
		if math.Abs(b.Length-short) > 1e-9 {
			t.Fatalf("short branch length = %g, want %g", b.Length, short)
		}
		return
	}
	t.Fatal("no branch starts at face 2")
}

func TestPruneRemovesShortBranch(t *testing.T) {
	m := Prune(yMesh(), 5)
	if len(m.Tris) != 3 {
		t.Fatalf("pruned mesh has %d faces, want 3", len(m.Tris))
	}
	if len(m.Points) != 5 {
		t.Fatalf("pruned mesh has %d points, want 5", len(m.Points))
	}
	for f := range m.Tris {
		if m.Degree(f) == 3 {
			t.Fatalf("face %d is still a branch face", f)
		}
	}
}

func TestPruneKeepsLongBranches(t *testing.T) {
	m := Prune(yMesh(), 1)
	if len(m.Tris) != 4 {
		t.Fatalf("faces = %d, want 4", len(m.Tris))
	}
}

func TestPruneIdempotent(t *testing.T) {
	for _, threshold := range []float64{5, 15, 40} {
		m, err := Build(star(5, 15, 60), 6)
		if err != nil {
			t.Fatal(err)
		}
		once := Prune(m, threshold)
		twice := Prune(once, threshold)
		if len(once.Tris) != len(twice.Tris) {
			t.Fatalf("threshold %g: %d faces after one prune, %d after two",
				threshold, len(once.Tris), len(twice.Tris))
		}
		if len(once.Tris) > len(m.Tris) {
			t.Fatalf("threshold %g: pruning added faces", threshold)
		}
	}
}
