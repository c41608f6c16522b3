package skeleton

import (
	"math"
	"testing"

	"tubegen/internal/chord"
	"tubegen/internal/disk"
	"tubegen/internal/mathutil"
)

func graph(t *testing.T, outline []mathutil.Vec2, iso float64) *chord.Graph {
	t.Helper()
	m, err := disk.Build(outline, iso)
	if err != nil {
		t.Fatal(err)
	}
	m = disk.Prune(m, 5*iso)
	g, err := chord.Build(m)
	if err != nil {
		t.Fatal(err)
	}
	chord.Smooth(g, 30, 0.5)
	return g
}

func degrees(s *Skeleton) []int {
	deg := make([]int, len(s.Joints))
	for _, b := range s.Bones {
		deg[b[0]]++
		deg[b[1]]++
	}
	return deg
}

// connectedTree checks that the bones form one tree over all joints.
func connectedTree(t *testing.T, s *Skeleton) {
	t.Helper()
	if len(s.Bones) != len(s.Joints)-1 {
		t.Fatalf("%d joints but %d bones", len(s.Joints), len(s.Bones))
	}
	_, order := s.Hierarchy(0)
	if len(order) != len(s.Joints) {
		t.Fatalf("reached %d of %d joints", len(order), len(s.Joints))
	}
}

func TestExtractStraightTube(t *testing.T) {
	bar := []mathutil.Vec2{{0, 0}, {200, 0}, {200, 20}, {0, 20}}
	iso := 10.0
	s := Extract(graph(t, bar, iso), Options{
		DeviationThreshold: 1,
		MinBoneLength:      iso,
		PruneLength:        5 * iso,
	})
	if len(s.Joints) != 2 || len(s.Bones) != 1 {
		t.Fatalf("got %d joints / %d bones, want 2 / 1", len(s.Joints), len(s.Bones))
	}
	if l := s.Length(0); l < 150 {
		t.Fatalf("bone length %g, want most of the bar", l)
	}
	for _, j := range s.Joints {
		if j[2] != 0 {
			t.Fatalf("joint %v off the outline plane", j)
		}
	}
}

func TestExtractTee(t *testing.T) {
	tee := []mathutil.Vec2{
		{-60, 0}, {60, 0}, {60, 20}, {10, 20}, {10, 80}, {-10, 80}, {-10, 20}, {-60, 20},
	}
	iso := 8.0
	s := Extract(graph(t, tee, iso), Options{
		DeviationThreshold: 0.15,
		MinBoneLength:      iso,
		PruneLength:        5 * iso,
	})
	connectedTree(t, s)
	leaves, branch := 0, 0
	for _, d := range degrees(s) {
		switch {
		case d == 1:
			leaves++
		case d >= 3:
			branch++
		}
	}
	if leaves != 3 {
		t.Fatalf("leaves = %d, want 3", leaves)
	}
	if branch == 0 {
		t.Fatal("no branching joint")
	}
	for i := range s.Bones {
		if l := s.Length(i); l < iso {
			t.Fatalf("bone %d shorter than the minimum: %g", i, l)
		}
	}
}

func TestExtractEmptyThresholdKeepsChain(t *testing.T) {
	bar := []mathutil.Vec2{{0, 0}, {100, 0}, {100, 20}, {0, 20}}
	g := graph(t, bar, 10)
	s := Extract(g, Options{})
	if len(s.Joints) < len(g.Nodes) {
		t.Fatalf("zero threshold collapsed nodes: %d joints for %d chords", len(s.Joints), len(g.Nodes))
	}
	connectedTree(t, s)
}

func chain() *Skeleton {
	return &Skeleton{
		Joints: []mathutil.Vec3{{0, 0, 0}, {10, 0, 0}, {20, 0, 0}},
		Bones:  [][2]int{{0, 1}, {1, 2}},
	}
}

func TestHierarchy(t *testing.T) {
	s := chain()
	if r := s.Root(); r != 1 {
		t.Fatalf("root = %d, want 1", r)
	}
	parents, order := s.Hierarchy(0)
	want := []int{-1, 0, 1}
	for i := range want {
		if parents[i] != want[i] {
			t.Fatalf("parents = %v, want %v", parents, want)
		}
	}
	if len(order) != 3 || order[0] != 0 {
		t.Fatalf("order = %v", order)
	}
}

func near(a, b mathutil.Vec3) bool { return a.Dist(b) < 1e-9 }

func TestWorldMatrices(t *testing.T) {
	s := chain()
	up := mathutil.Vec3{0, 0, 1}
	worlds, err := s.WorldMatrices(0, Bend(1, up, 90))
	if err != nil {
		t.Fatal(err)
	}
	if !worlds[0].IsIdentity() {
		t.Fatal("root moved")
	}
	if got := worlds[2].MulPoint(s.Joints[2]); !near(got, mathutil.Vec3{10, 10, 0}) {
		t.Fatalf("tip at %v, want (10,10,0)", got)
	}
	if got := worlds[1].MulPoint(s.Joints[1]); !near(got, s.Joints[1]) {
		t.Fatalf("pivot moved to %v", got)
	}

	bones, err := s.BoneMatrices(0, Euler(1, 0, 0, 90))
	if err != nil {
		t.Fatal(err)
	}
	if !bones[0].IsIdentity() {
		t.Fatal("bone 0 hangs from the root and should not move")
	}
	for i := range bones[1] {
		if math.Abs(bones[1][i]-worlds[1][i]) > 1e-9 {
			t.Fatalf("Euler and axis-angle bends differ: %v vs %v", bones[1], worlds[1])
		}
	}
	if AtRest(bones) {
		t.Fatal("bent pose reported at rest")
	}

	if _, err := s.WorldMatrices(0, Bend(7, up, 10)); err == nil {
		t.Fatal("expected error for out-of-range joint")
	}
}

func TestNearest(t *testing.T) {
	s := chain()
	tests := []struct {
		p    mathutil.Vec3
		want int
	}{
		{mathutil.Vec3{2, 5, 0}, 0},
		{mathutil.Vec3{18, -3, 0}, 1},
		{mathutil.Vec3{40, 0, 0}, 1},
	}
	for _, tt := range tests {
		if got := s.Nearest(tt.p); got != tt.want {
			t.Errorf("Nearest(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}
	if (&Skeleton{}).Nearest(mathutil.Vec3{}) != -1 {
		t.Error("empty skeleton should have no nearest bone")
	}
}

func TestParseBends(t *testing.T) {
	tests := []struct {
		name   string
		spec   string
		joints []int
		ok     bool
	}{
		{"empty", "", nil, true},
		{"single", "1:30", []int{1}, true},
		{"several with spaces", " 0:10 , 3:-45.5 ,", []int{0, 3}, true},
		{"later wins", "2:10,2:20", []int{2}, true},
		{"missing colon", "1", nil, false},
		{"bad joint", "a:10", nil, false},
		{"bad angle", "1:ten", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pose, err := ParseBends(tt.spec)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v", err)
			}
			if !tt.ok {
				return
			}
			if len(pose) != len(tt.joints) {
				t.Fatalf("pose has %d joints, want %d", len(pose), len(tt.joints))
			}
			for _, j := range tt.joints {
				if _, ok := pose[j]; !ok {
					t.Fatalf("joint %d missing", j)
				}
			}
		})
	}

	pose, err := ParseBends("2:10,2:20")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := pose[2], Bend(2, mathutil.Vec3{0, 0, 1}, 20)[2]; got != want {
		t.Fatalf("merged rotation %v, want %v", got, want)
	}
}
