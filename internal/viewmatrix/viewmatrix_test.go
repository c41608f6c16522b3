package viewmatrix

import (
	"math"
	"testing"

	"tubegen/internal/mathutil"
)

func TestFrame(t *testing.T) {
	verts := []mathutil.Vec3{{-20, -5, 0}, {20, -5, 0}, {20, 5, 0}, {-20, 5, 0}, {0, 0, 4}}
	tests := []struct {
		name        string
		perspective bool
	}{
		{"orthographic", false},
		{"perspective", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := Frame(verts, mathutil.Mat3Identity(), 100, 10, tt.perspective, 0)
			px, py, pz := cam.Project(verts)
			for i := range verts {
				if px[i] < -1e-9 || px[i] > 100 || py[i] < -1e-9 || py[i] > 100 {
					t.Fatalf("vertex %d projects to (%g, %g)", i, px[i], py[i])
				}
			}
			if !tt.perspective && (math.Abs(px[0]-10) > 1e-9 || math.Abs(px[1]-90) > 1e-9) {
				t.Fatalf("x span %g..%g, want 10..90", px[0], px[1])
			}
			if py[2] >= py[1] {
				t.Fatal("screen y does not point down")
			}
			if pz[4] <= pz[0] {
				t.Fatal("raised vertex is not nearer")
			}
		})
	}
}

func TestFrameEmpty(t *testing.T) {
	cam := Frame(nil, mathutil.Mat3Identity(), 64, 4, false, 0)
	if cam.Scale != 1 {
		t.Fatalf("scale = %g", cam.Scale)
	}
	px, _, _ := cam.Project(nil)
	if len(px) != 0 {
		t.Fatal("projected points from nothing")
	}
}

func TestAligned(t *testing.T) {
	// A bar along the diagonal ends up horizontal before the tilt.
	var verts []mathutil.Vec3
	for i := -10; i <= 10; i++ {
		verts = append(verts, mathutil.Vec3{float64(i), float64(i), 0}, mathutil.Vec3{float64(i) + 0.5, float64(i) - 0.5, 0})
	}
	R := Aligned(verts)
	inv := mathutil.ViewDefault.Inverse()
	d := mathutil.Mat3Mul(inv, R).MulVec3(mathutil.Vec3{1, 1, 0}.Normalize())
	if math.Abs(math.Abs(d[0])-1) > 1e-6 || math.Abs(d[1]) > 1e-6 {
		t.Fatalf("principal axis maps to %v", d)
	}
}
