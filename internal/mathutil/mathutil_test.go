package mathutil

import (
	"fmt"
	"math"
	"testing"
)

func near3(a, b Vec3, eps float64) bool { return a.Dist(b) < eps }

func TestRotations(t *testing.T) {
	x := Vec3{1, 0, 0}
	tests := []struct {
		name string
		m    Mat3
		in   Vec3
		want Vec3
	}{
		{"rotz quarter", RotZ(math.Pi / 2), x, Vec3{0, 1, 0}},
		{"tilt quarter", Tilt(math.Pi / 2), Vec3{0, 1, 0}, Vec3{0, 0, 1}},
		{"align diagonal", AlignToX(Vec2{3, 3}), Vec3{1, 1, 0}, Vec3{math.Sqrt2, 0, 0}},
		{"align zero axis", AlignToX(Vec2{}), Vec3{1, 2, 3}, Vec3{1, 2, 3}},
		{"chord frame x", ChordFrame(Vec3{0, 1, 0}, Vec3{0, 0, 1}), x, Vec3{0, 1, 0}},
		{"chord frame z", ChordFrame(Vec3{0, 1, 0}, Vec3{0, 0, 1}), Vec3{0, 0, 2}, Vec3{0, 0, 2}},
		{"axis angle z", QuatToMat3(AxisAngleQuat(Vec3{0, 0, 2}, math.Pi/2)), x, Vec3{0, 1, 0}},
		{"zero axis", QuatToMat3(AxisAngleQuat(Vec3{}, 1)), x, x},
		{"euler z", QuatToMat3(EulerToQuat(0, 0, math.Pi/2)), x, Vec3{0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.MulVec3(tt.in); !near3(got, tt.want, 1e-12) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatrixAlgebra(t *testing.T) {
	m := Mat3Mul(Tilt(0.3), Mat3Mul(RotZ(-1.1), Mat3FromCols(Vec3{2, 0, 1}, Vec3{0, 3, 0}, Vec3{0, 0, 0.5})))
	id := Mat3Mul(m, m.Inverse())
	for i := range id {
		want := 0.0
		if i%4 == 0 {
			want = 1
		}
		if math.Abs(id[i]-want) > 1e-12 {
			t.Fatalf("m·m⁻¹ = %v", id)
		}
	}
	if d := RotZ(0.7).Det(); math.Abs(d-1) > 1e-12 {
		t.Fatalf("rotation det = %g", d)
	}

	p := Vec3{3, 4, 5}
	pivot := RotateAbout(RotZ(math.Pi/2), p)
	if got := pivot.MulPoint(p); !near3(got, p, 1e-12) {
		t.Fatalf("pivot moved to %v", got)
	}
	if got := pivot.MulPoint(Vec3{4, 4, 5}); !near3(got, Vec3{3, 5, 5}, 1e-12) {
		t.Fatalf("rotated point %v", got)
	}
	if got := pivot.MulDir(Vec3{1, 0, 0}); !near3(got, Vec3{0, 1, 0}, 1e-12) {
		t.Fatalf("rotated direction %v", got)
	}
	if !Mat4Mul(pivot, RotateAbout(RotZ(-math.Pi/2), p)).IsIdentity() {
		t.Fatal("inverse rotations do not cancel")
	}
}

func TestChordFrame(t *testing.T) {
	up := Vec3{0, 0, 1}
	for _, deg := range []float64{0, 30, 90, 135, 270} {
		t.Run(fmt.Sprintf("%g degrees", deg), func(t *testing.T) {
			a := Deg2Rad(deg)
			dir := Vec3{math.Cos(a), math.Sin(a), 0}
			f := ChordFrame(dir, up)
			if d := f.Det(); math.Abs(d-1) > 1e-12 {
				t.Fatalf("det = %g, want 1", d)
			}
			id := Mat3Mul(f.Transpose(), f)
			for i := range id {
				want := 0.0
				if i%4 == 0 {
					want = 1
				}
				if math.Abs(id[i]-want) > 1e-12 {
					t.Fatalf("frame not orthonormal: %v", id)
				}
			}
			if !near3(f.Col(0), dir, 1e-12) || !near3(f.Col(2), up, 1e-12) {
				t.Fatalf("frame columns %v %v", f.Col(0), f.Col(2))
			}
		})
	}
}

func TestPrincipalAxis(t *testing.T) {
	tests := []struct {
		name     string
		pts      []Vec2
		wantMean Vec2
		wantAxis Vec2
	}{
		{"empty", nil, Vec2{}, Vec2{1, 0}},
		{"single", []Vec2{{2, 3}}, Vec2{2, 3}, Vec2{1, 0}},
		{"horizontal", []Vec2{{-4, 0}, {4, 0}, {0, 1}, {0, -1}}, Vec2{}, Vec2{1, 0}},
		{"vertical", []Vec2{{0, -4}, {0, 4}, {1, 0}, {-1, 0}}, Vec2{}, Vec2{0, 1}},
		{"diagonal", []Vec2{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, Vec2{1.5, 1.5}, Vec2{math.Sqrt2 / 2, math.Sqrt2 / 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, axis := PrincipalAxis(tt.pts)
			if mean.Dist(tt.wantMean) > 1e-12 {
				t.Fatalf("mean %v, want %v", mean, tt.wantMean)
			}
			if math.Abs(math.Abs(axis.Dot(tt.wantAxis))-1) > 1e-9 {
				t.Fatalf("axis %v, want ±%v", axis, tt.wantAxis)
			}
		})
	}
}

func TestSegmentDist(t *testing.T) {
	a, b := Vec3{0, 0, 0}, Vec3{10, 0, 0}
	tests := []struct {
		name  string
		p     Vec3
		dist  float64
		param float64
	}{
		{"above middle", Vec3{5, 3, 0}, 3, 0.5},
		{"before start", Vec3{-4, 3, 0}, 5, 0},
		{"past end", Vec3{13, 0, 4}, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, u := SegmentDist(tt.p, a, b)
			if math.Abs(d-tt.dist) > 1e-12 || math.Abs(u-tt.param) > 1e-12 {
				t.Fatalf("got (%g, %g), want (%g, %g)", d, u, tt.dist, tt.param)
			}
		})
	}
	if _, u := SegmentDist(Vec3{1, 1, 1}, a, a); u != 0.5 {
		t.Fatalf("degenerate segment t = %g", u)
	}
}

func TestVectors(t *testing.T) {
	if got := (Vec3{3, 0, 4}).Normalize(); !near3(got, Vec3{0.6, 0, 0.8}, 1e-12) {
		t.Fatalf("normalize %v", got)
	}
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Fatalf("zero normalize %v", got)
	}
	if n := TriangleNormal(Vec3{}, Vec3{2, 0, 0}, Vec3{0, 2, 0}); n != (Vec3{0, 0, 4}) {
		t.Fatalf("triangle normal %v", n)
	}
	if got := (Vec2{1, 0}).Perp(); got != (Vec2{0, 1}) && got != (Vec2{0, -1}) {
		t.Fatalf("perp %v", got)
	}
	if o := Orient(Vec2{0, 0}, Vec2{1, 0}, Vec2{0, 1}); o <= 0 {
		t.Fatalf("counter-clockwise orient = %g", o)
	}
}
