package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"tubegen/internal/chord"
	"tubegen/internal/mathutil"
	"tubegen/internal/planar"
	"tubegen/internal/skeleton"
	"tubegen/internal/skin"
	"tubegen/internal/tube"
)

func hexagon(r float64) []mathutil.Vec2 {
	pts := make([]mathutil.Vec2, 6)
	for i := range pts {
		a := math.Pi / 3 * float64(i)
		pts[i] = mathutil.Vec2{r * math.Cos(a), r * math.Sin(a)}
	}
	return pts
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name      string
		got, want float64
	}{
		{"isodistance", p.Isodistance, 10},
		{"branch min length", p.BranchMinLength, 5},
		{"smooth iterations", float64(p.SmoothIterations), 30},
		{"smooth alpha", p.SmoothAlpha, 0.5},
		{"fit smoothness", p.FitSmoothness, 1},
		{"remesh iterations", float64(p.RemeshIterations), 6},
		{"remesh target", p.RemeshTargetLength, 0},
		{"deviation", p.SkeletonDeviation, 0.15},
		{"min bone", p.SkeletonMinBoneLength, 10},
		{"prune", p.SkeletonPruneLength, 50},
		{"skin smoothness", p.SkinSmoothness, 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %g, want %g", tt.name, tt.got, tt.want)
		}
	}

	derived := Params{Isodistance: 4}.WithDefaults()
	if derived.SkeletonMinBoneLength != 4 || derived.SkeletonPruneLength != 20 {
		t.Errorf("derived lengths %g / %g", derived.SkeletonMinBoneLength, derived.SkeletonPruneLength)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"negative iso", Params{Isodistance: -1}},
		{"nan iso", Params{Isodistance: math.NaN()}},
		{"alpha above one", Params{SmoothAlpha: 2}},
		{"negative branch", Params{BranchMinLength: -3}},
		{"negative iterations", Params{RemeshIterations: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.WithDefaults().Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
}

func TestRunMalformed(t *testing.T) {
	tests := []struct {
		name    string
		outline []mathutil.Vec2
	}{
		{"too few points", []mathutil.Vec2{{0, 0}, {10, 0}}},
		{"bowtie", []mathutil.Vec2{{0, 0}, {40, 40}, {40, 0}, {0, 40}}},
		{"collinear", []mathutil.Vec2{{0, 0}, {10, 0}, {20, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.outline, Params{})
			if !errors.Is(err, ErrMalformedInput) {
				t.Fatalf("err = %v, want ErrMalformedInput", err)
			}
			if !errors.Is(err, planar.ErrMalformedOutline) {
				t.Fatalf("err = %v does not wrap ErrMalformedOutline", err)
			}
		})
	}
}

func TestRunSingleFaceDisk(t *testing.T) {
	// Perimeter 36 at isodistance 10 resamples to three points: one face,
	// no chord.
	tri := []mathutil.Vec2{{0, 0}, {12, 0}, {6, 6 * math.Sqrt(3)}}
	_, err := Run(context.Background(), tri, Params{})
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	if !errors.Is(err, chord.ErrMalformedMesh) {
		t.Fatalf("err = %v does not wrap ErrMalformedMesh", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, hexagon(50), Params{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunHexagon(t *testing.T) {
	res, err := Run(context.Background(), hexagon(50), Params{})
	if err != nil {
		t.Fatal(err)
	}

	// A regular hexagon has no side branch longer than five isodistances:
	// the disk collapses to one capped cylinder.
	d := res.Diagnostics
	if d.Junctions != 0 || d.Caps != 2 || len(d.Skips) != 0 {
		t.Fatalf("junctions %d caps %d skips %v, want 0 / 2 / none", d.Junctions, d.Caps, d.Skips)
	}
	if d.PrunedFaces == 0 {
		t.Fatal("no disk faces pruned")
	}
	if chains := res.Graph.Branches(); len(chains) != 1 {
		t.Fatalf("%d chord chains, want 1", len(chains))
	}
	iso := res.Params.Isodistance
	wantVerts := len(res.Graph.Caps)
	for _, n := range res.Graph.Nodes {
		wantVerts += tube.DiscCount(n.Radius(), iso)
	}
	for _, c := range res.Graph.Caps {
		n := res.Graph.Nodes[c.Chord]
		steps := int(math.Ceil(res.Graph.Points[c.Free].Dist(n.Center) / iso))
		for k := 1; k < steps; k++ {
			u := float64(k) / float64(steps)
			wantVerts += tube.DiscCount(n.Radius()*math.Sqrt(1-u*u), iso)
		}
	}
	if got := len(res.Tube.Mesh.Verts); got != wantVerts {
		t.Fatalf("tube has %d vertices, want %d (rings plus apexes)", got, wantVerts)
	}

	m := res.Mesh
	if len(m.Verts) == 0 || len(m.Faces) == 0 {
		t.Fatal("empty mesh")
	}
	if err := m.CheckManifold(); err != nil {
		t.Fatal(err)
	}
	if res.Diagnostics.Remesh.Passes != 6 {
		t.Fatalf("remesh passes = %d", res.Diagnostics.Remesh.Passes)
	}
	if got := len(res.Diagnostics.Timings); got != 8 {
		t.Fatalf("%d stage timings, want 8", got)
	}

	s := res.Skeleton
	if len(s.Bones) == 0 {
		t.Fatal("no bones")
	}
	for _, b := range s.Bones {
		if b[0] < 0 || b[0] >= len(s.Joints) || b[1] < 0 || b[1] >= len(s.Joints) {
			t.Fatalf("bone %v out of range", b)
		}
	}

	if len(res.Skin) != len(m.Verts) {
		t.Fatalf("skin covers %d of %d vertices", len(res.Skin), len(m.Verts))
	}
	for v, inf := range res.Skin {
		if len(inf) == 0 || len(inf) > skin.MaxInfluences {
			t.Fatalf("vertex %d has %d influences", v, len(inf))
		}
		var sum float64
		for _, x := range inf {
			if x.Bone < 0 || x.Bone >= len(s.Bones) {
				t.Fatalf("vertex %d bound to bone %d", v, x.Bone)
			}
			sum += x.Weight
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("vertex %d weights sum to %g", v, sum)
		}
	}

	rest, err := res.Posed(nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range rest {
		if rest[i] != m.Verts[i] {
			t.Fatal("rest pose moved the mesh")
		}
	}
	if _, err := res.Posed(skeleton.Bend(len(s.Joints), mathutil.Vec3{0, 0, 1}, 30)); err == nil {
		t.Fatal("expected error for unknown joint")
	}
}
