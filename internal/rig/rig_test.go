package rig

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tubegen/internal/mathutil"
	"tubegen/internal/mesh"
	"tubegen/internal/pipeline"
	"tubegen/internal/skeleton"
	"tubegen/internal/skin"
)

// fan builds an n-gon fan around a center vertex, lifted into 3D.
func fan(n int, r float64) *mesh.Mesh {
	m := &mesh.Mesh{Verts: []mathutil.Vec3{{0, 0, 1}}}
	for i := 0; i < n; i++ {
		a := 2 * 3.141592653589793 * float64(i) / float64(n)
		m.Verts = append(m.Verts, mathutil.Vec3{r * float64(i%3), r * a, 0.1 * float64(i)})
	}
	for i := 0; i < n; i++ {
		m.Faces = append(m.Faces, [3]int{0, 1 + i, 1 + (i+1)%n})
	}
	return m
}

// randomTable draws 1..4 positive influences per vertex over nb bones.
func randomTable(rng *rand.Rand, nv, nb int) skin.Table {
	d := make(skin.Dense, nb)
	for b := range d {
		d[b] = make([]float64, nv)
		for v := range d[b] {
			if rng.Intn(3) > 0 {
				d[b][v] = rng.Float64()
			}
		}
	}
	return d.Table()
}

// chainSkeleton lays n bones end to end from origin along dir.
func chainSkeleton(origin, dir mathutil.Vec3, n int) *skeleton.Skeleton {
	s := &skeleton.Skeleton{}
	for j := 0; j <= n; j++ {
		s.Joints = append(s.Joints, origin.Add(dir.Scale(float64(j))))
		if j > 0 {
			s.Bones = append(s.Bones, [2]int{j - 1, j})
		}
	}
	return s
}

func offset(m *mesh.Mesh, d mathutil.Vec3) *mesh.Mesh {
	out := &mesh.Mesh{Faces: m.Faces}
	for _, v := range m.Verts {
		out.Verts = append(out.Verts, v.Add(d))
	}
	return out
}

var (
	triangle = &mesh.Mesh{
		Verts: []mathutil.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces: [][3]int{{0, 1, 2}},
	}
	quad = &mesh.Mesh{
		Verts: []mathutil.Vec3{{0, 0, 0}, {3, 0, 0}, {3, 1, 0}, {0, 1, 0}},
		Faces: [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
	pyramid = &mesh.Mesh{
		Verts: []mathutil.Vec3{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}, {0, 0, 2}},
		Faces: [][3]int{{0, 2, 1}, {0, 3, 2}, {0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}},
	}
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	far := mathutil.Vec3{1e6, -2.5e6, 3e6}
	tests := []struct {
		name string
		m    *mesh.Mesh
		s    *skeleton.Skeleton
	}{
		{"triangle one bone", triangle, chainSkeleton(mathutil.Vec3{}, mathutil.Vec3{1, 0, 0}, 1)},
		{"quad chain", quad, chainSkeleton(mathutil.Vec3{0, 0.5, 0}, mathutil.Vec3{1, 0, 0}, 3)},
		{"pyramid", pyramid, chainSkeleton(mathutil.Vec3{}, mathutil.Vec3{0, 0, 1}, 2)},
		{"far from origin", offset(quad, far), chainSkeleton(far, mathutil.Vec3{1.5, 0, 0}, 2)},
		{"branching skeleton", fan(6, 2), &skeleton.Skeleton{
			Joints: []mathutil.Vec3{{0, 0, 1}, {2, 0, 0}, {-1, 2, 0}, {-1, -2, 0}, {4, 0, 0}},
			Bones:  [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 4}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := randomTable(rng, len(tt.m.Verts), len(tt.s.Bones))
			doc, err := New(tt.m, tt.s, table)
			if err != nil {
				t.Fatal(err)
			}

			var buf bytes.Buffer
			if err := Encode(&buf, doc); err != nil {
				t.Fatal(err)
			}
			back, err := Decode(&buf)
			if err != nil {
				t.Fatal(err)
			}

			got := back.Skin()
			if !reflect.DeepEqual(got, table) {
				t.Fatalf("skin table changed:\n got %v\nwant %v", got, table)
			}
			for v, inf := range got {
				var sum float64
				for _, x := range inf {
					sum += x.Weight
				}
				if math.Abs(sum-1) > 1e-12 {
					t.Fatalf("vertex %d weights sum to %g", v, sum)
				}
			}
			if !reflect.DeepEqual(back.Mesh(), tt.m) {
				t.Fatal("mesh changed")
			}
			if !reflect.DeepEqual(back.Skeleton(), tt.s) {
				t.Fatal("skeleton changed")
			}
		})
	}
}

func TestPadding(t *testing.T) {
	m := fan(3, 1)
	s := &skeleton.Skeleton{Joints: []mathutil.Vec3{{0, 0, 0}, {1, 0, 0}}, Bones: [][2]int{{0, 1}}}
	table := skin.Table{{{Bone: 0, Weight: 1}}, {{Bone: 0, Weight: 1}}, {{Bone: 0, Weight: 1}}, {{Bone: 0, Weight: 1}}}
	doc, err := New(m, s, table)
	if err != nil {
		t.Fatal(err)
	}
	if doc.SkinWeights[2] != [skin.MaxInfluences]float64{1, 0, 0, 0} {
		t.Fatalf("weights = %v", doc.SkinWeights[2])
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"vertices"`, `"faces"`, `"joints"`, `"bones"`, `"skinIndices"`, `"skinWeights"`} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("encoded document lacks %s", key)
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"face out of range", `{"vertices":[[0,0,0]],"faces":[[0,1,2]],"joints":[],"bones":[]}`},
		{"bone out of range", `{"vertices":[],"faces":[],"joints":[[0,0,0]],"bones":[[0,3]]}`},
		{"short skin", `{"vertices":[[0,0,0]],"faces":[],"joints":[],"bones":[],"skinIndices":[],"skinWeights":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.json)); !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
	if _, err := Decode(strings.NewReader("{")); err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestFromResultFile(t *testing.T) {
	bar := []mathutil.Vec2{{0, 0}, {100, 0}, {100, 24}, {0, 24}}
	res, err := pipeline.Run(context.Background(), bar, pipeline.Params{Isodistance: 8})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := FromResult(res)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "bar.rig.json")
	if err := WriteFile(path, doc); err != nil {
		t.Fatal(err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Skin(), res.Skin) {
		t.Fatal("skin table changed through the file")
	}
	if len(back.Vertices) != len(res.Mesh.Verts) || len(back.Bones) != len(res.Skeleton.Bones) {
		t.Fatal("counts changed through the file")
	}
}
