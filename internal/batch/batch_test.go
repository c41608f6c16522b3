package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tubegen/internal/pipeline"
	"tubegen/internal/preview"
	"tubegen/internal/rig"
)

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"bar.json":  `[[0,0],[100,0],[100,24],[0,24]]`,
		"tee.csv":   "x,y\n-60,0\n60,0\n60,20\n10,20\n10,80\n-10,80\n-10,20\n-60,20\n",
		"bad.json":  `[[0,0],[1,1]]`,
		"notes.txt": "not an outline",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestScan(t *testing.T) {
	items, err := Scan(writeInputs(t))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	if got := strings.Join(names, ","); got != "bad,bar,tee" {
		t.Fatalf("scanned %s", got)
	}
	if _, err := Scan(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestRun(t *testing.T) {
	in := writeInputs(t)
	out := filepath.Join(t.TempDir(), "out")
	items, err := Scan(in)
	if err != nil {
		t.Fatal(err)
	}

	var progress bytes.Buffer
	cfg := Config{
		OutputDir:    out,
		Params:       pipeline.Params{Isodistance: 8},
		Preview:      preview.Options{Size: 32},
		Workers:      2,
		WriteSTL:     true,
		WriteGeoJSON: true,
		WriteOverlay: true,
		Progress:     &progress,
	}
	results := Run(context.Background(), cfg, items)
	if len(results) != 3 {
		t.Fatalf("%d results", len(results))
	}

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if r := byName["bad"]; r.Success || r.Error == "" {
		t.Fatalf("bad outline result %+v", r)
	}
	for _, name := range []string{"bar", "tee"} {
		r := byName[name]
		if !r.Success {
			t.Fatalf("%s failed: %s", name, r.Error)
		}
		if r.Bones == 0 || r.Vertices == 0 {
			t.Fatalf("%s: %+v", name, r)
		}
		for _, ext := range []string{".rig.json", ".webp", ".stl", ".geojson", ".overlay.png"} {
			if _, err := os.Stat(filepath.Join(out, name+ext)); err != nil {
				t.Errorf("%s%s: %v", name, ext, err)
			}
		}
		doc, err := rig.ReadFile(filepath.Join(out, r.Rig))
		if err != nil {
			t.Fatal(err)
		}
		if len(doc.Vertices) != r.Vertices || len(doc.Bones) != r.Bones {
			t.Fatalf("%s: rig file disagrees with result", name)
		}
	}

	path := filepath.Join(out, "manifest.json")
	if err := WriteManifest(path, results); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Name != "bar" || entries[1].Image != "tee.webp" {
		t.Fatalf("manifest %+v", entries)
	}
}

func TestRunCancelled(t *testing.T) {
	items, err := Scan(writeInputs(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := Run(ctx, Config{OutputDir: t.TempDir(), Preview: preview.Options{Size: 16}}, items)
	for _, r := range results {
		if r.Success || r.Error != context.Canceled.Error() {
			t.Fatalf("result %+v, want cancellation", r)
		}
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Fatal("context not cancelled")
	}
}
