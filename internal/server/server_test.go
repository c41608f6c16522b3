package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"golang.org/x/image/webp"

	"tubegen/internal/pipeline"
	"tubegen/internal/rig"
)

const bar = `[[0,0],[100,0],[100,24],[0,24]]`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(Options{Params: pipeline.Params{Isodistance: 8}}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	res, err := http.Post(url, "application/octet-stream", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	res, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
}

func TestStatusCodes(t *testing.T) {
	srv := newServer(t)
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"rig", "/rig", bar, http.StatusOK},
		{"rig from csv", "/rig?format=csv&iso=6", "x,y\n0,0\n100,0\n100,24\n0,24\n", http.StatusOK},
		{"too few points", "/rig", `[[0,0],[1,1]]`, http.StatusBadRequest},
		{"unknown format", "/rig?format=svg", bar, http.StatusBadRequest},
		{"bad iso", "/rig?iso=wide", bar, http.StatusBadRequest},
		{"self intersecting", "/rig", `[[0,0],[40,40],[40,0],[0,40]]`, http.StatusUnprocessableEntity},
		{"single face disk", "/rig", `[[0,0],[12,0],[6,10.4]]`, http.StatusUnprocessableEntity},
		{"bad size", "/preview?size=-4", bar, http.StatusBadRequest},
		{"bad bend", "/preview?bend=1", bar, http.StatusBadRequest},
		{"unknown joint", "/preview?size=32&bend=999:10", bar, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := post(t, srv.URL+tt.path, tt.body); res.StatusCode != tt.want {
				t.Fatalf("status %d, want %d", res.StatusCode, tt.want)
			}
		})
	}

	res, err := http.Get(srv.URL + "/rig")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /rig status %d", res.StatusCode)
	}
}

func TestRig(t *testing.T) {
	srv := newServer(t)
	res := post(t, srv.URL+"/rig", bar)
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
	doc, err := rig.Decode(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Vertices) == 0 || len(doc.Bones) == 0 || len(doc.SkinWeights) != len(doc.Vertices) {
		t.Fatalf("rig with %d vertices, %d bones", len(doc.Vertices), len(doc.Bones))
	}
}

func TestPreview(t *testing.T) {
	srv := newServer(t)
	res := post(t, srv.URL+"/preview?size=40&bend=0:15", bar)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	img, err := webp.Decode(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 40 {
		t.Fatalf("bounds %v", b)
	}
}

func TestGeoJSON(t *testing.T) {
	srv := newServer(t)
	res := post(t, srv.URL+"/geojson?format=wkt", "POLYGON ((0 0, 100 0, 100 24, 0 24, 0 0))")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) == 0 {
		t.Fatal("no features")
	}
}
