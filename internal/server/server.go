// Package server exposes the pipeline over HTTP: outlines in, rigs and
// previews out.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tubegen/internal/export"
	"tubegen/internal/pipeline"
	"tubegen/internal/preview"
	"tubegen/internal/rig"
	"tubegen/internal/skeleton"
	"tubegen/internal/source"
)

// MaxBody caps request bodies.
const MaxBody = 32 << 20

// Options are server wide defaults. Requests may override Params.Isodistance
// and the preview size through query parameters.
type Options struct {
	Params  pipeline.Params
	Source  source.Options
	Preview preview.Options
}

type server struct {
	opt Options
}

// NewRouter returns the HTTP routes:
//
//	GET  /healthz
//	POST /rig       outline in, rig JSON out
//	POST /preview   outline in, WebP out
//	POST /geojson   outline in, planar stages as GeoJSON out
//
// The outline format is taken from ?format= (json, csv, wkt, geojson, mask)
// and defaults to json.
func NewRouter(opt Options) *mux.Router {
	if opt.Preview.Size <= 0 {
		opt.Preview.Size = 256
	}
	s := &server{opt: opt}
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	router.HandleFunc("/rig", s.rig).Methods(http.MethodPost)
	router.HandleFunc("/preview", s.preview).Methods(http.MethodPost)
	router.HandleFunc("/geojson", s.geojson).Methods(http.MethodPost)
	return router
}

func (s *server) health(res http.ResponseWriter, req *http.Request) {
	res.Header().Set("Content-Type", "text/plain")
	res.Write([]byte("ok\n"))
}

// run decodes the outline in req and executes the pipeline.
func (s *server) run(res http.ResponseWriter, req *http.Request) (*pipeline.Result, int, error) {
	q := req.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = source.FormatJSON
	}
	sopt := s.opt.Source
	if q.Get("geographic") == "true" {
		sopt.Geographic = true
	}
	p := s.opt.Params
	if v := q.Get("iso"); v != "" {
		iso, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("iso: %w", err)
		}
		p.Isodistance = iso
	}

	outline, err := source.Decode(http.MaxBytesReader(res, req.Body, MaxBody), format, sopt)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	out, err := pipeline.Run(req.Context(), outline, p)
	switch {
	case err == nil:
		return out, http.StatusOK, nil
	case errors.Is(err, pipeline.ErrMalformedInput):
		return nil, http.StatusUnprocessableEntity, err
	case req.Context().Err() != nil:
		return nil, http.StatusServiceUnavailable, err
	default:
		return nil, http.StatusInternalServerError, err
	}
}

func fail(res http.ResponseWriter, code int, err error) {
	pipeline.Logger().Warn("server: request failed", "status", code, "err", err)
	http.Error(res, err.Error(), code)
}

func write(res http.ResponseWriter, contentType string, data []byte) {
	res.Header().Set("Content-Type", contentType)
	res.Header().Set("Content-Length", strconv.Itoa(len(data)))
	res.Write(data)
}

func (s *server) rig(res http.ResponseWriter, req *http.Request) {
	out, code, err := s.run(res, req)
	if err != nil {
		fail(res, code, err)
		return
	}
	if out.Skin == nil {
		fail(res, http.StatusUnprocessableEntity, errors.New(out.Diagnostics.SkinSkipped))
		return
	}
	doc, err := rig.FromResult(out)
	if err != nil {
		fail(res, http.StatusInternalServerError, err)
		return
	}
	var buf bytes.Buffer
	if err := rig.Encode(&buf, doc); err != nil {
		fail(res, http.StatusInternalServerError, err)
		return
	}
	for _, w := range out.Diagnostics.Warnings() {
		res.Header().Add("X-Tubegen-Warning", w)
	}
	write(res, "application/json", buf.Bytes())
}

func (s *server) preview(res http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	popt := s.opt.Preview
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 4096 {
			fail(res, http.StatusBadRequest, fmt.Errorf("size %q", v))
			return
		}
		popt.Size = n
	}
	pose, err := skeleton.ParseBends(q.Get("bend"))
	if err != nil {
		fail(res, http.StatusBadRequest, err)
		return
	}
	popt.Pose = pose

	out, code, err := s.run(res, req)
	if err != nil {
		fail(res, code, err)
		return
	}
	img, err := preview.Render(out, popt)
	if err != nil {
		fail(res, http.StatusBadRequest, err)
		return
	}
	var buf bytes.Buffer
	if err := preview.Encode(&buf, img); err != nil {
		fail(res, http.StatusInternalServerError, err)
		return
	}
	write(res, "image/webp", buf.Bytes())
}

func (s *server) geojson(res http.ResponseWriter, req *http.Request) {
	out, code, err := s.run(res, req)
	if err != nil {
		fail(res, code, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteGeoJSON(&buf, export.Planar(out.Disk, out.Graph, out.Skeleton)); err != nil {
		fail(res, http.StatusInternalServerError, err)
		return
	}
	write(res, "application/geo+json", buf.Bytes())
}
