package source

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/davvo/mercator"
	geojson "github.com/paulmach/go.geojson"

	"tubegen/internal/mathutil"
	"tubegen/internal/planar"
)

// decodeGeoJSON returns the largest outer ring among the polygons, multi
// polygons and closed line strings of a FeatureCollection, Feature or bare
// geometry.
func decodeGeoJSON(r io.Reader, opt Options) ([]mathutil.Vec2, error) {
	tr, err := textReader(r, opt)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(tr)
	if err != nil {
		return nil, fmt.Errorf("source: geojson: %w", err)
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("source: geojson: %w", err)
	}

	var geoms []*geojson.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("source: geojson: %w", err)
		}
		for _, f := range fc.Features {
			if f.Geometry != nil {
				geoms = append(geoms, f.Geometry)
			}
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("source: geojson: %w", err)
		}
		if f.Geometry != nil {
			geoms = append(geoms, f.Geometry)
		}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("source: geojson: %w", err)
		}
		geoms = append(geoms, g)
	}

	var (
		best     []mathutil.Vec2
		bestArea float64
	)
	for _, ring := range rings(geoms) {
		pts, err := fromPairs(ring)
		if err != nil {
			return nil, err
		}
		if a := math.Abs(planar.SignedArea(planar.Close(pts))); a > bestArea {
			best, bestArea = pts, a
		}
	}
	if best == nil {
		return nil, fmt.Errorf("source: geojson: %w", ErrNoOutline)
	}
	return best, nil
}

// rings collects candidate outer rings. Holes are ignored.
func rings(geoms []*geojson.Geometry) [][][]float64 {
	var out [][][]float64
	for _, g := range geoms {
		switch {
		case g.IsPolygon():
			if len(g.Polygon) > 0 {
				out = append(out, g.Polygon[0])
			}
		case g.IsMultiPolygon():
			for _, poly := range g.MultiPolygon {
				if len(poly) > 0 {
					out = append(out, poly[0])
				}
			}
		case g.IsLineString():
			ls := g.LineString
			if len(ls) > 3 && len(ls[0]) >= 2 && len(ls[len(ls)-1]) >= 2 &&
				ls[0][0] == ls[len(ls)-1][0] && ls[0][1] == ls[len(ls)-1][1] {
				out = append(out, ls)
			}
		case g.IsCollection():
			out = append(out, rings(g.Geometries)...)
		}
	}
	return out
}

// Web Mercator constants at zoom 0: a 256 pixel world.
const (
	earthRadius  = 6378137.0
	originShift  = math.Pi * earthRadius
	metresPerPix = 2 * originShift / 256
)

// project maps lon/lat degrees to Web Mercator metres, centred on the loop's
// centroid so the pipeline works with small coordinates.
func project(pts []mathutil.Vec2) []mathutil.Vec2 {
	out := make([]mathutil.Vec2, len(pts))
	for i, p := range pts {
		px, py := mercator.LatLonToPixels(p[1], p[0], 0)
		out[i] = mathutil.Vec2{px*metresPerPix - originShift, py*metresPerPix - originShift}
	}
	c := planar.Centroid(planar.Close(out))
	for i := range out {
		out[i] = out[i].Sub(c)
	}
	return out
}
