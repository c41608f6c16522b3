package source

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tubegen/internal/mathutil"
)

// decodeJSON accepts either a bare array of [x, y] pairs or an object with a
// "points" member holding one.
func decodeJSON(r io.Reader, opt Options) ([]mathutil.Vec2, error) {
	tr, err := textReader(r, opt)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := json.NewDecoder(tr).Decode(&raw); err != nil {
		return nil, fmt.Errorf("source: json: %w", err)
	}

	var pairs [][]float64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		var doc struct {
			Points [][]float64 `json:"points"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("source: json: %w", err)
		}
		pairs = doc.Points
	}
	return fromPairs(pairs)
}

func fromPairs(pairs [][]float64) ([]mathutil.Vec2, error) {
	out := make([]mathutil.Vec2, 0, len(pairs))
	for i, p := range pairs {
		if len(p) < 2 {
			return nil, fmt.Errorf("source: point %d has %d coordinates", i, len(p))
		}
		out = append(out, mathutil.Vec2{p[0], p[1]})
	}
	return out, nil
}

// decodeCSV reads a header row naming the coordinate columns:
// x|lon|lng|long|longitude and y|lat|latitude, case-insensitive.
// Rows that do not parse are skipped.
func decodeCSV(r io.Reader, opt Options) ([]mathutil.Vec2, error) {
	tr, err := textReader(r, opt)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(tr)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("source: csv: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("source: csv: %w", ErrNoOutline)
	}

	ix, iy := -1, -1
	for i, h := range recs[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "x", "lon", "lng", "long", "longitude":
			if ix == -1 {
				ix = i
			}
		case "y", "lat", "latitude":
			if iy == -1 {
				iy = i
			}
		}
	}
	if ix == -1 || iy == -1 {
		return nil, errors.New("source: csv: x/y columns not found")
	}

	var pts []mathutil.Vec2
	for _, row := range recs[1:] {
		if ix >= len(row) || iy >= len(row) {
			continue
		}
		x, err1 := strconv.ParseFloat(strings.TrimSpace(row[ix]), 64)
		y, err2 := strconv.ParseFloat(strings.TrimSpace(row[iy]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		pts = append(pts, mathutil.Vec2{x, y})
	}
	return pts, nil
}

// decodeWKT reads the outer ring of a POLYGON or the vertices of a
// LINESTRING.
func decodeWKT(r io.Reader, opt Options) ([]mathutil.Vec2, error) {
	text, err := readText(r, opt)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(text)
	up := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(up, "POLYGON"):
		i := strings.Index(s, "((")
		if i < 0 {
			return nil, errors.New("source: wkt polygon: invalid")
		}
		j := strings.Index(s[i:], ")")
		if j < 0 {
			return nil, errors.New("source: wkt polygon: invalid")
		}
		return parseTuples(s[i+2 : i+j]), nil
	case strings.HasPrefix(up, "LINESTRING"):
		i := strings.Index(s, "(")
		j := strings.LastIndex(s, ")")
		if i < 0 || j <= i {
			return nil, errors.New("source: wkt linestring: invalid")
		}
		return parseTuples(s[i+1 : j]), nil
	case s == "":
		return nil, fmt.Errorf("source: wkt: %w", ErrNoOutline)
	default:
		return nil, fmt.Errorf("source: wkt %q: %w", strings.Fields(up)[0], ErrUnsupported)
	}
}
