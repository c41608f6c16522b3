// Package source reads closed 2D outlines from point lists, GIS text formats
// and raster masks.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tubegen/internal/mathutil"
	"tubegen/internal/planar"
)

var (
	// ErrUnsupported is returned for file extensions no loader handles.
	ErrUnsupported = errors.New("unsupported outline format")
	// ErrNoOutline is returned when a file holds fewer than three usable points.
	ErrNoOutline = errors.New("no outline found")
)

// Format names accepted by Decode.
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatWKT     = "wkt"
	FormatGeoJSON = "geojson"
	FormatMask    = "mask"
)

// Options tunes the loaders. The zero value is usable.
type Options struct {
	// Encoding names the character set of text inputs ("windows-1252",
	// "utf-16le", ...). Empty means UTF-8 with an optional BOM.
	Encoding string
	// Geographic treats GeoJSON, WKT and CSV coordinates as lon/lat degrees
	// and projects them to Web Mercator metres.
	Geographic bool
	// PixelSize is the world size of one mask pixel. Zero means 1.
	PixelSize float64
	// Threshold separates foreground from background in masks. Zero means 128.
	Threshold uint8
}

var extFormats = map[string]string{
	".json":    FormatJSON,
	".csv":     FormatCSV,
	".wkt":     FormatWKT,
	".geojson": FormatGeoJSON,
	".png":     FormatMask,
	".jpg":     FormatMask,
	".jpeg":    FormatMask,
	".tga":     FormatMask,
	".bmp":     FormatMask,
}

// FormatOf maps a file name to its loader format, or "" if none applies.
func FormatOf(path string) string {
	return extFormats[strings.ToLower(filepath.Ext(path))]
}

// Supported reports whether Load can read path.
func Supported(path string) bool {
	return FormatOf(path) != ""
}

// Load reads the outline stored at path, picking the loader by extension.
func Load(path string, opt Options) ([]mathutil.Vec2, error) {
	format := FormatOf(path)
	if format == "" {
		return nil, fmt.Errorf("source: %s: %w", filepath.Ext(path), ErrUnsupported)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()

	pts, err := Decode(f, format, opt)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", filepath.Base(path), err)
	}
	return pts, nil
}

// Decode reads one outline in the given format from r.
func Decode(r io.Reader, format string, opt Options) ([]mathutil.Vec2, error) {
	var (
		pts []mathutil.Vec2
		geo bool
		err error
	)
	switch format {
	case FormatJSON:
		pts, err = decodeJSON(r, opt)
	case FormatCSV:
		pts, err = decodeCSV(r, opt)
		geo = opt.Geographic
	case FormatWKT:
		pts, err = decodeWKT(r, opt)
		geo = opt.Geographic
	case FormatGeoJSON:
		pts, err = decodeGeoJSON(r, opt)
		geo = opt.Geographic
	case FormatMask:
		pts, err = decodeMask(r, opt)
	default:
		return nil, fmt.Errorf("source: %q: %w", format, ErrUnsupported)
	}
	if err != nil {
		return nil, err
	}
	if geo {
		pts = project(pts)
	}
	return finish(pts)
}

// finish drops a repeated closing point and rejects degenerate loops.
func finish(pts []mathutil.Vec2) ([]mathutil.Vec2, error) {
	pts = planar.Close(pts)
	if len(pts) < 3 {
		return nil, fmt.Errorf("source: %d points: %w", len(pts), ErrNoOutline)
	}
	return pts, nil
}
