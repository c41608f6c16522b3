package planar

import (
	"errors"
	"fmt"
	"math"

	"tubegen/internal/mathutil"
)

// ErrMalformedOutline is returned for outlines the triangulator cannot accept:
// fewer than three points, non-finite coordinates, zero area or self-intersections.
var ErrMalformedOutline = errors.New("malformed outline")

// EdgeKey identifies an undirected edge by its (min, max) vertex indices.
type EdgeKey [2]int

// Key returns the canonical key of edge a-b.
func Key(a, b int) EdgeKey {
	if a > b {
		a, b = b, a
	}
	return EdgeKey{a, b}
}

// Close drops a trailing point that repeats the first one.
// The returned slice shares storage with pts.
func Close(pts []mathutil.Vec2) []mathutil.Vec2 {
	if len(pts) > 1 && pts[0].Dist(pts[len(pts)-1]) < 1e-12 {
		return pts[:len(pts)-1]
	}
	return pts
}

// SignedArea is the shoelace area: positive for counter-clockwise loops.
func SignedArea(pts []mathutil.Vec2) float64 {
	var sum float64
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return sum / 2
}

// IsClockwise reports whether the closed loop winds clockwise (y up).
func IsClockwise(pts []mathutil.Vec2) bool {
	return SignedArea(pts) < 0
}

// CCW returns the loop in counter-clockwise order, reversing a copy if needed.
func CCW(pts []mathutil.Vec2) []mathutil.Vec2 {
	out := make([]mathutil.Vec2, len(pts))
	copy(out, pts)
	if IsClockwise(out) {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// PointInPolygon is an even-odd ray casting test. Points exactly on the
// boundary may land on either side.
func PointInPolygon(p mathutil.Vec2, poly []mathutil.Vec2) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := (b[0]-a[0])*(p[1]-a[1])/(b[1]-a[1]) + a[0]
			if p[0] < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Centroid returns the area centroid of the loop, or the vertex mean when the
// area is degenerate.
func Centroid(pts []mathutil.Vec2) mathutil.Vec2 {
	var cx, cy, a float64
	n := len(pts)
	for i := 0; i < n; i++ {
		p, q := pts[i], pts[(i+1)%n]
		cr := p[0]*q[1] - q[0]*p[1]
		a += cr
		cx += (p[0] + q[0]) * cr
		cy += (p[1] + q[1]) * cr
	}
	if math.Abs(a) < 1e-12 {
		var m mathutil.Vec2
		for _, p := range pts {
			m = m.Add(p)
		}
		return m.Scale(1 / float64(n))
	}
	return mathutil.Vec2{cx / (3 * a), cy / (3 * a)}
}

// Length returns the perimeter of the closed loop.
func Length(pts []mathutil.Vec2) float64 {
	var total float64
	for i := range pts {
		total += pts[i].Dist(pts[(i+1)%len(pts)])
	}
	return total
}

// SegmentsCross reports a proper crossing of segments ab and cd (shared
// endpoints and touching do not count).
func SegmentsCross(a, b, c, d mathutil.Vec2) bool {
	d1 := mathutil.Orient(a, b, c)
	d2 := mathutil.Orient(a, b, d)
	d3 := mathutil.Orient(c, d, a)
	d4 := mathutil.Orient(c, d, b)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// Validate checks that pts is a usable simple polygon.
func Validate(pts []mathutil.Vec2) error {
	pts = Close(pts)
	if len(pts) < 3 {
		return fmt.Errorf("planar: %d points: %w", len(pts), ErrMalformedOutline)
	}
	for i, p := range pts {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			return fmt.Errorf("planar: point %d is not finite: %w", i, ErrMalformedOutline)
		}
	}
	if math.Abs(SignedArea(pts)) < 1e-9 {
		return fmt.Errorf("planar: zero area: %w", ErrMalformedOutline)
	}

	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // adjacent through the closing edge
			}
			c, d := pts[j], pts[(j+1)%n]
			if SegmentsCross(a, b, c, d) {
				return fmt.Errorf("planar: edges %d and %d intersect: %w", i, j, ErrMalformedOutline)
			}
		}
	}
	return nil
}
