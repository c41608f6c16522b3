package planar

import (
	"math"

	"tubegen/internal/mathutil"
)

// GenerateTriangleGrid flood-fills a triangular lattice with the given spacing,
// seeded at the polygon centroid, and returns the lattice points that lie
// inside poly. Points closer than margin to the boundary are dropped so they
// cannot form slivers with boundary vertices.
func GenerateTriangleGrid(poly []mathutil.Vec2, spacing, margin float64) []mathutil.Vec2 {
	if len(poly) < 3 || spacing <= 0 {
		return nil
	}

	origin := Centroid(poly)
	if !PointInPolygon(origin, poly) {
		// Concave shapes can have the centroid outside; fall back to the
		// midpoint of the first interior diagonal we can find.
		origin = interiorSeed(poly)
	}

	u := mathutil.Vec2{spacing, 0}
	v := mathutil.Vec2{spacing / 2, spacing * math.Sqrt(3) / 2}
	at := func(i, j int) mathutil.Vec2 {
		return origin.Add(u.Scale(float64(i))).Add(v.Scale(float64(j)))
	}

	// Lattice is bounded by the polygon's bounding box.
	limit := boundsCells(poly, spacing)

	type cell struct{ i, j int }
	seen := map[cell]bool{{0, 0}: true}
	queue := []cell{{0, 0}}
	var out []mathutil.Vec2
	neighbors := [6]cell{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, -1}, {-1, 1}}

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		p := at(c.i, c.j)
		if !PointInPolygon(p, poly) {
			continue
		}
		if margin <= 0 || distToBoundary(p, poly) >= margin {
			out = append(out, p)
		}
		for _, d := range neighbors {
			nc := cell{c.i + d.i, c.j + d.j}
			if seen[nc] || abs(nc.i) > limit || abs(nc.j) > limit {
				continue
			}
			seen[nc] = true
			queue = append(queue, nc)
		}
	}
	return out
}

func interiorSeed(poly []mathutil.Vec2) mathutil.Vec2 {
	n := len(poly)
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			m := poly[i].Lerp(poly[j], 0.5)
			if PointInPolygon(m, poly) {
				return m
			}
		}
	}
	return poly[0]
}

func boundsCells(poly []mathutil.Vec2, spacing float64) int {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		minX = math.Min(minX, p[0])
		minY = math.Min(minY, p[1])
		maxX = math.Max(maxX, p[0])
		maxY = math.Max(maxY, p[1])
	}
	span := math.Max(maxX-minX, maxY-minY)
	return int(math.Ceil(2*span/spacing)) + 2
}

func distToBoundary(p mathutil.Vec2, poly []mathutil.Vec2) float64 {
	best := math.Inf(1)
	n := len(poly)
	for i := 0; i < n; i++ {
		a, b := poly[i].Vec3(0), poly[(i+1)%n].Vec3(0)
		d, _ := mathutil.SegmentDist(p.Vec3(0), a, b)
		if d < best {
			best = d
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
