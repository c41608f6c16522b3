package chord

import (
	"math"

	"tubegen/internal/mathutil"
)

// encode maps a unit direction to its double angle (dx²−dy², 2·dx·dy), so d
// and −d share one code.
func encode(d mathutil.Vec2) mathutil.Vec2 {
	return mathutil.Vec2{d[0]*d[0] - d[1]*d[1], 2 * d[0] * d[1]}
}

// decode inverts encode up to sign. The code is normalised first; the half
// angle gives nx ≥ 0 and |ny|, and ny takes the sign of the code's second
// component (nx·ny·s < 0 flips ny).
func decode(code, fallback mathutil.Vec2) mathutil.Vec2 {
	l := code.Len()
	if l < mathutil.LengthEps {
		return fallback
	}
	c, s := code[0]/l, code[1]/l
	nx := math.Sqrt(math.Max(0, (1+c)/2))
	ny := math.Sqrt(math.Max(0, (1-c)/2))
	if nx*ny*s < 0 {
		ny = -ny
	}
	return mathutil.Vec2{nx, ny}
}

// Smooth relaxes chord centers and directions in place with iterations of
// p ← (1−α)·p + α·mean(neighbours). Directions are smoothed in double-angle
// space. Cap and junction chords stay fixed so tube ends keep their anchor
// and junction rings keep meeting at the triangle corners.
func Smooth(g *Graph, iterations int, alpha float64) {
	n := len(g.Nodes)
	if n == 0 || iterations <= 0 {
		return
	}
	centers := make([]mathutil.Vec2, n)
	codes := make([]mathutil.Vec2, n)
	for i, node := range g.Nodes {
		centers[i] = node.Center
		codes[i] = encode(node.Dir)
	}
	nextC := make([]mathutil.Vec2, n)
	nextD := make([]mathutil.Vec2, n)

	for it := 0; it < iterations; it++ {
		for i, node := range g.Nodes {
			adj := g.Adj[i]
			if node.Cap || node.Junction || len(adj) == 0 {
				nextC[i], nextD[i] = centers[i], codes[i]
				continue
			}
			var mc, md mathutil.Vec2
			for _, j := range adj {
				mc = mc.Add(centers[j])
				md = md.Add(codes[j])
			}
			inv := 1 / float64(len(adj))
			nextC[i] = centers[i].Scale(1 - alpha).Add(mc.Scale(alpha * inv))
			nextD[i] = codes[i].Scale(1 - alpha).Add(md.Scale(alpha * inv))
		}
		centers, nextC = nextC, centers
		codes, nextD = nextD, codes
	}

	for i := range g.Nodes {
		node := &g.Nodes[i]
		if node.Cap || node.Junction {
			continue
		}
		node.Center = centers[i]
		dir := decode(codes[i], node.Dir)
		// Keep the original orientation so ring point 0 stays near Key[0].
		if dir.Dot(node.Dir) < 0 {
			dir = dir.Scale(-1)
		}
		node.Dir = dir
	}
}
