package tube

import (
	"fmt"
	"math"

	"tubegen/internal/chord"
	"tubegen/internal/mathutil"
	"tubegen/internal/mesh"
)

// Ring is the cross-section generated for one chord.
type Ring struct {
	Chord  int
	Offset int   // first vertex index at generation time
	Size   int   // number of ring points
	Verts  []int // final vertex indices after corner merging
	Center mathutil.Vec3
}

// Skip records a feature left out of the mesh. The mesh stays usable but
// has a hole at that spot.
type Skip struct {
	Kind   string // "junction" or "cap"
	Face   int    // disk face of the feature
	Reason string
}

func (s Skip) String() string {
	return fmt.Sprintf("%s at face %d: %s", s.Kind, s.Face, s.Reason)
}

// Result is the generated tube mesh.
type Result struct {
	Mesh  *mesh.Mesh
	Rings []Ring
	Skips []Skip
}

type builder struct {
	g     *chord.Graph
	iso   float64
	verts []mathutil.Vec3
	faces [][3]int
	alias map[int]int
	rings []Ring
	skips []Skip
}

// Generate builds the tube mesh of g. Every chord gets one ring; sleeve
// chains are stitched ring to ring, caps shrink to an apex and junction
// triangles are closed by a top and a bottom patch.
func Generate(g *chord.Graph, iso float64) (*Result, error) {
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("tube: chord graph is empty")
	}
	if iso <= 0 {
		return nil, fmt.Errorf("tube: isodistance %g must be positive", iso)
	}
	b := &builder{g: g, iso: iso, alias: make(map[int]int)}

	for i, n := range g.Nodes {
		center := n.Center.Vec3(0)
		pts := Disc(center, n.Dir.Vec3(0), n.Radius(), iso)
		r := Ring{Chord: i, Offset: len(b.verts), Size: len(pts), Center: center}
		for k := range pts {
			r.Verts = append(r.Verts, r.Offset+k)
		}
		b.verts = append(b.verts, pts...)
		b.rings = append(b.rings, r)
	}

	for _, chain := range g.Branches() {
		for k := 0; k+1 < len(chain); k++ {
			b.faces = append(b.faces, Slice(b.verts, b.rings[chain[k]].Verts, b.rings[chain[k+1]].Verts)...)
		}
	}
	for _, c := range g.Caps {
		b.cap(c)
	}
	for _, j := range g.Junctions {
		b.junction(j)
	}

	return b.finish(), nil
}

// merge joins vertices x and y; the root of y survives.
func (b *builder) merge(x, y int) {
	rx, ry := b.resolve(x), b.resolve(y)
	if rx != ry {
		b.alias[rx] = ry
	}
}

// resolve follows corner aliases to the surviving vertex.
func (b *builder) resolve(v int) int {
	for {
		to, ok := b.alias[v]
		if !ok {
			return v
		}
		v = to
	}
}

func (b *builder) addVert(p mathutil.Vec3) int {
	b.verts = append(b.verts, p)
	return len(b.verts) - 1
}

// finish applies aliases, drops collapsed faces and compacts vertices.
func (b *builder) finish() *Result {
	m := &mesh.Mesh{Verts: b.verts}
	for _, f := range b.faces {
		t := [3]int{b.resolve(f[0]), b.resolve(f[1]), b.resolve(f[2])}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			continue
		}
		m.Faces = append(m.Faces, t)
	}
	remap := m.Compact()

	for i := range b.rings {
		r := &b.rings[i]
		for k, v := range r.Verts {
			r.Verts[k] = remap[b.resolve(v)]
		}
	}
	return &Result{Mesh: m, Rings: b.rings, Skips: b.skips}
}

// cap closes chord c.Chord on its free side with shrinking rings sliding
// toward the free outline vertex.
func (b *builder) cap(c chord.Cap) {
	if c.Free < 0 || c.Free >= len(b.g.Points) {
		b.skips = append(b.skips, Skip{Kind: "cap", Face: c.Face, Reason: "no free vertex"})
		return
	}
	node := b.g.Nodes[c.Chord]
	center := node.Center.Vec3(0)
	tip := b.g.Points[c.Free].Vec3(0)
	dir := node.Dir.Vec3(0)
	r := node.Radius()

	steps := int(math.Ceil(tip.Dist(center) / b.iso))
	if steps < 1 {
		steps = 1
	}

	prev := b.rings[c.Chord].Verts
	for k := 1; k < steps; k++ {
		t := float64(k) / float64(steps)
		rr := r * math.Sqrt(1-t*t)
		pts := Disc(center.Lerp(tip, t), dir, rr, b.iso)
		ring := make([]int, len(pts))
		for q, p := range pts {
			ring[q] = b.addVert(p)
		}
		b.faces = append(b.faces, Slice(b.verts, prev, ring)...)
		prev = ring
	}
	b.faces = append(b.faces, Fan(prev, b.addVert(tip))...)
}
