// Package chord builds the dual graph over the interior edges of a planar
// disk and smooths the chord axes before tube generation.
package chord

import (
	"errors"
	"fmt"

	"tubegen/internal/disk"
	"tubegen/internal/mathutil"
	"tubegen/internal/planar"
)

// ErrMalformedMesh is returned when a triangle has no interior edge. A disk
// of a single face has no chords and always fails this way.
var ErrMalformedMesh = errors.New("malformed disk mesh")

// Node is one chord: an interior edge of the disk seen as a tube cross-section.
type Node struct {
	Key    planar.EdgeKey
	Center mathutil.Vec2 // edge midpoint
	Dir    mathutil.Vec2 // unit direction from Key[0] to Key[1]
	Length float64

	Cap      bool // chord bounds an end triangle
	Junction bool // chord is a side of a junction triangle
}

// Radius is half the chord length.
func (n Node) Radius() float64 { return n.Length / 2 }

// Cap is an end triangle: one chord plus the outline vertex opposite to it.
type Cap struct {
	Chord int
	Free  int
	Face  int
}

// Junction is a triangle whose three edges are all chords.
type Junction struct {
	Chords [3]int
	Face   int
}

// Graph is the chord graph of a disk.
type Graph struct {
	Nodes []Node
	Index map[planar.EdgeKey]int

	// Adj links every pair of chords that share a triangle.
	Adj [][]int
	// Links holds only the sleeve links (triangles with two chords).
	Links [][]int

	Caps      []Cap
	Junctions []Junction

	// Points are the disk vertices the keys refer to.
	Points []mathutil.Vec2
}

// Build creates one node per interior edge of m and classifies every
// triangle by its chord count.
func Build(m *disk.Mesh) (*Graph, error) {
	g := &Graph{
		Index:  make(map[planar.EdgeKey]int),
		Points: m.Points,
	}

	for _, t := range m.Tris {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			key := planar.Key(a, b)
			if _, ok := g.Index[key]; ok || m.IsBoundaryEdge(a, b) {
				continue
			}
			pa, pb := m.Points[key[0]], m.Points[key[1]]
			g.Index[key] = len(g.Nodes)
			g.Nodes = append(g.Nodes, Node{
				Key:    key,
				Center: pa.Lerp(pb, 0.5),
				Dir:    pb.Sub(pa).Normalize(),
				Length: pa.Dist(pb),
			})
		}
	}
	g.Adj = make([][]int, len(g.Nodes))
	g.Links = make([][]int, len(g.Nodes))

	for f, t := range m.Tris {
		var chords []int
		free := -1
		for k := 0; k < 3; k++ {
			if id, ok := g.Index[planar.Key(t[k], t[(k+1)%3])]; ok {
				chords = append(chords, id)
			}
		}

		switch len(chords) {
		case 1:
			key := g.Nodes[chords[0]].Key
			for _, v := range t {
				if v != key[0] && v != key[1] {
					free = v
				}
			}
			g.Nodes[chords[0]].Cap = true
			g.Caps = append(g.Caps, Cap{Chord: chords[0], Free: free, Face: f})
		case 2:
			g.link(chords[0], chords[1])
			g.Links[chords[0]] = append(g.Links[chords[0]], chords[1])
			g.Links[chords[1]] = append(g.Links[chords[1]], chords[0])
		case 3:
			for i := 0; i < 3; i++ {
				g.Nodes[chords[i]].Junction = true
				g.link(chords[i], chords[(i+1)%3])
			}
			g.Junctions = append(g.Junctions, Junction{
				Chords: [3]int{chords[0], chords[1], chords[2]},
				Face:   f,
			})
		default:
			return nil, fmt.Errorf("chord: face %d has no interior edge: %w", f, ErrMalformedMesh)
		}
	}
	return g, nil
}

func (g *Graph) link(a, b int) {
	g.Adj[a] = append(g.Adj[a], b)
	g.Adj[b] = append(g.Adj[b], a)
}

// Degree returns the number of co-occurrence links of chord i.
func (g *Graph) Degree(i int) int {
	return len(g.Adj[i])
}

// Branches walks sleeve links into maximal chains. Chains stop at junction
// chords and caps; a junction chord starts its own chains. Every sleeve link
// appears in exactly one chain, and isolated chords form one-element chains.
func (g *Graph) Branches() [][]int {
	visited := make(map[[2]int]bool)
	used := make([]bool, len(g.Nodes))
	var out [][]int

	walk := func(start, next int) []int {
		chain := []int{start}
		prev, cur := start, next
		for {
			visited[[2]int{prev, cur}] = true
			visited[[2]int{cur, prev}] = true
			chain = append(chain, cur)
			used[cur] = true
			if len(g.Links[cur]) != 2 || g.Nodes[cur].Junction {
				return chain
			}
			n := g.Links[cur][0]
			if n == prev {
				n = g.Links[cur][1]
			}
			if visited[[2]int{cur, n}] {
				return chain
			}
			prev, cur = cur, n
		}
	}

	// Start at chain ends first so open chains come out whole.
	for i := range g.Nodes {
		if len(g.Links[i]) == 2 && !g.Nodes[i].Junction {
			continue
		}
		used[i] = true
		for _, n := range g.Links[i] {
			if !visited[[2]int{i, n}] {
				out = append(out, walk(i, n))
			}
		}
		if len(g.Links[i]) == 0 {
			out = append(out, []int{i})
		}
	}
	// What remains are closed loops of sleeve chords.
	for i := range g.Nodes {
		if used[i] {
			continue
		}
		used[i] = true
		out = append(out, walk(i, g.Links[i][0]))
	}
	return out
}
