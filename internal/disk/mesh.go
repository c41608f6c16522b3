// Package disk builds the triangulated planar disk of an outline and prunes
// its short side branches.
package disk

import (
	"fmt"

	"tubegen/internal/mathutil"
	"tubegen/internal/planar"
)

// Mesh is a triangulated planar disk with adjacency lookups.
// Triangles are counter-clockwise.
type Mesh struct {
	Points []mathutil.Vec2
	Tris   [][3]int

	edgeFaces map[planar.EdgeKey][]int
	vertFaces [][]int
}

// Build resamples outline at spacing, orients it counter-clockwise and
// triangulates it with the outline as the constraint boundary.
func Build(outline []mathutil.Vec2, spacing float64) (*Mesh, error) {
	if err := planar.Validate(outline); err != nil {
		return nil, fmt.Errorf("disk: %w", err)
	}
	pts, err := planar.Reparameterize(outline, spacing)
	if err != nil {
		return nil, fmt.Errorf("disk: %w", err)
	}
	pts = planar.CCW(pts)
	if err := planar.Validate(pts); err != nil {
		return nil, fmt.Errorf("disk: resampled outline: %w", err)
	}

	tris, err := planar.TriangulatePolygon(pts, nil)
	if err != nil {
		return nil, fmt.Errorf("disk: triangulate: %w", err)
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("disk: triangulation is empty: %w", planar.ErrMalformedOutline)
	}
	return New(pts, tris), nil
}

// New wraps points and triangles and builds adjacency.
func New(points []mathutil.Vec2, tris [][3]int) *Mesh {
	m := &Mesh{
		Points:    points,
		Tris:      tris,
		edgeFaces: make(map[planar.EdgeKey][]int, len(tris)*2),
		vertFaces: make([][]int, len(points)),
	}
	for f, t := range tris {
		for k := 0; k < 3; k++ {
			key := planar.Key(t[k], t[(k+1)%3])
			m.edgeFaces[key] = append(m.edgeFaces[key], f)
			m.vertFaces[t[k]] = append(m.vertFaces[t[k]], f)
		}
	}
	return m
}

// EdgeFaces returns the faces sharing edge a-b (one for boundary edges).
func (m *Mesh) EdgeFaces(a, b int) []int {
	return m.edgeFaces[planar.Key(a, b)]
}

// IsBoundaryEdge reports whether edge a-b belongs to exactly one face.
func (m *Mesh) IsBoundaryEdge(a, b int) bool {
	return len(m.edgeFaces[planar.Key(a, b)]) == 1
}

// VertexFaces returns the faces incident to vertex v.
func (m *Mesh) VertexFaces(v int) []int {
	return m.vertFaces[v]
}

// FaceNeighbors returns the faces sharing an edge with f.
func (m *Mesh) FaceNeighbors(f int) []int {
	var out []int
	t := m.Tris[f]
	for k := 0; k < 3; k++ {
		for _, g := range m.edgeFaces[planar.Key(t[k], t[(k+1)%3])] {
			if g != f {
				out = append(out, g)
			}
		}
	}
	return out
}

// Degree is the number of interior edges of f: 1 for an end, 2 for a
// sleeve, 3 for a branch face.
func (m *Mesh) Degree(f int) int {
	n := 0
	t := m.Tris[f]
	for k := 0; k < 3; k++ {
		if len(m.edgeFaces[planar.Key(t[k], t[(k+1)%3])]) > 1 {
			n++
		}
	}
	return n
}

// Centroid returns the centroid of face f.
func (m *Mesh) Centroid(f int) mathutil.Vec2 {
	t := m.Tris[f]
	return m.Points[t[0]].Add(m.Points[t[1]]).Add(m.Points[t[2]]).Scale(1.0 / 3)
}

// Subset rebuilds the mesh from the faces where keep is true, dropping
// unused vertices and re-indexing the rest.
func (m *Mesh) Subset(keep []bool) *Mesh {
	remap := make([]int, len(m.Points))
	for i := range remap {
		remap[i] = -1
	}
	var pts []mathutil.Vec2
	var tris [][3]int
	for f, t := range m.Tris {
		if !keep[f] {
			continue
		}
		var nt [3]int
		for k, v := range t {
			if remap[v] < 0 {
				remap[v] = len(pts)
				pts = append(pts, m.Points[v])
			}
			nt[k] = remap[v]
		}
		tris = append(tris, nt)
	}
	return New(pts, tris)
}
