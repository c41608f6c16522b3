// Package remesh drives a triangle mesh toward uniform edge length and
// valence 6 with split, collapse, flip and tangential relaxation passes.
package remesh

import (
	"tubegen/internal/mathutil"
	"tubegen/internal/mesh"
)

// arena stores vertices and faces in index-stable slices. Removed slots go
// on free lists and are reused by later inserts.
type arena struct {
	pos    []mathutil.Vec3
	vAlive []bool
	vf     [][]int // vertex → incident faces

	faces  [][3]int
	fAlive []bool

	freeV []int
	freeF []int
}

func newArena(m *mesh.Mesh) *arena {
	a := &arena{
		pos:    append([]mathutil.Vec3(nil), m.Verts...),
		vAlive: make([]bool, len(m.Verts)),
		vf:     make([][]int, len(m.Verts)),
	}
	for i := range a.vAlive {
		a.vAlive[i] = true
	}
	for _, f := range m.Faces {
		a.addFace(f)
	}
	return a
}

func (a *arena) addVert(p mathutil.Vec3) int {
	if n := len(a.freeV); n > 0 {
		v := a.freeV[n-1]
		a.freeV = a.freeV[:n-1]
		a.pos[v], a.vAlive[v], a.vf[v] = p, true, a.vf[v][:0]
		return v
	}
	a.pos = append(a.pos, p)
	a.vAlive = append(a.vAlive, true)
	a.vf = append(a.vf, nil)
	return len(a.pos) - 1
}

func (a *arena) removeVert(v int) {
	a.vAlive[v] = false
	a.vf[v] = a.vf[v][:0]
	a.freeV = append(a.freeV, v)
}

func (a *arena) addFace(t [3]int) int {
	var f int
	if n := len(a.freeF); n > 0 {
		f = a.freeF[n-1]
		a.freeF = a.freeF[:n-1]
		a.faces[f], a.fAlive[f] = t, true
	} else {
		f = len(a.faces)
		a.faces = append(a.faces, t)
		a.fAlive = append(a.fAlive, true)
	}
	for _, v := range t {
		a.vf[v] = append(a.vf[v], f)
	}
	return f
}

func (a *arena) removeFace(f int) {
	for _, v := range a.faces[f] {
		a.detach(v, f)
	}
	a.fAlive[f] = false
	a.freeF = append(a.freeF, f)
}

func (a *arena) detach(v, f int) {
	list := a.vf[v]
	for i, g := range list {
		if g == f {
			list[i] = list[len(list)-1]
			a.vf[v] = list[:len(list)-1]
			return
		}
	}
}

// setFace rewrites face f in place, keeping the vertex→face lists current.
func (a *arena) setFace(f int, t [3]int) {
	for _, v := range a.faces[f] {
		a.detach(v, f)
	}
	a.faces[f] = t
	for _, v := range t {
		a.vf[v] = append(a.vf[v], f)
	}
}

// edgeFaces returns the live faces containing both u and v.
func (a *arena) edgeFaces(u, v int) []int {
	var out []int
	for _, f := range a.vf[u] {
		t := a.faces[f]
		if t[0] == v || t[1] == v || t[2] == v {
			out = append(out, f)
		}
	}
	return out
}

// neighbors returns the distinct one-ring of v.
func (a *arena) neighbors(v int) []int {
	var out []int
	for _, f := range a.vf[v] {
		for _, u := range a.faces[f] {
			if u == v {
				continue
			}
			dup := false
			for _, w := range out {
				if w == u {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, u)
			}
		}
	}
	return out
}

func (a *arena) valence(v int) int { return len(a.neighbors(v)) }

// onBoundary reports whether v has an edge used by a single face.
func (a *arena) onBoundary(v int) bool {
	for _, u := range a.neighbors(v) {
		if len(a.edgeFaces(v, u)) != 2 {
			return true
		}
	}
	return false
}

func (a *arena) normal(f int) mathutil.Vec3 {
	t := a.faces[f]
	return mathutil.TriangleNormal(a.pos[t[0]], a.pos[t[1]], a.pos[t[2]])
}

// edges lists every live undirected edge once.
func (a *arena) edges() []mesh.Edge {
	seen := make(map[mesh.Edge]bool)
	var out []mesh.Edge
	for f, t := range a.faces {
		if !a.fAlive[f] {
			continue
		}
		for k := 0; k < 3; k++ {
			e := mesh.EdgeOf(t[k], t[(k+1)%3])
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

func (a *arena) length(e mesh.Edge) float64 {
	return a.pos[e[0]].Dist(a.pos[e[1]])
}

// toMesh compacts live vertices and faces into a fresh mesh.
func (a *arena) toMesh() *mesh.Mesh {
	m := &mesh.Mesh{Verts: append([]mathutil.Vec3(nil), a.pos...)}
	for f, t := range a.faces {
		if a.fAlive[f] {
			m.Faces = append(m.Faces, t)
		}
	}
	m.Compact()
	return m
}
