// Package rig defines the JSON record of a generated rig: mesh, skeleton
// and a fixed-width skin table.
package rig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"tubegen/internal/mathutil"
	"tubegen/internal/mesh"
	"tubegen/internal/pipeline"
	"tubegen/internal/skeleton"
	"tubegen/internal/skin"
)

// ErrInvalid is returned by Decode and Validate for inconsistent documents.
var ErrInvalid = errors.New("invalid rig document")

// Document is the on-disk rig. Every vertex has exactly MaxInfluences
// index/weight slots; unused slots are zero.
type Document struct {
	Vertices    [][3]float64                  `json:"vertices"`
	Faces       [][3]int                      `json:"faces"`
	Joints      [][3]float64                  `json:"joints"`
	Bones       [][2]int                      `json:"bones"`
	SkinIndices [][skin.MaxInfluences]int     `json:"skinIndices"`
	SkinWeights [][skin.MaxInfluences]float64 `json:"skinWeights"`
}

// New builds a document from its parts. t may be nil when the rig has no
// skin.
func New(m *mesh.Mesh, s *skeleton.Skeleton, t skin.Table) (*Document, error) {
	d := &Document{
		Vertices: make([][3]float64, len(m.Verts)),
		Faces:    append([][3]int{}, m.Faces...),
		Joints:   [][3]float64{},
		Bones:    [][2]int{},
	}
	for i, v := range m.Verts {
		d.Vertices[i] = v
	}
	if s != nil {
		for _, j := range s.Joints {
			d.Joints = append(d.Joints, j)
		}
		d.Bones = append(d.Bones, s.Bones...)
	}
	if t != nil {
		if len(t) != len(m.Verts) {
			return nil, fmt.Errorf("rig: skin covers %d vertices, mesh has %d", len(t), len(m.Verts))
		}
		d.SkinIndices = make([][skin.MaxInfluences]int, len(t))
		d.SkinWeights = make([][skin.MaxInfluences]float64, len(t))
		for v, inf := range t {
			if len(inf) > skin.MaxInfluences {
				return nil, fmt.Errorf("rig: vertex %d has %d influences", v, len(inf))
			}
			for k, x := range inf {
				d.SkinIndices[v][k] = x.Bone
				d.SkinWeights[v][k] = x.Weight
			}
		}
	}
	return d, nil
}

// FromResult builds the document of a pipeline run.
func FromResult(r *pipeline.Result) (*Document, error) {
	return New(r.Mesh, r.Skeleton, r.Skin)
}

// Mesh returns the triangle mesh of d.
func (d *Document) Mesh() *mesh.Mesh {
	m := &mesh.Mesh{
		Verts: make([]mathutil.Vec3, len(d.Vertices)),
		Faces: append([][3]int(nil), d.Faces...),
	}
	for i, v := range d.Vertices {
		m.Verts[i] = v
	}
	return m
}

// Skeleton returns the skeleton of d.
func (d *Document) Skeleton() *skeleton.Skeleton {
	s := &skeleton.Skeleton{
		Joints: make([]mathutil.Vec3, len(d.Joints)),
		Bones:  append([][2]int(nil), d.Bones...),
	}
	for i, j := range d.Joints {
		s.Joints[i] = j
	}
	return s
}

// Skin returns the skin table with zero-weight padding dropped, or nil when
// d carries no skin.
func (d *Document) Skin() skin.Table {
	if d.SkinIndices == nil {
		return nil
	}
	t := make(skin.Table, len(d.SkinIndices))
	for v := range d.SkinIndices {
		for k := 0; k < skin.MaxInfluences; k++ {
			if w := d.SkinWeights[v][k]; w > 0 {
				t[v] = append(t[v], skin.Influence{Bone: d.SkinIndices[v][k], Weight: w})
			}
		}
	}
	return t
}

// Validate checks index ranges and array lengths.
func (d *Document) Validate() error {
	nv, nj, nb := len(d.Vertices), len(d.Joints), len(d.Bones)
	for f, t := range d.Faces {
		for _, v := range t {
			if v < 0 || v >= nv {
				return fmt.Errorf("rig: face %d references vertex %d of %d: %w", f, v, nv, ErrInvalid)
			}
		}
	}
	for b, e := range d.Bones {
		if e[0] < 0 || e[0] >= nj || e[1] < 0 || e[1] >= nj || e[0] == e[1] {
			return fmt.Errorf("rig: bone %d joins joints %v of %d: %w", b, e, nj, ErrInvalid)
		}
	}
	if d.SkinIndices == nil && d.SkinWeights == nil {
		return nil
	}
	if len(d.SkinIndices) != nv || len(d.SkinWeights) != nv {
		return fmt.Errorf("rig: skin has %d/%d entries for %d vertices: %w",
			len(d.SkinIndices), len(d.SkinWeights), nv, ErrInvalid)
	}
	for v, idx := range d.SkinIndices {
		for k, b := range idx {
			if d.SkinWeights[v][k] != 0 && (b < 0 || b >= nb) {
				return fmt.Errorf("rig: vertex %d references bone %d of %d: %w", v, b, nb, ErrInvalid)
			}
		}
	}
	return nil
}

// Encode writes d as indented JSON.
func Encode(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("rig: encode: %w", err)
	}
	return nil
}

// Decode reads and validates a document.
func Decode(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("rig: decode: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// WriteFile encodes d to path.
func WriteFile(path string, d *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rig: create %s: %w", path, err)
	}
	if err := Encode(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile decodes the document at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rig: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}
