// Package export writes generated meshes and intermediate structures in
// interchange formats for inspection in external tools.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/unixpickle/model3d/model3d"

	"tubegen/internal/mesh"
)

// Solid converts m into a model3d mesh.
func Solid(m *mesh.Mesh) *model3d.Mesh {
	out := model3d.NewMesh()
	for _, f := range m.Faces {
		a, b, c := m.Verts[f[0]], m.Verts[f[1]], m.Verts[f[2]]
		out.Add(&model3d.Triangle{
			model3d.XYZ(a[0], a[1], a[2]),
			model3d.XYZ(b[0], b[1], b[2]),
			model3d.XYZ(c[0], c[1], c[2]),
		})
	}
	return out
}

// WriteSTL writes m as binary STL.
func WriteSTL(w io.Writer, m *mesh.Mesh) error {
	if err := model3d.WriteSTL(w, Solid(m).TriangleSlice()); err != nil {
		return fmt.Errorf("export: stl: %w", err)
	}
	return nil
}

// SaveSTL writes m as binary STL to path.
func SaveSTL(path string, m *mesh.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := WriteSTL(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
