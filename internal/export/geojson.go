package export

import (
	"fmt"
	"io"
	"os"

	geojson "github.com/paulmach/go.geojson"

	"tubegen/internal/chord"
	"tubegen/internal/disk"
	"tubegen/internal/mathutil"
	"tubegen/internal/skeleton"
)

// Feature kinds written to the "kind" property.
const (
	KindTriangle = "triangle"
	KindChord    = "chord"
	KindLink     = "link"
	KindBone     = "bone"
	KindJoint    = "joint"
)

func pair(p mathutil.Vec2) []float64 { return []float64{p[0], p[1]} }

// Planar collects the pruned disk, the chord graph and the skeleton seen from
// above into one feature collection. Any argument may be nil.
func Planar(d *disk.Mesh, g *chord.Graph, s *skeleton.Skeleton) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if d != nil {
		for i, t := range d.Tris {
			ring := [][]float64{pair(d.Points[t[0]]), pair(d.Points[t[1]]), pair(d.Points[t[2]]), pair(d.Points[t[0]])}
			f := geojson.NewPolygonFeature([][][]float64{ring})
			f.SetProperty("kind", KindTriangle)
			f.SetProperty("index", i)
			fc.AddFeature(f)
		}
	}
	if g != nil {
		for i, n := range g.Nodes {
			f := geojson.NewLineStringFeature([][]float64{pair(g.Points[n.Key[0]]), pair(g.Points[n.Key[1]])})
			f.SetProperty("kind", KindChord)
			f.SetProperty("index", i)
			f.SetProperty("cap", n.Cap)
			f.SetProperty("junction", n.Junction)
			fc.AddFeature(f)
		}
		for i, adj := range g.Adj {
			for _, j := range adj {
				if j <= i {
					continue
				}
				f := geojson.NewLineStringFeature([][]float64{pair(g.Nodes[i].Center), pair(g.Nodes[j].Center)})
				f.SetProperty("kind", KindLink)
				fc.AddFeature(f)
			}
		}
	}
	if s != nil {
		for i, b := range s.Bones {
			f := geojson.NewLineStringFeature([][]float64{pair(s.Joints[b[0]].XY()), pair(s.Joints[b[1]].XY())})
			f.SetProperty("kind", KindBone)
			f.SetProperty("index", i)
			f.SetProperty("length", s.Length(i))
			fc.AddFeature(f)
		}
		for i, j := range s.Joints {
			f := geojson.NewPointFeature(pair(j.XY()))
			f.SetProperty("kind", KindJoint)
			f.SetProperty("index", i)
			fc.AddFeature(f)
		}
	}
	return fc
}

// WriteGeoJSON encodes fc to w.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	raw, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("export: geojson: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("export: geojson: %w", err)
	}
	return nil
}

// SaveGeoJSON writes fc to path.
func SaveGeoJSON(path string, fc *geojson.FeatureCollection) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := WriteGeoJSON(f, fc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
