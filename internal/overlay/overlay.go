// Package overlay draws the planar stages of a run, seen from above, for
// debugging: disk triangles, chords with their links, and the skeleton.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"

	"tubegen/internal/chord"
	"tubegen/internal/disk"
	"tubegen/internal/mathutil"
	"tubegen/internal/skeleton"
)

var (
	Background = color.NRGBA{255, 255, 255, 255}
	TriFill    = color.NRGBA{220, 226, 238, 255}
	TriEdge    = color.NRGBA{150, 160, 180, 255}
	ChordColor = color.NRGBA{60, 140, 220, 255}
	CapColor   = color.NRGBA{230, 120, 30, 255}
	JuncColor  = color.NRGBA{200, 40, 160, 255}
	LinkColor  = color.NRGBA{40, 170, 90, 255}
	BoneColor  = color.NRGBA{20, 20, 20, 255}
	JointColor = color.NRGBA{210, 30, 30, 255}
)

const margin = 12.0

// view maps outline coordinates (y up) to image pixels (y down).
type view struct {
	lo    mathutil.Vec2
	scale float64
	h     float64
}

func (v view) at(p mathutil.Vec2) (float64, float64) {
	return margin + (p[0]-v.lo[0])*v.scale, v.h - margin - (p[1]-v.lo[1])*v.scale
}

func fit(pts []mathutil.Vec2, size int) view {
	lo := mathutil.Vec2{math.Inf(1), math.Inf(1)}
	hi := mathutil.Vec2{math.Inf(-1), math.Inf(-1)}
	for _, p := range pts {
		lo = mathutil.Vec2{math.Min(lo[0], p[0]), math.Min(lo[1], p[1])}
		hi = mathutil.Vec2{math.Max(hi[0], p[0]), math.Max(hi[1], p[1])}
	}
	span := math.Max(hi[0]-lo[0], hi[1]-lo[1])
	if len(pts) == 0 || span < 1e-9 {
		return view{scale: 1, h: float64(size)}
	}
	return view{lo: lo, scale: (float64(size) - 2*margin) / span, h: float64(size)}
}

// Draw renders the given stages into a size×size image. Any stage may be nil.
func Draw(d *disk.Mesh, g *chord.Graph, s *skeleton.Skeleton, size int) (*image.RGBA, error) {
	if size <= 2*margin {
		return nil, fmt.Errorf("overlay: size %d too small", size)
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{Background}, image.Point{}, draw.Src)

	var pts []mathutil.Vec2
	switch {
	case d != nil:
		pts = d.Points
	case g != nil:
		pts = g.Points
	case s != nil:
		for _, j := range s.Joints {
			pts = append(pts, j.XY())
		}
	}
	v := fit(pts, size)

	gc := draw2dimg.NewGraphicContext(img)
	if d != nil {
		gc.SetLineWidth(0.5)
		gc.SetFillColor(TriFill)
		gc.SetStrokeColor(TriEdge)
		for _, t := range d.Tris {
			gc.BeginPath()
			x, y := v.at(d.Points[t[0]])
			gc.MoveTo(x, y)
			for _, k := range t[1:] {
				x, y = v.at(d.Points[k])
				gc.LineTo(x, y)
			}
			gc.Close()
			gc.FillStroke()
		}
	}

	if g != nil {
		gc.SetLineWidth(1)
		for _, n := range g.Nodes {
			col := ChordColor
			switch {
			case n.Junction:
				col = JuncColor
			case n.Cap:
				col = CapColor
			}
			gc.SetStrokeColor(col)
			line(gc, v, g.Points[n.Key[0]], g.Points[n.Key[1]])
		}
		gc.SetStrokeColor(LinkColor)
		for i, adj := range g.Adj {
			for _, j := range adj {
				if j > i {
					line(gc, v, g.Nodes[i].Center, g.Nodes[j].Center)
				}
			}
		}
	}

	if s != nil {
		gc.SetLineWidth(2.5)
		gc.SetStrokeColor(BoneColor)
		for _, b := range s.Bones {
			line(gc, v, s.Joints[b[0]].XY(), s.Joints[b[1]].XY())
		}
		gc.SetFillColor(JointColor)
		for _, j := range s.Joints {
			x, y := v.at(j.XY())
			gc.BeginPath()
			draw2dkit.Circle(gc, x, y, 3.5)
			gc.Fill()
		}
	}
	return img, nil
}

func line(gc *draw2dimg.GraphicContext, v view, a, b mathutil.Vec2) {
	gc.BeginPath()
	x, y := v.at(a)
	gc.MoveTo(x, y)
	x, y = v.at(b)
	gc.LineTo(x, y)
	gc.Stroke()
}

// Save writes img to path as PNG.
func Save(path string, img image.Image) error {
	if err := draw2dimg.SaveToPngFile(path, img); err != nil {
		return fmt.Errorf("overlay: save %s: %w", path, err)
	}
	return nil
}
