// Package viewmatrix places the preview camera around a generated mesh and
// projects its vertices to screen space.
package viewmatrix

import (
	"math"

	"tubegen/internal/mathutil"
)

// DefaultFOV is the vertical field of view for perspective previews, in degrees.
const DefaultFOV = 35.0

// Aligned returns a view rotation that first turns the outline's principal
// axis onto screen X, then applies the default downward tilt.
func Aligned(verts []mathutil.Vec3) mathutil.Mat3 {
	pts := make([]mathutil.Vec2, len(verts))
	for i, v := range verts {
		pts[i] = v.XY()
	}
	_, axis := mathutil.PrincipalAxis(pts)
	return mathutil.Mat3Mul(mathutil.ViewDefault, mathutil.AlignToX(axis))
}

// Camera maps world points to pixel coordinates of a square target.
type Camera struct {
	R           mathutil.Mat3
	Center      mathutil.Vec3 // view-space center of the framed box
	Scale       float64       // pixels per world unit
	Size        int
	Perspective bool

	camDist float64
	zCenter float64
}

// Frame builds a camera that fits verts, seen through R, into size pixels
// with margin pixels left on each side.
func Frame(verts []mathutil.Vec3, R mathutil.Mat3, size, margin int, perspective bool, fov float64) Camera {
	lo := mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, v := range verts {
		t := R.MulVec3(v)
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], t[k])
			hi[k] = math.Max(hi[k], t[k])
		}
	}
	c := Camera{R: R, Size: size, Perspective: perspective}
	if len(verts) == 0 {
		c.Scale = 1
		return c
	}
	c.Center = lo.Lerp(hi, 0.5)
	span := math.Max(hi[0]-lo[0], hi[1]-lo[1])
	if span < 0.001 {
		span = 0.001
	}
	c.Scale = float64(size-2*margin) / span

	if perspective {
		if fov == 0 {
			fov = DefaultFOV
		}
		half := math.Max(hi[0]-lo[0], hi[1]-lo[1]) / 2
		if half < 0.001 {
			half = 0.001
		}
		c.camDist = half / math.Tan(mathutil.Deg2Rad(fov/2))
		c.zCenter = c.Center[2]
	}
	return c
}

// Project returns screen X, screen Y (down) and depth (larger is nearer)
// for every vertex.
func (c Camera) Project(verts []mathutil.Vec3) (px, py, pz []float64) {
	n := len(verts)
	px = make([]float64, n)
	py = make([]float64, n)
	pz = make([]float64, n)
	half := float64(c.Size) / 2
	for i, v := range verts {
		t := c.R.MulVec3(v)
		x, y := t[0]-c.Center[0], t[1]-c.Center[1]
		if c.Perspective {
			depth := math.Max(c.camDist-(t[2]-c.zCenter), 0.1)
			f := c.camDist / depth
			x *= f
			y *= f
		}
		px[i] = x*c.Scale + half
		py[i] = -y*c.Scale + half
		pz[i] = t[2]
	}
	return px, py, pz
}
