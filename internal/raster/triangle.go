package raster

import (
	"math"

	"tubegen/internal/mathutil"
)

// RasterizeTriangle fills one flat-shaded triangle with a z-buffer test.
// px, py are screen coordinates and pz view depth (larger is nearer).
// base is the sRGB face color before lighting.
//
// The pixel loop does not allocate.
func RasterizeTriangle(fb *FrameBuffer, px, py, pz []float64, t [3]int, base [3]uint8, lc *LightConfig) {
	nv := len(px)
	for _, i := range t {
		if i < 0 || i >= nv {
			return
		}
	}

	x0, y0, z0 := px[t[0]], py[t[0]], pz[t[0]]
	x1, y1, z1 := px[t[1]], py[t[1]], pz[t[1]]
	x2, y2, z2 := px[t[2]], py[t[2]], pz[t[2]]

	// Normal in view space; screen Y points down so flip it back.
	n := mathutil.Vec3{x1 - x0, -(y1 - y0), z1 - z0}.Cross(mathutil.Vec3{x2 - x0, -(y2 - y0), z2 - z0})
	if n.Len() < 1e-8 {
		return
	}
	rgb := lc.shadeColor(base, lc.ComputeShade(n.Normalize()))

	minX := int(math.Max(0, math.Floor(math.Min(math.Min(x0, x1), x2))))
	maxX := int(math.Min(float64(fb.Width-1), math.Ceil(math.Max(math.Max(x0, x1), x2))))
	minY := int(math.Max(0, math.Floor(math.Min(math.Min(y0, y1), y2))))
	maxY := int(math.Min(float64(fb.Height-1), math.Ceil(math.Max(math.Max(y0, y1), y2))))
	if minX > maxX || minY > maxY {
		return
	}

	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det
	dy12, dx21 := y1-y2, x2-x1
	dy20, dx02 := y2-y0, x0-x2

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		row := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}
			z := w0*z0 + w1*z1 + w2*z2
			zi := row + sx
			if z <= fb.ZBuf[zi] {
				continue
			}
			fb.ZBuf[zi] = z
			pi := zi * 4
			fb.Color[pi] = rgb[0]
			fb.Color[pi+1] = rgb[1]
			fb.Color[pi+2] = rgb[2]
			fb.Color[pi+3] = 255
		}
	}
}
