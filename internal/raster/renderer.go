package raster

import (
	"image"
	"image/color"

	"github.com/mazznoer/colorgrad"

	"tubegen/internal/mathutil"
	"tubegen/internal/viewmatrix"
)

// Neutral is the face color of meshes rendered without skin weights.
var Neutral = [3]uint8{160, 160, 170}

// Options controls Render.
type Options struct {
	Size        int // output edge length before supersampling
	Supersample int
	Perspective bool
	FOV         float64
}

// BonePalette returns n well separated colors, one per bone.
func BonePalette(n int) [][3]uint8 {
	if n <= 0 {
		return nil
	}
	cols := colorgrad.Rainbow().Colors(uint(n))
	out := make([][3]uint8, len(cols))
	for i, c := range cols {
		nc := color.NRGBAModel.Convert(c).(color.NRGBA)
		out[i] = [3]uint8{nc.R, nc.G, nc.B}
	}
	return out
}

// FaceColors colors every face by the bone that dominates most of its
// vertices. A nil dominant slice gives every face the neutral color.
func FaceColors(faces [][3]int, dominant []int, palette [][3]uint8) [][3]uint8 {
	out := make([][3]uint8, len(faces))
	for f, t := range faces {
		out[f] = Neutral
		if dominant == nil || len(palette) == 0 {
			continue
		}
		b := dominant[t[0]]
		if dominant[t[1]] == dominant[t[2]] {
			b = dominant[t[1]]
		}
		if b >= 0 && b < len(palette) {
			out[f] = palette[b]
		}
	}
	return out
}

// Render rasterizes a triangle mesh, viewed through R, into a square image of
// Size·Supersample pixels. colors holds one base color per face.
func Render(verts []mathutil.Vec3, faces [][3]int, colors [][3]uint8, R mathutil.Mat3, opt Options) *image.NRGBA {
	if opt.Supersample <= 0 {
		opt.Supersample = 1
	}
	size := opt.Size * opt.Supersample
	fb := NewFrameBuffer(size, size)
	if len(verts) == 0 || len(faces) == 0 {
		return fb.Image()
	}

	cam := viewmatrix.Frame(verts, R, size, size/16, opt.Perspective, opt.FOV)
	px, py, pz := cam.Project(verts)
	lc := DefaultLightConfig()
	for f, t := range faces {
		base := Neutral
		if f < len(colors) {
			base = colors[f]
		}
		RasterizeTriangle(fb, px, py, pz, t, base, &lc)
	}
	return fb.Image()
}
