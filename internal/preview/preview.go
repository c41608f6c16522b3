// Package preview renders a generated rig to a still image, coloured by the
// bone that dominates each face, and encodes it as WebP.
package preview

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/HugoSmits86/nativewebp"

	"tubegen/internal/mathutil"
	"tubegen/internal/pipeline"
	"tubegen/internal/postprocess"
	"tubegen/internal/raster"
	"tubegen/internal/skeleton"
	"tubegen/internal/viewmatrix"
)

// Options controls Render.
type Options struct {
	Size        int
	Supersample int
	Perspective bool
	FOV         float64
	FillRatio   float64
	Pose        skeleton.Pose
}

// DefaultFillRatio is the share of the canvas the mesh occupies.
const DefaultFillRatio = 0.9

// Render draws res.Mesh, posed by opt.Pose when it is not empty. The camera
// is aligned on the rest mesh so poses do not spin the view.
func Render(res *pipeline.Result, opt Options) (*image.NRGBA, error) {
	if opt.Size <= 0 {
		return nil, fmt.Errorf("preview: size %d", opt.Size)
	}

	m := res.Mesh
	verts := m.Verts
	if len(opt.Pose) > 0 {
		posed, err := res.Posed(opt.Pose)
		if err != nil {
			return nil, fmt.Errorf("preview: %w", err)
		}
		verts = posed
	}

	var colors [][3]uint8
	if res.Skin != nil {
		colors = raster.FaceColors(m.Faces, res.Skin.Dominant(), raster.BonePalette(len(res.Skeleton.Bones)))
	}
	R := viewmatrix.Aligned(m.Verts)
	return Image(verts, m.Faces, colors, R, opt), nil
}

// Image rasterizes any mesh with the preview settings: supersampled render,
// downsample, then crop and center on a Size×Size canvas.
func Image(verts []mathutil.Vec3, faces [][3]int, colors [][3]uint8, R mathutil.Mat3, opt Options) *image.NRGBA {
	if opt.Supersample <= 0 {
		opt.Supersample = 1
	}
	if opt.FillRatio <= 0 || opt.FillRatio > 1 {
		opt.FillRatio = DefaultFillRatio
	}
	img := raster.Render(verts, faces, colors, R, raster.Options{
		Size:        opt.Size,
		Supersample: opt.Supersample,
		Perspective: opt.Perspective,
		FOV:         opt.FOV,
	})
	if opt.Supersample > 1 {
		img = postprocess.Downsample(img, opt.Size)
	}
	return postprocess.CropAndCenter(img, opt.Size, opt.FillRatio)
}

// Encode writes img as lossless WebP.
func Encode(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("preview: webp encode: %w", err)
	}
	return nil
}

// Save writes img to path as WebP.
func Save(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: create %s: %w", path, err)
	}
	if err := Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
