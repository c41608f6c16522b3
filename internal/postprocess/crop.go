package postprocess

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// OpaqueBounds returns the bounding box of pixels with non-zero alpha, or
// an empty rectangle for a fully transparent image.
func OpaqueBounds(img *image.NRGBA) image.Rectangle {
	b := img.Bounds()
	r := image.Rectangle{}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.Pix[img.PixOffset(x, y)+3] == 0 {
				continue
			}
			r = r.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return r
}

// CropAndCenter crops img to its opaque pixels, scales them to fill
// fillRatio of a size×size canvas and centers them. A transparent input
// yields a transparent canvas.
func CropAndCenter(img *image.NRGBA, size int, fillRatio float64) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, size, size))
	src := OpaqueBounds(img)
	if src.Empty() {
		return canvas
	}

	scale := float64(size) * fillRatio / math.Max(float64(src.Dx()), float64(src.Dy()))
	w := max(1, int(float64(src.Dx())*scale+0.5))
	h := max(1, int(float64(src.Dy())*scale+0.5))
	scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, src, xdraw.Src, nil)

	off := image.Pt((size-w)/2, (size-h)/2)
	draw.Draw(canvas, scaled.Bounds().Add(off), scaled, image.Point{}, draw.Src)
	return canvas
}
