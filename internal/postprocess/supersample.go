// Package postprocess turns supersampled preview renders into final images.
package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample scales img to fit within targetSize on its longer edge.
// Color is premultiplied before filtering so transparent edges do not
// bleed dark halos. Images already small enough are returned as is.
func Downsample(img *image.NRGBA, targetSize int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= targetSize && b.Dy() <= targetSize {
		return img
	}
	w, h := targetSize, targetSize
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*targetSize/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, b.Dx()*targetSize/b.Dy())
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premultiply(img), b, draw.Src, nil)
	return unpremultiply(dst)
}

func premultiply(img *image.NRGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si, di := img.PixOffset(x, y), out.PixOffset(x, y)
			a := float64(img.Pix[si+3]) / 255
			for k := 0; k < 3; k++ {
				out.Pix[di+k] = uint8(float64(img.Pix[si+k])*a + 0.5)
			}
			out.Pix[di+3] = img.Pix[si+3]
		}
	}
	return out
}

func unpremultiply(img *image.RGBA) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si, di := img.PixOffset(x, y), out.PixOffset(x, y)
			a := float64(img.Pix[si+3])
			if a > 1 {
				inv := 255 / a
				for k := 0; k < 3; k++ {
					out.Pix[di+k] = clamp8(float64(img.Pix[si+k]) * inv)
				}
			}
			out.Pix[di+3] = img.Pix[si+3]
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
