package postprocess

import (
	"image"
	"image/color"
	"testing"
)

func filled(w, h int, r image.Rectangle, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDownsample(t *testing.T) {
	tests := []struct {
		name       string
		w, h, size int
		wantW      int
		wantH      int
	}{
		{"square", 128, 128, 32, 32, 32},
		{"wide", 200, 100, 50, 50, 25},
		{"tall", 60, 120, 30, 15, 30},
		{"already small", 20, 10, 32, 20, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := filled(tt.w, tt.h, image.Rect(0, 0, tt.w, tt.h), color.NRGBA{200, 100, 50, 255})
			got := Downsample(src, tt.size)
			if b := got.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Fatalf("bounds %v, want %dx%d", b, tt.wantW, tt.wantH)
			}
			c := got.NRGBAAt(got.Bounds().Dx()/2, got.Bounds().Dy()/2)
			if c.A != 255 || c.R < 195 || c.R > 205 {
				t.Fatalf("center color %v", c)
			}
		})
	}
}

func TestDownsampleEdges(t *testing.T) {
	// An opaque half next to a transparent half must not darken at the seam.
	src := filled(64, 64, image.Rect(0, 0, 32, 64), color.NRGBA{255, 255, 255, 255})
	got := Downsample(src, 16)
	for x := 0; x < 16; x++ {
		c := got.NRGBAAt(x, 8)
		if c.A > 16 && c.R < 240 {
			t.Fatalf("pixel %d = %v darkened at the seam", x, c)
		}
	}
}

func TestCropAndCenter(t *testing.T) {
	src := filled(100, 100, image.Rect(10, 20, 30, 30), color.NRGBA{0, 0, 0, 255})
	if b := OpaqueBounds(src); b != image.Rect(10, 20, 30, 30) {
		t.Fatalf("opaque bounds %v", b)
	}
	got := CropAndCenter(src, 50, 0.8)
	b := OpaqueBounds(got)
	if b.Dx() < 39 || b.Dx() > 41 {
		t.Fatalf("width %d, want 40", b.Dx())
	}
	if b.Dy() < 19 || b.Dy() > 21 {
		t.Fatalf("height %d, want 20", b.Dy())
	}
	cx, cy := (b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2
	if cx < 24 || cx > 26 || cy < 24 || cy > 26 {
		t.Fatalf("content centered at (%d, %d)", cx, cy)
	}

	empty := CropAndCenter(image.NewNRGBA(image.Rect(0, 0, 10, 10)), 20, 0.9)
	if !OpaqueBounds(empty).Empty() {
		t.Fatal("transparent input produced pixels")
	}
}
