package source

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"

	"tubegen/internal/mathutil"
)

// Mask is a binary raster, row-major, y down.
type Mask struct {
	W, H int
	On   []bool
}

func (m *Mask) at(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.W && y < m.H && m.On[y*m.W+x]
}

// MaskOf thresholds img. Images with any transparency use alpha; opaque
// images treat dark pixels as the shape.
func MaskOf(img image.Image, threshold uint8) *Mask {
	if threshold == 0 {
		threshold = 128
	}
	b := img.Bounds()
	m := &Mask{W: b.Dx(), H: b.Dy(), On: make([]bool, b.Dx()*b.Dy())}

	translucent := false
	for y := b.Min.Y; y < b.Max.Y && !translucent; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0xffff {
				translucent = true
				break
			}
		}
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			var on bool
			if translucent {
				_, _, _, a := c.RGBA()
				on = uint8(a>>8) >= threshold
			} else {
				on = color.GrayModel.Convert(c).(color.Gray).Y < threshold
			}
			m.On[(y-b.Min.Y)*m.W+(x-b.Min.X)] = on
		}
	}
	return m
}

// LargestComponent clears every pixel outside the biggest 8-connected
// foreground region.
func (m *Mask) LargestComponent() {
	w, h := m.W, m.H
	labels := make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}
	var sizes []int
	dx := [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	dy := [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
	queue := make([]int, 0, 1024)

	for idx := range m.On {
		if !m.On[idx] || labels[idx] >= 0 {
			continue
		}
		id := len(sizes)
		queue = append(queue[:0], idx)
		labels[idx] = id
		size := 0
		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			size++
			cx, cy := curr%w, curr/w
			for d := 0; d < 8; d++ {
				nx, ny := cx+dx[d], cy+dy[d]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				if m.On[ni] && labels[ni] < 0 {
					labels[ni] = id
					queue = append(queue, ni)
				}
			}
		}
		sizes = append(sizes, size)
	}

	best := -1
	for id, s := range sizes {
		if best < 0 || s > sizes[best] {
			best = id
		}
	}
	for i := range m.On {
		m.On[i] = labels[i] == best && best >= 0
	}
}

// Moore neighbourhood, clockwise on screen starting west.
var moore = [8][2]int{{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}}

func mooreDir(dx, dy int) int {
	for d, v := range moore {
		if v[0] == dx && v[1] == dy {
			return d
		}
	}
	return 0
}

// Trace follows the outer boundary of the first foreground region in scan
// order and returns its pixel centres. Runs of collinear steps collapse to
// their end points.
func (m *Mask) Trace() [][2]int {
	start := -1
	for i, on := range m.On {
		if on {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	s := [2]int{start % m.W, start / m.W}
	sb := [2]int{s[0] - 1, s[1]}

	out := [][2]int{s}
	c, b := s, sb
	for steps := 0; steps < 4*len(m.On)+8; steps++ {
		d := mooreDir(b[0]-c[0], b[1]-c[1])
		found := false
		for k := 1; k <= 8; k++ {
			nd := (d + k) % 8
			n := [2]int{c[0] + moore[nd][0], c[1] + moore[nd][1]}
			if m.at(n[0], n[1]) {
				pd := (d + k - 1) % 8
				b = [2]int{c[0] + moore[pd][0], c[1] + moore[pd][1]}
				c = n
				found = true
				break
			}
		}
		if !found || (c == s && b == sb) {
			break
		}
		out = append(out, c)
	}
	return collinear(out)
}

func collinear(pts [][2]int) [][2]int {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([][2]int, 0, n)
	for i, p := range pts {
		a, c := pts[(i+n-1)%n], pts[(i+1)%n]
		if (p[0]-a[0])*(c[1]-p[1])-(p[1]-a[1])*(c[0]-p[0]) != 0 {
			out = append(out, p)
		}
	}
	return out
}

// decodeMask decodes a PNG, JPEG, TGA or BMP image and traces the outline of
// its largest shape. Y is flipped so the outline reads upright.
func decodeMask(r io.Reader, opt Options) ([]mathutil.Vec2, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("source: decode mask: %w", err)
	}
	m := MaskOf(img, opt.Threshold)
	m.LargestComponent()
	px := opt.PixelSize
	if px <= 0 {
		px = 1
	}
	trace := m.Trace()
	pts := make([]mathutil.Vec2, len(trace))
	for i, p := range trace {
		pts[i] = mathutil.Vec2{float64(p[0]) * px, float64(m.H-1-p[1]) * px}
	}
	return pts, nil
}
