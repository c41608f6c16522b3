package planar

import (
	"fmt"
	"math"

	"tubegen/internal/mathutil"
)

// Reparameterize resamples the closed loop pts to floor(total/spacing) points
// evenly spaced by arc length. The actual spacing is total/count, so it can
// differ slightly from the request; the count stays integral and the loop
// stays closed. The first output point is pts[0].
func Reparameterize(pts []mathutil.Vec2, spacing float64) ([]mathutil.Vec2, error) {
	pts = Close(pts)
	if len(pts) < 3 {
		return nil, fmt.Errorf("planar: reparameterize %d points: %w", len(pts), ErrMalformedOutline)
	}
	if spacing <= 0 {
		return nil, fmt.Errorf("planar: reparameterize: spacing %g must be positive", spacing)
	}

	total := Length(pts)
	count := int(math.Floor(total / spacing))
	if count < 3 {
		return nil, fmt.Errorf("planar: outline length %.4g gives %d samples at spacing %.4g: %w",
			total, count, spacing, ErrMalformedOutline)
	}
	step := total / float64(count)

	out := make([]mathutil.Vec2, 0, count)
	out = append(out, pts[0])

	n := len(pts)
	seg := 0
	segStart := 0.0 // arc length at pts[seg]
	segLen := pts[0].Dist(pts[1])
	for k := 1; k < count; k++ {
		target := step * float64(k)
		for segStart+segLen < target && seg < n-1 {
			segStart += segLen
			seg++
			segLen = pts[seg].Dist(pts[(seg+1)%n])
		}
		t := 0.5
		if segLen > 1e-12 {
			t = (target - segStart) / segLen
		}
		if t > 1 {
			t = 1
		}
		out = append(out, pts[seg].Lerp(pts[(seg+1)%n], t))
	}
	return out, nil
}
