package raster

import (
	"math"

	"tubegen/internal/mathutil"
)

// LightConfig holds precomputed lighting parameters. Directions are in view
// space: X right, Y up, Z toward the viewer.
type LightConfig struct {
	LightDir mathutil.Vec3
	RimDir   mathutil.Vec3
	HalfMain mathutil.Vec3 // precomputed half-vector for Blinn-Phong
	Ambient  float64
	Hemi     float64
	Direct   float64
	Rim      float64
	SpecInt  float64
	SpecPow  float64
	Exposure float64
	InvGamma float64
}

// DefaultLightConfig is a key light from the upper left plus a cool rim
// from behind.
func DefaultLightConfig() LightConfig {
	lightDir := mathutil.Vec3{-0.45, 0.65, 0.6}.Normalize()
	rimDir := mathutil.Vec3{0.5, -0.3, -0.8}.Normalize()
	viewDir := mathutil.Vec3{0, 0, 1}
	return LightConfig{
		LightDir: lightDir,
		RimDir:   rimDir,
		HalfMain: lightDir.Add(viewDir).Normalize(),
		Ambient:  0.35,
		Hemi:     0.35,
		Direct:   1.1,
		Rim:      0.35,
		SpecInt:  0.25,
		SpecPow:  16,
		Exposure: 1.0,
		InvGamma: 1.0 / 2.2,
	}
}

// ComputeShade returns the combined lighting scalar for a unit face normal.
// Faces are lit from both sides.
func (lc *LightConfig) ComputeShade(normal mathutil.Vec3) float64 {
	ndlMain := math.Abs(normal.Dot(lc.LightDir))
	ndlRim := math.Abs(normal.Dot(lc.RimDir))
	hemi := (normal[1]*0.5 + 0.5) * lc.Hemi
	ndh := math.Max(0, math.Abs(normal.Dot(lc.HalfMain)))
	spec := math.Pow(ndh, lc.SpecPow) * lc.SpecInt
	return lc.Ambient + hemi + ndlMain*lc.Direct + ndlRim*lc.Rim + spec
}

// Precomputed sRGB-to-linear lookup table (256 entries).
var srgbToLinear [256]float64

func init() {
	for i := 0; i < 256; i++ {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// ACESTonemap applies ACES Filmic tone mapping to a linear value.
func ACESTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

// shadeColor lights an sRGB base color and maps it back to sRGB.
func (lc *LightConfig) shadeColor(c [3]uint8, shade float64) [3]uint8 {
	var out [3]uint8
	for k := 0; k < 3; k++ {
		lin := srgbToLinear[c[k]] * shade * lc.Exposure
		out[k] = clamp255(math.Pow(ACESTonemap(lin), lc.InvGamma) * 255)
	}
	return out
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
