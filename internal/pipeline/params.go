package pipeline

import (
	"fmt"
	"math"
)

// Params are the tunables of one run. Zero fields take their defaults.
type Params struct {
	Isodistance float64 `json:"isodistance"`
	// BranchMinLength is the disk pruning threshold in isodistances: side
	// branches with a shorter axis are removed.
	BranchMinLength float64 `json:"branch_min_length"`

	SmoothIterations int     `json:"smooth_iterations"`
	SmoothAlpha      float64 `json:"smooth_alpha"`

	FitSmoothness float64 `json:"fit_smoothness"`

	RemeshIterations   int     `json:"remesh_iterations"`
	RemeshTargetLength float64 `json:"remesh_target_length"` // 0: mean edge length

	SkeletonDeviation     float64 `json:"skeleton_deviation"`
	SkeletonMinBoneLength float64 `json:"skeleton_min_bone_length"` // 0: Isodistance
	SkeletonPruneLength   float64 `json:"skeleton_prune_length"`    // 0: 5·Isodistance

	SkinSmoothness float64 `json:"skin_smoothness"`
}

// DefaultParams returns the defaults with derived lengths filled in.
func DefaultParams() Params {
	return Params{}.WithDefaults()
}

// WithDefaults returns p with every zero field replaced by its default.
// Skeleton lengths derive from the resolved isodistance.
func (p Params) WithDefaults() Params {
	if p.Isodistance == 0 {
		p.Isodistance = 10
	}
	if p.BranchMinLength == 0 {
		p.BranchMinLength = 5
	}
	if p.SmoothIterations == 0 {
		p.SmoothIterations = 30
	}
	if p.SmoothAlpha == 0 {
		p.SmoothAlpha = 0.5
	}
	if p.FitSmoothness == 0 {
		p.FitSmoothness = 1
	}
	if p.RemeshIterations == 0 {
		p.RemeshIterations = 6
	}
	if p.SkeletonDeviation == 0 {
		p.SkeletonDeviation = 0.15
	}
	if p.SkeletonMinBoneLength == 0 {
		p.SkeletonMinBoneLength = p.Isodistance
	}
	if p.SkeletonPruneLength == 0 {
		p.SkeletonPruneLength = 5 * p.Isodistance
	}
	if p.SkinSmoothness == 0 {
		p.SkinSmoothness = 1
	}
	return p
}

// Validate rejects values no stage can work with.
func (p Params) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"isodistance", p.Isodistance},
		{"fit smoothness", p.FitSmoothness},
		{"skin smoothness", p.SkinSmoothness},
	}
	for _, f := range positive {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("pipeline: %s %g must be positive and finite", f.name, f.v)
		}
	}
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"branch min length", p.BranchMinLength},
		{"remesh target length", p.RemeshTargetLength},
		{"skeleton deviation", p.SkeletonDeviation},
		{"skeleton min bone length", p.SkeletonMinBoneLength},
		{"skeleton prune length", p.SkeletonPruneLength},
	}
	for _, f := range nonNegative {
		if f.v < 0 || math.IsNaN(f.v) {
			return fmt.Errorf("pipeline: %s %g must not be negative", f.name, f.v)
		}
	}
	if p.SmoothAlpha < 0 || p.SmoothAlpha > 1 {
		return fmt.Errorf("pipeline: smooth alpha %g outside [0,1]", p.SmoothAlpha)
	}
	if p.SmoothIterations < 0 || p.RemeshIterations < 0 {
		return fmt.Errorf("pipeline: iteration counts must not be negative")
	}
	return nil
}
