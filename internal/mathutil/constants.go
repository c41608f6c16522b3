package mathutil

// Tolerances shared across the pipeline.
const (
	// PointEps is the tolerance for treating two generated points as the same vertex.
	PointEps = 1e-4
	// LengthEps guards divisions by edge or bone lengths.
	LengthEps = 1e-6
)

// ViewDefault is the preview camera: Tilt(-60°) @ RotZ(-20°).
// Looks down onto the outline plane with a slight turn so tube depth is visible.
var ViewDefault = Mat3Mul(Tilt(Deg2Rad(-60)), RotZ(Deg2Rad(-20)))
