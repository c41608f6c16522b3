// Package pipeline threads one outline through every stage: planar disk,
// chord graph, tube mesh, fitting, remeshing, skeleton and skin weights.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tubegen/internal/chord"
	"tubegen/internal/disk"
	"tubegen/internal/mathutil"
	"tubegen/internal/mesh"
	"tubegen/internal/planar"
	"tubegen/internal/remesh"
	"tubegen/internal/skeleton"
	"tubegen/internal/skin"
	"tubegen/internal/tube"
)

// ErrMalformedInput wraps outline validation failures and outlines too small
// to yield a single chord.
var ErrMalformedInput = errors.New("malformed input")

// Stage names, in run order.
const (
	StageDisk     = "disk"
	StagePrune    = "prune"
	StageChords   = "chords"
	StageTube     = "tube"
	StageFit      = "fit"
	StageRemesh   = "remesh"
	StageSkeleton = "skeleton"
	StageSkin     = "skin"
)

// StageTiming is the wall time of one stage.
type StageTiming struct {
	Stage   string
	Elapsed time.Duration
}

// Diagnostics collects counts and recoverable problems of a run.
type Diagnostics struct {
	OutlinePoints int
	DiskFaces     int
	PrunedFaces   int
	Chords        int
	Caps          int
	Junctions     int
	Skips         []tube.Skip
	Remesh        remesh.Stats
	SkinSkipped   string
	Timings       []StageTiming
}

// Warnings renders the recoverable problems as text.
func (d Diagnostics) Warnings() []string {
	var out []string
	for _, s := range d.Skips {
		out = append(out, "skipped "+s.String())
	}
	if d.SkinSkipped != "" {
		out = append(out, "skinning skipped: "+d.SkinSkipped)
	}
	return out
}

// Result holds every product of a run. Intermediate structures are kept for
// export and debugging.
type Result struct {
	Params   Params
	Disk     *disk.Mesh
	Graph    *chord.Graph
	Tube     *tube.Result
	Fitted   *mesh.Mesh
	Mesh     *mesh.Mesh
	Skeleton *skeleton.Skeleton
	Dense    skin.Dense
	Skin     skin.Table

	Diagnostics Diagnostics
}

type run struct {
	ctx     context.Context
	p       Params
	outline []mathutil.Vec2
	r       *Result
}

func (x *run) stage(name string, fn func() error) error {
	if err := x.ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	x.r.Diagnostics.Timings = append(x.r.Diagnostics.Timings, StageTiming{Stage: name, Elapsed: elapsed})
	Logger().Debug("pipeline: stage done", "stage", name, "elapsed", elapsed, "err", err)
	return err
}

// Run executes all stages on outline. Zero params take their defaults.
// Skipped junctions or caps and an unskinnable skeleton are reported in
// Diagnostics; everything else aborts the run.
func Run(ctx context.Context, outline []mathutil.Vec2, p Params) (*Result, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	x := &run{ctx: ctx, p: p, outline: outline, r: &Result{Params: p}}
	x.r.Diagnostics.OutlinePoints = len(outline)
	Logger().Debug("pipeline: run start",
		"points", len(outline),
		"isodistance", p.Isodistance,
		"branch_min_length", p.BranchMinLength*p.Isodistance,
		"skeleton_prune_length", p.SkeletonPruneLength)

	steps := []struct {
		name string
		fn   func() error
	}{
		{StageDisk, x.disk},
		{StagePrune, x.prune},
		{StageChords, x.chords},
		{StageTube, x.tube},
		{StageFit, x.fit},
		{StageRemesh, x.remesh},
		{StageSkeleton, x.skeleton},
		{StageSkin, x.skin},
	}
	for _, s := range steps {
		if err := x.stage(s.name, s.fn); err != nil {
			return nil, err
		}
	}

	d := x.r.Diagnostics
	Logger().Info("pipeline: run complete",
		"vertices", len(x.r.Mesh.Verts),
		"faces", len(x.r.Mesh.Faces),
		"joints", len(x.r.Skeleton.Joints),
		"bones", len(x.r.Skeleton.Bones),
		"skips", len(d.Skips))
	return x.r, nil
}

func (x *run) disk() error {
	m, err := disk.Build(x.outline, x.p.Isodistance)
	if err != nil {
		if errors.Is(err, planar.ErrMalformedOutline) {
			return fmt.Errorf("pipeline: %w: %w", ErrMalformedInput, err)
		}
		return fmt.Errorf("pipeline: %w", err)
	}
	x.r.Disk = m
	x.r.Diagnostics.DiskFaces = len(m.Tris)
	return nil
}

func (x *run) prune() error {
	x.r.Disk = disk.Prune(x.r.Disk, x.p.BranchMinLength*x.p.Isodistance)
	x.r.Diagnostics.PrunedFaces = x.r.Diagnostics.DiskFaces - len(x.r.Disk.Tris)
	return nil
}

func (x *run) chords() error {
	g, err := chord.Build(x.r.Disk)
	if err != nil {
		if errors.Is(err, chord.ErrMalformedMesh) {
			return fmt.Errorf("pipeline: outline too small for isodistance %g: %w: %w", x.p.Isodistance, ErrMalformedInput, err)
		}
		return fmt.Errorf("pipeline: %w", err)
	}
	chord.Smooth(g, x.p.SmoothIterations, x.p.SmoothAlpha)
	x.r.Graph = g
	x.r.Diagnostics.Chords = len(g.Nodes)
	x.r.Diagnostics.Caps = len(g.Caps)
	x.r.Diagnostics.Junctions = len(g.Junctions)
	return nil
}

func (x *run) tube() error {
	res, err := tube.Generate(x.r.Graph, x.p.Isodistance)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	for _, s := range res.Skips {
		Logger().Warn("pipeline: feature skipped", "kind", s.Kind, "face", s.Face, "reason", s.Reason)
	}
	if err := mesh.Orient(res.Mesh); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	x.r.Tube = res
	x.r.Diagnostics.Skips = res.Skips
	return nil
}

func (x *run) fit() error {
	var anchors []int
	for _, ring := range x.r.Tube.Rings {
		for _, v := range ring.Verts {
			if v >= 0 {
				anchors = append(anchors, v)
			}
		}
	}
	m, err := mesh.Fit(x.ctx, x.r.Tube.Mesh, anchors, x.p.FitSmoothness)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	x.r.Fitted = m
	return nil
}

func (x *run) remesh() error {
	m, st, err := remesh.Run(x.ctx, x.r.Fitted, remesh.Options{
		Iterations:   x.p.RemeshIterations,
		TargetLength: x.p.RemeshTargetLength,
	})
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	x.r.Mesh = m
	x.r.Diagnostics.Remesh = st
	return nil
}

func (x *run) skeleton() error {
	x.r.Skeleton = skeleton.Extract(x.r.Graph, skeleton.Options{
		DeviationThreshold: x.p.SkeletonDeviation,
		MinBoneLength:      x.p.SkeletonMinBoneLength,
		PruneLength:        x.p.SkeletonPruneLength,
	})
	return nil
}

func (x *run) skin() error {
	if len(x.r.Skeleton.Bones) == 0 {
		x.r.Diagnostics.SkinSkipped = skin.ErrNoBones.Error()
		Logger().Warn("pipeline: skinning skipped", "reason", x.r.Diagnostics.SkinSkipped)
		return nil
	}
	rings := make([]skin.Ring, 0, len(x.r.Tube.Rings))
	for _, ring := range x.r.Tube.Rings {
		sr := skin.Ring{Center: ring.Center}
		for _, v := range ring.Verts {
			if v >= 0 {
				sr.Points = append(sr.Points, x.r.Fitted.Verts[v])
			}
		}
		rings = append(rings, sr)
	}
	dense, err := skin.Solve(x.ctx, x.r.Mesh, x.r.Skeleton, rings, x.p.SkinSmoothness)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	x.r.Dense = dense
	x.r.Skin = dense.Table()
	return nil
}

// Posed returns the final mesh vertices deformed by pose, rooted at the
// skeleton's most connected joint.
func (r *Result) Posed(pose skeleton.Pose) ([]mathutil.Vec3, error) {
	if r.Skin == nil {
		return nil, fmt.Errorf("pipeline: pose: result has no skin")
	}
	bones, err := r.Skeleton.BoneMatrices(r.Skeleton.Root(), pose)
	if err != nil {
		return nil, fmt.Errorf("pipeline: pose: %w", err)
	}
	return skin.Deform(r.Mesh.Verts, r.Skin, bones)
}
