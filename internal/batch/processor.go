package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tubegen/internal/export"
	"tubegen/internal/overlay"
	"tubegen/internal/pipeline"
	"tubegen/internal/preview"
	"tubegen/internal/rig"
	"tubegen/internal/source"
)

// Config holds all shared settings for a batch run.
type Config struct {
	OutputDir string
	Params    pipeline.Params
	Source    source.Options
	Preview   preview.Options
	Workers   int

	WriteSTL     bool
	WriteGeoJSON bool
	WriteOverlay bool

	// Progress receives periodic status lines. Nil disables them.
	Progress io.Writer
}

// Item is one outline file to process.
type Item struct {
	Name string
	Path string
}

// Result holds the outcome of processing one item.
type Result struct {
	Name     string
	Input    string
	Rig      string
	Image    string
	Vertices int
	Faces    int
	Joints   int
	Bones    int
	Warnings []string
	Elapsed  time.Duration
	Success  bool
	Error    string
}

// Scan lists the outline files in dir that a loader understands, sorted by
// name. Item names are the file names without extension.
func Scan(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: scan %s: %w", dir, err)
	}
	var items []Item
	for _, e := range entries {
		if e.IsDir() || !source.Supported(e.Name()) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		items = append(items, Item{Name: name, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

// Run processes all items using a worker pool. Items left when ctx is
// cancelled are reported with the context error.
func Run(ctx context.Context, cfg Config, items []Item) []Result {
	total := len(items)
	results := make([]Result, total)
	var processed atomic.Int64
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.Progress != nil {
		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						elapsed := time.Since(start).Seconds()
						rate := float64(p) / elapsed
						fmt.Fprintf(cfg.Progress, "  [%d/%d] %.1f outlines/sec\n", p, total, rate)
					}
				}
			}
		}()
	}

	// Worker pool
	itemChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range itemChan {
				results[idx] = processItem(ctx, cfg, items[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range items {
		itemChan <- i
	}
	close(itemChan)

	wg.Wait()
	close(done)

	return results
}

func processItem(ctx context.Context, cfg Config, item Item) Result {
	start := time.Now()
	res := Result{Name: item.Name, Input: item.Path}
	fail := func(err error) Result {
		res.Error = err.Error()
		res.Elapsed = time.Since(start)
		pipeline.Logger().Warn("batch: item failed", "name", item.Name, "err", err)
		return res
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	outline, err := source.Load(item.Path, cfg.Source)
	if err != nil {
		return fail(err)
	}
	out, err := pipeline.Run(ctx, outline, cfg.Params)
	if err != nil {
		return fail(err)
	}
	res.Vertices = len(out.Mesh.Verts)
	res.Faces = len(out.Mesh.Faces)
	res.Joints = len(out.Skeleton.Joints)
	res.Bones = len(out.Skeleton.Bones)
	res.Warnings = out.Diagnostics.Warnings()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fail(err)
	}
	base := filepath.Join(cfg.OutputDir, item.Name)

	// Rig JSON
	if out.Skin != nil {
		doc, err := rig.FromResult(out)
		if err != nil {
			return fail(err)
		}
		if err := rig.WriteFile(base+".rig.json", doc); err != nil {
			return fail(err)
		}
		res.Rig = item.Name + ".rig.json"
	}

	// Preview
	img, err := preview.Render(out, cfg.Preview)
	if err != nil {
		return fail(err)
	}
	if err := preview.Save(base+".webp", img); err != nil {
		return fail(err)
	}
	res.Image = item.Name + ".webp"

	if cfg.WriteSTL {
		if err := export.SaveSTL(base+".stl", out.Mesh); err != nil {
			return fail(err)
		}
	}
	if cfg.WriteGeoJSON {
		if err := export.SaveGeoJSON(base+".geojson", export.Planar(out.Disk, out.Graph, out.Skeleton)); err != nil {
			return fail(err)
		}
	}
	if cfg.WriteOverlay {
		ov, err := overlay.Draw(out.Disk, out.Graph, out.Skeleton, cfg.Preview.Size*2)
		if err != nil {
			return fail(err)
		}
		if err := overlay.Save(base+".overlay.png", ov); err != nil {
			return fail(err)
		}
	}

	res.Success = true
	res.Elapsed = time.Since(start)
	return res
}
