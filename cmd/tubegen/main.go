// Command tubegen turns one outline into a skinned tube mesh and writes the
// rig JSON, a WebP preview and optional debug exports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"tubegen/internal/config"
	"tubegen/internal/export"
	"tubegen/internal/overlay"
	"tubegen/internal/pipeline"
	"tubegen/internal/preview"
	"tubegen/internal/rig"
	"tubegen/internal/skeleton"
	"tubegen/internal/source"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Width(14)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	outputDir := flag.String("output", "", "Output directory (default: rigs)")
	iso := flag.Float64("iso", 0, "Isodistance: chord spacing and tube resolution (default: 10)")
	size := flag.Int("size", 0, "Preview edge length in pixels (default: 256)")
	bend := flag.String("bend", "", "Posed preview, e.g. 1:30,4:-45 (joint:degrees)")
	stl := flag.Bool("stl", false, "Also write binary STL")
	gj := flag.Bool("geojson", false, "Also write GeoJSON of disk, chords and skeleton")
	ov := flag.Bool("overlay", false, "Also write a PNG overlay of disk, chords and skeleton")
	geographic := flag.Bool("geographic", false, "Treat coordinates as lon/lat degrees")
	verbose := flag.Bool("v", false, "Log stage timings")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tubegen [flags] <outline.{json,csv,wkt,geojson,png,jpg,tga,bmp}>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	pipeline.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.Resolve(config.Flags{OutputDir: *outputDir, Size: *size, Isodistance: *iso}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.Geographic = cfg.Geographic || *geographic
	cfg.WriteSTL = cfg.WriteSTL || *stl
	cfg.WriteGeoJSON = cfg.WriteGeoJSON || *gj
	cfg.WriteOverlay = cfg.WriteOverlay || *ov

	pose, err := skeleton.ParseBends(*bend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outline, err := source.Load(input, cfg.Source())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading outline: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	res, err := pipeline.Run(ctx, outline, cfg.Params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	base := filepath.Join(cfg.OutputDir, name)
	var written []string

	if res.Skin != nil {
		doc, err := rig.FromResult(res)
		if err == nil {
			err = rig.WriteFile(base+".rig.json", doc)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing rig: %v\n", err)
			os.Exit(1)
		}
		written = append(written, base+".rig.json")
	}

	popt := preview.Options{Size: cfg.RenderSize, Supersample: cfg.Supersample, Perspective: cfg.Perspective}
	img, err := preview.Render(res, popt)
	if err == nil {
		err = preview.Save(base+".webp", img)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing preview: %v\n", err)
		os.Exit(1)
	}
	written = append(written, base+".webp")

	if len(pose) > 0 {
		popt.Pose = pose
		img, err := preview.Render(res, popt)
		if err == nil {
			err = preview.Save(base+".posed.webp", img)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing posed preview: %v\n", err)
			os.Exit(1)
		}
		written = append(written, base+".posed.webp")
	}

	if cfg.WriteSTL {
		if err := export.SaveSTL(base+".stl", res.Mesh); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			written = append(written, base+".stl")
		}
	}
	if cfg.WriteGeoJSON {
		if err := export.SaveGeoJSON(base+".geojson", export.Planar(res.Disk, res.Graph, res.Skeleton)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			written = append(written, base+".geojson")
		}
	}
	if cfg.WriteOverlay {
		img, err := overlay.Draw(res.Disk, res.Graph, res.Skeleton, 2*cfg.RenderSize)
		if err == nil {
			err = overlay.Save(base+".overlay.png", img)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			written = append(written, base+".overlay.png")
		}
	}

	fmt.Println(summary(name, res, time.Since(start), written))
}

func summary(name string, res *pipeline.Result, elapsed time.Duration, written []string) string {
	d := res.Diagnostics
	row := func(k string, v any) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, keyStyle.Render(k), fmt.Sprint(v))
	}
	lines := []string{
		titleStyle.Render("tubegen · " + name),
		row("outline", fmt.Sprintf("%d points", d.OutlinePoints)),
		row("disk", fmt.Sprintf("%d faces (%d pruned)", d.DiskFaces, d.PrunedFaces)),
		row("chords", fmt.Sprintf("%d (%d caps, %d junctions)", d.Chords, d.Caps, d.Junctions)),
		row("mesh", fmt.Sprintf("%d vertices, %d faces", len(res.Mesh.Verts), len(res.Mesh.Faces))),
		row("skeleton", fmt.Sprintf("%d joints, %d bones", len(res.Skeleton.Joints), len(res.Skeleton.Bones))),
		row("time", elapsed.Round(time.Millisecond)),
	}
	for _, w := range d.Warnings() {
		lines = append(lines, warnStyle.Render("! "+w))
	}
	for _, w := range written {
		lines = append(lines, row("wrote", w))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
