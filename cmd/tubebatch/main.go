// Command tubebatch converts every outline in a directory to a rig JSON and
// a WebP preview, and writes a manifest.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"tubegen/internal/batch"
	"tubegen/internal/config"
	"tubegen/internal/pipeline"
	"tubegen/internal/preview"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	testN := flag.Int("test", 0, "Process only the first N outlines for testing")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	baseDir := flag.String("base", "", "Base directory for relative paths (default: cwd)")
	inputDir := flag.String("input", "", "Outline directory (default: outlines)")
	outputDir := flag.String("output", "", "Output directory (default: rigs)")
	size := flag.Int("size", 0, "Preview edge length in pixels (default: 256)")
	iso := flag.Float64("iso", 0, "Isodistance (default: 10)")

	flag.Parse()

	pipeline.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

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

	// CLI flags override config file
	if err := cfg.Resolve(config.Flags{
		BaseDir:     *baseDir,
		InputDir:    *inputDir,
		OutputDir:   *outputDir,
		Size:        *size,
		Workers:     *workers,
		Isodistance: *iso,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	items, err := batch.Scan(cfg.InputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Limit for testing
	mode := ""
	if *testN > 0 && *testN < len(items) {
		items = items[:*testN]
		mode = fmt.Sprintf(" (TEST: first %d)", *testN)
	}

	if len(items) == 0 {
		fmt.Println("No outlines to process.")
		os.Exit(0)
	}

	fmt.Printf("Outline → tube rig + WebP%s\n", mode)
	fmt.Printf("Outlines: %d, Workers: %d, Isodistance: %g\n", len(items), cfg.Workers, cfg.Params.Isodistance)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()

	results := batch.Run(ctx, batch.Config{
		OutputDir: cfg.OutputDir,
		Params:    cfg.Params,
		Source:    cfg.Source(),
		Preview: preview.Options{
			Size:        cfg.RenderSize,
			Supersample: cfg.Supersample,
			Perspective: cfg.Perspective,
		},
		Workers:      cfg.Workers,
		WriteSTL:     cfg.WriteSTL,
		WriteGeoJSON: cfg.WriteGeoJSON,
		WriteOverlay: cfg.WriteOverlay,
		Progress:     os.Stdout,
	}, items)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed, warned := 0, 0, 0
	var errs []batch.Result
	for _, r := range results {
		if r.Success {
			success++
			if len(r.Warnings) > 0 {
				warned++
			}
		} else {
			failed++
			errs = append(errs, r)
		}
	}

	fmt.Printf("Rigged: %d/%d (%d with warnings)\n", success, len(items), warned)

	if len(errs) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := min(20, len(errs))
		for _, e := range errs[:limit] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
