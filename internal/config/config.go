package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"tubegen/internal/pipeline"
	"tubegen/internal/source"
)

// Config holds all configurable paths, pipeline parameters and render
// settings.
type Config struct {
	// Paths
	BaseDir   string `json:"base_dir"`
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`

	// Outline loading
	Encoding   string  `json:"encoding"`
	Geographic bool    `json:"geographic"`
	PixelSize  float64 `json:"pixel_size"`
	Threshold  uint8   `json:"threshold"`

	// Render settings
	RenderSize  int  `json:"render_size"`
	Supersample int  `json:"supersample"`
	Perspective bool `json:"perspective"`
	Workers     int  `json:"workers"`

	// Extra outputs next to each rig
	WriteSTL     bool `json:"write_stl"`
	WriteGeoJSON bool `json:"write_geojson"`
	WriteOverlay bool `json:"write_overlay"`

	Params pipeline.Params `json:"params"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults and validates the
// pipeline parameters. CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) error {
	// CLI flags override config file
	if flags.BaseDir != "" {
		c.BaseDir = flags.BaseDir
	}
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Size > 0 {
		c.RenderSize = flags.Size
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Isodistance > 0 {
		c.Params.Isodistance = flags.Isodistance
	}

	if c.BaseDir == "" {
		c.BaseDir, _ = os.Getwd()
	}

	// Resolve relative paths against base dir
	c.InputDir = c.under(c.InputDir, "outlines")
	c.OutputDir = c.under(c.OutputDir, "rigs")

	// Defaults for render settings
	if c.RenderSize <= 0 {
		c.RenderSize = 256
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}

	c.Params = c.Params.WithDefaults()
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) under(p, def string) string {
	switch {
	case p == "":
		return filepath.Join(c.BaseDir, def)
	case filepath.IsAbs(p):
		return p
	default:
		return filepath.Join(c.BaseDir, p)
	}
}

// Source returns the outline loader options.
func (c *Config) Source() source.Options {
	return source.Options{
		Encoding:   c.Encoding,
		Geographic: c.Geographic,
		PixelSize:  c.PixelSize,
		Threshold:  c.Threshold,
	}
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	BaseDir     string
	InputDir    string
	OutputDir   string
	Size        int
	Workers     int
	Isodistance float64
}
