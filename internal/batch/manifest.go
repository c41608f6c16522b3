package batch

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManifestEntry represents one generated rig in the output manifest.
type ManifestEntry struct {
	Name     string   `json:"name"`
	Input    string   `json:"input"`
	Rig      string   `json:"rig,omitempty"`
	Image    string   `json:"image"`
	Vertices int      `json:"vertices"`
	Faces    int      `json:"faces"`
	Joints   int      `json:"joints"`
	Bones    int      `json:"bones"`
	Warnings []string `json:"warnings,omitempty"`
}

// Manifest lists the successful results in input order.
func Manifest(results []Result) []ManifestEntry {
	var entries []ManifestEntry
	for _, r := range results {
		if !r.Success {
			continue
		}
		entries = append(entries, ManifestEntry{
			Name:     r.Name,
			Input:    r.Input,
			Rig:      r.Rig,
			Image:    r.Image,
			Vertices: r.Vertices,
			Faces:    r.Faces,
			Joints:   r.Joints,
			Bones:    r.Bones,
			Warnings: r.Warnings,
		})
	}
	return entries
}

// WriteManifest writes manifest.json for the successful results.
func WriteManifest(path string, results []Result) error {
	data, err := json.MarshalIndent(Manifest(results), "", "  ")
	if err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	return nil
}
