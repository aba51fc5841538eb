package batch

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManifestEntry describes one rendered shot in the output manifest.
type ManifestEntry struct {
	Name          string `json:"name"`
	Image         string `json:"image"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	RenderedFlats int    `json:"rendered_flats"`
	Primitives    int    `json:"primitives"`
	Error         string `json:"error,omitempty"`
}

// WriteManifest writes manifest.json describing results to path.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Name:          r.Name,
			Image:         r.Image,
			Width:         r.Width,
			Height:        r.Height,
			RenderedFlats: r.Stats.RenderedFlats,
			Primitives:    r.Stats.FlatPrimitives,
			Error:         r.Error,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("batch: write %s: %w", path, err)
	}
	return nil
}
