package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"flatrender/internal/batch"
	"flatrender/internal/config"
	"flatrender/internal/flat"
	"flatrender/internal/scene"
	"flatrender/internal/texture"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "Path to config.yaml file")
	mapFile := pflag.StringP("map", "m", "", "Map file (overrides config)")
	texDir := pflag.String("textures", "", "Texture directory (default: <map dir>/textures)")
	outputDir := pflag.StringP("output", "o", "", "Output directory (default: renders)")
	width := pflag.Int("width", 0, "Output width in pixels (default: 320)")
	height := pflag.Int("height", 0, "Output height in pixels (default: 200)")
	supersample := pflag.Int("supersample", 0, "Supersampling factor (default: 2)")
	workers := pflag.IntP("workers", "j", 0, "Number of worker goroutines (default: NumCPU)")
	shot := pflag.String("shot", "", "Render only the shot with this name")
	testN := pflag.Int("test", 0, "Render only the first N shots")
	vbo := pflag.Bool("vbo", true, "Draw static flats from the vertex buffer")
	direct := pflag.Bool("direct", false, "Blend changes bypass the state cache")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	flat.SetLogger(logger)

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	cfg.Resolve(config.Flags{
		Map:               *mapFile,
		TextureDir:        *texDir,
		OutputDir:         *outputDir,
		Width:             *width,
		Height:            *height,
		Supersample:       *supersample,
		Workers:           *workers,
		DirectStateChange: *direct,
	})

	if cfg.Map == "" {
		fmt.Fprintln(os.Stderr, "Error: no map. Use --map or a config file.")
		os.Exit(1)
	}

	lvl, err := scene.Load(cfg.Map)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading map: %v\n", err)
		os.Exit(1)
	}

	shots := lvl.Shots
	if *shot != "" {
		var filtered []scene.Shot
		for _, s := range shots {
			if s.Name == *shot {
				filtered = append(filtered, s)
			}
		}
		shots = filtered
	}
	if *testN > 0 && *testN < len(shots) {
		shots = shots[:*testN]
	}
	if len(shots) == 0 {
		fmt.Println("No shots to render.")
		os.Exit(0)
	}

	texIndex := texture.BuildIndex(cfg.TextureDir)
	textures := texture.NewManager(texture.NewCache(texIndex), lvl.Textures)
	fmt.Printf("Textures: %d indexed, %d used by map\n", texIndex.Len(), textures.Len())

	fmt.Printf("Flat renderer → WebP: %s\n", lvl.Name)
	fmt.Printf("Shots: %d, Size: %dx%d (x%d), Workers: %d\n", len(shots), cfg.Width, cfg.Height, cfg.Supersample, cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	results := batch.Run(batch.Config{
		Level:        lvl,
		Textures:     textures,
		OutputDir:    cfg.OutputDir,
		Width:        cfg.Width,
		Height:       cfg.Height,
		Supersample:  cfg.Supersample,
		ExtendedWebP: cfg.ExtendedWebP,
		Workers:      cfg.Workers,
		Options:      cfg.Render.Options(),
		VertexBuffer: *vbo,
		Logger:       logger,
		Progress:     true,
	}, shots)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	success, failed := 0, 0
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Rendered: %d/%d\n", success, len(shots))

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := min(len(errors), 20)
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

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
