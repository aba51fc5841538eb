// Package batch renders a map's camera shots to WebP files on a worker
// pool. Every shot gets its own renderer and device, so a frame never
// crosses goroutines; the level and texture manager are shared read-only.
package batch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"

	"flatrender/internal/device"
	"flatrender/internal/flat"
	"flatrender/internal/postprocess"
	"flatrender/internal/raster"
	"flatrender/internal/scene"
	"flatrender/internal/texture"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Level        *scene.Level
	Textures     *texture.Manager
	OutputDir    string
	Width        int
	Height       int
	Supersample  int
	ExtendedWebP bool
	Workers      int
	Options      flat.Options
	VertexBuffer bool // build the static flat buffer and draw by range
	Logger       *slog.Logger
	Progress     bool // print progress to stdout every two seconds
}

// Result holds the outcome of rendering one shot.
type Result struct {
	Name    string
	Image   string // path relative to OutputDir
	Width   int
	Height  int
	Stats   flat.Stats
	Success bool
	Error   string
}

// Run renders all shots using a worker pool. Results are in shot order.
func Run(cfg Config, shots []scene.Shot) []Result {
	total := len(shots)
	results := make([]Result, total)
	var processed atomic.Int64
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	workers := max(cfg.Workers, 1)

	var verts []device.Vertex
	if cfg.VertexBuffer {
		verts = cfg.Level.BuildVertexBuffer()
	}

	start := time.Now()

	done := make(chan struct{})
	if cfg.Progress {
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
						fmt.Printf("  [%d/%d] %.1f shots/sec\n", p, total, rate)
					}
				}
			}
		}()
	}

	shotChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range shotChan {
				results[idx] = renderShot(cfg, verts, idx, shots[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range shots {
		shotChan <- i
	}
	close(shotChan)

	wg.Wait()
	close(done)

	return results
}

func renderShot(cfg Config, verts []device.Vertex, idx int, shot scene.Shot) Result {
	name := shotName(idx, shot)
	res := Result{
		Name:   name,
		Image:  name + ".webp",
		Width:  cfg.Width,
		Height: cfg.Height,
	}

	ss := max(cfg.Supersample, 1)
	dev := raster.New(cfg.Width*ss, cfg.Height*ss, shot.View, cfg.Logger)
	r := flat.NewRenderer(cfg.Level, cfg.Textures, dev, cfg.Options)
	if verts != nil {
		r.UseVertexBuffer(verts)
	}
	res.Stats = r.RenderFrame(shot.View, nil)

	img := dev.Image()
	if ss > 1 {
		img = postprocess.Downsample(img, cfg.Width, cfg.Height)
	}

	outPath := filepath.Join(cfg.OutputDir, res.Image)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		res.Error = err.Error()
		return res
	}

	f, err := os.Create(outPath)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, &nativewebp.Options{UseExtendedFormat: cfg.ExtendedWebP}); err != nil {
		res.Error = fmt.Sprintf("WebP encode: %v", err)
		return res
	}

	cfg.Logger.Debug("batch: shot rendered",
		"shot", name,
		"flats", res.Stats.RenderedFlats,
		"fans", dev.Fans,
		"culled", dev.Culled)
	res.Success = true
	return res
}

// shotName returns a file-safe name for shot idx.
func shotName(idx int, shot scene.Shot) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, shot.Name)
	if name == "" {
		name = fmt.Sprintf("shot%03d", idx)
	}
	return name
}
