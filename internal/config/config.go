package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"flatrender/internal/flat"
)

// Config holds all configurable paths and render settings.
type Config struct {
	// Paths
	Map        string `yaml:"map"`
	TextureDir string `yaml:"texture_dir"`
	OutputDir  string `yaml:"output_dir"`

	// Output settings
	Width        int  `yaml:"width"`
	Height       int  `yaml:"height"`
	Supersample  int  `yaml:"supersample"`
	ExtendedWebP bool `yaml:"extended_webp"` // VP8X container instead of plain VP8L
	Workers      int  `yaml:"workers"`

	Render Render `yaml:"render"`

	// dir is the directory of the loaded file; relative paths resolve
	// against it.
	dir string
}

// Render holds the pipeline switches. Pointer fields default to true when
// absent from the file.
type Render struct {
	DynamicLights     *bool   `yaml:"dynamic_lights"`
	LightsCheckSide   *bool   `yaml:"lights_check_side"`
	DirectStateChange bool    `yaml:"direct_state_change"`
	LightsSize        float64 `yaml:"lights_size"`
	FixedColormap     bool    `yaml:"fixed_colormap"`
	WeaponLight       bool    `yaml:"weapon_light"`
}

// Options converts the render block to renderer options.
func (r Render) Options() flat.Options {
	return flat.Options{
		DynamicLights:     orTrue(r.DynamicLights),
		LightsCheckSide:   orTrue(r.LightsCheckSide),
		DirectStateChange: r.DirectStateChange,
		LightsSize:        r.LightsSize,
		FixedColormap:     r.FixedColormap,
		WeaponLight:       r.WeaponLight,
	}
}

// Load reads a YAML config file and returns Config.
// Fields not set in the file keep their zero values until Resolve.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)

	return cfg, nil
}

// Resolve applies flag overrides, resolves relative paths and fills in
// defaults. CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.Map != "" {
		c.Map = flags.Map
	}
	if flags.TextureDir != "" {
		c.TextureDir = flags.TextureDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.Supersample > 0 {
		c.Supersample = flags.Supersample
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.DirectStateChange {
		c.Render.DirectStateChange = true
	}

	// Flags are relative to the working directory, file values to the file.
	c.Map = c.resolvePath(c.Map, flags.Map != "")
	c.TextureDir = c.resolvePath(c.TextureDir, flags.TextureDir != "")
	c.OutputDir = c.resolvePath(c.OutputDir, flags.OutputDir != "")

	if c.TextureDir == "" && c.Map != "" {
		c.TextureDir = filepath.Join(filepath.Dir(c.Map), "textures")
	}
	if c.OutputDir == "" {
		c.OutputDir = "renders"
	}

	if c.Width <= 0 {
		c.Width = 320
	}
	if c.Height <= 0 {
		c.Height = 200
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Render.LightsSize <= 0 {
		c.Render.LightsSize = 1
	}
}

func (c *Config) resolvePath(p string, fromFlag bool) string {
	if p == "" || fromFlag || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Map               string
	TextureDir        string
	OutputDir         string
	Width             int
	Height            int
	Supersample       int
	Workers           int
	DirectStateChange bool
}

func orTrue(b *bool) bool {
	return b == nil || *b
}
