// Command flatstats renders every shot of a map against a recording
// device and reports how the flats were classified and what the render
// state cache sent to the device.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"flatrender/internal/config"
	"flatrender/internal/device"
	"flatrender/internal/flat"
	"flatrender/internal/scene"
	"flatrender/internal/texture"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "Path to config.yaml file")
	mapFile := pflag.StringP("map", "m", "", "Map file (overrides config)")
	vbo := pflag.Bool("vbo", true, "Draw static flats from the vertex buffer")
	direct := pflag.Bool("direct", false, "Blend changes bypass the state cache")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	flat.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{Map: *mapFile, DirectStateChange: *direct})
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
	if len(shots) == 0 {
		// one overview from the first sector's center
		c := lvl.Sectors[0].Center
		shots = []scene.Shot{{Name: "center", View: scene.View{X: c[0], Y: c[1], Z: lvl.Sectors[0].CenterFloor() + 41, FOV: 90}}}
	}

	// Texture contents do not affect classification beyond masking.
	textures := texture.NewManager(texture.NewCache(texture.BuildIndex(cfg.TextureDir)), lvl.Textures)

	var verts []device.Vertex
	if *vbo {
		verts = lvl.BuildVertexBuffer()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "shot\tplain\tmasked\ttrans\tborder\tflats\tfans\tranges\tblend\tshaders\tuniforms\tlights\tpush/pop\t")
	for _, s := range shots {
		rec := device.NewRecorder()
		r := flat.NewRenderer(lvl, textures, rec, cfg.Render.Options())
		if verts != nil {
			r.UseVertexBuffer(verts)
		}
		rec.Reset()
		st := r.RenderFrame(s.View, nil)

		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d/%d\t\n",
			s.Name,
			st.Lists[flat.ListPlain], st.Lists[flat.ListMasked],
			st.Lists[flat.ListTranslucent], st.Lists[flat.ListTranslucentBorder],
			st.RenderedFlats,
			rec.Count(device.OpDrawFan), rec.Count(device.OpDrawRange),
			rec.Count(device.OpBlendFunc), rec.Count(device.OpUseShader), rec.Count(device.OpUniforms),
			st.LightIterations,
			st.MatrixPushes, st.MatrixPops)
	}
	w.Flush()
}
