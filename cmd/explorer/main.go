package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/config"
	"github.com/joeblew999/plat-explorer/internal/feature"
	"github.com/joeblew999/plat-explorer/internal/server"
	"github.com/joeblew999/plat-explorer/internal/tiler"
)

// Options defines all CLI flags and env vars for the explorer.
// Flags: --host, --port, --data-dir, --web-dir, --catalog, --log-level, --log-format
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory holding site_data/, boundaries_h3/ and processed_h3/" default:"data"`
	WebDir    string `doc:"Optional web/ directory with static/ and templates/ overrides" default:""`
	Catalog   string `doc:"Catalog YAML; empty uses the built-in catalog" default:""`
	LogLevel  string `doc:"Log level (debug, info, warn, error)" default:"info"`
	LogFormat string `doc:"Log format (json, console)" default:"console"`
}

func setup(opts *Options) {
	if err := config.InitLogger(opts.LogLevel, opts.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(opts *Options) *server.Server {
	srv, err := server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		WebDir:  opts.WebDir,
		Catalog: opts.Catalog,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return srv
}

func loadCatalog(opts *Options) *catalog.Catalog {
	cat, err := catalog.Load(opts.Catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cat
}

func main() {
	// .env must be read before humacli resolves SERVICE_* variables.
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server

		hooks.OnStart(func() {
			setup(opts)
			srv = newServer(opts)
			srv.Start()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-explorer starting...\n")
			fmt.Printf("  Explorer: %s/explorer\n", baseURL)
			fmt.Printf("  Data:     %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Docs:     %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI:  %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics:  %s/metrics\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				zap.L().Fatal("server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			if srv != nil {
				_ = srv.Close()
			}
			_ = zap.L().Sync()
		})
	})

	cli.Root().Use = "explorer"
	cli.Root().Short = "Yemen energy access explorer"
	cli.Root().Version = "0.3.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			setup(opts)
			srv := newServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// catalog subcommand: print the effective catalog
	cli.Root().AddCommand(&cobra.Command{
		Use:   "catalog",
		Short: "Print the effective dataset catalog as YAML",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			out, err := loadCatalog(opts).Marshal()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(string(out))
		}),
	})

	// validate subcommand: load everything and report counts
	cli.Root().AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load every dataset and grid layer and report what was found",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			setup(opts)
			cat := loadCatalog(opts)
			loader := feature.NewLoader(opts.DataDir, cat)
			ctx := context.Background()

			empty := 0
			for _, ds := range cat.Datasets {
				n := loader.FeatureCount(ds.ID)
				if n == 0 {
					empty++
				}
				fmt.Printf("  dataset %-18s %6d features  %s\n", ds.ID, n, ds.Path)
			}
			g, err := loader.Grid(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("  grid    %-18s %6d cells     %s\n", cat.Grid.Key, len(g.Cells), cat.Grid.Geometry)
			for _, l := range cat.Grid.Layers {
				layer, ok := loader.GridLayer(l.ID)
				if !ok {
					empty++
					fmt.Printf("  layer   %-18s missing          %s\n", l.ID, l.Path)
					continue
				}
				fmt.Printf("  layer   %-18s %6d variables %s\n", l.ID, len(layer.Variables), l.Path)
			}
			if empty > 0 {
				fmt.Printf("\n%d source(s) empty or missing\n", empty)
				os.Exit(1)
			}
		}),
	})

	// tiles subcommand: export the grid as a PMTiles archive
	tilesCmd := &cobra.Command{
		Use:   "tiles",
		Short: "Export the H3 grid geometry as a PMTiles archive",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			setup(opts)
			out, _ := cmd.Flags().GetString("output")
			minZoom, _ := cmd.Flags().GetUint8("min-zoom")
			maxZoom, _ := cmd.Flags().GetUint8("max-zoom")

			loader := feature.NewLoader(opts.DataDir, loadCatalog(opts))
			f, err := os.Create(out)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()

			stats, err := tiler.New(loader, 0).WriteArchive(context.Background(), f, minZoom, maxZoom)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error writing tiles: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Wrote %d tiles (%d bytes) to %s\n", stats.Tiles, stats.Bytes, out)
		}),
	}
	tilesCmd.Flags().StringP("output", "o", "grid.pmtiles", "Output archive path")
	tilesCmd.Flags().Uint8("min-zoom", 0, "Minimum zoom")
	tilesCmd.Flags().Uint8("max-zoom", 8, "Maximum zoom")
	cli.Root().AddCommand(tilesCmd)

	cli.Run()
}
