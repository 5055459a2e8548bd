package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-explorer/internal/api"
	"github.com/joeblew999/plat-explorer/internal/api/explorer"
	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/db"
	"github.com/joeblew999/plat-explorer/internal/feature"
	"github.com/joeblew999/plat-explorer/internal/service"
	"github.com/joeblew999/plat-explorer/internal/templates"
	"github.com/joeblew999/plat-explorer/internal/tiler"
)

// SweepInterval is how often expired sessions are dropped.
const SweepInterval = time.Minute

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // optional; static/ and templates/ override the embedded page
	Catalog string // catalog YAML path; empty uses the built-in catalog
}

// Server is the explorer HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	cat      *catalog.Catalog
	bus      *service.EventBus
	services *api.Services
	renderer *templates.Renderer
	tiles    *tiler.Tiler
	log      *zap.Logger
	stop     context.CancelFunc
}

// New creates a new explorer server.
func New(cfg Config) (*Server, error) {
	log := zap.L().With(zap.String("component", "server"))

	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return nil, eris.Wrap(err, "server: catalog")
	}

	renderer, err := newRenderer(cfg.WebDir, log)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	// Huma API over the stdlib mux
	humaConfig := huma.DefaultConfig("plat-explorer API", api.Version)
	humaConfig.Info.Description = "Yemen energy access explorer: site datasets, H3 indicator layers, legends and linked panels."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// No $schema property in responses
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	bus := service.NewEventBus()
	loader := feature.NewLoader(cfg.DataDir, cat)
	loader.OnLoad = bus.OnLoad

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
		cat:     cat,
		bus:     bus,
		services: &api.Services{
			Loader:   loader,
			Source:   service.NewSourceService(cfg.DataDir, cat),
			Sessions: service.NewSessionService(loader, bus),
		},
		renderer: renderer,
		tiles:    tiler.New(loader, tiler.DefaultCacheSize),
		log:      log,
	}

	// The query store is optional; the explorer works without it.
	if conn, err := db.Open(); err != nil {
		log.Warn("duckdb unavailable", zap.Error(err))
	} else {
		created, err := db.RegisterGridTables(context.Background(), conn, cat, cfg.DataDir)
		if err != nil {
			log.Warn("grid tables not registered", zap.Error(err))
		}
		log.Info("duckdb ready", zap.Strings("tables", created))
		s.db = conn
	}

	for _, f := range s.services.Source.Missing() {
		log.Warn("source file missing", zap.String("id", f.ID), zap.String("path", f.Path))
	}

	s.routes()
	return s, nil
}

func newRenderer(webDir string, log *zap.Logger) (*templates.Renderer, error) {
	if webDir != "" {
		dir := filepath.Join(webDir, "templates")
		if _, err := os.Stat(filepath.Join(dir, "pages")); err == nil {
			r, err := templates.NewDir(dir)
			if err != nil {
				return nil, err
			}
			log.Info("templates loaded", zap.String("dir", dir))
			return r, nil
		}
	}
	return templates.New()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Catalog returns the catalog the server was built with.
func (s *Server) Catalog() *catalog.Catalog { return s.cat }

// Loader returns the shared feature loader.
func (s *Server) Loader() *feature.Loader { return s.services.Loader }

// Tiler returns the grid tiler.
func (s *Server) Tiler() *tiler.Tiler { return s.tiles }

// Start runs background work until Close is called.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go s.services.Sessions.Run(ctx, SweepInterval)
}

// Close stops background work and closes server resources.
func (s *Server) Close() error {
	if s.stop != nil {
		s.stop()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	// REST API (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.config.DataDir, s.cat, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Explorer SSE routes (Huma + Datastar)
	ex := explorer.NewHandler(s.services.Sessions, s.services.Loader, s.renderer, s.bus)
	ex.RegisterRoutes(s.humaAPI)

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /tiles/grid/{z}/{x}/{y}", s.handleTile)

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	// Page routes
	s.mux.HandleFunc("GET /explorer", ex.Page)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/explorer", http.StatusFound)
}

// handleTile serves one grid tile as gzipped MVT. Empty tiles are 204.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	z, errZ := strconv.ParseUint(r.PathValue("z"), 10, 32)
	x, errX := strconv.ParseUint(r.PathValue("x"), 10, 32)
	ys, ok := strings.CutSuffix(r.PathValue("y"), ".mvt")
	y, errY := strconv.ParseUint(ys, 10, 32)
	if !ok || errZ != nil || errX != nil || errY != nil {
		http.Error(w, "Invalid tile path", http.StatusBadRequest)
		return
	}

	data, err := s.tiles.Tile(r.Context(), uint32(z), uint32(x), uint32(y))
	switch {
	case eris.Is(err, tiler.ErrOutOfRange):
		http.Error(w, "Tile out of range", http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("tile render failed", zap.Error(err))
		http.Error(w, "Tile render failed", http.StatusInternalServerError)
		return
	case data == nil:
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.mapbox-vector-tile")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}
