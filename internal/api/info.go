package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-explorer/internal/catalog"
)

type InfoHandler struct {
	dataDir string
	cat     *catalog.Catalog
	dbOK    bool
}

func NewInfoHandler(dataDir string, cat *catalog.Catalog, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, cat: cat, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name       string   `json:"name" doc:"Service name"`
	Version    string   `json:"version" doc:"Service version"`
	DataDir    string   `json:"data_dir" doc:"Data directory path"`
	DB         bool     `json:"db" doc:"Whether the DuckDB query store is available"`
	Datasets   int      `json:"datasets" doc:"Datasets in the catalog"`
	GridLayers int      `json:"grid_layers" doc:"Grid layers in the catalog"`
	Features   []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"explorer", "geojson", "shapefile", "mvt", "scoring"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	body := InfoBody{
		Name:     "plat-explorer",
		Version:  Version,
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Features: features,
	}
	if h.cat != nil {
		body.Datasets = len(h.cat.Datasets)
		body.GridLayers = len(h.cat.Grid.Layers)
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
