// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/feature"
	"github.com/joeblew999/plat-explorer/internal/humastar"
	"github.com/joeblew999/plat-explorer/internal/legend"
	"github.com/joeblew999/plat-explorer/internal/panel"
	"github.com/joeblew999/plat-explorer/internal/scoring"
	"github.com/joeblew999/plat-explorer/internal/service"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.3.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Loader   *feature.Loader
	Source   *service.SourceService
	Sessions *service.SessionService
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Dataset ID" example:"yeeap"`
}

type LayerIDInput struct {
	ID string `path:"id" doc:"Grid layer ID" example:"climate"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.3.0"`
}

// DatasetSummary is a dataset as listed.
type DatasetSummary struct {
	ID       string `json:"id" doc:"Dataset ID" example:"yeeap"`
	Label    string `json:"label" doc:"Display label"`
	Features int    `json:"features" doc:"Number of loaded features"`
}

// FeatureBody is one site with its display strings.
type FeatureBody struct {
	Index      int            `json:"index" doc:"Position in the dataset"`
	ID         string         `json:"id" doc:"Derived feature ID"`
	Title      string         `json:"title"`
	Subtitle   string         `json:"subtitle"`
	Meta       string         `json:"meta,omitempty"`
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	Properties map[string]any `json:"properties"`
}

type FeaturesInput struct {
	IDInput
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Page size"`
}

type LegendInput struct {
	IDInput
	Field   string `query:"field" doc:"Color field ID, defaults to the first one"`
	Palette string `query:"palette" doc:"Palette ID, defaults to the field kind's default"`
}

type GridLegendInput struct {
	LayerIDInput
	Variable string `query:"variable" doc:"Variable ID, defaults to the first one"`
	Log      bool   `query:"log" doc:"Place colors on a ln(1+x) scale"`
}

// LegendBody is a legend in API form. Type is "none" when nothing can be
// colored.
type LegendBody struct {
	Type       string         `json:"type" enum:"numeric,categorical,none"`
	Field      *catalog.Field `json:"field,omitempty"`
	Palette    string         `json:"palette"`
	Start      *legend.Color  `json:"start,omitempty" doc:"Gradient start (numeric)"`
	End        *legend.Color  `json:"end,omitempty" doc:"Gradient end (numeric)"`
	Min        *float64       `json:"min,omitempty"`
	Max        *float64       `json:"max,omitempty"`
	DisplayMin *float64       `json:"displayMin,omitempty"`
	DisplayMax *float64       `json:"displayMax,omitempty"`
	LogScale   bool           `json:"logScale"`
	Entries    []legend.Entry `json:"entries,omitempty" doc:"Category swatches (categorical)"`
}

// GridLayerSummary is a loaded grid layer.
type GridLayerSummary struct {
	ID        string          `json:"id" example:"climate"`
	Label     string          `json:"label"`
	Rows      int             `json:"rows" doc:"Cells with a row"`
	Variables []catalog.Field `json:"variables"`
}

type PalettesBody struct {
	Gradients []legend.Gradient `json:"gradients"`
	Schemes   []legend.Scheme   `json:"schemes"`
}

type ScoresInput struct {
	Body struct {
		Weights map[string]scoring.Weight `json:"weights" doc:"Weights by indicator ID; missing indicators weigh zero"`
	}
}

type ScoresBody struct {
	scoring.Result
	Summary string `json:"summary"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterDatasets registers dataset routes.
func (h *APIHandler) RegisterDatasets(api huma.API) {
	huma.Get(api, "/api/v1/datasets", h.GetDatasets, huma.OperationTags("datasets"))
	huma.Get(api, "/api/v1/datasets/{id}", h.GetDataset, huma.OperationTags("datasets"))
	huma.Get(api, "/api/v1/datasets/{id}/features", h.GetFeatures, huma.OperationTags("datasets"))
	huma.Get(api, "/api/v1/datasets/{id}/legend", h.GetDatasetLegend, huma.OperationTags("datasets"))
}

// RegisterGrid registers grid routes.
func (h *APIHandler) RegisterGrid(api huma.API) {
	huma.Get(api, "/api/v1/grid/layers", h.GetGridLayers, huma.OperationTags("grid"))
	huma.Get(api, "/api/v1/grid/layers/{id}/legend", h.GetGridLegend, huma.OperationTags("grid"))
	huma.Get(api, "/api/v1/grid/geometry", h.GetGridGeometry, huma.OperationTags("grid"))
}

// RegisterScoring registers palette and score routes.
func (h *APIHandler) RegisterScoring(api huma.API) {
	huma.Get(api, "/api/v1/palettes", h.GetPalettes, huma.OperationTags("legend"))
	huma.Post(api, "/api/v1/scores", h.PostScores, huma.OperationTags("scoring"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
	huma.Get(api, "/api/v1/sessions", h.GetSessions, huma.OperationTags("sources"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetDatasets(ctx context.Context, input *struct{}) (*struct{ Body []DatasetSummary }, error) {
	cat := h.svc.Loader.Catalog()
	out := make([]DatasetSummary, 0, len(cat.Datasets))
	for _, ds := range cat.Datasets {
		out = append(out, DatasetSummary{ID: ds.ID, Label: ds.Label, Features: h.svc.Loader.FeatureCount(ds.ID)})
	}
	return &struct{ Body []DatasetSummary }{Body: out}, nil
}

func (h *APIHandler) GetDataset(ctx context.Context, input *IDInput) (*struct{ Body catalog.Dataset }, error) {
	ds, err := h.dataset(input.ID)
	if err != nil {
		return nil, err
	}
	return &struct{ Body catalog.Dataset }{Body: ds}, nil
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *FeaturesInput) (*struct {
	Body humastar.PageBody[FeatureBody]
}, error) {
	ds, err := h.dataset(input.ID)
	if err != nil {
		return nil, err
	}
	features, err := h.svc.Loader.Features(ctx, ds.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load features", err)
	}
	page := humastar.Paginate(features, input.Offset, input.Limit)
	body := humastar.PageBody[FeatureBody]{Total: page.Total, Offset: page.Offset, Limit: page.Limit,
		Data: make([]FeatureBody, 0, len(page.Data))}
	for i, f := range page.Data {
		body.Data = append(body.Data, featureBody(page.Offset+i, f, ds))
	}
	return &struct {
		Body humastar.PageBody[FeatureBody]
	}{Body: body}, nil
}

func (h *APIHandler) GetDatasetLegend(ctx context.Context, input *LegendInput) (*struct{ Body LegendBody }, error) {
	ds, err := h.dataset(input.ID)
	if err != nil {
		return nil, err
	}
	if len(ds.ColorFields) == 0 {
		return &struct{ Body LegendBody }{Body: LegendBody{Type: "none"}}, nil
	}
	field := ds.ColorFields[0]
	if input.Field != "" {
		f, ok := ds.ColorField(input.Field)
		if !ok {
			return nil, huma.Error404NotFound("color field not found: " + input.Field)
		}
		field = f
	}
	palette, err := paletteFor(field.Kind, input.Palette)
	if err != nil {
		return nil, err
	}
	features, err := h.svc.Loader.Features(ctx, ds.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load features", err)
	}
	records := make([]feature.Record, len(features))
	for i, f := range features {
		records[i] = f
	}
	lg := legend.Compute(records, &field, palette)
	return &struct{ Body LegendBody }{Body: legendBody(lg, palette)}, nil
}

func (h *APIHandler) GetGridLayers(ctx context.Context, input *struct{}) (*struct{ Body []GridLayerSummary }, error) {
	g, err := h.svc.Loader.Grid(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load grid", err)
	}
	out := make([]GridLayerSummary, 0, len(g.Layers))
	for _, l := range g.Layers {
		out = append(out, GridLayerSummary{ID: l.ID, Label: l.Label, Rows: l.Len(), Variables: l.Variables})
	}
	return &struct{ Body []GridLayerSummary }{Body: out}, nil
}

func (h *APIHandler) GetGridLegend(ctx context.Context, input *GridLegendInput) (*struct{ Body LegendBody }, error) {
	g, err := h.svc.Loader.Grid(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load grid", err)
	}
	layer, ok := g.Layer(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("grid layer not found: " + input.ID)
	}
	if len(layer.Variables) == 0 {
		return &struct{ Body LegendBody }{Body: LegendBody{Type: "none"}}, nil
	}
	variable := layer.Variables[0]
	if input.Variable != "" {
		v, ok := layer.Variable(input.Variable)
		if !ok {
			return nil, huma.Error404NotFound("variable not found: " + input.Variable)
		}
		variable = v
	}
	palette := legend.Gradients[0].ID
	lg := legend.Compute(layer.Records(), &variable, palette, legend.WithLogScale(input.Log))
	return &struct{ Body LegendBody }{Body: legendBody(lg, palette)}, nil
}

// GeometryOutput is the grid FeatureCollection, keyed by cell id.
type GeometryOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (h *APIHandler) GetGridGeometry(ctx context.Context, input *struct{}) (*GeometryOutput, error) {
	g, err := h.svc.Loader.Grid(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load grid", err)
	}
	b, err := json.Marshal(g.FeatureCollection())
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode grid", err)
	}
	return &GeometryOutput{ContentType: "application/geo+json", Body: b}, nil
}

func (h *APIHandler) GetPalettes(ctx context.Context, input *struct{}) (*struct{ Body PalettesBody }, error) {
	return &struct{ Body PalettesBody }{Body: PalettesBody{Gradients: legend.Gradients, Schemes: legend.Schemes}}, nil
}

func (h *APIHandler) PostScores(ctx context.Context, input *ScoresInput) (*struct{ Body ScoresBody }, error) {
	for id := range input.Body.Weights {
		if !scoring.Known(id) {
			return nil, huma.Error422UnprocessableEntity("unknown indicator: " + id)
		}
	}
	r := scoring.Recompute(input.Body.Weights)
	return &struct{ Body ScoresBody }{Body: ScoresBody{Result: r, Summary: r.Summary()}}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources := h.svc.Source.List()
	if sources == nil {
		sources = []service.SourceFile{}
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

func (h *APIHandler) GetSessions(ctx context.Context, input *struct{}) (*struct{ Body []service.SessionInfo }, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return &struct{ Body []service.SessionInfo }{Body: []service.SessionInfo{}}, nil
	}
	return &struct{ Body []service.SessionInfo }{Body: h.svc.Sessions.List()}, nil
}

// Helpers

func (h *APIHandler) dataset(id string) (catalog.Dataset, error) {
	ds, ok := h.svc.Loader.Catalog().Dataset(id)
	if !ok {
		return catalog.Dataset{}, huma.Error404NotFound("dataset not found: " + id)
	}
	return ds, nil
}

func paletteFor(kind catalog.FieldKind, id string) (string, error) {
	if id == "" {
		return legend.DefaultFor(kind), nil
	}
	if !legend.Valid(kind, id) {
		return "", huma.Error422UnprocessableEntity(fmt.Sprintf("palette %q does not apply to %s fields", id, kind))
	}
	return id, nil
}

func featureBody(index int, f feature.Feature, ds catalog.Dataset) FeatureBody {
	props := make(map[string]any, len(f.Properties))
	for k, v := range f.Properties {
		props[k] = v.Any()
	}
	return FeatureBody{
		Index:      index,
		ID:         f.ID,
		Title:      panel.Title(f, ds),
		Subtitle:   panel.Subtitle(f, ds),
		Meta:       panel.Meta(f, ds),
		Lat:        f.Lat,
		Lon:        f.Lon,
		Properties: props,
	}
}

func legendBody(lg legend.Legend, palette string) LegendBody {
	body := LegendBody{Type: "none", Palette: palette}
	switch l := lg.(type) {
	case *legend.Numeric:
		g := legend.GradientFor(palette)
		field := l.Field
		body.Type = "numeric"
		body.Field = &field
		body.Start, body.End = &g.Start, &g.End
		body.Min, body.Max = &l.Min, &l.Max
		body.DisplayMin, body.DisplayMax = &l.DisplayMin, &l.DisplayMax
		body.LogScale = l.LogScale
	case *legend.Categorical:
		field := l.Field
		body.Type = "categorical"
		body.Field = &field
		body.Entries = l.Entries
		if body.Entries == nil {
			body.Entries = []legend.Entry{}
		}
	}
	return body
}

// RegisterRoutes registers every APIHandler route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}
