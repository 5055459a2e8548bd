package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/feature"
	"github.com/joeblew999/plat-explorer/internal/service"
)

const sitesJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"facility_name":"Aden Clinic","pv_system_kwp":4,"is_completed":"Completed"},"geometry":{"type":"Point","coordinates":[45.03,12.79]}},
 {"type":"Feature","properties":{"facility_name":"Taiz School","pv_system_kwp":12,"is_completed":"In progress"},"geometry":{"type":"Point","coordinates":[44.02,13.58]}}
]}`

const gridGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"h3_05":"A"},"geometry":{"type":"Polygon","coordinates":[[[44,15],[45,15],[45,16],[44,16],[44,15]]]}},
 {"type":"Feature","properties":{"h3_05":"B"},"geometry":{"type":"Polygon","coordinates":[[[45,15],[46,15],[46,16],[45,16],[45,15]]]}}
]}`

func writeFile(t *testing.T, dir, rel, body string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "site_data/yeeap_installations.geojson", sitesJSON)
	writeFile(t, dir, "boundaries_h3/h3_grid_res5.geojson", gridGeoJSON)
	writeFile(t, dir, "processed_h3/h3_climate_hazard_exposure.csv", "h3_05,worldpop2023_sum\nA,10\nB,20\n")

	cat, err := catalog.Default()
	require.NoError(t, err)
	loader := feature.NewLoader(dir, cat)

	mux := http.NewServeMux()
	config := huma.DefaultConfig("test", Version)
	config.Transformers = append(config.Transformers, LinkTransformer())
	api := humago.New(mux, config)
	RegisterRoutes(api, &Services{
		Loader:   loader,
		Source:   service.NewSourceService(dir, cat),
		Sessions: service.NewSessionService(loader, nil),
	})
	NewDBHandler(nil).RegisterRoutes(api)
	return mux
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := newTestAPI(t)
	rec := do(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[HealthBody](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, Version, body.Version)
	assert.Contains(t, rec.Header().Values("Link"), `</api/v1/datasets>; rel="datasets"`)
}

func TestDatasets(t *testing.T) {
	h := newTestAPI(t)

	rec := do(h, http.MethodGet, "/api/v1/datasets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]DatasetSummary](t, rec)
	require.NotEmpty(t, list)
	assert.Equal(t, "yeeap", list[0].ID)
	assert.Equal(t, 2, list[0].Features)

	rec = do(h, http.MethodGet, "/api/v1/datasets/yeeap", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Values("Link"), `</api/v1/datasets/yeeap>; rel="self"`)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/v1/datasets/nope", "").Code)
}

func TestFeaturesPaginated(t *testing.T) {
	h := newTestAPI(t)
	rec := do(h, http.MethodGet, "/api/v1/datasets/yeeap/features?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[struct {
		Total int           `json:"total"`
		Data  []FeatureBody `json:"data"`
	}](t, rec)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Aden Clinic", page.Data[0].Title)
	assert.Equal(t, 4.0, page.Data[0].Properties["pv_system_kwp"])
	assert.Contains(t, rec.Header().Values("Link"),
		`</api/v1/datasets/yeeap/features?offset=1&limit=1>; rel="next"`)
}

func TestDatasetLegend(t *testing.T) {
	h := newTestAPI(t)

	rec := do(h, http.MethodGet, "/api/v1/datasets/yeeap/legend?field=pv_system_kwp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lg := decode[LegendBody](t, rec)
	assert.Equal(t, "numeric", lg.Type)
	require.NotNil(t, lg.Min)
	assert.Equal(t, 4.0, *lg.Min)
	assert.Equal(t, 12.0, *lg.Max)

	rec = do(h, http.MethodGet, "/api/v1/datasets/yeeap/legend?field=is_completed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lg = decode[LegendBody](t, rec)
	assert.Equal(t, "categorical", lg.Type)
	require.Len(t, lg.Entries, 2)
	assert.Equal(t, "Completed", lg.Entries[0].Value)

	assert.Equal(t, http.StatusNotFound,
		do(h, http.MethodGet, "/api/v1/datasets/yeeap/legend?field=nope", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity,
		do(h, http.MethodGet, "/api/v1/datasets/yeeap/legend?field=pv_system_kwp&palette=pastel", "").Code)
}

func TestGrid(t *testing.T) {
	h := newTestAPI(t)

	rec := do(h, http.MethodGet, "/api/v1/grid/layers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	layers := decode[[]GridLayerSummary](t, rec)
	require.Len(t, layers, 1)
	assert.Equal(t, "climate", layers[0].ID)
	assert.Equal(t, 2, layers[0].Rows)

	rec = do(h, http.MethodGet, "/api/v1/grid/layers/climate/legend?variable=worldpop2023_sum", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lg := decode[LegendBody](t, rec)
	assert.Equal(t, "numeric", lg.Type)
	assert.Equal(t, 20.0, *lg.DisplayMax)

	assert.Equal(t, http.StatusNotFound,
		do(h, http.MethodGet, "/api/v1/grid/layers/climate/legend?variable=nope", "").Code)
	assert.Equal(t, http.StatusNotFound,
		do(h, http.MethodGet, "/api/v1/grid/layers/nope/legend", "").Code)

	rec = do(h, http.MethodGet, "/api/v1/grid/geometry", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"id":"A"`)
}

func TestScores(t *testing.T) {
	h := newTestAPI(t)

	rec := do(h, http.MethodPost, "/api/v1/scores", `{"weights":{"climate_score":{"need":1,"opp":0}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[ScoresBody](t, rec)
	assert.InDelta(t, 0.3, body.Need, 1e-9)
	assert.Equal(t, "Need: 0.30 • Opportunity: 0.00 • Combined: 0.30", body.Summary)

	assert.Equal(t, http.StatusUnprocessableEntity,
		do(h, http.MethodPost, "/api/v1/scores", `{"weights":{"nope":{"need":1,"opp":0}}}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity,
		do(h, http.MethodPost, "/api/v1/scores", `{"weights":{"climate_score":{"need":5,"opp":0}}}`).Code)
}

func TestSourcesAndSessions(t *testing.T) {
	h := newTestAPI(t)

	rec := do(h, http.MethodGet, "/api/v1/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sources := decode[[]service.SourceFile](t, rec)
	found := map[string]bool{}
	for _, s := range sources {
		found[s.ID] = s.Exists
	}
	assert.True(t, found["yeeap"])
	assert.False(t, found["tamkeen"])

	rec = do(h, http.MethodGet, "/api/v1/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]service.SessionInfo](t, rec))
}

func TestDBUnavailable(t *testing.T) {
	h := newTestAPI(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/api/v1/tables", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		do(h, http.MethodPost, "/api/v1/query", `{"query":"SELECT 1"}`).Code)
}
