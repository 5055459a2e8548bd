package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gridGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"h3_05":"A"},"geometry":{"type":"Polygon","coordinates":[[[44,15],[45,15],[45,16],[44,16],[44,15]]]}},
 {"type":"Feature","properties":{"h3_05":"B"},"geometry":{"type":"Polygon","coordinates":[[[45,15],[46,15],[46,16],[45,16],[45,15]]]}}
]}`

const sitesJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"facility_name":"Aden Clinic","pv_system_kwp":4},"geometry":{"type":"Point","coordinates":[45.03,12.79]}}
]}`

func writeFile(t *testing.T, dir, rel, body string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "boundaries_h3/h3_grid_res5.geojson", gridGeoJSON)
	writeFile(t, dir, "processed_h3/h3_climate_hazard_exposure.csv", "h3_05,worldpop2023_sum\nA,10\nB,20\n")
	writeFile(t, dir, "site_data/yeeap_installations.geojson", sitesJSON)

	srv, err := New(Config{Host: "localhost", Port: "0", DataDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t)

	rec := get(srv, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/explorer", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, get(srv, "/nope").Code)
}

func TestExplorerPage(t *testing.T) {
	srv := newTestServer(t)
	rec := get(srv, "/explorer")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Yemen Energy Access Explorer")
	assert.Contains(t, rec.Body.String(), "Climate")
}

func TestHealthAndInfo(t *testing.T) {
	srv := newTestServer(t)

	rec := get(srv, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Values("Link"), `</api/v1/info>; rel="info"`)

	rec = get(srv, "/api/v1/info")
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		Name     string `json:"name"`
		Datasets int    `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "plat-explorer", info.Name)
	assert.Equal(t, len(srv.Catalog().Datasets), info.Datasets)
}

func TestGridTile(t *testing.T) {
	srv := newTestServer(t)
	tile := maptile.At(orb.Point{44.5, 15.5}, 6)

	rec := get(srv, fmt.Sprintf("/tiles/grid/%d/%d/%d.mvt", tile.Z, tile.X, tile.Y))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	layers, err := mvt.UnmarshalGzipped(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.NotEmpty(t, layers[0].Features)
	assert.Equal(t, 1, srv.Tiler().Len())

	far := maptile.At(orb.Point{-70, 40}, 6)
	rec = get(srv, fmt.Sprintf("/tiles/grid/%d/%d/%d.mvt", far.Z, far.X, far.Y))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, get(srv, "/tiles/grid/3/9/0.mvt").Code)
	assert.Equal(t, http.StatusBadRequest, get(srv, "/tiles/grid/3/1/1.png").Code)
	assert.Equal(t, http.StatusBadRequest, get(srv, "/tiles/grid/a/1/1.mvt").Code)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	tile := maptile.At(orb.Point{44.5, 15.5}, 5)
	get(srv, fmt.Sprintf("/tiles/grid/%d/%d/%d.mvt", tile.Z, tile.X, tile.Y))

	rec := get(srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "explorer_tile_cache_total")
}

func TestOpenAPI(t *testing.T) {
	srv := newTestServer(t)
	paths := srv.OpenAPI().Paths
	for _, p := range []string{
		"/health",
		"/api/v1/datasets",
		"/api/v1/grid/layers",
		"/api/v1/explorer/dataset",
		"/api/v1/explorer/render",
		"/api/v1/tables",
	} {
		assert.Contains(t, paths, p)
	}
}
