package explorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/feature"
	"github.com/joeblew999/plat-explorer/internal/humastar"
	"github.com/joeblew999/plat-explorer/internal/legend"
	"github.com/joeblew999/plat-explorer/internal/panel"
	"github.com/joeblew999/plat-explorer/internal/service"
	"github.com/joeblew999/plat-explorer/internal/templates"
	"github.com/joeblew999/plat-explorer/internal/viewstate"
)

const sitesJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"facility_name":"Aden Clinic","pv_system_kwp":4},"geometry":{"type":"Point","coordinates":[45.03,12.79]}},
 {"type":"Feature","properties":{"facility_name":"Taiz School","pv_system_kwp":12},"geometry":{"type":"Point","coordinates":[44.02,13.58]}}
]}`

type recorded struct {
	kind     string
	selector string
	payload  any
}

type fakeStream struct{ out []recorded }

func (f *fakeStream) Patch(html, selector string) error {
	f.out = append(f.out, recorded{"patch", selector, html})
	return nil
}

func (f *fakeStream) Signals(s map[string]any) error {
	f.out = append(f.out, recorded{"signals", "", s})
	return nil
}

func (f *fakeStream) Event(name string, detail any) error {
	f.out = append(f.out, recorded{"event", name, detail})
	return nil
}

func (f *fakeStream) Error(msg string) error {
	f.out = append(f.out, recorded{"signals", "", map[string]any{"error": msg}})
	return nil
}

func (f *fakeStream) find(kind, selector string) (recorded, bool) {
	for _, r := range f.out {
		if r.kind == kind && r.selector == selector {
			return r, true
		}
	}
	return recorded{}, false
}

type fixture struct {
	sessions *service.SessionService
	handler  *Handler
	mux      *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "site_data", "yeeap_installations.geojson")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(sitesJSON), 0o644))

	cat, err := catalog.Default()
	require.NoError(t, err)
	loader := feature.NewLoader(dir, cat)
	bus := service.NewEventBus()
	sessions := service.NewSessionService(loader, bus)
	tmpl, err := templates.New()
	require.NoError(t, err)

	h := NewHandler(sessions, loader, tmpl, bus)
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("test", "0.0.0"))
	h.RegisterRoutes(api)
	mux.HandleFunc("/explorer", h.Page)
	return &fixture{sessions: sessions, handler: h, mux: mux}
}

func (f *fixture) post(t *testing.T, trigger string, signals map[string]any) string {
	t.Helper()
	body, err := json.Marshal(signals)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/explorer/"+trigger, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Body.String()
}

func TestBindingsCoverEveryTrigger(t *testing.T) {
	seen := map[viewstate.Trigger]bool{}
	for _, b := range bindings {
		assert.False(t, seen[b.trigger], "duplicate %s", b.trigger)
		seen[b.trigger] = true
		assert.Equal(t, b.trigger, b.parse(humastar.Signals{}).Trigger())
	}
	for trigger := range viewstate.Rerender {
		assert.True(t, seen[trigger], "missing %s", trigger)
	}
}

func parseFor(trigger viewstate.Trigger, s humastar.Signals) viewstate.Action {
	for _, b := range bindings {
		if b.trigger == trigger {
			return b.parse(s)
		}
	}
	return nil
}

func TestBindingParse(t *testing.T) {
	assert.Equal(t, viewstate.SetMarkerSize{Size: 7}, parseFor(viewstate.TriggerMarkerSize, humastar.Signals{"markersize": "7"}))
	assert.Equal(t, viewstate.SetMarkerSize{Size: viewstate.DefaultMarkerSize},
		parseFor(viewstate.TriggerMarkerSize, humastar.Signals{"markersize": "big"}))
	assert.Equal(t, viewstate.SetWeight{Indicator: "climate_score", Kind: viewstate.WeightOpportunity, Value: -0.5},
		parseFor(viewstate.TriggerWeight, humastar.Signals{"weightid": "climate_score", "weightkind": "opp", "weightvalue": "-0.5"}))
	assert.Equal(t, viewstate.SelectFeature{Index: 2}, parseFor(viewstate.TriggerSelect, humastar.Signals{"selected": 2.0}))
	assert.Equal(t, viewstate.ShowGrid{On: true}, parseFor(viewstate.TriggerShowGrid, humastar.Signals{"showgrid": true}))
}

func TestSignals(t *testing.T) {
	st := viewstate.State{Dataset: "yeeap", MarkerSize: 3}
	s := controlSignals(st)
	assert.Equal(t, viewstate.NoField, s["colorfield"])
	assert.Equal(t, "", s["error"])
	assert.NotContains(t, s, "search")

	p := pageSignals("abc", st)
	assert.Equal(t, "abc", p["session"])
	assert.Equal(t, true, p["palettedisabled"])
	assert.Equal(t, true, p["gridvariabledisabled"])
}

func TestRendererPanels(t *testing.T) {
	tmpl, err := templates.New()
	require.NoError(t, err)
	out := &fakeStream{}
	r := &sseRenderer{out: out, tmpl: tmpl}
	ctx := context.Background()

	require.NoError(t, r.Palettes(ctx, panel.Choices{
		Options:  []panel.Choice{{ID: "blue-red", Label: "Blue to red", Selected: true}},
		Disabled: true,
	}))
	p, ok := out.find("patch", paletteSelect)
	require.True(t, ok)
	assert.Contains(t, p.payload, `<option value="blue-red" selected>Blue to red</option>`)
	s, ok := out.find("signals", "")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"palette": "blue-red", "palettedisabled": true}, s.payload)

	red := legend.MustHex("#ff0000")
	require.NoError(t, r.Markers(ctx, panel.MarkerLayer{
		Visible: true,
		Markers: []panel.Marker{{Index: 0, Title: "Aden", Lat: 12.8, Lon: 45, Radius: 3, Fill: red}},
		Legend:  panel.LegendView{Visible: true, Empty: "No color mapping"},
	}))
	_, ok = out.find("patch", siteLegend)
	assert.True(t, ok)
	ev, ok := out.find("event", EventMarkers)
	require.True(t, ok)
	b, err := json.Marshal(ev.payload)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"fill":"#ff0000"`)
	assert.Contains(t, string(b), `"lon":45`)

	require.NoError(t, r.Viewport(ctx, panel.Viewport{Mode: panel.ViewFit, Bounds: orb.Bound{Min: orb.Point{44, 12}, Max: orb.Point{46, 14}}, Padding: 30}))
	ev, ok = out.find("event", EventViewport)
	require.True(t, ok)
	b, err = json.Marshal(ev.payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"fit","bounds":[[44,12],[46,14]],"center":[0,0],"zoom":0,"padding":30}`, string(b))

	require.NoError(t, r.Grid(ctx, panel.GridView{Visible: true, Range: "Min 0 / Max 10",
		Cells: []panel.GridCell{{ID: "A", Fill: red, FillOpacity: 0.65, Tooltip: "Pop: 1"}}}))
	rng, ok := out.find("patch", gridRange)
	require.True(t, ok)
	assert.Equal(t, "Min 0 / Max 10", rng.payload)
	_, ok = out.find("event", EventGrid)
	assert.True(t, ok)

	require.NoError(t, r.Scores(ctx, panel.ScoreView{Summary: "Need: 0.30"}))
	sc, ok := out.find("patch", scoreSummary)
	require.True(t, ok)
	assert.Equal(t, "Need: 0.30", sc.payload)
}

func TestPage(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explorer", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "data-signals=")
	assert.Contains(t, body, "YEEAP installations")
	assert.Equal(t, 1, f.sessions.Len())
	assert.Contains(t, body, f.sessions.List()[0].ID)
}

func TestDispatchRoute(t *testing.T) {
	f := newFixture(t)
	sess := f.sessions.Create()

	body := f.post(t, "marker-size", map[string]any{"session": sess.ID, "markersize": "7"})
	assert.Equal(t, 7, sess.State().MarkerSize)
	assert.Contains(t, body, "datastar-patch-signals")
	assert.Contains(t, body, EventMarkers)
	assert.NotContains(t, body, EventViewport)

	f.post(t, "marker-size", map[string]any{"session": sess.ID, "markersize": 99})
	assert.Equal(t, viewstate.MaxMarkerSize, sess.State().MarkerSize)

	body = f.post(t, "select", map[string]any{"session": sess.ID, "selected": 1})
	assert.Equal(t, 1, sess.State().Selected)
	assert.Contains(t, body, "Taiz School")
}

func TestDispatchRejected(t *testing.T) {
	f := newFixture(t)
	sess := f.sessions.Create()
	before := sess.State()

	body := f.post(t, "dataset", map[string]any{"session": sess.ID, "dataset": "nope"})
	assert.Contains(t, body, "Unknown selection for dataset")
	assert.Equal(t, before.Dataset, sess.State().Dataset)
	assert.NotContains(t, body, EventMarkers)
}

func TestDispatchRejectedSendsError(t *testing.T) {
	f := newFixture(t)
	sess := f.sessions.Create()
	out := &fakeStream{}

	f.handler.dispatch(context.Background(), out, humastar.Signals{"session": sess.ID}, viewstate.SelectPalette{ID: "nope"})
	require.Len(t, out.out, 2)
	assert.Equal(t, "", out.out[0].payload.(map[string]any)["error"])
	assert.Equal(t, map[string]any{"error": "Unknown selection for palette"}, out.out[1].payload)
}

func TestDispatchWeightRedrawsClampedRow(t *testing.T) {
	f := newFixture(t)
	sess := f.sessions.Create()
	out := &fakeStream{}

	f.handler.dispatch(context.Background(), out, humastar.Signals{"session": sess.ID},
		viewstate.SetWeight{Indicator: "conflict_score", Kind: viewstate.WeightNeed, Value: 5})
	assert.Equal(t, 1.0, sess.State().Weights["conflict_score"].Need)

	p, ok := out.find("patch", weightsTable)
	require.True(t, ok)
	rows := p.payload.(string)
	start := strings.Index(rows, `data-score="conflict_score"`)
	require.GreaterOrEqual(t, start, 0)
	row := rows[start:]
	row = row[:strings.Index(row, "</tr>")]
	assert.Contains(t, row, `value="1"`)
	assert.NotContains(t, row, `value="5"`)
	assert.Equal(t, 7, strings.Count(rows, "<tr "))

	body := f.post(t, "weight", map[string]any{
		"session": sess.ID, "weightid": "conflict_score", "weightkind": "opp", "weightvalue": "-4",
	})
	assert.Equal(t, -1.0, sess.State().Weights["conflict_score"].Opportunity)
	assert.Contains(t, body, "#weights-table tbody")
	assert.Contains(t, body, `value="-1"`)
}

func TestDispatchUnknownSession(t *testing.T) {
	f := newFixture(t)
	body := f.post(t, "palette", map[string]any{"session": "gone", "palette": "viridis"})

	require.Equal(t, 1, f.sessions.Len())
	assert.Contains(t, body, f.sessions.List()[0].ID)
	assert.Contains(t, body, EventMarkers)
	assert.Contains(t, body, EventViewport)
}

func TestRenderRoute(t *testing.T) {
	f := newFixture(t)
	sess := f.sessions.Create()
	body := f.post(t, "render", map[string]any{"session": sess.ID})
	assert.Contains(t, body, "Aden Clinic")
	assert.Contains(t, body, EventGrid)
	assert.Equal(t, 1, f.sessions.Len())
}
