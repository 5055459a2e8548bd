package explorer

import (
	"bytes"
	"context"
	"html"

	"github.com/joeblew999/plat-explorer/internal/humastar"
	"github.com/joeblew999/plat-explorer/internal/legend"
	"github.com/joeblew999/plat-explorer/internal/panel"
)

// Browser custom events carrying map instructions.
const (
	EventMarkers  = "explorer-markers"
	EventViewport = "explorer-viewport"
	EventGrid     = "explorer-grid"
	EventLoaded   = "explorer-loaded"
)

// Element ids patched by the renderer.
const (
	siteVariableSelect = "#site-variable"
	paletteSelect      = "#color-map"
	gridVariableSelect = "#grid-variable"
	siteList           = "#site-list"
	siteLegend         = "#map-site-legend"
	gridLegend         = "#map-grid-legend"
	gridRange          = "#grid-range"
	detailPanel        = "#detail"
	scoreSummary       = "#score-summary"
	weightsTable       = "#weights-table tbody"
)

// Stream is the subset of humastar.SSE the renderer writes to.
type Stream interface {
	Patch(html, selector string) error
	Signals(signals map[string]any) error
	Event(name string, detail any) error
	Error(msg string) error
}

// sseRenderer draws panels as Datastar patches. HTML panels are rendered
// from templates; the map layers travel as custom events for the page
// script.
type sseRenderer struct {
	out  Stream
	tmpl humastar.Renderer
}

var _ panel.Renderer = (*sseRenderer)(nil)

func (r *sseRenderer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *sseRenderer) options(c panel.Choices) (string, error) {
	opts := make([]humastar.SelectOptionData, 0, len(c.Options))
	for _, o := range c.Options {
		opts = append(opts, humastar.SelectOptionData{Value: o.ID, Label: o.Label, Selected: o.Selected})
	}
	return humastar.RenderSelect(r.tmpl, "", opts)
}

func (r *sseRenderer) selectPanel(c panel.Choices, selector, signal string) error {
	opts, err := r.options(c)
	if err != nil {
		return err
	}
	if err := r.out.Patch(opts, selector); err != nil {
		return err
	}
	return r.out.Signals(map[string]any{signal: c.Selected(), signal + "disabled": c.Disabled})
}

func (r *sseRenderer) SiteVariables(_ context.Context, c panel.Choices) error {
	return r.selectPanel(c, siteVariableSelect, "colorfield")
}

func (r *sseRenderer) Palettes(_ context.Context, c panel.Choices) error {
	return r.selectPanel(c, paletteSelect, "palette")
}

func (r *sseRenderer) GridVariables(_ context.Context, c panel.Choices) error {
	return r.selectPanel(c, gridVariableSelect, "gridvariable")
}

func (r *sseRenderer) List(_ context.Context, l panel.ListView) error {
	out, err := humastar.RenderList(r.tmpl, "site-card", l.Items, l.Empty, l.Hint)
	if err != nil {
		return err
	}
	return r.out.Patch(out, siteList)
}

func (r *sseRenderer) Markers(_ context.Context, m panel.MarkerLayer) error {
	lg, err := r.render("legend", m.Legend)
	if err != nil {
		return err
	}
	if err := r.out.Patch(lg, siteLegend); err != nil {
		return err
	}
	return r.out.Event(EventMarkers, markersDetail(m))
}

func (r *sseRenderer) Viewport(_ context.Context, v panel.Viewport) error {
	return r.out.Event(EventViewport, viewportDetail(v))
}

func (r *sseRenderer) Grid(_ context.Context, g panel.GridView) error {
	lg, err := r.render("legend", g.Legend)
	if err != nil {
		return err
	}
	if err := r.out.Patch(lg, gridLegend); err != nil {
		return err
	}
	if err := r.out.Patch(html.EscapeString(g.Range), gridRange); err != nil {
		return err
	}
	return r.out.Event(EventGrid, gridDetail(g))
}

func (r *sseRenderer) Detail(_ context.Context, d panel.DetailView) error {
	out, err := r.render("detail", d)
	if err != nil {
		return err
	}
	return r.out.Patch(out, detailPanel)
}

func (r *sseRenderer) Scores(_ context.Context, s panel.ScoreView) error {
	out, err := r.render("score-summary", s)
	if err != nil {
		return err
	}
	return r.out.Patch(out, scoreSummary)
}

// Event payloads. Coordinates are [lon, lat].

type markerJSON struct {
	Index       int          `json:"index"`
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Lat         float64      `json:"lat"`
	Lon         float64      `json:"lon"`
	Radius      int          `json:"radius"`
	Fill        legend.Color `json:"fill"`
	Stroke      legend.Color `json:"stroke"`
	Weight      float64      `json:"weight"`
	FillOpacity float64      `json:"fillOpacity"`
	Selected    bool         `json:"selected"`
}

type markersJSON struct {
	Visible bool         `json:"visible"`
	Markers []markerJSON `json:"markers"`
}

func markersDetail(m panel.MarkerLayer) markersJSON {
	out := markersJSON{Visible: m.Visible, Markers: make([]markerJSON, 0, len(m.Markers))}
	for _, mk := range m.Markers {
		out.Markers = append(out.Markers, markerJSON(mk))
	}
	return out
}

type viewportJSON struct {
	Mode    panel.ViewMode `json:"mode"`
	Bounds  [2][2]float64  `json:"bounds"`
	Center  [2]float64     `json:"center"`
	Zoom    int            `json:"zoom"`
	Padding int            `json:"padding"`
}

func viewportDetail(v panel.Viewport) viewportJSON {
	return viewportJSON{
		Mode:    v.Mode,
		Bounds:  [2][2]float64{v.Bounds.Min, v.Bounds.Max},
		Center:  v.Center,
		Zoom:    v.Zoom,
		Padding: v.Padding,
	}
}

type cellJSON struct {
	ID          string       `json:"id"`
	Fill        legend.Color `json:"fill"`
	FillOpacity float64      `json:"fillOpacity"`
	Tooltip     string       `json:"tooltip,omitempty"`
}

type gridJSON struct {
	Visible      bool         `json:"visible"`
	Layer        string       `json:"layer"`
	Variable     string       `json:"variable"`
	Stroke       legend.Color `json:"stroke"`
	StrokeWeight float64      `json:"strokeWeight"`
	Cells        []cellJSON   `json:"cells"`
}

func gridDetail(g panel.GridView) gridJSON {
	out := gridJSON{
		Visible:      g.Visible,
		Layer:        g.Layer,
		Variable:     g.Variable,
		Stroke:       g.Stroke,
		StrokeWeight: g.StrokeWeight,
		Cells:        make([]cellJSON, 0, len(g.Cells)),
	}
	for _, c := range g.Cells {
		out.Cells = append(out.Cells, cellJSON(c))
	}
	return out
}
