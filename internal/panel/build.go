package panel

import (
	"strings"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/feature"
	"github.com/joeblew999/plat-explorer/internal/legend"
	"github.com/joeblew999/plat-explorer/internal/scoring"
	"github.com/joeblew999/plat-explorer/internal/viewstate"
)

// Map defaults.
var (
	DefaultCenter = orb.Point{44, 15.5}
	DefaultZoom   = 6
	SingleZoom    = 10
	FitPadding    = 30
)

// Styles.
var (
	SelectedStroke    = legend.MustHex("#ffffff")
	GridStroke        = legend.MustHex("#1e293b")
	GridStrokeWeight  = 0.4
	GridFillOpacity   = 0.65
	MarkerWeight      = 1.5
	SelectedWeight    = 2.5
	SelectedGrowth    = 3
	MarkerFillOpacity = 0.9
)

const (
	untitled       = "Untitled"
	subtitleSep    = " • "
	noMapping      = "No color mapping"
	noAttributes   = "No attributes configured."
	noGridContext  = "No grid context available."
	noMatch        = "No sites match your filter."
	noMatchHint    = "Adjust the search criteria to see available opportunities."
	emptyType      = "Site"
	emptyTitle     = "No sample data"
	emptySubtitle  = "Load a dataset to view site details."
	noneFieldLabel = "None"
)

// Title is the display title of f: the title field, else "name", else
// "Untitled".
func Title(f feature.Feature, ds catalog.Dataset) string {
	if field := ds.Display.TitleField; field != "" {
		if v := f.Lookup(field); !v.IsNull() {
			return v.String()
		}
	}
	if v := f.Lookup("name"); !v.IsNull() {
		return v.String()
	}
	return untitled
}

// Subtitle joins the truthy subtitle fields, else falls back to the summary.
func Subtitle(f feature.Feature, ds catalog.Dataset) string {
	var parts []string
	for _, field := range ds.Display.SubtitleFields {
		if v := f.Lookup(field); v.Truthy() {
			parts = append(parts, v.String())
		}
	}
	if len(parts) == 0 {
		return f.Summary
	}
	return strings.Join(parts, subtitleSep)
}

// Meta is the formatted meta field with its unit, or "".
func Meta(f feature.Feature, ds catalog.Dataset) string {
	field := ds.Display.MetaField
	if field == "" {
		return ""
	}
	v := f.Lookup(field)
	if v.Blank() {
		return ""
	}
	out := legend.FormatValue(v)
	if ds.Display.MetaLabel != "" {
		out += " " + ds.Display.MetaLabel
	}
	return out
}

func siteVariables(st viewstate.State, ds catalog.Dataset) Choices {
	c := Choices{Options: []Choice{{ID: viewstate.NoField, Label: noneFieldLabel, Selected: st.ColorField == ""}}}
	for _, f := range ds.ColorFields {
		c.Options = append(c.Options, Choice{ID: f.ID, Label: f.Label, Selected: f.ID == st.ColorField})
	}
	return c
}

func palettes(st viewstate.State, field *catalog.Field) Choices {
	if field == nil {
		return Choices{Options: choicesFor(legend.Choices(catalog.Numeric), st.Palette), Disabled: true}
	}
	return Choices{Options: choicesFor(legend.Choices(field.Kind), st.Palette)}
}

func choicesFor(in []legend.Choice, selected string) []Choice {
	out := make([]Choice, 0, len(in))
	for _, c := range in {
		out = append(out, Choice{ID: c.ID, Label: c.Name, Selected: c.ID == selected})
	}
	return out
}

func gridVariables(layer *feature.Layer, variable *catalog.Field) Choices {
	if layer == nil || len(layer.Variables) == 0 {
		return Choices{Disabled: true}
	}
	c := Choices{}
	for _, v := range layer.Variables {
		c.Options = append(c.Options, Choice{ID: v.ID, Label: v.Label, Selected: variable != nil && v.ID == variable.ID})
	}
	return c
}

func list(st viewstate.State, ds catalog.Dataset, features []feature.Feature) ListView {
	out := ListView{Query: st.Search, Total: len(features)}
	term := strings.ToLower(strings.TrimSpace(st.Search))
	for i, f := range features {
		title, subtitle := Title(f, ds), Subtitle(f, ds)
		if term != "" &&
			!strings.Contains(strings.ToLower(title), term) &&
			!strings.Contains(strings.ToLower(subtitle), term) {
			continue
		}
		out.Items = append(out.Items, ListItem{
			Index:    i,
			ID:       f.ID,
			Title:    title,
			Subtitle: subtitle,
			Meta:     Meta(f, ds),
			Selected: i == st.Selected,
		})
	}
	if len(out.Items) == 0 {
		out.Empty = noMatch
		out.Hint = noMatchHint
	}
	return out
}

func records(features []feature.Feature) []feature.Record {
	out := make([]feature.Record, len(features))
	for i, f := range features {
		out[i] = f
	}
	return out
}

func markers(st viewstate.State, ds catalog.Dataset, field *catalog.Field, features []feature.Feature) MarkerLayer {
	var lg legend.Legend
	if field != nil {
		lg = legend.Compute(records(features), field, st.Palette)
	}
	out := MarkerLayer{
		Visible: st.ShowSites,
		Legend:  legendView(lg, ds.Label, field, st.Palette),
	}
	if !st.ShowSites {
		return out
	}
	for i, f := range features {
		v := feature.Null()
		if field != nil {
			v = feature.Get(f, *field)
		}
		fill := legend.ColorFor(v, lg, st.Palette)
		m := Marker{
			Index:       i,
			ID:          f.ID,
			Title:       Title(f, ds),
			Lat:         f.Lat,
			Lon:         f.Lon,
			Radius:      st.MarkerSize,
			Fill:        fill,
			Stroke:      fill,
			Weight:      MarkerWeight,
			FillOpacity: MarkerFillOpacity,
		}
		if i == st.Selected {
			m.Selected = true
			m.Radius += SelectedGrowth
			m.Stroke = SelectedStroke
			m.Weight = SelectedWeight
		}
		out.Markers = append(out.Markers, m)
	}
	return out
}

func legendView(lg legend.Legend, source string, field *catalog.Field, paletteID string) LegendView {
	out := LegendView{Visible: true, Source: source, Field: noneFieldLabel}
	if field != nil {
		out.Field = field.Label
	}
	switch lg := lg.(type) {
	case *legend.Numeric:
		g := legend.GradientFor(paletteID)
		out.Kind = string(catalog.Numeric)
		out.Start, out.End = g.Start, g.End
		out.MinLabel = legend.FormatNumber(lg.DisplayMin)
		out.MaxLabel = legend.FormatNumber(lg.DisplayMax)
	case *legend.Categorical:
		out.Kind = string(catalog.Categorical)
		out.Entries = lg.Entries
	default:
		out.Empty = noMapping
	}
	return out
}

// viewport fits the features. With no features the camera stays put unless
// fallback is set, in which case it returns to the default view.
func viewport(features []feature.Feature, fallback bool) Viewport {
	switch len(features) {
	case 0:
		if fallback {
			return Viewport{Mode: ViewCenter, Center: DefaultCenter, Zoom: DefaultZoom}
		}
		return Viewport{Mode: ViewKeep}
	case 1:
		return Viewport{Mode: ViewCenter, Center: features[0].Point(), Zoom: SingleZoom}
	}
	pts := make(orb.MultiPoint, len(features))
	for i, f := range features {
		pts[i] = f.Point()
	}
	return Viewport{Mode: ViewFit, Bounds: pts.Bound(), Padding: FitPadding}
}

func rangeText(variable *catalog.Field) string {
	lo, hi := legend.Placeholder, legend.Placeholder
	if variable != nil {
		if variable.Min != nil {
			lo = legend.FormatNumber(*variable.Min)
		}
		if variable.Max != nil {
			hi = legend.FormatNumber(*variable.Max)
		}
	}
	return "Min " + lo + " / Max " + hi
}

func gridView(st viewstate.State, g *feature.Grid, layer *feature.Layer, variable *catalog.Field) GridView {
	out := GridView{
		Visible:      st.ShowGrid,
		Stroke:       GridStroke,
		StrokeWeight: GridStrokeWeight,
		Range:        rangeText(variable),
	}
	if layer == nil {
		return out
	}
	out.Layer = layer.ID
	if variable == nil {
		return out
	}
	out.Variable = variable.ID
	if !st.ShowGrid {
		return out
	}

	paletteID := legend.Gradients[0].ID
	lg := legend.Compute(layer.Records(), variable, paletteID, legend.WithLogScale(st.LogScale))
	if lg == nil {
		return out
	}
	out.Legend = legendView(lg, layer.Label, variable, paletteID)

	if g == nil {
		return out
	}
	for _, c := range g.Cells {
		v := feature.Null()
		if row, ok := layer.Row(c.ID); ok {
			v = feature.Get(row, *variable)
		}
		cell := GridCell{ID: c.ID, Fill: legend.ColorFor(v, lg, paletteID)}
		if !v.IsNull() {
			cell.Tooltip = variable.Label + ": " + legend.FormatValue(v)
			cell.FillOpacity = GridFillOpacity
			if x, _ := v.Float(); st.LogScale && x < 0 {
				cell.FillOpacity = 0
			}
		}
		out.Cells = append(out.Cells, cell)
	}
	return out
}

func detail(st viewstate.State, ds catalog.Dataset, features []feature.Feature, g *feature.Grid, layer *feature.Layer) DetailView {
	if len(features) == 0 {
		return DetailView{Type: emptyType, Title: emptyTitle, Subtitle: emptySubtitle}
	}
	idx := st.Selected
	if idx < 0 || idx >= len(features) {
		idx = 0
	}
	f := features[idx]
	out := DetailView{
		Index:       idx,
		Type:        ds.Label,
		Title:       Title(f, ds),
		Subtitle:    Subtitle(f, ds),
		Meta:        Meta(f, ds),
		Coordinates: FormatCoordinates(f.Lat, f.Lon),
	}
	if out.Type == "" {
		out.Type = emptyType
	}

	for _, field := range ds.DetailFields {
		out.Attributes = append(out.Attributes, KV{Label: field.Label, Value: legend.FormatValue(f.Lookup(field.ID))})
	}
	if len(out.Attributes) == 0 {
		out.AttributesEmpty = noAttributes
	}

	out.Grid = gridContext(f, g, layer)
	if len(out.Grid) == 0 {
		out.GridEmpty = noGridContext
	}
	return out
}

// gridContext lists the active layer's values for the cell under f.
func gridContext(f feature.Feature, g *feature.Grid, layer *feature.Layer) []KV {
	if g == nil || layer == nil {
		return nil
	}
	cell, ok := g.CellAt(f.Point())
	if !ok {
		return nil
	}
	row, ok := layer.Row(cell.ID)
	if !ok {
		return nil
	}
	out := []KV{{Label: feature.Humanize(g.Key), Value: cell.ID}}
	for _, v := range layer.Variables {
		out = append(out, KV{Label: v.Label, Value: legend.FormatValue(feature.Get(row, v))})
	}
	return out
}

func scores(st viewstate.State) ScoreView {
	r := st.Scores
	return ScoreView{
		Need:        r.Need,
		Opportunity: r.Opportunity,
		Combined:    r.Combined,
		Summary:     r.Summary(),
	}
}

// Weights lists the weight table rows in indicator order.
func Weights(st viewstate.State) []WeightRow {
	out := make([]WeightRow, 0, len(scoring.Indicators))
	for _, ind := range scoring.Indicators {
		w := st.Weights[ind.ID]
		out = append(out, WeightRow{ID: ind.ID, Label: ind.Label, Need: w.Need, Opportunity: w.Opportunity})
	}
	return out
}

// WeightRow is one row of the weight table.
type WeightRow struct {
	ID          string
	Label       string
	Need        float64
	Opportunity float64
}
