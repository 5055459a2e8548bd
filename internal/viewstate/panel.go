package viewstate

import "strings"

// Panel is a set of views the synchronizer must re-render.
type Panel uint16

const (
	SiteVariables Panel = 1 << iota
	Palettes
	List
	Markers
	Viewport
	GridVariables
	Grid
	Detail
	Scores

	None Panel = 0
	All        = SiteVariables | Palettes | List | Markers | Viewport | GridVariables | Grid | Detail | Scores
)

// Order is the sequence panels are rendered in.
var Order = []Panel{SiteVariables, Palettes, GridVariables, List, Markers, Viewport, Grid, Detail, Scores}

var panelNames = map[Panel]string{
	SiteVariables: "site-variables",
	Palettes:      "palettes",
	List:          "list",
	Markers:       "markers",
	Viewport:      "viewport",
	GridVariables: "grid-variables",
	Grid:          "grid",
	Detail:        "detail",
	Scores:        "scores",
}

// Has reports whether every panel in q is in p.
func (p Panel) Has(q Panel) bool { return q != 0 && p&q == q }

// Each calls fn for each panel in p, in render order.
func (p Panel) Each(fn func(Panel)) {
	for _, q := range Order {
		if p.Has(q) {
			fn(q)
		}
	}
}

func (p Panel) String() string {
	if p == None {
		return "none"
	}
	var names []string
	p.Each(func(q Panel) { names = append(names, panelNames[q]) })
	return strings.Join(names, "|")
}

// Rerender is the minimal set of panels each trigger invalidates.
var Rerender = map[Trigger]Panel{
	TriggerDataset:      SiteVariables | Palettes | List | Markers | Viewport | Detail,
	TriggerColorField:   Palettes | Markers,
	TriggerPalette:      Markers,
	TriggerShowSites:    Markers,
	TriggerMarkerSize:   Markers,
	TriggerSelect:       List | Markers | Detail,
	TriggerGridLayer:    GridVariables | Grid,
	TriggerGridVariable: Grid,
	TriggerShowGrid:     Grid,
	TriggerLogScale:     Grid,
	TriggerWeight:       None,
	TriggerRecompute:    Scores,
	TriggerResetView:    Viewport,
	TriggerSearch:       List,
}
