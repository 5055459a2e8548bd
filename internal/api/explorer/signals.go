package explorer

import (
	"github.com/joeblew999/plat-explorer/internal/humastar"
	"github.com/joeblew999/plat-explorer/internal/viewstate"
)

// binding maps a trigger route to the action built from its signals.
type binding struct {
	trigger viewstate.Trigger
	parse   func(humastar.Signals) viewstate.Action
}

var bindings = []binding{
	{viewstate.TriggerDataset, func(s humastar.Signals) viewstate.Action {
		return viewstate.SelectDataset{ID: s.String("dataset")}
	}},
	{viewstate.TriggerColorField, func(s humastar.Signals) viewstate.Action {
		return viewstate.SelectColorField{ID: s.String("colorfield")}
	}},
	{viewstate.TriggerPalette, func(s humastar.Signals) viewstate.Action {
		return viewstate.SelectPalette{ID: s.String("palette")}
	}},
	{viewstate.TriggerShowSites, func(s humastar.Signals) viewstate.Action {
		return viewstate.ShowSites{On: s.Bool("showsites")}
	}},
	{viewstate.TriggerMarkerSize, func(s humastar.Signals) viewstate.Action {
		size, ok := s.IntOK("markersize")
		if !ok {
			size = viewstate.DefaultMarkerSize
		}
		return viewstate.SetMarkerSize{Size: size}
	}},
	{viewstate.TriggerSelect, func(s humastar.Signals) viewstate.Action {
		return viewstate.SelectFeature{Index: s.Int("selected")}
	}},
	{viewstate.TriggerGridLayer, func(s humastar.Signals) viewstate.Action {
		return viewstate.SelectGridLayer{ID: s.String("gridlayer")}
	}},
	{viewstate.TriggerGridVariable, func(s humastar.Signals) viewstate.Action {
		return viewstate.SelectGridVariable{ID: s.String("gridvariable")}
	}},
	{viewstate.TriggerShowGrid, func(s humastar.Signals) viewstate.Action {
		return viewstate.ShowGrid{On: s.Bool("showgrid")}
	}},
	{viewstate.TriggerLogScale, func(s humastar.Signals) viewstate.Action {
		return viewstate.SetLogScale{On: s.Bool("logscale")}
	}},
	{viewstate.TriggerWeight, func(s humastar.Signals) viewstate.Action {
		return viewstate.SetWeight{
			Indicator: s.String("weightid"),
			Kind:      viewstate.WeightKind(s.String("weightkind")),
			Value:     s.Float("weightvalue"),
		}
	}},
	{viewstate.TriggerRecompute, func(humastar.Signals) viewstate.Action {
		return viewstate.Recompute{}
	}},
	{viewstate.TriggerResetView, func(humastar.Signals) viewstate.Action {
		return viewstate.ResetView{}
	}},
	{viewstate.TriggerSearch, func(s humastar.Signals) viewstate.Action {
		return viewstate.Search{Query: s.String("search")}
	}},
}

// controlSignals mirrors the state of every bound control. Values the store
// clamped or rejected flow back to the inputs this way. The search box is
// left alone so typing is never overwritten.
func controlSignals(st viewstate.State) map[string]any {
	colorField := st.ColorField
	if colorField == "" {
		colorField = viewstate.NoField
	}
	return map[string]any{
		"dataset":      st.Dataset,
		"colorfield":   colorField,
		"palette":      st.Palette,
		"showsites":    st.ShowSites,
		"markersize":   st.MarkerSize,
		"selected":     st.Selected,
		"gridlayer":    st.GridLayer,
		"gridvariable": st.GridVariable,
		"showgrid":     st.ShowGrid,
		"logscale":     st.LogScale,
		"error":        "",
	}
}

// pageSignals is the full signal set a fresh page starts with.
func pageSignals(session string, st viewstate.State) map[string]any {
	s := controlSignals(st)
	s["session"] = session
	s["search"] = st.Search
	s["weightid"] = ""
	s["weightkind"] = ""
	s["weightvalue"] = 0
	s["colorfielddisabled"] = false
	s["palettedisabled"] = st.ColorField == ""
	s["gridvariabledisabled"] = st.GridLayer == ""
	return s
}
