// Package viewstate holds the single mutable view state of an explorer
// session and the reducer that applies user input to it.
//
// A Store is not safe for concurrent use. The owner serializes Apply
// together with the render pass that follows it.
package viewstate

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/feature"
	"github.com/joeblew999/plat-explorer/internal/legend"
	"github.com/joeblew999/plat-explorer/internal/scoring"
)

const (
	MinMarkerSize     = 1
	MaxMarkerSize     = 18
	DefaultMarkerSize = 3

	MinWeight = -1.0
	MaxWeight = 1.0
)

// ErrUnknownID is returned for dataset, field, layer, palette or indicator
// ids that do not exist. State is left unchanged.
var ErrUnknownID = eris.New("viewstate: unknown id")

// Source answers what the reducer needs to know about loaded data.
type Source interface {
	Catalog() *catalog.Catalog
	FeatureCount(datasetID string) int
	GridLayer(id string) (*feature.Layer, bool)
}

// State is a snapshot of the view.
type State struct {
	Dataset      string          `json:"dataset"`
	ColorField   string          `json:"color_field"`
	Palette      string          `json:"palette"`
	MarkerSize   int             `json:"marker_size"`
	ShowSites    bool            `json:"show_sites"`
	ShowGrid     bool            `json:"show_grid"`
	GridLayer    string          `json:"grid_layer"`
	GridVariable string          `json:"grid_variable"`
	LogScale     bool            `json:"log_scale"`
	Selected     int             `json:"selected"`
	Search       string          `json:"search"`
	Weights      scoring.Weights `json:"weights"`
	Scores       scoring.Result  `json:"scores"`
}

// Store owns one State.
type Store struct {
	src   Source
	state State
}

// New returns a store holding the default state for src.
func New(src Source) *Store {
	cat := src.Catalog()
	s := State{
		Dataset:    cat.FirstDataset().ID,
		Palette:    legend.Gradients[0].ID,
		MarkerSize: DefaultMarkerSize,
		ShowSites:  true,
		ShowGrid:   true,
		Weights:    scoring.DefaultWeights(),
	}
	for _, l := range cat.Grid.Layers {
		layer, ok := src.GridLayer(l.ID)
		if !ok {
			continue
		}
		s.GridLayer = layer.ID
		if len(layer.Variables) > 0 {
			s.GridVariable = layer.Variables[0].ID
		}
		break
	}
	s.Scores = scoring.Recompute(s.Weights)
	return &Store{src: src, state: s}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	out := s.state
	out.Weights = s.state.Weights.Clone()
	return out
}

// Dataset returns the active dataset descriptor.
func (s *Store) Dataset() catalog.Dataset {
	ds, _ := s.src.Catalog().Dataset(s.state.Dataset)
	return ds
}

// ColorField returns the active color field, or nil for none.
func (s *Store) ColorField() *catalog.Field {
	if s.state.ColorField == "" {
		return nil
	}
	f, ok := s.Dataset().ColorField(s.state.ColorField)
	if !ok {
		return nil
	}
	return &f
}

// GridLayer returns the active grid layer and variable. The variable is
// nil when the layer has none.
func (s *Store) GridLayer() (*feature.Layer, *catalog.Field) {
	layer, ok := s.src.GridLayer(s.state.GridLayer)
	if !ok {
		return nil, nil
	}
	v, ok := layer.Variable(s.state.GridVariable)
	if !ok {
		if len(layer.Variables) == 0 {
			return layer, nil
		}
		v = layer.Variables[0]
	}
	return layer, &v
}

// Apply reduces a onto the state and returns the panels to re-render.
func (s *Store) Apply(a Action) (Panel, error) {
	next := s.state

	switch a := a.(type) {
	case SelectDataset:
		ds, ok := s.src.Catalog().Dataset(a.ID)
		if !ok {
			return None, eris.Wrapf(ErrUnknownID, "dataset %q", a.ID)
		}
		next.Dataset = ds.ID
		next.Selected = 0
		if _, ok := ds.ColorField(next.ColorField); !ok {
			next.ColorField = ""
		}
		next.Palette = fitPalette(ds, next.ColorField, next.Palette)

	case SelectColorField:
		ds, _ := s.src.Catalog().Dataset(next.Dataset)
		id := a.ID
		if id == NoField {
			id = ""
		}
		if id != "" {
			if _, ok := ds.ColorField(id); !ok {
				return None, eris.Wrapf(ErrUnknownID, "color field %q", a.ID)
			}
		}
		next.ColorField = id
		next.Palette = fitPalette(ds, id, next.Palette)

	case SelectPalette:
		kinds := []catalog.FieldKind{catalog.Numeric, catalog.Categorical}
		if f := s.ColorField(); f != nil {
			kinds = []catalog.FieldKind{f.Kind}
		}
		valid := false
		for _, k := range kinds {
			valid = valid || legend.Valid(k, a.ID)
		}
		if !valid {
			return None, eris.Wrapf(ErrUnknownID, "palette %q", a.ID)
		}
		next.Palette = a.ID

	case ShowSites:
		next.ShowSites = a.On

	case SetMarkerSize:
		next.MarkerSize = ClampMarkerSize(a.Size)

	case SelectFeature:
		next.Selected = clampIndex(a.Index, s.src.FeatureCount(next.Dataset))

	case SelectGridLayer:
		layer, ok := s.src.GridLayer(a.ID)
		if !ok {
			return None, eris.Wrapf(ErrUnknownID, "grid layer %q", a.ID)
		}
		next.GridLayer = layer.ID
		next.GridVariable = fitVariable(layer, next.GridVariable)

	case SelectGridVariable:
		layer, ok := s.src.GridLayer(next.GridLayer)
		if !ok {
			next.GridVariable = ""
			break
		}
		next.GridVariable = fitVariable(layer, a.ID)

	case ShowGrid:
		next.ShowGrid = a.On

	case SetLogScale:
		next.LogScale = a.On

	case SetWeight:
		if !scoring.Known(a.Indicator) {
			return None, eris.Wrapf(ErrUnknownID, "indicator %q", a.Indicator)
		}
		w := next.Weights[a.Indicator]
		switch a.Kind {
		case WeightNeed:
			w.Need = ClampWeight(a.Value)
		case WeightOpportunity:
			w.Opportunity = ClampWeight(a.Value)
		default:
			return None, eris.Wrapf(ErrUnknownID, "weight kind %q", a.Kind)
		}
		next.Weights = next.Weights.Clone()
		next.Weights[a.Indicator] = w

	case Recompute:
		next.Scores = scoring.Recompute(next.Weights)

	case ResetView:

	case Search:
		next.Search = strings.TrimSpace(a.Query)

	default:
		return None, eris.Errorf("viewstate: unhandled action %T", a)
	}

	s.state = next
	return Rerender[a.Trigger()], nil
}

// fitPalette keeps current if it suits the field's kind, else the kind's default.
func fitPalette(ds catalog.Dataset, fieldID, current string) string {
	f, ok := ds.ColorField(fieldID)
	if !ok {
		return current
	}
	if legend.Valid(f.Kind, current) {
		return current
	}
	return legend.DefaultFor(f.Kind)
}

func fitVariable(layer *feature.Layer, id string) string {
	if _, ok := layer.Variable(id); ok {
		return id
	}
	if len(layer.Variables) > 0 {
		return layer.Variables[0].ID
	}
	return ""
}

// ClampMarkerSize bounds a marker radius to [1,18].
func ClampMarkerSize(n int) int {
	return min(max(n, MinMarkerSize), MaxMarkerSize)
}

// ClampWeight bounds a weight to [-1,1]; NaN becomes 0.
func ClampWeight(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, MinWeight), MaxWeight)
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
