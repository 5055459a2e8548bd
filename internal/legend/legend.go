// Package legend computes legends for a colorable field over a set of
// records and resolves individual values to colors against them.
//
// A Legend is either *Numeric or *Categorical. Callers switch on the
// concrete type; a nil Legend means nothing can be colored.
package legend

import (
	"math"

	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/feature"
)

// Legend is the closed set {*Numeric, *Categorical}.
type Legend interface {
	legend()
}

// Numeric is a continuous range. Min and Max drive color placement and are
// log-transformed when LogScale is set; DisplayMin and DisplayMax are always
// in the data's own units.
type Numeric struct {
	Field      catalog.Field
	Min, Max   float64
	DisplayMin float64
	DisplayMax float64
	LogScale   bool
}

func (*Numeric) legend() {}

// Entry is one swatch of a categorical legend.
type Entry struct {
	Value string `json:"value"`
	Color Color  `json:"color"`
}

// Categorical lists categories in encounter order, capped at the palette
// length. Keys past the cap keep their position so they still get a color.
// The Unknown category is drawn Missing and takes no palette position.
type Categorical struct {
	Field   catalog.Field
	Entries []Entry

	order  map[string]int
	colors map[string]Color
}

func (*Categorical) legend() {}

type options struct {
	logScale bool
}

// Option tunes Compute.
type Option func(*options)

// WithLogScale places numeric values on ln(1+x). Negative values are left out.
func WithLogScale(on bool) Option {
	return func(o *options) { o.logScale = on }
}

// Compute builds the legend of field over items using paletteID.
// It returns nil when field is nil or no numeric range can be found.
func Compute(items []feature.Record, field *catalog.Field, paletteID string, opts ...Option) Legend {
	if field == nil {
		return nil
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if field.Kind == catalog.Categorical {
		return computeCategorical(items, *field, paletteID)
	}
	return computeNumeric(items, *field, o.logScale)
}

func computeCategorical(items []feature.Record, field catalog.Field, paletteID string) *Categorical {
	scheme := SchemeFor(paletteID)
	c := &Categorical{Field: field, order: map[string]int{}, colors: map[string]Color{}}

	unknown := false
	register := func(key string) {
		if key == feature.UnknownKey {
			if !unknown {
				unknown = true
				c.Entries = append(c.Entries, Entry{Value: key, Color: Missing})
			}
			return
		}
		if _, seen := c.order[key]; seen {
			return
		}
		pos := len(c.order)
		c.order[key] = pos
		if len(c.colors) >= len(scheme.Colors) {
			return
		}
		color := scheme.Colors[pos%len(scheme.Colors)]
		c.Entries = append(c.Entries, Entry{Value: key, Color: color})
		c.colors[key] = color
	}

	for _, item := range items {
		register(feature.Get(item, field).Key())
	}
	if len(c.Entries) == 0 {
		register(feature.UnknownKey)
	}
	return c
}

// LogValue is ln(1+x); ok is false for negative x.
func LogValue(x float64) (float64, bool) {
	if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return math.Log1p(x), true
}

func computeNumeric(items []feature.Record, field catalog.Field, logScale bool) *Numeric {
	var (
		min, max         = math.Inf(1), math.Inf(-1)
		origMin, origMax = math.Inf(1), math.Inf(-1)
	)
	for _, item := range items {
		x, ok := feature.Get(item, field).Float()
		if !ok {
			continue
		}
		origMin = math.Min(origMin, x)
		origMax = math.Max(origMax, x)
		if logScale {
			if x, ok = LogValue(x); !ok {
				continue
			}
		}
		min = math.Min(min, x)
		max = math.Max(max, x)
	}

	if math.IsInf(min, 0) || math.IsInf(max, 0) {
		if field.Min == nil || field.Max == nil {
			return nil
		}
		origMin, origMax = *field.Min, *field.Max
		min, max = origMin, origMax
		if logScale {
			var okMin, okMax bool
			min, okMin = LogValue(min)
			max, okMax = LogValue(max)
			if !okMin || !okMax {
				return nil
			}
		}
	}
	if min == max {
		max = min + 1
	}
	return &Numeric{
		Field:      field,
		Min:        min,
		Max:        max,
		DisplayMin: origMin,
		DisplayMax: origMax,
		LogScale:   logScale,
	}
}
