package legend

import (
	"math"

	"github.com/joeblew999/plat-explorer/internal/feature"
)

// ColorFor resolves v against l. A nil legend yields Neutral and a blank
// value yields Missing for either variant, as does the literal Unknown
// category.
func ColorFor(v feature.Value, l Legend, paletteID string) Color {
	if l == nil {
		return Neutral
	}
	if v.Blank() {
		return Missing
	}
	switch l := l.(type) {
	case *Numeric:
		if l == nil {
			return Neutral
		}
		x, ok := v.Float()
		if !ok {
			return Missing
		}
		if l.LogScale {
			if x, ok = LogValue(x); !ok {
				return Missing
			}
		}
		return Interpolate(GradientFor(paletteID), (x-l.Min)/(l.Max-l.Min))
	case *Categorical:
		if l == nil {
			return Neutral
		}
		key := v.Key()
		if key == feature.UnknownKey {
			return Missing
		}
		if pos, ok := l.order[key]; ok {
			scheme := SchemeFor(paletteID)
			return scheme.Colors[pos%len(scheme.Colors)]
		}
		if c, ok := l.colors[key]; ok {
			return c
		}
		return Missing
	}
	return Neutral
}

// Interpolate blends the gradient at t, clamped to [0,1]. Channels round
// half up.
func Interpolate(g Gradient, t float64) Color {
	if math.IsNaN(t) || t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	mix := func(a, b uint8) uint8 {
		v := math.Floor(float64(a) + (float64(b)-float64(a))*t + 0.5)
		return uint8(math.Max(0, math.Min(255, v)))
	}
	return Color{
		R: mix(g.Start.R, g.End.R),
		G: mix(g.Start.G, g.End.G),
		B: mix(g.Start.B, g.End.B),
	}
}
