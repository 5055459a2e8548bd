package legend

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/joeblew999/plat-explorer/internal/catalog"
)

// Color is an opaque sRGB color.
type Color struct {
	R, G, B uint8
}

var (
	// Neutral is used when there is no legend at all.
	Neutral = MustHex("#000000")
	// Missing is used for null values and unregistered categories.
	Missing = MustHex("#94a3b8")
)

// ParseHex parses a #rrggbb color.
func ParseHex(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, eris.Errorf("legend: bad color %q", s)
	}
	n, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return Color{}, eris.Errorf("legend: bad color %q", s)
	}
	return Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, nil
}

// MustHex is ParseHex for literals.
func MustHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex renders c as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) String() string { return c.Hex() }

// MarshalText lets colors travel as "#rrggbb" in JSON.
func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

// UnmarshalText parses "#rrggbb".
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseHex(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Gradient is a two-stop continuous palette.
type Gradient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Start Color  `json:"start"`
	End   Color  `json:"end"`
}

// Scheme is an ordered categorical palette.
type Scheme struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Colors []Color `json:"colors"`
}

func rgb(r, g, b uint8) Color { return Color{r, g, b} }

func hexes(values ...string) []Color {
	out := make([]Color, len(values))
	for i, v := range values {
		out[i] = MustHex(v)
	}
	return out
}

// Gradients are the continuous palettes; the first is the default.
var Gradients = []Gradient{
	{ID: "blue-red", Name: "Blue to Red", Start: rgb(91, 99, 244), End: rgb(239, 68, 68)},
	{ID: "viridis", Name: "Viridis", Start: rgb(68, 1, 84), End: rgb(253, 231, 37)},
	{ID: "plasma", Name: "Plasma", Start: rgb(13, 8, 135), End: rgb(240, 249, 33)},
	{ID: "green-blue", Name: "Green to Blue", Start: rgb(34, 211, 153), End: rgb(14, 165, 233)},
	{ID: "purple-orange", Name: "Purple to Orange", Start: rgb(168, 85, 247), End: rgb(249, 115, 22)},
}

// Schemes are the categorical palettes; the first is the default.
var Schemes = []Scheme{
	{ID: "default", Name: "Default", Colors: hexes(
		"#5b63f4", "#22d3ee", "#34d399", "#facc15", "#f97316",
		"#f472b6", "#14b8a6", "#ef4444", "#a855f7", "#0ea5e9",
	)},
	{ID: "pastel", Name: "Pastel", Colors: hexes(
		"#a8e6cf", "#ffd3b6", "#ffaaa5", "#ff8b94", "#c7ceea", "#b4a7d6", "#dda0dd", "#98d8c8",
	)},
	{ID: "bright", Name: "Bright", Colors: hexes(
		"#ff6b6b", "#4ecdc4", "#45b7d1", "#f9ca24", "#f0932b", "#eb4d4b", "#6c5ce7", "#a29bfe",
	)},
	{ID: "earth", Name: "Earth tones", Colors: hexes(
		"#8b4513", "#cd853f", "#daa520", "#b8860b", "#9acd32", "#6b8e23", "#556b2f", "#2f4f2f",
	)},
}

// GradientFor returns the named gradient or the default one.
func GradientFor(id string) Gradient {
	for _, g := range Gradients {
		if g.ID == id {
			return g
		}
	}
	return Gradients[0]
}

// SchemeFor returns the named scheme or the default one.
func SchemeFor(id string) Scheme {
	for _, s := range Schemes {
		if s.ID == id {
			return s
		}
	}
	return Schemes[0]
}

// Choice is a selectable palette.
type Choice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Choices lists the palettes that apply to a field kind.
func Choices(kind catalog.FieldKind) []Choice {
	var out []Choice
	switch kind {
	case catalog.Numeric:
		for _, g := range Gradients {
			out = append(out, Choice{g.ID, g.Name})
		}
	case catalog.Categorical:
		for _, s := range Schemes {
			out = append(out, Choice{s.ID, s.Name})
		}
	}
	return out
}

// Valid reports whether id names a palette for kind.
func Valid(kind catalog.FieldKind, id string) bool {
	for _, c := range Choices(kind) {
		if c.ID == id {
			return true
		}
	}
	return false
}

// DefaultFor is the palette a field kind falls back to.
func DefaultFor(kind catalog.FieldKind) string {
	if kind == catalog.Categorical {
		return Schemes[0].ID
	}
	return Gradients[0].ID
}
