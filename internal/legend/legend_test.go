package legend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/feature"
)

func records(field string, values ...any) []feature.Record {
	out := make([]feature.Record, len(values))
	for i, v := range values {
		out[i] = feature.Row{field: feature.FromAny(v)}
	}
	return out
}

func ptr(f float64) *float64 { return &f }

func numericField() *catalog.Field {
	return &catalog.Field{ID: "kwp", Label: "PV capacity", Kind: catalog.Numeric}
}

func categoricalField() *catalog.Field {
	return &catalog.Field{ID: "status", Label: "Status", Kind: catalog.Categorical}
}

func withDuo(t *testing.T) Scheme {
	t.Helper()
	duo := Scheme{ID: "duo", Name: "Duo", Colors: []Color{MustHex("#111111"), MustHex("#222222")}}
	orig := Schemes
	Schemes = append(append([]Scheme{}, orig...), duo)
	t.Cleanup(func() { Schemes = orig })
	return duo
}

func TestComputeNilField(t *testing.T) {
	assert.Nil(t, Compute(records("kwp", 1, 2), nil, "blue-red"))
}

func TestNumericMidpoint(t *testing.T) {
	l := Compute(records("kwp", 0, 5, 10), numericField(), "blue-red")
	n, ok := l.(*Numeric)
	require.True(t, ok)
	assert.Equal(t, 0.0, n.Min)
	assert.Equal(t, 10.0, n.Max)

	got := ColorFor(feature.Number(5), l, "blue-red")
	assert.Equal(t, Color{165, 84, 156}, got)
}

func TestNumericEndpoints(t *testing.T) {
	for _, g := range Gradients {
		t.Run(g.ID, func(t *testing.T) {
			l := Compute(records("kwp", 3, -2, 40, "n/a", nil), numericField(), g.ID).(*Numeric)
			assert.Less(t, l.Min, l.Max)
			assert.Equal(t, g.Start, ColorFor(feature.Number(l.Min), l, g.ID))
			assert.Equal(t, g.End, ColorFor(feature.Number(l.Max), l, g.ID))
			assert.Equal(t, g.Start, ColorFor(feature.Number(-100), l, g.ID), "clamped below")
			assert.Equal(t, g.End, ColorFor(feature.Number(100), l, g.ID), "clamped above")
		})
	}
}

func TestNumericDegenerate(t *testing.T) {
	l := Compute(records("kwp", 7, 7), numericField(), "").(*Numeric)
	assert.Equal(t, 7.0, l.Min)
	assert.Equal(t, 8.0, l.Max)
	assert.Equal(t, 7.0, l.DisplayMax)
}

func TestNumericFallsBackToMetadata(t *testing.T) {
	field := numericField()
	assert.Nil(t, Compute(records("kwp", nil, "x"), field, ""))

	field.Min, field.Max = ptr(0), ptr(75)
	l := Compute(records("kwp", nil, "x"), field, "").(*Numeric)
	assert.Equal(t, 0.0, l.Min)
	assert.Equal(t, 75.0, l.Max)

	field.Min, field.Max = ptr(4), ptr(4)
	l = Compute(nil, field, "").(*Numeric)
	assert.Equal(t, 5.0, l.Max)
}

func TestLogScale(t *testing.T) {
	items := records("pop", 0, 9)
	field := &catalog.Field{ID: "pop", Kind: catalog.Numeric}

	on := Compute(items, field, "", WithLogScale(true)).(*Numeric)
	assert.Equal(t, 0.0, on.Min)
	assert.InDelta(t, math.Log(10), on.Max, 1e-12)
	assert.Equal(t, "0", FormatNumber(on.DisplayMin))
	assert.Equal(t, "9", FormatNumber(on.DisplayMax))

	off := Compute(items, field, "", WithLogScale(false)).(*Numeric)
	assert.Equal(t, 0.0, off.Min)
	assert.Equal(t, 9.0, off.Max)
	assert.Equal(t, on.DisplayMin, off.DisplayMin)
	assert.Equal(t, on.DisplayMax, off.DisplayMax)

	g := GradientFor("")
	assert.Equal(t, g.End, ColorFor(feature.Number(9), on, ""))
	assert.Equal(t, Missing, ColorFor(feature.Number(-3), on, ""), "negative is absent under log")
}

func TestLogScaleSkipsNegatives(t *testing.T) {
	field := &catalog.Field{ID: "v", Kind: catalog.Numeric}
	l := Compute(records("v", -5, 3), field, "", WithLogScale(true)).(*Numeric)
	assert.InDelta(t, math.Log(4), l.Min, 1e-12)
	assert.InDelta(t, math.Log(4)+1, l.Max, 1e-12)
	assert.Equal(t, -5.0, l.DisplayMin)

	field.Min, field.Max = ptr(0), ptr(99)
	l = Compute(records("v", -5), field, "", WithLogScale(true)).(*Numeric)
	assert.InDelta(t, math.Log(100), l.Max, 1e-12)
	assert.Equal(t, 99.0, l.DisplayMax)
}

func TestCategoricalCapAndWraparound(t *testing.T) {
	duo := withDuo(t)
	l := Compute(records("status", "A", "B", "A", "C"), categoricalField(), "duo")
	c, ok := l.(*Categorical)
	require.True(t, ok)

	require.Len(t, c.Entries, 2)
	assert.Equal(t, "A", c.Entries[0].Value)
	assert.Equal(t, "B", c.Entries[1].Value)
	assert.Equal(t, duo.Colors[0], ColorFor(feature.Text("C"), l, "duo"))
	assert.Equal(t, duo.Colors[1], ColorFor(feature.Text("B"), l, "duo"))
	assert.Equal(t, Missing, ColorFor(feature.Text("Z"), l, "duo"))
}

func TestCategoricalUniqueColors(t *testing.T) {
	values := make([]any, 0, 30)
	for i := 0; i < 30; i++ {
		values = append(values, string(rune('a'+i%26))+string(rune('A'+i/26)))
	}
	for _, s := range Schemes {
		t.Run(s.ID, func(t *testing.T) {
			c := Compute(records("status", values...), categoricalField(), s.ID).(*Categorical)
			assert.LessOrEqual(t, len(c.Entries), len(s.Colors))
			seen := map[Color]string{}
			for _, e := range c.Entries {
				prev, dup := seen[e.Color]
				assert.False(t, dup, "%s and %s share %s", prev, e.Value, e.Color)
				seen[e.Color] = e.Value
				assert.Equal(t, e.Color, ColorFor(feature.Text(e.Value), c, s.ID))
			}
		})
	}
}

func TestCategoricalUnknown(t *testing.T) {
	c := Compute(records("status", nil, "", "Done"), categoricalField(), "").(*Categorical)
	require.Len(t, c.Entries, 2)
	assert.Equal(t, feature.UnknownKey, c.Entries[0].Value)
	assert.Equal(t, Missing, c.Entries[0].Color)
	assert.Equal(t, "Done", c.Entries[1].Value)
	assert.Equal(t, Schemes[0].Colors[0], c.Entries[1].Color)

	empty := Compute(nil, categoricalField(), "").(*Categorical)
	require.Len(t, empty.Entries, 1)
	assert.Equal(t, feature.UnknownKey, empty.Entries[0].Value)
	assert.Equal(t, Missing, empty.Entries[0].Color)
}

func TestCategoricalUnknownSwatchMatchesNull(t *testing.T) {
	for _, s := range Schemes {
		t.Run(s.ID, func(t *testing.T) {
			l := Compute(records("status", nil, "A", "Unknown"), categoricalField(), s.ID)
			c := l.(*Categorical)
			require.Len(t, c.Entries, 2)

			null := ColorFor(feature.Null(), l, s.ID)
			assert.Equal(t, feature.UnknownKey, c.Entries[0].Value)
			assert.Equal(t, null, c.Entries[0].Color)
			assert.Equal(t, null, ColorFor(feature.Text("Unknown"), l, s.ID))

			assert.Equal(t, "A", c.Entries[1].Value)
			assert.Equal(t, s.Colors[0], c.Entries[1].Color)
			assert.Equal(t, s.Colors[0], ColorFor(feature.Text("A"), l, s.ID))
		})
	}
}

func TestColorForNull(t *testing.T) {
	num := Compute(records("kwp", 1, 2), numericField(), "")
	cat := Compute(records("status", "x"), categoricalField(), "")
	for _, l := range []Legend{num, cat} {
		assert.Equal(t, Missing, ColorFor(feature.Null(), l, ""))
		assert.Equal(t, Missing, ColorFor(feature.Text(""), l, ""))
	}
	assert.Equal(t, Neutral, ColorFor(feature.Number(1), nil, ""))
	assert.Equal(t, Missing, ColorFor(feature.Text("abc"), num, ""))
}

func TestPaletteFallback(t *testing.T) {
	assert.Equal(t, "blue-red", GradientFor("nope").ID)
	assert.Equal(t, "default", SchemeFor("nope").ID)
	assert.True(t, Valid(catalog.Numeric, "viridis"))
	assert.False(t, Valid(catalog.Categorical, "viridis"))
	assert.Len(t, Choices(catalog.Categorical), 4)
	assert.Equal(t, "default", DefaultFor(catalog.Categorical))
	assert.Equal(t, "blue-red", DefaultFor(catalog.Numeric))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12,500", FormatNumber(12500))
	assert.Equal(t, "0.26", FormatNumber(0.256))
	assert.Equal(t, "1,235", FormatNumber(1234.56))
	assert.Equal(t, Placeholder, FormatValue(feature.Null()))
	assert.Equal(t, Placeholder, FormatValue(feature.Text("")))
	assert.Equal(t, "Completed", FormatValue(feature.Text("Completed")))
	assert.Equal(t, "75", FormatValue(feature.Number(75)))
}

func TestHex(t *testing.T) {
	c, err := ParseHex("#5b63f4")
	require.NoError(t, err)
	assert.Equal(t, Color{0x5b, 0x63, 0xf4}, c)
	assert.Equal(t, "#5b63f4", c.Hex())
	_, err = ParseHex("5b63f4")
	assert.Error(t, err)

	var back Color
	require.NoError(t, back.UnmarshalText([]byte("#5b63f4")))
	assert.Equal(t, c, back)
	assert.Error(t, back.UnmarshalText([]byte("blue")))
}
