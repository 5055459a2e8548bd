package legend

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/joeblew999/plat-explorer/internal/feature"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Placeholder is shown for blank values.
const Placeholder = "—"

// FormatNumber groups thousands and keeps two decimals only below one.
func FormatNumber(v float64) string {
	digits := 0
	if math.Abs(v) < 1 {
		digits = 2
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(digits)))
}

// FormatValue renders a property for display.
func FormatValue(v feature.Value) string {
	switch {
	case v.Blank():
		return Placeholder
	case v.IsNumber():
		f, _ := v.Float()
		return FormatNumber(f)
	}
	return v.String()
}
