package panel

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-explorer/internal/legend"
)

// Choice is one option of a select control.
type Choice struct {
	ID       string
	Label    string
	Selected bool
}

// Choices is a select control.
type Choices struct {
	Options  []Choice
	Disabled bool
}

// Selected returns the id of the selected option, or "".
func (c Choices) Selected() string {
	for _, o := range c.Options {
		if o.Selected {
			return o.ID
		}
	}
	return ""
}

// LegendView is a floating map legend. Kind is "" when there is nothing to
// map, in which case Empty holds the message to show.
type LegendView struct {
	Visible  bool
	Source   string
	Field    string
	Kind     string
	Start    legend.Color
	End      legend.Color
	MinLabel string
	MaxLabel string
	Entries  []legend.Entry
	Empty    string
}

// Marker is one styled site marker.
type Marker struct {
	Index       int
	ID          string
	Title       string
	Lat         float64
	Lon         float64
	Radius      int
	Fill        legend.Color
	Stroke      legend.Color
	Weight      float64
	FillOpacity float64
	Selected    bool
}

// MarkerLayer is the site overlay. Markers is empty when hidden.
type MarkerLayer struct {
	Visible bool
	Markers []Marker
	Legend  LegendView
}

// ViewMode says what the map camera should do.
type ViewMode string

const (
	ViewKeep   ViewMode = "keep"
	ViewFit    ViewMode = "fit"
	ViewCenter ViewMode = "center"
)

// Viewport is a camera instruction.
type Viewport struct {
	Mode    ViewMode
	Bounds  orb.Bound
	Center  orb.Point
	Zoom    int
	Padding int
}

// GridCell is the style of one hexagon, keyed by cell id.
type GridCell struct {
	ID          string
	Fill        legend.Color
	FillOpacity float64
	Tooltip     string
}

// GridView is the hexagon overlay plus its legend.
type GridView struct {
	Visible      bool
	Layer        string
	Variable     string
	Stroke       legend.Color
	StrokeWeight float64
	Cells        []GridCell
	Legend       LegendView
	Range        string
}

// KV is a labelled value row.
type KV struct {
	Label string
	Value string
}

// DetailView describes the selected site.
type DetailView struct {
	Index           int
	Type            string
	Title           string
	Subtitle        string
	Meta            string
	Coordinates     string
	Attributes      []KV
	AttributesEmpty string
	Grid            []KV
	GridEmpty       string
}

// ListItem is one row of the site list.
type ListItem struct {
	Index    int
	ID       string
	Title    string
	Subtitle string
	Meta     string
	Selected bool
}

// ListView is the filtered site list.
type ListView struct {
	Query string
	Total int
	Items []ListItem
	Empty string
	Hint  string
}

// ScoreView is the Need & Opportunity summary.
type ScoreView struct {
	Need        float64
	Opportunity float64
	Combined    float64
	Summary     string
}

// FormatCoordinates renders a lat/lon pair with hemisphere letters.
func FormatCoordinates(lat, lon float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
	}
	if lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.4f°%s, %.4f°%s", math.Abs(lat), ns, math.Abs(lon), ew)
}
