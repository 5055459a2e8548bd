package feature

import (
	"encoding/csv"
	"io"
	"strings"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"

	"github.com/joeblew999/plat-explorer/internal/catalog"
)

// Row holds one cell's indicator values.
type Row map[string]Value

// Lookup implements Record.
func (r Row) Lookup(id string) Value { return r[id] }

// Layer is one indicator table keyed by cell id.
type Layer struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Path      string          `json:"path"`
	Variables []catalog.Field `json:"variables"`

	cells []string
	rows  map[string]Row
}

// Variable returns the variable with the given id.
func (l *Layer) Variable(id string) (catalog.Field, bool) {
	for _, v := range l.Variables {
		if v.ID == id {
			return v, true
		}
	}
	return catalog.Field{}, false
}

// Row returns the values for a cell.
func (l *Layer) Row(cell string) (Row, bool) {
	r, ok := l.rows[cell]
	return r, ok
}

// Records returns the rows in table order.
func (l *Layer) Records() []Record {
	out := make([]Record, 0, len(l.cells))
	for _, id := range l.cells {
		out = append(out, l.rows[id])
	}
	return out
}

// Len is the number of cells with a row.
func (l *Layer) Len() int { return len(l.cells) }

// Cell is one polygon of the shared grid geometry.
type Cell struct {
	ID       string
	Geometry orb.Geometry
	bound    orb.Bound
}

// Grid is the shared geometry plus every layer that loaded.
type Grid struct {
	Key    string
	Cells  []Cell
	Layers []*Layer
}

// Layer returns the loaded layer with the given id.
func (g *Grid) Layer(id string) (*Layer, bool) {
	if g == nil {
		return nil, false
	}
	for _, l := range g.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// CellAt returns the cell whose polygon contains p.
func (g *Grid) CellAt(p orb.Point) (Cell, bool) {
	if g == nil {
		return Cell{}, false
	}
	for _, c := range g.Cells {
		if !c.bound.Contains(p) {
			continue
		}
		switch geom := c.Geometry.(type) {
		case orb.Polygon:
			if planar.PolygonContains(geom, p) {
				return c, true
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(geom, p) {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// FeatureCollection rebuilds the cell geometry as GeoJSON keyed by cell id.
func (g *Grid) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if g == nil {
		return fc
	}
	for _, c := range g.Cells {
		f := geojson.NewFeature(c.Geometry)
		f.ID = c.ID
		f.Properties[g.Key] = c.ID
		fc.Append(f)
	}
	return fc
}

// ParseGridGeometry decodes the polygon FeatureCollection of grid cells.
// Cells without a key or without polygon geometry are skipped.
func ParseGridGeometry(data []byte, key string) ([]Cell, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrap(err, "feature: parse grid geometry")
	}
	cells := make([]Cell, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		id := FromAny(f.Properties[key])
		if id.Blank() {
			continue
		}
		cells = append(cells, Cell{ID: id.String(), Geometry: f.Geometry, bound: f.Geometry.Bound()})
	}
	return cells, nil
}

// ParseTable reads a CSV indicator table for layer. Columns named
// "Unnamed..." are dropped, rows with an empty key are dropped, and only
// columns with at least one numeric value become variables.
func ParseTable(r io.Reader, layer catalog.GridLayer, key string) (*Layer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "feature: read header of %s", layer.ID)
	}
	keyCol := -1
	var cols []int
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		switch {
		case name == key:
			keyCol = i
		case strings.HasPrefix(name, "Unnamed"):
		default:
			cols = append(cols, i)
		}
	}
	if keyCol < 0 {
		return nil, eris.Errorf("feature: %s has no %q column", layer.ID, key)
	}

	type stats struct {
		min, max float64
		seen     bool
	}
	colStats := make([]stats, len(header))
	out := &Layer{ID: layer.ID, Label: layer.Label, Path: layer.Path, rows: map[string]Row{}}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "feature: read %s", layer.ID)
		}
		if keyCol >= len(rec) {
			continue
		}
		cell := strings.TrimSpace(rec[keyCol])
		if cell == "" {
			continue
		}
		row := make(Row, len(cols))
		for _, c := range cols {
			if c >= len(rec) {
				row[header[c]] = Null()
				continue
			}
			f, ok := Text(rec[c]).Float()
			if !ok {
				row[header[c]] = Null()
				continue
			}
			row[header[c]] = Number(f)
			s := &colStats[c]
			if !s.seen || f < s.min {
				s.min = f
			}
			if !s.seen || f > s.max {
				s.max = f
			}
			s.seen = true
		}
		if _, dup := out.rows[cell]; !dup {
			out.cells = append(out.cells, cell)
		}
		out.rows[cell] = row
	}

	for _, c := range cols {
		s := colStats[c]
		if !s.seen {
			for _, row := range out.rows {
				delete(row, header[c])
			}
			continue
		}
		name := header[c]
		label, ok := layer.Labels[name]
		if !ok {
			label = Humanize(name)
		}
		lo, hi := s.min, s.max
		out.Variables = append(out.Variables, catalog.Field{
			ID:    name,
			Label: label,
			Kind:  catalog.Numeric,
			Min:   &lo,
			Max:   &hi,
		})
	}
	return out, nil
}

// Humanize turns a column name into a display label.
func Humanize(name string) string {
	if name == "" {
		return ""
	}
	label := strings.ReplaceAll(name, "_", " ")
	label = strings.ReplaceAll(label, "pct", "%")
	label = strings.ReplaceAll(label, "per km2", "/km²")
	return titleCase(label)
}

// titleCase upper-cases a letter that follows a non-letter and lower-cases
// the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
