package catalog

// FieldKind distinguishes how a colorable field is legended.
type FieldKind string

const (
	Numeric     FieldKind = "numeric"
	Categorical FieldKind = "categorical"
)

// Field is an attribute that can drive marker or cell color.
// Min and Max are nominal bounds used when the data has no numeric values.
type Field struct {
	ID         string    `yaml:"id" json:"id" doc:"Property name in the source data" example:"pv_system_kwp"`
	Label      string    `yaml:"label" json:"label" doc:"Display label"`
	Kind       FieldKind `yaml:"type" json:"type" enum:"numeric,categorical" doc:"Legend kind"`
	Min        *float64  `yaml:"min,omitempty" json:"min,omitempty" doc:"Nominal minimum"`
	Max        *float64  `yaml:"max,omitempty" json:"max,omitempty" doc:"Nominal maximum"`
	Categories []string  `yaml:"categories,omitempty" json:"categories,omitempty" doc:"Known categories, informational only"`
}

// DetailField is a property shown in the detail panel.
type DetailField struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// Display controls how a feature is titled in the list and detail panel.
type Display struct {
	TitleField     string   `yaml:"title_field,omitempty" json:"title_field,omitempty"`
	SubtitleFields []string `yaml:"subtitle_fields,omitempty" json:"subtitle_fields,omitempty"`
	MetaField      string   `yaml:"meta_field,omitempty" json:"meta_field,omitempty"`
	MetaLabel      string   `yaml:"meta_label,omitempty" json:"meta_label,omitempty"`
}

// Dataset describes one point dataset.
type Dataset struct {
	ID           string        `yaml:"id" json:"id" doc:"Dataset ID" example:"yeeap"`
	Label        string        `yaml:"label" json:"label" doc:"Display label"`
	Path         string        `yaml:"path" json:"path" doc:"Source file relative to the data dir (.geojson, .json or .shp)"`
	IDFields     []string      `yaml:"id_fields,omitempty" json:"id_fields,omitempty" doc:"Properties tried in order to identify a feature"`
	ColorFields  []Field       `yaml:"color_fields" json:"color_fields"`
	DetailFields []DetailField `yaml:"detail_fields" json:"detail_fields"`
	Display      Display       `yaml:"display" json:"display"`
}

// ColorField returns the colorable field with the given id.
func (d Dataset) ColorField(id string) (Field, bool) {
	for _, f := range d.ColorFields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// GridLayer describes one indicator table joined to the hexagonal grid.
type GridLayer struct {
	ID     string            `yaml:"id" json:"id" example:"climate"`
	Label  string            `yaml:"label" json:"label"`
	Path   string            `yaml:"path" json:"path" doc:"CSV file relative to the data dir"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty" doc:"Column label overrides"`
}

// Grid holds the shared cell geometry and the layers joined to it.
type Grid struct {
	Geometry string      `yaml:"geometry" json:"geometry" doc:"Polygon GeoJSON relative to the data dir"`
	Key      string      `yaml:"key" json:"key" doc:"Cell id property and CSV key column" example:"h3_05"`
	Layers   []GridLayer `yaml:"layers" json:"layers"`
}
