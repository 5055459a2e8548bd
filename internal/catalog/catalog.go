// Package catalog is the static registry of point datasets and grid layers
// the explorer can show. The registry is closed: ids that are not listed
// here are rejected everywhere else.
package catalog

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DefaultIDFields are tried in order when a dataset does not list its own.
var DefaultIDFields = []string{"id", "Subproject_ID", "name", "facility_name"}

// Catalog is the parsed registry.
type Catalog struct {
	Datasets []Dataset `yaml:"datasets" json:"datasets"`
	Grid     Grid      `yaml:"grid" json:"grid"`

	datasets map[string]int
	layers   map[string]int
}

// Default returns the embedded Yemen catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "catalog: parse yaml")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids and field kinds and builds the lookup indexes.
func (c *Catalog) Validate() error {
	if len(c.Datasets) == 0 {
		return eris.New("catalog: no datasets")
	}
	c.datasets = make(map[string]int, len(c.Datasets))
	for i := range c.Datasets {
		d := &c.Datasets[i]
		if d.ID == "" {
			return eris.Errorf("catalog: dataset %d has no id", i)
		}
		if _, dup := c.datasets[d.ID]; dup {
			return eris.Errorf("catalog: duplicate dataset %q", d.ID)
		}
		if d.Label == "" {
			d.Label = d.ID
		}
		if len(d.IDFields) == 0 {
			d.IDFields = DefaultIDFields
		}
		seen := map[string]bool{}
		for _, f := range d.ColorFields {
			if err := validateField(f); err != nil {
				return eris.Wrapf(err, "catalog: dataset %q", d.ID)
			}
			if seen[f.ID] {
				return eris.Errorf("catalog: dataset %q: duplicate field %q", d.ID, f.ID)
			}
			seen[f.ID] = true
		}
		c.datasets[d.ID] = i
	}

	if c.Grid.Key == "" {
		c.Grid.Key = "h3_05"
	}
	c.layers = make(map[string]int, len(c.Grid.Layers))
	for i, l := range c.Grid.Layers {
		if l.ID == "" {
			return eris.Errorf("catalog: grid layer %d has no id", i)
		}
		if _, dup := c.layers[l.ID]; dup {
			return eris.Errorf("catalog: duplicate grid layer %q", l.ID)
		}
		c.layers[l.ID] = i
	}
	return nil
}

func validateField(f Field) error {
	if f.ID == "" {
		return eris.New("field has no id")
	}
	switch f.Kind {
	case Numeric:
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return eris.Errorf("field %q: min %v > max %v", f.ID, *f.Min, *f.Max)
		}
	case Categorical:
	default:
		return eris.Errorf("field %q: unknown type %q", f.ID, f.Kind)
	}
	return nil
}

// Dataset returns the dataset with the given id.
func (c *Catalog) Dataset(id string) (Dataset, bool) {
	i, ok := c.datasets[id]
	if !ok {
		return Dataset{}, false
	}
	return c.Datasets[i], true
}

// FirstDataset is the dataset shown on startup.
func (c *Catalog) FirstDataset() Dataset {
	return c.Datasets[0]
}

// GridLayer returns the grid layer with the given id.
func (c *Catalog) GridLayer(id string) (GridLayer, bool) {
	i, ok := c.layers[id]
	if !ok {
		return GridLayer{}, false
	}
	return c.Grid.Layers[i], true
}

// Marshal encodes the catalog back to YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: marshal yaml")
	}
	return out, nil
}
