// Package feature loads point datasets and grid indicator tables named by
// the catalog and normalizes them into immutable in-memory records.
package feature

import (
	"strconv"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-explorer/internal/catalog"
)

// Record is anything a field can be read from.
// Absent properties read as null.
type Record interface {
	Lookup(id string) Value
}

// Feature is one point of a dataset.
type Feature struct {
	ID         string           `json:"id"`
	Lat        float64          `json:"lat"`
	Lon        float64          `json:"lon"`
	Properties map[string]Value `json:"properties"`
	Summary    string           `json:"summary,omitempty"`
}

// Lookup implements Record.
func (f Feature) Lookup(id string) Value {
	return f.Properties[id]
}

// Point returns the feature location as lon/lat.
func (f Feature) Point() orb.Point {
	return orb.Point{f.Lon, f.Lat}
}

// Get reads field from r, coerced by the field kind.
// Blank values and numeric fields that do not parse come back null.
func Get(r Record, field catalog.Field) Value {
	raw := r.Lookup(field.ID)
	if raw.Blank() {
		return Null()
	}
	if field.Kind == catalog.Numeric {
		if f, ok := raw.Float(); ok {
			return Number(f)
		}
		return Null()
	}
	return Text(raw.String())
}

// deriveID picks the first truthy id property, else the position.
func deriveID(props map[string]Value, idFields []string, position int) string {
	for _, name := range idFields {
		if v := props[name]; v.Truthy() {
			return v.String()
		}
	}
	return strconv.Itoa(position)
}
