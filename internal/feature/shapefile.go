package feature

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
)

// ReadShapefile reads point features from an ESRI shapefile and its .dbf.
// Numeric dbf columns become numbers; everything else stays text.
func ReadShapefile(path string, idFields []string) ([]Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feature: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var features []Feature
	for reader.Next() {
		_, shape := reader.Shape()
		var x, y float64
		switch s := shape.(type) {
		case *shp.Point:
			x, y = s.X, s.Y
		case *shp.PointZ:
			x, y = s.X, s.Y
		case *shp.PointM:
			x, y = s.X, s.Y
		default:
			continue
		}

		props := make(map[string]Value, len(fields))
		for i, f := range fields {
			raw := strings.Trim(reader.Attribute(i), " \x00")
			props[names[i]] = attributeValue(raw, f.Fieldtype)
		}
		features = append(features, Feature{
			ID:         deriveID(props, idFields, len(features)),
			Lat:        y,
			Lon:        x,
			Properties: props,
		})
	}
	return features, nil
}

func attributeValue(raw string, fieldType byte) Value {
	if raw == "" {
		return Null()
	}
	switch fieldType {
	case 'N', 'F':
		if f, ok := Text(raw).Float(); ok {
			return Number(f)
		}
		return Null()
	case 'L':
		switch raw {
		case "T", "t", "Y", "y":
			return Text("true")
		case "F", "f", "N", "n":
			return Text("false")
		}
		return Null()
	}
	return Text(raw)
}
