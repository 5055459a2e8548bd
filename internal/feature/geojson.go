package feature

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
)

// ParsePoints decodes a GeoJSON FeatureCollection into point features.
// Features without point geometry are skipped.
func ParsePoints(data []byte, idFields []string) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrap(err, "feature: parse geojson")
	}

	features := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		props := make(map[string]Value, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = FromAny(v)
		}
		features = append(features, Feature{
			ID:         deriveID(props, idFields, len(features)),
			Lat:        p.Lat(),
			Lon:        p.Lon(),
			Properties: props,
		})
	}
	return features, nil
}
