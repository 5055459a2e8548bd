// Package tiler renders the hexagon grid as Mapbox vector tiles on demand,
// and can bundle a zoom range of them into a PMTiles archive.
//
// Uses paulmach/orb for clipping, simplification and MVT encoding. Grid
// geometry never changes during a process lifetime, so rendered tiles are
// kept in a bounded cache.
package tiler

import (
	"context"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-explorer/internal/feature"
	"github.com/joeblew999/plat-explorer/internal/metrics"
)

// Limits.
const (
	MaxZoom          = 14
	DefaultCacheSize = 512
	LayerName        = "grid"
)

// ErrOutOfRange is returned for tile coordinates outside the pyramid.
var ErrOutOfRange = eris.New("tiler: tile out of range")

// Source provides the grid geometry.
type Source interface {
	Grid(ctx context.Context) (*feature.Grid, error)
}

// Tiler renders and caches grid tiles.
type Tiler struct {
	src  Source
	size int
	log  *zap.Logger

	mu    sync.Mutex
	cache map[maptile.Tile][]byte
	order []maptile.Tile
}

// New creates a tiler over src holding at most size tiles. A size of zero
// uses DefaultCacheSize.
func New(src Source, size int) *Tiler {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Tiler{
		src:   src,
		size:  size,
		log:   zap.L().With(zap.String("component", "tiler")),
		cache: make(map[maptile.Tile][]byte, size),
	}
}

// Tile returns the gzipped MVT for z/x/y. A tile with no cells is nil.
func (t *Tiler) Tile(ctx context.Context, z, x, y uint32) ([]byte, error) {
	if z > MaxZoom || x >= 1<<z || y >= 1<<z {
		return nil, eris.Wrapf(ErrOutOfRange, "%d/%d/%d", z, x, y)
	}
	tile := maptile.New(x, y, maptile.Zoom(z))

	t.mu.Lock()
	data, ok := t.cache[tile]
	t.mu.Unlock()
	if ok {
		metrics.TileCache.WithLabelValues("hit").Inc()
		return data, nil
	}
	metrics.TileCache.WithLabelValues("miss").Inc()

	g, err := t.src.Grid(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "tiler: load grid")
	}
	data, err = Render(g, tile)
	if err != nil {
		return nil, err
	}
	t.store(tile, data)
	return data, nil
}

// store adds a tile, evicting the oldest entry when full.
func (t *Tiler) store(tile maptile.Tile, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.cache[tile]; ok {
		return
	}
	if len(t.order) >= t.size {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.cache, oldest)
	}
	t.cache[tile] = data
	t.order = append(t.order, tile)
}

// Len is the number of cached tiles.
func (t *Tiler) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cache)
}

// Render encodes the cells of g that touch tile. Each feature carries the
// cell id under the grid key.
func Render(g *feature.Grid, tile maptile.Tile) ([]byte, error) {
	if g == nil || len(g.Cells) == 0 {
		return nil, nil
	}
	bound := tile.Bound()

	fc := geojson.NewFeatureCollection()
	for _, c := range g.Cells {
		if !intersects(c.Geometry, bound) {
			continue
		}
		// Clip and ProjectToTile mutate in place.
		geom := orb.Clone(c.Geometry)
		f := geojson.NewFeature(geom)
		f.Properties[g.Key] = c.ID
		fc.Append(f)
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(LayerName, fc)
	if eps := simplifyEpsilon(tile.Z); eps > 0 {
		layer.Simplify(simplify.DouglasPeucker(eps))
	}
	layer.Clip(bound)
	layer.ProjectToTile(tile)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil, nil
	}

	data, err := mvt.MarshalGzipped(mvt.Layers{layer})
	if err != nil {
		return nil, eris.Wrapf(err, "tiler: encode %d/%d/%d", tile.Z, tile.X, tile.Y)
	}
	return data, nil
}

// intersects reports whether a polygonal geometry touches bound.
func intersects(geom orb.Geometry, bound orb.Bound) bool {
	if !geom.Bound().Intersects(bound) {
		return false
	}
	switch g := geom.(type) {
	case orb.Polygon:
		for _, ring := range g {
			for _, p := range ring {
				if bound.Contains(p) {
					return true
				}
			}
		}
		for _, p := range corners(bound) {
			if planar.PolygonContains(g, p) {
				return true
			}
		}
		return false
	case orb.MultiPolygon:
		for _, poly := range g {
			if intersects(poly, bound) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func corners(b orb.Bound) []orb.Point {
	return []orb.Point{
		b.Min,
		{b.Max[0], b.Min[1]},
		b.Max,
		{b.Min[0], b.Max[1]},
		b.Center(),
	}
}

// tilesIn returns the tiles at zoom covering bound.
func tilesIn(bound orb.Bound, zoom maptile.Zoom) []maptile.Tile {
	lo := maptile.At(bound.Min, zoom)
	hi := maptile.At(bound.Max, zoom)
	minX, maxX := min(lo.X, hi.X), max(lo.X, hi.X)
	minY, maxY := min(lo.Y, hi.Y), max(lo.Y, hi.Y)

	var tiles []maptile.Tile
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			tiles = append(tiles, maptile.New(x, y, zoom))
		}
	}
	return tiles
}

// simplifyEpsilon is the Douglas-Peucker tolerance in degrees. Hexagons at
// resolution 5 are roughly 0.1° across, so detail is kept from zoom 8 up.
func simplifyEpsilon(zoom maptile.Zoom) float64 {
	switch {
	case zoom >= 8:
		return 0
	case zoom >= 6:
		return 0.001
	case zoom >= 4:
		return 0.005
	default:
		return 0.01
	}
}
