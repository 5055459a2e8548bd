package feature

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/metrics"
)

// ErrUnknownDataset is returned for ids that are not in the catalog.
var ErrUnknownDataset = eris.New("feature: unknown dataset")

// LoadFunc is notified after a dataset or the grid is read from disk.
type LoadFunc func(kind, id string, count int)

// Loader reads catalog sources from dataDir and memoizes them for the
// process lifetime. Missing or malformed files load as empty, never fail.
type Loader struct {
	dataDir string
	cat     *catalog.Catalog
	log     *zap.Logger

	// OnLoad, when set, is called once per actual read.
	OnLoad LoadFunc

	mu     sync.RWMutex
	points map[string][]Feature
	grid   *Grid
	group  singleflight.Group
}

// NewLoader creates a loader for cat rooted at dataDir.
func NewLoader(dataDir string, cat *catalog.Catalog) *Loader {
	return &Loader{
		dataDir: dataDir,
		cat:     cat,
		log:     zap.L().With(zap.String("component", "loader")),
		points:  map[string][]Feature{},
	}
}

// Catalog returns the catalog the loader serves.
func (l *Loader) Catalog() *catalog.Catalog { return l.cat }

// Features returns the point features of a dataset.
func (l *Loader) Features(ctx context.Context, datasetID string) ([]Feature, error) {
	ds, ok := l.cat.Dataset(datasetID)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownDataset, "feature: %q", datasetID)
	}

	l.mu.RLock()
	cached, ok := l.points[datasetID]
	l.mu.RUnlock()
	if ok {
		metrics.LoaderCache.WithLabelValues("dataset", "hit").Inc()
		return cached, nil
	}
	metrics.LoaderCache.WithLabelValues("dataset", "miss").Inc()

	v, _, _ := l.group.Do("dataset:"+datasetID, func() (any, error) {
		start := time.Now()
		features := l.readPoints(ds)
		metrics.LoadLatency.WithLabelValues("dataset").Observe(time.Since(start).Seconds())

		l.mu.Lock()
		l.points[datasetID] = features
		l.mu.Unlock()
		if l.OnLoad != nil {
			l.OnLoad("dataset", datasetID, len(features))
		}
		return features, nil
	})
	return v.([]Feature), nil
}

// FeatureCount is the number of features in a dataset, loading it if needed.
func (l *Loader) FeatureCount(datasetID string) int {
	features, err := l.Features(context.Background(), datasetID)
	if err != nil {
		return 0
	}
	return len(features)
}

func (l *Loader) readPoints(ds catalog.Dataset) []Feature {
	path := l.resolve(ds.Path)
	log := l.log.With(zap.String("dataset", ds.ID), zap.String("path", path))

	var (
		features []Feature
		err      error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		if _, statErr := os.Stat(path); statErr != nil {
			err = statErr
			break
		}
		features, err = ReadShapefile(path, ds.IDFields)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			features, err = ParsePoints(data, ds.IDFields)
		}
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("dataset file missing")
		return []Feature{}
	case err != nil:
		log.Warn("dataset unreadable", zap.Error(err))
		return []Feature{}
	}
	log.Info("dataset loaded", zap.Int("features", len(features)))
	if features == nil {
		features = []Feature{}
	}
	return features
}

// Grid returns the grid geometry and every indicator layer that loaded.
func (l *Loader) Grid(ctx context.Context) (*Grid, error) {
	l.mu.RLock()
	cached := l.grid
	l.mu.RUnlock()
	if cached != nil {
		metrics.LoaderCache.WithLabelValues("grid", "hit").Inc()
		return cached, nil
	}
	metrics.LoaderCache.WithLabelValues("grid", "miss").Inc()

	v, err, _ := l.group.Do("grid", func() (any, error) {
		start := time.Now()
		g, err := l.readGrid(ctx)
		if err != nil {
			return nil, err
		}
		metrics.LoadLatency.WithLabelValues("grid").Observe(time.Since(start).Seconds())

		l.mu.Lock()
		l.grid = g
		l.mu.Unlock()
		if l.OnLoad != nil {
			l.OnLoad("grid", "", len(g.Layers))
		}
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Grid), nil
}

// GridLayer returns a loaded grid layer, loading the grid if needed.
func (l *Loader) GridLayer(id string) (*Layer, bool) {
	g, err := l.Grid(context.Background())
	if err != nil {
		return nil, false
	}
	return g.Layer(id)
}

func (l *Loader) readGrid(ctx context.Context) (*Grid, error) {
	spec := l.cat.Grid
	grid := &Grid{Key: spec.Key}

	if spec.Geometry != "" {
		path := l.resolve(spec.Geometry)
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			l.log.Debug("grid geometry missing", zap.String("path", path))
		case err != nil:
			l.log.Warn("grid geometry unreadable", zap.String("path", path), zap.Error(err))
		default:
			cells, err := ParseGridGeometry(data, spec.Key)
			if err != nil {
				l.log.Warn("grid geometry malformed", zap.String("path", path), zap.Error(err))
			}
			grid.Cells = cells
		}
	}

	layers := make([]*Layer, len(spec.Layers))
	g, gctx := errgroup.WithContext(ctx)
	for i, layer := range spec.Layers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			layers[i] = l.readLayer(layer, spec.Key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "feature: load grid layers")
	}
	for _, layer := range layers {
		if layer != nil {
			grid.Layers = append(grid.Layers, layer)
		}
	}
	l.log.Info("grid loaded", zap.Int("cells", len(grid.Cells)), zap.Int("layers", len(grid.Layers)))
	return grid, nil
}

func (l *Loader) readLayer(layer catalog.GridLayer, key string) *Layer {
	path := l.resolve(layer.Path)
	log := l.log.With(zap.String("layer", layer.ID), zap.String("path", path))

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("grid layer missing")
		return nil
	}
	if err != nil {
		log.Warn("grid layer unreadable", zap.Error(err))
		return nil
	}
	defer f.Close()

	parsed, err := ParseTable(f, layer, key)
	if err != nil {
		log.Warn("grid layer skipped", zap.Error(err))
		return nil
	}
	return parsed
}

func (l *Loader) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.dataDir, path)
}
