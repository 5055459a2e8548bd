// Package panel keeps the explorer's linked views consistent with a
// viewstate.Store. Each dispatched action re-renders only the panels its
// trigger invalidates, in a fixed order.
package panel

import (
	"context"

	"go.uber.org/zap"

	"github.com/joeblew999/plat-explorer/internal/catalog"
	"github.com/joeblew999/plat-explorer/internal/feature"
	"github.com/joeblew999/plat-explorer/internal/metrics"
	"github.com/joeblew999/plat-explorer/internal/viewstate"
)

// Data is the loaded data the panels are built from.
type Data interface {
	viewstate.Source
	Features(ctx context.Context, datasetID string) ([]feature.Feature, error)
	Grid(ctx context.Context) (*feature.Grid, error)
}

// Renderer draws panels. Each method receives a complete view model.
type Renderer interface {
	SiteVariables(ctx context.Context, c Choices) error
	Palettes(ctx context.Context, c Choices) error
	GridVariables(ctx context.Context, c Choices) error
	List(ctx context.Context, l ListView) error
	Markers(ctx context.Context, m MarkerLayer) error
	Viewport(ctx context.Context, v Viewport) error
	Grid(ctx context.Context, g GridView) error
	Detail(ctx context.Context, d DetailView) error
	Scores(ctx context.Context, s ScoreView) error
}

// Synchronizer owns a store and renders its panels.
type Synchronizer struct {
	store *viewstate.Store
	data  Data
	log   *zap.Logger
}

// New creates a synchronizer over a fresh store for data.
func New(data Data) *Synchronizer {
	return &Synchronizer{
		store: viewstate.New(data),
		data:  data,
		log:   zap.L().With(zap.String("component", "panel")),
	}
}

// State returns a snapshot of the view state.
func (s *Synchronizer) State() viewstate.State { return s.store.State() }

// Dispatch applies a and renders the panels it invalidates. Invalid input
// returns an error and renders nothing.
func (s *Synchronizer) Dispatch(ctx context.Context, a viewstate.Action, r Renderer) (viewstate.Panel, error) {
	trigger := a.Trigger()
	panels, err := s.store.Apply(a)
	if err != nil {
		metrics.Dispatches.WithLabelValues(string(trigger), "rejected").Inc()
		return viewstate.None, err
	}
	metrics.Dispatches.WithLabelValues(string(trigger), "ok").Inc()
	s.log.Debug("dispatch", zap.String("trigger", string(trigger)), zap.Stringer("panels", panels))
	s.render(ctx, panels, trigger != viewstate.TriggerDataset, r)
	return panels, nil
}

// RenderAll draws every panel, as for a fresh page.
func (s *Synchronizer) RenderAll(ctx context.Context, r Renderer) {
	s.render(ctx, viewstate.All, true, r)
}

// render draws panels in order. A failing panel is logged and skipped.
// fallback sends an empty dataset's viewport back to the default view.
func (s *Synchronizer) render(ctx context.Context, panels viewstate.Panel, fallback bool, r Renderer) {
	st := s.store.State()
	ds := s.store.Dataset()
	field := s.store.ColorField()
	layer, variable := s.store.GridLayer()

	var features []feature.Feature
	if panels&(viewstate.List|viewstate.Markers|viewstate.Viewport|viewstate.Detail) != 0 {
		features = s.features(ctx, ds)
	}
	var grid *feature.Grid
	if panels&(viewstate.Grid|viewstate.Detail) != 0 {
		g, err := s.data.Grid(ctx)
		if err != nil {
			s.log.Warn("grid unavailable", zap.Error(err))
		}
		grid = g
	}

	panels.Each(func(p viewstate.Panel) {
		if ctx.Err() != nil {
			return
		}
		var err error
		switch p {
		case viewstate.SiteVariables:
			err = r.SiteVariables(ctx, siteVariables(st, ds))
		case viewstate.Palettes:
			err = r.Palettes(ctx, palettes(st, field))
		case viewstate.GridVariables:
			err = r.GridVariables(ctx, gridVariables(layer, variable))
		case viewstate.List:
			err = r.List(ctx, list(st, ds, features))
		case viewstate.Markers:
			err = r.Markers(ctx, markers(st, ds, field, features))
		case viewstate.Viewport:
			err = r.Viewport(ctx, viewport(features, fallback))
		case viewstate.Grid:
			err = r.Grid(ctx, gridView(st, grid, layer, variable))
		case viewstate.Detail:
			err = r.Detail(ctx, detail(st, ds, features, grid, layer))
		case viewstate.Scores:
			err = r.Scores(ctx, scores(st))
		}
		status := "ok"
		if err != nil {
			status = "error"
			s.log.Warn("panel render failed", zap.Stringer("panel", p), zap.Error(err))
		}
		metrics.PanelRenders.WithLabelValues(p.String(), status).Inc()
	})
}

func (s *Synchronizer) features(ctx context.Context, ds catalog.Dataset) []feature.Feature {
	features, err := s.data.Features(ctx, ds.ID)
	if err != nil {
		s.log.Warn("features unavailable", zap.String("dataset", ds.ID), zap.Error(err))
		return nil
	}
	return features
}
