package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Dispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_dispatches_total",
			Help: "View-state triggers applied, by trigger and outcome",
		},
		[]string{"trigger", "status"},
	)

	PanelRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_panel_renders_total",
			Help: "Panels re-rendered by the synchronizer",
		},
		[]string{"panel", "status"},
	)

	LoaderCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_loader_cache_total",
			Help: "Feature loader lookups by kind and result (hit or miss)",
		},
		[]string{"kind", "result"},
	)

	LoadLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_load_latency_seconds",
			Help:    "Time to read and parse a dataset or grid from disk",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	TileCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_tile_cache_total",
			Help: "Grid vector tile cache lookups by result",
		},
		[]string{"result"},
	)

	Sessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "explorer_sessions",
			Help: "Live explorer sessions",
		},
	)
)
