package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qmllink_parsing_seconds",
		Help:    "Time spent parsing a QML or JavaScript document.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ParseCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qmllink_parse_cache_total",
		Help: "Parse cache lookups by result.",
	}, []string{"result"})

	LinkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qmllink_link_seconds",
		Help:    "Time spent linking a snapshot.",
		Buckets: prometheus.DefBuckets,
	})

	LinkDiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qmllink_link_diagnostics_total",
		Help: "Diagnostics produced while linking, by severity.",
	}, []string{"severity"})

	SnapshotDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qmllink_snapshot_documents",
		Help: "Number of documents in the current snapshot.",
	})

	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qmllink_search_seconds",
		Help:    "Time spent on a usage search.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	SearchUsagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qmllink_search_usages_total",
		Help: "Total number of usages reported by searches.",
	})

	SearchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qmllink_searches_in_flight",
		Help: "Number of usage searches currently running.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qmllink_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RelinksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qmllink_relinks_total",
		Help: "Snapshot relinks triggered by file changes, by outcome.",
	}, []string{"outcome"})
)
