// Package metrics declares the Prometheus instrumentation surface for an
// Engine, grounded on the teacher's pkg/metrics registry-plus-promauto
// pattern but scoped to the pathfinding engine's own components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric an Engine updates. One Registry per Engine
// instance; construct with NewRegistry(prometheus.NewRegistry()) or share
// an existing *prometheus.Registry across subsystems.
type Registry struct {
	registry *prometheus.Registry

	QueueDepth          prometheus.Gauge
	BlockedWorkers      prometheus.Gauge
	ReceiverCount       prometheus.Gauge
	ReturnDrainBatch    prometheus.Histogram
	WorkItemRunDuration prometheus.Histogram
	FloodFillComponents prometheus.Gauge
	FloodFillRuns       prometheus.Counter
	GraphUpdatesApplied *prometheus.CounterVec
	PathsStarted        prometheus.Counter
	PathsReturned       *prometheus.CounterVec
	PathSearchDuration  prometheus.Histogram
	EngineTerminated    prometheus.Gauge
}

// NewRegistry constructs and registers every metric against reg.
func NewRegistry(reg *prometheus.Registry) *Registry {
	r := &Registry{registry: reg}
	r.initQueueMetrics()
	r.initWorkItemMetrics()
	r.initFloodFillMetrics()
	r.initGraphUpdateMetrics()
	r.initPathMetrics()
	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry, for
// wiring an HTTP /metrics handler.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

func (r *Registry) initQueueMetrics() {
	r.QueueDepth = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "pathengine_queue_depth",
		Help: "Number of paths currently waiting in the PathQueue",
	})
	r.BlockedWorkers = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "pathengine_blocked_workers",
		Help: "Number of SearchWorkers currently parked (blocked) on the PathQueue",
	})
	r.ReceiverCount = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "pathengine_receiver_count",
		Help: "Number of registered PathQueue receivers (workers)",
	})
	r.EngineTerminated = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "pathengine_terminated",
		Help: "1 once the engine has been Terminate-d, 0 otherwise",
	})
}

func (r *Registry) initWorkItemMetrics() {
	r.ReturnDrainBatch = promauto.With(r.registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "pathengine_return_drain_batch_size",
		Help:    "Number of paths returned per ReturnPipeline.Drain call",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
	})
	r.WorkItemRunDuration = promauto.With(r.registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "pathengine_workitem_run_duration_seconds",
		Help:    "Wall time spent in one WorkItemRunner.Run call",
		Buckets: prometheus.DefBuckets,
	})
}

func (r *Registry) initFloodFillMetrics() {
	r.FloodFillComponents = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "pathengine_floodfill_components",
		Help: "Number of connected components labelled by the last FloodFill run",
	})
	r.FloodFillRuns = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "pathengine_floodfill_runs_total",
		Help: "Total number of FloodFill runs",
	})
}

func (r *Registry) initGraphUpdateMetrics() {
	r.GraphUpdatesApplied = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathengine_graph_updates_applied_total",
			Help: "Total number of GraphUpdates applied, by threading class",
		},
		[]string{"threading_class"},
	)
}

func (r *Registry) initPathMetrics() {
	r.PathsStarted = promauto.With(r.registry).NewCounter(prometheus.CounterOpts{
		Name: "pathengine_paths_started_total",
		Help: "Total number of paths accepted via StartPath",
	})
	r.PathsReturned = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathengine_paths_returned_total",
			Help: "Total number of paths returned to callers, by outcome",
		},
		[]string{"outcome"},
	)
	r.PathSearchDuration = promauto.With(r.registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "pathengine_path_search_duration_seconds",
		Help:    "Duration of a path search from Processing to ReturnQueue",
		Buckets: prometheus.DefBuckets,
	})
}
