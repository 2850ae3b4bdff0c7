package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set holds the pipeline's Prometheus collectors.
type Set struct {
	RunsTotal          *prometheus.CounterVec
	SourcesExcluded    prometheus.Counter
	ConflictsDetected  prometheus.Counter
	RunDuration        prometheus.Histogram
	DecisionConfidence prometheus.Histogram
}

// NewSet registers the pipeline metrics on the given registerer.
func NewSet(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aisignal_runs_total",
			Help: "Synthesis runs by outcome (decision, insufficient_evidence, missing_market_data, error)",
		}, []string{"outcome"}),
		SourcesExcluded: factory.NewCounter(prometheus.CounterOpts{
			Name: "aisignal_sources_excluded_total",
			Help: "Sources excluded from the weighted vote",
		}),
		ConflictsDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "aisignal_conflicts_detected_total",
			Help: "Cross-source conflicts detected",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aisignal_run_duration_seconds",
			Help:    "End-to-end synthesis run duration",
			Buckets: prometheus.DefBuckets,
		}),
		DecisionConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aisignal_decision_confidence",
			Help:    "Final decision confidence distribution",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}
