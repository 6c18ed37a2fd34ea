package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// #region metrics
// Metrics holds the pipeline collectors.
//
//   - recad_runs_total{status}
//   - recad_pattern_matches_total{pattern,source}
//   - recad_cluster_support
//   - recad_dropped_features_total
//   - recad_missing_measurements_total{name}
type Metrics struct {
	Runs                *prometheus.CounterVec
	PatternMatches      *prometheus.CounterVec
	ClusterSupport      prometheus.Histogram
	DroppedFeatures     prometheus.Counter
	MissingMeasurements *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg builds unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recad_runs_total",
				Help: "Total pipeline runs by final status",
			},
			[]string{"status"}, // "complete" | "needs_input" | "no_pattern" | "error"
		),
		PatternMatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recad_pattern_matches_total",
				Help: "Total recognised patterns by name and detection source",
			},
			[]string{"pattern", "source"},
		),
		ClusterSupport: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recad_cluster_support",
				Help:    "Number of agents supporting each aggregated feature",
				Buckets: []float64{1, 2, 3, 4, 5, 8, 13},
			},
		),
		DroppedFeatures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "recad_dropped_features_total",
				Help: "Raw features dropped for an unrecognised type",
			},
		),
		MissingMeasurements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recad_missing_measurements_total",
				Help: "Required measurements absent at the validation gate",
			},
			[]string{"name"},
		),
	}
}

// #endregion metrics

// #region observe
// ObserveClusters records one support count per aggregated feature.
func (m *Metrics) ObserveClusters(sizes []int) {
	for _, n := range sizes {
		m.ClusterSupport.Observe(float64(n))
	}
}

// ObserveMissing counts each missing measurement name.
func (m *Metrics) ObserveMissing(names []string) {
	for _, n := range names {
		m.MissingMeasurements.WithLabelValues(n).Inc()
	}
}

// #endregion observe
