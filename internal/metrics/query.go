package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query pipeline Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queries_total",
			Help:      "Queries handled, by retrieval strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	DocumentsRetrieved = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "documents_per_query",
			Help:      "Documents per query before and after access filtering",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"stage"}, // "retrieved" / "kept"
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generator call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "model"},
	)

	GenerationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generation_errors_total",
			Help:      "Generator failures",
		},
		[]string{"provider", "model", "error_type"},
	)

	HallucinationSuspectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "hallucination_suspected_total",
			Help:      "Answers flagged by the consistency check",
		},
		[]string{"strategy"},
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers query pipeline metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(DocumentsRetrieved)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(GenerationErrorsTotal)
	prometheus.MustRegister(HallucinationSuspectedTotal)
	queryMetricsRegistered = true
}
