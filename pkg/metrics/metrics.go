package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the fusion pipeline and
// the prediction ledger.
type Metrics struct {
	registry *prometheus.Registry

	RowsLoaded          *prometheus.CounterVec // by input source
	MalformedRows       *prometheus.CounterVec // dropped before aggregation
	DuplicateRows       *prometheus.CounterVec
	JoinMisses          *prometheus.CounterVec // default-filled rows, by stream
	FeatureRows         prometheus.Counter
	PredictionsLogged   prometheus.Counter
	PredictionsResolved prometheus.Counter
	RunDuration         *prometheus.HistogramVec // by stage
}

// New creates the metric set on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_rows_loaded_total",
			Help: "Rows accepted from each tabular input.",
		}, []string{"source"}),
		MalformedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_malformed_rows_total",
			Help: "Rows dropped before aggregation (null price, date, or key).",
		}, []string{"source"}),
		DuplicateRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_duplicate_rows_total",
			Help: "Rows discarded by (date, entity) deduplication.",
		}, []string{"source"}),
		JoinMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_join_misses_total",
			Help: "Spine rows with no event match inside tolerance, default-filled.",
		}, []string{"stream"}),
		FeatureRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signals_feature_rows_total",
			Help: "Fused feature rows composed.",
		}),
		PredictionsLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signals_predictions_logged_total",
			Help: "New prediction records appended to the ledger.",
		}),
		PredictionsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signals_predictions_resolved_total",
			Help: "Pending predictions resolved by reconciliation.",
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signals_run_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
	}

	reg.MustRegister(
		m.RowsLoaded, m.MalformedRows, m.DuplicateRows, m.JoinMisses,
		m.FeatureRows, m.PredictionsLogged, m.PredictionsResolved, m.RunDuration,
	)

	return m
}

// Handler exposes the registry for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
