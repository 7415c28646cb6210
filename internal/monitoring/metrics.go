// Package monitoring exposes Prometheus metrics for long-running parameter
// sweeps so progress can be scraped while a sweep is in flight.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Evaluation outcome labels.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusInvalid   = "invalid"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knn_sweep_evaluations_total",
			Help: "Total number of parameter evaluations by outcome",
		},
		[]string{"status"},
	)

	sweepProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "knn_sweep_progress_ratio",
			Help: "Fraction of planned evaluations finished",
		},
	)

	bestScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "knn_sweep_best_score",
			Help: "Best ranking-metric value observed so far",
		},
		[]string{"metric"},
	)

	evaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "knn_sweep_evaluation_duration_seconds",
			Help:    "Distribution of single-evaluation wall time",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(evaluationsTotal)
	prometheus.MustRegister(sweepProgress)
	prometheus.MustRegister(bestScore)
	prometheus.MustRegister(evaluationDuration)
}

// RecordEvaluation counts one evaluation outcome and its duration.
func RecordEvaluation(status string, seconds float64) {
	evaluationsTotal.WithLabelValues(status).Inc()
	if status == StatusCompleted {
		evaluationDuration.Observe(seconds)
	}
}

// SetProgress publishes the completed/total ratio.
func SetProgress(ratio float64) {
	sweepProgress.Set(ratio)
}

// SetBestScore publishes the current best value of the ranking metric.
func SetBestScore(metric string, value float64) {
	bestScore.WithLabelValues(metric).Set(value)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr in a background goroutine. Errors are
// returned through the channel since the sweep must not die with the
// metrics endpoint.
func Serve(addr string) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", Handler())
		errCh <- http.ListenAndServe(addr, mux)
	}()
	return errCh
}
