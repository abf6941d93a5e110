// Package metrics exposes Prometheus instrumentation for long-running
// optimizer jobs: combinations evaluated/skipped, the running best metric
// value, and active worker count. This is the research analogue of the
// teacher's live-trading order/position/equity gauges — same
// promauto-registered collector idiom, a different vocabulary.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CombinationsEvaluatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantlab_combinations_evaluated_total",
		Help: "Total parameter combinations evaluated by the optimizer.",
	}, []string{"strategy"})

	CombinationsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantlab_combinations_skipped_total",
		Help: "Total parameter combinations skipped for failing min_trades or evaluation errors.",
	}, []string{"strategy", "reason"})

	BestMetricValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quantlab_best_metric_value",
		Help: "Current best value of the configured optimize_metric for the in-progress run.",
	}, []string{"strategy", "metric"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quantlab_optimizer_active_workers",
		Help: "Number of optimizer worker goroutines currently evaluating a combination.",
	})

	RunDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quantlab_run_duration_seconds",
		Help:    "Wall-clock duration of a backtest or optimizer run.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"kind"})
)
