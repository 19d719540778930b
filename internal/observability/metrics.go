package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "scalpel_qa"

var (
	metricRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "runs_total",
		Help:      "Completed test runs by terminal status.",
	}, []string{"status"})
	metricRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of test runs.",
		Buckets:   []float64{5, 10, 20, 30, 60, 120, 300},
	})
	metricActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "actions_total",
		Help:      "Executed plan actions by type and status.",
	}, []string{"type", "status"})
	metricLLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "llm_requests_total",
		Help:      "Reasoning service calls by provider and outcome.",
	}, []string{"provider", "outcome"})
	metricRunsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "runs_in_flight",
		Help:      "Runs currently executing.",
	})
)

// RecordRun counts a finished run.
func RecordRun(status string, duration time.Duration) {
	metricRunsTotal.WithLabelValues(status).Inc()
	metricRunDuration.Observe(duration.Seconds())
}

// RecordAction counts an executed action.
func RecordAction(actionType, status string) {
	metricActionsTotal.WithLabelValues(actionType, status).Inc()
}

// RecordLLMRequest counts a reasoning service call.
func RecordLLMRequest(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metricLLMRequests.WithLabelValues(provider, outcome).Inc()
}

// RunStarted marks a run as in flight and returns the func that ends it.
func RunStarted() func() {
	metricRunsInFlight.Inc()
	return metricRunsInFlight.Dec
}
