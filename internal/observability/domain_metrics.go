package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_chat_requests_total",
			Help: "Total number of chat pipeline runs by terminal outcome.",
		},
		[]string{"outcome"},
	)
	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_model_calls_total",
			Help: "Total number of text-generation calls by pipeline stage.",
		},
		[]string{"stage"},
	)
	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reviewlens_model_call_duration_seconds",
			Help:    "Text-generation call latency by pipeline stage.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"stage"},
	)
	sqlExecutionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reviewlens_sql_execution_failures_total",
			Help: "Total number of SQL executions degraded to an empty result set.",
		},
	)
	dashboardBuildDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reviewlens_dashboard_build_duration_seconds",
			Help:    "Dashboard aggregation latency by dashboard identity.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"dashboard"},
	)
)

func init() {
	prometheus.MustRegister(
		chatRequestsTotal,
		modelCallsTotal,
		modelCallDurationSeconds,
		sqlExecutionFailuresTotal,
		dashboardBuildDurationSeconds,
	)
}

func IncrementChatOutcome(outcome string) {
	chatRequestsTotal.WithLabelValues(outcome).Inc()
}

func ObserveModelCall(stage string, elapsed time.Duration) {
	modelCallsTotal.WithLabelValues(stage).Inc()
	modelCallDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func IncrementSQLExecutionFailure() {
	sqlExecutionFailuresTotal.Inc()
}

func ObserveDashboardBuild(dashboard string, elapsed time.Duration) {
	dashboardBuildDurationSeconds.WithLabelValues(dashboard).Observe(elapsed.Seconds())
}
