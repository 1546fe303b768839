package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReconcilePassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulesync_reconcile_passes_total",
			Help: "Total number of reconciliation passes by outcome (count)",
		},
		[]string{"outcome"},
	)

	RuleActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulesync_rule_actions_total",
			Help: "Total number of rule add/remove actions issued to the broker (count)",
		},
		[]string{"action"},
	)

	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rulesync_reconcile_duration_ms",
			Help:    "Duration of a full reconciliation pass in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"outcome"},
	)

	DesiredRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rulesync_desired_rules",
			Help: "Number of rules in the last generated desired set (count)",
		},
	)

	DeployedRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rulesync_deployed_rules",
			Help: "Number of rules observed on the broker in the last pass (count)",
		},
	)

	ManagementRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulesync_management_requests_total",
			Help: "Total number of broker management API requests (count)",
		},
		[]string{"operation", "status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulesync_retry_attempts_total",
			Help: "Total number of retry attempts against the management API (count)",
		},
		[]string{"operation"},
	)

	RateLimitedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulesync_rate_limited_requests_total",
			Help: "Total number of admin API requests rejected by rate limiting (count)",
		},
		[]string{"client_ip"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rulesync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulesync_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulesync_circuit_breaker_failures_total",
			Help: "Total number of failed requests through circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterReconcilerMetrics() {
	prometheus.MustRegister(
		ReconcilePassesTotal,
		RuleActionsTotal,
		ReconcileDuration,
		DesiredRules,
		DeployedRules,
	)
}

func RegisterManagementClientMetrics() {
	prometheus.MustRegister(
		ManagementRequestsTotal,
		RetryAttemptsTotal,
	)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitedRequestsTotal)
}

func ObserveReconcileDuration(d time.Duration, outcome string) {
	ReconcileDuration.WithLabelValues(outcome).Observe(float64(d.Milliseconds()))
}
