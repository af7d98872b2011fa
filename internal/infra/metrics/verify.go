package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		verifyRequests,
		verifyDuration,
		reconcilerRuns,
	)
}

var (
	// Count of verify calls grouped by result and bounded reason.
	// result: ok|fail
	// reason (fail only): http_error|network|not_succeeded|unknown
	verifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of backend verify-payment calls by result and reason.",
		},
		[]string{"result", "reason"},
	)

	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of backend verify-payment calls in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)

	// Reconciler passes grouped by outcome per attempt (reverified|failed).
	reconcilerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_reconciler_attempts_total",
			Help: "Stale attempts handled by the verify reconciler by outcome.",
		},
		[]string{"outcome"},
	)
)

func IncVerify(result, reason string) {
	verifyRequests.WithLabelValues(norm(result), norm(reason)).Inc()
}

func ObserveVerifyDuration(result string, seconds float64) {
	verifyDuration.WithLabelValues(norm(result)).Observe(seconds)
}

func IncReconciled(outcome string) {
	reconcilerRuns.WithLabelValues(norm(outcome)).Inc()
}
