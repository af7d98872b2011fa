package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(retryAttempts, retryExhausted)
}

var (
	retryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Backoff retry attempts by operation name.",
		},
		[]string{"op"},
	)

	retryExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_exhausted_total",
			Help: "Operations that failed after exhausting all retries.",
		},
		[]string{"op"},
	)
)

func IncRetryAttempt(op string)   { retryAttempts.WithLabelValues(norm(op)).Inc() }
func IncRetryExhausted(op string) { retryExhausted.WithLabelValues(norm(op)).Inc() }
