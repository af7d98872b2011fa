package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		creditOpsTotal,
		creditsGrantedTotal,
	)
}

var (
	// op: fetch|add|deduct|history, result: ok|error|degraded
	creditOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_ops_total",
			Help: "Credit ledger operations by op and result.",
		},
		[]string{"op", "result"},
	)

	creditsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_granted_total",
			Help: "Credits granted by package type.",
		},
		[]string{"package_type"},
	)
)

func IncCreditOp(op, result string) {
	creditOpsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}

func AddCreditsGranted(pkg string, n int64) {
	creditsGrantedTotal.WithLabelValues(norm(pkg)).Add(float64(n))
}
