package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		purchasesTotal,
		purchaseDuration,
		paymentsRevenueTotal,
		intentsCreatedTotal,
	)
}

var (
	// Purchase attempts by terminal state (succeeded/failed) and failure code.
	purchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Purchase attempts by terminal state and failure code.",
		},
		[]string{"state", "code"},
	)

	purchaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "purchase_duration_seconds",
			Help:    "End-to-end duration of the purchase flow in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"state"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	intentsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_intents_created_total",
			Help: "Count of payment intents created on the backend.",
		},
	)
)

func IncPurchase(state, code string) {
	purchasesTotal.WithLabelValues(norm(state), norm(code)).Inc()
}

func ObservePurchaseDuration(state string, seconds float64) {
	purchaseDuration.WithLabelValues(norm(state)).Observe(seconds)
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncIntentCreated() { intentsCreatedTotal.Inc() }
