package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		transactionsTotal,
		transactionRevenueTotal,
		providerFallbackTotal,
		providerErrorsTotal,
		checkoutRejectedTotal,
	)
}

var (
	transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_total",
			Help: "Transaction status changes by target status and payment method.",
		},
		[]string{"status", "method"},
	)

	transactionRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_revenue_total",
			Help: "The total value of successful transactions, labeled by kind.",
		},
		[]string{"kind"},
	)

	providerFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_provider_fallback_total",
			Help: "Instruments issued through the hosted-invoice fallback, by requested method.",
		},
		[]string{"method"},
	)

	providerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_provider_errors_total",
			Help: "Failed provider calls by gateway.",
		},
		[]string{"gateway"},
	)

	checkoutRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_rejected_total",
			Help: "Checkouts rejected before a transaction was created, by error kind.",
		},
		[]string{"kind"},
	)
)

func IncTransaction(status, method string) {
	transactionsTotal.WithLabelValues(norm(status), norm(method)).Inc()
}

func AddRevenue(kind string, amount int64) {
	transactionRevenueTotal.WithLabelValues(norm(kind)).Add(float64(amount))
}

func IncProviderFallback(method string) {
	providerFallbackTotal.WithLabelValues(norm(method)).Inc()
}

func IncProviderError(gateway string) {
	providerErrorsTotal.WithLabelValues(norm(gateway)).Inc()
}

func IncCheckoutRejected(kind string) {
	checkoutRejectedTotal.WithLabelValues(norm(kind)).Inc()
}
