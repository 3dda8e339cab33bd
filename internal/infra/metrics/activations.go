package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		activationsTotal,
		grantsTotal,
		transactionsExpiredTotal,
	)
}

var (
	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_activations_total",
			Help: "Entitlement activations by transaction kind.",
		},
		[]string{"kind"},
	)

	grantsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_grants_total",
			Help: "Bundled grants by grant kind and result.",
		},
		[]string{"grant", "result"}, // result: ok|failed
	)

	transactionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_expired_total",
			Help: "Total number of overdue transactions moved to EXPIRED.",
		},
	)
)

func IncActivation(kind string) {
	activationsTotal.WithLabelValues(norm(kind)).Inc()
}

func IncGrant(grant string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	grantsTotal.WithLabelValues(norm(grant), result).Inc()
}

func IncTransactionsExpired(count int) {
	transactionsExpiredTotal.Add(float64(count))
}
