package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookEventsTotal,
		httpRequestDuration,
	)
}

var (
	// result: ok|ignored|bad_signature|unknown_transaction|error
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Provider webhook deliveries by event type and result.",
		},
		[]string{"event", "result"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP handlers in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "status"},
	)
)

func IncWebhookEvent(event, result string) {
	if event == "" {
		event = "unknown"
	}
	webhookEventsTotal.WithLabelValues(norm(event), norm(result)).Inc()
}

func ObserveHTTP(route string, status int, seconds float64) {
	httpRequestDuration.WithLabelValues(route, statusClass(status)).Observe(seconds)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}
