package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		notificationsTotal,
		workerTasksTotal,
	)
}

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by channel and result.",
		},
		[]string{"channel", "result"}, // result: sent|failed|skipped|duplicate
	)

	workerTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_total",
			Help: "Worker pool tasks by outcome.",
		},
		[]string{"status"}, // 'completed', 'failed', 'dropped'
	)
)

func IncNotification(channel, result string) {
	notificationsTotal.WithLabelValues(norm(channel), norm(result)).Inc()
}

func IncWorkerTask(status string) {
	workerTasksTotal.WithLabelValues(norm(status)).Inc()
}
