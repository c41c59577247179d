package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(remindersSentTotal, azanBroadcastsTotal) }

var (
	remindersSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Reminder deliveries by phase and status.",
		},
		[]string{"phase", "status"}, // status: 'sent', 'failed', 'duplicate'
	)

	azanBroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azan_broadcasts_total",
			Help: "Azan audio broadcasts by status.",
		},
		[]string{"status"}, // 'sent', 'failed', 'dropped'
	)
)

func IncReminder(phase, status string) {
	remindersSentTotal.WithLabelValues(norm(phase), norm(status)).Inc()
}

func IncAzan(status string) {
	azanBroadcastsTotal.WithLabelValues(norm(status)).Inc()
}
