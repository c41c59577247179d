package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(schedulerTicksTotal, schedulerTickDuration, reminderEligibleUsers)
}

var (
	schedulerTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Reminder ticks by outcome.",
		},
		[]string{"status"}, // 'ok', 'failed', 'panic'
	)

	schedulerTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Wall time of a reminder tick.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	reminderEligibleUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_eligible_users",
			Help: "Users considered on the last reminder tick.",
		},
	)
)

func ObserveTick(status string, d time.Duration) {
	schedulerTicksTotal.WithLabelValues(norm(status)).Inc()
	schedulerTickDuration.Observe(d.Seconds())
}

func SetEligibleUsers(n int) {
	reminderEligibleUsers.Set(float64(n))
}
