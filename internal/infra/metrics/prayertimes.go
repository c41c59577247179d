package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(prayerScheduleRequestsTotal) }

var prayerScheduleRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "prayer_schedule_requests_total",
		Help: "Upstream prayer schedule lookups by provider and status.",
	},
	[]string{"provider", "status"}, // status: 'ok', 'not_found', 'unavailable'
)

func IncScheduleRequest(provider, status string) {
	prayerScheduleRequestsTotal.WithLabelValues(norm(provider), norm(status)).Inc()
}
