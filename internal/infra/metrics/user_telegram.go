package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		usersRegisteredTotal,
		subscriptionChangesTotal,
		telegramCommandsReceivedTotal,
	)
}

var (
	usersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of new users and groups registered.",
		},
	)

	subscriptionChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_subscription_changes_total",
			Help: "Subscribe and unsubscribe actions.",
		},
		[]string{"action"},
	)

	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages and commands from users.",
		},
		[]string{"command"},
	)
)

func IncUsersRegistered() {
	usersRegisteredTotal.Inc()
}

func IncSubscriptionChange(action string) {
	subscriptionChangesTotal.WithLabelValues(norm(action)).Inc()
}

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}
