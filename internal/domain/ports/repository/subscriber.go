package repository

import (
	"context"

	"salah-reminder-bot/internal/domain/model"
)

// SubscriberDirectory yields the users the reminder engine should consider on a
// tick: subscribed, with reminders enabled and a known location.
type SubscriberDirectory interface {
	ListEligible(ctx context.Context) ([]model.Subscriber, error)
}
