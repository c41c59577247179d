package usecase

import (
	"context"

	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.SubscriberDirectory = (*subscriberDirectory)(nil)

// subscriberDirectory projects stored users into reminder subscribers.
type subscriberDirectory struct {
	users repository.UserRepository
}

func NewSubscriberDirectory(users repository.UserRepository) *subscriberDirectory {
	return &subscriberDirectory{users: users}
}

// ListEligible returns subscribed, active users with reminders enabled and a location.
func (d *subscriberDirectory) ListEligible(ctx context.Context) ([]model.Subscriber, error) {
	users, err := d.users.FindAllSubscribed(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Subscriber, 0, len(users))
	for _, u := range users {
		if u == nil || !u.IsActive {
			continue
		}
		if sub, ok := u.Subscriber(); ok {
			out = append(out, sub)
		}
	}
	return out, nil
}
