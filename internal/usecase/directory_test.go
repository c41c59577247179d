//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/usecase"
)

func TestSubscriberDirectory_ListEligible(t *testing.T) {
	ctx := context.Background()

	newUser := func(id int64, located, subscribed bool) *model.User {
		u, err := model.NewUser(id, "", "", model.LangEnglish)
		if err != nil {
			t.Fatalf("NewUser: %v", err)
		}
		if located {
			u.UpdateLocation(mustLocation(t, 21.4225, 39.8262))
		}
		if subscribed {
			if err := u.Subscribe(); err != nil {
				t.Fatalf("Subscribe: %v", err)
			}
		}
		return u
	}

	t.Run("only subscribed, active users with reminders and a location", func(t *testing.T) {
		repo := NewMockUserRepo()
		eligible := newUser(1, true, true)
		group := newUser(-100, true, true)
		unsubscribed := newUser(2, true, false)
		muted := newUser(3, true, true)
		muted.SetFunctionalities(model.Functionalities{Reminder: false})
		inactive := newUser(4, true, true)
		inactive.IsActive = false
		for _, u := range []*model.User{eligible, group, unsubscribed, muted, inactive} {
			_ = repo.Save(ctx, u)
		}

		subs, err := usecase.NewSubscriberDirectory(repo).ListEligible(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(subs) != 2 {
			t.Fatalf("expected 2 subscribers, got %d: %+v", len(subs), subs)
		}
		if subs[0].ID != -100 || subs[1].ID != 1 {
			t.Errorf("unexpected subscribers: %+v", subs)
		}
	})

	t.Run("repository errors are returned", func(t *testing.T) {
		repo := NewMockUserRepo()
		repo.FindAllSubscribedFunc = func(ctx context.Context) ([]*model.User, error) {
			return nil, errors.New("connection reset")
		}
		if _, err := usecase.NewSubscriberDirectory(repo).ListEligible(ctx); err == nil {
			t.Fatal("expected an error")
		}
	})
}
