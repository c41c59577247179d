package usecase

import (
	"context"
	"errors"
	"fmt"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/repository"
	"salah-reminder-bot/internal/infra/logging"
	"salah-reminder-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes the onboarding and preference operations used by the bot.
type UserUseCase interface {
	RegisterOrFetch(ctx context.Context, id int64, username, displayName string, lang model.Language) (*model.User, bool, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	UpdateLocation(ctx context.Context, id int64, lat, lng float64) (*model.User, error)
	// Subscribe returns changed=false when reminders were already on.
	Subscribe(ctx context.Context, id int64) (changed bool, err error)
	// Unsubscribe returns changed=false when the user was not subscribed.
	Unsubscribe(ctx context.Context, id int64) (changed bool, err error)
	ChangeLanguage(ctx context.Context, id int64, lang model.Language) error
	SetReminder(ctx context.Context, id int64, enabled bool) error
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *userUC {
	return &userUC{
		users: users,
		log:   logging.Component(logger, "user_uc"),
	}
}

// RegisterOrFetch returns the stored user, refreshing the profile, or creates
// one. created reports whether the user is new.
func (u *userUC) RegisterOrFetch(ctx context.Context, id int64, username, displayName string, lang model.Language) (*model.User, bool, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	usr, err := u.users.FindByID(ctx, id)
	switch {
	case err == nil:
		if usr.Username != username || (displayName != "" && usr.DisplayName != displayName) {
			name := usr.DisplayName
			if displayName != "" {
				name = displayName
			}
			usr.UpdateProfile(username, name)
			if err := u.users.Save(ctx, usr); err != nil {
				u.log.Error().Err(err).Int64("tg_id", id).Msg("Failed to update user")
				return nil, false, err
			}
		}
		return usr, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	nu, err := model.NewUser(id, username, displayName, lang)
	if err != nil {
		return nil, false, err
	}
	if err := u.users.Save(ctx, nu); err != nil {
		return nil, false, err
	}
	metrics.IncUsersRegistered()
	u.log.Info().Int64("tg_id", id).Msg("user registered")
	return nu, true, nil
}

func (u *userUC) Get(ctx context.Context, id int64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Get")()
	return u.users.FindByID(ctx, id)
}

func (u *userUC) UpdateLocation(ctx context.Context, id int64, lat, lng float64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.UpdateLocation")()

	loc, err := model.NewLocation(lat, lng)
	if err != nil {
		return nil, err
	}
	usr, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	usr.UpdateLocation(loc)
	if err := u.users.Save(ctx, usr); err != nil {
		return nil, fmt.Errorf("save location: %w", err)
	}
	return usr, nil
}

func (u *userUC) Subscribe(ctx context.Context, id int64) (bool, error) {
	defer logging.TraceDuration(u.log, "UserUC.Subscribe")()

	usr, err := u.users.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if usr.IsEligibleForReminders() {
		return false, nil
	}
	if err := usr.Subscribe(); err != nil {
		return false, err
	}
	if err := u.users.Save(ctx, usr); err != nil {
		return false, fmt.Errorf("save subscription: %w", err)
	}
	metrics.IncSubscriptionChange("subscribe")
	return true, nil
}

func (u *userUC) Unsubscribe(ctx context.Context, id int64) (bool, error) {
	defer logging.TraceDuration(u.log, "UserUC.Unsubscribe")()

	usr, err := u.users.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !usr.IsSubscribed {
		return false, nil
	}
	usr.Unsubscribe()
	if err := u.users.Save(ctx, usr); err != nil {
		return false, fmt.Errorf("save subscription: %w", err)
	}
	metrics.IncSubscriptionChange("unsubscribe")
	return true, nil
}

func (u *userUC) ChangeLanguage(ctx context.Context, id int64, lang model.Language) error {
	defer logging.TraceDuration(u.log, "UserUC.ChangeLanguage")()

	usr, err := u.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	usr.ChangeLanguage(lang)
	return u.users.Save(ctx, usr)
}

func (u *userUC) SetReminder(ctx context.Context, id int64, enabled bool) error {
	defer logging.TraceDuration(u.log, "UserUC.SetReminder")()

	usr, err := u.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	f := usr.Functionalities
	f.Reminder = enabled
	usr.SetFunctionalities(f)
	return u.users.Save(ctx, usr)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	return u.users.CountUsers(ctx)
}
