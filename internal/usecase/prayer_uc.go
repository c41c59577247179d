package usecase

import (
	"context"
	"time"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/adapter"
	"salah-reminder-bot/internal/domain/ports/repository"
	"salah-reminder-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ PrayerUseCase = (*prayerUC)(nil)

// PrayerUseCase answers schedule lookups for the bot and the REST API.
type PrayerUseCase interface {
	GetPrayerTimes(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error)
	// GetUserPrayerTimes returns domain.ErrLocationRequired when the user has
	// not shared a location.
	GetUserPrayerTimes(ctx context.Context, userID int64, date time.Time) (*model.PrayerSchedule, *model.User, error)
}

type prayerUC struct {
	provider adapter.PrayerTimesProvider
	users    repository.UserRepository
	log      *zerolog.Logger
}

func NewPrayerUseCase(provider adapter.PrayerTimesProvider, users repository.UserRepository, logger *zerolog.Logger) *prayerUC {
	return &prayerUC{
		provider: provider,
		users:    users,
		log:      logging.Component(logger, "prayer_uc"),
	}
}

func (p *prayerUC) GetPrayerTimes(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error) {
	defer logging.TraceDuration(p.log, "PrayerUC.GetPrayerTimes")()
	return p.provider.GetSchedule(ctx, loc, date)
}

func (p *prayerUC) GetUserPrayerTimes(ctx context.Context, userID int64, date time.Time) (*model.PrayerSchedule, *model.User, error) {
	defer logging.TraceDuration(p.log, "PrayerUC.GetUserPrayerTimes")()

	usr, err := p.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !usr.HasLocation() {
		return nil, usr, domain.ErrLocationRequired
	}
	s, err := p.provider.GetSchedule(ctx, *usr.Location, date)
	if err != nil {
		return nil, usr, err
	}
	return s, usr, nil
}
