package adapter

import (
	"context"
	"time"

	"salah-reminder-bot/internal/domain/model"
)

// PrayerTimesProvider returns the prayer schedule of one calendar date at a location.
//
// Implementations return domain.ErrScheduleNotFound when the upstream has no
// entry for the date, and domain.ErrScheduleUnavailable on transport or
// upstream failures. Both are wrapped.
type PrayerTimesProvider interface {
	GetSchedule(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error)
}
