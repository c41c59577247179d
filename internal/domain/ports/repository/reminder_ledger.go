package repository

import (
	"context"

	"salah-reminder-bot/internal/domain/model"
)

// -----------------------------
// Reminder ledger
// -----------------------------

// ReminderLedger records which (user, prayer, phase, date) tuples have fired.
type ReminderLedger interface {
	// MarkFired atomically records the event for date. It returns false when
	// the event was already recorded; the first writer wins.
	MarkFired(ctx context.Context, ev model.ReminderEvent, date string) (bool, error)
}
