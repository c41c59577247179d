package redis

import (
	"context"
	"fmt"
	"time"

	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/repository"
)

var _ repository.ReminderLedger = (*ReminderLedger)(nil)

// ledgerTTL outlives the longest day plus clock skew between replicas.
const ledgerTTL = 48 * time.Hour

// ReminderLedger marks fired reminders with SETNX so only the first writer sends.
type ReminderLedger struct {
	client RedisClient
}

func NewReminderLedger(client RedisClient) *ReminderLedger {
	return &ReminderLedger{client: client}
}

func ledgerKey(ev model.ReminderEvent, date string) string {
	return fmt.Sprintf("reminder_fired:%s:%d:%s:%s", date, ev.UserID, ev.Prayer, ev.Phase)
}

func (l *ReminderLedger) MarkFired(ctx context.Context, ev model.ReminderEvent, date string) (bool, error) {
	return l.client.SetNX(ctx, ledgerKey(ev, date), time.Now().Unix(), ledgerTTL)
}
