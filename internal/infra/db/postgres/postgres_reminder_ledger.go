package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/repository"
)

var _ repository.ReminderLedger = (*PostgresReminderLedger)(nil)

// PostgresReminderLedger records fired reminders; the primary key makes the
// first insert win.
type PostgresReminderLedger struct {
	db executor
}

func NewPostgresReminderLedger(pool *pgxpool.Pool) *PostgresReminderLedger {
	return &PostgresReminderLedger{db: pool}
}

func (l *PostgresReminderLedger) MarkFired(ctx context.Context, ev model.ReminderEvent, date string) (bool, error) {
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return false, fmt.Errorf("%w: bad ledger date %q", domain.ErrInvalidArgument, date)
	}
	tag, err := l.db.Exec(ctx, `
INSERT INTO reminder_ledger (fire_date, user_id, prayer, phase)
VALUES ($1,$2,$3,$4)
ON CONFLICT DO NOTHING;`, day, ev.UserID, string(ev.Prayer), ev.Phase.String())
	if err != nil {
		return false, fmt.Errorf("mark fired: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Prune deletes ledger rows older than before and reports how many went.
func (l *PostgresReminderLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := l.db.Exec(ctx, `DELETE FROM reminder_ledger WHERE fire_date < $1;`, before)
	if err != nil {
		return 0, fmt.Errorf("prune ledger: %w", err)
	}
	return tag.RowsAffected(), nil
}
