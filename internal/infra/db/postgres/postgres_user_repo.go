package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
	db   executor
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool, db: pool}
}

const userColumns = `id, username, display_name, language, latitude, longitude,
       is_subscribed, is_active, reminder, tracker, remind_by_call, registered_at, updated_at`

func (r *PostgresUserRepo) Save(ctx context.Context, u *model.User) error {
	if u.IsZero() {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	const q = `
INSERT INTO users (
  id, username, display_name, language, latitude, longitude,
  is_subscribed, is_active, reminder, tracker, remind_by_call, registered_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  username=$2, display_name=$3, language=$4, latitude=$5, longitude=$6,
  is_subscribed=$7, is_active=$8, reminder=$9, tracker=$10, remind_by_call=$11, updated_at=$13;
`
	var lat, lng *float64
	if u.Location != nil {
		lat, lng = &u.Location.Latitude, &u.Location.Longitude
	}
	_, err := r.db.Exec(ctx, q,
		u.ID, u.Username, u.DisplayName, string(u.Language), lat, lng,
		u.IsSubscribed, u.IsActive, u.Functionalities.Reminder, u.Functionalities.Tracker, u.Functionalities.RemindByCall,
		u.RegisteredAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save user %d: %w", u.ID, err)
	}
	return nil
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return u, nil
}

func (r *PostgresUserRepo) FindAllActive(ctx context.Context) ([]*model.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE is_active ORDER BY id;`)
}

func (r *PostgresUserRepo) FindAllSubscribed(ctx context.Context) ([]*model.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE is_subscribed ORDER BY id;`)
}

func (r *PostgresUserRepo) list(ctx context.Context, q string) ([]*model.User, error) {
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Delete removes the user and, in the same transaction, their ledger rows.
func (r *PostgresUserRepo) Delete(ctx context.Context, id int64) error {
	return NewTxManager(r.pool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM reminder_ledger WHERE user_id=$1;`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id=$1;`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		lang     string
		lat, lng *float64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &lang, &lat, &lng,
		&u.IsSubscribed, &u.IsActive, &u.Functionalities.Reminder, &u.Functionalities.Tracker, &u.Functionalities.RemindByCall,
		&u.RegisteredAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Language = model.Language(lang)
	if lat != nil && lng != nil {
		u.Location = &model.Location{Latitude: *lat, Longitude: *lng}
	}
	return &u, nil
}
