package repository

import (
	"context"

	"salah-reminder-bot/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, u *model.User) error
	// FindByID returns domain.ErrNotFound when no user has the id.
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindAllActive(ctx context.Context) ([]*model.User, error)
	FindAllSubscribed(ctx context.Context) ([]*model.User, error)
	Delete(ctx context.Context, id int64) error
	CountUsers(ctx context.Context) (int, error)
}
