package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/repository"
	"salah-reminder-bot/internal/infra/logging"
	"salah-reminder-bot/internal/infra/metrics"
	red "salah-reminder-bot/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator caches FindByID in Redis. Scans go straight to the
// inner repository so the reminder tick always sees committed state.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.UserRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &userRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   logging.Component(logger, "user_repo_cache"),
	}
}

func cacheKey(id int64) string { return fmt.Sprintf("user:id:%d", id) }

// Writes invalidate both before and after the database write.
func (d *userRepoCacheDecorator) Save(ctx context.Context, u *model.User) error {
	d.invalidate(ctx, u.ID)
	if err := d.inner.Save(ctx, u); err != nil {
		return err
	}
	d.invalidate(ctx, u.ID)
	return nil
}

func (d *userRepoCacheDecorator) Delete(ctx context.Context, id int64) error {
	d.invalidate(ctx, id)
	if err := d.inner.Delete(ctx, id); err != nil {
		return err
	}
	d.invalidate(ctx, id)
	return nil
}

func (d *userRepoCacheDecorator) invalidate(ctx context.Context, id int64) {
	if err := d.cache.Del(ctx, cacheKey(id)); err != nil {
		d.log.Warn().Err(err).Int64("tg_id", id).Msg("cache invalidation failed")
	}
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, id int64) (*model.User, error) {
	key := cacheKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var user model.User
		if json.Unmarshal([]byte(val), &user) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &user, nil
		}
	} else if !errors.Is(err, red.Nil) {
		d.log.Warn().Err(err).Msg("redis get failed")
	}

	metrics.IncCacheRequest("user", "miss")
	user, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(user); err == nil {
		_ = d.cache.Set(ctx, key, data, d.ttl)
	}
	return user, nil
}

// Pass-through methods that don't need caching
func (d *userRepoCacheDecorator) FindAllActive(ctx context.Context) ([]*model.User, error) {
	return d.inner.FindAllActive(ctx)
}

func (d *userRepoCacheDecorator) FindAllSubscribed(ctx context.Context) ([]*model.User, error) {
	return d.inner.FindAllSubscribed(ctx)
}

func (d *userRepoCacheDecorator) CountUsers(ctx context.Context) (int, error) {
	return d.inner.CountUsers(ctx)
}
