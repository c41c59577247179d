package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"salah-reminder-bot/internal/config"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/adapter"
	"salah-reminder-bot/internal/domain/ports/repository"
	pg "salah-reminder-bot/internal/infra/db/postgres"
	"salah-reminder-bot/internal/infra/memory"
	"salah-reminder-bot/internal/infra/prayertimes"
	red "salah-reminder-bot/internal/infra/redis"
	"salah-reminder-bot/internal/infra/scheduler"
	"salah-reminder-bot/internal/infra/web"
)

// ledgerRetention is how many past days of fired reminders are kept.
const ledgerRetention = 7 * 24 * time.Hour

// storage is everything the selected driver provides.
type storage struct {
	users   repository.UserRepository
	ledger  repository.ReminderLedger
	redis   red.RedisClient // nil unless redis.url is set
	pool    *pgxpool.Pool   // postgres driver only
	jobs    []scheduler.Job // driver housekeeping
	checks  []web.HealthCheck
	closers []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStorage connects the configured driver. Redis is also opened for the
// postgres and memory drivers when redis.url is set, to back the caches,
// rate limiter and tick lock.
func openStorage(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*storage, error) {
	st := &storage{}
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		st.redis = rc
		st.closers = append(st.closers, func() { _ = rc.Close() })
		st.checks = append(st.checks, web.HealthCheck{Name: "redis", Check: rc.Ping})
	}

	switch cfg.Storage.Driver {
	case config.DriverRedis:
		st.users = red.NewUserRepo(st.redis)
		st.ledger = red.NewReminderLedger(st.redis)

	case config.DriverPostgres:
		pool, err := pg.Connect(ctx, cfg.Database)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st.pool = pool
		st.closers = append(st.closers, pool.Close)
		st.checks = append(st.checks, web.HealthCheck{Name: "postgres", Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		}})
		if err := pg.Migrate(ctx, pool); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}

		var users repository.UserRepository = pg.NewPostgresUserRepo(pool)
		if st.redis != nil {
			users = pg.NewUserRepoCacheDecorator(users, st.redis, cfg.Redis.TTL, logger)
		}
		st.users = users

		ledger := pg.NewPostgresReminderLedger(pool)
		st.ledger = ledger
		st.jobs = append(st.jobs, scheduler.Job{
			Name: "prune_ledger",
			Spec: "@daily",
			Run: func(ctx context.Context) error {
				n, err := ledger.Prune(ctx, time.Now().Add(-ledgerRetention))
				if err != nil {
					return err
				}
				logger.Debug().Int64("rows", n).Msg("pruned reminder ledger")
				return nil
			},
		})

	case config.DriverMemory:
		db := memory.New()
		st.users = db
		st.ledger = db
		st.jobs = append(st.jobs, scheduler.Job{
			Name: "prune_ledger",
			Spec: "@daily",
			Run: func(ctx context.Context) error {
				n := db.PruneBefore(model.FormatDate(time.Now().Add(-ledgerRetention)))
				logger.Debug().Int("days", n).Msg("pruned reminder ledger")
				return nil
			},
		})
	}
	return st, nil
}

// newProvider builds the configured upstream behind the schedule cache.
func newProvider(cfg *config.Config, rc red.RedisClient, logger *zerolog.Logger) adapter.PrayerTimesProvider {
	var upstream adapter.PrayerTimesProvider
	switch cfg.PrayerTimes.Provider {
	case config.ProviderService:
		upstream = prayertimes.NewServiceProvider(cfg.PrayerTimes.BaseURL, cfg.PrayerTimes.Timeout)
	default:
		upstream = prayertimes.NewAladhanProvider(cfg.PrayerTimes.BaseURL, cfg.PrayerTimes.Method, cfg.PrayerTimes.Timeout)
	}
	var l2 prayertimes.SecondLevel
	if rc != nil {
		l2 = red.NewScheduleCache(rc, cfg.PrayerTimes.CacheTTL)
	}
	return prayertimes.NewCachedProvider(upstream, l2, logger)
}
