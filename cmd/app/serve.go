package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"salah-reminder-bot/internal/config"
	tele "salah-reminder-bot/internal/infra/adapters/telegram"
	pg "salah-reminder-bot/internal/infra/db/postgres"
	"salah-reminder-bot/internal/infra/geocoding"
	"salah-reminder-bot/internal/infra/i18n"
	"salah-reminder-bot/internal/infra/logging"
	"salah-reminder-bot/internal/infra/metrics"
	red "salah-reminder-bot/internal/infra/redis"
	"salah-reminder-bot/internal/infra/scheduler"
	"salah-reminder-bot/internal/infra/web"
	"salah-reminder-bot/internal/infra/worker"
	"salah-reminder-bot/internal/usecase"
)

var flagRunOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot, the reminder scheduler and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireBot(); err != nil {
			return err
		}
		if cmd.Flags().Changed("run-on-start") {
			cfg.Scheduler.RunOnStart = flagRunOnStart
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&flagRunOnStart, "run-on-start", false, "run one reminder tick immediately")
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	log := logging.Component(logger, "main")
	if cfg.Runtime.Dev {
		log.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(Version, Commit)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// ---- Storage ----
	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info().Str("driver", cfg.Storage.Driver).Bool("redis", st.redis != nil).Msg("storage ready")

	// ---- Use cases ----
	tr, err := i18n.NewDefaultTranslator()
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}
	provider := newProvider(cfg, st.redis, logger)
	userUC := usecase.NewUserUseCase(st.users, logger)
	prayerUC := usecase.NewPrayerUseCase(provider, st.users, logger)

	// ---- Telegram ----
	var bot tele.Bot
	if cfg.Bot.Mode == "disabled" {
		log.Warn().Msg("bot.mode=disabled; notifications are only logged")
		bot = tele.NewNoopBotAdapter(logger)
	} else {
		deps := tele.Deps{Users: userUC, Prayers: prayerUC, Translator: tr, AzanAudioURL: cfg.Azan.AudioURL, Location: loc}
		if st.redis != nil {
			deps.RateLimiter = red.NewRateLimiter(st.redis)
		}
		tg, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, deps, logger)
		if err != nil {
			return err
		}
		bot = tg
	}

	// ---- Reminder engine ----
	azanPool := worker.NewPool(cfg.Azan.Workers, logger)
	azanPool.Start(ctx)
	defer azanPool.Stop()

	reminderUC := usecase.NewReminderUseCase(
		usecase.NewSubscriberDirectory(st.users),
		provider,
		bot,
		tr,
		st.ledger,
		azanPool,
		usecase.ReminderOptions{
			WindowWidth:  cfg.Scheduler.WindowWidth,
			Concurrency:  cfg.Scheduler.Concurrency,
			AzanAudioURL: cfg.Azan.AudioURL,
		},
		logger,
	)

	opts := scheduler.Options{
		Spec:       cfg.Scheduler.Spec,
		Location:   loc,
		RunOnStart: cfg.Scheduler.RunOnStart,
		Jobs:       st.jobs,
	}
	if st.redis != nil {
		opts.Locker = red.NewLocker(st.redis)
	}
	sched := scheduler.NewReminderScheduler(reminderUC, opts, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	// ---- HTTP ----
	webDeps := web.Deps{
		Prayers:  prayerUC,
		Users:    userUC,
		Checks:   st.checks,
		Location: loc,
	}
	if cfg.Geocoding.Enabled {
		webDeps.Geocoder = geocoding.NewNominatim(cfg.Geocoding.BaseURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Timeout, logger)
	}
	srv := web.NewServer(cfg.HTTP, webDeps, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := bot.StartPolling(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("telegram polling: %w", err)
		}
		return nil
	})
	g.Go(srv.Start)
	if st.pool != nil {
		g.Go(func() error {
			pg.ReportPoolStats(gctx, st.pool, 15*time.Second, logger)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown requested")

		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Scheduler.StopTimeout)
		defer stopCancel()
		select {
		case <-sched.Stop().Done():
		case <-stopCtx.Done():
			log.Warn().Msg("reminder tick still running at shutdown")
		}

		httpCtx, httpCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer httpCancel()
		return srv.Shutdown(httpCtx)
	})

	err = g.Wait()
	log.Info().Err(err).Msg("stopped")
	return err
}
