package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/adapter"
	"salah-reminder-bot/internal/domain/ports/repository"
	"salah-reminder-bot/internal/infra/logging"
	"salah-reminder-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

// ReminderUseCase runs one reminder tick across every eligible subscriber.
type ReminderUseCase interface {
	// CheckAndSendReminders evaluates every eligible subscriber at now, which
	// must already be in the reminder timezone. Only a directory failure is
	// returned; per-user and per-event failures are logged and counted.
	CheckAndSendReminders(ctx context.Context, now time.Time) (TickResult, error)
}

// TaskRunner accepts best-effort background work, e.g. *worker.Pool.
type TaskRunner interface {
	Submit(task func(ctx context.Context) error) error
}

// TickResult summarizes one tick.
type TickResult struct {
	Subscribers    int
	Events         int
	Sent           int
	Failed         int
	Duplicates     int
	ScheduleErrors int
	Panics         int
	AzanQueued     int
}

type ReminderOptions struct {
	WindowWidth  int
	Concurrency  int
	AzanAudioURL string
}

type reminderUC struct {
	directory repository.SubscriberDirectory
	provider  adapter.PrayerTimesProvider
	sink      adapter.NotificationSink
	tr        adapter.Translator
	ledger    repository.ReminderLedger // optional
	azan      TaskRunner                // optional
	evaluator model.ReminderEvaluator
	opts      ReminderOptions
	log       *zerolog.Logger
}

// NewReminderUseCase wires the reminder engine. ledger and azan may be nil.
func NewReminderUseCase(
	directory repository.SubscriberDirectory,
	provider adapter.PrayerTimesProvider,
	sink adapter.NotificationSink,
	tr adapter.Translator,
	ledger repository.ReminderLedger,
	azan TaskRunner,
	opts ReminderOptions,
	logger *zerolog.Logger,
) *reminderUC {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &reminderUC{
		directory: directory,
		provider:  provider,
		sink:      sink,
		tr:        tr,
		ledger:    ledger,
		azan:      azan,
		evaluator: model.NewReminderEvaluator(opts.WindowWidth),
		opts:      opts,
		log:       logging.Component(logger, "reminder_uc"),
	}
}

func (r *reminderUC) CheckAndSendReminders(ctx context.Context, now time.Time) (TickResult, error) {
	defer logging.TraceDuration(r.log, "ReminderUC.CheckAndSendReminders")()

	subs, err := r.directory.ListEligible(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("%w: %w", domain.ErrDirectoryUnavailable, err)
	}
	metrics.SetEligibleUsers(len(subs))

	minutes := model.MinutesOfDay(now)
	date := model.FormatDate(now)

	var (
		mu  sync.Mutex
		res = TickResult{Subscribers: len(subs)}
	)
	merge := func(u TickResult) {
		mu.Lock()
		defer mu.Unlock()
		res.Events += u.Events
		res.Sent += u.Sent
		res.Failed += u.Failed
		res.Duplicates += u.Duplicates
		res.ScheduleErrors += u.ScheduleErrors
		res.Panics += u.Panics
		res.AzanQueued += u.AzanQueued
	}

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			merge(r.processSubscriber(ctx, sub, now, minutes, date))
			return nil
		})
	}
	_ = g.Wait()

	return res, nil
}

// processSubscriber never panics and never returns an error; everything is
// reflected in the per-user result.
func (r *reminderUC) processSubscriber(ctx context.Context, sub model.Subscriber, now time.Time, minutes int, date string) (res TickResult) {
	ctx = logging.WithTgID(ctx, sub.ID)
	log := logging.With(ctx, r.log)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("reminder processing panicked")
			res.Panics++
		}
	}()

	schedule, err := r.provider.GetSchedule(ctx, sub.Location, now)
	if err != nil {
		lvl := log.Warn()
		if errors.Is(err, domain.ErrScheduleNotFound) {
			lvl = log.Info()
		}
		lvl.Err(err).Str("location", sub.Location.String()).Msg("skipping user: schedule lookup failed")
		res.ScheduleErrors++
		return res
	}

	events := r.evaluator.Evaluate(sub.ID, schedule, minutes)
	res.Events = len(events)
	for _, ev := range events {
		r.deliver(ctx, sub, ev, date, &res)
	}
	return res
}

func (r *reminderUC) deliver(ctx context.Context, sub model.Subscriber, ev model.ReminderEvent, date string, res *TickResult) {
	phase := ev.Phase.String()
	ctx = logging.WithPrayer(ctx, string(ev.Prayer))
	evLog := logging.With(ctx, r.log).With().Str("phase", phase).Logger()

	if r.ledger != nil {
		first, err := r.ledger.MarkFired(ctx, ev, date)
		switch {
		case err != nil:
			// deliver anyway; a missing ledger only matters for widened windows
			evLog.Warn().Err(err).Msg("reminder ledger unavailable")
		case !first:
			evLog.Debug().Msg("reminder already fired")
			metrics.IncReminder(phase, "duplicate")
			res.Duplicates++
			return
		}
	}

	text := FormatReminder(r.tr, sub.Language, ev)
	if err := r.sink.SendMessage(ctx, sub.ID, text); err != nil {
		evLog.Error().Err(fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)).Msg("failed to send reminder")
		metrics.IncReminder(phase, "failed")
		res.Failed++
	} else {
		evLog.Info().Msg("reminder sent")
		metrics.IncReminder(phase, "sent")
		res.Sent++
	}

	if ev.Phase == model.PhaseAt && r.azan != nil && r.opts.AzanAudioURL != "" {
		if r.queueAzan(sub, ev.Prayer, evLog) {
			res.AzanQueued++
		}
	}
}

// queueAzan submits a best-effort azan broadcast. The group check runs inside
// the task so a slow chat lookup never holds up the tick.
func (r *reminderUC) queueAzan(sub model.Subscriber, prayer model.PrayerName, log zerolog.Logger) bool {
	caption := FormatAzanCaption(r.tr, sub.Language, prayer)
	audio := r.opts.AzanAudioURL
	err := r.azan.Submit(func(ctx context.Context) error {
		group, err := r.sink.IsGroup(ctx, sub.ID)
		if err != nil {
			metrics.IncAzan("failed")
			return fmt.Errorf("azan group check for %d: %w", sub.ID, err)
		}
		if !group {
			return nil
		}
		if err := r.sink.BroadcastAudio(ctx, sub.ID, audio, caption); err != nil {
			metrics.IncAzan("failed")
			return fmt.Errorf("azan broadcast for %d: %w", sub.ID, err)
		}
		metrics.IncAzan("sent")
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("azan broadcast dropped")
		metrics.IncAzan("dropped")
		return false
	}
	return true
}
