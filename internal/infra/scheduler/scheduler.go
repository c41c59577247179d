package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"salah-reminder-bot/internal/infra/logging"
	"salah-reminder-bot/internal/infra/metrics"
	"salah-reminder-bot/internal/usecase"
)

// State is the lifecycle state of a ReminderScheduler.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// DefaultSpec fires at the start of every minute.
const DefaultSpec = "* * * * *"

// Locker keeps replicas from running the same minute twice.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Job is an auxiliary cron job run next to the reminder tick, e.g. ledger pruning.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type Options struct {
	Spec       string
	Location   *time.Location // nil = time.Local
	RunOnStart bool
	Clock      func() time.Time
	Locker     Locker // optional
	LockTTL    time.Duration
	Jobs       []Job
}

// ReminderScheduler drives ReminderUseCase on a cron schedule. Ticks never
// overlap and no tick error ever stops the schedule.
type ReminderScheduler struct {
	uc   usecase.ReminderUseCase
	opts Options
	log  *zerolog.Logger

	mu      sync.Mutex
	state   State
	cron    *cron.Cron
	entry   cron.EntryID
	startWG sync.WaitGroup // run-on-start tick, which cron does not track
}

func NewReminderScheduler(uc usecase.ReminderUseCase, opts Options, logger *zerolog.Logger) *ReminderScheduler {
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	return &ReminderScheduler{
		uc:   uc,
		opts: opts,
		log:  logging.Component(logger, "scheduler"),
	}
}

func (s *ReminderScheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start registers the reminder tick and any auxiliary jobs and starts cron.
// Runs inherit the values of ctx but not its cancellation; use Stop to end
// the schedule. Starting a running scheduler is a no-op.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		s.log.Warn().Msg("scheduler already running")
		return nil
	}
	// an in-flight tick always runs to completion
	ctx = context.WithoutCancel(ctx)

	cl := logging.NewCronLogger(logging.Component(s.log, "cron"))
	c := cron.New(cron.WithLocation(s.opts.Location), cron.WithLogger(cl))

	tick := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		_, _ = s.RunOnce(ctx)
	}))
	id, err := c.AddJob(s.opts.Spec, tick)
	if err != nil {
		return fmt.Errorf("invalid schedule spec %q: %w", s.opts.Spec, err)
	}
	for _, j := range s.opts.Jobs {
		j := j
		job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
			s.runJob(ctx, j)
		}))
		if _, err := c.AddJob(j.Spec, job); err != nil {
			return fmt.Errorf("invalid spec %q for job %s: %w", j.Spec, j.Name, err)
		}
	}

	c.Start()
	s.cron, s.entry, s.state = c, id, Running
	s.log.Info().
		Str("spec", s.opts.Spec).
		Str("timezone", s.opts.Location.String()).
		Int("jobs", len(s.opts.Jobs)).
		Msg("scheduler started")

	if s.opts.RunOnStart {
		s.startWG.Add(1)
		go func() {
			defer s.startWG.Done()
			tick.Run()
		}()
	}
	return nil
}

// Stop removes the tick, stops cron and returns a context that is done once
// every in-flight run has finished. In-flight runs are not cancelled.
// Stopping a stopped scheduler returns an already-done context.
func (s *ReminderScheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	done, cancel := context.WithCancel(context.Background())
	if s.state != Running {
		cancel()
		return done
	}

	s.cron.Remove(s.entry)
	cronDone := s.cron.Stop()
	s.cron, s.entry, s.state = nil, 0, Stopped

	go func() {
		<-cronDone.Done()
		s.startWG.Wait()
		cancel()
	}()
	s.log.Info().Msg("scheduler stopping")
	return done
}

// RunOnce runs a single reminder tick synchronously at the injected clock's
// current time.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (usecase.TickResult, error) {
	now := s.opts.Clock().In(s.opts.Location)
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	log := logging.With(ctx, s.log)

	var release func()
	if s.opts.Locker != nil {
		key := "reminder_tick:" + now.Format("2006-01-02T15:04")
		token, ok, err := s.opts.Locker.TryLock(ctx, key, s.opts.LockTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("tick lock unavailable, running unguarded")
		case !ok:
			log.Debug().Str("minute", key).Msg("tick already taken by another replica")
			metrics.ObserveTick("skipped", 0)
			return usecase.TickResult{}, nil
		default:
			// the lock is held for the whole minute; only an aborted tick gives it back
			release = func() {
				if err := s.opts.Locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn().Err(err).Msg("tick lock release failed")
				}
			}
		}
	}

	start := time.Now()
	res, err := s.uc.CheckAndSendReminders(ctx, now)
	elapsed := time.Since(start)
	if err != nil {
		if release != nil {
			release()
		}
		metrics.ObserveTick("failed", elapsed)
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("reminder tick failed")
		return res, err
	}

	status := "ok"
	if res.Panics > 0 {
		status = "panic"
	}
	metrics.ObserveTick(status, elapsed)

	ev := log.Debug()
	if res.Events > 0 || res.Panics > 0 {
		ev = log.Info()
	}
	ev.Int("subscribers", res.Subscribers).
		Int("events", res.Events).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("duplicates", res.Duplicates).
		Int("schedule_errors", res.ScheduleErrors).
		Int("azan_queued", res.AzanQueued).
		Dur("elapsed", elapsed).
		Msg("reminder tick done")
	return res, nil
}

func (s *ReminderScheduler) runJob(ctx context.Context, j Job) {
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	log := logging.With(ctx, s.log).With().Str("job", j.Name).Logger()
	if err := j.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("job failed")
		return
	}
	log.Debug().Msg("job done")
}
