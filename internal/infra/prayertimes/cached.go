package prayertimes

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/adapter"
	"salah-reminder-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var _ adapter.PrayerTimesProvider = (*CachedProvider)(nil)

// SecondLevel is a shared schedule cache, e.g. Redis. Get returns (nil, nil) on a miss.
type SecondLevel interface {
	Get(ctx context.Context, key string) (*model.PrayerSchedule, error)
	Set(ctx context.Context, key string, s *model.PrayerSchedule) error
}

// defaultCapacity bounds how many (date, location) schedules stay in memory.
const defaultCapacity = 10000

type entry struct {
	key      string
	schedule *model.PrayerSchedule
}

// CachedProvider memoizes schedules per (date, location) in a bounded LRU.
// Concurrent misses for the same key share one upstream call.
type CachedProvider struct {
	next  adapter.PrayerTimesProvider
	l2    SecondLevel
	group singleflight.Group
	log   *zerolog.Logger

	mu       sync.Mutex
	capacity int
	order    *list.List               // front = most recently used
	entries  map[string]*list.Element // cache key -> element holding *entry
}

// NewCachedProvider wraps next. l2 may be nil.
func NewCachedProvider(next adapter.PrayerTimesProvider, l2 SecondLevel, logger *zerolog.Logger) *CachedProvider {
	l := logger.With().Str("component", "schedule_cache").Logger()
	return &CachedProvider{
		next:     next,
		l2:       l2,
		log:      &l,
		capacity: defaultCapacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func cacheKey(date string, loc model.Location) string {
	return date + "|" + loc.Key()
}

func (c *CachedProvider) GetSchedule(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error) {
	key := cacheKey(model.FormatDate(date), loc)
	if s, ok := c.lookup(key); ok {
		metrics.IncCacheRequest("memory", "hit")
		return s, nil
	}
	metrics.IncCacheRequest("memory", "miss")

	// detached from the caller; each waiter still honors its own ctx
	fctx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// another flight may have filled it while we waited
		if s, ok := c.lookup(key); ok {
			return s, nil
		}
		if s := c.fromSecondLevel(fctx, key); s != nil {
			c.store(key, s)
			return s, nil
		}
		s, err := c.next.GetSchedule(fctx, loc, date)
		if err != nil {
			return nil, err
		}
		c.store(key, s)
		if c.l2 != nil {
			if err := c.l2.Set(fctx, key, s); err != nil {
				c.log.Warn().Err(err).Str("key", key).Msg("failed to write schedule to second level cache")
			}
		}
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrScheduleUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.PrayerSchedule), nil
	}
}

func (c *CachedProvider) fromSecondLevel(ctx context.Context, key string) *model.PrayerSchedule {
	if c.l2 == nil {
		return nil
	}
	s, err := c.l2.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("second level cache read failed")
		return nil
	}
	if s == nil {
		metrics.IncCacheRequest("redis", "miss")
		return nil
	}
	metrics.IncCacheRequest("redis", "hit")
	return s
}

func (c *CachedProvider) lookup(key string) (*model.PrayerSchedule, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).schedule, true
}

func (c *CachedProvider) store(key string, s *model.PrayerSchedule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).schedule = s
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, schedule: s})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

// Len returns the number of cached schedules.
func (c *CachedProvider) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// statusOf maps a provider error onto a metrics label.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrScheduleNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidSchedule):
		return "invalid"
	default:
		return "unavailable"
	}
}
