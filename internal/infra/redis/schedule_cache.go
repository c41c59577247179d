package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"salah-reminder-bot/internal/domain/model"
)

// ScheduleCache is the shared second level of the prayer schedule cache.
type ScheduleCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewScheduleCache(client RedisClient, ttl time.Duration) *ScheduleCache {
	if ttl <= 0 {
		ttl = 36 * time.Hour
	}
	return &ScheduleCache{client: client, ttl: ttl}
}

func (c *ScheduleCache) key(k string) string { return "prayer_schedule:" + k }

// Get returns (nil, nil) on a miss.
func (c *ScheduleCache) Get(ctx context.Context, key string) (*model.PrayerSchedule, error) {
	data, err := c.client.Get(ctx, c.key(key))
	if errors.Is(err, Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s model.PrayerSchedule
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		// treat a corrupt entry as a miss; it is overwritten on the next fill
		return nil, nil
	}
	return &s, nil
}

func (c *ScheduleCache) Set(ctx context.Context, key string, s *model.PrayerSchedule) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, c.ttl)
}
