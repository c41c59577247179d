package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter. The window index is part of the key,
// so a counter whose EXPIRE was lost still stops applying once the window ends.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if window <= 0 {
		window = time.Minute
	}
	bucket := r.now().UnixNano() / int64(window)
	windowKey := fmt.Sprintf("%s:%d", key, bucket)

	count, err := r.client.Incr(ctx, windowKey)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, windowKey, window); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

func UserCommandKey(chatID int64, command string) string {
	return fmt.Sprintf("rate_limit:%d:%s", chatID, command)
}
