package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitError carries how long the caller must wait before retrying the
// action; handlers translate it into a Retry-After header.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckAndSet acquires the per-user lock for action, or returns a
// RateLimitError with the remaining TTL. A nil Redis client disables
// limiting entirely.
func CheckAndSet(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string, limit time.Duration) error {
	if rdb == nil {
		return nil
	}

	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)

	wasSet, err := rdb.SetNX(ctx, key, "locked", limit).Result()
	if err != nil {
		return fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	if !wasSet {
		ttl, err := rdb.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = limit
		}
		return &RateLimitError{
			Message:    fmt.Sprintf("too many %s requests, try again later", action),
			RetryAfter: ttl,
		}
	}

	return nil
}

// Release drops the lock early, used when the limited action fails and
// should not count against the user.
func Release(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string) {
	if rdb == nil {
		return
	}
	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
	rdb.Del(ctx, key)
}
