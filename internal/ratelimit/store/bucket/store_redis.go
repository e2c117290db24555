package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"huanbo/internal/ratelimit/models"
)

// slidingWindowScript trims the window, counts, and records the request in
// one round trip so concurrent instances cannot both take the last slot.
// Returns {allowed, count, oldestScoreMs}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = now
if #oldest > 0 then
  oldestScore = tonumber(oldest[2])
end

if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, window)
  return {1, count + 1, oldestScore}
end
return {0, count, oldestScore}
`)

// RedisBucketStore shares sliding windows between instances through sorted
// sets keyed by the rate limit key.
type RedisBucketStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisBucketStore constructs a Redis-backed bucket store.
func NewRedisBucketStore(client redis.UniversalClient) *RedisBucketStore {
	return &RedisBucketStore{client: client, now: time.Now}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := s.now()
	res, err := slidingWindowScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis sliding window: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("redis sliding window: unexpected reply length %d", len(res))
	}

	resetAt := time.UnixMilli(res[2]).Add(window)
	if res[0] == 1 {
		return &models.RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - int(res[1]),
			ResetAt:   resetAt,
		}, nil
	}
	return &models.RateLimitResult{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(now, resetAt),
	}, nil
}
