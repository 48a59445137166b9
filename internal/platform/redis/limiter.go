package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
	"github.com/phrazzld/tahfidz-api/internal/ratelimit"
	"github.com/redis/go-redis/v9"
)

// DefaultLimiterPrefix namespaces limiter keys.
const DefaultLimiterPrefix = "ratelimit:ai"

// slidingWindowScript keeps one sorted-set member per request scored by its
// timestamp in milliseconds. It returns {allowed, remaining, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, window)
  return {1, limit - count - 1, 0}
end

local retry = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  retry = tonumber(oldest[2]) + window - now
end
return {0, 0, retry}
`)

// SlidingWindowLimiter is a ratelimit.Limiter shared by every replica that
// talks to the same Redis.
type SlidingWindowLimiter struct {
	client redis.Cmdable
	prefix string
	cfg    ratelimit.Config
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ ratelimit.Limiter      = (*SlidingWindowLimiter)(nil)
	_ ratelimit.SlotReleaser = (*SlidingWindowLimiter)(nil)
)

// NewSlidingWindowLimiter returns a limiter storing its windows under prefix.
// An empty prefix selects DefaultLimiterPrefix.
func NewSlidingWindowLimiter(
	client redis.Cmdable,
	prefix string,
	cfg ratelimit.Config,
	logger *slog.Logger,
) (*SlidingWindowLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client cannot be nil", ratelimit.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultLimiterPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SlidingWindowLimiter{
		client: client,
		prefix: prefix,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "redis_limiter")),
		now:    time.Now,
	}, nil
}

func (l *SlidingWindowLimiter) key(k string) string {
	return l.prefix + ":" + k
}

// TryAcquire implements ratelimit.Limiter.
func (l *SlidingWindowLimiter) TryAcquire(ctx context.Context, key string) (ratelimit.Decision, error) {
	nowMs := l.now().UnixMilli()
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{l.key(key)},
		nowMs, l.cfg.Window.Milliseconds(), l.cfg.Limit, member,
	).Int64Slice()
	if err != nil {
		logger.FromContextOrDefault(ctx, l.logger).Error("rate limit script failed",
			slog.String("error", err.Error()))
		return ratelimit.Decision{}, fmt.Errorf("run rate limit script: %w", err)
	}
	if len(res) != 3 {
		return ratelimit.Decision{}, fmt.Errorf("unexpected rate limit reply length %d", len(res))
	}

	d := ratelimit.Decision{
		Allowed:   res[0] == 1,
		Remaining: int(res[1]),
	}
	if !d.Allowed {
		d.RetryAfter = time.Duration(res[2]) * time.Millisecond
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Millisecond
		}
	}
	return d, nil
}

// Release implements ratelimit.SlotReleaser by removing the newest entry of
// the key's window.
func (l *SlidingWindowLimiter) Release(ctx context.Context, key string) error {
	if err := l.client.ZPopMax(ctx, l.key(key), 1).Err(); err != nil {
		return fmt.Errorf("release rate limit slot: %w", err)
	}
	return nil
}
