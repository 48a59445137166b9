// Package ratelimit defines the limiter contract used to protect the
// analyzer quota and provides an in-process implementation. The Redis
// implementation lives in internal/platform/redis.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Default limits match the Gemini free tier.
const (
	DefaultLimit  = 15
	DefaultWindow = time.Minute
)

// ErrInvalidConfig is returned for a non-positive limit or window.
var ErrInvalidConfig = errors.New("invalid rate limit configuration")

// Config bounds how many requests one key may make per window.
type Config struct {
	Limit  int
	Window time.Duration
}

// Validate checks that both bounds are positive.
func (c Config) Validate() error {
	if c.Limit < 1 || c.Window <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Decision is the outcome of one acquire attempt.
type Decision struct {
	Allowed bool
	// Remaining is the number of requests left in the current window.
	Remaining int
	// RetryAfter is set when the request was rejected.
	RetryAfter time.Duration
}

// Limiter takes one slot for key if the key is under its limit.
// An error means the limiter could not decide.
type Limiter interface {
	TryAcquire(ctx context.Context, key string) (Decision, error)
}

// SlotReleaser is implemented by limiters that can give back the most
// recently taken slot, for work that never reached the protected resource.
type SlotReleaser interface {
	Release(ctx context.Context, key string) error
}
