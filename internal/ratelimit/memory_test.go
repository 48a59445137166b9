package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	lim, err := NewMemoryLimiter(Config{Limit: 3, Window: time.Minute})
	require.NoError(t, err)
	lim.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		d, err := lim.TryAcquire(ctx, "learner-a")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i+1)
	}

	d, err := lim.TryAcquire(ctx, "learner-a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.InDelta(t, float64(20*time.Second), float64(d.RetryAfter), float64(time.Millisecond))

	// Other keys have their own bucket.
	d, err = lim.TryAcquire(ctx, "learner-b")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// One token is back after a third of the window.
	clock = clock.Add(20 * time.Second)
	d, err = lim.TryAcquire(ctx, "learner-a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_RejectedRequestsDoNotConsume(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	lim, err := NewMemoryLimiter(Config{Limit: 1, Window: 10 * time.Second})
	require.NoError(t, err)
	lim.now = func() time.Time { return clock }

	d, _ := lim.TryAcquire(ctx, "k")
	require.True(t, d.Allowed)
	for i := 0; i < 5; i++ {
		d, _ = lim.TryAcquire(ctx, "k")
		assert.False(t, d.Allowed)
	}

	clock = clock.Add(10 * time.Second)
	d, _ = lim.TryAcquire(ctx, "k")
	assert.True(t, d.Allowed)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Limit: DefaultLimit, Window: DefaultWindow}.Validate())
	assert.ErrorIs(t, Config{Limit: 0, Window: time.Second}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{Limit: 1}.Validate(), ErrInvalidConfig)

	_, err := NewMemoryLimiter(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMemoryLimiter_Release(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	lim, err := NewMemoryLimiter(Config{Limit: 1, Window: time.Minute})
	require.NoError(t, err)
	lim.now = func() time.Time { return clock }

	d, err := lim.TryAcquire(ctx, "k")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// The slot comes back even when released well after it was taken.
	clock = clock.Add(5 * time.Second)
	require.NoError(t, lim.Release(ctx, "k"))

	d, err = lim.TryAcquire(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "released slot is available again")

	d, err = lim.TryAcquire(ctx, "k")
	require.NoError(t, err)
	assert.False(t, d.Allowed, "only one slot was released")
}

func TestMemoryLimiter_ReleaseNeverExceedsLimit(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	lim, err := NewMemoryLimiter(Config{Limit: 2, Window: time.Minute})
	require.NoError(t, err)
	lim.now = func() time.Time { return clock }

	// Unknown keys have nothing to release.
	require.NoError(t, lim.Release(ctx, "unknown"))

	d, _ := lim.TryAcquire(ctx, "k")
	require.True(t, d.Allowed)
	require.NoError(t, lim.Release(ctx, "k"))
	require.NoError(t, lim.Release(ctx, "k"))
	require.NoError(t, lim.Release(ctx, "k"))

	allowed := 0
	for i := 0; i < 5; i++ {
		d, err := lim.TryAcquire(ctx, "k")
		require.NoError(t, err)
		if d.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}
