package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneThreshold is the number of tracked keys above which idle entries
// are dropped.
const pruneThreshold = 1024

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time

	// credit counts released slots not yet refilled by the bucket.
	credit int
}

// settle caps credit so that bucket tokens plus credit never exceed the
// burst.
func (e *memoryEntry) settle(now time.Time) {
	room := int(math.Ceil(float64(e.limiter.Burst()) - e.limiter.TokensAt(now)))
	e.credit = max(0, min(e.credit, room))
}

// MemoryLimiter is a per-process token bucket per key. It is used when no
// Redis is configured, so limits are not shared between replicas.
type MemoryLimiter struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*memoryEntry
	now     func() time.Time
}

var (
	_ Limiter      = (*MemoryLimiter)(nil)
	_ SlotReleaser = (*MemoryLimiter)(nil)
)

// NewMemoryLimiter returns a limiter that allows cfg.Limit requests per
// cfg.Window, refilled continuously.
func NewMemoryLimiter(cfg Config) (*MemoryLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MemoryLimiter{
		cfg:     cfg,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}, nil
}

// TryAcquire implements Limiter. It never returns an error.
func (m *MemoryLimiter) TryAcquire(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok {
		if len(m.entries) >= pruneThreshold {
			m.prune(now)
		}
		every := rate.Every(m.cfg.Window / time.Duration(m.cfg.Limit))
		e = &memoryEntry{limiter: rate.NewLimiter(every, m.cfg.Limit)}
		m.entries[key] = e
	}
	e.lastSeen = now
	e.settle(now)

	r := e.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		if e.credit > 0 {
			e.credit--
			return Decision{Allowed: true, Remaining: e.credit}, nil
		}
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}

	return Decision{Allowed: true, Remaining: int(e.limiter.TokensAt(now)) + e.credit}, nil
}

// Release implements SlotReleaser. The refunded slot is used before the
// bucket refills and is dropped once the bucket alone is full again.
func (m *MemoryLimiter) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	now := m.now()
	e.credit++
	e.settle(now)
	return nil
}

// prune drops keys idle for longer than a window; their buckets are full
// again and recreating them is equivalent.
func (m *MemoryLimiter) prune(now time.Time) {
	for k, e := range m.entries {
		if now.Sub(e.lastSeen) > m.cfg.Window {
			delete(m.entries, k)
		}
	}
}
