package middlewares

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type breakerState string

const (
	breakerClosed   breakerState = "closed"
	breakerOpen     breakerState = "open"
	breakerHalfOpen breakerState = "half_open"
)

type BreakerConfig struct {
	FailureThreshold int           // consecutive primary failures that open the breaker
	Cooldown         time.Duration // time spent open before a trial call
	HalfOpenMaxCalls int           // concurrent trial calls while half-open
}

// BreakerLimiter uses primary until it keeps failing, then answers from
// fallback until a trial call against primary succeeds again.
type BreakerLimiter struct {
	primary  Limiter
	fallback Limiter
	cfg      BreakerConfig
	now      func() time.Time

	mu               sync.Mutex
	state            breakerState
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
}

func NewBreakerLimiter(primary, fallback Limiter, cfg BreakerConfig) *BreakerLimiter {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &BreakerLimiter{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		now:      time.Now,
		state:    breakerClosed,
	}
}

func (b *BreakerLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if !b.tryPrimary() {
		return b.fallback.Allow(ctx, key)
	}

	d, err := b.primary.Allow(ctx, key)
	b.record(ctx, err)
	if err != nil {
		return b.fallback.Allow(ctx, key)
	}
	return d, nil
}

func (b *BreakerLimiter) tryPrimary() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return false
		}
		b.state = breakerHalfOpen
		b.halfOpenInFlight = 1
		return true
	case breakerHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxCalls {
			return false
		}
		b.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (b *BreakerLimiter) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	if err == nil {
		if b.state != breakerClosed {
			slog.Default().InfoContext(ctx, "rate_limiter_recovered")
		}
		b.failures = 0
		b.state = breakerClosed
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
		if b.state != breakerOpen {
			slog.Default().WarnContext(ctx, "rate_limiter_breaker_open",
				"failures", b.failures, "err", err)
		}
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}

func (b *BreakerLimiter) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.state)
}
