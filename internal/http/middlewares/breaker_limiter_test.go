package middlewares

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedLimiter struct {
	calls int
	err   error
}

func (s *scriptedLimiter) Allow(context.Context, string) (Decision, error) {
	s.calls++
	if s.err != nil {
		return Decision{}, s.err
	}
	return Decision{Allowed: true}, nil
}

func TestBreakerLimiter_OpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	primary := &scriptedLimiter{err: errors.New("redis down")}
	fallback := &scriptedLimiter{}

	now := time.Unix(1_700_000_000, 0)
	b := NewBreakerLimiter(primary, fallback, BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		d, err := b.Allow(ctx, "k")
		if err != nil || !d.Allowed {
			t.Fatalf("fallback should answer: %+v %v", d, err)
		}
	}
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	// open: primary is skipped
	b.Allow(ctx, "k")
	if primary.calls != 2 {
		t.Fatalf("primary called while open: %d", primary.calls)
	}

	// cooldown passed, trial fails: straight back to open
	now = now.Add(time.Minute)
	b.Allow(ctx, "k")
	if primary.calls != 3 || b.State() != "open" {
		t.Fatalf("trial: calls=%d state=%s", primary.calls, b.State())
	}

	// next trial succeeds
	now = now.Add(time.Minute)
	primary.err = nil
	if d, err := b.Allow(ctx, "k"); err != nil || !d.Allowed {
		t.Fatalf("trial call: %+v %v", d, err)
	}
	if b.State() != "closed" {
		t.Fatalf("state = %s, want closed", b.State())
	}
	if fallback.calls != 4 {
		t.Fatalf("fallback calls = %d, want 4", fallback.calls)
	}
}

func TestBreakerLimiter_PrimaryDecisionWins(t *testing.T) {
	primary := NewRateLimiter(1, time.Minute)
	fallback := &scriptedLimiter{}
	b := NewBreakerLimiter(primary, fallback, BreakerConfig{})

	if d, _ := b.Allow(context.Background(), "k"); !d.Allowed {
		t.Fatalf("first call should pass")
	}
	if d, _ := b.Allow(context.Background(), "k"); d.Allowed {
		t.Fatalf("second call should be limited by primary")
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback used while primary healthy")
	}
}
