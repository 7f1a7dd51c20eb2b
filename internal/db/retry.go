package db

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectBaseDelay = 500 * time.Millisecond
	connectMaxDelay  = 10 * time.Second
)

// Backoff returns the wait before retry n (0-based): base doubled per
// attempt, capped at max, plus up to 250ms of jitter.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	delay := max
	if d := float64(base) * math.Pow(2, float64(attempt)); d < float64(max) {
		delay = time.Duration(d)
	}

	return delay + time.Duration(rand.Intn(250))*time.Millisecond
}

// Retry calls fn up to attempts times, sleeping with Backoff in between.
// It returns the last error, or ctx.Err() if ctx ends first.
func Retry(ctx context.Context, attempts int, base, max time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		wait := Backoff(i, base, max)
		slog.Default().WarnContext(ctx, "retrying after error",
			"attempt", i+1, "of", attempts, "wait", wait.String(), "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

// ConnectWithRetry opens the pool, retrying while Postgres comes up.
func ConnectWithRetry(ctx context.Context, dbURL string, attempts int) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := Retry(ctx, attempts, connectBaseDelay, connectMaxDelay, func(ctx context.Context) error {
		p, err := NewPool(ctx, dbURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}
