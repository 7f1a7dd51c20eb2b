package security

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher hashes and verifies passwords with bcrypt. At most `workers`
// bcrypt computations run at once; callers beyond that wait on ctx.
type Hasher struct {
	cost  int
	sem   *semaphore.Weighted
	dummy []byte
}

func NewHasher(cost, workers int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// hash of a random value nobody knows; login compares against it when the
	// email is unknown so both failure paths cost the same.
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("seed dummy hash: %w", err)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(seed[:])), cost)
	if err != nil {
		return nil, fmt.Errorf("build dummy hash: %w", err)
	}

	return &Hasher{
		cost:  cost,
		sem:   semaphore.NewWeighted(int64(workers)),
		dummy: dummy,
	}, nil
}

// Hash password hashes a plain text password with bcrypt.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify reports whether hash was produced from plain. A corrupt or truncated
// hash is just a mismatch.
func (h *Hasher) Verify(ctx context.Context, plain, hash string) bool {
	return h.compare(ctx, []byte(hash), plain)
}

// VerifyDummy burns one compare and always reports false.
func (h *Hasher) VerifyDummy(ctx context.Context, plain string) bool {
	_ = h.compare(ctx, h.dummy, plain)
	return false
}

func (h *Hasher) compare(ctx context.Context, hash []byte, plain string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}
