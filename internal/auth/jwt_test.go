package auth_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/ratingportal/internal/auth"
	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key"

func TestManager_RoundTrip(t *testing.T) {
	m := auth.NewManager(testSecret, time.Hour)

	for i, role := range user.AllRoles {
		u := user.User{ID: int64(i + 1), Email: "someone@example.com", Role: role}

		tok, err := m.Issue(u)
		if err != nil {
			t.Fatalf("Issue(%s): %v", role, err)
		}

		p, err := m.Verify(tok)
		if err != nil {
			t.Fatalf("Verify(%s): %v", role, err)
		}

		if p.UserID != u.ID || p.Role != u.Role {
			t.Fatalf("got principal %+v, want id=%d role=%s", p, u.ID, u.Role)
		}
	}
}

func TestManager_Expired(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	issuer := auth.NewManager(testSecret, 24*time.Hour).WithClock(func() time.Time { return issuedAt })

	tok, err := issuer.Issue(user.User{ID: 7, Role: user.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	justBefore := issuer.WithClock(func() time.Time { return issuedAt.Add(24*time.Hour - time.Second) })
	if _, err := justBefore.Verify(tok); err != nil {
		t.Fatalf("token should still be valid just before expiry: %v", err)
	}

	atExpiry := issuer.WithClock(func() time.Time { return issuedAt.Add(24 * time.Hour) })
	if _, err := atExpiry.Verify(tok); err != nil {
		t.Fatalf("token should be valid at its expiry instant: %v", err)
	}

	past := issuer.WithClock(func() time.Time { return issuedAt.Add(24*time.Hour + time.Nanosecond) })
	if _, err := past.Verify(tok); !errors.Is(err, auth.ErrExpired) {
		t.Fatalf("expected ErrExpired just past expiry, got %v", err)
	}

	after := issuer.WithClock(func() time.Time { return issuedAt.Add(24*time.Hour + time.Second) })
	if _, err := after.Verify(tok); !errors.Is(err, auth.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestManager_FlippedSignatureByte(t *testing.T) {
	m := auth.NewManager(testSecret, time.Hour)

	tok, err := m.Issue(user.User{ID: 3, Role: user.RoleOwner})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", tok)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	sig[0] ^= 0x01
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)

	if _, err := m.Verify(strings.Join(parts, ".")); !errors.Is(err, auth.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestManager_OtherSecretRejected(t *testing.T) {
	tok, err := auth.NewManager("another-secret", time.Hour).Issue(user.User{ID: 1, Role: user.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := auth.NewManager(testSecret, time.Hour).Verify(tok); !errors.Is(err, auth.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestManager_TamperedPayloadRejected(t *testing.T) {
	m := auth.NewManager(testSecret, time.Hour)

	tok, err := m.Issue(user.User{ID: 5, Role: user.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(tok, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	escalated := strings.Replace(string(payload), `"role":"user"`, `"role":"admin"`, 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(escalated))

	if _, err := m.Verify(strings.Join(parts, ".")); !errors.Is(err, auth.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for escalated role, got %v", err)
	}
}

func TestManager_Malformed(t *testing.T) {
	m := auth.NewManager(testSecret, time.Hour)

	for _, raw := range []string{"", "abc", "a.b", "a.b.c", "....."} {
		if _, err := m.Verify(raw); !errors.Is(err, auth.ErrMalformed) {
			t.Fatalf("Verify(%q): expected ErrMalformed, got %v", raw, err)
		}
	}
}

func TestManager_RejectsBadClaims(t *testing.T) {
	m := auth.NewManager(testSecret, time.Hour)
	now := time.Now()

	tests := []struct {
		name   string
		claims auth.Claims
	}{
		{
			name: "non numeric subject",
			claims: auth.Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{
				Subject: "alice", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}},
		},
		{
			name: "unknown role",
			claims: auth.Claims{Role: "root", RegisteredClaims: jwt.RegisteredClaims{
				Subject: "1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}},
		},
		{
			name: "missing expiry",
			claims: auth.Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{
				Subject: "1",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString([]byte(testSecret))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := m.Verify(tok); !errors.Is(err, auth.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestManager_RejectsOtherAlgorithms(t *testing.T) {
	m := auth.NewManager(testSecret, time.Hour)

	claims := auth.Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.Verify(tok); !errors.Is(err, auth.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for HS512, got %v", err)
	}
}

func TestManager_IssueRejectsIncompleteIdentity(t *testing.T) {
	m := auth.NewManager(testSecret, time.Hour)

	if _, err := m.Issue(user.User{ID: 0, Role: user.RoleUser}); err == nil {
		t.Fatalf("expected error for zero id")
	}
	if _, err := m.Issue(user.User{ID: 1, Role: "guest"}); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
