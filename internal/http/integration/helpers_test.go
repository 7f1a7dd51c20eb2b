package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/ratingportal/internal/auth"
	"github.com/geocoder89/ratingportal/internal/config"
	apphttp "github.com/geocoder89/ratingportal/internal/http"
	"github.com/geocoder89/ratingportal/internal/observability"
	"github.com/geocoder89/ratingportal/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() config.Config {
	return config.Config{
		Env:                "test",
		JWTSecret:          "integration-test-secret-0123456789abcdef",
		JWTTTL:             time.Hour,
		BcryptCost:         bcrypt.MinCost,
		HashWorkers:        2,
		LoginRateLimit:     1000,
		RegisterRateLimit:  1000,
		APIRateLimit:       1000,
		RateLimitWindow:    time.Minute,
		OwnerStoreCacheTTL: time.Minute,
		MaxBodyBytes:       1 << 20,
	}
}

type server struct {
	t      *testing.T
	router *gin.Engine
	prom   *observability.Prom
}

func newServer(t *testing.T, cfg config.Config, users apphttp.UsersRepo, stores apphttp.StoresRepo, ratings apphttp.RatingsRepo) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hasher, err := security.NewHasher(cfg.BcryptCost, cfg.HashWorkers)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	r, err := apphttp.NewRouter(apphttp.Deps{
		Config:   cfg,
		Users:    users,
		Stores:   stores,
		Ratings:  ratings,
		Hasher:   hasher,
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		Prom:     prom,
		Gatherer: reg,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	return &server{t: t, router: r, prom: prom}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) login(email, password string) string {
	s.t.Helper()

	w := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	mustStatus(s.t, w, http.StatusOK)

	var resp struct {
		Token string `json:"token"`
	}
	mustDecode(s.t, w, &resp)
	return resp.Token
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, want, w.Body.String())
	}
}

func mustDecode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}
