package middlewares_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/ratingportal/internal/actorctx"
	"github.com/geocoder89/ratingportal/internal/auth"
	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/geocoder89/ratingportal/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	calls int
	p     auth.Principal
	err   error
}

func (f *fakeVerifier) Verify(string) (auth.Principal, error) {
	f.calls++
	return f.p, f.err
}

type fakeLoader struct {
	calls int
	u     user.User
	err   error
}

func (f *fakeLoader) GetByID(context.Context, int64) (user.User, error) {
	f.calls++
	return f.u, f.err
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAuthRouter(v middlewares.TokenVerifier, l middlewares.IdentityLoader, reached *bool) *gin.Engine {
	r := gin.New()
	m := middlewares.NewAuthMiddleware(v, l)
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		*reached = true

		u, ok := middlewares.CurrentUser(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		if _, ok := actorctx.IdentityFrom(c.Request.Context()); !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": u.ID})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	alice := user.User{ID: 42, Name: "Alice", Role: user.RoleUser}

	tests := []struct {
		name         string
		header       string
		verifier     *fakeVerifier
		loader       *fakeLoader
		wantStatus   int
		wantCode     string
		wantVerify   int
		wantLoad     int
		wantDownstep bool
	}{
		{
			name:       "missing header",
			header:     "",
			verifier:   &fakeVerifier{},
			loader:     &fakeLoader{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "wrong scheme",
			header:     "Basic abc",
			verifier:   &fakeVerifier{},
			loader:     &fakeLoader{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "blank bearer",
			header:     "Bearer   ",
			verifier:   &fakeVerifier{},
			loader:     &fakeLoader{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "expired token",
			header:     "Bearer tok",
			verifier:   &fakeVerifier{err: auth.ErrExpired},
			loader:     &fakeLoader{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
			wantVerify: 1,
		},
		{
			name:       "bad signature",
			header:     "Bearer tok",
			verifier:   &fakeVerifier{err: auth.ErrInvalidSignature},
			loader:     &fakeLoader{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
			wantVerify: 1,
		},
		{
			name:       "subject gone",
			header:     "Bearer tok",
			verifier:   &fakeVerifier{p: auth.Principal{UserID: 42, Role: user.RoleUser}},
			loader:     &fakeLoader{err: user.ErrNotFound},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
			wantVerify: 1,
			wantLoad:   1,
		},
		{
			name:       "store failure",
			header:     "Bearer tok",
			verifier:   &fakeVerifier{p: auth.Principal{UserID: 42, Role: user.RoleUser}},
			loader:     &fakeLoader{err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
			wantVerify: 1,
			wantLoad:   1,
		},
		{
			name:       "role mismatch",
			header:     "Bearer tok",
			verifier:   &fakeVerifier{p: auth.Principal{UserID: 42, Role: user.RoleAdmin}},
			loader:     &fakeLoader{u: alice},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
			wantVerify: 1,
			wantLoad:   1,
		},
		{
			name:         "ok",
			header:       "Bearer tok",
			verifier:     &fakeVerifier{p: auth.Principal{UserID: 42, Role: user.RoleUser}},
			loader:       &fakeLoader{u: alice},
			wantStatus:   http.StatusOK,
			wantVerify:   1,
			wantLoad:     1,
			wantDownstep: true,
		},
		{
			name:         "lowercase scheme",
			header:       "bearer tok",
			verifier:     &fakeVerifier{p: auth.Principal{UserID: 42, Role: user.RoleUser}},
			loader:       &fakeLoader{u: alice},
			wantStatus:   http.StatusOK,
			wantVerify:   1,
			wantLoad:     1,
			wantDownstep: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			r := newAuthRouter(tt.verifier, tt.loader, &reached)

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if reached != tt.wantDownstep {
				t.Fatalf("handler reached = %v, want %v", reached, tt.wantDownstep)
			}
			if tt.verifier.calls != tt.wantVerify || tt.loader.calls != tt.wantLoad {
				t.Fatalf("verify calls=%d load calls=%d", tt.verifier.calls, tt.loader.calls)
			}

			if tt.wantCode != "" {
				var body errorBody
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Error.Code != tt.wantCode {
					t.Fatalf("code = %q, want %q", body.Error.Code, tt.wantCode)
				}
			}
		})
	}
}

func TestRequireAuth_RealTokens(t *testing.T) {
	mgr := auth.NewManager("test-secret-with-enough-bytes-123", time.Hour)
	owner := user.User{ID: 9, Role: user.RoleOwner}

	token, err := mgr.Issue(owner)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	reached := false
	r := newAuthRouter(mgr, &fakeLoader{u: owner}, &reached)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !reached {
		t.Fatalf("status = %d reached=%v body=%s", w.Code, reached, w.Body.String())
	}
}
