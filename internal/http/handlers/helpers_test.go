package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/ratingportal/internal/auth"
	"github.com/geocoder89/ratingportal/internal/cache"
	"github.com/geocoder89/ratingportal/internal/domain/store"
	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/geocoder89/ratingportal/internal/http/handlers"
	"github.com/geocoder89/ratingportal/internal/http/middlewares"
	"github.com/geocoder89/ratingportal/internal/ratings"
	"github.com/geocoder89/ratingportal/internal/repo/memory"
	"github.com/geocoder89/ratingportal/internal/security"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := handlers.RegisterValidators(); err != nil {
		panic(err)
	}
}

const testPassword = "Secret#Pass1"

type testEnv struct {
	t      *testing.T
	db     *memory.DB
	hasher *security.Hasher
	tokens *auth.Manager
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := memory.NewDB()
	hasher, err := security.NewHasher(bcrypt.MinCost, 2)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	tokens := auth.NewManager("handlers-test-secret-0123456789abcdef", time.Hour)
	agg := ratings.NewAggregator(db.Ratings(), nil)

	authH := handlers.NewAuthHandler(db.Users(), hasher, tokens, nil)
	adminH := handlers.NewAdminHandler(db.Users(), db.Stores(), db.Ratings(), agg, hasher)
	userH := handlers.NewUserHandler(db.Stores(), db.Ratings(), agg)
	ownerH := handlers.NewOwnerHandler(db.Stores(), agg, db.Ratings(), cache.New[int64, store.Store](time.Minute))

	authn := middlewares.NewAuthMiddleware(tokens, db.Users()).RequireAuth()
	admins := middlewares.RequireRoles(user.NewRoleSet(user.RoleAdmin))
	users := middlewares.RequireRoles(user.NewRoleSet(user.RoleUser))
	owners := middlewares.RequireRoles(user.NewRoleSet(user.RoleOwner))

	r := gin.New()
	r.Use(middlewares.RequestID())
	r.POST("/register", authH.Register)
	r.POST("/login", authH.Login)
	r.POST("/change-password", authn, authH.ChangePassword)

	r.GET("/admin/dashboard-stats", authn, admins, adminH.DashboardStats)
	r.GET("/admin/stores", authn, admins, adminH.ListStores)
	r.POST("/admin/stores", authn, admins, adminH.CreateStore)
	r.GET("/admin/stores/:id/rating", authn, admins, adminH.StoreRating)
	r.GET("/admin/users", authn, admins, adminH.ListUsers)
	r.POST("/admin/users", authn, admins, adminH.CreateUser)

	r.GET("/user/stores", authn, users, userH.ListStores)
	r.POST("/user/ratings", authn, users, userH.SubmitRating)

	r.GET("/owner/stats", authn, owners, ownerH.Stats)
	r.GET("/owner/rating-users", authn, owners, ownerH.RatingUsers)

	return &testEnv{t: t, db: db, hasher: hasher, tokens: tokens, router: r}
}

func (e *testEnv) seedUser(name, email string, role user.Role) user.User {
	e.t.Helper()

	hash, err := e.hasher.Hash(context.Background(), testPassword)
	if err != nil {
		e.t.Fatalf("hash: %v", err)
	}
	u, err := e.db.Users().Create(context.Background(), user.NewUser{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Address:      "1 Test Road",
		Role:         role,
	})
	if err != nil {
		e.t.Fatalf("seed user: %v", err)
	}
	return u
}

func (e *testEnv) seedStore(name, email string) (store.Store, user.User) {
	e.t.Helper()

	hash, _ := e.hasher.Hash(context.Background(), testPassword)
	s, owner, err := e.db.Stores().CreateWithOwner(context.Background(), store.NewStore{
		Name:              name,
		Email:             email,
		Address:           "9 Market Square",
		OwnerPasswordHash: hash,
	})
	if err != nil {
		e.t.Fatalf("seed store: %v", err)
	}
	return s, owner
}

func (e *testEnv) token(u user.User) string {
	e.t.Helper()
	tok, err := e.tokens.Issue(u)
	if err != nil {
		e.t.Fatalf("issue: %v", err)
	}
	return tok
}

func (e *testEnv) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

type errResp struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, want, w.Body.String())
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	if got := decode[errResp](t, w).Error.Code; got != code {
		t.Fatalf("error code = %q, want %q", got, code)
	}
}

