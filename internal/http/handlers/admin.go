package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/ratingportal/internal/domain/rating"
	"github.com/geocoder89/ratingportal/internal/domain/store"
	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type AdminUsers interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, f user.ListFilter) ([]user.Summary, error)
}

type AdminStores interface {
	CreateWithOwner(ctx context.Context, ns store.NewStore) (store.Store, user.User, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, f store.ListFilter) ([]store.Summary, error)
}

type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type StoreAverager interface {
	Average(ctx context.Context, storeID int64) (rating.Aggregate, error)
}

type AdminHandler struct {
	users   AdminUsers
	stores  AdminStores
	ratings Counter
	agg     StoreAverager
	hasher  PasswordHasher
}

func NewAdminHandler(users AdminUsers, stores AdminStores, ratings Counter, agg StoreAverager, hasher PasswordHasher) *AdminHandler {
	return &AdminHandler{
		users:   users,
		stores:  stores,
		ratings: ratings,
		agg:     agg,
		hasher:  hasher,
	}
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=20,max=60"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,password_policy"`
	Address  string `json:"address" binding:"max=400"`
	Role     string `json:"role" binding:"required,oneof=admin user"`
}

type storeListItem struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Address     string      `json:"address"`
	CreatedAt   time.Time   `json:"createdAt"`
	Owner       store.Owner `json:"owner"`
	Rating      float64     `json:"rating"`
	RatingCount int64       `json:"ratingCount"`
}

type userListItem struct {
	user.Summary
	Rating      *float64 `json:"rating,omitempty"`
	RatingCount *int64   `json:"ratingCount,omitempty"`
}

func (h *AdminHandler) DashboardStats(ctx *gin.Context) {
	var users, stores, ratings int64

	g, gctx := errgroup.WithContext(ctx.Request.Context())
	g.Go(func() (err error) { users, err = h.users.Count(gctx); return })
	g.Go(func() (err error) { stores, err = h.stores.Count(gctx); return })
	g.Go(func() (err error) { ratings, err = h.ratings.Count(gctx); return })

	if err := g.Wait(); err != nil {
		RespondInternal(ctx, "Could not load dashboard stats", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"totalUsers":   users,
		"totalStores":  stores,
		"totalRatings": ratings,
	})
}

func (h *AdminHandler) ListStores(ctx *gin.Context) {
	p, ok := parseListParams(ctx)
	if !ok {
		return
	}

	rows, err := h.stores.List(ctx.Request.Context(), store.ListFilter{Query: p.Query, Sort: p.Sort, Desc: p.Desc})
	if err != nil {
		RespondInternal(ctx, "Could not list stores", err)
		return
	}

	out := make([]storeListItem, 0, len(rows))
	for _, r := range rows {
		agg := rating.NewAggregate(rating.Stats{Sum: r.RatingSum, Count: r.RatingCount})
		out = append(out, storeListItem{
			ID:          r.Store.ID,
			Name:        r.Store.Name,
			Email:       r.Store.Email,
			Address:     r.Store.Address,
			CreatedAt:   r.Store.CreatedAt,
			Owner:       r.Owner,
			Rating:      agg.Average,
			RatingCount: agg.Count,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{"stores": out})
}

// CreateStore creates the store and its owner identity together.
func (h *AdminHandler) CreateStore(ctx *gin.Context) {
	var req store.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	email := user.NormalizeEmail(req.Email)

	if _, err := h.users.GetByEmail(cctx, email); err == nil {
		respondEmailTaken(ctx)
		return
	} else if !errors.Is(err, user.ErrNotFound) {
		RespondInternal(ctx, "Could not create store", err)
		return
	}

	hash, err := h.hasher.Hash(cctx, req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create store", err)
		return
	}

	s, owner, err := h.stores.CreateWithOwner(cctx, store.NewStore{
		Name:              strings.TrimSpace(req.Name),
		Email:             email,
		Address:           strings.TrimSpace(req.Address),
		OwnerPasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			respondEmailTaken(ctx)
			return
		}
		RespondInternal(ctx, "Could not create store", err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Store created successfully",
		"storeId": s.ID,
		"ownerId": owner.ID,
	})
}

func (h *AdminHandler) StoreRating(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	agg, err := h.agg.Average(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondNotFound(ctx, "Store not found")
			return
		}
		RespondInternal(ctx, "Could not load rating", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"storeId": id,
		"average": agg.Average,
		"count":   agg.Count,
	})
}

func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	p, ok := parseListParams(ctx)
	if !ok {
		return
	}

	f := user.ListFilter{Query: p.Query, Sort: p.Sort, Desc: p.Desc}

	if raw := ctx.Query("role"); raw != "" {
		role, err := user.ParseRole(raw)
		if err != nil {
			RespondBadRequest(ctx, "Invalid role filter", gin.H{"field": "role"})
			return
		}
		f.Role = &role
	}

	rows, err := h.users.List(ctx.Request.Context(), f)
	if err != nil {
		RespondInternal(ctx, "Could not list users", err)
		return
	}

	out := make([]userListItem, 0, len(rows))
	for _, r := range rows {
		item := userListItem{Summary: r}
		if r.Role == user.RoleOwner {
			agg := rating.NewAggregate(rating.Stats{Sum: r.RatingSum, Count: r.RatingCount})
			item.Rating = &agg.Average
			item.RatingCount = &agg.Count
		}
		out = append(out, item)
	}

	ctx.JSON(http.StatusOK, gin.H{"users": out})
}

// CreateUser adds an admin or end-user. Owners only come from CreateStore.
func (h *AdminHandler) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	role, err := user.ParseRole(req.Role)
	if err != nil || role == user.RoleOwner {
		RespondBadRequest(ctx, "Invalid role", gin.H{"field": "role"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	u, ok := createIdentity(ctx, cctx, h.users, h.hasher, user.NewUser{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Address: strings.TrimSpace(req.Address),
		Role:    role,
	}, req.Password)
	if !ok {
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"userId":  u.ID,
	})
}
