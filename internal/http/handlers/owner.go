package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/ratingportal/internal/cache"
	"github.com/geocoder89/ratingportal/internal/domain/rating"
	"github.com/geocoder89/ratingportal/internal/domain/store"
	"github.com/geocoder89/ratingportal/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type OwnerStores interface {
	GetByOwner(ctx context.Context, ownerID int64) (store.Store, error)
}

type RaterLister interface {
	ListRaters(ctx context.Context, storeID int64) ([]rating.Rater, error)
}

type OwnerHandler struct {
	stores OwnerStores
	agg    StoreAverager
	raters RaterLister
	// owner id -> store; the pairing never changes once created
	byOwner *cache.Cache[int64, store.Store]
}

func NewOwnerHandler(stores OwnerStores, agg StoreAverager, raters RaterLister, byOwner *cache.Cache[int64, store.Store]) *OwnerHandler {
	return &OwnerHandler{stores: stores, agg: agg, raters: raters, byOwner: byOwner}
}

// Stats reports the aggregate for the caller's own store.
func (h *OwnerHandler) Stats(ctx *gin.Context) {
	s, ok := h.ownStore(ctx)
	if !ok {
		return
	}

	agg, err := h.agg.Average(ctx.Request.Context(), s.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondNotFound(ctx, "No store found for this owner")
			return
		}
		RespondInternal(ctx, "Could not load store stats", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"storeDetails": gin.H{
			"name":    s.Name,
			"email":   s.Email,
			"address": s.Address,
		},
		"averageRating": agg.Average,
		"totalRatings":  agg.Count,
	})
}

// RatingUsers lists who rated the caller's store, newest first.
func (h *OwnerHandler) RatingUsers(ctx *gin.Context) {
	s, ok := h.ownStore(ctx)
	if !ok {
		return
	}

	raters, err := h.raters.ListRaters(ctx.Request.Context(), s.ID)
	if err != nil {
		RespondInternal(ctx, "Could not list raters", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": raters})
}

// ownStore resolves the store from the authenticated identity only.
func (h *OwnerHandler) ownStore(ctx *gin.Context) (store.Store, bool) {
	me, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return store.Store{}, false
	}

	if h.byOwner != nil {
		if s, ok := h.byOwner.Get(me.ID); ok {
			return s, true
		}
	}

	s, err := h.stores.GetByOwner(ctx.Request.Context(), me.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondNotFound(ctx, "No store found for this owner")
			return store.Store{}, false
		}
		RespondInternal(ctx, "Could not load store", err)
		return store.Store{}, false
	}

	if h.byOwner != nil {
		h.byOwner.Set(me.ID, s)
	}
	return s, true
}
