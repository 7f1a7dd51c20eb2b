package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/ratingportal/internal/domain/rating"
	"github.com/geocoder89/ratingportal/internal/domain/store"
	"github.com/geocoder89/ratingportal/internal/http/middlewares"
	"github.com/geocoder89/ratingportal/internal/ratings"
	"github.com/gin-gonic/gin"
)

type StoreLister interface {
	List(ctx context.Context, f store.ListFilter) ([]store.Summary, error)
}

type OwnRatings interface {
	ValuesByUser(ctx context.Context, userID int64) (map[int64]int, error)
}

type RatingSubmitter interface {
	Submit(ctx context.Context, userID, storeID int64, value int) (ratings.SubmitResult, error)
}

type UserHandler struct {
	stores  StoreLister
	own     OwnRatings
	submits RatingSubmitter
}

func NewUserHandler(stores StoreLister, own OwnRatings, submits RatingSubmitter) *UserHandler {
	return &UserHandler{stores: stores, own: own, submits: submits}
}

type userStoreItem struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	OverallRating float64 `json:"overallRating"`
	RatingCount   int64   `json:"ratingCount"`
	UserRating    *int    `json:"userRating"`
}

// ListStores returns every store with its aggregate and the caller's own rating.
func (h *UserHandler) ListStores(ctx *gin.Context) {
	me, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	p, ok := parseListParams(ctx)
	if !ok {
		return
	}

	rows, err := h.stores.List(ctx.Request.Context(), store.ListFilter{Query: p.Query, Sort: p.Sort, Desc: p.Desc})
	if err != nil {
		RespondInternal(ctx, "Could not list stores", err)
		return
	}

	mine, err := h.own.ValuesByUser(ctx.Request.Context(), me.ID)
	if err != nil {
		RespondInternal(ctx, "Could not list stores", err)
		return
	}

	out := make([]userStoreItem, 0, len(rows))
	for _, r := range rows {
		agg := rating.NewAggregate(rating.Stats{Sum: r.RatingSum, Count: r.RatingCount})
		item := userStoreItem{
			ID:            r.Store.ID,
			Name:          r.Store.Name,
			Address:       r.Store.Address,
			OverallRating: agg.Average,
			RatingCount:   agg.Count,
		}
		if v, ok := mine[r.Store.ID]; ok {
			item.UserRating = &v
		}
		out = append(out, item)
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"stores": out})
}

// SubmitRating creates the caller's rating (201) or replaces it (200).
func (h *UserHandler) SubmitRating(ctx *gin.Context) {
	me, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req rating.SubmitRequest
	if !BindJSON(ctx, &req) {
		return
	}

	res, err := h.submits.Submit(ctx.Request.Context(), me.ID, req.StoreID, *req.Value)
	if err != nil {
		switch {
		case errors.Is(err, rating.ErrInvalidValue):
			RespondError(ctx, http.StatusBadRequest, "invalid_rating", "Rating must be between 1 and 5", gin.H{"field": "rating"})
		case errors.Is(err, store.ErrNotFound):
			RespondNotFound(ctx, "Store not found")
		default:
			RespondInternal(ctx, "Could not submit rating", err)
		}
		return
	}

	status, msg := http.StatusOK, "Rating updated successfully"
	if res.Created {
		status, msg = http.StatusCreated, "Rating submitted successfully"
	}

	ctx.JSON(status, gin.H{
		"message":  msg,
		"ratingId": res.Rating.ID,
		"rating":   res.Rating.Value,
		"created":  res.Created,
	})
}
