// Package ratings owns the one-rating-per-(user, store) upsert and the
// aggregate read. Every average shown anywhere is built from
// rating.NewAggregate over totals this package or the listing queries return.
package ratings

import (
	"context"
	"fmt"

	"github.com/geocoder89/ratingportal/internal/domain/rating"
	"github.com/geocoder89/ratingportal/internal/domain/store"
)

type Repository interface {
	StoreExists(ctx context.Context, storeID int64) (bool, error)
	// Upsert must be a single atomic insert-or-update keyed on (userID, storeID).
	Upsert(ctx context.Context, userID, storeID int64, value int) (rating.Rating, bool, error)
	StatsForStore(ctx context.Context, storeID int64) (rating.Stats, error)
}

// Recorder receives submission outcomes. Optional.
type Recorder interface {
	RatingSubmitted(created bool)
}

type SubmitResult struct {
	Rating  rating.Rating
	Created bool
}

type Aggregator struct {
	repo     Repository
	recorder Recorder
}

func NewAggregator(repo Repository, recorder Recorder) *Aggregator {
	return &Aggregator{repo: repo, recorder: recorder}
}

func (a *Aggregator) Submit(ctx context.Context, userID, storeID int64, value int) (SubmitResult, error) {
	if err := rating.ValidateValue(value); err != nil {
		return SubmitResult{}, err
	}

	if err := a.requireStore(ctx, storeID); err != nil {
		return SubmitResult{}, err
	}

	r, created, err := a.repo.Upsert(ctx, userID, storeID, value)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("upsert rating: %w", err)
	}

	if a.recorder != nil {
		a.recorder.RatingSubmitted(created)
	}

	return SubmitResult{Rating: r, Created: created}, nil
}

func (a *Aggregator) Average(ctx context.Context, storeID int64) (rating.Aggregate, error) {
	if err := a.requireStore(ctx, storeID); err != nil {
		return rating.Aggregate{}, err
	}

	stats, err := a.repo.StatsForStore(ctx, storeID)
	if err != nil {
		return rating.Aggregate{}, fmt.Errorf("rating stats: %w", err)
	}

	return rating.NewAggregate(stats), nil
}

func (a *Aggregator) requireStore(ctx context.Context, storeID int64) error {
	if storeID <= 0 {
		return store.ErrNotFound
	}

	ok, err := a.repo.StoreExists(ctx, storeID)
	if err != nil {
		return fmt.Errorf("check store: %w", err)
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}
