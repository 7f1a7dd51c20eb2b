package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/ratingportal/internal/domain/rating"
)

type RatingsRepo struct {
	db *DB
}

func (r *RatingsRepo) StoreExists(_ context.Context, storeID int64) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	_, ok := r.db.stores[storeID]
	return ok, nil
}

// Upsert inserts or updates the (user, store) rating in one critical section.
func (r *RatingsRepo) Upsert(_ context.Context, userID, storeID int64, value int) (rating.Rating, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := ratingKey{userID: userID, storeID: storeID}
	now := r.db.now()

	if id, ok := r.db.ratingKeys[key]; ok {
		existing := r.db.ratings[id]
		existing.Value = value
		existing.UpdatedAt = now
		r.db.ratings[id] = existing
		return existing, false, nil
	}

	r.db.nextRatingID++
	created := rating.Rating{
		ID:        r.db.nextRatingID,
		UserID:    userID,
		StoreID:   storeID,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.db.ratings[created.ID] = created
	r.db.ratingKeys[key] = created.ID

	return created, true, nil
}

func (r *RatingsRepo) StatsForStore(_ context.Context, storeID int64) (rating.Stats, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.statsLocked(storeID), nil
}

func (r *RatingsRepo) ListRaters(_ context.Context, storeID int64) ([]rating.Rater, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]rating.Rater, 0)
	for _, rt := range r.db.ratings {
		if rt.StoreID != storeID {
			continue
		}
		u := r.db.users[rt.UserID]
		out = append(out, rating.Rater{
			UserID:  u.ID,
			Name:    u.Name,
			Email:   u.Email,
			Value:   rt.Value,
			RatedAt: rt.CreatedAt,
		})
	}

	// newest first
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RatedAt.Equal(out[j].RatedAt) {
			return out[i].RatedAt.After(out[j].RatedAt)
		}
		return out[i].UserID > out[j].UserID
	})

	return out, nil
}

func (r *RatingsRepo) ValuesByUser(_ context.Context, userID int64) (map[int64]int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make(map[int64]int)
	for key, id := range r.db.ratingKeys {
		if key.userID == userID {
			out[key.storeID] = r.db.ratings[id].Value
		}
	}
	return out, nil
}

// CountForPair reports how many rating rows exist for one (user, store).
func (r *RatingsRepo) CountForPair(_ context.Context, userID, storeID int64) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n := 0
	for _, rt := range r.db.ratings {
		if rt.UserID == userID && rt.StoreID == storeID {
			n++
		}
	}
	return n, nil
}

func (r *RatingsRepo) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return int64(len(r.db.ratings)), nil
}
