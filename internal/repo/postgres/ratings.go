package postgres

import (
	"context"

	"github.com/geocoder89/ratingportal/internal/domain/rating"
	"github.com/geocoder89/ratingportal/internal/domain/store"
	"github.com/geocoder89/ratingportal/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RatingsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRatingsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RatingsRepo {
	return &RatingsRepo{pool: pool, prom: prom}
}

func (r *RatingsRepo) StoreExists(ctx context.Context, storeID int64) (bool, error) {
	var exists bool
	err := observe(ctx, r.prom, "ratings.store_exists", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM stores WHERE id = $1)`, storeID).Scan(&exists)
	})
	return exists, err
}

// Upsert writes the (user, store) rating in a single statement. The unique
// constraint serialises concurrent submits; xmax = 0 only on a fresh insert.
func (r *RatingsRepo) Upsert(ctx context.Context, userID, storeID int64, value int) (rating.Rating, bool, error) {
	rt := rating.Rating{UserID: userID, StoreID: storeID, Value: value}
	var inserted bool

	err := observe(ctx, r.prom, "ratings.upsert", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `
			INSERT INTO ratings (user_id, store_id, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, store_id)
			DO UPDATE SET value = EXCLUDED.value, updated_at = now()
			RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`,
			userID, storeID, value,
		).Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt, &inserted)
	})
	if err != nil {
		if IsForeignKeyViolation(err) && constraintName(err) != "ratings_user_id_fkey" {
			return rating.Rating{}, false, store.ErrNotFound
		}
		return rating.Rating{}, false, err
	}

	return rt, inserted, nil
}

func (r *RatingsRepo) StatsForStore(ctx context.Context, storeID int64) (rating.Stats, error) {
	var st rating.Stats
	err := observe(ctx, r.prom, "ratings.stats_for_store", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx,
			`SELECT COALESCE(SUM(value), 0), COUNT(*) FROM ratings WHERE store_id = $1`,
			storeID).Scan(&st.Sum, &st.Count)
	})
	return st, err
}

// ListRaters returns who rated the store, newest first.
func (r *RatingsRepo) ListRaters(ctx context.Context, storeID int64) ([]rating.Rater, error) {
	out := make([]rating.Rater, 0)

	err := observe(ctx, r.prom, "ratings.list_raters", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `
			SELECT u.id, u.name, u.email, r.value, r.created_at
			FROM ratings r
			JOIN users u ON u.id = r.user_id
			WHERE r.store_id = $1
			ORDER BY r.created_at DESC, u.id DESC`, storeID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rt rating.Rater
			if err := rows.Scan(&rt.UserID, &rt.Name, &rt.Email, &rt.Value, &rt.RatedAt); err != nil {
				return err
			}
			out = append(out, rt)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ValuesByUser maps store id to the caller's own rating.
func (r *RatingsRepo) ValuesByUser(ctx context.Context, userID int64) (map[int64]int, error) {
	out := make(map[int64]int)

	err := observe(ctx, r.prom, "ratings.values_by_user", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx,
			`SELECT store_id, value FROM ratings WHERE user_id = $1`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var storeID int64
			var v int
			if err := rows.Scan(&storeID, &v); err != nil {
				return err
			}
			out[storeID] = v
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RatingsRepo) CountForPair(ctx context.Context, userID, storeID int64) (int, error) {
	var n int
	err := observe(ctx, r.prom, "ratings.count_for_pair", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM ratings WHERE user_id = $1 AND store_id = $2`,
			userID, storeID).Scan(&n)
	})
	return n, err
}

func (r *RatingsRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := observe(ctx, r.prom, "ratings.count", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&n)
	})
	return n, err
}
