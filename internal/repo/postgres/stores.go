package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/ratingportal/internal/domain/store"
	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/geocoder89/ratingportal/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StoresRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewStoresRepo(pool *pgxpool.Pool, prom *observability.Prom) *StoresRepo {
	return &StoresRepo{pool: pool, prom: prom}
}

const storeColumns = `id, owner_id, name, email, address, created_at, updated_at`

func scanStore(row pgx.Row) (store.Store, error) {
	var s store.Store
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Email, &s.Address, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// CreateWithOwner inserts the owner identity and its store in one transaction.
func (r *StoresRepo) CreateWithOwner(ctx context.Context, ns store.NewStore) (s store.Store, owner user.User, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = observe(ctx, r.prom, "stores.create_with_owner.owner", func(ctx context.Context) error {
		var e error
		owner, e = scanUser(tx.QueryRow(ctx, `
			INSERT INTO users (name, email, password_hash, address, role)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+userColumns,
			ns.Name, ns.Email, ns.OwnerPasswordHash, ns.Address, string(user.RoleOwner),
		))
		return e
	})
	if err != nil {
		if IsUniqueViolation(err) {
			err = user.ErrEmailTaken
		}
		return
	}

	err = observe(ctx, r.prom, "stores.create_with_owner.store", func(ctx context.Context) error {
		var e error
		s, e = scanStore(tx.QueryRow(ctx, `
			INSERT INTO stores (owner_id, name, email, address)
			VALUES ($1, $2, $3, $4)
			RETURNING `+storeColumns,
			owner.ID, ns.Name, ns.Email, ns.Address,
		))
		return e
	})
	if err != nil {
		if IsUniqueViolation(err) && constraintName(err) == "stores_email_uniq" {
			err = user.ErrEmailTaken
		}
		return
	}

	err = tx.Commit(ctx)
	return
}

func (r *StoresRepo) GetByID(ctx context.Context, id int64) (store.Store, error) {
	var s store.Store

	err := observe(ctx, r.prom, "stores.get_by_id", func(ctx context.Context) error {
		var err error
		s, err = scanStore(r.pool.QueryRow(ctx,
			`SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Store{}, store.ErrNotFound
		}
		return store.Store{}, err
	}
	return s, nil
}

func (r *StoresRepo) GetByOwner(ctx context.Context, ownerID int64) (store.Store, error) {
	var s store.Store

	err := observe(ctx, r.prom, "stores.get_by_owner", func(ctx context.Context) error {
		var err error
		s, err = scanStore(r.pool.QueryRow(ctx,
			`SELECT `+storeColumns+` FROM stores WHERE owner_id = $1`, ownerID))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Store{}, store.ErrNotFound
		}
		return store.Store{}, err
	}
	return s, nil
}

func (r *StoresRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := observe(ctx, r.prom, "stores.count", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stores`).Scan(&n)
	})
	return n, err
}

func (r *StoresRepo) List(ctx context.Context, f store.ListFilter) ([]store.Summary, error) {
	var args []any

	sql := `
		SELECT s.id, s.owner_id, s.name, s.email, s.address, s.created_at, s.updated_at,
		       u.id, u.name, u.email,
		       COALESCE(SUM(r.value), 0), COUNT(r.id)
		FROM stores s
		JOIN users u ON u.id = s.owner_id
		LEFT JOIN ratings r ON r.store_id = s.id`
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, likePattern(q))
		sql += ` WHERE (s.name ILIKE $1 OR s.email ILIKE $1 OR s.address ILIKE $1)`
	}
	sql += ` GROUP BY s.id, u.id ` + orderBy("s", f.Sort, f.Desc)

	out := make([]store.Summary, 0)

	err := observe(ctx, r.prom, "stores.list", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var sm store.Summary
			if err := rows.Scan(
				&sm.Store.ID, &sm.Store.OwnerID, &sm.Store.Name, &sm.Store.Email,
				&sm.Store.Address, &sm.Store.CreatedAt, &sm.Store.UpdatedAt,
				&sm.Owner.ID, &sm.Owner.Name, &sm.Owner.Email,
				&sm.RatingSum, &sm.RatingCount,
			); err != nil {
				return err
			}
			out = append(out, sm)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
