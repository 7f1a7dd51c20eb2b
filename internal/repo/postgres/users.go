package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/geocoder89/ratingportal/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

const userColumns = `id, name, email, password_hash, address, role, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Address,
		&role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	u.Role = user.Role(role)
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	var u user.User

	err := observe(ctx, r.prom, "users.create", func(ctx context.Context) error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `
			INSERT INTO users (name, email, password_hash, address, role)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+userColumns,
			nu.Name, nu.Email, nu.PasswordHash, nu.Address, string(nu.Role),
		))
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := observe(ctx, r.prom, "users.get_by_email", func(ctx context.Context) error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := observe(ctx, r.prom, "users.get_by_id", func(ctx context.Context) error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	var tag pgconn.CommandTag

	err := observe(ctx, r.prom, "users.update_password", func(ctx context.Context) error {
		var err error
		tag, err = r.pool.Exec(ctx,
			`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
			id, hash)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := observe(ctx, r.prom, "users.count", func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	})
	return n, err
}

// List returns users with their store and rating totals when they own one.
func (r *UsersRepo) List(ctx context.Context, f user.ListFilter) ([]user.Summary, error) {
	var (
		where []string
		args  []any
	)

	if f.Role != nil {
		args = append(args, string(*f.Role))
		where = append(where, "u.role = $"+strconv.Itoa(len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, likePattern(q))
		n := "$" + strconv.Itoa(len(args))
		where = append(where, "(u.name ILIKE "+n+" OR u.email ILIKE "+n+" OR u.address ILIKE "+n+")")
	}

	sql := `
		SELECT u.id, u.name, u.email, u.address, u.role, u.created_at,
		       s.id, s.name,
		       COALESCE(agg.sum, 0), COALESCE(agg.cnt, 0)
		FROM users u
		LEFT JOIN stores s ON s.owner_id = u.id
		LEFT JOIN (
			SELECT store_id, SUM(value) AS sum, COUNT(*) AS cnt
			FROM ratings GROUP BY store_id
		) agg ON agg.store_id = s.id`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " " + orderBy("u", f.Sort, f.Desc)

	out := make([]user.Summary, 0)

	err := observe(ctx, r.prom, "users.list", func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				s         user.Summary
				role      string
				storeID   *int64
				storeName *string
			)
			if err := rows.Scan(
				&s.ID, &s.Name, &s.Email, &s.Address, &role, &s.CreatedAt,
				&storeID, &storeName,
				&s.RatingSum, &s.RatingCount,
			); err != nil {
				return err
			}
			s.Role = user.Role(role)
			if storeID != nil {
				s.Store = &user.StoreRef{ID: *storeID, Name: *storeName}
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
