package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/ratingportal/internal/observability"
	"github.com/jackc/pgx/v5/pgconn"
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func observe(ctx context.Context, prom *observability.Prom, op string, fn func(context.Context) error) error {
	if prom != nil {
		return prom.ObserveDB(ctx, op, fn)
	}
	return fn(ctx)
}

var sortColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"created_at": "created_at",
}

// orderBy builds an ORDER BY from a whitelisted field. Unknown fields sort by id.
func orderBy(alias, field string, desc bool) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	col, ok := sortColumns[field]
	if !ok {
		return fmt.Sprintf("ORDER BY %s.id %s", alias, dir)
	}
	return fmt.Sprintf("ORDER BY %s.%s %s, %s.id %s", alias, col, dir, alias, dir)
}

// likePattern escapes LIKE metacharacters in a user search term.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(q)) + "%"
}
