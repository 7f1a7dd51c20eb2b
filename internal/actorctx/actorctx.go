// Package actorctx carries the authenticated identity on a context.Context.
package actorctx

import (
	"context"

	"github.com/geocoder89/ratingportal/internal/domain/user"
)

type ctxKey struct{}

func WithIdentity(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func IdentityFrom(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(user.User)
	return u, ok && u.ID > 0
}

func UserIDFrom(ctx context.Context) (int64, bool) {
	u, ok := IdentityFrom(ctx)
	return u.ID, ok
}
