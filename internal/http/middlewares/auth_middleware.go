package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/ratingportal/internal/actorctx"
	"github.com/geocoder89/ratingportal/internal/auth"
	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these small so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

type IdentityLoader interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
	users  IdentityLoader
}

func NewAuthMiddleware(tokens TokenVerifier, users IdentityLoader) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// RequireAuth admits a request only with a verified token whose subject
// still exists. Every failure aborts; nothing downstream runs.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		p, err := m.tokens.Verify(raw)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
			return
		}

		u, err := m.users.GetByID(c.Request.Context(), p.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
				return
			}
			slog.Default().ErrorContext(c.Request.Context(), "auth_identity_lookup_failed",
				"user_id", p.UserID, "err", err)
			abortWithError(c, http.StatusInternalServerError, "internal_error", "Internal server error")
			return
		}

		// roles are immutable, so a mismatch means the token is not ours to trust
		if u.Role != p.Role {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
			return
		}

		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), u))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}

// CurrentUser returns the identity RequireAuth put on the request context.
func CurrentUser(c *gin.Context) (user.User, bool) {
	return actorctx.IdentityFrom(c.Request.Context())
}
