package middlewares

import (
	"net/http"

	"github.com/geocoder89/ratingportal/internal/auth"
	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const forbiddenMessage = "You do not have permission to perform this action"

// RequireRoles must run after RequireAuth.
func RequireRoles(allowed user.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}

		if err := auth.Authorize(u.Role, allowed); err != nil {
			abortWithError(c, http.StatusForbidden, "forbidden", forbiddenMessage)
			return
		}

		c.Next()
	}
}
