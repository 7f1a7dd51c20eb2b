package auth

import (
	"errors"

	"github.com/geocoder89/ratingportal/internal/domain/user"
)

var ErrForbidden = errors.New("forbidden")

// Authorize admits role iff it is in allowed.
func Authorize(role user.Role, allowed user.RoleSet) error {
	if !allowed.Contains(role) {
		return ErrForbidden
	}
	return nil
}
