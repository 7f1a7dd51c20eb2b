package auth_test

import (
	"errors"
	"testing"

	"github.com/geocoder89/ratingportal/internal/auth"
	"github.com/geocoder89/ratingportal/internal/domain/user"
)

// every role against every subset of roles
func TestAuthorize_AllCombinations(t *testing.T) {
	for mask := 0; mask < 1<<len(user.AllRoles); mask++ {
		var members []user.Role
		for i, r := range user.AllRoles {
			if mask&(1<<i) != 0 {
				members = append(members, r)
			}
		}
		allowed := user.NewRoleSet(members...)

		for _, role := range user.AllRoles {
			want := false
			for _, m := range members {
				if m == role {
					want = true
				}
			}

			err := auth.Authorize(role, allowed)
			if want && err != nil {
				t.Fatalf("role %s, set %v: expected admit, got %v", role, members, err)
			}
			if !want && !errors.Is(err, auth.ErrForbidden) {
				t.Fatalf("role %s, set %v: expected ErrForbidden, got %v", role, members, err)
			}
		}
	}
}

func TestAuthorize_UnknownRoleNeverAdmitted(t *testing.T) {
	all := user.NewRoleSet(user.AllRoles...)

	if err := auth.Authorize(user.Role("guest"), all); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
