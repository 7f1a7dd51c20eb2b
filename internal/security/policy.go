package security

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 16
	PasswordSpecials  = "!@#$%^&*"
)

// PasswordPolicyMessage is shown to clients when a password is rejected.
const PasswordPolicyMessage = "Password must be 8-16 characters and include at least one uppercase letter and one special character"

var ErrWeakPassword = errors.New("password does not meet policy")

func ValidatePassword(p string) error {
	n := utf8.RuneCountInString(p)
	if n < PasswordMinLength || n > PasswordMaxLength {
		return ErrWeakPassword
	}

	var upper, special bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}

	if !upper || !special {
		return ErrWeakPassword
	}
	return nil
}
