package security_test

import (
	"errors"
	"testing"

	"github.com/geocoder89/ratingportal/internal/security"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name string
		pass string
		ok   bool
	}{
		{name: "valid", pass: "Secret!23", ok: true},
		{name: "exactly eight", pass: "Abcdef!1", ok: true},
		{name: "exactly sixteen", pass: "Abcdefghijklmn!1", ok: true},
		{name: "too short", pass: "Ab!1", ok: false},
		{name: "too long", pass: "Abcdefghijklmnop!1", ok: false},
		{name: "no uppercase", pass: "secret!23", ok: false},
		{name: "no special", pass: "Secret123", ok: false},
		{name: "special outside set", pass: "Secret-123", ok: false},
		{name: "non ascii uppercase only", pass: "Ésecret!23", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := security.ValidatePassword(tt.pass)
			if tt.ok && err != nil {
				t.Fatalf("ValidatePassword(%q): unexpected error %v", tt.pass, err)
			}
			if !tt.ok && !errors.Is(err, security.ErrWeakPassword) {
				t.Fatalf("ValidatePassword(%q): expected ErrWeakPassword, got %v", tt.pass, err)
			}
		})
	}
}
