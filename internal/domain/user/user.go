package user

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
)

// AllRoles lists every role in a fixed order.
var AllRoles = []Role{RoleAdmin, RoleUser, RoleOwner}

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email already in use")
	ErrInvalidRole = errors.New("invalid role")
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	case RoleOwner:
		return RoleOwner, nil
	}
	return "", ErrInvalidRole
}

func (r Role) Valid() bool {
	return r.bit() != 0
}

func (r Role) String() string {
	return string(r)
}

func (r Role) bit() RoleSet {
	switch r {
	case RoleAdmin:
		return 1 << 0
	case RoleUser:
		return 1 << 1
	case RoleOwner:
		return 1 << 2
	}
	return 0
}

// RoleSet is a closed set of roles. The zero value admits nobody.
type RoleSet uint8

func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= r.bit()
	}
	return s
}

func (s RoleSet) Contains(r Role) bool {
	b := r.bit()
	return b != 0 && s&b == b
}

func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(AllRoles))
	for _, r := range AllRoles {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Address      string    `json:"address"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the identity shape returned to clients after login.
type Profile struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	Address string `json:"address"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
		Address: u.Address,
	}
}

// NewUser is what repositories need to insert an identity.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Address      string
	Role         Role
}

type StoreRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Summary is one row of the admin user listing. Rating fields are only set
// for owners.
type Summary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	Store       *StoreRef `json:"store,omitempty"`
	RatingSum   int64     `json:"-"`
	RatingCount int64     `json:"-"`
}

type ListFilter struct {
	Role  *Role
	Query string
	Sort  string
	Desc  bool
}

// NormalizeEmail lowercases and trims so lookups and the unique index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
