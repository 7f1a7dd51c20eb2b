package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/ratingportal/internal/config"
	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/geocoder89/ratingportal/internal/security"
)

type AdminUsers interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
}

// EnsureAdminUser creates the configured admin account once.
// It reports whether a new account was created.
func EnsureAdminUser(ctx context.Context, users AdminUsers, hasher *security.Hasher, cfg config.Config) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	email := user.NormalizeEmail(cfg.AdminEmail)

	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := hasher.Hash(ctx, cfg.AdminPassword)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	_, err = users.Create(ctx, user.NewUser{
		Name:         cfg.AdminName,
		Email:        email,
		PasswordHash: hash,
		Address:      cfg.AdminAddress,
		Role:         user.RoleAdmin,
	})
	if errors.Is(err, user.ErrEmailTaken) {
		// another instance seeded it first
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	return true, nil
}
