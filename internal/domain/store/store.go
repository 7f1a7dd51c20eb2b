package store

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("store not found")

type Store struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"ownerId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateRequest creates a store together with its owner identity. The owner
// uses the store's name, email and address, as the admin form only asks once.
type CreateRequest struct {
	Name     string `json:"name" binding:"required,min=20,max=60"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Address  string `json:"address" binding:"required,max=400"`
	Password string `json:"password" binding:"required,password_policy"`
}

// NewStore is the repository input for CreateWithOwner. The owner identity
// shares name, email and address with the store.
type NewStore struct {
	Name              string
	Email             string
	Address           string
	OwnerPasswordHash string
}

type Owner struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary is a store joined with its owner and raw rating totals. Averages
// are derived from the totals by the rating package, never here.
type Summary struct {
	Store       Store
	Owner       Owner
	RatingSum   int64
	RatingCount int64
}

type ListFilter struct {
	Query string
	Sort  string
	Desc  bool
}
