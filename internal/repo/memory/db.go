package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/ratingportal/internal/domain/rating"
	"github.com/geocoder89/ratingportal/internal/domain/store"
	"github.com/geocoder89/ratingportal/internal/domain/user"
)

type ratingKey struct {
	userID  int64
	storeID int64
}

// DB is an in-process stand-in for the relational store. One mutex guards
// every table so multi-table writes are atomic, like a transaction.
type DB struct {
	mu sync.RWMutex

	users       map[int64]user.User
	userEmails  map[string]int64
	stores      map[int64]store.Store
	storeEmails map[string]int64
	ownerStores map[int64]int64
	ratings     map[int64]rating.Rating
	ratingKeys  map[ratingKey]int64

	nextUserID   int64
	nextStoreID  int64
	nextRatingID int64

	now func() time.Time
}

func NewDB() *DB {
	return &DB{
		users:       make(map[int64]user.User),
		userEmails:  make(map[string]int64),
		stores:      make(map[int64]store.Store),
		storeEmails: make(map[string]int64),
		ownerStores: make(map[int64]int64),
		ratings:     make(map[int64]rating.Rating),
		ratingKeys:  make(map[ratingKey]int64),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (db *DB) Users() *UsersRepo     { return &UsersRepo{db: db} }
func (db *DB) Stores() *StoresRepo   { return &StoresRepo{db: db} }
func (db *DB) Ratings() *RatingsRepo { return &RatingsRepo{db: db} }

func (db *DB) Ping(ctx context.Context) error {
	return ctx.Err()
}

// caller holds the write lock
func (db *DB) insertUserLocked(nu user.NewUser) (user.User, error) {
	if _, ok := db.userEmails[nu.Email]; ok {
		return user.User{}, user.ErrEmailTaken
	}

	db.nextUserID++
	now := db.now()
	u := user.User{
		ID:           db.nextUserID,
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Address:      nu.Address,
		Role:         nu.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	db.users[u.ID] = u
	db.userEmails[u.Email] = u.ID

	return u, nil
}

// caller holds a read lock
func (db *DB) statsLocked(storeID int64) rating.Stats {
	var s rating.Stats
	for _, r := range db.ratings {
		if r.StoreID == storeID {
			s.Sum += int64(r.Value)
			s.Count++
		}
	}
	return s
}

func matchesQuery(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

type sortKey struct {
	name      string
	email     string
	createdAt time.Time
	id        int64
}

func less(field string, desc bool, a, b sortKey) bool {
	if desc {
		a, b = b, a
	}
	switch field {
	case "name":
		if a.name != b.name {
			return a.name < b.name
		}
	case "email":
		if a.email != b.email {
			return a.email < b.email
		}
	case "created_at":
		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.Before(b.createdAt)
		}
	}
	return a.id < b.id
}
