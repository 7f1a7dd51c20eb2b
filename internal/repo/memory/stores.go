package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/ratingportal/internal/domain/store"
	"github.com/geocoder89/ratingportal/internal/domain/user"
)

type StoresRepo struct {
	db *DB
}

// CreateWithOwner inserts the owner identity and its store under one lock.
func (r *StoresRepo) CreateWithOwner(_ context.Context, ns store.NewStore) (store.Store, user.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.storeEmails[ns.Email]; ok {
		return store.Store{}, user.User{}, user.ErrEmailTaken
	}

	owner, err := r.db.insertUserLocked(user.NewUser{
		Name:         ns.Name,
		Email:        ns.Email,
		PasswordHash: ns.OwnerPasswordHash,
		Address:      ns.Address,
		Role:         user.RoleOwner,
	})
	if err != nil {
		return store.Store{}, user.User{}, err
	}

	r.db.nextStoreID++
	s := store.Store{
		ID:        r.db.nextStoreID,
		OwnerID:   owner.ID,
		Name:      ns.Name,
		Email:     ns.Email,
		Address:   ns.Address,
		CreatedAt: owner.CreatedAt,
		UpdatedAt: owner.CreatedAt,
	}
	r.db.stores[s.ID] = s
	r.db.storeEmails[s.Email] = s.ID
	r.db.ownerStores[owner.ID] = s.ID

	return s, owner, nil
}

func (r *StoresRepo) GetByID(_ context.Context, id int64) (store.Store, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.stores[id]
	if !ok {
		return store.Store{}, store.ErrNotFound
	}
	return s, nil
}

func (r *StoresRepo) GetByOwner(_ context.Context, ownerID int64) (store.Store, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.ownerStores[ownerID]
	if !ok {
		return store.Store{}, store.ErrNotFound
	}
	return r.db.stores[id], nil
}

func (r *StoresRepo) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return int64(len(r.db.stores)), nil
}

func (r *StoresRepo) List(_ context.Context, f store.ListFilter) ([]store.Summary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]store.Summary, 0, len(r.db.stores))

	for _, s := range r.db.stores {
		if !matchesQuery(f.Query, s.Name, s.Email, s.Address) {
			continue
		}

		owner := r.db.users[s.OwnerID]
		stats := r.db.statsLocked(s.ID)

		out = append(out, store.Summary{
			Store:       s,
			Owner:       store.Owner{ID: owner.ID, Name: owner.Name, Email: owner.Email},
			RatingSum:   stats.Sum,
			RatingCount: stats.Count,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return less(f.Sort, f.Desc, storeKey(out[i].Store), storeKey(out[j].Store))
	})

	return out, nil
}

func storeKey(s store.Store) sortKey {
	return sortKey{name: s.Name, email: s.Email, createdAt: s.CreatedAt, id: s.ID}
}
