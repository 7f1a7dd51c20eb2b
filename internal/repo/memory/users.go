package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/ratingportal/internal/domain/user"
)

type UsersRepo struct {
	db *DB
}

func (r *UsersRepo) Create(_ context.Context, nu user.NewUser) (user.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.db.insertUserLocked(nu)
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.userEmails[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.db.users[id], nil
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = r.db.now()
	r.db.users[id] = u

	return nil
}

func (r *UsersRepo) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return int64(len(r.db.users)), nil
}

func (r *UsersRepo) List(_ context.Context, f user.ListFilter) ([]user.Summary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]user.Summary, 0, len(r.db.users))

	for _, u := range r.db.users {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if !matchesQuery(f.Query, u.Name, u.Email, u.Address) {
			continue
		}

		s := user.Summary{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Address:   u.Address,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
		}

		if storeID, ok := r.db.ownerStores[u.ID]; ok {
			st := r.db.stores[storeID]
			s.Store = &user.StoreRef{ID: st.ID, Name: st.Name}

			stats := r.db.statsLocked(st.ID)
			s.RatingSum, s.RatingCount = stats.Sum, stats.Count
		}

		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		return less(f.Sort, f.Desc, userKey(out[i]), userKey(out[j]))
	})

	return out, nil
}

func userKey(s user.Summary) sortKey {
	return sortKey{name: s.Name, email: s.Email, createdAt: s.CreatedAt, id: s.ID}
}
