// Package memory holds process-local stores used when no database is
// configured and in tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]model.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]model.User)}
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByProvider(_ context.Context, provider model.Provider, providerID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Provider == provider && u.ProviderID != nil && *u.ProviderID == providerID {
			return cloneUser(u), nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return model.User{}, model.ErrAlreadyExists
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return model.User{}, model.ErrAlreadyExists
		}
		if user.ProviderID != nil && u.Provider == user.Provider && u.ProviderID != nil && *u.ProviderID == *user.ProviderID {
			return model.User{}, model.ErrAlreadyExists
		}
	}

	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *UserRepository) Update(_ context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return model.User{}, model.ErrNotFound
	}

	stored.Roles = slices.Clone(user.Roles)
	stored.IsActive = user.IsActive
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.AvatarURL = user.AvatarURL
	stored.UpdatedAt = user.UpdatedAt
	r.users[user.ID] = stored

	return cloneUser(stored), nil
}

func (r *UserRepository) List(_ context.Context, limit, offset int) ([]model.User, error) {
	r.mu.RLock()
	all := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, cloneUser(u))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []model.User{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func cloneUser(u model.User) model.User {
	u.Roles = slices.Clone(u.Roles)
	if u.PasswordHash != nil {
		h := *u.PasswordHash
		u.PasswordHash = &h
	}
	if u.ProviderID != nil {
		id := *u.ProviderID
		u.ProviderID = &id
	}
	return u
}
