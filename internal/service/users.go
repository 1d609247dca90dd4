package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
)

const (
	DefaultUserListLimit = 100
	MaxUserListLimit     = 500
)

// Users implements account administration.
type Users struct {
	users   model.UserStore
	refresh *RefreshTokens
	logger  *logger.Logger
	now     func() time.Time
}

func NewUsers(users model.UserStore, refresh *RefreshTokens, logger *logger.Logger) *Users {
	return &Users{users: users, refresh: refresh, logger: logger, now: time.Now}
}

func (s *Users) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	if limit <= 0 {
		limit = DefaultUserListLimit
	}
	limit = min(limit, MaxUserListLimit)
	offset = max(offset, 0)

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *Users) Get(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, apierror.NewErrUserNotFound()
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

// Update changes roles and the active flag. Deactivation revokes every
// refresh token of the user, so the next refresh fails.
func (s *Users) Update(ctx context.Context, id uuid.UUID, params model.UpdateUserParams) (model.User, error) {
	if params.Roles != nil {
		if len(params.Roles) == 0 {
			return model.User{}, apierror.NewErrValidation("roles must not be empty", nil)
		}
		for _, r := range params.Roles {
			if !r.Valid() {
				return model.User{}, apierror.NewErrValidation(fmt.Sprintf("unknown role %q", r), nil)
			}
		}
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	if params.Roles != nil {
		roles := slices.Clone(params.Roles)
		slices.Sort(roles)
		user.Roles = slices.Compact(roles)
	}
	deactivated := false
	if params.IsActive != nil {
		deactivated = user.IsActive && !*params.IsActive
		user.IsActive = *params.IsActive
	}
	user.UpdatedAt = s.now()

	updated, err := s.users.Update(ctx, user)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, apierror.NewErrUserNotFound()
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	if deactivated {
		n, err := s.refresh.RevokeAll(ctx, id)
		if err != nil {
			return model.User{}, err
		}
		s.logger.Info("Users: account deactivated", "user_id", id, "revoked_tokens", n)
	}

	return updated, nil
}
