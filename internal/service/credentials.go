package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
)

// MaxPasswordLength is the longest password bcrypt can hash without truncation.
const MaxPasswordLength = 72

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Verify(raw, hash string) bool
}

// RegisterParams holds the input of a local account registration.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Credentials verifies and provisions local password accounts.
type Credentials struct {
	users  model.UserStore
	hasher PasswordHasher
	logger *logger.Logger
	now    func() time.Time
}

func NewCredentials(users model.UserStore, hasher PasswordHasher, logger *logger.Logger) *Credentials {
	return &Credentials{
		users:  users,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a local account. The email must not be taken under any provider.
func (c *Credentials) Register(ctx context.Context, params RegisterParams) (model.User, error) {
	email := model.NormalizeEmail(params.Email)
	c.logger.Debug("Credentials: registering user", "email", email)

	if len(params.Password) > MaxPasswordLength {
		return model.User{}, apierror.NewErrValidation(
			fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength), nil)
	}

	_, err := c.users.GetByEmail(ctx, email)
	if err == nil {
		c.logger.Info("Credentials: email already registered", "email", email)
		return model.User{}, apierror.NewErrEmailIsTaken()
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	hash, err := c.hasher.Hash(params.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := c.now()
	user, err := c.users.Create(ctx, model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: &hash,
		Provider:     model.ProviderLocal,
		Roles:        []model.Role{model.RoleUser},
		IsActive:     true,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		return model.User{}, apierror.NewErrEmailIsTaken()
	}
	if err != nil {
		c.logger.Error("Credentials: failed to create user",
			"email", email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	c.logger.Info("Credentials: user registered", "user_id", user.ID)
	return user, nil
}

// Login checks a password against the stored local account. Unknown
// emails, OAuth accounts and wrong passwords produce the same error and
// cost the same hashing effort.
func (c *Credentials) Login(ctx context.Context, email, password string) (model.User, error) {
	email = model.NormalizeEmail(email)

	user, err := c.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	var hash string
	if err == nil && user.Provider == model.ProviderLocal && user.PasswordHash != nil {
		hash = *user.PasswordHash
	}

	if !c.Verify(password, hash) {
		c.logger.Info("Credentials: invalid login attempt", "email", email)
		return model.User{}, apierror.NewErrInvalidCredentials()
	}

	if !user.IsActive {
		c.logger.Info("Credentials: login to deactivated account", "user_id", user.ID)
		return model.User{}, apierror.NewErrAccountDeactivated()
	}

	return user, nil
}

// Verify reports whether raw matches hash. A missing hash never matches.
func (c *Credentials) Verify(raw, hash string) bool {
	return c.hasher.Verify(raw, hash)
}
