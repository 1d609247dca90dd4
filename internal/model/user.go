package model

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a coarse-grained permission attached to a user.
type Role string

const (
	// RoleUser is granted to every new account.
	RoleUser Role = "user"
	// RoleAdmin unlocks user administration and error logs.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Provider identifies where an account's credentials live.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// ParseProvider converts a string into a known Provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(s)); p {
	case ProviderLocal, ProviderGoogle, ProviderGitHub:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByProvider(ctx context.Context, provider Provider, providerID string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
}

// User represents a stored identity.
//
// Exactly one of PasswordHash (Provider == ProviderLocal) or ProviderID
// (any other provider) is set.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash *string
	Provider     Provider
	ProviderID   *string
	Roles        []Role
	IsActive     bool
	FirstName    string
	LastName     string
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasAnyRole reports whether the user holds at least one of required.
func (u User) HasAnyRole(required []Role) bool {
	return HasAnyRole(u.Roles, required)
}

// Public returns the view of the user that is safe to send to clients.
func (u User) Public() PublicUser {
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	return PublicUser{
		ID:        u.ID.String(),
		Email:     u.Email,
		Roles:     roles,
		Provider:  u.Provider,
		IsActive:  u.IsActive,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Avatar:    u.AvatarURL,
	}
}

// PublicUser is the JSON shape of a user in API responses.
type PublicUser struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Roles     []Role   `json:"roles"`
	Provider  Provider `json:"provider"`
	IsActive  bool     `json:"isActive"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Avatar    string   `json:"avatar,omitempty"`
}

// HasAnyRole reports whether held and required intersect. An empty
// required set is always satisfied.
func HasAnyRole(held, required []Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if slices.Contains(held, r) {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpdateUserParams holds the admin-editable fields of a user.
type UpdateUserParams struct {
	Roles    []Role
	IsActive *bool
}
