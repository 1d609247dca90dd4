package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TokenPurpose distinguishes access tokens from refresh tokens.
type TokenPurpose string

const (
	PurposeAccess  TokenPurpose = "access"
	PurposeRefresh TokenPurpose = "refresh"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenPurpose  = errors.New("token purpose mismatch")
	ErrMissingClaims = errors.New("token claims incomplete")
)

// TokenIssuer mints and verifies signed tokens.
type TokenIssuer interface {
	Issue(claims TokenClaims, purpose TokenPurpose) (IssuedToken, error)
	Verify(token string, purpose TokenPurpose) (TokenClaims, error)
	TTL(purpose TokenPurpose) time.Duration
}

// TokenClaims is the identity carried by both token kinds.
type TokenClaims struct {
	Subject   uuid.UUID
	Email     string
	Roles     []Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ClaimsFor builds the claim set for a user.
func ClaimsFor(u User) TokenClaims {
	return TokenClaims{Subject: u.ID, Email: u.Email, Roles: u.Roles}
}

// IssuedToken is a signed token with its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Session is the result of a successful register, login, refresh or OAuth login.
type Session struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             User
}
