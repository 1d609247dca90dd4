package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore persists one record per issued refresh token.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	// Consume atomically deletes the record matching userID and tokenHash and
	// returns it. Of several concurrent calls for the same record at most one
	// succeeds; the others get ErrNotFound.
	Consume(ctx context.Context, userID uuid.UUID, tokenHash []byte) (RefreshToken, error)
	Delete(ctx context.Context, userID uuid.UUID, tokenHash []byte) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RefreshToken is the server-side record of a redeemable refresh token.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash []byte
	ExpiresAt time.Time
	UserAgent string
	IPAddress string
	CreatedAt time.Time
}

// ClientMeta describes the client a session was issued to.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}
