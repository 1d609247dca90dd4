package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
)

// RefreshTokens keeps the server-side record of issued refresh tokens.
// Only SHA-256 digests of the tokens are persisted.
type RefreshTokens struct {
	store  model.RefreshTokenStore
	logger *logger.Logger
	now    func() time.Time
}

func NewRefreshTokens(store model.RefreshTokenStore, logger *logger.Logger) *RefreshTokens {
	return &RefreshTokens{store: store, logger: logger, now: time.Now}
}

// Put records token as redeemable by userID until expiresAt.
func (s *RefreshTokens) Put(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time, meta model.ClientMeta) error {
	rt := model.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashRefresh(token),
		ExpiresAt: expiresAt,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		CreatedAt: s.now(),
	}

	if err := s.store.Create(ctx, rt); err != nil {
		return fmt.Errorf("persist refresh: %w", err)
	}
	return nil
}

// Redeem consumes the record for token. The record is gone afterwards
// whether or not it was still valid.
func (s *RefreshTokens) Redeem(ctx context.Context, userID uuid.UUID, token string) (model.RefreshToken, error) {
	rt, err := s.store.Consume(ctx, userID, hashRefresh(token))
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Info("Refresh tokens: no matching record", "user_id", userID)
		return model.RefreshToken{}, apierror.NewErrInvalidRefreshToken(nil)
	}
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("consume refresh: %w", err)
	}

	if !s.now().Before(rt.ExpiresAt) {
		s.logger.Info("Refresh tokens: expired record redeemed", "user_id", userID)
		return model.RefreshToken{}, apierror.NewErrRefreshTokenExpired()
	}

	return rt, nil
}

// Revoke deletes the record for token. Missing records are not an error.
func (s *RefreshTokens) Revoke(ctx context.Context, userID uuid.UUID, token string) error {
	err := s.store.Delete(ctx, userID, hashRefresh(token))
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("revoke refresh: %w", err)
	}
	return nil
}

// RevokeAll deletes every record owned by userID.
func (s *RefreshTokens) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all refresh: %w", err)
	}
	return n, nil
}

// Cleanup deletes expired records.
func (s *RefreshTokens) Cleanup(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup refresh: %w", err)
	}
	return n, nil
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *RefreshTokens) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Cleanup(ctx)
			if err != nil {
				s.logger.Error("Refresh tokens: cleanup failed", "error", err.Error())
				continue
			}
			if n > 0 {
				s.logger.Debug("Refresh tokens: expired records removed", "count", n)
			}
		}
	}
}

func hashRefresh(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}
