package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

// RefreshTokenRepository indexes records by token hash. All mutations
// happen under one lock, which makes Consume single-winner.
type RefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]model.RefreshToken
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{tokens: make(map[string]model.RefreshToken)}
}

func (r *RefreshTokenRepository) Create(_ context.Context, token model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := string(token.TokenHash)
	if _, ok := r.tokens[key]; ok {
		return model.ErrAlreadyExists
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	token.TokenHash = append([]byte(nil), token.TokenHash...)
	r.tokens[key] = token
	return nil
}

func (r *RefreshTokenRepository) Consume(_ context.Context, userID uuid.UUID, tokenHash []byte) (model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := string(tokenHash)
	token, ok := r.tokens[key]
	if !ok || token.UserID != userID {
		return model.RefreshToken{}, model.ErrNotFound
	}
	delete(r.tokens, key)
	return token, nil
}

func (r *RefreshTokenRepository) Delete(_ context.Context, userID uuid.UUID, tokenHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := string(tokenHash)
	token, ok := r.tokens[key]
	if !ok || token.UserID != userID {
		return model.ErrNotFound
	}
	delete(r.tokens, key)
	return nil
}

func (r *RefreshTokenRepository) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for key, token := range r.tokens {
		if token.UserID == userID {
			delete(r.tokens, key)
			n++
		}
	}
	return n, nil
}

func (r *RefreshTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for key, token := range r.tokens {
		if !token.ExpiresAt.After(now) {
			delete(r.tokens, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records.
func (r *RefreshTokenRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
