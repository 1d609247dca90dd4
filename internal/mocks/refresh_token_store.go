package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/starter-api/internal/model"
)

// RefreshTokenStore is a mock implementation of model.RefreshTokenStore.
type RefreshTokenStore struct {
	mock.Mock
}

func NewRefreshTokenStore(t testingT) *RefreshTokenStore {
	m := &RefreshTokenStore{}
	register(&m.Mock, t)
	return m
}

func (_m *RefreshTokenStore) Create(ctx context.Context, token model.RefreshToken) error {
	ret := _m.Called(ctx, token)
	return ret.Error(0)
}

func (_m *RefreshTokenStore) Consume(ctx context.Context, userID uuid.UUID, tokenHash []byte) (model.RefreshToken, error) {
	ret := _m.Called(ctx, userID, tokenHash)
	return ret.Get(0).(model.RefreshToken), ret.Error(1)
}

func (_m *RefreshTokenStore) Delete(ctx context.Context, userID uuid.UUID, tokenHash []byte) error {
	ret := _m.Called(ctx, userID, tokenHash)
	return ret.Error(0)
}

func (_m *RefreshTokenStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	ret := _m.Called(ctx, userID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *RefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := _m.Called(ctx, now)
	return ret.Get(0).(int64), ret.Error(1)
}
