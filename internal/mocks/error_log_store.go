package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/starter-api/internal/model"
)

// ErrorLogStore is a mock implementation of model.ErrorLogStore.
type ErrorLogStore struct {
	mock.Mock
}

func NewErrorLogStore(t testingT) *ErrorLogStore {
	m := &ErrorLogStore{}
	register(&m.Mock, t)
	return m
}

func (_m *ErrorLogStore) Create(ctx context.Context, entry model.ErrorLog) error {
	ret := _m.Called(ctx, entry)
	return ret.Error(0)
}

func (_m *ErrorLogStore) List(ctx context.Context, limit int) ([]model.ErrorLog, error) {
	ret := _m.Called(ctx, limit)
	var entries []model.ErrorLog
	if v := ret.Get(0); v != nil {
		entries = v.([]model.ErrorLog)
	}
	return entries, ret.Error(1)
}

// Storage is a mock implementation of model.Storage.
type Storage struct {
	mock.Mock
}

func NewStorage(t testingT) *Storage {
	m := &Storage{}
	register(&m.Mock, t)
	return m
}

func (_m *Storage) Upload(ctx context.Context, key string, reader io.Reader) error {
	ret := _m.Called(ctx, key, reader)
	return ret.Error(0)
}

func (_m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	ret := _m.Called(ctx, key)
	return ret.Bool(0), ret.Error(1)
}
