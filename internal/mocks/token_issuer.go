package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/starter-api/internal/model"
)

// TokenIssuer is a mock implementation of model.TokenIssuer.
type TokenIssuer struct {
	mock.Mock
}

func NewTokenIssuer(t testingT) *TokenIssuer {
	m := &TokenIssuer{}
	register(&m.Mock, t)
	return m
}

func (_m *TokenIssuer) Issue(claims model.TokenClaims, purpose model.TokenPurpose) (model.IssuedToken, error) {
	ret := _m.Called(claims, purpose)
	return ret.Get(0).(model.IssuedToken), ret.Error(1)
}

func (_m *TokenIssuer) Verify(token string, purpose model.TokenPurpose) (model.TokenClaims, error) {
	ret := _m.Called(token, purpose)
	return ret.Get(0).(model.TokenClaims), ret.Error(1)
}

func (_m *TokenIssuer) TTL(purpose model.TokenPurpose) time.Duration {
	ret := _m.Called(purpose)
	return ret.Get(0).(time.Duration)
}
