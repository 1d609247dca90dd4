package context

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dtroode/starter-api/internal/model"
)

func TestManager_Claims(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	_, ok := m.GetClaimsFromContext(ctx)
	assert.False(t, ok)

	claims := model.TokenClaims{Subject: uuid.New(), Email: "a@b.c", Roles: []model.Role{model.RoleAdmin}}
	ctx = m.SetClaimsToContext(ctx, claims)

	got, ok := m.GetClaimsFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims, got)
}

func TestManager_User(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	_, ok := m.GetUserFromContext(ctx)
	assert.False(t, ok)

	user := model.User{ID: uuid.New(), Email: "a@b.c"}
	ctx = m.SetUserToContext(ctx, user)

	got, ok := m.GetUserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, user.ID, got.ID)
}
