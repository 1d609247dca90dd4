package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/mocks"
	"github.com/dtroode/starter-api/internal/model"
	"github.com/dtroode/starter-api/internal/testutil"
)

func boolPtr(b bool) *bool { return &b }

func TestUsers_List_ClampsLimit(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		limit     int
		offset    int
		wantLimit int
		wantOff   int
	}{
		{name: "default", limit: 0, offset: 0, wantLimit: DefaultUserListLimit, wantOff: 0},
		{name: "max", limit: 10000, offset: 3, wantLimit: MaxUserListLimit, wantOff: 3},
		{name: "negative offset", limit: 5, offset: -1, wantLimit: 5, wantOff: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewUserStore(t)
			store.On("List", ctx, tt.wantLimit, tt.wantOff).Return([]model.User{}, nil).Once()

			svc := NewUsers(store, nil, testutil.MakeNoopLogger())
			_, err := svc.List(ctx, tt.limit, tt.offset)
			require.NoError(t, err)
		})
	}
}

func TestUsers_Update(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	users := NewUsers(env.users, env.refresh, testutil.MakeNoopLogger())

	s, err := env.session.Register(ctx, RegisterParams{Email: "adm@test.com", Password: "Pw12345!"}, testMeta)
	require.NoError(t, err)

	t.Run("grant admin", func(t *testing.T) {
		updated, err := users.Update(ctx, s.User.ID, model.UpdateUserParams{
			Roles: []model.Role{model.RoleUser, model.RoleAdmin, model.RoleUser},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []model.Role{model.RoleUser, model.RoleAdmin}, updated.Roles)
	})

	t.Run("invalid roles", func(t *testing.T) {
		_, err := users.Update(ctx, s.User.ID, model.UpdateUserParams{Roles: []model.Role{}})
		require.True(t, apierror.IsKind(err, apierror.KindBadRequest))

		_, err = users.Update(ctx, s.User.ID, model.UpdateUserParams{Roles: []model.Role{"root"}})
		require.True(t, apierror.IsKind(err, apierror.KindBadRequest))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := users.Update(ctx, uuid.New(), model.UpdateUserParams{IsActive: boolPtr(false)})
		require.True(t, apierror.IsKind(err, apierror.KindNotFound))
	})

	t.Run("deactivation revokes sessions", func(t *testing.T) {
		require.Equal(t, 1, env.tokens.Len())

		updated, err := users.Update(ctx, s.User.ID, model.UpdateUserParams{IsActive: boolPtr(false)})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
		assert.Equal(t, 0, env.tokens.Len())

		_, err = env.session.Refresh(ctx, s.User.ID, s.RefreshToken, testMeta)
		require.True(t, apierror.IsKind(err, apierror.KindUnauthorized))
	})
}

func TestUsers_Update_RevokeFailure(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	user := model.User{ID: id, IsActive: true, Roles: []model.Role{model.RoleUser}}

	store := mocks.NewUserStore(t)
	store.On("GetByID", ctx, id).Return(user, nil).Once()
	store.On("Update", ctx, mock.Anything).Return(model.User{ID: id}, nil).Once()

	tokens := mocks.NewRefreshTokenStore(t)
	tokens.On("DeleteByUser", ctx, id).Return(int64(0), assert.AnError).Once()

	log := testutil.MakeNoopLogger()
	svc := NewUsers(store, NewRefreshTokens(tokens, log), log)

	_, err := svc.Update(ctx, id, model.UpdateUserParams{IsActive: boolPtr(false)})
	require.ErrorIs(t, err, assert.AnError)
}
