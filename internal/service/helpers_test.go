package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/starter-api/internal/password"
	"github.com/dtroode/starter-api/internal/repository/memory"
	"github.com/dtroode/starter-api/internal/testutil"
	"github.com/dtroode/starter-api/internal/token"
)

type testEnv struct {
	users   *memory.UserRepository
	tokens  *memory.RefreshTokenRepository
	issuer  *token.JWT
	refresh *RefreshTokens
	creds   *Credentials
	session *Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hasher, err := password.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	log := testutil.MakeNoopLogger()
	env := &testEnv{
		users:  memory.NewUserRepository(),
		tokens: memory.NewRefreshTokenRepository(),
		issuer: token.NewJWT("test-secret", 15*time.Minute, 7*24*time.Hour),
	}
	env.refresh = NewRefreshTokens(env.tokens, log)
	env.creds = NewCredentials(env.users, hasher, log)
	env.session = NewSession(env.creds, env.issuer, env.refresh, env.users, log)
	return env
}
