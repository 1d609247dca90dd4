package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpctx "github.com/dtroode/starter-api/internal/api/http/context"
	"github.com/dtroode/starter-api/internal/api/http/response"
	"github.com/dtroode/starter-api/internal/mocks"
	"github.com/dtroode/starter-api/internal/model"
	"github.com/dtroode/starter-api/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recorder struct {
	mu      sync.Mutex
	entries []model.ErrorLog
}

func (r *recorder) Record(entry model.ErrorLog) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return true
}

func (r *recorder) Entries() []model.ErrorLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ErrorLog(nil), r.entries...)
}

type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
}

func (s stubLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return s.allowed, s.retryAfter, s.err
}

func newEngine(rec *recorder, mws ...gin.HandlerFunc) *gin.Engine {
	log := testutil.MakeNoopLogger()
	errs := NewErrors(rec, httpctx.NewManager(), log)
	e := gin.New()
	e.Use(errs.Handle)
	e.Use(mws...)
	e.NoRoute(errs.NoRoute)
	return e
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorEnvelope {
	t.Helper()
	var body response.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "valid", header: "Bearer abc", token: "abc", ok: true},
		{name: "case insensitive scheme", header: "bearer abc", token: "abc", ok: true},
		{name: "empty", header: "", ok: false},
		{name: "no token", header: "Bearer ", ok: false},
		{name: "other scheme", header: "Basic abc", ok: false},
		{name: "no separator", header: "Bearerabc", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestGuard_Handle(t *testing.T) {
	userID := uuid.New()
	user := model.User{ID: userID, Email: "a@b.c", Roles: []model.Role{model.RoleUser}, IsActive: true}
	userClaims := model.TokenClaims{Subject: userID, Email: user.Email, Roles: []model.Role{model.RoleUser}}

	tests := []struct {
		name       string
		access     Access
		setup      func(r *http.Request)
		mock       func(issuer *mocks.TokenIssuer, users *mocks.UserStore)
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "public route skips checks",
			access:     Public,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing bearer",
			access:     Authenticated,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Authorization token is required",
		},
		{
			name:   "invalid bearer",
			access: Authenticated,
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") },
			mock: func(issuer *mocks.TokenIssuer, _ *mocks.UserStore) {
				issuer.On("Verify", "bad", model.PurposeAccess).Return(model.TokenClaims{}, model.ErrInvalidToken)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "user gone",
			access: Authenticated,
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			mock: func(issuer *mocks.TokenIssuer, users *mocks.UserStore) {
				issuer.On("Verify", "good", model.PurposeAccess).Return(userClaims, nil)
				users.On("GetByID", mock.Anything, userID).Return(model.User{}, model.ErrNotFound)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "role missing",
			access: RequireRoles(model.RoleAdmin),
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			mock: func(issuer *mocks.TokenIssuer, users *mocks.UserStore) {
				issuer.On("Verify", "good", model.PurposeAccess).Return(userClaims, nil)
				users.On("GetByID", mock.Anything, userID).Return(user, nil)
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:   "store failure",
			access: Authenticated,
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			mock: func(issuer *mocks.TokenIssuer, users *mocks.UserStore) {
				issuer.On("Verify", "good", model.PurposeAccess).Return(userClaims, nil)
				users.On("GetByID", mock.Anything, userID).Return(model.User{}, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
		{
			name:   "authorized",
			access: RequireRoles(model.RoleUser, model.RoleAdmin),
			setup:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			mock: func(issuer *mocks.TokenIssuer, users *mocks.UserStore) {
				issuer.On("Verify", "good", model.PurposeAccess).Return(userClaims, nil)
				users.On("GetByID", mock.Anything, userID).Return(user, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "refresh cookie missing",
			access:     RefreshCookie,
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Refresh token not found",
		},
		{
			name:   "refresh cookie verified as refresh",
			access: RefreshCookie,
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "refreshToken", Value: "rt"})
			},
			mock: func(issuer *mocks.TokenIssuer, users *mocks.UserStore) {
				issuer.On("Verify", "rt", model.PurposeRefresh).Return(userClaims, nil)
				users.On("GetByID", mock.Anything, userID).Return(user, nil)
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := mocks.NewTokenIssuer(t)
			users := mocks.NewUserStore(t)
			if tt.mock != nil {
				tt.mock(issuer, users)
			}

			manager := httpctx.NewManager()
			guard := NewGuard(issuer, users, nil, manager, "refreshToken", testutil.MakeNoopLogger())

			e := newEngine(&recorder{})
			e.GET("/protected", guard.Handle(tt.access), func(c *gin.Context) {
				if tt.access.AuthRequired {
					got, ok := manager.GetUserFromContext(c.Request.Context())
					assert.True(t, ok)
					assert.Equal(t, userID, got.ID)
				}
				response.OK(c, http.StatusOK, "ok", nil)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.setup != nil {
				tt.setup(req)
			}
			w := httptest.NewRecorder()
			e.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeError(t, w).Message)
			}
		})
	}
}

type revokeCall struct {
	userID uuid.UUID
	token  string
}

type stubRevoker struct {
	calls []revokeCall
	err   error
}

func (s *stubRevoker) Revoke(_ context.Context, userID uuid.UUID, token string) error {
	s.calls = append(s.calls, revokeCall{userID: userID, token: token})
	return s.err
}

func TestGuard_ExpiredRefreshCookie(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name      string
		claims    model.TokenClaims
		verifyErr error
		revokeErr error
		wantCalls []revokeCall
		wantMsg   string
	}{
		{
			name:      "expired token record is removed",
			claims:    model.TokenClaims{Subject: userID},
			verifyErr: model.ErrTokenExpired,
			wantCalls: []revokeCall{{userID: userID, token: "stale"}},
			wantMsg:   "Refresh token expired",
		},
		{
			name:      "revoke failure still answers 401",
			claims:    model.TokenClaims{Subject: userID},
			verifyErr: model.ErrTokenExpired,
			revokeErr: errors.New("db down"),
			wantCalls: []revokeCall{{userID: userID, token: "stale"}},
			wantMsg:   "Refresh token expired",
		},
		{
			name:      "expired without claims touches nothing",
			verifyErr: model.ErrTokenExpired,
			wantMsg:   "Refresh token expired",
		},
		{
			name:      "forged token touches nothing",
			verifyErr: model.ErrInvalidToken,
			wantMsg:   "Invalid refresh token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := mocks.NewTokenIssuer(t)
			issuer.On("Verify", "stale", model.PurposeRefresh).Return(tt.claims, tt.verifyErr)
			revoker := &stubRevoker{err: tt.revokeErr}

			guard := NewGuard(issuer, mocks.NewUserStore(t), revoker, httpctx.NewManager(), "refreshToken", testutil.MakeNoopLogger())
			e := newEngine(&recorder{})
			e.POST("/auth/refresh", guard.Handle(RefreshCookie), func(c *gin.Context) {
				t.Fatal("handler must not run")
			})

			req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
			req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "stale"})
			w := httptest.NewRecorder()
			e.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, w).Message)
			assert.Equal(t, tt.wantCalls, revoker.calls)
		})
	}
}

func TestErrors_Render(t *testing.T) {
	rec := &recorder{}
	e := newEngine(rec)
	e.GET("/items/:id", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42?q=x", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "Internal server error", body.Message)
	assert.Equal(t, "/items/42?q=x", body.Path)
	assert.NotEmpty(t, body.Timestamp)

	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, http.StatusInternalServerError, entries[0].Status)
	assert.Equal(t, http.MethodGet, entries[0].Method)
	assert.Equal(t, map[string]string{"id": "42"}, entries[0].Meta["params"])
	assert.Equal(t, map[string]any{"q": "x"}, entries[0].Meta["query"])
	assert.Nil(t, entries[0].Meta["user"])
}

func TestErrors_RedactsSensitiveQuery(t *testing.T) {
	rec := &recorder{}
	e := newEngine(rec)
	e.GET("/auth/github/callback", func(c *gin.Context) {
		_ = c.Error(errors.New("exchange failed"))
	})

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=one-time&state=abc&scope=email", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "/auth/github/callback?code=REDACTED&scope=email&state=REDACTED", entries[0].URL)
	assert.NotContains(t, entries[0].URL, "one-time")
	assert.Equal(t, map[string]any{
		"code":  "REDACTED",
		"state": "REDACTED",
		"scope": "email",
	}, entries[0].Meta["query"])
}

func TestErrors_NoRoute(t *testing.T) {
	rec := &recorder{}
	e := newEngine(rec)

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, rec.Entries(), 1)
}

func TestErrors_Recover(t *testing.T) {
	rec := &recorder{}
	errs := NewErrors(rec, httpctx.NewManager(), testutil.MakeNoopLogger())
	e := gin.New()
	e.Use(gin.CustomRecovery(errs.Recover))
	e.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w).Message)
	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Stack, "goroutine")
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		limiter    stubLimiter
		wantStatus int
		retryAfter string
	}{
		{name: "allowed", limiter: stubLimiter{allowed: true}, wantStatus: http.StatusOK},
		{name: "denied", limiter: stubLimiter{retryAfter: 1500 * time.Millisecond}, wantStatus: http.StatusTooManyRequests, retryAfter: "2"},
		{name: "limiter down", limiter: stubLimiter{err: errors.New("redis down")}, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(&recorder{}, RateLimit(tt.limiter, testutil.MakeNoopLogger()))
			e.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
		})
	}
}

func TestCORS(t *testing.T) {
	e := newEngine(&recorder{}, CORS("http://localhost:4200"))
	e.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:4200")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "http://localhost:4200")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	for _, strict := range []bool{false, true} {
		e := newEngine(&recorder{}, SecurityHeaders(strict))
		e.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, strict, w.Header().Get("Strict-Transport-Security") != "")
	}
}
