package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
)

// TokenSource tells the guard where a route expects its credential.
type TokenSource int

const (
	// SourceBearer reads an access token from the Authorization header.
	SourceBearer TokenSource = iota
	// SourceRefreshCookie reads a refresh token from the refresh cookie.
	SourceRefreshCookie
)

// Access declares how a route is protected.
type Access struct {
	AuthRequired  bool
	RequiredRoles []model.Role
	Source        TokenSource
}

var (
	Public        = Access{}
	Authenticated = Access{AuthRequired: true}
	RefreshCookie = Access{AuthRequired: true, Source: SourceRefreshCookie}
)

// RequireRoles declares a bearer-protected route open to any of roles.
func RequireRoles(roles ...model.Role) Access {
	return Access{AuthRequired: true, RequiredRoles: roles}
}

// RefreshRevoker deletes the server-side record of a refresh token.
type RefreshRevoker interface {
	Revoke(ctx context.Context, userID uuid.UUID, token string) error
}

// Guard enforces Access declarations.
type Guard struct {
	issuer         model.TokenIssuer
	users          model.UserStore
	revoker        RefreshRevoker
	contextManager model.ContextManager
	cookieName     string
	logger         *logger.Logger
}

func NewGuard(
	issuer model.TokenIssuer,
	users model.UserStore,
	revoker RefreshRevoker,
	contextManager model.ContextManager,
	cookieName string,
	logger *logger.Logger,
) *Guard {
	return &Guard{
		issuer:         issuer,
		users:          users,
		revoker:        revoker,
		contextManager: contextManager,
		cookieName:     cookieName,
		logger:         logger,
	}
}

// Handle returns the middleware for one route declaration. Roles are
// checked against the token's embedded role set; the user is loaded so
// that deleted accounts are rejected.
func (g *Guard) Handle(access Access) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !access.AuthRequired {
			c.Next()
			return
		}

		raw, purpose, err := g.credential(c, access.Source)
		if err != nil {
			abortWithError(c, err)
			return
		}

		claims, err := g.issuer.Verify(raw, purpose)
		if err != nil {
			g.logger.Debug("Guard: token rejected",
				"path", c.FullPath(),
				"error", err.Error())
			if purpose == model.PurposeRefresh {
				if errors.Is(err, model.ErrTokenExpired) {
					g.discardExpired(c.Request.Context(), claims.Subject, raw)
					abortWithError(c, apierror.NewErrRefreshTokenExpired())
					return
				}
				abortWithError(c, apierror.NewErrInvalidRefreshToken(err))
				return
			}
			abortWithError(c, apierror.NewErrInvalidAuthorizationToken(err))
			return
		}

		ctx := c.Request.Context()
		user, err := g.users.GetByID(ctx, claims.Subject)
		if errors.Is(err, model.ErrNotFound) {
			abortWithError(c, apierror.NewErrUserNotFoundOrInactive())
			return
		}
		if err != nil {
			abortWithError(c, err)
			return
		}

		if !model.HasAnyRole(claims.Roles, access.RequiredRoles) {
			g.logger.Info("Guard: insufficient role",
				"user_id", user.ID,
				"path", c.FullPath())
			abortWithError(c, apierror.NewErrInsufficientRole())
			return
		}

		ctx = g.contextManager.SetClaimsToContext(ctx, claims)
		ctx = g.contextManager.SetUserToContext(ctx, user)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// discardExpired removes the record of an authentic expired refresh token
// so it does not wait for the periodic cleanup.
func (g *Guard) discardExpired(ctx context.Context, userID uuid.UUID, raw string) {
	if g.revoker == nil || userID == uuid.Nil {
		return
	}
	if err := g.revoker.Revoke(ctx, userID, raw); err != nil {
		g.logger.Warn("Guard: failed to remove expired refresh record",
			"user_id", userID,
			"error", err.Error())
	}
}

func (g *Guard) credential(c *gin.Context, source TokenSource) (string, model.TokenPurpose, error) {
	if source == SourceRefreshCookie {
		raw, err := c.Cookie(g.cookieName)
		if err != nil || raw == "" {
			return "", model.PurposeRefresh, apierror.NewErrMissingRefreshToken()
		}
		return raw, model.PurposeRefresh, nil
	}

	raw, ok := BearerToken(c.GetHeader("Authorization"))
	if !ok {
		return "", model.PurposeAccess, apierror.NewErrMissingAuthorizationToken()
	}
	return raw, model.PurposeAccess, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
