package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/starter-api/internal/api/http/response"
	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
	"github.com/dtroode/starter-api/internal/service"
)

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6,max=72"`
	FirstName string `json:"firstName" binding:"max=100"`
	LastName  string `json:"lastName" binding:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	AccessToken string           `json:"accessToken"`
	User        model.PublicUser `json:"user"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Auth serves the credential and session endpoints.
type Auth struct {
	session        SessionService
	cookies        *Cookies
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(
	session SessionService,
	cookies *Cookies,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		session:        session,
		cookies:        cookies,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register creates a local account and starts a session.
func (h *Auth) Register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	session, err := h.session.Register(c.Request.Context(), service.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, clientMeta(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.cookies.SetRefresh(c, session.RefreshToken)
	response.OK(c, http.StatusCreated, "User registered successfully", sessionResponse{
		AccessToken: session.AccessToken,
		User:        session.User.Public(),
	})
}

// Login starts a session for a local account.
func (h *Auth) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	session, err := h.session.Login(c.Request.Context(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.cookies.SetRefresh(c, session.RefreshToken)
	response.OK(c, http.StatusOK, "Login successful", sessionResponse{
		AccessToken: session.AccessToken,
		User:        session.User.Public(),
	})
}

// Refresh rotates the refresh cookie and returns a new access token.
func (h *Auth) Refresh(c *gin.Context) {
	claims, ok := h.contextManager.GetClaimsFromContext(c.Request.Context())
	if !ok {
		_ = c.Error(apierror.NewErrMissingRefreshToken())
		return
	}

	session, err := h.session.Refresh(c.Request.Context(), claims.Subject, h.cookies.RefreshToken(c), clientMeta(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.cookies.SetRefresh(c, session.RefreshToken)
	response.OK(c, http.StatusOK, "Token refreshed successfully", accessTokenResponse{
		AccessToken: session.AccessToken,
	})
}

// Logout revokes the refresh cookie's token, if any, and clears it.
func (h *Auth) Logout(c *gin.Context) {
	claims, ok := h.contextManager.GetClaimsFromContext(c.Request.Context())
	if !ok {
		_ = c.Error(apierror.NewErrMissingAuthorizationToken())
		return
	}

	if err := h.session.Logout(c.Request.Context(), claims.Subject, h.cookies.RefreshToken(c)); err != nil {
		_ = c.Error(err)
		return
	}

	h.cookies.ClearRefresh(c)
	response.OK(c, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the authenticated user.
func (h *Auth) Me(c *gin.Context) {
	user, ok := h.contextManager.GetUserFromContext(c.Request.Context())
	if !ok {
		_ = c.Error(apierror.NewErrMissingAuthorizationToken())
		return
	}

	response.OK(c, http.StatusOK, "User retrieved successfully", user.Public())
}
