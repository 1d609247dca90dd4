package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
	"github.com/dtroode/starter-api/internal/oauth"
)

// OAuthProvider runs the authorization code flow.
type OAuthProvider interface {
	AuthCodeURL(provider model.Provider, state string) (string, error)
	Authenticate(ctx context.Context, provider model.Provider, code string) (model.OAuthProfile, error)
}

// OAuth serves the provider redirect and callback endpoints.
type OAuth struct {
	provider  OAuthProvider
	session   SessionService
	cookies   *Cookies
	clientURL string
	logger    *logger.Logger
}

// NewOAuth creates a new OAuth handler redirecting back to clientURL.
func NewOAuth(
	provider OAuthProvider,
	session SessionService,
	cookies *Cookies,
	clientURL string,
	logger *logger.Logger,
) *OAuth {
	return &OAuth{
		provider:  provider,
		session:   session,
		cookies:   cookies,
		clientURL: strings.TrimSuffix(clientURL, "/"),
		logger:    logger,
	}
}

// Start redirects the browser to the provider's consent page.
func (h *OAuth) Start(provider model.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := oauth.NewState()
		if err != nil {
			_ = c.Error(apierror.NewErrInternalServerError(err))
			return
		}

		target, err := h.provider.AuthCodeURL(provider, state)
		if err != nil {
			_ = c.Error(err)
			return
		}

		h.cookies.setState(c, state)
		c.Redirect(http.StatusFound, target)
	}
}

// Callback finishes the flow and redirects to the client with either an
// access token or an error message. Failures are still attached to the
// context so they are logged and recorded.
func (h *OAuth) Callback(provider model.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := h.cookies.popState(c)

		if reason := c.Query("error"); reason != "" {
			h.fail(c, apierror.NewErrOAuthFailed(nil), reason)
			return
		}
		if expected == "" || c.Query("state") != expected {
			h.fail(c, apierror.NewErrValidation("Invalid OAuth state", nil), "")
			return
		}
		code := c.Query("code")
		if code == "" {
			h.fail(c, apierror.NewErrValidation("Missing authorization code", nil), "")
			return
		}

		ctx := c.Request.Context()
		profile, err := h.provider.Authenticate(ctx, provider, code)
		if err != nil {
			h.fail(c, err, "")
			return
		}

		session, err := h.session.OAuthLogin(ctx, provider, profile, clientMeta(c))
		if err != nil {
			h.fail(c, err, "")
			return
		}

		h.cookies.SetRefresh(c, session.RefreshToken)
		c.Redirect(http.StatusFound, h.callbackURL(url.Values{"token": {session.AccessToken}}))
	}
}

func (h *OAuth) fail(c *gin.Context, err error, reason string) {
	if reason == "" {
		reason = apierror.NewErrOAuthFailed(nil).Message
		if apiErr, ok := apierror.From(err); ok {
			reason = apiErr.Message
		}
	}

	h.logger.Warn("OAuth: callback failed", "error", err.Error())
	c.Redirect(http.StatusFound, h.callbackURL(url.Values{"error": {reason}}))
	_ = c.Error(err)
}

func (h *OAuth) callbackURL(q url.Values) string {
	return h.clientURL + "/auth/callback?" + q.Encode()
}
