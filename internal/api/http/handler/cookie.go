package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/starter-api/internal/config"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// Cookies writes the refresh-token and OAuth state cookies.
type Cookies struct {
	cfg    config.Cookie
	maxAge time.Duration
}

// NewCookies creates a writer for refresh cookies living for maxAge.
func NewCookies(cfg config.Cookie, maxAge time.Duration) *Cookies {
	return &Cookies{cfg: cfg, maxAge: maxAge}
}

// Name returns the refresh cookie name.
func (k *Cookies) Name() string {
	return k.cfg.Name
}

// SetRefresh stores token in the http-only refresh cookie.
func (k *Cookies) SetRefresh(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(k.cfg.Name, token, int(k.maxAge.Seconds()), k.cfg.Path, k.cfg.Domain, k.cfg.Secure, true)
}

// ClearRefresh expires the refresh cookie.
func (k *Cookies) ClearRefresh(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(k.cfg.Name, "", -1, k.cfg.Path, k.cfg.Domain, k.cfg.Secure, true)
}

// RefreshToken returns the refresh cookie value, or "" when absent.
func (k *Cookies) RefreshToken(c *gin.Context) string {
	token, err := c.Cookie(k.cfg.Name)
	if err != nil {
		return ""
	}
	return token
}

// The state cookie must survive the cross-site redirect back from the
// provider, so it is Lax rather than Strict.
func (k *Cookies) setState(c *gin.Context, state string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, int(stateCookieTTL.Seconds()), "/", k.cfg.Domain, k.cfg.Secure, true)
}

func (k *Cookies) popState(c *gin.Context) string {
	state, err := c.Cookie(stateCookieName)
	if err != nil {
		return ""
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, "", -1, "/", k.cfg.Domain, k.cfg.Secure, true)
	return state
}
