package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/starter-api/internal/api/http/handler"
	"github.com/dtroode/starter-api/internal/api/http/middleware"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
	"github.com/dtroode/starter-api/internal/ratelimit"
)

// Prefix is prepended to every route.
const Prefix = "/api"

// Route binds a handler to a method, path and access declaration.
type Route struct {
	Method  string
	Path    string
	Access  middleware.Access
	Handler gin.HandlerFunc
}

// Params holds everything the router wires into handlers.
type Params struct {
	Session         handler.SessionService
	Users           handler.UserService
	Logs            handler.ErrorLogReader
	OAuth           handler.OAuthProvider
	Recorder        middleware.ErrorRecorder
	Limiter         ratelimit.Limiter
	Issuer          model.TokenIssuer
	UserStore       model.UserStore
	Revoker         middleware.RefreshRevoker
	ContextManager  model.ContextManager
	Cookies         *handler.Cookies
	ClientURL       string
	CORSOrigin      string
	StrictTransport bool
	Logger          *logger.Logger
}

// Router represents the HTTP router of the API.
type Router struct {
	params Params
}

// New creates new HTTP Router instance.
func New(params Params) *Router {
	return &Router{params: params}
}

// Routes returns the route table. Every entry carries its own access
// declaration; nothing is protected implicitly.
func (r *Router) Routes() []Route {
	p := r.params
	auth := handler.NewAuth(p.Session, p.Cookies, p.ContextManager, p.Logger)
	oauth := handler.NewOAuth(p.OAuth, p.Session, p.Cookies, p.ClientURL, p.Logger)
	users := handler.NewUsers(p.Users, p.ContextManager)
	logs := handler.NewLogs(p.Logs)

	admin := middleware.RequireRoles(model.RoleAdmin)

	return []Route{
		{http.MethodGet, "", middleware.Public, handler.Health},

		{http.MethodPost, "/auth/register", middleware.Public, auth.Register},
		{http.MethodPost, "/auth/login", middleware.Public, auth.Login},
		{http.MethodPost, "/auth/refresh", middleware.RefreshCookie, auth.Refresh},
		{http.MethodPost, "/auth/logout", middleware.Authenticated, auth.Logout},
		{http.MethodGet, "/auth/me", middleware.Authenticated, auth.Me},

		{http.MethodGet, "/auth/google", middleware.Public, oauth.Start(model.ProviderGoogle)},
		{http.MethodGet, "/auth/google/callback", middleware.Public, oauth.Callback(model.ProviderGoogle)},
		{http.MethodGet, "/auth/github", middleware.Public, oauth.Start(model.ProviderGitHub)},
		{http.MethodGet, "/auth/github/callback", middleware.Public, oauth.Callback(model.ProviderGitHub)},

		{http.MethodGet, "/users/profile", middleware.Authenticated, users.Profile},
		{http.MethodGet, "/users", admin, users.List},
		{http.MethodPatch, "/users/:id", admin, users.Update},

		{http.MethodGet, "/logs", admin, logs.List},
	}
}

// Register builds the gin engine with global middleware and every route.
func (r *Router) Register() *gin.Engine {
	p := r.params
	errs := middleware.NewErrors(p.Recorder, p.ContextManager, p.Logger)
	logging := middleware.NewLogging(p.Logger)
	guard := middleware.NewGuard(p.Issuer, p.UserStore, p.Revoker, p.ContextManager, p.Cookies.Name(), p.Logger)

	e := gin.New()
	e.Use(
		gin.CustomRecovery(errs.Recover),
		errs.Handle,
		logging.Handle,
		middleware.SecurityHeaders(p.StrictTransport),
		middleware.CORS(p.CORSOrigin),
		middleware.RateLimit(p.Limiter, p.Logger),
	)
	e.NoRoute(errs.NoRoute)

	api := e.Group(Prefix)
	for _, route := range r.Routes() {
		api.Handle(route.Method, route.Path, guard.Handle(route.Access), route.Handler)
	}

	return e
}
