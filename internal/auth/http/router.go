// Package http is the transport shell over the auth services: JSON
// endpoints, the refresh token cookie, and per-route rate limits.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/service"
	"github.com/trackforge/trackforge/internal/auth/store"
	"github.com/trackforge/trackforge/pkg/httpx"
	"github.com/trackforge/trackforge/pkg/slogx"
)

// Operation names used for guard policy lookups. Handlers and policies
// reference these constants so the two cannot drift apart.
const (
	OpSignUp     = "auth.signUp"
	OpSignIn     = "auth.signIn"
	OpRefresh    = "auth.refresh"
	OpLogout     = "auth.logout"
	OpMe         = "auth.me"
	OpUpdateRole = "users.updateRole"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion  string
	startTime     time.Time
	logger        *slog.Logger
	secureCookies bool

	store store.Store

	Guard       *service.Guard
	AuthService *service.AuthService
	UserService *service.UserService
}

// NewRouter wires the default middleware chain. secureCookies should be
// true everywhere except local development over plain HTTP.
func NewRouter(buildVersion string, st store.Store, logger *slog.Logger, secureCookies bool) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		logger:        logger,
		secureCookies: secureCookies,
		store:         st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ApplyRoutes registers every route and the guard policy for each
// operation. Call after the service fields are populated.
func (r *Router) ApplyRoutes() {
	r.registerPolicies()
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerPolicies() {
	// The credential and cookie endpoints carry their own proof; no bearer
	// token is required to reach them.
	r.Guard.RegisterOperation(OpSignUp, service.Policy{Public: true})
	r.Guard.RegisterOperation(OpSignIn, service.Policy{Public: true})
	r.Guard.RegisterOperation(OpRefresh, service.Policy{Public: true})

	// Any authenticated principal.
	r.Guard.RegisterOperation(OpLogout, service.Policy{})
	r.Guard.RegisterOperation(OpMe, service.Policy{})

	r.Guard.RegisterOperation(OpUpdateRole, service.Policy{Roles: []domain.Role{domain.RoleAdmin}})
}

func (r *Router) registerAuth() {
	signUp := &SignUpHandler{Auth: r.AuthService, Secure: r.secureCookies}
	signIn := &SignInHandler{Auth: r.AuthService, Secure: r.secureCookies}
	refresh := &RefreshHandler{Auth: r.AuthService, Secure: r.secureCookies}
	logout := &LogoutHandler{Auth: r.AuthService, Guard: r.Guard, Secure: r.secureCookies}
	me := &MeHandler{Auth: r.AuthService, Guard: r.Guard}

	// Credential endpoints get the strict limit; they are the brute-force
	// surface.
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(signUp, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/signin",
		httpx.Chain(signIn, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refresh, httpx.RateLimitByIP(httpx.StrictLimit)))

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logout, httpx.RateLimitByIP(httpx.ModerateLimit)))
	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(me, httpx.RateLimitByIP(httpx.ModerateLimit)))
}

func (r *Router) registerUsers() {
	updateRole := &UpdateRoleHandler{Users: r.UserService, Guard: r.Guard}

	r.Mux.Handle("PUT /v1/users/{id}/role",
		httpx.Chain(updateRole, httpx.RateLimitByIP(httpx.ModerateLimit)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
