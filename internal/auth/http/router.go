package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/veilauth/veil/internal/auth/service"
	"github.com/veilauth/veil/internal/auth/store"
	"github.com/veilauth/veil/pkg/httpx"
	"github.com/veilauth/veil/pkg/jwtx"
	"github.com/veilauth/veil/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store               store.Store
	RegistrationService *service.RegistrationService
	HandshakeService    *service.HandshakeService
	TokenService        *service.TokenService
	UserService         *service.UserService
}

func NewRouter(
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSession()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// POST /register - strict rate limit by IP (public signup endpoint)
	registerHandler := &RegisterHandler{RegistrationService: r.RegistrationService}
	r.Mux.Handle("POST /v1/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Both handshake phases carry authentication attempts, so both get
	// the strict per-IP limit.
	startHandler := &HandshakeStartHandler{HandshakeService: r.HandshakeService}
	r.Mux.Handle("POST /v1/auth/start",
		httpx.Chain(startHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	completeHandler := &HandshakeCompleteHandler{HandshakeService: r.HandshakeService}
	r.Mux.Handle("POST /v1/auth/complete",
		httpx.Chain(completeHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSession() {
	gate := SessionGate(r.TokenService)

	// POST /auth/refresh - the gate would reject an expired bearer, so
	// refresh verifies the token itself inside the service.
	refreshHandler := &RefreshHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	logoutHandler := &LogoutHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logoutHandler,
			gate,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	userHandler := &UserHandler{UserService: r.UserService}
	r.Mux.Handle("GET /v1/auth/user",
		httpx.Chain(userHandler,
			gate,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys))
}
